package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core/course"
)

type courseRepository struct {
	db *courseTables
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db.course}
}

func (repo *courseRepository) CreateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	crs.ID = uuid.New().String()
	if crs.CreatedAt.IsZero() {
		crs.CreatedAt = time.Now().UTC()
	}
	crs.UpdatedAt = crs.CreatedAt
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) CreateVideo(_ context.Context, vid course.Video) (course.Video, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	vid.ID = uuid.New().String()
	if vid.CreatedAt.IsZero() {
		vid.CreatedAt = time.Now().UTC()
	}
	vid.UpdatedAt = vid.CreatedAt
	repo.db.videos[vid.ID] = &vid
	return vid, nil
}

func (repo *courseRepository) SetPurchase(_ context.Context, memberID, courseID string, purchased bool) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.purchases[pairKey(memberID, courseID)] = purchased
	return nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if crs, ok := repo.db.courses[id]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrCourseNotFound
}

func (repo *courseRepository) GetVideo(_ context.Context, id string) (course.Video, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if vid, ok := repo.db.videos[id]; ok {
		return *vid, nil
	}
	return course.Video{}, course.ErrVideoNotFound
}

func (repo *courseRepository) QueryVideosByCourse(_ context.Context, courseID string) ([]course.Video, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	vids := make([]course.Video, 0)
	for _, vid := range repo.db.videos {
		if vid.CourseID == courseID {
			vids = append(vids, *vid)
		}
	}
	sort.Slice(vids, func(i, j int) bool {
		if vids[i].CreatedAt.Equal(vids[j].CreatedAt) {
			return vids[i].ID < vids[j].ID
		}
		return vids[i].CreatedAt.Before(vids[j].CreatedAt)
	})
	return vids, nil
}

func (repo *courseRepository) SetVideoDuration(_ context.Context, videoID string, seconds int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	vid, ok := repo.db.videos[videoID]
	if !ok {
		return course.ErrVideoNotFound
	}
	vid.TotalDuration.SetValid(seconds)
	vid.UpdatedAt = time.Now().UTC()
	return nil
}

func (repo *courseRepository) GetPurchase(_ context.Context, memberID, courseID string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	purchased, ok := repo.db.purchases[pairKey(memberID, courseID)]
	if !ok {
		return false, course.ErrPurchaseNotFound
	}
	return purchased, nil
}
