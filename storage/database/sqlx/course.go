package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
)

type courseRepository struct {
	exec core.DBExecutor
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(exec core.DBExecutor) *courseRepository {
	return &courseRepository{exec: exec}
}

type (
	courseRow struct {
		ID              string    `db:"id"`
		Name            string    `db:"name"`
		CreatorUsername string    `db:"creator_username"`
		CreatedAt       time.Time `db:"created_at"`
		UpdatedAt       time.Time `db:"updated_at"`
	}

	videoRow struct {
		ID            string    `db:"id"`
		CourseID      string    `db:"course_id"`
		ExternalID    string    `db:"external_id"`
		Title         string    `db:"title"`
		URL           string    `db:"url"`
		TotalDuration null.Int  `db:"total_duration"`
		CreatedAt     time.Time `db:"created_at"`
		UpdatedAt     time.Time `db:"updated_at"`
	}
)

func (r courseRow) unmarshal() course.Course {
	return course.Course{
		ID:              r.ID,
		Name:            r.Name,
		CreatorUsername: r.CreatorUsername,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func (r videoRow) unmarshal() course.Video {
	return course.Video{
		ID:            r.ID,
		CourseID:      r.CourseID,
		ExternalID:    r.ExternalID,
		Title:         r.Title,
		URL:           r.URL,
		TotalDuration: r.TotalDuration,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to notFound
func (repo courseRepository) trapNoRowsErr(err, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.ID = uuid.New().String()
	if crs.CreatedAt.IsZero() {
		crs.CreatedAt = time.Now().UTC()
	}
	crs.UpdatedAt = crs.CreatedAt

	q := `INSERT INTO course (id, name, creator_username, created_at, updated_at)
          VALUES ($1, $2, $3, $4, $5)`
	if _, err := repo.exec.ExecContext(ctx, q, crs.ID, crs.Name, crs.CreatorUsername, crs.CreatedAt, crs.UpdatedAt); err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return crs, nil
}

func (repo courseRepository) CreateVideo(ctx context.Context, vid course.Video) (course.Video, error) {
	vid.ID = uuid.New().String()
	if vid.CreatedAt.IsZero() {
		vid.CreatedAt = time.Now().UTC()
	}
	vid.UpdatedAt = vid.CreatedAt

	q := `INSERT INTO video (id, course_id, external_id, title, url, total_duration, created_at, updated_at)
          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := repo.exec.ExecContext(
		ctx, q, vid.ID, vid.CourseID, vid.ExternalID, vid.Title, vid.URL, vid.TotalDuration, vid.CreatedAt, vid.UpdatedAt,
	); err != nil {
		return course.Video{}, errors.Wrap(err, "inserting video")
	}
	return vid, nil
}

func (repo courseRepository) SetPurchase(ctx context.Context, memberID, courseID string, purchased bool) error {
	q := `INSERT INTO purchase (member_id, course_id, purchased)
          VALUES ($1, $2, $3)
          ON CONFLICT (member_id, course_id) DO UPDATE SET purchased = EXCLUDED.purchased, updated_at = now()`
	if _, err := repo.exec.ExecContext(ctx, q, memberID, courseID, purchased); err != nil {
		return errors.Wrap(err, "upserting purchase")
	}
	return nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Course{}, course.ErrCourseNotFound
	}

	var row courseRow
	q := `SELECT id, name, creator_username, created_at, updated_at FROM course WHERE id = $1`
	if err := repo.exec.GetContext(ctx, &row, q, id); err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, course.ErrCourseNotFound, "finding course by ID")
	}
	return row.unmarshal(), nil
}

func (repo courseRepository) GetVideo(ctx context.Context, id string) (course.Video, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Video{}, course.ErrVideoNotFound
	}

	var row videoRow
	q := `SELECT id, course_id, external_id, title, url, total_duration, created_at, updated_at
          FROM video WHERE id = $1`
	if err := repo.exec.GetContext(ctx, &row, q, id); err != nil {
		return course.Video{}, repo.trapNoRowsErr(err, course.ErrVideoNotFound, "finding video by ID")
	}
	return row.unmarshal(), nil
}

// videoCatalogOrdering fixes the order videos are served in: insertion
// order, with the id as a tie-breaker for equal timestamps.
var videoCatalogOrdering = []core.DBOrdering{
	{Field: "created_at", Ascending: true},
	{Field: "id", Ascending: true},
}

func (repo courseRepository) QueryVideosByCourse(ctx context.Context, courseID string) ([]course.Video, error) {
	orderBy := make([]string, 0, len(videoCatalogOrdering))
	for _, ord := range videoCatalogOrdering {
		orderBy = append(orderBy, ord.String())
	}

	var rows []videoRow
	q := `SELECT id, course_id, external_id, title, url, total_duration, created_at, updated_at
          FROM video WHERE course_id = $1 ORDER BY ` + strings.Join(orderBy, ", ")
	if err := repo.exec.SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying videos")
	}

	vids := make([]course.Video, 0, len(rows))
	for _, row := range rows {
		vids = append(vids, row.unmarshal())
	}
	return vids, nil
}

func (repo courseRepository) SetVideoDuration(ctx context.Context, videoID string, seconds int) error {
	q := `UPDATE video SET total_duration = $1, updated_at = now() WHERE id = $2`
	res, err := repo.exec.ExecContext(ctx, q, seconds, videoID)
	if err != nil {
		return errors.Wrap(err, "updating video duration")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.ErrVideoNotFound
	}
	return nil
}

func (repo courseRepository) GetPurchase(ctx context.Context, memberID, courseID string) (bool, error) {
	var purchased bool
	q := `SELECT purchased FROM purchase WHERE member_id = $1 AND course_id = $2`
	if err := repo.exec.GetContext(ctx, &purchased, q, memberID, courseID); err != nil {
		return false, repo.trapNoRowsErr(err, course.ErrPurchaseNotFound, "finding purchase")
	}
	return purchased, nil
}
