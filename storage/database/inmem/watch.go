package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/darasa/core/watch"
)

type watchRepository struct {
	db *watchTable
}

var _ watch.Repository = (*watchRepository)(nil) // interface compliance check

func NewWatchRepository(db *DB) *watchRepository {
	return &watchRepository{db: db.watch}
}

func (repo *watchRepository) RecordExists(_ context.Context, memberID, videoID string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	_, ok := repo.db.table[pairKey(memberID, videoID)]
	return ok, nil
}

func (repo *watchRepository) CreateRecord(_ context.Context, rec watch.Record) (watch.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := pairKey(rec.MemberID, rec.VideoID)
	if _, ok := repo.db.table[key]; ok {
		return watch.Record{}, watch.ErrRecordExists
	}
	repo.db.table[key] = &rec
	return rec, nil
}

func (repo *watchRepository) GetRecord(_ context.Context, memberID, videoID string) (watch.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rec, ok := repo.db.table[pairKey(memberID, videoID)]; ok {
		return *rec, nil
	}
	return watch.Record{}, watch.ErrRecordNotFound
}

func (repo *watchRepository) AddStudyTime(_ context.Context, memberID, videoID string, deltaSeconds int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	rec, ok := repo.db.table[pairKey(memberID, videoID)]
	if !ok {
		return watch.ErrRecordNotFound
	}
	rec.StudySeconds += deltaSeconds
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (repo *watchRepository) MarkWatched(_ context.Context, memberID, videoID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	rec, ok := repo.db.table[pairKey(memberID, videoID)]
	if !ok {
		return watch.ErrRecordNotFound
	}
	if !rec.Watched {
		rec.Watched = true
		rec.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (repo *watchRepository) GetWatchedFlag(_ context.Context, memberID, videoID string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rec, ok := repo.db.table[pairKey(memberID, videoID)]; ok {
		return rec.Watched, nil
	}
	return false, watch.ErrRecordNotFound
}

func (repo *watchRepository) AverageStudySeconds(_ context.Context, videoID string) (float64, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var total, count int
	for _, rec := range repo.db.table {
		if rec.VideoID == videoID {
			total += rec.StudySeconds
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	return float64(total) / float64(count), nil
}
