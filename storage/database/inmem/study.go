package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/darasa/core/study"
)

type studyRepository struct {
	db *studyTable
}

var _ study.Repository = (*studyRepository)(nil) // interface compliance check

func NewStudyRepository(db *DB) *studyRepository {
	return &studyRepository{db: db.study}
}

func (repo *studyRepository) GetEntry(_ context.Context, memberID string, day time.Time) (study.Entry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if entry, ok := repo.db.table[dayKey(memberID, day)]; ok {
		return *entry, nil
	}
	return study.Entry{}, study.ErrEntryNotFound
}

func (repo *studyRepository) CreateEntry(_ context.Context, entry study.Entry) (study.Entry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := dayKey(entry.MemberID, entry.Day)
	if _, ok := repo.db.table[key]; ok {
		return study.Entry{}, study.ErrEntryExists
	}
	repo.db.table[key] = &entry
	return entry, nil
}

func (repo *studyRepository) AddStudyTime(_ context.Context, memberID string, day time.Time, deltaSeconds int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	entry, ok := repo.db.table[dayKey(memberID, day)]
	if !ok {
		return study.ErrEntryNotFound
	}
	entry.StudySeconds += deltaSeconds
	entry.UpdatedAt = time.Now().UTC()
	return nil
}

func (repo *studyRepository) MarkCompleted(_ context.Context, memberID string, day time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	entry, ok := repo.db.table[dayKey(memberID, day)]
	if !ok {
		return study.ErrEntryNotFound
	}
	if !entry.Completed {
		entry.Completed = true
		entry.UpdatedAt = time.Now().UTC()
	}
	return nil
}
