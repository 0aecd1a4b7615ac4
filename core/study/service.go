package study

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

type (
	Repository interface {
		GetEntry(ctx context.Context, memberID string, day time.Time) (Entry, error)
		// CreateEntry fails with ErrEntryExists for a duplicate (member, day).
		CreateEntry(ctx context.Context, entry Entry) (Entry, error)
		AddStudyTime(ctx context.Context, memberID string, day time.Time, deltaSeconds int) error
		// MarkCompleted is idempotent.
		MarkCompleted(ctx context.Context, memberID string, day time.Time) error
	}

	Service struct {
		repo Repository
		log  core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, log: logger}
}

func (svc *Service) Get(ctx context.Context, memberID string, day time.Time) (Entry, error) {
	return svc.repo.GetEntry(ctx, memberID, DayOf(day))
}

// Ensure returns the member's ledger entry for the day, creating it when
// absent. Duplicate-create conflicts fall back to the existing entry.
func (svc *Service) Ensure(ctx context.Context, memberID string, day time.Time) (Entry, bool, error) {
	day = DayOf(day)
	now := time.Now().UTC()
	entry, err := svc.repo.CreateEntry(ctx, Entry{
		MemberID:  memberID,
		Day:       day,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err == nil {
		return entry, true, nil
	}
	if errors.Cause(err) != ErrEntryExists {
		return Entry{}, false, errors.Wrap(err, "creating study ledger entry")
	}
	svc.log.Debug(fmt.Sprintf("study ledger entry (%s, %s) already exists, reusing", memberID, day.Format("2006-01-02")))
	entry, err = svc.repo.GetEntry(ctx, memberID, day)
	if err != nil {
		return Entry{}, false, errors.Wrap(err, "getting study ledger entry")
	}
	return entry, false, nil
}

// AddStudyTime credits deltaSeconds to the member's entry for the day.
// Entries are created lazily: a missing entry (create failed at session
// init, or the session crossed UTC midnight) is ensured here and the
// credit retried.
func (svc *Service) AddStudyTime(ctx context.Context, memberID string, day time.Time, deltaSeconds int) error {
	if deltaSeconds <= 0 {
		return nil
	}
	day = DayOf(day)
	err := svc.repo.AddStudyTime(ctx, memberID, day, deltaSeconds)
	if errors.Cause(err) != ErrEntryNotFound {
		return err
	}
	if _, _, err = svc.Ensure(ctx, memberID, day); err != nil {
		return err
	}
	return svc.repo.AddStudyTime(ctx, memberID, day, deltaSeconds)
}

func (svc *Service) MarkCompleted(ctx context.Context, memberID string, day time.Time) error {
	return svc.repo.MarkCompleted(ctx, memberID, DayOf(day))
}
