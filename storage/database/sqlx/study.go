package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/study"
)

type studyRepository struct {
	exec core.DBExecutor
}

var _ study.Repository = (*studyRepository)(nil) // interface compliance check

func NewStudyRepository(exec core.DBExecutor) *studyRepository {
	return &studyRepository{exec: exec}
}

type studyEntryRow struct {
	MemberID     string    `db:"member_id"`
	Day          time.Time `db:"day"`
	StudySeconds int       `db:"study_time"`
	Completed    bool      `db:"completed"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r studyEntryRow) unmarshal() study.Entry {
	return study.Entry{
		MemberID:     r.MemberID,
		Day:          study.DayOf(r.Day),
		StudySeconds: r.StudySeconds,
		Completed:    r.Completed,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func (repo studyRepository) GetEntry(ctx context.Context, memberID string, day time.Time) (study.Entry, error) {
	var row studyEntryRow
	q := `SELECT member_id, day, study_time, completed, created_at, updated_at
          FROM study_ledger WHERE member_id = $1 AND day = $2`
	if err := repo.exec.GetContext(ctx, &row, q, memberID, day); err != nil {
		if err == sql.ErrNoRows {
			return study.Entry{}, study.ErrEntryNotFound
		}
		return study.Entry{}, errors.Wrap(err, "finding study ledger entry")
	}
	return row.unmarshal(), nil
}

func (repo studyRepository) CreateEntry(ctx context.Context, entry study.Entry) (study.Entry, error) {
	q := `INSERT INTO study_ledger (member_id, day, study_time, completed, created_at, updated_at)
          VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := repo.exec.ExecContext(
		ctx, q, entry.MemberID, entry.Day, entry.StudySeconds, entry.Completed, entry.CreatedAt, entry.UpdatedAt,
	); err != nil {
		if isUniqueViolationErr(err) {
			return study.Entry{}, study.ErrEntryExists
		}
		return study.Entry{}, errors.Wrap(err, "inserting study ledger entry")
	}
	return entry, nil
}

func (repo studyRepository) AddStudyTime(ctx context.Context, memberID string, day time.Time, deltaSeconds int) error {
	q := `UPDATE study_ledger SET study_time = study_time + $1, updated_at = now()
          WHERE member_id = $2 AND day = $3`
	res, err := repo.exec.ExecContext(ctx, q, deltaSeconds, memberID, day)
	if err != nil {
		return errors.Wrap(err, "updating study ledger study time")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return study.ErrEntryNotFound
	}
	return nil
}

func (repo studyRepository) MarkCompleted(ctx context.Context, memberID string, day time.Time) error {
	q := `UPDATE study_ledger SET completed = TRUE, updated_at = now()
          WHERE member_id = $1 AND day = $2`
	res, err := repo.exec.ExecContext(ctx, q, memberID, day)
	if err != nil {
		return errors.Wrap(err, "marking study ledger entry completed")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return study.ErrEntryNotFound
	}
	return nil
}
