package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/watch"
)

const uniqueViolation = "23505"

// isUniqueViolationErr reports whether err is a psql unique constraint error.
func isUniqueViolationErr(err error) bool {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		return pqErr.Code == uniqueViolation
	}
	return false
}

type watchRepository struct {
	exec core.DBExecutor
}

var _ watch.Repository = (*watchRepository)(nil) // interface compliance check

func NewWatchRepository(exec core.DBExecutor) *watchRepository {
	return &watchRepository{exec: exec}
}

type watchRecordRow struct {
	MemberID     string    `db:"member_id"`
	VideoID      string    `db:"video_id"`
	StudySeconds int       `db:"study_time"`
	Watched      bool      `db:"watched"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r watchRecordRow) unmarshal() watch.Record {
	return watch.Record{
		MemberID:     r.MemberID,
		VideoID:      r.VideoID,
		StudySeconds: r.StudySeconds,
		Watched:      r.Watched,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func (repo watchRepository) RecordExists(ctx context.Context, memberID, videoID string) (bool, error) {
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM watch_record WHERE member_id = $1 AND video_id = $2)`
	if err := repo.exec.GetContext(ctx, &exists, q, memberID, videoID); err != nil {
		return false, errors.Wrap(err, "checking watch record existence")
	}
	return exists, nil
}

// CreateRecord relies on the composite primary key to reject racing creators:
// a duplicate insert surfaces as watch.ErrRecordExists.
func (repo watchRepository) CreateRecord(ctx context.Context, rec watch.Record) (watch.Record, error) {
	q := `INSERT INTO watch_record (member_id, video_id, study_time, watched, created_at, updated_at)
          VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := repo.exec.ExecContext(
		ctx, q, rec.MemberID, rec.VideoID, rec.StudySeconds, rec.Watched, rec.CreatedAt, rec.UpdatedAt,
	); err != nil {
		if isUniqueViolationErr(err) {
			return watch.Record{}, watch.ErrRecordExists
		}
		return watch.Record{}, errors.Wrap(err, "inserting watch record")
	}
	return rec, nil
}

func (repo watchRepository) GetRecord(ctx context.Context, memberID, videoID string) (watch.Record, error) {
	var row watchRecordRow
	q := `SELECT member_id, video_id, study_time, watched, created_at, updated_at
          FROM watch_record WHERE member_id = $1 AND video_id = $2`
	if err := repo.exec.GetContext(ctx, &row, q, memberID, videoID); err != nil {
		if err == sql.ErrNoRows {
			return watch.Record{}, watch.ErrRecordNotFound
		}
		return watch.Record{}, errors.Wrap(err, "finding watch record")
	}
	return row.unmarshal(), nil
}

func (repo watchRepository) AddStudyTime(ctx context.Context, memberID, videoID string, deltaSeconds int) error {
	q := `UPDATE watch_record SET study_time = study_time + $1, updated_at = now()
          WHERE member_id = $2 AND video_id = $3`
	res, err := repo.exec.ExecContext(ctx, q, deltaSeconds, memberID, videoID)
	if err != nil {
		return errors.Wrap(err, "updating watch record study time")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return watch.ErrRecordNotFound
	}
	return nil
}

func (repo watchRepository) MarkWatched(ctx context.Context, memberID, videoID string) error {
	q := `UPDATE watch_record SET watched = TRUE, updated_at = now()
          WHERE member_id = $1 AND video_id = $2`
	res, err := repo.exec.ExecContext(ctx, q, memberID, videoID)
	if err != nil {
		return errors.Wrap(err, "marking watch record watched")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return watch.ErrRecordNotFound
	}
	return nil
}

func (repo watchRepository) GetWatchedFlag(ctx context.Context, memberID, videoID string) (bool, error) {
	var watched bool
	q := `SELECT watched FROM watch_record WHERE member_id = $1 AND video_id = $2`
	if err := repo.exec.GetContext(ctx, &watched, q, memberID, videoID); err != nil {
		if err == sql.ErrNoRows {
			return false, watch.ErrRecordNotFound
		}
		return false, errors.Wrap(err, "finding watch record")
	}
	return watched, nil
}

func (repo watchRepository) AverageStudySeconds(ctx context.Context, videoID string) (float64, error) {
	var avg float64
	q := `SELECT COALESCE(AVG(study_time), 0) FROM watch_record WHERE video_id = $1`
	if err := repo.exec.GetContext(ctx, &avg, q, videoID); err != nil {
		return 0, errors.Wrap(err, "averaging watch record study time")
	}
	return avg, nil
}
