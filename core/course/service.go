package course

import (
	"context"
	"fmt"

	"github.com/trezcool/darasa/core"
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		CreateVideo(ctx context.Context, vid Video) (Video, error)
		// SetPurchase records memberID's purchase state for courseID,
		// overwriting any previous record for the pair.
		SetPurchase(ctx context.Context, memberID, courseID string, purchased bool) error
		GetCourse(ctx context.Context, id string) (Course, error)
		GetVideo(ctx context.Context, id string) (Video, error)
		// QueryVideosByCourse returns the course's videos in catalog order.
		QueryVideosByCourse(ctx context.Context, courseID string) ([]Video, error)
		SetVideoDuration(ctx context.Context, videoID string, seconds int) error
		// GetPurchase returns ErrPurchaseNotFound when no purchase record
		// exists for the pair; a record with purchased=false is NOT not-found.
		GetPurchase(ctx context.Context, memberID, courseID string) (bool, error)
	}

	Service struct {
		repo Repository
		log  core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, log: logger}
}

func (svc *Service) GetCourse(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *Service) GetVideo(ctx context.Context, id string) (Video, error) {
	return svc.repo.GetVideo(ctx, id)
}

func (svc *Service) VideosByCourse(ctx context.Context, courseID string) ([]Video, error) {
	return svc.repo.QueryVideosByCourse(ctx, courseID)
}

// PurchaseStatus reports whether memberID purchased courseID.
// Absence of a purchase record surfaces as ErrPurchaseNotFound so callers
// can tell "never purchased" apart from an explicit purchased=false record.
func (svc *Service) PurchaseStatus(ctx context.Context, memberID, courseID string) (bool, error) {
	return svc.repo.GetPurchase(ctx, memberID, courseID)
}

// SaveVideoDuration persists a video's total duration. First write wins:
// once a duration is set, later saves are no-ops (the resolver fires every
// session; the stored value stays deterministic).
func (svc *Service) SaveVideoDuration(ctx context.Context, videoID string, seconds int) error {
	vid, err := svc.repo.GetVideo(ctx, videoID)
	if err != nil {
		return err
	}
	if vid.HasDuration() {
		svc.log.Debug(fmt.Sprintf("video %s: duration already set (%ds), skipping", videoID, vid.TotalDuration.Int))
		return nil
	}
	return svc.repo.SetVideoDuration(ctx, videoID, seconds)
}
