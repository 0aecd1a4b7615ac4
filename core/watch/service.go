package watch

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/member"
)

type (
	Repository interface {
		RecordExists(ctx context.Context, memberID, videoID string) (bool, error)
		// CreateRecord fails with ErrRecordExists when a record already
		// exists for the composite key; racing creators are rejected by the
		// store's uniqueness constraint, not deduplicated.
		CreateRecord(ctx context.Context, rec Record) (Record, error)
		GetRecord(ctx context.Context, memberID, videoID string) (Record, error)
		// AddStudyTime fails with ErrRecordNotFound when the record is
		// absent: callers must have created it first.
		AddStudyTime(ctx context.Context, memberID, videoID string, deltaSeconds int) error
		// MarkWatched is idempotent; marking an already-watched record is a no-op.
		MarkWatched(ctx context.Context, memberID, videoID string) error
		GetWatchedFlag(ctx context.Context, memberID, videoID string) (bool, error)
		// AverageStudySeconds is a read-only consumer of records; it never
		// participates in the update path.
		AverageStudySeconds(ctx context.Context, videoID string) (float64, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
		log     core.Logger
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config, logger core.Logger) *Service {
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
		log:     logger,
	}
}

func (svc *Service) Exists(ctx context.Context, memberID, videoID string) (bool, error) {
	return svc.repo.RecordExists(ctx, memberID, videoID)
}

func (svc *Service) Get(ctx context.Context, memberID, videoID string) (Record, error) {
	return svc.repo.GetRecord(ctx, memberID, videoID)
}

func (svc *Service) Create(ctx context.Context, nr NewRecord) (Record, error) {
	now := time.Now().UTC()
	rec := Record{
		MemberID:  nr.MemberID,
		VideoID:   nr.VideoID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateRecord(ctx, rec)
}

// Ensure returns the member's record for the video, creating it when absent.
// A Conflict from a racing creator is recovered locally by reading the
// winner's record; it is never surfaced to the caller.
func (svc *Service) Ensure(ctx context.Context, memberID, videoID string) (Record, bool, error) {
	exists, err := svc.repo.RecordExists(ctx, memberID, videoID)
	if err != nil {
		return Record{}, false, errors.Wrap(err, "checking watch record existence")
	}
	if !exists {
		rec, err := svc.Create(ctx, NewRecord{MemberID: memberID, VideoID: videoID})
		if err == nil {
			return rec, true, nil
		}
		if errors.Cause(err) != ErrRecordExists {
			return Record{}, false, errors.Wrap(err, "creating watch record")
		}
		// two near-simultaneous sessions can both observe "not exists";
		// converge on the record the other one created
		svc.log.Debug(fmt.Sprintf("watch record (%s, %s) created concurrently, reusing", memberID, videoID))
	}
	rec, err := svc.repo.GetRecord(ctx, memberID, videoID)
	if err != nil {
		return Record{}, false, errors.Wrap(err, "getting watch record")
	}
	return rec, false, nil
}

func (svc *Service) AddStudyTime(ctx context.Context, memberID, videoID string, deltaSeconds int) error {
	if deltaSeconds <= 0 {
		return nil
	}
	return svc.repo.AddStudyTime(ctx, memberID, videoID, deltaSeconds)
}

func (svc *Service) MarkWatched(ctx context.Context, memberID, videoID string) error {
	return svc.repo.MarkWatched(ctx, memberID, videoID)
}

func (svc *Service) Watched(ctx context.Context, memberID, videoID string) (bool, error) {
	return svc.repo.GetWatchedFlag(ctx, memberID, videoID)
}

// State reports {exists, accumulated seconds, watched} without creating anything.
func (svc *Service) State(ctx context.Context, memberID, videoID string) (State, error) {
	rec, err := svc.repo.GetRecord(ctx, memberID, videoID)
	if err != nil {
		if errors.Cause(err) == ErrRecordNotFound {
			return State{}, nil
		}
		return State{}, err
	}
	return State{Exists: true, StudySeconds: rec.StudySeconds, Watched: rec.Watched}, nil
}

func (svc *Service) AverageStudySeconds(ctx context.Context, videoID string) (float64, error) {
	return svc.repo.AverageStudySeconds(ctx, videoID)
}

// notifyCompleted sends the "video completed" email when enabled.
func (svc *Service) notifyCompleted(ident member.Identity, vid course.Video) {
	if !svc.conf.SendCompletionEmails || ident.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: ident.Username, Address: ident.Email}},
		Subject:      "You finished a video!",
		TemplateName: "video-completed",
		TemplateData: struct{ Username, VideoTitle string }{ident.Username, vid.Title},
	})
}
