package watch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/member"
	"github.com/trezcool/darasa/core/study"
)

// SessionState is the watch session's lifecycle position.
type SessionState int

const (
	StateUninitialized SessionState = iota
	StateIdentified
	StateRecordResolved
	StateTracking
	StateCompleted
	// StateAlreadyComplete means the record was watched in a prior session;
	// the session is terminal without ever ticking.
	StateAlreadyComplete
)

func (s SessionState) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateIdentified:
		return "IDENTIFIED"
	case StateRecordResolved:
		return "RECORD_RESOLVED"
	case StateTracking:
		return "TRACKING"
	case StateCompleted:
		return "COMPLETED"
	case StateAlreadyComplete:
		return "ALREADY_COMPLETE"
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

// Terminal reports whether no further transitions can occur.
func (s SessionState) Terminal() bool {
	return s == StateCompleted || s == StateAlreadyComplete
}

// IdentityResolver is the external token-decode collaborator.
type IdentityResolver interface {
	DecodeIdentity(ctx context.Context, bearerToken string) (member.Identity, error)
}

type SessionDeps struct {
	Identity IdentityResolver
	WatchSvc *Service
	StudySvc *study.Service
	// Resolver is optional; when set, record resolution kicks off a
	// fire-and-forget duration resolution for the video.
	Resolver     *course.DurationResolver
	Logger       core.Logger
	TickInterval time.Duration
}

// Session tracks one member's viewing of one video: it resolves the member's
// watch record (creating it on first view), reports progress on a fixed
// interval while playback is active, and finalizes the record exactly once.
// One Session per open video view; all timer state is scoped to the instance.
type Session struct {
	deps  SessionDeps
	video course.Video

	mu      sync.Mutex
	state   SessionState
	ident   member.Identity
	watched bool
	started bool // single-fire latch: the ticker is never started twice
	ticker  *time.Ticker
	done    chan struct{}
}

func NewSession(deps SessionDeps, vid course.Video) *Session {
	if deps.TickInterval <= 0 {
		deps.TickInterval = time.Minute
	}
	return &Session{deps: deps, video: vid, state: StateUninitialized}
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Identity() member.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ident
}

// Init advances the session as far as RECORD_RESOLVED (or ALREADY_COMPLETE).
// It is re-entrant: a failed step leaves the state unchanged and the next
// call retries from there, mirroring a re-render/re-mount.
func (s *Session) Init(ctx context.Context, bearerToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateUninitialized {
		ident, err := s.deps.Identity.DecodeIdentity(ctx, bearerToken)
		if err != nil {
			// no identity: tracking never starts
			return errors.Wrap(err, "decoding identity")
		}
		s.ident = ident
		s.state = StateIdentified
	}

	if s.state == StateIdentified {
		rec, created, err := s.deps.WatchSvc.Ensure(ctx, s.ident.ID, s.video.ID)
		if err != nil {
			// stay IDENTIFIED; retried on next mount
			return errors.Wrap(err, "resolving watch record")
		}
		if created {
			s.deps.Logger.Debug(fmt.Sprintf("session (%s, %s): watch record created", s.ident.ID, s.video.ID))
		}
		if _, _, err = s.deps.StudySvc.Ensure(ctx, s.ident.ID, study.Today()); err != nil {
			// the ledger's AddStudyTime creates lazily, so the next tick
			// retries this; it must not block record resolution
			s.deps.Logger.Warn(fmt.Sprintf("session (%s, %s): ensuring study ledger entry: %v", s.ident.ID, s.video.ID, err))
		}
		s.watched = rec.Watched
		if s.watched {
			s.state = StateAlreadyComplete
		} else {
			s.state = StateRecordResolved
		}

		if s.deps.Resolver != nil {
			// fire-and-forget: duration never gates tracking
			go s.resolveDuration()
		}
	}
	return nil
}

// Start enters TRACKING and begins periodic progress reporting.
// The single-fire latch makes duplicate Start calls (double mount/render)
// harmless: the ticker is only ever acquired once per session.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateAlreadyComplete {
		return nil
	}
	if s.state != StateRecordResolved && s.state != StateTracking {
		return errors.Errorf("cannot start tracking from state %s", s.state)
	}
	if s.started {
		return nil
	}
	s.started = true
	s.state = StateTracking
	s.ticker = time.NewTicker(s.deps.TickInterval)
	s.done = make(chan struct{})
	go s.run(ctx, s.ticker, s.done)
	return nil
}

func (s *Session) run(ctx context.Context, ticker *time.Ticker, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			s.Stop()
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick credits one study unit to the watch record and the day's ledger.
// The two updates are independent, like the original reporting calls; a
// failed one is logged and retried on the next tick.
func (s *Session) tick(ctx context.Context) {
	s.mu.Lock()
	if s.state != StateTracking {
		s.mu.Unlock()
		return
	}
	memberID, videoID := s.ident.ID, s.video.ID
	s.mu.Unlock()

	if err := s.deps.WatchSvc.AddStudyTime(ctx, memberID, videoID, 1); err != nil {
		s.deps.Logger.Warn(fmt.Sprintf("session (%s, %s): tick: updating watch record: %v (will retry next tick)", memberID, videoID, err))
	}
	if err := s.deps.StudySvc.AddStudyTime(ctx, memberID, study.Today(), 1); err != nil {
		s.deps.Logger.Warn(fmt.Sprintf("session (%s, %s): tick: updating study ledger: %v (will retry next tick)", memberID, videoID, err))
	}
}

// PlaybackEnded finalizes the session on the player's end event: one
// completion credit plus the watched transition, exactly once. Duplicate
// end events (providers do fire ENDED twice) are ignored.
func (s *Session) PlaybackEnded(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateTracking || s.watched {
		return nil
	}

	memberID, videoID := s.ident.ID, s.video.ID
	if err := s.deps.WatchSvc.AddStudyTime(ctx, memberID, videoID, 1); err != nil {
		// session stays TRACKING; a retried end event completes it
		return errors.Wrap(err, "crediting completion study time")
	}
	if err := s.deps.WatchSvc.MarkWatched(ctx, memberID, videoID); err != nil {
		return errors.Wrap(err, "marking record watched")
	}
	if err := s.deps.StudySvc.MarkCompleted(ctx, memberID, study.Today()); err != nil {
		s.deps.Logger.Warn(fmt.Sprintf("session (%s, %s): marking study ledger completed: %v", memberID, videoID, err))
	}

	s.watched = true
	s.state = StateCompleted
	s.teardownLocked()

	s.deps.WatchSvc.notifyCompleted(s.ident, s.video)
	return nil
}

// Stop releases the session's timer. It is unconditional: safe to call from
// any state, any number of times (navigation, error, completion).
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
}

func (s *Session) teardownLocked() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
}

func (s *Session) resolveDuration() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := s.deps.Resolver.ResolveDuration(ctx, s.video); err != nil {
		s.deps.Logger.Warn(fmt.Sprintf("session: resolving duration for video %s: %v", s.video.ID, err))
	}
}
