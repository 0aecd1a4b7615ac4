package course

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// DurationProvider is the external video-length collaborator.
// GetContentDuration returns an ISO-8601-like duration string (PT#H#M#S)
// for the provider's own video id, or ErrContentNotFound.
type DurationProvider interface {
	GetContentDuration(ctx context.Context, externalID string) (string, error)
}

var isoDurationRegex = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// ParseISODuration converts a PT#H#M#S duration string to total seconds.
// Missing components default to zero.
func ParseISODuration(s string) (int, error) {
	matches := isoDurationRegex.FindStringSubmatch(s)
	if matches == nil {
		return 0, errors.Errorf("invalid duration %q", s)
	}
	var total int
	for i, unit := range []int{3600, 60, 1} {
		if matches[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(matches[i+1])
		if err != nil {
			return 0, errors.Wrapf(err, "invalid duration %q", s)
		}
		total += n * unit
	}
	return total, nil
}

// DurationResolver obtains a video's total playable duration once from the
// external provider and persists it against the catalog entry. Resolution is
// fire-and-forget relative to playback; it never gates tracking.
type DurationResolver struct {
	provider DurationProvider
	svc      *Service
	log      core.Logger
}

func NewDurationResolver(provider DurationProvider, svc *Service, logger core.Logger) *DurationResolver {
	return &DurationResolver{provider: provider, svc: svc, log: logger}
}

// ResolveDuration looks up the duration of vid by its external id and saves
// it. A provider miss (no matching item) is logged and skipped; it is not an
// error to the viewing session.
func (r *DurationResolver) ResolveDuration(ctx context.Context, vid Video) (int, error) {
	raw, err := r.provider.GetContentDuration(ctx, vid.ExternalID)
	if err != nil {
		if errors.Cause(err) == ErrContentNotFound {
			r.log.Warn(fmt.Sprintf("video %s: no content found for external id %q, skipping duration save", vid.ID, vid.ExternalID))
			return 0, nil
		}
		return 0, errors.Wrap(err, "fetching content duration")
	}

	seconds, err := ParseISODuration(raw)
	if err != nil {
		return 0, errors.Wrap(err, "parsing content duration")
	}

	if err = r.svc.SaveVideoDuration(ctx, vid.ID, seconds); err != nil {
		return 0, errors.Wrap(err, "saving video duration")
	}
	return seconds, nil
}
