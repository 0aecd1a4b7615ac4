package videoinfosvc

import (
	"context"
	"sync"

	"github.com/trezcool/darasa/core/course"
)

// dummyService serves durations from an in-memory map; for tests and local dev.
type dummyService struct {
	mu        sync.RWMutex
	durations map[string]string // {externalID: PT#H#M#S}
}

var _ course.DurationProvider = (*dummyService)(nil)

func NewDummyService(durations map[string]string) *dummyService {
	if durations == nil {
		durations = make(map[string]string)
	}
	return &dummyService{durations: durations}
}

func (svc *dummyService) SetDuration(externalID, duration string) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.durations[externalID] = duration
}

func (svc *dummyService) GetContentDuration(_ context.Context, externalID string) (string, error) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	dur, ok := svc.durations[externalID]
	if !ok {
		return "", course.ErrContentNotFound
	}
	return dur, nil
}
