package watch

import (
	"errors"
	"time"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrRecordNotFound = errors.New("watch record not found")
	ErrRecordExists   = errors.New("a watch record already exists for this member and video")
)

// Record is the persisted per-member-per-video progress state.
// At most one Record exists per (MemberID, VideoID); StudySeconds never
// decreases and Watched never reverts to false once true.
type Record struct {
	MemberID     string    `json:"member_id"`
	VideoID      string    `json:"video_id"`
	StudySeconds int       `json:"study_time"`
	Watched      bool      `json:"watched"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

// State is the read model exposed to the surrounding app.
type State struct {
	Exists       bool `json:"exists"`
	StudySeconds int  `json:"study_time"`
	Watched      bool `json:"watched"`
}

// NewRecord contains information needed to create a new Record.
type NewRecord struct {
	MemberID string `json:"member_id" validate:"required"`
	VideoID  string `json:"video_id" validate:"required"`
}

func (nr *NewRecord) Validate() error {
	nr.MemberID = core.CleanString(nr.MemberID)
	nr.VideoID = core.CleanString(nr.VideoID)
	return core.Validate.Struct(nr)
}

// UpdateRecord defines a progress update: a study-time delta and/or the
// one-way watched transition.
type UpdateRecord struct {
	StudySeconds int  `json:"study_time" validate:"gte=0"`
	Watched      bool `json:"watched"`
}

func (ur *UpdateRecord) Validate() error {
	return core.Validate.Struct(ur)
}
