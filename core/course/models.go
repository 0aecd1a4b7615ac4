package course

import (
	"errors"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrCourseNotFound   = errors.New("course not found")
	ErrVideoNotFound    = errors.New("video not found")
	ErrPurchaseNotFound = errors.New("purchase not found")
	ErrContentNotFound  = errors.New("video content not found")
)

type Course struct {
	ID              string    `json:"course_id"`
	Name            string    `json:"name"`
	CreatorUsername string    `json:"creator_username"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

type Video struct {
	ID         string `json:"video_id"`
	CourseID   string `json:"course_id"`
	ExternalID string `json:"external_id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	// TotalDuration is in seconds; unset until resolved from the provider.
	TotalDuration null.Int  `json:"total_duration"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

func (v Video) HasDuration() bool { return v.TotalDuration.Valid && v.TotalDuration.Int > 0 }

// SaveDuration is the "save total play time" payload.
type SaveDuration struct {
	VideoID       string `json:"video_id" validate:"required"`
	TotalDuration int    `json:"total_duration" validate:"required,gt=0"`
}

func (sd *SaveDuration) Validate() error {
	sd.VideoID = core.CleanString(sd.VideoID)
	return core.Validate.Struct(sd)
}
