package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/study"
	"github.com/trezcool/darasa/core/watch"
)

// NewTestConfig builds a self-contained config for tests; no env vars, no
// .env files. It also sets core.Conf so leaf helpers (mail templates) work.
func NewTestConfig() *core.Config {
	conf := &core.Config{
		Env:             "TEST",
		TestMode:        true,
		AppName:         "Darasa",
		SecretKey:       []byte("test-secret-key"),
		FrontendBaseURL: "http://localhost:3000",
	}
	conf.Server.JWTExpirationDelta = time.Hour
	conf.Server.JWTRefreshExpirationDelta = time.Hour
	conf.Server.ShutdownTimeout = time.Second
	conf.Watch.TickInterval = 10 * time.Millisecond
	core.Conf = conf
	return conf
}

func CreateCourse(t *testing.T, repo course.Repository, name, creatorUsername string) course.Course {
	crs, err := repo.CreateCourse(context.Background(), course.Course{
		Name:            name,
		CreatorUsername: creatorUsername,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

func CreateVideo(t *testing.T, repo course.Repository, courseID, externalID, title string) course.Video {
	vid, err := repo.CreateVideo(context.Background(), course.Video{
		CourseID:   courseID,
		ExternalID: externalID,
		Title:      title,
		URL:        "https://youtu.be/" + externalID,
	})
	if err != nil {
		t.Fatalf("CreateVideo() failed: %v", err)
	}
	return vid
}

func SetPurchase(t *testing.T, repo course.Repository, memberID, courseID string, purchased bool) {
	if err := repo.SetPurchase(context.Background(), memberID, courseID, purchased); err != nil {
		t.Fatalf("SetPurchase() failed: %v", err)
	}
}

func CreateRecord(t *testing.T, repo watch.Repository, memberID, videoID string, studySeconds int, watched bool) watch.Record {
	now := time.Now().UTC()
	rec, err := repo.CreateRecord(context.Background(), watch.Record{
		MemberID:     memberID,
		VideoID:      videoID,
		StudySeconds: studySeconds,
		Watched:      watched,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateRecord() failed: %v", err)
	}
	return rec
}

func CreateEntry(t *testing.T, repo study.Repository, memberID string, day time.Time, studySeconds int, completed bool) study.Entry {
	now := time.Now().UTC()
	entry, err := repo.CreateEntry(context.Background(), study.Entry{
		MemberID:     memberID,
		Day:          study.DayOf(day),
		StudySeconds: studySeconds,
		Completed:    completed,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateEntry() failed: %v", err)
	}
	return entry
}
