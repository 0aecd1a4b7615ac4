package inmemdb

import (
	"sync"
	"time"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/study"
	"github.com/trezcool/darasa/core/watch"
)

type (
	DB struct {
		course *courseTables
		watch  *watchTable
		study  *studyTable
	}

	courseTables struct {
		sync.RWMutex
		courses   map[string]*course.Course
		videos    map[string]*course.Video
		purchases map[string]bool // {memberID|courseID: purchased}
	}

	watchTable struct {
		sync.RWMutex
		table map[string]*watch.Record // {memberID|videoID: record}
	}

	studyTable struct {
		sync.RWMutex
		table map[string]*study.Entry // {memberID|day: entry}
	}
)

func Open() (*DB, error) {
	db := &DB{
		course: &courseTables{
			courses:   make(map[string]*course.Course),
			videos:    make(map[string]*course.Video),
			purchases: make(map[string]bool),
		},
		watch: &watchTable{table: make(map[string]*watch.Record)},
		study: &studyTable{table: make(map[string]*study.Entry)},
	}
	return db, nil
}

// Reset drops all rows; for tests.
func (db *DB) Reset() {
	db.course.Lock()
	db.course.courses = make(map[string]*course.Course)
	db.course.videos = make(map[string]*course.Video)
	db.course.purchases = make(map[string]bool)
	db.course.Unlock()

	db.watch.Lock()
	db.watch.table = make(map[string]*watch.Record)
	db.watch.Unlock()

	db.study.Lock()
	db.study.table = make(map[string]*study.Entry)
	db.study.Unlock()
}

func pairKey(a, b string) string { return a + "|" + b }

func dayKey(memberID string, day time.Time) string {
	return pairKey(memberID, day.Format("2006-01-02"))
}
