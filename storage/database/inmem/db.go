// Package inmemdb implements the repositories in memory, for tests and local demos.
package inmemdb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/campus/core/course"
	"github.com/trezcool/campus/core/enrollment"
	"github.com/trezcool/campus/core/progress"
	"github.com/trezcool/campus/core/user"
)

// DB holds every table behind one lock.
type DB struct {
	mutex sync.RWMutex

	users      map[string]*user.User
	profiles   map[string]*user.Profile
	identities map[string]*user.Identity // provider|subject

	courses       map[string]*course.Course
	cohorts       map[string]*course.Cohort
	lessons       map[string]*course.Lesson
	announcements map[string]*course.Announcement

	enrollments map[string]*enrollment.Enrollment // userID|cohortID
	progress    map[string]*progress.LessonProgress // userID|lessonID

	failures map[string]error // repository method -> error
}

func NewDB() *DB {
	return &DB{
		users:         make(map[string]*user.User),
		profiles:      make(map[string]*user.Profile),
		identities:    make(map[string]*user.Identity),
		courses:       make(map[string]*course.Course),
		cohorts:       make(map[string]*course.Cohort),
		lessons:       make(map[string]*course.Lesson),
		announcements: make(map[string]*course.Announcement),
		enrollments:   make(map[string]*enrollment.Enrollment),
		progress:      make(map[string]*progress.LessonProgress),
		failures:      make(map[string]error),
	}
}

// FailOn makes the repository method named op return err until cleared with a nil err.
func (db *DB) FailOn(op string, err error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if err == nil {
		delete(db.failures, op)
		return
	}
	db.failures[op] = err
}

// failure must be called with the lock held.
func (db *DB) failure(op string) error {
	return db.failures[op]
}

func newID() string {
	return uuid.New().String()
}

func pairKey(a, b string) string {
	return a + "|" + b
}
