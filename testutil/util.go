// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/course"
	"github.com/trezcool/campus/core/enrollment"
	"github.com/trezcool/campus/core/user"
	inmemdb "github.com/trezcool/campus/storage/database/inmem"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Email:     email,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	if role == "" {
		role = user.RoleStudent
	}
	usr, err := repo.CreateUser(context.Background(), usr, user.Profile{Role: role, Name: name, CreatedAt: tstamp, UpdatedAt: tstamp})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// Catalog is one published course with an active cohort and three published lessons
// (plus a draft), a second inactive cohort and some announcements.
type Catalog struct {
	Course         course.Course
	Cohort         course.Cohort
	InactiveCohort course.Cohort
	Lessons        []course.Lesson // published, by sort order
	Draft          course.Lesson
	Announcements  []course.Announcement
}

func CreateCatalog(db *inmemdb.DB, slug string) Catalog {
	now := time.Now().UTC()
	var c Catalog
	c.Course = db.InsertCourse(course.Course{
		Title:       "Course " + slug,
		Slug:        slug,
		Description: "All about " + slug,
		IsPublished: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	c.Cohort = db.InsertCohort(course.Cohort{
		CourseID: c.Course.ID, Title: "Cohort 1", Slug: "cohort-1", IsActive: true, CreatedAt: now, UpdatedAt: now,
	})
	c.InactiveCohort = db.InsertCohort(course.Cohort{
		CourseID: c.Course.ID, Title: "Cohort 0", Slug: "cohort-0", IsActive: false, CreatedAt: now, UpdatedAt: now,
	})
	for i := 1; i <= 3; i++ {
		c.Lessons = append(c.Lessons, db.InsertLesson(course.Lesson{
			CohortID:    c.Cohort.ID,
			Title:       fmt.Sprintf("Lesson %d", i),
			SortOrder:   i * 10,
			VimeoURL:    fmt.Sprintf("https://vimeo.com/10000%d", i),
			Resources:   []course.Resource{{Type: course.ResourcePDF, Title: "Slides", URL: "https://files.test/slides.pdf"}},
			IsPublished: true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}))
	}
	c.Draft = db.InsertLesson(course.Lesson{CohortID: c.Cohort.ID, Title: "Draft", SortOrder: 15, CreatedAt: now, UpdatedAt: now})
	c.Announcements = []course.Announcement{
		db.InsertAnnouncement(course.Announcement{
			CohortID: c.Cohort.ID, Title: "Welcome", Body: "Hello!", CreatedAt: now.Add(-48 * time.Hour),
		}),
		db.InsertAnnouncement(course.Announcement{
			CohortID: c.Cohort.ID, Title: "Schedule", Body: "Pinned schedule", IsPinned: true, CreatedAt: now.Add(-72 * time.Hour),
		}),
		db.InsertAnnouncement(course.Announcement{
			CohortID: c.Cohort.ID, Title: "Week 2", Body: "New lessons", CreatedAt: now.Add(-time.Hour),
		}),
	}
	return c
}

func Enroll(t *testing.T, repo enrollment.Repository, userID, cohortID string, status enrollment.Status, createdAt ...time.Time) enrollment.Enrollment {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	e, err := repo.UpsertEnrollment(context.Background(), enrollment.Enrollment{
		UserID: userID, CohortID: cohortID, Status: status, CreatedAt: tstamp, UpdatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return e
}

// Logger records messages instead of printing them.
type Logger struct {
	mu       sync.Mutex
	Messages []string
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = append(l.Messages, level+": "+msg)
}

func (l *Logger) Debug(msg string, _ ...interface{}) { l.log("DEBUG", msg) }
func (l *Logger) Info(msg string, _ ...interface{})  { l.log("INFO", msg) }
func (l *Logger) Warn(msg string, _ ...interface{})  { l.log("WARN", msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.log("ERROR", msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { l.log("FATAL", msg) }

func (l *Logger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Messages)
}
