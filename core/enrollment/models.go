package enrollment

import (
	"net/url"
	"strconv"
	"time"

	"github.com/trezcool/campus/core/course"
)

type Status string

const (
	StatusActive Status = "active"
	StatusPaused Status = "paused"
	StatusEnded  Status = "ended"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusEnded:
		return true
	}
	return false
}

// Enrollment is unique per (UserID, CohortID).
type Enrollment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CohortID  string    `json:"cohort_id"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e Enrollment) IsActive() bool { return e.Status == StatusActive }

// Detail is an Enrollment with its Cohort and Course.
type Detail struct {
	Enrollment
	Cohort course.Cohort
	Course course.Course
}

// Descriptor is the outcome of resolving an enrollment link.
type Descriptor struct {
	CourseID        string
	CohortID        string
	AlreadyEnrolled bool
}

// ConfirmURL is where the person confirms (or is told about) the enrollment.
func (d Descriptor) ConfirmURL() string {
	q := make(url.Values)
	q.Set("courseId", d.CourseID)
	q.Set("cohortId", d.CohortID)
	q.Set("hasEnrollment", strconv.FormatBool(d.AlreadyEnrolled))
	return "/start/confirm?" + q.Encode()
}

// DoneURL is where the person lands after committing the enrollment.
func (d Descriptor) DoneURL() string {
	q := make(url.Values)
	q.Set("courseId", d.CourseID)
	q.Set("cohortId", d.CohortID)
	return "/start/done?" + q.Encode()
}

type QueryFilter struct {
	UserID string
	Status Status // "": any
}
