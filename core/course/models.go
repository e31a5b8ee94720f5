package course

import (
	"time"
)

// Resource kinds attached to a Lesson.
const (
	ResourceLink = "link"
	ResourcePDF  = "pdf"
	ResourceFile = "file"
)

type Course struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description"`
	ThumbnailURL string    `json:"thumbnail_url"`
	IsPublished  bool      `json:"is_published"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Cohort is one run of a Course; enrollments and lessons belong to a Cohort.
type Cohort struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Resource struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

type Lesson struct {
	ID          string     `json:"id"`
	CohortID    string     `json:"cohort_id"`
	Title       string     `json:"title"`
	SortOrder   int        `json:"sort_order"`
	VimeoURL    string     `json:"vimeo_url"`
	Resources   []Resource `json:"resources"`
	Description string     `json:"description"`
	IsPublished bool       `json:"is_published"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// LessonDetail is a Lesson with the Cohort and Course it belongs to.
type LessonDetail struct {
	Lesson
	Cohort Cohort
	Course Course
}

type Announcement struct {
	ID        string    `json:"id"`
	CohortID  string    `json:"cohort_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	IsPinned  bool      `json:"is_pinned"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AnnouncementDetail is an Announcement with the titles of its Cohort and Course.
type AnnouncementDetail struct {
	Announcement
	CohortTitle string
	CourseID    string
	CourseTitle string
}

type (
	CourseFilter struct {
		ID            string
		Slug          string
		PublishedOnly bool
	}

	// CohortFilter matches on ID or Slug, always scoped to CourseID when set.
	CohortFilter struct {
		ID         string
		Slug       string
		CourseID   string
		ActiveOnly bool
	}

	AnnouncementFilter struct {
		CohortIDs []string
		Limit     int // 0: no limit
	}
)
