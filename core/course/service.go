package course

import (
	"context"
	"regexp"
	"strings"

	"github.com/trezcool/campus/core"
)

var (
	// errors
	ErrCourseNotFound       = core.NewNotFoundError("course")
	ErrCohortNotFound       = core.NewNotFoundError("cohort")
	ErrLessonNotFound       = core.NewNotFoundError("lesson")
	ErrAnnouncementNotFound = core.NewNotFoundError("announcement")

	vimeoRegex = regexp.MustCompile(`vimeo\.com/(?:video/)?(\d+)`)
)

type (
	Repository interface {
		GetCourse(ctx context.Context, filter CourseFilter) (Course, error)
		GetCohort(ctx context.Context, filter CohortFilter) (Cohort, error)
		// GetLesson returns a published Lesson with its Cohort and Course.
		GetLesson(ctx context.Context, id string) (LessonDetail, error)
		// QueryLessons returns the lessons of a cohort by ascending sort order.
		QueryLessons(ctx context.Context, cohortID string, publishedOnly bool) ([]Lesson, error)
		// QueryAnnouncements returns pinned announcements first, then the newest.
		QueryAnnouncements(ctx context.Context, filter AnnouncementFilter) ([]AnnouncementDetail, error)
		GetAnnouncement(ctx context.Context, id string) (AnnouncementDetail, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetPublishedCourse finds a published course by slug.
func (svc *Service) GetPublishedCourse(ctx context.Context, slug string) (Course, error) {
	return svc.repo.GetCourse(ctx, CourseFilter{Slug: core.CleanString(slug), PublishedOnly: true})
}

// GetCourse finds a course by ID, published or not.
func (svc *Service) GetCourse(ctx context.Context, id string) (Course, error) {
	if !IsUUID(id) {
		return Course{}, ErrCourseNotFound
	}
	return svc.repo.GetCourse(ctx, CourseFilter{ID: id})
}

// GetActiveCohort resolves ref inside courseID. IDs are never retried as slugs.
func (svc *Service) GetActiveCohort(ctx context.Context, courseID string, ref CohortRef) (Cohort, error) {
	if ref.IsZero() {
		return Cohort{}, ErrCohortNotFound
	}
	return svc.repo.GetCohort(ctx, ref.Filter(courseID))
}

// GetCohort finds a cohort of courseID, active or not.
func (svc *Service) GetCohort(ctx context.Context, courseID, cohortID string) (Cohort, error) {
	if !IsUUID(cohortID) {
		return Cohort{}, ErrCohortNotFound
	}
	return svc.repo.GetCohort(ctx, CohortFilter{ID: cohortID, CourseID: courseID})
}

func (svc *Service) GetLesson(ctx context.Context, id string) (LessonDetail, error) {
	if !IsUUID(id) {
		return LessonDetail{}, ErrLessonNotFound
	}
	return svc.repo.GetLesson(ctx, id)
}

func (svc *Service) QueryPublishedLessons(ctx context.Context, cohortID string) ([]Lesson, error) {
	return svc.repo.QueryLessons(ctx, cohortID, true)
}

func (svc *Service) QueryAnnouncements(ctx context.Context, limit int, cohortIDs ...string) ([]AnnouncementDetail, error) {
	if len(cohortIDs) == 0 {
		return []AnnouncementDetail{}, nil
	}
	return svc.repo.QueryAnnouncements(ctx, AnnouncementFilter{CohortIDs: cohortIDs, Limit: limit})
}

func (svc *Service) GetAnnouncement(ctx context.Context, id string) (AnnouncementDetail, error) {
	if !IsUUID(id) {
		return AnnouncementDetail{}, ErrAnnouncementNotFound
	}
	return svc.repo.GetAnnouncement(ctx, id)
}

// VimeoEmbedURL returns the player URL for a vimeo page URL, or "" if it is not a vimeo video.
func VimeoEmbedURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	if m := vimeoRegex.FindStringSubmatch(rawURL); m != nil {
		return "https://player.vimeo.com/video/" + m[1]
	}
	if strings.Contains(rawURL, "player.vimeo.com") {
		return rawURL
	}
	return ""
}

// Neighbours returns the lessons around id in an ordered list.
// ok is false when id is not part of lessons.
func Neighbours(lessons []Lesson, id string) (prev, next *Lesson, ok bool) {
	for i := range lessons {
		if lessons[i].ID != id {
			continue
		}
		if i > 0 {
			prev = &lessons[i-1]
		}
		if i < len(lessons)-1 {
			next = &lessons[i+1]
		}
		return prev, next, true
	}
	return nil, nil, false
}
