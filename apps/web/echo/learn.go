package echoweb

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/course"
	"github.com/trezcool/campus/core/enrollment"
	"github.com/trezcool/campus/core/progress"
)

const (
	dashboardAnnouncements  = 5
	coursePageAnnouncements = 5
	coursePageLessons       = 5

	msgLessonCompleted = "Lesson completed. Keep it up!"
)

type (
	courseCard struct {
		Course  course.Course
		Cohort  course.Cohort
		Summary progress.Summary
	}

	dashboardPage struct {
		Cards         []courseCard
		Announcements []course.AnnouncementDetail
	}

	coursePage struct {
		Course        course.Course
		Cohort        course.Cohort
		Summary       progress.Summary
		Lessons       []course.Lesson // first lessons only
		Announcements []course.AnnouncementDetail
	}

	lessonPage struct {
		Lesson    course.LessonDetail
		EmbedURL  string
		Completed bool
		Prev      *course.Lesson
		Next      *course.Lesson
		Position  int // 1-based; 0 when unknown
		Count     int
	}

	announcementsPage struct {
		Announcements []course.AnnouncementDetail
	}
)

func registerLearnPages(s *Server) {
	s.app.GET("/dashboard", s.dashboard)

	cg := s.app.Group("/courses/:courseId/cohorts/:cohortId")
	cg.GET("", s.coursePage)
	cg.GET("/curriculum", s.curriculum)

	s.app.GET("/lessons/:lessonId", s.lesson)
	s.app.POST("/lessons/:lessonId/complete", s.completeLesson)

	s.app.GET("/announcements", s.announcements)
	s.app.GET("/announcements/:announcementId", s.announcement)
}

// degrade logs a failed secondary read; its page section renders empty.
func (s *Server) degrade(ctx echo.Context, what string, err error) {
	s.deps.Logger.Error(fmt.Sprintf("%s: %v", what, err), err, contextUser(ctx))
}

// guard renders the denial when the signed-in person may not see cohortID's content.
// denied is true when the response has been written.
func (s *Server) guard(ctx echo.Context, cohortID string, subj enrollment.Subject, page string) (denied bool, err error) {
	denial, err := s.deps.Guard.Check(ctx.Request().Context(), contextUserID(ctx), cohortID, subj)
	if err != nil {
		return false, errors.Wrap(err, "checking access")
	}
	if denial == nil {
		return false, nil
	}
	return true, s.denied(ctx, http.StatusForbidden, page, denial)
}

func (s *Server) dashboard(ctx echo.Context) error {
	if _, err := s.currentViewer(ctx); err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	userID := contextUserID(ctx)

	details, err := s.deps.EnrollmentSvc.QueryActive(rctx, userID)
	if err != nil {
		s.degrade(ctx, "querying enrollments", err)
		details = nil
	}
	cohortIDs := make([]string, 0, len(details))
	for _, d := range details {
		cohortIDs = append(cohortIDs, d.CohortID)
	}

	var summaries []progress.Summary
	var anns []course.AnnouncementDetail
	var g errgroup.Group
	g.Go(func() error {
		summaries = s.deps.Aggregator.ForCohorts(rctx, userID, cohortIDs)
		return nil
	})
	g.Go(func() error {
		var err error
		if anns, err = s.deps.Courses.QueryAnnouncements(rctx, dashboardAnnouncements, cohortIDs...); err != nil {
			s.degrade(ctx, "querying announcements", err)
			anns = nil
		}
		return nil
	})
	_ = g.Wait()

	data := dashboardPage{Cards: make([]courseCard, 0, len(details)), Announcements: anns}
	for i, d := range details {
		data.Cards = append(data.Cards, courseCard{Course: d.Course, Cohort: d.Cohort, Summary: summaries[i]})
	}
	return s.render(ctx, http.StatusOK, "dashboard", data)
}

// loadCohortContent checks access to the cohort, then loads the course, the cohort and the progress summary.
// The response is written when denied is true.
func (s *Server) loadCohortContent(ctx echo.Context, page string, withAnnouncements bool) (data coursePage, denied bool, err error) {
	courseID, cohortID := ctx.Param("courseId"), ctx.Param("cohortId")
	if !course.IsUUID(cohortID) {
		return data, false, errHttpNotFound
	}
	if _, err = s.currentViewer(ctx); err != nil {
		return data, false, err
	}
	if denied, err = s.guard(ctx, cohortID, enrollment.SubjectCourse, page); denied || err != nil {
		return data, denied, err
	}

	rctx := ctx.Request().Context()
	g, gctx := errgroup.WithContext(rctx)
	g.Go(func() (err error) {
		data.Course, data.Cohort, err = s.loadCourseAndCohort(ctx, courseID, cohortID)
		return err
	})
	g.Go(func() error {
		sum, err := s.deps.Aggregator.ForCohort(gctx, contextUserID(ctx), cohortID)
		if err != nil {
			if gctx.Err() == nil {
				s.degrade(ctx, "summarizing progress", err)
			}
			sum = progress.Compute(cohortID, nil, nil)
		}
		data.Summary = sum
		return nil
	})
	if withAnnouncements {
		g.Go(func() error {
			anns, err := s.deps.Courses.QueryAnnouncements(gctx, coursePageAnnouncements, cohortID)
			if err != nil {
				s.degrade(ctx, "querying announcements", err)
			}
			data.Announcements = anns
			return nil
		})
	}
	err = g.Wait()
	return data, false, err
}

func (s *Server) coursePage(ctx echo.Context) error {
	data, denied, err := s.loadCohortContent(ctx, "course", true)
	if denied || err != nil {
		return err
	}
	data.Lessons = data.Summary.Lessons
	if len(data.Lessons) > coursePageLessons {
		data.Lessons = data.Lessons[:coursePageLessons]
	}
	return s.render(ctx, http.StatusOK, "course", data)
}

func (s *Server) curriculum(ctx echo.Context) error {
	data, denied, err := s.loadCohortContent(ctx, "curriculum", false)
	if denied || err != nil {
		return err
	}
	return s.render(ctx, http.StatusOK, "curriculum", data)
}

// loadLesson finds a published lesson the signed-in person may see.
func (s *Server) loadLesson(ctx echo.Context) (lesson course.LessonDetail, denied bool, err error) {
	if _, err = s.currentViewer(ctx); err != nil {
		return lesson, false, err
	}
	lesson, err = s.deps.Courses.GetLesson(ctx.Request().Context(), ctx.Param("lessonId"))
	if err != nil {
		return lesson, false, errors.Wrap(err, "getting lesson")
	}
	denied, err = s.guard(ctx, lesson.CohortID, enrollment.SubjectLesson, "lesson")
	return lesson, denied, err
}

func (s *Server) lesson(ctx echo.Context) error {
	lesson, denied, err := s.loadLesson(ctx)
	if denied || err != nil {
		return err
	}

	data := lessonPage{Lesson: lesson, EmbedURL: course.VimeoEmbedURL(lesson.VimeoURL)}
	rctx := ctx.Request().Context()
	var g errgroup.Group
	g.Go(func() error {
		p, err := s.deps.ProgressSvc.Get(rctx, contextUserID(ctx), lesson.ID)
		if err != nil {
			s.degrade(ctx, "getting lesson progress", err)
		}
		data.Completed = p.Completed
		return nil
	})
	g.Go(func() error {
		lessons, err := s.deps.Courses.QueryPublishedLessons(rctx, lesson.CohortID)
		if err != nil {
			s.degrade(ctx, "querying lessons", err)
			return nil
		}
		prev, next, ok := course.Neighbours(lessons, lesson.ID)
		if !ok {
			return nil
		}
		data.Prev, data.Next, data.Count = prev, next, len(lessons)
		for i := range lessons {
			if lessons[i].ID == lesson.ID {
				data.Position = i + 1
			}
		}
		return nil
	})
	_ = g.Wait()

	return s.render(ctx, http.StatusOK, "lesson", data)
}

// completeLesson marks the lesson completed; the same access rules as viewing it apply.
func (s *Server) completeLesson(ctx echo.Context) error {
	lesson, denied, err := s.loadLesson(ctx)
	if denied {
		lessonCompletions.WithLabelValues(outcomeDenied).Inc()
	}
	if denied || err != nil {
		return err
	}

	back := "/lessons/" + lesson.ID
	if _, err = s.deps.ProgressSvc.MarkComplete(ctx.Request().Context(), contextUserID(ctx), lesson.ID); err != nil {
		lessonCompletions.WithLabelValues(outcomeFailure).Inc()
		if core.IsRemote(err) {
			s.degrade(ctx, "completing lesson", err)
			setFlash(ctx, flashError, errors.Cause(err).(*core.RemoteError).Message)
			return ctx.Redirect(http.StatusSeeOther, back)
		}
		return errors.Wrap(err, "completing lesson")
	}
	lessonCompletions.WithLabelValues(outcomeSuccess).Inc()
	setFlash(ctx, flashSuccess, msgLessonCompleted)
	return ctx.Redirect(http.StatusSeeOther, back)
}

func (s *Server) announcements(ctx echo.Context) error {
	if _, err := s.currentViewer(ctx); err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	data := announcementsPage{Announcements: []course.AnnouncementDetail{}}
	details, err := s.deps.EnrollmentSvc.QueryActive(rctx, contextUserID(ctx))
	if err != nil {
		s.degrade(ctx, "querying enrollments", err)
		return s.render(ctx, http.StatusOK, "announcements", data)
	}
	cohortIDs := make([]string, 0, len(details))
	for _, d := range details {
		cohortIDs = append(cohortIDs, d.CohortID)
	}
	anns, err := s.deps.Courses.QueryAnnouncements(rctx, 0, cohortIDs...)
	if err != nil {
		s.degrade(ctx, "querying announcements", err)
	} else {
		data.Announcements = anns
	}
	return s.render(ctx, http.StatusOK, "announcements", data)
}

func (s *Server) announcement(ctx echo.Context) error {
	if _, err := s.currentViewer(ctx); err != nil {
		return err
	}
	ann, err := s.deps.Courses.GetAnnouncement(ctx.Request().Context(), ctx.Param("announcementId"))
	if err != nil {
		return errors.Wrap(err, "getting announcement")
	}
	if denied, err := s.guard(ctx, ann.CohortID, enrollment.SubjectAnnouncement, "announcement"); denied || err != nil {
		return err
	}
	return s.render(ctx, http.StatusOK, "announcement", ann)
}
