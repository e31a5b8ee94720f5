package echoweb

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/course"
	"github.com/trezcool/campus/core/enrollment"
)

type (
	confirmPage struct {
		Course          course.Course
		Cohort          course.Cohort
		AlreadyEnrolled bool
		Error           string
	}

	donePage struct {
		Course course.Course
		Cohort course.Cohort
	}
)

func registerStartPages(s *Server) {
	s.app.GET("/start", s.start)
	s.app.GET("/start/confirm", s.confirmPage)
	s.app.POST("/start/confirm", s.confirm)
	s.app.GET("/start/done", s.done)
}

func (s *Server) denied(ctx echo.Context, code int, page string, denial *enrollment.Denial) error {
	accessDenials.WithLabelValues(page).Inc()
	return s.render(ctx, code, "denial", denial)
}

// start resolves an enrollment link (?course=<slug>&cohort=<id or slug>) and moves on to the confirmation.
func (s *Server) start(ctx echo.Context) error {
	courseSlug, cohortRef := ctx.QueryParam("course"), ctx.QueryParam("cohort")
	if courseSlug == "" || cohortRef == "" {
		return s.denied(ctx, http.StatusBadRequest, "start", enrollment.InvalidLinkDenial())
	}
	userID := contextUserID(ctx)
	if userID == "" {
		return ctx.Redirect(http.StatusFound, loginURL(requestPath(ctx)))
	}
	if _, err := s.currentViewer(ctx); err != nil {
		return err
	}

	desc, err := s.deps.Resolver.Resolve(ctx.Request().Context(), userID, courseSlug, course.ParseCohortRef(cohortRef))
	switch errors.Cause(err) {
	case nil:
	case course.ErrCourseNotFound:
		return s.denied(ctx, http.StatusNotFound, "start", enrollment.CourseMissingDenial())
	case course.ErrCohortNotFound:
		return s.denied(ctx, http.StatusNotFound, "start", enrollment.CohortMissingDenial())
	default:
		return errors.Wrap(err, "resolving enrollment link")
	}
	return ctx.Redirect(http.StatusFound, desc.ConfirmURL())
}

// loadCourseAndCohort reads both concurrently. Either missing is core.NotFoundError.
func (s *Server) loadCourseAndCohort(ctx echo.Context, courseID, cohortID string) (course.Course, course.Cohort, error) {
	var crs course.Course
	var cht course.Cohort
	g, gctx := errgroup.WithContext(ctx.Request().Context())
	g.Go(func() (err error) {
		crs, err = s.deps.Courses.GetCourse(gctx, courseID)
		return errors.Wrap(err, "getting course")
	})
	g.Go(func() (err error) {
		cht, err = s.deps.Courses.GetCohort(gctx, courseID, cohortID)
		return errors.Wrap(err, "getting cohort")
	})
	err := g.Wait()
	return crs, cht, err
}

func (s *Server) confirmPage(ctx echo.Context) error {
	courseID, cohortID := ctx.QueryParam("courseId"), ctx.QueryParam("cohortId")
	if courseID == "" || cohortID == "" {
		return s.denied(ctx, http.StatusBadRequest, "confirm", enrollment.InvalidAccessDenial())
	}
	if _, err := s.currentViewer(ctx); err != nil {
		return err
	}

	crs, cht, err := s.loadCourseAndCohort(ctx, courseID, cohortID)
	if err != nil {
		if core.IsNotFound(err) {
			return s.denied(ctx, http.StatusNotFound, "confirm", enrollment.DetailsMissingDenial())
		}
		return err
	}
	return s.render(ctx, http.StatusOK, "confirm", confirmPage{
		Course:          crs,
		Cohort:          cht,
		AlreadyEnrolled: ctx.QueryParam("hasEnrollment") == "true",
	})
}

// confirm commits the enrollment of the signed-in person.
func (s *Server) confirm(ctx echo.Context) error {
	courseID, cohortID := ctx.FormValue("courseId"), ctx.FormValue("cohortId")
	if courseID == "" || cohortID == "" {
		return s.denied(ctx, http.StatusBadRequest, "confirm", enrollment.InvalidAccessDenial())
	}
	if _, err := s.currentViewer(ctx); err != nil {
		return err
	}

	_, err := s.deps.Committer.Commit(ctx.Request().Context(), contextUserID(ctx), courseID, cohortID)
	switch {
	case err == nil:
	case core.IsNotFound(err):
		enrollmentCommits.WithLabelValues(outcomeDenied).Inc()
		return s.denied(ctx, http.StatusNotFound, "confirm", enrollment.DetailsMissingDenial())
	case core.IsRemote(err):
		enrollmentCommits.WithLabelValues(outcomeFailure).Inc()
		s.deps.Logger.Error(err.Error(), err, contextUser(ctx))

		crs, cht, lErr := s.loadCourseAndCohort(ctx, courseID, cohortID)
		if lErr != nil {
			return err
		}
		return s.render(ctx, http.StatusServiceUnavailable, "confirm", confirmPage{
			Course: crs,
			Cohort: cht,
			Error:  errors.Cause(err).(*core.RemoteError).Message,
		})
	default:
		enrollmentCommits.WithLabelValues(outcomeFailure).Inc()
		return errors.Wrap(err, "committing enrollment")
	}

	enrollmentCommits.WithLabelValues(outcomeSuccess).Inc()
	desc := enrollment.Descriptor{CourseID: courseID, CohortID: cohortID}
	return ctx.Redirect(http.StatusSeeOther, desc.DoneURL())
}

func (s *Server) done(ctx echo.Context) error {
	courseID, cohortID := ctx.QueryParam("courseId"), ctx.QueryParam("cohortId")
	if courseID == "" || cohortID == "" {
		return s.denied(ctx, http.StatusBadRequest, "done", enrollment.InvalidAccessDenial())
	}
	if _, err := s.currentViewer(ctx); err != nil {
		return err
	}

	detail, err := s.deps.EnrollmentSvc.GetDetail(ctx.Request().Context(), contextUserID(ctx), cohortID)
	if err != nil {
		if core.IsNotFound(err) {
			return s.denied(ctx, http.StatusNotFound, "done", enrollment.EnrollmentMissingDenial())
		}
		return errors.Wrap(err, "getting enrollment")
	}
	return s.render(ctx, http.StatusOK, "done", donePage{Course: detail.Course, Cohort: detail.Cohort})
}
