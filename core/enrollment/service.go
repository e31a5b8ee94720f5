package enrollment

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/course"
)

var (
	ErrNotFound = core.NewNotFoundError("enrollment")

	// MsgCommitFailed is shown when an enrollment could not be saved; the person may retry.
	MsgCommitFailed = "An error occurred while enrolling. Please try again in a moment."

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		// GetEnrollment returns the enrollment of (userID, cohortID) whatever its status.
		GetEnrollment(ctx context.Context, userID, cohortID string) (Enrollment, error)
		// UpsertEnrollment inserts or, on a (user, cohort) conflict, updates status & updated_at.
		UpsertEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		// QueryDetails returns matching enrollments with cohort and course, newest first.
		QueryDetails(ctx context.Context, filter QueryFilter) ([]Detail, error)
		GetDetail(ctx context.Context, userID, cohortID string) (Detail, error)
	}

	// Resolver turns an enrollment link into canonical IDs. It never writes.
	Resolver struct {
		courses *course.Service
		repo    Repository
	}

	// Committer records enrollments.
	Committer struct {
		courses *course.Service
		repo    Repository
	}

	// Guard allows access to a cohort's content only to its active members.
	Guard struct {
		repo Repository
	}

	Service struct {
		repo Repository
	}
)

func NewResolver(courses *course.Service, repo Repository) *Resolver {
	return &Resolver{courses: courses, repo: repo}
}

// Resolve finds the published course by slug and its active cohort by ref,
// then reports whether userID already holds an enrollment (of any status) in it.
func (r *Resolver) Resolve(ctx context.Context, userID, courseSlug string, ref course.CohortRef) (Descriptor, error) {
	crs, err := r.courses.GetPublishedCourse(ctx, courseSlug)
	if err != nil {
		return Descriptor{}, errors.Wrap(err, "getting course")
	}
	cht, err := r.courses.GetActiveCohort(ctx, crs.ID, ref)
	if err != nil {
		return Descriptor{}, errors.Wrap(err, "getting cohort")
	}

	desc := Descriptor{CourseID: crs.ID, CohortID: cht.ID}
	switch _, err = r.repo.GetEnrollment(ctx, userID, cht.ID); errors.Cause(err) {
	case nil:
		desc.AlreadyEnrolled = true
	case ErrNotFound:
	default:
		return Descriptor{}, errors.Wrap(err, "checking enrollment")
	}
	return desc, nil
}

func NewCommitter(courses *course.Service, repo Repository) *Committer {
	return &Committer{courses: courses, repo: repo}
}

// Commit makes (userID, cohortID) an active enrollment; calling it twice is harmless
// and paused or ended enrollments are reactivated. The cohort must belong to courseID.
// Write failures come back as a *core.RemoteError.
func (c *Committer) Commit(ctx context.Context, userID, courseID, cohortID string) (Enrollment, error) {
	if _, err := c.courses.GetCourse(ctx, courseID); err != nil {
		return Enrollment{}, errors.Wrap(err, "getting course")
	}
	if _, err := c.courses.GetCohort(ctx, courseID, cohortID); err != nil {
		return Enrollment{}, errors.Wrap(err, "getting cohort")
	}

	now := NowFunc().UTC()
	enr, err := c.repo.UpsertEnrollment(ctx, Enrollment{
		UserID:    userID,
		CohortID:  cohortID,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Enrollment{}, core.NewRemoteError(errors.Wrap(err, "upserting enrollment"), MsgCommitFailed)
	}
	return enr, nil
}

func NewGuard(repo Repository) *Guard {
	return &Guard{repo: repo}
}

// Check returns a nil Denial when userID has an active enrollment in cohortID.
// Paused and ended enrollments are denied like missing ones. Errors mean the check itself failed.
func (g *Guard) Check(ctx context.Context, userID, cohortID string, subj Subject) (*Denial, error) {
	enr, err := g.repo.GetEnrollment(ctx, userID, cohortID)
	switch errors.Cause(err) {
	case nil:
	case ErrNotFound:
		return NotEnrolledDenial(subj), nil
	default:
		return nil, errors.Wrap(err, "checking enrollment")
	}
	if !enr.IsActive() {
		return NotEnrolledDenial(subj), nil
	}
	return nil, nil
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// QueryActive returns the active enrollments of userID, newest first.
func (svc *Service) QueryActive(ctx context.Context, userID string) ([]Detail, error) {
	return svc.repo.QueryDetails(ctx, QueryFilter{UserID: userID, Status: StatusActive})
}

func (svc *Service) GetDetail(ctx context.Context, userID, cohortID string) (Detail, error) {
	if !course.IsUUID(cohortID) {
		return Detail{}, ErrNotFound
	}
	return svc.repo.GetDetail(ctx, userID, cohortID)
}

// SetStatus creates or updates the enrollment of (userID, cohortID) with status.
func (svc *Service) SetStatus(ctx context.Context, userID, cohortID string, status Status) (Enrollment, error) {
	if !status.IsValid() {
		return Enrollment{}, core.NewValidationError(errors.Errorf("invalid status %q", status),
			core.FieldError{Field: "status", Error: "must be one of active, paused, ended"})
	}
	now := NowFunc().UTC()
	return svc.repo.UpsertEnrollment(ctx, Enrollment{
		UserID:    userID,
		CohortID:  cohortID,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
}
