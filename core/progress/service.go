package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/course"
)

var (
	ErrNotFound = core.NewNotFoundError("lesson progress")

	// MsgCompleteFailed is shown when a completion could not be saved.
	MsgCompleteFailed = "Could not save your progress. Please try again."

	NowFunc = time.Now // mockable

	maxConcurrentCohorts = 4
)

type (
	Repository interface {
		GetProgress(ctx context.Context, userID, lessonID string) (LessonProgress, error)
		// QueryCompletedLessonIDs returns which of lessonIDs userID has completed.
		QueryCompletedLessonIDs(ctx context.Context, userID string, lessonIDs []string) ([]string, error)
		// UpsertProgress inserts or, on a (user, lesson) conflict, updates completion fields.
		UpsertProgress(ctx context.Context, p LessonProgress) (LessonProgress, error)
	}

	// Aggregator computes progress summaries.
	Aggregator struct {
		courses *course.Service
		repo    Repository
		logger  core.Logger
	}

	Service struct {
		repo Repository
	}
)

func NewAggregator(courses *course.Service, repo Repository, logger core.Logger) *Aggregator {
	return &Aggregator{courses: courses, repo: repo, logger: logger}
}

// ForCohort summarizes the progress of userID in one cohort.
func (a *Aggregator) ForCohort(ctx context.Context, userID, cohortID string) (Summary, error) {
	lessons, err := a.courses.QueryPublishedLessons(ctx, cohortID)
	if err != nil {
		return Summary{}, errors.Wrap(err, "querying lessons")
	}
	if len(lessons) == 0 {
		return Compute(cohortID, lessons, nil), nil
	}

	ids := make([]string, 0, len(lessons))
	for _, l := range lessons {
		ids = append(ids, l.ID)
	}
	doneIDs, err := a.repo.QueryCompletedLessonIDs(ctx, userID, ids)
	if err != nil {
		return Summary{}, errors.Wrap(err, "querying completed lessons")
	}
	done := make(map[string]bool, len(doneIDs))
	for _, id := range doneIDs {
		done[id] = true
	}
	return Compute(cohortID, lessons, done), nil
}

// ForCohorts summarizes every cohort concurrently; results keep the order of cohortIDs.
// A cohort whose reads fail gets an empty summary and the failure is logged.
func (a *Aggregator) ForCohorts(ctx context.Context, userID string, cohortIDs []string) []Summary {
	summaries := make([]Summary, len(cohortIDs))

	var g errgroup.Group
	g.SetLimit(maxConcurrentCohorts)
	for i, id := range cohortIDs {
		i, id := i, id
		g.Go(func() error {
			s, err := a.ForCohort(ctx, userID, id)
			if err != nil {
				a.logger.Error(fmt.Sprintf("summarizing cohort %s: %v", id, err), err)
				s = Compute(id, nil, nil)
			}
			summaries[i] = s
			return nil
		})
	}
	_ = g.Wait()
	return summaries
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns the progress of userID on lessonID; a zero, not completed value when there is none.
func (svc *Service) Get(ctx context.Context, userID, lessonID string) (LessonProgress, error) {
	p, err := svc.repo.GetProgress(ctx, userID, lessonID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return LessonProgress{UserID: userID, LessonID: lessonID}, nil
		}
		return LessonProgress{}, err
	}
	return p, nil
}

// MarkComplete records lessonID as completed by userID. Completing twice keeps a single row.
func (svc *Service) MarkComplete(ctx context.Context, userID, lessonID string) (LessonProgress, error) {
	now := NowFunc().UTC()
	p, err := svc.repo.UpsertProgress(ctx, LessonProgress{
		UserID:      userID,
		LessonID:    lessonID,
		Completed:   true,
		CompletedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return LessonProgress{}, core.NewRemoteError(errors.Wrap(err, "upserting progress"), MsgCompleteFailed)
	}
	return p, nil
}
