package progress_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/course"
	"github.com/trezcool/campus/core/progress"
	inmemdb "github.com/trezcool/campus/storage/database/inmem"
	"github.com/trezcool/campus/testutil"
)

func TestAggregator_ForCohort(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.NewDB()
	repo := inmemdb.NewProgressRepository(db)
	agg := progress.NewAggregator(course.NewService(inmemdb.NewCourseRepository(db)), repo, &testutil.Logger{})
	svc := progress.NewService(repo)
	cat := testutil.CreateCatalog(db, "go-101")
	userID := "5e0d5f36-7c1e-4b8c-a7c1-9a0f6f0c0d01"

	// completing the draft never counts
	_, err := svc.MarkComplete(ctx, userID, cat.Draft.ID)
	require.NoError(t, err)

	s, err := agg.ForCohort(ctx, userID, cat.Cohort.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 0, s.Completed)
	assert.Equal(t, 0, s.Percent)
	assert.Equal(t, cat.Lessons[0].ID, s.NextLessonID)

	_, err = svc.MarkComplete(ctx, userID, cat.Lessons[0].ID)
	require.NoError(t, err)
	s, err = agg.ForCohort(ctx, userID, cat.Cohort.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Completed)
	assert.Equal(t, 33, s.Percent)
	assert.Equal(t, cat.Lessons[1].ID, s.NextLessonID)
	assert.True(t, s.IsCompleted(cat.Lessons[0].ID))

	// out of order completion: next is the first uncompleted lesson
	_, err = svc.MarkComplete(ctx, userID, cat.Lessons[2].ID)
	require.NoError(t, err)
	s, err = agg.ForCohort(ctx, userID, cat.Cohort.ID)
	require.NoError(t, err)
	assert.Equal(t, 67, s.Percent)
	assert.Equal(t, cat.Lessons[1].ID, s.NextLessonID)

	_, err = svc.MarkComplete(ctx, userID, cat.Lessons[1].ID)
	require.NoError(t, err)
	s, err = agg.ForCohort(ctx, userID, cat.Cohort.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, s.Percent)
	assert.False(t, s.HasNext())
}

func TestAggregator_ForCohorts(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.NewDB()
	logger := &testutil.Logger{}
	agg := progress.NewAggregator(course.NewService(inmemdb.NewCourseRepository(db)), inmemdb.NewProgressRepository(db), logger)
	first := testutil.CreateCatalog(db, "go-101")
	second := testutil.CreateCatalog(db, "rust-101")
	empty := db.InsertCohort(course.Cohort{CourseID: second.Course.ID, Title: "Empty", Slug: "empty", IsActive: true})

	summaries := agg.ForCohorts(ctx, "u1", []string{second.Cohort.ID, empty.ID, first.Cohort.ID})
	require.Len(t, summaries, 3)
	assert.Equal(t, second.Cohort.ID, summaries[0].CohortID)
	assert.Equal(t, empty.ID, summaries[1].CohortID)
	assert.Equal(t, 0, summaries[1].Total)
	assert.Equal(t, 0, summaries[1].Percent)
	assert.Equal(t, first.Cohort.ID, summaries[2].CohortID)
	assert.Equal(t, 3, summaries[2].Total)
	assert.Equal(t, 0, logger.Count())

	t.Run("failures degrade to empty summaries", func(t *testing.T) {
		db.FailOn("QueryCompletedLessonIDs", errors.New("timeout"))
		defer db.FailOn("QueryCompletedLessonIDs", nil)

		summaries := agg.ForCohorts(ctx, "u1", []string{first.Cohort.ID, second.Cohort.ID})
		require.Len(t, summaries, 2)
		for _, s := range summaries {
			assert.Equal(t, 0, s.Total)
			assert.False(t, s.HasNext())
		}
		assert.Equal(t, 2, logger.Count())
	})
}

func TestService_MarkComplete(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.NewDB()
	svc := progress.NewService(inmemdb.NewProgressRepository(db))

	first := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	progress.NowFunc = func() time.Time { return first }
	defer func() { progress.NowFunc = time.Now }()

	p1, err := svc.MarkComplete(ctx, "u1", "l1")
	require.NoError(t, err)
	progress.NowFunc = func() time.Time { return first.Add(time.Hour) }
	p2, err := svc.MarkComplete(ctx, "u1", "l1")
	require.NoError(t, err)

	assert.Equal(t, p1.ID, p2.ID)
	assert.True(t, p2.Completed)
	assert.Equal(t, first.Add(time.Hour), p2.CompletedAt)
	assert.Equal(t, 1, db.CountProgress("u1", "l1"))

	got, err := svc.Get(ctx, "u1", "l1")
	require.NoError(t, err)
	assert.True(t, got.Completed)

	none, err := svc.Get(ctx, "u1", "l2")
	require.NoError(t, err)
	assert.False(t, none.Completed)

	t.Run("write failure is retryable", func(t *testing.T) {
		db.FailOn("UpsertProgress", errors.New("connection reset"))
		defer db.FailOn("UpsertProgress", nil)

		_, err := svc.MarkComplete(ctx, "u1", "l3")
		assert.True(t, core.IsRemote(err))
		assert.Equal(t, 0, db.CountProgress("u1", "l3"))
	})
}
