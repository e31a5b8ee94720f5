package enrollment_test

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/course"
	"github.com/trezcool/campus/core/enrollment"
	inmemdb "github.com/trezcool/campus/storage/database/inmem"
	"github.com/trezcool/campus/testutil"
)

type fixture struct {
	db        *inmemdb.DB
	repo      enrollment.Repository
	resolver  *enrollment.Resolver
	committer *enrollment.Committer
	guard     *enrollment.Guard
	svc       *enrollment.Service
	catalog   testutil.Catalog
	userID    string
}

func setup(t *testing.T) fixture {
	db := inmemdb.NewDB()
	courses := course.NewService(inmemdb.NewCourseRepository(db))
	repo := inmemdb.NewEnrollmentRepository(db)
	usr := testutil.CreateUser(t, inmemdb.NewUserRepository(db), "Ada", "ada@test.cd", "s3cret-pwd", "", true)
	return fixture{
		db:        db,
		repo:      repo,
		resolver:  enrollment.NewResolver(courses, repo),
		committer: enrollment.NewCommitter(courses, repo),
		guard:     enrollment.NewGuard(repo),
		svc:       enrollment.NewService(repo),
		catalog:   testutil.CreateCatalog(db, "go-101"),
		userID:    usr.ID,
	}
}

func TestResolver_Resolve(t *testing.T) {
	f := setup(t)
	draft := f.db.InsertCourse(course.Course{Title: "Draft", Slug: "draft"})
	draftCohort := f.db.InsertCohort(course.Cohort{CourseID: draft.ID, Title: "D", Slug: "d", IsActive: true})
	other := testutil.CreateCatalog(f.db, "rust-101")

	// a cohort whose slug looks like the id of another cohort
	uuidSlugged := f.db.InsertCohort(course.Cohort{
		CourseID: f.catalog.Course.ID, Title: "Odd", Slug: other.Cohort.ID, IsActive: true,
	})

	tests := []struct {
		name       string
		courseSlug string
		ref        string
		wantErr    error
		wantCohort string
	}{
		{name: "by slug", courseSlug: "go-101", ref: "cohort-1", wantCohort: f.catalog.Cohort.ID},
		{name: "by id", courseSlug: "go-101", ref: f.catalog.Cohort.ID, wantCohort: f.catalog.Cohort.ID},
		{name: "by upper-case id", courseSlug: "go-101", ref: strings.ToUpper(f.catalog.Cohort.ID), wantCohort: f.catalog.Cohort.ID},
		{name: "unknown course", courseSlug: "nope", ref: "cohort-1", wantErr: course.ErrCourseNotFound},
		{name: "unpublished course", courseSlug: "draft", ref: draftCohort.Slug, wantErr: course.ErrCourseNotFound},
		{name: "unknown cohort", courseSlug: "go-101", ref: "cohort-9", wantErr: course.ErrCohortNotFound},
		{name: "inactive cohort", courseSlug: "go-101", ref: "cohort-0", wantErr: course.ErrCohortNotFound},
		{name: "cohort of another course by id", courseSlug: "go-101", ref: other.Cohort.ID, wantErr: course.ErrCohortNotFound},
		{name: "uuid ref never falls back to slug", courseSlug: "go-101", ref: uuidSlugged.Slug, wantErr: course.ErrCohortNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc, err := f.resolver.Resolve(context.Background(), f.userID, tt.courseSlug, course.ParseCohortRef(tt.ref))
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, f.catalog.Course.ID, desc.CourseID)
			assert.Equal(t, tt.wantCohort, desc.CohortID)
			assert.False(t, desc.AlreadyEnrolled)
		})
	}
}

func TestResolver_AlreadyEnrolled(t *testing.T) {
	for _, status := range []enrollment.Status{enrollment.StatusActive, enrollment.StatusPaused, enrollment.StatusEnded} {
		t.Run(string(status), func(t *testing.T) {
			f := setup(t)
			testutil.Enroll(t, f.repo, f.userID, f.catalog.Cohort.ID, status)

			desc, err := f.resolver.Resolve(context.Background(), f.userID, "go-101", course.ParseCohortRef("cohort-1"))
			require.NoError(t, err)
			assert.True(t, desc.AlreadyEnrolled)
			assert.Equal(t,
				"/start/confirm?cohortId="+f.catalog.Cohort.ID+"&courseId="+f.catalog.Course.ID+"&hasEnrollment=true",
				desc.ConfirmURL())
		})
	}
}

func TestResolver_NeverWrites(t *testing.T) {
	f := setup(t)
	_, err := f.resolver.Resolve(context.Background(), f.userID, "go-101", course.ParseCohortRef("cohort-1"))
	require.NoError(t, err)
	assert.Equal(t, 0, f.db.CountEnrollments(f.userID))
}

func TestCommitter_Commit(t *testing.T) {
	ctx := context.Background()

	t.Run("idempotent", func(t *testing.T) {
		f := setup(t)
		first, err := f.committer.Commit(ctx, f.userID, f.catalog.Course.ID, f.catalog.Cohort.ID)
		require.NoError(t, err)
		second, err := f.committer.Commit(ctx, f.userID, f.catalog.Course.ID, f.catalog.Cohort.ID)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, enrollment.StatusActive, second.Status)
		assert.Equal(t, 1, f.db.CountEnrollments(f.userID))
	})

	for _, status := range []enrollment.Status{enrollment.StatusPaused, enrollment.StatusEnded} {
		t.Run("reactivates "+string(status), func(t *testing.T) {
			f := setup(t)
			orig := testutil.Enroll(t, f.repo, f.userID, f.catalog.Cohort.ID, status, time.Now().Add(-time.Hour))

			enr, err := f.committer.Commit(ctx, f.userID, f.catalog.Course.ID, f.catalog.Cohort.ID)
			require.NoError(t, err)
			assert.Equal(t, orig.ID, enr.ID)
			assert.Equal(t, enrollment.StatusActive, enr.Status)
			assert.Equal(t, 1, f.db.CountEnrollments(f.userID))
		})
	}

	t.Run("cohort of another course", func(t *testing.T) {
		f := setup(t)
		other := testutil.CreateCatalog(f.db, "rust-101")
		_, err := f.committer.Commit(ctx, f.userID, f.catalog.Course.ID, other.Cohort.ID)
		assert.Equal(t, course.ErrCohortNotFound, errors.Cause(err))
		assert.Equal(t, 0, f.db.CountEnrollments(f.userID))
	})

	t.Run("write failure is retryable", func(t *testing.T) {
		f := setup(t)
		f.db.FailOn("UpsertEnrollment", errors.New("connection reset"))
		_, err := f.committer.Commit(ctx, f.userID, f.catalog.Course.ID, f.catalog.Cohort.ID)
		require.Error(t, err)
		assert.True(t, core.IsRemote(err))
		assert.Equal(t, enrollment.MsgCommitFailed, errors.Cause(err).(*core.RemoteError).Message)

		f.db.FailOn("UpsertEnrollment", nil)
		_, err = f.committer.Commit(ctx, f.userID, f.catalog.Course.ID, f.catalog.Cohort.ID)
		assert.NoError(t, err)
	})
}

func TestGuard_Check(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name       string
		status     enrollment.Status // "": not enrolled
		wantDenied bool
	}{
		{name: "not enrolled", wantDenied: true},
		{name: "active", status: enrollment.StatusActive},
		{name: "paused", status: enrollment.StatusPaused, wantDenied: true},
		{name: "ended", status: enrollment.StatusEnded, wantDenied: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			if tt.status != "" {
				testutil.Enroll(t, f.repo, f.userID, f.catalog.Cohort.ID, tt.status)
			}
			denial, err := f.guard.Check(ctx, f.userID, f.catalog.Cohort.ID, enrollment.SubjectLesson)
			require.NoError(t, err)
			if !tt.wantDenied {
				assert.Nil(t, denial)
				return
			}
			require.NotNil(t, denial)
			assert.Equal(t, "/dashboard", denial.PrimaryAction.Href)
			assert.Equal(t, enrollment.NotEnrolledDenial(enrollment.SubjectLesson), denial)
		})
	}

	t.Run("read failure is an error", func(t *testing.T) {
		f := setup(t)
		f.db.FailOn("GetEnrollment", errors.New("timeout"))
		denial, err := f.guard.Check(ctx, f.userID, f.catalog.Cohort.ID, enrollment.SubjectCourse)
		assert.Error(t, err)
		assert.Nil(t, denial)
	})
}

func TestService_QueryActive(t *testing.T) {
	f := setup(t)
	second := testutil.CreateCatalog(f.db, "rust-101")
	third := testutil.CreateCatalog(f.db, "zig-101")
	now := time.Now()
	testutil.Enroll(t, f.repo, f.userID, f.catalog.Cohort.ID, enrollment.StatusActive, now.Add(-2*time.Hour))
	testutil.Enroll(t, f.repo, f.userID, second.Cohort.ID, enrollment.StatusActive, now.Add(-time.Hour))
	testutil.Enroll(t, f.repo, f.userID, third.Cohort.ID, enrollment.StatusPaused, now)

	details, err := f.svc.QueryActive(context.Background(), f.userID)
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.Equal(t, second.Cohort.ID, details[0].CohortID)
	assert.Equal(t, "rust-101", details[0].Course.Slug)
	assert.Equal(t, f.catalog.Cohort.ID, details[1].CohortID)
}

func TestService_QueryActive_sameCreationTime(t *testing.T) {
	f := setup(t)
	second := testutil.CreateCatalog(f.db, "rust-101")
	third := testutil.CreateCatalog(f.db, "zig-101")
	now := time.Now()
	var ids []string
	for _, cohortID := range []string{f.catalog.Cohort.ID, second.Cohort.ID, third.Cohort.ID} {
		ids = append(ids, testutil.Enroll(t, f.repo, f.userID, cohortID, enrollment.StatusActive, now).ID)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))

	for i := 0; i < 5; i++ {
		details, err := f.svc.QueryActive(context.Background(), f.userID)
		require.NoError(t, err)
		require.Len(t, details, 3)
		for j, d := range details {
			assert.Equal(t, ids[j], d.ID)
		}
	}
}

func TestService_SetStatus(t *testing.T) {
	f := setup(t)
	_, err := f.svc.SetStatus(context.Background(), f.userID, f.catalog.Cohort.ID, "frozen")
	_, ok := err.(*core.ValidationError)
	assert.True(t, ok)

	enr, err := f.svc.SetStatus(context.Background(), f.userID, f.catalog.Cohort.ID, enrollment.StatusPaused)
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusPaused, enr.Status)
}
