package echoweb

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core/course"
	"github.com/trezcool/campus/core/enrollment"
	"github.com/trezcool/campus/core/progress"
	"github.com/trezcool/campus/testutil"
)

func TestServer_Dashboard(t *testing.T) {
	f := setup(t)
	other := testutil.CreateCatalog(f.db, "rust-101")
	testutil.Enroll(t, f.enrRepo, f.student.ID, other.Cohort.ID, enrollment.StatusEnded)
	lessons := f.catalog.Lessons

	tests := []httpTest{
		{
			name:     "enrolled",
			path:     "/dashboard",
			as:       &f.student,
			wantCode: http.StatusOK,
			wantBody: []string{
				"Welcome back, Ada",
				f.catalog.Course.Title,
				"0 / 3 lessons · 0%",
				"/lessons/" + lessons[0].ID,
				"Week 2",
				"Today",
			},
		},
		{
			name:     "nothing yet",
			path:     "/dashboard",
			as:       &f.stranger,
			wantCode: http.StatusOK,
			wantBody: []string{"You are not enrolled in any course yet.", "No announcements yet."},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.run(t, tt)
			assert.NotContains(t, rec.Body.String(), other.Course.Title)
		})
	}

	t.Run("announcements fail", func(t *testing.T) {
		f.db.FailOn("QueryAnnouncements", assert.AnError)
		defer f.db.FailOn("QueryAnnouncements", nil)

		before := f.logger.Count()
		f.run(t, httpTest{
			path:     "/dashboard",
			as:       &f.student,
			wantCode: http.StatusOK,
			wantBody: []string{f.catalog.Course.Title, "No announcements yet."},
		})
		assert.Greater(t, f.logger.Count(), before)
	})

	t.Run("enrollments fail", func(t *testing.T) {
		f.db.FailOn("QueryDetails", assert.AnError)
		defer f.db.FailOn("QueryDetails", nil)

		f.run(t, httpTest{
			path:     "/dashboard",
			as:       &f.student,
			wantCode: http.StatusOK,
			wantBody: []string{"You are not enrolled in any course yet."},
		})
	})
}

func TestServer_CoursePages(t *testing.T) {
	f := setup(t)
	crs, cht := f.catalog.Course, f.catalog.Cohort
	base := "/courses/" + crs.ID + "/cohorts/" + cht.ID
	paused := testutil.CreateUser(t, f.usrRepo, "Pam", "pam@test.cd", testPwd, "", true)
	testutil.Enroll(t, f.enrRepo, paused.ID, cht.ID, enrollment.StatusPaused)

	// five more lessons; the course page lists the first five only
	for i := 4; i <= 8; i++ {
		f.db.InsertLesson(course.Lesson{CohortID: cht.ID, Title: "Extra " + string(rune('A'+i)), SortOrder: i * 10, IsPublished: true})
	}

	tests := []httpTest{
		{
			name:     "course home",
			path:     base,
			as:       &f.student,
			wantCode: http.StatusOK,
			wantBody: []string{crs.Title, cht.Title, "Lesson 1", "Extra E", "Welcome", "0 / 8 lessons · 0%"},
		},
		{
			name:     "curriculum",
			path:     base + "/curriculum",
			as:       &f.student,
			wantCode: http.StatusOK,
			wantBody: []string{"Curriculum", "Lesson 3", "Extra I"},
		},
		{
			name:     "not enrolled",
			path:     base,
			as:       &f.stranger,
			wantCode: http.StatusForbidden,
			wantBody: []string{enrollment.NotEnrolledDenial(enrollment.SubjectCourse).Description},
		},
		{
			name:     "paused",
			path:     base + "/curriculum",
			as:       &paused,
			wantCode: http.StatusForbidden,
			wantBody: []string{enrollment.NotEnrolledDenial(enrollment.SubjectCourse).Title},
		},
		{
			name:     "cohort ref is not an id",
			path:     "/courses/" + crs.ID + "/cohorts/cohort-1",
			as:       &f.student,
			wantCode: http.StatusNotFound,
			wantBody: []string{enrollment.PageNotFoundDenial().Title},
		},
		{
			name:     "cohort of another course",
			path:     "/courses/" + uuid.NewString() + "/cohorts/" + cht.ID,
			as:       &f.student,
			wantCode: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.run(t, tt)
			if tt.name == "course home" {
				assert.NotContains(t, rec.Body.String(), "Extra G")
				assert.NotContains(t, rec.Body.String(), f.catalog.Draft.Title)
			}
		})
	}

	t.Run("progress fails", func(t *testing.T) {
		f.db.FailOn("QueryCompletedLessonIDs", assert.AnError)
		defer f.db.FailOn("QueryCompletedLessonIDs", nil)

		f.run(t, httpTest{path: base, as: &f.student, wantCode: http.StatusOK, wantBody: []string{"No lessons published yet."}})
	})

	t.Run("guard fails", func(t *testing.T) {
		f.db.FailOn("GetEnrollment", assert.AnError)
		defer f.db.FailOn("GetEnrollment", nil)

		f.run(t, httpTest{path: base, as: &f.student, wantCode: http.StatusInternalServerError})
	})
}

func TestServer_Lesson(t *testing.T) {
	f := setup(t)
	lessons := f.catalog.Lessons

	tests := []httpTest{
		{
			name:     "middle lesson",
			path:     "/lessons/" + lessons[1].ID,
			as:       &f.student,
			wantCode: http.StatusOK,
			wantBody: []string{
				"Lesson 2 / 3",
				"https://player.vimeo.com/video/100002",
				"Slides",
				"/lessons/" + lessons[0].ID,
				"/lessons/" + lessons[2].ID,
				"Mark lesson as complete",
			},
		},
		{
			name:     "not enrolled",
			path:     "/lessons/" + lessons[0].ID,
			as:       &f.stranger,
			wantCode: http.StatusForbidden,
			wantBody: []string{enrollment.NotEnrolledDenial(enrollment.SubjectLesson).Description},
		},
		{
			name:     "draft",
			path:     "/lessons/" + f.catalog.Draft.ID,
			as:       &f.student,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "unknown",
			path:     "/lessons/" + uuid.NewString(),
			as:       &f.student,
			wantCode: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.run(t, tt)
		})
	}
}

func TestServer_CompleteLesson(t *testing.T) {
	f := setup(t)
	lesson := f.catalog.Lessons[0]
	path := "/lessons/" + lesson.ID + "/complete"

	t.Run("not enrolled", func(t *testing.T) {
		f.run(t, httpTest{
			method:   http.MethodPost,
			path:     path,
			as:       &f.stranger,
			wantCode: http.StatusForbidden,
		})
		assert.Equal(t, 0, f.db.CountProgress(f.stranger.ID, lesson.ID))
	})

	t.Run("store failure", func(t *testing.T) {
		f.db.FailOn("UpsertProgress", assert.AnError)
		defer f.db.FailOn("UpsertProgress", nil)

		rec := f.run(t, httpTest{
			method:       http.MethodPost,
			path:         path,
			as:           &f.student,
			wantCode:     http.StatusSeeOther,
			wantLocation: "/lessons/" + lesson.ID,
		})
		fl := responseFlash(t, rec)
		require.NotNil(t, fl)
		assert.Equal(t, flash{Kind: flashError, Message: progress.MsgCompleteFailed}, *fl)
		assert.Equal(t, 0, f.db.CountProgress(f.student.ID, lesson.ID))
	})

	t.Run("complete twice", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			rec := f.run(t, httpTest{
				method:       http.MethodPost,
				path:         path,
				as:           &f.student,
				wantCode:     http.StatusSeeOther,
				wantLocation: "/lessons/" + lesson.ID,
			})
			fl := responseFlash(t, rec)
			require.NotNil(t, fl)
			assert.Equal(t, flashSuccess, fl.Kind)
		}
		assert.Equal(t, 1, f.db.CountProgress(f.student.ID, lesson.ID))

		f.run(t, httpTest{
			path:     "/lessons/" + lesson.ID,
			as:       &f.student,
			wantCode: http.StatusOK,
			wantBody: []string{"Lesson completed"},
		})
		f.run(t, httpTest{
			path:     "/courses/" + f.catalog.Course.ID + "/cohorts/" + f.catalog.Cohort.ID,
			as:       &f.student,
			wantCode: http.StatusOK,
			wantBody: []string{"1 / 3 lessons · 33%", "/lessons/" + f.catalog.Lessons[1].ID},
		})
	})
}

func TestServer_Announcements(t *testing.T) {
	f := setup(t)
	other := testutil.CreateCatalog(f.db, "rust-101")
	anns := f.catalog.Announcements

	tests := []httpTest{
		{
			name:     "list",
			path:     "/announcements",
			as:       &f.student,
			wantCode: http.StatusOK,
			wantBody: []string{anns[0].Title, anns[1].Title, anns[2].Title, "Pinned", "2 days ago"},
		},
		{
			name:     "list without enrollments",
			path:     "/announcements",
			as:       &f.stranger,
			wantCode: http.StatusOK,
			wantBody: []string{"No announcements yet."},
		},
		{
			name:     "detail",
			path:     "/announcements/" + anns[0].ID,
			as:       &f.student,
			wantCode: http.StatusOK,
			wantBody: []string{anns[0].Title, anns[0].Body},
		},
		{
			name:     "detail of another cohort",
			path:     "/announcements/" + other.Announcements[0].ID,
			as:       &f.student,
			wantCode: http.StatusForbidden,
			wantBody: []string{enrollment.NotEnrolledDenial(enrollment.SubjectAnnouncement).Description},
		},
		{
			name:     "unknown",
			path:     "/announcements/nope",
			as:       &f.student,
			wantCode: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.run(t, tt)
			if tt.name == "list" {
				assert.NotContains(t, rec.Body.String(), "Course rust-101")
			}
		})
	}
}
