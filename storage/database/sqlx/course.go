package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/course"
)

var (
	courseCols       = []string{"id", "title", "slug", "description", "thumbnail_url", "is_published", "created_at", "updated_at"}
	cohortCols       = []string{"id", "course_id", "title", "slug", "starts_at", "ends_at", "is_active", "created_at", "updated_at"}
	lessonCols       = []string{"id", "cohort_id", "title", "sort_order", "vimeo_url", "resources", "description", "is_published", "created_at", "updated_at"}
	announcementCols = []string{"id", "cohort_id", "title", "body", "is_pinned", "created_at", "updated_at"}

	lessonOrdering       = []core.DBOrdering{{Field: "sort_order", Ascending: true}, {Field: "id", Ascending: true}}
	announcementOrdering = []core.DBOrdering{{Field: "a.is_pinned"}, {Field: "a.created_at"}}
)

type (
	courseRow struct {
		ID           string      `db:"id"`
		Title        string      `db:"title"`
		Slug         string      `db:"slug"`
		Description  null.String `db:"description"`
		ThumbnailURL null.String `db:"thumbnail_url"`
		IsPublished  bool        `db:"is_published"`
		CreatedAt    null.Time   `db:"created_at"`
		UpdatedAt    null.Time   `db:"updated_at"`
	}

	cohortRow struct {
		ID        string      `db:"id"`
		CourseID  string      `db:"course_id"`
		Title     string      `db:"title"`
		Slug      null.String `db:"slug"`
		StartsAt  null.Time   `db:"starts_at"`
		EndsAt    null.Time   `db:"ends_at"`
		IsActive  bool        `db:"is_active"`
		CreatedAt null.Time   `db:"created_at"`
		UpdatedAt null.Time   `db:"updated_at"`
	}

	lessonRow struct {
		ID          string         `db:"id"`
		CohortID    string         `db:"cohort_id"`
		Title       string         `db:"title"`
		SortOrder   int            `db:"sort_order"`
		VimeoURL    null.String    `db:"vimeo_url"`
		Resources   types.JSONText `db:"resources"`
		Description null.String    `db:"description"`
		IsPublished bool           `db:"is_published"`
		CreatedAt   null.Time      `db:"created_at"`
		UpdatedAt   null.Time      `db:"updated_at"`
	}

	lessonDetailRow struct {
		lessonRow
		Cohort cohortRow `db:"cohort"`
		Course courseRow `db:"course"`
	}

	announcementRow struct {
		ID          string    `db:"id"`
		CohortID    string    `db:"cohort_id"`
		Title       string    `db:"title"`
		Body        string    `db:"body"`
		IsPinned    bool      `db:"is_pinned"`
		CreatedAt   null.Time `db:"created_at"`
		UpdatedAt   null.Time `db:"updated_at"`
		CohortTitle string    `db:"cohort_title"`
		CourseID    string    `db:"course_id"`
		CourseTitle string    `db:"course_title"`
	}
)

func (r courseRow) unrow() course.Course {
	return course.Course{
		ID:           r.ID,
		Title:        r.Title,
		Slug:         r.Slug,
		Description:  r.Description.String,
		ThumbnailURL: r.ThumbnailURL.String,
		IsPublished:  r.IsPublished,
		CreatedAt:    r.CreatedAt.Time,
		UpdatedAt:    r.UpdatedAt.Time,
	}
}

func (r cohortRow) unrow() course.Cohort {
	return course.Cohort{
		ID:        r.ID,
		CourseID:  r.CourseID,
		Title:     r.Title,
		Slug:      r.Slug.String,
		StartsAt:  r.StartsAt.Time,
		EndsAt:    r.EndsAt.Time,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt.Time,
		UpdatedAt: r.UpdatedAt.Time,
	}
}

func (r lessonRow) unrow() (course.Lesson, error) {
	l := course.Lesson{
		ID:          r.ID,
		CohortID:    r.CohortID,
		Title:       r.Title,
		SortOrder:   r.SortOrder,
		VimeoURL:    r.VimeoURL.String,
		Description: r.Description.String,
		IsPublished: r.IsPublished,
		CreatedAt:   r.CreatedAt.Time,
		UpdatedAt:   r.UpdatedAt.Time,
	}
	if len(r.Resources) > 0 {
		if err := r.Resources.Unmarshal(&l.Resources); err != nil {
			return course.Lesson{}, errors.Wrapf(err, "decoding resources of lesson %s", r.ID)
		}
	}
	return l, nil
}

func (r announcementRow) unrow() course.AnnouncementDetail {
	return course.AnnouncementDetail{
		Announcement: course.Announcement{
			ID:        r.ID,
			CohortID:  r.CohortID,
			Title:     r.Title,
			Body:      r.Body,
			IsPinned:  r.IsPinned,
			CreatedAt: r.CreatedAt.Time,
			UpdatedAt: r.UpdatedAt.Time,
		},
		CohortTitle: r.CohortTitle,
		CourseID:    r.CourseID,
		CourseTitle: r.CourseTitle,
	}
}

type courseRepository struct {
	db core.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db core.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo courseRepository) GetCourse(ctx context.Context, filter course.CourseFilter) (course.Course, error) {
	where := sq.Eq{}
	if filter.ID != "" {
		if !isUUID(filter.ID) {
			return course.Course{}, course.ErrCourseNotFound
		}
		where["id"] = filter.ID
	}
	if filter.Slug != "" {
		where["slug"] = filter.Slug
	}
	if len(where) == 0 {
		return course.Course{}, course.ErrCourseNotFound
	}
	if filter.PublishedOnly {
		where["is_published"] = true
	}

	var row courseRow
	if err := get(ctx, repo.db, &row, psql.Select(courseCols...).From("course").Where(where)); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrCourseNotFound, "selecting course")
	}
	return row.unrow(), nil
}

func (repo courseRepository) GetCohort(ctx context.Context, filter course.CohortFilter) (course.Cohort, error) {
	where := sq.Eq{}
	if filter.ID != "" {
		if !isUUID(filter.ID) {
			return course.Cohort{}, course.ErrCohortNotFound
		}
		where["id"] = filter.ID
	}
	if filter.Slug != "" {
		where["slug"] = filter.Slug
	}
	if len(where) == 0 {
		return course.Cohort{}, course.ErrCohortNotFound
	}
	if filter.CourseID != "" {
		if !isUUID(filter.CourseID) {
			return course.Cohort{}, course.ErrCohortNotFound
		}
		where["course_id"] = filter.CourseID
	}
	if filter.ActiveOnly {
		where["is_active"] = true
	}

	var row cohortRow
	if err := get(ctx, repo.db, &row, psql.Select(cohortCols...).From("cohort").Where(where)); err != nil {
		return course.Cohort{}, trapNoRowsErr(err, course.ErrCohortNotFound, "selecting cohort")
	}
	return row.unrow(), nil
}

func (repo courseRepository) GetLesson(ctx context.Context, id string) (course.LessonDetail, error) {
	if !isUUID(id) {
		return course.LessonDetail{}, course.ErrLessonNotFound
	}
	cols := qualified("l", lessonCols)
	cols = append(cols, aliased("ch", "cohort", cohortCols)...)
	cols = append(cols, aliased("co", "course", courseCols)...)
	sel := psql.Select(cols...).
		From("lesson l").
		Join("cohort ch ON ch.id = l.cohort_id").
		Join("course co ON co.id = ch.course_id").
		Where(sq.Eq{"l.id": id, "l.is_published": true})

	var row lessonDetailRow
	if err := get(ctx, repo.db, &row, sel); err != nil {
		return course.LessonDetail{}, trapNoRowsErr(err, course.ErrLessonNotFound, "selecting lesson")
	}
	l, err := row.lessonRow.unrow()
	if err != nil {
		return course.LessonDetail{}, err
	}
	return course.LessonDetail{Lesson: l, Cohort: row.Cohort.unrow(), Course: row.Course.unrow()}, nil
}

func (repo courseRepository) QueryLessons(ctx context.Context, cohortID string, publishedOnly bool) ([]course.Lesson, error) {
	lessons := make([]course.Lesson, 0)
	if !isUUID(cohortID) {
		return lessons, nil
	}
	where := sq.Eq{"cohort_id": cohortID}
	if publishedOnly {
		where["is_published"] = true
	}
	sel := psql.Select(lessonCols...).From("lesson").Where(where).OrderBy(core.OrderByClauses(lessonOrdering...)...)

	var rows []lessonRow
	if err := query(ctx, repo.db, &rows, sel); err != nil {
		return nil, errors.Wrap(err, "selecting lessons")
	}
	for _, r := range rows {
		l, err := r.unrow()
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, l)
	}
	return lessons, nil
}

func (repo courseRepository) announcementSelect() sq.SelectBuilder {
	cols := qualified("a", announcementCols)
	cols = append(cols, "ch.title AS cohort_title", "ch.course_id", "co.title AS course_title")
	return psql.Select(cols...).
		From("announcement a").
		Join("cohort ch ON ch.id = a.cohort_id").
		Join("course co ON co.id = ch.course_id")
}

func (repo courseRepository) QueryAnnouncements(ctx context.Context, filter course.AnnouncementFilter) ([]course.AnnouncementDetail, error) {
	ids := make([]string, 0, len(filter.CohortIDs))
	for _, id := range filter.CohortIDs {
		if isUUID(id) {
			ids = append(ids, id)
		}
	}
	anns := make([]course.AnnouncementDetail, 0)
	if len(ids) == 0 {
		return anns, nil
	}

	sel := repo.announcementSelect().
		Where(sq.Eq{"a.cohort_id": ids}).
		OrderBy(core.OrderByClauses(announcementOrdering...)...)
	if filter.Limit > 0 {
		sel = sel.Limit(uint64(filter.Limit))
	}

	var rows []announcementRow
	if err := query(ctx, repo.db, &rows, sel); err != nil {
		return nil, errors.Wrap(err, "selecting announcements")
	}
	for _, r := range rows {
		anns = append(anns, r.unrow())
	}
	return anns, nil
}

func (repo courseRepository) GetAnnouncement(ctx context.Context, id string) (course.AnnouncementDetail, error) {
	if !isUUID(id) {
		return course.AnnouncementDetail{}, course.ErrAnnouncementNotFound
	}
	var row announcementRow
	if err := get(ctx, repo.db, &row, repo.announcementSelect().Where(sq.Eq{"a.id": id})); err != nil {
		return course.AnnouncementDetail{}, trapNoRowsErr(err, course.ErrAnnouncementNotFound, "selecting announcement")
	}
	return row.unrow(), nil
}
