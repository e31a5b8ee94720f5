package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/enrollment"
)

var (
	enrollmentCols     = []string{"id", "user_id", "cohort_id", "status", "created_at", "updated_at"}
	enrollmentOrdering = []core.DBOrdering{{Field: "e.created_at"}, {Field: "e.id"}}
)

type (
	enrollmentRow struct {
		ID        string    `db:"id"`
		UserID    string    `db:"user_id"`
		CohortID  string    `db:"cohort_id"`
		Status    string    `db:"status"`
		CreatedAt null.Time `db:"created_at"`
		UpdatedAt null.Time `db:"updated_at"`
	}

	enrollmentDetailRow struct {
		enrollmentRow
		Cohort cohortRow `db:"cohort"`
		Course courseRow `db:"course"`
	}
)

func (r enrollmentRow) unrow() enrollment.Enrollment {
	return enrollment.Enrollment{
		ID:        r.ID,
		UserID:    r.UserID,
		CohortID:  r.CohortID,
		Status:    enrollment.Status(r.Status),
		CreatedAt: r.CreatedAt.Time,
		UpdatedAt: r.UpdatedAt.Time,
	}
}

func (r enrollmentDetailRow) unrow() enrollment.Detail {
	return enrollment.Detail{
		Enrollment: r.enrollmentRow.unrow(),
		Cohort:     r.Cohort.unrow(),
		Course:     r.Course.unrow(),
	}
}

type enrollmentRepository struct {
	db core.DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db core.DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (repo enrollmentRepository) GetEnrollment(ctx context.Context, userID, cohortID string) (enrollment.Enrollment, error) {
	if !isUUID(userID) || !isUUID(cohortID) {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	var row enrollmentRow
	sel := psql.Select(enrollmentCols...).From("enrollment").Where(sq.Eq{"user_id": userID, "cohort_id": cohortID})
	if err := get(ctx, repo.db, &row, sel); err != nil {
		return enrollment.Enrollment{}, trapNoRowsErr(err, enrollment.ErrNotFound, "selecting enrollment")
	}
	return row.unrow(), nil
}

// UpsertEnrollment relies on the (user_id, cohort_id) unique constraint, so concurrent commits keep one row.
func (repo enrollmentRepository) UpsertEnrollment(ctx context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	var row enrollmentRow
	ins := psql.Insert("enrollment").
		Columns("user_id", "cohort_id", "status", "created_at", "updated_at").
		Values(e.UserID, e.CohortID, string(e.Status), e.CreatedAt.UTC(), e.UpdatedAt.UTC()).
		Suffix("ON CONFLICT (user_id, cohort_id) DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at " +
			returning(enrollmentCols))
	if err := get(ctx, repo.db, &row, ins); err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "upserting enrollment")
	}
	return row.unrow(), nil
}

func (repo enrollmentRepository) detailSelect() sq.SelectBuilder {
	cols := qualified("e", enrollmentCols)
	cols = append(cols, aliased("ch", "cohort", cohortCols)...)
	cols = append(cols, aliased("co", "course", courseCols)...)
	return psql.Select(cols...).
		From("enrollment e").
		Join("cohort ch ON ch.id = e.cohort_id").
		Join("course co ON co.id = ch.course_id")
}

func (repo enrollmentRepository) QueryDetails(ctx context.Context, filter enrollment.QueryFilter) ([]enrollment.Detail, error) {
	details := make([]enrollment.Detail, 0)
	where := sq.Eq{}
	if filter.UserID != "" {
		if !isUUID(filter.UserID) {
			return details, nil
		}
		where["e.user_id"] = filter.UserID
	}
	if filter.Status != "" {
		where["e.status"] = string(filter.Status)
	}

	var rows []enrollmentDetailRow
	sel := repo.detailSelect().Where(where).OrderBy(core.OrderByClauses(enrollmentOrdering...)...)
	if err := query(ctx, repo.db, &rows, sel); err != nil {
		return nil, errors.Wrap(err, "selecting enrollments")
	}
	for _, r := range rows {
		details = append(details, r.unrow())
	}
	return details, nil
}

func (repo enrollmentRepository) GetDetail(ctx context.Context, userID, cohortID string) (enrollment.Detail, error) {
	if !isUUID(userID) || !isUUID(cohortID) {
		return enrollment.Detail{}, enrollment.ErrNotFound
	}
	var row enrollmentDetailRow
	sel := repo.detailSelect().Where(sq.Eq{"e.user_id": userID, "e.cohort_id": cohortID})
	if err := get(ctx, repo.db, &row, sel); err != nil {
		return enrollment.Detail{}, trapNoRowsErr(err, enrollment.ErrNotFound, "selecting enrollment")
	}
	return row.unrow(), nil
}
