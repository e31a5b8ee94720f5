package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/progress"
)

var progressCols = []string{"id", "user_id", "lesson_id", "completed", "completed_at", "created_at", "updated_at"}

type progressRow struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	LessonID    string    `db:"lesson_id"`
	Completed   bool      `db:"completed"`
	CompletedAt null.Time `db:"completed_at"`
	CreatedAt   null.Time `db:"created_at"`
	UpdatedAt   null.Time `db:"updated_at"`
}

func (r progressRow) unrow() progress.LessonProgress {
	return progress.LessonProgress{
		ID:          r.ID,
		UserID:      r.UserID,
		LessonID:    r.LessonID,
		Completed:   r.Completed,
		CompletedAt: r.CompletedAt.Time,
		CreatedAt:   r.CreatedAt.Time,
		UpdatedAt:   r.UpdatedAt.Time,
	}
}

type progressRepository struct {
	db core.DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db core.DB) *progressRepository {
	return &progressRepository{db: db}
}

func (repo progressRepository) GetProgress(ctx context.Context, userID, lessonID string) (progress.LessonProgress, error) {
	if !isUUID(userID) || !isUUID(lessonID) {
		return progress.LessonProgress{}, progress.ErrNotFound
	}
	var row progressRow
	sel := psql.Select(progressCols...).From("lesson_progress").Where(sq.Eq{"user_id": userID, "lesson_id": lessonID})
	if err := get(ctx, repo.db, &row, sel); err != nil {
		return progress.LessonProgress{}, trapNoRowsErr(err, progress.ErrNotFound, "selecting progress")
	}
	return row.unrow(), nil
}

func (repo progressRepository) QueryCompletedLessonIDs(ctx context.Context, userID string, lessonIDs []string) ([]string, error) {
	ids := make([]string, 0)
	valid := make([]string, 0, len(lessonIDs))
	for _, id := range lessonIDs {
		if isUUID(id) {
			valid = append(valid, id)
		}
	}
	if !isUUID(userID) || len(valid) == 0 {
		return ids, nil
	}

	sel := psql.Select("lesson_id").From("lesson_progress").
		Where(sq.Eq{"user_id": userID, "lesson_id": valid, "completed": true})
	if err := query(ctx, repo.db, &ids, sel); err != nil {
		return nil, errors.Wrap(err, "selecting completed lessons")
	}
	return ids, nil
}

func (repo progressRepository) UpsertProgress(ctx context.Context, p progress.LessonProgress) (progress.LessonProgress, error) {
	var row progressRow
	ins := psql.Insert("lesson_progress").
		Columns("user_id", "lesson_id", "completed", "completed_at", "created_at", "updated_at").
		Values(
			p.UserID,
			p.LessonID,
			p.Completed,
			null.NewTime(p.CompletedAt.UTC(), !p.CompletedAt.IsZero()),
			p.CreatedAt.UTC(),
			p.UpdatedAt.UTC(),
		).
		Suffix("ON CONFLICT (user_id, lesson_id) DO UPDATE SET " +
			"completed = EXCLUDED.completed, completed_at = EXCLUDED.completed_at, updated_at = EXCLUDED.updated_at " +
			returning(progressCols))
	if err := get(ctx, repo.db, &row, ins); err != nil {
		return progress.LessonProgress{}, errors.Wrap(err, "upserting progress")
	}
	return row.unrow(), nil
}
