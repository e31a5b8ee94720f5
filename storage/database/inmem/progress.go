package inmemdb

import (
	"context"

	"github.com/trezcool/campus/core/progress"
)

type progressRepository struct {
	db *DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *DB) *progressRepository {
	return &progressRepository{db: db}
}

func (repo *progressRepository) GetProgress(_ context.Context, userID, lessonID string) (progress.LessonProgress, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.failure("GetProgress"); err != nil {
		return progress.LessonProgress{}, err
	}

	if p, ok := repo.db.progress[pairKey(userID, lessonID)]; ok {
		return *p, nil
	}
	return progress.LessonProgress{}, progress.ErrNotFound
}

func (repo *progressRepository) QueryCompletedLessonIDs(_ context.Context, userID string, lessonIDs []string) ([]string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.failure("QueryCompletedLessonIDs"); err != nil {
		return nil, err
	}

	ids := make([]string, 0)
	for _, id := range lessonIDs {
		if p, ok := repo.db.progress[pairKey(userID, id)]; ok && p.Completed {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (repo *progressRepository) UpsertProgress(_ context.Context, p progress.LessonProgress) (progress.LessonProgress, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if err := repo.db.failure("UpsertProgress"); err != nil {
		return progress.LessonProgress{}, err
	}

	key := pairKey(p.UserID, p.LessonID)
	if orig, ok := repo.db.progress[key]; ok {
		orig.Completed = p.Completed
		orig.CompletedAt = p.CompletedAt
		orig.UpdatedAt = p.UpdatedAt
		return *orig, nil
	}
	p.ID = newID()
	repo.db.progress[key] = &p
	return p, nil
}

// CountProgress returns how many progress rows exist for (userID, lessonID).
func (db *DB) CountProgress(userID, lessonID string) int {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	if _, ok := db.progress[pairKey(userID, lessonID)]; ok {
		return 1
	}
	return 0
}

// CountEnrollments returns how many enrollments userID holds, any status.
func (db *DB) CountEnrollments(userID string) int {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	var n int
	for _, e := range db.enrollments {
		if e.UserID == userID {
			n++
		}
	}
	return n
}
