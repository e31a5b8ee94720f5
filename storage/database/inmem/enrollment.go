package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/campus/core/enrollment"
)

type enrollmentRepository struct {
	db *DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) GetEnrollment(_ context.Context, userID, cohortID string) (enrollment.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.failure("GetEnrollment"); err != nil {
		return enrollment.Enrollment{}, err
	}

	if e, ok := repo.db.enrollments[pairKey(userID, cohortID)]; ok {
		return *e, nil
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) UpsertEnrollment(_ context.Context, e enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if err := repo.db.failure("UpsertEnrollment"); err != nil {
		return enrollment.Enrollment{}, err
	}

	key := pairKey(e.UserID, e.CohortID)
	if orig, ok := repo.db.enrollments[key]; ok {
		orig.Status = e.Status
		orig.UpdatedAt = e.UpdatedAt
		return *orig, nil
	}
	e.ID = newID()
	repo.db.enrollments[key] = &e
	return e, nil
}

func (repo *enrollmentRepository) detail(e enrollment.Enrollment) (enrollment.Detail, bool) {
	cht, ok := repo.db.cohorts[e.CohortID]
	if !ok {
		return enrollment.Detail{}, false
	}
	crs, ok := repo.db.courses[cht.CourseID]
	if !ok {
		return enrollment.Detail{}, false
	}
	return enrollment.Detail{Enrollment: e, Cohort: *cht, Course: *crs}, true
}

func (repo *enrollmentRepository) QueryDetails(_ context.Context, filter enrollment.QueryFilter) ([]enrollment.Detail, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.failure("QueryDetails"); err != nil {
		return nil, err
	}

	details := make([]enrollment.Detail, 0)
	for _, e := range repo.db.enrollments {
		if filter.UserID != "" && e.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if d, ok := repo.detail(*e); ok {
			details = append(details, d)
		}
	}
	// newest first, then highest id, like the sql store
	sort.Slice(details, func(i, j int) bool {
		a, b := details[i], details[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return details, nil
}

func (repo *enrollmentRepository) GetDetail(_ context.Context, userID, cohortID string) (enrollment.Detail, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.failure("GetDetail"); err != nil {
		return enrollment.Detail{}, err
	}

	e, ok := repo.db.enrollments[pairKey(userID, cohortID)]
	if !ok {
		return enrollment.Detail{}, enrollment.ErrNotFound
	}
	d, ok := repo.detail(*e)
	if !ok {
		return enrollment.Detail{}, enrollment.ErrNotFound
	}
	return d, nil
}
