package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/campus/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

// InsertCourse stores crs as is, generating its ID when empty.
func (db *DB) InsertCourse(crs course.Course) course.Course {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if crs.ID == "" {
		crs.ID = newID()
	}
	db.courses[crs.ID] = &crs
	return crs
}

func (db *DB) InsertCohort(cht course.Cohort) course.Cohort {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if cht.ID == "" {
		cht.ID = newID()
	}
	db.cohorts[cht.ID] = &cht
	return cht
}

func (db *DB) InsertLesson(l course.Lesson) course.Lesson {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if l.ID == "" {
		l.ID = newID()
	}
	db.lessons[l.ID] = &l
	return l
}

func (db *DB) InsertAnnouncement(a course.Announcement) course.Announcement {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if a.ID == "" {
		a.ID = newID()
	}
	db.announcements[a.ID] = &a
	return a
}

func (repo *courseRepository) GetCourse(_ context.Context, filter course.CourseFilter) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.failure("GetCourse"); err != nil {
		return course.Course{}, err
	}

	for _, crs := range repo.db.courses {
		if filter.ID != "" && crs.ID != filter.ID {
			continue
		}
		if filter.Slug != "" && crs.Slug != filter.Slug {
			continue
		}
		if filter.PublishedOnly && !crs.IsPublished {
			continue
		}
		if filter.ID == "" && filter.Slug == "" {
			continue
		}
		return *crs, nil
	}
	return course.Course{}, course.ErrCourseNotFound
}

func (repo *courseRepository) GetCohort(_ context.Context, filter course.CohortFilter) (course.Cohort, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.failure("GetCohort"); err != nil {
		return course.Cohort{}, err
	}

	for _, cht := range repo.db.cohorts {
		if filter.ID == "" && filter.Slug == "" {
			break
		}
		if filter.ID != "" && cht.ID != filter.ID {
			continue
		}
		if filter.Slug != "" && cht.Slug != filter.Slug {
			continue
		}
		if filter.CourseID != "" && cht.CourseID != filter.CourseID {
			continue
		}
		if filter.ActiveOnly && !cht.IsActive {
			continue
		}
		return *cht, nil
	}
	return course.Cohort{}, course.ErrCohortNotFound
}

func (repo *courseRepository) GetLesson(_ context.Context, id string) (course.LessonDetail, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.failure("GetLesson"); err != nil {
		return course.LessonDetail{}, err
	}

	l, ok := repo.db.lessons[id]
	if !ok || !l.IsPublished {
		return course.LessonDetail{}, course.ErrLessonNotFound
	}
	cht, ok := repo.db.cohorts[l.CohortID]
	if !ok {
		return course.LessonDetail{}, course.ErrLessonNotFound
	}
	crs, ok := repo.db.courses[cht.CourseID]
	if !ok {
		return course.LessonDetail{}, course.ErrLessonNotFound
	}
	return course.LessonDetail{Lesson: *l, Cohort: *cht, Course: *crs}, nil
}

func (repo *courseRepository) QueryLessons(_ context.Context, cohortID string, publishedOnly bool) ([]course.Lesson, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.failure("QueryLessons"); err != nil {
		return nil, err
	}

	lessons := make([]course.Lesson, 0)
	for _, l := range repo.db.lessons {
		if l.CohortID != cohortID || (publishedOnly && !l.IsPublished) {
			continue
		}
		lessons = append(lessons, *l)
	}
	sort.SliceStable(lessons, func(i, j int) bool {
		if lessons[i].SortOrder == lessons[j].SortOrder {
			return lessons[i].ID < lessons[j].ID
		}
		return lessons[i].SortOrder < lessons[j].SortOrder
	})
	return lessons, nil
}

func (repo *courseRepository) detail(a course.Announcement) course.AnnouncementDetail {
	d := course.AnnouncementDetail{Announcement: a}
	if cht, ok := repo.db.cohorts[a.CohortID]; ok {
		d.CohortTitle = cht.Title
		d.CourseID = cht.CourseID
		if crs, ok := repo.db.courses[cht.CourseID]; ok {
			d.CourseTitle = crs.Title
		}
	}
	return d
}

func (repo *courseRepository) QueryAnnouncements(_ context.Context, filter course.AnnouncementFilter) ([]course.AnnouncementDetail, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.failure("QueryAnnouncements"); err != nil {
		return nil, err
	}

	cohorts := make(map[string]bool, len(filter.CohortIDs))
	for _, id := range filter.CohortIDs {
		cohorts[id] = true
	}
	anns := make([]course.AnnouncementDetail, 0)
	for _, a := range repo.db.announcements {
		if cohorts[a.CohortID] {
			anns = append(anns, repo.detail(*a))
		}
	}
	sort.SliceStable(anns, func(i, j int) bool {
		if anns[i].IsPinned != anns[j].IsPinned {
			return anns[i].IsPinned
		}
		return anns[i].CreatedAt.After(anns[j].CreatedAt)
	})
	if filter.Limit > 0 && len(anns) > filter.Limit {
		anns = anns[:filter.Limit]
	}
	return anns, nil
}

func (repo *courseRepository) GetAnnouncement(_ context.Context, id string) (course.AnnouncementDetail, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if err := repo.db.failure("GetAnnouncement"); err != nil {
		return course.AnnouncementDetail{}, err
	}

	if a, ok := repo.db.announcements[id]; ok {
		return repo.detail(*a), nil
	}
	return course.AnnouncementDetail{}, course.ErrAnnouncementNotFound
}
