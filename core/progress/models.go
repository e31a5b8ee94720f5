package progress

import (
	"math"
	"time"

	"github.com/trezcool/campus/core/course"
)

// LessonProgress is unique per (UserID, LessonID).
type LessonProgress struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	LessonID    string    `json:"lesson_id"`
	Completed   bool      `json:"completed"`
	CompletedAt time.Time `json:"completed_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Summary is the progress of a user through the published lessons of a cohort.
type Summary struct {
	CohortID     string
	Lessons      []course.Lesson // published, by sort order
	Total        int
	Completed    int
	Percent      int
	NextLessonID string // "" when every lesson is completed
	CompletedIDs map[string]bool
}

func (s Summary) IsCompleted(lessonID string) bool { return s.CompletedIDs[lessonID] }

func (s Summary) HasNext() bool { return s.NextLessonID != "" }

// Compute summarizes lessons (ordered by sort order) against the completed lesson IDs.
// Completed IDs of lessons not in the list are ignored.
func Compute(cohortID string, lessons []course.Lesson, completedIDs map[string]bool) Summary {
	s := Summary{
		CohortID:     cohortID,
		Lessons:      lessons,
		Total:        len(lessons),
		CompletedIDs: make(map[string]bool, len(completedIDs)),
	}
	for _, l := range lessons {
		if completedIDs[l.ID] {
			s.Completed++
			s.CompletedIDs[l.ID] = true
		} else if s.NextLessonID == "" {
			s.NextLessonID = l.ID
		}
	}
	s.Percent = Percent(s.Completed, s.Total)
	return s
}

// Percent rounds completed/total to the nearest integer percentage; 0 when total is 0.
func Percent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}
