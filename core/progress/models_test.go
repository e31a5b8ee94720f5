package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/campus/core/course"
)

func lessons(ids ...string) []course.Lesson {
	ls := make([]course.Lesson, 0, len(ids))
	for i, id := range ids {
		ls = append(ls, course.Lesson{ID: id, SortOrder: i + 1, IsPublished: true})
	}
	return ls
}

func set(ids ...string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name          string
		lessons       []course.Lesson
		done          map[string]bool
		wantCompleted int
		wantPercent   int
		wantNext      string
	}{
		{name: "no lessons", wantPercent: 0},
		{name: "none completed", lessons: lessons("a", "b", "c"), wantNext: "a"},
		{name: "first completed", lessons: lessons("a", "b", "c"), done: set("a"), wantCompleted: 1, wantPercent: 33, wantNext: "b"},
		{name: "gap", lessons: lessons("a", "b", "c"), done: set("a", "c"), wantCompleted: 2, wantPercent: 67, wantNext: "b"},
		{name: "all completed", lessons: lessons("a", "b"), done: set("a", "b"), wantCompleted: 2, wantPercent: 100},
		{name: "two of five", lessons: lessons("l1", "l2", "l3", "l4", "l5"), done: set("l1", "l2"), wantCompleted: 2, wantPercent: 40, wantNext: "l3"},
		{name: "half", lessons: lessons("a", "b"), done: set("b"), wantCompleted: 1, wantPercent: 50, wantNext: "a"},
		{name: "stale completions ignored", lessons: lessons("a", "b"), done: set("x", "a"), wantCompleted: 1, wantPercent: 50, wantNext: "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Compute("cohort", tt.lessons, tt.done)
			assert.Equal(t, len(tt.lessons), s.Total)
			assert.Equal(t, tt.wantCompleted, s.Completed)
			assert.Equal(t, tt.wantPercent, s.Percent)
			assert.Equal(t, tt.wantNext, s.NextLessonID)
			assert.Equal(t, tt.wantNext != "", s.HasNext())
			assert.LessOrEqual(t, s.Completed, s.Total)
		})
	}
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0, Percent(0, 0))
	assert.Equal(t, 0, Percent(3, 0))
	assert.Equal(t, 33, Percent(1, 3))
	assert.Equal(t, 67, Percent(2, 3))
	assert.Equal(t, 17, Percent(1, 6))
	assert.Equal(t, 100, Percent(7, 7))
	for total := 1; total <= 20; total++ {
		for done := 0; done <= total; done++ {
			p := Percent(done, total)
			assert.GreaterOrEqual(t, p, 0)
			assert.LessOrEqual(t, p, 100)
		}
	}
}
