package course

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCohortRef(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantID   string
		wantSlug string
	}{
		{name: "lower uuid", in: "0f8fad5b-d9cb-469f-a165-70867728950e", wantID: "0f8fad5b-d9cb-469f-a165-70867728950e"},
		{name: "upper uuid", in: "0F8FAD5B-D9CB-469F-A165-70867728950E", wantID: "0f8fad5b-d9cb-469f-a165-70867728950e"},
		{name: "slug", in: "spring-2025", wantSlug: "spring-2025"},
		{name: "uuid without dashes is a slug", in: "0f8fad5bd9cb469fa16570867728950e", wantSlug: "0f8fad5bd9cb469fa16570867728950e"},
		{name: "braced uuid is a slug", in: "{0f8fad5b-d9cb-469f-a165-70867728950e}", wantSlug: "{0f8fad5b-d9cb-469f-a165-70867728950e}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := ParseCohortRef(tt.in)
			assert.Equal(t, tt.wantID, ref.ID())
			assert.Equal(t, tt.wantSlug, ref.Slug())
			assert.Equal(t, tt.wantID != "", ref.IsID())
		})
	}
}

func TestCohortRef_Filter(t *testing.T) {
	byID := ParseCohortRef("0f8fad5b-d9cb-469f-a165-70867728950e").Filter("c1")
	assert.Equal(t, CohortFilter{ID: "0f8fad5b-d9cb-469f-a165-70867728950e", CourseID: "c1", ActiveOnly: true}, byID)

	bySlug := ParseCohortRef("spring").Filter("c1")
	assert.Equal(t, CohortFilter{Slug: "spring", CourseID: "c1", ActiveOnly: true}, bySlug)
}

func TestVimeoEmbedURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "https://vimeo.com/76979871", want: "https://player.vimeo.com/video/76979871"},
		{in: "https://vimeo.com/video/76979871", want: "https://player.vimeo.com/video/76979871"},
		{in: "https://player.vimeo.com/video/76979871?h=abc", want: "https://player.vimeo.com/video/76979871"},
		{in: "https://player.vimeo.com/embed/xyz", want: "https://player.vimeo.com/embed/xyz"},
		{in: "https://youtube.com/watch?v=1", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, VimeoEmbedURL(tt.in))
		})
	}
}

func TestNeighbours(t *testing.T) {
	lessons := []Lesson{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	prev, next, ok := Neighbours(lessons, "a")
	assert.True(t, ok)
	assert.Nil(t, prev)
	assert.Equal(t, "b", next.ID)

	prev, next, ok = Neighbours(lessons, "b")
	assert.True(t, ok)
	assert.Equal(t, "a", prev.ID)
	assert.Equal(t, "c", next.ID)

	prev, next, ok = Neighbours(lessons, "c")
	assert.True(t, ok)
	assert.Equal(t, "b", prev.ID)
	assert.Nil(t, next)

	_, _, ok = Neighbours(lessons, "z")
	assert.False(t, ok)
}
