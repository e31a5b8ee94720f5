package course

import (
	"regexp"
	"strings"
)

var uuidRegex = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// CohortRef is how a link names a cohort: either its ID or its slug, never both.
type CohortRef struct {
	id   string
	slug string
}

func CohortByID(id string) CohortRef     { return CohortRef{id: strings.ToLower(id)} }
func CohortBySlug(slug string) CohortRef { return CohortRef{slug: slug} }

// ParseCohortRef decides once whether s is an ID (canonical UUID text) or a slug.
func ParseCohortRef(s string) CohortRef {
	s = strings.TrimSpace(s)
	if uuidRegex.MatchString(s) {
		return CohortByID(s)
	}
	return CohortBySlug(s)
}

func (r CohortRef) IsID() bool     { return r.id != "" }
func (r CohortRef) IsZero() bool   { return r.id == "" && r.slug == "" }
func (r CohortRef) ID() string     { return r.id }
func (r CohortRef) Slug() string   { return r.slug }
func (r CohortRef) String() string { return r.id + r.slug }

// Filter returns the lookup for this ref inside courseID.
func (r CohortRef) Filter(courseID string) CohortFilter {
	return CohortFilter{ID: r.id, Slug: r.slug, CourseID: courseID, ActiveOnly: true}
}

// IsUUID reports whether s is a canonical textual UUID.
func IsUUID(s string) bool {
	return uuidRegex.MatchString(s)
}
