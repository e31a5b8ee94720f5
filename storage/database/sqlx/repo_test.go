package sqlxrepos

import (
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
)

func TestAliased(t *testing.T) {
	assert.Equal(t,
		[]string{`ch.id AS "cohort.id"`, `ch.title AS "cohort.title"`},
		aliased("ch", "cohort", []string{"id", "title"}))
	assert.Equal(t, []string{"l.id", "l.title"}, qualified("l", []string{"id", "title"}))
}

func TestIsUUID(t *testing.T) {
	assert.True(t, isUUID("0b6e8f3a-1c2d-4e5f-8a9b-0c1d2e3f4a5b"))
	assert.False(t, isUUID("cohort-1"))
	assert.False(t, isUUID(""))
}

func TestQueries(t *testing.T) {
	tests := []struct {
		name     string
		builder  sq.Sqlizer
		wantSQL  string
		wantArgs []interface{}
	}{
		{
			name: "lessons by sort order",
			builder: psql.Select("id").From("lesson").
				Where(sq.Eq{"cohort_id": "c1"}).
				OrderBy(core.OrderByClauses(lessonOrdering...)...),
			wantSQL:  "SELECT id FROM lesson WHERE cohort_id = $1 ORDER BY sort_order ASC, id ASC",
			wantArgs: []interface{}{"c1"},
		},
		{
			name: "announcements pinned first",
			builder: psql.Select("a.id").From("announcement a").
				Where(sq.Eq{"a.cohort_id": []string{"c1", "c2"}}).
				OrderBy(core.OrderByClauses(announcementOrdering...)...).
				Limit(5),
			wantSQL:  "SELECT a.id FROM announcement a WHERE a.cohort_id IN ($1,$2) ORDER BY a.is_pinned DESC, a.created_at DESC LIMIT 5",
			wantArgs: []interface{}{"c1", "c2"},
		},
		{
			name: "enrollment upsert",
			builder: psql.Insert("enrollment").Columns("user_id", "cohort_id").Values("u1", "c1").
				Suffix("ON CONFLICT (user_id, cohort_id) DO UPDATE SET status = EXCLUDED.status " + returning([]string{"id"})),
			wantSQL:  "INSERT INTO enrollment (user_id,cohort_id) VALUES ($1,$2) ON CONFLICT (user_id, cohort_id) DO UPDATE SET status = EXCLUDED.status RETURNING id",
			wantArgs: []interface{}{"u1", "c1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSQL, gotArgs, err := tt.builder.ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, gotSQL)
			assert.Equal(t, tt.wantArgs, gotArgs)
		})
	}
}
