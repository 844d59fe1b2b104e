package repository

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	q := url.Values{}
	q.Set("search", "  Gulshan ")
	q.Set("team_id", "7")
	q.Set("status", "pending")
	q.Set("address_id", "3") // not allowed below, ignored
	q.Set("page", "2")
	q.Set("size", "20")

	f, err := ParseFilter(q, 10, FieldTeamID, FieldStatus)
	require.NoError(t, err)
	assert.Equal(t, "Gulshan", f.Search)
	assert.Equal(t, map[FilterField]string{FieldTeamID: "7", FieldStatus: "pending"}, f.Equals)
	assert.Equal(t, Page{Number: 2, Size: 20}, f.Page)
	assert.Equal(t, 20, f.Page.Offset())
}

func TestParseFilterRejectsBadValues(t *testing.T) {
	for _, tc := range []struct {
		key, value string
		field      FilterField
	}{
		{"status", "shipped", FieldStatus},
		{"pickup_status", "maybe", FieldPickup},
		{"team_id", "abc", FieldTeamID},
	} {
		q := url.Values{}
		q.Set(tc.key, tc.value)
		_, err := ParseFilter(q, 10, tc.field)
		assert.ErrorIs(t, err, ErrInvalidFilter, tc.key)
	}
}

func TestPageMeta(t *testing.T) {
	p := NewPage(0, 500)
	assert.Equal(t, Page{Number: 1, Size: 100}, p)

	p = NewPage(3, 10)
	assert.Equal(t, PageMeta{Page: 3, Size: 10, Total: 21, TotalPage: 3}, p.Meta(21))
	assert.Equal(t, 1, p.Meta(0).TotalPage)
}

func TestFilterClauseOrdersArguments(t *testing.T) {
	f := Filter{
		Search: "Ab",
		Equals: map[FilterField]string{FieldTeamID: "1", FieldAddressID: "2", FieldStatus: "pending"},
	}
	conds, args := f.clause(map[FilterField]string{
		FieldTeamID:    "t.id",
		FieldAddressID: "t.address_id",
	}, "t.name", "l.phone")

	assert.Equal(t, []string{
		"(LOWER(t.name) LIKE ? ESCAPE '!' OR LOWER(l.phone) LIKE ? ESCAPE '!')",
		"t.address_id = ?",
		"t.id = ?",
	}, conds)
	assert.Equal(t, []any{"%ab%", "%ab%", "2", "1"}, args)
	assert.Equal(t, "1=1", joinWhere(nil))
}

func TestFilterSearchWildcardsAreLiteral(t *testing.T) {
	cases := map[string]string{
		"50%":     "%50!%%",
		"road_12": "%road!_12%",
		"hey!":    "%hey!!%",
		"Gulshan": "%gulshan%",
	}
	for search, want := range cases {
		_, args := Filter{Search: search}.clause(nil, "ad.address")
		require.Len(t, args, 1)
		assert.Equal(t, want, args[0], search)
	}
}
