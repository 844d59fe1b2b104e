package repository

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// FilterField names a column a list endpoint may be filtered on.  Each
// list query maps the fields it supports to concrete SQL columns.
type FilterField string

const (
	FieldTeamID     FilterField = "team_id"
	FieldAddressID  FilterField = "address_id"
	FieldSupplierID FilterField = "supplier_id"
	FieldStatus     FilterField = "status"
	FieldPickup     FilterField = "pickup_status"
)

var statusValues = map[string]bool{
	"pending": true, "received": true, "canceled": true, "paid": true,
}

var pickupValues = map[string]bool{"disabled": true, "enable": true, "received": true}

// Filter is the validated list criteria built from query parameters.
// Search is matched with LIKE against the query's search columns; Equals
// holds exact matches.
type Filter struct {
	Search string
	Equals map[FilterField]string
	Page   Page
}

// Page selects one page of a list.  Number starts at 1.
type Page struct {
	Number int
	Size   int
}

// PageMeta describes a returned page.
type PageMeta struct {
	Page      int   `json:"page"`
	Size      int   `json:"size"`
	Total     int64 `json:"total"`
	TotalPage int   `json:"totalPage"`
}

// NewPage clamps number and size to sane values.
func NewPage(number, size int) Page {
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = 10
	}
	if size > 100 {
		size = 100
	}
	return Page{Number: number, Size: size}
}

// Offset is the row offset of the page.
func (p Page) Offset() int { return (p.Number - 1) * p.Size }

// Meta builds the page description for total rows.
func (p Page) Meta(total int64) PageMeta {
	pages := 1
	if total > int64(p.Size) {
		pages = int((total + int64(p.Size) - 1) / int64(p.Size))
	}
	return PageMeta{Page: p.Number, Size: p.Size, Total: total, TotalPage: pages}
}

// ParseFilter reads "search", "page" and the allowed exact-match fields from
// q.  Fields not in allowed are ignored; malformed values of allowed fields
// yield ErrInvalidFilter.
func ParseFilter(q url.Values, defaultSize int, allowed ...FilterField) (Filter, error) {
	number, _ := strconv.Atoi(q.Get("page"))
	size, err := strconv.Atoi(q.Get("size"))
	if err != nil {
		size = defaultSize
	}
	f := Filter{
		Search: strings.TrimSpace(q.Get("search")),
		Equals: map[FilterField]string{},
		Page:   NewPage(number, size),
	}
	for _, field := range allowed {
		v := strings.TrimSpace(q.Get(string(field)))
		if v == "" {
			continue
		}
		switch field {
		case FieldStatus:
			if !statusValues[v] {
				return Filter{}, fmt.Errorf("%w: status %q", ErrInvalidFilter, v)
			}
		case FieldPickup:
			if !pickupValues[v] {
				return Filter{}, fmt.Errorf("%w: pickup_status %q", ErrInvalidFilter, v)
			}
		default:
			if _, err := strconv.ParseUint(v, 10, 64); err != nil {
				return Filter{}, fmt.Errorf("%w: %s %q", ErrInvalidFilter, field, v)
			}
		}
		f.Equals[field] = v
	}
	return f, nil
}

// likeEscaper makes LIKE wildcards in a search term match literally.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// clause renders the filter as SQL conditions.  columns maps supported
// fields to column expressions; fields without a mapping are skipped.
// searchCols are OR-ed LIKE matches for Search.
func (f Filter) clause(columns map[FilterField]string, searchCols ...string) ([]string, []any) {
	var where []string
	var args []any
	if f.Search != "" && len(searchCols) > 0 {
		like := "%" + likeEscaper.Replace(strings.ToLower(f.Search)) + "%"
		parts := make([]string, 0, len(searchCols))
		for _, c := range searchCols {
			parts = append(parts, "LOWER("+c+") LIKE ? ESCAPE '!'")
			args = append(args, like)
		}
		where = append(where, "("+strings.Join(parts, " OR ")+")")
	}
	// deterministic argument order
	keys := make([]string, 0, len(f.Equals))
	for k := range f.Equals {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	for _, k := range keys {
		col, ok := columns[FilterField(k)]
		if !ok {
			continue
		}
		where = append(where, col+" = ?")
		args = append(args, f.Equals[FilterField(k)])
	}
	return where, args
}

// joinWhere joins conditions with AND, returning "1=1" when empty.
func joinWhere(conds []string) string {
	if len(conds) == 0 {
		return "1=1"
	}
	return strings.Join(conds, " AND ")
}
