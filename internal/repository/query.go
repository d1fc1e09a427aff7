package repository

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/RounakBanerji/Twinenergy-Demo/internal/db"
)

// Pagination and sorting defaults
const (
	DefaultPage   = 1
	DefaultLimit  = 20
	MaxLimit      = 100
	DefaultSortBy = "createdAt"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// sortColumns is the sort allow-list, keyed by API field name
var sortColumns = map[string]string{
	"powerOutput": "power_output",
	"temperature": "temperature",
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"sensorId":    "sensor_id",
	"location":    "location",
}

// ReadingFilter holds the conjunctive list filters. Nil fields impose no
// constraint.
type ReadingFilter struct {
	Location *string
	SensorID *string
	MinPower *float64
	MaxPower *float64
	MinTemp  *float64
	MaxTemp  *float64
}

// ReadingQuery describes one page of a filtered, sorted reading list
type ReadingQuery struct {
	Filter ReadingFilter
	SortBy string
	Order  string
	Page   int
	Limit  int
}

// ReadingPage is one page of rows plus the unpaged match count
type ReadingPage struct {
	Rows  []db.EnergyReading
	Total int64
}

// Normalize applies the sort allow-list and clamps pagination
func (q ReadingQuery) Normalize() ReadingQuery {
	if _, ok := sortColumns[q.SortBy]; !ok {
		q.SortBy = DefaultSortBy
	}
	if q.Order != OrderAsc {
		q.Order = OrderDesc
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 1
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q
}

// Offset returns the number of rows skipped before the page
func (q ReadingQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// ParsePagination turns raw page/limit parameters into integers. Missing or
// non-integer values take the defaults; out-of-range values are clamped by
// Normalize.
func ParsePagination(page, limit string) (int, int) {
	p, err := strconv.Atoi(strings.TrimSpace(page))
	if err != nil {
		p = DefaultPage
	}
	l, err := strconv.Atoi(strings.TrimSpace(limit))
	if err != nil {
		l = DefaultLimit
	}
	return p, l
}

// TotalPages returns ceil(total/limit)
func TotalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(limit)))
}

type predicate struct {
	field  string
	column string
	op     string
	value  any
}

func (f ReadingFilter) predicates() []predicate {
	var preds []predicate
	if f.Location != nil {
		preds = append(preds, predicate{"location", "location", "=", *f.Location})
	}
	if f.SensorID != nil {
		preds = append(preds, predicate{"sensorId", "sensor_id", "=", *f.SensorID})
	}
	if f.MinPower != nil {
		preds = append(preds, predicate{"powerOutput", "power_output", ">=", *f.MinPower})
	}
	if f.MaxPower != nil {
		preds = append(preds, predicate{"powerOutput", "power_output", "<=", *f.MaxPower})
	}
	if f.MinTemp != nil {
		preds = append(preds, predicate{"temperature", "temperature", ">=", *f.MinTemp})
	}
	if f.MaxTemp != nil {
		preds = append(preds, predicate{"temperature", "temperature", "<=", *f.MaxTemp})
	}
	return preds
}

// Clauses lists the applied filter clauses in API field terms,
// e.g. "sensorId = ?".
func (f ReadingFilter) Clauses() []string {
	preds := f.predicates()
	clauses := make([]string, 0, len(preds))
	for _, p := range preds {
		clauses = append(clauses, fmt.Sprintf("%s %s ?", p.field, p.op))
	}
	return clauses
}

// placeholderFunc renders the n-th (1-based) bind parameter
type placeholderFunc func(n int) string

func questionPlaceholder(int) string { return "?" }

func dollarPlaceholder(n int) string { return "$" + strconv.Itoa(n) }

// whereClause renders the WHERE clause (empty when unfiltered) and its args
func (f ReadingFilter) whereClause(ph placeholderFunc) (string, []any) {
	preds := f.predicates()
	if len(preds) == 0 {
		return "", nil
	}

	parts := make([]string, 0, len(preds))
	args := make([]any, 0, len(preds))
	for i, p := range preds {
		parts = append(parts, fmt.Sprintf("%s %s %s", p.column, p.op, ph(i+1)))
		args = append(args, p.value)
	}
	return "WHERE " + strings.Join(parts, " AND "), args
}

// orderClause renders ORDER BY for a normalized query. id breaks ties so
// pages are stable.
func (q ReadingQuery) orderClause() string {
	dir := "DESC"
	if q.Order == OrderAsc {
		dir = "ASC"
	}
	return fmt.Sprintf("ORDER BY %s %s, id %s", sortColumns[q.SortBy], dir, dir)
}

// buildListSQL returns the page query and the count query for a normalized
// query. The page query's args end with limit and offset.
func buildListSQL(q ReadingQuery, ph placeholderFunc) (pageSQL string, pageArgs []any, countSQL string, countArgs []any) {
	where, args := q.Filter.whereClause(ph)

	n := len(args)
	pageSQL = fmt.Sprintf(
		"SELECT %s FROM energy_data %s %s LIMIT %s OFFSET %s",
		readingColumns, where, q.orderClause(), ph(n+1), ph(n+2),
	)
	pageArgs = append(append([]any{}, args...), q.Limit, q.Offset())

	countSQL = fmt.Sprintf("SELECT COUNT(*) FROM energy_data %s", where)
	return pageSQL, pageArgs, countSQL, args
}

const readingColumns = "id, sensor_id, power_output, temperature, location, created_at, updated_at"
