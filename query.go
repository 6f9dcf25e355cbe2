package factsync

import (
	"fmt"
	"strings"
)

// Column names a field of the facts table that queries may filter or sort on.
type Column string

const (
	ColumnID           Column = "id"
	ColumnText         Column = "fact"
	ColumnLength       Column = "length"
	ColumnOrderingRank Column = "ordering_rank"
)

// valid reports whether c is one of the facts table columns.
func (c Column) valid() bool {
	switch c {
	case ColumnID, ColumnText, ColumnLength, ColumnOrderingRank:
		return true
	}
	return false
}

// Predicate is a filter condition on facts.
//
// This is a sealed interface: only All, Equals, NotEquals and And implement it.
type Predicate interface {
	predicateNode()
}

// All matches every row.
type All struct{}

// Equals matches rows where Column = Value.
type Equals struct {
	Column Column
	Value  any
}

// NotEquals matches rows where Column <> Value.
type NotEquals struct {
	Column Column
	Value  any
}

// And matches rows satisfying every predicate. An empty And matches all rows.
type And struct {
	Predicates []Predicate
}

func (All) predicateNode()       {}
func (Equals) predicateNode()    {}
func (NotEquals) predicateNode() {}
func (And) predicateNode()       {}

// Direction is a sort direction.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// Order sorts query results by one column.
type Order struct {
	Column    Column
	Direction Direction
}

// Asc sorts ascending by c.
func Asc(c Column) *Order { return &Order{Column: c, Direction: Ascending} }

// Desc sorts descending by c.
func Desc(c Column) *Order { return &Order{Column: c, Direction: Descending} }

// Query selects facts.
//
// A nil Filter matches all rows. A nil Order leaves row order unspecified.
// A zero Limit means DefaultReadLimit.
type Query struct {
	Filter Predicate
	Order  *Order
	Limit  int
	Offset int
}

// FeedQuery is the query behind the live feed: newest rank first.
func FeedQuery(limit int) Query {
	return Query{Filter: All{}, Order: Desc(ColumnOrderingRank), Limit: limit}
}

// compile converts q to a parameterized SELECT over the facts table.
// Values are never interpolated into the SQL text.
func (q Query) compile() (string, []any, error) {
	if q.Limit < 0 {
		return "", nil, fmt.Errorf("%w: negative limit %d", ErrInvalidQuery, q.Limit)
	}
	if q.Offset < 0 {
		return "", nil, fmt.Errorf("%w: negative offset %d", ErrInvalidQuery, q.Offset)
	}

	var b strings.Builder
	b.WriteString("SELECT id, fact, length, ordering_rank FROM facts")

	where, args, err := compilePredicate(q.Filter)
	if err != nil {
		return "", nil, err
	}
	if where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}

	if q.Order != nil {
		if !q.Order.Column.valid() {
			return "", nil, fmt.Errorf("%w: unknown order column %q", ErrInvalidQuery, q.Order.Column)
		}
		dir := "ASC"
		if q.Order.Direction == Descending {
			dir = "DESC"
		}
		// id breaks ties so equal ranks keep a stable order between re-runs.
		fmt.Fprintf(&b, " ORDER BY %s %s, id %s", q.Order.Column, dir, dir)
	}

	limit := q.Limit
	if limit == 0 {
		limit = DefaultReadLimit
	}
	b.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, limit, q.Offset)

	return b.String(), args, nil
}

// compilePredicate returns a WHERE fragment (empty for "all rows") and its parameters.
func compilePredicate(p Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil, All, *All:
		return "", nil, nil
	case Equals:
		return compileComparison(pred.Column, "=", pred.Value)
	case *Equals:
		return compileComparison(pred.Column, "=", pred.Value)
	case NotEquals:
		return compileComparison(pred.Column, "<>", pred.Value)
	case *NotEquals:
		return compileComparison(pred.Column, "<>", pred.Value)
	case And:
		return compileAnd(pred)
	case *And:
		return compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("%w: unsupported predicate %T", ErrInvalidQuery, p)
	}
}

func compileComparison(c Column, op string, value any) (string, []any, error) {
	if !c.valid() {
		return "", nil, fmt.Errorf("%w: unknown column %q", ErrInvalidQuery, c)
	}
	return fmt.Sprintf("%s %s ?", c, op), []any{value}, nil
}

func compileAnd(a And) (string, []any, error) {
	var (
		parts []string
		args  []any
	)
	for _, p := range a.Predicates {
		sql, params, err := compilePredicate(p)
		if err != nil {
			return "", nil, err
		}
		if sql == "" {
			continue
		}
		parts = append(parts, "("+sql+")")
		args = append(args, params...)
	}
	return strings.Join(parts, " AND "), args, nil
}
