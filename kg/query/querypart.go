// Package query implements the compositional filter algebra and the
// QueryPart builder it compiles to: parametrized MATCH/WHERE/WITH/RETURN/
// ORDER BY/SKIP/LIMIT fragments for a Cypher-capable backend.
package query

import (
	"fmt"
	"sort"
)

// QueryPart is a pure, mergeable fragment of a graph query: a set of
// MATCH clauses, WHERE predicates (ANDed), an optional WITH projection,
// RETURN columns, ORDER BY terms, and an optional SKIP/LIMIT, plus the
// parameter map those clauses reference. Merging two QueryParts unions
// their clauses and concatenates MATCHes; it errors on a parameter-name
// collision whose values differ, so that independently built fragments can be combined
// without silently shadowing each other's bound values.
type QueryPart struct {
	Matches []string
	Wheres  []string
	With    []string
	Returns []string
	OrderBy []string
	Skip    *int
	Limit   *int
	Params  map[string]any
}

// NewQueryPart returns an empty, ready-to-merge QueryPart.
func NewQueryPart() QueryPart {
	return QueryPart{Params: map[string]any{}}
}

// Match appends a MATCH clause and returns the receiver for chaining.
func (q QueryPart) Match(clause string) QueryPart {
	q.Matches = append(append([]string{}, q.Matches...), clause)
	return q
}

// Where appends a WHERE predicate (ANDed with existing predicates).
func (q QueryPart) Where(clause string) QueryPart {
	q.Wheres = append(append([]string{}, q.Wheres...), clause)
	return q
}

// WithClause appends a WITH projection term.
func (q QueryPart) WithClause(clause string) QueryPart {
	q.With = append(append([]string{}, q.With...), clause)
	return q
}

// Return appends a RETURN column.
func (q QueryPart) Return(clause string) QueryPart {
	q.Returns = append(append([]string{}, q.Returns...), clause)
	return q
}

// Order appends an ORDER BY term.
func (q QueryPart) Order(clause string) QueryPart {
	q.OrderBy = append(append([]string{}, q.OrderBy...), clause)
	return q
}

// SkipN sets SKIP.
func (q QueryPart) SkipN(n int) QueryPart {
	q.Skip = &n
	return q
}

// LimitN sets LIMIT.
func (q QueryPart) LimitN(n int) QueryPart {
	q.Limit = &n
	return q
}

// Param binds a single parameter, copy-on-write so the receiver is never
// mutated (QueryParts are values, composed functionally).
func (q QueryPart) Param(key string, v any) QueryPart {
	next := make(map[string]any, len(q.Params)+1)
	for k, val := range q.Params {
		next[k] = val
	}
	next[key] = v
	q.Params = next
	return q
}

// Merge combines two QueryParts: MATCHes concatenate, WHEREs/WITH/RETURN/
// ORDER BY union in order, SKIP/LIMIT of the right side wins if set, and
// parameters union — erroring on a colliding key with a differing value,
// since that signals two fragments independently claimed the same
// parameter name for different data (a builder bug, not legitimate
// sharing).
func (q QueryPart) Merge(other QueryPart) (QueryPart, error) {
	out := q
	out.Matches = append(append([]string{}, q.Matches...), other.Matches...)
	out.Wheres = append(append([]string{}, q.Wheres...), other.Wheres...)
	out.With = append(append([]string{}, q.With...), other.With...)
	out.Returns = append(append([]string{}, q.Returns...), other.Returns...)
	out.OrderBy = append(append([]string{}, q.OrderBy...), other.OrderBy...)
	if other.Skip != nil {
		out.Skip = other.Skip
	}
	if other.Limit != nil {
		out.Limit = other.Limit
	}

	merged := make(map[string]any, len(q.Params)+len(other.Params))
	for k, v := range q.Params {
		merged[k] = v
	}
	for k, v := range other.Params {
		if existing, ok := merged[k]; ok && !paramsEqual(existing, v) {
			return QueryPart{}, fmt.Errorf("query: parameter name collision on %q", k)
		}
		merged[k] = v
	}
	out.Params = merged
	return out, nil
}

func paramsEqual(a, b any) bool {
	return fmt.Sprintf("%#v", a) == fmt.Sprintf("%#v", b)
}

// Cypher renders the QueryPart into a statement string and its parameter
// map, ready to hand to the backend adapter's Execute/Run.
func (q QueryPart) Cypher() (string, map[string]any) {
	var stmt string
	for _, m := range q.Matches {
		stmt += "MATCH " + m + "\n"
	}
	if len(q.Wheres) > 0 {
		stmt += "WHERE " + joinAnd(q.Wheres) + "\n"
	}
	if len(q.With) > 0 {
		stmt += "WITH " + joinComma(q.With) + "\n"
	}
	if len(q.Returns) > 0 {
		stmt += "RETURN " + joinComma(q.Returns) + "\n"
	}
	if len(q.OrderBy) > 0 {
		stmt += "ORDER BY " + joinComma(q.OrderBy) + "\n"
	}
	if q.Skip != nil {
		stmt += fmt.Sprintf("SKIP %d\n", *q.Skip)
	}
	if q.Limit != nil {
		stmt += fmt.Sprintf("LIMIT %d\n", *q.Limit)
	}
	return stmt, q.Params
}

func joinAnd(ss []string) string { return join(ss, " AND ") }
func joinComma(ss []string) string { return join(ss, ", ") }

func join(ss []string, sep string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += sep
		}
		out += s
	}
	return out
}

// sortedParamKeys is exposed for deterministic test assertions over the
// parameter map (Go map iteration order is randomized).
func sortedParamKeys(params map[string]any) []string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
