package query

import "fmt"

// PropFilter is a filter over a single scalar property of type T,
// supporting eq/ne/gt/ge/lt/le/in/not_in. Zero value matches everything
// (no predicate emitted). OR is representable only via In/NotIn; general
// disjunction is out of scope by design, matching the filter kernel's
// stated algebra.
type PropFilter[T any] struct {
	eq        *T
	ne        *T
	gt        *T
	ge        *T
	lt        *T
	le        *T
	in        []T
	notIn     []T
}

// Eq sets the equality predicate.
func (f PropFilter[T]) Eq(v T) PropFilter[T] { f.eq = &v; return f }

// Ne sets the inequality predicate.
func (f PropFilter[T]) Ne(v T) PropFilter[T] { f.ne = &v; return f }

// Gt sets the greater-than predicate.
func (f PropFilter[T]) Gt(v T) PropFilter[T] { f.gt = &v; return f }

// Ge sets the greater-or-equal predicate.
func (f PropFilter[T]) Ge(v T) PropFilter[T] { f.ge = &v; return f }

// Lt sets the less-than predicate.
func (f PropFilter[T]) Lt(v T) PropFilter[T] { f.lt = &v; return f }

// Le sets the less-or-equal predicate.
func (f PropFilter[T]) Le(v T) PropFilter[T] { f.le = &v; return f }

// In sets the membership predicate.
func (f PropFilter[T]) In(vs []T) PropFilter[T] { f.in = vs; return f }

// NotIn sets the non-membership predicate.
func (f PropFilter[T]) NotIn(vs []T) PropFilter[T] { f.notIn = vs; return f }

// IsZero reports whether no predicate has been set.
func (f PropFilter[T]) IsZero() bool {
	return f.eq == nil && f.ne == nil && f.gt == nil && f.ge == nil &&
		f.lt == nil && f.le == nil && f.in == nil && f.notIn == nil
}

// IntoQueryPart compiles the filter against nodeVar.key, deriving
// collision-free parameter names from (nodeVar, key, op) the way the
// source query kernel does, so that two PropFilters over distinct keys
// (or the same key on distinct node variables) never clash when merged.
func (f PropFilter[T]) IntoQueryPart(nodeVar, key string) QueryPart {
	qp := NewQueryPart()
	field := fmt.Sprintf("%s.`%s`", nodeVar, key)

	bind := func(op, suffix string, v T) {
		paramKey := fmt.Sprintf("%s_%s_%s", nodeVar, key, suffix)
		qp = qp.Where(fmt.Sprintf("%s %s $%s", field, op, paramKey)).Param(paramKey, v)
	}

	if f.eq != nil {
		bind("=", "value", *f.eq)
	}
	if f.gt != nil {
		bind(">", "value_gt", *f.gt)
	}
	if f.ge != nil {
		bind(">=", "value_gte", *f.ge)
	}
	if f.lt != nil {
		bind("<", "value_lt", *f.lt)
	}
	if f.le != nil {
		bind("<=", "value_lte", *f.le)
	}
	if f.ne != nil {
		bind("<>", "value_not", *f.ne)
	}
	if f.in != nil {
		paramKey := fmt.Sprintf("%s_%s_value_in", nodeVar, key)
		qp = qp.Where(fmt.Sprintf("%s IN $%s", field, paramKey)).Param(paramKey, f.in)
	}
	if f.notIn != nil {
		paramKey := fmt.Sprintf("%s_%s_value_not_in", nodeVar, key)
		qp = qp.Where(fmt.Sprintf("%s NOT IN $%s", field, paramKey)).Param(paramKey, f.notIn)
	}
	return qp
}
