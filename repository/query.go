/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package repository

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/tomoncle/polaris/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// Query is the accumulated, not yet executed state of a repository: filters,
// ordering, limit/offset and projected columns. All methods mutate the query
// in place and return it for chaining. The first composition error is kept
// and reported by the terminal call that consumes the query.
type Query struct {
	wheres    []clause
	orders    []orderClause
	columns   []string
	limit     int
	offset    int
	hasLimit  bool
	hasOffset bool
	err       error
}

type clause struct {
	or    bool
	expr  string
	args  []interface{}
	group []clause
}

type orderClause struct {
	column    string
	direction types.Direction
}

// inList is the value list of an IN clause.
type inList []interface{}

// NewQuery returns an empty query matching every row.
func NewQuery() *Query {
	return &Query{}
}

func (q *Query) fail(err error) *Query {
	if q.err == nil {
		q.err = err
	}
	return q
}

// Err returns the first composition error.
func (q *Query) Err() error { return q.err }

// Clone returns an independent copy.
func (q *Query) Clone() *Query {
	c := *q
	c.wheres = append([]clause(nil), q.wheres...)
	c.orders = append([]orderClause(nil), q.orders...)
	c.columns = append([]string(nil), q.columns...)
	return &c
}

// Where adds "column operator value". A nil value turns "=" into IS NULL and
// "<>"/"!=" into IS NOT NULL.
func (q *Query) Where(column string, operator string, value interface{}) *Query {
	return q.comparison(false, column, operator, value)
}

// OrWhere is Where joined to the previous filters with OR.
func (q *Query) OrWhere(column string, operator string, value interface{}) *Query {
	return q.comparison(true, column, operator, value)
}

func (q *Query) WhereEq(column string, value interface{}) *Query {
	return q.Where(column, "=", value)
}

func (q *Query) comparison(or bool, column, operator string, value interface{}) *Query {
	op := types.ParseOperator(operator)
	if !op.IsValid() {
		return q.fail(fmt.Errorf("%w %q on column %s", ErrInvalidOperator, operator, column))
	}
	if value == nil {
		switch op {
		case types.OpEq:
			return q.add(clause{or: or, expr: "? IS NULL", args: []interface{}{bun.Ident(column)}})
		case types.OpNotEq:
			return q.add(clause{or: or, expr: "? IS NOT NULL", args: []interface{}{bun.Ident(column)}})
		}
	}
	return q.add(clause{
		or:   or,
		expr: "? " + op.String() + " ?",
		args: []interface{}{bun.Ident(column), value},
	})
}

// Enclose wraps the filters added so far in one parenthesised group, so a
// filter appended afterwards is AND-ed with all of them.
func (q *Query) Enclose() *Query {
	if len(q.wheres) > 1 {
		q.wheres = []clause{{group: q.wheres}}
	}
	return q
}

func (q *Query) add(c clause) *Query {
	q.wheres = append(q.wheres, c)
	return q
}

// WhereNull adds "column IS NULL".
func (q *Query) WhereNull(column string) *Query {
	return q.Where(column, "=", nil)
}

// WhereNotNull adds "column IS NOT NULL".
func (q *Query) WhereNotNull(column string) *Query {
	return q.Where(column, "<>", nil)
}

// WhereIn restricts column to values, a slice of any element type. An empty
// list matches no row.
func (q *Query) WhereIn(column string, values interface{}) *Query {
	list := toSlice(values)
	if len(list) == 0 {
		return q.add(clause{expr: "0 = 1"})
	}
	return q.add(clause{expr: "? IN (?)", args: []interface{}{bun.Ident(column), inList(list)}})
}

// WhereNotIn excludes values from column. An empty list matches every row.
func (q *Query) WhereNotIn(column string, values interface{}) *Query {
	list := toSlice(values)
	if len(list) == 0 {
		return q.add(clause{expr: "1 = 1"})
	}
	return q.add(clause{expr: "? NOT IN (?)", args: []interface{}{bun.Ident(column), inList(list)}})
}

// WhereLike matches column against value with every space replaced by the %
// wildcard, wrapped in leading and trailing wildcards.
func (q *Query) WhereLike(column string, value string) *Query {
	pattern := "%" + strings.ReplaceAll(value, " ", "%") + "%"
	return q.add(clause{expr: "? LIKE ?", args: []interface{}{bun.Ident(column), pattern}})
}

// Search adds one parenthesised group matching value as a substring of any
// of columns. The group is AND-ed with the filters already present.
func (q *Query) Search(value string, columns ...string) *Query {
	if len(columns) == 0 {
		return q
	}
	pattern := "%" + value + "%"
	group := make([]clause, 0, len(columns))
	for _, column := range columns {
		group = append(group, clause{
			or:   true,
			expr: "? LIKE ?",
			args: []interface{}{bun.Ident(column), pattern},
		})
	}
	return q.add(clause{group: group})
}

// WhereRaw adds a Bun expression such as "lower(?) = ?".
func (q *Query) WhereRaw(expr string, args ...interface{}) *Query {
	return q.add(clause{expr: expr, args: args})
}

// WhereGroup adds the filters built by fn as one parenthesised group.
func (q *Query) WhereGroup(fn func(*Query) *Query) *Query {
	inner := fn(NewQuery())
	if inner == nil {
		return q
	}
	if inner.err != nil {
		return q.fail(inner.err)
	}
	if len(inner.wheres) == 0 {
		return q
	}
	return q.add(clause{group: inner.wheres})
}

// OrderBy appends a sort on column; direction is "asc" or "desc", empty
// meaning ascending.
func (q *Query) OrderBy(column string, direction string) *Query {
	dir := types.ParseDirection(direction)
	if !dir.IsValid() {
		return q.fail(fmt.Errorf("%w %q on column %s", ErrInvalidDirection, direction, column))
	}
	q.orders = append(q.orders, orderClause{column: column, direction: dir})
	return q
}

// Take limits the number of rows. Negative values are ignored and Take(0)
// matches no row.
func (q *Query) Take(n int) *Query {
	if n >= 0 {
		q.limit, q.hasLimit = n, true
	}
	return q
}

// Skip offsets the rows. Negative values are ignored.
func (q *Query) Skip(n int) *Query {
	if n >= 0 {
		q.offset, q.hasOffset = n, true
	}
	return q
}

// Select sets the projected columns used when a terminal call passes none.
func (q *Query) Select(columns ...string) *Query {
	q.columns = append([]string(nil), columns...)
	return q
}

// Bindings returns the values bound to the filters, in SQL order.
func (q *Query) Bindings() []interface{} {
	bindings := make([]interface{}, 0)
	return collectBindings(bindings, q.wheres)
}

func collectBindings(dst []interface{}, clauses []clause) []interface{} {
	for _, c := range clauses {
		if c.group != nil {
			dst = collectBindings(dst, c.group)
			continue
		}
		for _, arg := range c.args {
			switch v := arg.(type) {
			case schema.Ident, schema.Safe:
			case inList:
				dst = append(dst, v...)
			default:
				dst = append(dst, v)
			}
		}
	}
	return dst
}

// Apply adds the filters, ordering, limit and offset to sq.
func (q *Query) Apply(sq *bun.SelectQuery) *bun.SelectQuery {
	return q.apply(sq, bindValue, true)
}

func (q *Query) apply(sq *bun.SelectQuery, bind binder, paging bool) *bun.SelectQuery {
	if !paging {
		return q.applyWheres(sq, bind)
	}
	if q.hasLimit && q.limit == 0 {
		// bun omits LIMIT 0
		sq = q.Clone().Enclose().add(clause{expr: "0 = 1"}).applyWheres(sq, bind)
	} else {
		sq = q.applyWheres(sq, bind)
	}
	for _, o := range q.orders {
		sq = sq.OrderExpr("? "+o.direction.String(), bun.Ident(o.column))
	}
	if q.hasLimit && q.limit > 0 {
		sq = sq.Limit(q.limit)
	}
	if q.hasOffset {
		sq = sq.Offset(q.offset)
	}
	return sq
}

func (q *Query) applyWheres(sq *bun.SelectQuery, bind binder) *bun.SelectQuery {
	for _, c := range q.wheres {
		sq = c.apply(sq, bind)
	}
	return sq
}

func (c clause) apply(sq *bun.SelectQuery, bind binder) *bun.SelectQuery {
	if c.group != nil {
		sep := " AND "
		if c.or {
			sep = " OR "
		}
		return sq.WhereGroup(sep, func(g *bun.SelectQuery) *bun.SelectQuery {
			for _, inner := range c.group {
				g = inner.apply(g, bind)
			}
			return g
		})
	}
	args := make([]interface{}, len(c.args))
	for i, arg := range c.args {
		args[i] = bind(arg)
	}
	if c.or {
		return sq.WhereOr(c.expr, args...)
	}
	return sq.Where(c.expr, args...)
}

// binder maps a stored argument to what is handed to Bun.
type binder func(arg interface{}) interface{}

func bindValue(arg interface{}) interface{} {
	if list, ok := arg.(inList); ok {
		return bun.In([]interface{}(list))
	}
	return arg
}

// bindPlaceholder keeps identifiers and renders every value as "?".
func bindPlaceholder(arg interface{}) interface{} {
	switch v := arg.(type) {
	case schema.Ident, schema.Safe:
		return v
	case inList:
		marks := make([]interface{}, len(v))
		for i := range marks {
			marks[i] = placeholder{}
		}
		return bun.In(marks)
	default:
		return placeholder{}
	}
}

type placeholder struct{}

var _ schema.QueryAppender = placeholder{}

func (placeholder) AppendQuery(_ schema.Formatter, b []byte) ([]byte, error) {
	return append(b, '?'), nil
}

func toSlice(values interface{}) []interface{} {
	if values == nil {
		return nil
	}
	if list, ok := values.([]interface{}); ok {
		return list
	}
	v := reflect.ValueOf(values)
	switch v.Kind() {
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return []interface{}{values}
		}
	case reflect.Array:
	default:
		return []interface{}{values}
	}
	out := make([]interface{}, v.Len())
	for i := range out {
		out[i] = v.Index(i).Interface()
	}
	return out
}
