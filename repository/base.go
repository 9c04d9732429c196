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
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/tomoncle/polaris/database"
	"github.com/tomoncle/polaris/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

type baseRepositoryImpl[T any] struct {
	db         bun.IDB
	descriptor string
	factory    Factory
	model      *T
	table      *schema.Table
	query      *Query
	scopes     *scopeRegistry[T]
	opts       *options[T]
	logger     database.Logger
}

// New binds a repository to the model registered under descriptor in c.
func New[T any](c Container, descriptor string, opts ...Option[T]) (Repository[T], error) {
	if c == nil {
		return nil, &ConfigurationError{Descriptor: descriptor, Reason: "no container"}
	}
	if descriptor == "" {
		return nil, &ConfigurationError{Reason: "no entity descriptor bound"}
	}
	factory, ok := c.Resolve(descriptor)
	if !ok || factory == nil {
		return nil, &ConfigurationError{Descriptor: descriptor, Reason: "descriptor is not registered"}
	}
	db := c.DB()
	if db == nil {
		return nil, &ConfigurationError{Descriptor: descriptor, Reason: "container has no database"}
	}

	modelType := reflect.TypeOf((*T)(nil))
	product := factory()
	model, ok := product.(*T)
	if !ok || model == nil {
		return nil, &TypeMismatchError{
			Descriptor: descriptor,
			Expected:   modelType.String(),
			Actual:     fmt.Sprintf("%T", product),
			Reason:     "factory does not construct the repository model",
		}
	}
	if modelType.Elem().Kind() != reflect.Struct {
		return nil, &TypeMismatchError{
			Descriptor: descriptor,
			Expected:   "pointer to struct",
			Actual:     modelType.String(),
			Reason:     "model cannot be persisted",
		}
	}
	table := db.Dialect().Tables().Get(modelType.Elem())
	if len(table.PKs) == 0 {
		return nil, &TypeMismatchError{
			Descriptor: descriptor,
			Expected:   "model with a primary key",
			Actual:     modelType.String(),
			Reason:     "model cannot be queried by key",
		}
	}

	o := &options[T]{
		scopes:       make(map[string]RepositoryScope[T]),
		pageResolver: func(string) int { return 1 },
		paging: database.RepositoryConfig{
			PerPage:  types.DefaultPerPage,
			PageName: types.DefaultPageName,
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.typeName == "" {
		o.typeName = "Repository[" + modelType.Elem().String() + "]"
	}
	if o.validate == nil {
		o.validate = validator.New(validator.WithRequiredStructEnabled())
	}

	logger := c.Logger()
	if logger == nil {
		logger = database.GetLogger()
	}

	var provider interface{} = model
	if _, ok := provider.(ScopeProvider); !ok {
		provider = *model
	}

	return &baseRepositoryImpl[T]{
		db:         db,
		descriptor: descriptor,
		factory:    factory,
		model:      model,
		table:      table,
		query:      NewQuery(),
		scopes:     newScopeRegistry[T](provider, o.scopes),
		opts:       o,
		logger:     logger,
	}, nil
}

func (r *baseRepositoryImpl[T]) DB() bun.IDB { return r.db }

func (r *baseRepositoryImpl[T]) TypeName() string { return r.opts.typeName }

func (r *baseRepositoryImpl[T]) Model() *T { return r.model }

// Query returns the live query. Changes made to it are seen by the next
// terminal call.
func (r *baseRepositoryImpl[T]) Query() *Query { return r.query }

// Builder returns a bun select with the live query applied, leaving the
// repository state untouched.
func (r *baseRepositoryImpl[T]) Builder() *bun.SelectQuery {
	sq := r.query.apply(r.db.NewSelect().Model((*T)(nil)), bindValue, true)
	return r.project(sq, r.query, nil)
}

func (r *baseRepositoryImpl[T]) Where(column string, operator string, value interface{}) Repository[T] {
	r.query.Where(column, operator, value)
	return r
}

func (r *baseRepositoryImpl[T]) WhereEq(column string, value interface{}) Repository[T] {
	r.query.WhereEq(column, value)
	return r
}

func (r *baseRepositoryImpl[T]) OrWhere(column string, operator string, value interface{}) Repository[T] {
	r.query.OrWhere(column, operator, value)
	return r
}

func (r *baseRepositoryImpl[T]) WhereIn(column string, values interface{}) Repository[T] {
	r.query.WhereIn(column, values)
	return r
}

func (r *baseRepositoryImpl[T]) WhereNotIn(column string, values interface{}) Repository[T] {
	r.query.WhereNotIn(column, values)
	return r
}

func (r *baseRepositoryImpl[T]) WhereNull(column string) Repository[T] {
	r.query.WhereNull(column)
	return r
}

func (r *baseRepositoryImpl[T]) WhereNotNull(column string) Repository[T] {
	r.query.WhereNotNull(column)
	return r
}

func (r *baseRepositoryImpl[T]) WhereRaw(expr string, args ...interface{}) Repository[T] {
	r.query.WhereRaw(expr, args...)
	return r
}

func (r *baseRepositoryImpl[T]) WhereLike(column string, value string) Repository[T] {
	r.query.WhereLike(column, value)
	return r
}

func (r *baseRepositoryImpl[T]) Search(value string, columns ...string) Repository[T] {
	r.query.Search(value, columns...)
	return r
}

func (r *baseRepositoryImpl[T]) OrderBy(column string, direction string) Repository[T] {
	r.query.OrderBy(column, direction)
	return r
}

func (r *baseRepositoryImpl[T]) Take(n int) Repository[T] {
	r.query.Take(n)
	return r
}

func (r *baseRepositoryImpl[T]) Skip(n int) Repository[T] {
	r.query.Skip(n)
	return r
}

func (r *baseRepositoryImpl[T]) Select(columns ...string) Repository[T] {
	r.query.Select(columns...)
	return r
}

// AddScopeQuery replaces the live query with fn(query). A nil result resets
// it to an empty query.
func (r *baseRepositoryImpl[T]) AddScopeQuery(fn func(*Query) *Query) Repository[T] {
	if fn == nil {
		return r
	}
	q := fn(r.query)
	if q == nil {
		q = NewQuery()
	}
	r.query = q
	return r
}

func (r *baseRepositoryImpl[T]) NewQuery() Repository[T] {
	r.query = NewQuery()
	return r
}

func (r *baseRepositoryImpl[T]) Call(name string, args ...interface{}) (Repository[T], error) {
	repoScope, modelScope, ok := r.scopes.lookup(name)
	if !ok {
		return r, &MethodNotFoundError{Repository: r.TypeName(), Method: name}
	}
	if repoScope != nil {
		if next := repoScope(r, args...); next != nil {
			return next, nil
		}
		return r, nil
	}
	return r.AddScopeQuery(func(q *Query) *Query {
		return modelScope(q, args...)
	}), nil
}

// consume hands the live query to a terminal call and resets the repository.
func (r *baseRepositoryImpl[T]) consume() *Query {
	q := r.query
	r.query = NewQuery()
	return q
}

func (r *baseRepositoryImpl[T]) project(sq *bun.SelectQuery, q *Query, columns []string) *bun.SelectQuery {
	if len(columns) == 0 {
		columns = q.columns
	}
	for _, column := range columns {
		if column == "*" {
			return sq
		}
	}
	if len(columns) > 0 {
		sq = sq.Column(columns...)
	}
	return sq
}

func (r *baseRepositoryImpl[T]) Get(ctx context.Context, columns ...string) ([]*T, error) {
	q := r.consume()
	if q.err != nil {
		return nil, q.err
	}
	items := make([]*T, 0)
	if q.hasLimit && q.limit == 0 {
		return items, nil
	}
	sq := r.project(q.apply(r.db.NewSelect().Model(&items), bindValue, true), q, columns)
	if err := sq.Scan(ctx); err != nil {
		return nil, fmt.Errorf("select %s: %w", r.descriptor, err)
	}
	r.logger.Debug("query executed", "model", r.descriptor, "op", "get", "rows", len(items))
	return items, nil
}

// All returns every row, discarding any pending filters.
func (r *baseRepositoryImpl[T]) All(ctx context.Context, columns ...string) ([]*T, error) {
	return r.NewQuery().Get(ctx, columns...)
}

func (r *baseRepositoryImpl[T]) First(ctx context.Context, columns ...string) (*T, error) {
	q := r.consume()
	if q.err != nil {
		return nil, q.err
	}
	return r.first(ctx, q, columns)
}

func (r *baseRepositoryImpl[T]) first(ctx context.Context, q *Query, columns []string) (*T, error) {
	entity := new(T)
	sq := r.project(q.apply(r.db.NewSelect().Model(entity), bindValue, true), q, columns).Limit(1)
	if err := sq.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Model: r.descriptor, err: err}
		}
		return nil, fmt.Errorf("select %s: %w", r.descriptor, err)
	}
	r.logger.Debug("query executed", "model", r.descriptor, "op", "first")
	return entity, nil
}

// Find returns the row whose primary key equals id.
func (r *baseRepositoryImpl[T]) Find(ctx context.Context, id interface{}, columns ...string) (*T, error) {
	q := r.consume()
	if q.err != nil {
		return nil, q.err
	}
	q.Enclose().WhereRaw("?TableAlias.? = ?", bun.Ident(r.table.PKs[0].Name), id)
	return r.first(ctx, q, columns)
}

// Paginate returns one page of the live query. The total is counted on the
// filters alone.
func (r *baseRepositoryImpl[T]) Paginate(ctx context.Context, perPage int, pageName string, page int, columns ...string) (*types.Pagination[T], error) {
	if perPage <= 0 {
		perPage = r.opts.paging.PerPage
	}
	if perPage <= 0 {
		perPage = types.DefaultPerPage
	}
	if pageName == "" {
		pageName = r.opts.paging.PageName
	}
	if pageName == "" {
		pageName = types.DefaultPageName
	}
	if page <= 0 {
		page = r.opts.pageResolver(pageName)
	}
	if page <= 0 {
		page = 1
	}

	q := r.consume()
	if q.err != nil {
		return nil, q.err
	}
	total, err := q.applyWheres(r.db.NewSelect().Model((*T)(nil)), bindValue).Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", r.descriptor, err)
	}

	items := make([]*T, 0, perPage)
	if total > (page-1)*perPage {
		paged := q.Clone().Take(perPage).Skip((page - 1) * perPage)
		sq := r.project(paged.apply(r.db.NewSelect().Model(&items), bindValue, true), paged, columns)
		if err := sq.Scan(ctx); err != nil {
			return nil, fmt.Errorf("select %s: %w", r.descriptor, err)
		}
	}
	r.logger.Debug("query executed", "model", r.descriptor, "op", "paginate",
		"page", page, "per_page", perPage, "total", total)
	return types.NewPagination(items, total, page, perPage, pageName), nil
}

// Count returns the number of rows matching the live query's filters.
func (r *baseRepositoryImpl[T]) Count(ctx context.Context) (int, error) {
	q := r.consume()
	if q.err != nil {
		return 0, q.err
	}
	count, err := q.applyWheres(r.db.NewSelect().Model((*T)(nil)), bindValue).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", r.descriptor, err)
	}
	return count, nil
}

// ToSQL renders the pending select with "?" in place of every bound value.
func (r *baseRepositoryImpl[T]) ToSQL() (string, error) {
	if r.query.err != nil {
		return "", r.query.err
	}
	sq := r.query.apply(r.db.NewSelect().Model((*T)(nil)), bindPlaceholder, true)
	sq = r.project(sq, r.query, nil)
	b, err := sq.AppendQuery(schema.NewFormatter(r.db.Dialect()), nil)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *baseRepositoryImpl[T]) Bindings() []interface{} {
	return r.query.Bindings()
}

// Create builds an instance from attrs, validates and inserts it. Failures
// are logged and reported as a nil result.
func (r *baseRepositoryImpl[T]) Create(ctx context.Context, attrs types.Attributes) *T {
	entity, err := r.NewInstance(attrs)
	if err != nil {
		r.logger.Warn("create skipped: invalid attributes", "model", r.descriptor, "error", err)
		return nil
	}
	if err := r.opts.validate.StructCtx(ctx, entity); err != nil {
		r.logger.Warn("create skipped: validation failed", "model", r.descriptor, "error", err)
		return nil
	}
	if _, err := r.db.NewInsert().Model(entity).Exec(ctx); err != nil {
		_, kind := database.IsSqlError(err)
		r.logger.Warn("create failed", "model", r.descriptor, "kind", kind.String(), "error", err)
		return nil
	}
	r.logger.Debug("query executed", "model", r.descriptor, "op", "create")
	return entity
}

// NewInstance returns a fresh model with attrs decoded into it by bun column
// name. Unknown attributes are ignored.
func (r *baseRepositoryImpl[T]) NewInstance(attrs types.Attributes) (*T, error) {
	product := r.factory()
	entity, ok := product.(*T)
	if !ok || entity == nil {
		return nil, &TypeMismatchError{
			Descriptor: r.descriptor,
			Expected:   reflect.TypeOf((*T)(nil)).String(),
			Actual:     fmt.Sprintf("%T", product),
			Reason:     "factory does not construct the repository model",
		}
	}
	if len(attrs) == 0 {
		return entity, nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "bun",
		WeaklyTypedInput: true,
		MatchName:        matchColumn,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
		Result:           entity,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(map[string]interface{}(attrs)); err != nil {
		return nil, fmt.Errorf("decode %s attributes: %w", r.descriptor, err)
	}
	return entity, nil
}

// matchColumn matches "first_name" against both the bun column name and the
// Go field name FirstName.
func matchColumn(key, field string) bool {
	return strings.EqualFold(strings.ReplaceAll(key, "_", ""), strings.ReplaceAll(field, "_", ""))
}
