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

	"github.com/go-playground/validator/v10"
	"github.com/tomoncle/polaris/database"
	"github.com/tomoncle/polaris/types"
	"github.com/uptrace/bun"
)

// Factory returns a fresh model instance, a pointer to a bun model struct.
type Factory = func() interface{}

// Container supplies what a repository needs from its application: the
// database handle, descriptor resolution and a logger.
type Container interface {
	DB() bun.IDB
	Resolve(descriptor string) (Factory, bool)
	Logger() database.Logger
}

// ModelScope is a reusable query fragment declared by a model. It receives
// the live query and returns the one that replaces it.
type ModelScope func(q *Query, args ...interface{}) *Query

// ScopeProvider is implemented by models that declare scopes.
type ScopeProvider interface {
	Scopes() map[string]ModelScope
}

// RepositoryScope is a named method added to one repository.
type RepositoryScope[T any] func(r Repository[T], args ...interface{}) Repository[T]

// QueryComposer accumulates filters, ordering and paging on the live query.
// Every method returns the repository so calls chain.
type QueryComposer[T any] interface {
	Where(column string, operator string, value interface{}) Repository[T]
	WhereEq(column string, value interface{}) Repository[T]
	OrWhere(column string, operator string, value interface{}) Repository[T]
	WhereIn(column string, values interface{}) Repository[T]
	WhereNotIn(column string, values interface{}) Repository[T]
	WhereNull(column string) Repository[T]
	WhereNotNull(column string) Repository[T]
	WhereRaw(expr string, args ...interface{}) Repository[T]
	WhereLike(column string, value string) Repository[T]
	Search(value string, columns ...string) Repository[T]
	OrderBy(column string, direction string) Repository[T]
	Take(n int) Repository[T]
	Skip(n int) Repository[T]
	Select(columns ...string) Repository[T]
	AddScopeQuery(fn func(*Query) *Query) Repository[T]
	NewQuery() Repository[T]
}

// QueryRepository runs the live query. Each call resets it afterwards.
type QueryRepository[T any] interface {
	Get(ctx context.Context, columns ...string) ([]*T, error)
	All(ctx context.Context, columns ...string) ([]*T, error)
	First(ctx context.Context, columns ...string) (*T, error)
	Find(ctx context.Context, id interface{}, columns ...string) (*T, error)
	Paginate(ctx context.Context, perPage int, pageName string, page int, columns ...string) (*types.Pagination[T], error)
	Count(ctx context.Context) (int, error)
}

// CrudRepository builds and persists model instances.
type CrudRepository[T any] interface {
	Create(ctx context.Context, attrs types.Attributes) *T
	NewInstance(attrs types.Attributes) (*T, error)
	Model() *T
}

// Repository is a query builder and CRUD facade bound to one model type.
// Instances are not safe for concurrent use.
type Repository[T any] interface {
	QueryComposer[T]
	QueryRepository[T]
	CrudRepository[T]

	// Call invokes a repository or model scope by name.
	Call(name string, args ...interface{}) (Repository[T], error)

	ToSQL() (string, error)
	Bindings() []interface{}
	Query() *Query
	Builder() *bun.SelectQuery
	DB() bun.IDB
	TypeName() string
}

type options[T any] struct {
	scopes       map[string]RepositoryScope[T]
	typeName     string
	pageResolver func(pageName string) int
	validate     *validator.Validate
	paging       database.RepositoryConfig
}

// Option configures a repository built by New.
type Option[T any] func(*options[T])

// WithScope registers a repository scope. It takes precedence over a model
// scope of the same name.
func WithScope[T any](name string, scope RepositoryScope[T]) Option[T] {
	return func(o *options[T]) {
		o.scopes[name] = scope
	}
}

// WithTypeName sets the name reported in MethodNotFoundError.
func WithTypeName[T any](name string) Option[T] {
	return func(o *options[T]) {
		o.typeName = name
	}
}

// WithPageResolver sets how Paginate finds the current page when none is
// given, typically by reading a request parameter named pageName.
func WithPageResolver[T any](resolver func(pageName string) int) Option[T] {
	return func(o *options[T]) {
		o.pageResolver = resolver
	}
}

// WithValidator sets the validator Create runs before inserting.
func WithValidator[T any](v *validator.Validate) Option[T] {
	return func(o *options[T]) {
		o.validate = v
	}
}

// WithPaging sets the defaults Paginate falls back to.
func WithPaging[T any](cfg database.RepositoryConfig) Option[T] {
	return func(o *options[T]) {
		o.paging = cfg
	}
}
