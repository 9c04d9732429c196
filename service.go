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

package polaris

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tomoncle/polaris/repository"
	"github.com/tomoncle/polaris/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
)

// ErrNotSaved is returned by Save when the repository refused to create the
// entity. The cause is logged by the repository.
var ErrNotSaved = errors.New("entity not saved")

type Service[T any] interface {
	// Get returns a single entity by its primary key.
	Get(ctx context.Context, id any) (*T, error)

	// All returns all entities.
	All(ctx context.Context) ([]*T, error)

	// List returns entities that match the provided filter.
	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	// Page returns a paginated list of entities.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	// Count returns the number of entities matching filter, all of them when nil.
	Count(ctx context.Context, filter *types.QueryFilter) (int, error)

	// Save creates an entity from its column attributes.
	Save(ctx context.Context, attrs types.Attributes) (*T, error)

	// SaveOrUpdate upserts entities, updating fields on a duplicateKeys conflict.
	SaveOrUpdate(ctx context.Context, fields []string, duplicateKeys []string, model ...*T) error

	// Update modifies an existing entity by primary key.
	Update(ctx context.Context, model *T) error

	// Delete removes an entity by its primary key.
	Delete(ctx context.Context, id any) error

	// Repository returns a fresh repository for custom queries.
	Repository() (repository.Repository[T], error)
}

type baseServiceImpl[T any] struct {
	app        *App
	descriptor string
	opts       []repository.Option[T]
}

// NewService returns a Service for the model registered under descriptor.
// Every call builds its own repository, so a Service may be shared between
// goroutines.
func NewService[T any](app *App, descriptor string, opts ...repository.Option[T]) Service[T] {
	return &baseServiceImpl[T]{app: app, descriptor: descriptor, opts: opts}
}

func (s *baseServiceImpl[T]) Repository() (repository.Repository[T], error) {
	return NewRepository[T](s.app, s.descriptor, s.opts...)
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id any) (*T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.Find(ctx, id)
}

func (s *baseServiceImpl[T]) All(ctx context.Context) ([]*T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.All(ctx)
}

func (s *baseServiceImpl[T]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	repo, err := s.filtered(filter)
	if err != nil {
		return nil, err
	}
	return repo.Get(ctx)
}

func (s *baseServiceImpl[T]) Count(ctx context.Context, filter *types.QueryFilter) (int, error) {
	repo, err := s.filtered(filter)
	if err != nil {
		return 0, err
	}
	return repo.Count(ctx)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, pageRequest *types.PageRequest) (*types.Pagination[T], error) {
	if pageRequest == nil {
		pageRequest = types.NewDefaultPageRequest(1, types.DefaultPerPage)
	}
	repo, err := s.filtered(pageRequest.GetFilter())
	if err != nil {
		return nil, err
	}
	// orders are "column" or "column direction"
	for _, order := range pageRequest.GetOrders() {
		parts := strings.Fields(order)
		switch len(parts) {
		case 0:
		case 1:
			repo.OrderBy(parts[0], "")
		default:
			repo.OrderBy(parts[0], parts[1])
		}
	}
	return repo.Paginate(ctx, pageRequest.GetPageSize(), "", pageRequest.GetPage())
}

func (s *baseServiceImpl[T]) filtered(filter *types.QueryFilter) (repository.Repository[T], error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	if filter != nil && filter.Schema != "" {
		repo.WhereRaw(filter.Schema, filter.Args...)
	}
	return repo, nil
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, attrs types.Attributes) (*T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	model := repo.Create(ctx, attrs)
	if model == nil {
		return nil, fmt.Errorf("%s: %w", s.descriptor, ErrNotSaved)
	}
	return model, nil
}

func (s *baseServiceImpl[T]) Update(ctx context.Context, model *T) error {
	repo, err := s.Repository()
	if err != nil {
		return err
	}
	_, err = repo.DB().NewUpdate().Model(model).WherePK().Exec(ctx)
	return err
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id any) error {
	repo, err := s.Repository()
	if err != nil {
		return err
	}
	model, err := repo.Find(ctx, id)
	if err != nil {
		return err
	}
	_, err = repo.DB().NewDelete().Model(model).WherePK().Exec(ctx)
	return err
}

func (s *baseServiceImpl[T]) SaveOrUpdate(ctx context.Context, fields []string, duplicateKeys []string, model ...*T) error {
	if len(fields) == 0 {
		return fmt.Errorf("fields cannot be empty")
	}
	if len(model) == 0 {
		return nil
	}
	repo, err := s.Repository()
	if err != nil {
		return err
	}
	db := repo.DB()
	entities := make([]*T, len(model))
	copy(entities, model)

	switch {
	case db.Dialect().Features().Has(feature.InsertOnConflict):
		return upsertOnConflict(ctx, db.NewInsert(), fields, duplicateKeys, entities)
	case db.Dialect().Features().Has(feature.InsertOnDuplicateKey):
		return upsertOnDuplicateKey(ctx, db.NewInsert(), fields, entities)
	default:
		return upsertFallback(ctx, db, entities)
	}
}

func upsertOnDuplicateKey[T any](ctx context.Context, insertQuery *bun.InsertQuery, fields []string, entities []*T) error {
	set, args := assignments("? = VALUES(?)", fields)
	_, err := insertQuery.
		Model(&entities).
		On("DUPLICATE KEY UPDATE "+set, args...).
		Exec(ctx)
	return err
}

func upsertOnConflict[T any](ctx context.Context, insertQuery *bun.InsertQuery, fields []string, duplicateKeys []string, entities []*T) error {
	if len(duplicateKeys) == 0 {
		duplicateKeys = []string{"id"}
	}
	set, args := assignments("? = EXCLUDED.?", fields)
	_, err := insertQuery.
		Model(&entities).
		On("CONFLICT (?) DO UPDATE", bun.In(identifiers(duplicateKeys))).
		Set(set, args...).
		Exec(ctx)
	return err
}

func upsertFallback[T any](ctx context.Context, db bun.IDB, entities []*T) error {
	for _, entity := range entities {
		_, err := db.NewInsert().Model(entity).Exec(ctx)
		if err != nil {
			_, updateErr := db.NewUpdate().Model(entity).WherePK().Exec(ctx)
			if updateErr != nil {
				return fmt.Errorf("upsert failed for entity: insert error: %v, update error: %v", err, updateErr)
			}
		}
	}
	return nil
}

func identifiers(names []string) []bun.Ident {
	out := make([]bun.Ident, len(names))
	for i, name := range names {
		out[i] = bun.Ident(name)
	}
	return out
}

// assignments repeats expr, which holds two placeholders, once per field
// with the field bound to both.
func assignments(expr string, fields []string) (string, []interface{}) {
	parts := make([]string, 0, len(fields))
	args := make([]interface{}, 0, 2*len(fields))
	for _, field := range fields {
		parts = append(parts, expr)
		args = append(args, bun.Ident(field), bun.Ident(field))
	}
	return strings.Join(parts, ", "), args
}
