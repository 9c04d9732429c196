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

// Package polaris wires repositories to a database: App is the container
// holding the bun handle, the model registry and the logger, and Service
// offers per-call CRUD on top of a repository.
package polaris

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomoncle/polaris/database"
	"github.com/tomoncle/polaris/repository"
	"github.com/tomoncle/polaris/types"
	"github.com/uptrace/bun"
)

// App resolves entity descriptors and hands out the database handle to
// repositories. It is safe for concurrent use; repositories built from it
// are not.
type App struct {
	db      bun.IDB
	models  database.ModelRegistry
	logger  database.Logger
	paging  database.RepositoryConfig
	factory *database.BaseDatabaseFactory
}

var _ repository.Container = (*App)(nil)

type AppOption func(*App)

func WithLogger(logger database.Logger) AppOption {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithPaging sets the Paginate defaults of every repository built from the App.
func WithPaging(cfg database.RepositoryConfig) AppOption {
	return func(a *App) {
		a.paging = cfg
	}
}

// NewApp returns an App over db resolving descriptors through models.
func NewApp(db bun.IDB, models database.ModelRegistry, opts ...AppOption) *App {
	if models == nil {
		models = database.NewModelRegistry()
	}
	app := &App{
		db:     db,
		models: models,
		logger: database.GetLogger(),
		paging: database.RepositoryConfig{
			PerPage:  types.DefaultPerPage,
			PageName: types.DefaultPageName,
		},
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// Open connects with cfg through database.Open and returns an App owning the
// connection. Close releases it.
func Open(ctx context.Context, cfg *database.Config, models database.ModelRegistry, opts ...AppOption) (*App, error) {
	if models == nil {
		models = database.NewModelRegistry()
	}
	factory, err := database.Open(ctx, cfg, models)
	if err != nil {
		return nil, err
	}
	opts = append([]AppOption{WithPaging(cfg.RepositoryConfig)}, opts...)
	app := NewApp(factory.GetDB(), models, opts...)
	app.factory = factory
	return app, nil
}

func (a *App) DB() bun.IDB { return a.db }

func (a *App) Models() database.ModelRegistry { return a.models }

func (a *App) Logger() database.Logger { return a.logger }

func (a *App) Resolve(descriptor string) (repository.Factory, bool) {
	return a.models.Resolve(descriptor)
}

// RunInTx runs fn inside a transaction. The App passed to fn shares the
// registry and logger but routes every query through the transaction; it
// commits when fn returns nil and rolls back otherwise.
func (a *App) RunInTx(ctx context.Context, fn func(ctx context.Context, tx *App) error) error {
	if a.db == nil {
		return fmt.Errorf("polaris: app has no database")
	}
	return a.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		scoped := *a
		scoped.db = tx
		scoped.factory = nil
		return fn(ctx, &scoped)
	})
}

// Close closes the connection opened by Open. Apps built with NewApp leave
// the handle to their owner.
func (a *App) Close() error {
	if a.factory == nil {
		return nil
	}
	return a.factory.Close()
}

// NewRepository builds a repository for the model registered under
// descriptor, with the App's paging defaults.
func NewRepository[T any](app *App, descriptor string, opts ...repository.Option[T]) (repository.Repository[T], error) {
	if app == nil {
		return repository.New[T](nil, descriptor, opts...)
	}
	opts = append([]repository.Option[T]{repository.WithPaging[T](app.paging)}, opts...)
	return repository.New[T](app, descriptor, opts...)
}
