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
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/polaris/database"
	"github.com/tomoncle/polaris/repository"
	"github.com/tomoncle/polaris/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type member struct {
	bun.BaseModel `bun:"table:members,alias:m"`

	ID    int64  `bun:"id,pk,autoincrement"`
	Name  string `bun:"name,notnull" validate:"required"`
	Email string `bun:"email,notnull,unique" validate:"required,email"`
	Age   int    `bun:"age"`
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.NewCreateTable().Model((*member)(nil)).Exec(context.Background())
	require.NoError(t, err)

	models := database.NewModelRegistry()
	models.Register(database.NewModel[member]("members", 0))
	return NewApp(db, models, WithPaging(database.RepositoryConfig{PerPage: 2, PageName: "p"}))
}

func saveMembers(t *testing.T, svc Service[member]) {
	t.Helper()
	for _, a := range []types.Attributes{
		{"name": "ann", "email": "ann@example.com", "age": 30},
		{"name": "ben", "email": "ben@example.com", "age": 22},
		{"name": "cat", "email": "cat@example.com", "age": 41},
	} {
		_, err := svc.Save(context.Background(), a)
		require.NoError(t, err)
	}
}

func TestNewRepositoryResolvesDescriptors(t *testing.T) {
	app := newTestApp(t)

	repo, err := NewRepository[member](app, "members")
	require.NoError(t, err)
	assert.Equal(t, app.DB(), repo.DB())

	_, err = NewRepository[member](app, "unknown")
	var cfgErr *repository.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)

	_, err = NewRepository[member](nil, "members")
	assert.ErrorAs(t, err, &cfgErr)
}

func TestNewRepositoryUsesAppPaging(t *testing.T) {
	app := newTestApp(t)
	svc := NewService[member](app, "members")
	saveMembers(t, svc)

	repo, err := NewRepository[member](app, "members")
	require.NoError(t, err)
	page, err := repo.Paginate(context.Background(), 0, "", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, page.PageSize)
	assert.Equal(t, "p", page.PageName)
	assert.Equal(t, 2, page.LastPage)
}

func TestServiceCRUD(t *testing.T) {
	app := newTestApp(t)
	svc := NewService[member](app, "members")
	ctx := context.Background()
	saveMembers(t, svc)

	all, err := svc.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	older, err := svc.List(ctx, types.NewQueryFilter("age > ?", 25))
	require.NoError(t, err)
	assert.Len(t, older, 2)

	n, err := svc.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = svc.Count(ctx, types.NewQueryFilter("name = ?", "ben"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ben := older[0]
	for _, m := range all {
		if m.Name == "ben" {
			ben = m
		}
	}
	ben.Age = 23
	require.NoError(t, svc.Update(ctx, ben))
	got, err := svc.Get(ctx, ben.ID)
	require.NoError(t, err)
	assert.Equal(t, 23, got.Age)

	require.NoError(t, svc.Delete(ctx, ben.ID))
	_, err = svc.Get(ctx, ben.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, ben.ID), repository.ErrNotFound)
}

func TestServiceSaveRejected(t *testing.T) {
	app := newTestApp(t)
	svc := NewService[member](app, "members")
	ctx := context.Background()

	_, err := svc.Save(ctx, types.Attributes{"name": "x", "email": "not-an-email"})
	assert.ErrorIs(t, err, ErrNotSaved)

	_, err = svc.Save(ctx, types.Attributes{"name": "x", "email": "x@example.com"})
	require.NoError(t, err)
	_, err = svc.Save(ctx, types.Attributes{"name": "y", "email": "x@example.com"})
	assert.ErrorIs(t, err, ErrNotSaved)
}

func TestServicePage(t *testing.T) {
	app := newTestApp(t)
	svc := NewService[member](app, "members")
	ctx := context.Background()
	saveMembers(t, svc)

	page, err := svc.Page(ctx, types.NewPageRequest(1, 2, types.NewQueryFilter("age >= ?", 22), []string{"age desc"}))
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "cat", page.Items[0].Name)
	assert.Equal(t, "ann", page.Items[1].Name)

	page, err = svc.Page(ctx, types.NewPageRequestWithOrders(2, 2, []string{"name"}))
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "cat", page.Items[0].Name)

	_, err = svc.Page(ctx, types.NewPageRequestWithOrders(1, 2, []string{"name sideways"}))
	assert.ErrorIs(t, err, repository.ErrInvalidDirection)
}

func TestServiceSaveOrUpdate(t *testing.T) {
	app := newTestApp(t)
	svc := NewService[member](app, "members")
	ctx := context.Background()
	saveMembers(t, svc)

	err := svc.SaveOrUpdate(ctx, []string{"age"}, []string{"email"},
		&member{Name: "ann", Email: "ann@example.com", Age: 31},
		&member{Name: "dan", Email: "dan@example.com", Age: 50},
	)
	require.NoError(t, err)

	n, err := svc.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	list, err := svc.List(ctx, types.NewQueryFilter("email = ?", "ann@example.com"))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 31, list[0].Age)

	assert.Error(t, svc.SaveOrUpdate(ctx, nil, nil, &member{}))
}

func TestRunInTx(t *testing.T) {
	app := newTestApp(t)
	svc := NewService[member](app, "members")
	ctx := context.Background()
	rollback := errors.New("rollback")

	err := app.RunInTx(ctx, func(ctx context.Context, tx *App) error {
		_, err := NewService[member](tx, "members").Save(ctx, types.Attributes{"name": "tx", "email": "tx@example.com"})
		require.NoError(t, err)
		return rollback
	})
	assert.ErrorIs(t, err, rollback)
	n, err := svc.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	err = app.RunInTx(ctx, func(ctx context.Context, tx *App) error {
		_, err := NewService[member](tx, "members").Save(ctx, types.Attributes{"name": "tx", "email": "tx@example.com"})
		return err
	})
	require.NoError(t, err)
	n, err = svc.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOpenMigratesRegisteredModels(t *testing.T) {
	cfg := database.DefaultConfig()
	cfg.ConnectionConfig.Type = "sqlite"
	cfg.ConnectionConfig.DBName = ":memory:"
	cfg.ConnectionConfig.SlowQueryTime = 0
	cfg.DataMigrateConfig.EnableMigrateOnStartup = true
	cfg.RepositoryConfig.PerPage = 7

	models := database.NewModelRegistry()
	models.Register(database.NewModel[member]("members", 0))

	app, err := Open(context.Background(), cfg, models)
	require.NoError(t, err)
	defer func() { assert.NoError(t, app.Close()) }()

	svc := NewService[member](app, "members")
	saved, err := svc.Save(context.Background(), types.Attributes{"name": "m", "email": "m@example.com"})
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)

	page, err := svc.Page(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, types.DefaultPerPage, page.PageSize)

	repo, err := svc.Repository()
	require.NoError(t, err)
	page, err = repo.Paginate(context.Background(), 0, "", 1)
	require.NoError(t, err)
	assert.Equal(t, 7, page.PageSize)
}

func TestOpenRejectsNilConfig(t *testing.T) {
	_, err := Open(context.Background(), nil, nil)
	assert.Error(t, err)
}
