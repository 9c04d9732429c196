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
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tomoncle/polaris/database"
	"github.com/tomoncle/polaris/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type testUser struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID    int64  `bun:"id,pk,autoincrement"`
	Name  string `bun:"name,notnull" validate:"required"`
	Email string `bun:"email,nullzero,unique"`
	Age   int    `bun:"age"`
}

func (testUser) Scopes() map[string]ModelScope {
	return map[string]ModelScope{
		"adults": func(q *Query, _ ...interface{}) *Query {
			return q.Where("age", ">=", 18)
		},
		"olderThan": func(q *Query, args ...interface{}) *Query {
			return q.Where("age", ">", args[0])
		},
	}
}

type keylessRow struct {
	bun.BaseModel `bun:"table:keyless_rows"`

	Label string `bun:"label"`
}

type warning struct {
	msg    string
	fields []interface{}
}

type memoryLogger struct {
	mu       sync.Mutex
	warnings []warning
}

func (l *memoryLogger) SetLevel(database.LogLevel) {}

func (l *memoryLogger) Debug(string, ...interface{}) {}

func (l *memoryLogger) Info(string, ...interface{}) {}

func (l *memoryLogger) Warn(msg string, fields ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, warning{msg: msg, fields: fields})
}

func (l *memoryLogger) Error(string, ...interface{}) {}

func (l *memoryLogger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warnings)
}

type testContainer struct {
	db     bun.IDB
	models database.ModelRegistry
	logger *memoryLogger
}

func (c *testContainer) DB() bun.IDB { return c.db }

func (c *testContainer) Resolve(descriptor string) (Factory, bool) {
	return c.models.Resolve(descriptor)
}

func (c *testContainer) Logger() database.Logger { return c.logger }

// newTestContainer opens a private in-memory SQLite database holding an
// empty users table registered as "users".
func newTestContainer(t *testing.T) *testContainer {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.NewCreateTable().Model((*testUser)(nil)).Exec(context.Background())
	require.NoError(t, err)

	models := database.NewModelRegistry()
	models.Register(database.NewModel[testUser]("users", 0))
	return &testContainer{db: db, models: models, logger: &memoryLogger{}}
}

func newUserRepository(t *testing.T, c *testContainer, opts ...Option[testUser]) Repository[testUser] {
	t.Helper()
	repo, err := New[testUser](c, "users", opts...)
	require.NoError(t, err)
	return repo
}

var seedUsers = []testUser{
	{Name: "alice", Email: "alice@example.com", Age: 34},
	{Name: "bob", Email: "bob@example.com", Age: 17},
	{Name: "carol", Email: "carol@example.com", Age: 25},
	{Name: "dave", Email: "dave@example.com", Age: 19},
	{Name: "erin", Email: "erin@example.com", Age: 12},
	{Name: "frank", Email: "frank@example.com", Age: 45},
	{Name: "grace smith", Email: "grace@example.com", Age: 29},
}

func seed(t *testing.T, c *testContainer) {
	t.Helper()
	users := make([]testUser, len(seedUsers))
	copy(users, seedUsers)
	_, err := c.db.NewInsert().Model(&users).Exec(context.Background())
	require.NoError(t, err)
}

func names(users []*testUser) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.Name)
	}
	return out
}

func attrs(kv ...interface{}) types.Attributes {
	a := types.Attributes{}
	for i := 0; i+1 < len(kv); i += 2 {
		a[kv[i].(string)] = kv[i+1]
	}
	return a
}
