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

package database

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/uptrace/bun"
)

// MigrationManager creates the tables of registered models and records every
// applied step so that it runs once.
type MigrationManager struct {
	db       *bun.DB
	registry ModelRegistry
	logger   Logger
}

// Migration represents an applied migration record stored in the database.
type Migration struct {
	bun.BaseModel `bun:"table:polaris_migrations"`

	Version     string    `bun:"version,pk"`
	Name        string    `bun:"name"`
	AppliedAt   time.Time `bun:"applied_at,nullzero,notnull,default:current_timestamp"`
	Description string    `bun:"description"`
}

// MigrationFunc is a migration step executed within a transaction.
type MigrationFunc func(ctx context.Context, db bun.IDB) error

// MigrationItem describes a single migration version with up/down functions.
type MigrationItem struct {
	Version     string
	Name        string
	Description string
	Up          MigrationFunc
	Down        MigrationFunc
}

// NewMigrationManager constructs a MigrationManager for the models of registry.
func NewMigrationManager(db *bun.DB, registry ModelRegistry, logger Logger) *MigrationManager {
	if logger == nil {
		logger = GetLogger()
	}
	return &MigrationManager{db: db, registry: registry, logger: logger}
}

// RunMigrations creates the migration tracking table if needed and applies
// the pending migrations in model priority order.
func (mm *MigrationManager) RunMigrations(ctx context.Context) error {
	if mm.db == nil {
		return fmt.Errorf("database not initialized")
	}
	if err := mm.createMigrationTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := mm.appliedVersions(ctx)
	if err != nil {
		return err
	}
	for _, migration := range mm.getAllMigrations() {
		if _, ok := applied[migration.Version]; ok {
			continue
		}
		if err := mm.runMigration(ctx, migration); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", migration.Version, err)
		}
	}

	mm.logger.Info("Database migrations completed!")
	return nil
}

func (mm *MigrationManager) createMigrationTable(ctx context.Context) error {
	_, err := mm.db.NewCreateTable().Model((*Migration)(nil)).IfNotExists().Exec(ctx)
	return err
}

func (mm *MigrationManager) appliedVersions(ctx context.Context) (map[string]struct{}, error) {
	migrations, err := mm.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	versions := make(map[string]struct{}, len(migrations))
	for _, m := range migrations {
		versions[m.Version] = struct{}{}
	}
	return versions, nil
}

func (mm *MigrationManager) getAllMigrations() []MigrationItem {
	if mm.registry == nil {
		return nil
	}
	models := mm.registry.Models()
	items := make([]MigrationItem, 0, len(models))
	for _, model := range models {
		instance := model.Instance()
		if instance == nil {
			continue
		}
		items = append(items, MigrationItem{
			Version:     "create_table_" + model.Name(),
			Name:        model.Name(),
			Description: "create table for " + getModelName(instance),
			Up: func(ctx context.Context, db bun.IDB) error {
				_, err := db.NewCreateTable().Model(instance).IfNotExists().Exec(ctx)
				return err
			},
			Down: func(ctx context.Context, db bun.IDB) error {
				_, err := db.NewDropTable().Model(instance).IfExists().Exec(ctx)
				return err
			},
		})
	}
	return items
}

func (mm *MigrationManager) runMigration(ctx context.Context, migration MigrationItem) error {
	return mm.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := migration.Up(ctx, tx); err != nil {
			return err
		}
		record := &Migration{
			Version:     migration.Version,
			Name:        migration.Name,
			AppliedAt:   time.Now(),
			Description: migration.Description,
		}
		if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}
		mm.logger.Debug("Migration applied", "version", migration.Version)
		return nil
	})
}

func getModelName(model interface{}) string {
	t := reflect.TypeOf(model)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// GetAppliedMigrations lists the recorded migrations ordered by version.
func (mm *MigrationManager) GetAppliedMigrations(ctx context.Context) ([]Migration, error) {
	var migrations []Migration
	err := mm.db.NewSelect().Model(&migrations).Order("version ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list applied migrations: %w", err)
	}
	return migrations, nil
}

// RollbackMigration runs the down step of version and removes its record.
func (mm *MigrationManager) RollbackMigration(ctx context.Context, version string) error {
	for _, migration := range mm.getAllMigrations() {
		if migration.Version != version {
			continue
		}
		return mm.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if err := migration.Down(ctx, tx); err != nil {
				return err
			}
			_, err := tx.NewDelete().Model((*Migration)(nil)).Where("version = ?", version).Exec(ctx)
			return err
		})
	}
	return fmt.Errorf("migration %s not found", version)
}
