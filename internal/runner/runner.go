/*
MIT License

# Copyright (c) 2025 OcomSoft

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/
// Package runner applies migrations through a goose provider, which keeps
// the version ledger and wraps every migration in a transaction.
package runner

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"io"
	"sort"
	"time"

	goose "github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"github.com/ocomsoft/schemashift/internal/adapter"
	"github.com/ocomsoft/schemashift/internal/errors"
	"github.com/ocomsoft/schemashift/internal/migration"
	"github.com/ocomsoft/schemashift/internal/providers"
	"github.com/ocomsoft/schemashift/internal/sink"
	"github.com/ocomsoft/schemashift/internal/types"
)

// gooseDialects maps database types to the goose ledger dialects.
var gooseDialects = map[types.DatabaseType]goose.Dialect{
	types.DatabaseSQLite:     goose.DialectSQLite3,
	types.DatabasePostgreSQL: goose.DialectPostgres,
	types.DatabaseMySQL:      goose.DialectMySQL,
	types.DatabaseSQLServer:  goose.DialectMSSQL,
}

// GooseDialect returns the goose dialect used for dbType.
func GooseDialect(dbType types.DatabaseType) (goose.Dialect, error) {
	d, ok := gooseDialects[dbType]
	if !ok {
		return "", fmt.Errorf("unsupported database type: %s", dbType)
	}
	return d, nil
}

// Runner runs migrations against one database.
type Runner struct {
	db         *sql.DB
	dbType     types.DatabaseType
	registry   *providers.Registry
	provider   *goose.Provider
	migrations map[int64]*migration.Migration
	logger     logrus.FieldLogger
	dryRun     io.Writer
	tableName  string

	// set while SQLite enforcement is suspended for a goose run
	checkForeignKeys bool
}

type Option func(*Runner)

func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithDryRun renders the statements of pending migrations to w instead of
// executing them. No versions are recorded.
func WithDryRun(w io.Writer) Option {
	return func(r *Runner) {
		r.dryRun = w
	}
}

func WithRegistry(registry *providers.Registry) Option {
	return func(r *Runner) {
		r.registry = registry
	}
}

// WithTableName overrides the goose version table name.
func WithTableName(name string) Option {
	return func(r *Runner) {
		r.tableName = name
	}
}

// New registers migrations with a goose provider over db. A SQLite db is
// limited to one open connection so that pragmas set by the runner reach
// the connection goose migrates on.
func New(db *sql.DB, dbType types.DatabaseType, migrations []*migration.Migration, opts ...Option) (*Runner, error) {
	r := &Runner{
		db:         db,
		dbType:     dbType,
		migrations: make(map[int64]*migration.Migration, len(migrations)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry == nil {
		r.registry = providers.NewRegistry()
	}
	if r.logger == nil {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		r.logger = logger
	}
	r.logger = r.logger.WithField("dialect", dbType)
	if dbType == types.DatabaseSQLite {
		db.SetMaxOpenConns(1)
	}

	dialect, err := GooseDialect(dbType)
	if err != nil {
		return nil, err
	}

	var registered []*goose.Migration
	for _, m := range migrations {
		if err := m.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.migrations[m.Version]; dup {
			return nil, errors.NewValidationError("version", fmt.Sprintf("duplicate migration version %d", m.Version))
		}
		r.migrations[m.Version] = m
		registered = append(registered, goose.NewGoMigration(m.Version,
			&goose.GoFunc{RunTx: r.runTx(m, true)},
			&goose.GoFunc{RunTx: r.runTx(m, false)},
		))
	}

	providerOpts := []goose.ProviderOption{
		goose.WithGoMigrations(registered...),
		goose.WithDisableGlobalRegistry(true),
		goose.WithLogger(r.logger),
	}
	if r.tableName != "" {
		providerOpts = append(providerOpts, goose.WithTableName(r.tableName))
	}
	provider, err := goose.NewProvider(dialect, db, nil, providerOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	r.provider = provider
	return r, nil
}

// Migration returns the registered migration with version, or nil.
func (r *Runner) Migration(version int64) *migration.Migration {
	return r.migrations[version]
}

// runTx runs one direction of m inside the goose transaction.
func (r *Runner) runTx(m *migration.Migration, up bool) func(ctx context.Context, tx *sql.Tx) error {
	return func(ctx context.Context, tx *sql.Tx) error {
		a, err := r.adapterFor(tx)
		if err != nil {
			return err
		}
		if err := r.run(ctx, a, m, up); err != nil {
			return err
		}
		if r.checkForeignKeys {
			return r.verifyForeignKeys(ctx, tx, m, up)
		}
		return nil
	}
}

func (r *Runner) run(ctx context.Context, a adapter.Adapter, m *migration.Migration, up bool) error {
	direction := "down"
	if up {
		direction = "up"
	}
	log := r.logger.WithFields(logrus.Fields{
		"version":   m.Version,
		"migration": m.Name,
		"direction": direction,
	})
	log.Debug("Running migration")

	var err error
	if up {
		err = m.RunUp(ctx, a)
	} else {
		err = m.RunDown(ctx, a)
	}
	if err != nil {
		log.WithError(err).Error("Migration failed")
		return fmt.Errorf("migration %s %s: %w", m, direction, err)
	}
	return nil
}

func (r *Runner) adapterFor(db sink.DB) (adapter.Adapter, error) {
	opts := []sink.Option{sink.WithLogger(r.logger)}
	if r.dryRun != nil {
		opts = append(opts, sink.WithDryRun(r.dryRun))
	}
	return r.registry.New(r.dbType, sink.New(db, opts...), r.logger)
}

// Up applies every pending migration.
func (r *Runner) Up(ctx context.Context) ([]*goose.MigrationResult, error) {
	if r.dryRun != nil {
		return r.dryRunUp(ctx, -1)
	}
	var results []*goose.MigrationResult
	err := r.suspendForeignKeys(ctx, func() (err error) {
		results, err = r.provider.Up(ctx)
		return err
	})
	return results, err
}

// UpTo applies pending migrations up to and including version.
func (r *Runner) UpTo(ctx context.Context, version int64) ([]*goose.MigrationResult, error) {
	if r.dryRun != nil {
		return r.dryRunUp(ctx, version)
	}
	var results []*goose.MigrationResult
	err := r.suspendForeignKeys(ctx, func() (err error) {
		results, err = r.provider.UpTo(ctx, version)
		return err
	})
	return results, err
}

// Down rolls back the most recently applied migration.
func (r *Runner) Down(ctx context.Context) (*goose.MigrationResult, error) {
	if r.dryRun != nil {
		return r.dryRunDown(ctx)
	}
	var result *goose.MigrationResult
	err := r.suspendForeignKeys(ctx, func() (err error) {
		result, err = r.provider.Down(ctx)
		return err
	})
	return result, err
}

// DownTo rolls back applied migrations newer than version.
func (r *Runner) DownTo(ctx context.Context, version int64) ([]*goose.MigrationResult, error) {
	if r.dryRun != nil {
		return nil, errors.NewUnsupportedOperationError(string(r.dbType), "dry run of down-to")
	}
	var results []*goose.MigrationResult
	err := r.suspendForeignKeys(ctx, func() (err error) {
		results, err = r.provider.DownTo(ctx, version)
		return err
	})
	return results, err
}

// suspendForeignKeys runs fn with SQLite foreign key enforcement turned off.
// The pragma is a no-op inside a transaction, so it is set on the pooled
// connection before goose begins one. Each migration then checks every key
// before its transaction commits.
func (r *Runner) suspendForeignKeys(ctx context.Context, fn func() error) error {
	if r.dbType != types.DatabaseSQLite {
		return fn()
	}
	enabled, err := r.setForeignKeys(ctx, false)
	if err != nil {
		return err
	}
	if !enabled {
		return fn()
	}

	r.checkForeignKeys = true
	runErr := fn()
	r.checkForeignKeys = false
	if _, err := r.setForeignKeys(context.WithoutCancel(ctx), true); err != nil {
		return stderrors.Join(runErr, fmt.Errorf("failed to restore foreign key enforcement: %w", err))
	}
	return runErr
}

// setForeignKeys sets PRAGMA foreign_keys and reports whether enforcement
// was on before.
func (r *Runner) setForeignKeys(ctx context.Context, on bool) (bool, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	var was int
	if err := conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&was); err != nil {
		return false, fmt.Errorf("failed to read foreign key enforcement: %w", err)
	}
	value := "OFF"
	if on {
		value = "ON"
	}
	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = "+value); err != nil {
		return false, fmt.Errorf("failed to set foreign key enforcement: %w", err)
	}
	return was == 1, nil
}

// verifyForeignKeys fails the migration when it left rows pointing at
// missing parents, so goose rolls the transaction back.
func (r *Runner) verifyForeignKeys(ctx context.Context, tx *sql.Tx, m *migration.Migration, up bool) error {
	rows, err := tx.QueryContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return fmt.Errorf("failed to check foreign keys: %w", err)
	}
	defer rows.Close()

	var table string
	var violations []string
	for rows.Next() {
		var (
			child, parent string
			rowid         sql.NullInt64
			fkid          int64
		)
		if err := rows.Scan(&child, &rowid, &parent, &fkid); err != nil {
			return fmt.Errorf("failed to check foreign keys: %w", err)
		}
		if table == "" {
			table = child
		}
		violations = append(violations, fmt.Sprintf("%s row %d references a missing %s row", child, rowid.Int64, parent))
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to check foreign keys: %w", err)
	}
	if len(violations) == 0 {
		return nil
	}

	direction := "down"
	if up {
		direction = "up"
	}
	r.logger.WithFields(logrus.Fields{"version": m.Version, "violations": len(violations)}).Error("Migration broke foreign keys")
	return fmt.Errorf("migration %s %s: %w", m, direction, errors.NewIntegrityViolationError(table, violations))
}

// Status reports every registered migration and whether it is applied.
func (r *Runner) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	return r.provider.Status(ctx)
}

// Version returns the current database version.
func (r *Runner) Version(ctx context.Context) (int64, error) {
	return r.provider.GetDBVersion(ctx)
}

// Close closes the underlying database.
func (r *Runner) Close() error {
	return r.provider.Close()
}

// dryRunUp renders pending migrations up to target (all when negative)
// without a transaction or ledger write.
func (r *Runner) dryRunUp(ctx context.Context, target int64) ([]*goose.MigrationResult, error) {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return nil, err
	}
	a, err := r.adapterFor(r.db)
	if err != nil {
		return nil, err
	}
	var results []*goose.MigrationResult
	for _, s := range statuses {
		if s.State != goose.StatePending || (target >= 0 && s.Source.Version > target) {
			continue
		}
		res, err := r.dryRunOne(ctx, a, s.Source, true)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *Runner) dryRunDown(ctx context.Context) (*goose.MigrationResult, error) {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return nil, err
	}
	var applied []*goose.MigrationStatus
	for _, s := range statuses {
		if s.State == goose.StateApplied {
			applied = append(applied, s)
		}
	}
	if len(applied) == 0 {
		return nil, goose.ErrNoNextVersion
	}
	sort.Slice(applied, func(i, j int) bool {
		return applied[i].Source.Version > applied[j].Source.Version
	})
	a, err := r.adapterFor(r.db)
	if err != nil {
		return nil, err
	}
	return r.dryRunOne(ctx, a, applied[0].Source, false)
}

func (r *Runner) dryRunOne(ctx context.Context, a adapter.Adapter, source *goose.Source, up bool) (*goose.MigrationResult, error) {
	m := r.migrations[source.Version]
	if m == nil {
		return nil, errors.NewMigrationError("dry-run", fmt.Sprintf("version %d is not registered", source.Version))
	}
	direction := "down"
	if up {
		direction = "up"
	}
	start := time.Now()
	err := r.run(ctx, a, m, up)
	res := &goose.MigrationResult{
		Source:    &goose.Source{Type: goose.TypeGo, Path: m.Source, Version: m.Version},
		Duration:  time.Since(start),
		Direction: direction,
		Error:     err,
	}
	return res, err
}

// IsNoMigrations reports whether err means there was nothing to register.
func IsNoMigrations(err error) bool {
	return stderrors.Is(err, goose.ErrNoMigrations)
}

// IsNothingToRollBack reports whether err means no migration is applied.
func IsNothingToRollBack(err error) bool {
	return stderrors.Is(err, goose.ErrNoNextVersion)
}
