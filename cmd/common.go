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
package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/ocomsoft/schemashift/internal/config"
	"github.com/ocomsoft/schemashift/internal/migration"
	"github.com/ocomsoft/schemashift/internal/providers"
	"github.com/ocomsoft/schemashift/internal/runner"
)

var (
	cyan   = color.New(color.FgCyan).SprintFunc()
	blue   = color.New(color.FgBlue).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

// loadConfig reads the config file and applies the command line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if migrationsDir != "" {
		cfg.Migration.Directory = migrationsDir
	}
	if dryRun {
		cfg.Output.DryRun = true
	}
	if verbose {
		cfg.Output.Verbose = true
	}
	color.NoColor = color.NoColor || !cfg.Output.ColorEnabled
	return cfg, nil
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{DisableColors: !cfg.Output.ColorEnabled, FullTimestamp: true})
	logger.SetLevel(logrus.WarnLevel)
	if cfg.Output.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// openDB opens and pings the configured database.
func openDB(ctx context.Context, cfg *config.Config, registry *providers.Registry) (*sql.DB, error) {
	driver, err := registry.DriverName(cfg.DatabaseType())
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// openRunner loads the change scripts and connects a runner to the
// database. The caller closes the runner.
func openRunner(ctx context.Context, cfg *config.Config) (*runner.Runner, error) {
	logger := newLogger(cfg)

	migrations, err := migration.NewLoader(cfg.Migration.Directory,
		migration.WithIgnoreFile(cfg.Migration.IgnoreFile),
		migration.WithLogger(logger),
	).Load()
	if err != nil {
		return nil, err
	}
	if cfg.Output.Verbose {
		fmt.Printf("%s Loaded %d migrations from %s\n", blue("▶"), len(migrations), cfg.Migration.Directory)
	}

	registry := providers.NewRegistry()
	db, err := openDB(ctx, cfg, registry)
	if err != nil {
		return nil, err
	}

	opts := []runner.Option{
		runner.WithLogger(logger),
		runner.WithRegistry(registry),
		runner.WithTableName(cfg.Migration.TableName),
	}
	if cfg.Output.DryRun {
		opts = append(opts, runner.WithDryRun(os.Stdout))
	}
	r, err := runner.New(db, cfg.DatabaseType(), migrations, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// migrationLabel names a version by its script when the runner knows it.
func migrationLabel(r *runner.Runner, version int64) string {
	if m := r.Migration(version); m != nil {
		return m.String()
	}
	return fmt.Sprintf("%d", version)
}
