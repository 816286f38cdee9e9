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
// Package providers holds the dialect providers and the registry that picks
// one by database type.
package providers

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/ocomsoft/schemashift/internal/adapter"
	"github.com/ocomsoft/schemashift/internal/providers/mysql"
	"github.com/ocomsoft/schemashift/internal/providers/postgresql"
	"github.com/ocomsoft/schemashift/internal/providers/sqlite"
	"github.com/ocomsoft/schemashift/internal/providers/sqlserver"
	"github.com/ocomsoft/schemashift/internal/sink"
	"github.com/ocomsoft/schemashift/internal/types"
)

// Factory binds a dialect to a sink.
type Factory func(s sink.Sink, logger logrus.FieldLogger) adapter.Adapter

type entry struct {
	factory Factory
	driver  string
}

// Registry maps database types to provider factories and database/sql
// driver names.
type Registry struct {
	entries map[types.DatabaseType]entry
}

// NewRegistry returns a registry holding every built-in provider.
func NewRegistry() *Registry {
	r := &Registry{entries: make(map[types.DatabaseType]entry)}
	r.Register(types.DatabaseSQLite, "sqlite3", func(s sink.Sink, logger logrus.FieldLogger) adapter.Adapter {
		return sqlite.New(s, logger)
	})
	r.Register(types.DatabasePostgreSQL, "postgres", func(s sink.Sink, logger logrus.FieldLogger) adapter.Adapter {
		return postgresql.New(s, logger)
	})
	r.Register(types.DatabaseMySQL, "mysql", func(s sink.Sink, logger logrus.FieldLogger) adapter.Adapter {
		return mysql.New(s, logger)
	})
	r.Register(types.DatabaseSQLServer, "sqlserver", func(s sink.Sink, logger logrus.FieldLogger) adapter.Adapter {
		return sqlserver.New(s, logger)
	})
	return r
}

// Register adds or replaces the provider for dbType.
func (r *Registry) Register(dbType types.DatabaseType, driver string, factory Factory) {
	r.entries[dbType] = entry{factory: factory, driver: driver}
}

// New creates a provider for dbType writing to s.
func (r *Registry) New(dbType types.DatabaseType, s sink.Sink, logger logrus.FieldLogger) (adapter.Adapter, error) {
	e, ok := r.entries[dbType]
	if !ok {
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
	return e.factory(s, logger), nil
}

// DriverName returns the database/sql driver registered for dbType.
func (r *Registry) DriverName(dbType types.DatabaseType) (string, error) {
	e, ok := r.entries[dbType]
	if !ok {
		return "", fmt.Errorf("unsupported database type: %s", dbType)
	}
	return e.driver, nil
}

// Dialects lists the registered database types in name order.
func (r *Registry) Dialects() []types.DatabaseType {
	dialects := make([]types.DatabaseType, 0, len(r.entries))
	for d := range r.entries {
		dialects = append(dialects, d)
	}
	sort.Slice(dialects, func(i, j int) bool { return dialects[i] < dialects[j] })
	return dialects
}
