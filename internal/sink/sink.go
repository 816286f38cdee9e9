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
// Package sink executes the statements adapters produce.
package sink

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Row is one result row keyed by column name. Text columns come back as
// string.
type Row map[string]any

// Sink is where adapters send statements.
type Sink interface {
	Execute(ctx context.Context, query string, args ...any) (int64, error)
	Query(ctx context.Context, query string, args ...any) ([]Row, error)
}

// DB is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SQLSink runs statements on a database/sql handle.
type SQLSink struct {
	db     DB
	dryRun io.Writer
	logger logrus.FieldLogger
}

type Option func(*SQLSink)

// WithDryRun writes statements to w instead of executing them. Queries still
// run, since adapters read the catalog while translating.
func WithDryRun(w io.Writer) Option {
	return func(s *SQLSink) {
		s.dryRun = w
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *SQLSink) {
		s.logger = logger
	}
}

// New returns a sink over db.
func New(db DB, opts ...Option) *SQLSink {
	s := &SQLSink{db: db}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		s.logger = logger
	}
	return s
}

// IsDryRun reports whether statements are only rendered.
func (s *SQLSink) IsDryRun() bool {
	return s.dryRun != nil
}

func (s *SQLSink) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	log := s.logger.WithField("sql", query)
	if s.dryRun != nil {
		log.Debug("dry run")
		if _, err := fmt.Fprintf(s.dryRun, "%s;\n", strings.TrimRight(query, "; \n")); err != nil {
			return 0, err
		}
		return 0, nil
	}

	log.Debug("executing statement")
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.WithError(err).Error("statement failed")
		return 0, fmt.Errorf("failed to execute %q: %w", query, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		// Not every driver reports affected rows for DDL.
		return 0, nil
	}
	return affected, nil
}

func (s *SQLSink) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	s.logger.WithField("sql", query).Trace("querying")
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %q: %w", query, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var result []Row
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(Row, len(columns))
		for i, name := range columns {
			if b, ok := values[i].([]byte); ok {
				row[name] = string(b)
			} else {
				row[name] = values[i]
			}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// String returns the value of key as a string, "" for NULL.
func (r Row) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the value of key as an int64, 0 for NULL or non numeric values.
func (r Row) Int(key string) int64 {
	switch v := r[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		var n int64
		if _, err := fmt.Sscan(v, &n); err == nil {
			return n
		}
	}
	return 0
}
