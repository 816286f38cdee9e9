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
// Package migration holds the authoring side of schema changes: the Table
// builder, the Migration unit and the YAML change script loader.
package migration

import (
	"context"
	"fmt"

	"github.com/ocomsoft/schemashift/internal/adapter"
	"github.com/ocomsoft/schemashift/internal/errors"
	"github.com/ocomsoft/schemashift/internal/proxy"
)

// ChangeFunc applies schema changes through a.
type ChangeFunc func(ctx context.Context, a adapter.Adapter) error

// Migration is one versioned unit of schema change. Change is the
// reversible form; Up and Down are used when Change is nil.
type Migration struct {
	Version int64
	Name    string
	Source  string // file the migration was loaded from, if any

	Change ChangeFunc
	Up     ChangeFunc
	Down   ChangeFunc
}

// Validate checks that the migration can at least be applied.
func (m *Migration) Validate() error {
	if m.Version < 1 {
		return errors.NewValidationError("version", fmt.Sprintf("migration %q must have a positive version", m.Name))
	}
	if m.Change == nil && m.Up == nil {
		return errors.NewValidationError("change", fmt.Sprintf("migration %d has neither change nor up", m.Version))
	}
	return nil
}

// String returns the version and name, as in file names.
func (m *Migration) String() string {
	return fmt.Sprintf("%d_%s", m.Version, m.Name)
}

// IsReversible reports whether the migration can be rolled back without
// running it first.
func (m *Migration) IsReversible() bool {
	return m.Change != nil || m.Down != nil
}

// RunUp applies the migration.
func (m *Migration) RunUp(ctx context.Context, a adapter.Adapter) error {
	if m.Change != nil {
		return m.Change(ctx, a)
	}
	if m.Up == nil {
		return errors.NewMigrationError("up", fmt.Sprintf("migration %s has nothing to apply", m))
	}
	return m.Up(ctx, a)
}

// RunDown rolls the migration back. A change migration is recorded against
// a proxy and its inverted actions replayed on a.
func (m *Migration) RunDown(ctx context.Context, a adapter.Adapter) error {
	if m.Change != nil {
		rec := proxy.New(a)
		if err := m.Change(ctx, rec); err != nil {
			return err
		}
		return rec.ExecuteInverted(ctx)
	}
	if m.Down == nil {
		return errors.NewMigrationError("down", fmt.Sprintf("migration %s has no down", m))
	}
	return m.Down(ctx, a)
}
