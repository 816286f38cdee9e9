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
package migration

import (
	"context"
	"fmt"

	"github.com/ocomsoft/schemashift/internal/action"
	"github.com/ocomsoft/schemashift/internal/adapter"
	"github.com/ocomsoft/schemashift/internal/plan"
	"github.com/ocomsoft/schemashift/internal/types"
)

// Table collects pending changes to one table and flushes them through a
// plan. Builder methods chain; the first invalid change is kept and
// reported by the flushing call.
//
//	err := migration.NewTable(a, "users", types.TableOptions{}).
//		AddColumn(types.Column{Name: "email", Type: types.ColumnString}).
//		AddIndex([]string{"email"}, types.Index{Type: types.IndexUnique}).
//		Create(ctx)
type Table struct {
	table   *types.Table
	adapter adapter.Adapter
	pending []action.Action
	err     error
}

func NewTable(a adapter.Adapter, name string, opts types.TableOptions) *Table {
	return &Table{table: &types.Table{Name: name, Options: opts}, adapter: a}
}

func (t *Table) Name() string {
	return t.table.Name
}

// Exists reports whether the table is present in the database.
func (t *Table) Exists(ctx context.Context) (bool, error) {
	return t.adapter.HasTable(ctx, t.table.Name)
}

func (t *Table) HasColumn(ctx context.Context, name string) (bool, error) {
	return t.adapter.HasColumn(ctx, t.table.Name, name)
}

func (t *Table) HasIndex(ctx context.Context, columns ...string) (bool, error) {
	return t.adapter.HasIndex(ctx, t.table.Name, columns)
}

func (t *Table) HasForeignKey(ctx context.Context, columns []string, constraint string) (bool, error) {
	return t.adapter.HasForeignKey(ctx, t.table.Name, columns, constraint)
}

// PendingActions returns the changes not yet flushed.
func (t *Table) PendingActions() []action.Action {
	return append([]action.Action(nil), t.pending...)
}

// Err returns the first builder error.
func (t *Table) Err() error {
	return t.err
}

func (t *Table) add(a action.Action, err error) *Table {
	if t.err != nil {
		return t
	}
	if err != nil {
		t.err = fmt.Errorf("table %s: %w", t.table.Name, err)
		return t
	}
	t.pending = append(t.pending, a)
	return t
}

func (t *Table) AddColumn(column types.Column) *Table {
	return t.add(action.BuildAddColumn(t.table, column))
}

func (t *Table) RemoveColumn(name string) *Table {
	return t.add(action.BuildDropColumn(t.table, name))
}

func (t *Table) RenameColumn(oldName, newName string) *Table {
	return t.add(action.BuildRenameColumn(t.table, oldName, newName))
}

func (t *Table) ChangeColumn(name string, column types.Column) *Table {
	return t.add(action.BuildChangeColumn(t.table, name, column))
}

func (t *Table) AddIndex(columns []string, opts types.Index) *Table {
	return t.add(action.BuildAddIndex(t.table, columns, opts))
}

func (t *Table) RemoveIndex(columns ...string) *Table {
	return t.add(action.BuildDropIndex(t.table, columns...))
}

func (t *Table) RemoveIndexByName(name string) *Table {
	return t.add(action.BuildDropIndexByName(t.table, name))
}

func (t *Table) AddForeignKey(columns []string, referencedTable string, referencedColumns []string, opts types.ForeignKey) *Table {
	return t.add(action.BuildAddForeignKey(t.table, columns, referencedTable, referencedColumns, opts))
}

// DropForeignKey removes a foreign key by columns, or by constraint name
// when columns is empty.
func (t *Table) DropForeignKey(columns []string, constraint string) *Table {
	return t.add(action.BuildDropForeignKey(t.table, columns, constraint))
}

func (t *Table) ChangePrimaryKey(columns ...string) *Table {
	return t.add(action.BuildChangePrimaryKey(t.table, columns...))
}

func (t *Table) ChangeComment(comment string) *Table {
	return t.add(action.BuildChangeComment(t.table, comment))
}

func (t *Table) Rename(newName string) *Table {
	return t.add(action.BuildRenameTable(t.table, newName))
}

func (t *Table) Drop() *Table {
	return t.add(action.BuildDropTable(t.table))
}

// Create creates the table with the pending columns and indexes.
func (t *Table) Create(ctx context.Context) error {
	create, err := action.BuildCreateTable(t.table)
	if err != nil {
		return err
	}
	t.pending = append([]action.Action{create}, t.pending...)
	return t.flush(ctx)
}

// Update applies the pending changes to an existing table.
func (t *Table) Update(ctx context.Context) error {
	return t.flush(ctx)
}

// Save creates the table when it does not exist yet and updates it
// otherwise.
func (t *Table) Save(ctx context.Context) error {
	if t.err != nil {
		return t.err
	}
	exists, err := t.Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return t.Update(ctx)
	}
	return t.Create(ctx)
}

func (t *Table) flush(ctx context.Context) error {
	if t.err != nil {
		return t.err
	}
	pending := t.pending
	t.pending = nil
	return plan.Apply(ctx, t.adapter, pending...)
}
