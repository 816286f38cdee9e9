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
package action

import (
	"strings"

	"github.com/ocomsoft/schemashift/internal/errors"
	"github.com/ocomsoft/schemashift/internal/types"
)

func newBase(table *types.Table) (base, error) {
	if table == nil || table.Name == "" {
		return base{}, errors.NewValidationError("table", "table name is required")
	}
	return base{table: table}, nil
}

// BuildAddColumn validates and wraps a new column definition.
func BuildAddColumn(table *types.Table, column types.Column) (*AddColumn, error) {
	b, err := newBase(table)
	if err != nil {
		return nil, err
	}
	if column.Name == "" {
		return nil, errors.NewValidationError("column", "column name is required")
	}
	return &AddColumn{base: b, column: &column}, nil
}

func BuildDropColumn(table *types.Table, name string) (*DropColumn, error) {
	b, err := newBase(table)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, errors.NewValidationError("column", "column name is required")
	}
	return &DropColumn{base: b, name: name}, nil
}

func BuildRemoveColumn(table *types.Table, column types.Column) (*RemoveColumn, error) {
	b, err := newBase(table)
	if err != nil {
		return nil, err
	}
	if column.Name == "" {
		return nil, errors.NewValidationError("column", "column name is required")
	}
	return &RemoveColumn{base: b, column: &column}, nil
}

func BuildRenameColumn(table *types.Table, oldName, newName string) (*RenameColumn, error) {
	b, err := newBase(table)
	if err != nil {
		return nil, err
	}
	if oldName == "" || newName == "" {
		return nil, errors.NewValidationError("column", "rename requires both the old and the new name")
	}
	return &RenameColumn{base: b, oldName: oldName, newName: newName}, nil
}

// BuildChangeColumn replaces the definition of columnName. An anonymous
// column adopts columnName.
func BuildChangeColumn(table *types.Table, columnName string, column types.Column) (*ChangeColumn, error) {
	b, err := newBase(table)
	if err != nil {
		return nil, err
	}
	if columnName == "" {
		return nil, errors.NewValidationError("column", "column name is required")
	}
	if column.Name == "" {
		column.Name = columnName
	}
	return &ChangeColumn{base: b, columnName: columnName, column: &column}, nil
}

// BuildAddIndex creates an index over columns. opts carries name and type.
func BuildAddIndex(table *types.Table, columns []string, opts types.Index) (*AddIndex, error) {
	b, err := newBase(table)
	if err != nil {
		return nil, err
	}
	cols := normalizeNames(columns)
	if len(cols) == 0 {
		return nil, errors.NewValidationError("index", "an index needs at least one column")
	}
	if opts.Type == "" {
		opts.Type = types.IndexPlain
	}
	opts.Columns = cols
	return &AddIndex{base: b, index: &opts}, nil
}

// BuildDropIndex drops the index covering exactly columns.
func BuildDropIndex(table *types.Table, columns ...string) (*DropIndex, error) {
	b, err := newBase(table)
	if err != nil {
		return nil, err
	}
	cols := normalizeNames(columns)
	if len(cols) == 0 {
		return nil, errors.NewValidationError("index", "an index needs at least one column")
	}
	return &DropIndex{base: b, index: &types.Index{Columns: cols}}, nil
}

func BuildDropIndexByName(table *types.Table, name string) (*DropIndex, error) {
	b, err := newBase(table)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, errors.NewValidationError("index", "index name is required")
	}
	return &DropIndex{base: b, index: &types.Index{Name: name}}, nil
}

// BuildAddForeignKey normalises a foreign key. Referenced columns default to
// ["id"].
func BuildAddForeignKey(table *types.Table, columns []string, referencedTable string, referencedColumns []string, opts types.ForeignKey) (*AddForeignKey, error) {
	b, err := newBase(table)
	if err != nil {
		return nil, err
	}
	opts.Columns = normalizeNames(columns)
	opts.ReferencedTable = referencedTable
	opts.ReferencedColumns = normalizeNames(referencedColumns)
	if len(opts.ReferencedColumns) == 0 {
		opts.ReferencedColumns = []string{"id"}
	}
	if opts.OnDelete, err = types.ParseReferentialAction(opts.OnDelete); err != nil {
		return nil, errors.NewValidationError("on_delete", err.Error())
	}
	if opts.OnUpdate, err = types.ParseReferentialAction(opts.OnUpdate); err != nil {
		return nil, errors.NewValidationError("on_update", err.Error())
	}
	if err := opts.Validate(); err != nil {
		return nil, errors.NewValidationError("foreign_key", err.Error())
	}
	return &AddForeignKey{base: b, fk: &opts}, nil
}

// BuildDropForeignKey drops the key on columns, or the named constraint when
// columns is empty.
func BuildDropForeignKey(table *types.Table, columns []string, constraint string) (*DropForeignKey, error) {
	b, err := newBase(table)
	if err != nil {
		return nil, err
	}
	cols := normalizeNames(columns)
	if len(cols) == 0 && constraint == "" {
		return nil, errors.NewValidationError("foreign_key", "either columns or a constraint name is required")
	}
	return &DropForeignKey{base: b, fk: &types.ForeignKey{Columns: cols, Constraint: constraint}}, nil
}

func BuildCreateTable(table *types.Table) (*CreateTable, error) {
	b, err := newBase(table)
	if err != nil {
		return nil, err
	}
	return &CreateTable{base: b}, nil
}

func BuildDropTable(table *types.Table) (*DropTable, error) {
	b, err := newBase(table)
	if err != nil {
		return nil, err
	}
	return &DropTable{base: b}, nil
}

func BuildRenameTable(table *types.Table, newName string) (*RenameTable, error) {
	b, err := newBase(table)
	if err != nil {
		return nil, err
	}
	if newName == "" {
		return nil, errors.NewValidationError("table", "new table name is required")
	}
	return &RenameTable{base: b, newName: newName}, nil
}

// BuildChangePrimaryKey sets the primary key to columns, or drops it when no
// columns are given.
func BuildChangePrimaryKey(table *types.Table, columns ...string) (*ChangePrimaryKey, error) {
	b, err := newBase(table)
	if err != nil {
		return nil, err
	}
	return &ChangePrimaryKey{base: b, columns: normalizeNames(columns)}, nil
}

func BuildChangeComment(table *types.Table, comment string) (*ChangeComment, error) {
	b, err := newBase(table)
	if err != nil {
		return nil, err
	}
	return &ChangeComment{base: b, comment: comment}, nil
}

// Duals produced by reversal. Each remembers the action it was derived from
// so reversing it again yields that action.

func RemoveColumnFor(a *AddColumn) *RemoveColumn {
	return &RemoveColumn{base: base{table: a.table, origin: a}, column: a.column.Clone()}
}

func DropIndexFor(a *AddIndex) *DropIndex {
	return &DropIndex{base: base{table: a.table, origin: a}, index: cloneIndex(a.index)}
}

func DropForeignKeyFor(a *AddForeignKey) *DropForeignKey {
	return &DropForeignKey{base: base{table: a.table, origin: a}, fk: cloneForeignKey(a.fk)}
}

func DropTableFor(a *CreateTable) *DropTable {
	return &DropTable{base: base{table: a.table, origin: a}}
}

// RenameTableBack swaps the names of a.
func RenameTableBack(a *RenameTable) *RenameTable {
	renamed := *a.table
	renamed.Name = a.newName
	return &RenameTable{base: base{table: &renamed}, newName: a.table.Name}
}

// RenameColumnBack swaps the names of a.
func RenameColumnBack(a *RenameColumn) *RenameColumn {
	return &RenameColumn{base: base{table: a.table}, oldName: a.newName, newName: a.oldName}
}

// normalizeNames splits comma separated entries and trims blanks, so
// "a, b" and ["a","b"] mean the same list.
func normalizeNames(names []string) []string {
	var out []string
	for _, n := range names {
		for _, part := range strings.Split(n, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
