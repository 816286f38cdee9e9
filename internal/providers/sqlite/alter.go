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
package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/ocomsoft/schemashift/internal/ddl"
	"github.com/ocomsoft/schemashift/internal/errors"
	"github.com/ocomsoft/schemashift/internal/instructions"
	"github.com/ocomsoft/schemashift/internal/types"
)

// nativeAddColumn reports whether ALTER TABLE ADD COLUMN can add column
// without a rebuild.
func nativeAddColumn(column *types.Column) bool {
	if column.Identity || column.After != "" {
		return false
	}
	switch column.Default.Kind {
	case types.DefaultCurrentTimestamp, types.DefaultExpression:
		return false
	case types.DefaultNone:
		return column.Null
	}
	return true
}

func (p *Provider) AddColumnInstructions(ctx context.Context, table *types.Table, column *types.Column) (*instructions.AlterInstructions, error) {
	def, err := p.columnSQL(column)
	if err != nil {
		return nil, err
	}
	if nativeAddColumn(column) {
		return instructions.New(nil, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", p.QuoteName(table.Name), def)), nil
	}
	return p.rebuildInstructions(rebuild{
		table:     table.Name,
		operation: "add column",
		rewrite: func(ct *ddl.CreateTable) error {
			return ct.InsertColumn(def, column.After)
		},
	}), nil
}

func (p *Provider) DropColumnInstructions(ctx context.Context, table *types.Table, columnName string) (*instructions.AlterInstructions, error) {
	return p.rebuildInstructions(rebuild{
		table:     table.Name,
		operation: "drop column",
		column:    columnName,
		rewrite: func(ct *ddl.CreateTable) error {
			return ct.DropColumn(columnName)
		},
		project: projection{from: columnName},
		index: func(sql string) (string, bool) {
			return sql, !ddl.IndexMentions(sql, columnName)
		},
	}), nil
}

func (p *Provider) RenameColumnInstructions(ctx context.Context, table *types.Table, oldName, newName string) (*instructions.AlterInstructions, error) {
	return p.rebuildInstructions(rebuild{
		table:     table.Name,
		operation: "rename column",
		column:    oldName,
		rewrite: func(ct *ddl.CreateTable) error {
			return ct.RenameColumn(oldName, newName)
		},
		project: projection{from: oldName, to: newName},
		index: func(sql string) (string, bool) {
			return ddl.RenameIndexColumn(sql, oldName, newName), true
		},
	}), nil
}

func (p *Provider) ChangeColumnInstructions(ctx context.Context, table *types.Table, columnName string, column *types.Column) (*instructions.AlterInstructions, error) {
	def, err := p.columnSQL(column)
	if err != nil {
		return nil, err
	}
	r := rebuild{
		table:     table.Name,
		operation: "change column",
		column:    columnName,
		rewrite: func(ct *ddl.CreateTable) error {
			return ct.ReplaceColumn(columnName, def)
		},
		project: projection{from: columnName, to: column.Name},
	}
	if !strings.EqualFold(columnName, column.Name) {
		r.index = func(sql string) (string, bool) {
			return ddl.RenameIndexColumn(sql, columnName, column.Name), true
		}
	}
	return p.rebuildInstructions(r), nil
}

func (p *Provider) AddIndexInstructions(ctx context.Context, table *types.Table, index *types.Index) (*instructions.AlterInstructions, error) {
	return instructions.New(nil, p.createIndexSQL(table.Name, index)), nil
}

// DropIndexInstructions drops every index on exactly columns. Indexes SQLite
// created for UNIQUE or PRIMARY KEY constraints cannot be dropped.
func (p *Provider) DropIndexInstructions(ctx context.Context, table *types.Table, columns []string) (*instructions.AlterInstructions, error) {
	names, err := p.resolveIndex(ctx, table.Name, columns)
	if err != nil {
		return nil, err
	}
	target := "index on (" + strings.Join(columns, ", ") + ")"
	if len(names) == 0 {
		return nil, errors.NewAmbiguousTargetError(table.Name, target, "no index matches")
	}
	in := instructions.New(nil)
	for _, name := range names {
		if strings.HasPrefix(name, "sqlite_autoindex_") {
			continue
		}
		in.AddPostStep("DROP INDEX " + p.QuoteName(name))
	}
	if in.IsEmpty() {
		return nil, errors.NewAmbiguousTargetError(table.Name, target, "only constraint indexes match")
	}
	return in, nil
}

func (p *Provider) DropIndexByNameInstructions(ctx context.Context, table *types.Table, indexName string) (*instructions.AlterInstructions, error) {
	indexes, err := p.indexes(ctx, table.Name)
	if err != nil {
		return nil, err
	}
	for _, idx := range indexes {
		if strings.EqualFold(idx.name, indexName) {
			return instructions.New(nil, "DROP INDEX "+p.QuoteName(idx.name)), nil
		}
	}
	return nil, errors.NewAmbiguousTargetError(table.Name, "index "+indexName, "no index has that name")
}

func (p *Provider) AddForeignKeyInstructions(ctx context.Context, table *types.Table, fk *types.ForeignKey) (*instructions.AlterInstructions, error) {
	def := p.foreignKeySQL(fk)
	return p.rebuildInstructions(rebuild{
		table:     table.Name,
		operation: "add foreign key",
		rewrite: func(ct *ddl.CreateTable) error {
			ct.AddConstraint(def)
			return nil
		},
	}), nil
}

func (p *Provider) DropForeignKeyInstructions(ctx context.Context, table *types.Table, columns []string) (*instructions.AlterInstructions, error) {
	return p.rebuildInstructions(rebuild{
		table:     table.Name,
		operation: "drop foreign key",
		rewrite: func(ct *ddl.CreateTable) error {
			if ct.DropForeignKey(columns) == 0 {
				return errors.NewAmbiguousTargetError(table.Name, "foreign key on ("+strings.Join(columns, ", ")+")", "no foreign key matches")
			}
			return nil
		},
	}), nil
}

// DropForeignKeyByConstraintInstructions is unsupported: SQLite does not
// keep foreign key names reliably.
func (p *Provider) DropForeignKeyByConstraintInstructions(ctx context.Context, table *types.Table, constraint string) (*instructions.AlterInstructions, error) {
	return nil, errors.NewUnsupportedOperationError(string(types.DatabaseSQLite), "drop foreign key by constraint name")
}

// DropTableInstructions drops table and resets its autoincrement sequence.
func (p *Provider) DropTableInstructions(ctx context.Context, table *types.Table) (*instructions.AlterInstructions, error) {
	in := instructions.New(nil, "DROP TABLE "+p.QuoteName(table.Name))
	in.AddPhase(func(ctx context.Context, state instructions.State) (instructions.State, error) {
		exists, err := p.HasTable(ctx, "sqlite_sequence")
		if err != nil || !exists {
			return state, err
		}
		_, err = p.sink.Execute(ctx, "DELETE FROM sqlite_sequence WHERE name = '"+strings.ReplaceAll(table.Name, "'", "''")+"'")
		return state, err
	})
	return in, nil
}

func (p *Provider) RenameTableInstructions(ctx context.Context, table *types.Table, newName string) (*instructions.AlterInstructions, error) {
	return instructions.New(nil, fmt.Sprintf("ALTER TABLE %s RENAME TO %s", p.QuoteName(table.Name), p.QuoteName(newName))), nil
}

// ChangePrimaryKeyInstructions makes a single column the primary key, or
// drops it when columns is empty.
func (p *Provider) ChangePrimaryKeyInstructions(ctx context.Context, table *types.Table, columns []string) (*instructions.AlterInstructions, error) {
	if len(columns) > 1 {
		return nil, errors.NewUnsupportedOperationError(string(types.DatabaseSQLite), "composite primary key change")
	}
	r := rebuild{
		table:     table.Name,
		operation: "change primary key",
		rewrite: func(ct *ddl.CreateTable) error {
			ct.StripPrimaryKey()
			if len(columns) == 0 {
				return nil
			}
			d := ct.Column(columns[0])
			if d == nil {
				return fmt.Errorf("column %s does not exist", columns[0])
			}
			return ct.SetColumnPrimaryKey(columns[0], strings.EqualFold(d.DeclaredType(), "INTEGER"))
		},
	}
	if len(columns) == 1 {
		r.column = columns[0]
	}
	return p.rebuildInstructions(r), nil
}

func (p *Provider) ChangeCommentInstructions(ctx context.Context, table *types.Table, comment string) (*instructions.AlterInstructions, error) {
	return nil, errors.NewUnsupportedOperationError(string(types.DatabaseSQLite), "table comments")
}
