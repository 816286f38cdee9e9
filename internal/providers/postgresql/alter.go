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
package postgresql

import (
	"context"
	"fmt"
	"strings"

	"github.com/ocomsoft/schemashift/internal/errors"
	"github.com/ocomsoft/schemashift/internal/instructions"
	"github.com/ocomsoft/schemashift/internal/types"
)

func (p *Provider) AddColumnInstructions(ctx context.Context, table *types.Table, column *types.Column) (*instructions.AlterInstructions, error) {
	def, err := p.columnDefinition(column)
	if err != nil {
		return nil, err
	}
	in := instructions.New([]string{fmt.Sprintf("ADD %s %s", p.QuoteName(column.Name), def)})
	if column.Comment != "" {
		in.AddPostStep(p.columnCommentSQL(table.Name, column))
	}
	return in, nil
}

func (p *Provider) DropColumnInstructions(ctx context.Context, table *types.Table, columnName string) (*instructions.AlterInstructions, error) {
	return instructions.New([]string{"DROP COLUMN " + p.QuoteName(columnName)}), nil
}

func (p *Provider) RenameColumnInstructions(ctx context.Context, table *types.Table, oldName, newName string) (*instructions.AlterInstructions, error) {
	exists, err := p.HasColumn(ctx, table.Name, oldName)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.NewAmbiguousTargetError(table.Name, "column "+oldName, "column does not exist")
	}
	return instructions.New(nil, fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
		p.QuoteTable(table.Name), p.QuoteName(oldName), p.QuoteName(newName))), nil
}

// usingClause converts existing values when the column type changes to
// one PostgreSQL will not cast implicitly.
func (p *Provider) usingClause(column *types.Column, quoted string) string {
	switch column.Type {
	case types.ColumnInteger, types.ColumnBigInteger, types.ColumnSmallInteger, types.ColumnTinyInteger:
		t, _ := p.ConvertColumnType(column)
		return fmt.Sprintf(" USING (%s::%s)", quoted, strings.ToLower(t))
	case types.ColumnUUID:
		return fmt.Sprintf(" USING (%s::uuid)", quoted)
	case types.ColumnBoolean:
		return fmt.Sprintf(" USING (CASE WHEN %s IS NULL THEN NULL WHEN %s::int=0 THEN FALSE ELSE TRUE END)", quoted, quoted)
	}
	return ""
}

// ChangeColumnInstructions redefines columnName clause by clause: type,
// nullability, then default. A rename and a comment follow as separate
// statements.
func (p *Provider) ChangeColumnInstructions(ctx context.Context, table *types.Table, columnName string, column *types.Column) (*instructions.AlterInstructions, error) {
	colType, err := p.ConvertColumnType(column)
	if err != nil {
		return nil, err
	}
	quoted := p.QuoteName(columnName)
	in := instructions.New(nil)

	if column.Type == types.ColumnBoolean {
		in.AddAlter(fmt.Sprintf("ALTER COLUMN %s DROP DEFAULT", quoted))
	}
	in.AddAlter(fmt.Sprintf("ALTER COLUMN %s TYPE %s%s", quoted, colType, p.usingClause(column, quoted)))
	if column.Null {
		in.AddAlter(fmt.Sprintf("ALTER COLUMN %s DROP NOT NULL", quoted))
	} else {
		in.AddAlter(fmt.Sprintf("ALTER COLUMN %s SET NOT NULL", quoted))
	}
	if column.Default.IsSet() {
		in.AddAlter(fmt.Sprintf("ALTER COLUMN %s SET DEFAULT %s", quoted, defaultSQL(column)))
	} else if column.Type != types.ColumnBoolean {
		in.AddAlter(fmt.Sprintf("ALTER COLUMN %s DROP DEFAULT", quoted))
	}

	if column.Name != "" && column.Name != columnName {
		in.AddPostStep(fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
			p.QuoteTable(table.Name), quoted, p.QuoteName(column.Name)))
	}
	if column.Comment != "" {
		renamed := column.Clone()
		if renamed.Name == "" {
			renamed.Name = columnName
		}
		in.AddPostStep(p.columnCommentSQL(table.Name, renamed))
	}
	return in, nil
}

func (p *Provider) AddIndexInstructions(ctx context.Context, table *types.Table, index *types.Index) (*instructions.AlterInstructions, error) {
	sql, err := p.createIndexSQL(table.Name, index)
	if err != nil {
		return nil, err
	}
	return instructions.New(nil, sql), nil
}

func (p *Provider) dropIndexSQL(table, indexName string) string {
	schema, _ := splitName(table)
	return fmt.Sprintf("DROP INDEX IF EXISTS %s.%s", p.QuoteName(schema), p.QuoteName(indexName))
}

// DropIndexInstructions drops the index covering exactly columns, in any
// order.
func (p *Provider) DropIndexInstructions(ctx context.Context, table *types.Table, columns []string) (*instructions.AlterInstructions, error) {
	indexes, order, err := p.indexes(ctx, table.Name)
	if err != nil {
		return nil, err
	}
	for _, name := range order {
		if types.SameSet(indexes[name], columns) {
			return instructions.New(nil, p.dropIndexSQL(table.Name, name)), nil
		}
	}
	return nil, errors.NewAmbiguousTargetError(table.Name, "index on ("+strings.Join(columns, ", ")+")", "no index matches")
}

func (p *Provider) DropIndexByNameInstructions(ctx context.Context, table *types.Table, indexName string) (*instructions.AlterInstructions, error) {
	return instructions.New(nil, p.dropIndexSQL(table.Name, indexName)), nil
}

func (p *Provider) AddForeignKeyInstructions(ctx context.Context, table *types.Table, fk *types.ForeignKey) (*instructions.AlterInstructions, error) {
	return instructions.New([]string{"ADD " + p.foreignKeySQL(table.Name, fk)}), nil
}

// DropForeignKeyInstructions drops every foreign key whose columns match.
func (p *Provider) DropForeignKeyInstructions(ctx context.Context, table *types.Table, columns []string) (*instructions.AlterInstructions, error) {
	keys, err := p.constraints(ctx, table.Name, "FOREIGN KEY")
	if err != nil {
		return nil, err
	}
	in := instructions.New(nil)
	for _, key := range keys {
		if types.SameSet(key.columns, columns) {
			in.AddAlter("DROP CONSTRAINT " + p.QuoteName(key.name))
		}
	}
	if in.IsEmpty() {
		return nil, errors.NewAmbiguousTargetError(table.Name, "foreign key on ("+strings.Join(columns, ", ")+")", "no foreign key matches")
	}
	return in, nil
}

func (p *Provider) DropForeignKeyByConstraintInstructions(ctx context.Context, table *types.Table, constraint string) (*instructions.AlterInstructions, error) {
	return instructions.New([]string{"DROP CONSTRAINT " + p.QuoteName(constraint)}), nil
}

func (p *Provider) DropTableInstructions(ctx context.Context, table *types.Table) (*instructions.AlterInstructions, error) {
	return instructions.New(nil, "DROP TABLE "+p.QuoteTable(table.Name)), nil
}

func (p *Provider) RenameTableInstructions(ctx context.Context, table *types.Table, newName string) (*instructions.AlterInstructions, error) {
	_, name := splitName(newName)
	return instructions.New(nil, fmt.Sprintf("ALTER TABLE %s RENAME TO %s", p.QuoteTable(table.Name), p.QuoteName(name))), nil
}

// ChangePrimaryKeyInstructions drops the current primary key constraint and
// adds one over columns. No columns only drops it.
func (p *Provider) ChangePrimaryKeyInstructions(ctx context.Context, table *types.Table, columns []string) (*instructions.AlterInstructions, error) {
	keys, err := p.constraints(ctx, table.Name, "PRIMARY KEY")
	if err != nil {
		return nil, err
	}
	in := instructions.New(nil)
	for _, key := range keys {
		in.AddAlter("DROP CONSTRAINT " + p.QuoteName(key.name))
	}
	if len(columns) > 0 {
		_, name := splitName(table.Name)
		in.AddAlter(fmt.Sprintf("ADD CONSTRAINT %s PRIMARY KEY (%s)", p.QuoteName(name+"_pkey"), p.quoteNames(columns)))
	}
	return in, nil
}

func (p *Provider) ChangeCommentInstructions(ctx context.Context, table *types.Table, comment string) (*instructions.AlterInstructions, error) {
	return instructions.New(nil, p.tableCommentSQL(table.Name, comment)), nil
}
