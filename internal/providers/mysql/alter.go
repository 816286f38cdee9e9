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
package mysql

import (
	"context"
	"fmt"
	"strings"

	"github.com/ocomsoft/schemashift/internal/errors"
	"github.com/ocomsoft/schemashift/internal/instructions"
	"github.com/ocomsoft/schemashift/internal/sink"
	"github.com/ocomsoft/schemashift/internal/types"
)

func (p *Provider) AddColumnInstructions(ctx context.Context, table *types.Table, column *types.Column) (*instructions.AlterInstructions, error) {
	def, err := p.columnDefinition(column)
	if err != nil {
		return nil, err
	}
	return instructions.New([]string{fmt.Sprintf("ADD %s %s%s", p.QuoteName(column.Name), def, p.afterClause(column))}), nil
}

func (p *Provider) DropColumnInstructions(ctx context.Context, table *types.Table, columnName string) (*instructions.AlterInstructions, error) {
	return instructions.New([]string{"DROP COLUMN " + p.QuoteName(columnName)}), nil
}

// liveDefinition rebuilds a column definition from a SHOW FULL COLUMNS row
// so CHANGE COLUMN keeps it intact.
func liveDefinition(row sink.Row) string {
	def := row.String("Type")
	if row.String("Null") == "NO" {
		def += " NOT NULL"
	} else {
		def += " NULL"
	}
	extra := strings.TrimSpace(strings.ReplaceAll(strings.ToUpper(row.String("Extra")), "DEFAULT_GENERATED", ""))
	if row["Default"] != nil {
		value := row.String("Default")
		switch {
		case strings.HasPrefix(strings.ToUpper(value), "CURRENT_TIMESTAMP"), strings.EqualFold(value, "NULL"):
			def += " DEFAULT " + value
		default:
			def += " DEFAULT " + quoteString(value)
		}
	}
	if extra != "" {
		def += " " + extra
	}
	if comment := row.String("Comment"); comment != "" {
		def += " COMMENT " + quoteString(comment)
	}
	return def
}

// RenameColumnInstructions renames oldName with CHANGE COLUMN, reusing its
// live definition.
func (p *Provider) RenameColumnInstructions(ctx context.Context, table *types.Table, oldName, newName string) (*instructions.AlterInstructions, error) {
	rows, err := p.sink.Query(ctx, "SHOW FULL COLUMNS FROM "+p.QuoteTable(table.Name))
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if strings.EqualFold(row.String("Field"), oldName) {
			return instructions.New([]string{fmt.Sprintf("CHANGE COLUMN %s %s %s",
				p.QuoteName(oldName), p.QuoteName(newName), liveDefinition(row))}), nil
		}
	}
	return nil, errors.NewAmbiguousTargetError(table.Name, "column "+oldName, "column does not exist")
}

func (p *Provider) ChangeColumnInstructions(ctx context.Context, table *types.Table, columnName string, column *types.Column) (*instructions.AlterInstructions, error) {
	def, err := p.columnDefinition(column)
	if err != nil {
		return nil, err
	}
	name := column.Name
	if name == "" {
		name = columnName
	}
	return instructions.New([]string{fmt.Sprintf("CHANGE %s %s %s%s",
		p.QuoteName(columnName), p.QuoteName(name), def, p.afterClause(column))}), nil
}

// AddIndexInstructions adds an index inline. InnoDB builds one FULLTEXT
// index at a time, so those run as their own statement.
func (p *Provider) AddIndexInstructions(ctx context.Context, table *types.Table, index *types.Index) (*instructions.AlterInstructions, error) {
	_, name := splitName(table.Name)
	def := "ADD " + p.indexDefinition(name, index)
	if index.Type == types.IndexFulltext {
		return instructions.New(nil, fmt.Sprintf("ALTER TABLE %s %s", p.QuoteTable(table.Name), def)), nil
	}
	return instructions.New([]string{def}), nil
}

// DropIndexInstructions drops the index on exactly columns, in key order.
func (p *Provider) DropIndexInstructions(ctx context.Context, table *types.Table, columns []string) (*instructions.AlterInstructions, error) {
	indexes, err := p.indexes(ctx, table.Name)
	if err != nil {
		return nil, err
	}
	for _, idx := range indexes {
		if types.EqualFold(idx.columns, columns) {
			return instructions.New([]string{"DROP INDEX " + p.QuoteName(idx.name)}), nil
		}
	}
	return nil, errors.NewAmbiguousTargetError(table.Name, "index on ("+strings.Join(columns, ", ")+")", "no index matches")
}

func (p *Provider) DropIndexByNameInstructions(ctx context.Context, table *types.Table, indexName string) (*instructions.AlterInstructions, error) {
	found, err := p.HasIndexByName(ctx, table.Name, indexName)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.NewAmbiguousTargetError(table.Name, "index "+indexName, "no index has that name")
	}
	return instructions.New([]string{"DROP INDEX " + p.QuoteName(indexName)}), nil
}

func (p *Provider) AddForeignKeyInstructions(ctx context.Context, table *types.Table, fk *types.ForeignKey) (*instructions.AlterInstructions, error) {
	return instructions.New([]string{"ADD " + p.foreignKeyDefinition(fk)}), nil
}

// DropForeignKeyInstructions drops every foreign key over exactly columns.
func (p *Provider) DropForeignKeyInstructions(ctx context.Context, table *types.Table, columns []string) (*instructions.AlterInstructions, error) {
	keys, err := p.foreignKeys(ctx, table.Name)
	if err != nil {
		return nil, err
	}
	in := instructions.New(nil)
	for _, key := range keys {
		if types.SameSet(key.columns, columns) {
			in.AddAlter("DROP FOREIGN KEY " + p.QuoteName(key.constraint))
		}
	}
	if in.IsEmpty() {
		return nil, errors.NewAmbiguousTargetError(table.Name, "foreign key on ("+strings.Join(columns, ", ")+")", "no foreign key matches")
	}
	return in, nil
}

func (p *Provider) DropForeignKeyByConstraintInstructions(ctx context.Context, table *types.Table, constraint string) (*instructions.AlterInstructions, error) {
	return instructions.New([]string{"DROP FOREIGN KEY " + p.QuoteName(constraint)}), nil
}

func (p *Provider) DropTableInstructions(ctx context.Context, table *types.Table) (*instructions.AlterInstructions, error) {
	return instructions.New(nil, "DROP TABLE "+p.QuoteTable(table.Name)), nil
}

func (p *Provider) RenameTableInstructions(ctx context.Context, table *types.Table, newName string) (*instructions.AlterInstructions, error) {
	return instructions.New(nil, fmt.Sprintf("RENAME TABLE %s TO %s", p.QuoteTable(table.Name), p.QuoteTable(newName))), nil
}

// ChangePrimaryKeyInstructions drops the current primary key, if any, and
// adds one over columns.
func (p *Provider) ChangePrimaryKeyInstructions(ctx context.Context, table *types.Table, columns []string) (*instructions.AlterInstructions, error) {
	current, err := p.primaryKey(ctx, table.Name)
	if err != nil {
		return nil, err
	}
	in := instructions.New(nil)
	if len(current) > 0 {
		in.AddAlter("DROP PRIMARY KEY")
	}
	if len(columns) > 0 {
		in.AddAlter(fmt.Sprintf("ADD PRIMARY KEY (%s)", p.quoteNames(columns)))
	}
	return in, nil
}

// ChangeCommentInstructions sets the table comment. An empty comment
// removes it.
func (p *Provider) ChangeCommentInstructions(ctx context.Context, table *types.Table, comment string) (*instructions.AlterInstructions, error) {
	return instructions.New([]string{"COMMENT=" + quoteString(comment)}), nil
}
