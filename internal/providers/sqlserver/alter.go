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
package sqlserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/ocomsoft/schemashift/internal/errors"
	"github.com/ocomsoft/schemashift/internal/instructions"
	"github.com/ocomsoft/schemashift/internal/types"
)

func (p *Provider) AddColumnInstructions(ctx context.Context, table *types.Table, column *types.Column) (*instructions.AlterInstructions, error) {
	def, err := p.columnDefinition(table.Name, column, true)
	if err != nil {
		return nil, err
	}
	if column.After != "" {
		p.logger.WithField("column", column.Name).Warn("SQL Server cannot position columns, appending")
	}
	in := instructions.New(nil, fmt.Sprintf("ALTER TABLE %s ADD %s %s", p.QuoteTable(table.Name), p.QuoteName(column.Name), def))
	if column.Comment != "" {
		in.AddPostStep(p.columnCommentSQL(table.Name, column.Name, column.Comment, false))
	}
	return in, nil
}

// dropDefaultInstructions drops the default constraint bound to column, if
// there is one.
func (p *Provider) dropDefaultInstructions(ctx context.Context, table, column string) (*instructions.AlterInstructions, error) {
	constraint, err := p.defaultConstraint(ctx, table, column)
	if err != nil {
		return nil, err
	}
	in := instructions.New(nil)
	if constraint != "" {
		in.AddPostStep(fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", p.QuoteTable(table), p.QuoteName(constraint)))
	}
	return in, nil
}

// DropColumnInstructions drops the column's default constraint first, since
// SQL Server refuses to drop a column that still has one.
func (p *Provider) DropColumnInstructions(ctx context.Context, table *types.Table, columnName string) (*instructions.AlterInstructions, error) {
	in, err := p.dropDefaultInstructions(ctx, table.Name, columnName)
	if err != nil {
		return nil, err
	}
	in.AddPostStep(fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", p.QuoteTable(table.Name), p.QuoteName(columnName)))
	return in, nil
}

// renameSteps renames a column and the default constraint named after it.
func (p *Provider) renameSteps(table, oldName, newName string) *instructions.AlterInstructions {
	schema, name := splitName(table)
	oldConstraint := schema + "." + defaultConstraintName(table, oldName)
	in := instructions.New(nil)
	in.AddPostStep(fmt.Sprintf("IF (OBJECT_ID(%s, 'D') IS NOT NULL) EXECUTE sp_rename %s, %s, N'OBJECT'",
		unicode(oldConstraint), unicode(oldConstraint), unicode(defaultConstraintName(table, newName))))
	in.AddPostStep(fmt.Sprintf("EXECUTE sp_rename %s, %s, N'COLUMN'",
		unicode(schema+"."+name+"."+oldName), unicode(newName)))
	return in
}

func (p *Provider) RenameColumnInstructions(ctx context.Context, table *types.Table, oldName, newName string) (*instructions.AlterInstructions, error) {
	exists, err := p.HasColumn(ctx, table.Name, oldName)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.NewAmbiguousTargetError(table.Name, "column "+oldName, "column does not exist")
	}
	return p.renameSteps(table.Name, oldName, newName), nil
}

// ChangeColumnInstructions redefines columnName. ALTER COLUMN cannot touch
// defaults, so a changed default or type swaps the default constraint
// around the change.
func (p *Provider) ChangeColumnInstructions(ctx context.Context, table *types.Table, columnName string, column *types.Column) (*instructions.AlterInstructions, error) {
	columns, err := p.GetColumns(ctx, table.Name)
	if err != nil {
		return nil, err
	}
	var current *types.Column
	for _, c := range columns {
		if strings.EqualFold(c.Name, columnName) {
			current = c
			break
		}
	}
	if current == nil {
		return nil, errors.NewAmbiguousTargetError(table.Name, "column "+columnName, "column does not exist")
	}

	def, err := p.columnDefinition(table.Name, column, false)
	if err != nil {
		return nil, err
	}
	name := column.Name
	if name == "" {
		name = columnName
	}
	changeDefault := current.Default != column.Default || current.Type != column.Type || current.RawType != column.RawType

	in := instructions.New(nil)
	if changeDefault {
		drop, err := p.dropDefaultInstructions(ctx, table.Name, current.Name)
		if err != nil {
			return nil, err
		}
		in.Merge(drop)
	}
	if name != current.Name {
		in.Merge(p.renameSteps(table.Name, current.Name, name))
	}
	in.AddPostStep(fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s %s", p.QuoteTable(table.Name), p.QuoteName(name), def))
	if column.Comment != "" {
		_, exists, err := p.columnComment(ctx, table.Name, current.Name)
		if err != nil {
			return nil, err
		}
		in.AddPostStep(p.columnCommentSQL(table.Name, name, column.Comment, exists))
	}
	if changeDefault && column.Default.IsSet() {
		in.AddPostStep(fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s DEFAULT %s FOR %s",
			p.QuoteTable(table.Name), p.QuoteName(defaultConstraintName(table.Name, name)), defaultSQL(column.Default), p.QuoteName(name)))
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

func (p *Provider) dropIndexSQL(table, index string) string {
	return fmt.Sprintf("DROP INDEX %s ON %s", p.QuoteName(index), p.QuoteTable(table))
}

// DropIndexInstructions drops the index covering exactly columns, in any
// order.
func (p *Provider) DropIndexInstructions(ctx context.Context, table *types.Table, columns []string) (*instructions.AlterInstructions, error) {
	indexes, err := p.indexes(ctx, table.Name)
	if err != nil {
		return nil, err
	}
	for _, idx := range indexes {
		if types.SameSet(idx.columns, columns) {
			return instructions.New(nil, p.dropIndexSQL(table.Name, idx.name)), nil
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
	return instructions.New(nil, p.dropIndexSQL(table.Name, indexName)), nil
}

func (p *Provider) AddForeignKeyInstructions(ctx context.Context, table *types.Table, fk *types.ForeignKey) (*instructions.AlterInstructions, error) {
	return instructions.New(nil, fmt.Sprintf("ALTER TABLE %s ADD %s", p.QuoteTable(table.Name), p.foreignKeySQL(table.Name, fk))), nil
}

func (p *Provider) dropConstraintSQL(table, constraint string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", p.QuoteTable(table), p.QuoteName(constraint))
}

// DropForeignKeyInstructions drops every foreign key over exactly columns.
func (p *Provider) DropForeignKeyInstructions(ctx context.Context, table *types.Table, columns []string) (*instructions.AlterInstructions, error) {
	keys, err := p.constraints(ctx, table.Name, "FOREIGN KEY")
	if err != nil {
		return nil, err
	}
	in := instructions.New(nil)
	for _, key := range keys {
		if types.SameSet(key.columns, columns) {
			in.AddPostStep(p.dropConstraintSQL(table.Name, key.name))
		}
	}
	if in.IsEmpty() {
		return nil, errors.NewAmbiguousTargetError(table.Name, "foreign key on ("+strings.Join(columns, ", ")+")", "no foreign key matches")
	}
	return in, nil
}

func (p *Provider) DropForeignKeyByConstraintInstructions(ctx context.Context, table *types.Table, constraint string) (*instructions.AlterInstructions, error) {
	return instructions.New(nil, p.dropConstraintSQL(table.Name, constraint)), nil
}

func (p *Provider) DropTableInstructions(ctx context.Context, table *types.Table) (*instructions.AlterInstructions, error) {
	return instructions.New(nil, "DROP TABLE "+p.QuoteTable(table.Name)), nil
}

func (p *Provider) RenameTableInstructions(ctx context.Context, table *types.Table, newName string) (*instructions.AlterInstructions, error) {
	schema, name := splitName(table.Name)
	_, target := splitName(newName)
	return instructions.New(nil, fmt.Sprintf("EXECUTE sp_rename %s, %s", unicode(schema+"."+name), unicode(target))), nil
}

// ChangePrimaryKeyInstructions drops the current primary key constraint and
// adds PK_<table> over columns.
func (p *Provider) ChangePrimaryKeyInstructions(ctx context.Context, table *types.Table, columns []string) (*instructions.AlterInstructions, error) {
	keys, err := p.constraints(ctx, table.Name, "PRIMARY KEY")
	if err != nil {
		return nil, err
	}
	in := instructions.New(nil)
	for _, key := range keys {
		in.AddPostStep(p.dropConstraintSQL(table.Name, key.name))
	}
	if len(columns) > 0 {
		_, name := splitName(table.Name)
		in.AddPostStep(fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s PRIMARY KEY (%s)",
			p.QuoteTable(table.Name), p.QuoteName("PK_"+name), p.quoteNames(columns)))
	}
	return in, nil
}

// ChangeCommentInstructions stores the table comment as an extended
// property. An empty comment removes it.
func (p *Provider) ChangeCommentInstructions(ctx context.Context, table *types.Table, comment string) (*instructions.AlterInstructions, error) {
	exists, err := p.tableComment(ctx, table.Name)
	if err != nil {
		return nil, err
	}
	switch {
	case comment == "" && !exists:
		return instructions.New(nil), nil
	case comment == "":
		return instructions.New(nil, p.tableCommentSQL(table.Name, "", "sp_dropextendedproperty")), nil
	case exists:
		return instructions.New(nil, p.tableCommentSQL(table.Name, comment, "sp_updateextendedproperty")), nil
	}
	return instructions.New(nil, p.tableCommentSQL(table.Name, comment, "sp_addextendedproperty")), nil
}
