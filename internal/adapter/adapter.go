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
// Package adapter defines the contract every dialect implements and the
// shared executor that turns an action batch into statements.
package adapter

import (
	"context"

	"github.com/ocomsoft/schemashift/internal/action"
	"github.com/ocomsoft/schemashift/internal/instructions"
	"github.com/ocomsoft/schemashift/internal/types"
)

// Translator turns single actions into AlterInstructions for one dialect.
type Translator interface {
	Dialect() types.DatabaseType

	// AlterTemplate returns the ALTER statement for table with a %s where
	// the joined alter parts go.
	AlterTemplate(table string) string

	// Column operations
	AddColumnInstructions(ctx context.Context, table *types.Table, column *types.Column) (*instructions.AlterInstructions, error)
	DropColumnInstructions(ctx context.Context, table *types.Table, columnName string) (*instructions.AlterInstructions, error)
	RenameColumnInstructions(ctx context.Context, table *types.Table, oldName, newName string) (*instructions.AlterInstructions, error)
	ChangeColumnInstructions(ctx context.Context, table *types.Table, columnName string, column *types.Column) (*instructions.AlterInstructions, error)

	// Index operations
	AddIndexInstructions(ctx context.Context, table *types.Table, index *types.Index) (*instructions.AlterInstructions, error)
	DropIndexInstructions(ctx context.Context, table *types.Table, columns []string) (*instructions.AlterInstructions, error)
	DropIndexByNameInstructions(ctx context.Context, table *types.Table, indexName string) (*instructions.AlterInstructions, error)

	// Foreign key operations
	AddForeignKeyInstructions(ctx context.Context, table *types.Table, fk *types.ForeignKey) (*instructions.AlterInstructions, error)
	DropForeignKeyInstructions(ctx context.Context, table *types.Table, columns []string) (*instructions.AlterInstructions, error)
	DropForeignKeyByConstraintInstructions(ctx context.Context, table *types.Table, constraint string) (*instructions.AlterInstructions, error)

	// Table operations
	DropTableInstructions(ctx context.Context, table *types.Table) (*instructions.AlterInstructions, error)
	RenameTableInstructions(ctx context.Context, table *types.Table, newName string) (*instructions.AlterInstructions, error)
	ChangePrimaryKeyInstructions(ctx context.Context, table *types.Table, columns []string) (*instructions.AlterInstructions, error)
	ChangeCommentInstructions(ctx context.Context, table *types.Table, comment string) (*instructions.AlterInstructions, error)
}

// Introspector answers questions about the live schema.
type Introspector interface {
	HasTable(ctx context.Context, table string) (bool, error)
	GetColumns(ctx context.Context, table string) ([]*types.Column, error)
	HasColumn(ctx context.Context, table, column string) (bool, error)
	HasIndex(ctx context.Context, table string, columns []string) (bool, error)
	HasIndexByName(ctx context.Context, table, indexName string) (bool, error)
	HasForeignKey(ctx context.Context, table string, columns []string, constraint string) (bool, error)
	HasPrimaryKey(ctx context.Context, table string, columns []string) (bool, error)
}

// Adapter is a dialect bound to a statement sink.
type Adapter interface {
	Introspector
	Dialect() types.DatabaseType
	CreateTable(ctx context.Context, table *types.Table, columns []*types.Column, indexes []*types.Index) error
	ExecuteActions(ctx context.Context, table *types.Table, actions []action.Action) error
}
