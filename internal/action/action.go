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
// Package action holds the closed set of schema change intents. Actions are
// immutable values; adapters translate them through the Visitor interface.
package action

import (
	"github.com/ocomsoft/schemashift/internal/types"
)

// Kind identifies an action variant.
type Kind int

const (
	KindAddColumn Kind = iota
	KindDropColumn
	KindRemoveColumn
	KindRenameColumn
	KindChangeColumn
	KindAddIndex
	KindDropIndex
	KindAddForeignKey
	KindDropForeignKey
	KindCreateTable
	KindDropTable
	KindRenameTable
	KindChangePrimaryKey
	KindChangeComment
)

var kindNames = [...]string{
	KindAddColumn:        "AddColumn",
	KindDropColumn:       "DropColumn",
	KindRemoveColumn:     "RemoveColumn",
	KindRenameColumn:     "RenameColumn",
	KindChangeColumn:     "ChangeColumn",
	KindAddIndex:         "AddIndex",
	KindDropIndex:        "DropIndex",
	KindAddForeignKey:    "AddForeignKey",
	KindDropForeignKey:   "DropForeignKey",
	KindCreateTable:      "CreateTable",
	KindDropTable:        "DropTable",
	KindRenameTable:      "RenameTable",
	KindChangePrimaryKey: "ChangePrimaryKey",
	KindChangeComment:    "ChangeComment",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// Action is one schema change against a single table.
type Action interface {
	Kind() Kind
	Table() *types.Table
	Origin() Action
	Accept(v Visitor) error
	sealed()
}

// Visitor has one method per action kind. Implementations that miss a kind
// do not satisfy the interface.
type Visitor interface {
	VisitAddColumn(a *AddColumn) error
	VisitDropColumn(a *DropColumn) error
	VisitRemoveColumn(a *RemoveColumn) error
	VisitRenameColumn(a *RenameColumn) error
	VisitChangeColumn(a *ChangeColumn) error
	VisitAddIndex(a *AddIndex) error
	VisitDropIndex(a *DropIndex) error
	VisitAddForeignKey(a *AddForeignKey) error
	VisitDropForeignKey(a *DropForeignKey) error
	VisitCreateTable(a *CreateTable) error
	VisitDropTable(a *DropTable) error
	VisitRenameTable(a *RenameTable) error
	VisitChangePrimaryKey(a *ChangePrimaryKey) error
	VisitChangeComment(a *ChangeComment) error
}

type base struct {
	table  *types.Table
	origin Action
}

func (b base) Table() *types.Table { return b.table }

// Origin returns the action this one was derived from by reversal, or nil
// for authored actions.
func (b base) Origin() Action { return b.origin }
func (base) sealed()          {}

// AddColumn adds a column to an existing table.
type AddColumn struct {
	base
	column *types.Column
}

func (a *AddColumn) Kind() Kind             { return KindAddColumn }
func (a *AddColumn) Column() *types.Column  { return a.column.Clone() }
func (a *AddColumn) Accept(v Visitor) error { return v.VisitAddColumn(a) }

// DropColumn drops a column identified by name only.
type DropColumn struct {
	base
	name string
}

func (a *DropColumn) Kind() Kind             { return KindDropColumn }
func (a *DropColumn) ColumnName() string     { return a.name }
func (a *DropColumn) Accept(v Visitor) error { return v.VisitDropColumn(a) }

// RemoveColumn drops a column carrying its full definition. It is what
// reversing an AddColumn produces.
type RemoveColumn struct {
	base
	column *types.Column
}

func (a *RemoveColumn) Kind() Kind             { return KindRemoveColumn }
func (a *RemoveColumn) Column() *types.Column  { return a.column.Clone() }
func (a *RemoveColumn) ColumnName() string     { return a.column.Name }
func (a *RemoveColumn) Accept(v Visitor) error { return v.VisitRemoveColumn(a) }

// RenameColumn renames a column in place.
type RenameColumn struct {
	base
	oldName string
	newName string
}

func (a *RenameColumn) Kind() Kind             { return KindRenameColumn }
func (a *RenameColumn) OldName() string        { return a.oldName }
func (a *RenameColumn) NewName() string        { return a.newName }
func (a *RenameColumn) Accept(v Visitor) error { return v.VisitRenameColumn(a) }

// ChangeColumn replaces the definition of columnName with column. The new
// definition may also carry a new name.
type ChangeColumn struct {
	base
	columnName string
	column     *types.Column
}

func (a *ChangeColumn) Kind() Kind             { return KindChangeColumn }
func (a *ChangeColumn) ColumnName() string     { return a.columnName }
func (a *ChangeColumn) Column() *types.Column  { return a.column.Clone() }
func (a *ChangeColumn) Accept(v Visitor) error { return v.VisitChangeColumn(a) }

// AddIndex creates an index.
type AddIndex struct {
	base
	index *types.Index
}

func (a *AddIndex) Kind() Kind             { return KindAddIndex }
func (a *AddIndex) Index() *types.Index    { return cloneIndex(a.index) }
func (a *AddIndex) Accept(v Visitor) error { return v.VisitAddIndex(a) }

// DropIndex drops an index looked up either by name or by its columns.
type DropIndex struct {
	base
	index *types.Index
}

func (a *DropIndex) Kind() Kind             { return KindDropIndex }
func (a *DropIndex) Index() *types.Index    { return cloneIndex(a.index) }
func (a *DropIndex) ByName() bool           { return len(a.index.Columns) == 0 }
func (a *DropIndex) Accept(v Visitor) error { return v.VisitDropIndex(a) }

// AddForeignKey adds a foreign key constraint.
type AddForeignKey struct {
	base
	fk *types.ForeignKey
}

func (a *AddForeignKey) Kind() Kind                    { return KindAddForeignKey }
func (a *AddForeignKey) ForeignKey() *types.ForeignKey { return cloneForeignKey(a.fk) }
func (a *AddForeignKey) Accept(v Visitor) error        { return v.VisitAddForeignKey(a) }

// DropForeignKey drops a foreign key looked up by its columns or, when no
// columns are given, by constraint name.
type DropForeignKey struct {
	base
	fk *types.ForeignKey
}

func (a *DropForeignKey) Kind() Kind                    { return KindDropForeignKey }
func (a *DropForeignKey) ForeignKey() *types.ForeignKey { return cloneForeignKey(a.fk) }
func (a *DropForeignKey) ByConstraint() bool            { return len(a.fk.Columns) == 0 }
func (a *DropForeignKey) Accept(v Visitor) error        { return v.VisitDropForeignKey(a) }

// CreateTable marks the table as new. Columns and indexes for it travel as
// separate AddColumn and AddIndex actions.
type CreateTable struct {
	base
}

func (a *CreateTable) Kind() Kind             { return KindCreateTable }
func (a *CreateTable) Accept(v Visitor) error { return v.VisitCreateTable(a) }

type DropTable struct {
	base
}

func (a *DropTable) Kind() Kind             { return KindDropTable }
func (a *DropTable) Accept(v Visitor) error { return v.VisitDropTable(a) }

type RenameTable struct {
	base
	newName string
}

func (a *RenameTable) Kind() Kind             { return KindRenameTable }
func (a *RenameTable) NewName() string        { return a.newName }
func (a *RenameTable) Accept(v Visitor) error { return v.VisitRenameTable(a) }

// ChangePrimaryKey replaces the primary key. Nil columns drop it.
type ChangePrimaryKey struct {
	base
	columns []string
}

func (a *ChangePrimaryKey) Kind() Kind { return KindChangePrimaryKey }
func (a *ChangePrimaryKey) Columns() []string {
	return append([]string(nil), a.columns...)
}
func (a *ChangePrimaryKey) Accept(v Visitor) error { return v.VisitChangePrimaryKey(a) }

// ChangeComment sets the table comment. An empty comment clears it.
type ChangeComment struct {
	base
	comment string
}

func (a *ChangeComment) Kind() Kind             { return KindChangeComment }
func (a *ChangeComment) Comment() string        { return a.comment }
func (a *ChangeComment) Accept(v Visitor) error { return v.VisitChangeComment(a) }

func cloneIndex(i *types.Index) *types.Index {
	c := *i
	c.Columns = append([]string(nil), i.Columns...)
	return &c
}

func cloneForeignKey(f *types.ForeignKey) *types.ForeignKey {
	c := *f
	c.Columns = append([]string(nil), f.Columns...)
	c.ReferencedColumns = append([]string(nil), f.ReferencedColumns...)
	return &c
}
