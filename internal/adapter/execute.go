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
package adapter

import (
	"context"

	"github.com/ocomsoft/schemashift/internal/action"
	"github.com/ocomsoft/schemashift/internal/errors"
	"github.com/ocomsoft/schemashift/internal/instructions"
	"github.com/ocomsoft/schemashift/internal/types"
)

// ExecuteActions translates every action with t, merges the results in order
// and executes them as one ALTER on table followed by the post steps.
func ExecuteActions(ctx context.Context, t Translator, exec instructions.Executor, table *types.Table, actions []action.Action) error {
	merged, err := Translate(ctx, t, actions)
	if err != nil {
		return err
	}
	return merged.Execute(ctx, t.AlterTemplate(table.Name), exec)
}

// Translate merges the instructions of every action without executing them.
func Translate(ctx context.Context, t Translator, actions []action.Action) (*instructions.AlterInstructions, error) {
	d := &dispatcher{ctx: ctx, t: t, merged: instructions.New(nil)}
	for _, a := range actions {
		if err := a.Accept(d); err != nil {
			return nil, err
		}
	}
	return d.merged, nil
}

type dispatcher struct {
	ctx    context.Context
	t      Translator
	merged *instructions.AlterInstructions
}

func (d *dispatcher) merge(in *instructions.AlterInstructions, err error) error {
	if err != nil {
		return err
	}
	d.merged.Merge(in)
	return nil
}

func (d *dispatcher) VisitAddColumn(a *action.AddColumn) error {
	return d.merge(d.t.AddColumnInstructions(d.ctx, a.Table(), a.Column()))
}

func (d *dispatcher) VisitDropColumn(a *action.DropColumn) error {
	return d.merge(d.t.DropColumnInstructions(d.ctx, a.Table(), a.ColumnName()))
}

func (d *dispatcher) VisitRemoveColumn(a *action.RemoveColumn) error {
	return d.merge(d.t.DropColumnInstructions(d.ctx, a.Table(), a.ColumnName()))
}

func (d *dispatcher) VisitRenameColumn(a *action.RenameColumn) error {
	return d.merge(d.t.RenameColumnInstructions(d.ctx, a.Table(), a.OldName(), a.NewName()))
}

func (d *dispatcher) VisitChangeColumn(a *action.ChangeColumn) error {
	return d.merge(d.t.ChangeColumnInstructions(d.ctx, a.Table(), a.ColumnName(), a.Column()))
}

func (d *dispatcher) VisitAddIndex(a *action.AddIndex) error {
	return d.merge(d.t.AddIndexInstructions(d.ctx, a.Table(), a.Index()))
}

func (d *dispatcher) VisitDropIndex(a *action.DropIndex) error {
	if a.ByName() {
		return d.merge(d.t.DropIndexByNameInstructions(d.ctx, a.Table(), a.Index().Name))
	}
	return d.merge(d.t.DropIndexInstructions(d.ctx, a.Table(), a.Index().Columns))
}

func (d *dispatcher) VisitAddForeignKey(a *action.AddForeignKey) error {
	return d.merge(d.t.AddForeignKeyInstructions(d.ctx, a.Table(), a.ForeignKey()))
}

func (d *dispatcher) VisitDropForeignKey(a *action.DropForeignKey) error {
	fk := a.ForeignKey()
	if a.ByConstraint() {
		return d.merge(d.t.DropForeignKeyByConstraintInstructions(d.ctx, a.Table(), fk.Constraint))
	}
	return d.merge(d.t.DropForeignKeyInstructions(d.ctx, a.Table(), fk.Columns))
}

// VisitCreateTable rejects creates inside a batch; they go through
// Adapter.CreateTable.
func (d *dispatcher) VisitCreateTable(a *action.CreateTable) error {
	return errors.NewUnsupportedOperationError(string(d.t.Dialect()), a.Kind().String()+" inside an action batch")
}

func (d *dispatcher) VisitDropTable(a *action.DropTable) error {
	return d.merge(d.t.DropTableInstructions(d.ctx, a.Table()))
}

func (d *dispatcher) VisitRenameTable(a *action.RenameTable) error {
	return d.merge(d.t.RenameTableInstructions(d.ctx, a.Table(), a.NewName()))
}

func (d *dispatcher) VisitChangePrimaryKey(a *action.ChangePrimaryKey) error {
	return d.merge(d.t.ChangePrimaryKeyInstructions(d.ctx, a.Table(), a.Columns()))
}

func (d *dispatcher) VisitChangeComment(a *action.ChangeComment) error {
	return d.merge(d.t.ChangeCommentInstructions(d.ctx, a.Table(), a.Comment()))
}
