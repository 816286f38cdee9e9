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
// Package proxy records the actions of a reversible migration and replays
// their inverse.
package proxy

import (
	"context"

	"github.com/ocomsoft/schemashift/internal/action"
	"github.com/ocomsoft/schemashift/internal/adapter"
	"github.com/ocomsoft/schemashift/internal/errors"
	"github.com/ocomsoft/schemashift/internal/plan"
	"github.com/ocomsoft/schemashift/internal/types"
)

// Recorder stands in for an adapter while a change script runs. Table
// creation and action batches are logged instead of executed; schema
// questions are answered by the wrapped adapter.
type Recorder struct {
	adapter.Introspector
	target adapter.Adapter
	log    []action.Action
}

var _ adapter.Adapter = (*Recorder)(nil)

func New(target adapter.Adapter) *Recorder {
	return &Recorder{Introspector: target, target: target}
}

func (r *Recorder) Dialect() types.DatabaseType {
	return r.target.Dialect()
}

// CreateTable logs a CreateTable. The columns and indexes need no entry of
// their own since dropping the table undoes them.
func (r *Recorder) CreateTable(_ context.Context, table *types.Table, _ []*types.Column, _ []*types.Index) error {
	create, err := action.BuildCreateTable(table)
	if err != nil {
		return err
	}
	r.log = append(r.log, create)
	return nil
}

func (r *Recorder) ExecuteActions(_ context.Context, _ *types.Table, actions []action.Action) error {
	r.log = append(r.log, actions...)
	return nil
}

// Actions returns the recorded log in author order.
func (r *Recorder) Actions() []action.Action {
	return append([]action.Action(nil), r.log...)
}

// Reset clears the log.
func (r *Recorder) Reset() {
	r.log = nil
}

// InvertedActions walks the log backwards and returns the dual of every
// action. The first action without a dual aborts the whole inversion.
func (r *Recorder) InvertedActions() ([]action.Action, error) {
	inverted := make([]action.Action, 0, len(r.log))
	for i := len(r.log) - 1; i >= 0; i-- {
		inv, err := Invert(r.log[i])
		if err != nil {
			return nil, err
		}
		inverted = append(inverted, inv)
	}
	return inverted, nil
}

// ExecuteInverted replays the inverted log on the wrapped adapter.
func (r *Recorder) ExecuteInverted(ctx context.Context) error {
	inverted, err := r.InvertedActions()
	if err != nil {
		return err
	}
	if len(inverted) == 0 {
		return nil
	}
	return plan.New(plan.NewIntent(inverted...)).ExecuteInverse(ctx, r.target)
}

// Invert returns the dual of a. Kinds that lose information going forward
// have no dual and yield an IrreversibleMigrationError, unless a is itself
// a dual, in which case the action it came from is returned.
func Invert(a action.Action) (action.Action, error) {
	if origin := a.Origin(); origin != nil {
		return origin, nil
	}
	switch a := a.(type) {
	case *action.CreateTable:
		return action.DropTableFor(a), nil
	case *action.RenameTable:
		return action.RenameTableBack(a), nil
	case *action.AddColumn:
		return action.RemoveColumnFor(a), nil
	case *action.RenameColumn:
		return action.RenameColumnBack(a), nil
	case *action.AddIndex:
		return action.DropIndexFor(a), nil
	case *action.AddForeignKey:
		return action.DropForeignKeyFor(a), nil
	default:
		return nil, errors.NewIrreversibleMigrationError(a.Kind().String())
	}
}
