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
// Package plan turns a flat list of actions into ordered, conflict free
// batches and hands them to an adapter.
package plan

import (
	"context"
	"fmt"
	"strings"

	"github.com/ocomsoft/schemashift/internal/action"
	"github.com/ocomsoft/schemashift/internal/types"
)

// Target is what a plan executes against. adapter.Adapter satisfies it.
type Target interface {
	CreateTable(ctx context.Context, table *types.Table, columns []*types.Column, indexes []*types.Index) error
	ExecuteActions(ctx context.Context, table *types.Table, actions []action.Action) error
}

// Batch is one table's ordered actions, executed as one logical ALTER.
type Batch struct {
	Table   *types.Table
	Actions []action.Action
}

// NewTable is a CreateTable with the columns and indexes folded into it.
type NewTable struct {
	Table   *types.Table
	Columns []*types.Column
	Indexes []*types.Index
}

// Intent is the ordered list of actions a caller submits at once.
type Intent struct {
	actions []action.Action
}

func NewIntent(actions ...action.Action) *Intent {
	return &Intent{actions: append([]action.Action(nil), actions...)}
}

func (i *Intent) Add(actions ...action.Action) {
	i.actions = append(i.actions, actions...)
}

func (i *Intent) Actions() []action.Action {
	return append([]action.Action(nil), i.actions...)
}

// category groups actions into one batch per table, in first seen order.
type category struct {
	batches []*Batch
	byTable map[string]*Batch
}

func (c *category) add(a action.Action) {
	if c.byTable == nil {
		c.byTable = make(map[string]*Batch)
	}
	name := a.Table().Name
	b, ok := c.byTable[name]
	if !ok {
		b = &Batch{Table: a.Table()}
		c.byTable[name] = b
		c.batches = append(c.batches, b)
	}
	b.Actions = append(b.Actions, a)
}

// forget drops every batch of table.
func forget(batches []*Batch, table string) []*Batch {
	var out []*Batch
	for _, b := range batches {
		if b.Table.Name != table {
			out = append(out, b)
		}
	}
	return out
}

// Plan holds table creates and the batch categories in execution order.
type Plan struct {
	tableCreates  []*NewTable
	tableUpdates  []*Batch
	constraints   []*Batch
	indexes       []*Batch
	columnRemoves []*Batch
	columnReadds  []*Batch
	tableMoves    []*Batch
}

// New gathers and orders the actions of intent.
func New(intent *Intent) *Plan {
	p := &Plan{}
	p.gather(intent.Actions())
	p.resolveConflicts()
	return p
}

func (p *Plan) gather(actions []action.Action) {
	creates := make(map[string]*NewTable)
	for _, a := range actions {
		if ct, ok := a.(*action.CreateTable); ok {
			nt := &NewTable{Table: ct.Table()}
			creates[ct.Table().Name] = nt
			p.tableCreates = append(p.tableCreates, nt)
		}
	}

	var updates, constraints, indexes, removes, readds, moves category
	removed := make(map[string]map[string]bool)

	for _, a := range actions {
		name := a.Table().Name
		nt, isNew := creates[name]
		switch a := a.(type) {
		case *action.CreateTable:
		case *action.AddColumn:
			if isNew {
				nt.Columns = append(nt.Columns, a.Column())
				continue
			}
			if removed[name][strings.ToLower(a.Column().Name)] {
				readds.add(a)
			} else {
				updates.add(a)
			}
		case *action.ChangeColumn, *action.RenameColumn:
			updates.add(a)
		case *action.DropColumn:
			markRemoved(removed, name, a.ColumnName())
			removes.add(a)
		case *action.RemoveColumn:
			markRemoved(removed, name, a.ColumnName())
			removes.add(a)
		case *action.AddIndex:
			if isNew {
				nt.Indexes = append(nt.Indexes, a.Index())
				continue
			}
			indexes.add(a)
		case *action.DropIndex:
			indexes.add(a)
		case *action.AddForeignKey, *action.DropForeignKey:
			constraints.add(a)
		case *action.DropTable, *action.RenameTable, *action.ChangePrimaryKey, *action.ChangeComment:
			moves.add(a)
		}
	}

	p.tableUpdates = updates.batches
	p.constraints = constraints.batches
	p.indexes = indexes.batches
	p.columnRemoves = removes.batches
	p.columnReadds = readds.batches
	p.tableMoves = moves.batches
}

func markRemoved(removed map[string]map[string]bool, table, column string) {
	if removed[table] == nil {
		removed[table] = make(map[string]bool)
	}
	removed[table][strings.ToLower(column)] = true
}

func (p *Plan) resolveConflicts() {
	for _, b := range p.tableMoves {
		for _, a := range b.Actions {
			if _, ok := a.(*action.DropTable); !ok {
				continue
			}
			name := a.Table().Name
			p.tableUpdates = forget(p.tableUpdates, name)
			p.constraints = forget(p.constraints, name)
			p.indexes = forget(p.indexes, name)
			p.columnRemoves = forget(p.columnRemoves, name)
			p.columnReadds = forget(p.columnReadds, name)
		}
	}

	// The engine drops an index together with its only column.
	for _, b := range p.columnRemoves {
		for _, a := range b.Actions {
			var column string
			switch a := a.(type) {
			case *action.DropColumn:
				column = a.ColumnName()
			case *action.RemoveColumn:
				column = a.ColumnName()
			default:
				continue
			}
			p.indexes, _ = takeDropIndex(p.indexes, b.Table.Name, []string{column})
		}
	}

	// An index backing a foreign key can only go once the key is gone.
	for i, b := range p.constraints {
		p.constraints[i] = p.pullIndexDrops(b)
	}

	p.tableUpdates = splitAll(p.tableUpdates, ConflictPolicies)
	p.constraints = splitAll(p.constraints, ConflictPolicies)
	p.indexes = splitAll(p.indexes, ConflictPolicies)
	p.columnRemoves = splitAll(p.columnRemoves, ConflictPolicies)
	p.columnReadds = splitAll(p.columnReadds, ConflictPolicies)
}

func (p *Plan) pullIndexDrops(b *Batch) *Batch {
	out := &Batch{Table: b.Table}
	for _, a := range b.Actions {
		out.Actions = append(out.Actions, a)
		drop, ok := a.(*action.DropForeignKey)
		if !ok || drop.ByConstraint() {
			continue
		}
		var taken []action.Action
		p.indexes, taken = takeDropIndex(p.indexes, b.Table.Name, drop.ForeignKey().Columns)
		out.Actions = append(out.Actions, taken...)
	}
	return out
}

// takeDropIndex removes DropIndex actions on exactly columns from table's
// batches and returns them.
func takeDropIndex(batches []*Batch, table string, columns []string) ([]*Batch, []action.Action) {
	var taken []action.Action
	var out []*Batch
	for _, b := range batches {
		if b.Table.Name != table {
			out = append(out, b)
			continue
		}
		kept := &Batch{Table: b.Table}
		for _, a := range b.Actions {
			if d, ok := a.(*action.DropIndex); ok && !d.ByName() && types.EqualFold(d.Index().Columns, columns) {
				taken = append(taken, a)
				continue
			}
			kept.Actions = append(kept.Actions, a)
		}
		out = appendNonEmpty(out, kept)
	}
	return out, taken
}

// Creates returns the tables created by the plan.
func (p *Plan) Creates() []*NewTable {
	return append([]*NewTable(nil), p.tableCreates...)
}

// Batches returns the update batches in forward execution order.
func (p *Plan) Batches() []*Batch {
	return concat(p.tableUpdates, p.constraints, p.indexes, p.columnRemoves, p.columnReadds, p.tableMoves)
}

// InverseBatches returns the update batches in the order used when replaying
// a reversed intent.
func (p *Plan) InverseBatches() []*Batch {
	return concat(p.constraints, p.tableMoves, p.indexes, p.columnRemoves, p.columnReadds, p.tableUpdates)
}

func concat(groups ...[]*Batch) []*Batch {
	var out []*Batch
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// Execute creates the new tables, then runs the update batches.
func (p *Plan) Execute(ctx context.Context, t Target) error {
	if err := p.executeCreates(ctx, t); err != nil {
		return err
	}
	return executeBatches(ctx, t, p.Batches())
}

// ExecuteInverse runs the batches in inverse order and the creates last.
func (p *Plan) ExecuteInverse(ctx context.Context, t Target) error {
	if err := executeBatches(ctx, t, p.InverseBatches()); err != nil {
		return err
	}
	return p.executeCreates(ctx, t)
}

func (p *Plan) executeCreates(ctx context.Context, t Target) error {
	for _, nt := range p.tableCreates {
		if err := t.CreateTable(ctx, nt.Table, nt.Columns, nt.Indexes); err != nil {
			return fmt.Errorf("failed to create table %s: %w", nt.Table.Name, err)
		}
	}
	return nil
}

func executeBatches(ctx context.Context, t Target, batches []*Batch) error {
	for _, b := range batches {
		if err := t.ExecuteActions(ctx, b.Table, b.Actions); err != nil {
			return fmt.Errorf("failed to alter table %s: %w", b.Table.Name, err)
		}
	}
	return nil
}

// Apply plans and executes actions against t. It is the entry point for a
// unit of schema change.
func Apply(ctx context.Context, t Target, actions ...action.Action) error {
	if len(actions) == 0 {
		return nil
	}
	return New(NewIntent(actions...)).Execute(ctx, t)
}
