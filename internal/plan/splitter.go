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
package plan

import (
	"strings"

	"github.com/ocomsoft/schemashift/internal/action"
	"github.com/ocomsoft/schemashift/internal/types"
)

// Splitter moves actions of a dual kind that conflict with an action of a
// primary kind out of a batch into a second batch executed right after it.
type Splitter struct {
	Name  string
	split func(actions []action.Action) (kept, extracted []action.Action)
}

// NewSplitter builds a Splitter for primary kind P and dual kind D.
func NewSplitter[P, D action.Action](name string, conflicts func(primary P, dual D) bool) Splitter {
	return Splitter{
		Name: name,
		split: func(actions []action.Action) (kept, extracted []action.Action) {
			var primaries []P
			for _, a := range actions {
				if p, ok := a.(P); ok {
					primaries = append(primaries, p)
				}
			}
			for _, a := range actions {
				d, ok := a.(D)
				if !ok {
					kept = append(kept, a)
					continue
				}
				found := false
				for _, p := range primaries {
					if conflicts(p, d) {
						found = true
						break
					}
				}
				if found {
					extracted = append(extracted, a)
				} else {
					kept = append(kept, a)
				}
			}
			return kept, extracted
		},
	}
}

// Split always returns two batches for b's table. The second is empty when
// nothing conflicts.
func (s Splitter) Split(b *Batch) (*Batch, *Batch) {
	kept, extracted := s.split(b.Actions)
	return &Batch{Table: b.Table, Actions: kept}, &Batch{Table: b.Table, Actions: extracted}
}

// ConflictPolicies lists the action pairs that must never share one ALTER.
var ConflictPolicies = []Splitter{
	NewSplitter("rename-then-change-column", func(r *action.RenameColumn, c *action.ChangeColumn) bool {
		return strings.EqualFold(r.NewName(), c.ColumnName())
	}),
	NewSplitter("rename-then-reuse-column-name", func(r *action.RenameColumn, a *action.AddColumn) bool {
		return strings.EqualFold(r.OldName(), a.Column().Name)
	}),
	NewSplitter("drop-then-add-foreign-key", func(d *action.DropForeignKey, a *action.AddForeignKey) bool {
		return !d.ByConstraint() && types.EqualFold(d.ForeignKey().Columns, a.ForeignKey().Columns)
	}),
	// Plan already files adds and removes under different categories; these
	// two guard batches built by hand.
	NewSplitter("add-then-drop-column", func(a *action.AddColumn, d *action.DropColumn) bool {
		return strings.EqualFold(a.Column().Name, d.ColumnName())
	}),
	NewSplitter("add-then-remove-column", func(a *action.AddColumn, r *action.RemoveColumn) bool {
		return strings.EqualFold(a.Column().Name, r.ColumnName())
	}),
}

// splitAll runs every policy over batches, keeping extracted batches right
// after the batch they came from. Empty batches are dropped.
func splitAll(batches []*Batch, policies []Splitter) []*Batch {
	for _, policy := range policies {
		var next []*Batch
		for _, b := range batches {
			kept, extracted := policy.Split(b)
			next = appendNonEmpty(next, kept, extracted)
		}
		batches = next
	}
	return batches
}

func appendNonEmpty(batches []*Batch, candidates ...*Batch) []*Batch {
	for _, b := range candidates {
		if len(b.Actions) > 0 {
			batches = append(batches, b)
		}
	}
	return batches
}
