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
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/ocomsoft/schemashift/internal/action"
	"github.com/ocomsoft/schemashift/internal/types"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func col(name string) types.Column {
	return types.Column{Name: name, Type: types.ColumnInteger}
}

// describe renders an action compactly for comparisons.
func describe(a action.Action) string {
	switch a := a.(type) {
	case *action.AddColumn:
		return "AddColumn(" + a.Column().Name + ")"
	case *action.DropColumn:
		return "DropColumn(" + a.ColumnName() + ")"
	case *action.RemoveColumn:
		return "RemoveColumn(" + a.ColumnName() + ")"
	case *action.RenameColumn:
		return "RenameColumn(" + a.OldName() + "->" + a.NewName() + ")"
	case *action.ChangeColumn:
		return "ChangeColumn(" + a.ColumnName() + ")"
	case *action.AddIndex:
		return "AddIndex(" + strings.Join(a.Index().Columns, ",") + ")"
	case *action.DropIndex:
		return "DropIndex(" + strings.Join(a.Index().Columns, ",") + a.Index().Name + ")"
	case *action.AddForeignKey:
		return "AddForeignKey(" + strings.Join(a.ForeignKey().Columns, ",") + ")"
	case *action.DropForeignKey:
		return "DropForeignKey(" + strings.Join(a.ForeignKey().Columns, ",") + ")"
	default:
		return a.Kind().String()
	}
}

func describeBatches(batches []*Batch) []string {
	var out []string
	for _, b := range batches {
		var parts []string
		for _, a := range b.Actions {
			parts = append(parts, describe(a))
		}
		out = append(out, b.Table.Name+":"+strings.Join(parts, " "))
	}
	return out
}

func assertBatches(t *testing.T, got []*Batch, expected ...string) {
	t.Helper()
	actual := describeBatches(got)
	if strings.Join(actual, "\n") != strings.Join(expected, "\n") {
		t.Errorf("batches =\n%s\nexpected\n%s", strings.Join(actual, "\n"), strings.Join(expected, "\n"))
	}
}

func TestAddThenDropSameColumnSplits(t *testing.T) {
	table := types.NewTable("posts")
	p := New(NewIntent(
		must(action.BuildAddColumn(table, col("x"))),
		must(action.BuildDropColumn(table, "x")),
	))
	assertBatches(t, p.Batches(), "posts:AddColumn(x)", "posts:DropColumn(x)")
}

func TestDropThenReAddKeepsAuthorOrder(t *testing.T) {
	table := types.NewTable("posts")
	p := New(NewIntent(
		must(action.BuildRemoveColumn(table, col("x"))),
		must(action.BuildAddColumn(table, col("x"))),
		must(action.BuildAddColumn(table, col("y"))),
	))
	assertBatches(t, p.Batches(), "posts:AddColumn(y)", "posts:RemoveColumn(x)", "posts:AddColumn(x)")
}

func TestCreateTableFoldsColumnsAndIndexes(t *testing.T) {
	table := types.NewTable("posts")
	p := New(NewIntent(
		must(action.BuildCreateTable(table)),
		must(action.BuildAddColumn(table, col("title"))),
		must(action.BuildAddIndex(table, []string{"title"}, types.Index{Type: types.IndexUnique})),
		must(action.BuildAddForeignKey(table, []string{"user_id"}, "users", nil, types.ForeignKey{})),
	))
	creates := p.Creates()
	if len(creates) != 1 {
		t.Fatalf("expected 1 create, got %d", len(creates))
	}
	if len(creates[0].Columns) != 1 || creates[0].Columns[0].Name != "title" {
		t.Errorf("columns not folded: %+v", creates[0].Columns)
	}
	if len(creates[0].Indexes) != 1 || !creates[0].Indexes[0].IsUnique() {
		t.Errorf("indexes not folded: %+v", creates[0].Indexes)
	}
	assertBatches(t, p.Batches(), "posts:AddForeignKey(user_id)")
}

func TestCategoryOrder(t *testing.T) {
	posts := types.NewTable("posts")
	users := types.NewTable("users")
	p := New(NewIntent(
		must(action.BuildRenameTable(users, "members")),
		must(action.BuildDropColumn(posts, "legacy")),
		must(action.BuildAddIndex(posts, []string{"title"}, types.Index{})),
		must(action.BuildAddForeignKey(posts, []string{"user_id"}, "users", nil, types.ForeignKey{})),
		must(action.BuildAddColumn(posts, col("title"))),
		must(action.BuildAddColumn(users, col("email"))),
	))
	assertBatches(t, p.Batches(),
		"posts:AddColumn(title)",
		"users:AddColumn(email)",
		"posts:AddForeignKey(user_id)",
		"posts:AddIndex(title)",
		"posts:DropColumn(legacy)",
		"users:RenameTable",
	)
	assertBatches(t, p.InverseBatches(),
		"posts:AddForeignKey(user_id)",
		"users:RenameTable",
		"posts:AddIndex(title)",
		"posts:DropColumn(legacy)",
		"posts:AddColumn(title)",
		"users:AddColumn(email)",
	)
}

func TestDropTableForgetsOtherBatches(t *testing.T) {
	posts := types.NewTable("posts")
	users := types.NewTable("users")
	p := New(NewIntent(
		must(action.BuildDropIndex(posts, "n")),
		must(action.BuildRemoveColumn(posts, col("n"))),
		must(action.BuildAddColumn(users, col("age"))),
		must(action.BuildDropTable(posts)),
	))
	assertBatches(t, p.Batches(), "users:AddColumn(age)", "posts:DropTable")
}

func TestRemovedColumnForgetsItsIndexDrop(t *testing.T) {
	posts := types.NewTable("posts")
	p := New(NewIntent(
		must(action.BuildDropIndex(posts, "n")),
		must(action.BuildDropIndex(posts, "n", "m")),
		must(action.BuildDropColumn(posts, "n")),
	))
	assertBatches(t, p.Batches(), "posts:DropIndex(n,m)", "posts:DropColumn(n)")
}

func TestDropForeignKeyPullsIndexDrop(t *testing.T) {
	posts := types.NewTable("posts")
	p := New(NewIntent(
		must(action.BuildDropIndex(posts, "user_id")),
		must(action.BuildDropForeignKey(posts, []string{"user_id"}, "")),
		must(action.BuildAddForeignKey(posts, []string{"user_id"}, "members", nil, types.ForeignKey{})),
	))
	assertBatches(t, p.Batches(),
		"posts:DropForeignKey(user_id) DropIndex(user_id)",
		"posts:AddForeignKey(user_id)",
	)
}

func TestRenameThenChangeSplits(t *testing.T) {
	posts := types.NewTable("posts")
	p := New(NewIntent(
		must(action.BuildRenameColumn(posts, "title", "headline")),
		must(action.BuildChangeColumn(posts, "headline", types.Column{Type: types.ColumnText})),
		must(action.BuildAddColumn(posts, col("title"))),
		must(action.BuildAddColumn(posts, col("body"))),
	))
	assertBatches(t, p.Batches(),
		"posts:RenameColumn(title->headline) AddColumn(body)",
		"posts:AddColumn(title)",
		"posts:ChangeColumn(headline)",
	)
}

func TestSplitterReturnsEmptySecondBatchWithoutConflicts(t *testing.T) {
	posts := types.NewTable("posts")
	b := &Batch{Table: posts, Actions: []action.Action{
		must(action.BuildAddColumn(posts, col("a"))),
		must(action.BuildDropColumn(posts, "b")),
	}}
	kept, extracted := ConflictPolicies[3].Split(b)
	if len(kept.Actions) != 2 || len(extracted.Actions) != 0 {
		t.Errorf("kept=%d extracted=%d", len(kept.Actions), len(extracted.Actions))
	}
	if extracted.Table != posts {
		t.Error("extracted batch lost its table")
	}
}

// TestSplitterInvariant checks random batches: nothing conflicting stays in
// the first batch, and every action lands in exactly one batch in order.
func TestSplitterInvariant(t *testing.T) {
	posts := types.NewTable("posts")
	rng := rand.New(rand.NewSource(7))
	names := []string{"a", "b", "c"}
	conflicts := func(a *action.AddColumn, d *action.DropColumn) bool {
		return a.Column().Name == d.ColumnName()
	}
	splitter := NewSplitter("test", conflicts)

	for round := 0; round < 200; round++ {
		var actions []action.Action
		for i := 0; i < rng.Intn(8); i++ {
			name := names[rng.Intn(len(names))]
			switch rng.Intn(3) {
			case 0:
				actions = append(actions, must(action.BuildAddColumn(posts, col(name))))
			case 1:
				actions = append(actions, must(action.BuildDropColumn(posts, name)))
			default:
				actions = append(actions, must(action.BuildRenameColumn(posts, name, name+"2")))
			}
		}

		kept, extracted := splitter.Split(&Batch{Table: posts, Actions: actions})
		if len(kept.Actions)+len(extracted.Actions) != len(actions) {
			t.Fatalf("round %d: lost actions", round)
		}
		for _, k := range kept.Actions {
			d, ok := k.(*action.DropColumn)
			if !ok {
				continue
			}
			for _, other := range kept.Actions {
				if a, ok := other.(*action.AddColumn); ok && conflicts(a, d) {
					t.Fatalf("round %d: conflicting pair left in first batch", round)
				}
			}
		}
		if !isSubsequence(kept.Actions, actions) || !isSubsequence(extracted.Actions, actions) {
			t.Fatalf("round %d: relative order not preserved", round)
		}
	}
}

func isSubsequence(sub, all []action.Action) bool {
	i := 0
	for _, a := range all {
		if i < len(sub) && sub[i] == a {
			i++
		}
	}
	return i == len(sub)
}

type recordingTarget struct {
	calls []string
	fail  string
}

func (r *recordingTarget) CreateTable(_ context.Context, table *types.Table, columns []*types.Column, _ []*types.Index) error {
	call := fmt.Sprintf("create %s (%d columns)", table.Name, len(columns))
	r.calls = append(r.calls, call)
	if call == r.fail {
		return fmt.Errorf("boom")
	}
	return nil
}

func (r *recordingTarget) ExecuteActions(_ context.Context, table *types.Table, actions []action.Action) error {
	var parts []string
	for _, a := range actions {
		parts = append(parts, describe(a))
	}
	r.calls = append(r.calls, "alter "+table.Name+" "+strings.Join(parts, " "))
	return nil
}

func TestExecuteAndExecuteInverse(t *testing.T) {
	posts := types.NewTable("posts")
	intent := NewIntent(
		must(action.BuildCreateTable(posts)),
		must(action.BuildAddColumn(posts, col("n"))),
		must(action.BuildAddForeignKey(posts, []string{"user_id"}, "users", nil, types.ForeignKey{})),
	)

	forward := &recordingTarget{}
	if err := New(intent).Execute(context.Background(), forward); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	expected := "create posts (1 columns)|alter posts AddForeignKey(user_id)"
	if got := strings.Join(forward.calls, "|"); got != expected {
		t.Errorf("forward calls = %s; expected %s", got, expected)
	}

	inverse := &recordingTarget{}
	if err := New(intent).ExecuteInverse(context.Background(), inverse); err != nil {
		t.Fatalf("ExecuteInverse failed: %v", err)
	}
	expected = "alter posts AddForeignKey(user_id)|create posts (1 columns)"
	if got := strings.Join(inverse.calls, "|"); got != expected {
		t.Errorf("inverse calls = %s; expected %s", got, expected)
	}
}

func TestApplyPropagatesErrors(t *testing.T) {
	posts := types.NewTable("posts")
	target := &recordingTarget{fail: "create posts (0 columns)"}
	err := Apply(context.Background(), target, must(action.BuildCreateTable(posts)), must(action.BuildDropIndex(posts, "x")))
	if err == nil {
		t.Fatal("expected error")
	}
	if len(target.calls) != 1 {
		t.Errorf("execution continued after failure: %v", target.calls)
	}
	if err := Apply(context.Background(), target); err != nil {
		t.Errorf("empty Apply returned %v", err)
	}
}
