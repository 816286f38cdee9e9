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
package instructions

import (
	"context"
	"fmt"
	"reflect"
	"testing"
)

type recordingExecutor struct {
	queries []string
	failOn  string
}

func (r *recordingExecutor) Execute(_ context.Context, query string, _ ...any) (int64, error) {
	if query == r.failOn {
		return 0, fmt.Errorf("failed: %s", query)
	}
	r.queries = append(r.queries, query)
	return 0, nil
}

func sample(prefix string) *AlterInstructions {
	return New([]string{prefix + "_alter1", prefix + "_alter2"}, prefix+"_post")
}

func stepSQL(steps []Step) []string {
	var out []string
	for _, s := range steps {
		out = append(out, s.SQL)
	}
	return out
}

func TestMergeIsAssociative(t *testing.T) {
	left := sample("a")
	ab := sample("b")
	left.Merge(ab)
	left.Merge(sample("c"))

	bc := sample("b")
	bc.Merge(sample("c"))
	right := sample("a")
	right.Merge(bc)

	if !reflect.DeepEqual(left.AlterParts(), right.AlterParts()) {
		t.Errorf("alter parts differ: %v vs %v", left.AlterParts(), right.AlterParts())
	}
	if !reflect.DeepEqual(stepSQL(left.PostSteps()), stepSQL(right.PostSteps())) {
		t.Errorf("post steps differ: %v vs %v", stepSQL(left.PostSteps()), stepSQL(right.PostSteps()))
	}
	expected := []string{"a_alter1", "a_alter2", "b_alter1", "b_alter2", "c_alter1", "c_alter2"}
	if !reflect.DeepEqual(left.AlterParts(), expected) {
		t.Errorf("AlterParts() = %v; expected %v", left.AlterParts(), expected)
	}
}

func TestExecuteJoinsAlterPartsThenRunsPostSteps(t *testing.T) {
	in := New([]string{"ADD COLUMN a INT", "DROP COLUMN b"}, "CREATE INDEX i ON t (a)")
	in.AddPostStep("COMMENT ON TABLE t IS 'x'")

	exec := &recordingExecutor{}
	if err := in.Execute(context.Background(), "ALTER TABLE t %s", exec); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	expected := []string{
		"ALTER TABLE t ADD COLUMN a INT, DROP COLUMN b",
		"CREATE INDEX i ON t (a)",
		"COMMENT ON TABLE t IS 'x'",
	}
	if !reflect.DeepEqual(exec.queries, expected) {
		t.Errorf("queries = %v; expected %v", exec.queries, expected)
	}
}

func TestExecuteSkipsEmptyAlter(t *testing.T) {
	in := New(nil, "DROP INDEX i")
	exec := &recordingExecutor{}
	if err := in.Execute(context.Background(), "ALTER TABLE t %s", exec); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !reflect.DeepEqual(exec.queries, []string{"DROP INDEX i"}) {
		t.Errorf("queries = %v", exec.queries)
	}
}

func TestExecuteThreadsStateThroughPhases(t *testing.T) {
	in := New(nil)
	in.AddPhase(func(_ context.Context, s State) (State, error) {
		s.TmpTableName = "tmp_posts"
		return s, nil
	})
	in.AddPostStep("SELECT 1")
	in.AddPhase(func(_ context.Context, s State) (State, error) {
		s.SelectColumns = []string{"id"}
		return s, nil
	})
	var final State
	in.AddPhase(func(_ context.Context, s State) (State, error) {
		final = s
		return s, nil
	})

	if err := in.Execute(context.Background(), "%s", &recordingExecutor{}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if final.TmpTableName != "tmp_posts" || len(final.SelectColumns) != 1 {
		t.Errorf("state not threaded: %+v", final)
	}
}

func TestExecuteStopsAtFirstFailure(t *testing.T) {
	in := New([]string{"ADD x"}, "first", "second", "third")
	exec := &recordingExecutor{failOn: "second"}
	if err := in.Execute(context.Background(), "ALTER TABLE t %s", exec); err == nil {
		t.Fatal("expected error")
	}
	expected := []string{"ALTER TABLE t ADD x", "first"}
	if !reflect.DeepEqual(exec.queries, expected) {
		t.Errorf("queries = %v; expected %v", exec.queries, expected)
	}

	failing := New(nil)
	ran := false
	failing.AddPhase(func(_ context.Context, s State) (State, error) {
		return s, fmt.Errorf("phase failed")
	})
	failing.AddPhase(func(_ context.Context, s State) (State, error) {
		ran = true
		return s, nil
	})
	if err := failing.Execute(context.Background(), "%s", &recordingExecutor{}); err == nil {
		t.Fatal("expected phase error")
	}
	if ran {
		t.Error("phase after a failure ran")
	}
}
