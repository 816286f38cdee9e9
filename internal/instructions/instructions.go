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
// Package instructions is the mergeable container adapters fill in for each
// action: inline ALTER clauses plus ordered post steps.
package instructions

import (
	"context"
	"fmt"
	"strings"
)

// Executor runs one statement. sink.Sink satisfies it.
type Executor interface {
	Execute(ctx context.Context, query string, args ...any) (int64, error)
}

// State is threaded through the phases of a table rebuild.
type State struct {
	TmpTableName       string
	CreateSQL          string
	SelectColumns      []string
	WriteColumns       []string
	ColumnType         string
	Indices            []string
	Triggers           []string
	ForeignKeysEnabled bool
}

// Phase receives the state produced by the previous phase.
type Phase func(ctx context.Context, state State) (State, error)

// Step is either a literal statement or a Phase.
type Step struct {
	SQL   string
	Phase Phase
}

// IsPhase reports whether the step is a stateful callback.
func (s Step) IsPhase() bool {
	return s.Phase != nil
}

// AlterInstructions collects what one or more actions need executed.
type AlterInstructions struct {
	alterParts []string
	postSteps  []Step
}

// New returns instructions holding the given alter parts and literal post
// steps.
func New(alterParts []string, postSteps ...string) *AlterInstructions {
	a := &AlterInstructions{alterParts: append([]string(nil), alterParts...)}
	for _, sql := range postSteps {
		a.AddPostStep(sql)
	}
	return a
}

func (a *AlterInstructions) AddAlter(part string) {
	a.alterParts = append(a.alterParts, part)
}

func (a *AlterInstructions) AddPostStep(sql string) {
	a.postSteps = append(a.postSteps, Step{SQL: sql})
}

func (a *AlterInstructions) AddPhase(p Phase) {
	a.postSteps = append(a.postSteps, Step{Phase: p})
}

// Merge appends other's parts and steps after a's own.
func (a *AlterInstructions) Merge(other *AlterInstructions) {
	if other == nil {
		return
	}
	a.alterParts = append(a.alterParts, other.alterParts...)
	a.postSteps = append(a.postSteps, other.postSteps...)
}

func (a *AlterInstructions) AlterParts() []string {
	return append([]string(nil), a.alterParts...)
}

func (a *AlterInstructions) PostSteps() []Step {
	return append([]Step(nil), a.postSteps...)
}

// IsEmpty reports whether executing would do nothing.
func (a *AlterInstructions) IsEmpty() bool {
	return len(a.alterParts) == 0 && len(a.postSteps) == 0
}

// Execute runs the joined alter parts through alterTemplate, then every post
// step in order. The first failure stops execution.
func (a *AlterInstructions) Execute(ctx context.Context, alterTemplate string, exec Executor) error {
	if len(a.alterParts) > 0 {
		query := fmt.Sprintf(alterTemplate, strings.Join(a.alterParts, ", "))
		if _, err := exec.Execute(ctx, query); err != nil {
			return err
		}
	}

	var state State
	for _, step := range a.postSteps {
		if step.IsPhase() {
			next, err := step.Phase(ctx, state)
			if err != nil {
				return err
			}
			state = next
			continue
		}
		if _, err := exec.Execute(ctx, step.SQL); err != nil {
			return err
		}
	}
	return nil
}
