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
// Package sinktest provides a recording sink for provider tests.
package sinktest

import (
	"context"
	"strings"

	"github.com/ocomsoft/schemashift/internal/sink"
)

// Recorder is a sink.Sink that records statements and answers queries from
// canned rows.
type Recorder struct {
	Executed []string
	Queries  []string
	answers  []answer
}

type answer struct {
	match string
	rows  []sink.Row
}

var _ sink.Sink = (*Recorder)(nil)

// Answer makes queries containing match return rows. Earlier answers win.
func (r *Recorder) Answer(match string, rows ...sink.Row) *Recorder {
	r.answers = append(r.answers, answer{match: match, rows: rows})
	return r
}

func (r *Recorder) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	r.Executed = append(r.Executed, query)
	return 0, nil
}

func (r *Recorder) Query(ctx context.Context, query string, args ...any) ([]sink.Row, error) {
	r.Queries = append(r.Queries, query)
	for _, a := range r.answers {
		if strings.Contains(query, a.match) {
			return a.rows, nil
		}
	}
	return nil, nil
}

// Statements returns the executed statements, one per line.
func (r *Recorder) Statements() string {
	return strings.Join(r.Executed, "\n")
}
