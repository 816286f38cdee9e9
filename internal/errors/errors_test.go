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
package errors

import (
	"fmt"
	"testing"
)

func TestErrorPredicatesSeeThroughWrapping(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"validation", NewValidationError("columns", "empty"), IsValidationError},
		{"schema parse", NewSchemaParseError("a.yaml", 3, "bad"), IsSchemaParseError},
		{"migration", NewMigrationError("up", "boom"), IsMigrationError},
		{"unsupported operation", NewUnsupportedOperationError("sqlite", "ChangeComment"), IsUnsupportedOperationError},
		{"unsupported type", NewUnsupportedColumnTypeError("sqlite", "cidr"), IsUnsupportedColumnTypeError},
		{"irreversible", NewIrreversibleMigrationError("ChangeColumn"), IsIrreversibleMigrationError},
		{"integrity", NewIntegrityViolationError("posts", []string{"row 1"}), IsIntegrityViolationError},
		{"ambiguous", NewAmbiguousTargetError("posts", "index idx", "not found"), IsAmbiguousTargetError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(tt.err) {
				t.Errorf("predicate rejected %v", tt.err)
			}
			wrapped := fmt.Errorf("context: %w", tt.err)
			if !tt.check(wrapped) {
				t.Errorf("predicate rejected wrapped %v", wrapped)
			}
			if tt.err.Error() == "" {
				t.Error("empty error message")
			}
		})
	}
}

func TestIrreversibleMigrationErrorNamesKind(t *testing.T) {
	err := NewIrreversibleMigrationError("ChangeColumn")
	expected := `cannot reverse a "ChangeColumn" command`
	if err.Error() != expected {
		t.Errorf("Error() = %s; expected %s", err.Error(), expected)
	}
	if IsValidationError(err) {
		t.Error("irreversible error matched validation predicate")
	}
}

func TestSchemaParseErrorLine(t *testing.T) {
	withLine := NewSchemaParseError("m.yaml", 7, "unknown operation")
	if got := withLine.Error(); got != "schema parse error in m.yaml at line 7: unknown operation" {
		t.Errorf("Error() = %s", got)
	}
	noLine := NewSchemaParseError("m.yaml", 0, "empty")
	if got := noLine.Error(); got != "schema parse error in m.yaml: empty" {
		t.Errorf("Error() = %s", got)
	}
}
