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
	stderrors "errors"
	"fmt"
	"strings"
)

// Error types surfaced by the migration pipeline. They propagate unchanged
// (optionally wrapped with %w) up to the runner.

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

type SchemaParseError struct {
	FilePath string
	Line     int
	Message  string
}

func (e SchemaParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("schema parse error in %s at line %d: %s", e.FilePath, e.Line, e.Message)
	}
	return fmt.Sprintf("schema parse error in %s: %s", e.FilePath, e.Message)
}

type MigrationError struct {
	Operation string
	Message   string
}

func (e MigrationError) Error() string {
	return fmt.Sprintf("migration error during %s: %s", e.Operation, e.Message)
}

// UnsupportedOperationError reports an action kind the active dialect cannot
// translate.
type UnsupportedOperationError struct {
	Dialect   string
	Operation string
}

func (e UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s does not support %s", e.Dialect, e.Operation)
}

// UnsupportedColumnTypeError reports a portable column type the dialect has
// no mapping for.
type UnsupportedColumnTypeError struct {
	Dialect string
	Type    string
}

func (e UnsupportedColumnTypeError) Error() string {
	return fmt.Sprintf("column type %q is not supported by %s", e.Type, e.Dialect)
}

// IrreversibleMigrationError is raised while inverting a recorded change.
type IrreversibleMigrationError struct {
	Kind string
}

func (e IrreversibleMigrationError) Error() string {
	return fmt.Sprintf("cannot reverse a %q command", e.Kind)
}

// IntegrityViolationError is raised when foreign key validation fails after a
// table rebuild.
type IntegrityViolationError struct {
	Table      string
	Violations []string
}

func (e IntegrityViolationError) Error() string {
	return fmt.Sprintf("integrity constraint violation on %s: %s", e.Table, strings.Join(e.Violations, "; "))
}

// AmbiguousTargetError is raised when a column, index or key cannot be
// resolved to exactly one object.
type AmbiguousTargetError struct {
	Table   string
	Target  string
	Message string
}

func (e AmbiguousTargetError) Error() string {
	return fmt.Sprintf("table %s: %s: %s", e.Table, e.Target, e.Message)
}

// Error wrapping helpers
func NewValidationError(field, message string) error {
	return ValidationError{Field: field, Message: message}
}

func NewSchemaParseError(filePath string, line int, message string) error {
	return SchemaParseError{FilePath: filePath, Line: line, Message: message}
}

func NewMigrationError(operation, message string) error {
	return MigrationError{Operation: operation, Message: message}
}

func NewUnsupportedOperationError(dialect, operation string) error {
	return UnsupportedOperationError{Dialect: dialect, Operation: operation}
}

func NewUnsupportedColumnTypeError(dialect, columnType string) error {
	return UnsupportedColumnTypeError{Dialect: dialect, Type: columnType}
}

func NewIrreversibleMigrationError(kind string) error {
	return IrreversibleMigrationError{Kind: kind}
}

func NewIntegrityViolationError(table string, violations []string) error {
	return IntegrityViolationError{Table: table, Violations: violations}
}

func NewAmbiguousTargetError(table, target, message string) error {
	return AmbiguousTargetError{Table: table, Target: target, Message: message}
}

// Utility functions for error checking. They look through wrapped errors.
func IsValidationError(err error) bool {
	var target ValidationError
	return stderrors.As(err, &target)
}

func IsSchemaParseError(err error) bool {
	var target SchemaParseError
	return stderrors.As(err, &target)
}

func IsMigrationError(err error) bool {
	var target MigrationError
	return stderrors.As(err, &target)
}

func IsUnsupportedOperationError(err error) bool {
	var target UnsupportedOperationError
	return stderrors.As(err, &target)
}

func IsUnsupportedColumnTypeError(err error) bool {
	var target UnsupportedColumnTypeError
	return stderrors.As(err, &target)
}

func IsIrreversibleMigrationError(err error) bool {
	var target IrreversibleMigrationError
	return stderrors.As(err, &target)
}

func IsIntegrityViolationError(err error) bool {
	var target IntegrityViolationError
	return stderrors.As(err, &target)
}

func IsAmbiguousTargetError(err error) bool {
	var target AmbiguousTargetError
	return stderrors.As(err, &target)
}
