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
package types

import (
	"fmt"
	"strings"
)

// DatabaseType represents supported database types
type DatabaseType string

const (
	DatabasePostgreSQL DatabaseType = "postgresql"
	DatabaseMySQL      DatabaseType = "mysql"
	DatabaseSQLServer  DatabaseType = "sqlserver"
	DatabaseSQLite     DatabaseType = "sqlite"
)

// SupportedDatabases lists the dialects an adapter exists for, in display order.
var SupportedDatabases = []DatabaseType{
	DatabasePostgreSQL,
	DatabaseMySQL,
	DatabaseSQLServer,
	DatabaseSQLite,
}

// ParseDatabaseType parses a string into a DatabaseType
func ParseDatabaseType(db string) (DatabaseType, error) {
	switch DatabaseType(strings.ToLower(db)) {
	case DatabasePostgreSQL, "postgres":
		return DatabasePostgreSQL, nil
	case DatabaseMySQL:
		return DatabaseMySQL, nil
	case DatabaseSQLServer, "mssql":
		return DatabaseSQLServer, nil
	case DatabaseSQLite, "sqlite3":
		return DatabaseSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database type: %s (supported: postgresql, mysql, sqlserver, sqlite)", db)
	}
}

// IsValidDatabase checks if a database type is valid
func IsValidDatabase(db string) bool {
	_, err := ParseDatabaseType(db)
	return err == nil
}

// ColumnType is a portable column type. Adapters map it onto an engine type
// or reject it.
type ColumnType string

const (
	ColumnString       ColumnType = "string"
	ColumnChar         ColumnType = "char"
	ColumnText         ColumnType = "text"
	ColumnSmallInteger ColumnType = "smallinteger"
	ColumnTinyInteger  ColumnType = "tinyinteger"
	ColumnInteger      ColumnType = "integer"
	ColumnBigInteger   ColumnType = "biginteger"
	ColumnFloat        ColumnType = "float"
	ColumnDecimal      ColumnType = "decimal"
	ColumnDouble       ColumnType = "double"
	ColumnDatetime     ColumnType = "datetime"
	ColumnTimestamp    ColumnType = "timestamp"
	ColumnTime         ColumnType = "time"
	ColumnDate         ColumnType = "date"
	ColumnBinary       ColumnType = "binary"
	ColumnVarbinary    ColumnType = "varbinary"
	ColumnBlob         ColumnType = "blob"
	ColumnBoolean      ColumnType = "boolean"
	ColumnJSON         ColumnType = "json"
	ColumnJSONB        ColumnType = "jsonb"
	ColumnUUID         ColumnType = "uuid"

	// Known types only some engines can store.
	ColumnBit        ColumnType = "bit"
	ColumnEnum       ColumnType = "enum"
	ColumnSet        ColumnType = "set"
	ColumnCidr       ColumnType = "cidr"
	ColumnInet       ColumnType = "inet"
	ColumnMacaddr    ColumnType = "macaddr"
	ColumnInterval   ColumnType = "interval"
	ColumnGeometry   ColumnType = "geometry"
	ColumnPoint      ColumnType = "point"
	ColumnLinestring ColumnType = "linestring"
	ColumnPolygon    ColumnType = "polygon"
	ColumnFilestream ColumnType = "filestream"
)

var knownColumnTypes = map[ColumnType]bool{
	ColumnString: true, ColumnChar: true, ColumnText: true, ColumnSmallInteger: true,
	ColumnTinyInteger: true, ColumnInteger: true, ColumnBigInteger: true, ColumnFloat: true,
	ColumnDecimal: true, ColumnDouble: true, ColumnDatetime: true, ColumnTimestamp: true,
	ColumnTime: true, ColumnDate: true, ColumnBinary: true, ColumnVarbinary: true,
	ColumnBlob: true, ColumnBoolean: true, ColumnJSON: true, ColumnJSONB: true,
	ColumnUUID: true, ColumnBit: true, ColumnEnum: true, ColumnSet: true, ColumnCidr: true,
	ColumnInet: true, ColumnMacaddr: true, ColumnInterval: true, ColumnGeometry: true,
	ColumnPoint: true, ColumnLinestring: true, ColumnPolygon: true, ColumnFilestream: true,
}

// IsKnownColumnType reports whether t is one of the portable column types.
func IsKnownColumnType(t ColumnType) bool {
	return knownColumnTypes[t]
}

// DefaultKind tells how a column default is rendered.
type DefaultKind int

const (
	DefaultNone DefaultKind = iota
	DefaultString
	DefaultNumber
	DefaultBool
	DefaultCurrentTimestamp
	DefaultNull
	DefaultExpression
)

// Default is a column default value.
type Default struct {
	Kind  DefaultKind
	Value string
}

func StringDefault(s string) Default { return Default{Kind: DefaultString, Value: s} }

func NumberDefault(n string) Default { return Default{Kind: DefaultNumber, Value: n} }

func BoolDefault(b bool) Default {
	if b {
		return Default{Kind: DefaultBool, Value: "1"}
	}
	return Default{Kind: DefaultBool, Value: "0"}
}

func CurrentTimestampDefault() Default {
	return Default{Kind: DefaultCurrentTimestamp, Value: "CURRENT_TIMESTAMP"}
}

func NullDefault() Default { return Default{Kind: DefaultNull, Value: "NULL"} }

// ExpressionDefault is rendered verbatim.
func ExpressionDefault(expr string) Default { return Default{Kind: DefaultExpression, Value: expr} }

// IsSet reports whether a default was given.
func (d Default) IsSet() bool {
	return d.Kind != DefaultNone
}

// SQL renders the default using standard single quote escaping for strings.
func (d Default) SQL() string {
	switch d.Kind {
	case DefaultString:
		return "'" + strings.ReplaceAll(d.Value, "'", "''") + "'"
	case DefaultNone:
		return ""
	default:
		return d.Value
	}
}

// FirstColumn is the After value that places a column first.
const FirstColumn = "FIRST"

// Column represents a table column definition
type Column struct {
	Name      string
	Type      ColumnType
	RawType   string // engine specific type, used verbatim instead of Type
	Null      bool
	Default   Default
	Limit     int
	Precision int
	Scale     int
	Identity  bool
	After     string
	Comment   string
}

// IsLiteralType reports whether the column carries an engine specific type.
func (c *Column) IsLiteralType() bool {
	return c.RawType != ""
}

// TypeName returns the raw type when set, the portable type otherwise.
func (c *Column) TypeName() string {
	if c.RawType != "" {
		return c.RawType
	}
	return string(c.Type)
}

// Clone returns a copy of the column.
func (c *Column) Clone() *Column {
	clone := *c
	return &clone
}

// Validate validates the column structure
func (c *Column) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("column name is required")
	}
	if c.Type == "" && c.RawType == "" {
		return fmt.Errorf("column %s: type is required", c.Name)
	}
	if c.Type == ColumnDecimal && c.Scale > 0 && c.Scale > c.Precision {
		return fmt.Errorf("column %s: decimal scale must be between 0 and precision", c.Name)
	}
	return nil
}

// IndexType distinguishes plain, unique and fulltext indexes.
type IndexType string

const (
	IndexPlain    IndexType = "index"
	IndexUnique   IndexType = "unique"
	IndexFulltext IndexType = "fulltext"
)

// Index represents a database index definition. It is looked up either by
// Name or by Columns.
type Index struct {
	Name    string
	Columns []string
	Type    IndexType
}

// IsUnique reports whether the index enforces uniqueness.
func (i *Index) IsUnique() bool {
	return i.Type == IndexUnique
}

// NameOrDefault returns the index name, deriving one from the table and
// columns when none was given.
func (i *Index) NameOrDefault(tableName string) string {
	if i.Name != "" {
		return i.Name
	}
	return tableName + "_" + strings.Join(i.Columns, "_") + "_index"
}

// Foreign key referential actions.
const (
	ActionCascade    = "CASCADE"
	ActionRestrict   = "RESTRICT"
	ActionSetNull    = "SET NULL"
	ActionNoAction   = "NO ACTION"
	ActionSetDefault = "SET DEFAULT"
)

// ParseReferentialAction normalises an ON DELETE / ON UPDATE value.
func ParseReferentialAction(v string) (string, error) {
	norm := strings.ToUpper(strings.Join(strings.Fields(strings.ReplaceAll(v, "_", " ")), " "))
	switch norm {
	case "":
		return "", nil
	case ActionCascade, ActionRestrict, ActionSetNull, ActionNoAction, ActionSetDefault:
		return norm, nil
	default:
		return "", fmt.Errorf("unknown referential action: %s", v)
	}
}

// ForeignKey represents a foreign key constraint
type ForeignKey struct {
	Columns           []string
	ReferencedTable   string
	ReferencedColumns []string
	Constraint        string
	OnDelete          string
	OnUpdate          string
}

// Validate checks that owning and referenced columns line up.
func (f *ForeignKey) Validate() error {
	if len(f.Columns) == 0 {
		return fmt.Errorf("foreign key requires at least one column")
	}
	if f.ReferencedTable == "" {
		return fmt.Errorf("foreign key must specify a referenced table")
	}
	if len(f.Columns) != len(f.ReferencedColumns) {
		return fmt.Errorf("foreign key has %d columns but references %d", len(f.Columns), len(f.ReferencedColumns))
	}
	return nil
}

// TableOptions carries creation time settings of a table.
type TableOptions struct {
	ID         string   // name of the generated identity column
	DisableID  bool     // do not generate an identity column
	PrimaryKey []string // explicit primary key columns
	Comment    string
}

// Table identifies a table and its creation options.
type Table struct {
	Name    string
	Options TableOptions
}

// NewTable returns a table reference with default options.
func NewTable(name string) *Table {
	return &Table{Name: name}
}

// IdentityColumn returns the generated identity column name, or "" when the
// table has none.
func (t *Table) IdentityColumn() string {
	if t.Options.DisableID {
		return ""
	}
	if t.Options.ID == "" {
		return "id"
	}
	return t.Options.ID
}

// PrimaryKeyColumns returns the explicit primary key, falling back to the
// identity column.
func (t *Table) PrimaryKeyColumns() []string {
	if len(t.Options.PrimaryKey) > 0 {
		return t.Options.PrimaryKey
	}
	if id := t.IdentityColumn(); id != "" {
		return []string{id}
	}
	return nil
}

// EqualFold reports whether two identifier lists match case-insensitively and
// in order.
func EqualFold(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}

// SameSet reports whether two identifier lists hold the same names, ignoring
// order and case.
func SameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, v := range a {
		seen[strings.ToLower(v)]++
	}
	for _, v := range b {
		k := strings.ToLower(v)
		if seen[k] == 0 {
			return false
		}
		seen[k]--
	}
	return true
}
