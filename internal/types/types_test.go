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

import "testing"

func TestParseDatabaseType(t *testing.T) {
	tests := []struct {
		input    string
		expected DatabaseType
		wantErr  bool
	}{
		{"postgresql", DatabasePostgreSQL, false},
		{"postgres", DatabasePostgreSQL, false},
		{"MySQL", DatabaseMySQL, false},
		{"sqlserver", DatabaseSQLServer, false},
		{"mssql", DatabaseSQLServer, false},
		{"sqlite", DatabaseSQLite, false},
		{"sqlite3", DatabaseSQLite, false},
		{"oracle", "", true},
	}

	for _, tt := range tests {
		result, err := ParseDatabaseType(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseDatabaseType(%s) expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDatabaseType(%s) unexpected error: %v", tt.input, err)
		}
		if result != tt.expected {
			t.Errorf("ParseDatabaseType(%s) = %s; expected %s", tt.input, result, tt.expected)
		}
	}
}

func TestDefaultSQL(t *testing.T) {
	tests := []struct {
		def      Default
		expected string
	}{
		{StringDefault("it's"), "'it''s'"},
		{NumberDefault("42"), "42"},
		{BoolDefault(true), "1"},
		{BoolDefault(false), "0"},
		{CurrentTimestampDefault(), "CURRENT_TIMESTAMP"},
		{NullDefault(), "NULL"},
		{ExpressionDefault("lower('X')"), "lower('X')"},
		{Default{}, ""},
	}

	for _, tt := range tests {
		if got := tt.def.SQL(); got != tt.expected {
			t.Errorf("Default{%d,%s}.SQL() = %s; expected %s", tt.def.Kind, tt.def.Value, got, tt.expected)
		}
	}
	if (Default{}).IsSet() {
		t.Error("zero Default reported as set")
	}
}

func TestColumnValidate(t *testing.T) {
	tests := []struct {
		name    string
		column  Column
		wantErr bool
	}{
		{"valid", Column{Name: "title", Type: ColumnString}, false},
		{"raw type", Column{Name: "geo", RawType: "GEOGRAPHY"}, false},
		{"missing name", Column{Type: ColumnString}, true},
		{"missing type", Column{Name: "title"}, true},
		{"scale beyond precision", Column{Name: "p", Type: ColumnDecimal, Precision: 4, Scale: 6}, true},
	}

	for _, tt := range tests {
		err := tt.column.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: Validate() error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestIndexNameOrDefault(t *testing.T) {
	idx := Index{Columns: []string{"user_id", "created"}}
	if got := idx.NameOrDefault("posts"); got != "posts_user_id_created_index" {
		t.Errorf("NameOrDefault() = %s", got)
	}
	idx.Name = "by_user"
	if got := idx.NameOrDefault("posts"); got != "by_user" {
		t.Errorf("NameOrDefault() = %s", got)
	}
}

func TestParseReferentialAction(t *testing.T) {
	tests := map[string]string{
		"cascade":     ActionCascade,
		"set_null":    ActionSetNull,
		"no  action":  ActionNoAction,
		"SET DEFAULT": ActionSetDefault,
		"":            "",
	}
	for in, expected := range tests {
		got, err := ParseReferentialAction(in)
		if err != nil {
			t.Errorf("ParseReferentialAction(%q) unexpected error: %v", in, err)
		}
		if got != expected {
			t.Errorf("ParseReferentialAction(%q) = %q; expected %q", in, got, expected)
		}
	}
	if _, err := ParseReferentialAction("explode"); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestTablePrimaryKeyColumns(t *testing.T) {
	if got := NewTable("users").PrimaryKeyColumns(); !EqualFold(got, []string{"id"}) {
		t.Errorf("default primary key = %v", got)
	}
	custom := &Table{Name: "users", Options: TableOptions{ID: "user_id"}}
	if got := custom.IdentityColumn(); got != "user_id" {
		t.Errorf("IdentityColumn() = %s", got)
	}
	explicit := &Table{Name: "tags", Options: TableOptions{DisableID: true, PrimaryKey: []string{"a", "b"}}}
	if got := explicit.PrimaryKeyColumns(); !EqualFold(got, []string{"a", "b"}) {
		t.Errorf("explicit primary key = %v", got)
	}
	none := &Table{Name: "log", Options: TableOptions{DisableID: true}}
	if got := none.PrimaryKeyColumns(); got != nil {
		t.Errorf("expected no primary key, got %v", got)
	}
}

func TestSameSet(t *testing.T) {
	if !SameSet([]string{"a", "B"}, []string{"b", "A"}) {
		t.Error("SameSet should ignore order and case")
	}
	if SameSet([]string{"a", "a"}, []string{"a", "b"}) {
		t.Error("SameSet should count duplicates")
	}
	if EqualFold([]string{"a", "b"}, []string{"b", "a"}) {
		t.Error("EqualFold should respect order")
	}
}
