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
package migration

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ocomsoft/schemashift/internal/errors"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
}

func TestLoaderLoad(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"20240102000000_add_bio.yml":       "change:\n  - add_column: {table: users, name: bio, type: text, null: true}\n",
		"20240101000000_create_users.yaml": "change:\n  - create_table: {name: users}\n",
		"20240103000000_scratch.yaml":      "this is: [not valid\n",
		"schemashift.config.yaml":          "database:\n  type: sqlite\n",
		"README.md":                        "notes",
		DefaultIgnoreFile:                  "# work in progress\n*_scratch.yaml\n",
	})
	if err := os.Mkdir(filepath.Join(dir, "archive"), 0755); err != nil {
		t.Fatal(err)
	}

	migrations, err := NewLoader(dir).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	var names []string
	for _, m := range migrations {
		names = append(names, m.String())
	}
	expected := []string{"20240101000000_create_users", "20240102000000_add_bio"}
	if !reflect.DeepEqual(names, expected) {
		t.Errorf("Loaded %v; expected %v", names, expected)
	}
	if migrations[0].Source != filepath.Join(dir, "20240101000000_create_users.yaml") {
		t.Errorf("Source = %q", migrations[0].Source)
	}
}

func TestLoaderWithoutIgnoreFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"1_create_users.yaml": "change:\n  - create_table: {name: users}\n",
		"2_broken.yaml":       "change:\n  - create_table: {}\n",
	})

	_, err := NewLoader(dir, WithIgnoreFile("")).Load()
	if !errors.IsSchemaParseError(err) {
		t.Fatalf("Expected SchemaParseError for the broken script, got %v", err)
	}

	writeFiles(t, dir, map[string]string{"custom.ignore": "2_*\n"})
	migrations, err := NewLoader(dir, WithIgnoreFile("custom.ignore")).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(migrations) != 1 || migrations[0].Version != 1 {
		t.Errorf("Expected only version 1, got %v", migrations)
	}
}

func TestLoaderDuplicateVersion(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"1_a.yaml": "change:\n  - create_table: {name: a}\n",
		"1_b.yaml": "change:\n  - create_table: {name: b}\n",
	})
	if _, err := NewLoader(dir).Load(); !errors.IsValidationError(err) {
		t.Errorf("Expected ValidationError for duplicate versions, got %v", err)
	}
}

func TestLoaderMissingDirectory(t *testing.T) {
	if _, err := NewLoader(filepath.Join(t.TempDir(), "missing")).Load(); err == nil {
		t.Error("Expected an error for a missing directory")
	}
}

func TestParseFileName(t *testing.T) {
	tests := []struct {
		file    string
		version int64
		name    string
		ok      bool
	}{
		{"20240101120000_create_users.yaml", 20240101120000, "create_users", true},
		{"3_x.yml", 3, "x", true},
		{"create_users.yaml", 0, "", false},
		{"0_zero.yaml", 0, "", false},
		{"12_.yaml", 0, "", false},
		{"v1_users.yaml", 0, "", false},
	}
	for _, tt := range tests {
		version, name, ok := parseFileName(tt.file)
		if version != tt.version || name != tt.name || ok != tt.ok {
			t.Errorf("parseFileName(%q) = %d, %q, %v", tt.file, version, name, ok)
		}
	}
}
