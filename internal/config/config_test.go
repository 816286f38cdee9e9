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
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ocomsoft/schemashift/internal/types"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.DatabaseType() != types.DatabaseSQLite {
		t.Errorf("Expected sqlite by default, got %s", cfg.Database.Type)
	}
	if cfg.Migration.Directory != "migrations" || cfg.Migration.IgnoreFile != ".schemashiftignore" {
		t.Errorf("Unexpected migration defaults %+v", cfg.Migration)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config is invalid: %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "schemashift.config.yaml")
	cfg := DefaultConfig()
	cfg.Database.Type = "postgresql"
	cfg.Database.DSN = "postgres://localhost/app"
	cfg.Output.DryRun = true
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# Schemashift Configuration File") {
		t.Error("Expected the header comment")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.DatabaseType() != types.DatabasePostgreSQL || loaded.Database.DSN != "postgres://localhost/app" {
		t.Errorf("Unexpected database config %+v", loaded.Database)
	}
	if !loaded.Output.DryRun || !loaded.Output.ColorEnabled {
		t.Errorf("Unexpected output config %+v", loaded.Output)
	}
}

func TestLoadEnvironmentOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schemashift.config.yaml")
	if err := DefaultConfig().Save(path); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SCHEMASHIFT_DATABASE_TYPE", "mysql")
	t.Setenv("SCHEMASHIFT_MIGRATION_DIRECTORY", "db/changes")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DatabaseType() != types.DatabaseMySQL {
		t.Errorf("Expected mysql from the environment, got %s", cfg.Database.Type)
	}
	if cfg.Migration.Directory != "db/changes" {
		t.Errorf("Expected db/changes, got %s", cfg.Migration.Directory)
	}
}

func TestLoadRejectsUnknownDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schemashift.config.yaml")
	if err := os.WriteFile(path, []byte("database:\n  type: oracle\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected an error for an unknown database type")
	}
	if cfg := LoadOrDefault(path); cfg.DatabaseType() != types.DatabaseSQLite {
		t.Errorf("LoadOrDefault should fall back to defaults, got %s", cfg.Database.Type)
	}
}
