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
package cmd

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ocomsoft/schemashift/internal/migration"
)

const createPostsScript = `
change:
  - create_table:
      name: posts
      columns:
        - name: title
          type: string
      indexes:
        - columns: [title]
`

// setupTestEnvironment moves into a fresh directory and resets the
// package level flags.
func setupTestEnvironment(t *testing.T) string {
	t.Helper()

	tempDir := t.TempDir()
	originalDir, _ := os.Getwd()
	if err := os.Chdir(tempDir); err != nil {
		t.Fatalf("Failed to change directory: %v", err)
	}

	t.Cleanup(func() {
		os.Chdir(originalDir)
		configFile, migrationsDir, dryRun, verbose = "", "", false, false
		initDatabaseType, initDSN = "sqlite", ""
	})
	configFile, migrationsDir, dryRun, verbose = "", "", false, false
	return tempDir
}

func tableExists(t *testing.T, dsn, name string) bool {
	t.Helper()
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow("SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n); err != nil {
		t.Fatalf("Failed to query sqlite_master: %v", err)
	}
	return n > 0
}

func TestInitUpDown(t *testing.T) {
	dir := setupTestEnvironment(t)
	dsn := filepath.Join(dir, "app.db")

	initDatabaseType = "sqlite"
	initDSN = dsn
	if err := runInit(initCmd, nil); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	for _, path := range []string{"migrations/schemashift.config.yaml", "migrations/.schemashiftignore"} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("Expected %s to exist: %v", path, err)
		}
	}

	if err := os.WriteFile("migrations/1_create_posts.yaml", []byte(createPostsScript), 0644); err != nil {
		t.Fatalf("Failed to write script: %v", err)
	}

	if err := upCmd.RunE(upCmd, nil); err != nil {
		t.Fatalf("up failed: %v", err)
	}
	if !tableExists(t, dsn, "posts") {
		t.Fatal("Expected posts after up")
	}

	// A second run has nothing to do.
	if err := upCmd.RunE(upCmd, nil); err != nil {
		t.Fatalf("repeated up failed: %v", err)
	}
	if err := statusCmd.RunE(statusCmd, nil); err != nil {
		t.Fatalf("status failed: %v", err)
	}

	if err := downCmd.RunE(downCmd, nil); err != nil {
		t.Fatalf("down failed: %v", err)
	}
	if tableExists(t, dsn, "posts") {
		t.Fatal("Expected posts to be dropped by down")
	}
	if err := downCmd.RunE(downCmd, nil); err != nil {
		t.Fatalf("down with nothing applied failed: %v", err)
	}
}

func TestInitRejectsUnknownDatabase(t *testing.T) {
	setupTestEnvironment(t)

	initDatabaseType = "oracle"
	if err := runInit(initCmd, nil); err == nil {
		t.Fatal("Expected an error for an unsupported database")
	}
	if _, err := os.Stat("migrations"); !os.IsNotExist(err) {
		t.Error("Expected no migrations directory after a failed init")
	}
}

func TestCreateWritesLoadableScript(t *testing.T) {
	setupTestEnvironment(t)
	migrationsDir = "scripts"

	var out bytes.Buffer
	createCmd.SetOut(&out)
	defer createCmd.SetOut(nil)

	if err := runCreate(createCmd, []string{"Add Users"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !strings.Contains(out.String(), "_add_users.yaml") {
		t.Errorf("Unexpected output: %q", out.String())
	}

	migrations, err := migration.NewLoader("scripts").Load()
	if err != nil {
		t.Fatalf("Failed to load created script: %v", err)
	}
	if len(migrations) != 1 || migrations[0].Name != "add_users" || !migrations[0].IsReversible() {
		t.Fatalf("Unexpected migrations: %+v", migrations)
	}
}

func TestScriptName(t *testing.T) {
	tests := map[string]string{
		"Add Users":         "add_users",
		"create-posts":      "create_posts",
		"  __trim me__ ":    "trim_me",
		"!!!":               "",
		"add_index_2024_v2": "add_index_2024_v2",
	}
	for in, want := range tests {
		if got := scriptName(in); got != want {
			t.Errorf("scriptName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseVersion(t *testing.T) {
	if v, err := parseVersion("20240101120000"); err != nil || v != 20240101120000 {
		t.Errorf("parseVersion = %d, %v", v, err)
	}
	for _, bad := range []string{"", "-1", "v2"} {
		if _, err := parseVersion(bad); err == nil {
			t.Errorf("Expected an error for %q", bad)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	defer versionCmd.SetOut(nil)
	defer func() { versionOutputFormat = "text" }()

	versionOutputFormat = "json"
	if err := runVersion(versionCmd, nil); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out.String(), `"version"`) {
		t.Errorf("Expected JSON output, got %q", out.String())
	}

	versionOutputFormat = "yaml"
	if err := runVersion(versionCmd, nil); err == nil {
		t.Error("Expected an error for an unknown format")
	}
}
