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
package runner

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	goose "github.com/pressly/goose/v3"

	"github.com/ocomsoft/schemashift/internal/adapter"
	"github.com/ocomsoft/schemashift/internal/errors"
	"github.com/ocomsoft/schemashift/internal/migration"
	"github.com/ocomsoft/schemashift/internal/types"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "runner.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func createPosts() *migration.Migration {
	return &migration.Migration{Version: 1, Name: "create_posts", Change: func(ctx context.Context, a adapter.Adapter) error {
		return migration.NewTable(a, "posts", types.TableOptions{}).
			AddColumn(types.Column{Name: "title", Type: types.ColumnString}).
			Create(ctx)
	}}
}

func addBody() *migration.Migration {
	return &migration.Migration{Version: 2, Name: "add_body", Change: func(ctx context.Context, a adapter.Adapter) error {
		return migration.NewTable(a, "posts", types.TableOptions{}).
			AddColumn(types.Column{Name: "body", Type: types.ColumnText, Null: true}).
			AddIndex([]string{"body"}, types.Index{}).
			Update(ctx)
	}}
}

func hasTable(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n); err != nil {
		t.Fatal(err)
	}
	return n > 0
}

func hasColumn(t *testing.T, db *sql.DB, table, column string) bool {
	t.Helper()
	var n int
	query := fmt.Sprintf("SELECT count(*) FROM pragma_table_info('%s') WHERE name = ?", table)
	if err := db.QueryRow(query, column).Scan(&n); err != nil {
		t.Fatal(err)
	}
	return n > 0
}

func TestGooseDialect(t *testing.T) {
	tests := []struct {
		dbType   types.DatabaseType
		expected goose.Dialect
	}{
		{types.DatabaseSQLite, goose.DialectSQLite3},
		{types.DatabasePostgreSQL, goose.DialectPostgres},
		{types.DatabaseMySQL, goose.DialectMySQL},
		{types.DatabaseSQLServer, goose.DialectMSSQL},
	}
	for _, tt := range tests {
		got, err := GooseDialect(tt.dbType)
		if err != nil || got != tt.expected {
			t.Errorf("GooseDialect(%s) = %s, %v; expected %s", tt.dbType, got, err, tt.expected)
		}
	}
	if _, err := GooseDialect("oracle"); err == nil {
		t.Error("Expected an error for an unknown database type")
	}
}

func TestUpAndDown(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	r, err := New(db, types.DatabaseSQLite, []*migration.Migration{addBody(), createPosts()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	results, err := r.Up(ctx)
	if err != nil {
		t.Fatalf("Up failed: %v", err)
	}
	if len(results) != 2 || results[0].Source.Version != 1 || results[1].Source.Version != 2 {
		t.Fatalf("Unexpected results %v", results)
	}
	if !hasColumn(t, db, "posts", "body") {
		t.Fatal("Expected posts.body after up")
	}
	if v, err := r.Version(ctx); err != nil || v != 2 {
		t.Errorf("Version() = %d, %v; expected 2", v, err)
	}

	statuses, err := r.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range statuses {
		if s.State != goose.StateApplied {
			t.Errorf("version %d is %s", s.Source.Version, s.State)
		}
	}

	if _, err := r.Down(ctx); err != nil {
		t.Fatalf("First down failed: %v", err)
	}
	if hasColumn(t, db, "posts", "body") || !hasColumn(t, db, "posts", "title") {
		t.Error("Expected only body to be removed")
	}
	if _, err := r.Down(ctx); err != nil {
		t.Fatalf("Second down failed: %v", err)
	}
	if hasTable(t, db, "posts") {
		t.Error("Expected posts to be dropped")
	}
	if _, err := r.Down(ctx); !IsNothingToRollBack(err) {
		t.Errorf("Expected nothing to roll back, got %v", err)
	}
	if r.Migration(1).Name != "create_posts" || r.Migration(9) != nil {
		t.Error("Migration lookup failed")
	}
}

func TestIrreversibleDownKeepsVersion(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	widen := &migration.Migration{Version: 2, Name: "widen_title", Change: func(ctx context.Context, a adapter.Adapter) error {
		return migration.NewTable(a, "posts", types.TableOptions{}).
			ChangeColumn("title", types.Column{Type: types.ColumnText}).
			Update(ctx)
	}}
	r, err := New(db, types.DatabaseSQLite, []*migration.Migration{createPosts(), widen})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Up(ctx); err != nil {
		t.Fatalf("Up failed: %v", err)
	}

	_, err = r.Down(ctx)
	if !errors.IsIrreversibleMigrationError(err) {
		t.Fatalf("Expected IrreversibleMigrationError, got %v", err)
	}
	if !strings.Contains(err.Error(), "ChangeColumn") {
		t.Errorf("Expected the error to name ChangeColumn: %v", err)
	}
	if v, _ := r.Version(ctx); v != 2 {
		t.Errorf("Version() = %d; expected 2", v)
	}
}

func TestFailedMigrationRollsBack(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	broken := &migration.Migration{Version: 1, Name: "broken", Up: func(ctx context.Context, a adapter.Adapter) error {
		if err := migration.NewTable(a, "posts", types.TableOptions{}).Create(ctx); err != nil {
			return err
		}
		return migration.NewTable(a, "posts", types.TableOptions{}).RemoveIndex("missing").Update(ctx)
	}}
	r, err := New(db, types.DatabaseSQLite, []*migration.Migration{broken})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Up(ctx); !errors.IsAmbiguousTargetError(err) {
		t.Fatalf("Expected AmbiguousTargetError, got %v", err)
	}
	if hasTable(t, db, "posts") {
		t.Error("Expected the transaction to roll back the create")
	}
	if v, _ := r.Version(ctx); v != 0 {
		t.Errorf("Version() = %d; expected 0", v)
	}
}

// openEnforcingDB opens a SQLite database whose connections start with
// foreign key enforcement on.
func openEnforcingDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "runner.db")+"?_foreign_keys=1")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createUsersAndPosts() *migration.Migration {
	return &migration.Migration{Version: 1, Name: "create_users", Change: func(ctx context.Context, a adapter.Adapter) error {
		err := migration.NewTable(a, "users", types.TableOptions{}).
			AddColumn(types.Column{Name: "name", Type: types.ColumnString}).
			Create(ctx)
		if err != nil {
			return err
		}
		return migration.NewTable(a, "posts", types.TableOptions{}).
			AddColumn(types.Column{Name: "user_id", Type: types.ColumnInteger}).
			AddForeignKey([]string{"user_id"}, "users", nil, types.ForeignKey{}).
			Create(ctx)
	}}
}

func foreignKeysEnabled(t *testing.T, db *sql.DB) bool {
	t.Helper()
	var on int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&on); err != nil {
		t.Fatal(err)
	}
	return on == 1
}

func TestRebuildReferencedTableWithForeignKeysOn(t *testing.T) {
	db := openEnforcingDB(t)
	ctx := context.Background()
	rename := &migration.Migration{Version: 2, Name: "rename_name", Change: func(ctx context.Context, a adapter.Adapter) error {
		return migration.NewTable(a, "users", types.TableOptions{}).RenameColumn("name", "full_name").Update(ctx)
	}}
	r, err := New(db, types.DatabaseSQLite, []*migration.Migration{createUsersAndPosts(), rename})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := r.UpTo(ctx, 1); err != nil {
		t.Fatalf("UpTo(1) failed: %v", err)
	}
	if _, err := db.Exec("INSERT INTO users (name) VALUES ('ada')"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("INSERT INTO posts (user_id) VALUES (1)"); err != nil {
		t.Fatal(err)
	}

	if _, err := r.Up(ctx); err != nil {
		t.Fatalf("Renaming a column of a referenced table failed: %v", err)
	}
	if !hasColumn(t, db, "users", "full_name") || hasColumn(t, db, "users", "name") {
		t.Fatal("Expected users.name to be renamed to full_name")
	}
	if !foreignKeysEnabled(t, db) {
		t.Error("Expected foreign key enforcement to be restored after up")
	}
	// Enforcement is live again.
	if _, err := db.Exec("INSERT INTO posts (user_id) VALUES (42)"); err == nil {
		t.Error("Expected an orphaned insert to fail")
	}

	if _, err := r.Down(ctx); err != nil {
		t.Fatalf("Down failed: %v", err)
	}
	if !hasColumn(t, db, "users", "name") {
		t.Error("Expected users.name back after down")
	}
	var n int
	if err := db.QueryRow("SELECT count(*) FROM posts JOIN users ON users.id = posts.user_id").Scan(&n); err != nil || n != 1 {
		t.Errorf("Expected the post to keep its user, got %d, %v", n, err)
	}
}

func TestOrphaningMigrationRollsBack(t *testing.T) {
	db := openEnforcingDB(t)
	ctx := context.Background()
	dropUsers := &migration.Migration{Version: 2, Name: "drop_users", Up: func(ctx context.Context, a adapter.Adapter) error {
		return migration.NewTable(a, "users", types.TableOptions{}).Drop().Update(ctx)
	}}
	r, err := New(db, types.DatabaseSQLite, []*migration.Migration{createUsersAndPosts(), dropUsers})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := r.UpTo(ctx, 1); err != nil {
		t.Fatalf("UpTo(1) failed: %v", err)
	}
	if _, err := db.Exec("INSERT INTO users (name) VALUES ('ada')"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("INSERT INTO posts (user_id) VALUES (1)"); err != nil {
		t.Fatal(err)
	}

	if _, err := r.Up(ctx); !errors.IsIntegrityViolationError(err) {
		t.Fatalf("Expected IntegrityViolationError, got %v", err)
	}
	if !hasTable(t, db, "users") {
		t.Error("Expected the drop to be rolled back")
	}
	if v, _ := r.Version(ctx); v != 1 {
		t.Errorf("Version() = %d; expected 1", v)
	}
	if !foreignKeysEnabled(t, db) {
		t.Error("Expected foreign key enforcement to be restored after a failure")
	}
}

func TestDryRun(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	var out bytes.Buffer
	r, err := New(db, types.DatabaseSQLite, []*migration.Migration{createPosts()}, WithDryRun(&out))
	if err != nil {
		t.Fatal(err)
	}

	results, err := r.Up(ctx)
	if err != nil {
		t.Fatalf("Dry run up failed: %v", err)
	}
	if len(results) != 1 || results[0].Direction != "up" {
		t.Errorf("Unexpected results %v", results)
	}
	if !strings.Contains(out.String(), "CREATE TABLE `posts`") {
		t.Errorf("Expected the CREATE TABLE in the output, got %q", out.String())
	}
	if hasTable(t, db, "posts") {
		t.Error("Dry run created the table")
	}
	if v, _ := r.Version(ctx); v != 0 {
		t.Errorf("Version() = %d; expected 0", v)
	}
	if _, err := r.Down(ctx); !IsNothingToRollBack(err) {
		t.Errorf("Expected nothing to roll back, got %v", err)
	}
}

func TestNewValidation(t *testing.T) {
	db := openDB(t)
	if _, err := New(db, types.DatabaseSQLite, []*migration.Migration{createPosts(), createPosts()}); !errors.IsValidationError(err) {
		t.Errorf("Expected ValidationError for duplicates, got %v", err)
	}
	if _, err := New(db, types.DatabaseSQLite, []*migration.Migration{{Version: 1, Name: "empty"}}); !errors.IsValidationError(err) {
		t.Errorf("Expected ValidationError for an empty migration, got %v", err)
	}
	if _, err := New(db, types.DatabaseSQLite, nil); !IsNoMigrations(err) {
		t.Errorf("Expected no migrations error, got %v", err)
	}
	if _, err := New(db, "oracle", []*migration.Migration{createPosts()}); err == nil {
		t.Error("Expected an error for an unknown database type")
	}
}

func TestYAMLMigrations(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"1_create_users.yaml": `
change:
  - create_table:
      name: users
      columns:
        - {name: email, type: string}
      indexes:
        - {columns: [email], unique: true}
`,
		"2_rename_email.yaml": `
change:
  - rename_column: {table: users, from: email, to: login}
`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	migrations, err := migration.NewLoader(dir).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	db := openDB(t)
	ctx := context.Background()
	r, err := New(db, types.DatabaseSQLite, migrations)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Up(ctx); err != nil {
		t.Fatalf("Up failed: %v", err)
	}
	if !hasColumn(t, db, "users", "login") {
		t.Error("Expected users.login")
	}
	if _, err := r.Down(ctx); err != nil {
		t.Fatalf("Down failed: %v", err)
	}
	if !hasColumn(t, db, "users", "email") || hasColumn(t, db, "users", "login") {
		t.Error("Expected the rename to be reversed")
	}
}
