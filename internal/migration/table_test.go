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
	"context"
	"reflect"
	"testing"

	"github.com/ocomsoft/schemashift/internal/errors"
	"github.com/ocomsoft/schemashift/internal/types"
)

func TestTableSaveCreatesThenUpdates(t *testing.T) {
	db, p := openSQLite(t)
	ctx := context.Background()

	users := NewTable(p, "users", types.TableOptions{}).
		AddColumn(types.Column{Name: "name", Type: types.ColumnString, Limit: 100}).
		AddColumn(types.Column{Name: "email", Type: types.ColumnString, Null: true}).
		AddIndex([]string{"email"}, types.Index{Type: types.IndexUnique})
	if got := len(users.PendingActions()); got != 3 {
		t.Errorf("Expected 3 pending actions, got %d", got)
	}
	if err := users.Save(ctx); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if len(users.PendingActions()) != 0 {
		t.Error("Expected pending actions to be flushed")
	}
	if ok, err := users.Exists(ctx); err != nil || !ok {
		t.Fatalf("Expected users to exist (err %v)", err)
	}
	if ok, err := users.HasIndex(ctx, "email"); err != nil || !ok {
		t.Errorf("Expected the email index (err %v)", err)
	}

	if _, err := db.Exec("INSERT INTO users (name, email) VALUES ('ada', 'ada@example.com')"); err != nil {
		t.Fatal(err)
	}

	err := NewTable(p, "users", types.TableOptions{}).
		RenameColumn("name", "full_name").
		AddColumn(types.Column{Name: "age", Type: types.ColumnInteger, Null: true}).
		RemoveIndex("email").
		Save(ctx)
	if err != nil {
		t.Fatalf("Second save failed: %v", err)
	}
	if got := columnNames(t, p, "users"); !reflect.DeepEqual(got, []string{"id", "full_name", "email", "age"}) {
		t.Errorf("Unexpected columns %v", got)
	}
	if ok, err := users.HasColumn(ctx, "full_name"); err != nil || !ok {
		t.Errorf("Expected full_name (err %v)", err)
	}
	if ok, err := users.HasIndex(ctx, "email"); err != nil || ok {
		t.Errorf("Expected the email index to be gone (err %v)", err)
	}
	var name string
	if err := db.QueryRow("SELECT full_name FROM users").Scan(&name); err != nil || name != "ada" {
		t.Errorf("Expected the row to survive, got %q (err %v)", name, err)
	}
}

func TestTableForeignKeysRenameAndDrop(t *testing.T) {
	_, p := openSQLite(t)
	ctx := context.Background()

	if err := NewTable(p, "teams", types.TableOptions{}).AddColumn(types.Column{Name: "name", Type: types.ColumnString}).Create(ctx); err != nil {
		t.Fatal(err)
	}
	err := NewTable(p, "members", types.TableOptions{}).
		AddColumn(types.Column{Name: "team_id", Type: types.ColumnInteger}).
		AddForeignKey([]string{"team_id"}, "teams", nil, types.ForeignKey{OnDelete: "cascade"}).
		Create(ctx)
	if err != nil {
		t.Fatalf("Create members failed: %v", err)
	}
	members := NewTable(p, "members", types.TableOptions{})
	if ok, err := members.HasForeignKey(ctx, []string{"team_id"}, ""); err != nil || !ok {
		t.Fatalf("Expected a foreign key on team_id (err %v)", err)
	}

	if err := members.DropForeignKey([]string{"team_id"}, "").Update(ctx); err != nil {
		t.Fatalf("DropForeignKey failed: %v", err)
	}
	if ok, err := members.HasForeignKey(ctx, []string{"team_id"}, ""); err != nil || ok {
		t.Errorf("Expected the foreign key to be gone (err %v)", err)
	}

	if err := members.Rename("players").Update(ctx); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if ok, _ := p.HasTable(ctx, "players"); !ok {
		t.Error("Expected players to exist")
	}
	if err := NewTable(p, "players", types.TableOptions{}).Drop().Update(ctx); err != nil {
		t.Fatalf("Drop failed: %v", err)
	}
	if ok, _ := p.HasTable(ctx, "players"); ok {
		t.Error("Expected players to be dropped")
	}
}

func TestTableKeepsFirstBuilderError(t *testing.T) {
	_, p := openSQLite(t)
	ctx := context.Background()

	tbl := NewTable(p, "users", types.TableOptions{}).
		AddIndex(nil, types.Index{}).
		AddColumn(types.Column{Name: "name", Type: types.ColumnString})
	if !errors.IsValidationError(tbl.Err()) {
		t.Fatalf("Expected ValidationError, got %v", tbl.Err())
	}
	if len(tbl.PendingActions()) != 0 {
		t.Errorf("Expected no actions after an error, got %d", len(tbl.PendingActions()))
	}
	if err := tbl.Save(ctx); !errors.IsValidationError(err) {
		t.Errorf("Save() = %v; expected the builder error", err)
	}
	if ok, _ := p.HasTable(ctx, "users"); ok {
		t.Error("Expected nothing to be created")
	}
}
