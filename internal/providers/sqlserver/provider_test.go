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
package sqlserver

import (
	"context"
	"strings"
	"testing"

	"github.com/ocomsoft/schemashift/internal/action"
	"github.com/ocomsoft/schemashift/internal/errors"
	"github.com/ocomsoft/schemashift/internal/sink"
	"github.com/ocomsoft/schemashift/internal/sink/sinktest"
	"github.com/ocomsoft/schemashift/internal/types"
)

func assertStatements(t *testing.T, rec *sinktest.Recorder, expected ...string) {
	t.Helper()
	if rec.Statements() != strings.Join(expected, "\n") {
		t.Errorf("Unexpected statements:\n%s\nwant:\n%s", rec.Statements(), strings.Join(expected, "\n"))
	}
}

func TestCreateTable(t *testing.T) {
	rec := &sinktest.Recorder{}
	p := New(rec, nil)

	users := types.NewTable("users")
	users.Options.Comment = "people"
	columns := []*types.Column{
		{Name: "name", Type: types.ColumnString, Limit: 50, Comment: "Name"},
		{Name: "active", Type: types.ColumnBoolean, Default: types.BoolDefault(true)},
	}
	indexes := []*types.Index{{Columns: []string{"name"}, Type: types.IndexUnique}}

	if err := p.CreateTable(context.Background(), users, columns, indexes); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	assertStatements(t, rec,
		"CREATE TABLE [users] ([id] INT NOT NULL IDENTITY(1,1), [name] NVARCHAR(50) NOT NULL, [active] BIT NOT NULL CONSTRAINT [DF_users_active] DEFAULT 1, CONSTRAINT [PK_users] PRIMARY KEY ([id]))",
		"EXECUTE sp_addextendedproperty N'MS_Description', N'Name', N'SCHEMA', N'dbo', N'TABLE', N'users', N'COLUMN', N'name'",
		"EXECUTE sp_addextendedproperty N'MS_Description', N'people', N'SCHEMA', N'dbo', N'TABLE', N'users'",
		"CREATE UNIQUE INDEX [users_name_index] ON [users] ([name])",
	)
}

func TestConvertColumnType(t *testing.T) {
	p := New(&sinktest.Recorder{}, nil)

	tests := []struct {
		column   types.Column
		expected string
	}{
		{types.Column{Type: types.ColumnString}, "NVARCHAR(255)"},
		{types.Column{Type: types.ColumnText}, "NVARCHAR(MAX)"},
		{types.Column{Type: types.ColumnInteger, Limit: 11}, "INT"},
		{types.Column{Type: types.ColumnDecimal, Precision: 10, Scale: 2}, "DECIMAL(10, 2)"},
		{types.Column{Type: types.ColumnBlob}, "VARBINARY(MAX)"},
		{types.Column{Type: types.ColumnBinary, Limit: 16}, "VARBINARY(16)"},
		{types.Column{Type: types.ColumnFilestream}, "VARBINARY(MAX) FILESTREAM"},
		{types.Column{Type: types.ColumnUUID}, "UNIQUEIDENTIFIER"},
		{types.Column{Type: types.ColumnPolygon}, "GEOGRAPHY"},
		{types.Column{RawType: "MONEY"}, "MONEY"},
	}
	for _, tt := range tests {
		got, err := p.ConvertColumnType(&tt.column)
		if err != nil {
			t.Errorf("ConvertColumnType(%s) failed: %v", tt.column.TypeName(), err)
			continue
		}
		if got != tt.expected {
			t.Errorf("ConvertColumnType(%s) = %q, want %q", tt.column.TypeName(), got, tt.expected)
		}
	}

	for _, ct := range []types.ColumnType{types.ColumnJSON, types.ColumnEnum, types.ColumnInterval} {
		if _, err := p.ConvertColumnType(&types.Column{Name: "x", Type: ct}); !errors.IsUnsupportedColumnTypeError(err) {
			t.Errorf("Expected UnsupportedColumnTypeError for %s, got %v", ct, err)
		}
	}
}

func TestDropColumnDropsDefaultConstraint(t *testing.T) {
	rec := (&sinktest.Recorder{}).Answer("sys.default_constraints", sink.Row{"name": "DF_users_age"})
	p := New(rec, nil)
	users := types.NewTable("users")

	drop, err := action.BuildDropColumn(users, "age")
	if err != nil {
		t.Fatal(err)
	}
	if err := p.ExecuteActions(context.Background(), users, []action.Action{drop}); err != nil {
		t.Fatalf("ExecuteActions failed: %v", err)
	}
	assertStatements(t, rec,
		"ALTER TABLE [users] DROP CONSTRAINT [DF_users_age]",
		"ALTER TABLE [users] DROP COLUMN [age]",
	)
}

func TestRenameColumn(t *testing.T) {
	ctx := context.Background()
	users := types.NewTable("users")

	if _, err := New(&sinktest.Recorder{}, nil).RenameColumnInstructions(ctx, users, "missing", "other"); !errors.IsAmbiguousTargetError(err) {
		t.Errorf("Expected AmbiguousTargetError, got %v", err)
	}

	rec := (&sinktest.Recorder{}).Answer("count(*)", sink.Row{"count": int64(1)})
	p := New(rec, nil)
	rename, err := action.BuildRenameColumn(users, "name", "full_name")
	if err != nil {
		t.Fatal(err)
	}
	if err := p.ExecuteActions(ctx, users, []action.Action{rename}); err != nil {
		t.Fatalf("ExecuteActions failed: %v", err)
	}
	assertStatements(t, rec,
		"IF (OBJECT_ID(N'dbo.DF_users_name', 'D') IS NOT NULL) EXECUTE sp_rename N'dbo.DF_users_name', N'DF_users_full_name', N'OBJECT'",
		"EXECUTE sp_rename N'dbo.users.name', N'full_name', N'COLUMN'",
	)
}

func TestChangeColumnSwapsDefault(t *testing.T) {
	rec := (&sinktest.Recorder{}).
		Answer("INFORMATION_SCHEMA.COLUMNS c", sink.Row{"name": "age", "type": "int", "is_nullable": "NO", "column_default": "((0))", "is_identity": int64(0)}).
		Answer("sys.default_constraints", sink.Row{"name": "DF_users_age"})
	p := New(rec, nil)
	users := types.NewTable("users")

	change, err := action.BuildChangeColumn(users, "age", types.Column{
		Name: "years", Type: types.ColumnBigInteger, Null: true, Default: types.NumberDefault("1"), Comment: "yrs",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.ExecuteActions(context.Background(), users, []action.Action{change}); err != nil {
		t.Fatalf("ExecuteActions failed: %v", err)
	}
	assertStatements(t, rec,
		"ALTER TABLE [users] DROP CONSTRAINT [DF_users_age]",
		"IF (OBJECT_ID(N'dbo.DF_users_age', 'D') IS NOT NULL) EXECUTE sp_rename N'dbo.DF_users_age', N'DF_users_years', N'OBJECT'",
		"EXECUTE sp_rename N'dbo.users.age', N'years', N'COLUMN'",
		"ALTER TABLE [users] ALTER COLUMN [years] BIGINT NULL",
		"EXECUTE sp_addextendedproperty N'MS_Description', N'yrs', N'SCHEMA', N'dbo', N'TABLE', N'users', N'COLUMN', N'years'",
		"ALTER TABLE [users] ADD CONSTRAINT [DF_users_years] DEFAULT 1 FOR [years]",
	)

	if _, err := p.ChangeColumnInstructions(context.Background(), users, "missing", &types.Column{Name: "missing", Type: types.ColumnText}); !errors.IsAmbiguousTargetError(err) {
		t.Errorf("Expected AmbiguousTargetError, got %v", err)
	}
}

func TestDropIndexForeignKeyAndPrimaryKey(t *testing.T) {
	rec := (&sinktest.Recorder{}).
		Answer("sys.indexes",
			sink.Row{"index_name": "PK_users", "column_name": "id"},
			sink.Row{"index_name": "users_by_name", "column_name": "last"},
			sink.Row{"index_name": "users_by_name", "column_name": "first"},
		).
		Answer("'FOREIGN KEY'", sink.Row{"constraint_name": "fk_team", "column_name": "team_id"}).
		Answer("'PRIMARY KEY'", sink.Row{"constraint_name": "PK_users", "column_name": "id"})
	p := New(rec, nil)
	ctx := context.Background()
	users := types.NewTable("users")

	dropIndex, err := action.BuildDropIndex(users, "first", "last")
	if err != nil {
		t.Fatal(err)
	}
	dropFK, err := action.BuildDropForeignKey(users, []string{"team_id"}, "")
	if err != nil {
		t.Fatal(err)
	}
	pk, err := action.BuildChangePrimaryKey(users, "id", "tenant_id")
	if err != nil {
		t.Fatal(err)
	}
	if err := p.ExecuteActions(ctx, users, []action.Action{dropIndex, dropFK, pk}); err != nil {
		t.Fatalf("ExecuteActions failed: %v", err)
	}
	assertStatements(t, rec,
		"DROP INDEX [users_by_name] ON [users]",
		"ALTER TABLE [users] DROP CONSTRAINT [fk_team]",
		"ALTER TABLE [users] DROP CONSTRAINT [PK_users]",
		"ALTER TABLE [users] ADD CONSTRAINT [PK_users] PRIMARY KEY ([id], [tenant_id])",
	)

	if _, err := p.DropIndexByNameInstructions(ctx, users, "missing"); !errors.IsAmbiguousTargetError(err) {
		t.Errorf("Expected AmbiguousTargetError, got %v", err)
	}
	if _, err := p.DropForeignKeyInstructions(ctx, users, []string{"owner_id"}); !errors.IsAmbiguousTargetError(err) {
		t.Errorf("Expected AmbiguousTargetError, got %v", err)
	}
	if found, err := p.HasIndex(ctx, "users", []string{"LAST", "first"}); err != nil || !found {
		t.Errorf("HasIndex = %v, %v; want true", found, err)
	}
}

func TestRenameTableAndComment(t *testing.T) {
	rec := (&sinktest.Recorder{}).Answer("ep.minor_id = 0", sink.Row{"name": "MS_Description"})
	p := New(rec, nil)
	users := types.NewTable("users")

	comment, err := action.BuildChangeComment(users, "people")
	if err != nil {
		t.Fatal(err)
	}
	rename, err := action.BuildRenameTable(users, "people")
	if err != nil {
		t.Fatal(err)
	}
	if err := p.ExecuteActions(context.Background(), users, []action.Action{comment, rename}); err != nil {
		t.Fatalf("ExecuteActions failed: %v", err)
	}
	assertStatements(t, rec,
		"EXECUTE sp_updateextendedproperty N'MS_Description', N'people', N'SCHEMA', N'dbo', N'TABLE', N'users'",
		"EXECUTE sp_rename N'dbo.users', N'people'",
	)
}

func TestParseDefault(t *testing.T) {
	tests := []struct {
		expr     string
		expected types.Default
	}{
		{"", types.Default{}},
		{"((0))", types.NumberDefault("0")},
		{"('it''s')", types.StringDefault("it's")},
		{"(N'x')", types.StringDefault("x")},
		{"(NULL)", types.NullDefault()},
		{"(getdate())", types.CurrentTimestampDefault()},
		{"(newid())", types.ExpressionDefault("newid()")},
	}
	for _, tt := range tests {
		if got := parseDefault(tt.expr); got != tt.expected {
			t.Errorf("parseDefault(%q) = %+v, want %+v", tt.expr, got, tt.expected)
		}
	}
}
