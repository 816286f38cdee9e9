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
package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/mod/semver"

	"github.com/ocomsoft/schemashift/internal/ddl"
	"github.com/ocomsoft/schemashift/internal/errors"
	"github.com/ocomsoft/schemashift/internal/instructions"
)

// tableFunctionsVersion is the first SQLite release with table valued pragma
// functions such as pragma_foreign_key_list().
const tableFunctionsVersion = "3.16.0"

// projection maps the columns of the old table onto the rebuilt one. An empty
// from keeps every column; an empty to drops from.
type projection struct {
	from string
	to   string
}

// projectColumns returns the parallel select and write lists used to copy
// rows out of a table with the given columns.
func projectColumns(columns []string, proj projection) (selectColumns, writeColumns []string, err error) {
	found := proj.from == ""
	for _, name := range columns {
		if proj.from != "" && strings.EqualFold(name, proj.from) {
			found = true
			if proj.to == "" {
				continue
			}
			selectColumns = append(selectColumns, ddl.QuoteIdent(name))
			writeColumns = append(writeColumns, ddl.QuoteIdent(proj.to))
			continue
		}
		selectColumns = append(selectColumns, ddl.QuoteIdent(name))
		writeColumns = append(writeColumns, ddl.QuoteIdent(name))
	}
	if !found {
		return nil, nil, fmt.Errorf("column %s does not exist", proj.from)
	}
	return selectColumns, writeColumns, nil
}

// rebuild describes one copy-table alteration.
type rebuild struct {
	table     string
	operation string
	// column whose declared type is captured before rewriting, if any
	column  string
	rewrite func(ct *ddl.CreateTable) error
	project projection
	// index filters or patches a buffered CREATE INDEX; nil keeps all
	index func(sql string) (string, bool)
}

// rebuildInstructions returns the phases that rebuild r.table: snapshot,
// create the rewritten copy, project columns, buffer indexes and triggers,
// copy the rows across, then check foreign keys.
func (p *Provider) rebuildInstructions(r rebuild) *instructions.AlterInstructions {
	in := instructions.New(nil)
	in.AddPhase(p.snapshotPhase(r))
	in.AddPhase(p.createCopyPhase(r))
	in.AddPhase(p.projectPhase(r))
	in.AddPhase(p.bufferPhase(r))
	in.AddPhase(p.copyPhase(r))
	in.AddPhase(p.validatePhase(r))
	return in
}

func (p *Provider) rebuildLog(r rebuild) logrus.FieldLogger {
	return p.logger.WithFields(logrus.Fields{"table": r.table, "operation": r.operation})
}

func (p *Provider) snapshotPhase(r rebuild) instructions.Phase {
	return func(ctx context.Context, _ instructions.State) (instructions.State, error) {
		sql, err := p.declaringSQL(ctx, r.table)
		if err != nil {
			return instructions.State{}, err
		}
		state := instructions.State{
			TmpTableName: "tmp_" + r.table,
			CreateSQL:    sql,
		}
		rows, err := p.sink.Query(ctx, "PRAGMA foreign_keys")
		if err != nil {
			return state, err
		}
		state.ForeignKeysEnabled = len(rows) > 0 && rows[0].Int("foreign_keys") == 1
		p.rebuildLog(r).WithField("foreign_keys", state.ForeignKeysEnabled).Debug("rebuilding table")
		return state, nil
	}
}

func (p *Provider) createCopyPhase(r rebuild) instructions.Phase {
	return func(ctx context.Context, state instructions.State) (instructions.State, error) {
		ct, err := ddl.ParseCreateTable(state.CreateSQL)
		if err != nil {
			return state, err
		}
		if r.column != "" {
			if d := ct.Column(r.column); d != nil {
				state.ColumnType = d.DeclaredType()
			}
		}
		if err := r.rewrite(ct); err != nil {
			return state, fmt.Errorf("failed to rewrite %s: %w", r.table, err)
		}
		ct.SetTableName(state.TmpTableName)
		state.CreateSQL = ct.String()
		if _, err := p.sink.Execute(ctx, state.CreateSQL); err != nil {
			return state, err
		}
		return state, nil
	}
}

func (p *Provider) projectPhase(r rebuild) instructions.Phase {
	return func(ctx context.Context, state instructions.State) (instructions.State, error) {
		info, err := p.tableInfo(ctx, "table_info", r.table)
		if err != nil {
			return state, err
		}
		names := make([]string, len(info))
		for i, row := range info {
			names[i] = row.String("name")
		}
		state.SelectColumns, state.WriteColumns, err = projectColumns(names, r.project)
		if err != nil {
			return state, err
		}
		if state.ColumnType != "" {
			p.rebuildLog(r).WithFields(logrus.Fields{"column": r.column, "type": state.ColumnType}).Trace("projected columns")
		}
		return state, nil
	}
}

func (p *Provider) bufferPhase(r rebuild) instructions.Phase {
	return func(ctx context.Context, state instructions.State) (instructions.State, error) {
		rows, err := p.sink.Query(ctx, "SELECT type, sql FROM sqlite_master WHERE lower(tbl_name) = lower(?) AND type IN ('index', 'trigger') AND sql IS NOT NULL", r.table)
		if err != nil {
			return state, err
		}
		state.Indices, state.Triggers = nil, nil
		for _, row := range rows {
			sql := row.String("sql")
			if row.String("type") == "trigger" {
				state.Triggers = append(state.Triggers, sql)
				continue
			}
			if r.index != nil {
				patched, keep := r.index(sql)
				if !keep {
					p.rebuildLog(r).WithField("index", sql).Debug("dropping index with the column")
					continue
				}
				sql = patched
			}
			state.Indices = append(state.Indices, sql)
		}
		return state, nil
	}
}

func (p *Provider) copyPhase(r rebuild) instructions.Phase {
	return func(ctx context.Context, state instructions.State) (instructions.State, error) {
		// Views reading the table break the modern RENAME while the table
		// is gone, so the swap runs in legacy mode.
		rows, err := p.sink.Query(ctx, "PRAGMA legacy_alter_table")
		if err != nil {
			return state, err
		}
		legacy := len(rows) > 0 && rows[0].Int("legacy_alter_table") == 1

		var steps []string
		if state.ForeignKeysEnabled {
			steps = append(steps, "PRAGMA foreign_keys = OFF")
		}
		steps = append(steps,
			fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
				p.QuoteName(state.TmpTableName), strings.Join(state.WriteColumns, ", "),
				strings.Join(state.SelectColumns, ", "), p.QuoteName(r.table)),
			"DROP TABLE "+p.QuoteName(r.table),
		)
		rename := fmt.Sprintf("ALTER TABLE %s RENAME TO %s", p.QuoteName(state.TmpTableName), p.QuoteName(r.table))
		if legacy {
			steps = append(steps, rename)
		} else {
			steps = append(steps, "PRAGMA legacy_alter_table = ON", rename, "PRAGMA legacy_alter_table = OFF")
		}
		steps = append(steps, state.Indices...)
		steps = append(steps, state.Triggers...)
		if state.ForeignKeysEnabled {
			steps = append(steps, "PRAGMA foreign_keys = ON")
		}
		legacyOn := false
		for _, sql := range steps {
			if _, err := p.sink.Execute(ctx, sql); err != nil {
				if legacyOn {
					p.sink.Execute(ctx, "PRAGMA legacy_alter_table = OFF")
				}
				return state, err
			}
			switch sql {
			case "PRAGMA legacy_alter_table = ON":
				legacyOn = true
			case "PRAGMA legacy_alter_table = OFF":
				legacyOn = false
			}
		}
		return state, nil
	}
}

// validatePhase runs foreign_key_check on the rebuilt table and on every
// table referencing it.
func (p *Provider) validatePhase(r rebuild) instructions.Phase {
	return func(ctx context.Context, state instructions.State) (instructions.State, error) {
		referencing, err := p.referencingTables(ctx, r.table)
		if err != nil {
			return state, err
		}
		var violations []string
		for _, table := range append([]string{r.table}, referencing...) {
			rows, err := p.sink.Query(ctx, fmt.Sprintf("PRAGMA foreign_key_check(%s)", p.QuoteName(table)))
			if err != nil {
				return state, err
			}
			for _, row := range rows {
				violations = append(violations, fmt.Sprintf("%s row %d references a missing %s row",
					row.String("table"), row.Int("rowid"), row.String("parent")))
			}
		}
		if len(violations) > 0 {
			return state, errors.NewIntegrityViolationError(r.table, violations)
		}
		return state, nil
	}
}

// referencingTables returns the other tables whose foreign keys point at
// table.
func (p *Provider) referencingTables(ctx context.Context, table string) ([]string, error) {
	modern, err := p.versionAtLeast(ctx, tableFunctionsVersion)
	if err != nil {
		return nil, err
	}
	if modern {
		rows, err := p.sink.Query(ctx, `SELECT DISTINCT m.name AS name FROM sqlite_master m, pragma_foreign_key_list(m.name) f
WHERE m.type = 'table' AND lower(f."table") = lower(?) AND lower(m.name) <> lower(?)`, table, table)
		if err != nil {
			return nil, err
		}
		names := make([]string, len(rows))
		for i, row := range rows {
			names[i] = row.String("name")
		}
		return names, nil
	}

	tables, err := p.sink.Query(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, t := range tables {
		name := t.String("name")
		if strings.EqualFold(name, table) {
			continue
		}
		fks, err := p.tableInfo(ctx, "foreign_key_list", name)
		if err != nil {
			return nil, err
		}
		for _, fk := range fks {
			if strings.EqualFold(fk.String("table"), table) {
				names = append(names, name)
				break
			}
		}
	}
	return names, nil
}

// versionAtLeast compares the library version, read once, with want.
func (p *Provider) versionAtLeast(ctx context.Context, want string) (bool, error) {
	if p.version == "" {
		rows, err := p.sink.Query(ctx, "SELECT sqlite_version() AS version")
		if err != nil {
			return false, err
		}
		if len(rows) == 0 {
			return false, fmt.Errorf("sqlite_version() returned no rows")
		}
		p.version = "v" + rows[0].String("version")
	}
	if !semver.IsValid(p.version) {
		return false, nil
	}
	return semver.Compare(p.version, "v"+want) >= 0, nil
}
