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
// Package postgresql implements the PostgreSQL provider. Every change maps
// onto ALTER TABLE clauses or standalone statements.
package postgresql

import (
	"context"
	"fmt"
	"io"
	"strings"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/ocomsoft/schemashift/internal/action"
	"github.com/ocomsoft/schemashift/internal/adapter"
	"github.com/ocomsoft/schemashift/internal/errors"
	"github.com/ocomsoft/schemashift/internal/sink"
	"github.com/ocomsoft/schemashift/internal/types"
)

var (
	_ adapter.Adapter    = (*Provider)(nil)
	_ adapter.Translator = (*Provider)(nil)
)

const defaultSchema = "public"

// Provider is the PostgreSQL dialect bound to a statement sink.
type Provider struct {
	sink   sink.Sink
	logger logrus.FieldLogger
}

// New creates a new PostgreSQL provider
func New(s sink.Sink, logger logrus.FieldLogger) *Provider {
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	return &Provider{sink: s, logger: logger.WithField("dialect", types.DatabasePostgreSQL)}
}

func (p *Provider) Dialect() types.DatabaseType {
	return types.DatabasePostgreSQL
}

// QuoteName quotes database identifiers for PostgreSQL
func (p *Provider) QuoteName(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteTable quotes a table name, keeping a schema prefix apart.
func (p *Provider) QuoteTable(name string) string {
	if !strings.Contains(name, ".") {
		return p.QuoteName(name)
	}
	schema, table := splitName(name)
	return p.QuoteName(schema) + "." + p.QuoteName(table)
}

func (p *Provider) quoteNames(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = p.QuoteName(n)
	}
	return strings.Join(quoted, ", ")
}

// splitName separates "schema.table", defaulting the schema to public.
func splitName(name string) (schema, table string) {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i], name[i+1:]
	}
	return defaultSchema, name
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (p *Provider) AlterTemplate(table string) string {
	return "ALTER TABLE " + strings.ReplaceAll(p.QuoteTable(table), "%", "%%") + " %s"
}

func (p *Provider) ExecuteActions(ctx context.Context, table *types.Table, actions []action.Action) error {
	return adapter.ExecuteActions(ctx, p, p.sink, table, actions)
}

// CreateTable creates table, its column and table comments, then its
// indexes. An identity column and a different explicit primary key cannot
// be combined.
func (p *Provider) CreateTable(ctx context.Context, table *types.Table, columns []*types.Column, indexes []*types.Index) error {
	primaryKey := table.Options.PrimaryKey
	if id := table.IdentityColumn(); id != "" {
		if len(primaryKey) > 0 && !types.EqualFold(primaryKey, []string{id}) {
			return errors.NewValidationError("primary_key", "an auto incrementing id cannot be combined with a different primary key")
		}
		columns = append([]*types.Column{{Name: id, Type: types.ColumnInteger, Identity: true}}, columns...)
		primaryKey = []string{id}
	}

	var defs, comments []string
	for _, column := range columns {
		def, err := p.columnDefinition(column)
		if err != nil {
			return err
		}
		defs = append(defs, p.QuoteName(column.Name)+" "+def)
		if column.Comment != "" {
			comments = append(comments, p.columnCommentSQL(table.Name, column))
		}
	}
	if len(primaryKey) > 0 {
		_, name := splitName(table.Name)
		defs = append(defs, fmt.Sprintf("CONSTRAINT %s PRIMARY KEY (%s)", p.QuoteName(name+"_pkey"), p.quoteNames(primaryKey)))
	}

	queries := []string{fmt.Sprintf("CREATE TABLE %s (%s)", p.QuoteTable(table.Name), strings.Join(defs, ", "))}
	queries = append(queries, comments...)
	for _, index := range indexes {
		sql, err := p.createIndexSQL(table.Name, index)
		if err != nil {
			return err
		}
		queries = append(queries, sql)
	}
	if table.Options.Comment != "" {
		queries = append(queries, p.tableCommentSQL(table.Name, table.Options.Comment))
	}

	for _, q := range queries {
		if _, err := p.sink.Execute(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// ConvertColumnType returns the PostgreSQL type of column, without
// nullability or default.
func (p *Provider) ConvertColumnType(column *types.Column) (string, error) {
	if column.IsLiteralType() {
		return column.RawType, nil
	}
	limit := func(def string, fallback int) string {
		if column.Limit > 0 {
			return fmt.Sprintf("%s(%d)", def, column.Limit)
		}
		return fmt.Sprintf("%s(%d)", def, fallback)
	}
	precision := func(def string) string {
		if column.Precision > 0 {
			return fmt.Sprintf("%s(%d)", def, column.Precision)
		}
		return def
	}

	switch column.Type {
	case types.ColumnText, types.ColumnDate, types.ColumnBoolean, types.ColumnJSON,
		types.ColumnJSONB, types.ColumnUUID, types.ColumnCidr, types.ColumnInet,
		types.ColumnMacaddr, types.ColumnInteger, types.ColumnInterval:
		return strings.ToUpper(string(column.Type)), nil
	case types.ColumnTime:
		return precision("TIME"), nil
	case types.ColumnTimestamp, types.ColumnDatetime:
		return precision("TIMESTAMP"), nil
	case types.ColumnTinyInteger, types.ColumnSmallInteger:
		return "SMALLINT", nil
	case types.ColumnBigInteger:
		return "BIGINT", nil
	case types.ColumnDecimal:
		if column.Precision > 0 || column.Scale > 0 {
			prec := column.Precision
			if prec == 0 {
				prec = 18
			}
			return fmt.Sprintf("DECIMAL(%d, %d)", prec, column.Scale), nil
		}
		return "DECIMAL", nil
	case types.ColumnDouble:
		return "DOUBLE PRECISION", nil
	case types.ColumnFloat:
		return "REAL", nil
	case types.ColumnString:
		return limit("CHARACTER VARYING", 255), nil
	case types.ColumnChar:
		return limit("CHARACTER", 255), nil
	case types.ColumnBlob, types.ColumnBinary:
		return "BYTEA", nil
	case types.ColumnGeometry, types.ColumnPoint, types.ColumnLinestring, types.ColumnPolygon:
		return fmt.Sprintf("GEOGRAPHY(%s,4326)", strings.ToUpper(string(column.Type))), nil
	}
	return "", errors.NewUnsupportedColumnTypeError(string(types.DatabasePostgreSQL), string(column.Type))
}

// columnDefinition renders everything after the column name. Identity
// columns become SERIAL or BIGSERIAL.
func (p *Provider) columnDefinition(column *types.Column) (string, error) {
	var def string
	switch {
	case column.Identity && column.Type == types.ColumnBigInteger:
		def = "BIGSERIAL"
	case column.Identity:
		def = "SERIAL"
	default:
		t, err := p.ConvertColumnType(column)
		if err != nil {
			return "", err
		}
		def = t
	}
	if column.Null {
		def += " NULL"
	} else {
		def += " NOT NULL"
	}
	if column.Default.IsSet() {
		def += " DEFAULT " + defaultSQL(column)
	}
	return def, nil
}

// defaultSQL renders a default, using TRUE and FALSE for boolean columns.
func defaultSQL(column *types.Column) string {
	d := column.Default
	if column.Type == types.ColumnBoolean && (d.Kind == types.DefaultBool || d.Kind == types.DefaultNumber) {
		if d.Value == "0" || strings.EqualFold(d.Value, "false") {
			return "FALSE"
		}
		return "TRUE"
	}
	return d.SQL()
}

func (p *Provider) columnCommentSQL(table string, column *types.Column) string {
	comment := "NULL"
	if !strings.EqualFold(column.Comment, "NULL") {
		comment = quoteString(column.Comment)
	}
	return fmt.Sprintf("COMMENT ON COLUMN %s.%s IS %s", p.QuoteTable(table), p.QuoteName(column.Name), comment)
}

func (p *Provider) tableCommentSQL(table, comment string) string {
	value := "NULL"
	if comment != "" {
		value = quoteString(comment)
	}
	return fmt.Sprintf("COMMENT ON TABLE %s IS %s", p.QuoteTable(table), value)
}

func (p *Provider) createIndexSQL(table string, index *types.Index) (string, error) {
	kind := "INDEX"
	switch index.Type {
	case types.IndexUnique:
		kind = "UNIQUE INDEX"
	case types.IndexFulltext:
		return "", errors.NewUnsupportedOperationError(string(types.DatabasePostgreSQL), "fulltext index")
	}
	_, name := splitName(table)
	return fmt.Sprintf("CREATE %s %s ON %s (%s)", kind, p.QuoteName(index.NameOrDefault(name)), p.QuoteTable(table), p.quoteNames(index.Columns)), nil
}

func (p *Provider) foreignKeySQL(table string, fk *types.ForeignKey) string {
	constraint := fk.Constraint
	if constraint == "" {
		_, name := splitName(table)
		constraint = name + "_" + strings.Join(fk.Columns, "_") + "_fkey"
	}
	def := fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		p.QuoteName(constraint), p.quoteNames(fk.Columns), p.QuoteTable(fk.ReferencedTable), p.quoteNames(fk.ReferencedColumns))
	if fk.OnDelete != "" {
		def += " ON DELETE " + fk.OnDelete
	}
	if fk.OnUpdate != "" {
		def += " ON UPDATE " + fk.OnUpdate
	}
	return def
}
