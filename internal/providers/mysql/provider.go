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
// Package mysql implements the MySQL provider. Changes to one table are
// folded into a single ALTER TABLE where MySQL allows it.
package mysql

import (
	"context"
	"fmt"
	"io"
	"strings"

	_ "github.com/go-sql-driver/mysql"
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

// Table options every created table gets.
const (
	defaultEngine    = "InnoDB"
	defaultCollation = "utf8mb4_unicode_ci"
)

// Text and blob size thresholds.
const (
	textSmall   = 255
	textRegular = 65535
	textMedium  = 16777215
	textLong    = 4294967295
)

// Provider is the MySQL dialect bound to a statement sink.
type Provider struct {
	sink   sink.Sink
	logger logrus.FieldLogger
}

// New creates a new MySQL provider
func New(s sink.Sink, logger logrus.FieldLogger) *Provider {
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	return &Provider{sink: s, logger: logger.WithField("dialect", types.DatabaseMySQL)}
}

func (p *Provider) Dialect() types.DatabaseType {
	return types.DatabaseMySQL
}

// QuoteName quotes database identifiers for MySQL
func (p *Provider) QuoteName(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// QuoteTable quotes a table name, keeping a database prefix apart.
func (p *Provider) QuoteTable(name string) string {
	schema, table := splitName(name)
	if schema == "" {
		return p.QuoteName(table)
	}
	return p.QuoteName(schema) + "." + p.QuoteName(table)
}

func (p *Provider) quoteNames(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = p.QuoteName(n)
	}
	return strings.Join(quoted, ", ")
}

// splitName separates "database.table". The database is "" when the name
// is unqualified.
func splitName(name string) (schema, table string) {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

// quoteString quotes a literal, escaping backslashes as MySQL expects.
func quoteString(s string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, "'", "''").Replace(s) + "'"
}

func (p *Provider) AlterTemplate(table string) string {
	return "ALTER TABLE " + strings.ReplaceAll(p.QuoteTable(table), "%", "%%") + " %s"
}

func (p *Provider) ExecuteActions(ctx context.Context, table *types.Table, actions []action.Action) error {
	return adapter.ExecuteActions(ctx, p, p.sink, table, actions)
}

// CreateTable creates table with its primary key and indexes in one
// statement.
func (p *Provider) CreateTable(ctx context.Context, table *types.Table, columns []*types.Column, indexes []*types.Index) error {
	primaryKey := table.Options.PrimaryKey
	if id := table.IdentityColumn(); id != "" {
		if len(primaryKey) > 0 && !types.EqualFold(primaryKey, []string{id}) {
			return errors.NewValidationError("primary_key", "an auto incrementing id cannot be combined with a different primary key")
		}
		columns = append([]*types.Column{{Name: id, Type: types.ColumnInteger, Identity: true}}, columns...)
		primaryKey = []string{id}
	}

	var defs []string
	for _, column := range columns {
		def, err := p.columnDefinition(column)
		if err != nil {
			return err
		}
		defs = append(defs, p.QuoteName(column.Name)+" "+def)
	}
	if len(primaryKey) > 0 {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", p.quoteNames(primaryKey)))
	}
	_, name := splitName(table.Name)
	for _, index := range indexes {
		defs = append(defs, p.indexDefinition(name, index))
	}

	options := fmt.Sprintf("ENGINE = %s CHARACTER SET %s COLLATE %s",
		defaultEngine, strings.SplitN(defaultCollation, "_", 2)[0], defaultCollation)
	if table.Options.Comment != "" {
		options += " COMMENT=" + quoteString(table.Options.Comment)
	}

	query := fmt.Sprintf("CREATE TABLE %s (%s) %s", p.QuoteTable(table.Name), strings.Join(defs, ", "), options)
	_, err := p.sink.Execute(ctx, query)
	return err
}

func limitOr(limit, fallback int) int {
	if limit > 0 {
		return limit
	}
	return fallback
}

// blobType picks the smallest blob that holds limit bytes.
func blobType(limit int) string {
	switch {
	case limit <= 0:
		return "BLOB"
	case limit <= textSmall:
		return "TINYBLOB"
	case limit <= textRegular:
		return "BLOB"
	case limit <= textMedium:
		return "MEDIUMBLOB"
	}
	return "LONGBLOB"
}

// textType picks the text type for limit, longest first.
func textType(limit int) string {
	switch {
	case limit >= textLong:
		return "LONGTEXT"
	case limit >= textMedium:
		return "MEDIUMTEXT"
	case limit >= textRegular:
		return "TEXT"
	case limit >= textSmall:
		return "TINYTEXT"
	}
	return "TEXT"
}

// ConvertColumnType returns the MySQL type of column. Enum and set columns
// need a raw type carrying their values.
func (p *Provider) ConvertColumnType(column *types.Column) (string, error) {
	if column.IsLiteralType() {
		return column.RawType, nil
	}
	fsp := func(name string) string {
		if column.Precision > 0 {
			return fmt.Sprintf("%s(%d)", name, column.Precision)
		}
		return name
	}

	switch column.Type {
	case types.ColumnString:
		return fmt.Sprintf("VARCHAR(%d)", limitOr(column.Limit, 255)), nil
	case types.ColumnChar:
		return fmt.Sprintf("CHAR(%d)", limitOr(column.Limit, 255)), nil
	case types.ColumnText:
		return textType(column.Limit), nil
	case types.ColumnTinyInteger:
		return "TINYINT", nil
	case types.ColumnSmallInteger:
		return "SMALLINT", nil
	case types.ColumnInteger:
		return "INT", nil
	case types.ColumnBigInteger:
		return "BIGINT", nil
	case types.ColumnBoolean:
		return "TINYINT(1)", nil
	case types.ColumnFloat, types.ColumnDouble, types.ColumnDate, types.ColumnJSON,
		types.ColumnGeometry, types.ColumnPoint, types.ColumnLinestring, types.ColumnPolygon:
		return strings.ToUpper(string(column.Type)), nil
	case types.ColumnDecimal:
		if column.Precision > 0 {
			return fmt.Sprintf("DECIMAL(%d,%d)", column.Precision, column.Scale), nil
		}
		return "DECIMAL", nil
	case types.ColumnDatetime, types.ColumnTimestamp, types.ColumnTime:
		return fsp(strings.ToUpper(string(column.Type))), nil
	case types.ColumnBinary, types.ColumnVarbinary:
		limit := limitOr(column.Limit, 255)
		if limit > 255 {
			return blobType(limit), nil
		}
		return fmt.Sprintf("%s(%d)", strings.ToUpper(string(column.Type)), limit), nil
	case types.ColumnBlob:
		return blobType(column.Limit), nil
	case types.ColumnBit:
		return fmt.Sprintf("BIT(%d)", limitOr(column.Limit, 64)), nil
	case types.ColumnUUID:
		return "CHAR(36)", nil
	}
	return "", errors.NewUnsupportedColumnTypeError(string(types.DatabaseMySQL), string(column.Type))
}

// expressionDefaultTypes only accept string defaults written as
// expressions.
var expressionDefaultTypes = map[types.ColumnType]bool{
	types.ColumnText: true, types.ColumnBlob: true, types.ColumnJSON: true,
	types.ColumnGeometry: true, types.ColumnPoint: true, types.ColumnLinestring: true,
	types.ColumnPolygon: true,
}

func defaultSQL(column *types.Column) string {
	d := column.Default
	if d.Kind != types.DefaultString {
		return d.SQL()
	}
	if expressionDefaultTypes[column.Type] {
		return "(" + quoteString(d.Value) + ")"
	}
	return quoteString(d.Value)
}

// columnDefinition renders everything after the column name.
func (p *Provider) columnDefinition(column *types.Column) (string, error) {
	def, err := p.ConvertColumnType(column)
	if err != nil {
		return "", err
	}
	if column.Null {
		def += " NULL"
	} else {
		def += " NOT NULL"
	}
	if column.Identity {
		def += " AUTO_INCREMENT"
	}
	if column.Default.IsSet() {
		def += " DEFAULT " + defaultSQL(column)
	}
	if column.Comment != "" {
		def += " COMMENT " + quoteString(column.Comment)
	}
	return def, nil
}

// afterClause places a column with FIRST or AFTER.
func (p *Provider) afterClause(column *types.Column) string {
	switch column.After {
	case "":
		return ""
	case types.FirstColumn:
		return " FIRST"
	}
	return " AFTER " + p.QuoteName(column.After)
}

func (p *Provider) indexDefinition(table string, index *types.Index) string {
	kind := "KEY"
	switch index.Type {
	case types.IndexUnique:
		kind = "UNIQUE KEY"
	case types.IndexFulltext:
		kind = "FULLTEXT KEY"
	}
	return fmt.Sprintf("%s %s (%s)", kind, p.QuoteName(index.NameOrDefault(table)), p.quoteNames(index.Columns))
}

func (p *Provider) foreignKeyDefinition(fk *types.ForeignKey) string {
	var def string
	if fk.Constraint != "" {
		def = "CONSTRAINT " + p.QuoteName(fk.Constraint) + " "
	}
	def += fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
		p.quoteNames(fk.Columns), p.QuoteTable(fk.ReferencedTable), p.quoteNames(fk.ReferencedColumns))
	if fk.OnDelete != "" {
		def += " ON DELETE " + fk.OnDelete
	}
	if fk.OnUpdate != "" {
		def += " ON UPDATE " + fk.OnUpdate
	}
	return def
}
