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
// Package sqlite implements the SQLite provider. SQLite cannot alter most of
// a table in place, so column, key and constraint changes rebuild the table
// through a temporary copy.
package sqlite

import (
	"context"
	"fmt"
	"io"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/ocomsoft/schemashift/internal/action"
	"github.com/ocomsoft/schemashift/internal/adapter"
	"github.com/ocomsoft/schemashift/internal/ddl"
	"github.com/ocomsoft/schemashift/internal/errors"
	"github.com/ocomsoft/schemashift/internal/sink"
	"github.com/ocomsoft/schemashift/internal/types"
)

var (
	_ adapter.Adapter    = (*Provider)(nil)
	_ adapter.Translator = (*Provider)(nil)
)

// columnTypes maps portable types onto SQLite declarations. The suffixes keep
// SQLite from giving the column NUMERIC affinity.
var columnTypes = map[types.ColumnType]string{
	types.ColumnBigInteger:   "BIGINTEGER",
	types.ColumnBinary:       "BINARY_BLOB",
	types.ColumnBlob:         "BLOB",
	types.ColumnBoolean:      "BOOLEAN_INTEGER",
	types.ColumnChar:         "CHAR",
	types.ColumnDate:         "DATE_TEXT",
	types.ColumnDatetime:     "DATETIME_TEXT",
	types.ColumnDecimal:      "DECIMAL",
	types.ColumnDouble:       "DOUBLE",
	types.ColumnFloat:        "FLOAT",
	types.ColumnInteger:      "INTEGER",
	types.ColumnJSON:         "JSON_TEXT",
	types.ColumnJSONB:        "JSONB_TEXT",
	types.ColumnSmallInteger: "SMALLINTEGER",
	types.ColumnString:       "VARCHAR",
	types.ColumnText:         "TEXT",
	types.ColumnTime:         "TIME_TEXT",
	types.ColumnTimestamp:    "TIMESTAMP_TEXT",
	types.ColumnTinyInteger:  "TINYINTEGER",
	types.ColumnUUID:         "UUID_TEXT",
	types.ColumnVarbinary:    "VARBINARY_BLOB",
}

// limitedTypes accept a length.
var limitedTypes = map[string]bool{
	"CHAR":              true,
	"CHARACTER":         true,
	"VARCHAR":           true,
	"VARYING CHARACTER": true,
	"NCHAR":             true,
	"NATIVE CHARACTER":  true,
	"NVARCHAR":          true,
}

// Provider is the SQLite dialect bound to a statement sink.
type Provider struct {
	sink    sink.Sink
	logger  logrus.FieldLogger
	version string
}

// New creates a new SQLite provider
func New(s sink.Sink, logger logrus.FieldLogger) *Provider {
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	return &Provider{sink: s, logger: logger.WithField("dialect", types.DatabaseSQLite)}
}

func (p *Provider) Dialect() types.DatabaseType {
	return types.DatabaseSQLite
}

// QuoteName quotes database identifiers for SQLite
func (p *Provider) QuoteName(name string) string {
	return ddl.QuoteIdent(name)
}

func (p *Provider) quoteNames(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = p.QuoteName(n)
	}
	return strings.Join(quoted, ", ")
}

func (p *Provider) AlterTemplate(table string) string {
	return "ALTER TABLE " + strings.ReplaceAll(p.QuoteName(table), "%", "%%") + " %s"
}

func (p *Provider) ExecuteActions(ctx context.Context, table *types.Table, actions []action.Action) error {
	return adapter.ExecuteActions(ctx, p, p.sink, table, actions)
}

// CreateTable creates table with an identity column first unless the table
// disables it, then its indexes.
func (p *Provider) CreateTable(ctx context.Context, table *types.Table, columns []*types.Column, indexes []*types.Index) error {
	primaryKey := append([]string(nil), table.Options.PrimaryKey...)
	if id := table.IdentityColumn(); id != "" && !hasColumn(columns, id) {
		identity := &types.Column{Name: id, Type: types.ColumnInteger, Identity: true}
		columns = append([]*types.Column{identity}, columns...)
	}

	var defs []string
	for _, column := range columns {
		def, err := p.columnSQL(column)
		if err != nil {
			return err
		}
		defs = append(defs, def)
		if column.Identity {
			// already declared PRIMARY KEY AUTOINCREMENT
			primaryKey = removeFold(primaryKey, column.Name)
		}
	}
	if len(primaryKey) > 0 {
		defs = append(defs, "PRIMARY KEY ("+p.quoteNames(primaryKey)+")")
	}

	sql := fmt.Sprintf("CREATE TABLE %s (%s)", p.QuoteName(table.Name), strings.Join(defs, ", "))
	if _, err := p.sink.Execute(ctx, sql); err != nil {
		return err
	}
	for _, index := range indexes {
		if _, err := p.sink.Execute(ctx, p.createIndexSQL(table.Name, index)); err != nil {
			return err
		}
	}
	return nil
}

// ConvertColumnType returns the SQLite declaration of the column's type.
func (p *Provider) ConvertColumnType(column *types.Column) (string, error) {
	var def string
	if column.IsLiteralType() {
		def = column.RawType
	} else {
		name, ok := columnTypes[column.Type]
		if !ok {
			return "", errors.NewUnsupportedColumnTypeError(string(types.DatabaseSQLite), string(column.Type))
		}
		def = name
		if column.Limit > 0 && limitedTypes[name] {
			def += fmt.Sprintf("(%d)", column.Limit)
		}
	}
	if column.Precision > 0 && column.Scale > 0 {
		def += fmt.Sprintf("(%d,%d)", column.Precision, column.Scale)
	}
	return def, nil
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
	if column.Default.IsSet() {
		def += " DEFAULT " + column.Default.SQL()
	}
	if column.Identity {
		def += " PRIMARY KEY AUTOINCREMENT"
	}
	if column.Comment != "" {
		def += " /* " + strings.ReplaceAll(column.Comment, "*/", "* /") + " */"
	}
	return def, nil
}

func (p *Provider) columnSQL(column *types.Column) (string, error) {
	def, err := p.columnDefinition(column)
	if err != nil {
		return "", err
	}
	return p.QuoteName(column.Name) + " " + def, nil
}

func (p *Provider) createIndexSQL(table string, index *types.Index) string {
	kind := "INDEX"
	if index.IsUnique() {
		kind = "UNIQUE INDEX"
	}
	cols := make([]string, len(index.Columns))
	for i, c := range index.Columns {
		cols[i] = p.QuoteName(c) + " ASC"
	}
	return fmt.Sprintf("CREATE %s %s ON %s (%s)", kind, p.QuoteName(index.NameOrDefault(table)), p.QuoteName(table), strings.Join(cols, ", "))
}

func (p *Provider) foreignKeySQL(fk *types.ForeignKey) string {
	var b strings.Builder
	if fk.Constraint != "" {
		b.WriteString("CONSTRAINT " + p.QuoteName(fk.Constraint) + " ")
	}
	fmt.Fprintf(&b, "FOREIGN KEY (%s) REFERENCES %s (%s)", p.quoteNames(fk.Columns), p.QuoteName(fk.ReferencedTable), p.quoteNames(fk.ReferencedColumns))
	if fk.OnDelete != "" {
		b.WriteString(" ON DELETE " + fk.OnDelete)
	}
	if fk.OnUpdate != "" {
		b.WriteString(" ON UPDATE " + fk.OnUpdate)
	}
	return b.String()
}

func hasColumn(columns []*types.Column, name string) bool {
	for _, c := range columns {
		if strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

func removeFold(list []string, name string) []string {
	var out []string
	for _, v := range list {
		if !strings.EqualFold(v, name) {
			out = append(out, v)
		}
	}
	return out
}
