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
// Package sqlserver implements the SQL Server provider. Most changes run as
// standalone statements; renames go through sp_rename and comments through
// extended properties.
package sqlserver

import (
	"context"
	"fmt"
	"io"
	"strings"

	_ "github.com/microsoft/go-mssqldb"
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

const defaultSchema = "dbo"

// Provider is the SQL Server dialect bound to a statement sink.
type Provider struct {
	sink   sink.Sink
	logger logrus.FieldLogger
}

// New creates a new SQL Server provider
func New(s sink.Sink, logger logrus.FieldLogger) *Provider {
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	return &Provider{sink: s, logger: logger.WithField("dialect", types.DatabaseSQLServer)}
}

func (p *Provider) Dialect() types.DatabaseType {
	return types.DatabaseSQLServer
}

// QuoteName quotes database identifiers for SQL Server
func (p *Provider) QuoteName(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
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

// splitName separates "schema.table", defaulting the schema to dbo.
func splitName(name string) (schema, table string) {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i], name[i+1:]
	}
	return defaultSchema, name
}

// unicode quotes s as a national string literal.
func unicode(s string) string {
	return "N'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (p *Provider) AlterTemplate(table string) string {
	return "ALTER TABLE " + strings.ReplaceAll(p.QuoteTable(table), "%", "%%") + " %s"
}

func (p *Provider) ExecuteActions(ctx context.Context, table *types.Table, actions []action.Action) error {
	return adapter.ExecuteActions(ctx, p, p.sink, table, actions)
}

// defaultConstraintName names the default constraint of column so it can
// be found again when the column changes.
func defaultConstraintName(table, column string) string {
	_, name := splitName(table)
	return "DF_" + name + "_" + column
}

// CreateTable creates table, then its column comments, table comment and
// indexes.
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
		def, err := p.columnDefinition(table.Name, column, true)
		if err != nil {
			return err
		}
		defs = append(defs, p.QuoteName(column.Name)+" "+def)
		if column.Comment != "" {
			comments = append(comments, p.columnCommentSQL(table.Name, column.Name, column.Comment, false))
		}
	}
	_, name := splitName(table.Name)
	if len(primaryKey) > 0 {
		defs = append(defs, fmt.Sprintf("CONSTRAINT %s PRIMARY KEY (%s)", p.QuoteName("PK_"+name), p.quoteNames(primaryKey)))
	}

	queries := []string{fmt.Sprintf("CREATE TABLE %s (%s)", p.QuoteTable(table.Name), strings.Join(defs, ", "))}
	queries = append(queries, comments...)
	if table.Options.Comment != "" {
		queries = append(queries, p.tableCommentSQL(table.Name, table.Options.Comment, "sp_addextendedproperty"))
	}
	for _, index := range indexes {
		sql, err := p.createIndexSQL(table.Name, index)
		if err != nil {
			return err
		}
		queries = append(queries, sql)
	}

	for _, q := range queries {
		if _, err := p.sink.Execute(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// ConvertColumnType returns the SQL Server type of column. Integer types
// take no length.
func (p *Provider) ConvertColumnType(column *types.Column) (string, error) {
	if column.IsLiteralType() {
		return column.RawType, nil
	}
	sized := func(name string, fallback string) string {
		if column.Limit > 0 {
			return fmt.Sprintf("%s(%d)", name, column.Limit)
		}
		return name + "(" + fallback + ")"
	}

	switch column.Type {
	case types.ColumnString:
		return sized("NVARCHAR", "255"), nil
	case types.ColumnChar:
		return sized("NCHAR", "255"), nil
	case types.ColumnText:
		return "NVARCHAR(MAX)", nil
	case types.ColumnInteger:
		return "INT", nil
	case types.ColumnTinyInteger:
		return "TINYINT", nil
	case types.ColumnSmallInteger:
		return "SMALLINT", nil
	case types.ColumnBigInteger:
		return "BIGINT", nil
	case types.ColumnFloat:
		return "FLOAT", nil
	case types.ColumnDouble:
		return "FLOAT(53)", nil
	case types.ColumnDecimal:
		if column.Precision > 0 && column.Scale > 0 {
			return fmt.Sprintf("DECIMAL(%d, %d)", column.Precision, column.Scale), nil
		}
		return "DECIMAL", nil
	case types.ColumnDatetime, types.ColumnTimestamp:
		return "DATETIME", nil
	case types.ColumnTime:
		return "TIME", nil
	case types.ColumnDate:
		return "DATE", nil
	case types.ColumnBlob, types.ColumnBinary, types.ColumnVarbinary:
		return sized("VARBINARY", "MAX"), nil
	case types.ColumnFilestream:
		return "VARBINARY(MAX) FILESTREAM", nil
	case types.ColumnBoolean:
		return "BIT", nil
	case types.ColumnUUID:
		return "UNIQUEIDENTIFIER", nil
	case types.ColumnGeometry, types.ColumnPoint, types.ColumnLinestring, types.ColumnPolygon:
		return "GEOGRAPHY", nil
	}
	return "", errors.NewUnsupportedColumnTypeError(string(types.DatabaseSQLServer), string(column.Type))
}

func defaultSQL(d types.Default) string {
	if d.Kind == types.DefaultString {
		return unicode(d.Value)
	}
	return d.SQL()
}

// columnDefinition renders everything after the column name. The default
// is only inlined on create; ALTER COLUMN cannot carry one.
func (p *Provider) columnDefinition(table string, column *types.Column, create bool) (string, error) {
	def, err := p.ConvertColumnType(column)
	if err != nil {
		return "", err
	}
	if column.Null {
		def += " NULL"
	} else {
		def += " NOT NULL"
	}
	if create && column.Default.IsSet() {
		def += fmt.Sprintf(" CONSTRAINT %s DEFAULT %s", p.QuoteName(defaultConstraintName(table, column.Name)), defaultSQL(column.Default))
	}
	if column.Identity {
		def += " IDENTITY(1,1)"
	}
	return def, nil
}

// columnCommentSQL sets the MS_Description property of a column. A comment
// of "NULL" clears it.
func (p *Provider) columnCommentSQL(table, column, comment string, exists bool) string {
	if strings.EqualFold(comment, "NULL") {
		comment = ""
	}
	procedure := "sp_addextendedproperty"
	if exists {
		procedure = "sp_updateextendedproperty"
	}
	schema, name := splitName(table)
	return fmt.Sprintf("EXECUTE %s N'MS_Description', %s, N'SCHEMA', %s, N'TABLE', %s, N'COLUMN', %s",
		procedure, unicode(comment), unicode(schema), unicode(name), unicode(column))
}

func (p *Provider) tableCommentSQL(table, comment, procedure string) string {
	schema, name := splitName(table)
	if procedure == "sp_dropextendedproperty" {
		return fmt.Sprintf("EXECUTE %s N'MS_Description', N'SCHEMA', %s, N'TABLE', %s", procedure, unicode(schema), unicode(name))
	}
	return fmt.Sprintf("EXECUTE %s N'MS_Description', %s, N'SCHEMA', %s, N'TABLE', %s",
		procedure, unicode(comment), unicode(schema), unicode(name))
}

func (p *Provider) createIndexSQL(table string, index *types.Index) (string, error) {
	kind := "INDEX"
	switch index.Type {
	case types.IndexUnique:
		kind = "UNIQUE INDEX"
	case types.IndexFulltext:
		return "", errors.NewUnsupportedOperationError(string(types.DatabaseSQLServer), "fulltext index")
	}
	_, name := splitName(table)
	return fmt.Sprintf("CREATE %s %s ON %s (%s)", kind, p.QuoteName(index.NameOrDefault(name)), p.QuoteTable(table), p.quoteNames(index.Columns)), nil
}

func (p *Provider) foreignKeySQL(table string, fk *types.ForeignKey) string {
	constraint := fk.Constraint
	if constraint == "" {
		_, name := splitName(table)
		constraint = "FK_" + name + "_" + strings.Join(fk.Columns, "_")
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
