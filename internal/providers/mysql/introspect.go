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
package mysql

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/ocomsoft/schemashift/internal/types"
)

var sqlTypePattern = regexp.MustCompile(`^(\w+)(?:\((\d+)(?:,(\d+))?\))?(.*)$`)

// parseSQLType maps a SHOW COLUMNS type such as "varchar(40)" or
// "decimal(10,2) unsigned" onto column.
func parseSQLType(def string, column *types.Column) {
	m := sqlTypePattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(def)))
	if m == nil {
		column.RawType = def
		return
	}
	limit, _ := strconv.Atoi(m[2])
	scale, _ := strconv.Atoi(m[3])

	switch m[1] {
	case "varchar":
		column.Type, column.Limit = types.ColumnString, limit
	case "char":
		if limit == 36 {
			column.Type = types.ColumnUUID
			return
		}
		column.Type, column.Limit = types.ColumnChar, limit
	case "tinyint":
		if limit == 1 {
			column.Type = types.ColumnBoolean
			return
		}
		column.Type = types.ColumnTinyInteger
	case "smallint":
		column.Type = types.ColumnSmallInteger
	case "int", "integer":
		column.Type = types.ColumnInteger
	case "bigint":
		column.Type = types.ColumnBigInteger
	case "decimal":
		column.Type, column.Precision, column.Scale = types.ColumnDecimal, limit, scale
	case "float":
		column.Type = types.ColumnFloat
	case "double":
		column.Type = types.ColumnDouble
	case "date":
		column.Type = types.ColumnDate
	case "datetime", "timestamp", "time":
		column.Type, column.Precision = types.ColumnType(m[1]), limit
	case "tinytext":
		column.Type, column.Limit = types.ColumnText, textSmall
	case "text":
		column.Type = types.ColumnText
	case "mediumtext":
		column.Type, column.Limit = types.ColumnText, textMedium
	case "longtext":
		column.Type, column.Limit = types.ColumnText, textLong
	case "binary", "varbinary":
		column.Type, column.Limit = types.ColumnType(m[1]), limit
	case "tinyblob":
		column.Type, column.Limit = types.ColumnBlob, textSmall
	case "blob":
		column.Type = types.ColumnBlob
	case "mediumblob":
		column.Type, column.Limit = types.ColumnBlob, textMedium
	case "longblob":
		column.Type, column.Limit = types.ColumnBlob, textLong
	case "bit":
		column.Type, column.Limit = types.ColumnBit, limit
	case "json", "geometry", "point", "linestring", "polygon":
		column.Type = types.ColumnType(m[1])
	default:
		column.RawType = def
	}
}

// charsetLiteral matches text defaults MySQL 8 reports as _charset\'value\'.
var charsetLiteral = regexp.MustCompile(`^_[a-zA-Z0-9]+\\'(.*)\\'$`)

// parseDefault interprets the Default field of SHOW COLUMNS.
func parseDefault(value string, column *types.Column) types.Default {
	s := strings.TrimSpace(value)
	if m := charsetLiteral.FindStringSubmatch(s); m != nil {
		return types.StringDefault(m[1])
	}
	switch {
	case strings.EqualFold(s, "CURRENT_TIMESTAMP"), strings.HasPrefix(strings.ToUpper(s), "CURRENT_TIMESTAMP("):
		return types.CurrentTimestampDefault()
	case strings.EqualFold(s, "NULL"):
		return types.NullDefault()
	case column.Type == types.ColumnBoolean && (s == "0" || s == "1"):
		return types.BoolDefault(s == "1")
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil && isNumericType(column.Type) {
		return types.NumberDefault(s)
	}
	return types.StringDefault(s)
}

func isNumericType(t types.ColumnType) bool {
	switch t {
	case types.ColumnTinyInteger, types.ColumnSmallInteger, types.ColumnInteger, types.ColumnBigInteger,
		types.ColumnDecimal, types.ColumnFloat, types.ColumnDouble, types.ColumnBit:
		return true
	}
	return false
}

// schemaFilter returns the TABLE_SCHEMA condition and its arguments for
// table, using the connection's database when unqualified.
func schemaFilter(table string) (string, []any) {
	schema, name := splitName(table)
	if schema == "" {
		return "TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?", []any{name}
	}
	return "TABLE_SCHEMA = ? AND TABLE_NAME = ?", []any{schema, name}
}

// HasTable reports whether table exists
func (p *Provider) HasTable(ctx context.Context, table string) (bool, error) {
	where, args := schemaFilter(table)
	rows, err := p.sink.Query(ctx, "SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE "+where, args...)
	if err != nil {
		return false, err
	}
	return len(rows) == 1, nil
}

// GetColumns reads the live column definitions of table.
func (p *Provider) GetColumns(ctx context.Context, table string) ([]*types.Column, error) {
	rows, err := p.sink.Query(ctx, "SHOW COLUMNS FROM "+p.QuoteTable(table))
	if err != nil {
		return nil, err
	}
	columns := make([]*types.Column, 0, len(rows))
	for _, row := range rows {
		column := &types.Column{
			Name:     row.String("Field"),
			Null:     row.String("Null") != "NO",
			Identity: strings.Contains(strings.ToLower(row.String("Extra")), "auto_increment"),
		}
		parseSQLType(row.String("Type"), column)
		if row["Default"] != nil {
			column.Default = parseDefault(row.String("Default"), column)
		}
		columns = append(columns, column)
	}
	return columns, nil
}

// HasColumn reports whether table has column
func (p *Provider) HasColumn(ctx context.Context, table, column string) (bool, error) {
	rows, err := p.sink.Query(ctx, "SHOW COLUMNS FROM "+p.QuoteTable(table))
	if err != nil {
		return false, err
	}
	for _, row := range rows {
		if strings.EqualFold(row.String("Field"), column) {
			return true, nil
		}
	}
	return false, nil
}

type index struct {
	name    string
	columns []string
}

// indexes lists the indexes of table with their columns in key order.
func (p *Provider) indexes(ctx context.Context, table string) ([]index, error) {
	rows, err := p.sink.Query(ctx, "SHOW INDEXES FROM "+p.QuoteTable(table))
	if err != nil {
		return nil, err
	}
	var out []index
	for _, row := range rows {
		name := row.String("Key_name")
		if len(out) == 0 || out[len(out)-1].name != name {
			out = append(out, index{name: name})
		}
		out[len(out)-1].columns = append(out[len(out)-1].columns, row.String("Column_name"))
	}
	return out, nil
}

func (p *Provider) HasIndex(ctx context.Context, table string, columns []string) (bool, error) {
	indexes, err := p.indexes(ctx, table)
	if err != nil {
		return false, err
	}
	for _, idx := range indexes {
		if types.EqualFold(idx.columns, columns) {
			return true, nil
		}
	}
	return false, nil
}

func (p *Provider) HasIndexByName(ctx context.Context, table, indexName string) (bool, error) {
	indexes, err := p.indexes(ctx, table)
	if err != nil {
		return false, err
	}
	for _, idx := range indexes {
		if idx.name == indexName {
			return true, nil
		}
	}
	return false, nil
}

// primaryKey returns the primary key columns of table in key order.
func (p *Provider) primaryKey(ctx context.Context, table string) ([]string, error) {
	where, args := schemaFilter(table)
	where = strings.NewReplacer("TABLE_SCHEMA", "t.TABLE_SCHEMA", "TABLE_NAME", "t.TABLE_NAME").Replace(where)
	rows, err := p.sink.Query(ctx, `
		SELECT k.CONSTRAINT_NAME, k.COLUMN_NAME
		FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS t
		JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE k
			USING(CONSTRAINT_NAME, TABLE_SCHEMA, TABLE_NAME)
		WHERE t.CONSTRAINT_TYPE = 'PRIMARY KEY' AND `+where+`
		ORDER BY k.ORDINAL_POSITION`, args...)
	if err != nil {
		return nil, err
	}
	columns := make([]string, 0, len(rows))
	for _, row := range rows {
		columns = append(columns, row.String("COLUMN_NAME"))
	}
	return columns, nil
}

func (p *Provider) HasPrimaryKey(ctx context.Context, table string, columns []string) (bool, error) {
	pk, err := p.primaryKey(ctx, table)
	if err != nil {
		return false, err
	}
	return len(pk) > 0 && types.SameSet(pk, columns), nil
}

type foreignKey struct {
	constraint string
	columns    []string
}

// foreignKeys lists the foreign keys of table grouped by constraint.
func (p *Provider) foreignKeys(ctx context.Context, table string) ([]foreignKey, error) {
	where, args := schemaFilter(table)
	rows, err := p.sink.Query(ctx, `
		SELECT CONSTRAINT_NAME, COLUMN_NAME
		FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
		WHERE REFERENCED_TABLE_NAME IS NOT NULL AND `+where+`
		ORDER BY CONSTRAINT_NAME, ORDINAL_POSITION`, args...)
	if err != nil {
		return nil, err
	}
	var out []foreignKey
	for _, row := range rows {
		name := row.String("CONSTRAINT_NAME")
		if len(out) == 0 || out[len(out)-1].constraint != name {
			out = append(out, foreignKey{constraint: name})
		}
		out[len(out)-1].columns = append(out[len(out)-1].columns, row.String("COLUMN_NAME"))
	}
	return out, nil
}

// HasForeignKey matches by constraint name when given, by columns otherwise.
func (p *Provider) HasForeignKey(ctx context.Context, table string, columns []string, constraint string) (bool, error) {
	keys, err := p.foreignKeys(ctx, table)
	if err != nil {
		return false, err
	}
	for _, key := range keys {
		if constraint != "" {
			if key.constraint == constraint {
				return true, nil
			}
			continue
		}
		if types.SameSet(key.columns, columns) {
			return true, nil
		}
	}
	return false, nil
}
