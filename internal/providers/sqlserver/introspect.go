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
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ocomsoft/schemashift/internal/sink"
	"github.com/ocomsoft/schemashift/internal/types"
)

var columnTypes = map[string]types.ColumnType{
	"nvarchar": types.ColumnString, "varchar": types.ColumnString,
	"nchar": types.ColumnChar, "char": types.ColumnChar,
	"ntext": types.ColumnText, "text": types.ColumnText,
	"int": types.ColumnInteger, "integer": types.ColumnInteger,
	"tinyint": types.ColumnTinyInteger, "smallint": types.ColumnSmallInteger,
	"bigint":  types.ColumnBigInteger,
	"decimal": types.ColumnDecimal, "numeric": types.ColumnDecimal, "money": types.ColumnDecimal,
	"real": types.ColumnFloat, "float": types.ColumnFloat,
	"binary": types.ColumnBinary, "image": types.ColumnBinary, "varbinary": types.ColumnBinary,
	"time": types.ColumnTime, "date": types.ColumnDate,
	"datetime": types.ColumnDatetime, "datetime2": types.ColumnDatetime, "timestamp": types.ColumnDatetime,
	"bit":              types.ColumnBoolean,
	"uniqueidentifier": types.ColumnUUID,
	"geography":        types.ColumnGeometry,
}

var wrappedDefault = regexp.MustCompile(`^\((.*)\)$`)

// parseDefault unwraps COLUMN_DEFAULT values such as ('x'), ((0)) and
// (getdate()).
func parseDefault(expr string) types.Default {
	s := strings.TrimSpace(expr)
	for {
		m := wrappedDefault.FindStringSubmatch(s)
		if m == nil {
			break
		}
		s = m[1]
	}
	switch {
	case s == "":
		return types.Default{}
	case strings.HasPrefix(s, "N'") && strings.HasSuffix(s, "'"):
		return types.StringDefault(strings.ReplaceAll(s[2:len(s)-1], "''", "'"))
	case strings.HasPrefix(s, "'") && strings.HasSuffix(s, "'") && len(s) > 1:
		return types.StringDefault(strings.ReplaceAll(s[1:len(s)-1], "''", "'"))
	case strings.EqualFold(s, "NULL"):
		return types.NullDefault()
	case strings.EqualFold(s, "getdate()"), strings.EqualFold(s, "CURRENT_TIMESTAMP"):
		return types.CurrentTimestampDefault()
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return types.NumberDefault(s)
	}
	return types.ExpressionDefault(s)
}

// HasTable reports whether table exists
func (p *Provider) HasTable(ctx context.Context, table string) (bool, error) {
	schema, name := splitName(table)
	rows, err := p.sink.Query(ctx, `
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2`, schema, name)
	if err != nil {
		return false, err
	}
	return len(rows) == 1, nil
}

// GetColumns reads the live column definitions of table, comments included.
func (p *Provider) GetColumns(ctx context.Context, table string) ([]*types.Column, error) {
	schema, name := splitName(table)
	rows, err := p.sink.Query(ctx, `
		SELECT c.COLUMN_NAME AS name, c.DATA_TYPE AS type, c.IS_NULLABLE AS is_nullable,
			c.COLUMN_DEFAULT AS column_default, c.CHARACTER_MAXIMUM_LENGTH AS char_length,
			c.NUMERIC_PRECISION AS numeric_precision, c.NUMERIC_SCALE AS numeric_scale,
			COLUMNPROPERTY(OBJECT_ID(QUOTENAME(c.TABLE_SCHEMA) + '.' + QUOTENAME(c.TABLE_NAME)), c.COLUMN_NAME, 'IsIdentity') AS is_identity,
			CAST(ep.value AS NVARCHAR(4000)) AS comment
		FROM INFORMATION_SCHEMA.COLUMNS c
		LEFT JOIN sys.extended_properties ep
			ON ep.major_id = OBJECT_ID(QUOTENAME(c.TABLE_SCHEMA) + '.' + QUOTENAME(c.TABLE_NAME))
			AND ep.minor_id = COLUMNPROPERTY(ep.major_id, c.COLUMN_NAME, 'ColumnId')
			AND ep.name = 'MS_Description'
		WHERE c.TABLE_SCHEMA = @p1 AND c.TABLE_NAME = @p2
		ORDER BY c.ORDINAL_POSITION`, schema, name)
	if err != nil {
		return nil, err
	}
	columns := make([]*types.Column, 0, len(rows))
	for _, row := range rows {
		column := &types.Column{
			Name:     row.String("name"),
			Null:     row.String("is_nullable") != "NO",
			Identity: row.Int("is_identity") == 1,
			Default:  parseDefault(row.String("column_default")),
			Comment:  strings.TrimSpace(row.String("comment")),
		}
		dataType := strings.ToLower(row.String("type"))
		if t, ok := columnTypes[dataType]; ok {
			column.Type = t
		} else {
			column.RawType = dataType
		}
		if length := row.Int("char_length"); length > 0 {
			column.Limit = int(length)
		}
		if column.Type == types.ColumnDecimal {
			column.Precision = int(row.Int("numeric_precision"))
			column.Scale = int(row.Int("numeric_scale"))
		}
		if column.Type == types.ColumnBoolean && column.Default.Kind == types.DefaultNumber {
			column.Default = types.BoolDefault(column.Default.Value != "0")
		}
		columns = append(columns, column)
	}
	return columns, nil
}

// HasColumn reports whether table has column
func (p *Provider) HasColumn(ctx context.Context, table, column string) (bool, error) {
	schema, name := splitName(table)
	rows, err := p.sink.Query(ctx, `
		SELECT count(*) AS count
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2 AND COLUMN_NAME = @p3`, schema, name, column)
	if err != nil {
		return false, err
	}
	return len(rows) > 0 && rows[0].Int("count") > 0, nil
}

// columnComment returns the MS_Description of column and whether one is
// set.
func (p *Provider) columnComment(ctx context.Context, table, column string) (string, bool, error) {
	schema, name := splitName(table)
	rows, err := p.sink.Query(ctx, `
		SELECT CAST(ep.value AS NVARCHAR(4000)) AS comment
		FROM sys.extended_properties ep
		JOIN sys.tables t ON t.object_id = ep.major_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		JOIN sys.columns c ON c.object_id = t.object_id AND c.column_id = ep.minor_id
		WHERE ep.name = 'MS_Description' AND s.name = @p1 AND t.name = @p2 AND c.name = @p3`, schema, name, column)
	if err != nil || len(rows) == 0 {
		return "", false, err
	}
	return rows[0].String("comment"), true, nil
}

// tableComment reports whether table carries an MS_Description.
func (p *Provider) tableComment(ctx context.Context, table string) (bool, error) {
	schema, name := splitName(table)
	rows, err := p.sink.Query(ctx, `
		SELECT ep.name
		FROM sys.extended_properties ep
		JOIN sys.tables t ON t.object_id = ep.major_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		WHERE ep.name = 'MS_Description' AND ep.minor_id = 0 AND s.name = @p1 AND t.name = @p2`, schema, name)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// defaultConstraint returns the name of the default constraint bound to
// column, or "".
func (p *Provider) defaultConstraint(ctx context.Context, table, column string) (string, error) {
	schema, name := splitName(table)
	rows, err := p.sink.Query(ctx, `
		SELECT dc.name
		FROM sys.all_columns c
		JOIN sys.tables t ON c.object_id = t.object_id
		JOIN sys.schemas s ON t.schema_id = s.schema_id
		JOIN sys.default_constraints dc ON c.default_object_id = dc.object_id
		WHERE s.name = @p1 AND t.name = @p2 AND c.name = @p3`, schema, name, column)
	if err != nil || len(rows) == 0 {
		return "", err
	}
	return rows[0].String("name"), nil
}

type keyColumns struct {
	name    string
	columns []string
}

// group folds rows ordered by key name into named column lists.
func group(rows []sink.Row, nameKey, columnKey string) []keyColumns {
	var out []keyColumns
	for _, row := range rows {
		name := row.String(nameKey)
		if len(out) == 0 || out[len(out)-1].name != name {
			out = append(out, keyColumns{name: name})
		}
		out[len(out)-1].columns = append(out[len(out)-1].columns, row.String(columnKey))
	}
	return out
}

// indexes lists the indexes of table with their key columns in order.
func (p *Provider) indexes(ctx context.Context, table string) ([]keyColumns, error) {
	schema, name := splitName(table)
	rows, err := p.sink.Query(ctx, `
		SELECT i.name AS index_name, c.name AS column_name
		FROM sys.indexes i
		JOIN sys.tables t ON t.object_id = i.object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
		JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
		WHERE i.type_desc <> 'HEAP' AND ic.key_ordinal > 0 AND s.name = @p1 AND t.name = @p2
		ORDER BY i.index_id, ic.key_ordinal`, schema, name)
	if err != nil {
		return nil, err
	}
	return group(rows, "index_name", "column_name"), nil
}

func (p *Provider) HasIndex(ctx context.Context, table string, columns []string) (bool, error) {
	indexes, err := p.indexes(ctx, table)
	if err != nil {
		return false, err
	}
	for _, idx := range indexes {
		if types.SameSet(idx.columns, columns) {
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

// constraints lists the constraints of the given type on table.
func (p *Provider) constraints(ctx context.Context, table, constraintType string) ([]keyColumns, error) {
	schema, name := splitName(table)
	rows, err := p.sink.Query(ctx, fmt.Sprintf(`
		SELECT tc.CONSTRAINT_NAME AS constraint_name, kcu.COLUMN_NAME AS column_name
		FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS AS tc
		JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE AS kcu
			ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME AND tc.TABLE_SCHEMA = kcu.TABLE_SCHEMA
		WHERE tc.CONSTRAINT_TYPE = '%s' AND tc.TABLE_SCHEMA = @p1 AND tc.TABLE_NAME = @p2
		ORDER BY tc.CONSTRAINT_NAME, kcu.ORDINAL_POSITION`, constraintType), schema, name)
	if err != nil {
		return nil, err
	}
	return group(rows, "constraint_name", "column_name"), nil
}

// HasForeignKey matches by constraint name when given, by columns otherwise.
func (p *Provider) HasForeignKey(ctx context.Context, table string, columns []string, constraint string) (bool, error) {
	keys, err := p.constraints(ctx, table, "FOREIGN KEY")
	if err != nil {
		return false, err
	}
	for _, key := range keys {
		if constraint != "" {
			if key.name == constraint {
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

func (p *Provider) HasPrimaryKey(ctx context.Context, table string, columns []string) (bool, error) {
	keys, err := p.constraints(ctx, table, "PRIMARY KEY")
	if err != nil {
		return false, err
	}
	return len(keys) > 0 && types.SameSet(keys[0].columns, columns), nil
}
