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
package postgresql

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ocomsoft/schemashift/internal/types"
)

var (
	castStringPattern = regexp.MustCompile(`^'(.*)'::[^:]+$`)
	functionPattern   = regexp.MustCompile(`^\D[a-z_\d]*\(.*\)$`)
	numericPattern    = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
)

// columnTypeFor maps an information_schema data type back onto a portable
// type. Unknown types are kept raw.
func columnTypeFor(dataType string, column *types.Column) {
	switch dataType {
	case "character varying", "varchar":
		column.Type = types.ColumnString
	case "character", "char":
		column.Type = types.ColumnChar
	case "text":
		column.Type = types.ColumnText
	case "json":
		column.Type = types.ColumnJSON
	case "jsonb":
		column.Type = types.ColumnJSONB
	case "smallint":
		column.Type = types.ColumnSmallInteger
	case "int", "int4", "integer":
		column.Type = types.ColumnInteger
	case "decimal", "numeric":
		column.Type = types.ColumnDecimal
	case "bigint", "int8":
		column.Type = types.ColumnBigInteger
	case "real", "float4":
		column.Type = types.ColumnFloat
	case "double precision":
		column.Type = types.ColumnDouble
	case "bytea":
		column.Type = types.ColumnBinary
	case "interval":
		column.Type = types.ColumnInterval
	case "time", "timetz", "time with time zone", "time without time zone":
		column.Type = types.ColumnTime
	case "date":
		column.Type = types.ColumnDate
	case "timestamp", "timestamptz", "timestamp with time zone", "timestamp without time zone":
		column.Type = types.ColumnDatetime
	case "bool", "boolean":
		column.Type = types.ColumnBoolean
	case "uuid":
		column.Type = types.ColumnUUID
	case "cidr":
		column.Type = types.ColumnCidr
	case "inet":
		column.Type = types.ColumnInet
	case "macaddr":
		column.Type = types.ColumnMacaddr
	default:
		column.RawType = dataType
	}
}

// parseDefault interprets information_schema.columns.column_default.
func parseDefault(expr string) types.Default {
	switch {
	case expr == "":
		return types.Default{}
	case strings.HasPrefix(expr, "'"):
		if m := castStringPattern.FindStringSubmatch(expr); m != nil {
			return types.StringDefault(strings.NewReplacer("''", "'", `\'`, "'").Replace(m[1]))
		}
		return types.ExpressionDefault(expr)
	case strings.EqualFold(expr, "CURRENT_TIMESTAMP"), strings.EqualFold(expr, "now()"):
		return types.CurrentTimestampDefault()
	case functionPattern.MatchString(expr):
		return types.ExpressionDefault(expr)
	case numericPattern.MatchString(expr):
		return types.NumberDefault(expr)
	case expr == "true" || expr == "false":
		return types.BoolDefault(expr == "true")
	case strings.EqualFold(expr, "NULL"):
		return types.NullDefault()
	default:
		return types.ExpressionDefault(expr)
	}
}

// HasTable reports whether table exists
func (p *Provider) HasTable(ctx context.Context, table string) (bool, error) {
	schema, name := splitName(table)
	rows, err := p.sink.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_name = $2`, schema, name)
	if err != nil {
		return false, err
	}
	return len(rows) == 1, nil
}

// GetColumns reads the live column definitions of table.
func (p *Provider) GetColumns(ctx context.Context, table string) ([]*types.Column, error) {
	schema, name := splitName(table)
	rows, err := p.sink.Query(ctx, `
		SELECT column_name, data_type, udt_name, is_identity, is_nullable,
			column_default, character_maximum_length, numeric_precision, numeric_scale,
			datetime_precision
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`, schema, name)
	if err != nil {
		return nil, err
	}

	columns := make([]*types.Column, 0, len(rows))
	for _, row := range rows {
		column := &types.Column{
			Name: row.String("column_name"),
			Null: row.String("is_nullable") == "YES",
		}
		if strings.EqualFold(strings.TrimSpace(row.String("data_type")), "USER-DEFINED") {
			column.RawType = row.String("udt_name")
		} else {
			columnTypeFor(row.String("data_type"), column)
		}

		def := row.String("column_default")
		column.Identity = row.String("is_identity") == "YES" || strings.HasPrefix(def, "nextval(")
		if !column.Identity {
			column.Default = parseDefault(def)
		}

		column.Limit = int(row.Int("character_maximum_length"))
		switch column.Type {
		case types.ColumnTime, types.ColumnDatetime:
			column.Precision = int(row.Int("datetime_precision"))
		case types.ColumnDecimal:
			column.Precision = int(row.Int("numeric_precision"))
			column.Scale = int(row.Int("numeric_scale"))
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
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2 AND column_name = $3`, schema, name, column)
	if err != nil {
		return false, err
	}
	return len(rows) > 0 && rows[0].Int("count") > 0, nil
}

// indexes returns index name to ordered columns for table.
func (p *Provider) indexes(ctx context.Context, table string) (map[string][]string, []string, error) {
	schema, name := splitName(table)
	rows, err := p.sink.Query(ctx, `
		SELECT i.relname AS index_name, a.attname AS column_name
		FROM pg_class t
		JOIN pg_index ix ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		JOIN pg_namespace nsp ON t.relnamespace = nsp.oid
		WHERE nsp.nspname = $1 AND t.relkind = 'r' AND t.relname = $2
		ORDER BY i.relname, array_position(ix.indkey::int2[], a.attnum)`, schema, name)
	if err != nil {
		return nil, nil, err
	}
	indexes := make(map[string][]string)
	var order []string
	for _, row := range rows {
		index := row.String("index_name")
		if _, ok := indexes[index]; !ok {
			order = append(order, index)
		}
		indexes[index] = append(indexes[index], row.String("column_name"))
	}
	return indexes, order, nil
}

func (p *Provider) HasIndex(ctx context.Context, table string, columns []string) (bool, error) {
	indexes, _, err := p.indexes(ctx, table)
	if err != nil {
		return false, err
	}
	for _, cols := range indexes {
		if types.SameSet(cols, columns) {
			return true, nil
		}
	}
	return false, nil
}

func (p *Provider) HasIndexByName(ctx context.Context, table, indexName string) (bool, error) {
	indexes, _, err := p.indexes(ctx, table)
	if err != nil {
		return false, err
	}
	_, ok := indexes[indexName]
	return ok, nil
}

type constraint struct {
	name    string
	columns []string
}

// constraints lists the constraints of the given type on table.
func (p *Provider) constraints(ctx context.Context, table, constraintType string) ([]constraint, error) {
	schema, name := splitName(table)
	rows, err := p.sink.Query(ctx, fmt.Sprintf(`
		SELECT tc.constraint_name, kcu.column_name
		FROM information_schema.table_constraints AS tc
		JOIN information_schema.key_column_usage AS kcu
			ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = '%s' AND tc.table_schema = $1 AND tc.table_name = $2
		ORDER BY tc.constraint_name, kcu.ordinal_position`, constraintType), schema, name)
	if err != nil {
		return nil, err
	}
	var out []constraint
	for _, row := range rows {
		cname := row.String("constraint_name")
		if len(out) == 0 || out[len(out)-1].name != cname {
			out = append(out, constraint{name: cname})
		}
		out[len(out)-1].columns = append(out[len(out)-1].columns, row.String("column_name"))
	}
	return out, nil
}

// HasForeignKey matches by constraint name when given, by columns otherwise.
func (p *Provider) HasForeignKey(ctx context.Context, table string, columns []string, constraintName string) (bool, error) {
	keys, err := p.constraints(ctx, table, "FOREIGN KEY")
	if err != nil {
		return false, err
	}
	for _, key := range keys {
		if constraintName != "" {
			if key.name == constraintName {
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
