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
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ocomsoft/schemashift/internal/ddl"
	"github.com/ocomsoft/schemashift/internal/sink"
	"github.com/ocomsoft/schemashift/internal/types"
)

// typeAliases maps declared type names back onto portable types.
var typeAliases = map[string]types.ColumnType{
	"biginteger":    types.ColumnBigInteger,
	"bigint":        types.ColumnBigInteger,
	"binary":        types.ColumnBinary,
	"blob":          types.ColumnBlob,
	"tinyblob":      types.ColumnBlob,
	"mediumblob":    types.ColumnBlob,
	"longblob":      types.ColumnBlob,
	"boolean":       types.ColumnBoolean,
	"char":          types.ColumnChar,
	"date":          types.ColumnDate,
	"datetime":      types.ColumnDatetime,
	"decimal":       types.ColumnDecimal,
	"double":        types.ColumnDouble,
	"float":         types.ColumnFloat,
	"real":          types.ColumnFloat,
	"integer":       types.ColumnInteger,
	"int":           types.ColumnInteger,
	"mediumint":     types.ColumnInteger,
	"mediuminteger": types.ColumnInteger,
	"json":          types.ColumnJSON,
	"jsonb":         types.ColumnJSONB,
	"smallinteger":  types.ColumnSmallInteger,
	"smallint":      types.ColumnSmallInteger,
	"varchar":       types.ColumnString,
	"text":          types.ColumnText,
	"tinytext":      types.ColumnText,
	"mediumtext":    types.ColumnText,
	"longtext":      types.ColumnText,
	"time":          types.ColumnTime,
	"timestamp":     types.ColumnTimestamp,
	"tinyinteger":   types.ColumnTinyInteger,
	"tinyint":       types.ColumnTinyInteger,
	"uuid":          types.ColumnUUID,
	"varbinary":     types.ColumnVarbinary,
}

var (
	declaredTypePattern = regexp.MustCompile(`(?i)^([a-z]+)(_(?:integer|float|text|blob))?(?:\((\d+)(?:,\s*(\d+))?\))?$`)
	currentTimePattern  = regexp.MustCompile(`(?i)^CURRENT_(?:DATE|TIME|TIMESTAMP)$`)
	stringPattern       = regexp.MustCompile(`^'(?:[^']|'')*'$`)
	numberPattern       = regexp.MustCompile(`(?i)^[+-]?(?:\d+(?:\.\d*)?|\.\d+)(?:e[+-]?\d+)?$`)
	hexPattern          = regexp.MustCompile(`(?i)^0x[0-9a-f]+$`)
)

// parseDeclaredType maps a declared column type back onto a column. Types
// that are not recognised are kept as RawType.
func parseDeclaredType(decl string, column *types.Column) {
	m := declaredTypePattern.FindStringSubmatch(decl)
	if m == nil {
		column.RawType = decl
		return
	}
	name := strings.ToLower(m[1])
	limit, _ := strconv.Atoi(m[3])
	scale, _ := strconv.Atoi(m[4])

	switch t, ok := typeAliases[name]; {
	case (name == "tinyint" || name == "tinyinteger") && limit == 1:
		column.Type = types.ColumnBoolean
		return
	case ok:
		column.Type = t
	case !types.IsKnownColumnType(types.ColumnType(name)):
		column.RawType = m[1] + m[2]
	default:
		// known but not storable here
		column.RawType = name
	}
	if scale > 0 {
		column.Precision = limit
		column.Scale = scale
	} else {
		column.Limit = limit
	}
}

// parseDefault interprets a default expression as reported by table_info.
func parseDefault(expr string, columnType types.ColumnType) types.Default {
	var cleaned strings.Builder
	for _, t := range ddl.Tokenize(expr) {
		if t.Kind == ddl.Comment {
			cleaned.WriteString(" ")
			continue
		}
		cleaned.WriteString(t.Text)
	}
	clean := strings.TrimSpace(cleaned.String())
	bare := strings.TrimRight(strings.TrimLeft(clean, " \t\r\n("), " \t\r\n)")

	switch {
	case clean == "":
		return types.Default{}
	case currentTimePattern.MatchString(bare):
		if strings.EqualFold(bare, "CURRENT_TIMESTAMP") {
			return types.CurrentTimestampDefault()
		}
		return types.ExpressionDefault(strings.ToUpper(bare))
	case stringPattern.MatchString(bare):
		return types.StringDefault(strings.ReplaceAll(bare[1:len(bare)-1], "''", "'"))
	case numberPattern.MatchString(bare):
		if columnType == types.ColumnBoolean && (bare == "0" || bare == "1") {
			return types.BoolDefault(bare == "1")
		}
		return types.NumberDefault(bare)
	case hexPattern.MatchString(bare):
		n, err := strconv.ParseInt(bare[2:], 16, 64)
		if err != nil {
			return types.ExpressionDefault(clean)
		}
		return types.NumberDefault(strconv.FormatInt(n, 10))
	case strings.EqualFold(bare, "null"):
		return types.NullDefault()
	case strings.EqualFold(bare, "true"), strings.EqualFold(bare, "false"):
		return types.BoolDefault(strings.EqualFold(bare, "true"))
	default:
		return types.ExpressionDefault(clean)
	}
}

func (p *Provider) tableInfo(ctx context.Context, pragma, table string) ([]sink.Row, error) {
	return p.sink.Query(ctx, fmt.Sprintf("PRAGMA %s(%s)", pragma, p.QuoteName(table)))
}

// HasTable reports whether table exists.
func (p *Provider) HasTable(ctx context.Context, table string) (bool, error) {
	rows, err := p.sink.Query(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND lower(name) = lower(?)", table)
	if err != nil {
		return false, err
	}
	for _, row := range rows {
		if strings.EqualFold(row.String("name"), table) {
			return true, nil
		}
	}
	return false, nil
}

// resolveIdentity returns the column aliasing the rowid, or "". Only a single
// column primary key declared exactly INTEGER can be one, and a pk origin
// autoindex rules it out.
func (p *Provider) resolveIdentity(ctx context.Context, table string) (string, error) {
	info, err := p.tableInfo(ctx, "table_info", table)
	if err != nil {
		return "", err
	}
	identity := ""
	for _, col := range info {
		switch pk := col.Int("pk"); {
		case pk > 1:
			return "", nil
		case pk == 0:
			continue
		case !strings.EqualFold(col.String("type"), "integer"):
			return "", nil
		default:
			identity = col.String("name")
		}
	}
	if identity == "" {
		return "", nil
	}

	indexes, err := p.tableInfo(ctx, "index_list", table)
	if err != nil {
		return "", err
	}
	for _, idx := range indexes {
		if idx.String("origin") == "pk" {
			return "", nil
		}
	}
	return identity, nil
}

// GetColumns reads the live column definitions of table.
func (p *Provider) GetColumns(ctx context.Context, table string) ([]*types.Column, error) {
	info, err := p.tableInfo(ctx, "table_info", table)
	if err != nil {
		return nil, err
	}
	identity, err := p.resolveIdentity(ctx, table)
	if err != nil {
		return nil, err
	}

	columns := make([]*types.Column, 0, len(info))
	for _, row := range info {
		column := &types.Column{
			Name:     row.String("name"),
			Null:     row.Int("notnull") == 0,
			Identity: identity != "" && row.String("name") == identity,
		}
		parseDeclaredType(row.String("type"), column)
		if row["dflt_value"] != nil {
			column.Default = parseDefault(row.String("dflt_value"), column.Type)
		}
		columns = append(columns, column)
	}
	return columns, nil
}

// HasColumn reports whether table has column, ignoring case.
func (p *Provider) HasColumn(ctx context.Context, table, column string) (bool, error) {
	columns, err := p.GetColumns(ctx, table)
	if err != nil {
		return false, err
	}
	for _, c := range columns {
		if strings.EqualFold(c.Name, column) {
			return true, nil
		}
	}
	return false, nil
}

type indexInfo struct {
	name    string
	columns []string
}

// indexes lists the indexes of table with their columns, autoindexes
// included.
func (p *Provider) indexes(ctx context.Context, table string) ([]indexInfo, error) {
	list, err := p.tableInfo(ctx, "index_list", table)
	if err != nil {
		return nil, err
	}
	out := make([]indexInfo, 0, len(list))
	for _, row := range list {
		name := row.String("name")
		cols, err := p.sink.Query(ctx, fmt.Sprintf("PRAGMA index_info(%s)", p.QuoteName(name)))
		if err != nil {
			return nil, err
		}
		sort.SliceStable(cols, func(i, j int) bool { return cols[i].Int("seqno") < cols[j].Int("seqno") })
		info := indexInfo{name: name}
		for _, c := range cols {
			info.columns = append(info.columns, c.String("name"))
		}
		out = append(out, info)
	}
	return out, nil
}

// resolveIndex returns the names of the indexes on exactly columns.
func (p *Provider) resolveIndex(ctx context.Context, table string, columns []string) ([]string, error) {
	indexes, err := p.indexes(ctx, table)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, idx := range indexes {
		if types.EqualFold(idx.columns, columns) {
			names = append(names, idx.name)
		}
	}
	return names, nil
}

func (p *Provider) HasIndex(ctx context.Context, table string, columns []string) (bool, error) {
	names, err := p.resolveIndex(ctx, table, columns)
	return len(names) > 0, err
}

func (p *Provider) HasIndexByName(ctx context.Context, table, indexName string) (bool, error) {
	indexes, err := p.indexes(ctx, table)
	if err != nil {
		return false, err
	}
	for _, idx := range indexes {
		if strings.EqualFold(idx.name, indexName) {
			return true, nil
		}
	}
	return false, nil
}

// declaringSQL returns the CREATE TABLE statement of table with identifiers
// quoted by backticks.
func (p *Provider) declaringSQL(ctx context.Context, table string) (string, error) {
	rows, err := p.sink.Query(ctx, "SELECT sql FROM sqlite_master WHERE type = 'table' AND lower(name) = lower(?)", table)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("table %s does not exist", table)
	}
	return ddl.Normalize(rows[0].String("sql")), nil
}

// HasForeignKey looks a foreign key up by constraint name when one is given,
// by its columns otherwise.
func (p *Provider) HasForeignKey(ctx context.Context, table string, columns []string, constraint string) (bool, error) {
	if constraint != "" {
		sql, err := p.declaringSQL(ctx, table)
		if err != nil {
			return false, err
		}
		ct, err := ddl.ParseCreateTable(sql)
		if err != nil {
			return false, err
		}
		for _, d := range ct.Definitions {
			if d.ConstraintType() == ddl.ConstraintForeignKey && strings.EqualFold(d.Name(), constraint) {
				return true, nil
			}
		}
		return false, nil
	}

	keys, err := p.foreignKeys(ctx, table)
	if err != nil {
		return false, err
	}
	for _, key := range keys {
		if types.SameSet(key, columns) {
			return true, nil
		}
	}
	return false, nil
}

// foreignKeys returns the owning columns of each foreign key of table.
func (p *Provider) foreignKeys(ctx context.Context, table string) ([][]string, error) {
	rows, err := p.tableInfo(ctx, "foreign_key_list", table)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Int("id") != rows[j].Int("id") {
			return rows[i].Int("id") < rows[j].Int("id")
		}
		return rows[i].Int("seq") < rows[j].Int("seq")
	})
	var keys [][]string
	last := int64(-1)
	for _, row := range rows {
		if id := row.Int("id"); id != last || len(keys) == 0 {
			keys = append(keys, nil)
			last = id
		}
		keys[len(keys)-1] = append(keys[len(keys)-1], row.String("from"))
	}
	return keys, nil
}

// HasPrimaryKey reports whether the primary key of table is exactly columns,
// in any order.
func (p *Provider) HasPrimaryKey(ctx context.Context, table string, columns []string) (bool, error) {
	pk, err := p.primaryKey(ctx, table)
	if err != nil {
		return false, err
	}
	return len(pk) > 0 && types.SameSet(pk, columns), nil
}

func (p *Provider) primaryKey(ctx context.Context, table string) ([]string, error) {
	info, err := p.tableInfo(ctx, "table_info", table)
	if err != nil {
		return nil, err
	}
	var cols []sink.Row
	for _, row := range info {
		if row.Int("pk") > 0 {
			cols = append(cols, row)
		}
	}
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].Int("pk") < cols[j].Int("pk") })
	pk := make([]string, len(cols))
	for i, c := range cols {
		pk[i] = c.String("name")
	}
	return pk, nil
}
