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
package migration

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"github.com/ocomsoft/schemashift/internal/action"
	"github.com/ocomsoft/schemashift/internal/adapter"
	"github.com/ocomsoft/schemashift/internal/errors"
	"github.com/ocomsoft/schemashift/internal/plan"
	"github.com/ocomsoft/schemashift/internal/types"
)

// script is the top level of a YAML change script. Exactly one of change
// or up is present; down is only allowed next to up.
type script struct {
	Change yaml.Node `yaml:"change"`
	Up     yaml.Node `yaml:"up"`
	Down   yaml.Node `yaml:"down"`
}

type columnSpec struct {
	Name              string    `yaml:"name"`
	Type              string    `yaml:"type"`
	RawType           string    `yaml:"raw_type"`
	Null              bool      `yaml:"null"`
	Default           yaml.Node `yaml:"default"`
	DefaultExpression string    `yaml:"default_expression"`
	Limit             int       `yaml:"limit"`
	Precision         int       `yaml:"precision"`
	Scale             int       `yaml:"scale"`
	Identity          bool      `yaml:"identity"`
	After             string    `yaml:"after"`
	Comment           string    `yaml:"comment"`
}

type indexSpec struct {
	Columns []string `yaml:"columns"`
	Name    string   `yaml:"name"`
	Unique  bool     `yaml:"unique"`
	Type    string   `yaml:"type"`
}

type foreignKeySpec struct {
	Columns           []string `yaml:"columns"`
	References        string   `yaml:"references"`
	ReferencedColumns []string `yaml:"referenced_columns"`
	Constraint        string   `yaml:"constraint"`
	OnDelete          string   `yaml:"on_delete"`
	OnUpdate          string   `yaml:"on_update"`
}

type createTableOp struct {
	Name        string           `yaml:"name"`
	ID          string           `yaml:"id"`
	WithoutID   bool             `yaml:"without_id"`
	PrimaryKey  []string         `yaml:"primary_key"`
	Comment     string           `yaml:"comment"`
	Columns     []columnSpec     `yaml:"columns"`
	Indexes     []indexSpec      `yaml:"indexes"`
	ForeignKeys []foreignKeySpec `yaml:"foreign_keys"`
}

type addColumnOp struct {
	Table      string `yaml:"table"`
	columnSpec `yaml:",inline"`
}

type changeColumnOp struct {
	Table      string     `yaml:"table"`
	Name       string     `yaml:"name"`
	Definition columnSpec `yaml:"definition"`
}

type addIndexOp struct {
	Table     string `yaml:"table"`
	indexSpec `yaml:",inline"`
}

type addForeignKeyOp struct {
	Table          string `yaml:"table"`
	foreignKeySpec `yaml:",inline"`
}

// tableOp carries the fields of the remaining operations; each one reads
// the subset it needs.
type tableOp struct {
	Table      string   `yaml:"table"`
	Name       string   `yaml:"name"`
	From       string   `yaml:"from"`
	To         string   `yaml:"to"`
	Columns    []string `yaml:"columns"`
	Constraint string   `yaml:"constraint"`
	Comment    string   `yaml:"comment"`
}

// operation compiles the value node of one script entry.
type operation func(node *yaml.Node) ([]action.Action, error)

var operations = map[string]operation{
	"create_table":       compileCreateTable,
	"drop_table":         compileDropTable,
	"rename_table":       compileRenameTable,
	"add_column":         compileAddColumn,
	"remove_column":      compileRemoveColumn,
	"rename_column":      compileRenameColumn,
	"change_column":      compileChangeColumn,
	"add_index":          compileAddIndex,
	"remove_index":       compileRemoveIndex,
	"add_foreign_key":    compileAddForeignKey,
	"drop_foreign_key":   compileDropForeignKey,
	"change_primary_key": compileChangePrimaryKey,
	"change_comment":     compileChangeComment,
}

var yamlLine = regexp.MustCompile(`line (\d+)`)

// ParseScript reads a YAML change script into a Migration. version and
// name usually come from the file name; path is used in errors.
func ParseScript(path string, version int64, name string, data []byte) (*Migration, error) {
	if strings.TrimSpace(string(data)) == "" {
		return nil, errors.NewSchemaParseError(path, 0, "script is empty")
	}

	var s script
	if err := yaml.Unmarshal(data, &s); err != nil {
		line := 0
		if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
			line, _ = strconv.Atoi(m[1])
		}
		return nil, errors.NewSchemaParseError(path, line, fmt.Sprintf("invalid YAML syntax: %v", err))
	}

	m := &Migration{Version: version, Name: name, Source: path}
	switch {
	case present(&s.Change) && (present(&s.Up) || present(&s.Down)):
		return nil, errors.NewSchemaParseError(path, s.Change.Line, "change cannot be combined with up or down")
	case present(&s.Change):
		ops, err := compileSection(path, &s.Change)
		if err != nil {
			return nil, err
		}
		m.Change = applyEach(ops)
	case present(&s.Up):
		ops, err := compileSection(path, &s.Up)
		if err != nil {
			return nil, err
		}
		m.Up = applyEach(ops)
		if present(&s.Down) {
			ops, err := compileSection(path, &s.Down)
			if err != nil {
				return nil, err
			}
			m.Down = applyEach(ops)
		}
	case present(&s.Down):
		return nil, errors.NewSchemaParseError(path, s.Down.Line, "down requires up")
	default:
		return nil, errors.NewSchemaParseError(path, 0, "script needs a change or an up section")
	}
	return m, nil
}

func present(n *yaml.Node) bool {
	return n.Kind != 0 && n.Tag != "!!null"
}

// applyEach runs every operation as its own plan, so later operations see
// the effect of earlier ones.
func applyEach(ops [][]action.Action) ChangeFunc {
	return func(ctx context.Context, a adapter.Adapter) error {
		for _, actions := range ops {
			if err := plan.Apply(ctx, a, actions...); err != nil {
				return err
			}
		}
		return nil
	}
}

func compileSection(path string, section *yaml.Node) ([][]action.Action, error) {
	if section.Kind != yaml.SequenceNode {
		return nil, errors.NewSchemaParseError(path, section.Line, "expected a list of operations")
	}
	var out [][]action.Action
	for _, item := range section.Content {
		if item.Kind != yaml.MappingNode || len(item.Content) != 2 {
			return nil, errors.NewSchemaParseError(path, item.Line, "each operation must be a mapping with exactly one key")
		}
		key, value := item.Content[0], item.Content[1]
		compile, ok := operations[key.Value]
		if !ok {
			return nil, errors.NewSchemaParseError(path, key.Line, fmt.Sprintf("unknown operation %q", key.Value))
		}
		actions, err := compile(value)
		if err != nil {
			return nil, errors.NewSchemaParseError(path, value.Line, fmt.Sprintf("%s: %v", key.Value, err))
		}
		out = append(out, actions)
	}
	return out, nil
}

func requireTable(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("table is required")
	}
	return nil
}

func compileCreateTable(node *yaml.Node) ([]action.Action, error) {
	var op createTableOp
	if err := node.Decode(&op); err != nil {
		return nil, err
	}
	if err := requireTable(op.Name); err != nil {
		return nil, err
	}
	table := &types.Table{Name: op.Name, Options: types.TableOptions{
		ID:         op.ID,
		DisableID:  op.WithoutID,
		PrimaryKey: op.PrimaryKey,
		Comment:    op.Comment,
	}}
	create, err := action.BuildCreateTable(table)
	if err != nil {
		return nil, err
	}
	actions := []action.Action{create}
	for i := range op.Columns {
		column, err := op.Columns[i].column()
		if err != nil {
			return nil, err
		}
		add, err := action.BuildAddColumn(table, column)
		if err != nil {
			return nil, err
		}
		actions = append(actions, add)
	}
	for _, spec := range op.Indexes {
		add, err := spec.build(table)
		if err != nil {
			return nil, err
		}
		actions = append(actions, add)
	}
	for _, spec := range op.ForeignKeys {
		add, err := spec.build(table)
		if err != nil {
			return nil, err
		}
		actions = append(actions, add)
	}
	return actions, nil
}

func compileDropTable(node *yaml.Node) ([]action.Action, error) {
	return compileTableOp(node, func(table *types.Table, op tableOp) (action.Action, error) {
		return action.BuildDropTable(table)
	})
}

func compileRenameTable(node *yaml.Node) ([]action.Action, error) {
	return compileTableOp(node, func(table *types.Table, op tableOp) (action.Action, error) {
		return action.BuildRenameTable(table, op.To)
	})
}

func compileRemoveColumn(node *yaml.Node) ([]action.Action, error) {
	return compileTableOp(node, func(table *types.Table, op tableOp) (action.Action, error) {
		return action.BuildDropColumn(table, op.Name)
	})
}

func compileRenameColumn(node *yaml.Node) ([]action.Action, error) {
	return compileTableOp(node, func(table *types.Table, op tableOp) (action.Action, error) {
		return action.BuildRenameColumn(table, op.From, op.To)
	})
}

func compileRemoveIndex(node *yaml.Node) ([]action.Action, error) {
	return compileTableOp(node, func(table *types.Table, op tableOp) (action.Action, error) {
		if op.Name != "" {
			if len(op.Columns) > 0 {
				return nil, fmt.Errorf("give either columns or name, not both")
			}
			return action.BuildDropIndexByName(table, op.Name)
		}
		return action.BuildDropIndex(table, op.Columns...)
	})
}

func compileDropForeignKey(node *yaml.Node) ([]action.Action, error) {
	return compileTableOp(node, func(table *types.Table, op tableOp) (action.Action, error) {
		return action.BuildDropForeignKey(table, op.Columns, op.Constraint)
	})
}

func compileChangePrimaryKey(node *yaml.Node) ([]action.Action, error) {
	return compileTableOp(node, func(table *types.Table, op tableOp) (action.Action, error) {
		return action.BuildChangePrimaryKey(table, op.Columns...)
	})
}

func compileChangeComment(node *yaml.Node) ([]action.Action, error) {
	return compileTableOp(node, func(table *types.Table, op tableOp) (action.Action, error) {
		return action.BuildChangeComment(table, op.Comment)
	})
}

func compileTableOp(node *yaml.Node, build func(table *types.Table, op tableOp) (action.Action, error)) ([]action.Action, error) {
	var op tableOp
	if err := node.Decode(&op); err != nil {
		return nil, err
	}
	if err := requireTable(op.Table); err != nil {
		return nil, err
	}
	a, err := build(types.NewTable(op.Table), op)
	if err != nil {
		return nil, err
	}
	return []action.Action{a}, nil
}

func compileAddColumn(node *yaml.Node) ([]action.Action, error) {
	var op addColumnOp
	if err := node.Decode(&op); err != nil {
		return nil, err
	}
	if err := requireTable(op.Table); err != nil {
		return nil, err
	}
	column, err := op.column()
	if err != nil {
		return nil, err
	}
	a, err := action.BuildAddColumn(types.NewTable(op.Table), column)
	if err != nil {
		return nil, err
	}
	return []action.Action{a}, nil
}

func compileChangeColumn(node *yaml.Node) ([]action.Action, error) {
	var op changeColumnOp
	if err := node.Decode(&op); err != nil {
		return nil, err
	}
	if err := requireTable(op.Table); err != nil {
		return nil, err
	}
	column, err := op.Definition.column()
	if err != nil {
		return nil, err
	}
	a, err := action.BuildChangeColumn(types.NewTable(op.Table), op.Name, column)
	if err != nil {
		return nil, err
	}
	return []action.Action{a}, nil
}

func compileAddIndex(node *yaml.Node) ([]action.Action, error) {
	var op addIndexOp
	if err := node.Decode(&op); err != nil {
		return nil, err
	}
	if err := requireTable(op.Table); err != nil {
		return nil, err
	}
	a, err := op.build(types.NewTable(op.Table))
	if err != nil {
		return nil, err
	}
	return []action.Action{a}, nil
}

func compileAddForeignKey(node *yaml.Node) ([]action.Action, error) {
	var op addForeignKeyOp
	if err := node.Decode(&op); err != nil {
		return nil, err
	}
	if err := requireTable(op.Table); err != nil {
		return nil, err
	}
	a, err := op.build(types.NewTable(op.Table))
	if err != nil {
		return nil, err
	}
	return []action.Action{a}, nil
}

func (s *columnSpec) column() (types.Column, error) {
	c := types.Column{
		Name:      s.Name,
		Type:      types.ColumnType(strings.ToLower(s.Type)),
		RawType:   s.RawType,
		Null:      s.Null,
		Limit:     s.Limit,
		Precision: s.Precision,
		Scale:     s.Scale,
		Identity:  s.Identity,
		After:     s.After,
		Comment:   s.Comment,
	}
	if c.RawType == "" && !types.IsKnownColumnType(c.Type) {
		return c, fmt.Errorf("column %s: unknown type %q", s.Name, s.Type)
	}
	if s.DefaultExpression != "" {
		if present(&s.Default) {
			return c, fmt.Errorf("column %s: give either default or default_expression", s.Name)
		}
		c.Default = types.ExpressionDefault(s.DefaultExpression)
		return c, nil
	}
	d, err := parseDefault(&s.Default)
	if err != nil {
		return c, fmt.Errorf("column %s: %w", s.Name, err)
	}
	c.Default = d
	return c, nil
}

// parseDefault maps a YAML scalar onto a column default by its tag.
func parseDefault(n *yaml.Node) (types.Default, error) {
	if n.Kind == 0 {
		return types.Default{}, nil
	}
	if n.Kind != yaml.ScalarNode {
		return types.Default{}, fmt.Errorf("default must be a scalar")
	}
	switch n.ShortTag() {
	case "!!null":
		return types.NullDefault(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return types.Default{}, err
		}
		return types.BoolDefault(b), nil
	case "!!int", "!!float":
		return types.NumberDefault(n.Value), nil
	case "!!str":
		if strings.EqualFold(n.Value, "CURRENT_TIMESTAMP") {
			return types.CurrentTimestampDefault(), nil
		}
		return types.StringDefault(n.Value), nil
	default:
		return types.Default{}, fmt.Errorf("unsupported default %q", n.Value)
	}
}

func (s *indexSpec) build(table *types.Table) (*action.AddIndex, error) {
	index := types.Index{Name: s.Name, Type: types.IndexPlain}
	switch {
	case s.Unique:
		index.Type = types.IndexUnique
	case s.Type != "":
		index.Type = types.IndexType(strings.ToLower(s.Type))
	}
	switch index.Type {
	case types.IndexPlain, types.IndexUnique, types.IndexFulltext:
	default:
		return nil, fmt.Errorf("unknown index type %q", s.Type)
	}
	return action.BuildAddIndex(table, s.Columns, index)
}

func (s *foreignKeySpec) build(table *types.Table) (*action.AddForeignKey, error) {
	return action.BuildAddForeignKey(table, s.Columns, s.References, s.ReferencedColumns, types.ForeignKey{
		Constraint: s.Constraint,
		OnDelete:   s.OnDelete,
		OnUpdate:   s.OnUpdate,
	})
}
