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
package ddl

import (
	"fmt"
	"strings"
)

// Constraint types of table level definitions.
const (
	ConstraintPrimaryKey = "PRIMARY KEY"
	ConstraintUnique     = "UNIQUE"
	ConstraintCheck      = "CHECK"
	ConstraintForeignKey = "FOREIGN KEY"
)

// Definition is one top level entry between the parentheses of a CREATE
// TABLE: a column or a table constraint.
type Definition struct {
	tokens []Token
}

// ParseDefinition tokenizes a single column or constraint definition.
func ParseDefinition(def string) *Definition {
	return &Definition{tokens: trimSpace(Tokenize(def))}
}

func (d *Definition) String() string {
	return Join(trimSpace(d.tokens))
}

// sig returns the significant tokens' positions.
func (d *Definition) sig() []int {
	return significant(d.tokens)
}

// IsConstraint reports whether d is a table constraint rather than a column.
func (d *Definition) IsConstraint() bool {
	s := d.sig()
	if len(s) == 0 {
		return false
	}
	first := d.tokens[s[0]]
	for _, kw := range []string{"CONSTRAINT", "PRIMARY", "UNIQUE", "CHECK", "FOREIGN"} {
		if first.Is(kw) {
			return true
		}
	}
	return false
}

// Name returns the column name for a column definition, or the constraint
// name (possibly "") for a table constraint.
func (d *Definition) Name() string {
	s := d.sig()
	if len(s) == 0 {
		return ""
	}
	if !d.IsConstraint() {
		return d.tokens[s[0]].Ident()
	}
	if d.tokens[s[0]].Is("CONSTRAINT") && len(s) > 1 {
		return d.tokens[s[1]].Ident()
	}
	return ""
}

// constraintStart returns the sig position after an optional CONSTRAINT name.
func (d *Definition) constraintStart() int {
	s := d.sig()
	if len(s) > 1 && d.tokens[s[0]].Is("CONSTRAINT") {
		return 2
	}
	return 0
}

// ConstraintType returns the kind of a table constraint, or "".
func (d *Definition) ConstraintType() string {
	if !d.IsConstraint() {
		return ""
	}
	s := d.sig()
	p := d.constraintStart()
	if p >= len(s) {
		return ""
	}
	switch t := d.tokens[s[p]]; {
	case t.Is("PRIMARY"):
		return ConstraintPrimaryKey
	case t.Is("UNIQUE"):
		return ConstraintUnique
	case t.Is("CHECK"):
		return ConstraintCheck
	case t.Is("FOREIGN"):
		return ConstraintForeignKey
	}
	return ""
}

// firstGroup returns the token index of the first "(" at or after sig
// position from, or -1.
func (d *Definition) firstGroup(from int) int {
	s := d.sig()
	for _, i := range s[min(from, len(s)):] {
		if d.tokens[i].IsPunct("(") {
			return i
		}
	}
	return -1
}

// KeyColumns returns the columns of a PRIMARY KEY, UNIQUE or FOREIGN KEY
// table constraint.
func (d *Definition) KeyColumns() []string {
	switch d.ConstraintType() {
	case ConstraintPrimaryKey, ConstraintUnique, ConstraintForeignKey:
		open := d.firstGroup(d.constraintStart())
		if open < 0 {
			return nil
		}
		return groupIdents(d.tokens, open)
	}
	return nil
}

// references returns the table named by the first REFERENCES clause, the
// token index of its column group (-1 when absent) and the sig position of
// the REFERENCES keyword (-1 when there is none).
func (d *Definition) references() (table string, group int, at int) {
	s := d.sig()
	for p, i := range s {
		if !d.tokens[i].Is("REFERENCES") || p+1 >= len(s) {
			continue
		}
		table = d.tokens[s[p+1]].Ident()
		group = -1
		if p+2 < len(s) && d.tokens[s[p+2]].IsPunct("(") {
			group = s[p+2]
		}
		return table, group, p
	}
	return "", -1, -1
}

// ReferencedTable returns the table a foreign key points at, or "".
func (d *Definition) ReferencedTable() string {
	table, _, _ := d.references()
	return table
}

// hasInlinePrimaryKey reports whether a column definition carries PRIMARY
// KEY outside any parentheses.
func (d *Definition) hasInlinePrimaryKey() bool {
	return d.keywordPair("PRIMARY", "KEY") >= 0
}

// keywordPair returns the sig position of first followed by second at
// parenthesis depth 0, or -1.
func (d *Definition) keywordPair(first, second string) int {
	s := d.sig()
	depth := 0
	for p, i := range s {
		t := d.tokens[i]
		switch {
		case t.IsPunct("("):
			depth++
		case t.IsPunct(")"):
			depth--
		case depth == 0 && t.Is(first) && p+1 < len(s) && d.tokens[s[p+1]].Is(second):
			return p
		}
	}
	return -1
}

var columnConstraintWords = []string{
	"CONSTRAINT", "PRIMARY", "NOT", "NULL", "UNIQUE", "CHECK", "DEFAULT",
	"COLLATE", "REFERENCES", "GENERATED", "AS",
}

// DeclaredType returns the type of a column definition as written.
func (d *Definition) DeclaredType() string {
	if d.IsConstraint() {
		return ""
	}
	s := d.sig()
	var b strings.Builder
	depth := 0
	prev := Token{}
outer:
	for _, i := range s[1:] {
		t := d.tokens[i]
		if depth == 0 {
			for _, kw := range columnConstraintWords {
				if t.Is(kw) {
					break outer
				}
			}
		}
		switch {
		case t.IsPunct("("):
			depth++
		case t.IsPunct(")"):
			depth--
		}
		if b.Len() > 0 && !prev.IsPunct("(") && !t.IsPunct("(") && !t.IsPunct(")") && !t.IsPunct(",") {
			b.WriteByte(' ')
		}
		b.WriteString(t.Text)
		prev = t
	}
	return b.String()
}

// appendClause adds clause after the last significant token, ahead of any
// trailing comment.
func (d *Definition) appendClause(clause string) {
	s := d.sig()
	at := len(d.tokens)
	if len(s) > 0 {
		at = s[len(s)-1] + 1
	}
	tail := append([]Token(nil), d.tokens[at:]...)
	d.tokens = append(append(d.tokens[:at:at], Tokenize(clause)...), tail...)
}

// removeSig deletes the tokens spanning sig positions [from, to).
func (d *Definition) removeSig(from, to int) {
	s := d.sig()
	start := s[from]
	end := len(d.tokens)
	if to < len(s) {
		end = s[to]
	}
	d.tokens = append(d.tokens[:start:start], d.tokens[end:]...)
}

// stripInlinePrimaryKey removes a column level PRIMARY KEY clause together
// with its ordering, conflict clause and AUTOINCREMENT.
func (d *Definition) stripInlinePrimaryKey() bool {
	p := d.keywordPair("PRIMARY", "KEY")
	if p < 0 {
		return false
	}
	s := d.sig()
	from := p
	if p >= 2 && d.tokens[s[p-2]].Is("CONSTRAINT") {
		from = p - 2
	}
	to := p + 2
	if to < len(s) && (d.tokens[s[to]].Is("ASC") || d.tokens[s[to]].Is("DESC")) {
		to++
	}
	if to+2 < len(s) && d.tokens[s[to]].Is("ON") && d.tokens[s[to+1]].Is("CONFLICT") {
		to += 3
	}
	if to < len(s) && d.tokens[s[to]].Is("AUTOINCREMENT") {
		to++
	}
	d.removeSig(from, to)
	return true
}

// stripInlineReferences removes a column level REFERENCES clause.
func (d *Definition) stripInlineReferences() bool {
	_, _, p := d.references()
	if p < 0 {
		return false
	}
	s := d.sig()
	from := p
	if p >= 2 && d.tokens[s[p-2]].Is("CONSTRAINT") {
		from = p - 2
	}
	to := p + 2
	if to < len(s) && d.tokens[s[to]].IsPunct("(") {
		closeAt := closingParen(d.tokens, s[to])
		for to < len(s) && s[to] <= closeAt {
			to++
		}
	}
	for to < len(s) {
		t := d.tokens[s[to]]
		switch {
		case t.Is("ON") && to+1 < len(s):
			to += 2
			if to < len(s) && (d.tokens[s[to]].Is("SET") || d.tokens[s[to]].Is("NO")) {
				to++
			}
			to++
		case t.Is("MATCH"):
			to += 2
		case t.Is("NOT") && to+1 < len(s) && d.tokens[s[to+1]].Is("DEFERRABLE"):
			to += 2
		case t.Is("DEFERRABLE"):
			to++
		case t.Is("INITIALLY"):
			to += 2
		default:
			d.removeSig(from, min(to, len(s)))
			return true
		}
	}
	d.removeSig(from, len(s))
	return true
}

// rename renames column references to oldName. table is the owning table,
// used to recognise self referencing foreign keys.
func (d *Definition) rename(table, oldName, newName string) {
	s := d.sig()
	if len(s) == 0 {
		return
	}
	if !d.IsConstraint() && d.tokens[s[0]].Matches(oldName) {
		d.tokens[s[0]] = Token{Kind: Quoted, Text: QuoteIdent(newName)}
	}
	if d.IsConstraint() {
		switch d.ConstraintType() {
		case ConstraintPrimaryKey, ConstraintUnique, ConstraintForeignKey:
			if open := d.firstGroup(d.constraintStart()); open >= 0 {
				renameInGroup(d.tokens, open, oldName, newName)
			}
		}
	}
	for p, i := range s {
		t := d.tokens[i]
		if (t.Is("CHECK") || t.Is("AS")) && p+1 < len(s) && d.tokens[s[p+1]].IsPunct("(") {
			renameInGroup(d.tokens, s[p+1], oldName, newName)
		}
	}
	if ref, group, _ := d.references(); group >= 0 && strings.EqualFold(ref, table) {
		renameInGroup(d.tokens, group, oldName, newName)
	}
}

// checkMentions reports whether a CHECK expression of d uses column.
func (d *Definition) checkMentions(column string) bool {
	s := d.sig()
	for p, i := range s {
		if d.tokens[i].Is("CHECK") && p+1 < len(s) && d.tokens[s[p+1]].IsPunct("(") {
			if groupMentions(d.tokens, s[p+1], column) {
				return true
			}
		}
	}
	return false
}

// CreateTable is a parsed CREATE TABLE statement.
type CreateTable struct {
	prefix      string
	Definitions []*Definition
	suffix      string
}

// ParseCreateTable splits a CREATE TABLE statement into its definitions.
func ParseCreateTable(sql string) (*CreateTable, error) {
	tokens := Tokenize(sql)
	open := -1
	for i, t := range tokens {
		if t.IsPunct("(") {
			open = i
			break
		}
	}
	if open < 0 {
		return nil, fmt.Errorf("no column list in %q", sql)
	}
	closeAt := closingParen(tokens, open)
	if closeAt < 0 {
		return nil, fmt.Errorf("unbalanced parentheses in %q", sql)
	}

	ct := &CreateTable{
		prefix: Join(tokens[:open]),
		suffix: Join(tokens[closeAt+1:]),
	}
	depth := 0
	start := open + 1
	for i := open; i <= closeAt; i++ {
		t := tokens[i]
		switch {
		case t.IsPunct("("):
			depth++
		case t.IsPunct(")"):
			depth--
			if depth == 0 {
				ct.addRaw(tokens[start:i])
			}
		case t.IsPunct(",") && depth == 1:
			ct.addRaw(tokens[start:i])
			start = i + 1
		}
	}
	return ct, nil
}

func (c *CreateTable) addRaw(tokens []Token) {
	trimmed := trimSpace(tokens)
	if len(significant(trimmed)) == 0 {
		return
	}
	c.Definitions = append(c.Definitions, &Definition{tokens: append([]Token(nil), trimmed...)})
}

// TableName returns the table name from the statement header.
func (c *CreateTable) TableName() string {
	tokens := Tokenize(c.prefix)
	for i := len(tokens) - 1; i >= 0; i-- {
		if tokens[i].IsIdent() {
			return tokens[i].Ident()
		}
	}
	return ""
}

// SetTableName rewrites the header to create name.
func (c *CreateTable) SetTableName(name string) {
	c.prefix = "CREATE TABLE " + QuoteIdent(name) + " "
}

func (c *CreateTable) String() string {
	defs := make([]string, len(c.Definitions))
	for i, d := range c.Definitions {
		defs[i] = d.String()
	}
	return strings.TrimRight(c.prefix, " \t\r\n") + " (\n\t" + strings.Join(defs, ",\n\t") + "\n)" + c.suffix
}

// ColumnNames lists the column definitions in order.
func (c *CreateTable) ColumnNames() []string {
	var names []string
	for _, d := range c.Definitions {
		if !d.IsConstraint() {
			names = append(names, d.Name())
		}
	}
	return names
}

// Column returns the definition of column name, or nil.
func (c *CreateTable) Column(name string) *Definition {
	if i := c.columnIndex(name); i >= 0 {
		return c.Definitions[i]
	}
	return nil
}

func (c *CreateTable) columnIndex(name string) int {
	for i, d := range c.Definitions {
		if !d.IsConstraint() && strings.EqualFold(d.Name(), name) {
			return i
		}
	}
	return -1
}

func (c *CreateTable) lastColumnIndex() int {
	last := -1
	for i, d := range c.Definitions {
		if !d.IsConstraint() {
			last = i
		}
	}
	return last
}

// InsertColumn adds a column definition. An empty after places it behind the
// last column, "FIRST" places it first.
func (c *CreateTable) InsertColumn(def string, after string) error {
	d := ParseDefinition(def)
	if c.columnIndex(d.Name()) >= 0 {
		return fmt.Errorf("column %s already exists", d.Name())
	}
	pos := c.lastColumnIndex() + 1
	switch {
	case after == "":
	case strings.EqualFold(after, "FIRST"):
		pos = 0
	default:
		i := c.columnIndex(after)
		if i < 0 {
			return fmt.Errorf("column %s does not exist", after)
		}
		pos = i + 1
	}
	c.Definitions = append(c.Definitions[:pos], append([]*Definition{d}, c.Definitions[pos:]...)...)
	return nil
}

// ReplaceColumn swaps the definition of name for def. When def carries a new
// name, constraint references follow it.
func (c *CreateTable) ReplaceColumn(name, def string) error {
	i := c.columnIndex(name)
	if i < 0 {
		return fmt.Errorf("column %s does not exist", name)
	}
	d := ParseDefinition(def)
	if newName := d.Name(); !strings.EqualFold(newName, name) {
		if c.columnIndex(newName) >= 0 {
			return fmt.Errorf("column %s already exists", newName)
		}
		c.renameReferences(name, newName)
	}
	c.Definitions[i] = d
	return nil
}

// RenameColumn renames a column and every constraint reference to it.
func (c *CreateTable) RenameColumn(oldName, newName string) error {
	if c.columnIndex(oldName) < 0 {
		return fmt.Errorf("column %s does not exist", oldName)
	}
	if !strings.EqualFold(oldName, newName) && c.columnIndex(newName) >= 0 {
		return fmt.Errorf("column %s already exists", newName)
	}
	c.renameReferences(oldName, newName)
	return nil
}

func (c *CreateTable) renameReferences(oldName, newName string) {
	table := c.TableName()
	for _, d := range c.Definitions {
		d.rename(table, oldName, newName)
	}
}

// DropColumn removes a column and the table constraints anchored only on it.
// A multi column key containing it is an error.
func (c *CreateTable) DropColumn(name string) error {
	i := c.columnIndex(name)
	if i < 0 {
		return fmt.Errorf("column %s does not exist", name)
	}
	var kept []*Definition
	for j, d := range c.Definitions {
		if j == i {
			continue
		}
		if d.IsConstraint() {
			if cols := d.KeyColumns(); containsFold(cols, name) {
				if len(cols) > 1 {
					return fmt.Errorf("column %s is part of the %s on (%s)", name, d.ConstraintType(), strings.Join(cols, ", "))
				}
				continue
			}
			if d.ConstraintType() == ConstraintCheck && d.checkMentions(name) {
				continue
			}
		}
		kept = append(kept, d)
	}
	c.Definitions = kept
	return nil
}

// PrimaryKey returns the primary key columns, from a table constraint or a
// column level PRIMARY KEY.
func (c *CreateTable) PrimaryKey() []string {
	for _, d := range c.Definitions {
		if d.ConstraintType() == ConstraintPrimaryKey {
			return d.KeyColumns()
		}
	}
	for _, d := range c.Definitions {
		if !d.IsConstraint() && d.hasInlinePrimaryKey() {
			return []string{d.Name()}
		}
	}
	return nil
}

// StripPrimaryKey removes every primary key clause. It reports whether one
// was found.
func (c *CreateTable) StripPrimaryKey() bool {
	found := false
	var kept []*Definition
	for _, d := range c.Definitions {
		if d.ConstraintType() == ConstraintPrimaryKey {
			found = true
			continue
		}
		if !d.IsConstraint() && d.stripInlinePrimaryKey() {
			found = true
		}
		kept = append(kept, d)
	}
	c.Definitions = kept
	return found
}

// SetColumnPrimaryKey makes column the primary key with a column level
// clause. Bare NULL constraints on it are dropped.
func (c *CreateTable) SetColumnPrimaryKey(column string, autoIncrement bool) error {
	d := c.Column(column)
	if d == nil {
		return fmt.Errorf("column %s does not exist", column)
	}
	s := d.sig()
	for p := len(s) - 1; p > 0; p-- {
		t := d.tokens[s[p]]
		if t.Is("NULL") && !d.tokens[s[p-1]].Is("NOT") && !d.tokens[s[p-1]].Is("DEFAULT") {
			d.removeSig(p, p+1)
			s = d.sig()
		}
	}
	clause := " PRIMARY KEY"
	if d.keywordPair("NOT", "NULL") < 0 {
		clause = " NOT NULL" + clause
	}
	if autoIncrement {
		clause += " AUTOINCREMENT"
	}
	d.appendClause(clause)
	return nil
}

// AddConstraint appends a table constraint.
func (c *CreateTable) AddConstraint(def string) {
	c.Definitions = append(c.Definitions, ParseDefinition(def))
}

// DropForeignKey removes foreign keys on exactly columns, both table level
// and column level ones. It returns how many were removed.
func (c *CreateTable) DropForeignKey(columns []string) int {
	removed := 0
	var kept []*Definition
	for _, d := range c.Definitions {
		if d.ConstraintType() == ConstraintForeignKey && equalFold(d.KeyColumns(), columns) {
			removed++
			continue
		}
		if len(columns) == 1 && !d.IsConstraint() && strings.EqualFold(d.Name(), columns[0]) && d.stripInlineReferences() {
			removed++
		}
		kept = append(kept, d)
	}
	c.Definitions = kept
	return removed
}

// ForeignKeys returns the column lists of every foreign key.
func (c *CreateTable) ForeignKeys() [][]string {
	var out [][]string
	for _, d := range c.Definitions {
		if d.ConstraintType() == ConstraintForeignKey {
			out = append(out, d.KeyColumns())
		} else if !d.IsConstraint() && d.ReferencedTable() != "" {
			out = append(out, []string{d.Name()})
		}
	}
	return out
}

func containsFold(list []string, name string) bool {
	for _, v := range list {
		if strings.EqualFold(v, name) {
			return true
		}
	}
	return false
}

func equalFold(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}
