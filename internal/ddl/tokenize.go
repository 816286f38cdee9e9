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
// Package ddl rewrites CREATE TABLE and CREATE INDEX statements for engines
// that can only change a table by rebuilding it. It works on tokens, so
// quoted identifiers ("x", `x`, [x]), string literals and comments are never
// mistaken for each other.
package ddl

import (
	"strings"
)

// TokenKind classifies a token.
type TokenKind int

const (
	Word TokenKind = iota
	Quoted
	String
	Number
	Punct
	Space
	Comment
)

// Token is a slice of the source text. Joining every token's Text gives the
// input back unchanged.
type Token struct {
	Kind TokenKind
	Text string
}

// IsIdent reports whether the token can name a table or column.
func (t Token) IsIdent() bool {
	return t.Kind == Word || t.Kind == Quoted
}

// Ident returns the unquoted identifier.
func (t Token) Ident() string {
	if t.Kind != Quoted || len(t.Text) < 2 {
		return t.Text
	}
	inner := t.Text[1 : len(t.Text)-1]
	switch t.Text[0] {
	case '"':
		return strings.ReplaceAll(inner, `""`, `"`)
	case '`':
		return strings.ReplaceAll(inner, "``", "`")
	default:
		return inner
	}
}

// Is reports whether the token is the keyword kw, ignoring case.
func (t Token) Is(kw string) bool {
	return t.Kind == Word && strings.EqualFold(t.Text, kw)
}

// IsPunct reports whether the token is the punctuation p.
func (t Token) IsPunct(p string) bool {
	return t.Kind == Punct && t.Text == p
}

// Matches reports whether the token is an identifier equal to name, ignoring
// case.
func (t Token) Matches(name string) bool {
	return t.IsIdent() && strings.EqualFold(t.Ident(), name)
}

// QuoteIdent quotes name with backticks.
func QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// Tokenize splits sql into tokens.
func Tokenize(sql string) []Token {
	var tokens []Token
	n := len(sql)
	for i := 0; i < n; {
		c := sql[i]
		j := i + 1
		kind := Punct
		switch {
		case isSpace(c):
			for j < n && isSpace(sql[j]) {
				j++
			}
			kind = Space
		case c == '-' && j < n && sql[j] == '-':
			for j < n && sql[j] != '\n' {
				j++
			}
			kind = Comment
		case c == '/' && j < n && sql[j] == '*':
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				j = n
			} else {
				j = i + 2 + end + 2
			}
			kind = Comment
		case c == '\'':
			j = scanQuoted(sql, i, '\'')
			kind = String
		case c == '"' || c == '`':
			j = scanQuoted(sql, i, c)
			kind = Quoted
		case c == '[':
			end := strings.IndexByte(sql[i:], ']')
			if end < 0 {
				j = n
			} else {
				j = i + end + 1
			}
			kind = Quoted
		case isDigit(c) || (c == '.' && j < n && isDigit(sql[j])):
			for j < n && (isWordChar(sql[j]) || sql[j] == '.' ||
				((sql[j] == '+' || sql[j] == '-') && (sql[j-1] == 'e' || sql[j-1] == 'E'))) {
				j++
			}
			kind = Number
		case isWordChar(c):
			for j < n && isWordChar(sql[j]) {
				j++
			}
			kind = Word
		}
		tokens = append(tokens, Token{Kind: kind, Text: sql[i:j]})
		i = j
	}
	return tokens
}

// scanQuoted returns the end of a quoted run starting at i, where a doubled
// quote is an escaped one.
func scanQuoted(sql string, i int, quote byte) int {
	j := i + 1
	for j < len(sql) {
		if sql[j] == quote {
			if j+1 < len(sql) && sql[j+1] == quote {
				j += 2
				continue
			}
			return j + 1
		}
		j++
	}
	return len(sql)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isWordChar(c byte) bool {
	return c == '_' || c == '$' || isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

// Join concatenates token texts.
func Join(tokens []Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.Text)
	}
	return b.String()
}

// Normalize rewrites every quoted identifier with backticks.
func Normalize(sql string) string {
	tokens := Tokenize(sql)
	for i, t := range tokens {
		if t.Kind == Quoted {
			tokens[i].Text = QuoteIdent(t.Ident())
		}
	}
	return Join(tokens)
}

// significant returns the positions of tokens that are neither whitespace
// nor comments.
func significant(tokens []Token) []int {
	var out []int
	for i, t := range tokens {
		if t.Kind != Space && t.Kind != Comment {
			out = append(out, i)
		}
	}
	return out
}

// trimSpace drops leading and trailing whitespace tokens.
func trimSpace(tokens []Token) []Token {
	start, end := 0, len(tokens)
	for start < end && tokens[start].Kind == Space {
		start++
	}
	for end > start && tokens[end-1].Kind == Space {
		end--
	}
	return tokens[start:end]
}

// closingParen returns the index of the ")" matching the "(" at open, or -1.
func closingParen(tokens []Token, open int) int {
	depth := 0
	for i := open; i < len(tokens); i++ {
		switch {
		case tokens[i].IsPunct("("):
			depth++
		case tokens[i].IsPunct(")"):
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// groupIdents returns the leading identifier of each comma separated element
// of the group opening at open.
func groupIdents(tokens []Token, open int) []string {
	closeAt := closingParen(tokens, open)
	if closeAt < 0 {
		return nil
	}
	var out []string
	expectName := true
	depth := 0
	for i := open + 1; i < closeAt; i++ {
		t := tokens[i]
		switch {
		case t.IsPunct("("):
			depth++
		case t.IsPunct(")"):
			depth--
		case t.IsPunct(",") && depth == 0:
			expectName = true
		case t.Kind == Space || t.Kind == Comment:
		default:
			if expectName && depth == 0 && t.IsIdent() {
				out = append(out, t.Ident())
			}
			expectName = false
		}
	}
	return out
}

// renameInGroup renames identifiers equal to oldName inside the group opening
// at open. Function names and collation names are left alone.
func renameInGroup(tokens []Token, open int, oldName, newName string) {
	closeAt := closingParen(tokens, open)
	if closeAt < 0 {
		return
	}
	prev := Token{}
	for i := open + 1; i < closeAt; i++ {
		t := tokens[i]
		if t.Kind == Space || t.Kind == Comment {
			continue
		}
		if t.Matches(oldName) && !prev.Is("COLLATE") && !nextIsPunct(tokens, i, "(") {
			tokens[i] = Token{Kind: Quoted, Text: QuoteIdent(newName)}
		}
		prev = t
	}
}

// groupMentions reports whether any identifier in the group at open equals
// name.
func groupMentions(tokens []Token, open int, name string) bool {
	closeAt := closingParen(tokens, open)
	for i := open + 1; i < closeAt; i++ {
		if tokens[i].Matches(name) && !nextIsPunct(tokens, i, "(") {
			return true
		}
	}
	return false
}

func nextIsPunct(tokens []Token, i int, p string) bool {
	for j := i + 1; j < len(tokens); j++ {
		if tokens[j].Kind == Space || tokens[j].Kind == Comment {
			continue
		}
		return tokens[j].IsPunct(p)
	}
	return false
}
