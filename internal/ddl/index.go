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

// indexGroup returns the tokens of a CREATE INDEX statement and the index of
// the "(" opening its column list, or -1.
func indexGroup(sql string) ([]Token, int) {
	tokens := Tokenize(sql)
	s := significant(tokens)
	for p, i := range s {
		if !tokens[i].Is("ON") {
			continue
		}
		// ON <table> ( ... )
		for _, j := range s[p+1:] {
			if tokens[j].IsPunct("(") {
				return tokens, j
			}
		}
	}
	return tokens, -1
}

// IndexColumns returns the indexed columns of a CREATE INDEX statement.
func IndexColumns(sql string) []string {
	tokens, open := indexGroup(sql)
	if open < 0 {
		return nil
	}
	return groupIdents(tokens, open)
}

// IndexMentions reports whether a CREATE INDEX statement uses column in its
// column list or its WHERE clause.
func IndexMentions(sql, column string) bool {
	tokens, open := indexGroup(sql)
	if open < 0 {
		return false
	}
	for i := open; i < len(tokens); i++ {
		if tokens[i].Matches(column) && !nextIsPunct(tokens, i, "(") {
			return true
		}
	}
	return false
}

// RenameIndexColumn rewrites a CREATE INDEX statement so references to
// oldName use newName. The index and table names are kept.
func RenameIndexColumn(sql, oldName, newName string) string {
	tokens, open := indexGroup(sql)
	if open < 0 {
		return sql
	}
	prev := Token{}
	for i := open; i < len(tokens); i++ {
		t := tokens[i]
		if t.Kind == Space || t.Kind == Comment {
			continue
		}
		if t.Matches(oldName) && !prev.Is("COLLATE") && !nextIsPunct(tokens, i, "(") {
			tokens[i] = Token{Kind: Quoted, Text: QuoteIdent(newName)}
		}
		prev = t
	}
	return Join(tokens)
}
