package search

import (
	"strings"
	"unicode"
)

type conditionKind int

const (
	kindNone conditionKind = iota
	kindMatch
	kindEq
	kindIn
	kindAnd
)

// Condition is a composable SQL predicate. The zero value renders nothing.
type Condition struct {
	kind   conditionKind
	target string
	args   []any
	parts  []Condition
}

// Match restricts rows of an FTS5 table to those matching expr.
func Match(table, expr string) Condition {
	return Condition{kind: kindMatch, target: table, args: []any{expr}}
}

// Eq compares column with value.
func Eq(column string, value any) Condition {
	return Condition{kind: kindEq, target: column, args: []any{value}}
}

// In restricts column to values. An empty value list matches nothing.
func In[T any](column string, values []T) Condition {
	args := make([]any, len(values))
	for idx, value := range values {
		args[idx] = value
	}
	return Condition{kind: kindIn, target: column, args: args}
}

// And joins conditions; zero-valued parts are skipped.
func And(conditions ...Condition) Condition {
	parts := make([]Condition, 0, len(conditions))
	for _, condition := range conditions {
		if condition.IsZero() {
			continue
		}
		parts = append(parts, condition)
	}
	if len(parts) == 0 {
		return Condition{}
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return Condition{kind: kindAnd, parts: parts}
}

// IsZero reports whether the condition renders nothing.
func (c Condition) IsZero() bool {
	return c.kind == kindNone
}

// SQL renders the predicate with ? placeholders and its positional arguments.
func (c Condition) SQL() (string, []any) {
	switch c.kind {
	case kindMatch:
		return c.target + " MATCH ?", c.args
	case kindEq:
		return c.target + " = ?", c.args
	case kindIn:
		if len(c.args) == 0 {
			return "1 = 0", nil
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(c.args)), ", ")
		return c.target + " IN (" + placeholders + ")", c.args
	case kindAnd:
		clauses := make([]string, 0, len(c.parts))
		var args []any
		for _, part := range c.parts {
			clause, partArgs := part.SQL()
			clauses = append(clauses, clause)
			args = append(args, partArgs...)
		}
		return strings.Join(clauses, " AND "), args
	default:
		return "", nil
	}
}

// Where renders the condition as a WHERE clause, or an empty string for the zero value.
func (c Condition) Where() (string, []any) {
	clause, args := c.SQL()
	if clause == "" {
		return "", nil
	}
	return "WHERE " + clause, args
}

// MatchExpression turns free text into an FTS5 query where every whitespace-separated token
// is a quoted prefix match and tokens are OR-ed together. Tokens without a letter or digit
// are dropped; ok is false when nothing usable remains.
func MatchExpression(term string) (string, bool) {
	tokens := strings.Fields(term)
	quoted := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if !strings.ContainsFunc(token, isWordRune) {
			continue
		}
		quoted = append(quoted, `"`+strings.ReplaceAll(token, `"`, `""`)+`"*`)
	}
	if len(quoted) == 0 {
		return "", false
	}
	return strings.Join(quoted, " OR "), true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
