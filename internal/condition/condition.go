// Package condition parses and evaluates the textual filters accepted by
// Where and Having, such as `species in Adelie, Gentoo and mass > 3500`.
//
// A condition is a flat list of clauses joined by the connectives "and" and
// "or". Connectives are folded strictly left to right; there is no
// precedence and parentheses carry no meaning.
package condition

import (
	"regexp"
	"strings"
)

// Connective joins two clauses
type Connective int

const (
	And Connective = iota
	Or
)

func (c Connective) String() string {
	if c == Or {
		return "or"
	}
	return "and"
}

// Kind classifies a clause
type Kind int

const (
	// Opaque clauses carry no recognised operator and match every row
	Opaque Kind = iota
	Comparison
	Membership
)

// Comparison operators in the order they are searched for
var operators = []string{"==", "!=", ">=", "<=", ">", "<"}

// Clause is one `column <op> literal` or `column [not] in values` test
type Clause struct {
	Kind    Kind
	Column  string
	Op      string   // comparison operator
	Literal string   // comparison literal, quotes intact
	Values  []string // membership values, quotes intact
	Negate  bool     // not in
	Raw     string
}

// Condition is a parsed filter
type Condition struct {
	Clauses     []Clause
	Connectives []Connective // Connectives[i] joins Clauses[i] and Clauses[i+1]
}

var (
	connectivePattern = regexp.MustCompile(`\s(and|or)\s`)
	membershipPattern = regexp.MustCompile(`^(.+?)\s+(not\s+)?in\s+(.+)$`)
)

// Parse splits text into clauses. Parsing never fails: anything that is not
// a comparison or membership test becomes an Opaque clause.
func Parse(text string) *Condition {
	cond := &Condition{}
	if strings.TrimSpace(text) == "" {
		return cond
	}

	masked := mask(text)
	start := 0
	for _, m := range connectivePattern.FindAllStringSubmatchIndex(masked, -1) {
		cond.Clauses = append(cond.Clauses, parseClause(text[start:m[0]]))
		if text[m[2]:m[3]] == "or" {
			cond.Connectives = append(cond.Connectives, Or)
		} else {
			cond.Connectives = append(cond.Connectives, And)
		}
		start = m[1]
	}
	cond.Clauses = append(cond.Clauses, parseClause(text[start:]))
	return cond
}

// Empty reports whether the condition has no clauses
func (c *Condition) Empty() bool {
	return c == nil || len(c.Clauses) == 0
}

// Columns returns the distinct column names referenced, in order of appearance
func (c *Condition) Columns() []string {
	if c == nil {
		return nil
	}
	seen := make(map[string]bool)
	var names []string
	for _, cl := range c.Clauses {
		if cl.Kind == Opaque || seen[cl.Column] {
			continue
		}
		seen[cl.Column] = true
		names = append(names, cl.Column)
	}
	return names
}

func (c *Condition) String() string {
	if c.Empty() {
		return ""
	}
	var sb strings.Builder
	for i, cl := range c.Clauses {
		if i > 0 {
			sb.WriteString(" " + c.Connectives[i-1].String() + " ")
		}
		sb.WriteString(cl.Raw)
	}
	return sb.String()
}

func parseClause(raw string) Clause {
	raw = strings.TrimSpace(raw)
	cl := Clause{Raw: raw}
	masked := mask(raw)

	if m := membershipPattern.FindStringSubmatchIndex(masked); m != nil {
		column := raw[m[2]:m[3]]
		if !strings.ContainsAny(mask(column), "=!<>") {
			cl.Kind = Membership
			cl.Column = columnName(column)
			cl.Negate = m[4] >= 0
			cl.Values = splitValues(raw[m[6]:m[7]])
			return cl
		}
	}

	for _, op := range operators {
		if idx := strings.Index(masked, op); idx >= 0 {
			cl.Kind = Comparison
			cl.Op = op
			cl.Column = columnName(raw[:idx])
			cl.Literal = strings.TrimSpace(raw[idx+len(op):])
			return cl
		}
	}
	return cl
}

// splitValues splits a membership list on commas outside quotes. One pair of
// enclosing brackets or parentheses is dropped.
func splitValues(list string) []string {
	list = strings.TrimSpace(list)
	if n := len(list); n >= 2 &&
		((list[0] == '[' && list[n-1] == ']') || (list[0] == '(' && list[n-1] == ')')) {
		list = list[1 : n-1]
	}

	masked := mask(list)
	var values []string
	start := 0
	for i := 0; i <= len(list); i++ {
		if i < len(list) && masked[i] != ',' {
			continue
		}
		if v := strings.TrimSpace(list[start:i]); v != "" {
			values = append(values, v)
		}
		start = i + 1
	}
	return values
}

func columnName(s string) string {
	s = strings.TrimSpace(s)
	if n := len(s); n >= 2 && s[0] == '`' && s[n-1] == '`' {
		return s[1 : n-1]
	}
	return s
}

// mask blanks out quoted and backticked text so that operators and
// connectives inside literals are not matched. The result has the same
// length as s.
func mask(s string) string {
	b := []byte(s)
	var quote byte
	for i := 0; i < len(b); i++ {
		c := b[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				b[i] = '_'
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		}
	}
	return string(b)
}

// Unquote strips one pair of matching single or double quotes
func Unquote(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if n := len(s); n >= 2 && (s[0] == '\'' || s[0] == '"') && s[n-1] == s[0] {
		return s[1 : n-1], true
	}
	return s, false
}
