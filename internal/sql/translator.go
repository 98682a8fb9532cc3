package sql

import (
	"fmt"
	"strings"
)

// Translate rewrites a SQL predicate such as
//
//	species IN ('Adelie', 'Gentoo') AND mass >= 3500
//
// into condition syntax:
//
//	species in ('Adelie', 'Gentoo') and mass >= 3500
//
// Conditions fold left to right, so parentheses for grouping are rejected
// rather than silently ignored.
func Translate(predicate string) (string, error) {
	tokens, err := NewLexer(predicate).Tokens()
	if err != nil {
		return "", err
	}
	return translate(tokens[:len(tokens)-1])
}

func translate(tokens []Token) (string, error) {
	var parts []string
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok.Type {
		case IDENT:
			if i+1 < len(tokens) && tokens[i+1].Type == LPAREN {
				agg, n, err := translateAggregate(tokens[i:])
				if err != nil {
					return "", err
				}
				parts = append(parts, agg)
				i += n - 1
				continue
			}
			name := tok.Literal
			for i+2 < len(tokens) && tokens[i+1].Type == DOT && tokens[i+2].Type == IDENT {
				name = tokens[i+2].Literal
				i += 2
			}
			parts = append(parts, quoteIdent(name))
		case NUMBER, STRING:
			parts = append(parts, tok.Literal)
		case MINUS:
			if i+1 >= len(tokens) || tokens[i+1].Type != NUMBER || (i > 0 && !isComparison(tokens[i-1].Type)) {
				return "", fmt.Errorf("arithmetic is not supported in conditions: %s", tok)
			}
			parts = append(parts, "-"+tokens[i+1].Literal)
			i++
		case EQ:
			parts = append(parts, "==")
		case NE:
			parts = append(parts, "!=")
		case LT, LE, GT, GE:
			parts = append(parts, tok.Literal)
		case AND:
			parts = append(parts, "and")
		case OR:
			parts = append(parts, "or")
		case NOT:
			if i+1 >= len(tokens) || tokens[i+1].Type != IN {
				return "", fmt.Errorf("NOT is only supported as NOT IN: %s", tok)
			}
			list, n, err := translateList(tokens[i+2:])
			if err != nil {
				return "", err
			}
			parts = append(parts, "not in", list)
			i += 1 + n
		case IN:
			list, n, err := translateList(tokens[i+1:])
			if err != nil {
				return "", err
			}
			parts = append(parts, "in", list)
			i += n
		case LPAREN, RPAREN:
			return "", fmt.Errorf("parentheses are not supported in conditions, clauses combine left to right: %s", tok)
		case IS, NULL:
			return "", fmt.Errorf("null tests are not supported in conditions: %s", tok)
		default:
			return "", fmt.Errorf("unexpected %s in condition", tok)
		}
	}
	return strings.Join(parts, " "), nil
}

// translateAggregate rewrites fn(arg) and reports how many tokens it used
func translateAggregate(tokens []Token) (string, int, error) {
	p := &Parser{tokens: append(append([]Token(nil), tokens...), Token{Type: EOF})}
	agg, err := p.parseAggregate()
	if err != nil {
		return "", 0, err
	}
	return agg, p.pos, nil
}

// translateList rewrites a parenthesized value list and reports how many
// tokens it used
func translateList(tokens []Token) (string, int, error) {
	if len(tokens) == 0 || tokens[0].Type != LPAREN {
		return "", 0, fmt.Errorf("IN needs a parenthesized value list")
	}
	var values []string
	for i := 1; i < len(tokens); i++ {
		switch tok := tokens[i]; tok.Type {
		case NUMBER, STRING, IDENT:
			values = append(values, tok.Literal)
		case MINUS:
			if i+1 >= len(tokens) || tokens[i+1].Type != NUMBER {
				return "", 0, fmt.Errorf("unexpected %s in value list", tok)
			}
			values = append(values, "-"+tokens[i+1].Literal)
			i++
		case COMMA:
		case RPAREN:
			if len(values) == 0 {
				return "", 0, fmt.Errorf("empty IN list")
			}
			return "(" + strings.Join(values, ", ") + ")", i + 1, nil
		default:
			return "", 0, fmt.Errorf("unexpected %s in value list", tok)
		}
	}
	return "", 0, fmt.Errorf("unterminated IN list")
}

func quoteIdent(name string) string {
	for i := 0; i < len(name); i++ {
		if !isLetter(name[i]) && !isDigit(name[i]) {
			return "`" + name + "`"
		}
	}
	return name
}

func isComparison(t TokenType) bool {
	switch t {
	case EQ, NE, LT, LE, GT, GE:
		return true
	}
	return false
}
