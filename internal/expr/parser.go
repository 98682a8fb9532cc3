package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokQuotedIdent
	tokOperator
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// tokenize splits input into tokens. Identifiers may contain letters,
// digits, underscores and dots; names with other characters go in backticks.
func tokenize(input string) ([]token, error) {
	var tokens []token
	runes := []rune(input)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			tokens = append(tokens, token{tokLParen, "(", i})
			i++
		case r == ')':
			tokens = append(tokens, token{tokRParen, ")", i})
			i++
		case r == ',':
			tokens = append(tokens, token{tokComma, ",", i})
			i++
		case r == '\'' || r == '"' || r == '`':
			end := i + 1
			for end < len(runes) && runes[end] != r {
				end++
			}
			if end == len(runes) {
				return nil, fmt.Errorf("unterminated %c at position %d", r, i)
			}
			kind := tokString
			if r == '`' {
				kind = tokQuotedIdent
			}
			tokens = append(tokens, token{kind, string(runes[i+1 : end]), i})
			i = end + 1
		case unicode.IsDigit(r) || (r == '.' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			end := i
			for end < len(runes) && (unicode.IsDigit(runes[end]) || runes[end] == '.' ||
				runes[end] == 'e' || runes[end] == 'E' ||
				((runes[end] == '+' || runes[end] == '-') && (runes[end-1] == 'e' || runes[end-1] == 'E'))) {
				end++
			}
			tokens = append(tokens, token{tokNumber, string(runes[i:end]), i})
			i = end
		case unicode.IsLetter(r) || r == '_':
			end := i
			for end < len(runes) && (unicode.IsLetter(runes[end]) || unicode.IsDigit(runes[end]) ||
				runes[end] == '_' || runes[end] == '.') {
				end++
			}
			tokens = append(tokens, token{tokIdent, string(runes[i:end]), i})
			i = end
		default:
			op := string(r)
			if i+1 < len(runes) {
				if two := string(runes[i : i+2]); two == "==" || two == "!=" || two == ">=" || two == "<=" {
					op = two
				}
			}
			if !strings.Contains("+-*/%<>", op) && len(op) == 1 {
				return nil, fmt.Errorf("unexpected character %q at position %d", r, i)
			}
			tokens = append(tokens, token{tokOperator, op, i})
			i += len([]rune(op))
		}
	}
	return append(tokens, token{kind: tokEOF, pos: len(runes)}), nil
}

// Parse parses an expression string.
//
//	expr       := or
//	or         := and ("or" and)*
//	and        := not ("and" not)*
//	not        := "not" not | comparison
//	comparison := additive (("==" | "!=" | ">=" | "<=" | ">" | "<") additive)?
//	additive   := term (("+" | "-") term)*
//	term       := unary (("*" | "/" | "%") unary)*
//	unary      := "-" unary | primary
//	primary    := number | string | true | false | null | column
//	            | name "(" [expr ("," expr)*] ")" | "(" expr ")"
func Parse(input string) (Expr, error) {
	tokens, err := tokenize(input)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	if p.peek().kind == tokEOF {
		return nil, fmt.Errorf("empty expression")
	}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("unexpected %q at position %d", t.text, t.pos)
	}
	return e, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) keyword(word string) bool {
	t := p.peek()
	if t.kind == tokIdent && strings.EqualFold(t.text, word) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) operator(ops ...string) (string, bool) {
	t := p.peek()
	if t.kind != tokOperator {
		return "", false
	}
	for _, op := range ops {
		if t.text == op {
			p.pos++
			return op, true
		}
	}
	return "", false
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.keyword("or") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Binary(left, OpOr, right)
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.keyword("and") {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = Binary(left, OpAnd, right)
	}
	return left, nil
}

func (p *parser) parseNot() (Expr, error) {
	if p.keyword("not") {
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return Unary(UnaryNot, operand), nil
	}
	return p.parseComparison()
}

var comparisonOps = map[string]BinaryOp{
	"==": OpEq, "!=": OpNe, ">=": OpGe, "<=": OpLe, ">": OpGt, "<": OpLt,
}

func (p *parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if op, ok := p.operator("==", "!=", ">=", "<=", ">", "<"); ok {
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return Binary(left, comparisonOps[op], right), nil
	}
	return left, nil
}

func (p *parser) parseAdditive() (Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.operator("+", "-")
		if !ok {
			return left, nil
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		if op == "+" {
			left = Binary(left, OpAdd, right)
		} else {
			left = Binary(left, OpSub, right)
		}
	}
}

func (p *parser) parseTerm() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.operator("*", "/", "%")
		if !ok {
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		switch op {
		case "*":
			left = Binary(left, OpMul, right)
		case "/":
			left = Binary(left, OpDiv, right)
		default:
			left = Binary(left, OpMod, right)
		}
	}
}

func (p *parser) parseUnary() (Expr, error) {
	if _, ok := p.operator("-"); ok {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if lit, ok := operand.(*LiteralExpr); ok {
			switch v := lit.value.(type) {
			case int64:
				return Lit(-v), nil
			case float64:
				return Lit(-v), nil
			}
		}
		return Unary(UnaryNeg, operand), nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		if !strings.ContainsAny(t.text, ".eE") {
			if v, err := strconv.ParseInt(t.text, 10, 64); err == nil {
				return Lit(v), nil
			}
		}
		v, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q at position %d", t.text, t.pos)
		}
		return Lit(v), nil
	case tokString:
		return Lit(t.text), nil
	case tokQuotedIdent:
		return Col(t.text), nil
	case tokIdent:
		switch strings.ToLower(t.text) {
		case "true":
			return Lit(true), nil
		case "false":
			return Lit(false), nil
		case "null", "none":
			return Lit(nil), nil
		}
		if p.peek().kind == tokLParen {
			p.next()
			return p.parseCall(t.text)
		}
		return Col(t.text), nil
	case tokLParen:
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.next().kind != tokRParen {
			return nil, fmt.Errorf("missing ) for ( at position %d", t.pos)
		}
		return e, nil
	case tokEOF:
		return nil, fmt.Errorf("unexpected end of expression")
	}
	return nil, fmt.Errorf("unexpected %q at position %d", t.text, t.pos)
}

func (p *parser) parseCall(name string) (Expr, error) {
	var args []Expr
	if p.peek().kind == tokRParen {
		p.next()
		return NewFunction(name, args...), nil
	}
	for {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		switch t := p.next(); t.kind {
		case tokComma:
			continue
		case tokRParen:
			return NewFunction(name, args...), nil
		default:
			return nil, fmt.Errorf("expected , or ) in call to %s at position %d", name, t.pos)
		}
	}
}
