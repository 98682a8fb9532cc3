package sql

import (
	"fmt"
	"strconv"
	"strings"
)

var aggregateFuncs = map[string]string{
	"count": "count",
	"sum":   "sum",
	"avg":   "avg",
	"mean":  "mean",
	"min":   "min",
	"max":   "max",
}

// Parser builds a SelectStatement from tokens.
type Parser struct {
	tokens []Token
	pos    int
}

// Parse parses one SELECT statement. A trailing semicolon is allowed.
func Parse(query string) (*SelectStatement, error) {
	tokens, err := NewLexer(query).Tokens()
	if err != nil {
		return nil, err
	}
	p := &Parser{tokens: tokens}
	stmt, err := p.parseSelect()
	if err != nil {
		return nil, err
	}
	p.accept(SEMICOLON)
	if !p.at(EOF) {
		return nil, fmt.Errorf("unexpected %s", p.peek())
	}
	return stmt, nil
}

func (p *Parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(offset int) Token {
	if i := p.pos + offset; i < len(p.tokens) {
		return p.tokens[i]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) next() Token {
	tok := p.tokens[p.pos]
	if tok.Type != EOF {
		p.pos++
	}
	return tok
}

func (p *Parser) at(types ...TokenType) bool {
	t := p.peek().Type
	for _, want := range types {
		if t == want {
			return true
		}
	}
	return false
}

func (p *Parser) accept(t TokenType) bool {
	if p.at(t) {
		p.next()
		return true
	}
	return false
}

func (p *Parser) expect(t TokenType, what string) (Token, error) {
	if !p.at(t) {
		return Token{}, fmt.Errorf("expected %s, found %s", what, p.peek())
	}
	return p.next(), nil
}

func (p *Parser) parseSelect() (*SelectStatement, error) {
	if _, err := p.expect(SELECT, "SELECT"); err != nil {
		return nil, err
	}
	stmt := &SelectStatement{Limit: -1}
	stmt.Distinct = p.accept(DISTINCT)

	for {
		item, err := p.parseSelectItem()
		if err != nil {
			return nil, err
		}
		stmt.Items = append(stmt.Items, item)
		if !p.accept(COMMA) {
			break
		}
	}
	if len(stmt.Items) > 1 {
		for _, item := range stmt.Items {
			if item.Column == "*" {
				return nil, fmt.Errorf("* cannot be combined with other select items")
			}
		}
	}

	if _, err := p.expect(FROM, "FROM"); err != nil {
		return nil, err
	}
	table, err := p.parseTable()
	if err != nil {
		return nil, err
	}
	stmt.From = table

	for p.at(JOIN, INNER, LEFT, RIGHT, FULL, CROSS) {
		join, err := p.parseJoin()
		if err != nil {
			return nil, err
		}
		stmt.Joins = append(stmt.Joins, join)
	}

	if p.accept(WHERE) {
		if stmt.Where, err = p.parsePredicate("WHERE"); err != nil {
			return nil, err
		}
	}
	if p.accept(GROUP) {
		if _, err := p.expect(BY, "BY after GROUP"); err != nil {
			return nil, err
		}
		if stmt.GroupBy, err = p.parseColumnList(); err != nil {
			return nil, err
		}
	}
	if p.accept(HAVING) {
		if stmt.Having, err = p.parsePredicate("HAVING"); err != nil {
			return nil, err
		}
	}
	if p.accept(ORDER) {
		if _, err := p.expect(BY, "BY after ORDER"); err != nil {
			return nil, err
		}
		if stmt.OrderBy, err = p.parseOrderBy(); err != nil {
			return nil, err
		}
	}
	if p.accept(LIMIT) {
		if stmt.Limit, err = p.parseCount("LIMIT"); err != nil {
			return nil, err
		}
	}
	if p.accept(OFFSET) {
		if stmt.Offset, err = p.parseCount("OFFSET"); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (p *Parser) parseSelectItem() (SelectItem, error) {
	var item SelectItem
	switch {
	case p.accept(STAR):
		return SelectItem{Column: "*"}, nil
	case p.at(IDENT) && p.peekAt(1).Type == LPAREN:
		agg, err := p.parseAggregate()
		if err != nil {
			return item, err
		}
		item.Aggregate = agg
	default:
		col, err := p.parseColumn()
		if err != nil {
			return item, err
		}
		item.Column = col
	}

	if p.accept(AS) {
		alias, err := p.expect(IDENT, "alias after AS")
		if err != nil {
			return item, err
		}
		item.Alias = alias.Literal
	} else if p.at(IDENT) {
		item.Alias = p.next().Literal
	}
	return item, nil
}

// parseAggregate reads fn(column) or count(*) and returns it in canonical
// lower-case form
func (p *Parser) parseAggregate() (string, error) {
	name := p.next()
	fn, ok := aggregateFuncs[strings.ToLower(name.Literal)]
	if !ok {
		return "", fmt.Errorf("unsupported function %s", name)
	}
	p.next() // (

	var arg string
	if p.accept(STAR) {
		if fn != "count" {
			return "", fmt.Errorf("%s(*) is not supported", fn)
		}
		arg = "*"
	} else {
		col, err := p.parseColumn()
		if err != nil {
			return "", err
		}
		arg = col
	}
	if _, err := p.expect(RPAREN, ")"); err != nil {
		return "", err
	}
	return fn + "(" + arg + ")", nil
}

// parseColumn reads a column name, dropping any table qualifier
func (p *Parser) parseColumn() (string, error) {
	tok, err := p.expect(IDENT, "column name")
	if err != nil {
		return "", err
	}
	name := tok.Literal
	for p.accept(DOT) {
		tok, err := p.expect(IDENT, "column name after .")
		if err != nil {
			return "", err
		}
		name = tok.Literal
	}
	return name, nil
}

func (p *Parser) parseColumnList() ([]string, error) {
	var names []string
	for {
		name, err := p.parseColumn()
		if err != nil {
			return nil, err
		}
		names = append(names, name)
		if !p.accept(COMMA) {
			return names, nil
		}
	}
}

// parseTable reads a view name and skips an optional alias
func (p *Parser) parseTable() (string, error) {
	tok, err := p.expect(IDENT, "view name")
	if err != nil {
		return "", err
	}
	if p.accept(AS) {
		if _, err := p.expect(IDENT, "alias after AS"); err != nil {
			return "", err
		}
	} else {
		p.accept(IDENT)
	}
	return tok.Literal, nil
}

func (p *Parser) parseJoin() (JoinClause, error) {
	var join JoinClause
	switch p.next().Type {
	case JOIN, INNER:
		join.Type = "inner"
	case LEFT:
		join.Type = "left"
	case RIGHT:
		join.Type = "right"
	case FULL:
		join.Type = "outer"
	case CROSS:
		join.Type = "cross"
	}
	if p.tokens[p.pos-1].Type != JOIN {
		p.accept(OUTER)
		if _, err := p.expect(JOIN, "JOIN"); err != nil {
			return join, err
		}
	}

	table, err := p.parseTable()
	if err != nil {
		return join, err
	}
	join.Table = table

	if join.Type == "cross" {
		return join, nil
	}
	switch {
	case p.accept(USING):
		if _, err := p.expect(LPAREN, "( after USING"); err != nil {
			return join, err
		}
		if join.Using, err = p.parseColumnList(); err != nil {
			return join, err
		}
		if _, err := p.expect(RPAREN, ")"); err != nil {
			return join, err
		}
	case p.accept(ON):
		for {
			left, err := p.parseColumn()
			if err != nil {
				return join, err
			}
			if _, err := p.expect(EQ, "= in join condition"); err != nil {
				return join, err
			}
			right, err := p.parseColumn()
			if err != nil {
				return join, err
			}
			if left != right {
				return join, fmt.Errorf("join condition %s = %s must compare columns with the same name", left, right)
			}
			join.Using = append(join.Using, left)
			if !p.accept(AND) {
				break
			}
		}
	default:
		return join, fmt.Errorf("expected ON or USING after JOIN %s, found %s", table, p.peek())
	}
	return join, nil
}

// parsePredicate collects tokens up to the next clause keyword and rewrites
// them into condition syntax
func (p *Parser) parsePredicate(clause string) (string, error) {
	start := p.pos
	for !p.at(GROUP, HAVING, ORDER, LIMIT, OFFSET, SEMICOLON, EOF) {
		p.next()
	}
	if p.pos == start {
		return "", fmt.Errorf("empty %s clause", clause)
	}
	cond, err := translate(p.tokens[start:p.pos])
	if err != nil {
		return "", fmt.Errorf("%s: %w", clause, err)
	}
	return cond, nil
}

func (p *Parser) parseOrderBy() ([]OrderItem, error) {
	var items []OrderItem
	for {
		var (
			col string
			err error
		)
		if p.at(IDENT) && p.peekAt(1).Type == LPAREN {
			col, err = p.parseAggregate()
		} else {
			col, err = p.parseColumn()
		}
		if err != nil {
			return nil, err
		}
		item := OrderItem{Column: col}
		if p.accept(DESC) {
			item.Desc = true
		} else {
			p.accept(ASC)
		}
		items = append(items, item)
		if !p.accept(COMMA) {
			return items, nil
		}
	}
}

func (p *Parser) parseCount(clause string) (int, error) {
	tok, err := p.expect(NUMBER, "row count after "+clause)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(tok.Literal)
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number, got %s", clause, tok.Literal)
	}
	return n, nil
}
