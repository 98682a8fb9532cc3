package sql

import (
	"fmt"
	"strings"
)

// TokenType represents the type of a SQL token.
type TokenType int

const (
	EOF TokenType = iota
	ILLEGAL

	IDENT  // column, view and function names
	NUMBER // integer or decimal literal
	STRING // quoted literal

	// keywords
	SELECT
	DISTINCT
	FROM
	JOIN
	INNER
	LEFT
	RIGHT
	FULL
	OUTER
	CROSS
	ON
	USING
	WHERE
	GROUP
	BY
	HAVING
	ORDER
	ASC
	DESC
	LIMIT
	OFFSET
	AS
	AND
	OR
	NOT
	IN
	IS
	NULL

	// operators and delimiters
	EQ // = or ==
	NE // != or <>
	LT
	LE
	GT
	GE
	STAR
	PLUS
	MINUS
	SLASH
	COMMA
	SEMICOLON
	LPAREN
	RPAREN
	DOT
)

var keywords = map[string]TokenType{
	"SELECT":   SELECT,
	"DISTINCT": DISTINCT,
	"FROM":     FROM,
	"JOIN":     JOIN,
	"INNER":    INNER,
	"LEFT":     LEFT,
	"RIGHT":    RIGHT,
	"FULL":     FULL,
	"OUTER":    OUTER,
	"CROSS":    CROSS,
	"ON":       ON,
	"USING":    USING,
	"WHERE":    WHERE,
	"GROUP":    GROUP,
	"BY":       BY,
	"HAVING":   HAVING,
	"ORDER":    ORDER,
	"ASC":      ASC,
	"DESC":     DESC,
	"LIMIT":    LIMIT,
	"OFFSET":   OFFSET,
	"AS":       AS,
	"AND":      AND,
	"OR":       OR,
	"NOT":      NOT,
	"IN":       IN,
	"IS":       IS,
	"NULL":     NULL,
}

// Token represents a single SQL token. STRING literals keep their quotes;
// backticked identifiers do not.
type Token struct {
	Type     TokenType
	Literal  string
	Position int
}

func (t Token) String() string {
	if t.Type == EOF {
		return "end of statement"
	}
	return fmt.Sprintf("%q at %d", t.Literal, t.Position)
}

// Lexer tokenizes SQL input.
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
}

// NewLexer creates a new lexer instance.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// Tokens scans the whole input. The last token is always EOF.
func (l *Lexer) Tokens() ([]Token, error) {
	var tokens []Token
	for {
		tok := l.NextToken()
		if tok.Type == ILLEGAL {
			return nil, fmt.Errorf("unexpected %s", tok)
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}

// NextToken scans the input and returns the next token.
func (l *Lexer) NextToken() Token {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}

	start := l.position
	single := func(t TokenType) Token {
		tok := Token{Type: t, Literal: string(l.ch), Position: start}
		l.readChar()
		return tok
	}
	double := func(t TokenType) Token {
		tok := Token{Type: t, Literal: l.input[start : start+2], Position: start}
		l.readChar()
		l.readChar()
		return tok
	}

	switch l.ch {
	case 0:
		return Token{Type: EOF, Position: start}
	case '=':
		if l.peekChar() == '=' {
			return double(EQ)
		}
		return single(EQ)
	case '!':
		if l.peekChar() == '=' {
			return double(NE)
		}
		return single(ILLEGAL)
	case '<':
		switch l.peekChar() {
		case '=':
			return double(LE)
		case '>':
			return double(NE)
		}
		return single(LT)
	case '>':
		if l.peekChar() == '=' {
			return double(GE)
		}
		return single(GT)
	case '*':
		return single(STAR)
	case '+':
		return single(PLUS)
	case '-':
		return single(MINUS)
	case '/':
		return single(SLASH)
	case ',':
		return single(COMMA)
	case ';':
		return single(SEMICOLON)
	case '(':
		return single(LPAREN)
	case ')':
		return single(RPAREN)
	case '.':
		if isDigit(l.peekChar()) {
			return l.readNumber()
		}
		return single(DOT)
	case '\'', '"':
		return l.readString()
	case '`':
		return l.readQuotedIdent()
	}

	switch {
	case isLetter(l.ch):
		return l.readWord()
	case isDigit(l.ch):
		return l.readNumber()
	}
	return single(ILLEGAL)
}

func (l *Lexer) readWord() Token {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	word := l.input[start:l.position]
	if t, ok := keywords[strings.ToUpper(word)]; ok {
		return Token{Type: t, Literal: word, Position: start}
	}
	return Token{Type: IDENT, Literal: word, Position: start}
}

func (l *Lexer) readNumber() Token {
	start := l.position
	seenDot := false
	for isDigit(l.ch) || (l.ch == '.' && !seenDot) {
		if l.ch == '.' {
			seenDot = true
		}
		l.readChar()
	}
	return Token{Type: NUMBER, Literal: l.input[start:l.position], Position: start}
}

// readString reads a quoted literal; a doubled quote stands for itself
func (l *Lexer) readString() Token {
	start := l.position
	quote := l.ch
	l.readChar()
	for {
		switch l.ch {
		case 0:
			return Token{Type: ILLEGAL, Literal: l.input[start:], Position: start}
		case quote:
			if l.peekChar() != quote {
				l.readChar()
				return Token{Type: STRING, Literal: l.input[start:l.position], Position: start}
			}
			l.readChar()
		}
		l.readChar()
	}
}

func (l *Lexer) readQuotedIdent() Token {
	start := l.position
	l.readChar()
	for l.ch != '`' {
		if l.ch == 0 {
			return Token{Type: ILLEGAL, Literal: l.input[start:], Position: start}
		}
		l.readChar()
	}
	l.readChar()
	return Token{Type: IDENT, Literal: l.input[start+1 : l.position-1], Position: start}
}

func isLetter(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
