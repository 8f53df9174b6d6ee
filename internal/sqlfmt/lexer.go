package sqlfmt

import (
	"fmt"
	"strings"
)

type kind int

const (
	kindEOF kind = iota
	kindWord
	kindKeyword
	kindNumber
	kindString
	kindQuoted
	kindParam
	kindLineComment
	kindBlockComment
	kindLParen
	kindRParen
	kindComma
	kindDot
	kindSemicolon
	kindOperator
)

// Position is a 1-based location in the input.
type Position struct {
	Line   int
	Column int
}

// Error reports text the formatter cannot safely rewrite.
type Error struct {
	Pos     Position
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("format error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Error messages.
const (
	ErrUnterminatedString  = "unterminated string literal"
	ErrUnterminatedQuoted  = "unterminated quoted identifier"
	ErrUnterminatedComment = "unterminated block comment"
	ErrUnterminatedParam   = "unterminated parameter placeholder"
	ErrUnexpectedParen     = "unexpected )"
	ErrUnclosedParen       = "unclosed ("
)

type token struct {
	kind kind
	text string
	pos  Position
}

// upper is the keyword text for keywords and the literal text otherwise.
func (t token) upper() string {
	if t.kind == kindKeyword {
		return strings.ToUpper(t.text)
	}
	return t.text
}

func (t token) is(kw string) bool {
	return t.kind == kindKeyword && strings.EqualFold(t.text, kw)
}

type lexer struct {
	input   string
	pos     int
	readPos int
	ch      byte
	line    int
	col     int
}

func newLexer(input string) *lexer {
	l := &lexer{input: input, line: 1}
	l.readChar()
	return l
}

func (l *lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	l.col++
}

func (l *lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

func (l *lexer) position() Position {
	return Position{Line: l.line, Column: l.col}
}

func (l *lexer) errorf(pos Position, msg string) *Error {
	return &Error{Pos: pos, Message: msg}
}

// tokens lexes the whole input.
func (l *lexer) tokens() ([]token, error) {
	var out []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		if tok.kind == kindEOF {
			return out, nil
		}
		out = append(out, tok)
	}
}

func (l *lexer) next() (token, error) {
	for !l.atEOF() && isSpace(l.ch) {
		l.readChar()
	}
	pos := l.position()
	if l.atEOF() {
		return token{kind: kindEOF, pos: pos}, nil
	}

	start := l.pos
	switch {
	case l.ch == '-' && l.peekChar() == '-':
		for !l.atEOF() && l.ch != '\n' {
			l.readChar()
		}
		return token{kind: kindLineComment, text: strings.TrimRight(l.input[start:l.pos], " \t\r"), pos: pos}, nil
	case l.ch == '/' && l.peekChar() == '*':
		l.readChar()
		l.readChar()
		for !(l.ch == '*' && l.peekChar() == '/') {
			if l.atEOF() {
				return token{}, l.errorf(pos, ErrUnterminatedComment)
			}
			l.readChar()
		}
		l.readChar()
		l.readChar()
		return token{kind: kindBlockComment, text: l.input[start:l.pos], pos: pos}, nil
	case l.ch == '{' && l.peekChar() == '{':
		for !(l.ch == '}' && l.peekChar() == '}') {
			if l.atEOF() {
				return token{}, l.errorf(pos, ErrUnterminatedParam)
			}
			l.readChar()
		}
		l.readChar()
		l.readChar()
		return token{kind: kindParam, text: l.input[start:l.pos], pos: pos}, nil
	case l.ch == '\'':
		if err := l.readQuoted('\''); err != nil {
			return token{}, l.errorf(pos, ErrUnterminatedString)
		}
		return token{kind: kindString, text: l.input[start:l.pos], pos: pos}, nil
	case l.ch == '"' || l.ch == '`':
		if err := l.readQuoted(l.ch); err != nil {
			return token{}, l.errorf(pos, ErrUnterminatedQuoted)
		}
		return token{kind: kindQuoted, text: l.input[start:l.pos], pos: pos}, nil
	case isLetter(l.ch) || l.ch == '_':
		for !l.atEOF() && (isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' || l.ch >= 0x80) {
			l.readChar()
		}
		word := l.input[start:l.pos]
		k := kindWord
		if keywords[strings.ToUpper(word)] {
			k = kindKeyword
		}
		return token{kind: k, text: word, pos: pos}, nil
	case isDigit(l.ch):
		for !l.atEOF() && (isDigit(l.ch) || l.ch == '.' || l.ch == 'e' || l.ch == 'E') {
			l.readChar()
		}
		return token{kind: kindNumber, text: l.input[start:l.pos], pos: pos}, nil
	}

	ch := l.ch
	l.readChar()
	switch ch {
	case '(':
		return token{kind: kindLParen, text: "(", pos: pos}, nil
	case ')':
		return token{kind: kindRParen, text: ")", pos: pos}, nil
	case ',':
		return token{kind: kindComma, text: ",", pos: pos}, nil
	case '.':
		return token{kind: kindDot, text: ".", pos: pos}, nil
	case ';':
		return token{kind: kindSemicolon, text: ";", pos: pos}, nil
	}

	// Multi-character operators.
	for _, op := range []string{"<=", ">=", "<>", "!=", "||", "::", "->", "=>"} {
		if op[0] == ch && l.ch == op[1] && !l.atEOF() {
			l.readChar()
			return token{kind: kindOperator, text: op, pos: pos}, nil
		}
	}
	if ch >= 0x80 {
		// Keep multi-byte runes intact.
		for !l.atEOF() && l.ch >= 0x80 && l.ch < 0xC0 {
			l.readChar()
		}
		return token{kind: kindWord, text: l.input[start:l.pos], pos: pos}, nil
	}
	return token{kind: kindOperator, text: string(ch), pos: pos}, nil
}

// readQuoted consumes a quoted run. A doubled quote is an escaped quote.
func (l *lexer) readQuoted(q byte) error {
	l.readChar()
	for {
		if l.atEOF() {
			return fmt.Errorf("unterminated")
		}
		if l.ch == q {
			if l.peekChar() == q {
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar()
			return nil
		}
		l.readChar()
	}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

var keywords = map[string]bool{}

func init() {
	for _, kw := range strings.Fields(`
		SELECT FROM WHERE AND OR NOT IN IS NULL AS ON JOIN LEFT RIGHT INNER
		OUTER FULL CROSS NATURAL GROUP BY ORDER HAVING LIMIT OFFSET UNION ALL
		EXCEPT INTERSECT DISTINCT CASE WHEN THEN ELSE END WITH INSERT INTO
		VALUES UPDATE SET DELETE CREATE TABLE VIEW DROP ASC DESC BETWEEN LIKE
		ILIKE EXISTS CAST INTERVAL TRUE FALSE OVER PARTITION WINDOW USING
		LATERAL UNNEST ROWS RANGE PRECEDING FOLLOWING UNBOUNDED CURRENT ROW
		NULLS FIRST LAST FETCH NEXT ONLY
	`) {
		keywords[kw] = true
	}
}
