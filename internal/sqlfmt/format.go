// Package sqlfmt reformats SQL text: keywords are upper-cased and each
// clause starts on its own line. Text it cannot tokenize safely is
// rejected rather than rewritten.
package sqlfmt

import (
	"bytes"
	"strings"
)

const indentSize = 2

// Format returns sql reformatted. On error the caller should keep the
// original text.
func Format(sql string) (string, error) {
	toks, err := newLexer(sql).tokens()
	if err != nil {
		return "", err
	}
	if err := checkParens(toks); err != nil {
		return "", err
	}
	if len(toks) == 0 {
		return sql, nil
	}

	p := newPrinter()
	p.print(toks)
	return p.String(), nil
}

func checkParens(toks []token) error {
	var open []token
	for _, t := range toks {
		switch t.kind {
		case kindLParen:
			open = append(open, t)
		case kindRParen:
			if len(open) == 0 {
				return &Error{Pos: t.pos, Message: ErrUnexpectedParen}
			}
			open = open[:len(open)-1]
		}
	}
	if len(open) > 0 {
		return &Error{Pos: open[len(open)-1].pos, Message: ErrUnclosedParen}
	}
	return nil
}

// clause is how the items following a clause keyword are laid out.
type clause int

const (
	clauseNone clause = iota
	// clauseBlock puts items on their own indented lines, one per comma.
	clauseBlock
	// clauseInline keeps the items on the keyword's line.
	clauseInline
)

// frame is one level of parentheses.
type frame struct {
	subquery bool
	base     int
	clause   clause
	between  bool
}

type printer struct {
	output      *bytes.Buffer
	depth       int
	atLineStart bool
	frames      []frame
	prev        *token
	prev2       *token
}

func newPrinter() *printer {
	return &printer{
		output:      &bytes.Buffer{},
		atLineStart: true,
		frames:      []frame{{subquery: true}},
	}
}

// String returns the formatted output.
func (p *printer) String() string {
	return strings.TrimRight(p.output.String(), "\n") + "\n"
}

func (p *printer) write(s string) {
	if p.atLineStart && len(s) > 0 {
		p.writeIndent()
	}
	p.output.WriteString(s)
	p.atLineStart = false
}

func (p *printer) writeln() {
	if p.atLineStart && p.output.Len() == 0 {
		return
	}
	if !p.atLineStart {
		p.output.WriteByte('\n')
	}
	p.atLineStart = true
}

func (p *printer) writeIndent() {
	for i := 0; i < p.depth*indentSize; i++ {
		p.output.WriteByte(' ')
	}
	p.atLineStart = false
}

func (p *printer) top() *frame {
	return &p.frames[len(p.frames)-1]
}

// queryLevel reports whether clause keywords apply at the current paren
// depth.
func (p *printer) queryLevel() bool {
	return p.top().subquery
}

// startClause begins a clause line at the frame base.
func (p *printer) startClause(kw string, c clause) {
	f := p.top()
	p.writeln()
	p.depth = f.base
	p.write(kw)
	f.clause = c
	f.between = false
	if c == clauseBlock {
		p.writeln()
		p.depth = f.base + 1
	}
}

func (p *printer) print(toks []token) {
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		next := func(n int) token {
			if i+n < len(toks) {
				return toks[i+n]
			}
			return token{kind: kindEOF}
		}

		switch {
		case t.kind == kindLineComment:
			p.space(t)
			p.write(t.text)
			p.writeln()
			p.setPrev(nil)
			continue

		case t.kind == kindSemicolon:
			p.write(";")
			p.writeln()
			p.output.WriteByte('\n')
			p.frames = []frame{{subquery: true}}
			p.depth = 0
			p.setPrev(nil)
			continue

		case t.kind == kindLParen:
			sub := next(1).is("SELECT") || next(1).is("WITH")
			p.space(t)
			p.write("(")
			p.frames = append(p.frames, frame{subquery: sub, base: p.depth + 1})
			if sub {
				p.depth++
			}
			p.setPrev(&toks[i])
			continue

		case t.kind == kindRParen:
			f := p.top()
			if len(p.frames) > 1 {
				p.frames = p.frames[:len(p.frames)-1]
			}
			if f.subquery {
				p.writeln()
				p.depth = f.base - 1
			}
			p.write(")")
			p.setPrev(&toks[i])
			continue

		case t.kind == kindComma:
			p.write(",")
			if f := p.top(); f.subquery && f.clause == clauseBlock {
				p.writeln()
			}
			p.setPrev(&toks[i])
			continue
		}

		// A keyword after a dot is a column or table name.
		if t.kind == kindKeyword && p.prev != nil && p.prev.kind == kindDot {
			t.kind = kindWord
		}

		if t.kind == kindKeyword && p.queryLevel() {
			if p.clauseKeyword(toks, &i) {
				continue
			}
		}

		p.space(t)
		p.write(t.upper())
		if t.is("BETWEEN") {
			p.top().between = true
		}
		p.setPrev(&toks[i])
	}
}

// clauseKeyword lays out a clause keyword at toks[*i]. It advances *i
// over multi-word keywords and reports whether it handled the token.
func (p *printer) clauseKeyword(toks []token, i *int) bool {
	t := toks[*i]
	peek := func(n int) token {
		if *i+n < len(toks) {
			return toks[*i+n]
		}
		return token{kind: kindEOF}
	}
	f := p.top()
	kw := strings.ToUpper(t.text)

	switch kw {
	case "SELECT", "WHERE", "HAVING", "WITH":
		if kw == "SELECT" && peek(1).is("DISTINCT") {
			kw += " DISTINCT"
			*i++
		}
		p.startClause(kw, clauseBlock)
	case "GROUP", "ORDER", "PARTITION":
		if !peek(1).is("BY") {
			return false
		}
		p.startClause(kw+" BY", clauseBlock)
		*i++
	case "FROM", "LIMIT", "OFFSET", "JOIN":
		p.startClause(kw, clauseInline)
	case "LEFT", "RIGHT", "INNER", "FULL", "CROSS", "NATURAL":
		if peek(1).kind == kindLParen {
			return false
		}
		words := []string{kw}
		for peek(1).is("OUTER") || peek(1).is("JOIN") || peek(1).is("INNER") {
			*i++
			words = append(words, strings.ToUpper(toks[*i].text))
		}
		p.startClause(strings.Join(words, " "), clauseInline)
	case "UNION", "EXCEPT", "INTERSECT":
		words := []string{kw}
		if peek(1).is("ALL") || peek(1).is("DISTINCT") {
			*i++
			words = append(words, strings.ToUpper(toks[*i].text))
		}
		p.startClause(strings.Join(words, " "), clauseNone)
		p.writeln()
	case "ON":
		if f.clause != clauseInline {
			return false
		}
		p.writeln()
		p.depth = f.base + 1
		p.write("ON")
	case "AND", "OR":
		if f.clause != clauseBlock || f.between {
			f.between = false
			return false
		}
		p.writeln()
		p.write(kw)
	default:
		return false
	}
	p.setPrev(&toks[*i])
	return true
}

func (p *printer) setPrev(t *token) {
	p.prev2, p.prev = p.prev, t
}

// unarySign reports whether prev is a sign glued to the following number.
func (p *printer) unarySign() bool {
	prev := p.prev
	if prev == nil || prev.kind != kindOperator || (prev.text != "-" && prev.text != "+") {
		return false
	}
	if p.prev2 == nil {
		return true
	}
	switch p.prev2.kind {
	case kindOperator, kindKeyword, kindLParen, kindComma:
		return true
	}
	return false
}

// space writes the separator between the previous token and t.
func (p *printer) space(t token) {
	if p.atLineStart || p.prev == nil {
		return
	}
	prev := *p.prev
	switch {
	case t.kind == kindNumber && p.unarySign():
		return
	case t.kind == kindLParen && (prev.is("CAST") || prev.is("UNNEST")):
		return
	case prev.kind == kindLParen, prev.kind == kindDot:
		return
	case prev.kind == kindOperator && prev.text == "::":
		return
	case t.kind == kindDot, t.kind == kindRParen, t.kind == kindComma:
		return
	case t.kind == kindOperator && t.text == "::":
		return
	case t.kind == kindLParen && (prev.kind == kindWord || prev.kind == kindQuoted):
		// Function call.
		return
	}
	p.output.WriteByte(' ')
}
