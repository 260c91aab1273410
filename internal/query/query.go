// Package query compiles ad-hoc predicate expressions over metadata fields.
// The language is deliberately small: comparison clauses of the form
// `column OP value` joined by `and` / `or`, with `and` binding tighter and
// parentheses for grouping. String values may be quoted.
package query

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"

	"github.com/phylo-tools/strainfilter/internal/config"
	"github.com/phylo-tools/strainfilter/internal/model"
)

// Evaluator is a compiled predicate over one record.
type Evaluator interface {
	Match(rec model.Record) bool
}

// Compile parses an expression into an Evaluator. Any syntax error wraps
// config.ErrInvalid so callers can fail the run before streaming records.
func Compile(expr string) (Evaluator, error) {
	toks, err := tokenize(expr)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, eris.Wrapf(config.ErrInvalid, "query: unexpected token %q", p.peek())
	}
	return node, nil
}

type tokenKind int

const (
	tokWord tokenKind = iota
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
}

var operators = []string{"==", "!=", ">=", "<=", ">", "<"}

func tokenize(expr string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(expr) {
		c := expr[i]
		switch {
		case unicode.IsSpace(rune(c)):
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case c == '\'' || c == '"':
			end := strings.IndexByte(expr[i+1:], c)
			if end < 0 {
				return nil, eris.Wrapf(config.ErrInvalid, "query: unterminated string at offset %d", i)
			}
			toks = append(toks, token{tokWord, expr[i+1 : i+1+end]})
			i += end + 2
		case isOpByte(c):
			matched := false
			for _, op := range operators {
				if strings.HasPrefix(expr[i:], op) {
					toks = append(toks, token{tokOp, op})
					i += len(op)
					matched = true
					break
				}
			}
			if !matched {
				return nil, eris.Wrapf(config.ErrInvalid, "query: bad operator at offset %d", i)
			}
		default:
			j := i
			for j < len(expr) && !unicode.IsSpace(rune(expr[j])) &&
				expr[j] != '(' && expr[j] != ')' && !isOpByte(expr[j]) {
				j++
			}
			toks = append(toks, token{tokWord, expr[i:j]})
			i = j
		}
	}
	if len(toks) == 0 {
		return nil, eris.Wrap(config.ErrInvalid, "query: empty expression")
	}
	return toks, nil
}

func isOpByte(c byte) bool {
	return c == '=' || c == '!' || c == '<' || c == '>'
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) done() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() string {
	if p.done() {
		return "<end>"
	}
	return p.toks[p.pos].text
}

func (p *parser) parseOr() (Evaluator, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for !p.done() && p.toks[p.pos].kind == tokWord && strings.EqualFold(p.toks[p.pos].text, "or") {
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left, right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Evaluator, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for !p.done() && p.toks[p.pos].kind == tokWord && strings.EqualFold(p.toks[p.pos].text, "and") {
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = andNode{left, right}
	}
	return left, nil
}

func (p *parser) parseTerm() (Evaluator, error) {
	if p.done() {
		return nil, eris.Wrap(config.ErrInvalid, "query: expression ends early")
	}
	if p.toks[p.pos].kind == tokLParen {
		p.pos++
		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.done() || p.toks[p.pos].kind != tokRParen {
			return nil, eris.Wrap(config.ErrInvalid, "query: missing closing parenthesis")
		}
		p.pos++
		return node, nil
	}
	return p.parseClause()
}

func (p *parser) parseClause() (Evaluator, error) {
	if p.done() || p.toks[p.pos].kind != tokWord {
		return nil, eris.Wrapf(config.ErrInvalid, "query: expected column name, got %q", p.peek())
	}
	column := p.toks[p.pos].text
	p.pos++

	if p.done() || p.toks[p.pos].kind != tokOp {
		return nil, eris.Wrapf(config.ErrInvalid, "query: expected operator after %q, got %q", column, p.peek())
	}
	op := p.toks[p.pos].text
	p.pos++

	if p.done() || p.toks[p.pos].kind != tokWord {
		return nil, eris.Wrapf(config.ErrInvalid, "query: expected value after %q %s, got %q", column, op, p.peek())
	}
	value := p.toks[p.pos].text
	p.pos++

	return clause{column: column, op: op, value: value}, nil
}

type andNode struct{ left, right Evaluator }

func (n andNode) Match(rec model.Record) bool {
	return n.left.Match(rec) && n.right.Match(rec)
}

type orNode struct{ left, right Evaluator }

func (n orNode) Match(rec model.Record) bool {
	return n.left.Match(rec) || n.right.Match(rec)
}

// clause compares one field against a literal. Equality is textual; the
// ordered operators compare numerically and fail the record when either side
// is not a number.
type clause struct {
	column string
	op     string
	value  string
}

func (c clause) Match(rec model.Record) bool {
	field := rec.Get(c.column)

	switch c.op {
	case "==":
		return field == c.value
	case "!=":
		return field != c.value
	}

	fv, err1 := strconv.ParseFloat(strings.TrimSpace(field), 64)
	cv, err2 := strconv.ParseFloat(strings.TrimSpace(c.value), 64)
	if err1 != nil || err2 != nil {
		return false
	}

	switch c.op {
	case ">":
		return fv > cv
	case ">=":
		return fv >= cv
	case "<":
		return fv < cv
	case "<=":
		return fv <= cv
	}
	return false
}
