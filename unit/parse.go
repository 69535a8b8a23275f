package unit

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Parse converts a unit expression like "code_mass / code_length**3" into a
// Unit. Expressions are products and quotients of symbols and numbers, with
// parentheses and "**" powers. The empty string is dimensionless.
func (reg *Registry) Parse(expr string) (Unit, error) {
	if strings.TrimSpace(expr) == "" {
		return Dimensionless, nil
	}

	toks, err := tokenize(expr)
	if err != nil {
		return Unit{}, err
	}

	p := &parser{toks: toks, reg: reg, expr: expr}
	u, err := p.product()
	if err != nil {
		return Unit{}, err
	}
	if p.i != len(p.toks) {
		return Unit{}, p.errorf("unexpected '%s'", p.toks[p.i].text)
	}
	return u, nil
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokNumber
	tokMul
	tokDiv
	tokPow
	tokLParen
	tokRParen
	tokSign
)

type token struct {
	kind tokenKind
	text string
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if !(r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r))) {
			return false
		}
	}
	return true
}

func tokenize(expr string) ([]token, error) {
	toks := []token{}
	rs := []rune(expr)

	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '*' && i+1 < len(rs) && rs[i+1] == '*':
			toks = append(toks, token{tokPow, "**"})
			i += 2
		case r == '^':
			toks = append(toks, token{tokPow, "^"})
			i++
		case r == '*':
			toks = append(toks, token{tokMul, "*"})
			i++
		case r == '/':
			toks = append(toks, token{tokDiv, "/"})
			i++
		case r == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case r == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case r == '-' || r == '+':
			toks = append(toks, token{tokSign, string(r)})
			i++
		case unicode.IsDigit(r) || r == '.':
			j := i
			for j < len(rs) && (unicode.IsDigit(rs[j]) || rs[j] == '.') {
				j++
			}
			// exponent, e.g. 3.08e21 or 1e-7
			if j < len(rs) && (rs[j] == 'e' || rs[j] == 'E') {
				k := j + 1
				if k < len(rs) && (rs[k] == '-' || rs[k] == '+') {
					k++
				}
				if k < len(rs) && unicode.IsDigit(rs[k]) {
					for k < len(rs) && unicode.IsDigit(rs[k]) {
						k++
					}
					j = k
				}
			}
			toks = append(toks, token{tokNumber, string(rs[i:j])})
			i = j
		case r == '_' || unicode.IsLetter(r):
			j := i
			for j < len(rs) && (rs[j] == '_' || unicode.IsLetter(rs[j]) ||
				unicode.IsDigit(rs[j])) {
				j++
			}
			toks = append(toks, token{tokIdent, string(rs[i:j])})
			i = j
		default:
			return nil, fmt.Errorf("%w: unexpected character '%c' in '%s'",
				ErrSyntax, r, expr)
		}
	}

	return toks, nil
}

type parser struct {
	toks []token
	i    int
	reg  *Registry
	expr string
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s in '%s'", ErrSyntax, fmt.Sprintf(format, args...),
		p.expr)
}

func (p *parser) peek() (token, bool) {
	if p.i >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.i], true
}

// product := power (('*' | '/') power)*
func (p *parser) product() (Unit, error) {
	u, err := p.power()
	if err != nil {
		return Unit{}, err
	}

	for {
		tok, ok := p.peek()
		if !ok || (tok.kind != tokMul && tok.kind != tokDiv) {
			return u, nil
		}
		p.i++

		v, err := p.power()
		if err != nil {
			return Unit{}, err
		}
		if tok.kind == tokMul {
			u = u.Mul(v)
		} else {
			u = u.Div(v)
		}
	}
}

// power := atom ('**' exponent)?
func (p *parser) power() (Unit, error) {
	u, err := p.atom()
	if err != nil {
		return Unit{}, err
	}

	if tok, ok := p.peek(); ok && tok.kind == tokPow {
		p.i++
		e, err := p.exponent()
		if err != nil {
			return Unit{}, err
		}
		u = u.Pow(e)
	}
	return u, nil
}

// exponent := sign? number | '(' sign? number ')'
func (p *parser) exponent() (float64, error) {
	paren := false
	if tok, ok := p.peek(); ok && tok.kind == tokLParen {
		paren = true
		p.i++
	}

	sign := 1.0
	if tok, ok := p.peek(); ok && tok.kind == tokSign {
		if tok.text == "-" {
			sign = -1
		}
		p.i++
	}

	tok, ok := p.peek()
	if !ok || tok.kind != tokNumber {
		return 0, p.errorf("expected a number after '**'")
	}
	p.i++
	x, err := strconv.ParseFloat(tok.text, 64)
	if err != nil {
		return 0, p.errorf("bad exponent '%s'", tok.text)
	}

	if paren {
		if tok, ok := p.peek(); !ok || tok.kind != tokRParen {
			return 0, p.errorf("unclosed '('")
		}
		p.i++
	}
	return sign * x, nil
}

// atom := ident | number | '(' product ')'
func (p *parser) atom() (Unit, error) {
	tok, ok := p.peek()
	if !ok {
		return Unit{}, p.errorf("unexpected end of expression")
	}
	p.i++

	switch tok.kind {
	case tokIdent:
		u, ok := p.reg.Lookup(tok.text)
		if !ok {
			return Unit{}, fmt.Errorf("%w: '%s' in '%s'",
				ErrUnknownSymbol, tok.text, p.expr)
		}
		return u, nil
	case tokNumber:
		x, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return Unit{}, p.errorf("bad number '%s'", tok.text)
		}
		return Unit{Scale: x}, nil
	case tokLParen:
		u, err := p.product()
		if err != nil {
			return Unit{}, err
		}
		if tok, ok := p.peek(); !ok || tok.kind != tokRParen {
			return Unit{}, p.errorf("unclosed '('")
		}
		p.i++
		return u, nil
	}
	return Unit{}, p.errorf("unexpected '%s'", tok.text)
}
