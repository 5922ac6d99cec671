package ast

import (
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// ParseType parses the compact textual form of a type expression used in
// AST documents and catalogs: `Int`, `Option[Text]`, `(Int, Text)`,
// `fn(Int, Int) -> Int with Console`.
func ParseType(src string) (TypeExpr, error) {
	p := &typeParser{src: src}
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, errors.Errorf("type %q: unexpected %q at offset %d", src, p.src[p.pos:], p.pos)
	}
	return t, nil
}

// MustParseType is ParseType for literals known to be valid.
func MustParseType(src string) TypeExpr {
	t, err := ParseType(src)
	if err != nil {
		panic(err)
	}
	return t
}

type typeParser struct {
	src string
	pos int
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *typeParser) expect(s string) error {
	p.skipSpace()
	if !strings.HasPrefix(p.src[p.pos:], s) {
		return errors.Errorf("type %q: expected %q at offset %d", p.src, s, p.pos)
	}
	p.pos += len(s)
	return nil
}

func (p *typeParser) ident() (string, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		r := rune(p.src[p.pos])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '.' {
			break
		}
		p.pos++
	}
	if start == p.pos {
		return "", errors.Errorf("type %q: expected a name at offset %d", p.src, start)
	}
	return p.src[start:p.pos], nil
}

func (p *typeParser) parseList(close byte) ([]TypeExpr, error) {
	var ts []TypeExpr
	if p.peek() == close {
		p.pos++
		return ts, nil
	}
	for {
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		ts = append(ts, t)
		switch p.peek() {
		case ',':
			p.pos++
		case close:
			p.pos++
			return ts, nil
		default:
			return nil, errors.Errorf("type %q: expected ',' or %q at offset %d", p.src, close, p.pos)
		}
	}
}

func (p *typeParser) parseType() (TypeExpr, error) {
	switch p.peek() {
	case '(':
		p.pos++
		elems, err := p.parseList(')')
		if err != nil {
			return nil, err
		}
		if len(elems) == 0 {
			return Named("Unit"), nil
		}
		return &TupleType{Elems: elems}, nil
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	if name == "fn" {
		if err := p.expect("("); err != nil {
			return nil, err
		}
		params, err := p.parseList(')')
		if err != nil {
			return nil, err
		}
		fn := &FnType{Params: params}
		p.skipSpace()
		if strings.HasPrefix(p.src[p.pos:], "->") {
			p.pos += 2
			ret, err := p.parseType()
			if err != nil {
				return nil, err
			}
			fn.Return = ret
		}
		p.skipSpace()
		if strings.HasPrefix(p.src[p.pos:], "with ") {
			p.pos += len("with ")
			for {
				eff, err := p.ident()
				if err != nil {
					return nil, err
				}
				fn.Effects = append(fn.Effects, eff)
				if p.peek() != ',' {
					break
				}
				p.pos++
			}
		}
		return fn, nil
	}
	t := &NamedType{Name: name}
	if p.peek() == '[' {
		p.pos++
		args, err := p.parseList(']')
		if err != nil {
			return nil, err
		}
		t.Args = args
	}
	return t, nil
}
