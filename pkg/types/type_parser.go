package types

import (
	"strings"
	"unicode"

	verr "github.com/vhavlena/tmplguard/pkg/err"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokShape
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// typeLexer splits TypeScript-like type text into tokens. Object shapes are
// returned whole as a single token.
type typeLexer struct {
	src string
	pos int
}

func (l *typeLexer) next() (token, error) {
	for l.pos < len(l.src) && unicode.IsSpace(rune(l.src[l.pos])) {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}
	start := l.pos
	ch := l.src[l.pos]
	switch {
	case ch == '{':
		return l.shape()
	case ch == '\'' || ch == '"':
		return l.str(ch)
	case isDigit(ch):
		for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '.' || l.src[l.pos] == '_') {
			l.pos++
		}
		if l.pos < len(l.src) && l.src[l.pos] == 'n' {
			l.pos++
		}
		return token{kind: tokNumber, text: l.src[start:l.pos], pos: start}, nil
	case isIdentStart(ch):
		for l.pos < len(l.src) && (isIdentStart(l.src[l.pos]) || isDigit(l.src[l.pos]) || l.src[l.pos] == '.') {
			l.pos++
		}
		return token{kind: tokIdent, text: l.src[start:l.pos], pos: start}, nil
	case strings.IndexByte("|&()[],<>-", ch) >= 0:
		l.pos++
		return token{kind: tokPunct, text: string(ch), pos: start}, nil
	}
	return token{}, verr.ErrTokenAt(string(ch), start)
}

func (l *typeLexer) str(quote byte) (token, error) {
	start := l.pos
	l.pos++
	var sb strings.Builder
	for l.pos < len(l.src) {
		ch := l.src[l.pos]
		switch {
		case ch == '\\' && l.pos+1 < len(l.src):
			sb.WriteByte(l.src[l.pos+1])
			l.pos += 2
			continue
		case ch == quote:
			l.pos++
			return token{kind: tokString, text: sb.String(), pos: start}, nil
		}
		sb.WriteByte(ch)
		l.pos++
	}
	return token{}, verr.ErrUnterminated
}

// shape consumes a balanced `{ ... }` group, skipping quoted strings.
func (l *typeLexer) shape() (token, error) {
	start := l.pos
	depth := 0
	for l.pos < len(l.src) {
		ch := l.src[l.pos]
		switch ch {
		case '\'', '"':
			if _, err := l.str(ch); err != nil {
				return token{}, err
			}
			continue
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				l.pos++
				return token{kind: tokShape, text: normalizeShape(l.src[start:l.pos]), pos: start}, nil
			}
		}
		l.pos++
	}
	return token{}, verr.ErrUnterminated
}

// normalizeShape prints an object shape the way the checker does:
// `{ a: string }` becomes `{ a: string; }` and `{ }` becomes `{}`.
func normalizeShape(raw string) string {
	inner := strings.Join(strings.Fields(raw[1:len(raw)-1]), " ")
	if inner == "" {
		return "{}"
	}
	if !strings.HasSuffix(inner, ";") && !strings.HasSuffix(inner, ",") {
		inner += ";"
	}
	return "{ " + inner + " }"
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || ch == '$' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

// ParamLookup resolves an identifier to a declared type parameter.
type ParamLookup func(name string) (TypeDef, bool, error)

type typeParser struct {
	lex    typeLexer
	tok    token
	lookup ParamLookup
}

// ParseType parses TypeScript-like type text into a TypeDef.
//
// Parameters:
//
//	src string: The type text, e.g. `(number | undefined)[]`.
//	params map[string]TypeDef: Declared type parameters, may be nil.
//
// Returns:
//
//	TypeDef: The parsed type.
//	error: An error wrapping one of the type text sentinels if parsing fails.
func ParseType(src string, params map[string]TypeDef) (TypeDef, error) {
	return ParseTypeWith(src, func(name string) (TypeDef, bool, error) {
		t, ok := params[name]
		return t, ok, nil
	})
}

// ParseTypeWith parses type text resolving identifiers through lookup before
// falling back to keywords and named types.
func ParseTypeWith(src string, lookup ParamLookup) (TypeDef, error) {
	if strings.TrimSpace(src) == "" {
		return TypeDef{}, verr.ErrParseType(src, verr.ErrEmptyType)
	}
	p := &typeParser{lex: typeLexer{src: src}, lookup: lookup}
	if err := p.advance(); err != nil {
		return TypeDef{}, verr.ErrParseType(src, err)
	}
	t, err := p.parseUnion()
	if err != nil {
		return TypeDef{}, verr.ErrParseType(src, err)
	}
	if p.tok.kind != tokEOF {
		return TypeDef{}, verr.ErrParseType(src, verr.ErrTokenAt(p.tok.text, p.tok.pos))
	}
	return t, nil
}

// ParseTypeParams declares type parameters from name → constraint text. An
// empty constraint declares an unconstrained parameter. Constraints may refer
// to other parameters of the same declaration but not to themselves.
func ParseTypeParams(decls map[string]string) (map[string]TypeDef, error) {
	done := make(map[string]TypeDef, len(decls))
	visiting := make(map[string]bool)

	var declare func(name string) (TypeDef, error)
	declare = func(name string) (TypeDef, error) {
		if t, ok := done[name]; ok {
			return t, nil
		}
		if visiting[name] {
			return TypeDef{}, verr.ErrUnknownTypeParam
		}
		visiting[name] = true
		defer delete(visiting, name)

		var constraint *TypeDef
		if text := strings.TrimSpace(decls[name]); text != "" {
			c, err := ParseTypeWith(text, func(id string) (TypeDef, bool, error) {
				if _, ok := decls[id]; !ok {
					return TypeDef{}, false, nil
				}
				t, err := declare(id)
				return t, err == nil, err
			})
			if err != nil {
				return TypeDef{}, err
			}
			constraint = &c
		}
		t := NewTypeParam(name, constraint)
		done[name] = t
		return t, nil
	}

	for name := range decls {
		if _, err := declare(name); err != nil {
			return nil, verr.ErrTypeParam(name, err)
		}
	}
	return done, nil
}

func (p *typeParser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *typeParser) isPunct(s string) bool {
	return p.tok.kind == tokPunct && p.tok.text == s
}

func (p *typeParser) expect(s string) error {
	if p.tok.kind == tokEOF {
		return verr.ErrUnterminated
	}
	if !p.isPunct(s) {
		return verr.ErrTokenAt(p.tok.text, p.tok.pos)
	}
	return p.advance()
}

func (p *typeParser) parseUnion() (TypeDef, error) {
	return p.parseList("|", p.parseIntersection, NewUnion)
}

func (p *typeParser) parseIntersection() (TypeDef, error) {
	return p.parseList("&", p.parsePostfix, NewIntersection)
}

// parseList parses `[sep] operand (sep operand)*`.
func (p *typeParser) parseList(sep string, operand func() (TypeDef, error), build func([]TypeDef) TypeDef) (TypeDef, error) {
	if p.isPunct(sep) {
		if err := p.advance(); err != nil {
			return TypeDef{}, err
		}
	}
	first, err := operand()
	if err != nil {
		return TypeDef{}, err
	}
	members := []TypeDef{first}
	for p.isPunct(sep) {
		if err := p.advance(); err != nil {
			return TypeDef{}, err
		}
		next, err := operand()
		if err != nil {
			return TypeDef{}, err
		}
		members = append(members, next)
	}
	if len(members) == 1 {
		return first, nil
	}
	return build(members), nil
}

func (p *typeParser) parsePostfix() (TypeDef, error) {
	t, err := p.parsePrimary()
	if err != nil {
		return TypeDef{}, err
	}
	for p.isPunct("[") {
		if err := p.advance(); err != nil {
			return TypeDef{}, err
		}
		if err := p.expect("]"); err != nil {
			return TypeDef{}, err
		}
		t = NewArray(t)
	}
	return t, nil
}

func (p *typeParser) parsePrimary() (TypeDef, error) {
	tok := p.tok
	switch tok.kind {
	case tokEOF:
		return TypeDef{}, verr.ErrUnterminated
	case tokShape:
		return NewObject(tok.text), p.advance()
	case tokString:
		return NewLiteral(PrimitiveString, tok.text), p.advance()
	case tokNumber:
		return numberLiteral(tok.text), p.advance()
	case tokIdent:
		if err := p.advance(); err != nil {
			return TypeDef{}, err
		}
		return p.parseIdent(tok.text)
	case tokPunct:
		switch tok.text {
		case "(":
			if err := p.advance(); err != nil {
				return TypeDef{}, err
			}
			t, err := p.parseUnion()
			if err != nil {
				return TypeDef{}, err
			}
			return t, p.expect(")")
		case "[":
			return p.parseTuple()
		case "-":
			if err := p.advance(); err != nil {
				return TypeDef{}, err
			}
			if p.tok.kind != tokNumber {
				return TypeDef{}, verr.ErrTokenAt(p.tok.text, p.tok.pos)
			}
			lit := numberLiteral("-" + p.tok.text)
			return lit, p.advance()
		}
	}
	return TypeDef{}, verr.ErrTokenAt(tok.text, tok.pos)
}

// parseTuple parses `[a, b]` into an array of the union of its elements,
// printed as written.
func (p *typeParser) parseTuple() (TypeDef, error) {
	if err := p.advance(); err != nil {
		return TypeDef{}, err
	}
	var elems []TypeDef
	for !p.isPunct("]") {
		e, err := p.parseUnion()
		if err != nil {
			return TypeDef{}, err
		}
		elems = append(elems, e)
		if !p.isPunct(",") {
			break
		}
		if err := p.advance(); err != nil {
			return TypeDef{}, err
		}
	}
	if err := p.expect("]"); err != nil {
		return TypeDef{}, err
	}
	parts := make([]string, len(elems))
	for i, e := range elems {
		parts[i] = e.String()
	}
	return NewArray(NewUnion(elems)).WithText("[" + strings.Join(parts, ", ") + "]"), nil
}

func (p *typeParser) parseIdent(name string) (TypeDef, error) {
	if p.lookup != nil {
		t, ok, err := p.lookup(name)
		if err != nil {
			return TypeDef{}, err
		}
		if ok {
			return t, nil
		}
	}
	switch name {
	case "true", "false":
		return NewLiteral(PrimitiveBoolean, name), nil
	case string(PrimitiveString), string(PrimitiveNumber), string(PrimitiveBigInt),
		string(PrimitiveBoolean), string(PrimitiveNull), string(PrimitiveUndefined),
		string(PrimitiveAny), string(PrimitiveUnknown), string(PrimitiveNever),
		string(PrimitiveObject):
		return NewPrimitive(PrimitiveType(name)), nil
	case "void":
		return NewPrimitive(PrimitiveUndefined).WithText("void"), nil
	}
	if !p.isPunct("<") {
		return NewNamed(name), nil
	}
	args, err := p.parseTypeArgs()
	if err != nil {
		return TypeDef{}, err
	}
	if (name == "Array" || name == "ReadonlyArray") && len(args) == 1 {
		arr := NewArray(args[0])
		if name == "ReadonlyArray" {
			arr.Text = "readonly " + arr.String()
		}
		return arr, nil
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return NewNamed(name + "<" + strings.Join(parts, ", ") + ">"), nil
}

func (p *typeParser) parseTypeArgs() ([]TypeDef, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	var args []TypeDef
	for {
		a, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if !p.isPunct(",") {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return args, p.expect(">")
}

func numberLiteral(text string) TypeDef {
	if strings.HasSuffix(text, "n") {
		return NewLiteral(PrimitiveBigInt, text)
	}
	return NewLiteral(PrimitiveNumber, text)
}
