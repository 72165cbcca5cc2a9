package amr

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLParen
	tokRParen
	tokSlash
	tokRole
	tokString
	tokSymbol
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokSlash:
		return "'/'"
	case tokRole:
		return "role"
	case tokString:
		return "string"
	case tokSymbol:
		return "symbol"
	default:
		return "unknown"
	}
}

type token struct {
	kind  tokenKind
	value string
	pos   int
}

type lexer struct {
	src  []rune
	pos  int
	peek *token
}

func newLexer(s string) *lexer {
	return &lexer{src: []rune(s)}
}

func (l *lexer) Peek() (token, error) {
	if l.peek != nil {
		return *l.peek, nil
	}
	t, err := l.scan()
	if err != nil {
		return token{}, err
	}
	l.peek = &t
	return t, nil
}

func (l *lexer) Next() (token, error) {
	if l.peek != nil {
		t := *l.peek
		l.peek = nil
		return t, nil
	}
	return l.scan()
}

func (l *lexer) scan() (token, error) {
	for l.pos < len(l.src) && unicode.IsSpace(l.src[l.pos]) {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}

	start := l.pos
	switch c := l.src[l.pos]; c {
	case '(':
		l.pos++
		return token{kind: tokLParen, value: "(", pos: start}, nil
	case ')':
		l.pos++
		return token{kind: tokRParen, value: ")", pos: start}, nil
	case '/':
		l.pos++
		return token{kind: tokSlash, value: "/", pos: start}, nil
	case '"':
		return l.scanString()
	case ':':
		l.pos++
		name := l.scanBare()
		return token{kind: tokRole, value: ":" + stripAlignment(name), pos: start}, nil
	default:
		sym := l.scanBare()
		if sym == "" {
			return token{}, fmt.Errorf("amr: unexpected character %q at offset %d", c, start)
		}
		return token{kind: tokSymbol, value: stripAlignment(sym), pos: start}, nil
	}
}

func (l *lexer) scanBare() string {
	start := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if unicode.IsSpace(c) || c == '(' || c == ')' || c == '"' {
			break
		}
		if c == '/' && l.pos > start {
			break
		}
		l.pos++
	}
	return string(l.src[start:l.pos])
}

func (l *lexer) scanString() (token, error) {
	start := l.pos
	l.pos++
	escaped := false
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		l.pos++
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			lit := string(l.src[start:l.pos])
			if l.pos < len(l.src) && l.src[l.pos] == '~' {
				l.scanBare()
			}
			return token{kind: tokString, value: lit, pos: start}, nil
		}
	}
	return token{}, fmt.Errorf("amr: unterminated string at offset %d", start)
}

// stripAlignment removes surface alignments such as `~e.3` from symbols and
// roles.
func stripAlignment(s string) string {
	i := strings.LastIndex(s, "~")
	if i <= 0 || i == len(s)-1 {
		return s
	}
	rest := s[i+1:]
	if strings.HasPrefix(rest, "e.") || unicode.IsDigit(rune(rest[0])) {
		return s[:i]
	}
	return s
}

type rawRelation struct {
	source string
	role   string
	target string
	quoted bool
}

type parser struct {
	lex       *lexer
	top       string
	instances []Instance
	relations []rawRelation
}

func (p *parser) expect(kind tokenKind) (token, error) {
	t, err := p.lex.Next()
	if err != nil {
		return token{}, err
	}
	if t.kind != kind {
		return token{}, fmt.Errorf("amr: expected %s at offset %d, got %s %q", kind, t.pos, t.kind, t.value)
	}
	return t, nil
}

func (p *parser) parseGraph() error {
	top, err := p.parseNode()
	if err != nil {
		return err
	}
	p.top = top

	t, err := p.lex.Next()
	if err != nil {
		return err
	}
	if t.kind != tokEOF {
		return fmt.Errorf("amr: trailing %s %q at offset %d", t.kind, t.value, t.pos)
	}
	return nil
}

func (p *parser) parseNode() (string, error) {
	if _, err := p.expect(tokLParen); err != nil {
		return "", err
	}
	v, err := p.expect(tokSymbol)
	if err != nil {
		return "", err
	}
	if _, err := p.expect(tokSlash); err != nil {
		return "", err
	}
	concept, err := p.lex.Next()
	if err != nil {
		return "", err
	}
	if concept.kind != tokSymbol && concept.kind != tokString {
		return "", fmt.Errorf("amr: missing concept for %q at offset %d", v.value, concept.pos)
	}
	p.instances = append(p.instances, Instance{Source: v.value, Concept: concept.value})

	for {
		t, err := p.lex.Peek()
		if err != nil {
			return "", err
		}
		if t.kind == tokRParen {
			p.lex.Next()
			return v.value, nil
		}
		if t.kind != tokRole {
			return "", fmt.Errorf("amr: expected role or ')' at offset %d, got %s %q", t.pos, t.kind, t.value)
		}
		p.lex.Next()

		target, err := p.lex.Peek()
		if err != nil {
			return "", err
		}
		switch target.kind {
		case tokLParen:
			child, err := p.parseNode()
			if err != nil {
				return "", err
			}
			p.relations = append(p.relations, rawRelation{source: v.value, role: t.value, target: child})
		case tokString:
			p.lex.Next()
			p.relations = append(p.relations, rawRelation{source: v.value, role: t.value, target: target.value, quoted: true})
		case tokSymbol:
			p.lex.Next()
			p.relations = append(p.relations, rawRelation{source: v.value, role: t.value, target: target.value})
		default:
			return "", fmt.Errorf("amr: missing target for role %s at offset %d", t.value, target.pos)
		}
	}
}
