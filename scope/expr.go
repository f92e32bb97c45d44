package scope

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Expr is one node of a compiled expression. A node is either a
// constant (Operator empty) or an operator applied to arguments.
type Expr struct {
	Operator string
	Args     []Expr
	Const    any
}

// Stmt is one compiled mutation statement from an st-on-* attribute:
// assign the value of Expr to Field.
type Stmt struct {
	Field string
	Expr  Expr
}

// ParseExpr compiles the binding expression language: field references
// with dot notation, !, == and != against literals, && and ||, and
// parentheses. String literals are single-quoted.
func ParseExpr(src string) (Expr, error) {
	p := &parser{src: src}
	expr, err := p.parseOr()
	if err != nil {
		return Expr{}, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return Expr{}, fmt.Errorf("unexpected input at %q", p.src[p.pos:])
	}
	return expr, nil
}

// ParseStatements compiles a semicolon-separated list of assignments,
// e.g. "open = !open; query = ''".
func ParseStatements(src string) ([]Stmt, error) {
	var stmts []Stmt
	for _, part := range strings.Split(src, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		field, rhs, ok := splitAssign(part)
		if !ok {
			return nil, fmt.Errorf("statement %q is not an assignment", part)
		}
		expr, err := ParseExpr(rhs)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, Stmt{Field: field, Expr: expr})
	}
	if len(stmts) == 0 {
		return nil, fmt.Errorf("no statements in %q", src)
	}
	return stmts, nil
}

// splitAssign splits "field = expr" at the first single =, leaving
// == and != to the expression parser.
func splitAssign(s string) (field, rhs string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != '=' {
			continue
		}
		if i+1 < len(s) && s[i+1] == '=' {
			i++
			continue
		}
		if i > 0 && (s[i-1] == '!' || s[i-1] == '=') {
			continue
		}
		field = strings.TrimSpace(s[:i])
		rhs = strings.TrimSpace(s[i+1:])
		if field == "" || rhs == "" || !isIdent(field) {
			return "", "", false
		}
		return field, rhs, true
	}
	return "", "", false
}

func isIdent(s string) bool {
	for i, r := range s {
		if unicode.IsLetter(r) || r == '_' || r == '.' {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return len(s) > 0
}

type parser struct {
	src string
	pos int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) peek(s string) bool {
	p.skipSpace()
	return strings.HasPrefix(p.src[p.pos:], s)
}

func (p *parser) eat(s string) bool {
	if p.peek(s) {
		p.pos += len(s)
		return true
	}
	return false
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return Expr{}, err
	}
	for p.eat("||") {
		right, err := p.parseAnd()
		if err != nil {
			return Expr{}, err
		}
		left = Expr{Operator: "Or", Args: []Expr{left, right}}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return Expr{}, err
	}
	for p.eat("&&") {
		right, err := p.parseEquality()
		if err != nil {
			return Expr{}, err
		}
		left = Expr{Operator: "And", Args: []Expr{left, right}}
	}
	return left, nil
}

func (p *parser) parseEquality() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return Expr{}, err
	}
	if p.eat("==") {
		right, err := p.parseUnary()
		if err != nil {
			return Expr{}, err
		}
		return Expr{Operator: "Eq", Args: []Expr{left, right}}, nil
	}
	if p.eat("!=") {
		right, err := p.parseUnary()
		if err != nil {
			return Expr{}, err
		}
		return Expr{Operator: "Ne", Args: []Expr{left, right}}, nil
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == '!' && !strings.HasPrefix(p.src[p.pos:], "!=") {
		p.pos++
		inner, err := p.parseUnary()
		if err != nil {
			return Expr{}, err
		}
		return Expr{Operator: "Not", Args: []Expr{inner}}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return Expr{}, fmt.Errorf("unexpected end of expression")
	}

	if p.eat("(") {
		inner, err := p.parseOr()
		if err != nil {
			return Expr{}, err
		}
		if !p.eat(")") {
			return Expr{}, fmt.Errorf("missing closing parenthesis")
		}
		return inner, nil
	}

	c := p.src[p.pos]

	if c == '\'' {
		end := strings.IndexByte(p.src[p.pos+1:], '\'')
		if end < 0 {
			return Expr{}, fmt.Errorf("unterminated string literal")
		}
		lit := p.src[p.pos+1 : p.pos+1+end]
		p.pos += end + 2
		return Expr{Const: lit}, nil
	}

	if unicode.IsDigit(rune(c)) || c == '-' {
		start := p.pos
		p.pos++
		for p.pos < len(p.src) && (unicode.IsDigit(rune(p.src[p.pos])) || p.src[p.pos] == '.') {
			p.pos++
		}
		n, err := strconv.ParseFloat(p.src[start:p.pos], 64)
		if err != nil {
			return Expr{}, fmt.Errorf("invalid number literal: %s", p.src[start:p.pos])
		}
		return Expr{Const: n}, nil
	}

	if unicode.IsLetter(rune(c)) || c == '_' {
		start := p.pos
		for p.pos < len(p.src) {
			r := rune(p.src[p.pos])
			if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' {
				p.pos++
				continue
			}
			break
		}
		word := p.src[start:p.pos]
		switch word {
		case "true":
			return Expr{Const: true}, nil
		case "false":
			return Expr{Const: false}, nil
		}
		return Expr{Operator: "Load", Args: []Expr{{Const: word}}}, nil
	}

	return Expr{}, fmt.Errorf("unexpected character %q", string(c))
}
