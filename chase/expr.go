// chase/expr.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package chase

import (
	"fmt"
	gomath "math"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// Expr is a compiled guide selection expression such as
// "flaps == 0 && weight > 1000". Expressions are arithmetic and logical
// formulas over numeric variables:
//
//	or         := and ( "||" and )*
//	and        := equality ( "&&" equality )*
//	equality   := relational ( ("==" | "===" | "!=" | "!==") relational )*
//	relational := additive ( ("<" | "<=" | ">" | ">=") additive )*
//	additive   := term ( ("+" | "-") term )*
//	term       := unary ( ("*" | "/") unary )*
//	unary      := ("!" | "-" | "+") unary | primary
//	primary    := number | "true" | "false" | identifier | "(" or ")"
//
// Booleans are represented as 1 and 0, so the strict and loose equality
// operators behave the same. A value is true if it is neither zero nor
// NaN.
type Expr struct {
	src  string
	root exprNode
}

// ParseExpr compiles an expression, returning an error wrapping
// ErrInvalidExpression if it is malformed.
func ParseExpr(src string) (*Expr, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidExpression, src, err)
	}
	p := &exprParser{toks: toks}
	root, err := p.parseOr()
	if err == nil && p.peek() != "" {
		err = fmt.Errorf("unexpected %q", p.peek())
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidExpression, src, err)
	}
	return &Expr{src: src, root: root}, nil
}

func (e *Expr) String() string { return e.src }

// Eval evaluates the expression and reports whether it is true. If the
// expression refers to a variable not present in vars, the returned error
// wraps ErrUnboundVariable.
func (e *Expr) Eval(vars map[string]float64) (bool, error) {
	v, err := e.root.eval(vars)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

// Variables returns the sorted names of the variables the expression
// refers to.
func (e *Expr) Variables() []string {
	var names []string
	e.root.walk(func(n exprNode) {
		if id, ok := n.(identNode); ok && !slices.Contains(names, string(id)) {
			names = append(names, string(id))
		}
	})
	slices.Sort(names)
	return names
}

func truthy(v float64) bool {
	return v != 0 && !gomath.IsNaN(v)
}

func fromBool(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

///////////////////////////////////////////////////////////////////////////
// Nodes

type exprNode interface {
	eval(vars map[string]float64) (float64, error)
	walk(func(exprNode))
}

type numberNode float64

func (n numberNode) eval(map[string]float64) (float64, error) { return float64(n), nil }
func (n numberNode) walk(f func(exprNode))                    { f(n) }

type identNode string

func (n identNode) eval(vars map[string]float64) (float64, error) {
	if v, ok := vars[string(n)]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnboundVariable, string(n))
}

func (n identNode) walk(f func(exprNode)) { f(n) }

type unaryNode struct {
	op string
	x  exprNode
}

func (n unaryNode) eval(vars map[string]float64) (float64, error) {
	v, err := n.x.eval(vars)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case "!":
		return fromBool(!truthy(v)), nil
	case "-":
		return -v, nil
	default:
		return v, nil
	}
}

func (n unaryNode) walk(f func(exprNode)) {
	f(n)
	n.x.walk(f)
}

type binaryNode struct {
	op   string
	l, r exprNode
}

func (n binaryNode) eval(vars map[string]float64) (float64, error) {
	l, err := n.l.eval(vars)
	if err != nil {
		return 0, err
	}

	// Logical operators short-circuit and yield one of their operands.
	switch n.op {
	case "&&":
		if !truthy(l) {
			return l, nil
		}
		return n.r.eval(vars)
	case "||":
		if truthy(l) {
			return l, nil
		}
		return n.r.eval(vars)
	}

	r, err := n.r.eval(vars)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		return l / r, nil
	case "<":
		return fromBool(l < r), nil
	case "<=":
		return fromBool(l <= r), nil
	case ">":
		return fromBool(l > r), nil
	case ">=":
		return fromBool(l >= r), nil
	case "==", "===":
		return fromBool(l == r), nil
	case "!=", "!==":
		return fromBool(l != r), nil
	default:
		panic("unhandled operator " + n.op)
	}
}

func (n binaryNode) walk(f func(exprNode)) {
	f(n)
	n.l.walk(f)
	n.r.walk(f)
}

///////////////////////////////////////////////////////////////////////////
// Lexing and parsing

// Longest operators first so that prefixes don't match early.
var operators = []string{"===", "!==", "==", "!=", "<=", ">=", "&&", "||", "<", ">", "!", "+", "-", "*", "/", "(", ")"}

func isIdentStart(r rune) bool { return r == '_' || r == '$' || unicode.IsLetter(r) }
func isIdentPart(r rune) bool  { return isIdentStart(r) || unicode.IsDigit(r) }

func tokenize(src string) ([]string, error) {
	var toks []string
	rs := []rune(src)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++

		case unicode.IsDigit(r) || (r == '.' && i+1 < len(rs) && unicode.IsDigit(rs[i+1])):
			start := i
			for i < len(rs) && (unicode.IsDigit(rs[i]) || rs[i] == '.') {
				i++
			}
			toks = append(toks, string(rs[start:i]))

		case isIdentStart(r):
			start := i
			for i < len(rs) && isIdentPart(rs[i]) {
				i++
			}
			toks = append(toks, string(rs[start:i]))

		default:
			rest := string(rs[i:])
			idx := slices.IndexFunc(operators, func(op string) bool { return strings.HasPrefix(rest, op) })
			if idx == -1 {
				return nil, fmt.Errorf("unexpected character %q", r)
			}
			toks = append(toks, operators[idx])
			i += len([]rune(operators[idx]))
		}
	}
	return toks, nil
}

type exprParser struct {
	toks []string
	pos  int
}

func (p *exprParser) peek() string {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return ""
}

func (p *exprParser) next() string {
	t := p.peek()
	p.pos++
	return t
}

// binary parses a left-associative sequence of operands joined by any of
// the given operators.
func (p *exprParser) binary(operand func() (exprNode, error), ops ...string) (exprNode, error) {
	l, err := operand()
	if err != nil {
		return nil, err
	}
	for slices.Contains(ops, p.peek()) {
		op := p.next()
		r, err := operand()
		if err != nil {
			return nil, err
		}
		l = binaryNode{op: op, l: l, r: r}
	}
	return l, nil
}

func (p *exprParser) parseOr() (exprNode, error) {
	return p.binary(p.parseAnd, "||")
}

func (p *exprParser) parseAnd() (exprNode, error) {
	return p.binary(p.parseEquality, "&&")
}

func (p *exprParser) parseEquality() (exprNode, error) {
	return p.binary(p.parseRelational, "==", "===", "!=", "!==")
}

func (p *exprParser) parseRelational() (exprNode, error) {
	return p.binary(p.parseAdditive, "<", "<=", ">", ">=")
}

func (p *exprParser) parseAdditive() (exprNode, error) {
	return p.binary(p.parseTerm, "+", "-")
}

func (p *exprParser) parseTerm() (exprNode, error) {
	return p.binary(p.parseUnary, "*", "/")
}

func (p *exprParser) parseUnary() (exprNode, error) {
	switch op := p.peek(); op {
	case "!", "-", "+":
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: op, x: x}, nil
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (exprNode, error) {
	t := p.next()
	switch {
	case t == "":
		return nil, fmt.Errorf("unexpected end of expression")
	case t == "(":
		x, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if c := p.next(); c != ")" {
			return nil, fmt.Errorf("expected \")\", got %q", c)
		}
		return x, nil
	case t == "true":
		return numberNode(1), nil
	case t == "false":
		return numberNode(0), nil
	case isIdentStart([]rune(t)[0]):
		return identNode(t), nil
	}

	v, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return nil, fmt.Errorf("unexpected %q", t)
	}
	return numberNode(v), nil
}
