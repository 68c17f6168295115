package tool

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Calculate evaluates arithmetic expressions. It supports +, -, *, /, %, ^
// (exponentiation), unary minus and parentheses over floating point numbers.
// Evaluation failures are returned as model-visible text so the LLM can
// correct the expression and retry.
type Calculate struct{}

// NewCalculate creates the calculate tool.
func NewCalculate() *Calculate { return &Calculate{} }

// Name implements Tool.
func (t *Calculate) Name() string { return "calculate" }

// Description implements Tool.
func (t *Calculate) Description() string {
	return "Evaluate a mathematical expression and return the result."
}

// Parameters implements Tool.
func (t *Calculate) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{
				"type":        "string",
				"description": "The arithmetic expression to evaluate, e.g. '(2 + 3) * 4'",
			},
		},
		"required": []string{"expression"},
	}
}

// Call implements Tool.
func (t *Calculate) Call(_ context.Context, args map[string]any) (any, error) {
	expr, ok := stringArg(args, "expression")
	if !ok {
		return nil, NewToolError(t.Name(), "missing required argument 'expression'", "invalid_arguments")
	}

	result, err := evalExpr(expr)
	if err != nil {
		return fmt.Sprintf("Error evaluating '%s': %v", expr, err), nil
	}
	return strconv.FormatFloat(result, 'f', -1, 64), nil
}

// evalExpr parses and evaluates an arithmetic expression in one pass.
//
// Grammar (highest precedence last):
//
//	expr   = term   { ("+" | "-") term }
//	term   = power  { ("*" | "/" | "%") power }
//	power  = unary  [ "^" power ]
//	unary  = [ "-" ] atom
//	atom   = number | "(" expr ")"
func evalExpr(input string) (float64, error) {
	p := &exprParser{input: input}
	v, err := p.expr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected %q at position %d", p.input[p.pos], p.pos)
	}
	return v, nil
}

type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *exprParser) peek() (byte, bool) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0, false
	}
	return p.input[p.pos], true
}

func (p *exprParser) expr() (float64, error) {
	v, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		op, ok := p.peek()
		if !ok || (op != '+' && op != '-') {
			return v, nil
		}
		p.pos++
		rhs, err := p.term()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			v += rhs
		} else {
			v -= rhs
		}
	}
}

func (p *exprParser) term() (float64, error) {
	v, err := p.power()
	if err != nil {
		return 0, err
	}
	for {
		op, ok := p.peek()
		if !ok || (op != '*' && op != '/' && op != '%') {
			return v, nil
		}
		p.pos++
		rhs, err := p.power()
		if err != nil {
			return 0, err
		}
		switch op {
		case '*':
			v *= rhs
		case '/':
			if rhs == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			v /= rhs
		case '%':
			if rhs == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			v = math.Mod(v, rhs)
		}
	}
}

func (p *exprParser) power() (float64, error) {
	v, err := p.unary()
	if err != nil {
		return 0, err
	}
	if op, ok := p.peek(); ok && op == '^' {
		p.pos++
		// Right associative.
		exp, err := p.power()
		if err != nil {
			return 0, err
		}
		return math.Pow(v, exp), nil
	}
	return v, nil
}

func (p *exprParser) unary() (float64, error) {
	if op, ok := p.peek(); ok && op == '-' {
		p.pos++
		v, err := p.unary()
		if err != nil {
			return 0, err
		}
		return -v, nil
	}
	return p.atom()
}

func (p *exprParser) atom() (float64, error) {
	c, ok := p.peek()
	if !ok {
		return 0, fmt.Errorf("unexpected end of expression")
	}
	if c == '(' {
		p.pos++
		v, err := p.expr()
		if err != nil {
			return 0, err
		}
		if c, ok := p.peek(); !ok || c != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	}

	start := p.pos
	for p.pos < len(p.input) && (isDigit(p.input[p.pos]) || p.input[p.pos] == '.') {
		p.pos++
	}
	if p.pos == start {
		return 0, fmt.Errorf("unexpected %q at position %d", c, p.pos)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(p.input[start:p.pos]), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", p.input[start:p.pos])
	}
	return v, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
