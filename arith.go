package xlmap

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Arithmetic failures. ErrDivisionByZero and ErrNotFinite are evaluation
// errors (they surface as #NUM!); ErrSyntax covers malformed input.
var (
	ErrDivisionByZero = errors.New("division by zero")
	ErrNotFinite      = errors.New("result is not a finite number")
	ErrSyntax         = errors.New("syntax error")
)

// EvalArithmetic evaluates an expression made of floating-point literals,
// the four binary operators, unary sign and parentheses. Names of any kind
// are rejected.
func EvalArithmetic(input string) (float64, error) {
	p := arithParser{input: input}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return 0, p.errorf("unexpected %q", p.input[p.pos])
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNotFinite
	}
	return v, nil
}

type arithParser struct {
	input string
	pos   int
	depth int
}

// maxDepth bounds parenthesis and unary nesting.
const maxDepth = 256

func (p *arithParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", ErrSyntax, p.pos, fmt.Sprintf(format, args...))
}

func (p *arithParser) skipSpaces() {
	for p.pos < len(p.input) {
		switch p.input[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *arithParser) peek() byte {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

// expr := term (('+' | '-') term)*
func (p *arithParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

// term := unary (('*' | '/') unary)*
func (p *arithParser) parseTerm() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek()
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		if op == '*' {
			left *= right
			continue
		}
		if right == 0 {
			return 0, ErrDivisionByZero
		}
		left /= right
	}
}

// unary := ('+' | '-') unary | primary
func (p *arithParser) parseUnary() (float64, error) {
	op := p.peek()
	if op != '+' && op != '-' {
		return p.parsePrimary()
	}
	p.pos++
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxDepth {
		return 0, p.errorf("expression nested too deeply")
	}
	v, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	if op == '-' {
		return -v, nil
	}
	return v, nil
}

// primary := number | '(' expr ')'
func (p *arithParser) parsePrimary() (float64, error) {
	switch c := p.peek(); {
	case c == 0:
		return 0, p.errorf("unexpected end of expression")
	case c == '(':
		p.pos++
		p.depth++
		defer func() { p.depth-- }()
		if p.depth > maxDepth {
			return 0, p.errorf("expression nested too deeply")
		}
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, p.errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	case isDigit(c) || c == '.':
		return p.parseNumber()
	default:
		return 0, p.errorf("unexpected %q", c)
	}
}

func (p *arithParser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) && (isDigit(p.input[p.pos]) || p.input[p.pos] == '.') {
		p.pos++
	}
	// exponent: e, E followed by optional sign and digits
	if p.pos < len(p.input) && (p.input[p.pos] == 'e' || p.input[p.pos] == 'E') {
		mark := p.pos
		p.pos++
		if p.pos < len(p.input) && (p.input[p.pos] == '+' || p.input[p.pos] == '-') {
			p.pos++
		}
		digits := p.pos
		for p.pos < len(p.input) && isDigit(p.input[p.pos]) {
			p.pos++
		}
		if p.pos == digits {
			p.pos = mark
		}
	}
	lit := p.input[start:p.pos]
	v, err := strconv.ParseFloat(lit, 64)
	if errors.Is(err, strconv.ErrRange) {
		return 0, ErrNotFinite
	}
	if err != nil {
		p.pos = start
		return 0, p.errorf("invalid number %q", lit)
	}
	return v, nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
