package basic

import (
	"math"
	"strconv"
	"strings"
)

// Operand is anything that can appear as a statement argument: a Number, a
// String, a Variable or an *ArithmeticExpression.
type Operand interface {
	// Eval reduces the operand to a primitive value.
	Eval(vars Variables) (Primitive, error)
	// String renders the operand as BASIC source.
	String() string
	operand()
}

// Primitive is a fully evaluated value: a Number or a String.
type Primitive interface {
	Operand
	// Text is the value as PRINT shows it.
	Text() string
	primitive()
}

// Number is a numeric literal or computed numeric value.
type Number struct {
	value float64
}

// NewNumber wraps v.
func NewNumber(v float64) Number { return Number{value: v} }

// Value returns the wrapped value.
func (n Number) Value() float64 { return n.value }

// Eval returns n itself.
func (n Number) Eval(Variables) (Primitive, error) { return n, nil }

// Text formats n with FormatNumber.
func (n Number) Text() string { return FormatNumber(n.value) }

func (n Number) String() string { return n.Text() }

func (Number) operand()   {}
func (Number) primitive() {}

// String is a string literal with its quotes removed.
type String struct {
	value string
}

// NewString wraps s.
func NewString(s string) String { return String{value: s} }

// Value returns the decoded text.
func (s String) Value() string { return s.value }

// Eval returns s itself.
func (s String) Eval(Variables) (Primitive, error) { return s, nil }

// Text returns the text verbatim.
func (s String) Text() string { return s.value }

func (s String) String() string { return `"` + s.value + `"` }

func (String) operand()   {}
func (String) primitive() {}

// Variable is a late-bound reference into Variables.
type Variable struct {
	name string
}

// NewVariable creates a reference to name.
func NewVariable(name string) Variable { return Variable{name: name} }

// Name returns the variable name.
func (v Variable) Name() string { return v.name }

// Eval looks the variable up.
func (v Variable) Eval(vars Variables) (Primitive, error) {
	value, ok := vars.Get(v.name)
	if !ok {
		return nil, newError(ErrUndefinedVariable, "the variable %s is undefined", v.name)
	}
	return value, nil
}

func (v Variable) String() string { return v.name }

func (Variable) operand() {}

// Variables maps variable names to their current values. It only ever holds primitives.
type Variables map[string]Primitive

// Get returns the value bound to name.
func (vars Variables) Get(name string) (Primitive, bool) {
	value, ok := vars[name]
	return value, ok
}

// Set binds name to value.
func (vars Variables) Set(name string, value Primitive) {
	vars[name] = value
}

// ParsePrimitive tries Number, Variable and String in that order.
// The boolean is false when token is none of them.
func ParsePrimitive(token string) (Operand, bool) {
	if n, ok := ParseNumber(token); ok {
		return n, true
	}
	if v, ok := ParseVariable(token); ok {
		return v, true
	}
	if s, ok := ParseString(token); ok {
		return s, true
	}
	return nil, false
}

// ParseNumber accepts digit-leading numeric literals such as 10 or 3.5.
func ParseNumber(token string) (Number, bool) {
	if token == "" || !isDigit(token[0]) {
		return Number{}, false
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return Number{}, false
	}
	return NewNumber(v), true
}

// ParseVariable accepts any token starting with an uppercase letter.
func ParseVariable(token string) (Variable, bool) {
	if token == "" || !isUpper(token[0]) {
		return Variable{}, false
	}
	return NewVariable(token), true
}

// ParseString accepts a token that starts and ends with a double quote.
// Everything between the first and the last quote is kept verbatim.
func ParseString(token string) (String, bool) {
	if len(token) < 2 || !strings.HasPrefix(token, `"`) || !strings.HasSuffix(token, `"`) {
		return String{}, false
	}
	return NewString(token[1 : len(token)-1]), true
}

// maxExactInteger bounds the values FormatNumber prints in integer form.
const maxExactInteger = 1e15

// FormatNumber renders v the way PRINT shows numbers: integral values without
// a decimal point, everything else in the shortest form that parses back to v.
func FormatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < maxExactInteger {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isUpper(b byte) bool { return b >= 'A' && b <= 'Z' }
