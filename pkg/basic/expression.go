package basic

import (
	"math"
	"strings"
)

// ArithmeticOperator is one of + - * /. The four values below are the only instances.
type ArithmeticOperator struct {
	symbol string
}

// Arithmetic operators.
var (
	OpAdd = ArithmeticOperator{symbol: "+"}
	OpSub = ArithmeticOperator{symbol: "-"}
	OpMul = ArithmeticOperator{symbol: "*"}
	OpDiv = ArithmeticOperator{symbol: "/"}
)

// Symbol returns the operator as written in source.
func (op ArithmeticOperator) Symbol() string { return op.symbol }

func (op ArithmeticOperator) String() string { return op.symbol }

// apply computes left op right. Division is real division.
func (op ArithmeticOperator) apply(left, right float64) (float64, error) {
	switch op {
	case OpAdd:
		return left + right, nil
	case OpSub:
		return left - right, nil
	case OpMul:
		return left * right, nil
	case OpDiv:
		if right == 0 {
			return 0, newError(ErrDivisionByZero, "%s / %s", FormatNumber(left), FormatNumber(right))
		}
		return left / right, nil
	}
	return 0, newError(ErrInvalidOperator, "invalid arithmetic operator %q", op.symbol)
}

// ParseArithmeticOperator maps a symbol to its operator.
func ParseArithmeticOperator(symbol string) (ArithmeticOperator, bool) {
	switch symbol {
	case "+":
		return OpAdd, true
	case "-":
		return OpSub, true
	case "*":
		return OpMul, true
	case "/":
		return OpDiv, true
	}
	return ArithmeticOperator{}, false
}

// ArithmeticExpression is the only compound expression of the dialect:
// exactly one operator between two Number or Variable operands.
type ArithmeticExpression struct {
	Left  Operand
	Op    ArithmeticOperator
	Right Operand
}

// Eval resolves both operands to numbers and applies the operator.
func (e *ArithmeticExpression) Eval(vars Variables) (Primitive, error) {
	left, err := evalNumber(e.Left, vars)
	if err != nil {
		return nil, err
	}
	right, err := evalNumber(e.Right, vars)
	if err != nil {
		return nil, err
	}
	value, err := e.Op.apply(left.Value(), right.Value())
	if err != nil {
		return nil, err
	}
	return NewNumber(value), nil
}

func (e *ArithmeticExpression) String() string {
	return e.Left.String() + " " + e.Op.symbol + " " + e.Right.String()
}

func (*ArithmeticExpression) operand() {}

// evalNumber evaluates op and insists on a numeric result.
func evalNumber(op Operand, vars Variables) (Number, error) {
	value, err := op.Eval(vars)
	if err != nil {
		return Number{}, err
	}
	n, ok := value.(Number)
	if !ok {
		return Number{}, newError(ErrTypeMismatch, "%s is not a number", op.String())
	}
	return n, nil
}

// ParseArithmeticExpression parses "operand operator operand". Any other word
// count, or operands that are not Numbers or Variables, is not a match.
func ParseArithmeticExpression(text string) (*ArithmeticExpression, bool) {
	return parseArithmeticWords(Tokenize(text))
}

func parseArithmeticWords(words []string) (*ArithmeticExpression, bool) {
	if len(words) != 3 {
		return nil, false
	}
	left, ok := parseArithmeticOperand(words[0])
	if !ok {
		return nil, false
	}
	op, ok := ParseArithmeticOperator(words[1])
	if !ok {
		return nil, false
	}
	right, ok := parseArithmeticOperand(words[2])
	if !ok {
		return nil, false
	}
	return &ArithmeticExpression{Left: left, Op: op, Right: right}, true
}

func parseArithmeticOperand(token string) (Operand, bool) {
	if n, ok := ParseNumber(token); ok {
		return n, true
	}
	if v, ok := ParseVariable(token); ok {
		return v, true
	}
	return nil, false
}

// ComparisonOperator is one of = <> < <= > >=.
type ComparisonOperator struct {
	symbol string
}

// Comparison operators.
var (
	OpEqual        = ComparisonOperator{symbol: "="}
	OpNotEqual     = ComparisonOperator{symbol: "<>"}
	OpLess         = ComparisonOperator{symbol: "<"}
	OpLessEqual    = ComparisonOperator{symbol: "<="}
	OpGreater      = ComparisonOperator{symbol: ">"}
	OpGreaterEqual = ComparisonOperator{symbol: ">="}
)

// Symbol returns the canonical spelling of the operator.
func (op ComparisonOperator) Symbol() string { return op.symbol }

func (op ComparisonOperator) String() string { return op.symbol }

// ParseComparisonOperator maps a symbol to its operator. "=>" is accepted as ">=".
func ParseComparisonOperator(symbol string) (ComparisonOperator, bool) {
	switch symbol {
	case "=":
		return OpEqual, true
	case "<>":
		return OpNotEqual, true
	case "<":
		return OpLess, true
	case "<=":
		return OpLessEqual, true
	case ">":
		return OpGreater, true
	case ">=", "=>":
		return OpGreaterEqual, true
	}
	return ComparisonOperator{}, false
}

// Compare applies the operator. Numbers compare numerically and strings
// lexically. A number and a string are never equal and cannot be ordered.
func (op ComparisonOperator) Compare(left, right Primitive) (bool, error) {
	var cmp int
	switch l := left.(type) {
	case Number:
		r, ok := right.(Number)
		if !ok {
			return op.mixed(left, right)
		}
		cmp = compareFloat(l.Value(), r.Value())
	case String:
		r, ok := right.(String)
		if !ok {
			return op.mixed(left, right)
		}
		cmp = strings.Compare(l.Value(), r.Value())
	default:
		return false, newError(ErrTypeMismatch, "cannot compare %s", left.String())
	}

	switch op {
	case OpEqual:
		return cmp == 0, nil
	case OpNotEqual:
		return cmp != 0, nil
	case OpLess:
		return cmp < 0, nil
	case OpLessEqual:
		return cmp <= 0, nil
	case OpGreater:
		return cmp > 0, nil
	case OpGreaterEqual:
		return cmp >= 0, nil
	}
	return false, newError(ErrInvalidOperator, "invalid comparison operator %q", op.symbol)
}

func (op ComparisonOperator) mixed(left, right Primitive) (bool, error) {
	switch op {
	case OpEqual:
		return false, nil
	case OpNotEqual:
		return true, nil
	}
	return false, newError(ErrTypeMismatch, "cannot order %s and %s", left.String(), right.String())
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	case a == b:
		return 0
	}
	// NaN never orders; treat it as unequal to everything.
	if math.IsNaN(a) {
		return -1
	}
	return 1
}
