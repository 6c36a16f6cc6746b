package basic

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Statement keywords.
const (
	KeywordPrint = "PRINT"
	KeywordLet   = "LET"
	KeywordGoto  = "GOTO"
	KeywordFor   = "FOR"
	KeywordNext  = "NEXT"
	KeywordIf    = "IF"
	KeywordThen  = "THEN"
	KeywordTo    = "TO"
	KeywordEnd   = "END"
	KeywordRem   = "REM"
)

// OutputMode selects what PRINT does with its value.
type OutputMode int

const (
	// OutputWrite writes printed values to the runtime writer.
	OutputWrite OutputMode = iota
	// OutputCapture stores printed values on the statement and in the transcript.
	OutputCapture
)

// Runtime is the state a statement executes against.
type Runtime struct {
	Vars Variables
	Mode OutputMode
	Out  io.Writer

	captured []Primitive
}

// NewRuntime creates an empty runtime. A nil writer means os.Stdout.
func NewRuntime(mode OutputMode, out io.Writer) *Runtime {
	if out == nil {
		out = os.Stdout
	}
	return &Runtime{Vars: make(Variables), Mode: mode, Out: out}
}

// Captured returns the values printed in capture mode, in order.
func (rt *Runtime) Captured() []Primitive {
	return append([]Primitive(nil), rt.captured...)
}

// Statement is one of Print, Let, Goto, For, Next, IfThen, End and Rem.
type Statement interface {
	// Keyword is the statement keyword, e.g. "PRINT".
	Keyword() string
	// Execute performs the statement's effect on rt. Cursor movement is the engine's job.
	Execute(rt *Runtime) error
	// String renders the statement as source, without its label.
	String() string
	statement()
}

// Print writes (or captures) the value of its argument.
type Print struct {
	Arg Operand
	// Output holds the last printed value in capture mode.
	Output Primitive
}

// Keyword returns PRINT.
func (*Print) Keyword() string { return KeywordPrint }

// Execute evaluates Arg and prints it, or captures it in capture mode.
func (s *Print) Execute(rt *Runtime) error {
	value, err := s.Arg.Eval(rt.Vars)
	if err != nil {
		return err
	}
	if rt.Mode == OutputCapture {
		s.Output = value
		rt.captured = append(rt.captured, value)
		return nil
	}
	_, err = fmt.Fprintln(rt.Out, value.Text())
	return err
}

// String renders the statement as source.
func (s *Print) String() string { return KeywordPrint + " " + s.Arg.String() }

// Let binds a variable to the value of an expression or primitive.
type Let struct {
	Var   Variable
	Value Operand
}

// Keyword returns LET.
func (*Let) Keyword() string { return KeywordLet }

// Execute evaluates Value and binds it to Var.
func (s *Let) Execute(rt *Runtime) error {
	value, err := s.Value.Eval(rt.Vars)
	if err != nil {
		return err
	}
	rt.Vars.Set(s.Var.Name(), value)
	return nil
}

func (s *Let) String() string {
	return KeywordLet + " " + s.Var.String() + " = " + s.Value.String()
}

// Goto jumps to the label its target evaluates to.
type Goto struct {
	Target Operand
	// Resolved is the label computed by the last execution.
	Resolved string
}

func (*Goto) Keyword() string { return KeywordGoto }

// Execute evaluates Target and stores the label it names in Resolved.
func (s *Goto) Execute(rt *Runtime) error {
	n, err := evalNumber(s.Target, rt.Vars)
	if err != nil {
		return err
	}
	label, ok := labelOf(n)
	if !ok {
		return newError(ErrControlFlow, "%s is not a line label", n.Text()).WithKeyword(KeywordGoto)
	}
	s.Resolved = label
	return nil
}

func (s *Goto) String() string { return KeywordGoto + " " + s.Target.String() }

// For starts a counting loop. The engine records where NEXT jumps back to.
type For struct {
	Var   Variable
	Start Number
	End   Number
}

func (*For) Keyword() string { return KeywordFor }

// Execute sets the loop variable to Start.
func (s *For) Execute(rt *Runtime) error {
	rt.Vars.Set(s.Var.Name(), s.Start)
	return nil
}

func (s *For) String() string {
	return fmt.Sprintf("%s %s = %s %s %s", KeywordFor, s.Var, s.Start, KeywordTo, s.End)
}

// Next increments the loop variable by one. The engine compares it against the end value.
type Next struct {
	Var Variable
}

func (*Next) Keyword() string { return KeywordNext }

// Execute adds one to the loop variable, which must hold a number.
func (s *Next) Execute(rt *Runtime) error {
	current, err := evalNumber(s.Var, rt.Vars)
	if err != nil {
		return err
	}
	rt.Vars.Set(s.Var.Name(), NewNumber(current.Value()+1))
	return nil
}

func (s *Next) String() string { return KeywordNext + " " + s.Var.String() }

// IfThen compares two primitives and jumps to Label when the comparison holds.
type IfThen struct {
	Left  Operand
	Op    ComparisonOperator
	Right Operand
	Label Number
	// Result is the outcome of the last execution.
	Result bool
}

func (*IfThen) Keyword() string { return KeywordIf }

// Execute evaluates both sides and stores the comparison in Result.
func (s *IfThen) Execute(rt *Runtime) error {
	left, err := s.Left.Eval(rt.Vars)
	if err != nil {
		return err
	}
	right, err := s.Right.Eval(rt.Vars)
	if err != nil {
		return err
	}
	result, err := s.Op.Compare(left, right)
	if err != nil {
		return err
	}
	s.Result = result
	return nil
}

// Target returns the jump label.
func (s *IfThen) Target() string {
	label, _ := labelOf(s.Label)
	return label
}

func (s *IfThen) String() string {
	return fmt.Sprintf("%s %s %s %s %s %s", KeywordIf, s.Left, s.Op, s.Right, KeywordThen, s.Label)
}

// End halts the program.
type End struct{}

// End and Rem have no effect of their own. The engine stops at End.
func (*End) Keyword() string        { return KeywordEnd }
func (*End) Execute(*Runtime) error { return nil }
func (*End) String() string         { return KeywordEnd }

// Rem is a comment.
type Rem struct {
	Comment string
}

func (*Rem) Keyword() string        { return KeywordRem }
func (*Rem) Execute(*Runtime) error { return nil }

func (s *Rem) String() string {
	return strings.TrimSpace(KeywordRem + " " + s.Comment)
}

func (*Print) statement()  {}
func (*Let) statement()    {}
func (*Goto) statement()   {}
func (*For) statement()    {}
func (*Next) statement()   {}
func (*IfThen) statement() {}
func (*End) statement()    {}
func (*Rem) statement()    {}

// labelOf converts a number into the label it names. Only non-negative
// integral values name labels.
func labelOf(n Number) (string, bool) {
	v := n.Value()
	if v < 0 || v != math.Trunc(v) || v >= maxExactInteger {
		return "", false
	}
	return strconv.FormatInt(int64(v), 10), true
}
