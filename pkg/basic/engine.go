package basic

import (
	"io"

	"github.com/antibyte/linebasic/pkg/logger"
)

// State is the engine's run state.
type State int

const (
	Running State = iota
	Halted
)

func (s State) String() string {
	if s == Halted {
		return "halted"
	}
	return "running"
}

// loopContext is the bookkeeping of an active FOR loop.
type loopContext struct {
	resume int    // position of the first body line
	end    Number // loop end value
}

// Engine executes a Program. An engine owns its variables and loop table and
// runs its program once.
type Engine struct {
	program *Program
	rt      *Runtime
	loops   map[string]loopContext
	state   State
	steps   int
}

// NewEngine prepares p for execution. PRINT writes to out in OutputWrite mode;
// a nil out means os.Stdout.
func NewEngine(p *Program, mode OutputMode, out io.Writer) *Engine {
	e := &Engine{
		program: p,
		rt:      NewRuntime(mode, out),
		loops:   make(map[string]loopContext),
	}
	if _, ok := p.FirstLine(); !ok {
		e.state = Halted
	}
	return e
}

// State returns the run state.
func (e *Engine) State() State { return e.state }

// Steps returns the number of statements executed so far.
func (e *Engine) Steps() int { return e.steps }

// Label returns the label under the cursor. After END it is the END line.
func (e *Engine) Label() (string, bool) { return e.program.CurrentLabel() }

// Variables exposes the variable store.
func (e *Engine) Variables() Variables { return e.rt.Vars }

// Captured returns the transcript of values printed in capture mode.
func (e *Engine) Captured() []Primitive { return e.rt.Captured() }

// Program returns the program being executed.
func (e *Engine) Program() *Program { return e.program }

// Run executes statements until the program halts or fails. A program that
// never reaches END or its last line runs forever; see RunBounded.
func (e *Engine) Run() error {
	for e.state == Running {
		if err := e.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step executes the statement under the cursor and moves the cursor. Any
// error halts the engine.
func (e *Engine) Step() error {
	if e.state == Halted {
		return nil
	}
	stmt, ok := e.program.CurrentStatement()
	if !ok {
		e.state = Halted
		return nil
	}
	label, _ := e.program.CurrentLabel()
	e.steps++

	if err := e.step(stmt); err != nil {
		e.state = Halted
		err = atLabel(err, label)
		logger.Debug(logger.AreaEngine, "Run aborted at line %s: %v", label, err)
		return err
	}
	return nil
}

// step is the single dispatch point over the statement kinds.
func (e *Engine) step(stmt Statement) error {
	switch s := stmt.(type) {
	case *Print, *Let, *Rem:
		if err := s.Execute(e.rt); err != nil {
			return err
		}
		e.advance()

	case *Goto:
		if err := s.Execute(e.rt); err != nil {
			return err
		}
		return e.jump(s.Resolved)

	case *For:
		if !e.hasNext(s.Var) {
			return newError(ErrControlFlow, "FOR %s has no matching NEXT", s.Var).WithKeyword(KeywordFor)
		}
		if err := s.Execute(e.rt); err != nil {
			return err
		}
		e.loops[s.Var.Name()] = loopContext{resume: e.program.Position() + 1, end: s.End}
		e.advance()

	case *Next:
		loop, ok := e.loops[s.Var.Name()]
		if !ok {
			return newError(ErrControlFlow, "NEXT %s without FOR", s.Var).WithKeyword(KeywordNext)
		}
		if err := s.Execute(e.rt); err != nil {
			return err
		}
		current, err := evalNumber(s.Var, e.rt.Vars)
		if err != nil {
			return err
		}
		if current.Value() > loop.end.Value() {
			delete(e.loops, s.Var.Name())
			e.advance()
			return nil
		}
		e.program.SetPosition(loop.resume)
		e.haltAtEnd()

	case *IfThen:
		if err := s.Execute(e.rt); err != nil {
			return err
		}
		if s.Result {
			return e.jump(s.Target())
		}
		e.advance()

	case *End:
		e.state = Halted

	default:
		return newError(ErrStatementSyntax, "cannot execute %T", stmt)
	}
	return nil
}

func (e *Engine) advance() {
	if _, ok := e.program.NextLine(); !ok {
		e.state = Halted
	}
}

func (e *Engine) jump(label string) error {
	_, err := e.program.GotoLabel(label)
	return err
}

func (e *Engine) haltAtEnd() {
	if _, ok := e.program.CurrentLabel(); !ok {
		e.state = Halted
	}
}

// hasNext reports whether a NEXT for v follows the current line.
func (e *Engine) hasNext(v Variable) bool {
	lines := e.program.lines
	for pos := e.program.Position() + 1; pos < len(lines); pos++ {
		if next, ok := lines[pos].Statement.(*Next); ok && next.Var.Name() == v.Name() {
			return true
		}
	}
	return false
}
