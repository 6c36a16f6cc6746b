package basic

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/antibyte/linebasic/pkg/logger"
)

// Version of the interpreter.
const Version = "1.0.6"

// Basic compiles source lines into a program and runs it.
type Basic struct {
	Program *Program
	Mode    OutputMode
	Out     io.Writer
	// MaxSteps caps a run when positive.
	MaxSteps int
}

// New returns a Basic with an empty program that prints to out.
func New(out io.Writer) *Basic {
	return &Basic{Program: NewProgram(), Mode: OutputWrite, Out: out}
}

// CompileProgram parses lines and appends them to b.Program. Lines are
// trimmed and blank lines are skipped. The first bad line aborts compilation.
func (b *Basic) CompileProgram(lines []string) error {
	if b.Program == nil {
		b.Program = NewProgram()
	}
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		label, stmt, err := ParseLine(line)
		if err != nil {
			logger.Debug(logger.AreaParser, "Compile failed on %q: %v", line, err)
			return err
		}
		b.Program.AddLine(label, stmt)
	}
	logger.Debug(logger.AreaParser, "Compiled %d lines", b.Program.Len())
	return nil
}

// RunObj runs an already compiled program and returns the finished engine.
func (b *Basic) RunObj(p *Program) (*Engine, error) {
	b.Program = p
	e := NewEngine(p, b.Mode, b.Out)
	err := RunBounded(e, b.MaxSteps)
	return e, err
}

// Run compiles lines into a fresh program and runs it.
func (b *Basic) Run(lines []string) (*Engine, error) {
	b.Program = NewProgram()
	if err := b.CompileProgram(lines); err != nil {
		return nil, err
	}
	return b.RunObj(b.Program)
}

// Compile parses lines into a new program.
func Compile(lines []string) (*Program, error) {
	b := &Basic{Program: NewProgram()}
	if err := b.CompileProgram(lines); err != nil {
		return nil, err
	}
	return b.Program, nil
}

// CompileReader reads source lines from r and compiles them.
func CompileReader(r io.Reader) (*Program, error) {
	lines, err := ReadLines(r)
	if err != nil {
		return nil, err
	}
	return Compile(lines)
}

// ReadLines returns the lines of r.
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// RunBounded runs e for at most maxSteps statements and returns ErrStepLimit
// if the program is still running then. A maxSteps of zero or less runs
// without a cap.
func RunBounded(e *Engine, maxSteps int) error {
	return RunContext(context.Background(), e, maxSteps)
}

// RunContext is RunBounded that also stops when ctx is done. The returned
// error then wraps ctx.Err().
func RunContext(ctx context.Context, e *Engine, maxSteps int) error {
	for e.State() == Running {
		select {
		case <-ctx.Done():
			label, _ := e.Label()
			logger.Debug(logger.AreaEngine, "Run cancelled at line %s: %v", label, ctx.Err())
			return fmt.Errorf("run stopped at line %s: %w", label, ctx.Err())
		default:
		}

		if maxSteps > 0 && e.Steps() >= maxSteps {
			label, _ := e.Label()
			logger.Debug(logger.AreaEngine, "Step limit %d reached at line %s", maxSteps, label)
			return &BASICError{Kind: ErrStepLimit, Label: label, Detail: "program still running"}
		}
		if err := e.Step(); err != nil {
			return err
		}
	}
	return nil
}
