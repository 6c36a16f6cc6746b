package basic

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestBasicRun(t *testing.T) {
	var buf bytes.Buffer
	b := New(&buf)
	e, err := b.Run([]string{`10 PRINT "HELLO"`, "", "   ", `20 PRINT "WORLD"`})
	if err != nil {
		t.Fatal(err)
	}
	if e.State() != Halted {
		t.Error("engine not halted")
	}
	if got := buf.String(); got != "HELLO\nWORLD\n" {
		t.Errorf("output = %q", got)
	}
	if b.Program.Len() != 2 {
		t.Errorf("program has %d lines, want 2", b.Program.Len())
	}
}

func TestBasicRunEmbeddedQuotes(t *testing.T) {
	var buf bytes.Buffer
	b := New(&buf)
	_, err := b.Run([]string{
		`10 PRINT "HE SAID "HI" OK"`,
		`20 LET S = "IT'S "Q" "`,
		`30 PRINT S`,
		`40 PRINT 1E+5`,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "HE SAID \"HI\" OK\nIT'S \"Q\" \n100000\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestBasicCaptureMode(t *testing.T) {
	b := &Basic{Mode: OutputCapture}
	e, err := b.Run([]string{"10 FOR I = 1 TO 2", "20 PRINT I", "30 NEXT I"})
	if err != nil {
		t.Fatal(err)
	}
	if got := captured(e); strings.Join(got, ",") != "1,2" {
		t.Errorf("captured = %q", got)
	}
	stmt, _ := b.Program.StatementAtLabel("20")
	if out := stmt.(*Print).Output; out == nil || out.Text() != "2" {
		t.Errorf("Print.Output = %v, want 2", out)
	}
}

func TestBasicCompileErrorStopsRun(t *testing.T) {
	b := &Basic{Mode: OutputCapture}
	_, err := b.Run([]string{`10 PRINT "OK"`, "20 PRNT X"})
	if !errors.Is(err, ErrUnknownKeyword) {
		t.Fatalf("error = %v, want ErrUnknownKeyword", err)
	}
	var be *BASICError
	if !errors.As(err, &be) || be.Label != "20" {
		t.Errorf("error %v not labelled 20", err)
	}
}

func TestBasicMaxSteps(t *testing.T) {
	b := &Basic{Mode: OutputCapture, MaxSteps: 10}
	e, err := b.Run([]string{"10 GOTO 10"})
	if !errors.Is(err, ErrStepLimit) {
		t.Fatalf("error = %v, want ErrStepLimit", err)
	}
	if e.Steps() != 10 {
		t.Errorf("steps = %d, want 10", e.Steps())
	}
}

func TestRunContextCancelled(t *testing.T) {
	p, err := Compile([]string{"10 LET X = 1", "20 GOTO 10"})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewEngine(p, OutputCapture, nil)
	if err := RunContext(ctx, e, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if e.Steps() != 0 {
		t.Errorf("cancelled run took %d steps", e.Steps())
	}

	ctx, cancel = context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := RunContext(ctx, NewEngine(p, OutputCapture, nil), 0); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded", err)
	}
}

func TestRunObjReusesProgram(t *testing.T) {
	p, err := CompileReader(strings.NewReader("10 LET X = 1\n20 PRINT X\n"))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		b := &Basic{Mode: OutputCapture}
		e, err := b.RunObj(p)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if got := captured(e); len(got) != 1 || got[0] != "1" {
			t.Errorf("run %d: captured = %q", i, got)
		}
	}
}

func TestExamplePrograms(t *testing.T) {
	tests := []struct {
		file     string
		want     []string
		maxSteps int
		limited  bool
	}{
		{file: "hello.bas", want: []string{"HELLO, WORLD!"}},
		{file: "it_works.bas", want: []string{"HELLO, WORLD!", "HEY, IT WORKS!"}},
		{file: "let_arith.bas", want: []string{"ANSWER = ", "25"}},
		{file: "let_string.bas", want: []string{"HELLO", "WORLD!"}},
		{file: "for_loop.bas", want: []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}},
		{file: "ifthen.bas", want: []string{"THEY ARE EQUAL.", "DONE."}},
		{file: "ifthen_goto.bas", want: []string{"THEY ARE **NOT** EQUAL.", "DONE."}},
		{file: "ifthen_end.bas", want: []string{"THEY ARE **NOT** EQUAL."}},
		{file: "ifthen_rem.bas", want: []string{"THEY **ARE** EQUAL."}},
		{file: "hello_loop.bas", want: []string{"HELLO, WORLD!", "HELLO, WORLD!"}, maxSteps: 4, limited: true},
		{file: "count_loop.bas", want: []string{"1", "2", "3"}, maxSteps: 10, limited: true},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			f, err := os.Open(filepath.Join("..", "..", "examples", tt.file))
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()

			p, err := CompileReader(f)
			if err != nil {
				t.Fatalf("compile: %v", err)
			}
			maxSteps := tt.maxSteps
			if maxSteps == 0 {
				maxSteps = 1000
			}
			e := NewEngine(p, OutputCapture, nil)
			err = RunBounded(e, maxSteps)
			if tt.limited {
				if !errors.Is(err, ErrStepLimit) {
					t.Fatalf("error = %v, want ErrStepLimit", err)
				}
			} else if err != nil {
				t.Fatalf("run: %v", err)
			}
			if got := captured(e); strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestForFinalValue(t *testing.T) {
	f, err := os.ReadFile(filepath.Join("..", "..", "examples", "for_final.bas"))
	if err != nil {
		t.Fatal(err)
	}
	b := &Basic{Mode: OutputCapture}
	e, err := b.Run(strings.Split(string(f), "\n"))
	if err != nil {
		t.Fatal(err)
	}
	got := captured(e)
	if len(got) != 12 {
		t.Fatalf("printed %d values, want 12", len(got))
	}
	if got[10] != "FINAL VALUE OF I" || got[11] != "11" {
		t.Errorf("tail = %q", got[10:])
	}
}
