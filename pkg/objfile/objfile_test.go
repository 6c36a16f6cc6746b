package objfile

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/antibyte/linebasic/pkg/basic"
)

var source = []string{
	"05 REM ROUND TRIP",
	"10 LET X = 7 / 2",
	`20 LET S = "HELLO, WORLD!"`,
	"30 FOR I = 1 TO 3",
	"40 PRINT I",
	"50 NEXT I",
	"60 IF X => 3 THEN 80",
	"70 GOTO X * 0",
	"80 PRINT S",
	"90 PRINT X",
	"100 END",
}

func compile(t *testing.T) *basic.Program {
	t.Helper()
	p, err := basic.Compile(source)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return p
}

func run(t *testing.T, p *basic.Program) string {
	t.Helper()
	var buf bytes.Buffer
	e := basic.NewEngine(p, basic.OutputWrite, &buf)
	if err := basic.RunBounded(e, 1000); err != nil {
		t.Fatalf("run: %v", err)
	}
	return buf.String()
}

func TestRoundTrip(t *testing.T) {
	p := compile(t)
	data, err := Encode(p)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Contains(data, []byte("format: "+Format)) {
		t.Errorf("object file lacks the format header:\n%s", data)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Listing() != p.Listing() {
		t.Errorf("listing changed:\n%s\nwant:\n%s", decoded.Listing(), p.Listing())
	}

	want := "1\n2\n3\nHELLO, WORLD!\n3.5\n"
	if got := run(t, decoded); got != want {
		t.Errorf("decoded program printed %q, want %q", got, want)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.bobj")
	p := compile(t)
	if err := Save(path, p); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if Digest(loaded) != Digest(p) {
		t.Error("digest changed across Save/Load")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.bobj")); err == nil {
		t.Error("Load of a missing file succeeded")
	}
}

func TestDigestMismatch(t *testing.T) {
	data, err := Encode(compile(t))
	if err != nil {
		t.Fatal(err)
	}
	tampered := strings.Replace(string(data), "HELLO, WORLD!", "GOODBYE", 1)
	if _, err := Decode([]byte(tampered)); !errors.Is(err, ErrDigestMismatch) {
		t.Errorf("Decode of tampered file: %v, want ErrDigestMismatch", err)
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"wrong format", "format: pickle\nversion: 1.0.6\ndigest: x\nlines: []\n", ErrUnknownFormat},
		{"bad label", "format: " + Format + "\ndigest: x\nlines:\n  - label: ten\n    statement: END\n", ErrCorrupt},
		{"unknown statement", "format: " + Format + "\ndigest: x\nlines:\n  - label: \"10\"\n    statement: INPUT\n", ErrCorrupt},
		{"missing argument", "format: " + Format + "\ndigest: x\nlines:\n  - label: \"10\"\n    statement: PRINT\n", ErrCorrupt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.doc)); !errors.Is(err, tt.want) {
				t.Errorf("Decode: %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := Decode([]byte("format: x\nsurprise: true\n")); err == nil {
		t.Error("Decode accepted an unknown field")
	}
}

func TestEmptyProgram(t *testing.T) {
	data, err := Encode(basic.NewProgram())
	if err != nil {
		t.Fatal(err)
	}
	p, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if p.Len() != 0 {
		t.Errorf("decoded %d lines", p.Len())
	}
}
