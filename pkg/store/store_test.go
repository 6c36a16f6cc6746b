package store

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/antibyte/linebasic/pkg/basic"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

const countdown = `10 FOR I = 1 TO 3
20 PRINT I
30 NEXT I
40 PRINT "LIFTOFF"
`

func TestSaveAndLoadProgram(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id, err := s.SaveProgram(ctx, "countdown", countdown)
	if err != nil {
		t.Fatalf("SaveProgram: %v", err)
	}
	if id == "" {
		t.Fatal("empty id")
	}

	for _, key := range []string{id, "countdown"} {
		prog, err := s.GetProgram(ctx, key)
		if err != nil {
			t.Fatalf("GetProgram(%s): %v", key, err)
		}
		if prog.ID != id || prog.Name != "countdown" || prog.Source != countdown {
			t.Errorf("GetProgram(%s) = %+v", key, prog)
		}
	}

	p, err := s.LoadProgram(ctx, "countdown")
	if err != nil {
		t.Fatalf("LoadProgram: %v", err)
	}
	var buf bytes.Buffer
	if err := basic.NewEngine(p, basic.OutputWrite, &buf).Run(); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "1\n2\n3\nLIFTOFF\n" {
		t.Errorf("output = %q", got)
	}
}

func TestSaveProgramRejects(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if _, err := s.SaveProgram(ctx, "broken", "10 PRNT 1\n"); !errors.Is(err, basic.ErrUnknownKeyword) {
		t.Errorf("broken source: %v, want ErrUnknownKeyword", err)
	}
	if _, err := s.SaveProgram(ctx, "  ", countdown); err == nil {
		t.Error("empty name accepted")
	}
	if _, err := s.SaveProgram(ctx, "countdown", countdown); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveProgram(ctx, "countdown", countdown); !errors.Is(err, ErrProgramExists) {
		t.Errorf("duplicate name: %v, want ErrProgramExists", err)
	}
}

func TestListAndDeletePrograms(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for _, name := range []string{"zeta", "alpha"} {
		if _, err := s.SaveProgram(ctx, name, `10 PRINT "HI"`); err != nil {
			t.Fatal(err)
		}
	}

	programs, err := s.ListPrograms(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(programs) != 2 || programs[0].Name != "alpha" || programs[1].Name != "zeta" {
		t.Fatalf("ListPrograms = %+v", programs)
	}

	if err := s.DeleteProgram(ctx, "alpha"); err != nil {
		t.Fatalf("DeleteProgram: %v", err)
	}
	if err := s.DeleteProgram(ctx, "alpha"); !errors.Is(err, ErrProgramNotFound) {
		t.Errorf("second delete: %v, want ErrProgramNotFound", err)
	}
	if _, err := s.GetProgram(ctx, "alpha"); !errors.Is(err, ErrProgramNotFound) {
		t.Errorf("GetProgram after delete: %v", err)
	}
	if _, err := s.LoadProgram(ctx, "nothing"); !errors.Is(err, ErrProgramNotFound) {
		t.Errorf("LoadProgram(nothing): %v", err)
	}
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.CreateUser(ctx, "alice", "wonderland"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := s.CreateUser(ctx, "alice", "other"); !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate user: %v, want ErrUserExists", err)
	}
	if err := s.VerifyUser(ctx, "alice", "wonderland"); err != nil {
		t.Errorf("VerifyUser: %v", err)
	}
	if err := s.VerifyUser(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: %v", err)
	}
	if err := s.VerifyUser(ctx, "bob", "wonderland"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "library.db")

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveProgram(ctx, "hello", `10 PRINT "HELLO"`); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, err := s.LoadProgram(ctx, "hello"); err != nil {
		t.Errorf("LoadProgram after reopen: %v", err)
	}
}
