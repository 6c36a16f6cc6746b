// Package objfile stores compiled programs as YAML object files so they can
// be run again without reparsing the source.
package objfile

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"

	"github.com/antibyte/linebasic/pkg/basic"
	"github.com/antibyte/linebasic/pkg/logger"
)

// Format identifies linebasic object files.
const Format = "linebasic-object"

var (
	ErrUnknownFormat  = errors.New("objfile: unknown format")
	ErrDigestMismatch = errors.New("objfile: digest mismatch")
	ErrCorrupt        = errors.New("objfile: corrupt program")
)

// Operand kinds on disk.
const (
	kindNumber     = "number"
	kindString     = "string"
	kindVariable   = "variable"
	kindArithmetic = "arithmetic"
)

type objectDisk struct {
	Format  string     `yaml:"format"`
	Version string     `yaml:"version"`
	Digest  string     `yaml:"digest"`
	Lines   []lineDisk `yaml:"lines"`
}

type lineDisk struct {
	Label     string        `yaml:"label"`
	Statement string        `yaml:"statement"`
	Var       string        `yaml:"var,omitempty"`
	Args      []operandDisk `yaml:"args,omitempty"`
	Op        string        `yaml:"op,omitempty"`
	Target    string        `yaml:"target,omitempty"`
	Comment   string        `yaml:"comment,omitempty"`
}

type operandDisk struct {
	Kind  string       `yaml:"kind"`
	Value string       `yaml:"value,omitempty"`
	Left  *operandDisk `yaml:"left,omitempty"`
	Op    string       `yaml:"op,omitempty"`
	Right *operandDisk `yaml:"right,omitempty"`
}

// Digest returns the BLAKE2b-256 hex digest of the program listing.
func Digest(p *basic.Program) string {
	sum := blake2b.Sum256([]byte(p.Listing()))
	return hex.EncodeToString(sum[:])
}

// Encode renders p as an object file.
func Encode(p *basic.Program) ([]byte, error) {
	obj := objectDisk{
		Format:  Format,
		Version: basic.Version,
		Digest:  Digest(p),
	}
	for _, line := range p.Lines() {
		rec, err := encodeLine(line)
		if err != nil {
			return nil, err
		}
		obj.Lines = append(obj.Lines, rec)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(obj); err != nil {
		return nil, fmt.Errorf("objfile: marshal: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("objfile: encoder close: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode rebuilds a program from an object file and checks its digest.
func Decode(data []byte) (*basic.Program, error) {
	var obj objectDisk
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("objfile: parse: %w", err)
	}
	if obj.Format != Format {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, obj.Format)
	}

	p := basic.NewProgram()
	for i, rec := range obj.Lines {
		label, err := basic.ParseLabel(rec.Label)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrCorrupt, i+1, err)
		}
		stmt, err := decodeLine(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: line %s: %v", ErrCorrupt, label, err)
		}
		p.AddLine(label, stmt)
	}

	if digest := Digest(p); digest != obj.Digest {
		logger.Warn(logger.AreaObjFile, "Digest mismatch: file %s, computed %s", obj.Digest, digest)
		return nil, ErrDigestMismatch
	}
	return p, nil
}

// Save writes p to path.
func Save(path string, p *basic.Program) error {
	data, err := Encode(p)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("objfile: write %s: %w", path, err)
	}
	logger.Debug(logger.AreaObjFile, "Saved %d lines to %s", p.Len(), path)
	return nil
}

// Load reads the object file at path.
func Load(path string) (*basic.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Debug(logger.AreaObjFile, "Loaded %d lines from %s", p.Len(), path)
	return p, nil
}

func encodeLine(line basic.Line) (lineDisk, error) {
	rec := lineDisk{Label: line.Label, Statement: line.Statement.Keyword()}

	switch s := line.Statement.(type) {
	case *basic.Print:
		rec.Args = []operandDisk{encodeOperand(s.Arg)}
	case *basic.Let:
		rec.Var = s.Var.Name()
		rec.Args = []operandDisk{encodeOperand(s.Value)}
	case *basic.Goto:
		rec.Args = []operandDisk{encodeOperand(s.Target)}
	case *basic.For:
		rec.Var = s.Var.Name()
		rec.Args = []operandDisk{encodeOperand(s.Start), encodeOperand(s.End)}
	case *basic.Next:
		rec.Var = s.Var.Name()
	case *basic.IfThen:
		rec.Args = []operandDisk{encodeOperand(s.Left), encodeOperand(s.Right)}
		rec.Op = s.Op.Symbol()
		rec.Target = s.Target()
	case *basic.End:
	case *basic.Rem:
		rec.Comment = s.Comment
	default:
		return lineDisk{}, fmt.Errorf("objfile: cannot encode %T", s)
	}
	return rec, nil
}

func encodeOperand(op basic.Operand) operandDisk {
	switch o := op.(type) {
	case basic.Number:
		return operandDisk{Kind: kindNumber, Value: strconv.FormatFloat(o.Value(), 'g', -1, 64)}
	case basic.String:
		return operandDisk{Kind: kindString, Value: o.Value()}
	case basic.Variable:
		return operandDisk{Kind: kindVariable, Value: o.Name()}
	case *basic.ArithmeticExpression:
		left := encodeOperand(o.Left)
		right := encodeOperand(o.Right)
		return operandDisk{Kind: kindArithmetic, Left: &left, Op: o.Op.Symbol(), Right: &right}
	}
	return operandDisk{}
}

func decodeLine(rec lineDisk) (basic.Statement, error) {
	switch rec.Statement {
	case basic.KeywordPrint:
		args, err := decodeArgs(rec.Args, 1)
		if err != nil {
			return nil, err
		}
		return &basic.Print{Arg: args[0]}, nil

	case basic.KeywordLet:
		v, err := decodeVar(rec.Var)
		if err != nil {
			return nil, err
		}
		args, err := decodeArgs(rec.Args, 1)
		if err != nil {
			return nil, err
		}
		return &basic.Let{Var: v, Value: args[0]}, nil

	case basic.KeywordGoto:
		args, err := decodeArgs(rec.Args, 1)
		if err != nil {
			return nil, err
		}
		return &basic.Goto{Target: args[0]}, nil

	case basic.KeywordFor:
		v, err := decodeVar(rec.Var)
		if err != nil {
			return nil, err
		}
		args, err := decodeArgs(rec.Args, 2)
		if err != nil {
			return nil, err
		}
		start, ok1 := args[0].(basic.Number)
		end, ok2 := args[1].(basic.Number)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("FOR bounds must be numbers")
		}
		return &basic.For{Var: v, Start: start, End: end}, nil

	case basic.KeywordNext:
		v, err := decodeVar(rec.Var)
		if err != nil {
			return nil, err
		}
		return &basic.Next{Var: v}, nil

	case basic.KeywordIf:
		args, err := decodeArgs(rec.Args, 2)
		if err != nil {
			return nil, err
		}
		op, ok := basic.ParseComparisonOperator(rec.Op)
		if !ok {
			return nil, fmt.Errorf("unknown comparison %q", rec.Op)
		}
		target, err := basic.ParseLabel(rec.Target)
		if err != nil {
			return nil, err
		}
		label, _ := basic.ParseNumber(target)
		return &basic.IfThen{Left: args[0], Op: op, Right: args[1], Label: label}, nil

	case basic.KeywordEnd:
		return &basic.End{}, nil

	case basic.KeywordRem:
		return &basic.Rem{Comment: rec.Comment}, nil
	}
	return nil, fmt.Errorf("unknown statement %q", rec.Statement)
}

func decodeArgs(args []operandDisk, n int) ([]basic.Operand, error) {
	if len(args) != n {
		return nil, fmt.Errorf("want %d arguments, have %d", n, len(args))
	}
	out := make([]basic.Operand, n)
	for i := range args {
		op, err := decodeOperand(&args[i])
		if err != nil {
			return nil, err
		}
		out[i] = op
	}
	return out, nil
}

func decodeVar(name string) (basic.Variable, error) {
	v, ok := basic.ParseVariable(name)
	if !ok {
		return basic.Variable{}, fmt.Errorf("bad variable %q", name)
	}
	return v, nil
}

func decodeOperand(rec *operandDisk) (basic.Operand, error) {
	if rec == nil {
		return nil, fmt.Errorf("missing operand")
	}
	switch rec.Kind {
	case kindNumber:
		v, err := strconv.ParseFloat(rec.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", rec.Value)
		}
		return basic.NewNumber(v), nil
	case kindString:
		return basic.NewString(rec.Value), nil
	case kindVariable:
		return decodeVar(rec.Value)
	case kindArithmetic:
		left, err := decodeOperand(rec.Left)
		if err != nil {
			return nil, err
		}
		right, err := decodeOperand(rec.Right)
		if err != nil {
			return nil, err
		}
		op, ok := basic.ParseArithmeticOperator(rec.Op)
		if !ok {
			return nil, fmt.Errorf("unknown operator %q", rec.Op)
		}
		return &basic.ArithmeticExpression{Left: left, Op: op, Right: right}, nil
	}
	return nil, fmt.Errorf("unknown operand kind %q", rec.Kind)
}
