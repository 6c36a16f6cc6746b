// Package basic implements a small line-numbered BASIC interpreter: a parser for
// the eight supported statements, an ordered line table, and the execution
// engine that walks it.
package basic

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Match them with errors.Is; the concrete error is usually a *BASICError.
var (
	ErrLineLabel         = errors.New("invalid line label")
	ErrStatementSyntax   = errors.New("syntax error")
	ErrUnknownKeyword    = errors.New("unknown keyword")
	ErrUndefinedVariable = errors.New("undefined variable")
	ErrTypeMismatch      = errors.New("type mismatch")
	ErrDivisionByZero    = errors.New("division by zero")
	ErrInvalidOperator   = errors.New("invalid operator")
	ErrControlFlow       = errors.New("control flow error")
	ErrStepLimit         = errors.New("step limit exceeded")
)

// BASICError is a structured interpreter error.
type BASICError struct {
	Kind    error    // One of the Err* kinds above
	Keyword string   // Statement keyword, if known
	Label   string   // Line label, set once the error leaves the line that raised it
	Words   []string // Offending words (parse errors)
	Detail  string   // Human readable detail
}

// Error implements the error interface.
func (be *BASICError) Error() string {
	var sb strings.Builder
	sb.WriteString(strings.ToUpper(be.Kind.Error()))
	if be.Label != "" {
		sb.WriteString(" IN LINE ")
		sb.WriteString(be.Label)
	}
	if be.Keyword != "" {
		sb.WriteString(" (")
		sb.WriteString(be.Keyword)
		sb.WriteString(")")
	}
	if be.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(be.Detail)
	}
	if len(be.Words) > 0 {
		fmt.Fprintf(&sb, " %q", be.Words)
	}
	return sb.String()
}

// Unwrap exposes the error kind to errors.Is.
func (be *BASICError) Unwrap() error {
	return be.Kind
}

// newError creates a BASICError of the given kind.
func newError(kind error, detail string, args ...interface{}) *BASICError {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &BASICError{Kind: kind, Detail: detail}
}

// WithKeyword attaches the statement keyword.
func (be *BASICError) WithKeyword(keyword string) *BASICError {
	be.Keyword = keyword
	return be
}

// WithWords attaches the offending words.
func (be *BASICError) WithWords(words []string) *BASICError {
	be.Words = append([]string(nil), words...)
	return be
}

// syntaxError is the common shape of every statement parse failure.
func syntaxError(keyword string, words []string, detail string, args ...interface{}) error {
	return newError(ErrStatementSyntax, detail, args...).WithKeyword(keyword).WithWords(words)
}

// atLabel stamps the line label onto err if it is a BASICError without one.
func atLabel(err error, label string) error {
	var be *BASICError
	if errors.As(err, &be) && be.Label == "" {
		be.Label = label
	}
	return err
}
