package basic

import (
	"strings"
)

// Line is one labelled statement.
type Line struct {
	Label     string
	Statement Statement
}

// String renders the line as source.
func (l Line) String() string {
	return l.Label + " " + l.Statement.String()
}

// Program is an ordered line table. Lines keep their insertion order; labels
// are looked up through an index rebuilt by FirstLine.
type Program struct {
	lines  []Line
	index  map[string]int
	cursor int
}

// NewProgram returns an empty program.
func NewProgram() *Program {
	return &Program{index: make(map[string]int)}
}

// AddLine appends a line. Neither order nor uniqueness of labels is checked here.
func (p *Program) AddLine(label string, stmt Statement) {
	p.lines = append(p.lines, Line{Label: label, Statement: stmt})
}

// FirstLine rebuilds the label index, moves the cursor to the first line and
// returns its label. It returns false for an empty program.
func (p *Program) FirstLine() (string, bool) {
	p.reindex()
	p.cursor = 0
	return p.CurrentLabel()
}

// NextLine advances the cursor and returns the label it lands on, or false
// once the cursor has moved past the last line.
func (p *Program) NextLine() (string, bool) {
	if p.cursor < len(p.lines) {
		p.cursor++
	}
	return p.CurrentLabel()
}

// GotoLabel moves the cursor to label.
func (p *Program) GotoLabel(label string) (string, error) {
	if p.index == nil {
		p.reindex()
	}
	pos, ok := p.index[label]
	if !ok {
		return "", newError(ErrControlFlow, "line %s does not exist", label)
	}
	p.cursor = pos
	return label, nil
}

// CurrentStatement returns the statement under the cursor.
func (p *Program) CurrentStatement() (Statement, bool) {
	if p.cursor >= len(p.lines) {
		return nil, false
	}
	return p.lines[p.cursor].Statement, true
}

// CurrentLabel returns the label under the cursor.
func (p *Program) CurrentLabel() (string, bool) {
	if p.cursor >= len(p.lines) {
		return "", false
	}
	return p.lines[p.cursor].Label, true
}

// StatementAtLabel looks a statement up by label without touching the cursor.
func (p *Program) StatementAtLabel(label string) (Statement, bool) {
	p.reindex()
	pos, ok := p.index[label]
	if !ok {
		return nil, false
	}
	return p.lines[pos].Statement, true
}

// Position returns the cursor.
func (p *Program) Position() int { return p.cursor }

// SetPosition moves the cursor to pos, which may be Len() (the terminal position).
func (p *Program) SetPosition(pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(p.lines) {
		pos = len(p.lines)
	}
	p.cursor = pos
}

// Len returns the number of lines.
func (p *Program) Len() int { return len(p.lines) }

// Lines returns a copy of the line table.
func (p *Program) Lines() []Line {
	return append([]Line(nil), p.lines...)
}

// Listing renders the program as source, one line per entry.
func (p *Program) Listing() string {
	var sb strings.Builder
	for _, line := range p.lines {
		sb.WriteString(line.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// reindex maps every label to its position. A duplicated label resolves to
// its last occurrence.
func (p *Program) reindex() {
	p.index = make(map[string]int, len(p.lines))
	for pos, line := range p.lines {
		p.index[line.Label] = pos
	}
}
