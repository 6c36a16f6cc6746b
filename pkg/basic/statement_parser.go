package basic

import (
	"strconv"
	"strings"
)

// statementParser parses the words that follow a keyword.
type statementParser func(args []string) (Statement, error)

var statementParsers map[string]statementParser

func init() {
	statementParsers = map[string]statementParser{
		KeywordPrint: parsePrint,
		KeywordLet:   parseLet,
		KeywordGoto:  parseGoto,
		KeywordFor:   parseFor,
		KeywordNext:  parseNext,
		KeywordIf:    parseIfThen,
		KeywordEnd:   parseEnd,
		KeywordRem:   parseRem,
	}
}

// ParseStatement parses a statement from its words, keyword first.
func ParseStatement(words []string) (Statement, error) {
	if len(words) == 0 {
		return nil, newError(ErrStatementSyntax, "missing statement")
	}
	parse, ok := statementParsers[words[0]]
	if !ok {
		return nil, newError(ErrUnknownKeyword, "%s is not a statement", words[0]).WithWords(words)
	}
	return parse(words[1:])
}

// ParseLine splits a source line into its label and statement.
func ParseLine(line string) (string, Statement, error) {
	words := Tokenize(line)
	if len(words) == 0 {
		return "", nil, newError(ErrLineLabel, "empty line")
	}
	label, err := ParseLabel(words[0])
	if err != nil {
		return "", nil, err
	}
	stmt, err := ParseStatement(words[1:])
	if err != nil {
		return "", nil, atLabel(err, label)
	}
	return label, stmt, nil
}

// ParseLabel validates a line label and returns it in canonical form, so
// "010" and "10" name the same line.
func ParseLabel(token string) (string, error) {
	if token == "" || strings.IndexFunc(token, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return "", newError(ErrLineLabel, "%q is not a line number", token)
	}
	n, err := strconv.ParseUint(token, 10, 63)
	if err != nil {
		return "", newError(ErrLineLabel, "%q is out of range", token)
	}
	return strconv.FormatUint(n, 10), nil
}

func parsePrint(args []string) (Statement, error) {
	if expr, ok := parseArithmeticWords(args); ok {
		return &Print{Arg: expr}, nil
	}
	if len(args) == 1 {
		if p, ok := ParsePrimitive(args[0]); ok {
			return &Print{Arg: p}, nil
		}
	}
	return nil, syntaxError(KeywordPrint, args, "expected an expression or a value")
}

func parseLet(args []string) (Statement, error) {
	if len(args) < 3 || args[1] != "=" {
		return nil, syntaxError(KeywordLet, args, "expected <variable> = <value>")
	}
	v, ok := ParseVariable(args[0])
	if !ok {
		return nil, syntaxError(KeywordLet, args, "%s is not a variable", args[0])
	}
	value := args[2:]
	if expr, ok := parseArithmeticWords(value); ok {
		return &Let{Var: v, Value: expr}, nil
	}
	if len(value) == 1 {
		if p, ok := ParsePrimitive(value[0]); ok {
			return &Let{Var: v, Value: p}, nil
		}
	}
	return nil, syntaxError(KeywordLet, args, "expected an expression or a value")
}

func parseGoto(args []string) (Statement, error) {
	if expr, ok := parseArithmeticWords(args); ok {
		return &Goto{Target: expr}, nil
	}
	if len(args) == 1 {
		if n, ok := ParseNumber(args[0]); ok {
			return &Goto{Target: n}, nil
		}
	}
	return nil, syntaxError(KeywordGoto, args, "expected a line number")
}

func parseFor(args []string) (Statement, error) {
	if len(args) != 5 || args[1] != "=" || args[3] != KeywordTo {
		return nil, syntaxError(KeywordFor, args, "expected <variable> = <start> TO <end>")
	}
	v, ok := ParseVariable(args[0])
	if !ok {
		return nil, syntaxError(KeywordFor, args, "%s is not a variable", args[0])
	}
	start, ok := ParseNumber(args[2])
	if !ok {
		return nil, syntaxError(KeywordFor, args, "start %s is not a number", args[2])
	}
	end, ok := ParseNumber(args[4])
	if !ok {
		return nil, syntaxError(KeywordFor, args, "end %s is not a number", args[4])
	}
	return &For{Var: v, Start: start, End: end}, nil
}

func parseNext(args []string) (Statement, error) {
	if len(args) != 1 {
		return nil, syntaxError(KeywordNext, args, "expected a loop variable")
	}
	v, ok := ParseVariable(args[0])
	if !ok {
		return nil, syntaxError(KeywordNext, args, "%s is not a variable", args[0])
	}
	return &Next{Var: v}, nil
}

func parseIfThen(args []string) (Statement, error) {
	if len(args) != 5 || args[3] != KeywordThen {
		return nil, syntaxError(KeywordIf, args, "expected <value> <operator> <value> THEN <line>")
	}
	left, ok := ParsePrimitive(args[0])
	if !ok {
		return nil, syntaxError(KeywordIf, args, "%s is not a value", args[0])
	}
	op, ok := ParseComparisonOperator(args[1])
	if !ok {
		return nil, syntaxError(KeywordIf, args, "%s is not a comparison operator", args[1])
	}
	right, ok := ParsePrimitive(args[2])
	if !ok {
		return nil, syntaxError(KeywordIf, args, "%s is not a value", args[2])
	}
	label, ok := ParseNumber(args[4])
	if !ok {
		return nil, syntaxError(KeywordIf, args, "%s is not a line number", args[4])
	}
	if _, ok := labelOf(label); !ok {
		return nil, syntaxError(KeywordIf, args, "%s is not a line number", args[4])
	}
	return &IfThen{Left: left, Op: op, Right: right, Label: label}, nil
}

func parseEnd(args []string) (Statement, error) {
	if len(args) != 0 {
		return nil, syntaxError(KeywordEnd, args, "END takes no arguments")
	}
	return &End{}, nil
}

func parseRem(args []string) (Statement, error) {
	return &Rem{Comment: strings.Join(args, " ")}, nil
}
