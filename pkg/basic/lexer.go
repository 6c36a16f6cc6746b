package basic

import "strings"

// isOperatorChar reports whether ch belongs to an arithmetic or comparison operator.
func isOperatorChar(ch byte) bool {
	switch ch {
	case '=', '<', '>', '+', '-', '*', '/':
		return true
	}
	return false
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n'
}

// Tokenize splits a line into words. Whitespace separates words, a quoted
// string stays a single word even if it contains spaces, and a run of operator
// characters outside strings is a word of its own, so "X=10" and "X = 10"
// produce the same three words. A sign right after the exponent marker of a
// digit-leading word belongs to the number, so 1E+5 is one word.
//
// A string in value position, the argument of PRINT or the value of LET, runs
// from its opening quote to the last quote on the line and is taken verbatim.
// Anywhere else, such as an IF operand, it ends at the first quote followed by
// whitespace or the end of the line. An unterminated string runs to the end of
// the line.
func Tokenize(line string) []string {
	var words []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case isSpace(ch):
			flush()
		case ch == '"':
			flush()
			end := stringEnd(line, i)
			if isValuePosition(words) {
				end = lastQuoteEnd(line, i)
			}
			words = append(words, line[i:end])
			i = end - 1
		case (ch == '+' || ch == '-') && isExponentPrefix(current.String()):
			current.WriteByte(ch)
		case isOperatorChar(ch):
			flush()
			j := i
			for j < len(line) && isOperatorChar(line[j]) {
				j++
			}
			words = append(words, line[i:j])
			i = j - 1
		default:
			current.WriteByte(ch)
		}
	}
	flush()

	return words
}

// stringEnd returns the index just past the string literal starting at start.
func stringEnd(line string, start int) int {
	for i := start + 1; i < len(line); i++ {
		if line[i] != '"' {
			continue
		}
		if i+1 == len(line) || isSpace(line[i+1]) {
			return i + 1
		}
	}
	return len(line)
}

// lastQuoteEnd returns the index just past the last quote on the line, or the
// end of the line when the quote at start is the only one.
func lastQuoteEnd(line string, start int) int {
	if last := strings.LastIndexByte(line, '"'); last > start {
		return last + 1
	}
	return len(line)
}

// isValuePosition reports whether a string starting after words is the
// trailing value of a PRINT or LET statement. words may begin with a label.
func isValuePosition(words []string) bool {
	if len(words) > 0 && words[0] != "" && isDigit(words[0][0]) {
		words = words[1:]
	}
	switch {
	case len(words) == 1 && words[0] == KeywordPrint:
		return true
	case len(words) == 3 && words[0] == KeywordLet && words[2] == "=":
		return true
	}
	return false
}

// isExponentPrefix reports whether word is a digit-leading number that ends in
// an exponent marker, as in the 1E of 1E+5.
func isExponentPrefix(word string) bool {
	if len(word) < 2 || !isDigit(word[0]) {
		return false
	}
	last := word[len(word)-1]
	return last == 'e' || last == 'E'
}
