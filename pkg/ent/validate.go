package ent

import (
	"errors"
	"fmt"
)

// ErrUnbalanced reports entity text whose braces do not pair up.
var ErrUnbalanced = errors.New("unbalanced braces")

// SyntaxError locates a brace problem.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return ErrUnbalanced
}

// Validate checks that braces alternate open/close with no nesting. Blocks and
// RewriteNextmap accept anything; Validate lets callers flag text whose block
// boundaries would be guessed.
func Validate(text string) error {
	line := 1
	openLine := 0
	depth := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			line++
		case '{':
			if depth > 0 {
				return &SyntaxError{Line: line, Msg: fmt.Sprintf("nested '{' inside block opened on line %d", openLine)}
			}
			depth++
			openLine = line
		case '}':
			if depth == 0 {
				return &SyntaxError{Line: line, Msg: "'}' without matching '{'"}
			}
			depth--
		}
	}
	if depth > 0 {
		return &SyntaxError{Line: openLine, Msg: "block is never closed"}
	}
	return nil
}
