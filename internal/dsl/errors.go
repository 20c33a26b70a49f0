package dsl

import (
	"errors"
	"fmt"
)

// ErrSyntax matches every error returned for text that cannot be compiled.
var ErrSyntax = errors.New("requirement syntax error")

// SyntaxError locates a statement that could not be compiled.
type SyntaxError struct {
	Line      int
	Statement string
	Msg       string
	Err       error
}

func (e *SyntaxError) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Statement == "" {
		return fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	return fmt.Sprintf("line %d: %s: %q", e.Line, msg, e.Statement)
}

func (e *SyntaxError) Is(target error) bool { return target == ErrSyntax }

func (e *SyntaxError) Unwrap() error { return e.Err }

// DisallowedCallError reports a call to a function missing from the
// compiler's whitelist.
type DisallowedCallError struct {
	Name string
}

func (e *DisallowedCallError) Error() string {
	return fmt.Sprintf("disallowed function call %s", e.Name)
}

func (e *DisallowedCallError) Is(target error) bool { return target == ErrSyntax }
