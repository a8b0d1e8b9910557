package compiler

import "fmt"

// SyntaxError is a failure of the raw grammar layer.
type SyntaxError struct {
	Pos Position
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Msg)
}

// ParseError wraps an underlying raw-parser failure with the chunk it
// occurred in.
type ParseError struct {
	Code Code
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %v", e.Code, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MissingBodyError reports a hanging call with no indented lines after it.
type MissingBodyError struct {
	Code Code
	Name string
}

func (e *MissingBodyError) Error() string {
	return fmt.Sprintf("%s: hanging call %q has no indented body", e.Code, e.Name)
}

// CompileError reports an AST the compiler cannot lower.
type CompileError struct {
	Code Code
	Msg  string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}
