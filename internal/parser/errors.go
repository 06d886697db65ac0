package parser

import (
	"errors"
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/adi-family/lib-typespec-api/internal/ast"
)

// LexError reports a malformed token, an unterminated string, or a bad
// escape in the source text.
type LexError struct {
	Pos     ast.Position
	Message string
}

// Error implements the error interface.
func (e *LexError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("lex error at %s: %s", e.Pos.String(), e.Message)
	}
	return fmt.Sprintf("lex error: %s", e.Message)
}

// ParseError reports an unexpected token, an unterminated construct, or
// a duplicate HTTP verb decorator.
type ParseError struct {
	Pos      ast.Position
	Expected string
	Found    string
	Message  string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	msg := e.Message
	if msg == "" && e.Expected != "" {
		msg = fmt.Sprintf("expected %s, found %q", e.Expected, e.Found)
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("parse error at %s: %s", e.Pos.String(), msg)
	}
	return fmt.Sprintf("parse error: %s", msg)
}

// position converts a participle lexer position into an AST position.
func position(p lexer.Position) ast.Position {
	return ast.Position{
		Filename: p.Filename,
		Line:     p.Line,
		Column:   p.Column,
		Offset:   p.Offset,
	}
}

// classify converts a participle error into the stage-typed error the
// rest of the pipeline expects: lexer failures become LexError,
// everything else becomes ParseError.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var lexErr *lexer.Error
	if errors.As(err, &lexErr) {
		return &LexError{
			Pos:     position(lexErr.Position()),
			Message: lexErr.Message(),
		}
	}

	var unexpected *participle.UnexpectedTokenError
	if errors.As(err, &unexpected) {
		return &ParseError{
			Pos:      position(unexpected.Position()),
			Expected: unexpected.Expect,
			Found:    unexpected.Unexpected.Value,
		}
	}

	var perr participle.Error
	if errors.As(err, &perr) {
		return &ParseError{
			Pos:     position(perr.Position()),
			Message: perr.Message(),
		}
	}

	return &ParseError{Message: err.Error()}
}
