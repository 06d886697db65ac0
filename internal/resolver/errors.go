package resolver

import (
	"fmt"

	"github.com/adi-family/lib-typespec-api/internal/ast"
)

// ErrorKind categorises resolution errors for structured handling.
type ErrorKind int

const (
	// ErrCycle indicates a model that (transitively) spreads itself.
	ErrCycle ErrorKind = iota
	// ErrMultipleBody indicates an operation with more than one body parameter.
	ErrMultipleBody
	// ErrAmbiguousRoute indicates two operations sharing a verb and path.
	ErrAmbiguousRoute
)

// errorKindNames maps ErrorKind to human-readable names.
var errorKindNames = map[ErrorKind]string{
	ErrCycle:          "Cycle",
	ErrMultipleBody:   "MultipleBody",
	ErrAmbiguousRoute: "AmbiguousRoute",
}

// String returns the string representation of ErrorKind.
func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// ResolveError is a structural resolution failure: a spread cycle, a
// duplicate body parameter, or an ambiguous route.
type ResolveError struct {
	Kind    ErrorKind
	Pos     ast.Position
	Message string
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("resolve error (%s) at %s: %s", e.Kind, e.Pos, e.Message)
	}
	return fmt.Sprintf("resolve error (%s): %s", e.Kind, e.Message)
}
