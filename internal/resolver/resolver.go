// Package resolver provides name lookup, spread expansion and route
// computation over a parsed file. It performs no type unification:
// unresolved names flow through to the emitters' primitive tables
// verbatim.
package resolver

import (
	"strings"

	"github.com/adi-family/lib-typespec-api/internal/ast"
)

// Entry is a declaration together with its enclosing namespace chain,
// in file order.
type Entry struct {
	// Namespace holds the enclosing namespace names, outermost first.
	Namespace []string
	Decl      ast.Decl
}

// QualifiedName returns the dotted namespace-qualified declaration name.
func (e Entry) QualifiedName() string {
	name := e.Decl.DeclName()
	if len(e.Namespace) == 0 {
		return name
	}
	return strings.Join(e.Namespace, ".") + "." + name
}

// Resolver indexes a file's declarations for lookup by name and
// computes flattened field lists for models.
type Resolver struct {
	file    *ast.File
	entries []Entry
	// byName maps both simple and fully qualified names to entries.
	// On simple-name collision the first declaration wins.
	byName map[string]Entry
	usings [][]string
}

// New builds a resolver over the file. Construction walks every
// namespace once; lookups afterwards are map hits.
func New(file *ast.File) *Resolver {
	r := &Resolver{
		file:   file,
		byName: make(map[string]Entry),
	}
	r.collect(nil, file.Decls)
	return r
}

func (r *Resolver) collect(namespace []string, decls []ast.Decl) {
	for _, decl := range decls {
		switch d := decl.(type) {
		case *ast.Using:
			r.usings = append(r.usings, d.Path)
		case *ast.Import:
			// Import targets are recorded on the AST and never opened.
		case *ast.Namespace:
			inner := append(append([]string{}, namespace...), strings.Split(d.Name, ".")...)
			r.collect(inner, d.Decls)
		default:
			entry := Entry{Namespace: namespace, Decl: decl}
			r.entries = append(r.entries, entry)
			if _, exists := r.byName[entry.QualifiedName()]; !exists {
				r.byName[entry.QualifiedName()] = entry
			}
			if name := decl.DeclName(); name != "" {
				if _, exists := r.byName[name]; !exists {
					r.byName[name] = entry
				}
			}
		}
	}
}

// File returns the underlying file.
func (r *Resolver) File() *ast.File { return r.file }

// Entries returns every non-namespace declaration in source order with
// its namespace chain.
func (r *Resolver) Entries() []Entry { return r.entries }

// Interfaces returns all interface declarations in source order.
func (r *Resolver) Interfaces() []*ast.Interface {
	var ifaces []*ast.Interface
	for _, e := range r.entries {
		if i, ok := e.Decl.(*ast.Interface); ok {
			ifaces = append(ifaces, i)
		}
	}
	return ifaces
}

// Lookup resolves a dotted name to a declaration. The search walks the
// fully qualified name first, then the namespace chain innermost-out,
// then every `using` path. It returns nil when the name does not
// resolve; callers treat such names as primitives.
func (r *Resolver) Lookup(name string) ast.Decl {
	return r.LookupFrom(nil, name)
}

// LookupFrom resolves a dotted name as seen from inside the given
// namespace chain.
func (r *Resolver) LookupFrom(namespace []string, name string) ast.Decl {
	for i := len(namespace); i >= 0; i-- {
		key := name
		if i > 0 {
			key = strings.Join(namespace[:i], ".") + "." + name
		}
		if entry, ok := r.byName[key]; ok {
			return entry.Decl
		}
	}
	for _, using := range r.usings {
		key := strings.Join(using, ".") + "." + name
		if entry, ok := r.byName[key]; ok {
			return entry.Decl
		}
	}
	return nil
}

// LookupType resolves a type reference to its declaration, following
// nothing: arrays, tuples, literals and anonymous types have no
// declaration and return nil.
func (r *Resolver) LookupType(ref ast.TypeRef) ast.Decl {
	named, ok := ref.(*ast.NamedType)
	if !ok {
		return nil
	}
	return r.Lookup(named.Name())
}

// Fields returns the model's flattened, ordered field list: the
// `extends` base first, spread targets at their member positions, own
// fields in place. When a later field shares a name with an earlier
// one, the later definition survives at the earlier position.
// A spread cycle fails with ErrCycle.
func (r *Resolver) Fields(model *ast.Model) ([]*ast.Field, error) {
	visited := make(map[string]bool)
	fields, err := r.flatten(model, visited)
	if err != nil {
		return nil, err
	}
	return dedupeFields(fields), nil
}

func (r *Resolver) flatten(model *ast.Model, visited map[string]bool) ([]*ast.Field, error) {
	if visited[model.Name] {
		return nil, &ResolveError{
			Kind:    ErrCycle,
			Pos:     model.Pos(),
			Message: "model " + model.Name + " spreads itself",
		}
	}
	visited[model.Name] = true
	defer delete(visited, model.Name)

	var fields []*ast.Field

	if model.Extends != nil {
		base, err := r.spreadTarget(model.Extends, visited)
		if err != nil {
			return nil, err
		}
		fields = append(fields, base...)
	}

	for _, member := range model.Members {
		switch m := member.(type) {
		case *ast.Spread:
			base, err := r.spreadTarget(m.Target, visited)
			if err != nil {
				return nil, err
			}
			fields = append(fields, base...)
		case *ast.Field:
			fields = append(fields, m)
		}
	}
	return fields, nil
}

// spreadTarget expands a spread or extends target. Targets that do not
// resolve to a model contribute no fields.
func (r *Resolver) spreadTarget(ref ast.TypeRef, visited map[string]bool) ([]*ast.Field, error) {
	switch t := ref.(type) {
	case *ast.AnonymousType:
		return t.Fields, nil
	case *ast.NamedType:
		if base, ok := r.Lookup(t.Name()).(*ast.Model); ok {
			return r.flatten(base, visited)
		}
	}
	return nil, nil
}

// dedupeFields drops earlier duplicates: the surviving entry keeps the
// first occurrence's position and the last occurrence's definition.
func dedupeFields(fields []*ast.Field) []*ast.Field {
	last := make(map[string]*ast.Field, len(fields))
	for _, f := range fields {
		last[f.Name] = f
	}
	seen := make(map[string]bool, len(fields))
	result := make([]*ast.Field, 0, len(fields))
	for _, f := range fields {
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		result = append(result, last[f.Name])
	}
	return result
}

// primitiveScalars is the set of built-in scalar names. Unknown names
// are also treated as scalars, matching the emitters' fallback mapping.
var primitiveScalars = map[string]bool{
	"string":        true,
	"int8":          true,
	"int16":         true,
	"int32":         true,
	"int64":         true,
	"uint8":         true,
	"uint16":        true,
	"uint32":        true,
	"uint64":        true,
	"integer":       true,
	"float32":       true,
	"float64":       true,
	"float":         true,
	"decimal":       true,
	"boolean":       true,
	"bytes":         true,
	"utcDateTime":   true,
	"offsetDateTime": true,
	"plainDate":     true,
	"plainTime":     true,
	"duration":      true,
	"url":           true,
	"void":          true,
	"null":          true,
}

// IsScalar reports whether a type reference is scalar-shaped for the
// purpose of default parameter binding: primitives, scalar and enum
// declarations, literal types, and aliases of those. Models, unions,
// arrays, tuples and anonymous types are not scalar.
func (r *Resolver) IsScalar(ref ast.TypeRef) bool {
	return r.isScalar(ref, 0)
}

func (r *Resolver) isScalar(ref ast.TypeRef, depth int) bool {
	// Alias chains are user input; bound to avoid runaway recursion.
	if depth > 32 {
		return false
	}
	switch t := ref.(type) {
	case *ast.LiteralType:
		return true
	case *ast.NamedType:
		if primitiveScalars[t.Name()] {
			return true
		}
		switch decl := r.Lookup(t.Name()).(type) {
		case *ast.Scalar, *ast.Enum:
			return true
		case *ast.Alias:
			return r.isScalar(decl.Target, depth+1)
		case nil:
			return true
		default:
			return false
		}
	default:
		return false
	}
}

// IsVoid reports whether a type reference is the empty return marker.
func IsVoid(ref ast.TypeRef) bool {
	named, ok := ref.(*ast.NamedType)
	return ok && named.Name() == "void"
}
