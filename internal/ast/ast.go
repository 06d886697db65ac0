// Package ast defines the Abstract Syntax Tree for IDL source files.
// It provides node types for all language constructs: declarations,
// model members, operations, parameters and type references.
package ast

import (
	"fmt"
	"strings"
)

// Node is the interface implemented by all AST nodes.
// Every node tracks its source position and provides type information.
type Node interface {
	// Pos returns the source position of the node
	Pos() Position
	// Type returns the node type enum value
	Type() NodeType
	// String returns a human-readable representation for debugging
	String() string
}

// Decl is the interface implemented by all top-level declarations.
// Declaration order is preserved throughout the pipeline; emitters
// observe it directly.
type Decl interface {
	Node
	declNode()
	// DeclName returns the declared name, or "" for imports and usings.
	DeclName() string
}

// File is the root node of the AST: an ordered sequence of top-level
// declarations produced from one (possibly concatenated) source.
type File struct {
	node
	Decls []Decl
}

func (f *File) Type() NodeType { return NodeFile }
func (f *File) String() string {
	var b strings.Builder
	b.WriteString("File{\n")
	for _, d := range f.Decls {
		b.WriteString("  ")
		b.WriteString(d.String())
		b.WriteString("\n")
	}
	b.WriteString("}")
	return b.String()
}

// Import records an import target. Targets are collected verbatim and
// never opened; unresolvable targets are tolerated.
type Import struct {
	node
	Target string
}

func (i *Import) declNode()        {}
func (i *Import) Type() NodeType   { return NodeImport }
func (i *Import) DeclName() string { return "" }
func (i *Import) String() string   { return fmt.Sprintf("Import{Target: %q}", i.Target) }

// Using brings a dotted namespace path into scope for name lookup.
type Using struct {
	node
	Path []string
}

func (u *Using) declNode()        {}
func (u *Using) Type() NodeType   { return NodeUsing }
func (u *Using) DeclName() string { return "" }
func (u *Using) String() string {
	return fmt.Sprintf("Using{Path: %q}", strings.Join(u.Path, "."))
}

// Namespace groups an ordered list of inner declarations under a
// dotted name.
type Namespace struct {
	node
	Name       string
	Decorators []*Decorator
	Decls      []Decl
}

func (n *Namespace) declNode()        {}
func (n *Namespace) Type() NodeType   { return NodeNamespace }
func (n *Namespace) DeclName() string { return n.Name }
func (n *Namespace) String() string {
	return fmt.Sprintf("Namespace{Name: %q, Decls: %d}", n.Name, len(n.Decls))
}

// ModelMember is either a Field or a Spread, in declaration order.
type ModelMember interface {
	Node
	modelMemberNode()
}

// Model declares a structured type with ordered members. An `extends`
// clause is recorded separately from spread members and resolved ahead
// of them.
type Model struct {
	node
	Name       string
	TypeParams []string
	Decorators []*Decorator
	// Extends holds the optional `extends` base type.
	Extends TypeRef
	// Members holds fields and spreads in source order.
	Members []ModelMember
}

func (m *Model) declNode()        {}
func (m *Model) Type() NodeType   { return NodeModel }
func (m *Model) DeclName() string { return m.Name }
func (m *Model) String() string {
	return fmt.Sprintf("Model{Name: %q, Members: %d}", m.Name, len(m.Members))
}

// Fields returns the model's own declared fields, skipping spreads.
func (m *Model) Fields() []*Field {
	fields := make([]*Field, 0, len(m.Members))
	for _, member := range m.Members {
		if f, ok := member.(*Field); ok {
			fields = append(fields, f)
		}
	}
	return fields
}

// Field is a named, typed member of a model or anonymous type.
type Field struct {
	node
	Name       string
	FieldType  TypeRef
	Optional   bool
	Decorators []*Decorator
}

func (f *Field) modelMemberNode() {}
func (f *Field) Type() NodeType   { return NodeField }
func (f *Field) String() string {
	opt := ""
	if f.Optional {
		opt = "?"
	}
	return fmt.Sprintf("%s%s: %s", f.Name, opt, f.FieldType.String())
}

// Spread includes another model's fields at this position, written
// ...Base.
type Spread struct {
	node
	Target TypeRef
}

func (s *Spread) modelMemberNode() {}
func (s *Spread) Type() NodeType   { return NodeSpread }
func (s *Spread) String() string   { return "..." + s.Target.String() }

// Enum declares an ordered set of named variants, optionally with
// explicit string or integer values.
type Enum struct {
	node
	Name       string
	Decorators []*Decorator
	Variants   []*EnumVariant
}

func (e *Enum) declNode()        {}
func (e *Enum) Type() NodeType   { return NodeEnum }
func (e *Enum) DeclName() string { return e.Name }
func (e *Enum) String() string {
	return fmt.Sprintf("Enum{Name: %q, Variants: %d}", e.Name, len(e.Variants))
}

// HasExplicitValues reports whether any variant declares a value.
func (e *Enum) HasExplicitValues() bool {
	for _, v := range e.Variants {
		if v.Value != nil {
			return true
		}
	}
	return false
}

// EnumVariant is a single enum member. Value is nil when the variant
// has no explicit value; the wire form is then the variant name.
type EnumVariant struct {
	node
	Name  string
	Value *Literal
}

func (v *EnumVariant) Type() NodeType { return NodeEnumVariant }
func (v *EnumVariant) String() string {
	if v.Value == nil {
		return v.Name
	}
	return fmt.Sprintf("%s: %s", v.Name, v.Value.String())
}

// WireValue returns the serialised form of the variant: the explicit
// string value when present, otherwise the declared name.
func (v *EnumVariant) WireValue() string {
	if v.Value != nil && v.Value.Kind == LiteralString {
		return v.Value.Str
	}
	return v.Name
}

// Union declares an ordered list of member types.
type Union struct {
	node
	Name       string
	Decorators []*Decorator
	Members    []TypeRef
}

func (u *Union) declNode()        {}
func (u *Union) Type() NodeType   { return NodeUnion }
func (u *Union) DeclName() string { return u.Name }
func (u *Union) String() string {
	return fmt.Sprintf("Union{Name: %q, Members: %d}", u.Name, len(u.Members))
}

// Scalar declares a named scalar, optionally refining an underlying
// type.
type Scalar struct {
	node
	Name       string
	Decorators []*Decorator
	// Base is the underlying type, nil when unspecified.
	Base TypeRef
}

func (s *Scalar) declNode()        {}
func (s *Scalar) Type() NodeType   { return NodeScalar }
func (s *Scalar) DeclName() string { return s.Name }
func (s *Scalar) String() string {
	if s.Base == nil {
		return fmt.Sprintf("Scalar{Name: %q}", s.Name)
	}
	return fmt.Sprintf("Scalar{Name: %q, Base: %s}", s.Name, s.Base.String())
}

// Alias declares a transparent name for another type.
type Alias struct {
	node
	Name       string
	Decorators []*Decorator
	Target     TypeRef
}

func (a *Alias) declNode()        {}
func (a *Alias) Type() NodeType   { return NodeAlias }
func (a *Alias) DeclName() string { return a.Name }
func (a *Alias) String() string {
	return fmt.Sprintf("Alias{Name: %q, Target: %s}", a.Name, a.Target.String())
}

// Interface declares an ordered list of operations. Interface-level
// decorators (notably @route) apply to every operation.
type Interface struct {
	node
	Name       string
	Decorators []*Decorator
	Operations []*Operation
}

func (i *Interface) declNode()        {}
func (i *Interface) Type() NodeType   { return NodeInterface }
func (i *Interface) DeclName() string { return i.Name }
func (i *Interface) String() string {
	return fmt.Sprintf("Interface{Name: %q, Operations: %d}", i.Name, len(i.Operations))
}

// Operation is a single callable member of an interface.
type Operation struct {
	node
	Name       string
	Decorators []*Decorator
	Params     []*Parameter
	ReturnType TypeRef
}

func (o *Operation) Type() NodeType { return NodeOperation }
func (o *Operation) String() string {
	params := make([]string, len(o.Params))
	for i, p := range o.Params {
		params[i] = p.String()
	}
	return fmt.Sprintf("%s(%s): %s", o.Name, strings.Join(params, ", "), o.ReturnType.String())
}

// Parameter is a named, typed operation input. Its HTTP binding is
// computed by the resolver from decorators, the route and the verb.
type Parameter struct {
	node
	Name       string
	ParamType  TypeRef
	Optional   bool
	Decorators []*Decorator
}

func (p *Parameter) Type() NodeType { return NodeParameter }
func (p *Parameter) String() string {
	opt := ""
	if p.Optional {
		opt = "?"
	}
	return fmt.Sprintf("%s%s: %s", p.Name, opt, p.ParamType.String())
}
