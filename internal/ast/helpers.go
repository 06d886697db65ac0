package ast

// Visitor is a function type for AST traversal.
// It receives each node and returns true to continue traversal
// or false to stop.
type Visitor func(node Node) bool

// Walk traverses the AST in depth-first order, calling the visitor
// function for each node. If the visitor returns false, traversal stops
// immediately. Walk returns true if traversal completed normally, false
// if it was stopped early.
func Walk(node Node, visitor Visitor) bool {
	if node == nil {
		return true
	}

	if !visitor(node) {
		return false
	}

	switch n := node.(type) {
	case *File:
		for _, d := range n.Decls {
			if !Walk(d, visitor) {
				return false
			}
		}

	case *Namespace:
		for _, d := range n.Decorators {
			if !Walk(d, visitor) {
				return false
			}
		}
		for _, d := range n.Decls {
			if !Walk(d, visitor) {
				return false
			}
		}

	case *Model:
		for _, d := range n.Decorators {
			if !Walk(d, visitor) {
				return false
			}
		}
		if n.Extends != nil {
			if !Walk(n.Extends, visitor) {
				return false
			}
		}
		for _, m := range n.Members {
			if !Walk(m, visitor) {
				return false
			}
		}

	case *Field:
		for _, d := range n.Decorators {
			if !Walk(d, visitor) {
				return false
			}
		}
		if !Walk(n.FieldType, visitor) {
			return false
		}

	case *Spread:
		if !Walk(n.Target, visitor) {
			return false
		}

	case *Enum:
		for _, v := range n.Variants {
			if !Walk(v, visitor) {
				return false
			}
		}

	case *Union:
		for _, m := range n.Members {
			if !Walk(m, visitor) {
				return false
			}
		}

	case *Scalar:
		if n.Base != nil {
			if !Walk(n.Base, visitor) {
				return false
			}
		}

	case *Alias:
		if !Walk(n.Target, visitor) {
			return false
		}

	case *Interface:
		for _, d := range n.Decorators {
			if !Walk(d, visitor) {
				return false
			}
		}
		for _, op := range n.Operations {
			if !Walk(op, visitor) {
				return false
			}
		}

	case *Operation:
		for _, d := range n.Decorators {
			if !Walk(d, visitor) {
				return false
			}
		}
		for _, p := range n.Params {
			if !Walk(p, visitor) {
				return false
			}
		}
		if !Walk(n.ReturnType, visitor) {
			return false
		}

	case *Parameter:
		for _, d := range n.Decorators {
			if !Walk(d, visitor) {
				return false
			}
		}
		if !Walk(n.ParamType, visitor) {
			return false
		}

	case *NamedType:
		for _, a := range n.TypeArgs {
			if !Walk(a, visitor) {
				return false
			}
		}

	case *ArrayType:
		if !Walk(n.Elem, visitor) {
			return false
		}

	case *TupleType:
		for _, e := range n.Elems {
			if !Walk(e, visitor) {
				return false
			}
		}

	case *AnonymousType:
		for _, f := range n.Fields {
			if !Walk(f, visitor) {
				return false
			}
		}
	}

	return true
}

// FindDecorator returns the first decorator with the given name, or
// nil when absent.
func FindDecorator(decorators []*Decorator, name string) *Decorator {
	for _, d := range decorators {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// HasDecorator reports whether a decorator with the given name is
// present.
func HasDecorator(decorators []*Decorator, name string) bool {
	return FindDecorator(decorators, name) != nil
}
