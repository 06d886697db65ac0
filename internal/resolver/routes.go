package resolver

import (
	"regexp"
	"strings"

	"github.com/adi-family/lib-typespec-api/internal/ast"
)

// Binding is the HTTP location of a parameter.
type Binding int

const (
	// BindQuery passes the parameter as a query key-value pair.
	BindQuery Binding = iota
	// BindPath substitutes the parameter into a route placeholder.
	BindPath
	// BindBody serialises the parameter as the JSON request body.
	BindBody
)

// bindingNames maps Binding to its wire location name.
var bindingNames = map[Binding]string{
	BindQuery: "query",
	BindPath:  "path",
	BindBody:  "body",
}

// String returns the wire location name of the binding.
func (b Binding) String() string { return bindingNames[b] }

// BoundParam is a parameter with its computed binding.
type BoundParam struct {
	Param   *ast.Parameter
	Binding Binding
}

// Route is the computed HTTP surface of one operation.
type Route struct {
	Interface *ast.Interface
	Operation *ast.Operation
	// Verb is the upper-case HTTP method, default GET.
	Verb string
	// Path is the joined, normalised route template.
	Path string
	// PathParams holds the {placeholder} names in Path, in order.
	PathParams []string
	// Params holds every parameter with its binding, in declaration order.
	Params []BoundParam
	// Body is the single body parameter, nil when absent.
	Body *ast.Parameter
}

// placeholderPattern matches {name} segments in a route template.
var placeholderPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// JoinRoutes concatenates an interface route prefix with an operation
// route suffix: adjacent slashes collapse and a single leading slash is
// kept. Empty segments join to "/".
func JoinRoutes(prefix, suffix string) string {
	joined := prefix + "/" + suffix
	for strings.Contains(joined, "//") {
		joined = strings.ReplaceAll(joined, "//", "/")
	}
	if !strings.HasPrefix(joined, "/") {
		joined = "/" + joined
	}
	if len(joined) > 1 {
		joined = strings.TrimSuffix(joined, "/")
	}
	return joined
}

// PathParams returns the {placeholder} names in a route template.
func PathParams(path string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(path, -1)
	if len(matches) == 0 {
		return nil
	}
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m[1]
	}
	return names
}

// routeOf returns the @route argument of a decorator list, or "".
func routeOf(decorators []*ast.Decorator) string {
	if d := ast.FindDecorator(decorators, "route"); d != nil {
		return d.StringArg(0)
	}
	return ""
}

// verbOf returns the upper-case HTTP verb of an operation, defaulting
// to GET. The parser has already rejected duplicate verbs.
func verbOf(op *ast.Operation) string {
	for _, d := range op.Decorators {
		if httpVerbs[d.Name] {
			return strings.ToUpper(d.Name)
		}
	}
	return "GET"
}

// httpVerbs mirrors the verb decorator set accepted by the parser.
var httpVerbs = map[string]bool{
	"get":    true,
	"post":   true,
	"put":    true,
	"patch":  true,
	"delete": true,
}

// bodyVerbs is the set of verbs whose default binding may be body.
var bodyVerbs = map[string]bool{
	"POST":  true,
	"PUT":   true,
	"PATCH": true,
}

// RouteFor computes the verb, normalised path and parameter bindings of
// a single operation. It fails with ErrMultipleBody when more than one
// parameter binds to the body.
func (r *Resolver) RouteFor(iface *ast.Interface, op *ast.Operation) (*Route, error) {
	path := JoinRoutes(routeOf(iface.Decorators), routeOf(op.Decorators))
	route := &Route{
		Interface:  iface,
		Operation:  op,
		Verb:       verbOf(op),
		Path:       path,
		PathParams: PathParams(path),
	}

	placeholders := make(map[string]bool, len(route.PathParams))
	for _, name := range route.PathParams {
		placeholders[name] = true
	}

	for _, param := range op.Params {
		binding := r.bindingFor(param, route.Verb, placeholders)
		if binding == BindBody {
			if route.Body != nil {
				return nil, &ResolveError{
					Kind: ErrMultipleBody,
					Pos:  param.Pos(),
					Message: "operation " + iface.Name + "." + op.Name +
						" has more than one body parameter",
				}
			}
			route.Body = param
		}
		route.Params = append(route.Params, BoundParam{Param: param, Binding: binding})
	}
	return route, nil
}

// bindingFor applies the binding rules: an explicit decorator wins; a
// parameter named like a route placeholder defaults to path; otherwise
// non-scalar parameters on body-carrying verbs default to body and
// everything else to query.
func (r *Resolver) bindingFor(param *ast.Parameter, verb string, placeholders map[string]bool) Binding {
	switch {
	case ast.HasDecorator(param.Decorators, "path"):
		return BindPath
	case ast.HasDecorator(param.Decorators, "query"):
		return BindQuery
	case ast.HasDecorator(param.Decorators, "body"):
		return BindBody
	case placeholders[param.Name]:
		return BindPath
	case bodyVerbs[verb] && !r.IsScalar(param.ParamType):
		return BindBody
	default:
		return BindQuery
	}
}

// Routes computes every operation route in source order and rejects
// ambiguous (verb, path) pairs across the whole file.
func (r *Resolver) Routes() ([]*Route, error) {
	var routes []*Route
	seen := make(map[string]*Route)

	for _, iface := range r.Interfaces() {
		for _, op := range iface.Operations {
			route, err := r.RouteFor(iface, op)
			if err != nil {
				return nil, err
			}
			key := route.Verb + " " + route.Path
			if prev, ok := seen[key]; ok {
				return nil, &ResolveError{
					Kind: ErrAmbiguousRoute,
					Pos:  op.Pos(),
					Message: "operations " + prev.Interface.Name + "." + prev.Operation.Name +
						" and " + iface.Name + "." + op.Name +
						" both handle " + key,
				}
			}
			seen[key] = route
			routes = append(routes, route)
		}
	}
	return routes, nil
}
