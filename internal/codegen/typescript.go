package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/adi-family/lib-typespec-api/internal/ast"
	"github.com/adi-family/lib-typespec-api/internal/resolver"
)

// typeScriptEmitter lowers the AST to a small TypeScript file set:
// interface models, a fetch-based client and server-side interfaces.
type typeScriptEmitter struct {
	res *resolver.Resolver
	cfg *Config
}

func newTypeScriptEmitter(res *resolver.Resolver, cfg *Config) *typeScriptEmitter {
	return &typeScriptEmitter{res: res, cfg: cfg}
}

// tsPrimitives maps IDL primitive names to TypeScript types.
var tsPrimitives = map[string]string{
	"string":         "string",
	"int8":           "number",
	"int16":          "number",
	"int32":          "number",
	"int64":          "number",
	"uint8":          "number",
	"uint16":         "number",
	"uint32":         "number",
	"uint64":         "number",
	"integer":        "number",
	"float32":        "number",
	"float64":        "number",
	"float":          "number",
	"decimal":        "number",
	"boolean":        "boolean",
	"bytes":          "string",
	"utcDateTime":    "string",
	"offsetDateTime": "string",
	"plainDate":      "string",
	"plainTime":      "string",
	"duration":       "string",
	"url":            "string",
	"void":           "void",
	"null":           "null",
}

// tsType maps a type reference to its TypeScript form. Unknown names
// fall back to any.
func (e *typeScriptEmitter) tsType(ref ast.TypeRef) string {
	switch t := ref.(type) {
	case *ast.NamedType:
		if prim, ok := tsPrimitives[t.Name()]; ok {
			return prim
		}
		if (t.Name() == "Record" || t.Name() == "Map") && len(t.TypeArgs) > 0 {
			return "Record<string, " + e.tsType(t.TypeArgs[len(t.TypeArgs)-1]) + ">"
		}
		if e.res.Lookup(t.Name()) != nil {
			return t.Last()
		}
		return "any"
	case *ast.ArrayType:
		elem := e.tsType(t.Elem)
		if strings.ContainsAny(elem, "|& ") {
			return "(" + elem + ")[]"
		}
		return elem + "[]"
	case *ast.TupleType:
		elems := make([]string, len(t.Elems))
		for i, el := range t.Elems {
			elems[i] = e.tsType(el)
		}
		return "[" + strings.Join(elems, ", ") + "]"
	case *ast.LiteralType:
		return t.Value.String()
	case *ast.AnonymousType:
		fields := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			opt := ""
			if f.Optional {
				opt = "?"
			}
			fields[i] = fmt.Sprintf("%s%s: %s", f.Name, opt, e.tsType(f.FieldType))
		}
		return "{ " + strings.Join(fields, "; ") + " }"
	default:
		return "any"
	}
}

func (e *typeScriptEmitter) emit() ([]Artifact, error) {
	models, err := e.emitModels()
	if err != nil {
		return nil, err
	}
	artifacts := []Artifact{
		{Path: "models.ts", Content: []byte(models)},
	}

	routes, err := e.res.Routes()
	if err != nil {
		return nil, err
	}

	if e.cfg.Side.Client() {
		artifacts = append(artifacts, Artifact{
			Path:    "client.ts",
			Content: []byte(e.emitClient(routes)),
		})
	}
	if e.cfg.Side.Server() {
		artifacts = append(artifacts, Artifact{
			Path:    "server.ts",
			Content: []byte(e.emitServer(routes)),
		})
	}
	artifacts = append(artifacts, Artifact{
		Path:    "index.ts",
		Content: []byte(e.emitIndex()),
	})
	return artifacts, nil
}

// emitModels renders models.ts in declaration order.
func (e *typeScriptEmitter) emitModels() (string, error) {
	var b strings.Builder
	b.WriteString("// Generated models. Do not edit by hand.\n")

	for _, entry := range e.res.Entries() {
		switch decl := entry.Decl.(type) {
		case *ast.Model:
			if err := e.writeModel(&b, decl); err != nil {
				return "", err
			}
		case *ast.Enum:
			e.writeEnum(&b, decl)
		case *ast.Union:
			members := make([]string, len(decl.Members))
			for i, m := range decl.Members {
				members[i] = e.tsType(m)
			}
			fmt.Fprintf(&b, "\nexport type %s = %s;\n", decl.Name, strings.Join(members, " | "))
		case *ast.Scalar:
			base := "string"
			if decl.Base != nil {
				base = e.tsType(decl.Base)
			}
			fmt.Fprintf(&b, "\nexport type %s = %s;\n", decl.Name, base)
		case *ast.Alias:
			fmt.Fprintf(&b, "\nexport type %s = %s;\n", decl.Name, e.tsType(decl.Target))
		}
	}
	return b.String(), nil
}

func (e *typeScriptEmitter) writeModel(b *strings.Builder, model *ast.Model) error {
	fields, err := e.res.Fields(model)
	if err != nil {
		return err
	}

	fmt.Fprintf(b, "\nexport interface %s {\n", model.Name)
	for _, f := range fields {
		opt := ""
		if f.Optional {
			opt = "?"
		}
		fmt.Fprintf(b, "  %s%s: %s;\n", f.Name, opt, e.tsType(f.FieldType))
	}
	b.WriteString("}\n")
	return nil
}

// writeEnum renders implicit enums as string literal unions and enums
// with explicit values as const objects plus a value union.
func (e *typeScriptEmitter) writeEnum(b *strings.Builder, enum *ast.Enum) {
	if !enum.HasExplicitValues() {
		values := make([]string, len(enum.Variants))
		for i, v := range enum.Variants {
			values[i] = fmt.Sprintf("%q", v.Name)
		}
		fmt.Fprintf(b, "\nexport type %s = %s;\n", enum.Name, strings.Join(values, " | "))
		return
	}

	fmt.Fprintf(b, "\nexport const %s = {\n", enum.Name)
	for _, v := range enum.Variants {
		value := fmt.Sprintf("%q", v.WireValue())
		if v.Value != nil && v.Value.Kind == ast.LiteralInt {
			value = v.Value.String()
		}
		fmt.Fprintf(b, "  %s: %s,\n", strcase.ToCamel(v.Name), value)
	}
	b.WriteString("} as const;\n")
	fmt.Fprintf(b, "export type %s = (typeof %s)[keyof typeof %s];\n", enum.Name, enum.Name, enum.Name)
}

// referencedTypes collects the declared type names an operation set
// references, for the models import line.
func (e *typeScriptEmitter) referencedTypes(routes []*resolver.Route) []string {
	seen := make(map[string]bool)
	var names []string
	collect := func(ref ast.TypeRef) {
		ast.Walk(ref, func(node ast.Node) bool {
			named, ok := node.(*ast.NamedType)
			if !ok {
				return true
			}
			if _, prim := tsPrimitives[named.Name()]; prim {
				return true
			}
			if e.res.Lookup(named.Name()) != nil && !seen[named.Last()] {
				seen[named.Last()] = true
				names = append(names, named.Last())
			}
			return true
		})
	}
	for _, route := range routes {
		for _, p := range route.Operation.Params {
			collect(p.ParamType)
		}
		collect(route.Operation.ReturnType)
	}
	sort.Strings(names)
	return names
}

// writeModelsImport emits a named type import for every referenced
// declaration.
func (e *typeScriptEmitter) writeModelsImport(b *strings.Builder, routes []*resolver.Route) {
	if names := e.referencedTypes(routes); len(names) > 0 {
		fmt.Fprintf(b, "import type { %s } from \"./models\";\n", strings.Join(names, ", "))
	}
}

// emitClient renders client.ts: a runtime-agnostic BaseClient taking an
// injectable fetch binding, plus one class per interface.
func (e *typeScriptEmitter) emitClient(routes []*resolver.Route) string {
	var b strings.Builder
	b.WriteString("// Generated async client. Do not edit by hand.\n")
	e.writeModelsImport(&b, routes)
	b.WriteString(`
export interface FetchResponse {
  ok: boolean;
  status: number;
  text(): Promise<string>;
  json(): Promise<unknown>;
}

export type FetchLike = (
  url: string,
  init: { method: string; headers: Record<string, string>; body?: string },
) => Promise<FetchResponse>;

export interface ClientOptions {
  baseUrl: string;
  accessToken?: string;
  fetch: FetchLike;
}

export class ApiError extends Error {
  constructor(
    public readonly status: number,
    public readonly body: string,
  ) {
    super("request failed with status " + status);
  }
}

export class BaseClient {
  constructor(private readonly options: ClientOptions) {}

  async request<T>(
    method: string,
    path: string,
    query?: Record<string, unknown>,
    body?: unknown,
  ): Promise<T> {
    const url = new URL(this.options.baseUrl.replace(/\/$/, "") + path);
    for (const [key, value] of Object.entries(query ?? {})) {
      if (value !== undefined && value !== null) {
        url.searchParams.set(key, String(value));
      }
    }
    const headers: Record<string, string> = { Accept: "application/json" };
    if (this.options.accessToken !== undefined) {
      headers["Authorization"] = "Bearer " + this.options.accessToken;
    }
    if (body !== undefined) {
      headers["Content-Type"] = "application/json";
    }
    const response = await this.options.fetch(url.toString(), {
      method,
      headers,
      body: body === undefined ? undefined : JSON.stringify(body),
    });
    if (!response.ok) {
      throw new ApiError(response.status, await response.text());
    }
    if (response.status === 204) {
      return undefined as T;
    }
    return (await response.json()) as T;
  }
}
`)

	byInterface := groupRoutes(routes)
	for _, group := range byInterface {
		e.writeInterfaceClient(&b, group)
	}

	b.WriteString("\nexport class Client {\n")
	for _, group := range byInterface {
		name := group[0].Interface.Name
		fmt.Fprintf(&b, "  readonly %s: %sClient;\n", strcase.ToLowerCamel(name), name)
	}
	b.WriteString("\n  constructor(options: ClientOptions) {\n")
	b.WriteString("    const base = new BaseClient(options);\n")
	for _, group := range byInterface {
		name := group[0].Interface.Name
		fmt.Fprintf(&b, "    this.%s = new %sClient(base);\n", strcase.ToLowerCamel(name), name)
	}
	b.WriteString("  }\n}\n")
	return b.String()
}

func (e *typeScriptEmitter) writeInterfaceClient(b *strings.Builder, group []*resolver.Route) {
	name := group[0].Interface.Name
	fmt.Fprintf(b, "\nexport class %sClient {\n", name)
	b.WriteString("  constructor(private readonly base: BaseClient) {}\n")

	for _, route := range group {
		b.WriteString("\n")
		e.writeClientMethod(b, route)
	}
	b.WriteString("}\n")
}

func (e *typeScriptEmitter) writeClientMethod(b *strings.Builder, route *resolver.Route) {
	var args []string
	for _, bound := range route.Params {
		p := bound.Param
		opt := ""
		if p.Optional {
			opt = "?"
		}
		args = append(args, fmt.Sprintf("%s%s: %s", p.Name, opt, e.tsType(p.ParamType)))
	}

	returnType := "void"
	if !resolver.IsVoid(route.Operation.ReturnType) {
		returnType = e.tsType(route.Operation.ReturnType)
	}

	fmt.Fprintf(b, "  async %s(%s): Promise<%s> {\n",
		strcase.ToLowerCamel(route.Operation.Name), strings.Join(args, ", "), returnType)

	// Path parameters substitute into a template literal.
	path := "`" + route.Path + "`"
	for _, bound := range route.Params {
		if bound.Binding == resolver.BindPath {
			path = strings.ReplaceAll(path,
				"{"+bound.Param.Name+"}",
				"${encodeURIComponent(String("+bound.Param.Name+"))}")
		}
	}

	var queryItems []string
	body := "undefined"
	for _, bound := range route.Params {
		switch bound.Binding {
		case resolver.BindQuery:
			queryItems = append(queryItems, bound.Param.Name)
		case resolver.BindBody:
			body = bound.Param.Name
		}
	}
	query := "undefined"
	if len(queryItems) > 0 {
		query = "{ " + strings.Join(queryItems, ", ") + " }"
	}

	fmt.Fprintf(b, "    return this.base.request<%s>(%q, %s, %s, %s);\n",
		returnType, route.Verb, path, query, body)
	b.WriteString("  }\n")
}

// emitServer renders server.ts: an interface per IDL interface and
// registration helpers sharing the routing-table shape of the Python
// server.
func (e *typeScriptEmitter) emitServer(routes []*resolver.Route) string {
	var b strings.Builder
	b.WriteString("// Generated server interfaces. Do not edit by hand.\n")
	e.writeModelsImport(&b, routes)
	b.WriteString(`
export type RouteHandler = (
  params: Record<string, string>,
  query: Record<string, unknown>,
  body: unknown,
) => Promise<unknown>;

export interface RouteEntry {
  verb: string;
  path: string;
  handler: RouteHandler;
}
`)

	byInterface := groupRoutes(routes)
	for _, group := range byInterface {
		name := group[0].Interface.Name
		fmt.Fprintf(&b, "\nexport interface %sServer {\n", name)
		for _, route := range group {
			var args []string
			for _, bound := range route.Params {
				p := bound.Param
				argType := e.tsType(p.ParamType)
				if p.Optional {
					argType += " | undefined"
				}
				args = append(args, fmt.Sprintf("%s: %s", p.Name, argType))
			}
			returnType := "void"
			if !resolver.IsVoid(route.Operation.ReturnType) {
				returnType = e.tsType(route.Operation.ReturnType)
			}
			fmt.Fprintf(&b, "  %s(%s): Promise<%s>;\n",
				strcase.ToLowerCamel(route.Operation.Name), strings.Join(args, ", "), returnType)
		}
		b.WriteString("}\n")

		fmt.Fprintf(&b, "\nexport function register%sRoutes(table: RouteEntry[], impl: %sServer): void {\n", name, name)
		for _, route := range group {
			var callArgs []string
			for _, bound := range route.Params {
				p := bound.Param
				switch bound.Binding {
				case resolver.BindPath:
					callArgs = append(callArgs, fmt.Sprintf("params[%q] as unknown as %s", p.Name, e.tsType(p.ParamType)))
				case resolver.BindQuery:
					callArgs = append(callArgs, fmt.Sprintf("query[%q] as %s", p.Name, e.tsType(p.ParamType)))
				case resolver.BindBody:
					callArgs = append(callArgs, fmt.Sprintf("body as %s", e.tsType(p.ParamType)))
				}
			}
			fmt.Fprintf(&b, "  table.push({\n    verb: %q,\n    path: %q,\n    handler: async (params, query, body) => impl.%s(%s),\n  });\n",
				route.Verb, route.Path,
				strcase.ToLowerCamel(route.Operation.Name), strings.Join(callArgs, ", "))
		}
		b.WriteString("}\n")
	}
	return b.String()
}

// emitIndex renders index.ts re-exports gated by side.
func (e *typeScriptEmitter) emitIndex() string {
	var b strings.Builder
	b.WriteString("// Generated entry point. Do not edit by hand.\n")
	b.WriteString("export * from \"./models\";\n")
	if e.cfg.Side.Client() {
		b.WriteString("export * from \"./client\";\n")
	}
	if e.cfg.Side.Server() {
		b.WriteString("export * from \"./server\";\n")
	}
	return b.String()
}
