package codegen

import (
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/adi-family/lib-typespec-api/internal/ast"
	"github.com/adi-family/lib-typespec-api/internal/resolver"
)

// pythonEmitter lowers the AST to a Python package: dataclass models,
// an async client and abstract server bases.
type pythonEmitter struct {
	res *resolver.Resolver
	cfg *Config
}

func newPythonEmitter(res *resolver.Resolver, cfg *Config) *pythonEmitter {
	return &pythonEmitter{res: res, cfg: cfg}
}

// pythonReserved is the Python keyword table; colliding identifiers get
// a trailing underscore.
var pythonReserved = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true,
	"class": true, "continue": true, "def": true, "del": true,
	"elif": true, "else": true, "except": true, "finally": true,
	"for": true, "from": true, "global": true, "if": true, "import": true,
	"in": true, "is": true, "lambda": true, "nonlocal": true, "not": true,
	"or": true, "pass": true, "raise": true, "return": true, "try": true,
	"while": true, "with": true, "yield": true,
}

// pyName escapes reserved identifiers with a trailing underscore.
func pyName(name string) string {
	if pythonReserved[name] {
		return name + "_"
	}
	return name
}

// pyPrimitives maps IDL primitive names to Python types.
var pyPrimitives = map[string]string{
	"string":         "str",
	"int8":           "int",
	"int16":          "int",
	"int32":          "int",
	"int64":          "int",
	"uint8":          "int",
	"uint16":         "int",
	"uint32":         "int",
	"uint64":         "int",
	"integer":        "int",
	"float32":        "float",
	"float64":        "float",
	"float":          "float",
	"decimal":        "float",
	"boolean":        "bool",
	"bytes":          "bytes",
	"utcDateTime":    "datetime",
	"offsetDateTime": "datetime",
	"plainDate":      "date",
	"plainTime":      "time",
	"duration":       "str",
	"url":            "str",
	"void":           "None",
	"null":           "None",
}

// pyType maps a type reference to its Python annotation. Unknown names
// fall back to str.
func (e *pythonEmitter) pyType(ref ast.TypeRef) string {
	switch t := ref.(type) {
	case *ast.NamedType:
		if prim, ok := pyPrimitives[t.Name()]; ok {
			return prim
		}
		if (t.Name() == "Record" || t.Name() == "Map") && len(t.TypeArgs) > 0 {
			return "dict[str, " + e.pyType(t.TypeArgs[len(t.TypeArgs)-1]) + "]"
		}
		if e.res.Lookup(t.Name()) != nil {
			return t.Last()
		}
		return "str"
	case *ast.ArrayType:
		return "list[" + e.pyType(t.Elem) + "]"
	case *ast.TupleType:
		elems := make([]string, len(t.Elems))
		for i, el := range t.Elems {
			elems[i] = e.pyType(el)
		}
		return "tuple[" + strings.Join(elems, ", ") + "]"
	case *ast.LiteralType:
		switch t.Value.Kind {
		case ast.LiteralString:
			return "str"
		case ast.LiteralInt:
			return "int"
		case ast.LiteralFloat:
			return "float"
		case ast.LiteralBool:
			return "bool"
		default:
			return "None"
		}
	case *ast.AnonymousType:
		return "dict[str, Any]"
	default:
		return "Any"
	}
}

func (e *pythonEmitter) emit() ([]Artifact, error) {
	pkg := e.cfg.Package

	models, err := e.emitModels()
	if err != nil {
		return nil, err
	}
	artifacts := []Artifact{
		{Path: pkg + "/models.py", Content: []byte(models)},
	}

	routes, err := e.res.Routes()
	if err != nil {
		return nil, err
	}

	if e.cfg.Side.Client() {
		artifacts = append(artifacts, Artifact{
			Path:    pkg + "/client.py",
			Content: []byte(e.emitClient(routes)),
		})
	}
	if e.cfg.Side.Server() {
		artifacts = append(artifacts, Artifact{
			Path:    pkg + "/server.py",
			Content: []byte(e.emitServer(routes)),
		})
	}
	artifacts = append(artifacts, Artifact{
		Path:    pkg + "/__init__.py",
		Content: []byte(e.emitInit()),
	})
	return artifacts, nil
}

// emitModels renders models.py: enums first, dataclasses second,
// aliases last, each group in declaration order.
func (e *pythonEmitter) emitModels() (string, error) {
	var b strings.Builder
	b.WriteString("\"\"\"Generated models. Do not edit by hand.\"\"\"\n")
	b.WriteString("from __future__ import annotations\n\n")
	b.WriteString("from dataclasses import dataclass\n")
	b.WriteString("from datetime import date, datetime, time\n")
	b.WriteString("from enum import Enum\n")
	b.WriteString("from typing import Any\n")

	for _, entry := range e.res.Entries() {
		if enum, ok := entry.Decl.(*ast.Enum); ok {
			e.writeEnum(&b, enum)
		}
	}
	for _, entry := range e.res.Entries() {
		if model, ok := entry.Decl.(*ast.Model); ok {
			if err := e.writeModel(&b, model); err != nil {
				return "", err
			}
		}
	}
	for _, entry := range e.res.Entries() {
		switch decl := entry.Decl.(type) {
		case *ast.Alias:
			fmt.Fprintf(&b, "\n\n%s = %s\n", decl.Name, e.pyType(decl.Target))
		case *ast.Scalar:
			base := "str"
			if decl.Base != nil {
				base = e.pyType(decl.Base)
			}
			fmt.Fprintf(&b, "\n\n%s = %s\n", decl.Name, base)
		case *ast.Union:
			members := make([]string, len(decl.Members))
			for i, m := range decl.Members {
				members[i] = e.pyType(m)
			}
			fmt.Fprintf(&b, "\n\n%s = %s\n", decl.Name, strings.Join(members, " | "))
		}
	}
	return b.String(), nil
}

func (e *pythonEmitter) writeEnum(b *strings.Builder, enum *ast.Enum) {
	fmt.Fprintf(b, "\n\nclass %s(str, Enum):\n", enum.Name)
	if len(enum.Variants) == 0 {
		b.WriteString("    pass\n")
		return
	}
	for _, v := range enum.Variants {
		fmt.Fprintf(b, "    %s = %q\n", strcase.ToScreamingSnake(v.Name), v.WireValue())
	}
}

func (e *pythonEmitter) writeModel(b *strings.Builder, model *ast.Model) error {
	fields, err := e.res.Fields(model)
	if err != nil {
		return err
	}

	// An optional field ahead of a required one would put a defaulted
	// dataclass argument before a positional one; kw_only avoids that
	// without reordering.
	kwOnly := false
	seenOptional := false
	for _, f := range fields {
		if f.Optional {
			seenOptional = true
		} else if seenOptional {
			kwOnly = true
			break
		}
	}

	if kwOnly {
		b.WriteString("\n\n@dataclass(kw_only=True)\n")
	} else {
		b.WriteString("\n\n@dataclass\n")
	}
	fmt.Fprintf(b, "class %s:\n", model.Name)
	if len(fields) == 0 {
		b.WriteString("    pass\n")
		return nil
	}
	for _, f := range fields {
		if f.Optional {
			fmt.Fprintf(b, "    %s: %s | None = None\n", pyName(f.Name), e.pyType(f.FieldType))
		} else {
			fmt.Fprintf(b, "    %s: %s\n", pyName(f.Name), e.pyType(f.FieldType))
		}
	}
	return nil
}

// emitClient renders client.py: a BaseClient owning the session handle
// and one sub-client per interface with an async method per operation.
func (e *pythonEmitter) emitClient(routes []*resolver.Route) string {
	var b strings.Builder
	b.WriteString("\"\"\"Generated async client. Do not edit by hand.\"\"\"\n")
	b.WriteString("from __future__ import annotations\n\n")
	b.WriteString("import dataclasses\n")
	b.WriteString("from typing import Any\n\n")
	b.WriteString("from .models import *  # noqa: F401,F403\n")
	b.WriteString(`

class ApiError(Exception):
    """Raised when the server answers with a non-success status."""

    def __init__(self, status: int, body: str) -> None:
        super().__init__(f"request failed with status {status}")
        self.status = status
        self.body = body


def _decode(typ: Any, data: Any) -> Any:
    """Best-effort decoding of a JSON value into a generated type."""
    if data is None or typ is None:
        return data
    if dataclasses.is_dataclass(typ) and isinstance(data, dict):
        names = {f.name for f in dataclasses.fields(typ)}
        return typ(**{k: v for k, v in data.items() if k in names})
    if isinstance(data, list):
        return [_decode(getattr(typ, "__args__", (None,))[0], item) for item in data]
    return data


class BaseClient:
    """Holds the session handle, base URL and optional credentials.

    The session object must expose an aiohttp-style
    ` + "``request(method, url, params=..., json=..., headers=...)``" + `
    coroutine returning a response with ` + "``status``" + `, ` + "``json()``" + ` and ` + "``text()``" + `.
    """

    def __init__(self, session: Any, base_url: str, access_token: str | None = None) -> None:
        self._session = session
        self._base_url = base_url.rstrip("/")
        self._access_token = access_token

    async def request(self, method: str, path: str, *, query: dict[str, Any] | None = None, body: Any = None) -> Any:
        headers = {"Accept": "application/json"}
        if self._access_token is not None:
            headers["Authorization"] = f"Bearer {self._access_token}"
        params = {k: v for k, v in (query or {}).items() if v is not None}
        if body is not None and dataclasses.is_dataclass(body):
            body = dataclasses.asdict(body)
        response = await self._session.request(
            method, self._base_url + path, params=params, json=body, headers=headers
        )
        if response.status >= 400:
            raise ApiError(response.status, await response.text())
        if response.status == 204:
            return None
        return await response.json()
`)

	byInterface := groupRoutes(routes)
	for _, group := range byInterface {
		e.writeInterfaceClient(&b, group)
	}

	b.WriteString("\n\nclass Client:\n")
	b.WriteString("    \"\"\"Top-level client exposing one attribute per interface.\"\"\"\n\n")
	b.WriteString("    def __init__(self, session: Any, base_url: str, access_token: str | None = None) -> None:\n")
	b.WriteString("        base = BaseClient(session, base_url, access_token)\n")
	if len(byInterface) == 0 {
		b.WriteString("        self._base = base\n")
	}
	for _, group := range byInterface {
		name := group[0].Interface.Name
		fmt.Fprintf(&b, "        self.%s = %sClient(base)\n", strcase.ToSnake(name), name)
	}
	return b.String()
}

// groupRoutes splits routes by interface, preserving source order.
func groupRoutes(routes []*resolver.Route) [][]*resolver.Route {
	var order []string
	groups := make(map[string][]*resolver.Route)
	for _, r := range routes {
		name := r.Interface.Name
		if _, ok := groups[name]; !ok {
			order = append(order, name)
		}
		groups[name] = append(groups[name], r)
	}
	result := make([][]*resolver.Route, len(order))
	for i, name := range order {
		result[i] = groups[name]
	}
	return result
}

func (e *pythonEmitter) writeInterfaceClient(b *strings.Builder, group []*resolver.Route) {
	name := group[0].Interface.Name
	fmt.Fprintf(b, "\n\nclass %sClient:\n", name)
	fmt.Fprintf(b, "    def __init__(self, client: BaseClient) -> None:\n")
	fmt.Fprintf(b, "        self._client = client\n")

	for _, route := range group {
		b.WriteString("\n")
		e.writeClientMethod(b, route)
	}
}

func (e *pythonEmitter) writeClientMethod(b *strings.Builder, route *resolver.Route) {
	var args []string
	args = append(args, "self")
	for _, bound := range route.Params {
		p := bound.Param
		if p.Optional {
			args = append(args, fmt.Sprintf("%s: %s | None = None", pyName(p.Name), e.pyType(p.ParamType)))
		} else {
			args = append(args, fmt.Sprintf("%s: %s", pyName(p.Name), e.pyType(p.ParamType)))
		}
	}

	returnType := "None"
	if !resolver.IsVoid(route.Operation.ReturnType) {
		returnType = e.pyType(route.Operation.ReturnType)
	}

	fmt.Fprintf(b, "    async def %s(%s) -> %s:\n",
		pyName(strcase.ToSnake(route.Operation.Name)), strings.Join(args, ", "), returnType)

	// Path parameters substitute into an f-string template.
	path := route.Path
	usesF := false
	for _, bound := range route.Params {
		if bound.Binding == resolver.BindPath {
			path = strings.ReplaceAll(path,
				"{"+bound.Param.Name+"}", "{"+pyName(bound.Param.Name)+"}")
			usesF = true
		}
	}
	template := fmt.Sprintf("%q", path)
	if usesF {
		template = "f" + template
	}

	var queryItems []string
	body := "None"
	for _, bound := range route.Params {
		switch bound.Binding {
		case resolver.BindQuery:
			queryItems = append(queryItems, fmt.Sprintf("%q: %s", bound.Param.Name, pyName(bound.Param.Name)))
		case resolver.BindBody:
			body = pyName(bound.Param.Name)
		}
	}
	query := "None"
	if len(queryItems) > 0 {
		query = "{" + strings.Join(queryItems, ", ") + "}"
	}

	fmt.Fprintf(b, "        data = await self._client.request(%q, %s, query=%s, body=%s)\n",
		route.Verb, template, query, body)

	if returnType == "None" {
		b.WriteString("        return None\n")
		return
	}
	if target := decodeTarget(returnType); target != "" {
		fmt.Fprintf(b, "        return _decode(%s, data)\n", target)
	} else {
		b.WriteString("        return data\n")
	}
}

// decodeTarget returns the runtime type expression used to decode a
// response, or "" when the raw JSON value is returned as-is.
func decodeTarget(annotation string) string {
	if strings.ContainsAny(annotation, "[]| ") {
		return ""
	}
	switch annotation {
	case "str", "int", "float", "bool", "bytes", "datetime", "date", "time", "Any", "None":
		return ""
	}
	return annotation
}

// emitServer renders server.py: abstract base classes per interface and
// registration helpers appending to a (verb, path, handler) table.
func (e *pythonEmitter) emitServer(routes []*resolver.Route) string {
	var b strings.Builder
	b.WriteString("\"\"\"Generated server interfaces. Do not edit by hand.\"\"\"\n")
	b.WriteString("from __future__ import annotations\n\n")
	b.WriteString("from abc import ABC, abstractmethod\n")
	b.WriteString("from typing import Any\n\n")
	b.WriteString("from .models import *  # noqa: F401,F403\n")

	byInterface := groupRoutes(routes)
	for _, group := range byInterface {
		name := group[0].Interface.Name
		fmt.Fprintf(&b, "\n\nclass %sServer(ABC):\n", name)
		for i, route := range group {
			if i > 0 {
				b.WriteString("\n")
			}
			var args []string
			args = append(args, "self")
			for _, bound := range route.Params {
				p := bound.Param
				annotation := e.pyType(p.ParamType)
				if p.Optional {
					annotation += " | None"
				}
				args = append(args, fmt.Sprintf("%s: %s", pyName(p.Name), annotation))
			}
			returnType := "None"
			if !resolver.IsVoid(route.Operation.ReturnType) {
				returnType = e.pyType(route.Operation.ReturnType)
			}
			b.WriteString("    @abstractmethod\n")
			fmt.Fprintf(&b, "    async def %s(%s) -> %s: ...\n",
				pyName(strcase.ToSnake(route.Operation.Name)), strings.Join(args, ", "), returnType)
		}

		fmt.Fprintf(&b, "\n\ndef register_%s_routes(table: list[tuple[str, str, Any]], impl: %sServer) -> None:\n",
			strcase.ToSnake(name), name)
		for _, route := range group {
			fmt.Fprintf(&b, "    table.append((%q, %q, impl.%s))\n",
				route.Verb, route.Path, pyName(strcase.ToSnake(route.Operation.Name)))
		}
	}
	return b.String()
}

// emitInit renders the package __init__.py re-exports.
func (e *pythonEmitter) emitInit() string {
	var b strings.Builder
	b.WriteString("\"\"\"Generated API bindings. Do not edit by hand.\"\"\"\n")
	b.WriteString("from .models import *  # noqa: F401,F403\n")
	if e.cfg.Side.Client() {
		b.WriteString("from .client import ApiError, BaseClient, Client  # noqa: F401\n")
	}
	if e.cfg.Side.Server() {
		b.WriteString("from .server import *  # noqa: F401,F403\n")
	}
	return b.String()
}
