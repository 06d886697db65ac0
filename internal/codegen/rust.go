package codegen

import (
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/adi-family/lib-typespec-api/internal/ast"
	"github.com/adi-family/lib-typespec-api/internal/resolver"
)

// rustEmitter lowers the AST to a Rust crate: serde models, a
// reqwest-based async client and async-trait server traits with a
// router factory.
type rustEmitter struct {
	res *resolver.Resolver
	cfg *Config
}

func newRustEmitter(res *resolver.Resolver, cfg *Config) *rustEmitter {
	return &rustEmitter{res: res, cfg: cfg}
}

// rustReserved is the Rust keyword table; colliding identifiers are
// suffixed with an underscore and renamed back on the wire.
var rustReserved = map[string]bool{
	"as": true, "async": true, "await": true, "box": true, "break": true,
	"const": true, "continue": true, "crate": true, "dyn": true,
	"else": true, "enum": true, "extern": true, "false": true, "fn": true,
	"for": true, "if": true, "impl": true, "in": true, "let": true,
	"loop": true, "match": true, "mod": true, "move": true, "mut": true,
	"pub": true, "ref": true, "return": true, "self": true, "static": true,
	"struct": true, "super": true, "trait": true, "true": true,
	"type": true, "union": true, "unsafe": true, "use": true,
	"where": true, "while": true, "yield": true,
}

// rustField converts an IDL field name to a Rust field identifier and
// reports whether a serde rename back to the wire name is needed.
func rustField(name string) (ident string, renamed bool) {
	ident = strcase.ToSnake(name)
	if rustReserved[ident] {
		ident += "_"
	}
	return ident, ident != name
}

// rustPrimitives maps IDL primitive names to Rust types.
var rustPrimitives = map[string]string{
	"string":         "String",
	"int8":           "i8",
	"int16":          "i16",
	"int32":          "i32",
	"int64":          "i64",
	"uint8":          "u8",
	"uint16":         "u16",
	"uint32":         "u32",
	"uint64":         "u64",
	"integer":        "i64",
	"float32":        "f32",
	"float64":        "f64",
	"float":          "f64",
	"decimal":        "f64",
	"boolean":        "bool",
	"bytes":          "Vec<u8>",
	"utcDateTime":    "String",
	"offsetDateTime": "String",
	"plainDate":      "String",
	"plainTime":      "String",
	"duration":       "String",
	"url":            "String",
	"void":           "()",
	"null":           "()",
}

// rustType maps a type reference to its Rust form. Unknown names fall
// back to serde_json::Value.
func (e *rustEmitter) rustType(ref ast.TypeRef) string {
	switch t := ref.(type) {
	case *ast.NamedType:
		if prim, ok := rustPrimitives[t.Name()]; ok {
			return prim
		}
		if (t.Name() == "Record" || t.Name() == "Map") && len(t.TypeArgs) > 0 {
			return "std::collections::HashMap<String, " + e.rustType(t.TypeArgs[len(t.TypeArgs)-1]) + ">"
		}
		if e.res.Lookup(t.Name()) != nil {
			return t.Last()
		}
		return "serde_json::Value"
	case *ast.ArrayType:
		return "Vec<" + e.rustType(t.Elem) + ">"
	case *ast.TupleType:
		elems := make([]string, len(t.Elems))
		for i, el := range t.Elems {
			elems[i] = e.rustType(el)
		}
		return "(" + strings.Join(elems, ", ") + ")"
	case *ast.LiteralType:
		switch t.Value.Kind {
		case ast.LiteralString:
			return "String"
		case ast.LiteralInt:
			return "i64"
		case ast.LiteralFloat:
			return "f64"
		case ast.LiteralBool:
			return "bool"
		default:
			return "serde_json::Value"
		}
	case *ast.AnonymousType:
		return "serde_json::Value"
	default:
		return "serde_json::Value"
	}
}

func (e *rustEmitter) emit() ([]Artifact, error) {
	pkg := e.cfg.Package
	root := pkg + "/"

	models, err := e.emitModels()
	if err != nil {
		return nil, err
	}

	artifacts := []Artifact{
		{Path: root + "Cargo.toml", Content: []byte(e.emitManifest())},
		{Path: root + "src/lib.rs", Content: []byte(e.emitLib())},
		{Path: root + "src/models.rs", Content: []byte(models)},
	}

	routes, err := e.res.Routes()
	if err != nil {
		return nil, err
	}

	if e.cfg.Side.Client() {
		artifacts = append(artifacts, Artifact{
			Path:    root + "src/client.rs",
			Content: []byte(e.emitClient(routes)),
		})
	}
	if e.cfg.Side.Server() {
		artifacts = append(artifacts, Artifact{
			Path:    root + "src/server.rs",
			Content: []byte(e.emitServer(routes)),
		})
	}
	return artifacts, nil
}

// emitManifest renders the crate manifest with side-gated dependencies.
func (e *rustEmitter) emitManifest() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[package]\nname = %q\nversion = %q\nedition = \"2021\"\n",
		strcase.ToSnake(e.cfg.Package), e.cfg.Version)
	b.WriteString("\n[dependencies]\n")
	b.WriteString("serde = { version = \"1\", features = [\"derive\"] }\n")
	b.WriteString("serde_json = \"1\"\n")
	if e.cfg.Side.Client() {
		b.WriteString("reqwest = { version = \"0.12\", features = [\"json\"] }\n")
	}
	if e.cfg.Side.Server() {
		b.WriteString("async-trait = \"0.1\"\n")
	}
	return b.String()
}

// emitLib renders src/lib.rs with side-gated module declarations.
func (e *rustEmitter) emitLib() string {
	var b strings.Builder
	b.WriteString("// Generated crate root. Do not edit by hand.\n\n")
	b.WriteString("pub mod models;\n")
	if e.cfg.Side.Client() {
		b.WriteString("pub mod client;\n")
	}
	if e.cfg.Side.Server() {
		b.WriteString("pub mod server;\n")
	}
	return b.String()
}

// emitModels renders src/models.rs in declaration order. Spread bases
// are flattened into each struct; Rust has no structural inheritance.
func (e *rustEmitter) emitModels() (string, error) {
	var b strings.Builder
	b.WriteString("// Generated models. Do not edit by hand.\n\n")
	b.WriteString("use serde::{Deserialize, Serialize};\n")
	b.WriteString(`
/// Unified error for generated clients and servers.
#[derive(Debug)]
pub enum ApiError {
    /// Transport-level failure.
    Transport(String),
    /// Non-success HTTP status with the response body.
    Status(u16, String),
    /// Request or response (de)serialisation failure.
    Decode(String),
}

impl std::fmt::Display for ApiError {
    fn fmt(&self, f: &mut std::fmt::Formatter<'_>) -> std::fmt::Result {
        match self {
            ApiError::Transport(msg) => write!(f, "transport error: {msg}"),
            ApiError::Status(status, _) => write!(f, "request failed with status {status}"),
            ApiError::Decode(msg) => write!(f, "decode error: {msg}"),
        }
    }
}

impl std::error::Error for ApiError {}
`)

	for _, entry := range e.res.Entries() {
		switch decl := entry.Decl.(type) {
		case *ast.Model:
			if err := e.writeModel(&b, decl); err != nil {
				return "", err
			}
		case *ast.Enum:
			e.writeEnum(&b, decl)
		case *ast.Union:
			e.writeUnion(&b, decl)
		case *ast.Scalar:
			base := "String"
			if decl.Base != nil {
				base = e.rustType(decl.Base)
			}
			fmt.Fprintf(&b, "\npub type %s = %s;\n", decl.Name, base)
		case *ast.Alias:
			fmt.Fprintf(&b, "\npub type %s = %s;\n", decl.Name, e.rustType(decl.Target))
		}
	}
	return b.String(), nil
}

func (e *rustEmitter) writeModel(b *strings.Builder, model *ast.Model) error {
	fields, err := e.res.Fields(model)
	if err != nil {
		return err
	}

	b.WriteString("\n#[derive(Debug, Clone, Serialize, Deserialize)]\n")
	fmt.Fprintf(b, "pub struct %s {\n", model.Name)
	for _, f := range fields {
		ident, renamed := rustField(f.Name)
		if renamed {
			fmt.Fprintf(b, "    #[serde(rename = %q)]\n", f.Name)
		}
		if f.Optional {
			b.WriteString("    #[serde(skip_serializing_if = \"Option::is_none\")]\n")
			fmt.Fprintf(b, "    pub %s: Option<%s>,\n", ident, e.rustType(f.FieldType))
		} else {
			fmt.Fprintf(b, "    pub %s: %s,\n", ident, e.rustType(f.FieldType))
		}
	}
	b.WriteString("}\n")
	return nil
}

// writeEnum renders a unit-variant enum with serde renames preserving
// the declared wire values.
func (e *rustEmitter) writeEnum(b *strings.Builder, enum *ast.Enum) {
	b.WriteString("\n#[derive(Debug, Clone, Copy, PartialEq, Eq, Serialize, Deserialize)]\n")
	fmt.Fprintf(b, "pub enum %s {\n", enum.Name)
	for _, v := range enum.Variants {
		variant := strcase.ToCamel(v.Name)
		if wire := v.WireValue(); wire != variant {
			fmt.Fprintf(b, "    #[serde(rename = %q)]\n", wire)
		}
		fmt.Fprintf(b, "    %s,\n", variant)
	}
	b.WriteString("}\n")
}

// writeUnion renders an untagged serde enum; the IDL declares no
// discriminator.
func (e *rustEmitter) writeUnion(b *strings.Builder, union *ast.Union) {
	b.WriteString("\n#[derive(Debug, Clone, Serialize, Deserialize)]\n")
	b.WriteString("#[serde(untagged)]\n")
	fmt.Fprintf(b, "pub enum %s {\n", union.Name)
	for i, member := range union.Members {
		name := fmt.Sprintf("Variant%d", i)
		if named, ok := member.(*ast.NamedType); ok {
			name = strcase.ToCamel(named.Last())
		}
		fmt.Fprintf(b, "    %s(%s),\n", name, e.rustType(member))
	}
	b.WriteString("}\n")
}

// emitClient renders src/client.rs: a BaseClient holding base URL and
// optional bearer token, plus one borrowing sub-client per interface.
func (e *rustEmitter) emitClient(routes []*resolver.Route) string {
	var b strings.Builder
	b.WriteString("// Generated async client. Do not edit by hand.\n\n")
	b.WriteString("use serde::de::DeserializeOwned;\n\n")
	b.WriteString("use crate::models::*;\n")
	b.WriteString(`
impl From<reqwest::Error> for ApiError {
    fn from(err: reqwest::Error) -> Self {
        ApiError::Transport(err.to_string())
    }
}

/// Holds the HTTP handle, base URL and optional bearer credentials.
pub struct BaseClient {
    base_url: String,
    token: Option<String>,
    http: reqwest::Client,
}

impl BaseClient {
    pub fn new(base_url: impl Into<String>) -> Self {
        Self {
            base_url: base_url.into().trim_end_matches('/').to_string(),
            token: None,
            http: reqwest::Client::new(),
        }
    }

    pub fn with_token(mut self, token: impl Into<String>) -> Self {
        self.token = Some(token.into());
        self
    }

    async fn request<T: DeserializeOwned>(
        &self,
        method: reqwest::Method,
        path: String,
        query: Vec<(&'static str, String)>,
        body: Option<serde_json::Value>,
    ) -> Result<T, ApiError> {
        let mut req = self.http.request(method, format!("{}{}", self.base_url, path));
        if !query.is_empty() {
            req = req.query(&query);
        }
        if let Some(token) = &self.token {
            req = req.bearer_auth(token);
        }
        if let Some(body) = body {
            req = req.json(&body);
        }
        let response = req.send().await?;
        let status = response.status();
        let text = response.text().await?;
        if !status.is_success() {
            return Err(ApiError::Status(status.as_u16(), text));
        }
        let payload = if text.is_empty() { "null" } else { text.as_str() };
        serde_json::from_str(payload).map_err(|err| ApiError::Decode(err.to_string()))
    }
}
`)

	byInterface := groupRoutes(routes)
	for _, group := range byInterface {
		name := group[0].Interface.Name
		fmt.Fprintf(&b, "\nimpl BaseClient {\n    pub fn %s(&self) -> %sClient<'_> {\n        %sClient { base: self }\n    }\n}\n",
			strcase.ToSnake(name), name, name)
	}

	for _, group := range byInterface {
		e.writeInterfaceClient(&b, group)
	}
	return b.String()
}

func (e *rustEmitter) writeInterfaceClient(b *strings.Builder, group []*resolver.Route) {
	name := group[0].Interface.Name
	fmt.Fprintf(b, "\npub struct %sClient<'a> {\n    base: &'a BaseClient,\n}\n", name)
	fmt.Fprintf(b, "\nimpl<'a> %sClient<'a> {\n", name)

	for i, route := range group {
		if i > 0 {
			b.WriteString("\n")
		}
		e.writeClientMethod(b, route)
	}
	b.WriteString("}\n")
}

func (e *rustEmitter) writeClientMethod(b *strings.Builder, route *resolver.Route) {
	var args []string
	args = append(args, "&self")
	for _, bound := range route.Params {
		p := bound.Param
		ident, _ := rustField(p.Name)
		argType := e.rustType(p.ParamType)
		if p.Optional {
			argType = "Option<" + argType + ">"
		}
		args = append(args, fmt.Sprintf("%s: %s", ident, argType))
	}

	returnType := e.rustType(route.Operation.ReturnType)

	fmt.Fprintf(b, "    pub async fn %s(%s) -> Result<%s, ApiError> {\n",
		rustMethodName(route.Operation.Name), strings.Join(args, ", "), returnType)

	// Path parameters substitute into a format! template.
	path := route.Path
	var pathArgs []string
	for _, bound := range route.Params {
		if bound.Binding == resolver.BindPath {
			ident, _ := rustField(bound.Param.Name)
			path = strings.Replace(path, "{"+bound.Param.Name+"}", "{}", 1)
			pathArgs = append(pathArgs, ident)
		}
	}
	if len(pathArgs) > 0 {
		fmt.Fprintf(b, "        let path = format!(%q, %s);\n", path, strings.Join(pathArgs, ", "))
	} else {
		fmt.Fprintf(b, "        let path = %q.to_string();\n", path)
	}

	b.WriteString("        let mut query: Vec<(&'static str, String)> = Vec::new();\n")
	body := "None"
	for _, bound := range route.Params {
		p := bound.Param
		ident, _ := rustField(p.Name)
		switch bound.Binding {
		case resolver.BindQuery:
			if p.Optional {
				fmt.Fprintf(b, "        if let Some(value) = %s {\n            query.push((%q, value.to_string()));\n        }\n",
					ident, p.Name)
			} else {
				fmt.Fprintf(b, "        query.push((%q, %s.to_string()));\n", p.Name, ident)
			}
		case resolver.BindBody:
			fmt.Fprintf(b, "        let body = serde_json::to_value(&%s).map_err(|err| ApiError::Decode(err.to_string()))?;\n", ident)
			body = "Some(body)"
		}
	}

	fmt.Fprintf(b, "        self.base.request(reqwest::Method::%s, path, query, %s).await\n",
		route.Verb, body)
	b.WriteString("    }\n")
}

// rustMethodName converts an operation name to snake_case, escaping
// reserved words.
func rustMethodName(name string) string {
	ident := strcase.ToSnake(name)
	if rustReserved[ident] {
		ident += "_"
	}
	return ident
}

// emitServer renders src/server.rs: one async trait per interface and a
// router that dispatches on verb and path template.
func (e *rustEmitter) emitServer(routes []*resolver.Route) string {
	var b strings.Builder
	b.WriteString("// Generated server traits and router. Do not edit by hand.\n\n")
	b.WriteString("use std::collections::HashMap;\n")
	b.WriteString("use std::sync::Arc;\n\n")
	b.WriteString("use async_trait::async_trait;\n\n")
	b.WriteString("use crate::models::*;\n")

	byInterface := groupRoutes(routes)
	for _, group := range byInterface {
		e.writeServerTrait(&b, group)
	}

	e.writeRouter(&b, byInterface)
	e.writeMatchPath(&b)
	return b.String()
}

func (e *rustEmitter) writeServerTrait(b *strings.Builder, group []*resolver.Route) {
	name := group[0].Interface.Name
	fmt.Fprintf(b, "\n#[async_trait]\npub trait %s: Send + Sync {\n", name)
	for _, route := range group {
		var args []string
		args = append(args, "&self")
		for _, bound := range route.Params {
			p := bound.Param
			ident, _ := rustField(p.Name)
			argType := e.rustType(p.ParamType)
			if p.Optional {
				argType = "Option<" + argType + ">"
			}
			args = append(args, fmt.Sprintf("%s: %s", ident, argType))
		}
		fmt.Fprintf(b, "    async fn %s(%s) -> Result<%s, ApiError>;\n",
			rustMethodName(route.Operation.Name), strings.Join(args, ", "),
			e.rustType(route.Operation.ReturnType))
	}
	b.WriteString("}\n")
}

// writeRouter emits the dispatch table: each route matches its verb and
// path template, decodes the bound parameters and forwards to the
// trait implementation.
func (e *rustEmitter) writeRouter(b *strings.Builder, byInterface [][]*resolver.Route) {
	b.WriteString("\n/// Dispatches requests to trait implementations by verb and path.\npub struct Router {\n")
	for _, group := range byInterface {
		name := group[0].Interface.Name
		fmt.Fprintf(b, "    %s: Arc<dyn %s>,\n", strcase.ToSnake(name), name)
	}
	b.WriteString("}\n")

	b.WriteString("\nimpl Router {\n    pub fn new(\n")
	for _, group := range byInterface {
		name := group[0].Interface.Name
		fmt.Fprintf(b, "        %s: Arc<dyn %s>,\n", strcase.ToSnake(name), name)
	}
	b.WriteString("    ) -> Self {\n        Self {\n")
	for _, group := range byInterface {
		name := strcase.ToSnake(group[0].Interface.Name)
		fmt.Fprintf(b, "            %s,\n", name)
	}
	b.WriteString("        }\n    }\n")

	b.WriteString(`
    /// Returns None when no route matches verb and path.
    pub async fn dispatch(
        &self,
        verb: &str,
        path: &str,
        query: &HashMap<String, String>,
        body: Option<serde_json::Value>,
    ) -> Option<Result<serde_json::Value, ApiError>> {
`)

	for _, group := range byInterface {
		for _, route := range group {
			e.writeDispatchArm(b, route)
		}
	}

	b.WriteString("        None\n    }\n}\n")
}

func (e *rustEmitter) writeDispatchArm(b *strings.Builder, route *resolver.Route) {
	iface := strcase.ToSnake(route.Interface.Name)
	method := rustMethodName(route.Operation.Name)

	fmt.Fprintf(b, "        if verb == %q {\n", route.Verb)
	fmt.Fprintf(b, "            if let Some(params) = match_path(%q, path) {\n", route.Path)

	var callArgs []string
	for _, bound := range route.Params {
		p := bound.Param
		ident, _ := rustField(p.Name)
		rustTy := e.rustType(p.ParamType)
		switch bound.Binding {
		case resolver.BindPath:
			if rustTy == "String" {
				fmt.Fprintf(b, "                let %s = params[%q].clone();\n", ident, p.Name)
			} else {
				fmt.Fprintf(b, "                let %s: %s = match params[%q].parse() {\n                    Ok(value) => value,\n                    Err(_) => return Some(Err(ApiError::Status(400, format!(\"invalid path parameter {}\", %q)))),\n                };\n",
					ident, rustTy, p.Name, p.Name)
			}
		case resolver.BindQuery:
			if p.Optional {
				if rustTy == "String" {
					fmt.Fprintf(b, "                let %s = query.get(%q).cloned();\n", ident, p.Name)
				} else {
					fmt.Fprintf(b, "                let %s: Option<%s> = query.get(%q).and_then(|value| value.parse().ok());\n",
						ident, rustTy, p.Name)
				}
			} else {
				if rustTy == "String" {
					fmt.Fprintf(b, "                let %s = match query.get(%q) {\n                    Some(value) => value.clone(),\n                    None => return Some(Err(ApiError::Status(400, format!(\"missing query parameter {}\", %q)))),\n                };\n",
						ident, p.Name, p.Name)
				} else {
					fmt.Fprintf(b, "                let %s: %s = match query.get(%q).and_then(|value| value.parse().ok()) {\n                    Some(value) => value,\n                    None => return Some(Err(ApiError::Status(400, format!(\"invalid query parameter {}\", %q)))),\n                };\n",
						ident, rustTy, p.Name, p.Name)
				}
			}
		case resolver.BindBody:
			if p.Optional {
				fmt.Fprintf(b, "                let %s: Option<%s> = match body.clone() {\n                    Some(value) => match serde_json::from_value(value) {\n                        Ok(decoded) => Some(decoded),\n                        Err(err) => return Some(Err(ApiError::Decode(err.to_string()))),\n                    },\n                    None => None,\n                };\n",
					ident, rustTy)
			} else {
				fmt.Fprintf(b, "                let %s: %s = match body.clone() {\n                    Some(value) => match serde_json::from_value(value) {\n                        Ok(decoded) => decoded,\n                        Err(err) => return Some(Err(ApiError::Decode(err.to_string()))),\n                    },\n                    None => return Some(Err(ApiError::Status(400, \"missing request body\".to_string()))),\n                };\n",
					ident, rustTy)
			}
		}
		callArgs = append(callArgs, ident)
	}

	fmt.Fprintf(b, "                let result = self.%s.%s(%s).await;\n",
		iface, method, strings.Join(callArgs, ", "))
	b.WriteString("                return Some(result.and_then(|value| {\n                    serde_json::to_value(value).map_err(|err| ApiError::Decode(err.to_string()))\n                }));\n")
	b.WriteString("            }\n        }\n")
}

// writeMatchPath emits the path-template matcher shared by every
// dispatch arm.
func (e *rustEmitter) writeMatchPath(b *strings.Builder) {
	b.WriteString(`
/// Matches a concrete path against a template, binding {placeholders}.
fn match_path(template: &str, path: &str) -> Option<HashMap<String, String>> {
    let template_segments: Vec<&str> = template.trim_matches('/').split('/').collect();
    let path_segments: Vec<&str> = path.trim_matches('/').split('/').collect();
    if template_segments.len() != path_segments.len() {
        return None;
    }
    let mut params = HashMap::new();
    for (pattern, actual) in template_segments.iter().zip(path_segments.iter()) {
        if pattern.starts_with('{') && pattern.ends_with('}') {
            params.insert(pattern[1..pattern.len() - 1].to_string(), (*actual).to_string());
        } else if pattern != actual {
            return None;
        }
    }
    Some(params)
}
`)
}
