package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adi-family/lib-typespec-api/internal/ast"
)

func TestParseModel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		input      string
		wantFields int
		wantErr    bool
	}{
		{
			name:       "simple model",
			input:      `model User { id: string; name?: string; }`,
			wantFields: 2,
		},
		{
			name:       "comma separators",
			input:      `model User { id: string, name: string, }`,
			wantFields: 2,
		},
		{
			name:       "no separators",
			input:      "model User { id: string\n name: string }",
			wantFields: 2,
		},
		{
			name:       "empty model",
			input:      `model Empty {}`,
			wantFields: 0,
		},
		{
			name:       "keyword field names",
			input:      `model Odd { model: string; interface: int32; }`,
			wantFields: 2,
		},
		{
			name:    "missing brace",
			input:   `model User { id: string;`,
			wantErr: true,
		},
		{
			name:    "missing field type",
			input:   `model User { id: ; }`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			file, err := Parse("", tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, file.Decls, 1)

			model, ok := file.Decls[0].(*ast.Model)
			require.True(t, ok, "expected *ast.Model, got %T", file.Decls[0])
			assert.NotEmpty(t, model.Name)
			assert.Len(t, model.Fields(), tt.wantFields)
		})
	}
}

func TestParseFieldDetails(t *testing.T) {
	t.Parallel()

	file, err := Parse("", `model User { id: string; name?: string; tags: string[]; }`)
	require.NoError(t, err)

	model := file.Decls[0].(*ast.Model)
	fields := model.Fields()
	require.Len(t, fields, 3)

	assert.Equal(t, "id", fields[0].Name)
	assert.False(t, fields[0].Optional)

	assert.Equal(t, "name", fields[1].Name)
	assert.True(t, fields[1].Optional)

	arr, ok := fields[2].FieldType.(*ast.ArrayType)
	require.True(t, ok)
	named, ok := arr.Elem.(*ast.NamedType)
	require.True(t, ok)
	assert.Equal(t, "string", named.Name())
}

func TestParseTypeRefs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		check func(t *testing.T, ref ast.TypeRef)
	}{
		{
			name:  "dotted name",
			input: `model M { f: Api.Common.User; }`,
			check: func(t *testing.T, ref ast.TypeRef) {
				named := ref.(*ast.NamedType)
				assert.Equal(t, []string{"Api", "Common", "User"}, named.Path)
			},
		},
		{
			name:  "generic",
			input: `model M { f: Map<string, int32>; }`,
			check: func(t *testing.T, ref ast.TypeRef) {
				named := ref.(*ast.NamedType)
				assert.Equal(t, "Map", named.Name())
				require.Len(t, named.TypeArgs, 2)
			},
		},
		{
			name:  "nested generic",
			input: `model M { f: Map<string, List<int32>>; }`,
			check: func(t *testing.T, ref ast.TypeRef) {
				named := ref.(*ast.NamedType)
				require.Len(t, named.TypeArgs, 2)
				inner := named.TypeArgs[1].(*ast.NamedType)
				assert.Equal(t, "List", inner.Name())
			},
		},
		{
			name:  "nested array",
			input: `model M { f: int32[][]; }`,
			check: func(t *testing.T, ref ast.TypeRef) {
				outer := ref.(*ast.ArrayType)
				_, ok := outer.Elem.(*ast.ArrayType)
				assert.True(t, ok)
			},
		},
		{
			name:  "tuple",
			input: `model M { f: [string, int32]; }`,
			check: func(t *testing.T, ref ast.TypeRef) {
				tuple := ref.(*ast.TupleType)
				assert.Len(t, tuple.Elems, 2)
			},
		},
		{
			name:  "string literal type",
			input: `model M { f: "active"; }`,
			check: func(t *testing.T, ref ast.TypeRef) {
				lit := ref.(*ast.LiteralType)
				assert.Equal(t, ast.LiteralString, lit.Value.Kind)
				assert.Equal(t, "active", lit.Value.Str)
			},
		},
		{
			name:  "anonymous model",
			input: `model M { f: { name: string; age?: int32 }; }`,
			check: func(t *testing.T, ref ast.TypeRef) {
				anon := ref.(*ast.AnonymousType)
				require.Len(t, anon.Fields, 2)
				assert.True(t, anon.Fields[1].Optional)
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			file, err := Parse("", tt.input)
			require.NoError(t, err)
			model := file.Decls[0].(*ast.Model)
			require.Len(t, model.Fields(), 1)
			tt.check(t, model.Fields()[0].FieldType)
		})
	}
}

func TestParseSpreadAndExtends(t *testing.T) {
	t.Parallel()

	file, err := Parse("", `
model Audited { createdAt: utcDateTime }
model User extends Audited { ...Tagged; id: string }
`)
	require.NoError(t, err)
	require.Len(t, file.Decls, 2)

	user := file.Decls[1].(*ast.Model)
	require.NotNil(t, user.Extends)
	require.Len(t, user.Members, 2)

	spread, ok := user.Members[0].(*ast.Spread)
	require.True(t, ok)
	assert.Equal(t, "Tagged", spread.Target.(*ast.NamedType).Name())

	_, ok = user.Members[1].(*ast.Field)
	assert.True(t, ok)
}

func TestParseEnum(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		names  []string
		values []*ast.Literal
	}{
		{
			name:  "implicit values",
			input: `enum Status { active, inactive }`,
			names: []string{"active", "inactive"},
		},
		{
			name:  "explicit string values",
			input: `enum Status { Active: "on"; Inactive: "off" }`,
			names: []string{"Active", "Inactive"},
		},
		{
			name:  "explicit int values",
			input: `enum Code { ok: 200, notFound: 404 }`,
			names: []string{"ok", "notFound"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			file, err := Parse("", tt.input)
			require.NoError(t, err)
			enum := file.Decls[0].(*ast.Enum)
			require.Len(t, enum.Variants, len(tt.names))
			for i, want := range tt.names {
				assert.Equal(t, want, enum.Variants[i].Name)
			}
		})
	}
}

func TestParseUnionScalarAlias(t *testing.T) {
	t.Parallel()

	file, err := Parse("", `
union Pet { Cat, Dog }
scalar uuid extends string;
alias UserList = User[];
`)
	require.NoError(t, err)
	require.Len(t, file.Decls, 3)

	union := file.Decls[0].(*ast.Union)
	assert.Len(t, union.Members, 2)

	scalar := file.Decls[1].(*ast.Scalar)
	assert.Equal(t, "uuid", scalar.Name)
	require.NotNil(t, scalar.Base)

	alias := file.Decls[2].(*ast.Alias)
	_, ok := alias.Target.(*ast.ArrayType)
	assert.True(t, ok)
}

func TestParseInterface(t *testing.T) {
	t.Parallel()

	file, err := Parse("", `
@route("/users")
interface Users {
  @get @route("/{id}") get(@path id: string): User;
  @post create(@body body: CreateUserRequest): User;
  op list(limit?: int32): User[];
}
`)
	require.NoError(t, err)

	iface := file.Decls[0].(*ast.Interface)
	assert.Equal(t, "Users", iface.Name)

	route := ast.FindDecorator(iface.Decorators, "route")
	require.NotNil(t, route)
	assert.Equal(t, "/users", route.StringArg(0))

	require.Len(t, iface.Operations, 3)

	get := iface.Operations[0]
	assert.Equal(t, "get", get.Name)
	assert.True(t, ast.HasDecorator(get.Decorators, "get"))
	require.Len(t, get.Params, 1)
	assert.True(t, ast.HasDecorator(get.Params[0].Decorators, "path"))

	create := iface.Operations[1]
	assert.True(t, ast.HasDecorator(create.Decorators, "post"))

	list := iface.Operations[2]
	assert.Equal(t, "list", list.Name)
	require.Len(t, list.Params, 1)
	assert.True(t, list.Params[0].Optional)
}

func TestParseDecoratorArgs(t *testing.T) {
	t.Parallel()

	file, err := Parse("", `@doc("Users API", 2, true) interface Users {}`)
	require.NoError(t, err)

	iface := file.Decls[0].(*ast.Interface)
	doc := ast.FindDecorator(iface.Decorators, "doc")
	require.NotNil(t, doc)
	require.Len(t, doc.Args, 3)
	assert.Equal(t, ast.LiteralString, doc.Args[0].Kind)
	assert.Equal(t, int64(2), doc.Args[1].Int)
	assert.True(t, doc.Args[2].Bool)
}

func TestParseNamespace(t *testing.T) {
	t.Parallel()

	file, err := Parse("", `
import "./common.tsp";
using Api.Common;

namespace Api.Users {
  model User { id: string }
}
`)
	require.NoError(t, err)
	require.Len(t, file.Decls, 3)

	imp := file.Decls[0].(*ast.Import)
	assert.Equal(t, "./common.tsp", imp.Target)

	using := file.Decls[1].(*ast.Using)
	assert.Equal(t, []string{"Api", "Common"}, using.Path)

	ns := file.Decls[2].(*ast.Namespace)
	assert.Equal(t, "Api.Users", ns.Name)
	require.Len(t, ns.Decls, 1)
}

func TestParseComments(t *testing.T) {
	t.Parallel()

	file, err := Parse("", `
// line comment
model User {
  /* block
     comment */
  id: string;
}
`)
	require.NoError(t, err)
	require.Len(t, file.Decls, 1)
}

func TestParseDuplicateVerb(t *testing.T) {
	t.Parallel()

	_, err := Parse("", `interface U { @get @post both(): string; }`)
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Contains(t, parseErr.Error(), "HTTP verb")
}

func TestParseLexError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{name: "unterminated string", input: `model M { f: "oops }`},
		{name: "stray character", input: `model M { f: string; } #`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse("", tt.input)
			require.Error(t, err)

			var lexErr *LexError
			assert.True(t, errors.As(err, &lexErr), "expected LexError, got %T: %v", err, err)
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	t.Parallel()

	_, err := Parse("api.tsp", "model User {\n  id string;\n}")
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "api.tsp", parseErr.Pos.Filename)
	assert.Equal(t, 2, parseErr.Pos.Line)
}

func TestParseStringEscapes(t *testing.T) {
	t.Parallel()

	file, err := Parse("", `@doc("line\nbreak \"quoted\"") model M { f: string }`)
	require.NoError(t, err)

	model := file.Decls[0].(*ast.Model)
	doc := ast.FindDecorator(model.Decorators, "doc")
	require.NotNil(t, doc)
	assert.Equal(t, "line\nbreak \"quoted\"", doc.Args[0].Str)
}

func TestParseDeclarationOrder(t *testing.T) {
	t.Parallel()

	file, err := Parse("", `
model B { x: string }
enum E { a }
model A { y: string }
interface I {}
`)
	require.NoError(t, err)
	require.Len(t, file.Decls, 4)
	assert.Equal(t, "B", file.Decls[0].DeclName())
	assert.Equal(t, "E", file.Decls[1].DeclName())
	assert.Equal(t, "A", file.Decls[2].DeclName())
	assert.Equal(t, "I", file.Decls[3].DeclName())
}
