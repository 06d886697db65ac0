package resolver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adi-family/lib-typespec-api/internal/ast"
	"github.com/adi-family/lib-typespec-api/internal/parser"
)

func mustParse(t *testing.T, input string) *Resolver {
	t.Helper()
	file, err := parser.Parse("", input)
	require.NoError(t, err)
	return New(file)
}

func modelNamed(t *testing.T, res *Resolver, name string) *ast.Model {
	t.Helper()
	model, ok := res.Lookup(name).(*ast.Model)
	require.True(t, ok, "model %s not found", name)
	return model
}

func fieldNames(fields []*ast.Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

func TestLookup(t *testing.T) {
	t.Parallel()

	res := mustParse(t, `
model Top { id: string }
namespace Api {
  model Inner { id: string }
  namespace Deep {
    model Deepest { id: string }
  }
}
`)

	assert.NotNil(t, res.Lookup("Top"))
	assert.NotNil(t, res.Lookup("Api.Inner"))
	assert.NotNil(t, res.Lookup("Api.Deep.Deepest"))
	assert.Nil(t, res.Lookup("Missing"))

	// Simple names resolve from anywhere; qualified names stay exact.
	assert.NotNil(t, res.Lookup("Inner"))
	assert.Nil(t, res.Lookup("Api.Top"))
}

func TestLookupFromNamespaceChain(t *testing.T) {
	t.Parallel()

	res := mustParse(t, `
model Shared { id: string }
namespace Api {
  model Local { id: string }
}
`)

	assert.NotNil(t, res.LookupFrom([]string{"Api"}, "Local"))
	assert.NotNil(t, res.LookupFrom([]string{"Api"}, "Shared"))
}

func TestLookupThroughUsing(t *testing.T) {
	t.Parallel()

	res := mustParse(t, `
using Api.Common;
namespace Api.Common {
  model Page { size: int32 }
}
`)

	assert.NotNil(t, res.Lookup("Page"))
}

func TestSpreadFlattening(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		model string
		want  []string
	}{
		{
			name:  "spread before own fields",
			input: `model A { x: string } model B { ...A; y: int32 }`,
			model: "B",
			want:  []string{"x", "y"},
		},
		{
			name:  "extends resolves ahead of members",
			input: `model Audited { createdAt: utcDateTime } model User extends Audited { id: string }`,
			model: "User",
			want:  []string{"createdAt", "id"},
		},
		{
			name:  "transitive spread",
			input: `model A { a: string } model B { ...A; b: string } model C { ...B; c: string }`,
			model: "C",
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "later name shadows earlier at original position",
			input: `model A { x: string; y: string } model B { ...A; x: int32 }`,
			model: "B",
			want:  []string{"x", "y"},
		},
		{
			name:  "spread interleaved with fields",
			input: `model A { a: string } model B { pre: string; ...A; post: string }`,
			model: "B",
			want:  []string{"pre", "a", "post"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := mustParse(t, tt.input)
			fields, err := res.Fields(modelNamed(t, res, tt.model))
			require.NoError(t, err)
			assert.Equal(t, tt.want, fieldNames(fields))
		})
	}
}

func TestSpreadShadowKeepsLaterDefinition(t *testing.T) {
	t.Parallel()

	res := mustParse(t, `model A { x: string } model B { ...A; x: int32 }`)
	fields, err := res.Fields(modelNamed(t, res, "B"))
	require.NoError(t, err)
	require.Len(t, fields, 1)

	named, ok := fields[0].FieldType.(*ast.NamedType)
	require.True(t, ok)
	assert.Equal(t, "int32", named.Name())
}

func TestSpreadCycle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		model string
	}{
		{
			name:  "self spread",
			input: `model A { ...A; x: string }`,
			model: "A",
		},
		{
			name:  "mutual spread",
			input: `model A { ...B } model B { ...A }`,
			model: "A",
		},
		{
			name:  "extends cycle",
			input: `model A extends B { x: string } model B extends A { y: string }`,
			model: "A",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := mustParse(t, tt.input)
			_, err := res.Fields(modelNamed(t, res, tt.model))
			require.Error(t, err)

			var resolveErr *ResolveError
			require.True(t, errors.As(err, &resolveErr))
			assert.Equal(t, ErrCycle, resolveErr.Kind)
		})
	}
}

func TestDiamondSpreadIsNotACycle(t *testing.T) {
	t.Parallel()

	res := mustParse(t, `
model Base { id: string }
model Left { ...Base; l: string }
model Right { ...Base; r: string }
model Join { ...Left; ...Right }
`)
	fields, err := res.Fields(modelNamed(t, res, "Join"))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "l", "r"}, fieldNames(fields))
}

func TestIsScalar(t *testing.T) {
	t.Parallel()

	res := mustParse(t, `
model User { id: string }
enum Status { active }
scalar uuid extends string;
alias Id = uuid;
alias Users = User[];
union Pet { Cat, Dog }
`)

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "primitive", input: "string", want: true},
		{name: "unknown name", input: "mystery", want: true},
		{name: "enum", input: "Status", want: true},
		{name: "scalar decl", input: "uuid", want: true},
		{name: "alias to scalar", input: "Id", want: true},
		{name: "model", input: "User", want: false},
		{name: "alias to array", input: "Users", want: false},
		{name: "union", input: "Pet", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ref := &ast.NamedType{Path: []string{tt.input}}
			assert.Equal(t, tt.want, res.IsScalar(ref))
		})
	}
}

func TestEntriesPreserveOrder(t *testing.T) {
	t.Parallel()

	res := mustParse(t, `
model B { x: string }
enum E { a }
namespace N { model Inner { y: string } }
model A { z: string }
`)

	var names []string
	for _, entry := range res.Entries() {
		names = append(names, entry.Decl.DeclName())
	}
	assert.Equal(t, []string{"B", "E", "Inner", "A"}, names)
}
