package openapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/adi-family/lib-typespec-api/internal/parser"
	"github.com/adi-family/lib-typespec-api/internal/resolver"
)

func generate(t *testing.T, input string) *OpenAPI {
	t.Helper()
	file, err := parser.Parse("", input)
	require.NoError(t, err)
	spec, err := NewGenerator(nil).Generate(resolver.New(file))
	require.NoError(t, err)
	return spec
}

func TestRoutedGet(t *testing.T) {
	t.Parallel()

	spec := generate(t, `
model User { id: string; name?: string }
@route("/users")
interface U {
  @get @route("/{id}") get(@path id: string): User;
}
`)

	item, ok := spec.Paths.Get("/users/{id}")
	require.True(t, ok)
	require.NotNil(t, item.Get)

	op := item.Get
	assert.Equal(t, "u_get", op.OperationID)

	require.Len(t, op.Parameters, 1)
	assert.Equal(t, "id", op.Parameters[0].Name)
	assert.Equal(t, "path", op.Parameters[0].In)
	assert.True(t, op.Parameters[0].Required)
	assert.Equal(t, "string", op.Parameters[0].Schema.Type)

	response, ok := op.Responses["200"]
	require.True(t, ok)
	assert.Equal(t, "#/components/schemas/User", response.Content["application/json"].Schema.Ref)
}

func TestModelSchema(t *testing.T) {
	t.Parallel()

	spec := generate(t, `model User { id: string; name?: string; age: int32 }`)

	schema, ok := spec.Components.Schemas.Get("User")
	require.True(t, ok)
	assert.Equal(t, "object", schema.Type)
	assert.Equal(t, []string{"id", "name", "age"}, schema.Properties.Keys())
	assert.Equal(t, []string{"id", "age"}, schema.Required)

	age, _ := schema.Properties.Get("age")
	assert.Equal(t, "integer", age.Type)
	assert.Equal(t, "int32", age.Format)
}

func TestSpreadBecomesAllOf(t *testing.T) {
	t.Parallel()

	spec := generate(t, `
model Audited { createdAt: utcDateTime }
model User { ...Audited; id: string }
`)

	schema, ok := spec.Components.Schemas.Get("User")
	require.True(t, ok)
	require.Len(t, schema.AllOf, 2)

	assert.Equal(t, "#/components/schemas/Audited", schema.AllOf[0].Ref)

	tail := schema.AllOf[1]
	assert.Equal(t, "object", tail.Type)
	assert.Equal(t, []string{"id"}, tail.Properties.Keys())
	assert.Equal(t, []string{"id"}, tail.Required)
}

func TestEnumAndUnionSchemas(t *testing.T) {
	t.Parallel()

	spec := generate(t, `
enum Status { active, inactive }
model Cat { meow: boolean }
model Dog { bark: boolean }
union Pet { Cat, Dog }
`)

	status, ok := spec.Components.Schemas.Get("Status")
	require.True(t, ok)
	assert.Equal(t, "string", status.Type)
	assert.Equal(t, []any{"active", "inactive"}, status.Enum)

	pet, ok := spec.Components.Schemas.Get("Pet")
	require.True(t, ok)
	require.Len(t, pet.OneOf, 2)
	assert.Equal(t, "#/components/schemas/Cat", pet.OneOf[0].Ref)
}

func TestVoidReturnIs204(t *testing.T) {
	t.Parallel()

	spec := generate(t, `
@route("/users")
interface U {
  @delete @route("/{id}") remove(@path id: string): void;
}
`)

	item, ok := spec.Paths.Get("/users/{id}")
	require.True(t, ok)
	require.NotNil(t, item.Delete)

	response, ok := item.Delete.Responses["204"]
	require.True(t, ok)
	assert.Empty(t, response.Content)
	_, has200 := item.Delete.Responses["200"]
	assert.False(t, has200)
}

func TestRequestBody(t *testing.T) {
	t.Parallel()

	spec := generate(t, `
model CreateUserRequest { name: string }
model User { id: string }
@route("/users")
interface Users {
  @post create(@body body: CreateUserRequest): User;
}
`)

	item, ok := spec.Paths.Get("/users")
	require.True(t, ok)
	require.NotNil(t, item.Post)
	require.NotNil(t, item.Post.RequestBody)
	assert.True(t, item.Post.RequestBody.Required)
	assert.Equal(t, "#/components/schemas/CreateUserRequest",
		item.Post.RequestBody.Content["application/json"].Schema.Ref)
}

func TestSchemaOrderMatchesSource(t *testing.T) {
	t.Parallel()

	spec := generate(t, `
model Zebra { z: string }
model Apple { a: string }
enum Middle { m }
`)

	assert.Equal(t, []string{"Zebra", "Apple", "Middle"}, spec.Components.Schemas.Keys())
}

func TestPathOrderMatchesSource(t *testing.T) {
	t.Parallel()

	spec := generate(t, `
interface A { @get @route("/zzz") z(): string; @get @route("/aaa") a(): string; }
`)

	assert.Equal(t, []string{"/zzz", "/aaa"}, spec.Paths.Keys())
}

func TestOperationIDCollisionSuffix(t *testing.T) {
	t.Parallel()

	spec := generate(t, `
interface Users { @get @route("/a") get(): string; }
interface users { @get @route("/b") get(): string; }
`)

	a, _ := spec.Paths.Get("/a")
	b, _ := spec.Paths.Get("/b")
	assert.Equal(t, "users_get", a.Get.OperationID)
	assert.Equal(t, "users_get2", b.Get.OperationID)
}

func TestInfoDefaults(t *testing.T) {
	t.Parallel()

	spec := generate(t, `model M { x: string }`)
	assert.Equal(t, "3.0.0", spec.OpenAPI)
	assert.Equal(t, "api", spec.Info.Title)
	assert.Equal(t, "0.1.0", spec.Info.Version)
}

func TestJSONAndYAMLRoundTrip(t *testing.T) {
	t.Parallel()

	spec := generate(t, `
model User { id: string; name?: string }
@route("/users")
interface Users {
  @get list(limit?: int32): User[];
  @post create(@body body: User): User;
}
`)

	jsonText, err := ToJSON(spec)
	require.NoError(t, err)
	yamlText, err := ToYAML(spec)
	require.NoError(t, err)

	var fromJSON, fromYAML any
	require.NoError(t, json.Unmarshal([]byte(jsonText), &fromJSON))
	require.NoError(t, yaml.Unmarshal([]byte(yamlText), &fromYAML))

	// YAML decodes maps as map[string]any through yaml.v3 when keys are
	// strings; normalise both through JSON for comparison.
	normalised, err := json.Marshal(fromYAML)
	require.NoError(t, err)
	var fromYAMLNorm any
	require.NoError(t, json.Unmarshal(normalised, &fromYAMLNorm))

	assert.Equal(t, fromJSON, fromYAMLNorm)
}

func TestOrderedMap(t *testing.T) {
	t.Parallel()

	m := NewOrderedMap[int]()
	m.Set("b", 2)
	m.Set("a", 1)
	m.Set("b", 3)

	assert.Equal(t, []string{"b", "a"}, m.Keys())
	v, ok := m.Get("b")
	require.True(t, ok)
	assert.Equal(t, 3, v)

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"b":3,"a":1}`, string(data))

	yamlData, err := yaml.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, "b: 3\na: 1\n", string(yamlData))
}

func TestValidatorAcceptsGenerated(t *testing.T) {
	t.Parallel()

	spec := generate(t, `
model User { id: string }
@route("/users")
interface Users {
  @get @route("/{id}") get(@path id: string): User;
}
`)

	result := NewValidator().Validate(spec)
	assert.True(t, result.Valid, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
}

func TestValidatorRejectsBrokenDocuments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		mutate func(spec *OpenAPI)
	}{
		{
			name:   "missing title",
			mutate: func(spec *OpenAPI) { spec.Info.Title = "" },
		},
		{
			name:   "missing version",
			mutate: func(spec *OpenAPI) { spec.Info.Version = "" },
		},
		{
			name: "dangling ref",
			mutate: func(spec *OpenAPI) {
				schema, _ := spec.Components.Schemas.Get("User")
				schema.Properties.Set("bad", &Schema{Ref: "#/components/schemas/Missing"})
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			spec := generate(t, `
model User { id: string }
@route("/users")
interface Users { @get @route("/{id}") get(@path id: string): User; }
`)
			tt.mutate(spec)
			result := NewValidator().Validate(spec)
			assert.False(t, result.Valid)
		})
	}
}
