package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRustModels(t *testing.T) {
	t.Parallel()

	out := emitFor(t, `
model User { id: string; name?: string; tags: string[] }
`, LangRust, SideBoth)

	models := out["api/src/models.rs"]
	require.NotEmpty(t, models)
	assert.Contains(t, models, "#[derive(Debug, Clone, Serialize, Deserialize)]")
	assert.Contains(t, models, "pub struct User {")
	assert.Contains(t, models, "pub id: String,")
	assert.Contains(t, models, `#[serde(skip_serializing_if = "Option::is_none")]`)
	assert.Contains(t, models, "pub name: Option<String>,")
	assert.Contains(t, models, "pub tags: Vec<String>,")
}

func TestRustEnumPreservesWireValues(t *testing.T) {
	t.Parallel()

	out := emitFor(t, `enum Status { active, inactive }`, LangRust, SideBoth)

	models := out["api/src/models.rs"]
	assert.Contains(t, models, "pub enum Status {")
	assert.Contains(t, models, `#[serde(rename = "active")]`)
	assert.Contains(t, models, "    Active,")
	assert.Contains(t, models, `#[serde(rename = "inactive")]`)
	assert.Contains(t, models, "    Inactive,")
}

func TestRustReservedFieldNames(t *testing.T) {
	t.Parallel()

	out := emitFor(t, `model M { type: string; createdAt: utcDateTime }`, LangRust, SideBoth)

	models := out["api/src/models.rs"]
	assert.Contains(t, models, `#[serde(rename = "type")]`)
	assert.Contains(t, models, "pub type_: String,")
	assert.Contains(t, models, `#[serde(rename = "createdAt")]`)
	assert.Contains(t, models, "pub created_at: String,")
}

func TestRustUnion(t *testing.T) {
	t.Parallel()

	out := emitFor(t, `
model Cat { meow: boolean }
model Dog { bark: boolean }
union Pet { Cat, Dog }
`, LangRust, SideBoth)

	models := out["api/src/models.rs"]
	assert.Contains(t, models, "#[serde(untagged)]")
	assert.Contains(t, models, "pub enum Pet {")
	assert.Contains(t, models, "Cat(Cat),")
	assert.Contains(t, models, "Dog(Dog),")
}

func TestRustClient(t *testing.T) {
	t.Parallel()

	out := emitFor(t, `
model User { id: string }
@route("/users")
interface Users {
  @get @route("/{id}") get(@path id: string): User;
  @get list(limit?: int32): User[];
}
`, LangRust, SideClient)

	client := out["api/src/client.rs"]
	require.NotEmpty(t, client)
	assert.Contains(t, client, "pub struct BaseClient {")
	assert.Contains(t, client, "pub struct UsersClient<'a> {")
	assert.Contains(t, client, "pub async fn get(&self, id: String) -> Result<User, ApiError> {")
	assert.Contains(t, client, `format!("/users/{}", id)`)
	assert.Contains(t, client, "pub async fn list(&self, limit: Option<i32>) -> Result<Vec<User>, ApiError> {")
	assert.Contains(t, client, `if let Some(value) = limit {`)
	assert.Contains(t, client, "pub fn users(&self) -> UsersClient<'_> {")
}

func TestRustServer(t *testing.T) {
	t.Parallel()

	out := emitFor(t, `
model User { id: string }
model CreateUserRequest { name: string }
@route("/users")
interface Users {
  @get @route("/{id}") get(@path id: string): User;
  @post create(@body body: CreateUserRequest): User;
}
`, LangRust, SideServer)

	server := out["api/src/server.rs"]
	require.NotEmpty(t, server)
	assert.Contains(t, server, "#[async_trait]")
	assert.Contains(t, server, "pub trait Users: Send + Sync {")
	assert.Contains(t, server, "async fn get(&self, id: String) -> Result<User, ApiError>;")
	assert.Contains(t, server, "async fn create(&self, body: CreateUserRequest) -> Result<User, ApiError>;")
	assert.Contains(t, server, "pub struct Router {")
	assert.Contains(t, server, `match_path("/users/{id}", path)`)
	assert.Contains(t, server, "fn match_path(template: &str, path: &str)")
}

func TestRustSideGating(t *testing.T) {
	t.Parallel()

	input := `
model User { id: string }
@route("/users") interface Users { @get list(): User[]; }
`

	both := emitFor(t, input, LangRust, SideBoth)
	assert.Contains(t, both, "api/src/client.rs")
	assert.Contains(t, both, "api/src/server.rs")
	assert.Contains(t, both["api/src/lib.rs"], "pub mod client;")
	assert.Contains(t, both["api/src/lib.rs"], "pub mod server;")

	clientOnly := emitFor(t, input, LangRust, SideClient)
	_, hasServer := clientOnly["api/src/server.rs"]
	assert.False(t, hasServer, "client side must not emit server.rs")
	assert.NotContains(t, clientOnly["api/src/lib.rs"], "pub mod server;")
}

func TestRustManifest(t *testing.T) {
	t.Parallel()

	input := `model User { id: string }`

	both := emitFor(t, input, LangRust, SideBoth)
	manifest := both["api/Cargo.toml"]
	require.NotEmpty(t, manifest)
	assert.Contains(t, manifest, `name = "api"`)
	assert.Contains(t, manifest, `edition = "2021"`)
	assert.Contains(t, manifest, "serde =")
	assert.Contains(t, manifest, "serde_json =")
	assert.Contains(t, manifest, "reqwest =")
	assert.Contains(t, manifest, "async-trait =")

	serverOnly := emitFor(t, input, LangRust, SideServer)
	assert.NotContains(t, serverOnly["api/Cargo.toml"], "reqwest =")
	assert.Contains(t, serverOnly["api/Cargo.toml"], "async-trait =")
}

func TestRustSpreadFlattening(t *testing.T) {
	t.Parallel()

	out := emitFor(t, `
model Audited { createdAt: utcDateTime }
model User { ...Audited; id: string }
`, LangRust, SideBoth)

	models := out["api/src/models.rs"]
	assert.Contains(t, models, "pub created_at: String,")
	assert.Contains(t, models, "pub id: String,")
}
