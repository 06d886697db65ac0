package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adi-family/lib-typespec-api/internal/codegen"
	"github.com/adi-family/lib-typespec-api/internal/parser"
	"github.com/adi-family/lib-typespec-api/internal/resolver"
)

func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// runCommand executes a fresh command tree and returns stdout.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "usage", err: errors.New("unknown flag"), want: 1},
		{name: "lex", err: &parser.LexError{Message: "bad token"}, want: 2},
		{name: "parse", err: &parser.ParseError{Message: "unexpected token"}, want: 2},
		{name: "resolve", err: &resolver.ResolveError{Kind: resolver.ErrCycle}, want: 3},
		{name: "emit", err: &codegen.EmitError{Target: codegen.LangRust}, want: 4},
		{name: "io", err: &codegen.IOError{Path: "/nope", Err: os.ErrNotExist}, want: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestGenerateCommand(t *testing.T) {
	input := writeSource(t, "api.tsp", `
model User { id: string; name?: string }
@route("/users")
interface Users { @get list(): User[]; }
`)
	outDir := t.TempDir()

	stdout, err := runCommand(t, "generate", input, "-l", "python", "-o", outDir, "-p", "petstore")
	require.NoError(t, err, "output: %s", stdout)

	_, err = os.Stat(filepath.Join(outDir, "petstore", "models.py"))
	assert.NoError(t, err)
}

func TestGenerateOpenAPI(t *testing.T) {
	input := writeSource(t, "api.tsp", `
model User { id: string }
@route("/users")
interface Users { @get list(): User[]; }
`)
	outDir := t.TempDir()

	_, err := runCommand(t, "generate", input, "-l", "openapi", "-o", outDir)
	require.NoError(t, err)

	for _, name := range []string{"openapi.json", "openapi.yaml"} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, "expected %s", name)
	}
}

func TestGenerateMultipleInputsConcatenate(t *testing.T) {
	common := writeSource(t, "common.tsp", `model Audited { createdAt: utcDateTime }`)
	api := writeSource(t, "api.tsp", `model User { ...Audited; id: string }`)
	outDir := t.TempDir()

	_, err := runCommand(t, "generate", common, api, "-l", "typescript", "-o", outDir, "-s", "client")
	require.NoError(t, err)

	models, err := os.ReadFile(filepath.Join(outDir, "models.ts"))
	require.NoError(t, err)
	assert.Contains(t, string(models), "createdAt: string;")
}

func TestGenerateParseFailure(t *testing.T) {
	input := writeSource(t, "bad.tsp", `model User {`)

	_, err := runCommand(t, "generate", input, "-l", "python", "-o", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))
}

func TestGenerateMissingInput(t *testing.T) {
	_, err := runCommand(t, "generate", filepath.Join(t.TempDir(), "absent.tsp"), "-l", "python", "-o", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, 4, ExitCode(err))
}

func TestValidateCommand(t *testing.T) {
	input := writeSource(t, "api.tsp", `
model User { id: string }
@route("/users")
interface Users { @get @route("/{id}") get(@path id: string): User; }
`)

	stdout, err := runCommand(t, "validate", input)
	require.NoError(t, err)
	assert.Contains(t, stdout, "ok:")
}

func TestValidateSpreadCycle(t *testing.T) {
	input := writeSource(t, "api.tsp", `model A { ...A; x: string }`)

	_, err := runCommand(t, "validate", input)
	require.Error(t, err)
	assert.Equal(t, 3, ExitCode(err))
}

func TestVersionCommand(t *testing.T) {
	stdout, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "tspgen")
}
