// Package codegen binds the parsed file, the resolver and the per-
// language emitters together under a single Generator facade.
package codegen

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/adi-family/lib-typespec-api/internal/ast"
	"github.com/adi-family/lib-typespec-api/internal/openapi"
	"github.com/adi-family/lib-typespec-api/internal/resolver"
)

// validate checks Config structs before any emitter runs.
var validate = validator.New()

// Generator drives one generation run: it resolves the file, dispatches
// to the emitter for the configured language, buffers every artifact in
// memory and flushes them to disk only after all emitters succeeded.
type Generator struct {
	file   *ast.File
	res    *resolver.Resolver
	config *Config
	logger *slog.Logger
}

// New creates a generator for a parsed file. The configuration is
// validated up front; an invalid language or side never reaches an
// emitter.
func New(file *ast.File, config *Config) (*Generator, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Side == "" {
		config.Side = SideBoth
	}
	if config.Version == "" {
		config.Version = "0.1.0"
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Generator{
		file:   file,
		res:    resolver.New(file),
		config: config,
		logger: slog.Default(),
	}, nil
}

// Resolver exposes the generator's resolver, shared by all emitters.
func (g *Generator) Resolver() *resolver.Resolver { return g.res }

// Artifacts runs the configured emitter set and returns the buffered
// outputs without touching disk.
func (g *Generator) Artifacts() ([]Artifact, error) {
	// Route computation validates body and route invariants for every
	// target, including the ones that only emit models.
	if _, err := g.res.Routes(); err != nil {
		return nil, err
	}

	switch g.config.Language {
	case LangPython:
		return newPythonEmitter(g.res, g.config).emit()
	case LangTypeScript:
		return newTypeScriptEmitter(g.res, g.config).emit()
	case LangRust:
		return newRustEmitter(g.res, g.config).emit()
	case LangOpenAPI:
		return g.openAPIArtifacts()
	default:
		return nil, &EmitError{
			Target:  g.config.Language,
			Message: "unsupported language",
		}
	}
}

// Generate runs the emitters and writes every artifact under the output
// directory. Nothing is written when any emitter fails.
func (g *Generator) Generate() error {
	artifacts, err := g.Artifacts()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(g.config.OutDir, 0o755); err != nil {
		return &IOError{Path: g.config.OutDir, Err: err}
	}

	for _, artifact := range artifacts {
		path := filepath.Join(g.config.OutDir, filepath.FromSlash(artifact.Path))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return &IOError{Path: filepath.Dir(path), Err: err}
		}
		if err := os.WriteFile(path, artifact.Content, 0o644); err != nil {
			return &IOError{Path: path, Err: err}
		}
		g.logger.Debug("wrote artifact", "path", path, "bytes", len(artifact.Content))
	}

	g.logger.Info("generation complete",
		"language", g.config.Language,
		"side", g.config.Side,
		"artifacts", len(artifacts),
	)
	return nil
}

// OpenAPIDocument builds the in-memory OpenAPI document for this run,
// shared by the openapi emitter and the preview server.
func (g *Generator) OpenAPIDocument() (*openapi.OpenAPI, error) {
	cfg := openapi.DefaultConfig()
	cfg.Title = g.config.Package
	cfg.Version = g.config.Version
	return openapi.NewGenerator(cfg).Generate(g.res)
}

// openAPIArtifacts renders the shared document as both JSON and YAML.
func (g *Generator) openAPIArtifacts() ([]Artifact, error) {
	spec, err := g.OpenAPIDocument()
	if err != nil {
		return nil, err
	}

	gen := openapi.NewGenerator(nil)

	var jsonBuf bytes.Buffer
	if err := gen.WriteJSON(&jsonBuf, spec); err != nil {
		return nil, &EmitError{Target: LangOpenAPI, Message: err.Error()}
	}
	var yamlBuf bytes.Buffer
	if err := gen.WriteYAML(&yamlBuf, spec); err != nil {
		return nil, &EmitError{Target: LangOpenAPI, Message: err.Error()}
	}

	return []Artifact{
		{Path: "openapi.json", Content: jsonBuf.Bytes()},
		{Path: "openapi.yaml", Content: yamlBuf.Bytes()},
	}, nil
}
