package openapi

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/adi-family/lib-typespec-api/internal/ast"
	"github.com/adi-family/lib-typespec-api/internal/resolver"
)

// Generator generates OpenAPI documents from the IDL AST.
type Generator struct {
	config *Config
}

// NewGenerator creates a new OpenAPI generator with the given
// configuration.
func NewGenerator(config *Config) *Generator {
	if config == nil {
		config = DefaultConfig()
	}
	return &Generator{config: config}
}

// GenerateFromAST generates an OpenAPI document from a parsed file.
func (g *Generator) GenerateFromAST(file *ast.File) (*OpenAPI, error) {
	return g.Generate(resolver.New(file))
}

// Generate generates an OpenAPI document from a resolved file.
func (g *Generator) Generate(res *resolver.Resolver) (*OpenAPI, error) {
	spec, err := NewMapper(res).MapFile()
	if err != nil {
		return nil, fmt.Errorf("mapping AST: %w", err)
	}

	g.applyConfig(spec)
	if len(spec.Tags) == 0 {
		generateTags(spec)
	}
	return spec, nil
}

// applyConfig applies the configuration to the document.
func (g *Generator) applyConfig(spec *OpenAPI) {
	spec.Info = g.config.ToInfo()
	spec.Servers = g.config.ToServers()
}

// generateTags derives the tag list from the operations in the
// document, preserving first-appearance order.
func generateTags(spec *OpenAPI) {
	seen := make(map[string]bool)
	for _, path := range spec.Paths.Keys() {
		item, _ := spec.Paths.Get(path)
		for _, op := range []*Operation{item.Get, item.Post, item.Put, item.Delete, item.Patch} {
			if op == nil {
				continue
			}
			for _, tag := range op.Tags {
				if !seen[tag] {
					seen[tag] = true
					spec.Tags = append(spec.Tags, Tag{Name: tag})
				}
			}
		}
	}
}

// WriteJSON writes the document to a writer in JSON format.
func (g *Generator) WriteJSON(w io.Writer, spec *OpenAPI) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(spec)
}

// WriteYAML writes the document to a writer in YAML format.
func (g *Generator) WriteYAML(w io.Writer, spec *OpenAPI) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(spec)
}

// ToJSON converts the document to an indented JSON string.
func ToJSON(spec *OpenAPI) (string, error) {
	var b strings.Builder
	encoder := json.NewEncoder(&b)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(spec); err != nil {
		return "", err
	}
	return b.String(), nil
}

// ToYAML converts the document to a YAML string.
func ToYAML(spec *OpenAPI) (string, error) {
	data, err := yaml.Marshal(spec)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
