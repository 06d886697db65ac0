package openapi

import (
	"fmt"
	"strings"
)

// ValidationError represents a validation error.
type ValidationError struct {
	Path    string
	Message string
}

func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationResult contains the result of validating an OpenAPI
// document.
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationError
}

// Validator validates OpenAPI documents.
type Validator struct {
	// StrictMode promotes warnings to errors.
	StrictMode bool
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates an OpenAPI document.
func (v *Validator) Validate(spec *OpenAPI) *ValidationResult {
	result := &ValidationResult{Valid: true}

	v.validateVersion(spec, result)
	v.validateInfo(spec, result)
	v.validatePaths(spec, result)
	v.validateRefs(spec, result)

	if v.StrictMode && len(result.Warnings) > 0 {
		result.Valid = false
		result.Errors = append(result.Errors, result.Warnings...)
		result.Warnings = nil
	}
	return result
}

func (v *Validator) addError(result *ValidationResult, path, message string) {
	result.Valid = false
	result.Errors = append(result.Errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) addWarning(result *ValidationResult, path, message string) {
	result.Warnings = append(result.Warnings, ValidationError{Path: path, Message: message})
}

func (v *Validator) validateVersion(spec *OpenAPI, result *ValidationResult) {
	if spec.OpenAPI == "" {
		v.addError(result, "openapi", "openapi version is required")
		return
	}
	if !strings.HasPrefix(spec.OpenAPI, "3.") {
		v.addError(result, "openapi", fmt.Sprintf("unsupported OpenAPI version: %s", spec.OpenAPI))
	}
}

func (v *Validator) validateInfo(spec *OpenAPI, result *ValidationResult) {
	if spec.Info.Title == "" {
		v.addError(result, "info.title", "title is required")
	}
	if spec.Info.Version == "" {
		v.addError(result, "info.version", "version is required")
	}
	if spec.Info.License != nil && spec.Info.License.Name == "" {
		v.addError(result, "info.license.name", "license name is required when license is present")
	}
}

func (v *Validator) validatePaths(spec *OpenAPI, result *ValidationResult) {
	if spec.Paths.Len() == 0 {
		v.addWarning(result, "paths", "no paths defined")
		return
	}

	for _, path := range spec.Paths.Keys() {
		if !strings.HasPrefix(path, "/") {
			v.addError(result, "paths."+path, "path must start with /")
		}

		item, _ := spec.Paths.Get(path)
		declared := pathPlaceholders(path)
		for verb, op := range operationsOf(item) {
			v.validateOperation(path, verb, op, declared, result)
		}
	}
}

// operationsOf returns the non-nil operations of a path item keyed by
// verb.
func operationsOf(item *PathItem) map[string]*Operation {
	ops := make(map[string]*Operation)
	if item.Get != nil {
		ops["get"] = item.Get
	}
	if item.Post != nil {
		ops["post"] = item.Post
	}
	if item.Put != nil {
		ops["put"] = item.Put
	}
	if item.Delete != nil {
		ops["delete"] = item.Delete
	}
	if item.Patch != nil {
		ops["patch"] = item.Patch
	}
	return ops
}

func (v *Validator) validateOperation(path, verb string, op *Operation, declared map[string]bool, result *ValidationResult) {
	loc := fmt.Sprintf("paths.%s.%s", path, verb)

	if len(op.Responses) == 0 {
		v.addError(result, loc+".responses", "at least one response is required")
	}
	for status, resp := range op.Responses {
		if resp.Description == "" {
			v.addError(result, fmt.Sprintf("%s.responses.%s", loc, status), "response description is required")
		}
	}

	bound := make(map[string]bool)
	for i, p := range op.Parameters {
		ploc := fmt.Sprintf("%s.parameters[%d]", loc, i)
		if p.Name == "" {
			v.addError(result, ploc, "parameter name is required")
		}
		switch p.In {
		case "path":
			if !p.Required {
				v.addError(result, ploc, "path parameters must be required")
			}
			if !declared[p.Name] {
				v.addError(result, ploc, fmt.Sprintf("path parameter %q has no {%s} placeholder", p.Name, p.Name))
			}
			bound[p.Name] = true
		case "query", "header", "cookie":
		default:
			v.addError(result, ploc, fmt.Sprintf("invalid parameter location %q", p.In))
		}
	}
	for name := range declared {
		if !bound[name] {
			v.addWarning(result, loc, fmt.Sprintf("placeholder {%s} has no path parameter", name))
		}
	}
}

// validateRefs checks that every $ref points at a declared component
// schema.
func (v *Validator) validateRefs(spec *OpenAPI, result *ValidationResult) {
	known := make(map[string]bool)
	if spec.Components != nil {
		for _, name := range spec.Components.Schemas.Keys() {
			known["#/components/schemas/"+name] = true
		}
	}

	var check func(loc string, s *Schema)
	check = func(loc string, s *Schema) {
		if s == nil {
			return
		}
		if s.Ref != "" && !known[s.Ref] {
			v.addError(result, loc, fmt.Sprintf("unresolved reference %s", s.Ref))
		}
		if s.Properties != nil {
			for _, name := range s.Properties.Keys() {
				prop, _ := s.Properties.Get(name)
				check(loc+".properties."+name, prop)
			}
		}
		check(loc+".items", s.Items)
		check(loc+".additionalProperties", s.AdditionalProperties)
		for i, sub := range s.AllOf {
			check(fmt.Sprintf("%s.allOf[%d]", loc, i), sub)
		}
		for i, sub := range s.OneOf {
			check(fmt.Sprintf("%s.oneOf[%d]", loc, i), sub)
		}
		for i, sub := range s.AnyOf {
			check(fmt.Sprintf("%s.anyOf[%d]", loc, i), sub)
		}
	}

	if spec.Components != nil {
		for _, name := range spec.Components.Schemas.Keys() {
			schema, _ := spec.Components.Schemas.Get(name)
			check("components.schemas."+name, schema)
		}
	}
	for _, path := range spec.Paths.Keys() {
		item, _ := spec.Paths.Get(path)
		for verb, op := range operationsOf(item) {
			loc := fmt.Sprintf("paths.%s.%s", path, verb)
			for i, p := range op.Parameters {
				check(fmt.Sprintf("%s.parameters[%d].schema", loc, i), p.Schema)
			}
			if op.RequestBody != nil {
				for mt, media := range op.RequestBody.Content {
					check(fmt.Sprintf("%s.requestBody.content.%s.schema", loc, mt), media.Schema)
				}
			}
			for status, resp := range op.Responses {
				for mt, media := range resp.Content {
					check(fmt.Sprintf("%s.responses.%s.content.%s.schema", loc, status, mt), media.Schema)
				}
			}
		}
	}
}

// pathPlaceholders returns the set of {name} placeholders in a path.
func pathPlaceholders(path string) map[string]bool {
	placeholders := make(map[string]bool)
	for _, segment := range strings.Split(path, "/") {
		if strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
			placeholders[segment[1:len(segment)-1]] = true
		}
	}
	return placeholders
}
