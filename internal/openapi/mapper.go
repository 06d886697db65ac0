package openapi

import (
	"strconv"

	"github.com/iancoleman/strcase"

	"github.com/adi-family/lib-typespec-api/internal/ast"
	"github.com/adi-family/lib-typespec-api/internal/resolver"
)

// Mapper converts the IDL AST to an OpenAPI document. Schemas are
// emitted in declaration order; paths in operation source order.
type Mapper struct {
	spec *OpenAPI
	res  *resolver.Resolver
	// usedOperationIDs guards against collisions after camelCase
	// normalisation; a duplicate id gets a numeric suffix.
	usedOperationIDs map[string]int
}

// NewMapper creates a new AST to OpenAPI mapper over a resolved file.
func NewMapper(res *resolver.Resolver) *Mapper {
	return &Mapper{
		spec: &OpenAPI{
			OpenAPI: "3.0.0",
			Paths:   NewOrderedMap[*PathItem](),
		},
		res:              res,
		usedOperationIDs: make(map[string]int),
	}
}

// MapFile maps every declaration and operation route into the document
// and returns it.
func (m *Mapper) MapFile() (*OpenAPI, error) {
	schemas := NewOrderedMap[*Schema]()

	for _, entry := range m.res.Entries() {
		switch decl := entry.Decl.(type) {
		case *ast.Model:
			schema, err := m.mapModel(decl)
			if err != nil {
				return nil, err
			}
			schemas.Set(decl.Name, schema)
		case *ast.Enum:
			schemas.Set(decl.Name, m.mapEnum(decl))
		case *ast.Union:
			schemas.Set(decl.Name, m.mapUnion(decl))
		case *ast.Scalar:
			schemas.Set(decl.Name, m.mapScalar(decl))
		case *ast.Alias:
			schemas.Set(decl.Name, m.schemaFor(decl.Target))
		}
	}

	if schemas.Len() > 0 {
		m.spec.Components = &Components{Schemas: schemas}
	}

	routes, err := m.res.Routes()
	if err != nil {
		return nil, err
	}
	for _, route := range routes {
		m.mapRoute(route)
	}

	return m.spec, nil
}

// mapModel maps a model to an object schema, or to an allOf composition
// when the model extends or spreads other models. Required lists the
// non-optional own fields.
func (m *Mapper) mapModel(model *ast.Model) (*Schema, error) {
	// Resolving the flattened field list up front surfaces spread
	// cycles even though the composition below references bases by name.
	if _, err := m.res.Fields(model); err != nil {
		return nil, err
	}

	var bases []*Schema
	if model.Extends != nil {
		if ref := m.baseRef(model.Extends); ref != nil {
			bases = append(bases, ref)
		}
	}

	var own []*ast.Field
	for _, member := range model.Members {
		switch member := member.(type) {
		case *ast.Spread:
			if ref := m.baseRef(member.Target); ref != nil {
				bases = append(bases, ref)
			} else if anon, ok := member.Target.(*ast.AnonymousType); ok {
				own = append(own, anon.Fields...)
			}
		case *ast.Field:
			own = append(own, member)
		}
	}

	tail := m.objectSchema(own)
	if len(bases) == 0 {
		return tail, nil
	}
	if len(own) == 0 {
		return &Schema{AllOf: bases}, nil
	}
	return &Schema{AllOf: append(bases, tail)}, nil
}

// baseRef returns a $ref schema for a spread or extends target that
// resolves to a model, nil otherwise.
func (m *Mapper) baseRef(ref ast.TypeRef) *Schema {
	named, ok := ref.(*ast.NamedType)
	if !ok {
		return nil
	}
	if _, ok := m.res.Lookup(named.Name()).(*ast.Model); !ok {
		return nil
	}
	return &Schema{Ref: "#/components/schemas/" + named.Last()}
}

// objectSchema builds an object schema from an ordered field list.
func (m *Mapper) objectSchema(fields []*ast.Field) *Schema {
	schema := &Schema{Type: "object"}
	if len(fields) == 0 {
		return schema
	}
	schema.Properties = NewOrderedMap[*Schema]()
	for _, f := range fields {
		schema.Properties.Set(f.Name, m.schemaFor(f.FieldType))
		if !f.Optional {
			schema.Required = append(schema.Required, f.Name)
		}
	}
	return schema
}

// mapEnum maps an enum to a string schema with its variant wire values
// in declaration order. Integer-valued enums map to integer schemas.
func (m *Mapper) mapEnum(enum *ast.Enum) *Schema {
	integer := false
	for _, v := range enum.Variants {
		if v.Value != nil && v.Value.Kind == ast.LiteralInt {
			integer = true
			break
		}
	}

	schema := &Schema{Type: "string"}
	if integer {
		schema.Type = "integer"
		for _, v := range enum.Variants {
			if v.Value != nil {
				schema.Enum = append(schema.Enum, v.Value.Int)
			}
		}
		return schema
	}

	for _, v := range enum.Variants {
		schema.Enum = append(schema.Enum, v.WireValue())
	}
	return schema
}

// mapUnion maps a union to a oneOf over its member types. The IDL has
// no discriminator syntax, so none is emitted.
func (m *Mapper) mapUnion(union *ast.Union) *Schema {
	schema := &Schema{}
	for _, member := range union.Members {
		schema.OneOf = append(schema.OneOf, m.schemaFor(member))
	}
	return schema
}

// mapScalar maps a scalar declaration to its underlying type schema.
func (m *Mapper) mapScalar(scalar *ast.Scalar) *Schema {
	if scalar.Base == nil {
		return &Schema{Type: "string"}
	}
	return m.schemaFor(scalar.Base)
}

// primitiveSchemas maps IDL primitive names to their OpenAPI schemas.
var primitiveSchemas = map[string]Schema{
	"string":         {Type: "string"},
	"int8":           {Type: "integer"},
	"int16":          {Type: "integer"},
	"int32":          {Type: "integer", Format: "int32"},
	"int64":          {Type: "integer", Format: "int64"},
	"uint8":          {Type: "integer"},
	"uint16":         {Type: "integer"},
	"uint32":         {Type: "integer", Format: "int32"},
	"uint64":         {Type: "integer", Format: "int64"},
	"integer":        {Type: "integer"},
	"float32":        {Type: "number", Format: "float"},
	"float64":        {Type: "number", Format: "double"},
	"float":          {Type: "number"},
	"decimal":        {Type: "number"},
	"boolean":        {Type: "boolean"},
	"bytes":          {Type: "string", Format: "byte"},
	"utcDateTime":    {Type: "string", Format: "date-time"},
	"offsetDateTime": {Type: "string", Format: "date-time"},
	"plainDate":      {Type: "string", Format: "date"},
	"plainTime":      {Type: "string", Format: "time"},
	"duration":       {Type: "string", Format: "duration"},
	"url":            {Type: "string", Format: "uri"},
}

// schemaFor maps a type reference to a schema. Unresolved non-primitive
// names map to the empty schema.
func (m *Mapper) schemaFor(ref ast.TypeRef) *Schema {
	switch t := ref.(type) {
	case *ast.NamedType:
		if prim, ok := primitiveSchemas[t.Name()]; ok {
			s := prim
			return &s
		}
		// Record<V> and Map<K, V> map to open objects typed by the
		// final type argument.
		if (t.Name() == "Record" || t.Name() == "Map") && len(t.TypeArgs) > 0 {
			return &Schema{
				Type:                 "object",
				AdditionalProperties: m.schemaFor(t.TypeArgs[len(t.TypeArgs)-1]),
			}
		}
		if m.res.Lookup(t.Name()) != nil {
			return &Schema{Ref: "#/components/schemas/" + t.Last()}
		}
		return &Schema{}

	case *ast.ArrayType:
		return &Schema{Type: "array", Items: m.schemaFor(t.Elem)}

	case *ast.TupleType:
		return &Schema{Type: "array", Items: &Schema{}}

	case *ast.LiteralType:
		switch t.Value.Kind {
		case ast.LiteralString:
			return &Schema{Type: "string", Enum: []any{t.Value.Str}}
		case ast.LiteralInt:
			return &Schema{Type: "integer", Enum: []any{t.Value.Int}}
		case ast.LiteralFloat:
			return &Schema{Type: "number", Enum: []any{t.Value.Float}}
		case ast.LiteralBool:
			return &Schema{Type: "boolean", Enum: []any{t.Value.Bool}}
		default:
			return &Schema{Nullable: true}
		}

	case *ast.AnonymousType:
		return m.objectSchema(t.Fields)

	default:
		return &Schema{}
	}
}

// mapRoute adds one computed route to the document's paths.
func (m *Mapper) mapRoute(route *resolver.Route) {
	op := &Operation{
		Tags:        []string{route.Interface.Name},
		OperationID: m.operationID(route.Interface.Name, route.Operation.Name),
		Responses:   m.responsesFor(route.Operation.ReturnType),
	}

	for _, bound := range route.Params {
		switch bound.Binding {
		case resolver.BindPath:
			op.Parameters = append(op.Parameters, Parameter{
				Name:     bound.Param.Name,
				In:       "path",
				Required: true,
				Schema:   m.schemaFor(bound.Param.ParamType),
			})
		case resolver.BindQuery:
			op.Parameters = append(op.Parameters, Parameter{
				Name:     bound.Param.Name,
				In:       "query",
				Required: !bound.Param.Optional,
				Schema:   m.schemaFor(bound.Param.ParamType),
			})
		case resolver.BindBody:
			op.RequestBody = &RequestBody{
				Required: !bound.Param.Optional,
				Content: map[string]MediaType{
					"application/json": {Schema: m.schemaFor(bound.Param.ParamType)},
				},
			}
		}
	}

	item, ok := m.spec.Paths.Get(route.Path)
	if !ok {
		item = &PathItem{}
		m.spec.Paths.Set(route.Path, item)
	}
	switch route.Verb {
	case "GET":
		item.Get = op
	case "POST":
		item.Post = op
	case "PUT":
		item.Put = op
	case "DELETE":
		item.Delete = op
	case "PATCH":
		item.Patch = op
	}
}

// operationID builds `interface_operation` with each part camelCased.
// Normalisation can merge distinct names; duplicates get a numeric
// suffix so ids stay unique.
func (m *Mapper) operationID(ifaceName, opName string) string {
	id := strcase.ToLowerCamel(ifaceName) + "_" + strcase.ToLowerCamel(opName)
	m.usedOperationIDs[id]++
	if n := m.usedOperationIDs[id]; n > 1 {
		return id + strconv.Itoa(n)
	}
	return id
}

// responsesFor builds the success response: 204 without a schema for
// void returns, 200 with the return schema otherwise.
func (m *Mapper) responsesFor(returnType ast.TypeRef) map[string]Response {
	if resolver.IsVoid(returnType) {
		return map[string]Response{
			"204": {Description: "No Content"},
		}
	}
	return map[string]Response{
		"200": {
			Description: "OK",
			Content: map[string]MediaType{
				"application/json": {Schema: m.schemaFor(returnType)},
			},
		},
	}
}
