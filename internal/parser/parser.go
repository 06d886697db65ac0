// Package parser provides a Participle-based parser for the IDL.
package parser

import (
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/adi-family/lib-typespec-api/internal/ast"
)

// =============================================================================
// Lexer Definition
// =============================================================================

var idlLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		// Whitespace and comments
		{Name: "whitespace", Pattern: `[\s]+`, Action: nil},
		{Name: "SingleLineComment", Pattern: `//[^\n]*`, Action: nil},
		{Name: "MultiLineComment", Pattern: `/\*([^*]|\*+[^*/])*\*+/`, Action: nil},

		// Keywords
		{Name: "Import", Pattern: `\bimport\b`, Action: nil},
		{Name: "Using", Pattern: `\busing\b`, Action: nil},
		{Name: "Namespace", Pattern: `\bnamespace\b`, Action: nil},
		{Name: "Model", Pattern: `\bmodel\b`, Action: nil},
		{Name: "Enum", Pattern: `\benum\b`, Action: nil},
		{Name: "Union", Pattern: `\bunion\b`, Action: nil},
		{Name: "Interface", Pattern: `\binterface\b`, Action: nil},
		{Name: "Scalar", Pattern: `\bscalar\b`, Action: nil},
		{Name: "Alias", Pattern: `\balias\b`, Action: nil},
		{Name: "Extends", Pattern: `\bextends\b`, Action: nil},
		{Name: "Op", Pattern: `\bop\b`, Action: nil},
		{Name: "True", Pattern: `\btrue\b`, Action: nil},
		{Name: "False", Pattern: `\bfalse\b`, Action: nil},
		{Name: "Null", Pattern: `\bnull\b`, Action: nil},

		// Literals
		{Name: "Number", Pattern: `-?[0-9]+(\.[0-9]+)?`, Action: nil},
		{Name: "String", Pattern: `"([^"\\]|\\.)*"`, Action: nil},

		// Identifiers
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`, Action: nil},

		// Operators and punctuation
		{Name: "Ellipsis", Pattern: `\.\.\.`, Action: nil},
		{Name: "At", Pattern: `@`, Action: nil},
		{Name: "Eq", Pattern: `=`, Action: nil},
		{Name: "Colon", Pattern: `:`, Action: nil},
		{Name: "Semi", Pattern: `;`, Action: nil},
		{Name: "Comma", Pattern: `,`, Action: nil},
		{Name: "Dot", Pattern: `\.`, Action: nil},
		{Name: "Question", Pattern: `\?`, Action: nil},
		{Name: "Lt", Pattern: `<`, Action: nil},
		{Name: "Gt", Pattern: `>`, Action: nil},
		{Name: "LBrace", Pattern: `\{`, Action: nil},
		{Name: "RBrace", Pattern: `\}`, Action: nil},
		{Name: "LParen", Pattern: `\(`, Action: nil},
		{Name: "RParen", Pattern: `\)`, Action: nil},
		{Name: "LBracket", Pattern: `\[`, Action: nil},
		{Name: "RBracket", Pattern: `\]`, Action: nil},
		{Name: "Slash", Pattern: `/`, Action: nil},
	},
})

// =============================================================================
// Participle Grammar Structs (Intermediate Representation)
// =============================================================================

// pFile is the Participle grammar for a source file.
type pFile struct {
	Pos   lexer.Position
	Decls []*pTopDecl `parser:"@@*"`
}

// pTopDecl is the Participle grammar for a top-level entry.
type pTopDecl struct {
	Pos    lexer.Position
	Import *pImport `parser:"  @@"`
	Using  *pUsing  `parser:"| @@"`
	Decl   *pDecl   `parser:"| @@"`
}

// pImport is the Participle grammar for an import statement.
// Example: import "./common.tsp";
type pImport struct {
	Pos    lexer.Position
	Target string `parser:"Import @String Semi?"`
}

// pUsing is the Participle grammar for a using statement.
// Example: using Api.Common;
type pUsing struct {
	Pos  lexer.Position
	Path []string `parser:"Using @Ident ( Dot @Ident )* Semi?"`
}

// pDecl is the Participle grammar for a decorated declaration.
type pDecl struct {
	Pos        lexer.Position
	Decorators []*pDecorator `parser:"@@*"`
	Namespace  *pNamespace   `parser:"( @@"`
	Model      *pModel       `parser:"| @@"`
	Enum       *pEnum        `parser:"| @@"`
	Union      *pUnion       `parser:"| @@"`
	Interface  *pInterface   `parser:"| @@"`
	Scalar     *pScalar      `parser:"| @@"`
	Alias      *pAlias       `parser:"| @@ )"`
}

// pDecorator is the Participle grammar for a decorator.
// Example: @route("/users") or @get
type pDecorator struct {
	Pos  lexer.Position
	Name string      `parser:"At @Ident"`
	Args []*pLiteral `parser:"( LParen ( @@ ( Comma @@ )* )? RParen )?"`
}

// pNamespace is the Participle grammar for a namespace block.
type pNamespace struct {
	Pos   lexer.Position
	Path  []string `parser:"Namespace @Ident ( Dot @Ident )*"`
	Decls []*pDecl `parser:"LBrace @@* RBrace"`
}

// pModel is the Participle grammar for a model declaration.
// Example: model User<T> extends Base { id: string; ...Audited; }
type pModel struct {
	Pos        lexer.Position
	Name       string          `parser:"Model @Ident"`
	TypeParams []string        `parser:"( Lt @Ident ( Comma @Ident )* Gt )?"`
	Extends    *pTypeRef       `parser:"( Extends @@ )?"`
	Members    []*pModelMember `parser:"LBrace @@* RBrace"`
}

// pModelMember is a field or a spread, with a tolerated separator.
type pModelMember struct {
	Pos    lexer.Position
	Spread *pSpread `parser:"( @@"`
	Field  *pField  `parser:"| @@ ) ( Semi | Comma )?"`
}

// pSpread is the Participle grammar for a spread member.
// Example: ...Audited
type pSpread struct {
	Pos    lexer.Position
	Target *pTypeRef `parser:"Ellipsis @@"`
}

// pField is the Participle grammar for a model field.
// Note: field names can be keywords, so keyword tokens are accepted too.
type pField struct {
	Pos        lexer.Position
	Decorators []*pDecorator `parser:"@@*"`
	Name       string        `parser:"@(Ident | Import | Using | Namespace | Model | Enum | Union | Interface | Scalar | Alias | Extends | Op)"`
	Optional   bool          `parser:"@Question?"`
	FieldType  *pTypeRef     `parser:"Colon @@"`
}

// pEnum is the Participle grammar for an enum declaration.
// Example: enum Status { active; inactive: "off" }
type pEnum struct {
	Pos      lexer.Position
	Name     string          `parser:"Enum @Ident LBrace"`
	Variants []*pEnumVariant `parser:"( @@ ( Semi | Comma )? )* RBrace"`
}

// pEnumVariant is a single enum member with an optional explicit value.
type pEnumVariant struct {
	Pos   lexer.Position
	Name  string    `parser:"@(Ident | Import | Using | Namespace | Model | Enum | Union | Interface | Scalar | Alias | Extends | Op)"`
	Value *pLiteral `parser:"( Colon @@ )?"`
}

// pUnion is the Participle grammar for a union declaration.
// Example: union Pet { Cat, Dog }
type pUnion struct {
	Pos     lexer.Position
	Name    string      `parser:"Union @Ident LBrace"`
	Members []*pTypeRef `parser:"( @@ ( Semi | Comma )? )* RBrace"`
}

// pScalar is the Participle grammar for a scalar declaration.
// Example: scalar uuid extends string;
type pScalar struct {
	Pos  lexer.Position
	Name string    `parser:"Scalar @Ident"`
	Base *pTypeRef `parser:"( Extends @@ )? Semi?"`
}

// pAlias is the Participle grammar for an alias declaration.
// Example: alias UserList = User[];
type pAlias struct {
	Pos    lexer.Position
	Name   string    `parser:"Alias @Ident Eq"`
	Target *pTypeRef `parser:"@@ Semi?"`
}

// pInterface is the Participle grammar for an interface declaration.
type pInterface struct {
	Pos        lexer.Position
	Name       string        `parser:"Interface @Ident LBrace"`
	Operations []*pOperation `parser:"@@* RBrace"`
}

// pOperation is the Participle grammar for an interface operation.
// The leading `op` keyword is optional.
type pOperation struct {
	Pos        lexer.Position
	Decorators []*pDecorator `parser:"@@*"`
	Name       string        `parser:"Op? @(Ident | Import | Using | Namespace | Model | Enum | Union | Interface | Scalar | Alias | Extends)"`
	Params     []*pParam     `parser:"LParen ( @@ ( Comma @@ )* )? RParen"`
	Return     *pTypeRef     `parser:"Colon @@ ( Semi | Comma )?"`
}

// pParam is the Participle grammar for an operation parameter.
type pParam struct {
	Pos        lexer.Position
	Decorators []*pDecorator `parser:"@@*"`
	Name       string        `parser:"@(Ident | Import | Using | Namespace | Model | Enum | Union | Interface | Scalar | Alias | Extends | Op)"`
	Optional   bool          `parser:"@Question?"`
	ParamType  *pTypeRef     `parser:"Colon @@"`
}

// pTypeRef is the Participle grammar for a type reference with array
// suffixes. Example: Map<string, int32>[][]
type pTypeRef struct {
	Pos           lexer.Position
	Atom          *pTypeAtom `parser:"@@"`
	ArraySuffixes []string   `parser:"( @LBracket RBracket )*"`
}

// pTypeAtom is the Participle grammar for a type atom.
type pTypeAtom struct {
	Pos       lexer.Position
	Anonymous *pAnonType  `parser:"  @@"`
	Tuple     *pTupleType `parser:"| @@"`
	Literal   *pLiteral   `parser:"| @@"`
	Named     *pNamedType `parser:"| @@"`
}

// pNamedType is a dotted name with optional generic arguments.
type pNamedType struct {
	Pos      lexer.Position
	Path     []string    `parser:"@Ident ( Dot @Ident )*"`
	TypeArgs []*pTypeRef `parser:"( Lt @@ ( Comma @@ )* Gt )?"`
}

// pAnonType is an inline model literal used as a type.
// Example: { name: string; age?: int32 }
type pAnonType struct {
	Pos     lexer.Position
	Members []*pModelMember `parser:"LBrace @@* RBrace"`
}

// pTupleType is a fixed-length tuple type. Example: [string, int32]
type pTupleType struct {
	Pos   lexer.Position
	Elems []*pTypeRef `parser:"LBracket @@ ( Comma @@ )* RBracket"`
}

// pLiteral is the Participle grammar for literal values.
type pLiteral struct {
	Pos    lexer.Position
	Str    *string `parser:"  @String"`
	Number *string `parser:"| @Number"`
	True   bool    `parser:"| @True"`
	False  bool    `parser:"| @False"`
	Null   bool    `parser:"| @Null"`
}

// =============================================================================
// Parser Instance
// =============================================================================

var parserInstance = participle.MustBuild[pFile](
	participle.Lexer(idlLexer),
	participle.Elide("whitespace", "SingleLineComment", "MultiLineComment"),
	participle.UseLookahead(2),
)

// =============================================================================
// Public API
// =============================================================================

// Parse parses IDL source text and returns the file AST. The filename
// is used for positions only and may be empty.
func Parse(filename, input string) (*ast.File, error) {
	parsed, err := parserInstance.ParseString(filename, input)
	if err != nil {
		return nil, classify(err)
	}
	return convertFile(parsed)
}

// ParseFile parses a single IDL file from disk.
func ParseFile(filename string) (*ast.File, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return Parse(filename, string(data))
}

// ParseFiles reads every input file and concatenates them in order into
// a single virtual source before parsing.
func ParseFiles(filenames ...string) (*ast.File, error) {
	var sources []string
	for _, filename := range filenames {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
		sources = append(sources, string(data))
	}
	name := ""
	if len(filenames) == 1 {
		name = filenames[0]
	}
	return Parse(name, strings.Join(sources, "\n"))
}

// =============================================================================
// Conversion Helpers (Participle IR -> AST)
// =============================================================================

func convertFile(f *pFile) (*ast.File, error) {
	file := &ast.File{}
	file.SetPos(position(f.Pos))

	for _, top := range f.Decls {
		decl, err := convertTopDecl(top)
		if err != nil {
			return nil, err
		}
		file.Decls = append(file.Decls, decl)
	}
	return file, nil
}

func convertTopDecl(t *pTopDecl) (ast.Decl, error) {
	switch {
	case t.Import != nil:
		imp := &ast.Import{Target: unquoteRaw(t.Import.Target)}
		imp.SetPos(position(t.Import.Pos))
		return imp, nil
	case t.Using != nil:
		using := &ast.Using{Path: t.Using.Path}
		using.SetPos(position(t.Using.Pos))
		return using, nil
	case t.Decl != nil:
		return convertDecl(t.Decl)
	default:
		return nil, &ParseError{Pos: position(t.Pos), Message: "empty declaration"}
	}
}

func convertDecl(d *pDecl) (ast.Decl, error) {
	decorators, err := convertDecorators(d.Decorators)
	if err != nil {
		return nil, err
	}

	switch {
	case d.Namespace != nil:
		return convertNamespace(d.Namespace, decorators)
	case d.Model != nil:
		return convertModel(d.Model, decorators)
	case d.Enum != nil:
		return convertEnum(d.Enum, decorators)
	case d.Union != nil:
		return convertUnion(d.Union, decorators)
	case d.Interface != nil:
		return convertInterface(d.Interface, decorators)
	case d.Scalar != nil:
		return convertScalar(d.Scalar, decorators)
	case d.Alias != nil:
		return convertAlias(d.Alias, decorators)
	default:
		return nil, &ParseError{Pos: position(d.Pos), Message: "empty declaration"}
	}
}

func convertNamespace(n *pNamespace, decorators []*ast.Decorator) (*ast.Namespace, error) {
	ns := &ast.Namespace{
		Name:       strings.Join(n.Path, "."),
		Decorators: decorators,
	}
	ns.SetPos(position(n.Pos))

	for _, d := range n.Decls {
		decl, err := convertDecl(d)
		if err != nil {
			return nil, err
		}
		ns.Decls = append(ns.Decls, decl)
	}
	return ns, nil
}

func convertModel(m *pModel, decorators []*ast.Decorator) (*ast.Model, error) {
	model := &ast.Model{
		Name:       m.Name,
		TypeParams: m.TypeParams,
		Decorators: decorators,
	}
	model.SetPos(position(m.Pos))

	if m.Extends != nil {
		extends, err := convertTypeRef(m.Extends)
		if err != nil {
			return nil, err
		}
		model.Extends = extends
	}

	members, err := convertModelMembers(m.Members)
	if err != nil {
		return nil, err
	}
	model.Members = members
	return model, nil
}

func convertModelMembers(members []*pModelMember) ([]ast.ModelMember, error) {
	result := make([]ast.ModelMember, 0, len(members))
	for _, m := range members {
		switch {
		case m.Spread != nil:
			target, err := convertTypeRef(m.Spread.Target)
			if err != nil {
				return nil, err
			}
			spread := &ast.Spread{Target: target}
			spread.SetPos(position(m.Spread.Pos))
			result = append(result, spread)
		case m.Field != nil:
			field, err := convertField(m.Field)
			if err != nil {
				return nil, err
			}
			result = append(result, field)
		}
	}
	return result, nil
}

func convertField(f *pField) (*ast.Field, error) {
	decorators, err := convertDecorators(f.Decorators)
	if err != nil {
		return nil, err
	}
	fieldType, err := convertTypeRef(f.FieldType)
	if err != nil {
		return nil, err
	}

	field := &ast.Field{
		Name:       f.Name,
		FieldType:  fieldType,
		Optional:   f.Optional,
		Decorators: decorators,
	}
	field.SetPos(position(f.Pos))
	return field, nil
}

func convertEnum(e *pEnum, decorators []*ast.Decorator) (*ast.Enum, error) {
	enum := &ast.Enum{Name: e.Name, Decorators: decorators}
	enum.SetPos(position(e.Pos))

	for _, v := range e.Variants {
		variant := &ast.EnumVariant{Name: v.Name}
		variant.SetPos(position(v.Pos))
		if v.Value != nil {
			value, err := convertLiteral(v.Value)
			if err != nil {
				return nil, err
			}
			variant.Value = &value
		}
		enum.Variants = append(enum.Variants, variant)
	}
	return enum, nil
}

func convertUnion(u *pUnion, decorators []*ast.Decorator) (*ast.Union, error) {
	union := &ast.Union{Name: u.Name, Decorators: decorators}
	union.SetPos(position(u.Pos))

	for _, m := range u.Members {
		member, err := convertTypeRef(m)
		if err != nil {
			return nil, err
		}
		union.Members = append(union.Members, member)
	}
	return union, nil
}

func convertScalar(s *pScalar, decorators []*ast.Decorator) (*ast.Scalar, error) {
	scalar := &ast.Scalar{Name: s.Name, Decorators: decorators}
	scalar.SetPos(position(s.Pos))

	if s.Base != nil {
		base, err := convertTypeRef(s.Base)
		if err != nil {
			return nil, err
		}
		scalar.Base = base
	}
	return scalar, nil
}

func convertAlias(a *pAlias, decorators []*ast.Decorator) (*ast.Alias, error) {
	target, err := convertTypeRef(a.Target)
	if err != nil {
		return nil, err
	}

	alias := &ast.Alias{Name: a.Name, Decorators: decorators, Target: target}
	alias.SetPos(position(a.Pos))
	return alias, nil
}

// httpVerbs is the set of HTTP verb decorator names; each operation may
// carry at most one.
var httpVerbs = map[string]bool{
	"get":    true,
	"post":   true,
	"put":    true,
	"patch":  true,
	"delete": true,
}

func convertInterface(i *pInterface, decorators []*ast.Decorator) (*ast.Interface, error) {
	iface := &ast.Interface{Name: i.Name, Decorators: decorators}
	iface.SetPos(position(i.Pos))

	for _, op := range i.Operations {
		operation, err := convertOperation(op)
		if err != nil {
			return nil, err
		}
		iface.Operations = append(iface.Operations, operation)
	}
	return iface, nil
}

func convertOperation(o *pOperation) (*ast.Operation, error) {
	decorators, err := convertDecorators(o.Decorators)
	if err != nil {
		return nil, err
	}

	verbs := 0
	for _, d := range decorators {
		if httpVerbs[d.Name] {
			verbs++
		}
	}
	if verbs > 1 {
		return nil, &ParseError{
			Pos:     position(o.Pos),
			Message: "operation " + strconv.Quote(o.Name) + " has more than one HTTP verb decorator",
		}
	}

	returnType, err := convertTypeRef(o.Return)
	if err != nil {
		return nil, err
	}

	op := &ast.Operation{
		Name:       o.Name,
		Decorators: decorators,
		ReturnType: returnType,
	}
	op.SetPos(position(o.Pos))

	for _, p := range o.Params {
		param, err := convertParam(p)
		if err != nil {
			return nil, err
		}
		op.Params = append(op.Params, param)
	}
	return op, nil
}

func convertParam(p *pParam) (*ast.Parameter, error) {
	decorators, err := convertDecorators(p.Decorators)
	if err != nil {
		return nil, err
	}
	paramType, err := convertTypeRef(p.ParamType)
	if err != nil {
		return nil, err
	}

	param := &ast.Parameter{
		Name:       p.Name,
		ParamType:  paramType,
		Optional:   p.Optional,
		Decorators: decorators,
	}
	param.SetPos(position(p.Pos))
	return param, nil
}

func convertDecorators(decorators []*pDecorator) ([]*ast.Decorator, error) {
	if len(decorators) == 0 {
		return nil, nil
	}
	result := make([]*ast.Decorator, 0, len(decorators))
	for _, d := range decorators {
		decorator := &ast.Decorator{Name: d.Name}
		decorator.SetPos(position(d.Pos))
		for _, a := range d.Args {
			arg, err := convertLiteral(a)
			if err != nil {
				return nil, err
			}
			decorator.Args = append(decorator.Args, arg)
		}
		result = append(result, decorator)
	}
	return result, nil
}

func convertTypeRef(t *pTypeRef) (ast.TypeRef, error) {
	if t == nil {
		return nil, nil
	}

	ref, err := convertTypeAtom(t.Atom)
	if err != nil {
		return nil, err
	}

	// Array suffixes nest outwards: T[][] is an array of T[].
	for range t.ArraySuffixes {
		arr := &ast.ArrayType{Elem: ref}
		arr.SetPos(position(t.Pos))
		ref = arr
	}
	return ref, nil
}

func convertTypeAtom(a *pTypeAtom) (ast.TypeRef, error) {
	switch {
	case a.Anonymous != nil:
		members, err := convertModelMembers(a.Anonymous.Members)
		if err != nil {
			return nil, err
		}
		anon := &ast.AnonymousType{}
		anon.SetPos(position(a.Anonymous.Pos))
		for _, m := range members {
			field, ok := m.(*ast.Field)
			if !ok {
				return nil, &ParseError{
					Pos:     position(a.Anonymous.Pos),
					Message: "spread members are not allowed in anonymous types",
				}
			}
			anon.Fields = append(anon.Fields, field)
		}
		return anon, nil

	case a.Tuple != nil:
		tuple := &ast.TupleType{}
		tuple.SetPos(position(a.Tuple.Pos))
		for _, e := range a.Tuple.Elems {
			elem, err := convertTypeRef(e)
			if err != nil {
				return nil, err
			}
			tuple.Elems = append(tuple.Elems, elem)
		}
		return tuple, nil

	case a.Literal != nil:
		value, err := convertLiteral(a.Literal)
		if err != nil {
			return nil, err
		}
		lit := &ast.LiteralType{Value: value}
		lit.SetPos(position(a.Literal.Pos))
		return lit, nil

	case a.Named != nil:
		named := &ast.NamedType{Path: a.Named.Path}
		named.SetPos(position(a.Named.Pos))
		for _, arg := range a.Named.TypeArgs {
			typeArg, err := convertTypeRef(arg)
			if err != nil {
				return nil, err
			}
			named.TypeArgs = append(named.TypeArgs, typeArg)
		}
		return named, nil

	default:
		return nil, &ParseError{Pos: position(a.Pos), Message: "empty type reference"}
	}
}

func convertLiteral(l *pLiteral) (ast.Literal, error) {
	switch {
	case l.Str != nil:
		s, err := strconv.Unquote(*l.Str)
		if err != nil {
			return ast.Literal{}, &LexError{
				Pos:     position(l.Pos),
				Message: "invalid string escape in " + *l.Str,
			}
		}
		return ast.StringLit(s), nil
	case l.Number != nil:
		if strings.Contains(*l.Number, ".") {
			f, err := strconv.ParseFloat(*l.Number, 64)
			if err != nil {
				return ast.Literal{}, &LexError{Pos: position(l.Pos), Message: "invalid number " + *l.Number}
			}
			return ast.FloatLit(f), nil
		}
		i, err := strconv.ParseInt(*l.Number, 10, 64)
		if err != nil {
			return ast.Literal{}, &LexError{Pos: position(l.Pos), Message: "invalid number " + *l.Number}
		}
		return ast.IntLit(i), nil
	case l.True:
		return ast.BoolLit(true), nil
	case l.False:
		return ast.BoolLit(false), nil
	case l.Null:
		return ast.NullLit(), nil
	default:
		return ast.Literal{}, &ParseError{Pos: position(l.Pos), Message: "empty literal"}
	}
}

// unquoteRaw strips surrounding quotes, decoding standard escapes when
// possible and falling back to the raw interior otherwise.
func unquoteRaw(s string) string {
	if unquoted, err := strconv.Unquote(s); err == nil {
		return unquoted
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
