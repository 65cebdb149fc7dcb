// Package types provides the type model handed to the template expression
// checker by a host type system.
package types

import (
	"sort"
	"strings"
)

// TypeKind represents the variant of a type
type TypeKind string

const (
	KindPrimitive    TypeKind = "primitive"
	KindLiteral      TypeKind = "literal"
	KindNamed        TypeKind = "named"
	KindArray        TypeKind = "array"
	KindUnion        TypeKind = "union"
	KindIntersection TypeKind = "intersection"
	KindTypeParam    TypeKind = "typeParam"
)

// PrimitiveType represents the primitive kinds known to the checker
type PrimitiveType string

const (
	PrimitiveString    PrimitiveType = "string"
	PrimitiveNumber    PrimitiveType = "number"
	PrimitiveBigInt    PrimitiveType = "bigint"
	PrimitiveBoolean   PrimitiveType = "boolean"
	PrimitiveNull      PrimitiveType = "null"
	PrimitiveUndefined PrimitiveType = "undefined"
	PrimitiveAny       PrimitiveType = "any"
	PrimitiveUnknown   PrimitiveType = "unknown"
	PrimitiveNever     PrimitiveType = "never"
	PrimitiveObject    PrimitiveType = "object"
	// PrimitiveError marks a type the host checker failed to resolve.
	PrimitiveError PrimitiveType = "error"
)

// RegExpName is the name under which the regular expression type is recognized.
const RegExpName = "RegExp"

// TypeDef is a tagged description of a type as computed by the host checker.
type TypeDef struct {
	Kind         TypeKind           // The variant of the type
	Primitive    PrimitiveType      // The primitive kind, or the base kind of a literal
	Value        string             // The literal text if Kind is literal
	Name         string             // The name of a named type or type parameter
	Elem         *TypeDef           // The representative element type if Kind is array
	Members      []TypeDef          // The constituents of a union or intersection
	Constraint   *TypeDef           // The constraint of a type parameter, nil if absent
	ObjectFields map[string]TypeDef // The known shape of an object, if any
	Text         string             // Printed text supplied by the host; overrides rendering
}

// NewPrimitive creates a new TypeDef for a primitive kind
func NewPrimitive(p PrimitiveType) TypeDef {
	return TypeDef{
		Kind:      KindPrimitive,
		Primitive: p,
	}
}

// NewLiteral creates a literal of the given base kind. For string literals
// value is the unquoted string; for the other kinds it is the literal text.
func NewLiteral(p PrimitiveType, value string) TypeDef {
	return TypeDef{
		Kind:      KindLiteral,
		Primitive: p,
		Value:     value,
	}
}

// NewNamed creates a nominal type identified by name
func NewNamed(name string) TypeDef {
	return TypeDef{
		Kind: KindNamed,
		Name: name,
	}
}

// NewObject creates an object type printed as the given text
func NewObject(text string) TypeDef {
	t := NewPrimitive(PrimitiveObject)
	t.Text = text
	return t
}

// NewObjectType creates an object type with a known shape
func NewObjectType(fields map[string]TypeDef) TypeDef {
	t := NewPrimitive(PrimitiveObject)
	t.ObjectFields = fields
	if t.ObjectFields == nil {
		t.ObjectFields = map[string]TypeDef{}
	}
	return t
}

// NewErrorType creates the type reported for an expression the host could not resolve
func NewErrorType() TypeDef {
	return NewPrimitive(PrimitiveError)
}

// NewArray creates a new TypeDef for an array with the given element type
func NewArray(elementType TypeDef) TypeDef {
	return TypeDef{
		Kind: KindArray,
		Elem: &elementType,
	}
}

// NewTypeParam creates an unresolved generic parameter. A nil constraint
// marks the parameter as unconstrained.
func NewTypeParam(name string, constraint *TypeDef) TypeDef {
	return TypeDef{
		Kind:       KindTypeParam,
		Name:       name,
		Constraint: constraint,
	}
}

// NewUnion creates a union of the given members.
//
// Nested unions are flattened and exact duplicates removed. A union of a
// single distinct member is that member.
//
// Parameters:
//
//	members []TypeDef: The constituent types.
//
// Returns:
//
//	TypeDef: The union type, or its only member.
func NewUnion(members []TypeDef) TypeDef {
	return newComposite(KindUnion, members)
}

// NewIntersection creates an intersection of the given members, flattened and
// deduplicated like NewUnion.
func NewIntersection(members []TypeDef) TypeDef {
	return newComposite(KindIntersection, members)
}

func newComposite(kind TypeKind, members []TypeDef) TypeDef {
	flat := make([]TypeDef, 0, len(members))
	var add func(m TypeDef)
	add = func(m TypeDef) {
		if m.Kind == kind && m.Text == "" {
			for _, inner := range m.Members {
				add(inner)
			}
			return
		}
		for i := range flat {
			if flat[i].IsEqual(&m) {
				return
			}
		}
		flat = append(flat, m)
	}
	for _, m := range members {
		add(m)
	}
	switch len(flat) {
	case 0:
		if kind == KindUnion {
			return NewPrimitive(PrimitiveNever)
		}
		return NewPrimitive(PrimitiveUnknown)
	case 1:
		return flat[0]
	}
	return TypeDef{
		Kind:    kind,
		Members: flat,
	}
}

// WithText returns a copy of the type that prints as text
func (t TypeDef) WithText(text string) TypeDef {
	t.Text = text
	return t
}

// IsPrimitive returns true if the type is a primitive
func (t *TypeDef) IsPrimitive() bool {
	return t.Kind == KindPrimitive
}

// IsLiteral returns true if the type is a literal
func (t *TypeDef) IsLiteral() bool {
	return t.Kind == KindLiteral
}

// IsNamed returns true if the type is a nominal type
func (t *TypeDef) IsNamed() bool {
	return t.Kind == KindNamed
}

// IsArray returns true if the type is an array
func (t *TypeDef) IsArray() bool {
	return t.Kind == KindArray
}

// IsUnion returns true if the type is a union
func (t *TypeDef) IsUnion() bool {
	return t.Kind == KindUnion
}

// IsIntersection returns true if the type is an intersection
func (t *TypeDef) IsIntersection() bool {
	return t.Kind == KindIntersection
}

// IsTypeParam returns true if the type is an unresolved type parameter
func (t *TypeDef) IsTypeParam() bool {
	return t.Kind == KindTypeParam
}

// BaseKind returns the primitive kind of a primitive or literal type.
// Returns false for every other variant.
func (t *TypeDef) BaseKind() (PrimitiveType, bool) {
	if t.Kind == KindPrimitive || t.Kind == KindLiteral {
		return t.Primitive, true
	}
	return "", false
}

// Widen maps a literal to its base primitive; other types are returned unchanged.
func (t TypeDef) Widen() TypeDef {
	if t.Kind == KindLiteral {
		return NewPrimitive(t.Primitive)
	}
	return t
}

// IsEqual checks if this type is structurally equal to another type.
// Printed text is not compared.
func (t *TypeDef) IsEqual(other *TypeDef) bool {
	if t.Kind != other.Kind {
		return false
	}

	switch t.Kind {
	case KindPrimitive:
		if t.Primitive != other.Primitive {
			return false
		}
		if t.Primitive == PrimitiveObject {
			return t.String() == other.String()
		}
		return true
	case KindLiteral:
		return t.Primitive == other.Primitive && t.Value == other.Value
	case KindNamed:
		return t.Name == other.Name
	case KindArray:
		if t.Elem == nil || other.Elem == nil {
			return t.Elem == other.Elem
		}
		return t.Elem.IsEqual(other.Elem)
	case KindUnion, KindIntersection:
		if len(t.Members) != len(other.Members) {
			return false
		}
		for i := range t.Members {
			if !t.Members[i].IsEqual(&other.Members[i]) {
				return false
			}
		}
		return true
	case KindTypeParam:
		if t.Name != other.Name {
			return false
		}
		if t.Constraint == nil || other.Constraint == nil {
			return t.Constraint == other.Constraint
		}
		return t.Constraint.IsEqual(other.Constraint)
	}
	return false
}

// GetObjectField returns the type of a field in an object with a known shape.
// Returns (nil, false) if the field doesn't exist or if the type is not an object
func (t *TypeDef) GetObjectField(field string) (*TypeDef, bool) {
	if t.Kind != KindPrimitive || t.Primitive != PrimitiveObject {
		return nil, false
	}
	fieldType, exists := t.ObjectFields[field]
	if !exists {
		return nil, false
	}
	return &fieldType, true
}

// GetTypeFromPath traverses the type using a path of field names or array indices.
//
// Parameters:
//
//	path []string: The path to traverse.
//
// Returns:
//
//	(*TypeDef, bool): The type at the given path and true if found, otherwise nil and false.
func (t *TypeDef) GetTypeFromPath(path []string) (*TypeDef, bool) {
	if len(path) == 0 {
		return t, true
	}

	switch t.Kind {
	case KindPrimitive:
		fieldType, exists := t.GetObjectField(path[0])
		if !exists {
			return nil, false
		}
		return fieldType.GetTypeFromPath(path[1:])
	case KindArray:
		if t.Elem == nil {
			return nil, false
		}
		return t.Elem.GetTypeFromPath(path[1:])
	case KindLiteral, KindNamed, KindUnion, KindIntersection, KindTypeParam:
		return nil, false
	}
	return nil, false
}

// TypeDepth computes the nesting depth of the type.
//
// Returns:
//
//	int: 0 for leaves. Arrays, unions, intersections, constrained parameters
//	and shaped objects add 1 to the maximum depth of their nested types.
func (t *TypeDef) TypeDepth() int {
	switch t.Kind {
	case KindArray:
		if t.Elem == nil {
			return 1
		}
		return 1 + t.Elem.TypeDepth()
	case KindUnion, KindIntersection:
		maxDepth := 0
		for i := range t.Members {
			if d := t.Members[i].TypeDepth(); d > maxDepth {
				maxDepth = d
			}
		}
		return 1 + maxDepth
	case KindTypeParam:
		if t.Constraint == nil {
			return 0
		}
		return 1 + t.Constraint.TypeDepth()
	case KindPrimitive:
		if len(t.ObjectFields) == 0 {
			return 0
		}
		maxDepth := 0
		for _, f := range t.ObjectFields {
			if d := f.TypeDepth(); d > maxDepth {
				maxDepth = d
			}
		}
		return 1 + maxDepth
	}
	return 0
}

// String returns the printed text of the type. Host-supplied text wins;
// otherwise the type is rendered the way a TypeScript checker prints it.
func (t TypeDef) String() string {
	if t.Text != "" {
		return t.Text
	}
	switch t.Kind {
	case KindPrimitive:
		if t.Primitive == PrimitiveObject && t.ObjectFields != nil {
			return printShape(t.ObjectFields)
		}
		return string(t.Primitive)
	case KindLiteral:
		if t.Primitive == PrimitiveString {
			return quote(t.Value)
		}
		return t.Value
	case KindNamed, KindTypeParam:
		return t.Name
	case KindArray:
		if t.Elem == nil {
			return "unknown[]"
		}
		elem := t.Elem.String()
		if t.Elem.Text == "" && (t.Elem.IsUnion() || t.Elem.IsIntersection()) {
			elem = "(" + elem + ")"
		}
		return elem + "[]"
	case KindUnion:
		return joinMembers(t.Members, " | ", false)
	case KindIntersection:
		return joinMembers(t.Members, " & ", true)
	}
	return "invalid"
}

func joinMembers(members []TypeDef, sep string, parenUnions bool) string {
	parts := make([]string, len(members))
	for i, m := range members {
		parts[i] = m.String()
		if parenUnions && m.Text == "" && m.IsUnion() {
			parts[i] = "(" + parts[i] + ")"
		}
	}
	return strings.Join(parts, sep)
}

// printShape renders an object shape as `{ a: string; b: number; }`.
func printShape(fields map[string]TypeDef) string {
	if len(fields) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteString("{ ")
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(fields[k].String())
		sb.WriteString("; ")
	}
	sb.WriteString("}")
	return sb.String()
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}
