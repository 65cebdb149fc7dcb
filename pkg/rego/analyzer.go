// Package rego checks the arguments Rego policies interpolate into strings
// with sprintf.
package rego

import (
	"github.com/open-policy-agent/opa/ast"

	"github.com/vhavlena/tmplguard/pkg/rule"
	"github.com/vhavlena/tmplguard/pkg/types"
)

// setName is the named type reported for Rego sets.
const setName = "set"

// TypeAnalyzer infers the types of Rego terms within one rule. Variable types
// are recorded in body order, so a term is typed with what is known at the
// point it appears.
type TypeAnalyzer struct {
	types    map[string]types.TypeDef // Variable types by name
	schema   *InputSchema
	builtins map[string]types.TypeDef
}

// NewTypeAnalyzer creates a new type analyzer.
//
// Parameters:
//
//	schema *InputSchema: The input schema used for `input` references, may be nil.
//
// Returns:
//
//	*TypeAnalyzer: A new instance of TypeAnalyzer.
func NewTypeAnalyzer(schema *InputSchema) *TypeAnalyzer {
	if schema == nil {
		schema = NewInputSchema()
	}
	return &TypeAnalyzer{
		types:    make(map[string]types.TypeDef),
		schema:   schema,
		builtins: builtinResults(),
	}
}

// TypeOf implements rule.TypeChecker for expressions whose Node is an *ast.Term.
func (ta *TypeAnalyzer) TypeOf(expr rule.Expression) types.TypeDef {
	term, ok := expr.Node.(*ast.Term)
	if !ok {
		return types.NewErrorType()
	}
	return ta.InferTermType(term)
}

// TypeToString implements rule.TypeChecker.
func (ta *TypeAnalyzer) TypeToString(t types.TypeDef) string {
	return t.String()
}

// GetVarType returns the recorded type of a variable.
func (ta *TypeAnalyzer) GetVarType(name string) (types.TypeDef, bool) {
	t, ok := ta.types[name]
	return t, ok
}

// setVarType records the type of a variable. Wildcards are never recorded.
func (ta *TypeAnalyzer) setVarType(v ast.Var, t types.TypeDef) {
	if v.IsWildcard() {
		return
	}
	ta.types[string(v)] = t
}

// InferTermType infers the type of an AST term.
//
// Parameters:
//
//	term *ast.Term: The AST term to infer the type for.
//
// Returns:
//
//	types.TypeDef: The inferred type of the term.
func (ta *TypeAnalyzer) InferTermType(term *ast.Term) types.TypeDef {
	if term == nil {
		return types.NewErrorType()
	}
	return ta.inferValueType(term.Value)
}

// inferValueType infers the type of an AST value. Scalars keep their literal
// value; collections widen their elements.
func (ta *TypeAnalyzer) inferValueType(val ast.Value) types.TypeDef {
	switch v := val.(type) {
	case ast.String:
		return types.NewLiteral(types.PrimitiveString, string(v))
	case ast.Number:
		return types.NewLiteral(types.PrimitiveNumber, v.String())
	case ast.Boolean:
		return types.NewLiteral(types.PrimitiveBoolean, v.String())
	case ast.Null:
		return types.NewPrimitive(types.PrimitiveNull)
	case *ast.Array:
		if v == nil || v.Len() == 0 {
			return types.NewArray(types.NewPrimitive(types.PrimitiveNever))
		}
		elems := make([]types.TypeDef, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			elems = append(elems, ta.InferTermType(v.Elem(i)).Widen())
		}
		return types.NewArray(types.NewUnion(elems))
	case ast.Object:
		fields := make(map[string]types.TypeDef)
		v.Foreach(func(key, value *ast.Term) {
			if str, ok := key.Value.(ast.String); ok {
				fields[string(str)] = ta.InferTermType(value).Widen()
			}
		})
		return types.NewObjectType(fields)
	case ast.Set, *ast.SetComprehension:
		return types.NewNamed(setName)
	case *ast.ArrayComprehension:
		return types.NewArray(ta.InferTermType(v.Term).Widen())
	case *ast.ObjectComprehension:
		return types.NewPrimitive(types.PrimitiveObject)
	case ast.Call:
		return ta.inferCallType(v)
	case ast.Ref:
		return ta.inferRefType(v)
	case ast.Var:
		if t, ok := ta.types[string(v)]; ok {
			return t
		}
	}
	return types.NewPrimitive(types.PrimitiveAny)
}

// inferCallType returns the result type of a builtin call, any for other calls.
func (ta *TypeAnalyzer) inferCallType(call ast.Call) types.TypeDef {
	if len(call) == 0 {
		return types.NewPrimitive(types.PrimitiveAny)
	}
	if t, ok := ta.builtins[call[0].Value.String()]; ok {
		return t
	}
	return types.NewPrimitive(types.PrimitiveAny)
}

// inferRefType infers the type of a reference (e.g., input.x or data.x).
//
// Parameters:
//
//	ref ast.Ref: The reference to infer the type for.
//
// Returns:
//
//	types.TypeDef: The inferred type, any if the reference cannot be followed.
func (ta *TypeAnalyzer) inferRefType(ref ast.Ref) types.TypeDef {
	anyType := types.NewPrimitive(types.PrimitiveAny)
	if len(ref) == 0 {
		return anyType
	}

	head, ok := ref[0].Value.(ast.Var)
	if !ok {
		return anyType
	}
	path := refToPath(ref[1:])

	if head.Equal(ast.InputRootDocument.Value) {
		if typ, exists := ta.schema.GetType(path); exists && typ != nil {
			return *typ
		}
		return anyType
	}

	if typ, exists := ta.types[string(head)]; exists {
		if pathType, exists := typ.GetTypeFromPath(path); exists {
			return *pathType
		}
	}
	return anyType
}

// AnalyzeExpr records the variable types bound by an assignment or
// unification with a variable on one side.
//
// Parameters:
//
//	expr *ast.Expr: The body expression to analyze.
func (ta *TypeAnalyzer) AnalyzeExpr(expr *ast.Expr) {
	if expr == nil || expr.Negated {
		return
	}
	if !expr.IsAssignment() && !expr.IsEquality() {
		return
	}
	left, right := expr.Operand(0), expr.Operand(1)
	if left == nil || right == nil {
		return
	}
	if v, ok := left.Value.(ast.Var); ok {
		ta.setVarType(v, ta.InferTermType(right))
		return
	}
	if v, ok := right.Value.(ast.Var); ok {
		ta.setVarType(v, ta.InferTermType(left))
	}
}

// refToPath converts a Rego AST reference to a slice of strings representing the path.
//
// Parameters:
//
//	ref ast.Ref: The reference to convert.
//
// Returns:
//
//	[]string: The path as a slice of strings.
func refToPath(ref ast.Ref) []string {
	path := make([]string, 0, len(ref))
	for _, term := range ref {
		if str, ok := term.Value.(ast.String); ok {
			path = append(path, string(str))
		} else {
			path = append(path, term.String())
		}
	}
	return path
}
