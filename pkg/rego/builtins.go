// Code related to the result types of builtin functions.
package rego

import "github.com/vhavlena/tmplguard/pkg/types"

// builtinResults maps builtin function names to the type of their result.
// Calls to functions missing here resolve to any.
func builtinResults() map[string]types.TypeDef {
	str := types.NewPrimitive(types.PrimitiveString)
	num := types.NewPrimitive(types.PrimitiveNumber)
	boolean := types.NewPrimitive(types.PrimitiveBoolean)

	results := map[string]types.TypeDef{
		"split":        types.NewArray(str),
		"array.concat": types.NewArray(types.NewPrimitive(types.PrimitiveAny)),
		"array.slice":  types.NewArray(types.NewPrimitive(types.PrimitiveAny)),
		"regex.split":  types.NewArray(str),
		"object.keys":  types.NewNamed(setName),
	}
	for _, name := range []string{
		"sprintf", "concat", "format_int", "lower", "upper", "replace", "substring",
		"trim", "trim_left", "trim_right", "trim_prefix", "trim_suffix", "trim_space",
		"strings.replace_n", "strings.reverse", "json.marshal", "yaml.marshal",
		"base64.encode", "base64.decode", "base64url.encode", "base64url.decode",
		"urlquery.encode", "urlquery.decode", "type_name", "time.format",
	} {
		results[name] = str
	}
	for _, name := range []string{
		"count", "sum", "product", "abs", "round", "ceil", "floor", "to_number",
		"plus", "minus", "mul", "div", "rem", "indexof", "time.now_ns",
		"time.parse_ns", "time.parse_rfc3339_ns", "semver.compare", "bits.or", "bits.and",
	} {
		results[name] = num
	}
	for _, name := range []string{
		"startswith", "endswith", "contains", "regex.match", "glob.match",
		"equal", "neq", "lt", "lte", "gt", "gte",
		"is_string", "is_number", "is_boolean", "is_array", "is_object", "is_set", "is_null",
		"semver.is_valid", "strings.any_prefix_match", "strings.any_suffix_match",
	} {
		results[name] = boolean
	}
	return results
}
