// Package classify decides whether a type may be interpolated into a template
// literal under a policy.
package classify

import (
	"github.com/vhavlena/tmplguard/pkg/policy"
	"github.com/vhavlena/tmplguard/pkg/types"
)

// IsAllowed reports whether a value of type t may be interpolated under p.
//
// A union is allowed only if every member is; an intersection is allowed if
// any single member is, which keeps branded primitives such as
// `string & { _brand: 'Id' }` allowed. Anything not matched by an explicit
// rule is rejected.
//
// Parameters:
//
//	t types.TypeDef: The resolved type of the interpolated expression.
//	p policy.Policy: The active policy.
//
// Returns:
//
//	bool: True if the type is allowed.
func IsAllowed(t types.TypeDef, p policy.Policy) bool {
	if kind, ok := t.BaseKind(); ok {
		return primitiveAllowed(kind, p)
	}
	switch t.Kind {
	case types.KindNamed:
		return t.Name == types.RegExpName && p.AllowRegExp
	case types.KindArray:
		if !p.AllowArray || t.Elem == nil {
			return false
		}
		return IsAllowed(*t.Elem, p)
	case types.KindUnion:
		for _, m := range t.Members {
			if !IsAllowed(m, p) {
				return false
			}
		}
		return len(t.Members) > 0
	case types.KindIntersection:
		for _, m := range t.Members {
			if IsAllowed(m, p) {
				return true
			}
		}
		return false
	case types.KindTypeParam:
		if t.Constraint == nil {
			return p.AllowAny
		}
		return IsAllowed(*t.Constraint, p)
	}
	return false
}

func primitiveAllowed(kind types.PrimitiveType, p policy.Policy) bool {
	switch kind {
	case types.PrimitiveString:
		return true
	case types.PrimitiveNumber, types.PrimitiveBigInt:
		return p.AllowNumber
	case types.PrimitiveBoolean:
		return p.AllowBoolean
	case types.PrimitiveNull, types.PrimitiveUndefined:
		return p.AllowNullish
	case types.PrimitiveAny:
		return p.AllowAny
	case types.PrimitiveNever:
		return p.AllowNever
	case types.PrimitiveUnknown, types.PrimitiveObject, types.PrimitiveError:
		return false
	}
	return false
}

// Offenders lists the parts of t responsible for rejecting it under p. It
// returns nil when t is allowed.
//
// A rejected union contributes its rejected members, an array its element's
// offenders (or the array itself when arrays are not allowed), a constrained
// type parameter the offenders of its constraint. Every other rejected type is
// its own offender.
func Offenders(t types.TypeDef, p policy.Policy) []types.TypeDef {
	if IsAllowed(t, p) {
		return nil
	}
	switch t.Kind {
	case types.KindUnion:
		var out []types.TypeDef
		for _, m := range t.Members {
			out = append(out, Offenders(m, p)...)
		}
		return out
	case types.KindArray:
		if p.AllowArray && t.Elem != nil {
			return Offenders(*t.Elem, p)
		}
	case types.KindTypeParam:
		if t.Constraint != nil {
			return Offenders(*t.Constraint, p)
		}
	}
	return []types.TypeDef{t}
}
