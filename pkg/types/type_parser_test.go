package types

import (
	"errors"
	"testing"

	verr "github.com/vhavlena/tmplguard/pkg/err"
)

func TestParseType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src      string
		kind     TypeKind
		expected string
	}{
		{"string", KindPrimitive, "string"},
		{"  number  ", KindPrimitive, "number"},
		{"123", KindLiteral, "123"},
		{"-1.5", KindLiteral, "-1.5"},
		{"123n", KindLiteral, "123n"},
		{"'foo'", KindLiteral, `"foo"`},
		{`"it's"`, KindLiteral, `"it's"`},
		{"true", KindLiteral, "true"},
		{"RegExp", KindNamed, "RegExp"},
		{"Foo.Bar", KindNamed, "Foo.Bar"},
		{"Map<string, number>", KindNamed, "Map<string, number>"},
		{"{}", KindPrimitive, "{}"},
		{"{ a: string }", KindPrimitive, "{ a: string; }"},
		{"{\n  a: string;\n  b: { c: '}' };\n}", KindPrimitive, "{ a: string; b: { c: '}' }; }"},
		{"string | null | undefined", KindUnion, "string | null | undefined"},
		{"| 'a' | 'b'", KindUnion, `"a" | "b"`},
		{"string & { _kind: 'Id' }", KindIntersection, "string & { _kind: 'Id'; }"},
		{"{ a: string } & { b: string }", KindIntersection, "{ a: string; } & { b: string; }"},
		{"string | number & {}", KindUnion, "string | number & {}"},
		{"(number | undefined)[]", KindArray, "(number | undefined)[]"},
		{"string[][]", KindArray, "string[][]"},
		{"Array<number | null>", KindArray, "(number | null)[]"},
		{"ReadonlyArray<string>", KindArray, "readonly string[]"},
		{"[number, string]", KindArray, "[number, string]"},
		{"[]", KindArray, "[]"},
		{"void", KindPrimitive, "void"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()
			got, err := ParseType(tt.src, nil)
			if err != nil {
				t.Fatalf("ParseType(%q) failed: %v", tt.src, err)
			}
			if got.Kind != tt.kind {
				t.Errorf("ParseType(%q) kind = %v, want %v", tt.src, got.Kind, tt.kind)
			}
			if got.String() != tt.expected {
				t.Errorf("ParseType(%q) = %q, want %q", tt.src, got.String(), tt.expected)
			}
		})
	}
}

func TestParseTypeStructure(t *testing.T) {
	t.Parallel()

	tuple, err := ParseType("[1, 'a']", nil)
	if err != nil {
		t.Fatal(err)
	}
	if tuple.Elem == nil || !tuple.Elem.IsUnion() || len(tuple.Elem.Members) != 2 {
		t.Fatalf("expected tuple element to be a union of two, got %v", tuple.Elem)
	}

	void, err := ParseType("void", nil)
	if err != nil {
		t.Fatal(err)
	}
	if void.Primitive != PrimitiveUndefined {
		t.Errorf("expected void to be undefined, got %v", void.Primitive)
	}

	bi, err := ParseType("5n", nil)
	if err != nil {
		t.Fatal(err)
	}
	if bi.Primitive != PrimitiveBigInt {
		t.Errorf("expected bigint literal, got %v", bi.Primitive)
	}
}

func TestParseTypeWithParams(t *testing.T) {
	t.Parallel()

	params, err := ParseTypeParams(map[string]string{
		"T": "string & { _kind: 'Id' }",
		"U": "",
		"V": "T | null",
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := ParseType("T | U[]", params)
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != "T | U[]" {
		t.Errorf("unexpected text %q", got.String())
	}
	if !got.Members[0].IsTypeParam() || got.Members[0].Constraint == nil {
		t.Errorf("expected constrained parameter, got %v", got.Members[0])
	}
	if got.Members[1].Elem.Constraint != nil {
		t.Errorf("expected unconstrained parameter, got %v", got.Members[1].Elem.Constraint)
	}

	v := params["V"]
	if v.Constraint == nil || v.Constraint.String() != "T | null" {
		t.Fatalf("unexpected constraint %v", v.Constraint)
	}
	if !v.Constraint.Members[0].IsTypeParam() {
		t.Error("expected constraint to reference parameter T")
	}
}

func TestParseTypeParamsCycle(t *testing.T) {
	t.Parallel()

	_, err := ParseTypeParams(map[string]string{"A": "B[]", "B": "A | string"})
	if !errors.Is(err, verr.ErrUnknownTypeParam) {
		t.Errorf("expected ErrUnknownTypeParam, got %v", err)
	}
}

func TestParseTypeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src  string
		want error
	}{
		{"", verr.ErrEmptyType},
		{"   ", verr.ErrEmptyType},
		{"string |", verr.ErrUnterminated},
		{"(string", verr.ErrUnterminated},
		{"'abc", verr.ErrUnterminated},
		{"{ a: string", verr.ErrUnterminated},
		{"string number", verr.ErrUnexpectedToken},
		{"string[", verr.ErrUnterminated},
		{"- foo", verr.ErrUnexpectedToken},
		{"#", verr.ErrUnexpectedToken},
		{")", verr.ErrUnexpectedToken},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()
			_, err := ParseType(tt.src, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("ParseType(%q) error = %v, want %v", tt.src, err, tt.want)
			}
		})
	}
}
