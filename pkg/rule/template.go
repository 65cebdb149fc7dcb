// Package rule reports template literal expressions whose type is not allowed
// by a policy.
package rule

import (
	"fmt"

	"github.com/vhavlena/tmplguard/pkg/types"
)

// MessageID identifies the diagnostic reported for a rejected expression.
const MessageID = "invalidType"

// Location is a 1-based source position.
type Location struct {
	File   string
	Line   int
	Column int
}

// String renders the location as file:line:col, omitting an empty file.
func (l Location) String() string {
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Expression is one interpolated expression of a template literal. Node is an
// opaque reference handed back to the TypeChecker.
type Expression struct {
	Node interface{}
	Loc  Location
}

// Template is a template literal found by a host tree walker.
type Template struct {
	Tag         string // The tag expression text, empty for untagged templates
	Expressions []Expression
	Loc         Location
}

// IsTagged returns true if the template is invoked through a tag
func (t *Template) IsTagged() bool {
	return t.Tag != ""
}

// TypeChecker is the host type system as seen by the gate.
type TypeChecker interface {
	// TypeOf returns the fully resolved type of an interpolated expression.
	TypeOf(expr Expression) types.TypeDef
	// TypeToString renders the type as it should appear in a diagnostic.
	TypeToString(t types.TypeDef) string
}

// Violation is a rejected interpolated expression.
type Violation struct {
	Loc      Location
	Type     string        // Printed text of the expression's original type
	Resolved types.TypeDef // The type the verdict was made on, never printed
}

// Message renders the diagnostic text.
func (v Violation) Message() string {
	return fmt.Sprintf("Invalid type \"%s\" of template literal expression.", v.Type)
}

func (v Violation) String() string {
	return v.Loc.String() + ": " + v.Message()
}
