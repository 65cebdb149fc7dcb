package rego

import (
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/ast"

	"github.com/vhavlena/tmplguard/pkg/policy"
	"github.com/vhavlena/tmplguard/pkg/rule"
)

// ParseModule parses Rego source into a module.
func ParseModule(file, src string) (*ast.Module, error) {
	module, err := ast.ParseModule(file, src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse module: %w", err)
	}
	return module, nil
}

// ParseFile reads and parses a Rego file.
func ParseFile(file string) (*ast.Module, error) {
	fileBytes, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseModule(file, string(fileBytes))
}

// Check reports every sprintf argument in mod whose type p rejects.
//
// Parameters:
//
//	mod *ast.Module: The parsed module.
//	p policy.Policy: The policy to enforce.
//	schema *InputSchema: Types of the input document, may be nil.
//
// Returns:
//
//	[]rule.Violation: Violations in rule order, then source order within a rule.
func Check(mod *ast.Module, p policy.Policy, schema *InputSchema) []rule.Violation {
	if mod == nil {
		return nil
	}
	var violations []rule.Violation
	for _, r := range mod.Rules {
		for branch := r; branch != nil; branch = branch.Else {
			violations = append(violations, checkRule(branch, p, schema)...)
		}
	}
	return violations
}

// checkRule checks one rule body with its own variable environment.
func checkRule(r *ast.Rule, p policy.Policy, schema *InputSchema) []rule.Violation {
	file := ""
	if r.Location != nil {
		file = r.Location.File
	}
	analyzer := NewTypeAnalyzer(schema)
	visitor := NewTemplateVisitor(analyzer, rule.NewGate(p, analyzer), file)
	visitor.VisitRule(r)
	return visitor.Violations()
}

// MissingInputRefs lists the `input` references of mod whose leading constant
// path is absent from schema, once per reference text, in walk order. Path
// segments after the first non-constant key are not checked.
//
// Parameters:
//
//	mod *ast.Module: The parsed module.
//	schema *InputSchema: Types of the example input document.
//
// Returns:
//
//	[]MissingRef: The references the example document does not cover.
func MissingInputRefs(mod *ast.Module, schema *InputSchema) []MissingRef {
	if mod == nil || schema == nil {
		return nil
	}
	var missing []MissingRef
	seen := make(map[string]bool)
	for _, r := range mod.Rules {
		ast.WalkTerms(r, func(term *ast.Term) bool {
			ref, ok := term.Value.(ast.Ref)
			if !ok || len(ref) < 2 || ref[0].Value.Compare(ast.InputRootDocument.Value) != 0 {
				return false
			}
			path := constantPath(ref[1:])
			if len(path) == 0 || schema.HasField(path) {
				return false
			}
			text := ref.String()
			if seen[text] {
				return false
			}
			seen[text] = true
			loc := rule.Location{}
			if term.Location != nil {
				loc = rule.Location{File: term.Location.File, Line: term.Location.Row, Column: term.Location.Col}
			}
			missing = append(missing, MissingRef{Ref: text, Loc: loc})
			return false
		})
	}
	return missing
}

// MissingRef is an `input` reference not covered by the example document.
type MissingRef struct {
	Ref string
	Loc rule.Location
}

// constantPath returns the string keys of ref up to the first non-string term.
func constantPath(ref ast.Ref) []string {
	path := make([]string, 0, len(ref))
	for _, term := range ref {
		str, ok := term.Value.(ast.String)
		if !ok {
			break
		}
		path = append(path, string(str))
	}
	return path
}
