package rego

import (
	"github.com/open-policy-agent/opa/ast"

	"github.com/vhavlena/tmplguard/pkg/rule"
)

// templateFunc is the Rego builtin treated as an untagged template literal.
const templateFunc = "sprintf"

// TemplateVisitor walks a rule, typing variables in body order and handing
// every sprintf call it meets to the gate. Templates are checked as soon as
// they are found so that argument types reflect the bindings seen so far.
type TemplateVisitor struct {
	analyzer   *TypeAnalyzer
	gate       *rule.Gate
	file       string
	violations []rule.Violation
}

// NewTemplateVisitor creates a visitor that checks templates with gate. The
// gate must have been built over analyzer.
func NewTemplateVisitor(analyzer *TypeAnalyzer, gate *rule.Gate, file string) *TemplateVisitor {
	return &TemplateVisitor{
		analyzer: analyzer,
		gate:     gate,
		file:     file,
	}
}

// Violations returns the violations collected so far.
func (v *TemplateVisitor) Violations() []rule.Violation {
	return v.violations
}

// VisitRule processes the rule body in order, then its head. Else branches
// are processed by the caller with a fresh analyzer.
//
// Parameters:
//
//	r *ast.Rule: The rule to process.
func (v *TemplateVisitor) VisitRule(r *ast.Rule) {
	if r == nil {
		return
	}
	for _, expr := range r.Body {
		v.VisitExpr(expr)
	}
	v.VisitHead(r.Head)
}

// VisitExpr checks the templates of a body expression and then records the
// variables it binds.
func (v *TemplateVisitor) VisitExpr(expr *ast.Expr) {
	if expr == nil {
		return
	}
	if expr.IsCall() && expr.Operator().String() == templateFunc {
		terms := expr.Terms.([]*ast.Term)
		v.check(terms[1:], terms[0])
	}
	v.VisitTerm(expr)
	v.analyzer.AnalyzeExpr(expr)
}

// VisitHead checks templates in the rule head key and value.
func (v *TemplateVisitor) VisitHead(head *ast.Head) {
	if head == nil {
		return
	}
	if head.Key != nil {
		v.VisitTerm(head.Key)
	}
	if head.Value != nil {
		v.VisitTerm(head.Value)
	}
}

// VisitTerm checks every sprintf call term nested in x.
func (v *TemplateVisitor) VisitTerm(x interface{}) {
	ast.WalkTerms(x, func(term *ast.Term) bool {
		call, ok := term.Value.(ast.Call)
		if ok && len(call) > 0 && call[0].Value.String() == templateFunc {
			v.check(call[1:], term)
		}
		return false
	})
}

// check builds the template for the given sprintf operands and runs the gate.
func (v *TemplateVisitor) check(operands []*ast.Term, at *ast.Term) {
	tmpl := v.template(operands, at)
	v.violations = append(v.violations, v.gate.Check(tmpl)...)
}

// template turns sprintf operands into a template. The interpolated
// expressions are the elements of an array literal second operand; any other
// argument form carries no expressions.
func (v *TemplateVisitor) template(operands []*ast.Term, at *ast.Term) rule.Template {
	loc := v.location(at, rule.Location{File: v.file})
	tmpl := rule.Template{Loc: loc}
	if len(operands) < 2 {
		return tmpl
	}
	args, ok := operands[1].Value.(*ast.Array)
	if !ok {
		return tmpl
	}
	for i := 0; i < args.Len(); i++ {
		elem := args.Elem(i)
		tmpl.Expressions = append(tmpl.Expressions, rule.Expression{
			Node: elem,
			Loc:  v.location(elem, loc),
		})
	}
	return tmpl
}

// location converts a term location, falling back to def when the parser
// left it unset.
func (v *TemplateVisitor) location(term *ast.Term, def rule.Location) rule.Location {
	if term == nil || term.Location == nil {
		return def
	}
	file := term.Location.File
	if file == "" {
		file = v.file
	}
	return rule.Location{File: file, Line: term.Location.Row, Column: term.Location.Col}
}
