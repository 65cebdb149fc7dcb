package rule

import (
	"github.com/vhavlena/tmplguard/pkg/classify"
	"github.com/vhavlena/tmplguard/pkg/policy"
)

// Reporter receives violations as they are found.
type Reporter interface {
	Report(v Violation)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(v Violation)

// Report calls f(v).
func (f ReporterFunc) Report(v Violation) { f(v) }

// Gate checks the interpolated expressions of template literals.
// It holds no state besides the policy and the checker, so one Gate may be
// shared by concurrent walkers as long as the checker allows it.
type Gate struct {
	policy  policy.Policy
	checker TypeChecker
}

// NewGate creates a new Gate.
//
// Parameters:
//
//	p policy.Policy: The policy applied to every expression.
//	checker TypeChecker: The host type system.
//
// Returns:
//
//	*Gate: A new instance of Gate.
func NewGate(p policy.Policy, checker TypeChecker) *Gate {
	return &Gate{
		policy:  p,
		checker: checker,
	}
}

// Check returns one violation per rejected expression of tmpl, in source
// order. Tagged templates are never inspected.
func (g *Gate) Check(tmpl Template) []Violation {
	if tmpl.IsTagged() {
		return nil
	}
	var out []Violation
	for _, expr := range tmpl.Expressions {
		t := g.checker.TypeOf(expr)
		if classify.IsAllowed(t, g.policy) {
			continue
		}
		out = append(out, Violation{
			Loc:      expr.Loc,
			Type:     g.checker.TypeToString(t),
			Resolved: t,
		})
	}
	return out
}

// CheckAll checks every template and concatenates the violations.
func (g *Gate) CheckAll(tmpls []Template) []Violation {
	var out []Violation
	for _, tmpl := range tmpls {
		out = append(out, g.Check(tmpl)...)
	}
	return out
}

// Run checks every template, hands each violation to r and returns how many
// were reported.
func (g *Gate) Run(tmpls []Template, r Reporter) int {
	n := 0
	for _, tmpl := range tmpls {
		for _, v := range g.Check(tmpl) {
			r.Report(v)
			n++
		}
	}
	return n
}
