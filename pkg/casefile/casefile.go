// Package casefile loads host-agnostic descriptions of template literals and
// the types of their interpolated expressions from YAML.
//
// A case file stands in for a real syntax tree walker and type checker: every
// expression carries its type as TypeScript-like text, which is parsed with
// types.ParseType.
package casefile

import (
	"fmt"

	"sigs.k8s.io/yaml"

	verr "github.com/vhavlena/tmplguard/pkg/err"
	"github.com/vhavlena/tmplguard/pkg/policy"
	"github.com/vhavlena/tmplguard/pkg/rule"
	"github.com/vhavlena/tmplguard/pkg/types"
)

// Preset names accepted by Suite.Preset.
const (
	PresetDefault     = "default"
	PresetRecommended = "recommended"
)

// File is a decoded case file.
type File struct {
	Suites []Suite `json:"suites"`
}

// Suite is a group of templates checked under one policy.
type Suite struct {
	Name       string                 `json:"name"`
	File       string                 `json:"file"`
	Preset     string                 `json:"preset"`
	Options    map[string]interface{} `json:"options"`
	TypeParams map[string]string      `json:"typeParams"`
	Templates  []TemplateCase         `json:"templates"`
	Errors     []ExpectedError        `json:"errors"`
}

// TemplateCase describes one template literal.
type TemplateCase struct {
	Tag         string           `json:"tag"`
	Line        int              `json:"line"`
	Column      int              `json:"column"`
	Expressions []ExpressionCase `json:"expressions"`
}

// ExpressionCase describes one interpolated expression.
type ExpressionCase struct {
	Type   string `json:"type"`
	Text   string `json:"text"` // Printed text override
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// ExpectedError is a violation the suite expects. A zero line or column
// matches any position.
type ExpectedError struct {
	Type   string `json:"type"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// Parse decodes a case file from YAML or JSON.
//
// Parameters:
//
//	data []byte: The case file contents.
//
// Returns:
//
//	*File: The decoded file.
//	error: An error if the document cannot be unmarshaled.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal case file: %w", err)
	}
	return &f, nil
}

// exprID indexes Host.types.
type exprID int

// Host holds the templates of a suite and acts as their type checker.
type Host struct {
	Templates []rule.Template
	types     []types.TypeDef
}

// TypeOf implements rule.TypeChecker. Expressions that were not produced by
// this host resolve to the error type.
func (h *Host) TypeOf(expr rule.Expression) types.TypeDef {
	id, ok := expr.Node.(exprID)
	if !ok || int(id) < 0 || int(id) >= len(h.types) {
		return types.NewErrorType()
	}
	return h.types[id]
}

// TypeToString implements rule.TypeChecker.
func (h *Host) TypeToString(t types.TypeDef) string {
	return t.String()
}

// Build parses the type parameters and expression types of the suite.
//
// Returns:
//
//	*Host: The templates and their types.
//	error: An error if a type cannot be parsed or a location is malformed.
func (s *Suite) Build() (*Host, error) {
	if len(s.Templates) == 0 {
		return nil, verr.ErrSuite(s.Name, verr.ErrMissingTemplates)
	}
	params, err := types.ParseTypeParams(s.TypeParams)
	if err != nil {
		return nil, verr.ErrSuite(s.Name, err)
	}

	h := &Host{}
	for _, tc := range s.Templates {
		if tc.Line < 0 || tc.Column < 0 {
			return nil, verr.ErrSuite(s.Name, verr.ErrNegativeLocation)
		}
		tmpl := rule.Template{
			Tag: tc.Tag,
			Loc: rule.Location{File: s.File, Line: tc.Line, Column: tc.Column},
		}
		for _, ec := range tc.Expressions {
			if ec.Line < 0 || ec.Column < 0 {
				return nil, verr.ErrSuite(s.Name, verr.ErrNegativeLocation)
			}
			if ec.Type == "" {
				return nil, verr.ErrSuite(s.Name, verr.ErrMissingType)
			}
			t, err := types.ParseType(ec.Type, params)
			if err != nil {
				return nil, verr.ErrSuite(s.Name, err)
			}
			if ec.Text != "" {
				t = t.WithText(ec.Text)
			}
			tmpl.Expressions = append(tmpl.Expressions, rule.Expression{
				Node: exprID(len(h.types)),
				Loc:  rule.Location{File: s.File, Line: ec.Line, Column: ec.Column},
			})
			h.types = append(h.types, t)
		}
		h.Templates = append(h.Templates, tmpl)
	}
	return h, nil
}

// Policy returns the suite's policy: its preset, or base when no preset is
// named, overlaid with its options.
func (s *Suite) Policy(base policy.Policy) (policy.Policy, []string) {
	switch s.Preset {
	case PresetDefault:
		base = policy.Default()
	case PresetRecommended:
		base = policy.Recommended()
	case "":
	default:
		p, warnings := base.With(s.Options)
		return p, append([]string{fmt.Sprintf("unknown preset %q ignored", s.Preset)}, warnings...)
	}
	return base.With(s.Options)
}

// Run checks every template of the suite.
//
// Parameters:
//
//	base policy.Policy: The policy used when the suite names no preset.
//
// Returns:
//
//	[]rule.Violation: The violations in source order.
//	[]string: Policy warnings.
//	error: An error if the suite cannot be built.
func (s *Suite) Run(base policy.Policy) ([]rule.Violation, []string, error) {
	h, err := s.Build()
	if err != nil {
		return nil, nil, err
	}
	p, warnings := s.Policy(base)
	return rule.NewGate(p, h).CheckAll(h.Templates), warnings, nil
}

// Verify compares got with the suite's expected errors and describes every
// mismatch. An empty result means the suite passed.
func (s *Suite) Verify(got []rule.Violation) []string {
	var diffs []string
	for i := 0; i < len(got) || i < len(s.Errors); i++ {
		switch {
		case i >= len(s.Errors):
			diffs = append(diffs, fmt.Sprintf("unexpected violation %s", got[i]))
		case i >= len(got):
			diffs = append(diffs, fmt.Sprintf("missing violation for type %q at %d:%d", s.Errors[i].Type, s.Errors[i].Line, s.Errors[i].Column))
		case !s.Errors[i].matches(got[i]):
			diffs = append(diffs, fmt.Sprintf("expected type %q at %d:%d, got %s", s.Errors[i].Type, s.Errors[i].Line, s.Errors[i].Column, got[i]))
		}
	}
	return diffs
}

func (e ExpectedError) matches(v rule.Violation) bool {
	if e.Type != v.Type {
		return false
	}
	if e.Line != 0 && e.Line != v.Loc.Line {
		return false
	}
	return e.Column == 0 || e.Column == v.Loc.Column
}
