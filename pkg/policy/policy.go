// Package policy holds the options selecting which non-string types may be
// interpolated into a template literal.
package policy

import (
	"fmt"
	"sort"
	"strings"

	"sigs.k8s.io/yaml"
)

// RuleName is the name of the lint rule whose options a Policy carries.
const RuleName = "restrict-template-expressions"

// Option names as they appear in configuration files.
const (
	OptAllowNumber  = "allowNumber"
	OptAllowBoolean = "allowBoolean"
	OptAllowAny     = "allowAny"
	OptAllowNullish = "allowNullish"
	OptAllowRegExp  = "allowRegExp"
	OptAllowNever   = "allowNever"
	OptAllowArray   = "allowArray"
)

// OptionNames lists every option in declaration order.
var OptionNames = []string{
	OptAllowNumber,
	OptAllowBoolean,
	OptAllowAny,
	OptAllowNullish,
	OptAllowRegExp,
	OptAllowNever,
	OptAllowArray,
}

// Policy is an immutable set of switches. The zero value rejects every
// non-string type.
type Policy struct {
	AllowNumber  bool `json:"allowNumber"`
	AllowBoolean bool `json:"allowBoolean"`
	AllowAny     bool `json:"allowAny"`
	AllowNullish bool `json:"allowNullish"`
	AllowRegExp  bool `json:"allowRegExp"`
	AllowNever   bool `json:"allowNever"`
	AllowArray   bool `json:"allowArray"`
}

// Default returns the policy with every option off.
func Default() Policy {
	return Policy{}
}

// Recommended returns the option set the lint rule historically shipped with:
// numbers, booleans, any, nullish values and regular expressions allowed.
func Recommended() Policy {
	return Policy{
		AllowNumber:  true,
		AllowBoolean: true,
		AllowAny:     true,
		AllowNullish: true,
		AllowRegExp:  true,
	}
}

// FromOptions builds a policy from a decoded option object on top of Default.
//
// Parameters:
//
//	opts map[string]interface{}: Option name to value.
//
// Returns:
//
//	Policy: The resulting policy.
//	[]string: Warnings for unknown options and non-boolean values.
func FromOptions(opts map[string]interface{}) (Policy, []string) {
	return Default().With(opts)
}

// With overlays options on a copy of p. Options that are absent keep the
// value of p; options with a non-boolean value are turned off.
func (p Policy) With(opts map[string]interface{}) (Policy, []string) {
	var warnings []string
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, name := range keys {
		flag := p.flag(name)
		if flag == nil {
			warnings = append(warnings, fmt.Sprintf("unknown option %q ignored", name))
			continue
		}
		b, ok := opts[name].(bool)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("option %q is not a boolean, treated as false", name))
		}
		*flag = b
	}
	return p, warnings
}

// FromYAML decodes a policy from YAML or JSON.
//
// Two document shapes are accepted: a flat option object
//
//	allowNumber: true
//
// or a lint configuration with a rule entry
//
//	rules:
//	  restrict-template-expressions: [error, {allowNumber: true}]
//
// Parameters:
//
//	data []byte: The YAML document.
//
// Returns:
//
//	Policy: The decoded policy, Default for an empty document.
//	[]string: Warnings for ignored or malformed options.
//	error: An error if the document cannot be unmarshaled.
func FromYAML(data []byte) (Policy, []string, error) {
	return Default().WithYAML(data)
}

// WithYAML overlays the options of a policy document on a copy of p. The
// document shapes are the ones accepted by FromYAML.
func (p Policy) WithYAML(data []byte) (Policy, []string, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return p, nil, fmt.Errorf("failed to unmarshal policy: %w", err)
	}
	rules, ok := doc["rules"].(map[string]interface{})
	if !ok {
		out, warnings := p.With(doc)
		return out, warnings, nil
	}
	out, warnings := p.With(ruleOptions(rules[RuleName]))
	return out, warnings, nil
}

// ruleOptions extracts the option object of a rule entry. The entry is either
// an option object or a list whose first element is the severity.
func ruleOptions(entry interface{}) map[string]interface{} {
	switch e := entry.(type) {
	case map[string]interface{}:
		return e
	case []interface{}:
		for _, item := range e {
			if opts, ok := item.(map[string]interface{}); ok {
				return opts
			}
		}
	}
	return nil
}

// Options returns the flags keyed by option name.
func (p Policy) Options() map[string]bool {
	return map[string]bool{
		OptAllowNumber:  p.AllowNumber,
		OptAllowBoolean: p.AllowBoolean,
		OptAllowAny:     p.AllowAny,
		OptAllowNullish: p.AllowNullish,
		OptAllowRegExp:  p.AllowRegExp,
		OptAllowNever:   p.AllowNever,
		OptAllowArray:   p.AllowArray,
	}
}

// String lists the enabled options, or "none".
func (p Policy) String() string {
	opts := p.Options()
	var on []string
	for _, name := range OptionNames {
		if opts[name] {
			on = append(on, name)
		}
	}
	if len(on) == 0 {
		return "none"
	}
	return strings.Join(on, ", ")
}

func (p *Policy) flag(name string) *bool {
	switch name {
	case OptAllowNumber:
		return &p.AllowNumber
	case OptAllowBoolean:
		return &p.AllowBoolean
	case OptAllowAny:
		return &p.AllowAny
	case OptAllowNullish:
		return &p.AllowNullish
	case OptAllowRegExp:
		return &p.AllowRegExp
	case OptAllowNever:
		return &p.AllowNever
	case OptAllowArray:
		return &p.AllowArray
	}
	return nil
}
