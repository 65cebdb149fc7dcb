package policy

import (
	"testing"
)

func TestDefaultIsRestrictive(t *testing.T) {
	t.Parallel()

	for name, on := range Default().Options() {
		if on {
			t.Errorf("option %s should default to false", name)
		}
	}
	if Default().String() != "none" {
		t.Errorf("unexpected description %q", Default().String())
	}
}

func TestRecommended(t *testing.T) {
	t.Parallel()

	p := Recommended()
	if !p.AllowNumber || !p.AllowBoolean || !p.AllowAny || !p.AllowNullish || !p.AllowRegExp {
		t.Errorf("unexpected recommended policy %+v", p)
	}
	if p.AllowNever || p.AllowArray {
		t.Errorf("recommended policy must not allow never or arrays: %+v", p)
	}
	if got := p.String(); got != "allowNumber, allowBoolean, allowAny, allowNullish, allowRegExp" {
		t.Errorf("unexpected description %q", got)
	}
}

func TestFromOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		opts     map[string]interface{}
		expected Policy
		warnings int
	}{
		{
			name:     "nil options",
			opts:     nil,
			expected: Policy{},
		},
		{
			name:     "single flag",
			opts:     map[string]interface{}{"allowNumber": true},
			expected: Policy{AllowNumber: true},
		},
		{
			name: "every flag",
			opts: map[string]interface{}{
				"allowNumber": true, "allowBoolean": true, "allowAny": true, "allowNullish": true,
				"allowRegExp": true, "allowNever": true, "allowArray": true,
			},
			expected: Policy{true, true, true, true, true, true, true},
		},
		{
			name:     "non-boolean value is restrictive",
			opts:     map[string]interface{}{"allowAny": "yes", "allowArray": true},
			expected: Policy{AllowArray: true},
			warnings: 1,
		},
		{
			name:     "unknown option is ignored",
			opts:     map[string]interface{}{"allowSymbol": true},
			expected: Policy{},
			warnings: 1,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, warnings := FromOptions(tt.opts)
			if got != tt.expected {
				t.Errorf("FromOptions(%v) = %+v, want %+v", tt.opts, got, tt.expected)
			}
			if len(warnings) != tt.warnings {
				t.Errorf("FromOptions(%v) warnings = %v, want %d", tt.opts, warnings, tt.warnings)
			}
		})
	}
}

func TestWithKeepsBase(t *testing.T) {
	t.Parallel()

	base := Recommended()
	got, _ := base.With(map[string]interface{}{"allowAny": false, "allowArray": true})
	if got.AllowAny || !got.AllowArray || !got.AllowNumber {
		t.Errorf("unexpected overlay %+v", got)
	}
	if !base.AllowAny || base.AllowArray {
		t.Errorf("With must not modify the receiver: %+v", base)
	}
}

func TestFromYAML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		doc      string
		expected Policy
		warnings int
	}{
		{
			name:     "empty document",
			doc:      "",
			expected: Policy{},
		},
		{
			name:     "flat options",
			doc:      "allowNumber: true\nallowNullish: true\n",
			expected: Policy{AllowNumber: true, AllowNullish: true},
		},
		{
			name:     "json options",
			doc:      `{"allowRegExp": true}`,
			expected: Policy{AllowRegExp: true},
		},
		{
			name: "rule entry with severity",
			doc: `
rules:
  restrict-template-expressions:
    - error
    - allowBoolean: true
      allowNever: true
`,
			expected: Policy{AllowBoolean: true, AllowNever: true},
		},
		{
			name: "rule entry as object",
			doc: `
rules:
  restrict-template-expressions: {allowArray: true}
`,
			expected: Policy{AllowArray: true},
		},
		{
			name: "other rules only",
			doc: `
rules:
  no-console: error
`,
			expected: Policy{},
		},
		{
			name:     "quoted boolean",
			doc:      "allowNumber: \"true\"\n",
			expected: Policy{},
			warnings: 1,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, warnings, err := FromYAML([]byte(tt.doc))
			if err != nil {
				t.Fatalf("FromYAML failed: %v", err)
			}
			if got != tt.expected {
				t.Errorf("FromYAML = %+v, want %+v", got, tt.expected)
			}
			if len(warnings) != tt.warnings {
				t.Errorf("FromYAML warnings = %v, want %d", warnings, tt.warnings)
			}
		})
	}
}

func TestFromYAMLInvalid(t *testing.T) {
	t.Parallel()

	if _, _, err := FromYAML([]byte("allowNumber: [true")); err == nil {
		t.Error("expected an error for malformed YAML")
	}
	if _, _, err := FromYAML([]byte("- allowNumber")); err == nil {
		t.Error("expected an error for a non-object document")
	}
}

func TestWithYAMLKeepsBase(t *testing.T) {
	t.Parallel()

	got, warnings, err := Recommended().WithYAML([]byte("allowAny: false\nallowArray: true\n"))
	if err != nil {
		t.Fatalf("WithYAML failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings %v", warnings)
	}
	want := Recommended()
	want.AllowAny = false
	want.AllowArray = true
	if got != want {
		t.Errorf("WithYAML = %+v, want %+v", got, want)
	}
}
