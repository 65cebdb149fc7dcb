package main

import (
	"bytes"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chzyer/readline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vhavlena/tmplguard/pkg/policy"
)

const conformanceFile = "../../pkg/casefile/testdata/restrict_template_expressions.yaml"

const denyRego = `package example

deny[msg] {
	n := count(input.items)
	msg := sprintf("%v items for %s", [n, input.owner])
}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCmd(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunUsage(t *testing.T) {
	t.Parallel()

	code, _, stderr := runCmd()
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "tmplguard: Error: no input given")

	code, _, _ = runCmd("-rego", "x.rego", "-preset", "lenient")
	assert.Equal(t, exitUsage, code)

	code, _, _ = runCmd("-rego", filepath.Join(t.TempDir(), "missing.rego"))
	assert.Equal(t, exitUsage, code)
}

func TestRunRego(t *testing.T) {
	t.Parallel()

	regoFile := writeFile(t, "deny.rego", denyRego)
	inputFile := writeFile(t, "input.yaml", "owner: alice\nitems: [1, 2]\n")

	code, stdout, stderr := runCmd("-rego", regoFile, "-input", inputFile)
	assert.Equal(t, exitViolation, code)
	assert.Empty(t, stderr)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], regoFile+":5:")
	assert.Contains(t, lines[0], `Invalid type "number" of template literal expression.`)

	code, stdout, _ = runCmd("-rego", regoFile, "-input", inputFile, "-preset", "recommended")
	assert.Equal(t, exitOK, code)
	assert.Empty(t, stdout)
}

func TestRunRegoVerbose(t *testing.T) {
	t.Parallel()

	regoFile := writeFile(t, "deny.rego", `package example

deny[msg] {
	msg := sprintf("%v", [input.tags])
}
`)
	inputFile := writeFile(t, "input.yaml", "tags: [a, 1, null]\n")
	policyFile := writeFile(t, "policy.yaml", "rules:\n  restrict-template-expressions: [error, {allowArray: true, allowNumber: true}]\n")

	code, stdout, _ := runCmd("-rego", regoFile, "-input", inputFile, "-policy", policyFile, "-v")
	assert.Equal(t, exitViolation, code)
	assert.Contains(t, stdout, `Invalid type "(string | number | null)[]" of template literal expression.`)
	assert.Contains(t, stdout, "    rejected: null\n")
}

func TestRunCasesVerboseConstrainedParameter(t *testing.T) {
	t.Parallel()

	casesFile := writeFile(t, "cases.yaml", `suites:
  - name: s
    typeParams: {T: 'string | number'}
    templates:
      - line: 1
        column: 1
        expressions: [{type: T, line: 1, column: 5}, {type: number, text: Meters, line: 1, column: 9}]
`)

	code, stdout, _ := runCmd("-cases", casesFile, "-v")
	assert.Equal(t, exitViolation, code)
	assert.Equal(t, "s:1:5: Invalid type \"T\" of template literal expression.\n"+
		"    rejected: number\n"+
		"s:1:9: Invalid type \"Meters\" of template literal expression.\n"+
		"    rejected: Meters\n", stdout)
}

func TestRunRegoMissingInputField(t *testing.T) {
	t.Parallel()

	regoFile := writeFile(t, "deny.rego", denyRego)
	inputFile := writeFile(t, "input.yaml", "items: [1, 2]\n")

	code, stdout, stderr := runCmd("-rego", regoFile, "-input", inputFile, "-v")
	assert.Equal(t, exitViolation, code)
	assert.Contains(t, stderr, "tmplguard: input type: { items: number[]; }\n")
	assert.Contains(t, stderr, "tmplguard: Warning: "+regoFile+":5:")
	assert.Contains(t, stderr, "input.owner is not in the input document, typed as any")
	assert.Contains(t, stdout, `Invalid type "any" of template literal expression.`)
}

func TestRunPolicyWarnings(t *testing.T) {
	t.Parallel()

	regoFile := writeFile(t, "ok.rego", "package example\n\nmsg := sprintf(\"%s\", [\"a\"])\n")
	policyFile := writeFile(t, "policy.yaml", "allowSymbol: true\n")

	code, stdout, stderr := runCmd("-rego", regoFile, "-policy", policyFile)
	assert.Equal(t, exitOK, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, `tmplguard: Warning: unknown option "allowSymbol" ignored`)
}

func TestRunCasesVerify(t *testing.T) {
	t.Parallel()

	code, stdout, stderr := runCmd("-cases", conformanceFile, "-verify")
	assert.Equal(t, exitOK, code, stdout)
	assert.Empty(t, stdout)
	assert.Empty(t, stderr)
}

func TestRunCasesReport(t *testing.T) {
	t.Parallel()

	casesFile := writeFile(t, "cases.yaml", `suites:
  - name: numbers
    file: a.ts
    templates:
      - line: 1
        column: 1
        expressions: [{type: number, line: 1, column: 4}]
    errors: [{type: string}]
`)

	code, stdout, _ := runCmd("-cases", casesFile)
	assert.Equal(t, exitViolation, code)
	assert.Equal(t, "a.ts:1:4: Invalid type \"number\" of template literal expression.\n", stdout)

	code, stdout, _ = runCmd("-cases", casesFile, "-verify")
	assert.Equal(t, exitViolation, code)
	assert.Contains(t, stdout, "FAIL numbers: expected type \"string\"")
}

func TestSessionEval(t *testing.T) {
	t.Parallel()

	s := newSession(policy.Default())
	assert.Equal(t, "", s.eval("  "))
	assert.Equal(t, "allowed: string", s.eval("string"))
	assert.Equal(t, "rejected: Invalid type \"number | null\" of template literal expression.\n    offender: number\n    offender: null", s.eval("number | null"))
	assert.Contains(t, s.eval("number |"), "Error:")

	assert.Equal(t, "allowNumber", s.eval(":set allowNumber true"))
	assert.Equal(t, "allowed: 1", s.eval("1"))
	assert.Contains(t, s.eval(":set allowNumber yes"), "Warning:")
	assert.Equal(t, "allowNumber", s.eval(":policy"))

	assert.Equal(t, "declared T", s.eval(":param T string & { _kind: 'Id' }"))
	assert.Equal(t, "allowed: T", s.eval("T"))
	assert.Equal(t, "declared U", s.eval(":param U"))
	assert.Contains(t, s.eval("U"), "rejected:")

	assert.Equal(t, policy.Recommended().String(), s.eval(":preset recommended"))
	assert.Equal(t, "allowed: U", s.eval("U"))
	assert.Contains(t, s.eval(":preset lenient"), "unknown preset")
	assert.Equal(t, replHelp, s.eval(":help"))
	assert.Contains(t, s.eval(":frobnicate"), "unknown command")
}

// scriptedReader replays lines, then returns err forever.
type scriptedReader struct {
	lines []string
	err   error
	reads int
}

func (r *scriptedReader) Readline() (string, error) {
	r.reads++
	if len(r.lines) == 0 {
		return "", r.err
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func TestLoopStopsOnReadError(t *testing.T) {
	t.Parallel()

	broken := errors.New("terminal gone")
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"end of input", io.EOF, nil},
		{"interrupt", readline.ErrInterrupt, nil},
		{"persistent failure", broken, broken},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			a := &app{out: &out, logger: log.New(io.Discard, "", 0)}
			r := &scriptedReader{lines: []string{"string", "null"}, err: tt.err}

			err := a.loop(r, newSession(policy.Default()))
			assert.Equal(t, tt.wantErr, err)
			assert.Equal(t, 3, r.reads)
			assert.Equal(t, "allowed: string\nrejected: Invalid type \"null\" of template literal expression.\n    offender: null\n", out.String())
		})
	}
}
