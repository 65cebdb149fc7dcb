package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/vhavlena/tmplguard/pkg/casefile"
	"github.com/vhavlena/tmplguard/pkg/classify"
	verr "github.com/vhavlena/tmplguard/pkg/err"
	"github.com/vhavlena/tmplguard/pkg/policy"
	"github.com/vhavlena/tmplguard/pkg/rego"
	"github.com/vhavlena/tmplguard/pkg/rule"
)

const (
	exitOK        = 0
	exitViolation = 1
	exitUsage     = 2
)

// options holds the parsed command line.
type options struct {
	regoFile   string
	casesFile  string
	policyFile string
	preset     string
	inputFile  string
	verify     bool
	repl       bool
	verbose    bool
}

// app carries the output streams of one invocation.
type app struct {
	out    io.Writer
	logger *log.Logger
	opts   options
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("tmplguard", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.regoFile, "rego", "", "Path to a Rego policy file to check")
	fs.StringVar(&opts.casesFile, "cases", "", "Path to a YAML case file to check")
	fs.StringVar(&opts.policyFile, "policy", "", "Path to a policy YAML file (optional)")
	fs.StringVar(&opts.preset, "preset", casefile.PresetDefault, "Base policy: default or recommended")
	fs.StringVar(&opts.inputFile, "input", "", "Path to an example YAML/JSON input document for -rego (optional)")
	fs.BoolVar(&opts.verify, "verify", false, "Compare case-file violations with their expected errors")
	fs.BoolVar(&opts.repl, "repl", false, "Start an interactive loop classifying type text")
	fs.BoolVar(&opts.verbose, "v", false, "Print the offending parts of each rejected type")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.regoFile == "" && opts.casesFile == "" && !opts.repl {
		fs.Usage()
		return opts, fmt.Errorf("%w: one of -rego, -cases or -repl is required", verr.ErrNoInput)
	}
	return opts, nil
}

// run executes the command and returns the exit status.
func run(args []string, stdout, stderr io.Writer) int {
	logger := log.New(stderr, "tmplguard: ", 0)
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if err != flag.ErrHelp {
			logger.Printf("Error: %v", err)
		}
		return exitUsage
	}
	a := &app{out: stdout, logger: logger, opts: opts}

	p, err := a.loadPolicy()
	if err != nil {
		logger.Printf("Error: %v", err)
		return exitUsage
	}

	if opts.repl {
		if err := a.runREPL(p); err != nil {
			logger.Printf("Error: %v", err)
			return exitUsage
		}
		return exitOK
	}

	status := exitOK
	if opts.regoFile != "" {
		s, err := a.checkRego(p)
		if err != nil {
			logger.Printf("Error: %v", err)
			return exitUsage
		}
		status = max(status, s)
	}
	if opts.casesFile != "" {
		s, err := a.checkCases(p)
		if err != nil {
			logger.Printf("Error: %v", err)
			return exitUsage
		}
		status = max(status, s)
	}
	return status
}

// loadPolicy resolves the preset and overlays the policy file.
func (a *app) loadPolicy() (policy.Policy, error) {
	var base policy.Policy
	switch a.opts.preset {
	case casefile.PresetDefault, "":
		base = policy.Default()
	case casefile.PresetRecommended:
		base = policy.Recommended()
	default:
		return base, fmt.Errorf("unknown preset %q", a.opts.preset)
	}
	if a.opts.policyFile == "" {
		return base, nil
	}

	data, err := os.ReadFile(a.opts.policyFile)
	if err != nil {
		return base, fmt.Errorf("failed to read policy file: %w", err)
	}
	p, warnings, err := base.WithYAML(data)
	if err != nil {
		return base, err
	}
	for _, w := range warnings {
		a.logger.Printf("Warning: %s", w)
	}
	return p, nil
}

func (a *app) checkRego(p policy.Policy) (int, error) {
	module, err := rego.ParseFile(a.opts.regoFile)
	if err != nil {
		return exitUsage, err
	}

	schema := rego.NewInputSchema()
	if a.opts.inputFile != "" {
		data, err := os.ReadFile(a.opts.inputFile)
		if err != nil {
			a.logger.Printf("Warning: Failed to read input file: %v", err)
		} else if err := schema.ProcessYAMLInput(data); err != nil {
			a.logger.Printf("Warning: Failed to process input: %v", err)
		} else {
			if a.opts.verbose {
				a.logger.Printf("input type: %s", schema.GetTypes())
			}
			for _, m := range rego.MissingInputRefs(module, schema) {
				a.logger.Printf("Warning: %s: %s is not in the input document, typed as any", m.Loc, m.Ref)
			}
		}
	}

	violations := rego.Check(module, p, schema)
	a.report(violations, p)
	if len(violations) > 0 {
		return exitViolation, nil
	}
	return exitOK, nil
}

func (a *app) checkCases(p policy.Policy) (int, error) {
	data, err := os.ReadFile(a.opts.casesFile)
	if err != nil {
		return exitUsage, fmt.Errorf("failed to read case file: %w", err)
	}
	file, err := casefile.Parse(data)
	if err != nil {
		return exitUsage, err
	}

	status := exitOK
	for i := range file.Suites {
		suite := &file.Suites[i]
		if suite.File == "" {
			suite.File = suite.Name
		}
		violations, warnings, err := suite.Run(p)
		for _, w := range warnings {
			a.logger.Printf("Warning: %s: %s", suite.Name, w)
		}
		if err != nil {
			return exitUsage, err
		}

		if a.opts.verify {
			diffs := suite.Verify(violations)
			for _, d := range diffs {
				fmt.Fprintf(a.out, "FAIL %s: %s\n", suite.Name, d)
			}
			if len(diffs) > 0 {
				status = exitViolation
			}
			continue
		}

		a.report(violations, p)
		if len(violations) > 0 {
			status = exitViolation
		}
	}
	return status, nil
}

// report prints one line per violation and, when verbose, the parts of the
// type responsible for it.
func (a *app) report(violations []rule.Violation, p policy.Policy) {
	for _, v := range violations {
		fmt.Fprintln(a.out, v.String())
		if !a.opts.verbose {
			continue
		}
		for _, o := range classify.Offenders(v.Resolved, p) {
			fmt.Fprintf(a.out, "    rejected: %s\n", o.String())
		}
	}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
