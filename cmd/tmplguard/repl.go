package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/vhavlena/tmplguard/pkg/classify"
	"github.com/vhavlena/tmplguard/pkg/policy"
	"github.com/vhavlena/tmplguard/pkg/rule"
	"github.com/vhavlena/tmplguard/pkg/types"
)

const replHelp = `Enter a type to classify it, e.g. "number | undefined" or "T[]".
Commands:
  :policy              print the active policy
  :set <option> <bool> change one option
  :preset <name>       switch to the default or recommended policy
  :param <name> [type] declare a type parameter, optionally constrained
  :help                print this text`

// session is the state of an interactive loop.
type session struct {
	policy policy.Policy
	params map[string]string
}

func newSession(p policy.Policy) *session {
	return &session{policy: p, params: make(map[string]string)}
}

// eval handles one input line and returns the text to print.
func (s *session) eval(line string) string {
	line = strings.TrimSpace(line)
	if line == "" {
		return ""
	}
	if strings.HasPrefix(line, ":") {
		return s.command(strings.Fields(line[1:]))
	}

	params, err := types.ParseTypeParams(s.params)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	typ, err := types.ParseType(line, params)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	if classify.IsAllowed(typ, s.policy) {
		return fmt.Sprintf("allowed: %s", typ.String())
	}

	var sb strings.Builder
	sb.WriteString("rejected: ")
	sb.WriteString(rule.Violation{Type: typ.String()}.Message())
	for _, o := range classify.Offenders(typ, s.policy) {
		sb.WriteString("\n    offender: ")
		sb.WriteString(o.String())
	}
	return sb.String()
}

func (s *session) command(args []string) string {
	if len(args) == 0 {
		return replHelp
	}
	switch args[0] {
	case "policy":
		return s.policy.String()
	case "preset":
		if len(args) != 2 {
			return "usage: :preset default|recommended"
		}
		switch args[1] {
		case "default":
			s.policy = policy.Default()
		case "recommended":
			s.policy = policy.Recommended()
		default:
			return fmt.Sprintf("unknown preset %q", args[1])
		}
		return s.policy.String()
	case "set":
		if len(args) != 3 {
			return "usage: :set <option> true|false"
		}
		var value interface{} = args[2]
		switch args[2] {
		case "true":
			value = true
		case "false":
			value = false
		}
		p, warnings := s.policy.With(map[string]interface{}{args[1]: value})
		if len(warnings) > 0 {
			return "Warning: " + strings.Join(warnings, "; ")
		}
		s.policy = p
		return s.policy.String()
	case "param":
		if len(args) < 2 {
			return "usage: :param <name> [constraint]"
		}
		s.params[args[1]] = strings.Join(args[2:], " ")
		return fmt.Sprintf("declared %s", args[1])
	case "help":
		return replHelp
	}
	return fmt.Sprintf("unknown command %q, try :help", args[0])
}

func (a *app) runREPL(p policy.Policy) error {
	rl, err := readline.New("> ")
	if err != nil {
		return err
	}
	defer rl.Close()
	return a.loop(rl, newSession(p))
}

// lineReader is the part of readline the loop uses.
type lineReader interface {
	Readline() (string, error)
}

// loop evaluates lines until the reader is interrupted, exhausted or fails.
func (a *app) loop(rl lineReader, s *session) error {
	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if out := s.eval(line); out != "" {
			fmt.Fprintln(a.out, out)
		}
	}
}
