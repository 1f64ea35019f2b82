package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/sandrolain/goformula"
	"github.com/sandrolain/goformula/pkg/bindings"
	"github.com/sandrolain/goformula/pkg/parser"
	"github.com/sandrolain/goformula/pkg/types"
)

const (
	historyFile = ".goformula_history"
	promptMain  = "fx> "
	promptCont  = "... "
)

const helpText = `Enter a formula to evaluate it, e.g. SUM(1, 2, 3) * 2.

Commands:
  :help                 show this help
  :quit                 leave the session
  :vars                 list bound variables
  :set NAME FORMULA     bind NAME to the value of FORMULA
  :unset NAME           remove a variable
  :clear                remove every variable
  :load FILE            bind the variables of a YAML file
  :funcs [PREFIX]       list callable functions
  :trace                toggle evaluation traces
  :tokens FORMULA       show the tokens of FORMULA
  :ast FORMULA          show the syntax tree of FORMULA
  :cache                show parse cache statistics
`

func runREPL(ctx context.Context, eng *goformula.Engine, cfg config, w io.Writer) int {
	fmt.Fprintf(w, "%s %s. Type :help for help.\n", appName, goformula.Version())

	histPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		histPath = filepath.Join(home, historyFile)
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(completer(eng))

	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
	}

	s := &session{eng: eng, cfg: cfg, w: w}
	for {
		src, ok := readFormula(ln, promptMain, promptCont)
		if !ok {
			fmt.Fprintln(w)
			break
		}
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))

		if strings.HasPrefix(src, ":") {
			if s.command(ctx, src) {
				break
			}
			continue
		}
		evalAndPrint(ctx, eng, s.cfg, src, w)
	}

	if histPath != "" {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}
	return 0
}

type session struct {
	eng *goformula.Engine
	cfg config
	w   io.Writer
}

// command runs a ':' command and reports whether the session should end.
func (s *session) command(ctx context.Context, line string) (exit bool) {
	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(name) {
	case ":help", ":h":
		fmt.Fprint(s.w, helpText)

	case ":quit", ":exit", ":q":
		return true

	case ":vars":
		vars := s.eng.Context()
		names := vars.Names()
		if len(names) == 0 {
			fmt.Fprintln(s.w, "no variables")
		}
		for _, n := range names {
			v, _ := vars.Get(n)
			fmt.Fprintf(s.w, "%s = %s\n", n, display(v))
		}

	case ":set":
		varName, formula, ok := strings.Cut(rest, " ")
		if !ok || strings.TrimSpace(formula) == "" {
			fmt.Fprintln(s.w, "usage: :set NAME FORMULA")
			return false
		}
		res := s.eng.Evaluate(ctx, strings.TrimSpace(formula))
		if len(res.ParseErrors()) > 0 {
			fmt.Fprintln(s.w, res.Err)
			return false
		}
		s.eng.SetVariable(varName, res.Value)
		fmt.Fprintf(s.w, "%s = %s\n", varName, display(res.Value))

	case ":unset":
		if rest == "" {
			fmt.Fprintln(s.w, "usage: :unset NAME")
			return false
		}
		s.eng.RemoveVariable(rest)

	case ":clear":
		s.eng.ClearVariables()

	case ":load":
		if rest == "" {
			fmt.Fprintln(s.w, "usage: :load FILE")
			return false
		}
		f, err := os.Open(rest)
		if err != nil {
			fmt.Fprintf(s.w, "cannot read %s: %v\n", rest, err)
			return false
		}
		defer f.Close()
		n, err := bindings.LoadYAML(f, s.eng.Context())
		if err != nil {
			fmt.Fprintln(s.w, err)
			return false
		}
		fmt.Fprintf(s.w, "%d variables loaded\n", n)

	case ":funcs":
		prefix := strings.ToUpper(rest)
		for _, fn := range s.eng.FunctionNames() {
			if strings.HasPrefix(strings.ToUpper(fn), prefix) {
				fmt.Fprintln(s.w, fn)
			}
		}

	case ":trace":
		s.cfg.trace = !s.cfg.trace
		fmt.Fprintf(s.w, "trace %s\n", onOff(s.cfg.trace))

	case ":tokens":
		for _, tok := range parser.Tokenize(rest) {
			fmt.Fprintf(s.w, "%4d  %-12s %q\n", tok.Position, tok.Type, tok.Value)
		}

	case ":ast":
		expr, err := s.eng.Parse(rest)
		if err != nil {
			var perrs types.ParseErrors
			if errors.As(err, &perrs) {
				for _, perr := range perrs {
					fmt.Fprintln(s.w, describeParseError(rest, perr))
				}
				return false
			}
			fmt.Fprintln(s.w, err)
			return false
		}
		fmt.Fprintln(s.w, expr.Canonical())
		fmt.Fprint(s.w, expr.AST().Dump())

	case ":cache":
		stats, ok := s.eng.CacheStats()
		if !ok {
			fmt.Fprintln(s.w, "caching disabled")
			return false
		}
		fmt.Fprintf(s.w, "entries %d/%d, hits %d, misses %d, evictions %d\n",
			stats.Len, stats.Capacity, stats.Hits, stats.Misses, stats.Evictions)

	default:
		fmt.Fprintln(s.w, "unknown command. Type :help for help.")
	}
	return false
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// readFormula reads lines until the buffer parses, or until the parser
// reports an error that more input cannot fix.
func readFormula(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder
	for {
		p := prompt
		if b.Len() > 0 {
			p = cont
		}
		line, err := ln.Prompt(p)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// Ctrl+C drops the pending input.
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		if _, err := parser.Parse(src); err == nil || !incomplete(src, err) {
			return src, true
		}
	}
}

// incomplete reports whether err means the formula stopped early, such as
// an open parenthesis or a trailing operator.
func incomplete(src string, err error) bool {
	var perrs types.ParseErrors
	if !errors.As(err, &perrs) || len(perrs) == 0 {
		return false
	}
	if strings.TrimSpace(src) == "" {
		return false
	}
	end := len(strings.TrimRight(src, " \t\r\n"))
	for _, perr := range perrs {
		msg := perr.Message
		switch {
		case strings.HasPrefix(msg, "Unterminated string literal"):
			return true
		case strings.HasPrefix(msg, "Expected ')'"),
			strings.HasPrefix(msg, "Expected '}'"),
			strings.HasPrefix(msg, "Expected expression"):
			if perr.Position >= end {
				return true
			}
		}
	}
	return false
}

// completer offers function and variable names for the word under the
// cursor.
func completer(eng *goformula.Engine) liner.Completer {
	return func(line string) []string {
		i := strings.LastIndexFunc(line, func(r rune) bool {
			return !(r == '_' || r == ':' ||
				(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
		})
		head, word := line[:i+1], line[i+1:]
		if word == "" {
			return nil
		}
		upper := strings.ToUpper(word)
		var out []string
		for _, fn := range eng.FunctionNames() {
			if strings.HasPrefix(strings.ToUpper(fn), upper) {
				out = append(out, head+fn+"(")
			}
		}
		for _, name := range eng.VariableNames() {
			if strings.HasPrefix(name, word) {
				out = append(out, head+name)
			}
		}
		return out
	}
}
