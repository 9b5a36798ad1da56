// cmd/symcalc/main.go — interactive calculator on top of symcalc sessions
//
// Usage:
//
//	go run ./cmd/symcalc [-config symcalc.toml]
//
// Each line is an expression to simplify and approximate, a definition
// "name := expr", or a command starting with ':' (see :help). When stdin is
// not a terminal, lines are read without editing or prompts.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/njchilds90/symcalc"
	"github.com/njchilds90/symcalc/config"
	"github.com/njchilds90/symcalc/parse"
)

const (
	historyFile = ".symcalc_history"
	prompt      = "> "
)

const help = `expr              simplify and approximate expr
name := expr      define name
:diff x expr      derivative of expr in x
:roots x expr     roots of expr = 0 in x (degree 1 to 3)
:latex expr       LaTeX of the simplified expr
:set key value    complex_format, angle_unit, unit_format, symbolic_computation
:defs             list definitions
:stats            arena usage
:reset            drop definitions and expressions
:quit             exit`

type repl struct {
	s   *symcalc.Session
	out io.Writer
}

func main() {
	cfgPath := flag.String("config", "", "YAML or TOML settings file")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	opts, err := cfg.SessionOptions()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	opts = append(opts, symcalc.WithLogger(logger), symcalc.WithParser(parse.Parse))
	r := &repl{s: symcalc.NewSession(opts...), out: os.Stdout}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		os.Exit(r.interactive())
	}
	os.Exit(r.batch(os.Stdin))
}

func (r *repl) interactive() int {
	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	fmt.Fprintln(r.out, "symcalc — type :help for commands")
	for {
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(r.out)
			return 0
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		ln.AppendHistory(line)
		if r.handle(line) {
			return 0
		}
	}
}

func (r *repl) batch(in io.Reader) int {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) == "" {
			continue
		}
		if r.handle(sc.Text()) {
			return 0
		}
	}
	if err := sc.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// handle runs one input line and reports whether the user asked to quit.
func (r *repl) handle(line string) (quit bool) {
	line = strings.TrimSpace(line)
	var err error
	switch {
	case strings.HasPrefix(line, ":"):
		cmd, rest, _ := strings.Cut(line, " ")
		if cmd == ":quit" || cmd == ":q" {
			return true
		}
		err = r.command(cmd, strings.TrimSpace(rest))
	case strings.Contains(line, ":="):
		name, def, _ := strings.Cut(line, ":=")
		err = r.define(strings.TrimSpace(name), def)
	default:
		var res symcalc.Result
		if res, err = r.s.Eval(line); err == nil {
			if res.Approximate != "" && res.Approximate != res.Exact {
				fmt.Fprintf(r.out, "%s ≈ %s\n", res.Exact, res.Approximate)
			} else {
				fmt.Fprintln(r.out, res.Exact)
			}
		}
	}
	if err != nil {
		fmt.Fprintln(r.out, "error:", err)
	}
	return false
}

func (r *repl) define(name, input string) error {
	if name == "" {
		return errors.New("missing name before :=")
	}
	e, err := r.s.Parse(input)
	if err != nil {
		return err
	}
	defer e.Release()
	if err := r.s.Define(name, e); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "%s := %s\n", name, e.Serialize())
	return nil
}

func (r *repl) command(cmd, rest string) error {
	switch cmd {
	case ":help":
		fmt.Fprintln(r.out, help)
	case ":defs":
		for _, n := range r.s.Symbols().Names() {
			def, _ := r.s.Symbols().Definition(n)
			fmt.Fprintf(r.out, "%s := %s\n", n, def.Serialize())
		}
	case ":stats":
		a := r.s.Arena()
		fmt.Fprintf(r.out, "arena: %d/%d bytes, %d nodes, peak %d\n", a.Used(), a.Capacity(), a.LiveNodes(), a.Peak())
	case ":reset":
		r.s.Reset()
	case ":set":
		key, value, _ := strings.Cut(rest, " ")
		resp := r.s.HandleToolCall(symcalc.ToolRequest{
			Tool:   "set_context",
			Params: map[string]interface{}{key: strings.TrimSpace(value)},
		})
		if resp.Error != "" {
			return errors.New(resp.Error)
		}
	case ":latex":
		e, err := r.s.Parse(rest)
		if err != nil {
			return err
		}
		defer e.Release()
		s, err := r.s.Simplify(e)
		if err != nil {
			return err
		}
		defer s.Release()
		fmt.Fprintln(r.out, s.Layout())
	case ":diff", ":roots":
		symbol, input, _ := strings.Cut(rest, " ")
		e, err := r.s.Parse(input)
		if err != nil {
			return err
		}
		defer e.Release()
		if cmd == ":diff" {
			return r.derivate(e, symbol)
		}
		return r.roots(e, symbol)
	default:
		return errors.Errorf("unknown command %s, type :help", cmd)
	}
	return nil
}

func (r *repl) derivate(e symcalc.Expr, symbol string) error {
	d, ok, err := r.s.Derivate(e, symbol)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Errorf("%s is not differentiable in %s", e.Serialize(), symbol)
	}
	defer d.Release()
	fmt.Fprintln(r.out, d.Serialize())
	return nil
}

func (r *repl) roots(e symcalc.Expr, symbol string) error {
	roots, err := r.s.Roots(e, symbol)
	if err != nil {
		return err
	}
	if len(roots) == 0 {
		fmt.Fprintln(r.out, "no solution")
	}
	for i, x := range roots {
		fmt.Fprintf(r.out, "%s%d = %s\n", symbol, i+1, x.Serialize())
		x.Release()
	}
	return nil
}
