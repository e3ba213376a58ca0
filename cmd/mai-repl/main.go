// Package main provides an interactive read-eval-print loop for mai.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/mai-lang/mai/internal/backend"
	"github.com/mai-lang/mai/internal/cli"
	"github.com/mai-lang/mai/internal/lexer"
	"github.com/mai-lang/mai/internal/parser"
)

const historyFile = ".mai_history"

func main() {
	showVersion := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *showVersion {
		cli.PrintVersion("mai repl")
		return
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	histPath := historyPath()
	if f, err := os.Open(histPath); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Println("mai repl (type :help for commands)")
	r := newREPL()
	for {
		input, err := line.Prompt("mai> ")
		if err != nil {
			// Ctrl-C aborts the line, Ctrl-D ends the session.
			if err == liner.ErrPromptAborted {
				continue
			}
			fmt.Println()
			return
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, ":") {
			if r.command(input) {
				return
			}
			continue
		}
		r.eval(input)
	}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return historyFile
	}
	return filepath.Join(home, historyFile)
}

type repl struct {
	session *backend.Session
	counter int
}

func newREPL() *repl {
	return &repl{session: backend.NewSession("repl", nil)}
}

// command handles a colon-prefixed command. It reports whether the repl
// should exit.
func (r *repl) command(input string) bool {
	switch input {
	case ":quit", ":q", ":exit":
		return true
	case ":ir":
		fmt.Print(r.session.Module())
	case ":reset":
		r.session = backend.NewSession("repl", nil)
		fmt.Println("session cleared")
	case ":help":
		fmt.Println("  fun name(args) { ... }   define a function")
		fmt.Println("  <expression>;            evaluate an expression")
		fmt.Println("  :ir                      print the session's IR")
		fmt.Println("  :reset                   discard all definitions")
		fmt.Println("  :quit                    exit")
	default:
		fmt.Printf("unknown command %s (try :help)\n", input)
	}
	return false
}

// eval compiles one line. A function definition is lowered into the
// session module; anything else is wrapped in a throwaway zero-argument
// function, evaluated, printed, and removed again.
func (r *repl) eval(input string) {
	if strings.HasPrefix(input, "fun ") {
		if err := r.define(input); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		return
	}

	r.counter++
	name := fmt.Sprintf("__repl_%d", r.counter)
	if !strings.HasSuffix(input, ";") && !strings.HasSuffix(input, "}") {
		input += ";"
	}
	src := fmt.Sprintf("fun %s() { %s }", name, input)

	fun, err := parseFunction(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	if _, err := r.session.Translator().Translate(fun); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	defer r.session.Module().Remove(name)

	result, err := r.session.Module().Eval(name)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	fmt.Printf("= %g\n", result)
}

// define lowers a function definition into the session, replacing any
// previous definition with the same name.
func (r *repl) define(input string) error {
	fun, err := parseFunction(input)
	if err != nil {
		return err
	}
	name := fun.Name.Literal
	r.session.Module().Remove(name)
	if _, err := r.session.Translator().Translate(fun); err != nil {
		return err
	}
	fmt.Printf("defined %s/%d\n", name, len(fun.Params))
	return nil
}

// parseFunction parses src, which must hold exactly one function
// declaration.
func parseFunction(src string) (*parser.FunctionStmt, error) {
	toks, err := lexer.New(src).Tokenize()
	if err != nil {
		return nil, err
	}
	stmts, err := parser.New(toks).Parse()
	if err != nil {
		return nil, err
	}
	if len(stmts) != 1 {
		return nil, fmt.Errorf("expected a single declaration, got %d", len(stmts))
	}
	fun, ok := stmts[0].(*parser.FunctionStmt)
	if !ok {
		return nil, fmt.Errorf("expected a function declaration, got %s", stmts[0])
	}
	return fun, nil
}
