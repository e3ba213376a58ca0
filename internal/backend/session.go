// Package backend drives what happens after lowering: it owns the build
// session that accumulates functions into a module, the pass selection
// handed to the external optimizer, and the external toolchain that turns
// emitted IR into object code.
package backend

import (
	"fmt"
	"io"
	"os"

	"github.com/mai-lang/mai/internal/ir"
	"github.com/mai-lang/mai/internal/lexer"
	"github.com/mai-lang/mai/internal/lower"
	"github.com/mai-lang/mai/internal/parser"
)

// PassConfig is the ordered list of optimization pass names passed through
// to the external backend. Passes are configuration, not behavior: nothing
// in this repository interprets them.
type PassConfig []string

// DefaultPasses mirrors the pass pipeline the original driver configured.
func DefaultPasses() PassConfig {
	return PassConfig{
		"instcombine",
		"reassociate",
		"gvn",
		"simplifycfg",
		"basic-aa",
		"mem2reg",
		"instcombine",
		"reassociate",
	}
}

// Session is one compilation run: a target module, the translator feeding
// it, and the pass configuration for the backend hand-off. Sessions are
// independent; concurrent compilations each get their own.
type Session struct {
	module *ir.Module
	tr     *lower.Translator
	passes PassConfig
}

// NewSession creates a session with an empty module.
func NewSession(moduleName string, passes PassConfig) *Session {
	if passes == nil {
		passes = DefaultPasses()
	}
	m := ir.NewModule(moduleName)
	return &Session{module: m, tr: lower.New(m), passes: passes}
}

// Module returns the session's module.
func (s *Session) Module() *ir.Module { return s.module }

// Passes returns the configured pass names.
func (s *Session) Passes() PassConfig { return s.passes }

// Translator returns the session's translator, for callers that lower
// individual declarations (the REPL).
func (s *Session) Translator() *lower.Translator { return s.tr }

// CompileSource runs the whole front end over src: lexing, parsing, and
// lowering every top-level function declaration into the session module.
// Any stage failure aborts the compilation; there is no partial output.
func (s *Session) CompileSource(filename, src string) error {
	toks, err := lexer.New(src).Tokenize()
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	stmts, err := parser.New(toks).Parse()
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}

	for _, stmt := range stmts {
		fun, ok := stmt.(*parser.FunctionStmt)
		if !ok {
			return fmt.Errorf("%s: top-level statement %s is not a function declaration", filename, stmt)
		}
		if _, err := s.tr.Translate(fun); err != nil {
			return fmt.Errorf("%s: lowering %q: %w", filename, fun.Name.Literal, err)
		}
	}
	return nil
}

// CompileFile reads and compiles one source file.
func (s *Session) CompileFile(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return s.CompileSource(path, string(src))
}

// EmitIR writes the module's textual IR, the hand-off artifact for the
// external backend.
func (s *Session) EmitIR(w io.Writer) error {
	_, err := io.WriteString(w, s.module.String())
	return err
}

// EmitIRFile writes the textual IR to path.
func (s *Session) EmitIRFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := s.EmitIR(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
