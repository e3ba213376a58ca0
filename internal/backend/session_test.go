package backend

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCompileSource(t *testing.T) {
	s := NewSession("demo", nil)
	err := s.CompileSource("demo.mai", `
		fun double(x) { return x * 2; }
		fun quad(x) { return double(double(x)); }
	`)
	if err != nil {
		t.Fatal(err)
	}

	if got := len(s.Module().Functions); got != 2 {
		t.Fatalf("expected 2 functions, got %d", got)
	}
	if got, err := s.Module().Eval("quad", 3); err != nil || got != 12 {
		t.Fatalf("quad(3) = %g, %v; want 12", got, err)
	}
}

func TestCompileSourceRejectsLooseStatements(t *testing.T) {
	s := NewSession("demo", nil)
	err := s.CompileSource("demo.mai", "var x = 1;")
	if err == nil || !strings.Contains(err.Error(), "not a function declaration") {
		t.Fatalf("expected top-level statement error, got %v", err)
	}
}

func TestCompileFailureLeavesNoPartialOutput(t *testing.T) {
	s := NewSession("demo", nil)
	err := s.CompileSource("demo.mai", `
		fun good() { return 1; }
		fun bad() { return missing; }
	`)
	if err == nil {
		t.Fatal("expected lowering failure")
	}
	// The failed function is discarded; earlier functions stay registered.
	if s.Module().Lookup("bad") != nil {
		t.Fatal("failed function must not remain in module")
	}
	if s.Module().Lookup("good") == nil {
		t.Fatal("previously lowered function disappeared")
	}
}

func TestEmitIRFile(t *testing.T) {
	s := NewSession("demo", nil)
	if err := s.CompileSource("demo.mai", "fun f(x) { return x + 1; }"); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "demo.mir")
	if err := s.EmitIRFile(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{"module demo", "func f(%x)", "entry:", "ret"} {
		if !strings.Contains(text, want) {
			t.Fatalf("emitted IR missing %q:\n%s", want, text)
		}
	}
}

func TestDefaultPassesMatchConfiguredPipeline(t *testing.T) {
	s := NewSession("demo", nil)
	passes := s.Passes()
	if len(passes) == 0 || passes[0] != "instcombine" {
		t.Fatalf("unexpected default pipeline: %v", passes)
	}

	custom := NewSession("demo", PassConfig{"mem2reg"})
	if got := custom.Passes(); len(got) != 1 || got[0] != "mem2reg" {
		t.Fatalf("custom pipeline not honored: %v", got)
	}
}
