// Package main provides the entry point for the mai compiler driver.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mai-lang/mai/internal/backend"
	"github.com/mai-lang/mai/internal/cli"
	"github.com/mai-lang/mai/internal/watch"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version information")
		emitIR      = flag.Bool("emit-ir", false, "print the lowered IR to stdout")
		irOut       = flag.String("ir-out", "", "write the lowered IR to a file (single input only)")
		objOut      = flag.String("o", "", "produce object code at the given path via the external backend (single input only)")
		passList    = flag.String("passes", "", "comma-separated optimizer pass names handed to the backend (default: built-in pipeline)")
		backendBin  = flag.String("backend", "", "external backend binary (default: $MAI_BACKEND or mai-backend)")
		backendReq  = flag.String("backend-version", "", "semver constraint the backend must satisfy, e.g. '>= 11.0.0'")
		linkOut     = flag.String("bin", "", "link the object code into an executable at the given path (requires -o)")
		execBin     = flag.Bool("exec", false, "run the linked executable under resource limits and print its output (requires -bin)")
		runMain     = flag.Bool("run", false, "evaluate the compiled module's main() and print the result")
		doWatch     = flag.Bool("watch", false, "recompile whenever an input file changes")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [INPUT_FILE...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Compiles mai source files to IR and, with a backend, to object code.\n")
		fmt.Fprintf(os.Stderr, "With no inputs, main.mai is compiled.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		cli.PrintVersion("mai compiler")
		return
	}

	inputs := flag.Args()
	if len(inputs) == 0 {
		inputs = []string{"main.mai"}
	}
	if len(inputs) > 1 && (*irOut != "" || *objOut != "") {
		cli.ExitWithError("-ir-out and -o require a single input file")
	}
	if *linkOut != "" && *objOut == "" {
		cli.ExitWithError("-bin requires -o")
	}
	if *execBin && *linkOut == "" {
		cli.ExitWithError("-exec requires -bin")
	}

	var passes backend.PassConfig
	if *passList != "" {
		passes = backend.PassConfig(strings.Split(*passList, ","))
	}

	opts := options{
		emitIR:   *emitIR,
		irOut:    *irOut,
		objOut:   *objOut,
		linkOut:  *linkOut,
		execBin:  *execBin,
		passes:   passes,
		backend:  *backendBin,
		versions: *backendReq,
		runMain:  *runMain,
	}

	if err := compileAll(context.Background(), inputs, opts); err != nil {
		cli.ExitWithError("%v", err)
	}

	if *doWatch {
		if err := watchAndRecompile(context.Background(), inputs, opts); err != nil {
			cli.ExitWithError("%v", err)
		}
	}
}

type options struct {
	emitIR   bool
	irOut    string
	objOut   string
	linkOut  string
	execBin  bool
	passes   backend.PassConfig
	backend  string
	versions string
	runMain  bool
}

// compileAll compiles every input in its own session. Sessions are
// independent, so files compile concurrently; the first failure wins.
func compileAll(ctx context.Context, inputs []string, opts options) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, input := range inputs {
		input := input
		g.Go(func() error {
			return compileOne(ctx, input, opts)
		})
	}
	return g.Wait()
}

func compileOne(ctx context.Context, input string, opts options) error {
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	s := backend.NewSession(name, opts.passes)
	if err := s.CompileFile(input); err != nil {
		return err
	}

	if opts.emitIR {
		if err := s.EmitIR(os.Stdout); err != nil {
			return err
		}
	}
	if opts.irOut != "" {
		if err := s.EmitIRFile(opts.irOut); err != nil {
			return err
		}
	}
	if opts.objOut != "" {
		tc := backend.NewToolchain(opts.backend, "", opts.versions)
		if err := tc.Generate(ctx, s, opts.objOut); err != nil {
			return err
		}
		if opts.linkOut != "" {
			if err := tc.Link(ctx, opts.objOut, opts.linkOut); err != nil {
				return err
			}
		}
		if opts.execBin {
			out, err := backend.RunSandboxed(ctx, opts.linkOut, nil, backend.DefaultLimits())
			if err != nil {
				return err
			}
			fmt.Print(out)
		}
	}
	if opts.runMain {
		result, err := s.Module().Eval("main")
		if err != nil {
			return fmt.Errorf("%s: %w", input, err)
		}
		fmt.Printf("%s: main() = %g\n", input, result)
	}
	return nil
}

// watchAndRecompile blocks, recompiling the inputs whenever one changes.
// A failed recompile is reported and watching continues.
func watchAndRecompile(ctx context.Context, inputs []string, opts options) error {
	fw, err := watch.New(inputs...)
	if err != nil {
		return err
	}
	defer fw.Close()

	fmt.Fprintf(os.Stderr, "watching %s\n", strings.Join(inputs, ", "))
	return fw.Run(ctx, 200*time.Millisecond, func(ev watch.Event) {
		start := time.Now()
		if err := compileAll(ctx, inputs, opts); err != nil {
			fmt.Fprintf(os.Stderr, "recompile failed: %v\n", err)
			return
		}
		fmt.Fprintf(os.Stderr, "recompiled in %s\n", time.Since(start).Round(time.Millisecond))
	})
}
