package backend

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// DefaultBackendEnv names the environment variable overriding the backend
// binary path.
const DefaultBackendEnv = "MAI_BACKEND"

// CommandSpec describes one external toolchain invocation.
type CommandSpec struct {
	Cmd     string
	Args    []string
	Env     map[string]string
	WorkDir string
}

func (cs CommandSpec) String() string {
	return cs.Cmd + " " + strings.Join(cs.Args, " ")
}

// Toolchain builds and runs the external code generator, linker, and
// disassembler commands. Their failures are deterministic for a given IR,
// so no retry policy applies: stderr is surfaced verbatim.
type Toolchain struct {
	// Backend is the code generator binary. Empty means the value of
	// MAI_BACKEND, falling back to "mai-backend" on PATH.
	Backend string
	// Linker produces an executable from object code.
	Linker string
	// Constraint is a semver range the backend must satisfy, e.g. ">= 1.2.0".
	// Empty disables the version gate.
	Constraint string

	// run is swappable for tests.
	run func(ctx context.Context, spec CommandSpec) (string, error)
}

// NewToolchain creates a toolchain with defaults resolved from the
// environment.
func NewToolchain(backend, linker, constraint string) *Toolchain {
	if backend == "" {
		backend = os.Getenv(DefaultBackendEnv)
	}
	if backend == "" {
		backend = "mai-backend"
	}
	if linker == "" {
		linker = "cc"
	}
	return &Toolchain{Backend: backend, Linker: linker, Constraint: constraint, run: runSpec}
}

// CodegenCommand builds the command that turns textual IR into an object
// file, with the session's pass selection passed through.
func (tc *Toolchain) CodegenCommand(irPath, objPath string, passes PassConfig) CommandSpec {
	args := []string{}
	if len(passes) > 0 {
		args = append(args, "-passes="+strings.Join(passes, ","))
	}
	args = append(args, "-o", objPath, irPath)
	return CommandSpec{Cmd: tc.Backend, Args: args}
}

// LinkCommand builds the command that links an object file into an
// executable.
func (tc *Toolchain) LinkCommand(objPath, binPath string) CommandSpec {
	return CommandSpec{Cmd: tc.Linker, Args: []string{"-o", binPath, objPath}}
}

// DisassembleCommand builds the command that prints the object file's
// disassembly.
func (tc *Toolchain) DisassembleCommand(objPath string) CommandSpec {
	return CommandSpec{Cmd: tc.Backend, Args: []string{"-disassemble", objPath}}
}

// CheckVersion runs `<backend> --version` and validates the reported
// version against the configured constraint.
func (tc *Toolchain) CheckVersion(ctx context.Context) error {
	if tc.Constraint == "" {
		return nil
	}
	out, err := tc.runner()(ctx, CommandSpec{Cmd: tc.Backend, Args: []string{"--version"}})
	if err != nil {
		return fmt.Errorf("backend %q: %w", tc.Backend, err)
	}
	v, err := parseVersionOutput(out)
	if err != nil {
		return fmt.Errorf("backend %q: %w", tc.Backend, err)
	}
	c, err := semver.NewConstraint(tc.Constraint)
	if err != nil {
		return fmt.Errorf("invalid backend version constraint %q: %w", tc.Constraint, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("backend %q version %s does not satisfy %q", tc.Backend, v, tc.Constraint)
	}
	return nil
}

// Generate emits the session's IR to a file next to outPath and runs the
// code generator over it, producing outPath.
func (tc *Toolchain) Generate(ctx context.Context, s *Session, outPath string) error {
	irPath := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + ".mir"
	if err := s.EmitIRFile(irPath); err != nil {
		return err
	}
	if err := tc.CheckVersion(ctx); err != nil {
		return err
	}
	if _, err := tc.runner()(ctx, tc.CodegenCommand(irPath, outPath, s.Passes())); err != nil {
		return err
	}
	return nil
}

// Link produces an executable from an object file.
func (tc *Toolchain) Link(ctx context.Context, objPath, binPath string) error {
	_, err := tc.runner()(ctx, tc.LinkCommand(objPath, binPath))
	return err
}

func (tc *Toolchain) runner() func(ctx context.Context, spec CommandSpec) (string, error) {
	if tc.run != nil {
		return tc.run
	}
	return runSpec
}

// runSpec executes a CommandSpec and returns its stdout. On failure the
// command's stderr is included verbatim in the error.
func runSpec(ctx context.Context, spec CommandSpec) (string, error) {
	cmd := exec.CommandContext(ctx, spec.Cmd, spec.Args...)
	cmd.Dir = spec.WorkDir
	if len(spec.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range spec.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return "", fmt.Errorf("%s: %w: %s", spec, err, strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("%s: %w", spec, err)
	}
	return stdout.String(), nil
}

var versionRE = regexp.MustCompile(`v?(\d+\.\d+(?:\.\d+)?)`)

// parseVersionOutput extracts the first semver-looking number from a
// --version banner.
func parseVersionOutput(out string) (*semver.Version, error) {
	m := versionRE.FindStringSubmatch(out)
	if m == nil {
		return nil, fmt.Errorf("no version number in output %q", strings.TrimSpace(out))
	}
	return semver.NewVersion(m[1])
}
