//go:build linux

package backend

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// Limits bound a sandboxed run of a compiled module.
type Limits struct {
	CPUSeconds  uint64 // RLIMIT_CPU; 0 means unlimited
	MemoryBytes uint64 // RLIMIT_AS; 0 means unlimited
	WallClock   time.Duration
}

// DefaultLimits are conservative bounds for running freshly compiled code.
func DefaultLimits() Limits {
	return Limits{
		CPUSeconds:  10,
		MemoryBytes: 256 << 20,
		WallClock:   30 * time.Second,
	}
}

// RunSandboxed executes a compiled binary under resource limits and
// returns its combined output. Limits are applied to the child process
// with prlimit immediately after it starts, before any result is read.
func RunSandboxed(ctx context.Context, binPath string, args []string, limits Limits) (string, error) {
	if limits.WallClock > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limits.WallClock)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, binPath, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Start(); err != nil {
		return "", err
	}
	pid := cmd.Process.Pid
	if limits.CPUSeconds > 0 {
		lim := unix.Rlimit{Cur: limits.CPUSeconds, Max: limits.CPUSeconds}
		if err := unix.Prlimit(pid, unix.RLIMIT_CPU, &lim, nil); err != nil {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return "", fmt.Errorf("apply cpu limit: %w", err)
		}
	}
	if limits.MemoryBytes > 0 {
		lim := unix.Rlimit{Cur: limits.MemoryBytes, Max: limits.MemoryBytes}
		if err := unix.Prlimit(pid, unix.RLIMIT_AS, &lim, nil); err != nil {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return "", fmt.Errorf("apply memory limit: %w", err)
		}
	}

	if err := cmd.Wait(); err != nil {
		return "", fmt.Errorf("%s: %w: %s", binPath, err, strings.TrimSpace(out.String()))
	}
	return out.String(), nil
}
