//go:build !linux

package backend

import (
	"context"
	"errors"
	"time"
)

// Limits bound a sandboxed run of a compiled module.
type Limits struct {
	CPUSeconds  uint64
	MemoryBytes uint64
	WallClock   time.Duration
}

// DefaultLimits are conservative bounds for running freshly compiled code.
func DefaultLimits() Limits {
	return Limits{CPUSeconds: 10, MemoryBytes: 256 << 20, WallClock: 30 * time.Second}
}

// RunSandboxed is only supported on linux, where process resource limits
// can be applied to the child.
func RunSandboxed(ctx context.Context, binPath string, args []string, limits Limits) (string, error) {
	return "", errors.New("sandboxed execution is only supported on linux")
}
