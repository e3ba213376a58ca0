// Package cli carries plumbing shared by the mai command-line tools.
package cli

import (
	"fmt"
	"os"
	"runtime"
)

// Version information for all CLI tools.
const (
	Version   = "0.1.0"
	CommitSHA = "unknown" // Set during build.
)

// PrintVersion prints version information in a consistent format.
func PrintVersion(toolName string) {
	fmt.Printf("%s v%s\n", toolName, Version)
	if CommitSHA != "unknown" && CommitSHA != "" {
		fmt.Printf("Commit: %s\n", CommitSHA)
	}
	fmt.Printf("Go Version: %s\n", runtime.Version())
	fmt.Printf("Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// ExitWithError prints an error message and exits with code 1.
func ExitWithError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
