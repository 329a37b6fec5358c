// Package e2e provides testing infrastructure for end-to-end CLI tests:
// an isolated project directory, captured output, and fixture helpers.
package e2e

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/agentpack/agentpack/internal/cli"
)

// Result contains the outcome of running a CLI command.
type Result struct {
	// Stdout contains the captured standard output.
	Stdout string
	// Err is the error returned by the CLI command, if any.
	Err error
	// ExitCode is the inferred exit code (0 for success, 1 for error).
	ExitCode int
}

// Success returns true if the command completed without error.
func (r *Result) Success() bool {
	return r.Err == nil
}

// Harness runs CLI commands inside an isolated project directory with an
// isolated home, so manifests and caches never leak between tests.
type Harness struct {
	t          *testing.T
	projectDir string
}

// NewHarness creates a harness rooted in a fresh temp project directory.
// The working directory and HOME are redirected for the duration of the
// test.
func NewHarness(t *testing.T) *Harness {
	t.Helper()

	projectDir := t.TempDir()
	t.Chdir(projectDir)
	t.Setenv("HOME", t.TempDir())

	return &Harness{t: t, projectDir: projectDir}
}

// ProjectDir returns the isolated project directory.
func (h *Harness) ProjectDir() string {
	return h.projectDir
}

// Run executes a CLI command with the given arguments and captures stdout.
func (h *Harness) Run(args ...string) *Result {
	h.t.Helper()

	if len(args) == 0 || args[0] != "agentpack" {
		args = append([]string{"agentpack"}, args...)
	}

	oldStdout := os.Stdout
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		h.t.Fatalf("failed to create stdout pipe: %v", err)
	}
	os.Stdout = stdoutW

	// Read concurrently: output larger than the pipe buffer would
	// otherwise block the command.
	var stdoutBuf bytes.Buffer
	var copyErr error
	copyDone := make(chan struct{})
	go func() {
		defer close(copyDone)
		_, copyErr = io.Copy(&stdoutBuf, stdoutR)
	}()

	cmdErr := cli.Run(context.Background(), args)

	if err := stdoutW.Close(); err != nil {
		h.t.Fatalf("failed to close stdout pipe writer: %v", err)
	}
	os.Stdout = oldStdout

	<-copyDone
	if copyErr != nil {
		h.t.Fatalf("failed to read captured stdout: %v", copyErr)
	}

	exitCode := 0
	if cmdErr != nil {
		exitCode = 1
	}

	return &Result{
		Stdout:   stdoutBuf.String(),
		Err:      cmdErr,
		ExitCode: exitCode,
	}
}
