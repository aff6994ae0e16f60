// Package gitcli is a narrow wrapper around the git command line. All
// repository reads and mutations in pulsar go through the Runner interface
// so the rest of the code never touches process plumbing directly and
// tests can substitute a fake.
package gitcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Result holds the captured output of a git invocation.
type Result struct {
	Stdout string
	Stderr string
	// Code is the process exit code: 0 on success, the git exit status on
	// failure, -1 when the process could not be started.
	Code int
}

// Lines splits stdout into lines, dropping the trailing empty element left
// by the final newline.
func (r Result) Lines() []string {
	s := strings.TrimSuffix(r.Stdout, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// Runner executes git with the given arguments. Implementations return a
// *GitError when git exits non-zero; the Result is still populated so
// callers can branch on the exit code.
type Runner interface {
	Run(ctx context.Context, args ...string) (Result, error)
}

// GitError reports a failed git invocation with its captured diagnostics.
type GitError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *GitError) Error() string {
	msg := fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *GitError) Unwrap() error { return e.Err }

// CLI runs git via os/exec.
type CLI struct {
	GitPath string
	Dir     string // working directory for git commands; empty = cwd
	Verbose bool
}

// New returns a CLI using the given git binary (empty = "git" on PATH).
func New(gitPath string) *CLI {
	if gitPath == "" {
		gitPath = "git"
	}
	return &CLI{GitPath: gitPath}
}

// Run executes git with args and captures stdout/stderr.
func (c *CLI) Run(ctx context.Context, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, c.GitPath, args...)
	cmd.Dir = c.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if c.Verbose {
		fmt.Fprintf(os.Stderr, "[git] running: %s %s\n", c.GitPath, strings.Join(args, " "))
	}

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String(), Code: 0}
	if err != nil {
		res.Code = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.Code = exitErr.ExitCode()
		}
		return res, &GitError{Args: args, Stderr: stderr.String(), Err: err}
	}
	return res, nil
}

// RunInteractive executes git with args connected to the caller's terminal.
// Used for operations that talk to the user directly (send-email prompts).
func (c *CLI) RunInteractive(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, c.GitPath, args...)
	cmd.Dir = c.Dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if c.Verbose {
		fmt.Fprintf(os.Stderr, "[git] running: %s %s\n", c.GitPath, strings.Join(args, " "))
	}

	if err := cmd.Run(); err != nil {
		return &GitError{Args: args, Err: err}
	}
	return nil
}
