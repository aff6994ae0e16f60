// Package hook runs the optional repository hooks that gate tagging and
// sending. A missing hook passes; a non-zero exit rejects the stage.
package hook

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Hook names looked up in the repository's hook directory.
const (
	// PreTag runs before the staging tag is created; its argument is the
	// base branch name.
	PreTag = "pulsar-pre-tag"
	// PreSend runs before mail transmission; its argument is the staging
	// directory holding the patch files.
	PreSend = "pulsar-pre-send"
)

// RejectionError reports a hook that exited non-zero.
type RejectionError struct {
	Name string
	Err  error
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("hook %s rejected the operation: %v", e.Name, e.Err)
}

func (e *RejectionError) Unwrap() error { return e.Err }

// Runner invokes hooks from a fixed directory.
type Runner struct {
	dir string
}

// NewRunner returns a Runner over the given hook directory.
func NewRunner(dir string) *Runner {
	return &Runner{dir: dir}
}

// Run executes the named hook with arg, connected to the caller's
// terminal. A hook that does not exist passes.
func (r *Runner) Run(ctx context.Context, name, arg string) error {
	path := filepath.Join(r.dir, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	cmd := exec.CommandContext(ctx, path, arg)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return &RejectionError{Name: name, Err: err}
	}
	return nil
}
