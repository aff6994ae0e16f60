// Package editor invokes the user's configured editor over files and
// scratch buffers. Editing blocks for as long as the user keeps the editor
// open; the only contract is the editor's exit code.
package editor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ErrNoEditor indicates no editor command is configured.
var ErrNoEditor = errors.New("no editor configured (set GIT_EDITOR, core.editor, VISUAL, or EDITOR)")

// Editor runs an external editor command over one or more files.
type Editor struct {
	// Command is the raw editor command line (typically from
	// `git var GIT_EDITOR`), split on whitespace into argv.
	Command string
}

// New returns an Editor for the given command line.
func New(command string) (*Editor, error) {
	if strings.TrimSpace(command) == "" {
		return nil, ErrNoEditor
	}
	return &Editor{Command: command}, nil
}

// Edit opens the editor over paths, connected to the caller's terminal,
// and waits for it to exit.
func (e *Editor) Edit(ctx context.Context, paths ...string) error {
	argv := strings.Fields(e.Command)
	if len(argv) == 0 {
		return ErrNoEditor
	}
	argv = append(argv, paths...)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("editor %q: %w", argv[0], err)
	}
	return nil
}

// EditLines writes lines to a scratch file, opens the editor over it, and
// returns the edited content. The scratch file is removed on every path.
func (e *Editor) EditLines(ctx context.Context, lines []string) ([]string, error) {
	f, err := os.CreateTemp("", "pulsar-edit-*.txt")
	if err != nil {
		return nil, fmt.Errorf("creating scratch file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	for _, line := range lines {
		if _, err := fmt.Fprintln(f, line); err != nil {
			f.Close()
			return nil, fmt.Errorf("writing scratch file: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("writing scratch file: %w", err)
	}

	if err := e.Edit(ctx, path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scratch file: %w", err)
	}
	content := strings.TrimSuffix(string(data), "\n")
	if content == "" {
		return nil, nil
	}
	return strings.Split(content, "\n"), nil
}
