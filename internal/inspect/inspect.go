// Package inspect is the interactive confirmation protocol that gates
// outbound email. Nothing is transmitted until the user picks "send all";
// every other command returns to the review prompt.
package inspect

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// State identifies a position in the inspection state machine. All
// non-terminal transitions lead back to StateReviewing.
type State int

const (
	StateReviewing State = iota
	StateEditingTo
	StateEditingCc
	StateEditingPatches
	StateSelectingPatches
	StatePrinting
	StateSending
	StateCancelled
)

// ErrCancelled indicates the user chose to abort the publish. No side
// effects occur beyond what list edits already persisted.
var ErrCancelled = errors.New("publish cancelled")

// Loop runs the review session. The collaborators are injected as
// functions so tests can script the whole session.
type Loop struct {
	In  io.Reader
	Out io.Writer

	// EditLines opens lines in the user's editor and returns the result.
	EditLines func(ctx context.Context, lines []string) ([]string, error)
	// EditFiles opens the given files in the user's editor.
	EditFiles func(ctx context.Context, paths ...string) error
	// DryRun reports what the send step would do for the current state.
	DryRun func(ctx context.Context, to, cc, files []string) (string, error)
	// Persist stores recipient edits immediately, so a later cancel
	// cannot lose them.
	Persist func(ctx context.Context, to, cc []string) error
}

// Result is the state accepted by the user when the loop ends in
// StateSending.
type Result struct {
	Files []string
	To    []string
	Cc    []string
}

const prompt = "[y] send all  [t] edit To  [c] edit Cc  [e] edit patches  [s] select patches  [p] reprint  [n] cancel > "

// Run reviews the batch until the user sends or cancels. It never
// auto-advances: the recipient summary and dry-run diagnostics are
// redisplayed before every prompt.
func (l *Loop) Run(ctx context.Context, files, to, cc []string) (Result, error) {
	in := bufio.NewScanner(l.In)

	diag, err := l.DryRun(ctx, to, cc, files)
	if err != nil {
		return Result{}, err
	}

	state := StateReviewing
	for {
		switch state {
		case StateReviewing:
			l.printSummary(to, cc, files, diag)
			fmt.Fprint(l.Out, prompt)
			if !in.Scan() {
				state = StateCancelled
				continue
			}
			state = command(in.Text())

		case StateEditingTo:
			edited, err := l.editAddresses(ctx, "To", to)
			if err != nil {
				return Result{}, err
			}
			to = edited
			if err := l.Persist(ctx, to, cc); err != nil {
				return Result{}, err
			}
			if diag, err = l.DryRun(ctx, to, cc, files); err != nil {
				return Result{}, err
			}
			state = StateReviewing

		case StateEditingCc:
			edited, err := l.editAddresses(ctx, "Cc", cc)
			if err != nil {
				return Result{}, err
			}
			cc = edited
			if err := l.Persist(ctx, to, cc); err != nil {
				return Result{}, err
			}
			if diag, err = l.DryRun(ctx, to, cc, files); err != nil {
				return Result{}, err
			}
			state = StateReviewing

		case StateEditingPatches:
			if err := l.EditFiles(ctx, files...); err != nil {
				return Result{}, err
			}
			state = StateReviewing

		case StateSelectingPatches:
			selected, err := l.selectFiles(ctx, files)
			if err != nil {
				return Result{}, err
			}
			if len(selected) == 0 {
				fmt.Fprintln(l.Out, "selection empty, keeping previous patch list")
			} else {
				files = selected
				if diag, err = l.DryRun(ctx, to, cc, files); err != nil {
					return Result{}, err
				}
			}
			state = StateReviewing

		case StatePrinting:
			// The summary reprints on re-entry to reviewing.
			state = StateReviewing

		case StateSending:
			return Result{Files: files, To: to, Cc: cc}, nil

		case StateCancelled:
			return Result{}, ErrCancelled
		}
	}
}

// command maps one line of input to the next state. Unknown input stays
// in reviewing, which reprints the prompt.
func command(line string) State {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y":
		return StateSending
	case "n", "q":
		return StateCancelled
	case "t":
		return StateEditingTo
	case "c":
		return StateEditingCc
	case "e":
		return StateEditingPatches
	case "s":
		return StateSelectingPatches
	case "p":
		return StatePrinting
	default:
		return StateReviewing
	}
}

func (l *Loop) printSummary(to, cc, files []string, diag string) {
	fmt.Fprintf(l.Out, "\nTo: %s\n", strings.Join(to, ", "))
	fmt.Fprintf(l.Out, "Cc: %s\n", strings.Join(cc, ", "))
	fmt.Fprintf(l.Out, "Patches (%d):\n", len(files))
	for _, f := range files {
		fmt.Fprintf(l.Out, "  %s\n", f)
	}
	if diag != "" {
		fmt.Fprintln(l.Out, "send-email dry run:")
		for _, line := range strings.Split(strings.TrimRight(diag, "\n"), "\n") {
			fmt.Fprintf(l.Out, "  %s\n", line)
		}
	}
}

// editAddresses round-trips an address list through the editor, one
// address per line.
func (l *Loop) editAddresses(ctx context.Context, label string, addrs []string) ([]string, error) {
	lines := []string{
		fmt.Sprintf("# %s addresses, one per line. Lines starting with '#' are ignored.", label),
	}
	lines = append(lines, addrs...)
	edited, err := l.EditLines(ctx, lines)
	if err != nil {
		return nil, err
	}
	return stripListComments(edited), nil
}

// selectFiles round-trips the patch list through the editor; deleting a
// line drops the patch, reordering lines reorders the batch.
func (l *Loop) selectFiles(ctx context.Context, files []string) ([]string, error) {
	lines := []string{
		"# Keep the patches to send, one per line. Delete a line to drop",
		"# that patch; reorder lines to reorder the batch.",
	}
	lines = append(lines, files...)
	edited, err := l.EditLines(ctx, lines)
	if err != nil {
		return nil, err
	}
	keep := make(map[string]bool, len(files))
	for _, f := range files {
		keep[f] = true
	}
	var out []string
	for _, line := range stripListComments(edited) {
		if keep[line] {
			out = append(out, line)
		}
	}
	return out, nil
}

func stripListComments(lines []string) []string {
	var out []string
	for _, l := range lines {
		t := strings.TrimSpace(l)
		if t == "" || strings.HasPrefix(t, "#") {
			continue
		}
		out = append(out, t)
	}
	return out
}
