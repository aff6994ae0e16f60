// Package dispatch hands the final patch batch to git send-email, either
// as one batch or one invocation per patch.
package dispatch

import (
	"context"
	"fmt"

	"github.com/papapumpkin/pulsar/internal/gitcli"
	"github.com/papapumpkin/pulsar/internal/recipients"
)

// Runner is the slice of gitcli the dispatcher needs: captured output for
// dry runs, terminal passthrough for real sends.
type Runner interface {
	Run(ctx context.Context, args ...string) (gitcli.Result, error)
	RunInteractive(ctx context.Context, args ...string) error
}

// Options configures one send.
type Options struct {
	To         []string
	Cc         []string
	SuppressCc string
	InReplyTo  string
	NoThread   bool
	// Separate sends one patch per invocation, stopping at the first
	// failure. Already-sent patches stay sent; there is no rollback.
	Separate bool
}

// SendError reports a failed transmission.
type SendError struct {
	File string // the failing file in separate mode, empty otherwise
	Err  error
}

func (e *SendError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("sending %s: %v", e.File, e.Err)
	}
	return fmt.Sprintf("sending patches: %v", e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// Dispatcher performs mail transmission through git send-email.
type Dispatcher struct {
	run Runner
}

// New returns a Dispatcher using run.
func New(run Runner) *Dispatcher {
	return &Dispatcher{run: run}
}

// buildArgs assembles the send-email argument list. Cc addresses already
// present in To are dropped so no recipient appears in both clauses.
func buildArgs(opts Options, files []string, dryRun bool) []string {
	args := []string{"send-email"}
	for _, a := range opts.To {
		args = append(args, "--to="+a)
	}
	for _, a := range recipients.Subtract(opts.Cc, opts.To) {
		args = append(args, "--cc="+a)
	}
	if opts.SuppressCc != "" {
		args = append(args, "--suppress-cc="+opts.SuppressCc)
	}
	if opts.InReplyTo != "" {
		args = append(args, "--in-reply-to="+opts.InReplyTo)
	}
	if opts.NoThread {
		args = append(args, "--no-thread")
	} else {
		args = append(args, "--thread")
	}
	if dryRun {
		args = append(args, "--dry-run", "--quiet")
	}
	return append(args, files...)
}

// DryRun reports what send-email would do (per-recipient diagnostic
// lines) without transmitting anything.
func (d *Dispatcher) DryRun(ctx context.Context, opts Options, files []string) (string, error) {
	res, err := d.run.Run(ctx, buildArgs(opts, files, true)...)
	if err != nil {
		return "", &SendError{Err: err}
	}
	return res.Stdout, nil
}

// Send transmits the batch. In separate mode each file goes out in its
// own invocation and the first failure stops the sequence.
func (d *Dispatcher) Send(ctx context.Context, opts Options, files []string) error {
	if !opts.Separate {
		if err := d.run.RunInteractive(ctx, buildArgs(opts, files, false)...); err != nil {
			return &SendError{Err: err}
		}
		return nil
	}
	for _, f := range files {
		if err := d.run.RunInteractive(ctx, buildArgs(opts, []string{f}, false)...); err != nil {
			return &SendError{File: f, Err: err}
		}
	}
	return nil
}
