// Package publish orchestrates a revision's lifecycle: resolve settings
// and recipients, allocate the revision number, compose and stage the tag
// message, assemble the patch batch, run the inspection loop, dispatch the
// mail, and promote the staging tag.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/papapumpkin/pulsar/internal/config"
	"github.com/papapumpkin/pulsar/internal/dispatch"
	"github.com/papapumpkin/pulsar/internal/editor"
	"github.com/papapumpkin/pulsar/internal/gitcli"
	"github.com/papapumpkin/pulsar/internal/hook"
	"github.com/papapumpkin/pulsar/internal/inspect"
	"github.com/papapumpkin/pulsar/internal/message"
	"github.com/papapumpkin/pulsar/internal/patches"
	"github.com/papapumpkin/pulsar/internal/recipients"
	"github.com/papapumpkin/pulsar/internal/tags"
	"github.com/papapumpkin/pulsar/internal/ui"
)

// ErrEmptyMessage indicates the user saved an empty (or all-comment)
// message; treated as a cancellation.
var ErrEmptyMessage = errors.New("empty message, publish aborted")

// Options carries the option values accepted from the command line.
type Options struct {
	Topic   string
	Base    string
	Number  int // 0 = allocate from existing versioned tags
	Profile string

	NoMessage bool // stage without editing the message
	EditOnly  bool // update the staging tag message and exit
	Annotate  bool // annotated staging tag (implied by a non-empty message)

	PullRequest bool

	To         []string
	Cc         []string
	OverrideTo bool
	OverrideCc bool
	ForgetCc   bool

	Skip          int
	SubjectPrefix string
	Signoff       bool
	Notes         bool
	NoBinary      bool
	Headers       []string
	Cover         patches.CoverMode

	InReplyTo    string
	NoThread     bool
	SeparateSend bool
	SuppressCc   string

	Inspect bool
}

// Publisher wires the components of one publish attempt.
type Publisher struct {
	Repo       *gitcli.Repo
	Tags       *tags.Manager
	Recipients *recipients.Store
	Composer   *message.Composer
	Assembler  *patches.Assembler
	Dispatcher *dispatch.Dispatcher
	Editor     *editor.Editor
	Tool       config.Tool
	UI         *ui.Printer

	// In/Out drive the inspection loop; tests script them.
	In  io.Reader
	Out io.Writer

	hookRunner *hook.Runner
}

// Run executes one publish attempt. Any error aborts without promoting:
// the staging tag stays behind as the durable record of work in progress.
func (p *Publisher) Run(ctx context.Context, opts Options) error {
	topic := opts.Topic
	if topic == "" {
		var err error
		if topic, err = p.Repo.CurrentBranch(ctx); err != nil {
			return err
		}
	}

	topLevel, err := p.Repo.TopLevel(ctx)
	if err != nil {
		return err
	}

	profileName := opts.Profile
	if profileName == "" {
		profileName = p.Tool.Profile
	}
	profile, err := config.LoadProfile(ctx, p.Repo, topLevel, profileName)
	if err != nil {
		return err
	}

	base, err := p.resolveBase(ctx, topic, opts.Base, profile)
	if err != nil {
		return err
	}

	to, cc, err := p.Recipients.Resolve(ctx, topic, recipients.Options{
		CmdlineTo:  opts.To,
		CmdlineCc:  opts.Cc,
		ProfileTo:  profile.To,
		ProfileCc:  profile.Cc,
		OverrideTo: opts.OverrideTo,
		OverrideCc: opts.OverrideCc,
		ForgetCc:   opts.ForgetCc,
		EditOnly:   opts.EditOnly,
	})
	if err != nil {
		return err
	}

	number := opts.Number
	if number == 0 {
		if number, err = p.Tags.NextNumber(ctx, topic); err != nil {
			return err
		}
	}
	p.UI.Revision(topic, number)

	msg, err := p.composeMessage(ctx, topic, base, to, cc, number, opts)
	if err != nil {
		return err
	}

	if err := p.hooks(ctx).Run(ctx, hook.PreTag, base); err != nil {
		return err
	}

	annotate := opts.Annotate || len(msg) > 0
	if opts.PullRequest {
		if err := p.Tags.StagePullRequest(ctx, topic, msg, annotate); err != nil {
			return err
		}
	} else {
		if err := p.Tags.Stage(ctx, topic, msg, annotate); err != nil {
			return err
		}
		p.UI.Staged(tags.Staging(topic))
	}

	if opts.EditOnly {
		return nil
	}

	if opts.PullRequest {
		remote, _ := config.First(config.Static(profile.Remote), config.Static("origin"))
		if err := p.Tags.PushPullRequest(ctx, remote, topic); err != nil {
			return err
		}
		p.UI.Pushed(remote, tags.PullRequest(topic))
		return p.persistBase(ctx, topic, base)
	}

	if err := p.emailFlow(ctx, topic, base, number, msg, to, cc, profile, opts); err != nil {
		return err
	}

	if err := p.Tags.Promote(ctx, topic, number); err != nil {
		return err
	}
	p.UI.Published(tags.Versioned(topic, number))
	return p.persistBase(ctx, topic, base)
}

// resolveBase applies the layered lookup for the base branch and verifies
// it resolves.
func (p *Publisher) resolveBase(ctx context.Context, topic, cmdline string, profile config.Profile) (string, error) {
	base, _ := config.First(
		config.Static(cmdline),
		func() (string, bool) {
			v, ok, err := p.Repo.ConfigGet(ctx, "branch."+topic+".pulsarbase")
			return v, ok && err == nil
		},
		config.Static(profile.Base),
		config.Static("master"),
	)
	if base == topic {
		return "", fmt.Errorf("base branch %q is the topic branch itself; pass --base", base)
	}
	if !p.Repo.RefExists(ctx, base) {
		return "", fmt.Errorf("base branch %q not found; pass --base, set branch.%s.pulsarbase, or add base to the profile", base, topic)
	}
	return base, nil
}

// composeMessage produces the stored tag message for this revision. With
// --no-message the current template is reused without editing; otherwise
// the user edits the template plus commented context, and an empty result
// aborts.
func (p *Publisher) composeMessage(ctx context.Context, topic, base string, to, cc []string, number int, opts Options) ([]string, error) {
	template, err := p.Composer.TemplateFor(ctx, topic)
	if err != nil {
		return nil, err
	}
	if opts.NoMessage {
		return message.StripComments(template), nil
	}

	lines, err := p.Composer.AugmentWithContext(ctx, template, base, topic, to, cc, opts.InReplyTo, number)
	if err != nil {
		return nil, err
	}
	edited, err := p.Composer.EditInteractively(ctx, lines)
	if err != nil {
		return nil, err
	}
	msg := message.StripComments(edited)
	if message.Empty(msg) {
		return nil, ErrEmptyMessage
	}
	return msg, nil
}

// emailFlow formats the batch, rewrites the cover letter, runs the
// pre-send hook with drift detection, persists recipients, mediates the
// inspection loop, and dispatches the mail.
func (p *Publisher) emailFlow(ctx context.Context, topic, base string, number int, msg, to, cc []string, profile config.Profile, opts Options) error {
	outputDir, err := os.MkdirTemp("", "pulsar-patches-")
	if err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}
	defer os.RemoveAll(outputDir)

	prefix := p.subjectPrefix(ctx, topic, number, opts.SubjectPrefix, profile)

	files, err := p.Assembler.Assemble(ctx, base, topic, patches.Options{
		OutputDir:     outputDir,
		SubjectPrefix: prefix,
		Cover:         opts.Cover,
		Signoff:       opts.Signoff || profile.Signoff,
		Notes:         opts.Notes || profile.Notes,
		NoBinary:      opts.NoBinary,
		Headers:       opts.Headers,
		Skip:          opts.Skip,
	})
	if err != nil {
		return err
	}

	if cover := coverFile(files); cover != "" && !message.Empty(msg) {
		subject, blurb := message.SubjectBlurb(msg)
		if err := message.RenderCoverLetter(cover, subject, blurb); err != nil {
			return err
		}
	}

	if err := p.Recipients.Persist(ctx, topic, to, cc, opts.OverrideCc); err != nil {
		return err
	}

	if err := p.preSendHook(ctx, outputDir); err != nil {
		return err
	}

	suppressCc, _ := config.First(config.Static(opts.SuppressCc), config.Static(profile.SuppressCc))
	sendOpts := dispatch.Options{
		To:         to,
		Cc:         cc,
		SuppressCc: suppressCc,
		InReplyTo:  opts.InReplyTo,
		NoThread:   opts.NoThread,
		Separate:   opts.SeparateSend,
	}

	if opts.Inspect {
		loop := &inspect.Loop{
			In:        p.In,
			Out:       p.Out,
			EditLines: p.Composer.EditInteractively,
			EditFiles: func(ctx context.Context, paths ...string) error {
				if p.Editor == nil {
					return editor.ErrNoEditor
				}
				return p.Editor.Edit(ctx, paths...)
			},
			DryRun: func(ctx context.Context, to, cc, files []string) (string, error) {
				o := sendOpts
				o.To, o.Cc = to, cc
				return p.Dispatcher.DryRun(ctx, o, files)
			},
			Persist: func(ctx context.Context, to, cc []string) error {
				return p.Recipients.Persist(ctx, topic, to, cc, opts.OverrideCc)
			},
		}
		result, err := loop.Run(ctx, files, to, cc)
		if err != nil {
			if errors.Is(err, inspect.ErrCancelled) {
				p.UI.Cancelled()
			}
			return err
		}
		files, sendOpts.To, sendOpts.Cc = result.Files, result.To, result.Cc
	}

	if err := p.Dispatcher.Send(ctx, sendOpts, files); err != nil {
		return err
	}
	return nil
}

// preSendHook runs the pre-send hook over the staging directory and fails
// the publish when the hook changes the patch file set.
func (p *Publisher) preSendHook(ctx context.Context, outputDir string) error {
	before, err := patches.Snapshot(outputDir)
	if err != nil {
		return err
	}
	observer := patches.Observe(outputDir)
	hookErr := p.hooks(ctx).Run(ctx, hook.PreSend, outputDir)
	events := observer.Stop()
	if hookErr != nil {
		return hookErr
	}
	after, err := patches.Snapshot(outputDir)
	if err != nil {
		return err
	}
	return patches.CheckDrift(before, after, events)
}

// subjectPrefix resolves the layered prefix and appends the revision
// marker for bumped series ("PATCH" -> "PATCH v3").
func (p *Publisher) subjectPrefix(ctx context.Context, topic string, number int, cmdline string, profile config.Profile) string {
	prefix, _ := config.First(
		config.Static(cmdline),
		func() (string, bool) {
			v, ok, err := p.Repo.ConfigGet(ctx, "branch."+topic+".pulsarprefix")
			return v, ok && err == nil
		},
		config.Static(profile.Prefix),
		config.Static(p.Tool.SubjectPrefix),
	)
	if number > 1 {
		prefix = fmt.Sprintf("%s v%d", prefix, number)
	}
	return prefix
}

// hooks lazily builds the hook runner, memoized for the run. A repository
// whose hook directory cannot be resolved publishes without hooks, with a
// warning.
func (p *Publisher) hooks(ctx context.Context) *hook.Runner {
	if p.hookRunner != nil {
		return p.hookRunner
	}
	dir, err := p.Repo.HookDir(ctx)
	if err != nil {
		p.UI.Warn("hooks disabled, cannot resolve hook directory: %v", err)
		dir = string(filepath.Separator) + "nonexistent"
	}
	p.hookRunner = hook.NewRunner(dir)
	return p.hookRunner
}

// persistBase records the resolved base branch for the next revision.
func (p *Publisher) persistBase(ctx context.Context, topic, base string) error {
	return p.Repo.ConfigSet(ctx, "branch."+topic+".pulsarbase", base)
}

// coverFile returns the cover letter path within files, or "" when the
// batch has none (single patch, or skipped away).
func coverFile(files []string) string {
	for _, f := range files {
		if strings.HasPrefix(filepath.Base(f), "0000-") {
			return f
		}
	}
	return ""
}
