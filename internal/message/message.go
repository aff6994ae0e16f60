// Package message builds and rewrites the tag messages and cover letters
// that describe a patch series revision.
package message

import (
	"context"
	"fmt"
	"strings"

	"github.com/papapumpkin/pulsar/internal/editor"
	"github.com/papapumpkin/pulsar/internal/gitcli"
	"github.com/papapumpkin/pulsar/internal/tags"
)

// Placeholders emitted by git format-patch cover letters and by the
// default message template.
const (
	SubjectPlaceholder = "*** SUBJECT HERE ***"
	BlurbPlaceholder   = "*** BLURB HERE ***"
)

// DefaultTemplate is the message offered when a topic has no staging tag
// and no prior revision.
func DefaultTemplate() []string {
	return []string{SubjectPlaceholder, "", BlurbPlaceholder}
}

// Composer assembles tag message templates and runs the interactive edit.
type Composer struct {
	repo *gitcli.Repo
	mgr  *tags.Manager
	ed   *editor.Editor
}

// NewComposer returns a Composer. ed may be nil when the caller never
// edits interactively (--no-message).
func NewComposer(repo *gitcli.Repo, mgr *tags.Manager, ed *editor.Editor) *Composer {
	return &Composer{repo: repo, mgr: mgr, ed: ed}
}

// TemplateFor returns the starting message for a topic: the staging tag's
// message when one exists (an edit of a pending revision), else the latest
// versioned tag's message (a bump from the last revision), else the
// default template.
func (c *Composer) TemplateFor(ctx context.Context, topic string) ([]string, error) {
	lines, ok, err := c.mgr.StagingMessage(ctx, topic)
	if err != nil {
		return nil, err
	}
	if ok {
		return lines, nil
	}

	lines, ok, err = c.mgr.LatestVersionedMessage(ctx, topic)
	if err != nil {
		return nil, err
	}
	if ok {
		return lines, nil
	}

	return DefaultTemplate(), nil
}

// AugmentWithContext appends commented context lines: the version number,
// branch names, recipient lists, and a shortlog plus diffstat of
// base..topic. Comments are stripped back out by StripComments after the
// edit, so none of this reaches the stored message.
func (c *Composer) AugmentWithContext(ctx context.Context, lines []string, base, topic string, to, cc []string, inReplyTo string, number int) ([]string, error) {
	out := append([]string{}, lines...)
	out = append(out,
		"",
		fmt.Sprintf("# %s revision v%d", topic, number),
		fmt.Sprintf("# base: %s", base),
		fmt.Sprintf("# topic: %s", topic),
		fmt.Sprintf("# to: %s", strings.Join(to, ", ")),
		fmt.Sprintf("# cc: %s", strings.Join(cc, ", ")),
	)
	if inReplyTo != "" {
		out = append(out, fmt.Sprintf("# in-reply-to: %s", inReplyTo))
	}
	out = append(out,
		"#",
		"# Lines starting with '#' will be removed.",
		"#")

	revRange := base + ".." + topic
	log, err := c.repo.LogOneline(ctx, revRange)
	if err != nil {
		return nil, err
	}
	for _, l := range log {
		out = append(out, "# "+l)
	}
	out = append(out, "#")

	stat, err := c.repo.DiffStat(ctx, revRange)
	if err != nil {
		return nil, err
	}
	for _, l := range stat {
		out = append(out, "# "+l)
	}
	return out, nil
}

// EditInteractively opens the message in the user's editor and returns the
// edited lines verbatim.
func (c *Composer) EditInteractively(ctx context.Context, lines []string) ([]string, error) {
	if c.ed == nil {
		return nil, editor.ErrNoEditor
	}
	return c.ed.EditLines(ctx, lines)
}

// StripComments removes comment lines (leading '#') and trailing blank
// lines, leaving the content stored in the tag.
func StripComments(lines []string) []string {
	var out []string
	for _, l := range lines {
		if strings.HasPrefix(l, "#") {
			continue
		}
		out = append(out, l)
	}
	for len(out) > 0 && strings.TrimSpace(out[len(out)-1]) == "" {
		out = out[:len(out)-1]
	}
	return out
}

// SubjectBlurb splits a stored message into its subject (first non-blank
// line) and blurb (everything after the blank separator).
func SubjectBlurb(lines []string) (subject string, blurb []string) {
	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i == len(lines) {
		return "", nil
	}
	subject = lines[i]
	i++
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	return subject, lines[i:]
}

// Empty reports whether a stored message has no content (only blanks, or
// nothing but the untouched template placeholders).
func Empty(lines []string) bool {
	for _, l := range lines {
		t := strings.TrimSpace(l)
		if t != "" && t != SubjectPlaceholder && t != BlurbPlaceholder {
			return false
		}
	}
	return true
}
