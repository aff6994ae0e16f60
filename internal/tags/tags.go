// Package tags manages the staging / versioned / pull-request tag state
// machine that records each revision of a patch series.
package tags

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/papapumpkin/pulsar/internal/gitcli"
)

// Tag name suffixes for the three tag roles.
const (
	stagingSuffix     = "-staging"
	pullRequestSuffix = "-pull-request"
)

// Staging returns the ephemeral staging tag name for a topic.
func Staging(topic string) string { return topic + stagingSuffix }

// Versioned returns the permanent tag name for revision n of a topic.
func Versioned(topic string, n int) string { return fmt.Sprintf("%s-v%d", topic, n) }

// PullRequest returns the pull-request tag name for a topic. It is always
// force-overwritten and never promoted to a versioned tag.
func PullRequest(topic string) string { return topic + pullRequestSuffix }

// Manager allocates revision numbers and drives tag transitions.
type Manager struct {
	repo *gitcli.Repo
}

// NewManager returns a Manager operating on repo.
func NewManager(repo *gitcli.Repo) *Manager {
	return &Manager{repo: repo}
}

// NextNumber scans existing <topic>-v<N> tags and returns one plus the
// highest N found, or 1 when the topic has no versioned tags. Tags whose
// suffix is not a positive decimal integer are ignored.
func (m *Manager) NextNumber(ctx context.Context, topic string) (int, error) {
	names, err := m.repo.Tags(ctx, topic+"-v*")
	if err != nil {
		return 0, err
	}
	re := regexp.MustCompile("^" + regexp.QuoteMeta(topic) + `-v([1-9][0-9]*)$`)
	max := 0
	for _, name := range names {
		match := re.FindStringSubmatch(name)
		if match == nil {
			continue
		}
		n, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1, nil
}

// Stage force-creates the staging tag at HEAD. When annotate is true the
// message becomes the tag annotation; otherwise the tag is lightweight.
func (m *Manager) Stage(ctx context.Context, topic string, message []string, annotate bool) error {
	return m.forceTag(ctx, Staging(topic), "", message, annotate)
}

// StagePullRequest force-creates the pull-request tag at HEAD.
func (m *Manager) StagePullRequest(ctx context.Context, topic string, message []string, annotate bool) error {
	return m.forceTag(ctx, PullRequest(topic), "", message, annotate)
}

// PushPullRequest force-pushes the pull-request tag to remote. The tag is
// left in place for later reference.
func (m *Manager) PushPullRequest(ctx context.Context, remote, topic string) error {
	return m.repo.PushTag(ctx, remote, PullRequest(topic), true)
}

// Promote retargets <topic>-v<number> to the staging tag's commit,
// carrying over the staged message, and deletes the staging tag. This is
// the final side effect of a publish and must only run after dispatch
// succeeded; any failure leaves the staging tag intact.
func (m *Manager) Promote(ctx context.Context, topic string, number int) error {
	staging := Staging(topic)

	commit, err := m.repo.ResolveCommit(ctx, staging)
	if err != nil {
		return fmt.Errorf("promoting %s: %w", staging, err)
	}
	message, _, err := m.repo.TagMessage(ctx, staging)
	if err != nil {
		return fmt.Errorf("promoting %s: %w", staging, err)
	}

	if err := m.forceTag(ctx, Versioned(topic, number), commit, message, len(message) > 0); err != nil {
		return err
	}
	return m.repo.DeleteTag(ctx, staging)
}

// StagingMessage returns the staging tag's message, or ok=false when no
// staging tag exists for the topic.
func (m *Manager) StagingMessage(ctx context.Context, topic string) ([]string, bool, error) {
	return m.repo.TagMessage(ctx, Staging(topic))
}

// LatestVersionedMessage returns the message of the most recent versioned
// tag for the topic, or ok=false when none exists.
func (m *Manager) LatestVersionedMessage(ctx context.Context, topic string) ([]string, bool, error) {
	next, err := m.NextNumber(ctx, topic)
	if err != nil {
		return nil, false, err
	}
	if next <= 1 {
		return nil, false, nil
	}
	return m.repo.TagMessage(ctx, Versioned(topic, next-1))
}

// forceTag creates or overwrites a tag, writing the message to a scratch
// file for annotated tags. The scratch file is removed on every path.
func (m *Manager) forceTag(ctx context.Context, name, commit string, message []string, annotate bool) error {
	msgFile := ""
	if annotate {
		f, err := os.CreateTemp("", "pulsar-tag-*.txt")
		if err != nil {
			return fmt.Errorf("creating tag message file: %w", err)
		}
		defer os.Remove(f.Name())
		for _, line := range message {
			if _, err := fmt.Fprintln(f, line); err != nil {
				f.Close()
				return fmt.Errorf("writing tag message file: %w", err)
			}
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("writing tag message file: %w", err)
		}
		msgFile = f.Name()
	}
	return m.repo.CreateTag(ctx, name, commit, msgFile, true)
}
