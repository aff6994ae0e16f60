// Package recipients maintains the To/Cc address sets for a topic,
// persisted in per-branch git config so they survive to the next revision
// without being re-typed.
package recipients

import (
	"context"

	"github.com/papapumpkin/pulsar/internal/gitcli"
)

// Store reads and writes recipient lists in per-branch git config.
type Store struct {
	repo *gitcli.Repo
}

// NewStore returns a Store operating on repo.
func NewStore(repo *gitcli.Repo) *Store {
	return &Store{repo: repo}
}

func toKey(topic string) string { return "branch." + topic + ".pulsarto" }
func ccKey(topic string) string { return "branch." + topic + ".pulsarcc" }

// Options controls how recipient lists resolve for one run.
type Options struct {
	CmdlineTo []string
	CmdlineCc []string
	// ProfileTo/ProfileCc come from the active profile.
	ProfileTo []string
	ProfileCc []string
	// OverrideTo/OverrideCc skip the persisted and profile lists for this
	// run without deleting anything.
	OverrideTo bool
	OverrideCc bool
	// ForgetCc deletes the persisted Cc list before resolving.
	ForgetCc bool
	// EditOnly restricts resolution to the command line.
	EditOnly bool
}

// Resolve produces the To and Cc sets for a run. Each set starts from the
// command line; unless the run is edit-only or the matching override flag
// is set, the branch-persisted list and then the profile list are unioned
// in. Order is first-seen, duplicates dropped.
func (s *Store) Resolve(ctx context.Context, topic string, opts Options) (to, cc []string, err error) {
	if opts.ForgetCc {
		if err := s.repo.ConfigUnset(ctx, ccKey(topic)); err != nil {
			return nil, nil, err
		}
	}

	to = append([]string{}, opts.CmdlineTo...)
	if !opts.EditOnly && !opts.OverrideTo {
		persisted, err := s.repo.ConfigGetAll(ctx, toKey(topic))
		if err != nil {
			return nil, nil, err
		}
		to = union(to, persisted, opts.ProfileTo)
	}

	cc = append([]string{}, opts.CmdlineCc...)
	if !opts.EditOnly && !opts.OverrideCc {
		persisted, err := s.repo.ConfigGetAll(ctx, ccKey(topic))
		if err != nil {
			return nil, nil, err
		}
		cc = union(cc, persisted, opts.ProfileCc)
	}

	return dedupe(to), dedupe(cc), nil
}

// Persist writes the resolved To list and, unless overrideCc is set, the
// Cc list into branch config. Called again after every interactive list
// edit so a later cancel cannot lose the edit.
func (s *Store) Persist(ctx context.Context, topic string, to, cc []string, overrideCc bool) error {
	if err := s.repo.ConfigSetAll(ctx, toKey(topic), to); err != nil {
		return err
	}
	if overrideCc {
		return nil
	}
	return s.repo.ConfigSetAll(ctx, ccKey(topic), cc)
}

func union(base []string, more ...[]string) []string {
	out := base
	for _, list := range more {
		out = append(out, list...)
	}
	return out
}

func dedupe(list []string) []string {
	seen := make(map[string]bool, len(list))
	var out []string
	for _, a := range list {
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}

// Subtract returns the addresses in cc that do not already appear in to.
// The send step uses this so no address lands in both clauses.
func Subtract(cc, to []string) []string {
	inTo := make(map[string]bool, len(to))
	for _, a := range to {
		inTo[a] = true
	}
	var out []string
	for _, a := range cc {
		if !inTo[a] {
			out = append(out, a)
		}
	}
	return out
}
