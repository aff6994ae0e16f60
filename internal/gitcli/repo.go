package gitcli

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrNoCurrentBranch indicates HEAD is detached or the repository is empty.
var ErrNoCurrentBranch = errors.New("no current branch")

// Repo provides typed git queries and mutations over a Runner. Repository
// facts that cannot change for the life of the process (top-level directory,
// hook directory, git variables) are memoized on first read; pulsar is
// single-threaded so a plain nil check is enough.
type Repo struct {
	run Runner

	topLevel string
	hookDir  string
	vars     map[string]string
}

// NewRepo returns a Repo that issues commands through run.
func NewRepo(run Runner) *Repo {
	return &Repo{run: run, vars: make(map[string]string)}
}

// Runner exposes the underlying runner for collaborators that build their
// own argument lists (format-patch, send-email).
func (r *Repo) Runner() Runner { return r.run }

// CurrentBranch returns the checked-out branch name.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	res, err := r.run.Run(ctx, "symbolic-ref", "--short", "HEAD")
	if err != nil {
		return "", ErrNoCurrentBranch
	}
	return strings.TrimSpace(res.Stdout), nil
}

// TopLevel returns the repository's top-level directory, memoized.
func (r *Repo) TopLevel(ctx context.Context) (string, error) {
	if r.topLevel != "" {
		return r.topLevel, nil
	}
	res, err := r.run.Run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	r.topLevel = strings.TrimSpace(res.Stdout)
	return r.topLevel, nil
}

// HookDir returns the hooks directory, memoized. Relative paths are
// resolved against the top-level directory.
func (r *Repo) HookDir(ctx context.Context) (string, error) {
	if r.hookDir != "" {
		return r.hookDir, nil
	}
	res, err := r.run.Run(ctx, "rev-parse", "--git-path", "hooks")
	if err != nil {
		return "", err
	}
	dir := strings.TrimSpace(res.Stdout)
	if !filepath.IsAbs(dir) {
		top, err := r.TopLevel(ctx)
		if err != nil {
			return "", err
		}
		dir = filepath.Join(top, dir)
	}
	r.hookDir = dir
	return r.hookDir, nil
}

// Var returns a git logical variable (GIT_EDITOR, GIT_AUTHOR_IDENT, ...),
// memoized per name.
func (r *Repo) Var(ctx context.Context, name string) (string, error) {
	if v, ok := r.vars[name]; ok {
		return v, nil
	}
	res, err := r.run.Run(ctx, "var", name)
	if err != nil {
		return "", err
	}
	v := strings.TrimSpace(res.Stdout)
	r.vars[name] = v
	return v, nil
}

// Tags lists tag names matching the glob pattern, in git's sorted order.
func (r *Repo) Tags(ctx context.Context, glob string) ([]string, error) {
	res, err := r.run.Run(ctx, "tag", "-l", glob)
	if err != nil {
		return nil, err
	}
	return res.Lines(), nil
}

// TagExists reports whether the named tag exists.
func (r *Repo) TagExists(ctx context.Context, name string) (bool, error) {
	res, err := r.run.Run(ctx, "tag", "-l", name)
	if err != nil {
		return false, err
	}
	return len(res.Lines()) > 0, nil
}

// TagMessage returns the annotation of the named tag as lines, with
// trailing blank lines trimmed. ok is false when the tag does not exist;
// a missing tag is not an error.
func (r *Repo) TagMessage(ctx context.Context, name string) (lines []string, ok bool, err error) {
	exists, err := r.TagExists(ctx, name)
	if err != nil {
		return nil, false, err
	}
	if !exists {
		return nil, false, nil
	}
	res, err := r.run.Run(ctx, "tag", "-l", "--format=%(contents)", name)
	if err != nil {
		return nil, false, err
	}
	lines = res.Lines()
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines, true, nil
}

// CreateTag creates or force-overwrites a tag at the given commit. When
// msgFile is non-empty the tag is annotated with the file's contents,
// otherwise it is lightweight. commit may be empty for HEAD.
func (r *Repo) CreateTag(ctx context.Context, name, commit, msgFile string, force bool) error {
	args := []string{"tag"}
	if force {
		args = append(args, "-f")
	}
	if msgFile != "" {
		args = append(args, "-a", "-F", msgFile)
	}
	args = append(args, name)
	if commit != "" {
		args = append(args, commit)
	}
	_, err := r.run.Run(ctx, args...)
	return err
}

// DeleteTag removes the named tag.
func (r *Repo) DeleteTag(ctx context.Context, name string) error {
	_, err := r.run.Run(ctx, "tag", "-d", name)
	return err
}

// ResolveCommit resolves ref to the commit it points at, peeling tags.
func (r *Repo) ResolveCommit(ctx context.Context, ref string) (string, error) {
	res, err := r.run.Run(ctx, "rev-parse", ref+"^{commit}")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

// RefExists reports whether ref resolves to an object.
func (r *Repo) RefExists(ctx context.Context, ref string) bool {
	_, err := r.run.Run(ctx, "rev-parse", "--verify", "--quiet", ref)
	return err == nil
}

// CommitCount returns the number of commits in revRange (e.g. "base..topic").
func (r *Repo) CommitCount(ctx context.Context, revRange string) (int, error) {
	res, err := r.run.Run(ctx, "rev-list", "--count", revRange)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(res.Stdout))
}

// LogOneline returns one summary line per commit in revRange.
func (r *Repo) LogOneline(ctx context.Context, revRange string) ([]string, error) {
	res, err := r.run.Run(ctx, "log", "--no-color", "--oneline", revRange)
	if err != nil {
		return nil, err
	}
	return res.Lines(), nil
}

// DiffStat returns the diffstat of revRange.
func (r *Repo) DiffStat(ctx context.Context, revRange string) ([]string, error) {
	res, err := r.run.Run(ctx, "diff", "--no-color", "--stat", revRange)
	if err != nil {
		return nil, err
	}
	return res.Lines(), nil
}

// PushTag force-pushes the named tag to remote.
func (r *Repo) PushTag(ctx context.Context, remote, name string, force bool) error {
	args := []string{"push"}
	if force {
		args = append(args, "-f")
	}
	args = append(args, remote, "tag", name)
	_, err := r.run.Run(ctx, args...)
	return err
}

// ConfigGet returns the value of a config key. ok is false when the key is
// unset; an unset key is not an error.
func (r *Repo) ConfigGet(ctx context.Context, key string) (value string, ok bool, err error) {
	res, err := r.run.Run(ctx, "config", "--get", key)
	if err != nil {
		if res.Code == 1 {
			return "", false, nil
		}
		return "", false, err
	}
	return strings.TrimSpace(res.Stdout), true, nil
}

// ConfigGetAll returns every value of a multi-valued config key, or an
// empty slice when the key is unset.
func (r *Repo) ConfigGetAll(ctx context.Context, key string) ([]string, error) {
	res, err := r.run.Run(ctx, "config", "--get-all", key)
	if err != nil {
		if res.Code == 1 {
			return nil, nil
		}
		return nil, err
	}
	return res.Lines(), nil
}

// ConfigSet sets key to a single value, replacing any existing values.
func (r *Repo) ConfigSet(ctx context.Context, key, value string) error {
	_, err := r.run.Run(ctx, "config", key, value)
	return err
}

// ConfigSetAll replaces all values of a multi-valued key with values.
func (r *Repo) ConfigSetAll(ctx context.Context, key string, values []string) error {
	if err := r.ConfigUnset(ctx, key); err != nil {
		return err
	}
	for _, v := range values {
		if _, err := r.run.Run(ctx, "config", "--add", key, v); err != nil {
			return err
		}
	}
	return nil
}

// ConfigUnset removes every value of a key. Unsetting an absent key is
// not an error.
func (r *Repo) ConfigUnset(ctx context.Context, key string) error {
	res, err := r.run.Run(ctx, "config", "--unset-all", key)
	if err != nil && res.Code != 5 {
		return err
	}
	return nil
}
