// Package patches turns a commit range into an ordered batch of patch
// files via git format-patch and guards the batch against unexpected
// mutation by hooks.
package patches

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/papapumpkin/pulsar/internal/gitcli"
)

// CoverMode controls whether a cover letter is requested.
type CoverMode int

const (
	// CoverAuto requests a cover letter when the range has more than one
	// commit.
	CoverAuto CoverMode = iota
	CoverAlways
	CoverNever
)

// Options configures one format-patch invocation.
type Options struct {
	OutputDir     string
	SubjectPrefix string
	Cover         CoverMode
	Signoff       bool
	Notes         bool
	NoBinary      bool
	Headers       []string
	// Skip drops this many leading files from the sorted batch (the cover
	// letter and/or earliest patches). The files stay on disk.
	Skip int
}

// Assembler produces patch batches.
type Assembler struct {
	repo *gitcli.Repo
}

// NewAssembler returns an Assembler operating on repo.
func NewAssembler(repo *gitcli.Repo) *Assembler {
	return &Assembler{repo: repo}
}

// Assemble renders base..topic into one file per commit plus an optional
// leading cover letter, returning the sorted file paths after applying
// Skip. Patches are numbered when the range has more than one commit or a
// cover letter is produced, so a lone patch under a cover letter still
// reads "1/1".
func (a *Assembler) Assemble(ctx context.Context, base, topic string, opts Options) ([]string, error) {
	revRange := base + ".." + topic
	n, err := a.repo.CommitCount(ctx, revRange)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("no commits in %s", revRange)
	}

	cover := opts.Cover == CoverAlways || (opts.Cover == CoverAuto && n > 1)
	numbered := n > 1 || cover

	args := []string{"format-patch", "--output-directory", opts.OutputDir}
	if numbered {
		args = append(args, "--numbered")
	}
	if cover {
		args = append(args, "--cover-letter")
	}
	if opts.SubjectPrefix != "" {
		args = append(args, "--subject-prefix="+opts.SubjectPrefix)
	}
	if opts.Signoff {
		args = append(args, "--signoff")
	}
	if opts.Notes {
		args = append(args, "--notes")
	}
	if opts.NoBinary {
		args = append(args, "--no-binary")
	}
	for _, h := range opts.Headers {
		args = append(args, "--add-header="+h)
	}
	args = append(args, revRange)

	if _, err := a.repo.Runner().Run(ctx, args...); err != nil {
		return nil, err
	}

	files, err := List(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	if opts.Skip > 0 {
		if opts.Skip >= len(files) {
			return nil, fmt.Errorf("skip=%d leaves no patches to send (batch has %d)", opts.Skip, len(files))
		}
		files = files[opts.Skip:]
	}
	return files, nil
}

// List returns the patch files in dir, lexicographically sorted, as full
// paths.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".patch") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
