package inspect

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

// session builds a Loop with scripted input and recording collaborators.
type session struct {
	loop      *Loop
	out       *bytes.Buffer
	dryRuns   int
	persisted [][]string // appended [to..., "|", cc...] on each persist
	editQueue [][]string // successive EditLines results
	edited    []string   // files passed to EditFiles
}

func newSession(input string) *session {
	s := &session{out: &bytes.Buffer{}}
	s.loop = &Loop{
		In:  strings.NewReader(input),
		Out: s.out,
		EditLines: func(_ context.Context, lines []string) ([]string, error) {
			if len(s.editQueue) == 0 {
				return lines, nil
			}
			next := s.editQueue[0]
			s.editQueue = s.editQueue[1:]
			return next, nil
		},
		EditFiles: func(_ context.Context, paths ...string) error {
			s.edited = append(s.edited, paths...)
			return nil
		},
		DryRun: func(_ context.Context, to, cc, files []string) (string, error) {
			s.dryRuns++
			return "would send to " + strings.Join(to, ", "), nil
		},
		Persist: func(_ context.Context, to, cc []string) error {
			record := append(append([]string{}, to...), "|")
			s.persisted = append(s.persisted, append(record, cc...))
			return nil
		},
	}
	return s
}

func TestRun(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	files := []string{"/p/0000-cover-letter.patch", "/p/0001-a.patch", "/p/0002-b.patch"}

	t.Run("SendAll", func(t *testing.T) {
		t.Parallel()
		s := newSession("y\n")
		res, err := s.loop.Run(ctx, files, []string{"to@x"}, []string{"cc@x"})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(res.Files) != 3 {
			t.Errorf("Files = %v", res.Files)
		}
		if s.dryRuns != 1 {
			t.Errorf("dry runs = %d, want 1 on entry", s.dryRuns)
		}
		if !strings.Contains(s.out.String(), "would send to to@x") {
			t.Error("dry-run diagnostics not displayed")
		}
	})

	t.Run("Cancel", func(t *testing.T) {
		t.Parallel()
		s := newSession("n\n")
		_, err := s.loop.Run(ctx, files, nil, nil)
		if !errors.Is(err, ErrCancelled) {
			t.Errorf("Run() error = %v, want ErrCancelled", err)
		}
		if len(s.persisted) != 0 {
			t.Errorf("cancel persisted %v", s.persisted)
		}
	})

	t.Run("EOFCancels", func(t *testing.T) {
		t.Parallel()
		s := newSession("")
		if _, err := s.loop.Run(ctx, files, nil, nil); !errors.Is(err, ErrCancelled) {
			t.Errorf("Run() error = %v, want ErrCancelled", err)
		}
	})

	t.Run("EditCcPersistsImmediately", func(t *testing.T) {
		t.Parallel()
		s := newSession("c\ny\n")
		s.editQueue = [][]string{{"new-cc@x"}}
		res, err := s.loop.Run(ctx, files, []string{"to@x"}, []string{"old-cc@x"})
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Cc) != 1 || res.Cc[0] != "new-cc@x" {
			t.Errorf("Cc = %v", res.Cc)
		}
		if len(s.persisted) != 1 {
			t.Fatalf("persist calls = %d, want 1", len(s.persisted))
		}
		if s.dryRuns != 2 {
			t.Errorf("dry runs = %d, want recompute after edit", s.dryRuns)
		}
	})

	t.Run("EditToStripsComments", func(t *testing.T) {
		t.Parallel()
		s := newSession("t\ny\n")
		s.editQueue = [][]string{{"# header comment", "kept@x", "", "  spaced@x  "}}
		res, err := s.loop.Run(ctx, files, []string{"old@x"}, nil)
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"kept@x", "spaced@x"}
		if strings.Join(res.To, ",") != strings.Join(want, ",") {
			t.Errorf("To = %v, want %v", res.To, want)
		}
	})

	t.Run("SelectSubsetPrunesAndReorders", func(t *testing.T) {
		t.Parallel()
		s := newSession("s\ny\n")
		s.editQueue = [][]string{{files[2], files[0]}}
		res, err := s.loop.Run(ctx, files, nil, nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Files) != 2 || res.Files[0] != files[2] || res.Files[1] != files[0] {
			t.Errorf("Files = %v, want reordered subset", res.Files)
		}
	})

	t.Run("SelectUnknownLinesDropped", func(t *testing.T) {
		t.Parallel()
		s := newSession("s\ny\n")
		s.editQueue = [][]string{{files[1], "/made/up.patch"}}
		res, err := s.loop.Run(ctx, files, nil, nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Files) != 1 || res.Files[0] != files[1] {
			t.Errorf("Files = %v", res.Files)
		}
	})

	t.Run("EmptySelectionKeepsList", func(t *testing.T) {
		t.Parallel()
		s := newSession("s\ny\n")
		s.editQueue = [][]string{{"# nothing kept"}}
		res, err := s.loop.Run(ctx, files, nil, nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Files) != 3 {
			t.Errorf("Files = %v, want original list kept", res.Files)
		}
	})

	t.Run("EditPatchesOpensAllFiles", func(t *testing.T) {
		t.Parallel()
		s := newSession("e\ny\n")
		if _, err := s.loop.Run(ctx, files, nil, nil); err != nil {
			t.Fatal(err)
		}
		if len(s.edited) != 3 {
			t.Errorf("edited files = %v", s.edited)
		}
	})

	t.Run("ReprintAndUnknownInputStayReviewing", func(t *testing.T) {
		t.Parallel()
		s := newSession("p\nzz\ny\n")
		if _, err := s.loop.Run(ctx, files, nil, nil); err != nil {
			t.Fatal(err)
		}
		// Three prompts: initial, after reprint, after unknown input.
		if got := strings.Count(s.out.String(), "[y] send all"); got != 3 {
			t.Errorf("prompt shown %d times, want 3", got)
		}
	})
}

func TestCommand(t *testing.T) {
	t.Parallel()

	cases := map[string]State{
		"y":  StateSending,
		"Y":  StateSending,
		"n":  StateCancelled,
		"q":  StateCancelled,
		"t":  StateEditingTo,
		"c":  StateEditingCc,
		"e":  StateEditingPatches,
		"s":  StateSelectingPatches,
		"p":  StatePrinting,
		"":   StateReviewing,
		"??": StateReviewing,
	}
	for input, want := range cases {
		if got := command(input); got != want {
			t.Errorf("command(%q) = %v, want %v", input, got, want)
		}
	}
}
