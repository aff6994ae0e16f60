package message

import (
	"context"
	"strings"
	"testing"

	"github.com/papapumpkin/pulsar/internal/gitcli"
	"github.com/papapumpkin/pulsar/internal/tags"
)

// fakeGit serves canned results keyed on the joined argument string.
type fakeGit struct {
	results map[string]gitcli.Result
}

func (f *fakeGit) Run(_ context.Context, args ...string) (gitcli.Result, error) {
	key := strings.Join(args, " ")
	if res, ok := f.results[key]; ok {
		return res, nil
	}
	// Unmatched tag listings read as empty, like a repo without the tag.
	if args[0] == "tag" {
		return gitcli.Result{}, nil
	}
	return gitcli.Result{Code: 1}, &gitcli.GitError{Args: args}
}

func newComposer(f *fakeGit) *Composer {
	repo := gitcli.NewRepo(f)
	return NewComposer(repo, tags.NewManager(repo), nil)
}

func TestTemplateFor(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("StagingMessageWins", func(t *testing.T) {
		t.Parallel()
		c := newComposer(&fakeGit{results: map[string]gitcli.Result{
			"tag -l feature-staging": {Stdout: "feature-staging\n"},
			"tag -l --format=%(contents) feature-staging": {Stdout: "pending subject\n\npending body\n"},
			"tag -l feature-v*": {Stdout: "feature-v1\n"},
		}})
		lines, err := c.TemplateFor(ctx, "feature")
		if err != nil {
			t.Fatal(err)
		}
		if lines[0] != "pending subject" {
			t.Errorf("template = %v, want staging message first", lines)
		}
	})

	t.Run("FallsBackToLatestVersioned", func(t *testing.T) {
		t.Parallel()
		c := newComposer(&fakeGit{results: map[string]gitcli.Result{
			"tag -l feature-v*": {Stdout: "feature-v1\nfeature-v2\n"},
			"tag -l feature-v2": {Stdout: "feature-v2\n"},
			"tag -l --format=%(contents) feature-v2": {Stdout: "v2 subject\n"},
		}})
		lines, err := c.TemplateFor(ctx, "feature")
		if err != nil {
			t.Fatal(err)
		}
		if len(lines) != 1 || lines[0] != "v2 subject" {
			t.Errorf("template = %v, want [v2 subject]", lines)
		}
	})

	t.Run("DefaultTemplate", func(t *testing.T) {
		t.Parallel()
		c := newComposer(&fakeGit{results: map[string]gitcli.Result{}})
		lines, err := c.TemplateFor(ctx, "feature")
		if err != nil {
			t.Fatal(err)
		}
		if len(lines) != 3 || lines[0] != SubjectPlaceholder || lines[2] != BlurbPlaceholder {
			t.Errorf("template = %v, want default placeholders", lines)
		}
	})
}

func TestAugmentWithContext(t *testing.T) {
	t.Parallel()

	c := newComposer(&fakeGit{results: map[string]gitcli.Result{
		"log --no-color --oneline master..feature": {Stdout: "abc123 first\ndef456 second\n"},
		"diff --no-color --stat master..feature":   {Stdout: " file.c | 2 +-\n"},
	}})
	lines, err := c.AugmentWithContext(context.Background(), []string{"subject"},
		"master", "feature", []string{"to@x"}, []string{"cc@x"}, "msgid@x", 3)
	if err != nil {
		t.Fatal(err)
	}

	joined := strings.Join(lines, "\n")
	for _, want := range []string{
		"# feature revision v3",
		"# base: master",
		"# to: to@x",
		"# cc: cc@x",
		"# in-reply-to: msgid@x",
		"# abc123 first",
		"#  file.c | 2 +-",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("augmented message missing %q:\n%s", want, joined)
		}
	}

	// Everything appended must strip back out.
	if got := StripComments(lines); len(got) != 1 || got[0] != "subject" {
		t.Errorf("StripComments(augmented) = %v, want [subject]", got)
	}
}

func TestStripComments(t *testing.T) {
	t.Parallel()

	got := StripComments([]string{"subject", "", "# comment", "body", "# tail", "", ""})
	want := []string{"subject", "", "body"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("StripComments() = %v, want %v", got, want)
	}
}

func TestSubjectBlurb(t *testing.T) {
	t.Parallel()

	t.Run("Split", func(t *testing.T) {
		t.Parallel()
		subject, blurb := SubjectBlurb([]string{"", "the subject", "", "blurb one", "blurb two"})
		if subject != "the subject" {
			t.Errorf("subject = %q", subject)
		}
		if len(blurb) != 2 || blurb[0] != "blurb one" {
			t.Errorf("blurb = %v", blurb)
		}
	})

	t.Run("SubjectOnly", func(t *testing.T) {
		t.Parallel()
		subject, blurb := SubjectBlurb([]string{"only"})
		if subject != "only" || len(blurb) != 0 {
			t.Errorf("SubjectBlurb() = %q, %v", subject, blurb)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		t.Parallel()
		subject, blurb := SubjectBlurb(nil)
		if subject != "" || blurb != nil {
			t.Errorf("SubjectBlurb(nil) = %q, %v", subject, blurb)
		}
	})
}

func TestEmpty(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		lines []string
		want  bool
	}{
		{"Nil", nil, true},
		{"Blanks", []string{"", "  "}, true},
		{"UntouchedPlaceholders", DefaultTemplate(), true},
		{"RealSubject", []string{"fix the frobnicator"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Empty(tc.lines); got != tc.want {
				t.Errorf("Empty(%v) = %v, want %v", tc.lines, got, tc.want)
			}
		})
	}
}
