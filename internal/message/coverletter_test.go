package message

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCoverLetter = `From 1234567890abcdef Mon Sep 17 00:00:00 2001
From: Dev Eloper <dev@example.org>
Date: Mon, 1 Jun 2026 10:00:00 +0200
Subject: [PATCH 0/2] *** SUBJECT HERE ***

*** BLURB HERE ***

Dev Eloper (2):
  first change
  second change

 file.c | 2 +-
 1 file changed, 1 insertion(+), 1 deletion(-)
`

func writeCover(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "0000-cover-letter.patch")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRenderCoverLetter(t *testing.T) {
	t.Parallel()

	t.Run("AsciiSubjectAndBlurb", func(t *testing.T) {
		t.Parallel()
		path := writeCover(t, sampleCoverLetter)
		if err := RenderCoverLetter(path, "fix the widget", []string{"details", "more details"}); err != nil {
			t.Fatal(err)
		}
		data, _ := os.ReadFile(path)
		out := string(data)

		if !strings.Contains(out, "Subject: [PATCH 0/2] fix the widget\n") {
			t.Errorf("subject not substituted:\n%s", out)
		}
		if !strings.Contains(out, "details\nmore details\n") {
			t.Errorf("blurb not substituted:\n%s", out)
		}
		if strings.Contains(out, SubjectPlaceholder) || strings.Contains(out, BlurbPlaceholder) {
			t.Error("placeholders survived the rewrite")
		}
	})

	t.Run("NonAsciiSubjectStaysSingleLine", func(t *testing.T) {
		t.Parallel()
		path := writeCover(t, sampleCoverLetter)
		if err := RenderCoverLetter(path, "Fix bug (日本語)", []string{"details"}); err != nil {
			t.Fatal(err)
		}
		data, _ := os.ReadFile(path)
		out := string(data)

		var subjectLine string
		for _, line := range strings.Split(out, "\n") {
			if strings.HasPrefix(line, "Subject: ") {
				subjectLine = line
				break
			}
		}
		if subjectLine == "" {
			t.Fatalf("no subject line in output:\n%s", out)
		}
		if !strings.Contains(subjectLine, "=?utf-8?") {
			t.Errorf("non-ASCII subject not RFC 2047 encoded: %q", subjectLine)
		}
		if !strings.Contains(out, "details") {
			t.Error("blurb missing")
		}
	})

	t.Run("OtherBytesUntouched", func(t *testing.T) {
		t.Parallel()
		path := writeCover(t, sampleCoverLetter)
		if err := RenderCoverLetter(path, "subject", []string{"blurb"}); err != nil {
			t.Fatal(err)
		}
		data, _ := os.ReadFile(path)
		out := string(data)

		want := strings.Replace(sampleCoverLetter, SubjectPlaceholder, "subject", 1)
		want = strings.Replace(want, BlurbPlaceholder, "blurb", 1)
		if out != want {
			t.Errorf("rewrite touched bytes outside the placeholders:\ngot:\n%s\nwant:\n%s", out, want)
		}
	})

	t.Run("EmbeddedNewlinesCollapse", func(t *testing.T) {
		t.Parallel()
		path := writeCover(t, sampleCoverLetter)
		if err := RenderCoverLetter(path, "part one\npart two", []string{"blurb"}); err != nil {
			t.Fatal(err)
		}
		data, _ := os.ReadFile(path)
		if !strings.Contains(string(data), "Subject: [PATCH 0/2] part one part two\n") {
			t.Errorf("newlines not collapsed:\n%s", data)
		}
	})

	t.Run("MissingSeparatorFails", func(t *testing.T) {
		t.Parallel()
		path := writeCover(t, "Subject: broken")
		if err := RenderCoverLetter(path, "s", nil); err == nil {
			t.Error("RenderCoverLetter() error = nil, want failure")
		}
	})
}

func TestEncodeSubject(t *testing.T) {
	t.Parallel()

	t.Run("AsciiPassesThrough", func(t *testing.T) {
		t.Parallel()
		if got := EncodeSubject("plain subject"); got != "plain subject" {
			t.Errorf("EncodeSubject() = %q", got)
		}
	})

	t.Run("NonAsciiEncoded", func(t *testing.T) {
		t.Parallel()
		got := EncodeSubject("héllo")
		if !strings.HasPrefix(got, "=?utf-8?") || strings.Contains(got, "\n") {
			t.Errorf("EncodeSubject() = %q", got)
		}
	})
}
