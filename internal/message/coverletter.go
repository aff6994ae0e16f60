package message

import (
	"fmt"
	"mime"
	"os"
	"strings"
)

// RenderCoverLetter substitutes the user's subject and blurb into the
// cover letter file produced by git format-patch. The rewrite is a pure
// text transform: only the two placeholders change, every other byte of
// the file round-trips untouched, and the Subject header stays on a
// single line regardless of length so the external send step never sees a
// re-folded header.
func RenderCoverLetter(path, subject string, blurb []string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading cover letter: %w", err)
	}
	content := string(data)

	header, body, found := strings.Cut(content, "\n\n")
	if !found {
		return fmt.Errorf("cover letter %s: no header/body separator", path)
	}

	header = strings.Replace(header, SubjectPlaceholder, EncodeSubject(subject), 1)
	body = strings.Replace(body, BlurbPlaceholder, strings.Join(blurb, "\n"), 1)

	if err := os.WriteFile(path, []byte(header+"\n\n"+body), 0o644); err != nil {
		return fmt.Errorf("writing cover letter: %w", err)
	}
	return nil
}

// EncodeSubject prepares subject text for inclusion in a Subject header:
// embedded newlines collapse to spaces (headers are single-line) and
// non-ASCII text is RFC 2047 Q-encoded. ASCII subjects pass through
// unchanged.
func EncodeSubject(subject string) string {
	subject = strings.Join(strings.FieldsFunc(subject, func(r rune) bool {
		return r == '\n' || r == '\r'
	}), " ")
	return mime.QEncoding.Encode("utf-8", subject)
}
