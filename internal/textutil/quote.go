package textutil

import (
	"regexp"
	"strings"
)

// replyHeaderPattern matches the attribution line mail clients put above
// a quoted message, e.g. "On Tue, Mar 3, 2026 at 9:14 AM Sawyer <s@x.com> wrote:".
var replyHeaderPattern = regexp.MustCompile(`(?i)^on\b.+\bwrote:\s*$`)

// StripQuoted removes quoted history from a reply body: lines starting
// with ">" and everything from a reply attribution line or an
// "-----Original Message-----" separator onwards.
func StripQuoted(body string) string {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if replyHeaderPattern.MatchString(trimmed) ||
			strings.HasPrefix(trimmed, "-----Original Message-----") {
			break
		}
		if strings.HasPrefix(trimmed, ">") {
			continue
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// Snippet collapses text to a single line of at most n runes, adding an
// ellipsis when it had to cut.
func Snippet(text string, n int) string {
	s := strings.Join(strings.Fields(text), " ")
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}
