// Package render produces the human-readable text surfaces: a line-oriented
// unified diff per affected file and an indented call-hierarchy dump.
package render

import (
	"fmt"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// diffContextLines is the number of unchanged lines shown around a change.
const diffContextLines = 3

// UnifiedDiff renders a simple unified diff between a file's before and
// after text. Changed lines are grouped into a single hunk bounded by the
// common prefix and suffix of the two texts, with up to three context lines
// on each side. Identical texts yield an empty string.
func UnifiedDiff(path, before, after string) (string, error) {
	if before == after {
		return "", nil
	}

	beforeLines := splitLines(before)
	afterLines := splitLines(after)

	prefix := 0
	for prefix < len(beforeLines) && prefix < len(afterLines) && beforeLines[prefix] == afterLines[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(beforeLines)-prefix && suffix < len(afterLines)-prefix &&
		beforeLines[len(beforeLines)-1-suffix] == afterLines[len(afterLines)-1-suffix] {
		suffix++
	}

	removed := beforeLines[prefix : len(beforeLines)-suffix]
	added := afterLines[prefix : len(afterLines)-suffix]

	ctxBefore := diffContextLines
	if ctxBefore > prefix {
		ctxBefore = prefix
	}
	ctxAfter := diffContextLines
	if ctxAfter > suffix {
		ctxAfter = suffix
	}

	var body strings.Builder
	for _, line := range beforeLines[prefix-ctxBefore : prefix] {
		body.WriteString(" " + line + "\n")
	}
	for _, line := range removed {
		body.WriteString("-" + line + "\n")
	}
	for _, line := range added {
		body.WriteString("+" + line + "\n")
	}
	for _, line := range beforeLines[len(beforeLines)-suffix : len(beforeLines)-suffix+ctxAfter] {
		body.WriteString(" " + line + "\n")
	}

	fd := &diff.FileDiff{
		OrigName: "a/" + path,
		NewName:  "b/" + path,
		Hunks: []*diff.Hunk{{
			OrigStartLine: int32(prefix - ctxBefore + 1),
			OrigLines:     int32(ctxBefore + len(removed) + ctxAfter),
			NewStartLine:  int32(prefix - ctxBefore + 1),
			NewLines:      int32(ctxBefore + len(added) + ctxAfter),
			Body:          []byte(body.String()),
		}},
	}

	out, err := diff.PrintFileDiff(fd)
	if err != nil {
		return "", fmt.Errorf("failed to render diff for %s: %w", path, err)
	}
	return string(out), nil
}

// splitLines splits text into lines without a trailing phantom element for
// a final newline.
func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
