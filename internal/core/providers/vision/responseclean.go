package vision

import (
	"regexp"
	"strings"
)

var (
	thinkBlockRe = regexp.MustCompile(`(?is)<think>.*?</think>`)

	// Reasoning models occasionally leak meta commentary ahead of the
	// actual answer; strip the known openers through their first blank line.
	metaPreambleRes = []*regexp.Regexp{
		regexp.MustCompile(`(?is)^\s*the\s+user\s+is\s+asking\s+me.*?(\n\n|$)`),
		regexp.MustCompile(`(?is)^\s*i\s+can\s+see\s+the\s+image.*?(\n\n|$)`),
		regexp.MustCompile(`(?is)^\s*i\s+should\b.*?(\n\n|$)`),
		regexp.MustCompile(`(?is)^\s*based\s+on\s+the\s+.*?(\n\n|$)`),
	}

	blankRunRe = regexp.MustCompile(`\n{3,}`)
)

// CleanModelText removes hidden reasoning blocks and meta preambles from a
// model answer and collapses runs of blank lines.
func CleanModelText(text string) string {
	text = thinkBlockRe.ReplaceAllString(text, "")
	for _, re := range metaPreambleRes {
		text = re.ReplaceAllString(text, "")
	}
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
