package chat

import (
	"regexp"
	"strings"
)

var (
	strikethrough = regexp.MustCompile(`~~(.+?)~~`)
	emphasis      = regexp.MustCompile(`\*{1,3}([^*]+?)\*{1,3}`)
	strayStars    = regexp.MustCompile(`\*{2,}`)
	inlineCode    = regexp.MustCompile("`([^`]+?)`")
	blankLines    = regexp.MustCompile(`\n\s*\n`)
)

// CleanResponse strips markdown emphasis, strikethrough and inline code
// markers from model output and collapses runs of blank lines.
func CleanResponse(text string) string {
	text = strikethrough.ReplaceAllString(text, "$1")
	text = emphasis.ReplaceAllString(text, "$1")
	text = strayStars.ReplaceAllString(text, "")
	text = inlineCode.ReplaceAllString(text, "$1")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
