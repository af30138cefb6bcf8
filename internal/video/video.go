// Package video recognizes requests for videos in chat messages and finds
// matching YouTube results for them.
package video

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Video is a single search result.
type Video struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Channel  string `json:"channel"`
	Views    string `json:"views"`
	Duration string `json:"duration"`
	Platform string `json:"platform"`
}

var keywords = []string{"video", "youtube", "watch", "movie", "film", "clip", "tutorial"}

var requestPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:video|videos)\b.*\b(?:about|on|for|of)\b`),
	regexp.MustCompile(`(?i)\b(?:show me|find|search)\b.*\bvideo`),
	regexp.MustCompile(`(?i)\byoutube.*\b(?:video|link)`),
	regexp.MustCompile(`(?i)\bwatch.*\bvideo`),
	regexp.MustCompile(`(?i)\bvideo.*\b(?:tutorial|guide|how to)`),
}

// Detect reports whether text asks for video content.
func Detect(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	for _, re := range requestPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

var (
	requestPhrases = regexp.MustCompile(`(?i)\b(?:show me|find|search for|look for|give me|i want|can you)\b`)
	mediaWords     = regexp.MustCompile(`(?i)\b(?:video|videos|youtube|link|links)\b`)
	prepositions   = regexp.MustCompile(`(?i)\b(?:about|on|for|of)\b`)
	punctuation    = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	spaces         = regexp.MustCompile(`\s+`)
)

// ExtractQuery strips request phrasing from text and returns the topic to
// search for. When nothing is left the original text is returned.
func ExtractQuery(text string) string {
	q := requestPhrases.ReplaceAllString(text, "")
	q = mediaWords.ReplaceAllString(q, "")
	q = prepositions.ReplaceAllString(q, "")
	q = punctuation.ReplaceAllString(q, " ")
	q = strings.TrimSpace(spaces.ReplaceAllString(q, " "))
	if q == "" {
		return text
	}
	return q
}

// Format renders videos as a numbered plain-text list for a chat reply.
func Format(videos []Video) string {
	if len(videos) == 0 {
		return "I couldn't find any videos for your search query, but you can search manually on YouTube!"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🎥 I found %d video(s) for you:\n\n", len(videos))
	for i, v := range videos {
		fmt.Fprintf(&b, "%d. %s\n", i+1, v.Title)
		fmt.Fprintf(&b, "   🔗 Link: %s\n", v.URL)
		if v.Channel != "" {
			fmt.Fprintf(&b, "   📺 Channel: %s\n", v.Channel)
		}
		if v.Duration != "" {
			fmt.Fprintf(&b, "   ⏱️ Duration: %s\n", v.Duration)
		}
		if v.Views != "" {
			fmt.Fprintf(&b, "   👀 Views: %s\n", v.Views)
		}
		fmt.Fprintf(&b, "   🎥 Platform: %s\n\n", v.Platform)
	}
	return strings.TrimRight(b.String(), "\n")
}

// titleCase upper-cases the first letter of every word and lower-cases the rest.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	start := true
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		s = s[size:]
		if unicode.IsLetter(r) {
			if start {
				r = unicode.ToUpper(r)
			} else {
				r = unicode.ToLower(r)
			}
			start = false
		} else {
			start = true
		}
		b.WriteRune(r)
	}
	return b.String()
}
