package chat

import (
	"strings"

	"github.com/hasiraza/LLM-Ethicallogix/internal/session"
)

const defaultPersona = "You are %s, a friendly and helpful AI assistant made by Ethicallogix. " +
	"Answer in plain text without markdown formatting."

// buildPrompt renders the persona line, the history window (which ends with
// the current user message), optional video results, and a reply cue.
func buildPrompt(persona, assistant string, window []session.Message, videos string) string {
	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\nRecent conversation:\n")
	for _, m := range window {
		if m.Role == session.RoleUser {
			b.WriteString("You: ")
		} else {
			b.WriteString(assistant)
			b.WriteString(": ")
		}
		b.WriteString(m.Content)
		b.WriteByte('\n')
	}
	if videos != "" {
		b.WriteString("\nThe user asked for videos. These search results are shown to them above your reply:\n")
		b.WriteString(videos)
		b.WriteString("\nAdd a short helpful response with context about these videos.\n")
	}
	b.WriteByte('\n')
	b.WriteString(assistant)
	b.WriteByte(':')
	return b.String()
}
