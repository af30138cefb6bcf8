// Package tui defines the IO interface between the chat loop and the
// terminal, plus PlainIO (interactive, styled) and PipeIO (scripts and CI).
package tui

import "github.com/hasiraza/LLM-Ethicallogix/internal/session"

// IO is the contract between the chat loop and the UI layer.
type IO interface {
	// ReadInput blocks until the user submits a line of input.
	// Returns ("", io.EOF) when input is exhausted.
	ReadInput() (string, error)

	// ThinkingStart signals that a reply is being generated.
	ThinkingStart()

	// AssistantMessage displays one assistant reply with its HH:MM timestamp.
	AssistantMessage(name, text, timestamp string)

	// Sessions renders the session listing.
	Sessions(list []session.Summary)

	// History replays the messages of the current session.
	History(msgs []session.Message, assistant string)

	// SystemMessage displays a notice such as "New session started".
	SystemMessage(text string)

	// Error displays an error message with prominent styling.
	Error(msg string)
}
