// Package session holds the conversation data model and the in-memory registry
// that tracks every session plus the currently active one.
package session

import (
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant:
		return true
	}
	return false
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	role := Role(s)
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", s)
	}
	*r = role
	return nil
}

// Message is a single chat message. Messages are never edited after creation.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is one bounded conversation.
type Session struct {
	ID        int64      `json:"id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Title     string     `json:"title"`
	Messages  []Message  `json:"messages"`
}

// Summary is the lightweight listing projection of a session.
type Summary struct {
	ID           int64      `json:"id"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time"`
	Title        string     `json:"title"`
	MessageCount int        `json:"message_count"`
	IsCurrent    bool       `json:"is_current"`
}

const (
	titleMaxRunes = 50
	titleEllipsis = "..."
)

// Open reports whether the session has not been closed yet.
func (s *Session) Open() bool {
	return s.EndTime == nil
}

// Summary returns the listing projection of s.
func (s *Session) Summary() Summary {
	return Summary{
		ID:           s.ID,
		StartTime:    s.StartTime,
		EndTime:      copyTime(s.EndTime),
		Title:        s.Title,
		MessageCount: len(s.Messages),
	}
}

// hasUserMessage reports whether any user message has been recorded.
func (s *Session) hasUserMessage() bool {
	for _, m := range s.Messages {
		if m.Role == RoleUser {
			return true
		}
	}
	return false
}

func (s *Session) clone() *Session {
	c := *s
	c.EndTime = copyTime(s.EndTime)
	c.Messages = append([]Message(nil), s.Messages...)
	return &c
}

// DeriveTitle builds a session title from the first user message.
// Content longer than 50 runes is cut to 47 runes plus "...".
func DeriveTitle(content string) string {
	if utf8.RuneCountInString(content) <= titleMaxRunes {
		return content
	}
	runes := []rune(content)
	return string(runes[:titleMaxRunes-len(titleEllipsis)]) + titleEllipsis
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
