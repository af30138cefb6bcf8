package session

// DefaultContextMessages is the window size used when none is configured.
const DefaultContextMessages = 10

// BuildContext returns the most recent max messages of s, oldest first.
// Sessions shorter than max are returned whole. The result is a copy.
func BuildContext(s *Session, max int) []Message {
	if s == nil {
		return nil
	}
	if max <= 0 {
		max = DefaultContextMessages
	}
	msgs := s.Messages
	if len(msgs) > max {
		msgs = msgs[len(msgs)-max:]
	}
	return append([]Message(nil), msgs...)
}
