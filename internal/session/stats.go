package session

// Stats is the aggregate view served to callers.
type Stats struct {
	TotalSessions          int       `json:"total_sessions"`
	TotalMessages          int       `json:"total_messages"`
	CurrentSessionMessages int       `json:"current_session_messages"`
	Sessions               []Summary `json:"sessions_summary"`
}

// ComputeStatistics derives Stats from doc without consulting any stored
// counters.
func ComputeStatistics(doc *Document) Stats {
	st := Stats{
		TotalSessions: len(doc.Sessions),
		Sessions:      make([]Summary, 0, len(doc.Sessions)),
	}
	for _, s := range doc.Sessions {
		st.TotalMessages += len(s.Messages)
		sum := s.Summary()
		sum.IsCurrent = s == doc.Current
		st.Sessions = append(st.Sessions, sum)
	}
	if doc.Current != nil {
		st.CurrentSessionMessages = len(doc.Current.Messages)
	}
	return st
}
