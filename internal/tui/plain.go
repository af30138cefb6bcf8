package tui

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/hasiraza/LLM-Ethicallogix/internal/session"
)

const (
	titleWidth  = 40
	timeLayout  = "2006-01-02 15:04"
	clockLayout = "15:04"
)

type styles struct {
	prompt    lipgloss.Style
	assistant lipgloss.Style
	user      lipgloss.Style
	system    lipgloss.Style
	err       lipgloss.Style
	dim       lipgloss.Style
	current   lipgloss.Style
}

// newStyles binds every style to r so color is dropped automatically when
// the writer is not a terminal.
func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		prompt: r.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true),
		assistant: r.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true),
		user: r.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true),
		system: r.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true),
		err: r.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),
		dim: r.NewStyle().
			Foreground(lipgloss.Color("245")),
		current: r.NewStyle().
			Foreground(lipgloss.Color("2")).
			Bold(true),
	}
}

// PlainIO implements IO on a line-oriented terminal.
type PlainIO struct {
	scanner *bufio.Scanner
	out     io.Writer
	errW    io.Writer
	st      styles
	mu      sync.Mutex
}

var _ IO = (*PlainIO)(nil)

// NewPlainIO creates a PlainIO reading lines from in. Styling follows the
// color capabilities of out.
func NewPlainIO(in io.Reader, out, errW io.Writer) *PlainIO {
	s := bufio.NewScanner(in)
	s.Buffer(make([]byte, 1024*1024), 1024*1024)
	return &PlainIO{
		scanner: s,
		out:     out,
		errW:    errW,
		st:      newStyles(lipgloss.NewRenderer(out)),
	}
}

func (p *PlainIO) ReadInput() (string, error) {
	p.mu.Lock()
	fmt.Fprint(p.out, "\n"+p.st.prompt.Render("You:")+" ")
	p.mu.Unlock()
	return scanLine(p.scanner)
}

func (p *PlainIO) ThinkingStart() {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, p.st.dim.Render("thinking..."))
}

func (p *PlainIO) AssistantMessage(name, text, timestamp string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	header := p.st.assistant.Render(name + ":")
	if timestamp != "" {
		header += " " + p.st.dim.Render("["+timestamp+"]")
	}
	fmt.Fprintf(p.out, "%s\n%s\n", header, text)
}

func (p *PlainIO) Sessions(list []session.Summary) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(list) == 0 {
		fmt.Fprintln(p.out, p.st.system.Render("No sessions yet."))
		return
	}
	for _, s := range list {
		marker := "  "
		if s.IsCurrent {
			marker = p.st.current.Render("* ")
		}
		title := s.Title
		if title == "" {
			title = "(untitled)"
		}
		status := "open"
		if s.EndTime != nil {
			status = "closed " + s.EndTime.Local().Format(timeLayout)
		}
		fmt.Fprintf(p.out, "%s%3d  %-*s  %3d msgs  %s\n",
			marker, s.ID, titleWidth, truncate(title, titleWidth),
			s.MessageCount,
			p.st.dim.Render(s.StartTime.Local().Format(timeLayout)+", "+status))
	}
}

func (p *PlainIO) History(msgs []session.Message, assistant string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(msgs) == 0 {
		fmt.Fprintln(p.out, p.st.system.Render("No messages in the current session."))
		return
	}
	for _, m := range msgs {
		ts := p.st.dim.Render("[" + m.Timestamp.Local().Format(clockLayout) + "]")
		label := p.st.user.Render("You:")
		if m.Role == session.RoleAssistant {
			label = p.st.assistant.Render(assistant + ":")
		}
		fmt.Fprintf(p.out, "%s %s %s\n", ts, label, m.Content)
	}
}

func (p *PlainIO) SystemMessage(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, p.st.system.Render(text))
}

func (p *PlainIO) Error(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.errW, p.st.err.Render("error: "+msg))
}

func scanLine(s *bufio.Scanner) (string, error) {
	if !s.Scan() {
		if err := s.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(s.Text()), nil
}

// truncate shortens s to maxLen runes, appending "..." if cut.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
