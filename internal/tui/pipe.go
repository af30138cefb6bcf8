package tui

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/hasiraza/LLM-Ethicallogix/internal/session"
)

// PipeIO implements IO for non-interactive use. Replies go to the writer,
// diagnostics go to errW. Format "jsonl" emits one JSON object per event.
type PipeIO struct {
	scanner *bufio.Scanner
	format  string
	writer  io.Writer
	errW    io.Writer
	now     func() time.Time
}

var _ IO = (*PipeIO)(nil)

// NewPipeIO creates a PipeIO. An empty format means "text".
func NewPipeIO(in io.Reader, out, errW io.Writer, format string) *PipeIO {
	if format == "" {
		format = "text"
	}
	s := bufio.NewScanner(in)
	s.Buffer(make([]byte, 1024*1024), 1024*1024)
	return &PipeIO{scanner: s, format: format, writer: out, errW: errW, now: time.Now}
}

func (p *PipeIO) ReadInput() (string, error) { return scanLine(p.scanner) }
func (p *PipeIO) ThinkingStart()             {}

func (p *PipeIO) AssistantMessage(name, text, timestamp string) {
	if p.format == "jsonl" {
		p.emitJSONL("reply", map[string]string{
			"assistant": name,
			"response":  text,
			"timestamp": timestamp,
		})
		return
	}
	fmt.Fprintln(p.writer, text)
}

func (p *PipeIO) Sessions(list []session.Summary) {
	if p.format == "jsonl" {
		p.emitJSONL("sessions", list)
		return
	}
	for _, s := range list {
		fmt.Fprintf(p.writer, "%d\t%d\t%s\n", s.ID, s.MessageCount, s.Title)
	}
}

func (p *PipeIO) History(msgs []session.Message, _ string) {
	if p.format == "jsonl" {
		p.emitJSONL("history", msgs)
		return
	}
	for _, m := range msgs {
		fmt.Fprintf(p.writer, "%s\t%s\n", m.Role, m.Content)
	}
}

func (p *PipeIO) SystemMessage(text string) {
	fmt.Fprintln(p.errW, text)
}

func (p *PipeIO) Error(msg string) {
	if p.format == "jsonl" {
		p.emitJSONL("error", map[string]string{"message": msg})
	}
	fmt.Fprintf(p.errW, "error: %s\n", msg)
}

func (p *PipeIO) emitJSONL(eventType string, data any) {
	line, _ := json.Marshal(map[string]any{
		"type":      eventType,
		"timestamp": p.now().UTC().Format(time.RFC3339),
		"data":      data,
	})
	fmt.Fprintln(p.writer, string(line))
}
