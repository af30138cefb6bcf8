// Package chat runs conversation turns: it records the user's message, asks
// the model for a reply with recent history as context, and stores both.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hasiraza/LLM-Ethicallogix/internal/session"
	"github.com/hasiraza/LLM-Ethicallogix/internal/video"
)

// FallbackResponse is stored and returned when the model fails or answers
// with nothing usable.
const FallbackResponse = "Sorry, I ran into a problem generating a response. Please try again."

var (
	// ErrEmptyMessage is returned by Send for blank input.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrVideosDisabled is returned by SearchVideos when no searcher is configured.
	ErrVideosDisabled = errors.New("video search is disabled")
)

// Generator produces a reply for a fully formatted prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// VideoSearcher finds videos for a query. Implementations never fail; they
// return suggestions when the real search does not work.
type VideoSearcher interface {
	Search(ctx context.Context, query string, max int) []video.Video
}

// Options configures a Service.
type Options struct {
	AssistantName string
	// SystemPrompt replaces the default persona line when set.
	SystemPrompt string
	// ContextMessages is the history window size (default 10).
	ContextMessages int

	// Videos enables video suggestions for messages that ask for them.
	Videos    VideoSearcher
	MaxVideos int

	Logger *slog.Logger
	// Now is used for reply timestamps (default time.Now).
	Now func() time.Time
}

// Reply is the result of one turn.
type Reply struct {
	Response  string `json:"response"`
	Timestamp string `json:"timestamp"`
}

// LoadResult reports the outcome of LoadSession.
type LoadResult struct {
	Success bool              `json:"success"`
	History []session.Message `json:"history,omitempty"`
	Message string            `json:"message"`
}

// Service is the conversation façade used by the CLI and HTTP API.
type Service struct {
	reg  *session.Registry
	gen  Generator
	opts Options

	// turnMu serializes turns and lifecycle changes, so an uncommitted turn is
	// never written by another operation. Reads only take the registry lock.
	turnMu sync.Mutex
}

// New returns a Service over reg that asks gen for replies.
func New(reg *session.Registry, gen Generator, opts Options) *Service {
	if opts.AssistantName == "" {
		opts.AssistantName = "Hasi"
	}
	if opts.ContextMessages <= 0 {
		opts.ContextMessages = session.DefaultContextMessages
	}
	if opts.MaxVideos <= 0 {
		opts.MaxVideos = 3
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{reg: reg, gen: gen, opts: opts}
}

// Send runs one conversation turn. Model failures are absorbed into
// FallbackResponse; storage failures roll the turn back and return an error
// matching session.ErrStorageWrite.
func (s *Service) Send(ctx context.Context, text string) (Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, ErrEmptyMessage
	}

	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	// Writes outlive the caller: a cancelled request still stores its turn.
	persistCtx := context.WithoutCancel(ctx)

	sess, err := s.reg.GetOrCreateActive(persistCtx)
	if err != nil {
		return Reply{}, fmt.Errorf("start session: %w", err)
	}
	cp := s.reg.Checkpoint(sess)
	if _, err := s.reg.Append(sess, session.RoleUser, text); err != nil {
		return Reply{}, fmt.Errorf("record message: %w", err)
	}
	window := s.reg.Window(sess, s.opts.ContextMessages)

	var videoText string
	if s.opts.Videos != nil && video.Detect(text) {
		query := video.ExtractQuery(text)
		s.opts.Logger.Info("video request detected", "session", sess.ID, "query", query)
		videoText = video.Format(s.opts.Videos.Search(ctx, query, s.opts.MaxVideos))
	}

	prompt := buildPrompt(s.persona(), s.opts.AssistantName, window, videoText)
	response := s.generate(ctx, sess.ID, prompt)
	if videoText != "" {
		response = videoText + "\n\n" + response
	}
	response = CleanResponse(response)
	if response == "" {
		response = FallbackResponse
	}

	if _, err := s.reg.Append(sess, session.RoleAssistant, response); err != nil {
		s.reg.Rollback(cp)
		return Reply{}, fmt.Errorf("record reply: %w", err)
	}
	if err := s.reg.Commit(persistCtx); err != nil {
		s.reg.Rollback(cp)
		s.opts.Logger.Error("turn rolled back", "session", sess.ID, "err", err)
		return Reply{}, err
	}

	s.opts.Logger.Debug("turn complete", "session", sess.ID, "window", len(window), "reply_chars", len(response))
	return Reply{Response: response, Timestamp: s.opts.Now().Format("15:04")}, nil
}

// generate calls the model and substitutes the fallback text on failure.
func (s *Service) generate(ctx context.Context, sessionID int64, prompt string) string {
	if s.gen == nil {
		s.opts.Logger.Warn("no model configured", "session", sessionID)
		return FallbackResponse
	}
	out, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.opts.Logger.Warn("model generation failed", "session", sessionID, "err", err)
		return FallbackResponse
	}
	if strings.TrimSpace(out) == "" {
		s.opts.Logger.Warn("model returned blank output", "session", sessionID)
		return FallbackResponse
	}
	return out
}

func (s *Service) persona() string {
	if s.opts.SystemPrompt != "" {
		return s.opts.SystemPrompt
	}
	return fmt.Sprintf(defaultPersona, s.opts.AssistantName)
}

// AssistantName is the name replies are attributed to.
func (s *Service) AssistantName() string {
	return s.opts.AssistantName
}

// History returns the messages of the active session.
func (s *Service) History() []session.Message {
	return s.reg.History()
}

// Sessions lists every session, marking the active one.
func (s *Service) Sessions() []session.Summary {
	return s.reg.List()
}

// LoadSession makes session id active. An unknown id is reported in the
// result, not as an error; errors are storage failures.
func (s *Service) LoadSession(ctx context.Context, id int64) (LoadResult, error) {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	if _, err := s.reg.Load(ctx, id); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return LoadResult{Message: fmt.Sprintf("Session %d not found", id)}, nil
		}
		return LoadResult{}, err
	}
	return LoadResult{
		Success: true,
		History: s.reg.History(),
		Message: fmt.Sprintf("Loaded session %d", id),
	}, nil
}

// NewSession closes the active session and starts a fresh one.
func (s *Service) NewSession(ctx context.Context) (session.Summary, error) {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	if _, err := s.reg.StartNew(ctx); err != nil {
		return session.Summary{}, err
	}
	sum, _ := s.reg.Current()
	return sum, nil
}

// CloseSession ends the active session, leaving none active.
func (s *Service) CloseSession(ctx context.Context) error {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()
	return s.reg.CloseCurrent(ctx)
}

// Export returns a snapshot of every stored conversation.
func (s *Service) Export() *session.Document {
	return s.reg.Export()
}

// Stats returns aggregate counts and per-session summaries.
func (s *Service) Stats() session.Stats {
	return s.reg.Stats()
}

// SearchVideos runs a direct video search outside a conversation turn.
func (s *Service) SearchVideos(ctx context.Context, query string) ([]video.Video, error) {
	if s.opts.Videos == nil {
		return nil, ErrVideosDisabled
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyMessage
	}
	return s.opts.Videos.Search(ctx, query, s.opts.MaxVideos), nil
}
