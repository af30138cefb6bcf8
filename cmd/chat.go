package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hasiraza/LLM-Ethicallogix/internal/chat"
	"github.com/hasiraza/LLM-Ethicallogix/internal/tui"
	"github.com/hasiraza/LLM-Ethicallogix/internal/video"
)

const chatHelp = `Commands:
  /new          start a new session
  /sessions     list all sessions
  /load <id>    switch to a previous session
  /history      show the current session
  /close        close the current session
  /stats        show conversation statistics
  /videos <q>   search videos
  /exit         quit`

// runChat starts the interactive chat (REPL) mode.
func runChat(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var ui tui.IO
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		ui = tui.NewPlainIO(os.Stdin, os.Stdout, os.Stderr)
		ui.SystemMessage(fmt.Sprintf("%s %s · %s/%s · type /help for commands",
			a.svc.AssistantName(), displayVersion(), a.provider.Name(), a.provider.DefaultModel()))
	} else {
		ui = tui.NewPipeIO(os.Stdin, os.Stdout, os.Stderr, outputFormat)
	}

	r := &repl{svc: a.svc, ui: ui, logger: a.logger, interactive: interactive}
	return r.run(ctx)
}

// repl drives a chat.Service from line input.
type repl struct {
	svc         *chat.Service
	ui          tui.IO
	logger      *slog.Logger
	interactive bool

	// readers tracks input goroutines, which may outlive run.
	readers sync.WaitGroup
}

type inputLine struct {
	text string
	err  error
}

func (r *repl) run(ctx context.Context) error {
	lines := make(chan inputLine, 1)
	next := func() {
		r.readers.Add(1)
		go func() {
			defer r.readers.Done()
			text, err := r.ui.ReadInput()
			lines <- inputLine{text, err}
		}()
	}

	next()
	for {
		var in inputLine
		select {
		case <-ctx.Done():
			return nil
		case in = <-lines:
		}
		if errors.Is(in.err, io.EOF) {
			return nil
		}
		if in.err != nil {
			return fmt.Errorf("read input: %w", in.err)
		}
		if in.text == "" {
			next()
			continue
		}
		if quit := r.handle(ctx, in.text); quit {
			return nil
		}
		next()
	}
}

// handle executes one input line and reports whether the loop should end.
func (r *repl) handle(ctx context.Context, line string) bool {
	if !strings.HasPrefix(line, "/") {
		r.send(ctx, line)
		return false
	}

	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/exit", "/quit":
		return true
	case "/help":
		r.ui.SystemMessage(chatHelp)
	case "/new":
		sum, err := r.svc.NewSession(ctx)
		if err != nil {
			r.fail("new session", err)
			return false
		}
		r.ui.SystemMessage(fmt.Sprintf("New session started (#%d)", sum.ID))
	case "/sessions":
		r.ui.Sessions(r.svc.Sessions())
	case "/load":
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			r.ui.Error("usage: /load <session id>")
			return false
		}
		res, err := r.svc.LoadSession(ctx, id)
		if err != nil {
			r.fail("load session", err)
			return false
		}
		if !res.Success {
			r.ui.Error(res.Message)
			return false
		}
		r.ui.SystemMessage(res.Message)
		r.ui.History(res.History, r.svc.AssistantName())
	case "/history":
		r.ui.History(r.svc.History(), r.svc.AssistantName())
	case "/close":
		if err := r.svc.CloseSession(ctx); err != nil {
			r.fail("close session", err)
			return false
		}
		r.ui.SystemMessage("Session closed")
	case "/stats":
		st := r.svc.Stats()
		r.ui.SystemMessage(fmt.Sprintf("%d sessions, %d messages (%d in current session)",
			st.TotalSessions, st.TotalMessages, st.CurrentSessionMessages))
	case "/videos":
		videos, err := r.svc.SearchVideos(ctx, arg)
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			r.ui.Error("usage: /videos <query>")
		case err != nil:
			r.ui.Error(err.Error())
		default:
			r.ui.AssistantMessage(r.svc.AssistantName(), video.Format(videos), "")
		}
	default:
		r.ui.Error(fmt.Sprintf("unknown command %s (try /help)", name))
	}
	return false
}

func (r *repl) send(ctx context.Context, text string) {
	r.ui.ThinkingStart()
	reply, err := r.svc.Send(ctx, text)
	if err != nil {
		r.fail("send message", err)
		return
	}
	r.ui.AssistantMessage(r.svc.AssistantName(), reply.Response, reply.Timestamp)
}

// fail reports a storage failure without leaking its cause to the user.
func (r *repl) fail(op string, err error) {
	r.logger.Error("operation failed", "op", op, "err", err)
	r.ui.Error("operation failed")
}
