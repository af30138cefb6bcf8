package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hasiraza/LLM-Ethicallogix/internal/tui"
)

func newRunCmd() *cobra.Command {
	var (
		prompt     string
		newSession bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Send a single message non-interactively",
		Example: `  hasi run -P "what did we talk about yesterday?"
  hasi run --new -P "recommend some go tutorial videos" -o jsonl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if prompt == "" {
				return fmt.Errorf("--prompt / -P is required")
			}
			return runOnce(cmd.Context(), prompt, newSession)
		},
	}

	cmd.Flags().StringVarP(&prompt, "prompt", "P", "", "the message to send")
	cmd.Flags().BoolVar(&newSession, "new", false, "start a new session before sending")
	cmd.MarkFlagRequired("prompt")

	return cmd
}

// runOnce sends a single message in the active session and exits.
func runOnce(parent context.Context, prompt string, fresh bool) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if fresh {
		if _, err := a.svc.NewSession(ctx); err != nil {
			return fmt.Errorf("start session: %w", err)
		}
	}

	ui := tui.NewPipeIO(os.Stdin, os.Stdout, os.Stderr, outputFormat)
	reply, err := a.svc.Send(ctx, prompt)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	ui.AssistantMessage(a.svc.AssistantName(), reply.Response, reply.Timestamp)
	return nil
}
