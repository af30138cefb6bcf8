package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hasiraza/LLM-Ethicallogix/internal/session"
	"github.com/hasiraza/LLM-Ethicallogix/internal/tui"
)

func newSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List stored sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			list := a.registry.List()
			if outputFormat == "jsonl" {
				tui.NewPipeIO(os.Stdin, os.Stdout, os.Stderr, outputFormat).Sessions(list)
				return nil
			}
			tui.NewPlainIO(os.Stdin, os.Stdout, os.Stderr).Sessions(list)
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show conversation statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return printStats(a.registry.Stats(), asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print statistics as JSON")
	return cmd
}

func printStats(st session.Stats, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}
	fmt.Printf("Sessions:         %d\n", st.TotalSessions)
	fmt.Printf("Messages:         %d\n", st.TotalMessages)
	fmt.Printf("Current session:  %d messages\n", st.CurrentSessionMessages)
	return nil
}
