package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hasiraza/LLM-Ethicallogix/internal/config"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactive configuration wizard",
		Long:  "Guides you through setting up hasi: choose a provider, enter your API key, and save the config.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(os.Stdin, os.Stdout, cfgFile)
		},
	}
}

// providerChoices lists known providers with the default first.
func providerChoices() []string {
	names := make([]string, 0, len(config.KnownProviderModels))
	for name := range config.KnownProviderModels {
		names = append(names, name)
	}
	slices.Sort(names)
	def := config.DefaultConfig().Provider
	if i := slices.Index(names, def); i > 0 {
		names = append([]string{def}, slices.Delete(names, i, i+1)...)
	}
	return names
}

func runInit(in *os.File, out io.Writer, path string) error {
	reader := bufio.NewReader(in)

	fmt.Fprintln(out, "Welcome to the hasi configuration wizard!")
	fmt.Fprintln(out)

	providers := providerChoices()
	fmt.Fprintln(out, "Available providers:")
	for i, p := range providers {
		fmt.Fprintf(out, "  %d. %s (%s)\n", i+1, p, config.KnownProviderModels[p])
	}
	fmt.Fprintf(out, "\nSelect provider (1-%d) [1]: ", len(providers))
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)

	selectedIdx := 0
	if input != "" {
		n, err := strconv.Atoi(input)
		if err != nil || n < 1 || n > len(providers) {
			return fmt.Errorf("invalid selection %q", input)
		}
		selectedIdx = n - 1
	}
	providerName := providers[selectedIdx]
	fmt.Fprintf(out, "Selected: %s\n\n", providerName)

	// API key, hidden when typed at a terminal.
	fmt.Fprintf(out, "Enter API key for %s: ", providerName)
	var apiKey string
	if term.IsTerminal(int(in.Fd())) {
		b, err := term.ReadPassword(int(in.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return fmt.Errorf("read API key: %w", err)
		}
		apiKey = string(b)
	} else {
		apiKey, _ = reader.ReadString('\n')
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return fmt.Errorf("API key cannot be empty")
	}

	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return fmt.Errorf("get config path: %w", err)
		}
		path = p
	}

	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(out, "\nConfig file already exists at %s\n", path)
		fmt.Fprint(out, "Update the provider entry? [y/N]: ")
		answer, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	if err := config.SaveProviderToFile(path, providerName, config.ProviderConfig{APIKey: apiKey}); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nConfig saved to %s\n", path)
	fmt.Fprintln(out, "You can now run: hasi  (or: hasi serve)")
	return nil
}
