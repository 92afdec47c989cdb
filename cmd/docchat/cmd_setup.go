package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/docchat/internal/config"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		scanner := bufio.NewScanner(cmd.InOrStdin())
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, "docchat setup")
		fmt.Fprintln(out, "Press Enter to accept the default value shown in brackets.")
		fmt.Fprintln(out)

		cfg.Backend.BaseURL = prompt(out, scanner, "Backend URL", cfg.Backend.BaseURL)
		cfg.Timings.PollIntervalMS = promptInt(out, scanner, "Status poll interval (ms)", cfg.Timings.PollIntervalMS)
		cfg.Backend.RequestTimeoutSeconds = promptInt(out, scanner, "Request timeout (s)", cfg.Backend.RequestTimeoutSeconds)
		cfg.HTTP.Listen = prompt(out, scanner, "Browser bridge listen address", cfg.HTTP.Listen)
		cfg.LogLevel = prompt(out, scanner, "Log level (debug, info, warn, error)", cfg.LogLevel)

		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, "Configuration saved to", cfgPath)
		return nil
	},
}

// prompt displays a labeled prompt with a default value and reads user input.
// If the user enters nothing, the default is returned.
func prompt(out io.Writer, scanner *bufio.Scanner, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(out, "%s [%s]: ", label, defaultVal)
	} else {
		fmt.Fprintf(out, "%s: ", label)
	}
	if scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input != "" {
			return input
		}
	}
	return defaultVal
}

func promptInt(out io.Writer, scanner *bufio.Scanner, label string, defaultVal int) int {
	v := prompt(out, scanner, label, strconv.Itoa(defaultVal))
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		fmt.Fprintf(out, "Keeping %d: %q is not a positive number.\n", defaultVal, v)
		return defaultVal
	}
	return n
}
