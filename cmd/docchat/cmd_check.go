package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the backend and its language model are reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		resp, err := newClient(cfg).CheckLLM(ctx)
		if err != nil {
			return fmt.Errorf("backend unreachable at %s: %w", cfg.Backend.BaseURL, err)
		}
		if !resp.OK {
			return fmt.Errorf("language model unavailable: %s", resp.Message)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ok: %s\n", resp.Message)
		if resp.Sample != "" {
			fmt.Fprintf(out, "sample: %s\n", resp.Sample)
		}
		return nil
	},
}
