package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/touchline/internal/probe"
)

func newProbeCmd(_ *cli) *cobra.Command {
	cfg := probe.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Drive a running server and check its answers agree",
		Long: `Probe asks a running server about seeded random pairs, several times
and concurrently, then re-asks a prefix through the batch route. It fails when
answers for the same pair differ.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rep, runErr := probe.Run(cmd.Context(), cfg)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(rep); err != nil {
				return fmt.Errorf("encode report: %w", err)
			}
			return runErr
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "base URL of the service")
	f.IntVar(&cfg.Pairs, "pairs", cfg.Pairs, "number of pairs")
	f.IntVar(&cfg.People, "people", 0, "person ids are drawn from 1..people; 0 reads /stats")
	f.IntVar(&cfg.Repeats, "repeats", cfg.Repeats, "times each pair is asked")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent requests")
	f.IntVar(&cfg.BatchSize, "batch", cfg.BatchSize, "pairs re-asked through /paths/batch, 0 to skip")
	f.IntVar(&cfg.MaxDepth, "max-depth", 0, "depth sent with each request, 0 for the server default")
	f.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "pair generator seed")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	f.StringVar(&cfg.OutputFile, "output", "", "write the JSON report to this file")
	f.BoolVar(&cfg.Verbose, "verbose", false, "log every disagreement")
	return cmd
}
