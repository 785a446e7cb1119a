package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/okian/touchline/internal/domain/search"
	"github.com/okian/touchline/pkg/logger"
)

func newPathCmd(c *cli) *cobra.Command {
	var req search.Request
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Find the shortest path between two people and print it as JSON",
		Example: `  touchline path --source 1 --target 5
  TOUCHLINE_STORE_DRIVER=sqlite TOUCHLINE_STORE_DSN=league.db touchline path --source 3 --target 5 --max-depth 4`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.path(cmd.Context(), cmd.OutOrStdout(), req)
		},
	}
	cmd.Flags().Int64Var(&req.SourceID, "source", 0, "source person id")
	cmd.Flags().Int64Var(&req.TargetID, "target", 0, "target person id")
	cmd.Flags().IntVar(&req.MaxDepth, "max-depth", 0, "maximum path length, 0 for the configured default")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

// path prints the result and returns an error when the request was not
// answered. Not found is an answer.
func (c *cli) path(ctx context.Context, out io.Writer, req search.Request) error {
	store, closeStore, err := openStore(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			c.log.Error(ctx, "failed to close store", logger.Error(err))
		}
	}()

	res := newService(c.cfg, store, c.log).FindPath(ctx, req)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if res.Error != "" {
		return fmt.Errorf("%s: %s", res.Error, res.Message)
	}
	return nil
}
