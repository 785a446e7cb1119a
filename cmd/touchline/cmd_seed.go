package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/touchline/internal/adapters/repository"
	"github.com/okian/touchline/internal/config"
	"github.com/okian/touchline/internal/synth"
	"github.com/okian/touchline/pkg/logger"
)

type seedOptions struct {
	file     string
	generate bool
	seed     uint64
	people   int
	clubs    int
	nations  int
}

func newSeedCmd(c *cli) *cobra.Command {
	var o seedOptions
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a dataset into the SQL store",
		Long: `Seed migrates the configured SQL store and imports a dataset into it.
The dataset is read from --file, generated with --generate, or defaults to the
built-in sample league.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.seed(cmd.Context(), o)
		},
	}
	cmd.Flags().StringVar(&o.file, "file", "", "YAML dataset to import")
	cmd.Flags().BoolVar(&o.generate, "generate", false, "import a generated league instead of a file")
	cmd.Flags().Uint64Var(&o.seed, "seed", 1, "generator seed")
	cmd.Flags().IntVar(&o.people, "people", 0, "generated people, 0 for the generator default")
	cmd.Flags().IntVar(&o.clubs, "clubs", 0, "generated clubs, 0 for the generator default")
	cmd.Flags().IntVar(&o.nations, "nations", 0, "generated national teams, 0 for the generator default")
	cmd.MarkFlagsMutuallyExclusive("file", "generate")
	return cmd
}

func (c *cli) seed(ctx context.Context, o seedOptions) error {
	if c.cfg.StoreDriver == config.DriverMemory {
		return errMemoryDriver
	}

	ds, err := seedDataset(o)
	if err != nil {
		return err
	}

	db, err := openSQL(ctx, c.cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Import(ctx, ds); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	st, err := db.Stats(ctx)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	c.log.Info(ctx, "dataset imported",
		logger.String("store", c.cfg.StoreDriver),
		logger.Int("people", st.People),
		logger.Int("managers", st.Managers),
		logger.Int("clubs", st.Clubs),
		logger.Int("nationalTeams", st.NationalTeams),
		logger.Int("stints", st.Stints))
	return nil
}

func seedDataset(o seedOptions) (repository.Dataset, error) {
	switch {
	case o.file != "":
		return repository.LoadDataset(o.file)
	case o.generate:
		return synth.Generate(o.seed, synth.Config{People: o.people, Clubs: o.clubs, Nations: o.nations}), nil
	default:
		return synth.League(), nil
	}
}
