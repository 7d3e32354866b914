package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docforge/internal/postprocess"
	"github.com/joseph-ayodele/docforge/internal/repository"
)

var (
	nextNumberType string
	nextNumberYear int
)

var nextNumberCmd = &cobra.Command{
	Use:   "next-number",
	Short: "Allocate the next document number for a type",
	Long: `Allocate (and consume) the next value of the "{type}_{year}" counter and
print the formatted document number.`,
	RunE: runNextNumber,
}

func init() {
	nextNumberCmd.Flags().StringVarP(&nextNumberType, "type", "t", "", "document type")
	nextNumberCmd.Flags().IntVar(&nextNumberYear, "year", 0, "year (default current)")
	_ = nextNumberCmd.MarkFlagRequired("type")
}

func runNextNumber(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close(logger)

	year := nextNumberYear
	if year == 0 {
		year = time.Now().Year()
	}
	now := func() time.Time { return time.Date(year, 1, 1, 0, 0, 0, 0, time.Local) }

	counter := repository.NewCounterRepository(store.DB, store.Dialect, logger)
	gen := postprocess.NewDocumentNumberGenerator(counter, nil, now, logger)
	out, err := gen.Process(ctx, map[string]any{"documentType": nextNumberType})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out["documentNumber"])
	return nil
}
