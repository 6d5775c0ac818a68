package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sydlexius/liner/internal/artist"
	"github.com/sydlexius/liner/internal/enrich"
	"github.com/sydlexius/liner/internal/event"
)

func newEnrichCommand(ctx *commandContext) *cobra.Command {
	var field string
	var limit int

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Run one enrichment batch and print its summary",
		Example: `  liner enrich --field localized --limit 50
  liner enrich --field real_name`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, ok := artist.ParseField(field)
			if !ok {
				return fmt.Errorf("unknown field %q (want one of %v)", field, artist.AllFields())
			}
			return runBatch(cmd, ctx, f, limit)
		},
	}
	cmd.Flags().StringVarP(&field, "field", "f", string(artist.FieldLocalized), "Target field: localized, real_name, biography or mbid")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Batch size (0 uses enrich.default_limit)")
	return cmd
}

func newBackfillCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "backfill-mbid",
		Short: "Fill missing MusicBrainz ids for one batch of artists",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, ctx, artist.FieldMBID, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Batch size (0 uses enrich.default_limit)")
	return cmd
}

// runBatch runs one batch in the foreground. SIGINT stops the batch after
// the artist in flight has been saved.
func runBatch(cmd *cobra.Command, cc *commandContext, field artist.Field, limit int) error {
	sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := cc.openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	bus := event.NewBus(rt.logger, 256)
	busCtx, cancelBus := context.WithCancel(context.Background())
	busDone := make(chan struct{})
	go func() {
		_ = bus.Run(busCtx)
		close(busDone)
	}()
	defer func() {
		cancelBus()
		<-busDone
	}()

	runner := enrich.NewRunner(rt.store, newEngine(rt.cfg, rt.logger), bus, rt.cfg.Enrich, rt.logger)
	sum, err := runner.Run(sigCtx, field, limit, "cli")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable(
		[]string{"Run", "Field", "Total", "Succeeded", "Failed", "Enriched"},
		[][]string{{
			sum.RunID, string(sum.Field),
			itoa(sum.Total), itoa(sum.Succeeded), itoa(sum.Failed), itoa(sum.Enriched),
		}},
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
	))
	if sum.Interrupted {
		fmt.Fprintln(out, "Batch interrupted; remaining artists stay queued.")
	}
	return nil
}
