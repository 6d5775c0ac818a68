package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sydlexius/liner/internal/artist"
	"github.com/sydlexius/liner/internal/maintenance"
)

func newDBCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Inspect and maintain the catalog database",
	}

	withService := func(fn func(cmd *cobra.Command, rt *runtime, svc *maintenance.Service) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			rt, err := ctx.openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()
			return fn(cmd, rt, newMaintenance(rt))
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show database size, row counts and pending work per field",
		RunE: withService(func(cmd *cobra.Command, rt *runtime, svc *maintenance.Service) error {
			st, err := svc.Status(cmd.Context())
			if err != nil {
				return err
			}
			rows := [][]string{
				{"database bytes", fmt.Sprint(st.DBFileSize)},
				{"wal bytes", fmt.Sprint(st.WALFileSize)},
				{"artists", itoa(st.Artists)},
				{"runs", itoa(st.Runs)},
				{"snapshots", itoa(st.Snapshots)},
			}
			for _, f := range artist.AllFields() {
				n, err := rt.store.CountPending(cmd.Context(), f)
				if err != nil {
					return err
				}
				rows = append(rows, []string{"pending " + string(f), itoa(n)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Metric", "Value"}, rows,
				[]columnAlignment{alignLeft, alignRight}))
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "snapshot",
		Short: "Write a snapshot of the database and prune old ones",
		RunE: withService(func(cmd *cobra.Command, _ *runtime, svc *maintenance.Service) error {
			snap, err := svc.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := svc.Prune(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", snap.Filename, snap.Size)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "optimize",
		Short: "Run PRAGMA optimize and checkpoint the WAL",
		RunE: withService(func(cmd *cobra.Command, _ *runtime, svc *maintenance.Service) error {
			return svc.Optimize(cmd.Context())
		}),
	})

	return cmd
}

func newMaintenance(rt *runtime) *maintenance.Service {
	return maintenance.NewService(rt.db, rt.cfg.Database.Path,
		rt.cfg.Database.BackupDir, rt.cfg.Database.BackupRetention, rt.logger)
}
