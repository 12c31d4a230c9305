package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"example.com/backstage/services/challan/internal/backup"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up the challan register once",
	Long: `Exports every visible challan to an .xlsx register and writes it to
the configured backup directory or GCS bucket.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(cfg, "challan-backup")
		if err != nil {
			return err
		}
		defer a.Close()

		sink, err := backup.NewSink(ctx, cfg.Backup)
		if err != nil {
			return err
		}
		defer sink.Close()

		location, err := backup.NewRunner(a.service, sink).Run(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), location)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
}
