package main

import (
	"encoding/json"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/invoice-cli/internal/analytics"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show invoice analytics: totals, vendors, trends, and alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		dashboard, err := analytics.New(st).Dashboard(ctx)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(dashboard, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal dashboard")
		}
		cmd.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
