package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-cli/internal/export"
	"github.com/sells-group/invoice-cli/internal/store"
)

var (
	exportFormat    string
	exportVendor    string
	exportStartDate string
	exportEndDate   string
	exportLimit     int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored invoices to xlsx, csv, or json",
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

		records, err := st.ListInvoices(ctx, store.InvoiceFilter{
			Vendor:    exportVendor,
			StartDate: exportStartDate,
			EndDate:   exportEndDate,
			Limit:     exportLimit,
		})
		if err != nil {
			return err
		}

		exp, err := export.New(cfg.Export.Dir)
		if err != nil {
			return err
		}

		var path string
		switch exportFormat {
		case "xlsx":
			path, err = exp.Excel(records)
		case "csv":
			path, err = exp.CSV(records)
		case "json":
			path, err = exp.JSON(records)
		default:
			return eris.Errorf("unsupported export format: %s", exportFormat)
		}
		if err != nil {
			return err
		}

		zap.L().Info("export complete", zap.String("path", path), zap.Int("invoices", len(records)))
		cmd.Println(path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "xlsx", "output format: xlsx, csv, or json")
	exportCmd.Flags().StringVar(&exportVendor, "vendor", "", "filter by vendor name")
	exportCmd.Flags().StringVar(&exportStartDate, "start", "", "filter by invoice date >= YYYY-MM-DD")
	exportCmd.Flags().StringVar(&exportEndDate, "end", "", "filter by invoice date <= YYYY-MM-DD")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 10000, "max invoices to export")
	rootCmd.AddCommand(exportCmd)
}
