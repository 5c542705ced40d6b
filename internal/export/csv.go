package export

import (
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-cli/internal/model"
)

// CSV writes the flat invoice listing as a CSV file and returns its path.
func (e *Exporter) CSV(records []model.InvoiceRecord) (string, error) {
	path := e.path("invoice_export", ".csv")

	rows := make([]exportRow, len(records))
	for i := range records {
		rows[i] = buildRow(&records[i])
	}

	data, err := csvutil.Marshal(rows)
	if err != nil {
		return "", eris.Wrap(err, "export: marshal csv")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "export: write csv %s", path)
	}

	zap.L().Info("csv export created",
		zap.String("path", path),
		zap.Int("invoices", len(records)))
	return path, nil
}
