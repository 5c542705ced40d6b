package export

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-cli/internal/model"
)

// jsonEnvelope is the machine-readable export format: records plus metadata
// about the export itself.
type jsonEnvelope struct {
	ExportInfo exportInfo            `json:"export_info"`
	Invoices   []model.InvoiceRecord `json:"invoices"`
}

type exportInfo struct {
	GeneratedAt   time.Time `json:"generated_at"`
	TotalInvoices int       `json:"total_invoices"`
	FormatVersion string    `json:"format_version"`
}

// JSON writes the full invoice records with an export envelope and returns
// the path of the created file.
func (e *Exporter) JSON(records []model.InvoiceRecord) (string, error) {
	path := e.path("invoice_export", ".json")

	env := jsonEnvelope{
		ExportInfo: exportInfo{
			GeneratedAt:   e.now().UTC(),
			TotalInvoices: len(records),
			FormatVersion: "1.0",
		},
		Invoices: records,
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "export: marshal json")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "export: write json %s", path)
	}

	zap.L().Info("json export created",
		zap.String("path", path),
		zap.Int("invoices", len(records)))
	return path, nil
}
