package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/logiparse/logiparse/internal/extract"
)

// ParseResponse turns raw model output into a record: strip any code fence,
// normalize, validate against the schema, unmarshal. Missing keys stay nil.
// The caller is responsible for setting the record's preview.
func ParseResponse(raw []byte, logger *slog.Logger) (extract.Record, error) {
	content := StripCodeFence(string(raw))

	clean, _, err := Normalize([]byte(content), logger)
	if err != nil {
		return extract.Record{}, err
	}
	if err := ValidateAgainstSchema(BuildInvoiceJSONSchema(), clean); err != nil {
		return extract.Record{}, fmt.Errorf("schema validation failed: %w", err)
	}

	var rec extract.Record
	if err := json.Unmarshal(clean, &rec); err != nil {
		return extract.Record{}, fmt.Errorf("unmarshal fields: %w", err)
	}
	if rec.Items == nil {
		rec.Items = []extract.LineItem{}
	}
	return rec, nil
}
