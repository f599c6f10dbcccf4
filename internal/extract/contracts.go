// Package extract defines the structured record produced by field extraction
// and the strategy interface the pipeline depends on.
package extract

import (
	"context"
	"strings"

	"github.com/logiparse/logiparse/constants"
	"github.com/logiparse/logiparse/internal/docreader"
)

// LineItem is one row of a document describing a shipped good.
// Invariant (checked by the validator, not enforced here):
// quantity * unit_price ≈ line_total within 0.5 absolute tolerance.
type LineItem struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"` // decimal string, separators stripped
	LineTotal   string `json:"line_total"` // decimal string, separators stripped
}

// Record is the normalized shape every strategy returns.
// All fields are optional except Items; a field with no match stays nil.
type Record struct {
	InvoiceNumber  *string    `json:"invoice_number"`
	Date           *string    `json:"date"` // verbatim match, not normalized to a calendar type
	Sender         *string    `json:"sender"`
	Receiver       *string    `json:"receiver"`
	TotalWeight    *string    `json:"total_weight"` // "<number> <unit>"
	TotalAmount    *string    `json:"total_amount"` // decimal string, no thousands separators
	Currency       *string    `json:"currency"`
	TrackingNumber *string    `json:"tracking_number"`
	Items          []LineItem `json:"items"`
	RawTextPreview string     `json:"raw_text_preview"`
}

// NewRecord returns an empty record carrying the given preview.
func NewRecord(preview string) Record {
	return Record{
		Items:          []LineItem{},
		RawTextPreview: preview,
	}
}

// FailureRecord is the all-null record substituted when delegated extraction
// fails; the preview describes the failure so the UI can show it.
func FailureRecord(err error) Record {
	return NewRecord("extraction failed: " + err.Error())
}

// KeyFieldCount counts populated fields among the five key fields:
// invoice_number, date, sender, receiver, total_amount. A field holding an
// empty or whitespace-only string does not count as populated.
func (r Record) KeyFieldCount() int {
	n := 0
	for _, f := range []*string{r.InvoiceNumber, r.Date, r.Sender, r.Receiver, r.TotalAmount} {
		if f != nil && strings.TrimSpace(*f) != "" {
			n++
		}
	}
	return n
}

// Preview returns the first constants.PreviewLength characters of text,
// with an ellipsis marker when truncated.
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= constants.PreviewLength {
		return text
	}
	return string(runes[:constants.PreviewLength]) + "..."
}

// Strategy maps a read document to a structured record.
// Implementations must not let extraction failures escape: a strategy that
// cannot produce fields returns a FailureRecord and a nil error.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, doc docreader.Document) (Record, error)
}
