package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/logiparse/logiparse/constants"
	"github.com/logiparse/logiparse/internal/docreader"
)

// Field patterns: independent label searches over the full text,
// case-insensitive, first match wins.
var (
	reInvoiceNumber = regexp.MustCompile(`(?i)invoice\s*(?:no\.?|number|#|num)[:\s#]+([A-Za-z0-9/-]+)`)

	// D/M/Y-like numeric dates, ISO-like Y/M/D, or "Mon D, YYYY".
	reDate = regexp.MustCompile(`(?i)(?:date|dated|issued)[:\s]*` +
		`(\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}` +
		`|\d{4}[/.-]\d{1,2}[/.-]\d{1,2}` +
		`|(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\w*\s+\d{1,2},?\s+\d{4})`)

	reSender   = regexp.MustCompile(`(?i)(?:from|sender|shipper|consignor)[:\s]+([^\n,]+)`)
	reReceiver = regexp.MustCompile(`(?i)(?:to|receiver|recipient|consignee|billed\s+to|deliver\s+to)[:\s]+([^\n,]+)`)

	reWeight = regexp.MustCompile(`(?i)(?:total\s+)?weight[:\s]*([\d,.]+)\s*(kg|lbs?|g|tons?)?`)

	reAmount = regexp.MustCompile(`(?i)(?:total|grand\s+total|amount\s+due|total\s+amount)[:\s]*` +
		`(PHP|₱|\$|USD|EUR)?\s*([\d,.]+)`)

	reTracking = regexp.MustCompile(`(?i)(?:tracking\s*(?:no|number|#)|waybill\s*(?:no|number|#))[:\s#]*([A-Za-z0-9-]+)`)

	// Columnar line items: description, integer quantity, two decimals.
	// The description class admits parentheses so rows like
	// "Safety Gloves (box)  10  250.00  2500.00" match whole.
	reLineItem = regexp.MustCompile(`([A-Za-z][A-Za-z0-9()\s-]{2,30})\s+(\d+)\s+([\d,.]+)\s+([\d,.]+)`)
)

// PatternStrategy extracts fields with deterministic label searches.
// It is pure: no I/O, no shared state, safe for concurrent use.
type PatternStrategy struct {
	DefaultCurrency   string
	DefaultWeightUnit string
}

func NewPatternStrategy() *PatternStrategy {
	return &PatternStrategy{
		DefaultCurrency:   constants.DefaultCurrency,
		DefaultWeightUnit: constants.DefaultWeightUnit,
	}
}

func (s *PatternStrategy) Name() string { return "pattern" }

func (s *PatternStrategy) Extract(_ context.Context, doc docreader.Document) (Record, error) {
	return s.Parse(doc.Text), nil
}

// Parse runs every field pattern against the full text.
func (s *PatternStrategy) Parse(text string) Record {
	rec := NewRecord(Preview(text))

	if m := reInvoiceNumber.FindStringSubmatch(text); m != nil {
		rec.InvoiceNumber = trimmed(m[1])
	}
	if m := reDate.FindStringSubmatch(text); m != nil {
		rec.Date = trimmed(m[1])
	}
	if m := reSender.FindStringSubmatch(text); m != nil {
		rec.Sender = trimmed(m[1])
	}
	if m := reReceiver.FindStringSubmatch(text); m != nil {
		rec.Receiver = trimmed(m[1])
	}
	if m := reWeight.FindStringSubmatch(text); m != nil {
		unit := m[2]
		if unit == "" {
			unit = s.DefaultWeightUnit
		}
		w := strings.TrimSpace(m[1]) + " " + unit
		rec.TotalWeight = &w
	}
	if m := reAmount.FindStringSubmatch(text); m != nil {
		cur := m[1]
		if cur == "" {
			cur = s.DefaultCurrency
		}
		amt := strings.TrimSpace(strings.ReplaceAll(m[2], ",", ""))
		rec.Currency = &cur
		rec.TotalAmount = &amt
	}
	if m := reTracking.FindStringSubmatch(text); m != nil {
		rec.TrackingNumber = trimmed(m[1])
	}

	for _, m := range reLineItem.FindAllStringSubmatch(text, -1) {
		if len(rec.Items) == constants.MaxLineItems {
			break
		}
		qty, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		rec.Items = append(rec.Items, LineItem{
			Description: strings.TrimSpace(m[1]),
			Quantity:    qty,
			UnitPrice:   strings.ReplaceAll(m[3], ",", ""),
			LineTotal:   strings.ReplaceAll(m[4], ",", ""),
		})
	}

	return rec
}

// trimmed returns the trimmed capture, or nil when nothing but whitespace
// was matched, so an empty capture never reads as a present field.
func trimmed(s string) *string {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	return &v
}
