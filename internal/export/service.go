// Package export renders result envelopes for download: pretty-printed JSON
// per extraction, and an XLSX workbook summarizing the history.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/logiparse/logiparse/internal/extract"
	"github.com/logiparse/logiparse/internal/history"
	"github.com/logiparse/logiparse/internal/pipeline"
	"github.com/logiparse/logiparse/internal/validate"
)

// exportRecord mirrors extract.Record minus raw_text_preview, which is a UI
// affordance and stays out of the download.
type exportRecord struct {
	InvoiceNumber  *string            `json:"invoice_number"`
	Date           *string            `json:"date"`
	Sender         *string            `json:"sender"`
	Receiver       *string            `json:"receiver"`
	TotalWeight    *string            `json:"total_weight"`
	TotalAmount    *string            `json:"total_amount"`
	Currency       *string            `json:"currency"`
	TrackingNumber *string            `json:"tracking_number"`
	Items          []extract.LineItem `json:"items"`
}

type payload struct {
	ExtractedData    exportRecord      `json:"extracted_data"`
	ValidationReport validate.Report   `json:"validation_report"`
	Metadata         pipeline.Metadata `json:"metadata"`
}

// JSON renders the download payload for one envelope, pretty-printed.
func JSON(env pipeline.ResultEnvelope) ([]byte, error) {
	rec := env.ExtractedData
	out := payload{
		ExtractedData: exportRecord{
			InvoiceNumber:  rec.InvoiceNumber,
			Date:           rec.Date,
			Sender:         rec.Sender,
			Receiver:       rec.Receiver,
			TotalWeight:    rec.TotalWeight,
			TotalAmount:    rec.TotalAmount,
			Currency:       rec.Currency,
			TrackingNumber: rec.TrackingNumber,
			Items:          rec.Items,
		},
		ValidationReport: env.ValidationReport,
		Metadata:         env.Metadata,
	}
	return json.MarshalIndent(out, "", "  ")
}

// Service produces XLSX workbooks from the extraction history.
type Service struct {
	store  *history.Store
	logger *slog.Logger
}

func NewService(store *history.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

var xlsxHeaders = []string{
	"Processed At",
	"Source",
	"Strategy",
	"Invoice No",
	"Date",
	"Sender",
	"Receiver",
	"Total Amount",
	"Currency",
	"Tracking No",
	"Items",
	"Status",
	"Coverage",
}

// RecentXLSX returns an XLSX workbook (as bytes) covering up to limit
// recent extractions, newest first.
func (s *Service) RecentXLSX(ctx context.Context, limit int) ([]byte, error) {
	entries, err := s.store.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	return s.buildWorkbook(entries)
}

func (s *Service) buildWorkbook(entries []history.Entry) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Extractions"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	for i, h := range xlsxHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	for rowIdx, entry := range entries {
		rec := entry.Envelope.ExtractedData
		rep := entry.Envelope.ValidationReport
		meta := entry.Envelope.Metadata

		values := []any{
			meta.ProcessedAt.Format(time.RFC3339),
			string(meta.SourceType),
			meta.Strategy,
			orBlank(rec.InvoiceNumber),
			orBlank(rec.Date),
			orBlank(rec.Sender),
			orBlank(rec.Receiver),
			orBlank(rec.TotalAmount),
			orBlank(rec.Currency),
			orBlank(rec.TrackingNumber),
			len(rec.Items),
			rep.Status,
			rep.FieldCoverage,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(entries),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func orBlank(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
