// Package validate checks structural and arithmetic consistency of an
// extracted record. Validate is a pure function: no I/O, deterministic,
// identical reports for identical records.
package validate

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/logiparse/logiparse/constants"
	"github.com/logiparse/logiparse/internal/extract"
)

const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
)

// Report is the validation outcome. Status is FAIL iff Issues is non-empty;
// warnings never affect status.
type Report struct {
	Status        string   `json:"status"`
	Issues        []string `json:"issues"`
	Warnings      []string `json:"warnings"`
	FieldCoverage string   `json:"field_coverage"`
}

// lineItemTolerance is the absolute slack allowed between quantity*unit_price
// and the stated line total.
var lineItemTolerance = decimal.RequireFromString("0.5")

// missing treats nil and whitespace-only values the same: a field holding an
// empty string was not meaningfully extracted.
func missing(p *string) bool {
	return p == nil || strings.TrimSpace(*p) == ""
}

// Validate runs the field checks in display order.
// Issues mark the record unreliable; warnings are informational only.
func Validate(rec extract.Record) Report {
	issues := []string{}
	warnings := []string{}

	if missing(rec.InvoiceNumber) {
		issues = append(issues, "Invoice number not found")
	}
	if missing(rec.Date) {
		warnings = append(warnings, "Date not detected - may be missing or in unusual format")
	}
	if missing(rec.Sender) {
		warnings = append(warnings, "Sender/Shipper not found")
	}
	if missing(rec.Receiver) {
		warnings = append(warnings, "Receiver/Consignee not found")
	}

	if missing(rec.TotalAmount) {
		issues = append(issues, "Total amount not found")
	} else {
		amt, err := decimal.NewFromString(strings.ReplaceAll(*rec.TotalAmount, ",", ""))
		switch {
		case err != nil:
			issues = append(issues, "Total amount is not a valid number")
		case amt.Sign() <= 0:
			issues = append(issues, "Total amount is zero or negative - suspicious")
		}
	}

	for _, item := range rec.Items {
		// Items with unparseable numeric fields are skipped, not reported.
		unit, err := decimal.NewFromString(strings.ReplaceAll(item.UnitPrice, ",", ""))
		if err != nil {
			continue
		}
		stated, err := decimal.NewFromString(strings.ReplaceAll(item.LineTotal, ",", ""))
		if err != nil {
			continue
		}
		calc := decimal.NewFromInt(int64(item.Quantity)).Mul(unit)
		if calc.Sub(stated).Abs().GreaterThan(lineItemTolerance) {
			issues = append(issues, fmt.Sprintf(
				"Line item '%s': Qty x UnitPrice (%s) does not equal LineTotal (%s)",
				item.Description, calc.StringFixed(2), stated.StringFixed(2)))
		}
	}

	status := StatusPass
	if len(issues) > 0 {
		status = StatusFail
	}

	return Report{
		Status:        status,
		Issues:        issues,
		Warnings:      warnings,
		FieldCoverage: fmt.Sprintf("%d/%d key fields extracted", rec.KeyFieldCount(), constants.KeyFieldCount),
	}
}
