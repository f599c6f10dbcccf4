// Package llm holds the provider-agnostic half of delegated extraction:
// the instruction, the response schema, and the response cleanup/parsing.
package llm

import (
	"strings"

	"github.com/logiparse/logiparse/constants"
)

// maxPromptChars bounds how much document text goes into the user prompt.
const maxPromptChars = 12000

// BuildInstruction composes the fixed system instruction. It enumerates the
// exact required keys so the response can be parsed without guessing.
func BuildInstruction(defaultCurrency string) string {
	defCur := strings.TrimSpace(defaultCurrency)
	if defCur == "" {
		defCur = constants.DefaultCurrency
	}

	parts := []string{
		"You are a logistics document parser for invoices and waybills.",
		"Return ONLY a raw JSON object. No markdown, no code fences, no commentary.",
		"The object must contain exactly these keys: invoice_number, date, sender, receiver, total_weight, total_amount, currency, tracking_number, items.",
		"Use null for any field not present in the document.",
		"total_amount is a decimal string with no thousands separators.",
		"total_weight is \"<number> <unit>\", e.g. \"45.5 kg\".",
		"currency is an ISO-like code or symbol; use " + defCur + " when an amount is shown without a currency.",
		"items is an array of objects with keys description, quantity, unit_price, line_total; quantity is an integer, prices are decimal strings.",
		"Copy field values verbatim from the document; do not reformat dates.",
	}
	return strings.Join(parts, " ")
}

// BuildTextPrompt packages the document text for a text-only run.
func BuildTextPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Document text:\n")
	if len(text) > maxPromptChars {
		b.WriteString(text[:maxPromptChars])
		b.WriteString("\n…(truncated)")
	} else {
		b.WriteString(text)
	}
	return b.String()
}
