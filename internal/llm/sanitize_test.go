package llm

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logiparse/logiparse/internal/validate"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"invoice_number": "A"}`, `{"invoice_number": "A"}`},
		{"fenced with tag", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fenced no tag", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"single line fence", "```{}```", "{}"},
		{"surrounding whitespace", "  ```json\n{}\n```  ", "{}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFence(tt.in))
		})
	}
}

func TestNormalizeDropsNullsAndEmpties(t *testing.T) {
	raw := []byte(`{
		"invoice_number": "INV-9",
		"date": null,
		"sender": "  ",
		"receiver": "null",
		"total_amount": "9,500.00"
	}`)

	out, dropped, err := Normalize(raw, quietLogger())
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(out, &m))

	assert.Equal(t, "INV-9", m["invoice_number"])
	assert.NotContains(t, m, "date")
	assert.NotContains(t, m, "sender")
	assert.NotContains(t, m, "receiver")
	assert.Equal(t, "9500.00", m["total_amount"])
	assert.NotEmpty(t, dropped)
}

func TestNormalizeCoercesNumbers(t *testing.T) {
	raw := []byte(`{
		"total_amount": 9500.5,
		"total_weight": 45.5,
		"items": [
			{"description": " Fan Motor ", "quantity": 2, "unit_price": 1500, "line_total": "3,000.00"},
			{"description": "Belt", "quantity": "5", "unit_price": "800.00", "line_total": 4000}
		]
	}`)

	out, _, err := Normalize(raw, quietLogger())
	require.NoError(t, err)

	var m struct {
		TotalAmount string `json:"total_amount"`
		TotalWeight string `json:"total_weight"`
		Items       []struct {
			Description string `json:"description"`
			Quantity    int    `json:"quantity"`
			UnitPrice   string `json:"unit_price"`
			LineTotal   string `json:"line_total"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(out, &m))

	assert.Equal(t, "9500.5", m.TotalAmount)
	assert.Equal(t, "45.5", m.TotalWeight)
	require.Len(t, m.Items, 2)
	assert.Equal(t, "Fan Motor", m.Items[0].Description)
	assert.Equal(t, 2, m.Items[0].Quantity)
	assert.Equal(t, "1500", m.Items[0].UnitPrice)
	assert.Equal(t, "3000.00", m.Items[0].LineTotal)
	assert.Equal(t, 5, m.Items[1].Quantity)
	assert.Equal(t, "4000", m.Items[1].LineTotal)
}

func TestNormalizeDropsItemsWithoutQuantity(t *testing.T) {
	raw := []byte(`{
		"items": [
			{"description": "Belt", "quantity": 5, "unit_price": "800.00", "line_total": "4000.00"},
			{"description": "Widget", "quantity": "two", "unit_price": "50.00", "line_total": "100.00"},
			{"description": "Crate", "unit_price": "10.00", "line_total": "30.00"}
		]
	}`)

	out, dropped, err := Normalize(raw, quietLogger())
	require.NoError(t, err)

	var m struct {
		Items []struct {
			Description string `json:"description"`
			Quantity    int    `json:"quantity"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(out, &m))
	require.Len(t, m.Items, 1)
	assert.Equal(t, "Belt", m.Items[0].Description)
	assert.Equal(t, 5, m.Items[0].Quantity)
	assert.Contains(t, dropped, "items[1](no quantity)")
	assert.Contains(t, dropped, "items[2](no quantity)")
}

func TestNormalizeRemovesUnknownKeys(t *testing.T) {
	raw := []byte(`{"invoice_number": "A", "confidence": 0.93, "notes": "n/a"}`)

	out, dropped, err := Normalize(raw, quietLogger())
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(out, &m))
	assert.Equal(t, map[string]any{"invoice_number": "A"}, m)
	assert.Contains(t, dropped, "confidence(unknown)")
	assert.Contains(t, dropped, "notes(unknown)")
}

func TestNormalizeRejectsNonJSON(t *testing.T) {
	_, _, err := Normalize([]byte("I could not find any fields."), quietLogger())
	assert.Error(t, err)
}

func TestParseResponseHappyPath(t *testing.T) {
	raw := []byte("```json\n" + `{
		"invoice_number": "INV-2024-00892",
		"date": "February 20, 2024",
		"sender": "ABC Warehousing Corp.",
		"receiver": "XYZ Retail Store",
		"total_weight": "45.5 kg",
		"total_amount": "9,500.00",
		"currency": "PHP",
		"tracking_number": "TRK-PH-44821",
		"items": [
			{"description": "Industrial Fan Motor", "quantity": 2, "unit_price": "1500.00", "line_total": "3000.00"}
		]
	}` + "\n```")

	rec, err := ParseResponse(raw, quietLogger())
	require.NoError(t, err)

	require.NotNil(t, rec.InvoiceNumber)
	assert.Equal(t, "INV-2024-00892", *rec.InvoiceNumber)
	require.NotNil(t, rec.TotalAmount)
	assert.Equal(t, "9500.00", *rec.TotalAmount)
	require.NotNil(t, rec.Currency)
	assert.Equal(t, "PHP", *rec.Currency)
	require.Len(t, rec.Items, 1)
	assert.Equal(t, 2, rec.Items[0].Quantity)
	assert.Equal(t, 5, rec.KeyFieldCount())
}

func TestParseResponseMissingKeysStayNil(t *testing.T) {
	rec, err := ParseResponse([]byte(`{"invoice_number": "X-1"}`), quietLogger())
	require.NoError(t, err)

	require.NotNil(t, rec.InvoiceNumber)
	assert.Nil(t, rec.Date)
	assert.Nil(t, rec.TotalAmount)
	require.NotNil(t, rec.Items)
	assert.Empty(t, rec.Items)
}

func TestParseResponseBadQuantityDoesNotFailValidation(t *testing.T) {
	// A word-form quantity used to decode to 0 and trip the arithmetic check.
	raw := []byte(`{
		"invoice_number": "INV-11",
		"total_amount": "100.00",
		"currency": "PHP",
		"items": [
			{"description": "Widget", "quantity": "two", "unit_price": "50.00", "line_total": "100.00"}
		]
	}`)

	rec, err := ParseResponse(raw, quietLogger())
	require.NoError(t, err)
	assert.Empty(t, rec.Items)

	report := validate.Validate(rec)
	assert.Equal(t, validate.StatusPass, report.Status)
	assert.Empty(t, report.Issues)
}

func TestParseResponseNonJSON(t *testing.T) {
	_, err := ParseResponse([]byte("Sorry, I cannot read this document."), quietLogger())
	assert.Error(t, err)
}

func TestBuildInstructionNamesEveryKey(t *testing.T) {
	inst := BuildInstruction("PHP")
	for _, key := range []string{
		"invoice_number", "date", "sender", "receiver", "total_weight",
		"total_amount", "currency", "tracking_number", "items",
	} {
		assert.Contains(t, inst, key)
	}
	assert.Contains(t, inst, "PHP")
}
