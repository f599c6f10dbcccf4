package constants

// Extraction limits and defaults shared by all strategies.
const (
	// MaxLineItems caps how many line items the deterministic parser keeps.
	MaxLineItems = 10

	// PreviewLength is how many characters of source text land in raw_text_preview.
	PreviewLength = 300

	// DefaultCurrency applies when an amount is found with no currency token.
	// Philippine logistics context; documented domain assumption.
	DefaultCurrency = "PHP"

	// DefaultWeightUnit applies when a weight is found with no unit.
	DefaultWeightUnit = "kg"

	// VisionPreviewPlaceholder stands in for raw_text_preview on binary inputs.
	VisionPreviewPlaceholder = "[binary document: fields extracted from page images]"
)

// KeyFieldCount is the denominator of the field-coverage metric:
// invoice_number, date, sender, receiver, total_amount.
const KeyFieldCount = 5
