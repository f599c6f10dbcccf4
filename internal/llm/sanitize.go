package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// StripCodeFence removes a surrounding markdown code fence, with or without
// a language tag, before JSON parsing. Non-fenced input passes through.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	// Drop the opening fence line ("```" or "```json").
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// stringFields are top-level keys holding plain (nullable) strings.
var stringFields = []string{
	"invoice_number", "date", "sender", "receiver",
	"total_weight", "total_amount", "currency", "tracking_number",
}

// Normalize cleans a delegated-extraction response so it can validate
// against the schema:
//   - drops nulls and empty strings (absent fields stay absent)
//   - coerces numeric money values to decimal strings, separators stripped
//   - coerces item quantities to integers, dropping items without one
//   - removes unknown keys
//
// Returns the cleaned JSON and the list of adjustments made.
func Normalize(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var dropped []string

	for _, k := range stringFields {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case nil:
			delete(m, k)
			dropped = append(dropped, k+"(null)")
		case string:
			s := strings.TrimSpace(t)
			if s == "" || strings.EqualFold(s, "null") {
				delete(m, k)
				dropped = append(dropped, k+"(empty)")
				continue
			}
			if k == "total_amount" {
				s = strings.ReplaceAll(s, ",", "")
			}
			m[k] = s
		case float64:
			if k == "total_amount" || k == "total_weight" {
				m[k] = trimFloat(t)
				dropped = append(dropped, k+"(number)")
			} else {
				delete(m, k)
				dropped = append(dropped, k+"(type)")
			}
		default:
			delete(m, k)
			dropped = append(dropped, k+"(type)")
		}
	}

	if v, ok := m["items"]; ok {
		items, itemsDropped := normalizeItems(v)
		m["items"] = items
		dropped = append(dropped, itemsDropped...)
	}

	// Remove unknown keys; the schema is strict about additional properties.
	allowed := map[string]struct{}{"items": {}}
	for _, k := range stringFields {
		allowed[k] = struct{}{}
	}
	for k := range m {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.extract.normalized", "adjustments", dropped)
	}
	return out, dropped, nil
}

func normalizeItems(v any) ([]any, []string) {
	list, ok := v.([]any)
	if !ok {
		return []any{}, []string{"items(type)"}
	}

	var dropped []string
	out := make([]any, 0, len(list))
	for i, el := range list {
		item, ok := el.(map[string]any)
		if !ok {
			dropped = append(dropped, fmt.Sprintf("items[%d](type)", i))
			continue
		}
		clean := map[string]any{}
		if s, ok := item["description"].(string); ok {
			clean["description"] = strings.TrimSpace(s)
		}
		switch q := item["quantity"].(type) {
		case float64:
			clean["quantity"] = int(q)
		case string:
			var n int
			if _, err := fmt.Sscanf(strings.TrimSpace(q), "%d", &n); err == nil {
				clean["quantity"] = n
				dropped = append(dropped, fmt.Sprintf("items[%d].quantity(string)", i))
			}
		}
		for _, k := range []string{"unit_price", "line_total"} {
			switch p := item[k].(type) {
			case float64:
				clean[k] = trimFloat(p)
				dropped = append(dropped, fmt.Sprintf("items[%d].%s(number)", i, k))
			case string:
				clean[k] = strings.ReplaceAll(strings.TrimSpace(p), ",", "")
			}
		}
		// An item with no recoverable integer quantity would decode to
		// quantity 0 and fail the arithmetic check for the wrong reason.
		if _, ok := clean["quantity"]; !ok {
			dropped = append(dropped, fmt.Sprintf("items[%d](no quantity)", i))
			continue
		}
		out = append(out, clean)
	}
	return out, dropped
}

// trimFloat renders a JSON number as a decimal string without trailing
// zero noise ("9500" stays "9500", "45.5" stays "45.5").
func trimFloat(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
