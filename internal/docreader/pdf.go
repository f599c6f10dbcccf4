package docreader

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// extractPDFText pulls text from every page, concatenated in page order.
// Pages without a text layer contribute nothing; a PDF with no text at all
// yields "" and no error.
func extractPDFText(data []byte) (string, int, error) {
	conf := model.NewDefaultConfiguration()
	pctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return "", 0, fmt.Errorf("pdfcpu read: %w", err)
	}

	var b strings.Builder
	for pageNr := 1; pageNr <= pctx.PageCount; pageNr++ {
		pageText := extractPageText(pctx, pageNr)
		if pageText == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(pageText)
	}
	return b.String(), pctx.PageCount, nil
}

func extractPageText(pctx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(pctx, pageNr)
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return textFromContentStream(data)
}

// textFromContentStream walks the text-show operators (Tj, TJ, ', Td/TD, T*)
// of a PDF content stream and rebuilds line-oriented text. Line breaks are
// preserved: the field patterns downstream anchor on "<label>: value" lines.
func textFromContentStream(data []byte) string {
	var sb strings.Builder

	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		switch {
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			writeStringLiterals(&sb, line, false)
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			writeStringLiterals(&sb, line, true)
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")), bytes.Equal(line, []byte("T*")):
			sb.WriteByte('\n')
		}
	}

	return collapseSpaces(sb.String())
}

// writeStringLiterals extracts every (…) literal on an operator line.
func writeStringLiterals(sb *strings.Builder, line []byte, newline bool) {
	depth := 0
	var lit []byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '\\' && i+1 < len(line) && depth > 0:
			lit = append(lit, c, line[i+1])
			i++
		case c == '(':
			depth++
			if depth == 1 {
				lit = lit[:0]
			} else {
				lit = append(lit, c)
			}
		case c == ')':
			depth--
			if depth == 0 {
				if newline {
					sb.WriteByte('\n')
				}
				sb.WriteString(decodePDFString(lit))
			} else if depth > 0 {
				lit = append(lit, c)
			}
		case depth > 0:
			lit = append(lit, c)
		}
	}
}

// decodePDFString handles the basic PDF escape sequences, including octal.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		default:
			if raw[i] >= '0' && raw[i] <= '7' {
				val := int(raw[i] - '0')
				for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
					i++
					val = val*8 + int(raw[i]-'0')
				}
				sb.WriteByte(byte(val))
			} else {
				sb.WriteByte(raw[i])
			}
		}
	}
	return sb.String()
}

// collapseSpaces squeezes runs of spaces and tabs and trims blank-line runs,
// keeping newlines so label lines survive intact.
func collapseSpaces(text string) string {
	var sb strings.Builder
	spaces, newlines := 0, 0
	for _, r := range text {
		switch r {
		case '\n', '\r':
			newlines++
			spaces = 0
		case ' ', '\t':
			spaces++
		default:
			if newlines > 0 {
				if sb.Len() > 0 {
					sb.WriteByte('\n')
					if newlines > 1 {
						sb.WriteByte('\n')
					}
				}
				newlines = 0
			} else if spaces > 0 && sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			spaces = 0
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
