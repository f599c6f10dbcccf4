// Package docreader turns an input source (pasted text, PDF, image) into
// either plain text for the deterministic path or raw bytes plus MIME type
// for vision-capable strategies.
package docreader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/logiparse/logiparse/constants"
	"github.com/logiparse/logiparse/internal/common"
)

// Source describes one input document.
type Source struct {
	Text     string               // inline text; implies kind TEXT when set
	Path     string               // on-disk document
	Bytes    []byte               // in-memory document (uploads)
	Filename string               // declared name when Bytes is set; supplies the extension
	Kind     constants.SourceType // declared kind; derived from the extension when empty
}

// Document is the reader's output: text, or bytes plus MIME type.
type Document struct {
	Kind  constants.SourceType
	Text  string
	Bytes []byte
	MIME  string
}

// name returns whatever filename information the source carries.
func (s Source) name() string {
	if s.Path != "" {
		return s.Path
	}
	return s.Filename
}

// ResolveKind returns the declared kind, or derives it from the file
// extension. Unrecognized extensions fail with ErrUnsupportedFormat.
func (s Source) ResolveKind() (constants.SourceType, error) {
	if s.Kind != "" {
		return s.Kind, nil
	}
	name := s.name()
	if name == "" {
		if s.Text != "" {
			return constants.TEXT, nil
		}
		return "", common.NewAppError("INVALID_SOURCE", "source carries neither text nor a document", common.ErrInvalidInput)
	}
	ext := filepath.Ext(name)
	kind := constants.MapExtToFormat(ext)
	if kind == "" {
		return "", common.NewAppError("UNSUPPORTED_FORMAT",
			fmt.Sprintf("unrecognized file extension %q", ext), common.ErrUnsupportedFormat)
	}
	return kind, nil
}

type Reader struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{logger: logger}
}

// ReadText produces a plain-text document for the deterministic path.
// PDFs go through page-by-page text extraction concatenated in page order;
// empty or non-text PDFs yield an empty string rather than an error.
func (r *Reader) ReadText(ctx context.Context, src Source) (Document, error) {
	kind, err := src.ResolveKind()
	if err != nil {
		return Document{}, err
	}
	switch kind {
	case constants.TEXT:
		return Document{Kind: constants.TEXT, Text: src.Text}, nil
	case constants.PDF:
		data, err := r.load(src)
		if err != nil {
			return Document{}, err
		}
		text, pages, err := extractPDFText(data)
		if err != nil {
			return Document{}, common.WrapError(err, "read pdf")
		}
		r.logger.Debug("docreader.pdf.text", "pages", pages, "chars", len(text))
		return Document{Kind: constants.PDF, Text: text}, nil
	default:
		// Images carry no extractable text; the pipeline routes them to vision.
		return Document{}, common.NewAppError("UNSUPPORTED_FORMAT",
			"images have no text layer; use the vision strategy", common.ErrUnsupportedFormat)
	}
}

// ReadBinary produces raw bytes plus MIME type for vision-capable strategies.
// The MIME type is sniffed from content, falling back to the extension.
func (r *Reader) ReadBinary(ctx context.Context, src Source) (Document, error) {
	kind, err := src.ResolveKind()
	if err != nil {
		return Document{}, err
	}
	if kind == constants.TEXT {
		return Document{}, common.NewAppError("INVALID_SOURCE", "inline text has no binary form", common.ErrInvalidInput)
	}
	data, err := r.load(src)
	if err != nil {
		return Document{}, err
	}
	mt := mimetype.Detect(data).String()
	if mt == "" || mt == "application/octet-stream" {
		mt = constants.MIMEForExt(filepath.Ext(src.name()))
	}
	r.logger.Debug("docreader.binary", "kind", kind, "mime", mt, "bytes", len(data))
	return Document{Kind: kind, Bytes: data, MIME: mt}, nil
}

func (r *Reader) load(src Source) ([]byte, error) {
	if src.Bytes != nil {
		return src.Bytes, nil
	}
	data, err := os.ReadFile(src.Path)
	if err != nil {
		return nil, common.WrapError(err, "read source file")
	}
	return data, nil
}
