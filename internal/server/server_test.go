package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logiparse/logiparse/internal/docreader"
	"github.com/logiparse/logiparse/internal/export"
	"github.com/logiparse/logiparse/internal/extract"
	"github.com/logiparse/logiparse/internal/history"
	"github.com/logiparse/logiparse/internal/pipeline"
)

const sampleInvoice = `LOGISTICS INVOICE
Invoice No: INV-2024-00892
Date: February 20, 2024
Tracking No: TRK-PH-44821

From: ABC Warehousing Corp., Mandaue City, Cebu
To: XYZ Retail Store, Makati City, Metro Manila

Items:
Industrial Fan Motor     2    1500.00    3000.00
Conveyor Belt Segment    5     800.00    4000.00
Safety Gloves (box)     10     250.00    2500.00

Total Weight: 45.5 kg
Total Amount: PHP 9,500.00`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := history.OpenMemory(logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	pipe := pipeline.New(logger, docreader.New(logger), extract.NewPatternStrategy(), nil, nil)
	return New(pipe, store, export.NewService(store, logger), logger)
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestExtractTextEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/extract", map[string]string{"text": sampleInvoice})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		ID       uuid.UUID               `json:"id"`
		Envelope pipeline.ResultEnvelope `json:"envelope"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.NotEqual(t, uuid.Nil, resp.ID)
	assert.Equal(t, "PASS", resp.Envelope.ValidationReport.Status)
	require.NotNil(t, resp.Envelope.ExtractedData.InvoiceNumber)
	assert.Equal(t, "INV-2024-00892", *resp.Envelope.ExtractedData.InvoiceNumber)
	assert.Len(t, resp.Envelope.ExtractedData.Items, 3)
}

func TestExtractTextEmptyBody(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/extract", map[string]string{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/extract", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExtractTextMissingDelegatedStrategy(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/extract",
		map[string]string{"text": "x", "mode": "text"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "STRATEGY_UNAVAILABLE")
}

func TestExtractFileUnsupportedExtension(t *testing.T) {
	srv := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "notes.docx")
	require.NoError(t, err)
	_, err = fw.Write([]byte("not a supported format"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/extract/file", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "UNSUPPORTED_FORMAT")
}

func TestExtractFileMissingFile(t *testing.T) {
	srv := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("mode", "pattern"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/extract/file", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryListAndDownload(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/extract", map[string]string{"text": sampleInvoice})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		ID uuid.UUID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	w = doJSON(t, srv, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Extractions []historySummary `json:"extractions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Extractions, 1)
	assert.Equal(t, resp.ID, list.Extractions[0].ID)
	assert.Equal(t, "PASS", list.Extractions[0].Status)
	assert.Equal(t, "5/5 key fields extracted", list.Extractions[0].FieldCoverage)

	w = doJSON(t, srv, http.MethodGet, "/api/history/"+resp.ID.String()+"/export.json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "extracted_invoice.json")
	assert.Contains(t, w.Body.String(), "INV-2024-00892")
	assert.NotContains(t, w.Body.String(), "raw_text_preview")
}

func TestHistoryDownloadUnknownID(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/history/"+uuid.NewString()+"/export.json", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/history/not-a-uuid/export.json", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportXLSXEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/extract", map[string]string{"text": sampleInvoice})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/export.xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "extractions.xlsx")
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestIndexServesUI(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Header().Get("Content-Type"), "text/html"))
	assert.Contains(t, w.Body.String(), "LogiParse")
}
