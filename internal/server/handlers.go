package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/logiparse/logiparse/constants"
	"github.com/logiparse/logiparse/internal/common"
	"github.com/logiparse/logiparse/internal/docreader"
	"github.com/logiparse/logiparse/internal/export"
	"github.com/logiparse/logiparse/internal/pipeline"
)

// maxUploadBytes caps multipart uploads; vision payloads get base64-inflated.
const maxUploadBytes = 20 << 20

func (s *Server) index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

type extractTextRequest struct {
	Text string `json:"text"`
	Mode string `json:"mode"`
}

type extractResponse struct {
	ID       uuid.UUID               `json:"id"`
	Envelope pipeline.ResultEnvelope `json:"envelope"`
}

func (s *Server) extractText(c *gin.Context) {
	var req extractTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	src := docreader.Source{Text: req.Text, Kind: constants.TEXT}
	s.runPipeline(c, src, parseMode(req.Mode))
}

func (s *Server) extractFile(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fh.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		s.respondError(c, common.WrapError(err, "open upload"))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		s.respondError(c, common.WrapError(err, "read upload"))
		return
	}

	src := docreader.Source{Bytes: data, Filename: fh.Filename}
	s.runPipeline(c, src, parseMode(c.PostForm("mode")))
}

func (s *Server) runPipeline(c *gin.Context, src docreader.Source, mode pipeline.Mode) {
	ctx := c.Request.Context()

	env, err := s.pipe.Process(ctx, src, mode)
	if err != nil {
		s.respondError(c, err)
		return
	}

	id, err := s.store.Save(ctx, env)
	if err != nil {
		// The extraction itself succeeded; log and serve it without an ID.
		s.logger.Error("server.history_save_failed", "error", err)
	}

	c.JSON(http.StatusOK, extractResponse{ID: id, Envelope: env})
}

type historySummary struct {
	ID            uuid.UUID            `json:"id"`
	CreatedAt     time.Time            `json:"created_at"`
	SourceType    constants.SourceType `json:"source_type"`
	Strategy      string               `json:"strategy"`
	Status        string               `json:"status"`
	InvoiceNumber *string              `json:"invoice_number"`
	FieldCoverage string               `json:"field_coverage"`
}

func (s *Server) listHistory(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	entries, err := s.store.Recent(c.Request.Context(), limit)
	if err != nil {
		s.respondError(c, err)
		return
	}

	summaries := make([]historySummary, 0, len(entries))
	for _, e := range entries {
		summaries = append(summaries, historySummary{
			ID:            e.ID,
			CreatedAt:     e.CreatedAt,
			SourceType:    e.Envelope.Metadata.SourceType,
			Strategy:      e.Envelope.Metadata.Strategy,
			Status:        e.Envelope.ValidationReport.Status,
			InvoiceNumber: e.Envelope.ExtractedData.InvoiceNumber,
			FieldCoverage: e.Envelope.ValidationReport.FieldCoverage,
		})
	}
	c.JSON(http.StatusOK, gin.H{"extractions": summaries})
}

func (s *Server) downloadJSON(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	entry, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	body, err := export.JSON(entry.Envelope)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="extracted_invoice.json"`)
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func (s *Server) downloadXLSX(c *gin.Context) {
	body, err := s.export.RecentXLSX(c.Request.Context(), 500)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="extractions.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", body)
}

func (s *Server) respondError(c *gin.Context, err error) {
	code := "INTERNAL"
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrUnsupportedFormat), errors.Is(err, common.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("server.request_failed", "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

func parseMode(raw string) pipeline.Mode {
	switch pipeline.Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case pipeline.ModeText:
		return pipeline.ModeText
	case pipeline.ModeVision:
		return pipeline.ModeVision
	default:
		return pipeline.ModePattern
	}
}
