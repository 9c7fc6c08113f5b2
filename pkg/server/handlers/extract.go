package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/graphweave/graphweave"
	"github.com/graphweave/graphweave/pkg/server/dto"
	"github.com/graphweave/graphweave/pkg/types"
)

// ExtractHandler handles extraction and integration requests.
type ExtractHandler struct {
	engine     *graphweave.Client
	dispatcher *graphweave.Dispatcher
	logger     *slog.Logger
}

// NewExtractHandler creates a new extract handler.
func NewExtractHandler(engine *graphweave.Client, dispatcher *graphweave.Dispatcher, logger *slog.Logger) *ExtractHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractHandler{
		engine:     engine,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Extract handles POST /api/v1/extract. The request is queued for background
// processing and the call returns immediately with a process id.
func (h *ExtractHandler) Extract(c *gin.Context) {
	var req dto.ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	tenant := tenantFrom(c)
	processID := generateProcessID()

	task := func(ctx context.Context) error {
		saved, err := h.runExtraction(ctx, &req, tenant)
		if err != nil {
			h.logger.Error("background extraction failed", "process_id", processID, "tenant", tenant, "error", err)
			return err
		}
		h.logger.Info("background extraction complete", "process_id", processID, "tenant", tenant, "triples", len(saved))
		return nil
	}

	if err := h.dispatcher.Enqueue(task); err != nil {
		if errors.Is(err, graphweave.ErrQueueFull) {
			writeError(c, http.StatusServiceUnavailable, "queue_full", "extraction queue is full, retry later")
			return
		}
		writeError(c, http.StatusServiceUnavailable, "dispatcher_unavailable", err.Error())
		return
	}

	c.JSON(http.StatusAccepted, dto.ExtractAccepted{
		Success:   true,
		ProcessID: processID,
		Message:   "extraction queued",
	})
}

// ExtractSync handles POST /api/v1/extract/sync and blocks until extraction
// and integration finish.
func (h *ExtractHandler) ExtractSync(c *gin.Context) {
	var req dto.ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	tenant := tenantFrom(c)
	saved, err := h.runExtraction(c.Request.Context(), &req, tenant)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "extraction_failed", err.Error())
		return
	}

	c.JSON(http.StatusOK, dto.ExtractResult{
		Success: true,
		Count:   len(saved),
		Triples: tripleViews(c.Request.Context(), h.engine, saved),
	})
}

// Integrate handles POST /api/v1/integrate and runs full-graph integration
// for the tenant.
func (h *ExtractHandler) Integrate(c *gin.Context) {
	tenant := tenantFrom(c)

	created, err := h.engine.IntegrateAll(c.Request.Context(), tenant)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "integration_failed", err.Error())
		return
	}

	c.JSON(http.StatusOK, dto.IntegrateResult{
		Success: true,
		Created: created,
	})
}

func (h *ExtractHandler) runExtraction(ctx context.Context, req *dto.ExtractRequest, tenant string) ([]*types.Triple, error) {
	if len(req.Messages) > 0 {
		messages := make([]types.Message, 0, len(req.Messages))
		for _, m := range req.Messages {
			messages = append(messages, types.Message{
				Role:    types.Role(strings.ToLower(m.Role)),
				Content: m.Content,
			})
		}
		return h.engine.ExtractFromConversation(ctx, messages, req.SourceID, tenant)
	}
	return h.engine.ExtractFromText(ctx, req.Text, req.SourceID, tenant)
}
