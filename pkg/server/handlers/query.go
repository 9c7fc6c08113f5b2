package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/graphweave/graphweave"
	"github.com/graphweave/graphweave/pkg/server/dto"
	"github.com/graphweave/graphweave/pkg/store"
)

// QueryHandler serves read access to the knowledge graph.
type QueryHandler struct {
	engine *graphweave.Client
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(engine *graphweave.Client) *QueryHandler {
	return &QueryHandler{engine: engine}
}

// ListTriples handles GET /api/v1/triples. Supports subject_id, predicate_id,
// object_id and limit query parameters.
func (h *QueryHandler) ListTriples(c *gin.Context) {
	tenant := tenantFrom(c)

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(c, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	triples, err := h.engine.Store().FilterTriples(c.Request.Context(), store.TripleFilter{
		Tenant:      tenant,
		SubjectID:   c.Query("subject_id"),
		PredicateID: c.Query("predicate_id"),
		ObjectID:    c.Query("object_id"),
		Limit:       limit,
	})
	if err != nil {
		writeError(c, http.StatusInternalServerError, "query_failed", err.Error())
		return
	}

	views := tripleViews(c.Request.Context(), h.engine, triples)
	c.JSON(http.StatusOK, dto.TriplesResult{
		Count:   len(views),
		Triples: views,
	})
}

// ListEntities handles GET /api/v1/entities with offset/limit pagination.
func (h *QueryHandler) ListEntities(c *gin.Context) {
	tenant := tenantFrom(c)

	offset := 0
	if raw := c.Query("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(c, http.StatusBadRequest, "invalid_request", "offset must be a non-negative integer")
			return
		}
		offset = parsed
	}
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(c, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	entities, err := h.engine.Store().ListEntities(c.Request.Context(), tenant, offset, limit)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "query_failed", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":    len(entities),
		"entities": entities,
	})
}
