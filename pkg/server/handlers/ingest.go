package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openincentives/matchengine/pkg/server/dto"
)

// IngestHandler handles candidate pool mutations
type IngestHandler struct {
	engine Engine
}

// NewIngestHandler creates a new ingest handler
func NewIngestHandler(engine Engine) *IngestHandler {
	return &IngestHandler{
		engine: engine,
	}
}

// AddOrganizations handles POST /organizations. Embedding happens inline
// so a successful response means the pool is immediately queryable.
func (h *IngestHandler) AddOrganizations(c *gin.Context) {
	var req dto.IngestOrganizationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	if err := h.engine.AddCandidates(c.Request.Context(), req.Organizations); err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "ingest_failed",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, dto.Result{
		Success: true,
		Data: gin.H{
			"ingested":  len(req.Organizations),
			"pool_size": h.engine.CandidateCount(),
		},
	})
}

// RemoveOrganization handles DELETE /organizations/:id
func (h *IngestHandler) RemoveOrganization(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_request",
			Message: "organization id is required",
		})
		return
	}

	h.engine.RemoveCandidate(id)

	c.JSON(http.StatusOK, dto.Result{
		Success: true,
		Data: gin.H{
			"removed":   id,
			"pool_size": h.engine.CandidateCount(),
		},
	})
}
