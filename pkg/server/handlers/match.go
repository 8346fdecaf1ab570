package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openincentives/matchengine/pkg/server/dto"
)

// MatchHandler handles ranking requests
type MatchHandler struct {
	engine Engine
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(engine Engine) *MatchHandler {
	return &MatchHandler{
		engine: engine,
	}
}

// Match handles POST /match
func (h *MatchHandler) Match(c *gin.Context) {
	var req dto.MatchRequest
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

	run, err := h.engine.Match(c.Request.Context(), req.Program)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "match_failed",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, dto.Result{
		Success: true,
		Data:    run,
	})
}

// MatchBatch handles POST /match/batch. Partial failures return the runs
// that completed alongside the joined error text.
func (h *MatchHandler) MatchBatch(c *gin.Context) {
	var req dto.BatchMatchRequest
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

	runs, err := h.engine.MatchAll(c.Request.Context(), req.Programs)
	result := dto.Result{
		Success: err == nil,
		Data:    runs,
	}
	if err != nil {
		result.Error = err.Error()
		c.JSON(http.StatusMultiStatus, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Costs handles GET /costs
func (h *MatchHandler) Costs(c *gin.Context) {
	c.JSON(http.StatusOK, dto.Result{
		Success: true,
		Data:    h.engine.CostStats(),
	})
}
