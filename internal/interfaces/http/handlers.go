package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/legal-aid-claims/internal/application/port"
	"github.com/garyjia/legal-aid-claims/internal/domain/calculation"
	"github.com/garyjia/legal-aid-claims/internal/domain/entity"
	"github.com/garyjia/legal-aid-claims/internal/domain/workflow"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	deps Deps
}

// NewHandlers creates a new Handlers instance
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{deps: deps}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Components interface{} `json:"components,omitempty"`
}

// TotalsResponse wraps a totals snapshot with the figure bands are classified on
type TotalsResponse struct {
	ClaimID string `json:"claim_id"`
	entity.ClaimTotals
	TotalWithVat string `json:"total_with_vat"`
}

// TransitionsResponse is a claim's audit trail in the requested order
type TransitionsResponse struct {
	ClaimID     string                    `json:"claim_id"`
	Order       string                    `json:"order"`
	Filtered    bool                      `json:"filtered"`
	Transitions []entity.TransitionRecord `json:"transitions"`
}

// TransitionsQuery holds the query parameters of the timeline endpoint
type TransitionsQuery struct {
	Order    string `form:"order" binding:"omitempty,oneof=newest oldest"`
	Filtered bool   `form:"filtered"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	status := http.StatusOK
	if h.deps.Health != nil {
		healthy, details := h.deps.Health(c.Request.Context())
		response.Components = details
		if !healthy {
			response.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, Response{
		Success: status == http.StatusOK,
		Data:    response,
	})
}

// GetTotals handles GET /api/claims/:id/totals
func (h *Handlers) GetTotals(c *gin.Context) {
	claimID := c.Param("id")

	totals, err := h.deps.Totals.CurrentTotals(c.Request.Context(), claimID)
	if err != nil {
		h.fail(c, "Failed to get totals", claimID, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: TotalsResponse{
			ClaimID:      claimID,
			ClaimTotals:  totals,
			TotalWithVat: totals.TotalWithVat().String(),
		},
	})
}

// ListTransitions handles GET /api/claims/:id/transitions
func (h *Handlers) ListTransitions(c *gin.Context) {
	claimID := c.Param("id")

	var q TransitionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "order must be newest or oldest",
		})
		return
	}
	if q.Order == "" {
		q.Order = "oldest"
	}

	log, err := h.deps.Engine.TransitionHistory(c.Request.Context(), claimID)
	if err != nil {
		h.fail(c, "Failed to get transitions", claimID, err)
		return
	}

	var records []entity.TransitionRecord
	switch {
	case q.Filtered:
		records = log.Filtered()
		if q.Order == "oldest" {
			reverse(records)
		}
	case q.Order == "newest":
		records = log.NewestFirst()
	default:
		records = log.OldestFirst()
	}
	if records == nil {
		records = []entity.TransitionRecord{}
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: TransitionsResponse{
			ClaimID:     claimID,
			Order:       q.Order,
			Filtered:    q.Filtered,
			Transitions: records,
		},
	})
}

// ListPermittedEvents handles GET /api/claims/:id/events
func (h *Handlers) ListPermittedEvents(c *gin.Context) {
	claimID := c.Param("id")

	events, err := h.deps.Engine.PermittedEvents(c.Request.Context(), claimID)
	if err != nil {
		h.fail(c, "Failed to get permitted events", claimID, err)
		return
	}
	if events == nil {
		events = []workflow.Trigger{}
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    gin.H{"claim_id": claimID, "events": events},
	})
}

// fail maps an application error onto a status code
func (h *Handlers) fail(c *gin.Context, msg, claimID string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, port.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, calculation.ErrNoApplicableRate), errors.Is(err, calculation.ErrBandOverflow):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		h.deps.Logger.Error(msg, "error", err, "claim_id", claimID)
	}

	c.JSON(status, Response{
		Success: false,
		Error:   err.Error(),
	})
}

func reverse(records []entity.TransitionRecord) {
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
}
