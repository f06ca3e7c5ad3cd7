package dispatch

import (
	"log/slog"
	"net/http"

	"courier/internal/common"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for the dispatch domain.
type Handler struct {
	service *Service
}

// NewHandler creates a new dispatch handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Dispatch handles POST /api/v1/dispatch
// Sync mode returns the full result batch; queued mode returns the
// delivery IDs handed to the worker.
func (h *Handler) Dispatch(c *gin.Context) {
	var req DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, err := h.service.Dispatch(c.Request.Context(), &req)
	if err != nil {
		slog.Error("dispatch failed",
			"error", err,
			"kind", req.Kind,
			"strategy", req.Strategy,
			"recipients", len(req.Recipients),
		)
		common.HandleError(c, err)
		return
	}

	status := http.StatusOK
	if resp.Mode == ModeQueued {
		status = http.StatusAccepted
	}
	common.Success(c, status, resp)
}

// GetDelivery handles GET /api/v1/deliveries/:id
func (h *Handler) GetDelivery(c *gin.Context) {
	id := c.Param("id")

	d, err := h.service.GetDelivery(c.Request.Context(), id)
	if err != nil {
		common.HandleError(c, err)
		return
	}

	common.Success(c, http.StatusOK, d)
}

// ListDeliveries handles GET /api/v1/deliveries
func (h *Handler) ListDeliveries(c *gin.Context) {
	var filter ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		common.Error(c, http.StatusBadRequest, "invalid query parameters: "+err.Error())
		return
	}

	resp, err := h.service.ListDeliveries(c.Request.Context(), filter)
	if err != nil {
		common.HandleError(c, err)
		return
	}

	common.Success(c, http.StatusOK, resp)
}

// ListChannels handles GET /api/v1/channels
func (h *Handler) ListChannels(c *gin.Context) {
	common.Success(c, http.StatusOK, gin.H{"kinds": h.service.Kinds()})
}

// Metrics handles GET /api/v1/metrics
func (h *Handler) Metrics(c *gin.Context) {
	common.Success(c, http.StatusOK, h.service.Metrics())
}

// RegisterRoutes registers dispatch routes to the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/dispatch", h.Dispatch)
	rg.GET("/deliveries", h.ListDeliveries)
	rg.GET("/deliveries/:id", h.GetDelivery)
	rg.GET("/channels", h.ListChannels)
	rg.GET("/metrics", h.Metrics)
}
