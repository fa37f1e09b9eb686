package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/glosspoint/nailstock/internal/repository/mongodb"
	"github.com/glosspoint/nailstock/internal/service/dashboard"
)

// DashboardHandler exposes the read-only reporting endpoints.
type DashboardHandler struct {
	svc        *dashboard.Service
	activities mongodb.ActivityRepository
	logger     *zap.Logger
}

// NewDashboardHandler constructs the HTTP handler adapter.
func NewDashboardHandler(svc *dashboard.Service, activities mongodb.ActivityRepository, logger *zap.Logger) *DashboardHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardHandler{svc: svc, activities: activities, logger: logger}
}

// Summary returns the store overview.
func (h *DashboardHandler) Summary(c *gin.Context) {
	_, storeID, ok := authScope(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, h.svc.Summarize(c.Request.Context(), storeID))
}

// Trend returns the monthly rollups for a service type.
func (h *DashboardHandler) Trend(c *gin.Context) {
	_, _, ok := authScope(c)
	if !ok {
		return
	}
	serviceTypeID, ok := pathID(c, "serviceTypeId")
	if !ok {
		return
	}

	points, err := h.svc.Trend(c.Request.Context(), serviceTypeID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, points)
}

// Reorders returns the depletion forecasts for the store.
func (h *DashboardHandler) Reorders(c *gin.Context) {
	_, storeID, ok := authScope(c)
	if !ok {
		return
	}

	forecasts, err := h.svc.PredictReorders(c.Request.Context(), storeID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, forecasts)
}

// Activities lists the store's audit trail, newest first.
func (h *DashboardHandler) Activities(c *gin.Context) {
	_, storeID, ok := authScope(c)
	if !ok {
		return
	}

	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "100"), 10, 64)

	entries, err := h.activities.List(c.Request.Context(), storeID, limit)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}
