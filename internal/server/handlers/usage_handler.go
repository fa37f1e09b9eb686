package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/glosspoint/nailstock/internal/domain/models"
	"github.com/glosspoint/nailstock/internal/service/usage"
)

// UsageHandler exposes usage recording and history.
type UsageHandler struct {
	svc    *usage.Service
	logger *zap.Logger
}

// NewUsageHandler constructs the HTTP handler adapter.
func NewUsageHandler(svc *usage.Service, logger *zap.Logger) *UsageHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UsageHandler{svc: svc, logger: logger}
}

type relatedEntryRequest struct {
	ProductID string  `json:"product_id" binding:"required"`
	Amount    float64 `json:"amount" binding:"required"`
	Role      string  `json:"role"`
	Order     int     `json:"order"`
}

type recordUsageRequest struct {
	ProductID     string                `json:"product_id" binding:"required"`
	ServiceTypeID string                `json:"service_type_id" binding:"required"`
	Amount        float64               `json:"amount" binding:"required"`
	NailLength    string                `json:"nail_length"`
	CustomAmount  bool                  `json:"custom_amount"`
	Note          string                `json:"note"`
	Related       []relatedEntryRequest `json:"related"`
}

// Record persists one service performance and its lot consumption.
func (h *UsageHandler) Record(c *gin.Context) {
	userID, storeID, ok := authScope(c)
	if !ok {
		return
	}

	var req recordUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	productID, err := primitive.ObjectIDFromHex(req.ProductID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product_id"})
		return
	}
	serviceTypeID, err := primitive.ObjectIDFromHex(req.ServiceTypeID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid service_type_id"})
		return
	}

	related := make([]usage.RelatedEntry, 0, len(req.Related))
	for i, rel := range req.Related {
		relProductID, err := primitive.ObjectIDFromHex(rel.ProductID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid related product_id at index " + strconv.Itoa(i)})
			return
		}
		related = append(related, usage.RelatedEntry{
			ProductID: relProductID,
			Amount:    rel.Amount,
			Role:      models.ProductRole(rel.Role),
			Order:     rel.Order,
		})
	}

	length := models.NailLength(req.NailLength)
	if length == "" {
		length = models.LengthMedium
	}

	recorded, err := h.svc.Record(c.Request.Context(), usage.RecordInput{
		StoreID:       storeID,
		ProductID:     productID,
		ServiceTypeID: serviceTypeID,
		ActorID:       userID,
		Amount:        req.Amount,
		NailLength:    length,
		CustomAmount:  req.CustomAmount,
		Note:          req.Note,
		Related:       related,
	})
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, recorded)
}

// History lists the most recent usage events of the store.
func (h *UsageHandler) History(c *gin.Context) {
	_, storeID, ok := authScope(c)
	if !ok {
		return
	}

	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)

	usages, err := h.svc.History(c.Request.Context(), storeID, limit)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, usages)
}
