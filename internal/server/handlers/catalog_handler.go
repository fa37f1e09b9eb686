package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/glosspoint/nailstock/internal/domain/models"
	"github.com/glosspoint/nailstock/internal/service/catalog"
)

// CatalogHandler exposes service type management.
type CatalogHandler struct {
	svc    *catalog.Service
	logger *zap.Logger
}

// NewCatalogHandler constructs the HTTP handler adapter.
func NewCatalogHandler(svc *catalog.Service, logger *zap.Logger) *CatalogHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogHandler{svc: svc, logger: logger}
}

type serviceTypeProductRequest struct {
	ProductID   string  `json:"product_id" binding:"required"`
	UsageAmount float64 `json:"usage_amount"`
	Required    bool    `json:"required"`
	Role        string  `json:"role"`
	Order       int     `json:"order"`
}

type createServiceTypeRequest struct {
	Name            string                      `json:"name" binding:"required"`
	ProductType     string                      `json:"product_type"`
	NominalAmount   float64                     `json:"nominal_amount"`
	ShortRate       int                         `json:"short_rate"`
	MediumRate      int                         `json:"medium_rate"`
	LongRate        int                         `json:"long_rate"`
	DesignVariant   string                      `json:"design_variant"`
	DesignUsageRate *float64                    `json:"design_usage_rate"`
	IsGelService    bool                        `json:"is_gel_service"`
	RequiresBaseTop bool                        `json:"requires_base_top"`
	Products        []serviceTypeProductRequest `json:"products"`
}

// Create defines a new service type.
func (h *CatalogHandler) Create(c *gin.Context) {
	userID, storeID, ok := authScope(c)
	if !ok {
		return
	}

	var req createServiceTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	assocs := make([]models.ServiceTypeProduct, 0, len(req.Products))
	for _, p := range req.Products {
		productID, err := primitive.ObjectIDFromHex(p.ProductID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product_id in products"})
			return
		}
		assocs = append(assocs, models.ServiceTypeProduct{
			ProductID:   productID,
			UsageAmount: p.UsageAmount,
			Required:    p.Required,
			Role:        models.ProductRole(p.Role),
			Order:       p.Order,
		})
	}

	st, err := h.svc.Create(c.Request.Context(), catalog.CreateInput{
		StoreID:         storeID,
		ActorID:         userID,
		Name:            req.Name,
		ProductType:     models.ProductCategory(req.ProductType),
		NominalAmount:   req.NominalAmount,
		ShortRate:       req.ShortRate,
		MediumRate:      req.MediumRate,
		LongRate:        req.LongRate,
		DesignVariant:   req.DesignVariant,
		DesignUsageRate: req.DesignUsageRate,
		IsGelService:    req.IsGelService,
		RequiresBaseTop: req.RequiresBaseTop,
		Products:        assocs,
	})
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, st)
}

// List returns the store's service types.
func (h *CatalogHandler) List(c *gin.Context) {
	_, storeID, ok := authScope(c)
	if !ok {
		return
	}

	types, err := h.svc.List(c.Request.Context(), storeID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, types)
}

// Get returns one service type.
func (h *CatalogHandler) Get(c *gin.Context) {
	_, storeID, ok := authScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	st, err := h.svc.Get(c.Request.Context(), storeID, id)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, st)
}

// ResolveAmount applies length/design adjustment to a base amount.
func (h *CatalogHandler) ResolveAmount(c *gin.Context) {
	_, storeID, ok := authScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	base, err := strconv.ParseFloat(c.DefaultQuery("base", "0"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid base"})
		return
	}
	length := models.NailLength(c.DefaultQuery("length", string(models.LengthMedium)))

	amount, err := h.svc.ResolveAdjustedAmount(c.Request.Context(), storeID, id, base, length)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"amount": amount})
}

type copyServiceTypeRequest struct {
	Name            string   `json:"name" binding:"required"`
	DesignVariant   *string  `json:"design_variant"`
	DesignUsageRate *float64 `json:"design_usage_rate"`
}

// Copy duplicates a service type under a new name.
func (h *CatalogHandler) Copy(c *gin.Context) {
	userID, storeID, ok := authScope(c)
	if !ok {
		return
	}
	sourceID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req copyServiceTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	st, err := h.svc.Copy(c.Request.Context(), storeID, sourceID, req.Name, catalog.CopyOverrides{
		DesignVariant:   req.DesignVariant,
		DesignUsageRate: req.DesignUsageRate,
	}, userID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, st)
}
