package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/glosspoint/nailstock/internal/domain/models"
	"github.com/glosspoint/nailstock/internal/service/inventory"
)

// ProductHandler exposes the product and lot registry over HTTP.
type ProductHandler struct {
	svc    *inventory.Service
	logger *zap.Logger
}

// NewProductHandler constructs the HTTP handler adapter.
func NewProductHandler(svc *inventory.Service, logger *zap.Logger) *ProductHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductHandler{svc: svc, logger: logger}
}

type createProductRequest struct {
	Brand         string   `json:"brand"`
	Name          string   `json:"name" binding:"required"`
	Category      string   `json:"category" binding:"required"`
	Price         float64  `json:"price"`
	Capacity      *float64 `json:"capacity"`
	CapacityUnit  string   `json:"capacity_unit"`
	TotalQuantity int      `json:"total_quantity"`
	MinStockAlert int      `json:"min_stock_alert"`
}

// Create registers a product with its initial unused lots.
func (h *ProductHandler) Create(c *gin.Context) {
	userID, storeID, ok := authScope(c)
	if !ok {
		return
	}

	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	product, err := h.svc.CreateProduct(c.Request.Context(), inventory.CreateProductInput{
		StoreID:       storeID,
		ActorID:       userID,
		Brand:         req.Brand,
		Name:          req.Name,
		Category:      models.ProductCategory(req.Category),
		Price:         req.Price,
		Capacity:      req.Capacity,
		CapacityUnit:  req.CapacityUnit,
		TotalQuantity: req.TotalQuantity,
		MinStockAlert: req.MinStockAlert,
	})
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

// List returns the store's products.
func (h *ProductHandler) List(c *gin.Context) {
	_, storeID, ok := authScope(c)
	if !ok {
		return
	}

	products, err := h.svc.ListProducts(c.Request.Context(), storeID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, products)
}

// Get returns one product.
func (h *ProductHandler) Get(c *gin.Context) {
	_, storeID, ok := authScope(c)
	if !ok {
		return
	}
	productID, ok := pathID(c, "id")
	if !ok {
		return
	}

	product, err := h.svc.GetProduct(c.Request.Context(), storeID, productID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

type addStockRequest struct {
	Quantity      int      `json:"quantity" binding:"required,min=1"`
	StartInUse    bool     `json:"start_in_use"`
	InitialAmount *float64 `json:"initial_amount"`
}

// AddStock records a stock delivery for a product.
func (h *ProductHandler) AddStock(c *gin.Context) {
	userID, storeID, ok := authScope(c)
	if !ok {
		return
	}
	productID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req addStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	err := h.svc.AddStock(c.Request.Context(), inventory.AddStockInput{
		StoreID:       storeID,
		ProductID:     productID,
		ActorID:       userID,
		Quantity:      req.Quantity,
		StartInUse:    req.StartInUse,
		InitialAmount: req.InitialAmount,
	})
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// StartLot opens an unused lot.
func (h *ProductHandler) StartLot(c *gin.Context) {
	userID, storeID, ok := authScope(c)
	if !ok {
		return
	}
	lotID, ok := pathID(c, "lotId")
	if !ok {
		return
	}

	if err := h.svc.StartUsingLot(c.Request.Context(), storeID, lotID, userID); err != nil {
		fail(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// StockStatus returns the computed remaining quantity of a product.
func (h *ProductHandler) StockStatus(c *gin.Context) {
	_, storeID, ok := authScope(c)
	if !ok {
		return
	}
	productID, ok := pathID(c, "id")
	if !ok {
		return
	}

	status, err := h.svc.GetStockStatus(c.Request.Context(), storeID, productID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, status)
}
