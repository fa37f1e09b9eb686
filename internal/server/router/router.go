package router

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/glosspoint/nailstock/internal/server/handlers"
)

// Handlers bundles the HTTP adapters the router wires up.
type Handlers struct {
	Auth      *handlers.AuthHandler
	Products  *handlers.ProductHandler
	Usage     *handlers.UsageHandler
	Catalog   *handlers.CatalogHandler
	Dashboard *handlers.DashboardHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, jwtSecret string, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	auth := r.Group("/auth")
	{
		auth.POST("/register", h.Auth.RegisterStore)
		auth.POST("/login", h.Auth.Login)

		auth.Use(authMiddleware(jwtSecret))
		auth.GET("/me", h.Auth.Me)
		auth.POST("/staff", h.Auth.AddStaff)
	}

	api := r.Group("/api")
	api.Use(authMiddleware(jwtSecret))
	{
		products := api.Group("/products")
		{
			products.POST("", h.Products.Create)
			products.GET("", h.Products.List)
			products.GET("/:id", h.Products.Get)
			products.POST("/:id/stock", h.Products.AddStock)
			products.GET("/:id/stock-status", h.Products.StockStatus)
		}
		api.POST("/lots/:lotId/start", h.Products.StartLot)

		usages := api.Group("/usages")
		{
			usages.POST("", h.Usage.Record)
			usages.GET("", h.Usage.History)
		}

		serviceTypes := api.Group("/service-types")
		{
			serviceTypes.POST("", h.Catalog.Create)
			serviceTypes.GET("", h.Catalog.List)
			serviceTypes.GET("/:id", h.Catalog.Get)
			serviceTypes.GET("/:id/adjusted-amount", h.Catalog.ResolveAmount)
			serviceTypes.POST("/:id/copy", h.Catalog.Copy)
		}

		dash := api.Group("/dashboard")
		{
			dash.GET("/summary", h.Dashboard.Summary)
			dash.GET("/trends/:serviceTypeId", h.Dashboard.Trend)
			dash.GET("/reorders", h.Dashboard.Reorders)
			dash.GET("/activities", h.Dashboard.Activities)
		}
	}

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

// authMiddleware validates the bearer token and stashes the user/store ids
// into the request context.
func authMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}

		tokenString := header
		if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
			tokenString = header[7:]
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			return
		}

		userID, err := objectIDClaim(claims, "sub")
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			return
		}
		storeID, err := objectIDClaim(claims, "storeId")
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			return
		}

		c.Set(handlers.CtxUserIDKey, userID)
		c.Set(handlers.CtxStoreIDKey, storeID)
		c.Next()
	}
}

func objectIDClaim(claims jwt.MapClaims, key string) (primitive.ObjectID, error) {
	raw, ok := claims[key].(string)
	if !ok {
		return primitive.ObjectID{}, errors.New("missing claim " + key)
	}
	return primitive.ObjectIDFromHex(raw)
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
