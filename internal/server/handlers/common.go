package handlers

import (
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/glosspoint/nailstock/internal/apperr"
)

// Context keys set by the auth middleware.
const (
	CtxUserIDKey  = "userId"
	CtxStoreIDKey = "storeId"
)

// authScope pulls the authenticated user and store ids out of the request
// context. The auth middleware guarantees both are present on /api routes.
func authScope(c *gin.Context) (userID, storeID primitive.ObjectID, ok bool) {
	rawUser, userOK := c.Get(CtxUserIDKey)
	rawStore, storeOK := c.Get(CtxStoreIDKey)
	if !userOK || !storeOK {
		c.AbortWithStatusJSON(401, gin.H{"error": "missing auth context"})
		return primitive.ObjectID{}, primitive.ObjectID{}, false
	}
	return rawUser.(primitive.ObjectID), rawStore.(primitive.ObjectID), true
}

// pathID parses an ObjectID path parameter, responding 400 on garbage.
func pathID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.AbortWithStatusJSON(400, gin.H{"error": "invalid " + name})
		return primitive.ObjectID{}, false
	}
	return id, true
}

// fail translates a domain error into the HTTP response, logging unexpected
// failures.
func fail(c *gin.Context, logger *zap.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status >= 500 && logger != nil {
		logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": apperr.Code(err)})
}
