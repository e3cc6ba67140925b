// Package handlers implements the HTTP endpoint handlers.
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fuelguard-dz/fuelguard/internal/models"
)

// getUserID returns the authenticated account ID set by the auth middleware.
func getUserID(c *gin.Context) (uuid.UUID, bool) {
	value, ok := c.Get("userID")
	if !ok {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// getUser returns the authenticated account loaded by the auth middleware.
func getUser(c *gin.Context) (*models.User, bool) {
	value, ok := c.Get("user")
	if !ok {
		return nil, false
	}
	user, ok := value.(*models.User)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}

// parseIDParam parses the :id (or named) route parameter as a UUID.
func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, errParse := uuid.Parse(c.Param(name))
	if errParse != nil {
		return uuid.Nil, false
	}
	return id, true
}
