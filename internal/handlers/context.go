package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/complaintdesk/internal/middleware"
	"github.com/charlesng35/complaintdesk/pkg/errors"
	"github.com/charlesng35/complaintdesk/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentUserID returns the authenticated user ID, writing a 401 when it is missing.
func currentUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return "", false
	}
	return userID, true
}
