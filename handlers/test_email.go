package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"uptimeworker/services"
)

type TestEmailRequest struct {
	NotificationEmail string `json:"notification_email"`
}

func (h *Handler) TestEmail(c *gin.Context) {
	var req TestEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if strings.TrimSpace(req.NotificationEmail) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing credentials or email"})
		return
	}

	err := h.mailer.TestEmail(c.Request.Context(), req.NotificationEmail)
	switch {
	case errors.Is(err, services.ErrNotifierUnconfigured):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing credentials or email"})
	case err != nil:
		h.log.Warn().Err(err).Msg("test email failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Test email sent"})
	}
}
