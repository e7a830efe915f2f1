package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"uptimeworker/middleware"
	"uptimeworker/services"
)

type CheckRequest struct {
	SiteID string `json:"site_id"`
}

// CheckSite probes one site on demand for the authenticated user.
func (h *Handler) CheckSite(c *gin.Context) {
	var req CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if req.SiteID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing site_id"})
		return
	}
	if _, err := uuid.Parse(req.SiteID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid site_id"})
		return
	}

	ownerID := ""
	if h.cfg.Features.AuthEnabled {
		id, _ := middleware.IdentityFrom(c)
		ownerID = id.UserID
	}

	res, err := h.runner.RunSingle(context.WithoutCancel(c.Request.Context()), req.SiteID, ownerID)
	switch {
	case errors.Is(err, services.ErrSiteNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Site not found"})
	case errors.Is(err, services.ErrSiteBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		h.log.Error().Err(err).Str("site_id", req.SiteID).Msg("on-demand check failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, res)
	}
}
