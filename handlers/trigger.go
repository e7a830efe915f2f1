package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// TriggerCheck runs one batch synchronously and returns its summary. The
// batch outlives a client that disconnects mid-run.
func (h *Handler) TriggerCheck(c *gin.Context) {
	res, err := h.runner.RunBatch(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		h.log.Error().Err(err).Msg("manual batch failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}
