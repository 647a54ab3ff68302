package relay

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"leadrelay/internal/logger"
	"leadrelay/pkg/errors"
)

// Handler exposes the webhook endpoint over HTTP.
type Handler struct {
	service *Service
	logger  logger.Logger
}

func NewHandler(service *Service, log logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.POST("/webhook/lead-status", h.HandleNotification)
}

// HandleNotification accepts a CRM status-change notification and replies
// with the relay decision. Upstream and downstream failures surface as 502
// so the CRM retries delivery on its side.
func (h *Handler) HandleNotification(c *gin.Context) {
	var payload map[string]interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		appErr := errors.ErrValidation.WithCause(err).WithDetail("reason", "request body is not a JSON object")
		c.JSON(errors.ToHTTPStatus(appErr), errors.ToErrorResponse(appErr))
		return
	}

	decision, err := h.service.Process(c.Request.Context(), payload)
	if err != nil {
		h.logger.ErrorwCtx(c.Request.Context(), "Relay processing failed",
			"error", err,
		)
		c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, decisionResponse(decision))
}

func decisionResponse(decision *Decision) gin.H {
	outcome := decision.Outcome

	if decision.Forwarded {
		return gin.H{
			"ok":        true,
			"forwarded": true,
			"leadId":    outcome.LeadID,
		}
	}

	resp := gin.H{
		"ok":        true,
		"forwarded": false,
		"leadId":    outcome.LeadID,
		"statusId":  outcome.StatusID,
		"reasons": gin.H{
			"statusPass": outcome.StatusPass,
			"movedPass":  outcome.MovedPass,
		},
	}
	if !outcome.MovedTime.IsZero() {
		resp["movedTime"] = outcome.MovedTime.Format(time.RFC3339)
	}
	return resp
}
