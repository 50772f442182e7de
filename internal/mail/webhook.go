package mail

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// WebhookStore is the single operation the webhook needs.
type WebhookStore interface {
	UpdateStatusByProviderID(ctx context.Context, providerMessageID, status string) error
}

// eventStatus maps provider event types onto mail_log statuses. Opens and
// clicks both count as the recipient acknowledging the mail.
var eventStatus = map[string]string{
	"email.sent":       StatusSent,
	"email.delivered":  StatusDelivered,
	"email.opened":     StatusReceived,
	"email.clicked":    StatusReceived,
	"email.bounced":    StatusFailed,
	"email.complained": StatusFailed,
}

type WebhookHandler struct {
	store  WebhookStore
	logger *slog.Logger
}

func RegisterWebhook(rg *gin.RouterGroup, store WebhookStore, logger *slog.Logger) {
	h := &WebhookHandler{store: store, logger: logger}
	rg.POST("/webhook", h.handle)
}

type webhookPayload struct {
	Type string `json:"type"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// handle acknowledges every delivery with 200 so the provider never
// retries forever; unknown or malformed events are dropped on purpose.
func (h *WebhookHandler) handle(c *gin.Context) {
	var payload webhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	status, known := eventStatus[payload.Type]
	if !known || payload.Data.ID == "" {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	if err := h.store.UpdateStatusByProviderID(c.Request.Context(), payload.Data.ID, status); err != nil {
		h.logger.Error("webhook status update failed", "provider_message_id", payload.Data.ID, "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
