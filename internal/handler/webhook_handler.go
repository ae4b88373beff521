package handler

import (
	"crypto/subtle"
	"log"
	"net/http"

	"droply/internal/bot"
	"droply/pkg/telegram"

	"github.com/gin-gonic/gin"
)

// WebhookHandler receives platform updates. The bot token doubles as the
// webhook path secret, which is the platform's recommended scheme.
type WebhookHandler struct {
	bot   *bot.Bot
	token string
}

func NewWebhookHandler(b *bot.Bot, token string) *WebhookHandler {
	return &WebhookHandler{bot: b, token: token}
}

func (h *WebhookHandler) Receive(c *gin.Context) {
	if subtle.ConstantTimeCompare([]byte(c.Param("token")), []byte(h.token)) != 1 {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	var upd telegram.Update
	if err := c.ShouldBindJSON(&upd); err != nil {
		log.Printf("[webhook] malformed update: %v", err)
		// 200 anyway: a non-2xx makes the platform redeliver the same
		// broken payload forever.
		c.Status(http.StatusOK)
		return
	}
	h.bot.HandleUpdate(c.Request.Context(), &upd)
	c.Status(http.StatusOK)
}
