package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/pkg/logger"
	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/service"
	"github.com/gin-gonic/gin"
)

const (
	hookChallengeHeader = "Smartsheet-Hook-Challenge"
	hookResponseHeader  = "Smartsheet-Hook-Response"
	hookSignatureHeader = "Smartsheet-Hmac-SHA256"
)

// CallbackVerifier checks a webhook body signature.
type CallbackVerifier interface {
	VerifyCallback(signature string, body []byte) bool
}

// Invalidator drops a cached reference table.
type Invalidator interface {
	Invalidate(key string)
}

// WebhookHandler receives Smartsheet webhook callbacks and drops the cached
// copy of any sheet that changed.
type WebhookHandler struct {
	verifier CallbackVerifier
	cache    Invalidator
}

func NewWebhookHandler(verifier CallbackVerifier, cache Invalidator) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, cache: cache}
}

// Smartsheet answers verification challenges and handles event callbacks.
func (h *WebhookHandler) Smartsheet(c *gin.Context) {
	if challenge := c.GetHeader(hookChallengeHeader); challenge != "" {
		c.Header(hookResponseHeader, challenge)
		c.JSON(http.StatusOK, gin.H{"smartsheetHookResponse": challenge})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if !h.verifier.VerifyCallback(c.GetHeader(hookSignatureHeader), body) {
		logger.Warn(c.Request.Context(), "rejected webhook callback with bad signature")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	var callback service.SmartsheetCallback
	if err := json.Unmarshal(body, &callback); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid callback format"})
		return
	}

	if callback.ScopeObjectID != 0 {
		sheetID := strconv.FormatInt(callback.ScopeObjectID, 10)
		h.cache.Invalidate(sheetID)
		logger.Info(c.Request.Context(), "reference sheet changed",
			"sheet_id", sheetID,
			"webhook_id", callback.WebhookID,
			"events", len(callback.Events),
		)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Callback received"})
}
