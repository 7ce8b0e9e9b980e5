// internal/handlers/webhook.go
package handlers

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/edumarket-backend/internal/config"
	"github.com/javajoker/edumarket-backend/internal/services"
	"github.com/javajoker/edumarket-backend/internal/utils"
)

// WebhookHandler receives payment signals from outside the platform: the
// crypto processor's callbacks and relayed bank SMS messages. Both paths
// end in the reconciliation service, which decides whether money moves.
type WebhookHandler struct {
	reconciliationService *services.ReconciliationService
	config                *config.Config
}

func NewWebhookHandler(reconciliationService *services.ReconciliationService, config *config.Config) *WebhookHandler {
	return &WebhookHandler{
		reconciliationService: reconciliationService,
		config:                config,
	}
}

type cryptoWebhookPayload struct {
	InvoiceID   string `json:"invoice_id" validate:"required"`
	Status      string `json:"status" validate:"required"`
	OrderNumber string `json:"order_number"`
}

type smsWebhookPayload struct {
	Message string `json:"message" validate:"required"`
	Sender  string `json:"sender"`
}

// POST /webhooks/crypto
func (h *WebhookHandler) CryptoWebhook(c *gin.Context) {
	if !h.tokenValid(c) {
		utils.UnauthorizedResponse(c, "Invalid webhook token")
		return
	}

	var payload cryptoWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.BadRequestResponse(c, "Malformed webhook payload", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&payload)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	if err := h.reconciliationService.HandleCryptoWebhook(payload.InvoiceID, payload.Status, payload.OrderNumber); err != nil {
		logrus.WithError(err).WithField("invoice_id", payload.InvoiceID).
			Warn("Crypto webhook rejected")
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"received": true,
	})
}

// POST /webhooks/sms
func (h *WebhookHandler) SMSWebhook(c *gin.Context) {
	var payload smsWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.BadRequestResponse(c, "Malformed webhook payload", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&payload)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	result, err := h.reconciliationService.MatchByText(payload.Message, nil)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"result": result,
	})
}

func (h *WebhookHandler) tokenValid(c *gin.Context) bool {
	expected := h.config.Payment.CryptoWebhookToken
	if expected == "" {
		// Refuse everything rather than accept everything when the token
		// was never configured.
		return false
	}

	token := c.GetHeader("X-Webhook-Token")
	if token == "" {
		token = c.Query("token")
	}

	return subtle.ConstantTimeCompare([]byte(token), []byte(expected)) == 1
}
