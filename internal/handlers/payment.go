// internal/handlers/payment.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/edumarket-backend/internal/i18n"
	"github.com/javajoker/edumarket-backend/internal/services"
	"github.com/javajoker/edumarket-backend/internal/utils"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
	ledgerService  *services.LedgerService
	payoutService  *services.PayoutService
}

func NewPaymentHandler(paymentService *services.PaymentService, ledgerService *services.LedgerService, payoutService *services.PayoutService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		ledgerService:  ledgerService,
		payoutService:  payoutService,
	}
}

type createIntentRequest struct {
	OrderID string `json:"order_id" validate:"required,uuid"`
}

// POST /payments/intent
func (h *PaymentHandler) CreatePaymentIntent(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order ID", nil)
		return
	}

	response, err := h.paymentService.CreateCardPaymentIntent(orderID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, response)
}

// POST /payments/confirm
func (h *PaymentHandler) ConfirmPayment(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	credited, err := h.paymentService.ConfirmCardPayment(&req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"credited": credited,
		"message":  i18n.T(lang, i18n.KeyPaymentSuccess),
	})
}

// POST /payments/crypto/invoice
func (h *PaymentHandler) CreateCryptoInvoice(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order ID", nil)
		return
	}

	invoiceID, err := h.paymentService.CreateCryptoInvoice(orderID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"invoice_id": invoiceID,
	})
}

// GET /payments/balance
func (h *PaymentHandler) GetBalance(c *gin.Context) {
	userIDStr, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return
	}

	balance, err := h.ledgerService.GetSellerBalance(userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"balance": balance,
	})
}

// POST /payments/payout
func (h *PaymentHandler) RequestPayout(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userIDStr, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return
	}

	var req services.RequestPayoutInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	payout, err := h.payoutService.RequestPayout(userID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"payout":  payout,
		"message": i18n.T(lang, i18n.KeyPayoutRequested),
	})
}
