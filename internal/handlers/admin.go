// internal/handlers/admin.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/edumarket-backend/internal/i18n"
	"github.com/javajoker/edumarket-backend/internal/models"
	"github.com/javajoker/edumarket-backend/internal/services"
	"github.com/javajoker/edumarket-backend/internal/utils"
)

// AdminHandler exposes the operator surface: the payout queue, manual
// order verification and cancellation, and the escrow sweep trigger.
type AdminHandler struct {
	ledgerService  *services.LedgerService
	payoutService  *services.PayoutService
	storageService *services.StorageService
}

func NewAdminHandler(ledgerService *services.LedgerService, payoutService *services.PayoutService, storageService *services.StorageService) *AdminHandler {
	return &AdminHandler{
		ledgerService:  ledgerService,
		payoutService:  payoutService,
		storageService: storageService,
	}
}

// GET /admin/payouts
func (h *AdminHandler) GetPayouts(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	filter := services.PayoutFilter{
		Limit:  params.Limit,
		Offset: (params.Page - 1) * params.Limit,
	}
	if params.Status != "" {
		status := models.PayoutStatus(params.Status)
		filter.Status = &status
	}
	if sellerIDStr := c.Query("seller_id"); sellerIDStr != "" {
		if sellerID, err := uuid.Parse(sellerIDStr); err == nil {
			filter.SellerID = &sellerID
		}
	}

	payouts, total, err := h.payoutService.GetPayouts(filter)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(payouts, total, params)
	utils.PaginatedResponse(c, result)
}

type payoutDecisionRequest struct {
	Action        string `json:"action" validate:"required,oneof=approve reject"`
	Reason        string `json:"reason"`
	TransactionID string `json:"transaction_id"`
}

// POST /admin/payouts/:id/decision
func (h *AdminHandler) DecidePayout(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	payoutID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid payout ID", nil)
		return
	}

	adminID, ok := adminIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req payoutDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	switch req.Action {
	case "approve":
		err = h.payoutService.ApprovePayout(payoutID, adminID, req.TransactionID)
	case "reject":
		if req.Reason == "" {
			utils.BadRequestResponse(c, "Rejection requires a reason", nil)
			return
		}
		err = h.payoutService.RejectPayout(payoutID, adminID, req.Reason)
	}
	if err != nil {
		handleServiceError(c, err)
		return
	}

	key := i18n.KeyPayoutApproved
	if req.Action == "reject" {
		key = i18n.KeyPayoutRejected
	}
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, key),
	})
}

// POST /admin/orders/:id/verify
//
// Multipart form: a required payment reference and an optional receipt
// image, stored as evidence before the order is confirmed paid.
func (h *AdminHandler) VerifyOrder(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order ID", nil)
		return
	}

	adminID, ok := adminIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	reference := c.PostForm("reference")
	if reference == "" {
		utils.BadRequestResponse(c, "Payment reference is required", nil)
		return
	}

	order, err := h.ledgerService.GetOrder(orderID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	receiptURL := ""
	if file, header, err := c.Request.FormFile("receipt"); err == nil {
		defer file.Close()
		upload, err := h.storageService.UploadReceipt(order.OrderNumber, file, header)
		if err != nil {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileUploadFailed), err.Error())
			return
		}
		receiptURL = upload.URL
	}

	credited, err := h.ledgerService.MarkPaid(orderID, services.PaymentProof{
		Method:     models.PaymentMethodManual,
		Reference:  reference,
		VerifiedBy: &adminID,
		ReceiptURL: receiptURL,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"credited": credited,
		"message":  i18n.T(lang, i18n.KeyOrderPaid),
	})
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// POST /admin/orders/:id/cancel
func (h *AdminHandler) CancelOrder(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order ID", nil)
		return
	}

	adminID, ok := adminIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req cancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	if err := h.ledgerService.MarkCancelled(orderID, adminID, req.Reason); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyOrderCancelled),
	})
}

// POST /admin/sweep
func (h *AdminHandler) TriggerSweep(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	swept, err := h.ledgerService.SweepMaturedHoldings()
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	logrus.WithField("count", swept).Info("Manual escrow sweep triggered")

	utils.SuccessResponse(c, gin.H{
		"swept":   swept,
		"message": i18n.T(lang, i18n.KeyAdminSweepDone),
	})
}

func adminIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	userIDStr, exists := utils.GetUserIDFromContext(c)
	if !exists {
		return uuid.Nil, false
	}
	adminID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, false
	}
	return adminID, true
}
