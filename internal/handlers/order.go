// internal/handlers/order.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/edumarket-backend/internal/i18n"
	"github.com/javajoker/edumarket-backend/internal/services"
	"github.com/javajoker/edumarket-backend/internal/utils"
)

type OrderHandler struct {
	ledgerService *services.LedgerService
}

func NewOrderHandler(ledgerService *services.LedgerService) *OrderHandler {
	return &OrderHandler{
		ledgerService: ledgerService,
	}
}

// POST /orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	// Validate request
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	// Guest checkout is allowed; an authenticated buyer is attached when present.
	if userIDStr, exists := utils.GetUserIDFromContext(c); exists {
		if buyerID, err := uuid.Parse(userIDStr); err == nil {
			req.BuyerID = &buyerID
		}
	}

	order, err := h.ledgerService.CreateOrder(&req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"order":   order,
		"message": i18n.T(lang, i18n.KeyOrderCreated),
	})
}

// GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order ID", nil)
		return
	}

	order, err := h.ledgerService.GetOrder(orderID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"order": order,
	})
}
