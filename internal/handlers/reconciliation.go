// internal/handlers/reconciliation.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/edumarket-backend/internal/i18n"
	"github.com/javajoker/edumarket-backend/internal/services"
	"github.com/javajoker/edumarket-backend/internal/utils"
)

type ReconciliationHandler struct {
	reconciliationService *services.ReconciliationService
}

func NewReconciliationHandler(reconciliationService *services.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconciliationService: reconciliationService,
	}
}

// A reconciliation request is either an explicit reference list or a raw
// message the operator pasted in; exactly one of the two must be present.
type reconciliationRequest struct {
	References []string `json:"references" validate:"omitempty,dive,payment_ref"`
	Message    string   `json:"message"`
}

// POST /admin/reconciliation
func (h *ReconciliationHandler) Reconcile(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req reconciliationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if len(req.References) == 0 && req.Message == "" {
		utils.BadRequestResponse(c, "Either references or message is required", nil)
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	var operatorID *uuid.UUID
	if userIDStr, exists := utils.GetUserIDFromContext(c); exists {
		if parsed, err := uuid.Parse(userIDStr); err == nil {
			operatorID = &parsed
		}
	}

	var result *services.MatchResult
	var err error
	if len(req.References) > 0 {
		result, err = h.reconciliationService.MatchByReferences(req.References, operatorID, "manual", "")
	} else {
		result, err = h.reconciliationService.MatchByText(req.Message, operatorID)
	}
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"result": result,
	})
}

// GET /admin/reconciliation/logs
func (h *ReconciliationHandler) GetLogs(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	logs, total, err := h.reconciliationService.GetLogs(params.Status, params.Limit, (params.Page-1)*params.Limit)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(logs, total, params)
	utils.PaginatedResponse(c, result)
}
