// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/edumarket-backend/internal/services"
	"github.com/javajoker/edumarket-backend/internal/utils"
)

// handleServiceError maps the service sentinel errors onto HTTP statuses
// so every handler reports the same way.
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, services.ErrPayoutNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, services.ErrAlreadyProcessed):
		utils.ConflictResponse(c, err.Error())
	case errors.Is(err, services.ErrInvalidState):
		utils.ConflictResponse(c, err.Error())
	case errors.Is(err, services.ErrInsufficientFunds):
		utils.UnprocessableResponse(c, err.Error())
	case errors.Is(err, services.ErrUnparseableSignal):
		utils.UnprocessableResponse(c, err.Error())
	case errors.Is(err, services.ErrValidation):
		utils.BadRequestResponse(c, err.Error(), nil)
	default:
		utils.InternalErrorResponse(c, err.Error())
	}
}
