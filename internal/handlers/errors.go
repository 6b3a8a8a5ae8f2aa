// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bierstube/storefront/internal/i18n"
	"github.com/bierstube/storefront/internal/middleware"
	"github.com/bierstube/storefront/internal/models"
	"github.com/bierstube/storefront/internal/services"
	"github.com/bierstube/storefront/internal/utils"
)

// respondError maps a service error onto a status code and API error body.
// resource picks the not-found message, e.g. "product" or "order".
func respondError(c *gin.Context, err error, resource string) {
	lang := utils.GetLangFromContext(c)
	_ = c.Error(err)

	var stockErr *services.InsufficientStockError
	var transitionErr *services.TransitionError

	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		utils.UnauthorizedResponse(c, "")
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.ErrorResponse(c, http.StatusUnauthorized, "INVALID_CREDENTIALS",
			i18n.T(lang, i18n.KeyAuthInvalidCredentials), nil)
	case errors.Is(err, services.ErrUnauthorized):
		utils.ForbiddenResponse(c, "")
	case errors.Is(err, services.ErrNotFound):
		utils.NotFoundResponse(c, resource)
	case errors.As(err, &stockErr):
		name := stockErr.ProductName
		if name == "" {
			name = stockErr.ProductID.String()
		}
		utils.ConflictResponse(c, "INSUFFICIENT_STOCK", i18n.T(lang, i18n.KeyInsufficientStock, name), gin.H{
			"product_id": stockErr.ProductID,
			"variant_id": stockErr.VariantID,
			"available":  stockErr.Available,
			"requested":  stockErr.Requested,
		})
	case errors.As(err, &transitionErr):
		utils.ConflictResponse(c, "INVALID_TRANSITION",
			i18n.T(lang, i18n.KeyInvalidTransition, transitionErr.From, transitionErr.To), gin.H{
				"from": transitionErr.From,
				"to":   transitionErr.To,
			})
	case errors.Is(err, services.ErrTransactionFailed):
		utils.ConflictResponse(c, "TRANSACTION_FAILED", i18n.T(lang, i18n.KeyTransactionFailed), nil)
	case errors.Is(err, services.ErrEmailTaken):
		utils.ConflictResponse(c, "EMAIL_TAKEN", i18n.T(lang, i18n.KeyAuthUserExists), nil)
	case errors.Is(err, services.ErrValidationFailed):
		utils.ErrorResponse(c, http.StatusBadRequest, "VALIDATION_FAILED", err.Error(), nil)
	case errors.Is(err, services.ErrStoreUnavailable):
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("Store unavailable")
		utils.ServiceUnavailableResponse(c, "")
	default:
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("Unhandled service error")
		utils.InternalErrorResponse(c, "")
	}
}

// bindJSON decodes and validates the request body, writing the 400 itself.
func bindJSON(c *gin.Context, req interface{}) bool {
	lang := utils.GetLangFromContext(c)

	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, "", validationErrors)
		return false
	}
	return true
}

func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, name), nil)
		return uuid.Nil, false
	}
	return id, true
}

func caller(c *gin.Context) models.Caller {
	return middleware.GetCaller(c)
}
