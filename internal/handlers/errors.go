// internal/handlers/errors.go
package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tradebook/tradebook-backend/internal/i18n"
	"github.com/tradebook/tradebook-backend/internal/services"
	"github.com/tradebook/tradebook-backend/internal/utils"
)

// subject names the translation keys used when a lookup or uniqueness check fails.
type subject struct {
	notFound string
	exists   string
	overpaid string
}

var (
	userSubject     = subject{notFound: i18n.KeyUserNotFound, exists: i18n.KeyUserExists}
	productSubject  = subject{notFound: i18n.KeyProductNotFound, exists: i18n.KeyProductCodeExists}
	purchaseSubject = subject{notFound: i18n.KeyPurchaseNotFound}
	saleSubject     = subject{notFound: i18n.KeySaleNotFound, overpaid: i18n.KeySaleOverpaid}
	traderSubject   = subject{notFound: i18n.KeyTraderNotFound}
	paymentSubject  = subject{notFound: i18n.KeyPaymentNotFound}
	expenseSubject  = subject{notFound: i18n.KeyExpenseNotFound}
	reportSubject   = subject{notFound: i18n.KeyReportNotFound}
)

type ruleViolation struct {
	err  error
	code string
	key  string
}

// Broken business rules answer 422 with a stable code.
var ruleViolations = []ruleViolation{
	{services.ErrInsufficientStock, "INSUFFICIENT_STOCK", i18n.KeyInsufficientStock},
	{services.ErrInvalidQuantity, "INVALID_QUANTITY", i18n.KeyInvalidQuantity},
	{services.ErrInvalidUnitCost, "INVALID_UNIT_COST", i18n.KeyInvalidUnitCost},
	{services.ErrInactiveProduct, "PRODUCT_INACTIVE", i18n.KeyProductInactive},
	{services.ErrInactiveTrader, "TRADER_INACTIVE", i18n.KeyTraderInactive},
	{services.ErrOverpayment, "OVERPAYMENT", i18n.KeyPaymentOverpayment},
	{services.ErrSaleMismatch, "SALE_MISMATCH", i18n.KeyPaymentSaleMismatch},
	{services.ErrTraderRequired, "TRADER_REQUIRED", i18n.KeySaleTraderRequired},
	{services.ErrInvalidAmount, "INVALID_AMOUNT", i18n.KeyPaymentInvalidAmount},
}

// respondError writes the envelope for a service error. Anything unrecognised is logged
// and hidden behind a generic 500.
func respondError(c *gin.Context, err error, subj subject) {
	lang := utils.GetLangFromContext(c)

	if validationErrors := utils.GetValidationErrors(err); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	switch {
	case errors.Is(err, services.ErrNotFound):
		utils.NotFoundResponse(c, subj.notFound)
		return
	case errors.Is(err, services.ErrDuplicate):
		utils.ConflictResponse(c, i18n.T(lang, subj.exists))
		return
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidCredentials))
		return
	case errors.Is(err, services.ErrAccountDisabled):
		utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthAccountDisabled))
		return
	case errors.Is(err, services.ErrForbidden):
		utils.ForbiddenResponse(c, "")
		return
	}

	for _, rule := range ruleViolations {
		if !errors.Is(err, rule.err) {
			continue
		}
		key := rule.key
		if rule.err == services.ErrOverpayment && subj.overpaid != "" {
			key = subj.overpaid
		}
		utils.UnprocessableResponse(c, rule.code, i18n.T(lang, key), gin.H{"reason": err.Error()})
		return
	}

	logrus.WithFields(logrus.Fields{
		"path":       c.FullPath(),
		"method":     c.Request.Method,
		"request_id": c.GetString("request_id"),
	}).WithError(err).Error("Request failed")
	utils.InternalErrorResponse(c, "")
}

// bindJSON decodes and validates the body, answering 400 itself on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	lang := utils.GetLangFromContext(c)

	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}

	// Validate request
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return false
	}
	return true
}

// pathID parses a numeric path parameter, answering 400 itself on failure.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, name), nil)
		return 0, false
	}
	return uint(id), true
}

func queryUint(c *gin.Context, name string) *uint {
	v, err := strconv.ParseUint(c.Query(name), 10, 64)
	if err != nil || v == 0 {
		return nil
	}
	id := uint(v)
	return &id
}

func queryBool(c *gin.Context, name string) *bool {
	v, err := strconv.ParseBool(c.Query(name))
	if err != nil {
		return nil
	}
	return &v
}

// dateRange reads from/to, answering 400 itself on a malformed date.
func dateRange(c *gin.Context) (utils.DateRange, bool) {
	r, err := utils.GetDateRange(c)
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyInvalidDateRange), err.Error())
		return r, false
	}
	return r, true
}
