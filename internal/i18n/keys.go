// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess       = "success"
	KeyError         = "error"
	KeyInternalError = "error.internal"
	KeyAccessDenied  = "error.access_denied"
	KeyRateLimited   = "error.rate_limited"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthAccountDisabled    = "auth.account_disabled"
	KeyAuthLoginSuccess       = "auth.login_success"

	// User Management
	KeyUserNotFound      = "user.not_found"
	KeyUserExists        = "user.exists"
	KeyUserStatusUpdated = "user.status_updated"

	// Products
	KeyProductCreated     = "product.created"
	KeyProductUpdated     = "product.updated"
	KeyProductDeactivated = "product.deactivated"
	KeyProductNotFound    = "product.not_found"
	KeyProductCodeExists  = "product.code_exists"
	KeyProductInactive    = "product.inactive"

	// Inventory
	KeyInsufficientStock = "inventory.insufficient_stock"
	KeyInvalidQuantity   = "inventory.invalid_quantity"
	KeyInvalidUnitCost   = "inventory.invalid_unit_cost"

	// Purchases
	KeyPurchaseCreated  = "purchase.created"
	KeyPurchaseUpdated  = "purchase.updated"
	KeyPurchaseDeleted  = "purchase.deleted"
	KeyPurchaseNotFound = "purchase.not_found"

	// Sales
	KeySaleCreated        = "sale.created"
	KeySaleDeleted        = "sale.deleted"
	KeySaleNotFound       = "sale.not_found"
	KeySaleTraderRequired = "sale.trader_required"
	KeySaleOverpaid       = "sale.overpaid"

	// Traders
	KeyTraderCreated     = "trader.created"
	KeyTraderUpdated     = "trader.updated"
	KeyTraderDeactivated = "trader.deactivated"
	KeyTraderNotFound    = "trader.not_found"
	KeyTraderInactive    = "trader.inactive"
	KeyTraderRebuilt     = "trader.rebuilt"

	// Payments
	KeyPaymentRecorded      = "payment.recorded"
	KeyPaymentDeleted       = "payment.deleted"
	KeyPaymentNotFound      = "payment.not_found"
	KeyPaymentOverpayment   = "payment.overpayment"
	KeyPaymentSaleMismatch  = "payment.sale_mismatch"
	KeyPaymentInvalidAmount = "payment.invalid_amount"

	// Expenses
	KeyExpenseCreated  = "expense.created"
	KeyExpenseUpdated  = "expense.updated"
	KeyExpenseDeleted  = "expense.deleted"
	KeyExpenseNotFound = "expense.not_found"

	// Reports
	KeyReportArchived     = "report.archived"
	KeyReportExportFailed = "report.export_failed"
	KeyInvalidDateRange   = "report.invalid_date_range"
	KeyReportNotFound     = "report.not_found"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"
)
