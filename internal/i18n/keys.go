// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthRegisterSuccess    = "auth.register_success"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthPasswordChanged    = "auth.password_changed"
	KeyAdminAccessDenied      = "admin.access_denied"

	// Catalog
	KeyProductNotFound = "product.not_found"
	KeyEventNotFound   = "event.not_found"

	// Cart and orders
	KeyCartNotFound      = "cart.not_found"
	KeyOrderNotFound     = "order.not_found"
	KeyInsufficientStock = "order.insufficient_stock"
	KeyInvalidTransition = "order.invalid_transition"
	KeyTransactionFailed = "store.transaction_failed"
	KeyStoreUnavailable  = "store.unavailable"
	KeyUserNotFound      = "user.not_found"
	KeyValidationInvalid = "validation.invalid"
	KeyRateLimitExceeded = "rate_limit.exceeded"
	KeyResourceNotFound  = "resource.not_found"
)
