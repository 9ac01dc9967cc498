package workflows

// Типы ApplicationError. По ним фасад отличает исходы, не разбирая сообщения.
const (
	ErrTypeUnknown              = "UNKNOWN_ERROR"
	ErrTypeUnauthorized         = "UNAUTHORIZED"
	ErrTypeLoginCodeExpired     = "LOGIN_CODE_EXPIRED"
	ErrTypeLoginCodeNotFound    = "LOGIN_CODE_NOT_FOUND"
	ErrTypeLoginCodeAlreadyUsed = "LOGIN_CODE_ALREADY_USED"
	ErrTypeInvalidLoginCode     = "INVALID_LOGIN_CODE"
	ErrTypeInvalidOrder         = "INVALID_ORDER"
	ErrTypeOrderConflict        = "ORDER_CONFLICT"
	ErrTypeOrderCreationTimeout = "ORDER_CREATION_TIMED_OUT"
	ErrTypeCancelled            = "CANCELLED"
	ErrTypePaymentFailed        = "PAYMENT_FAILED"
)
