package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidOrder    = errors.New("invalid order")
	ErrProductNotFound = errors.New("product not found")
	ErrPaymentRejected = errors.New("payment provider rejected request")
)
