package usecase

import "errors"

// Ошибки фасада. Обработчики HTTP сопоставляют их статусам ответа.
var (
	ErrNotFound    = errors.New("not found")
	ErrExpired     = errors.New("expired")
	ErrCodeExpired = errors.New("login code expired")
	ErrInvalidCode = errors.New("invalid login code")
	ErrConflict    = errors.New("conflict")
	ErrBadRequest  = errors.New("bad request")
)
