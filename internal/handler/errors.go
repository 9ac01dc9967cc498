package handler

import (
	"errors"
	"net/http"

	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// statusFor сопоставляет ошибку фасада статусу ответа. Внутренние типы ошибок наружу не попадают.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, usecase.ErrBadRequest):
		return http.StatusBadRequest, "bad request"
	case errors.Is(err, usecase.ErrCodeExpired):
		return http.StatusBadRequest, "login code expired"
	case errors.Is(err, usecase.ErrInvalidCode):
		return http.StatusUnauthorized, "invalid login code"
	case errors.Is(err, usecase.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, usecase.ErrConflict):
		return http.StatusConflict, "order already in progress"
	case errors.Is(err, usecase.ErrExpired):
		return http.StatusGone, "expired"
	}
	return http.StatusInternalServerError, "internal error"
}

func writeError(c *gin.Context, logger zerolog.Logger, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", c.FullPath()).Msg("Ошибка обработки запроса")
	} else {
		logger.Debug().Err(err).Int("status", status).Str("path", c.FullPath()).Msg("Запрос отклонен")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
