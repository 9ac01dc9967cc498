package handler

import (
	"net/http"

	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/internal/usecase"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/pkg/tracing"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type AuthHandler struct {
	authUC *usecase.AuthUseCase
	logger zerolog.Logger
}

func NewAuthHandler(authUC *usecase.AuthUseCase, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{authUC: authUC, logger: logger}
}

type loginRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type verifyRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  *int   `json:"code" binding:"required"`
}

func (h *AuthHandler) StartLogin(c *gin.Context) {
	ctx, span := tracing.StartPresentation(c.Request.Context(), "StartLogin", tracing.SubLayerHTTP)
	defer span.End()

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	alreadySent, err := h.authUC.StartLogin(ctx, req.Email)
	if err != nil {
		span.RecordError(err)
		writeError(c, h.logger, err)
		return
	}
	if alreadySent {
		c.JSON(http.StatusOK, gin.H{"status": "already_sent"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
}

func (h *AuthHandler) LoginState(c *gin.Context) {
	ctx, span := tracing.StartPresentation(c.Request.Context(), "LoginState", tracing.SubLayerHTTP)
	defer span.End()

	state, err := h.authUC.LoginState(ctx, c.Param("email"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"codeStatus": state.CodeStatus, "status": state.Status})
}

func (h *AuthHandler) VerifyLogin(c *gin.Context) {
	ctx, span := tracing.StartPresentation(c.Request.Context(), "VerifyLogin", tracing.SubLayerHTTP)
	defer span.End()

	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	res, err := h.authUC.VerifyLogin(ctx, req.Email, *req.Code)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
