package handler

import (
	"io"
	"net/http"

	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/internal/usecase"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/pkg/domain"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/pkg/tracing"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// maxWebhookBody предел тела вебхука
const maxWebhookBody = 1 << 16

type OrderHandler struct {
	orderUC   *usecase.OrderUseCase
	paymentUC *usecase.PaymentUseCase
	logger    zerolog.Logger
}

func NewOrderHandler(orderUC *usecase.OrderUseCase, paymentUC *usecase.PaymentUseCase, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{orderUC: orderUC, paymentUC: paymentUC, logger: logger}
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	ctx, span := tracing.StartPresentation(c.Request.Context(), "CreateOrder", tracing.SubLayerHTTP)
	defer span.End()

	var req domain.CreateOrder
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	span.SetAttributes(tracing.OrderAttributes(req)...)

	state, err := h.orderUC.CreateOrder(ctx, currentUser(c), req)
	if err != nil {
		span.RecordError(err)
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	ctx, span := tracing.StartPresentation(c.Request.Context(), "GetOrder", tracing.SubLayerHTTP)
	defer span.End()

	view, err := h.orderUC.OrderStatus(ctx, c.Param("referenceId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	ctx, span := tracing.StartPresentation(c.Request.Context(), "CancelOrder", tracing.SubLayerHTTP)
	defer span.End()

	if err := h.orderUC.CancelOrder(ctx, c.Param("referenceId")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "cancellation_requested"})
}

// PaymentWebhook принимает события платежного провайдера
func (h *OrderHandler) PaymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if err := h.paymentUC.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
