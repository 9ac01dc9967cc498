package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/internal/usecase"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/pkg/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// missingWorkflows клиент, у которого нет ни одного процесса
type missingWorkflows struct {
	usecase.WorkflowClient
}

func (missingWorkflows) DescribeWorkflowExecution(context.Context, string, string) (*workflowservice.DescribeWorkflowExecutionResponse, error) {
	return nil, serviceerror.NewNotFound("workflow not found")
}

func (missingWorkflows) SignalWorkflow(context.Context, string, string, string, interface{}) error {
	return serviceerror.NewNotFound("workflow not found")
}

type staticTokens struct{}

func (staticTokens) Parse(token string) (domain.User, error) {
	if token != "good" {
		return domain.User{}, errors.New("bad token")
	}
	return domain.User{ID: 7, Email: "a@b.com"}, nil
}

func (staticTokens) Issue(domain.User) (string, time.Time, error) {
	return "good", time.Time{}, nil
}

type stubParser struct {
	event domain.PaymentWebhookEvent
	err   error
}

func (p stubParser) Parse([]byte, string) (domain.PaymentWebhookEvent, error) {
	return p.event, p.err
}

func newTestRouter(parser usecase.WebhookParser) *gin.Engine {
	c := missingWorkflows{}
	logger := zerolog.Nop()
	auth := NewAuthHandler(usecase.NewAuthUseCase(c, "q", staticTokens{}, nil, logger), logger)
	orders := NewOrderHandler(
		usecase.NewOrderUseCase(c, "q", time.Hour, nil, logger),
		usecase.NewPaymentUseCase(c, parser, nil, nil, logger),
		logger,
	)
	return NewRouter(auth, orders, staticTokens{}, nil, logger)
}

func do(r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		usecase.ErrBadRequest:  http.StatusBadRequest,
		usecase.ErrCodeExpired: http.StatusBadRequest,
		usecase.ErrInvalidCode: http.StatusUnauthorized,
		usecase.ErrNotFound:    http.StatusNotFound,
		usecase.ErrConflict:    http.StatusConflict,
		usecase.ErrExpired:     http.StatusGone,
		errors.New("boom"):     http.StatusInternalServerError,
	}
	for err, want := range cases {
		got, _ := statusFor(fmt.Errorf("wrapped: %w", err))
		require.Equal(t, want, got, err.Error())
	}
}

func TestRequireAuth(t *testing.T) {
	r := gin.New()
	r.GET("/me", RequireAuth(staticTokens{}), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": currentUser(c).ID})
	})

	require.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/me", "", nil).Code)
	require.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/me", "", map[string]string{"Authorization": "Bearer bad"}).Code)

	w := do(r, http.MethodGet, "/me", "", map[string]string{"Authorization": "Bearer good"})
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"id": 7}`, w.Body.String())
}

func TestRouter(t *testing.T) {
	r := newTestRouter(stubParser{event: domain.PaymentWebhookEvent{ID: "evt_1", Type: "payment_intent.created"}})
	auth := map[string]string{"Authorization": "Bearer good"}

	require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/healthz", "", nil).Code)
	require.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/auth/login", `{"email": "nope"}`, nil).Code)
	require.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/auth/verify", `{"email": "a@b.com"}`, nil).Code)
	require.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/auth/verify", `{"email": "a@b.com", "code": 42819}`, nil).Code)
	require.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/auth/login/a@b.com", "", nil).Code)

	require.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/orders/ref-001", "", nil).Code)
	require.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/orders/ref-001", "", auth).Code)
	require.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/orders/ref-001", "", auth).Code)
	require.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/orders", `{"referenceId": "ref-001"}`, auth).Code)

	// событие без метаданных заказа принимается
	w := do(r, http.MethodPost, "/webhooks/payment", `{}`, map[string]string{"Stripe-Signature": "sig"})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestPaymentWebhookBadSignature(t *testing.T) {
	r := newTestRouter(stubParser{err: errors.New("bad signature")})
	w := do(r, http.MethodPost, "/webhooks/payment", `{}`, map[string]string{"Stripe-Signature": "sig"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"error": "bad request"}`, w.Body.String())
}

func TestPaymentWebhookNoWorkflow(t *testing.T) {
	event := domain.PaymentWebhookEvent{
		ID:   "evt_1",
		Type: "payment_intent.succeeded",
		Data: domain.PaymentEventData{Metadata: domain.PaymentEventMetadata{UserID: 7, ReferenceID: "ref-001"}},
	}
	r := newTestRouter(stubParser{event: event})
	w := do(r, http.MethodPost, "/webhooks/payment", `{}`, map[string]string{"Stripe-Signature": "sig"})
	require.Equal(t, http.StatusOK, w.Code)
}
