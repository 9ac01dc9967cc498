package workflows

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/pkg/domain"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
)

// LoginEmail письмо с одноразовым кодом
type LoginEmail struct {
	Email    string `json:"email"`
	UserName string `json:"userName"`
	Code     string `json:"code"`
}

type LoginMailer interface {
	SendLoginEmail(ctx context.Context, email LoginEmail) error
}

type CodeHasher interface {
	Hash(code string) (string, error)
	Compare(code, hash string) (bool, error)
}

type UserStore interface {
	GetOrCreateUser(ctx context.Context, email string) (*domain.User, error)
}

type OrderStore interface {
	// GetOrderByReferenceID возвращает domain.ErrNotFound, если заказа нет
	GetOrderByReferenceID(ctx context.Context, referenceID string) (*domain.Order, error)
	ProductPrices(ctx context.Context, productIDs []int64) (map[int64]int64, error)
	CreateOrder(ctx context.Context, order domain.NewOrder) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) (*domain.Order, error)
}

type PaymentStore interface {
	// GetPaymentByOrderID возвращает domain.ErrNotFound, если платежа нет
	GetPaymentByOrderID(ctx context.Context, orderID int64) (*domain.Payment, error)
	CreatePayment(ctx context.Context, payment domain.Payment) (*domain.Payment, error)
	UpdatePaymentStatusByOrderID(ctx context.Context, orderID int64, status domain.PaymentStatus) error
}

type PaymentProvider interface {
	CreatePaymentIntent(ctx context.Context, req domain.PaymentIntentRequest, idempotencyKey string) (*domain.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, paymentIntentID string) (*domain.PaymentIntent, error)
}

// Activities побочные эффекты процессов. Каждая активность безопасна для повтора.
type Activities struct {
	Mailer   LoginMailer
	Hasher   CodeHasher
	Users    UserStore
	Orders   OrderStore
	Payments PaymentStore
	Provider PaymentProvider
}

type SendLoginEmailResult struct {
	HashedCode string `json:"hashedCode"`
}

type CreateOrderResult struct {
	Order        domain.Order `json:"order"`
	ClientSecret string       `json:"clientSecret"`
}

// SendLoginEmail генерирует код, отправляет письмо и возвращает хеш кода
func (a *Activities) SendLoginEmail(ctx context.Context, email string) (SendLoginEmailResult, error) {
	ctx, span := tracing.StartActivity(ctx, "SendLoginEmail")
	defer span.End()
	logger := activity.GetLogger(ctx)

	code, err := generateLoginCode()
	if err != nil {
		return SendLoginEmailResult{}, fail(span, fmt.Errorf("генерация кода: %w", err))
	}
	hashed, err := a.Hasher.Hash(code)
	if err != nil {
		return SendLoginEmailResult{}, fail(span, fmt.Errorf("хеширование кода: %w", err))
	}

	err = a.Mailer.SendLoginEmail(ctx, LoginEmail{
		Email:    email,
		UserName: domain.UsernameFromEmail(email),
		Code:     code,
	})
	if errors.Is(err, domain.ErrUnauthorized) {
		logger.Error("Почтовый сервис отклонил учетные данные", "email", email, "error", err)
		return SendLoginEmailResult{}, fail(span, temporal.NewNonRetryableApplicationError(
			"почтовый сервис отклонил учетные данные", ErrTypeUnauthorized, err))
	}
	if err != nil {
		logger.Warn("Не удалось отправить письмо со входом", "email", email, "error", err)
		return SendLoginEmailResult{}, fail(span, fmt.Errorf("отправка письма: %w", err))
	}

	logger.Info("Письмо с кодом отправлено", "email", email)
	return SendLoginEmailResult{HashedCode: hashed}, nil
}

// VerifyLoginCode сверяет код с хешем. При совпадении возвращает пользователя,
// при несовпадении nil без ошибки.
func (a *Activities) VerifyLoginCode(ctx context.Context, email string, code int, hashedCode string) (*domain.User, error) {
	ctx, span := tracing.StartActivity(ctx, "VerifyLoginCode")
	defer span.End()

	ok, err := a.Hasher.Compare(formatLoginCode(code), hashedCode)
	if err != nil {
		return nil, fail(span, fmt.Errorf("проверка кода: %w", err))
	}
	span.SetAttributes(attribute.Bool("login.code.valid", ok))
	if !ok {
		return nil, nil
	}

	user, err := a.Users.GetOrCreateUser(ctx, email)
	if err != nil {
		return nil, fail(span, fmt.Errorf("получение пользователя %s: %w", email, err))
	}
	return user, nil
}

// CreateOrder создает заказ и платежное намерение. Идемпотентна по referenceId:
// повтор после сбоя возвращает уже созданные заказ и client secret.
func (a *Activities) CreateOrder(ctx context.Context, data OrderWorkflowData) (CreateOrderResult, error) {
	ctx, span := tracing.StartActivity(ctx, "CreateOrder", trace.WithAttributes(tracing.OrderAttributes(data.Order)...))
	defer span.End()
	logger := activity.GetLogger(ctx)

	if err := data.Order.Validate(); err != nil {
		return CreateOrderResult{}, fail(span, temporal.NewNonRetryableApplicationError(
			"некорректный заказ", ErrTypeInvalidOrder, err))
	}

	order, err := a.Orders.GetOrderByReferenceID(ctx, data.Order.ReferenceID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		order, err = a.insertOrder(ctx, data)
		if err != nil {
			return CreateOrderResult{}, fail(span, err)
		}
		logger.Info("Заказ создан", "orderID", order.ID, "referenceID", order.ReferenceID, "totalPrice", order.TotalPrice)
	case err != nil:
		return CreateOrderResult{}, fail(span, fmt.Errorf("поиск заказа %s: %w", data.Order.ReferenceID, err))
	default:
		logger.Warn("Заказ уже существует, возвращаем сохраненные данные", "orderID", order.ID, "referenceID", order.ReferenceID)
	}
	span.SetAttributes(attribute.Int64("order.id", order.ID))

	payment, err := a.Payments.GetPaymentByOrderID(ctx, order.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return CreateOrderResult{}, fail(span, fmt.Errorf("поиск платежа заказа %d: %w", order.ID, err))
	}
	if err == nil && payment.TransactionID != "" {
		intent, err := a.Provider.GetPaymentIntent(ctx, payment.TransactionID)
		if err != nil {
			return CreateOrderResult{}, fail(span, providerError(err))
		}
		return CreateOrderResult{Order: *order, ClientSecret: intent.ClientSecret}, nil
	}

	// Ключ идемпотентности защищает от второго намерения, если прошлый запуск
	// упал между вызовом провайдера и записью платежа.
	intent, err := a.Provider.CreatePaymentIntent(ctx, domain.PaymentIntentRequest{
		Amount:   order.TotalPrice,
		Currency: domain.Currency,
		Metadata: map[string]string{
			"userId":      strconv.FormatInt(data.User.ID, 10),
			"referenceId": order.ReferenceID,
			"orderId":     strconv.FormatInt(order.ID, 10),
			"description": "Order " + order.ReferenceID,
		},
	}, order.ReferenceID)
	if err != nil {
		return CreateOrderResult{}, fail(span, providerError(err))
	}

	_, err = a.Payments.CreatePayment(ctx, domain.Payment{
		OrderID:       order.ID,
		UserID:        data.User.ID,
		Amount:        order.TotalPrice,
		Provider:      domain.PaymentProviderStripe,
		Status:        domain.PaymentStatusPending,
		TransactionID: intent.ID,
	})
	if err != nil {
		return CreateOrderResult{}, fail(span, fmt.Errorf("запись платежа заказа %d: %w", order.ID, err))
	}

	return CreateOrderResult{Order: *order, ClientSecret: intent.ClientSecret}, nil
}

func (a *Activities) insertOrder(ctx context.Context, data OrderWorkflowData) (*domain.Order, error) {
	ids := make([]int64, 0, len(data.Order.Items))
	for _, item := range data.Order.Items {
		ids = append(ids, item.ProductID)
	}
	prices, err := a.Orders.ProductPrices(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("цены товаров: %w", err)
	}

	var subtotal int64
	for _, item := range data.Order.Items {
		price, ok := prices[item.ProductID]
		if !ok {
			return nil, temporal.NewNonRetryableApplicationError(
				fmt.Sprintf("товар %d не найден", item.ProductID), ErrTypeInvalidOrder, domain.ErrProductNotFound)
		}
		subtotal += price * item.Quantity
	}

	const taxAmount = 0
	order, err := a.Orders.CreateOrder(ctx, domain.NewOrder{
		UserID:          data.User.ID,
		ReferenceID:     data.Order.ReferenceID,
		Items:           data.Order.Items,
		ShippingAddress: data.Order.ShippingAddress,
		BillingAddress:  data.Order.BillingAddress,
		ShippingCost:    domain.ShippingCost,
		TaxAmount:       taxAmount,
		TotalPrice:      subtotal + domain.ShippingCost + taxAmount,
	})
	if err != nil {
		return nil, fmt.Errorf("сохранение заказа %s: %w", data.Order.ReferenceID, err)
	}
	return order, nil
}

// ReportPaymentFailed переводит заказ и платеж в Failed
func (a *Activities) ReportPaymentFailed(ctx context.Context, orderID int64) error {
	return a.reportPayment(ctx, "ReportPaymentFailed", orderID, domain.OrderStatusFailed, domain.PaymentStatusFailed)
}

// ReportPaymentConfirmed переводит заказ в Confirmed, платеж в Completed
func (a *Activities) ReportPaymentConfirmed(ctx context.Context, orderID int64) error {
	return a.reportPayment(ctx, "ReportPaymentConfirmed", orderID, domain.OrderStatusConfirmed, domain.PaymentStatusCompleted)
}

func (a *Activities) reportPayment(ctx context.Context, name string, orderID int64, orderStatus domain.OrderStatus, paymentStatus domain.PaymentStatus) error {
	ctx, span := tracing.StartActivity(ctx, name, trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()
	logger := activity.GetLogger(ctx)

	if _, err := a.Orders.UpdateOrderStatus(ctx, orderID, orderStatus); err != nil {
		return fail(span, fmt.Errorf("статус заказа %d: %w", orderID, err))
	}
	if err := a.Payments.UpdatePaymentStatusByOrderID(ctx, orderID, paymentStatus); err != nil {
		logger.Error("Не удалось обновить статус платежа", "orderID", orderID, "error", err)
	}
	logger.Info("Статус заказа обновлен", "orderID", orderID, "status", orderStatus)
	return nil
}

func providerError(err error) error {
	if errors.Is(err, domain.ErrPaymentRejected) {
		return temporal.NewApplicationErrorWithCause("платежный провайдер отклонил запрос", ErrTypeUnknown, err)
	}
	return fmt.Errorf("платежный провайдер: %w", err)
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func generateLoginCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return formatLoginCode(int(n.Int64())), nil
}

func formatLoginCode(code int) string {
	return fmt.Sprintf("%06d", code)
}
