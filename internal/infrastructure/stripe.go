package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/pkg/domain"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/pkg/tracing"
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.opentelemetry.io/otel/attribute"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// StripeProvider создает платежные намерения в Stripe
type StripeProvider struct{}

func NewStripeProvider(secretKey string) *StripeProvider {
	stripe.Key = secretKey
	return &StripeProvider{}
}

func (p *StripeProvider) CreatePaymentIntent(ctx context.Context, req domain.PaymentIntentRequest, idempotencyKey string) (*domain.PaymentIntent, error) {
	ctx, span := tracing.StartIntegration(ctx, "CreatePaymentIntent", tracing.SubLayerThirdParty)
	defer span.End()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: req.Metadata,
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)

	pi, err := paymentintent.New(params)
	if err != nil {
		span.RecordError(err)
		return nil, classifyStripeError("create payment intent", err)
	}
	span.SetAttributes(attribute.String("payment.intent_id", pi.ID))
	return toPaymentIntent(pi), nil
}

func (p *StripeProvider) GetPaymentIntent(ctx context.Context, paymentIntentID string) (*domain.PaymentIntent, error) {
	ctx, span := tracing.StartIntegration(ctx, "GetPaymentIntent", tracing.SubLayerThirdParty)
	defer span.End()

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := paymentintent.Get(paymentIntentID, params)
	if err != nil {
		span.RecordError(err)
		return nil, classifyStripeError("get payment intent "+paymentIntentID, err)
	}
	return toPaymentIntent(pi), nil
}

func toPaymentIntent(pi *stripe.PaymentIntent) *domain.PaymentIntent {
	return &domain.PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
	}
}

// classifyStripeError отделяет отказы провайдера, которые бесполезно повторять, от сбоев связи
func classifyStripeError(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch {
		case stripeErr.Type == stripe.ErrorTypeCard,
			stripeErr.Type == stripe.ErrorTypeInvalidRequest,
			stripeErr.HTTPStatusCode == http.StatusUnauthorized:
			return fmt.Errorf("stripe %s: %w: %s", op, domain.ErrPaymentRejected, stripeErr.Msg)
		}
	}
	return fmt.Errorf("stripe %s: %w", op, err)
}

// StripeWebhookParser проверяет подпись вебхука и приводит событие к PaymentWebhookEvent
type StripeWebhookParser struct {
	secret string
}

func NewStripeWebhookParser(secret string) *StripeWebhookParser {
	return &StripeWebhookParser{secret: secret}
}

// stripeObject общие поля объектов, для которых нет отдельного разбора
type stripeObject struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Status   string            `json:"status"`
	Metadata map[string]string `json:"metadata"`
}

func (p *StripeWebhookParser) Parse(payload []byte, signature string) (domain.PaymentWebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return domain.PaymentWebhookEvent{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	result := domain.PaymentWebhookEvent{
		ID:       event.ID,
		Type:     string(event.Type),
		Provider: domain.PaymentProviderStripe,
	}
	if event.Data == nil {
		return result, nil
	}

	var obj stripeObject
	switch {
	case strings.HasPrefix(result.Type, "payment_intent."):
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return result, fmt.Errorf("разбор payment intent: %w", err)
		}
		obj = stripeObject{ID: pi.ID, Amount: pi.Amount, Currency: string(pi.Currency), Status: string(pi.Status), Metadata: pi.Metadata}
	case strings.HasPrefix(result.Type, "checkout.session."):
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return result, fmt.Errorf("разбор checkout session: %w", err)
		}
		obj = stripeObject{ID: cs.ID, Amount: cs.AmountTotal, Currency: string(cs.Currency), Status: string(cs.PaymentStatus), Metadata: cs.Metadata}
	default:
		if err := json.Unmarshal(event.Data.Raw, &obj); err != nil {
			return result, fmt.Errorf("разбор объекта %s: %w", result.Type, err)
		}
	}

	result.Data = domain.PaymentEventData{
		ID:       obj.ID,
		Amount:   obj.Amount,
		Currency: obj.Currency,
		Status:   obj.Status,
		Metadata: eventMetadata(obj.Metadata),
	}
	return result, nil
}

// eventMetadata достает userId и referenceId. Неразборчивый userId считается отсутствующим.
func eventMetadata(md map[string]string) domain.PaymentEventMetadata {
	userID, _ := strconv.ParseInt(md["userId"], 10, 64)
	return domain.PaymentEventMetadata{
		UserID:      userID,
		ReferenceID: md["referenceId"],
	}
}
