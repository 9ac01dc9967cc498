package workflows

import (
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/pkg/domain"
	"go.temporal.io/sdk/workflow"
)

// paymentEventStatuses сопоставляет тип события платежного провайдера статусу платежа.
// Неизвестные типы игнорируются.
var paymentEventStatuses = map[string]PaymentStatus{
	"payment_intent.created":    PaymentStatusInitiated,
	"payment_intent.processing": PaymentStatusInitiated,
	"payment_method.attached":   PaymentStatusInitiated,

	"checkout.session.completed":               PaymentStatusSuccess,
	"checkout.session.async_payment_succeeded": PaymentStatusSuccess,
	"payment_intent.succeeded":                 PaymentStatusSuccess,

	"payment_intent.payment_failed": PaymentStatusFailure,
	"payment_intent.canceled":       PaymentStatusFailure,
}

// ClassifyPaymentEvent возвращает статус платежа для типа события
func ClassifyPaymentEvent(eventType string) (PaymentStatus, bool) {
	status, ok := paymentEventStatuses[eventType]
	return status, ok
}

// PaymentWorkflow дочерний процесс оплаты заказа. Ждет финального статуса
// платежа не дольше ProcessPaymentTimeout.
func PaymentWorkflow(ctx workflow.Context, data OrderWorkflowData) (PaymentState, error) {
	logger := workflow.GetLogger(ctx)
	ref := data.Order.ReferenceID
	logger.Info("Запущен PaymentWorkflow", "referenceID", ref)

	state := PaymentState{Status: PaymentStatusPending}

	err := workflow.SetQueryHandler(ctx, QueryGetPaymentState, func() (PaymentState, error) {
		return state, nil
	})
	if err != nil {
		return state, err
	}

	receive(ctx, SignalCancelWorkflow, func(ctx workflow.Context, _ struct{}) {
		if state.Status.Terminal() {
			logger.Info("Отмена игнорируется, платеж уже завершен", "referenceID", ref, "status", state.Status)
			return
		}
		state.Status = PaymentStatusCancelled
		logger.Info("Платеж отменен", "referenceID", ref)
	})

	receive(ctx, SignalPaymentWebhookEvent, func(ctx workflow.Context, event domain.PaymentWebhookEvent) {
		status, ok := ClassifyPaymentEvent(event.Type)
		switch {
		case !ok:
			logger.Debug("Неизвестный тип события платежа", "referenceID", ref, "eventType", event.Type)
		case state.Status.Terminal():
			logger.Info("Событие игнорируется, платеж уже завершен", "referenceID", ref, "eventType", event.Type, "status", state.Status)
		default:
			state.Status = status
			logger.Info("Статус платежа обновлен", "referenceID", ref, "eventType", event.Type, "status", status)
		}
	})

	_, err = workflow.AwaitWithTimeout(ctx, ProcessPaymentTimeout, func() bool { return state.Status.Terminal() })
	if err != nil {
		return state, err
	}
	if err := waitHandlers(ctx); err != nil {
		return state, err
	}

	if !state.Status.Terminal() {
		logger.Warn("Платеж не завершен за отведенное время", "referenceID", ref, "status", state.Status)
		state.Status = PaymentStatusCancelled
	}
	return state, nil
}

// receive обрабатывает сигналы канала name по одному в отдельной корутине процесса
func receive[T any](ctx workflow.Context, name string, handle func(workflow.Context, T)) {
	ch := workflow.GetSignalChannel(ctx, name)
	workflow.Go(ctx, func(ctx workflow.Context) {
		for {
			var v T
			if more := ch.Receive(ctx, &v); !more || ctx.Err() != nil {
				return
			}
			handle(ctx, v)
		}
	})
}
