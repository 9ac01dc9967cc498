package workflows

import (
	"context"
	"errors"
	"fmt"

	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/pkg/domain"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// OrderWorkflow главный процесс оформления заказа. Сам заказ создается только
// по обновлению createOrder, оплату ведет дочерний PaymentWorkflow.
func OrderWorkflow(ctx workflow.Context, data OrderWorkflowData) (OrderState, error) {
	logger := workflow.GetLogger(ctx)
	ref := data.Order.ReferenceID
	logger.Info("Запущен OrderWorkflow", "referenceID", ref, "userID", data.User.ID)

	state := OrderState{
		Status:      domain.OrderStatusPending,
		ReferenceID: ref,
	}
	var (
		a         *Activities
		creating  bool
		createErr error
		cancelled bool

		child        workflow.ChildWorkflowFuture
		childStarted bool
		childDone    bool
		// сигналы, пришедшие до запуска PaymentWorkflow, в порядке получения
		pending []childSignal
	)

	err := workflow.SetQueryHandler(ctx, QueryGetOrderState, func() (OrderState, error) {
		return state, nil
	})
	if err != nil {
		return state, err
	}

	err = workflow.SetUpdateHandlerWithOptions(ctx, UpdateCreateOrder,
		func(ctx workflow.Context, fingerprint string) (OrderState, error) {
			if err := workflow.Await(ctx, func() bool { return !creating }); err != nil {
				return state, err
			}
			if state.OrderID != 0 {
				return state, nil
			}
			if createErr != nil {
				return state, createErr
			}

			creating = true
			defer func() { creating = false }()

			var res CreateOrderResult
			if err := workflow.ExecuteActivity(withOrderOptions(ctx), a.CreateOrder, data).Get(ctx, &res); err != nil {
				logger.Error("Не удалось создать заказ", "referenceID", ref, "error", err)
				createErr = err
				return state, err
			}
			state.OrderID = res.Order.ID
			state.ClientSecret = res.ClientSecret
			logger.Info("Заказ создан", "referenceID", ref, "orderID", state.OrderID)
			return state, nil
		},
		workflow.UpdateHandlerOptions{Validator: func(ctx workflow.Context, fingerprint string) error {
			if data.Fingerprint != "" && fingerprint != data.Fingerprint {
				return temporal.NewApplicationError("заказ с этим referenceId уже оформляется с другими данными", ErrTypeOrderConflict)
			}
			if cancelled {
				return temporal.NewApplicationError("заказ отменен", ErrTypeCancelled)
			}
			return nil
		}},
	)
	if err != nil {
		return state, err
	}

	forward := func(ctx workflow.Context, sig childSignal) {
		if err := child.SignalChildWorkflow(ctx, sig.name, sig.arg).Get(ctx, nil); err != nil {
			logger.Error("Не удалось передать сигнал в PaymentWorkflow", "referenceID", ref, "signal", sig.name, "error", err)
		}
	}

	receive(ctx, SignalCancelWorkflow, func(ctx workflow.Context, _ struct{}) {
		switch {
		case state.OrderID == 0 && !creating:
			cancelled = true
			logger.Info("Заказ отменен до создания", "referenceID", ref)
		case childDone || state.Status != domain.OrderStatusPending:
			logger.Info("Отмена невозможна, оплата уже завершена", "referenceID", ref, "status", state.Status)
		case childStarted:
			forward(ctx, childSignal{name: SignalCancelWorkflow})
		default:
			pending = append(pending, childSignal{name: SignalCancelWorkflow})
		}
	})

	receive(ctx, SignalPaymentWebhookEvent, func(ctx workflow.Context, event domain.PaymentWebhookEvent) {
		switch {
		case childStarted && !childDone:
			forward(ctx, childSignal{name: SignalPaymentWebhookEvent, arg: event})
		case (state.OrderID != 0 || creating) && !childDone:
			// Платежное намерение создается вместе с заказом, его события могут
			// прийти раньше, чем запустится дочерний процесс
			pending = append(pending, childSignal{name: SignalPaymentWebhookEvent, arg: event})
		default:
			logger.Info("Нет активного PaymentWorkflow, событие отброшено", "referenceID", ref, "eventType", event.Type)
		}
	})

	_, err = workflow.AwaitWithTimeout(ctx, OrderTimeout, func() bool {
		return state.OrderID != 0 || cancelled || createErr != nil
	})
	if err != nil {
		return state, err
	}
	if err := waitHandlers(ctx); err != nil {
		return state, err
	}

	switch {
	case state.OrderID != 0:
	case cancelled:
		return state, nonRetryable("заказ отменен", ErrTypeCancelled)
	case createErr != nil:
		return state, temporal.NewNonRetryableApplicationError("не удалось создать заказ", errorType(createErr), createErr)
	default:
		logger.Warn("Заказ не создан за отведенное время", "referenceID", ref)
		return state, nonRetryable("истекло время создания заказа", ErrTypeOrderCreationTimeout)
	}

	if state.Status != domain.OrderStatusPending {
		return state, nil
	}

	childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
		WorkflowID: PaymentWorkflowID(ref),
	})
	child = workflow.ExecuteChildWorkflow(childCtx, PaymentWorkflow, data)

	var payment PaymentState
	err = child.GetChildWorkflowExecution().Get(ctx, nil)
	if err == nil {
		// Пока очередь не отправлена, новые сигналы встают в ее конец
		for i := 0; i < len(pending); i++ {
			forward(ctx, pending[i])
		}
		pending = nil
		childStarted = true
		err = child.Get(ctx, &payment)
	}
	childDone = true

	if temporal.IsCanceledError(err) {
		return state, err
	}
	if err != nil || payment.Status != PaymentStatusSuccess {
		logger.Warn("Оплата не прошла", "referenceID", ref, "paymentStatus", payment.Status, "error", err)
		reportPayment(ctx, a.ReportPaymentFailed, state.OrderID)
		state.Status = domain.OrderStatusFailed
		return state, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("оплата заказа %s не прошла: %s", ref, payment.Status), ErrTypePaymentFailed, err)
	}

	reportPayment(ctx, a.ReportPaymentConfirmed, state.OrderID)
	state.Status = domain.OrderStatusConfirmed
	logger.Info("Заказ оплачен", "referenceID", ref, "orderID", state.OrderID)

	// Здесь подключается запуск доставки оплаченного заказа
	return state, nil
}

// childSignal сигнал, который нужно передать в PaymentWorkflow
type childSignal struct {
	name string
	arg  interface{}
}

// reportPayment сообщает исход оплаты в хранилище заказов. Ошибка только логируется:
// исход заказа к этому моменту уже определен.
func reportPayment(ctx workflow.Context, activityFn func(ctx context.Context, orderID int64) error, orderID int64) {
	err := workflow.ExecuteActivity(withOrderOptions(ctx), activityFn, orderID).Get(ctx, nil)
	if err != nil {
		workflow.GetLogger(ctx).Error("Не удалось сообщить исход оплаты", "orderID", orderID, "error", err)
	}
}

func errorType(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) && appErr.Type() != "" {
		return appErr.Type()
	}
	return ErrTypeUnknown
}
