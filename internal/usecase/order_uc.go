package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/internal/metrics"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/internal/workflows"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/pkg/domain"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/pkg/tracing"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
)

// OrderView состояние заказа для клиента
type OrderView struct {
	workflows.OrderState
	Running bool `json:"running"`
}

// OrderUseCase оформление заказов через OrderWorkflow
type OrderUseCase struct {
	client      WorkflowClient
	taskQueue   string
	workflowTTL time.Duration
	metrics     *metrics.Metrics
	logger      zerolog.Logger
	now         func() time.Time
}

func NewOrderUseCase(c WorkflowClient, taskQueue string, workflowTTL time.Duration, m *metrics.Metrics, logger zerolog.Logger) *OrderUseCase {
	return &OrderUseCase{
		client:      c,
		taskQueue:   taskQueue,
		workflowTTL: workflowTTL,
		metrics:     m,
		logger:      logger.With().Str("component", "orders").Logger(),
		now:         time.Now,
	}
}

// orderFingerprint отпечаток запроса на заказ. Совпадает у повторов одного запроса.
func orderFingerprint(user domain.User, order domain.CreateOrder) (string, error) {
	data, err := json.Marshal(struct {
		UserID int64              `json:"userId"`
		Order  domain.CreateOrder `json:"order"`
	}{user.ID, order})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// CreateOrder запускает процесс заказа, если его еще нет, и создает заказ.
// Повтор того же запроса возвращает уже созданный заказ.
func (uc *OrderUseCase) CreateOrder(ctx context.Context, user domain.User, order domain.CreateOrder) (workflows.OrderState, error) {
	ctx, span := tracing.StartApplication(ctx, "CreateOrder", trace.WithAttributes(tracing.OrderAttributes(order)...))
	defer span.End()

	if err := order.Validate(); err != nil {
		return workflows.OrderState{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	fingerprint, err := orderFingerprint(user, order)
	if err != nil {
		return workflows.OrderState{}, err
	}

	id := workflows.OrderWorkflowID(order.ReferenceID)
	startOp := client.NewWithStartWorkflowOperation(client.StartWorkflowOptions{
		ID:                       id,
		TaskQueue:                uc.taskQueue,
		WorkflowIDConflictPolicy: enumspb.WORKFLOW_ID_CONFLICT_POLICY_USE_EXISTING,
		WorkflowIDReusePolicy:    enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}, workflows.OrderWorkflow, workflows.OrderWorkflowData{
		User:        user,
		Order:       order,
		Fingerprint: fingerprint,
	})

	handle, err := uc.client.UpdateWithStartWorkflow(ctx, client.UpdateWithStartWorkflowOptions{
		StartWorkflowOperation: startOp,
		UpdateOptions: client.UpdateWorkflowOptions{
			WorkflowID:   id,
			UpdateName:   workflows.UpdateCreateOrder,
			Args:         []interface{}{fingerprint},
			WaitForStage: client.WorkflowUpdateStageCompleted,
		},
	})
	var state workflows.OrderState
	if err == nil {
		err = handle.Get(ctx, &state)
	}
	if err != nil {
		err = uc.createError(err)
		span.RecordError(err)
		return workflows.OrderState{}, err
	}

	span.SetAttributes(attribute.Int64("order.id", state.OrderID))
	uc.metrics.StartRecorded("order", "created")
	uc.logger.Info().Str("referenceID", order.ReferenceID).Int64("orderID", state.OrderID).Msg("Заказ оформлен")
	return state, nil
}

func (uc *OrderUseCase) createError(err error) error {
	if isAlreadyStarted(err) {
		// процесс с этим referenceId уже завершен
		uc.metrics.StartRecorded("order", "conflict")
		return fmt.Errorf("%w: заказ уже обработан", ErrConflict)
	}
	switch errorType(err) {
	case workflows.ErrTypeOrderConflict, workflows.ErrTypeCancelled:
		uc.metrics.StartRecorded("order", "conflict")
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case workflows.ErrTypeInvalidOrder:
		uc.metrics.StartRecorded("order", "invalid")
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	uc.metrics.StartRecorded("order", "error")
	return fmt.Errorf("оформление заказа: %w", err)
}

// orderInfo проверяет, что процесс заказа существует и не старше workflowTTL
func (uc *OrderUseCase) orderInfo(ctx context.Context, referenceID string) (bool, error) {
	info, err := describe(ctx, uc.client, workflows.OrderWorkflowID(referenceID))
	if err != nil {
		return false, err
	}
	if uc.workflowTTL > 0 && uc.now().Sub(info.GetStartTime().AsTime()) > uc.workflowTTL {
		return false, ErrExpired
	}
	return isRunning(info), nil
}

// OrderStatus состояние заказа. Завершенный процесс без подтвержденной оплаты
// отображается как Failed.
func (uc *OrderUseCase) OrderStatus(ctx context.Context, referenceID string) (OrderView, error) {
	ctx, span := tracing.StartApplication(ctx, "OrderStatus")
	defer span.End()

	running, err := uc.orderInfo(ctx, referenceID)
	if err != nil {
		return OrderView{}, err
	}

	state, err := query[workflows.OrderState](ctx, uc.client, workflows.OrderWorkflowID(referenceID), workflows.QueryGetOrderState)
	if err != nil {
		span.RecordError(err)
		if !running {
			return OrderView{}, ErrExpired
		}
		return OrderView{}, err
	}
	if !running && state.Status == domain.OrderStatusPending {
		state.Status = domain.OrderStatusFailed
	}
	return OrderView{OrderState: state, Running: running}, nil
}

// CancelOrder отправляет процессу сигнал отмены и не ждет его обработки
func (uc *OrderUseCase) CancelOrder(ctx context.Context, referenceID string) error {
	ctx, span := tracing.StartApplication(ctx, "CancelOrder")
	defer span.End()

	running, err := uc.orderInfo(ctx, referenceID)
	if err != nil {
		return err
	}
	if !running {
		return ErrExpired
	}

	err = uc.client.SignalWorkflow(ctx, workflows.OrderWorkflowID(referenceID), "", workflows.SignalCancelWorkflow, nil)
	if isNotFound(err) {
		return ErrExpired
	}
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("отмена заказа %s: %w", referenceID, err)
	}
	uc.metrics.OutcomeRecorded("cancel_order", "signalled")
	uc.logger.Info().Str("referenceID", referenceID).Msg("Запрошена отмена заказа")
	return nil
}
