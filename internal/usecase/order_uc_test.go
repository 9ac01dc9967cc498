package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/internal/metrics"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/internal/workflows"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/pkg/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
)

var testUser = domain.User{ID: 7, Email: "a@b.com"}

func testOrder(ref string) domain.CreateOrder {
	return domain.CreateOrder{
		ReferenceID:     ref,
		Items:           []domain.OrderItem{{ProductID: 1, Quantity: 1}},
		ShippingAddress: "1 Main St",
	}
}

func newOrderUseCase(c *fakeClient) *OrderUseCase {
	return NewOrderUseCase(c, "checkout-tasks", time.Hour, metrics.New(), zerolog.Nop())
}

func TestCreateOrder(t *testing.T) {
	c := newFakeClient()
	uc := newOrderUseCase(c)
	c.updateResult = workflows.OrderState{
		Status:       domain.OrderStatusPending,
		ReferenceID:  "ref-001",
		OrderID:      42,
		ClientSecret: "pi_secret",
	}

	state, err := uc.CreateOrder(context.Background(), testUser, testOrder("ref-001"))
	require.NoError(t, err)
	require.Equal(t, int64(42), state.OrderID)
	require.Equal(t, "pi_secret", state.ClientSecret)

	require.Len(t, c.withStart, 1)
	opts := c.withStart[0].UpdateOptions
	require.Equal(t, "order-ref-001", opts.WorkflowID)
	require.Equal(t, workflows.UpdateCreateOrder, opts.UpdateName)
	require.Equal(t, client.WorkflowUpdateStageCompleted, opts.WaitForStage)

	fp, err := orderFingerprint(testUser, testOrder("ref-001"))
	require.NoError(t, err)
	require.Equal(t, []interface{}{fp}, opts.Args)
}

func TestOrderFingerprint(t *testing.T) {
	a, err := orderFingerprint(testUser, testOrder("ref-001"))
	require.NoError(t, err)
	b, err := orderFingerprint(testUser, testOrder("ref-001"))
	require.NoError(t, err)
	require.Equal(t, a, b)

	changed := testOrder("ref-001")
	changed.Items[0].Quantity = 2
	c, err := orderFingerprint(testUser, changed)
	require.NoError(t, err)
	require.NotEqual(t, a, c)

	d, err := orderFingerprint(domain.User{ID: 8}, testOrder("ref-001"))
	require.NoError(t, err)
	require.NotEqual(t, a, d)
}

func TestCreateOrderErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"different payload", temporal.NewApplicationError("conflict", workflows.ErrTypeOrderConflict), ErrConflict},
		{"cancelled", temporal.NewApplicationError("cancelled", workflows.ErrTypeCancelled), ErrConflict},
		{"finished workflow", serviceerror.NewWorkflowExecutionAlreadyStarted("started", "", "run-1"), ErrConflict},
		{"unknown product", temporal.NewNonRetryableApplicationError("no product", workflows.ErrTypeInvalidOrder, nil), ErrBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newFakeClient()
			c.updateErr = tc.err
			_, err := newOrderUseCase(c).CreateOrder(context.Background(), testUser, testOrder("ref-001"))
			require.ErrorIs(t, err, tc.want)
		})
	}

	c := newFakeClient()
	_, err := newOrderUseCase(c).CreateOrder(context.Background(), testUser, domain.CreateOrder{ReferenceID: "ref-001"})
	require.ErrorIs(t, err, ErrBadRequest)
	require.Empty(t, c.withStart)
}

func TestOrderStatus(t *testing.T) {
	c := newFakeClient()
	uc := newOrderUseCase(c)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return now }

	_, err := uc.OrderStatus(context.Background(), "ref-404")
	require.ErrorIs(t, err, ErrNotFound)

	c.addExecution("order-ref-001", enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING, now.Add(-time.Minute))
	c.queryResult = workflows.OrderState{Status: domain.OrderStatusPending, ReferenceID: "ref-001", OrderID: 42}
	view, err := uc.OrderStatus(context.Background(), "ref-001")
	require.NoError(t, err)
	require.True(t, view.Running)
	require.Equal(t, domain.OrderStatusPending, view.Status)
	require.Equal(t, int64(42), view.OrderID)

	// процесс завершился, заказ так и не был создан
	c.addExecution("order-ref-002", enumspb.WORKFLOW_EXECUTION_STATUS_FAILED, now.Add(-40*time.Minute))
	c.queryResult = workflows.OrderState{Status: domain.OrderStatusPending, ReferenceID: "ref-002"}
	view, err = uc.OrderStatus(context.Background(), "ref-002")
	require.NoError(t, err)
	require.False(t, view.Running)
	require.Equal(t, domain.OrderStatusFailed, view.Status)

	c.addExecution("order-ref-003", enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING, now.Add(-2*time.Hour))
	_, err = uc.OrderStatus(context.Background(), "ref-003")
	require.ErrorIs(t, err, ErrExpired)

	c.queryErr = errUnavailable
	_, err = uc.OrderStatus(context.Background(), "ref-002")
	require.ErrorIs(t, err, ErrExpired)
	_, err = uc.OrderStatus(context.Background(), "ref-001")
	require.ErrorIs(t, err, errUnavailable)
}

func TestCancelOrder(t *testing.T) {
	c := newFakeClient()
	uc := newOrderUseCase(c)

	require.ErrorIs(t, uc.CancelOrder(context.Background(), "ref-001"), ErrNotFound)

	c.addExecution("order-ref-001", enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING, time.Now())
	require.NoError(t, uc.CancelOrder(context.Background(), "ref-001"))
	require.Equal(t, []sentSignal{{workflowID: "order-ref-001", name: workflows.SignalCancelWorkflow}}, c.signals)

	c.addExecution("order-ref-002", enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED, time.Now())
	require.ErrorIs(t, uc.CancelOrder(context.Background(), "ref-002"), ErrExpired)
}
