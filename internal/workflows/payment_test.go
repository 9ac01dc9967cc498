package workflows

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/testsuite"
)

type PaymentWorkflowSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestWorkflowEnvironment
}

func TestPaymentWorkflow(t *testing.T) {
	suite.Run(t, new(PaymentWorkflowSuite))
}

func (s *PaymentWorkflowSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
}

func (s *PaymentWorkflowSuite) result() PaymentState {
	s.True(s.env.IsWorkflowCompleted())
	s.Require().NoError(s.env.GetWorkflowError())
	var state PaymentState
	s.Require().NoError(s.env.GetWorkflowResult(&state))
	return state
}

func (s *PaymentWorkflowSuite) signalEvent(eventType string) {
	s.env.SignalWorkflow(SignalPaymentWebhookEvent, webhookEvent(eventType, "ref-001"))
}

func (s *PaymentWorkflowSuite) Test_InitiatedThenSucceeded() {
	s.env.RegisterDelayedCallback(func() { s.signalEvent("payment_intent.created") }, time.Second)
	s.env.RegisterDelayedCallback(func() {
		res, err := s.env.QueryWorkflow(QueryGetPaymentState)
		s.Require().NoError(err)
		var state PaymentState
		s.Require().NoError(res.Get(&state))
		s.Equal(PaymentStatusInitiated, state.Status)
		s.signalEvent("payment_intent.succeeded")
	}, 2*time.Second)

	s.env.ExecuteWorkflow(PaymentWorkflow, orderData("ref-001"))

	s.Equal(PaymentStatusSuccess, s.result().Status)
}

func (s *PaymentWorkflowSuite) Test_TerminalStatusIsFinal() {
	s.env.RegisterDelayedCallback(func() {
		s.signalEvent("payment_intent.succeeded")
		s.signalEvent("payment_intent.payment_failed")
		s.env.SignalWorkflow(SignalCancelWorkflow, nil)
	}, time.Second)

	s.env.ExecuteWorkflow(PaymentWorkflow, orderData("ref-001"))

	s.Equal(PaymentStatusSuccess, s.result().Status)
}

func (s *PaymentWorkflowSuite) Test_CancelThenWebhookIgnored() {
	s.env.RegisterDelayedCallback(func() {
		s.env.SignalWorkflow(SignalCancelWorkflow, nil)
		s.signalEvent("payment_intent.succeeded")
	}, time.Second)

	s.env.ExecuteWorkflow(PaymentWorkflow, orderData("ref-001"))

	s.Equal(PaymentStatusCancelled, s.result().Status)
}

func (s *PaymentWorkflowSuite) Test_UnknownEventThenTimeout() {
	s.env.RegisterDelayedCallback(func() { s.signalEvent("charge.refunded") }, time.Second)
	s.env.RegisterDelayedCallback(func() { s.signalEvent("payment_method.attached") }, 2*time.Second)

	s.env.ExecuteWorkflow(PaymentWorkflow, orderData("ref-001"))

	// по истечении таймаута незавершенный платеж считается отмененным
	s.Equal(PaymentStatusCancelled, s.result().Status)
}

func TestClassifyPaymentEvent(t *testing.T) {
	cases := map[string]PaymentStatus{
		"payment_intent.created":                   PaymentStatusInitiated,
		"payment_intent.processing":                PaymentStatusInitiated,
		"payment_method.attached":                  PaymentStatusInitiated,
		"checkout.session.completed":               PaymentStatusSuccess,
		"checkout.session.async_payment_succeeded": PaymentStatusSuccess,
		"payment_intent.succeeded":                 PaymentStatusSuccess,
		"payment_intent.payment_failed":            PaymentStatusFailure,
		"payment_intent.canceled":                  PaymentStatusFailure,
	}
	for eventType, want := range cases {
		got, ok := ClassifyPaymentEvent(eventType)
		require.True(t, ok, eventType)
		require.Equal(t, want, got, eventType)
	}

	_, ok := ClassifyPaymentEvent("charge.refunded")
	require.False(t, ok)
}

func TestPaymentStatusTerminal(t *testing.T) {
	require.False(t, PaymentStatusPending.Terminal())
	require.False(t, PaymentStatusInitiated.Terminal())
	require.True(t, PaymentStatusSuccess.Terminal())
	require.True(t, PaymentStatusFailure.Terminal())
	require.True(t, PaymentStatusDeclined.Terminal())
	require.True(t, PaymentStatusCancelled.Terminal())
}
