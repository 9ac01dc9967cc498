package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/internal/metrics"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/internal/workflows"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/pkg/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
)

func newAuthUseCase(c *fakeClient) (*AuthUseCase, *metrics.Metrics) {
	m := metrics.New()
	return NewAuthUseCase(c, "checkout-tasks", fakeTokens{}, m, zerolog.Nop()), m
}

func TestStartLogin(t *testing.T) {
	c := newFakeClient()
	uc, m := newAuthUseCase(c)

	alreadySent, err := uc.StartLogin(context.Background(), " A@b.com ")
	require.NoError(t, err)
	require.False(t, alreadySent)
	require.Len(t, c.started, 1)
	require.Equal(t, "login-a@b.com", c.started[0].ID)
	require.Equal(t, "checkout-tasks", c.started[0].TaskQueue)
	require.True(t, c.started[0].WorkflowExecutionErrorWhenAlreadyStarted)

	c.startErr = serviceerror.NewWorkflowExecutionAlreadyStarted("already started", "", "run-1")
	alreadySent, err = uc.StartLogin(context.Background(), "a@b.com")
	require.NoError(t, err)
	require.True(t, alreadySent)
	require.Equal(t, 1.0, testutil.ToFloat64(m.WorkflowStarts.WithLabelValues("login", "already_started")))

	_, err = uc.StartLogin(context.Background(), "not-an-email")
	require.ErrorIs(t, err, ErrBadRequest)
}

func TestLoginState(t *testing.T) {
	c := newFakeClient()
	uc, _ := newAuthUseCase(c)

	_, err := uc.LoginState(context.Background(), "a@b.com")
	require.ErrorIs(t, err, ErrNotFound)

	c.addExecution("login-a@b.com", enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING, time.Now())
	c.queryResult = workflows.LoginState{
		CodeStatus: workflows.LoginCodeStatusSent,
		Status:     workflows.LoginStatusPending,
		Code:       "$2a$10$hash",
	}
	state, err := uc.LoginState(context.Background(), "a@b.com")
	require.NoError(t, err)
	require.Equal(t, workflows.LoginCodeStatusSent, state.CodeStatus)
	require.Empty(t, state.Code)

	c.addExecution("login-a@b.com", enumspb.WORKFLOW_EXECUTION_STATUS_FAILED, time.Now())
	_, err = uc.LoginState(context.Background(), "a@b.com")
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerifyLogin(t *testing.T) {
	c := newFakeClient()
	uc, _ := newAuthUseCase(c)
	c.addExecution("login-a@b.com", enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING, time.Now())
	user := &domain.User{ID: 7, Email: "a@b.com", Username: "a"}

	c.updateResult = workflows.VerifyLoginCodeResult{User: user}
	res, err := uc.VerifyLogin(context.Background(), "a@b.com", 42819)
	require.NoError(t, err)
	require.Equal(t, *user, res.User)
	require.Equal(t, "token-for-a@b.com", res.Token)

	require.Len(t, c.updates, 1)
	require.Equal(t, workflows.UpdateVerifyLoginCode, c.updates[0].UpdateName)
	require.Equal(t, []interface{}{42819}, c.updates[0].Args)
	require.Equal(t, client.WorkflowUpdateStageCompleted, c.updates[0].WaitForStage)

	c.updateResult = workflows.VerifyLoginCodeResult{}
	_, err = uc.VerifyLogin(context.Background(), "a@b.com", 111111)
	require.ErrorIs(t, err, ErrInvalidCode)
}

func TestVerifyLoginErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"already used", temporal.NewApplicationError("used", workflows.ErrTypeLoginCodeAlreadyUsed), ErrCodeExpired},
		{"out of range", temporal.NewApplicationError("range", workflows.ErrTypeInvalidLoginCode), ErrInvalidCode},
		{"not sent yet", temporal.NewNonRetryableApplicationError("no code", workflows.ErrTypeLoginCodeNotFound, nil), ErrBadRequest},
		{"completed meanwhile", serviceerror.NewNotFound("workflow execution already completed"), ErrCodeExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newFakeClient()
			uc, _ := newAuthUseCase(c)
			c.addExecution("login-a@b.com", enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING, time.Now())
			c.updateErr = tc.err

			_, err := uc.VerifyLogin(context.Background(), "a@b.com", 1)
			require.ErrorIs(t, err, tc.want)
		})
	}

	c := newFakeClient()
	uc, _ := newAuthUseCase(c)
	_, err := uc.VerifyLogin(context.Background(), "a@b.com", 1)
	require.ErrorIs(t, err, ErrNotFound)

	c.addExecution("login-a@b.com", enumspb.WORKFLOW_EXECUTION_STATUS_FAILED, time.Now())
	_, err = uc.VerifyLogin(context.Background(), "a@b.com", 1)
	require.ErrorIs(t, err, ErrCodeExpired)
}
