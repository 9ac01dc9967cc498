package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

func activityOptions(backoff float64) workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        2 * time.Second,
			BackoffCoefficient:     backoff,
			MaximumInterval:        10 * time.Second,
			MaximumAttempts:        10,
			NonRetryableErrorTypes: []string{ErrTypeUnknown},
		},
	}
}

func withSendEmailOptions(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, activityOptions(1.5))
}

func withVerifyCodeOptions(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, activityOptions(2))
}

func withOrderOptions(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, activityOptions(1.5))
}

// nonRetryable ошибка процесса с типом, который разбирает фасад
func nonRetryable(message, errType string) error {
	return temporal.NewNonRetryableApplicationError(message, errType, nil)
}
