package worker

import (
	"fmt"

	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/internal/config"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/internal/logging"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/internal/workflows"
	"github.com/rs/zerolog"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// Dial подключается к Temporal. Логи SDK идут через zerolog.
func Dial(cfg config.TemporalConfig, logger zerolog.Logger) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Logger:    logging.NewTemporalLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("подключение к Temporal %s: %w", cfg.HostPort, err)
	}
	return c, nil
}

// Register регистрирует процессы входа, заказа и оплаты и их активности
func Register(r worker.Registry, activities *workflows.Activities) {
	r.RegisterWorkflow(workflows.LoginWorkflow)
	r.RegisterWorkflow(workflows.OrderWorkflow)
	r.RegisterWorkflow(workflows.PaymentWorkflow)
	r.RegisterActivity(activities)
}

// New создает воркер очереди taskQueue
func New(c client.Client, taskQueue string, activities *workflows.Activities) worker.Worker {
	w := worker.New(c, taskQueue, worker.Options{})
	Register(w, activities)
	return w
}
