package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/internal/metrics"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/internal/workflows"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/pkg/domain"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/pkg/tracing"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.temporal.io/sdk/client"
)

type TokenIssuer interface {
	Issue(user domain.User) (string, time.Time, error)
}

// LoginResult успешный вход
type LoginResult struct {
	User      domain.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// AuthUseCase вход по одноразовому коду через LoginWorkflow
type AuthUseCase struct {
	client    WorkflowClient
	taskQueue string
	tokens    TokenIssuer
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

func NewAuthUseCase(c WorkflowClient, taskQueue string, tokens TokenIssuer, m *metrics.Metrics, logger zerolog.Logger) *AuthUseCase {
	return &AuthUseCase{
		client:    c,
		taskQueue: taskQueue,
		tokens:    tokens,
		metrics:   m,
		logger:    logger.With().Str("component", "auth").Logger(),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// StartLogin запускает процесс входа. Повторный запрос, пока код действует,
// не отправляет новое письмо и возвращает alreadySent.
func (uc *AuthUseCase) StartLogin(ctx context.Context, email string) (alreadySent bool, err error) {
	ctx, span := tracing.StartApplication(ctx, "StartLogin")
	defer span.End()

	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return false, fmt.Errorf("%w: email", ErrBadRequest)
	}

	_, err = uc.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        workflows.LoginWorkflowID(email),
		TaskQueue: uc.taskQueue,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.LoginWorkflow, workflows.LoginWorkflowData{Email: email})
	if isAlreadyStarted(err) {
		span.SetAttributes(attribute.Bool("login.already_sent", true))
		uc.metrics.StartRecorded("login", "already_started")
		return true, nil
	}
	if err != nil {
		span.RecordError(err)
		uc.metrics.StartRecorded("login", "error")
		return false, fmt.Errorf("запуск входа: %w", err)
	}

	uc.metrics.StartRecorded("login", "started")
	uc.logger.Info().Str("email", email).Msg("Процесс входа запущен")
	return false, nil
}

// LoginState состояние процесса входа без хеша кода
func (uc *AuthUseCase) LoginState(ctx context.Context, email string) (workflows.LoginState, error) {
	ctx, span := tracing.StartApplication(ctx, "LoginState")
	defer span.End()

	id := workflows.LoginWorkflowID(normalizeEmail(email))
	info, err := describe(ctx, uc.client, id)
	if err != nil {
		return workflows.LoginState{}, err
	}
	if !isRunning(info) {
		return workflows.LoginState{}, ErrExpired
	}

	state, err := query[workflows.LoginState](ctx, uc.client, id, workflows.QueryGetLoginState)
	if err != nil {
		span.RecordError(err)
		return workflows.LoginState{}, err
	}
	state.Code = ""
	return state, nil
}

// VerifyLogin проверяет код и выпускает токен доступа
func (uc *AuthUseCase) VerifyLogin(ctx context.Context, email string, code int) (LoginResult, error) {
	ctx, span := tracing.StartApplication(ctx, "VerifyLogin")
	defer span.End()

	email = normalizeEmail(email)
	id := workflows.LoginWorkflowID(email)
	info, err := describe(ctx, uc.client, id)
	if err != nil {
		return LoginResult{}, err
	}
	if !isRunning(info) {
		uc.metrics.OutcomeRecorded("verify_login", "expired")
		return LoginResult{}, ErrCodeExpired
	}

	handle, err := uc.client.UpdateWorkflow(ctx, client.UpdateWorkflowOptions{
		WorkflowID:   id,
		UpdateName:   workflows.UpdateVerifyLoginCode,
		Args:         []interface{}{code},
		WaitForStage: client.WorkflowUpdateStageCompleted,
	})
	var res workflows.VerifyLoginCodeResult
	if err == nil {
		err = handle.Get(ctx, &res)
	}
	if err != nil {
		err = uc.verifyError(err)
		span.RecordError(err)
		return LoginResult{}, err
	}
	if res.User == nil {
		uc.metrics.OutcomeRecorded("verify_login", "invalid_code")
		return LoginResult{}, ErrInvalidCode
	}

	token, expiresAt, err := uc.tokens.Issue(*res.User)
	if err != nil {
		span.RecordError(err)
		return LoginResult{}, err
	}
	uc.metrics.OutcomeRecorded("verify_login", "success")
	uc.logger.Info().Str("email", email).Int64("userID", res.User.ID).Msg("Вход выполнен")
	return LoginResult{User: *res.User, Token: token, ExpiresAt: expiresAt}, nil
}

func (uc *AuthUseCase) verifyError(err error) error {
	if isNotFound(err) {
		// процесс завершился между проверкой и обновлением
		uc.metrics.OutcomeRecorded("verify_login", "expired")
		return ErrCodeExpired
	}
	switch errorType(err) {
	case workflows.ErrTypeLoginCodeAlreadyUsed:
		uc.metrics.OutcomeRecorded("verify_login", "already_used")
		return ErrCodeExpired
	case workflows.ErrTypeInvalidLoginCode:
		uc.metrics.OutcomeRecorded("verify_login", "invalid_code")
		return ErrInvalidCode
	case workflows.ErrTypeLoginCodeNotFound:
		return fmt.Errorf("%w: код еще не отправлен", ErrBadRequest)
	}
	uc.metrics.OutcomeRecorded("verify_login", "error")
	return fmt.Errorf("проверка кода: %w", err)
}
