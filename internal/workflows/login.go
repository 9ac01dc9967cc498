package workflows

import (
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/pkg/domain"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// LoginWorkflow процесс входа по одноразовому коду. Живет не дольше LoginCodeTimeout.
func LoginWorkflow(ctx workflow.Context, data LoginWorkflowData) (LoginState, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Запущен LoginWorkflow", "email", data.Email)

	state := LoginState{
		CodeStatus: LoginCodeStatusPending,
		Status:     LoginStatusPending,
	}
	var a *Activities

	// Обработчики регистрируются до первой активности, иначе ранняя проверка кода потеряется
	err := workflow.SetQueryHandler(ctx, QueryGetLoginState, func() (LoginState, error) {
		return state, nil
	})
	if err != nil {
		return state, err
	}

	err = workflow.SetUpdateHandlerWithOptions(ctx, UpdateVerifyLoginCode,
		func(ctx workflow.Context, code int) (VerifyLoginCodeResult, error) {
			if state.Code == "" {
				return VerifyLoginCodeResult{}, nonRetryable("код входа еще не отправлен", ErrTypeLoginCodeNotFound)
			}

			var user *domain.User
			err := workflow.ExecuteActivity(withVerifyCodeOptions(ctx), a.VerifyLoginCode, data.Email, code, state.Code).Get(ctx, &user)
			if err != nil {
				return VerifyLoginCodeResult{}, err
			}
			if user == nil {
				logger.Info("Неверный код входа", "email", data.Email)
				return VerifyLoginCodeResult{}, nil
			}

			// Код одноразовый: из параллельных успешных проверок выигрывает первая
			if state.User != nil {
				return VerifyLoginCodeResult{}, temporal.NewApplicationError("код входа уже использован", ErrTypeLoginCodeAlreadyUsed)
			}
			state.User = user
			return VerifyLoginCodeResult{User: user}, nil
		},
		workflow.UpdateHandlerOptions{Validator: func(ctx workflow.Context, code int) error {
			if state.User != nil {
				return temporal.NewApplicationError("код входа уже использован", ErrTypeLoginCodeAlreadyUsed)
			}
			if code < 0 || code > 999999 {
				return temporal.NewApplicationError("некорректный код входа", ErrTypeInvalidLoginCode)
			}
			return nil
		}},
	)
	if err != nil {
		return state, err
	}

	var sent SendLoginEmailResult
	err = workflow.ExecuteActivity(withSendEmailOptions(ctx), a.SendLoginEmail, data.Email).Get(ctx, &sent)
	if temporal.IsCanceledError(err) {
		return loginCancelled(ctx, data, state, err)
	}
	if err != nil {
		state.CodeStatus = LoginCodeStatusErrorSendingEmail
		state.Status = LoginStatusFailed
		logger.Error("Не удалось отправить код входа", "email", data.Email, "error", err)
		return state, err
	}
	state.Code = sent.HashedCode
	state.CodeStatus = LoginCodeStatusSent

	_, err = workflow.AwaitWithTimeout(ctx, LoginCodeTimeout, func() bool { return state.User != nil })
	if err == nil {
		err = waitHandlers(ctx)
	}
	if temporal.IsCanceledError(err) {
		return loginCancelled(ctx, data, state, err)
	}
	if err != nil {
		return state, err
	}

	if state.User == nil {
		state.Status = LoginStatusFailed
		logger.Info("Срок действия кода входа истек", "email", data.Email)
		return state, nonRetryable("срок действия кода входа истек", ErrTypeLoginCodeExpired)
	}

	state.Status = LoginStatusSuccess
	logger.Info("Вход подтвержден", "email", data.Email, "userID", state.User.ID)
	return state, nil
}

func loginCancelled(ctx workflow.Context, data LoginWorkflowData, state LoginState, cause error) (LoginState, error) {
	state.Status = LoginStatusFailed
	workflow.GetLogger(ctx).Warn("LoginWorkflow отменен", "email", data.Email)

	cleanupCtx, cancel := workflow.NewDisconnectedContext(ctx)
	defer cancel()
	cleanupLogin(cleanupCtx, data)
	return state, cause
}

// cleanupLogin точка для компенсирующих действий при отмене входа. Сейчас их нет.
func cleanupLogin(ctx workflow.Context, data LoginWorkflowData) {
	workflow.GetLogger(ctx).Debug("Очистка после отмены входа", "email", data.Email)
}

func waitHandlers(ctx workflow.Context) error {
	return workflow.Await(ctx, func() bool {
		return workflow.AllHandlersFinished(ctx)
	})
}
