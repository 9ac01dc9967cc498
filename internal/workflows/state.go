package workflows

import (
	"time"

	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/pkg/domain"
)

// Имена запросов, обновлений и сигналов. Входят в контракт с фасадом.
const (
	QueryGetLoginState    = "getLoginStateQuery"
	UpdateVerifyLoginCode = "verifyLoginCodeUpdate"

	QueryGetOrderState = "getOrderStateQuery"
	UpdateCreateOrder  = "createOrderUpdate"

	QueryGetPaymentState = "getPaymentStateQuery"

	SignalCancelWorkflow      = "cancelWorkflowSignal"
	SignalPaymentWebhookEvent = "paymentWebHookEventSignal"
)

// Таймауты являются частью детерминированной логики и не настраиваются на воркере.
const (
	LoginCodeTimeout      = 10 * time.Minute
	OrderTimeout          = 30 * time.Minute
	ProcessPaymentTimeout = 30 * time.Minute
)

func LoginWorkflowID(email string) string {
	return "login-" + email
}

func OrderWorkflowID(referenceID string) string {
	return "order-" + referenceID
}

func PaymentWorkflowID(referenceID string) string {
	return "payment-" + referenceID
}

type LoginCodeStatus string

const (
	LoginCodeStatusPending           LoginCodeStatus = "PENDING"
	LoginCodeStatusSent              LoginCodeStatus = "SENT"
	LoginCodeStatusErrorSendingEmail LoginCodeStatus = "ERROR_SENDING_EMAIL"
)

type LoginStatus string

const (
	LoginStatusPending LoginStatus = "PENDING"
	LoginStatusSuccess LoginStatus = "SUCCESS"
	LoginStatusFailed  LoginStatus = "FAILED"
)

type LoginWorkflowData struct {
	Email string `json:"email"`
}

// LoginState снимок процесса входа. Code хранит хеш одноразового кода.
type LoginState struct {
	CodeStatus LoginCodeStatus `json:"codeStatus"`
	Status     LoginStatus     `json:"status"`
	Code       string          `json:"code,omitempty"`
	User       *domain.User    `json:"user,omitempty"`
}

// VerifyLoginCodeResult ответ обновления verifyLoginCode; User пуст при неверном коде
type VerifyLoginCodeResult struct {
	User *domain.User `json:"user,omitempty"`
}

type OrderWorkflowData struct {
	User  domain.User        `json:"user"`
	Order domain.CreateOrder `json:"order"`
	// Fingerprint отпечаток исходного запроса, по нему отличаем повтор от конфликта
	Fingerprint string `json:"fingerprint,omitempty"`
}

// OrderState снимок процесса заказа
type OrderState struct {
	Status       domain.OrderStatus `json:"status"`
	ReferenceID  string             `json:"referenceId"`
	OrderID      int64              `json:"orderId,omitempty"`
	ClientSecret string             `json:"clientSecret,omitempty"`
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusInitiated PaymentStatus = "INITIATED"
	PaymentStatusSuccess   PaymentStatus = "SUCCESS"
	PaymentStatusFailure   PaymentStatus = "FAILURE"
	PaymentStatusDeclined  PaymentStatus = "DECLINED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// Terminal финальные статусы платежа не меняются
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusSuccess, PaymentStatusFailure, PaymentStatusDeclined, PaymentStatusCancelled:
		return true
	}
	return false
}

type PaymentState struct {
	Status PaymentStatus `json:"status"`
}
