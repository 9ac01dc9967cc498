package domain

// PaymentStatus статус платежной записи в хранилище
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "Pending"
	PaymentStatusCompleted PaymentStatus = "Completed"
	PaymentStatusFailed    PaymentStatus = "Failed"
)

// PaymentProviderStripe имя платежного провайдера
const PaymentProviderStripe = "Stripe"

// Payment платежная запись заказа
type Payment struct {
	ID            int64         `json:"id"`
	OrderID       int64         `json:"orderId"`
	UserID        int64         `json:"userId"`
	Amount        int64         `json:"amount"`
	Provider      string        `json:"provider"`
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transactionId"`
}

// PaymentIntentRequest параметры создания платежного намерения
type PaymentIntentRequest struct {
	Amount   int64
	Currency string
	Metadata map[string]string
}

// PaymentIntent платежное намерение у провайдера
type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
}

// PaymentEventMetadata метаданные, которые мы кладем в платежное намерение
type PaymentEventMetadata struct {
	UserID      int64  `json:"userId"`
	ReferenceID string `json:"referenceId"`
}

// PaymentEventData данные объекта из вебхука
type PaymentEventData struct {
	ID       string               `json:"id"`
	Amount   int64                `json:"amount"`
	Currency string               `json:"currency"`
	Status   string               `json:"status"`
	Metadata PaymentEventMetadata `json:"metadata"`
}

// PaymentWebhookEvent нормализованное событие платежного провайдера
type PaymentWebhookEvent struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Provider string           `json:"provider"`
	Data     PaymentEventData `json:"data"`
}

// Routable событие содержит все, что нужно для доставки в процесс заказа
func (e PaymentWebhookEvent) Routable() bool {
	return e.Data.Metadata.UserID != 0 && e.Data.Metadata.ReferenceID != ""
}
