package domain

import "time"

// OrderStatus определяет состояния заказа
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusConfirmed OrderStatus = "Confirmed"
	OrderStatusFailed    OrderStatus = "Failed"
	// Следующие статусы выставляет внешняя система управления заказами
	OrderStatusShipped   OrderStatus = "Shipped"
	OrderStatusDelivered OrderStatus = "Delivered"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

// ShippingCost фиксированная стоимость доставки в минимальных единицах валюты
const ShippingCost int64 = 1000

// Currency валюта всех заказов
const Currency = "usd"

// OrderItem позиция корзины
type OrderItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int64 `json:"quantity"`
}

// CreateOrder содержимое корзины, присланное клиентом.
// ReferenceID служит ключом идемпотентности, который задает клиент.
type CreateOrder struct {
	ReferenceID     string      `json:"referenceId"`
	Items           []OrderItem `json:"items"`
	ShippingAddress string      `json:"shippingAddress"`
	BillingAddress  string      `json:"billingAddress"`
	PaymentMethod   string      `json:"paymentMethod,omitempty"`
}

// Validate проверяет корзину до запуска процесса
func (o CreateOrder) Validate() error {
	if o.ReferenceID == "" {
		return ErrInvalidOrder
	}
	if len(o.Items) == 0 {
		return ErrInvalidOrder
	}
	for _, item := range o.Items {
		if item.ProductID <= 0 || item.Quantity <= 0 {
			return ErrInvalidOrder
		}
	}
	return nil
}

// NewOrder запись заказа, готовая к сохранению
type NewOrder struct {
	UserID          int64
	ReferenceID     string
	Items           []OrderItem
	ShippingAddress string
	BillingAddress  string
	ShippingCost    int64
	TaxAmount       int64
	TotalPrice      int64
}

// Order представляет сохраненный заказ. Суммы хранятся в центах.
type Order struct {
	ID              int64       `json:"id"`
	UserID          int64       `json:"userId"`
	ReferenceID     string      `json:"referenceId"`
	Status          OrderStatus `json:"status"`
	Items           []OrderItem `json:"items,omitempty"`
	ShippingAddress string      `json:"shippingAddress,omitempty"`
	BillingAddress  string      `json:"billingAddress,omitempty"`
	ShippingCost    int64       `json:"shippingCost"`
	TaxAmount       int64       `json:"taxAmount"`
	TotalPrice      int64       `json:"totalPrice"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}
