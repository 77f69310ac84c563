// Package model содержит доменные сущности витрины: заказы, пользователей и жизненный цикл заказа.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// User представляет зарегистрированного покупателя или администратора.
type User struct {
	ID           int64
	Login        string
	Email        string
	PasswordHash []byte
	Admin        bool
	CreatedAt    time.Time
}

// OrderStatus описывает отображаемый статус заказа, используемый для фильтрации.
type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

// Valid сообщает, является ли значение одним из известных статусов.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// PaymentMethod описывает способ оплаты заказа.
type PaymentMethod string

const (
	PaymentMethodCashOnDelivery PaymentMethod = "cod"
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodPayPal         PaymentMethod = "paypal"
)

// Valid сообщает, поддерживается ли способ оплаты.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCashOnDelivery, PaymentMethodCard, PaymentMethodPayPal:
		return true
	}
	return false
}

// LineItem - позиция заказа. Название и цена фиксируются в момент оформления
// и больше не синхронизируются с каталогом.
type LineItem struct {
	ProductRef string          `json:"productRef"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
}

// Subtotal возвращает стоимость позиции.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Address - почтовый адрес доставки.
type Address struct {
	FullName   string `json:"fullName"`
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// PaymentResult хранит подтверждение платёжного провайдера как есть.
type PaymentResult struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	UpdateTime   string `json:"updateTime,omitempty"`
	EmailAddress string `json:"emailAddress,omitempty"`
}

// PaymentState описывает состояние оплаты заказа.
type PaymentState struct {
	Paid   bool           `json:"paid"`
	PaidAt *time.Time     `json:"paidAt,omitempty"`
	Result *PaymentResult `json:"result,omitempty"`
}

// TrackingInfo содержит данные отслеживания отправления. Перевозчик и ссылка хранятся непрозрачно.
type TrackingInfo struct {
	Number  string `json:"number"`
	Carrier string `json:"carrier,omitempty"`
	URL     string `json:"url,omitempty"`
}

// ShipmentState описывает состояние отгрузки.
type ShipmentState struct {
	Shipped   bool          `json:"shipped"`
	ShippedAt *time.Time    `json:"shippedAt,omitempty"`
	Tracking  *TrackingInfo `json:"tracking,omitempty"`
}

// DeliveryState описывает состояние доставки.
type DeliveryState struct {
	Delivered   bool       `json:"delivered"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
}

// CancelState описывает отмену заказа.
type CancelState struct {
	Cancelled   bool       `json:"cancelled"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
	Reason      string     `json:"reason,omitempty"`
}

// Order - запись о заказе, центральная сущность системы.
type Order struct {
	ID              string          `json:"id"`
	OwnerID         int64           `json:"ownerId"`
	LineItems       []LineItem      `json:"lineItems"`
	ShippingAddress Address         `json:"shippingAddress"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	ItemsPrice      decimal.Decimal `json:"itemsPrice"`
	TaxPrice        decimal.Decimal `json:"taxPrice"`
	ShippingPrice   decimal.Decimal `json:"shippingPrice"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	Payment         PaymentState    `json:"payment"`
	Shipment        ShipmentState   `json:"shipment"`
	Delivery        DeliveryState   `json:"delivery"`
	Cancellation    CancelState     `json:"cancellation"`
	State           State           `json:"state"`
	Status          OrderStatus     `json:"status"`
	Version         int64           `json:"version"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// DisplayStatus возвращает единый статус для ленты активности
// с приоритетом Delivered > Shipped > Paid > Processing.
func (o *Order) DisplayStatus() string {
	switch {
	case o.Cancellation.Cancelled:
		return string(OrderStatusCancelled)
	case o.Delivery.Delivered:
		return string(OrderStatusDelivered)
	case o.Shipment.Shipped:
		return string(OrderStatusShipped)
	case o.Payment.Paid:
		return "Paid"
	default:
		return string(OrderStatusProcessing)
	}
}

// OrderFilter задаёт условия выборки заказов для администратора.
type OrderFilter struct {
	Status *OrderStatus
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// OrderSummary - краткое представление заказа для ленты последних событий.
type OrderSummary struct {
	ID         string          `json:"id"`
	OwnerID    int64           `json:"ownerId"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
}
