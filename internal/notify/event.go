// Package notify доставляет события жизненного цикла заказа во внешние системы:
// почтовый сервис и брокер сообщений. Доставка асинхронна и не влияет на состояние заказа.
package notify

import (
	"time"

	"github.com/google/uuid"

	"github.com/Motasaith/mern-ecommerce-sub000/internal/model"
)

// EventType - тип доменного события заказа.
type EventType string

const (
	EventOrderCreated   EventType = "order.created"
	EventOrderPaid      EventType = "order.paid"
	EventOrderShipped   EventType = "order.shipped"
	EventOrderDelivered EventType = "order.delivered"
	EventOrderCancelled EventType = "order.cancelled"
)

// Event - событие жизненного цикла со снимком заказа на момент перехода.
type Event struct {
	ID         string      `json:"event_id"`
	Type       EventType   `json:"type"`
	OrderID    string      `json:"order_id"`
	OwnerID    int64       `json:"owner_id"`
	OccurredAt time.Time   `json:"created_at"`
	Order      model.Order `json:"payload"`
}

// NewEvent создаёт событие для заказа.
func NewEvent(t EventType, o model.Order, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		OrderID:    o.ID,
		OwnerID:    o.OwnerID,
		OccurredAt: at.UTC(),
		Order:      o,
	}
}
