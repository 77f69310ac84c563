// Package tracking строит ленту отслеживания заказа для покупателя: подтверждённые
// этапы из сохранённых отметок времени и расчётные будущие этапы.
package tracking

import (
	"fmt"
	"time"

	"github.com/Motasaith/mern-ecommerce-sub000/internal/model"
)

// Milestone - этап ленты отслеживания.
type Milestone string

const (
	MilestoneCreated   Milestone = "created"
	MilestonePaid      Milestone = "paid"
	MilestoneShipped   Milestone = "shipped"
	MilestoneDelivered Milestone = "delivered"
	MilestoneCancelled Milestone = "cancelled"
)

// Entry - элемент ленты. Расчётные элементы помечены Estimated и никогда не сохраняются.
type Entry struct {
	Milestone   Milestone  `json:"milestone"`
	Label       string     `json:"label"`
	Description string     `json:"description"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	Completed   bool       `json:"completed"`
	Estimated   bool       `json:"estimated"`
}

// Config задаёт сроки для расчёта будущих этапов.
type Config struct {
	// ShippingLeadTime - ожидаемое время от оплаты до отгрузки.
	ShippingLeadTime time.Duration
	// DeliveryLeadTime - ожидаемое время от отгрузки до доставки.
	DeliveryLeadTime time.Duration
}

// DefaultConfig возвращает сроки по умолчанию.
func DefaultConfig() Config {
	return Config{
		ShippingLeadTime: 2 * 24 * time.Hour,
		DeliveryLeadTime: 5 * 24 * time.Hour,
	}
}

// Builder строит ленту отслеживания.
type Builder struct {
	cfg Config
}

// NewBuilder создаёт построитель ленты.
func NewBuilder(cfg Config) *Builder {
	return &Builder{cfg: cfg}
}

type step struct {
	milestone Milestone
	label     string
	at        *time.Time
	lead      time.Duration
}

// Build возвращает ленту для заказа на момент now. Завершённые элементы зависят
// только от сохранённых данных заказа, расчётные смещаются вместе с now.
func (b *Builder) Build(o *model.Order, now time.Time) []Entry {
	created := o.CreatedAt
	steps := []step{
		{milestone: MilestoneCreated, label: "Order Placed", at: &created},
		{milestone: MilestonePaid, label: "Payment Confirmed", at: o.Payment.PaidAt},
		{milestone: MilestoneShipped, label: "Shipped", at: o.Shipment.ShippedAt, lead: b.cfg.ShippingLeadTime},
		{milestone: MilestoneDelivered, label: "Delivered", at: o.Delivery.DeliveredAt, lead: b.cfg.DeliveryLeadTime},
	}

	reached := 0
	for reached < len(steps) && steps[reached].at != nil {
		reached++
	}

	entries := make([]Entry, 0, len(steps)+1)
	for _, s := range steps[:reached] {
		ts := *s.at
		entries = append(entries, Entry{
			Milestone:   s.milestone,
			Label:       s.label,
			Description: completedDescription(s.milestone, o),
			Timestamp:   &ts,
			Completed:   true,
		})
	}

	if o.Cancellation.Cancelled {
		e := Entry{
			Milestone:   MilestoneCancelled,
			Label:       "Cancelled",
			Description: "Your order has been cancelled",
			Completed:   true,
		}
		if o.Cancellation.Reason != "" {
			e.Description += ": " + o.Cancellation.Reason
		}
		if o.Cancellation.CancelledAt != nil {
			ts := *o.Cancellation.CancelledAt
			e.Timestamp = &ts
		}
		return append(entries, e)
	}

	if reached == len(steps) {
		return entries
	}

	// Ожидаемое время текущего этапа не может быть в прошлом.
	cursor := steps[reached-1].at.Add(steps[reached].lead)
	if cursor.Before(now) {
		cursor = now
	}

	current := steps[reached]
	entries = append(entries, Entry{
		Milestone:   current.milestone,
		Label:       current.label,
		Description: inProgressDescription(current.milestone, cursor),
	})

	for _, s := range steps[reached+1:] {
		cursor = cursor.Add(s.lead)
		ts := cursor
		entries = append(entries, Entry{
			Milestone:   s.milestone,
			Label:       s.label,
			Description: "Estimated " + string(s.milestone) + " date",
			Timestamp:   &ts,
			Estimated:   true,
		})
	}

	return entries
}

func completedDescription(m Milestone, o *model.Order) string {
	switch m {
	case MilestoneCreated:
		return "Your order has been placed"
	case MilestonePaid:
		return "Payment has been confirmed"
	case MilestoneShipped:
		t := o.Shipment.Tracking
		switch {
		case t == nil || t.Number == "":
			return "Your order has been shipped"
		case t.Carrier != "":
			return fmt.Sprintf("Shipped with %s, tracking number %s", t.Carrier, t.Number)
		default:
			return "Shipped, tracking number " + t.Number
		}
	default:
		return "Your order has been delivered"
	}
}

func inProgressDescription(m Milestone, expected time.Time) string {
	switch m {
	case MilestonePaid:
		return "Awaiting payment confirmation"
	case MilestoneShipped:
		return "Preparing your order, expected to ship by " + expected.Format("Jan 2, 2006")
	default:
		return "On the way, expected by " + expected.Format("Jan 2, 2006")
	}
}
