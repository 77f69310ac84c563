package model

import (
	"errors"
	"fmt"
	"time"
)

// State - состояние жизненного цикла заказа.
type State string

const (
	StateCreated   State = "created"
	StatePaid      State = "paid"
	StateShipped   State = "shipped"
	StateDelivered State = "delivered"
	StateCancelled State = "cancelled"
)

// Terminal сообщает, что из состояния больше нет переходов.
func (s State) Terminal() bool {
	return s == StateDelivered || s == StateCancelled
}

// Trigger - действие, переводящее заказ в следующее состояние.
type Trigger string

const (
	TriggerPay     Trigger = "pay"
	TriggerShip    Trigger = "ship"
	TriggerDeliver Trigger = "deliver"
	TriggerCancel  Trigger = "cancel"
)

// ErrInvalidTransition возвращается, если переход не разрешён из текущего состояния.
var ErrInvalidTransition = errors.New("invalid state transition")

var transitions = map[State]map[Trigger]State{
	StateCreated: {
		TriggerPay:    StatePaid,
		TriggerCancel: StateCancelled,
	},
	StatePaid: {
		TriggerShip:   StateShipped,
		TriggerCancel: StateCancelled,
	},
	StateShipped: {
		TriggerDeliver: StateDelivered,
		TriggerCancel:  StateCancelled,
	},
}

// Transition возвращает новое состояние для пары (текущее состояние, действие).
func Transition(current State, trigger Trigger) (State, error) {
	next, ok := transitions[current][trigger]
	if !ok {
		return current, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, trigger, current)
	}
	return next, nil
}

// MarkPaid фиксирует оплату. Повторный вызов для уже оплаченного заказа ничего
// не меняет и возвращает false.
func (o *Order) MarkPaid(result PaymentResult, at time.Time) (bool, error) {
	if o.Payment.Paid {
		return false, nil
	}
	next, err := Transition(o.State, TriggerPay)
	if err != nil {
		return false, err
	}

	at = notBefore(at, o.CreatedAt)
	o.State = next
	o.Payment = PaymentState{Paid: true, PaidAt: &at, Result: &result}
	o.Status = OrderStatusProcessing
	return true, nil
}

// MarkShipped фиксирует отгрузку и, если переданы, данные отслеживания.
func (o *Order) MarkShipped(tracking *TrackingInfo, at time.Time) error {
	next, err := Transition(o.State, TriggerShip)
	if err != nil {
		return err
	}

	at = notBefore(at, o.lastTimestamp())
	o.State = next
	o.Shipment = ShipmentState{Shipped: true, ShippedAt: &at, Tracking: tracking}
	o.Status = OrderStatusShipped
	return nil
}

// MarkDelivered фиксирует доставку.
func (o *Order) MarkDelivered(at time.Time) error {
	next, err := Transition(o.State, TriggerDeliver)
	if err != nil {
		return err
	}

	at = notBefore(at, o.lastTimestamp())
	o.State = next
	o.Delivery = DeliveryState{Delivered: true, DeliveredAt: &at}
	o.Status = OrderStatusDelivered
	return nil
}

// Cancel отменяет заказ, находящийся в нетерминальном состоянии.
func (o *Order) Cancel(reason string, at time.Time) error {
	next, err := Transition(o.State, TriggerCancel)
	if err != nil {
		return err
	}

	at = notBefore(at, o.lastTimestamp())
	o.State = next
	o.Cancellation = CancelState{Cancelled: true, CancelledAt: &at, Reason: reason}
	o.Status = OrderStatusCancelled
	return nil
}

// lastTimestamp возвращает самую позднюю из зафиксированных отметок времени.
func (o *Order) lastTimestamp() time.Time {
	last := o.CreatedAt
	for _, ts := range []*time.Time{o.Payment.PaidAt, o.Shipment.ShippedAt, o.Delivery.DeliveredAt} {
		if ts != nil && ts.After(last) {
			last = *ts
		}
	}
	return last
}

// notBefore не даёт отметкам времени идти назад при расхождении часов.
func notBefore(at, floor time.Time) time.Time {
	if at.Before(floor) {
		return floor
	}
	return at
}
