package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Motasaith/mern-ecommerce-sub000/internal/model"
	"github.com/Motasaith/mern-ecommerce-sub000/internal/notify"
	"github.com/Motasaith/mern-ecommerce-sub000/internal/repository"
	"github.com/Motasaith/mern-ecommerce-sub000/internal/tracking"
	"github.com/Motasaith/mern-ecommerce-sub000/internal/validation"
)

// maxUpdateAttempts ограничивает повторы перехода при параллельном изменении заказа.
const maxUpdateAttempts = 3

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// CreateOrderInput - данные для оформления заказа.
type CreateOrderInput struct {
	LineItems       []model.LineItem
	ShippingAddress model.Address
	PaymentMethod   model.PaymentMethod
	ItemsPrice      decimal.Decimal
	TaxPrice        decimal.Decimal
	ShippingPrice   decimal.Decimal
	TotalPrice      decimal.Decimal
}

// ShipInput - данные отгрузки.
type ShipInput struct {
	TrackingNumber string
	Carrier        string
	TrackingURL    string
}

// OrderPage - страница списка заказов.
type OrderPage struct {
	Orders []model.Order `json:"orders"`
	Total  int64         `json:"total"`
	Page   int           `json:"page"`
	Pages  int           `json:"pages"`
}

// TrackedOrder - публичное представление заказа для страницы отслеживания.
// Адрес, владелец и данные платежа сюда не попадают.
type TrackedOrder struct {
	OrderID   string              `json:"orderId"`
	State     model.State         `json:"state"`
	Status    model.OrderStatus   `json:"status"`
	CreatedAt time.Time           `json:"createdAt"`
	Tracking  *model.TrackingInfo `json:"tracking,omitempty"`
	Timeline  []tracking.Entry    `json:"timeline"`
}

// CreateOrder проверяет и сохраняет новый заказ. Уведомление о заказе
// отправляется асинхронно и не влияет на результат.
func (s *Service) CreateOrder(ctx context.Context, caller Caller, in CreateOrderInput) (*model.Order, error) {
	if err := validation.LineItems(in.LineItems); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if err := validation.Address(in.ShippingAddress); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if !in.PaymentMethod.Valid() {
		return nil, fmt.Errorf("%w: unsupported payment method %q", ErrValidation, in.PaymentMethod)
	}
	if err := validation.Prices(in.LineItems, in.ItemsPrice, in.TaxPrice, in.ShippingPrice, in.TotalPrice); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	items, err := s.snapshotNames(ctx, in.LineItems)
	if err != nil {
		return nil, err
	}

	o := &model.Order{
		ID:              uuid.NewString(),
		OwnerID:         caller.UserID,
		LineItems:       items,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		ItemsPrice:      in.ItemsPrice,
		TaxPrice:        in.TaxPrice,
		ShippingPrice:   in.ShippingPrice,
		TotalPrice:      in.TotalPrice,
		State:           model.StateCreated,
		Status:          model.OrderStatusProcessing,
		Version:         1,
		CreatedAt:       s.now().UTC(),
	}

	if err := s.repo.CreateOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.metrics.ObserveTransition("create", "ok")
	s.logger.Info("order created", zap.String("orderID", o.ID), zap.Int64("ownerID", o.OwnerID))
	s.publish(notify.EventOrderCreated, o)
	return o, nil
}

// snapshotNames подставляет недостающие названия товаров из каталога.
func (s *Service) snapshotNames(ctx context.Context, in []model.LineItem) ([]model.LineItem, error) {
	items := make([]model.LineItem, len(in))
	copy(items, in)

	for i := range items {
		items[i].Name = strings.TrimSpace(items[i].Name)
		if items[i].Name != "" {
			continue
		}
		if s.catalog == nil {
			return nil, fmt.Errorf("%w: item %d: name is required", ErrValidation, i+1)
		}
		name, err := s.catalog.ProductName(ctx, items[i].ProductRef)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				return nil, fmt.Errorf("%w: %w", ErrValidation, err)
			}
			return nil, fmt.Errorf("lookup product name: %w", err)
		}
		items[i].Name = name
	}
	return items, nil
}

// MarkPaid фиксирует оплату заказа. Платит владелец, администратор отмечает
// оплату наложенным платежом. Повторная оплата ничего не меняет.
func (s *Service) MarkPaid(ctx context.Context, caller Caller, id string, result model.PaymentResult) (*model.Order, error) {
	return s.transition(ctx, id, model.TriggerPay, ownerOrAdmin(caller),
		func(o *model.Order) (bool, error) {
			return o.MarkPaid(result, s.now().UTC())
		})
}

// MarkShipped фиксирует отгрузку заказа. Только для администратора.
func (s *Service) MarkShipped(ctx context.Context, caller Caller, id string, in ShipInput) (*model.Order, error) {
	if !caller.Admin {
		return nil, ErrForbidden
	}
	if err := validation.TrackingURL(in.TrackingURL); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	var info *model.TrackingInfo
	if number := strings.TrimSpace(in.TrackingNumber); number != "" {
		info = &model.TrackingInfo{
			Number:  number,
			Carrier: strings.TrimSpace(in.Carrier),
			URL:     in.TrackingURL,
		}
	}

	return s.transition(ctx, id, model.TriggerShip, ownerOrAdmin(caller),
		func(o *model.Order) (bool, error) {
			return true, o.MarkShipped(info, s.now().UTC())
		})
}

// MarkDelivered фиксирует доставку заказа. Только для администратора.
func (s *Service) MarkDelivered(ctx context.Context, caller Caller, id string) (*model.Order, error) {
	if !caller.Admin {
		return nil, ErrForbidden
	}
	return s.transition(ctx, id, model.TriggerDeliver, ownerOrAdmin(caller),
		func(o *model.Order) (bool, error) {
			return true, o.MarkDelivered(s.now().UTC())
		})
}

// CancelOrder отменяет заказ. Владелец может отменить заказ до отгрузки,
// администратор - в любом нетерминальном состоянии.
func (s *Service) CancelOrder(ctx context.Context, caller Caller, id, reason string) (*model.Order, error) {
	authorize := func(o *model.Order) error {
		if err := ownerOrAdmin(caller)(o); err != nil {
			return err
		}
		if !caller.Admin && o.State != model.StateCreated && o.State != model.StatePaid {
			return fmt.Errorf("%w: order in state %s can only be cancelled by an administrator", ErrConflict, o.State)
		}
		return nil
	}

	return s.transition(ctx, id, model.TriggerCancel, authorize,
		func(o *model.Order) (bool, error) {
			return true, o.Cancel(strings.TrimSpace(reason), s.now().UTC())
		})
}

func ownerOrAdmin(caller Caller) func(*model.Order) error {
	return func(o *model.Order) error {
		if caller.Admin || o.OwnerID == caller.UserID {
			return nil
		}
		return ErrForbidden
	}
}

// transition загружает заказ, применяет переход и сохраняет результат с проверкой версии.
// При параллельном изменении переход повторяется на свежей копии заказа.
func (s *Service) transition(
	ctx context.Context,
	id string,
	trigger model.Trigger,
	authorize func(*model.Order) error,
	apply func(*model.Order) (bool, error),
) (*model.Order, error) {
	for attempt := 1; ; attempt++ {
		o, err := s.loadOrder(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := authorize(o); err != nil {
			return nil, err
		}

		expected := o.Version
		changed, err := apply(o)
		if err != nil {
			s.metrics.ObserveTransition(string(trigger), "rejected")
			if errors.Is(err, model.ErrInvalidTransition) {
				return nil, fmt.Errorf("%w: %w", ErrConflict, err)
			}
			return nil, err
		}
		if !changed {
			s.metrics.ObserveTransition(string(trigger), "noop")
			return o, nil
		}

		err = s.repo.UpdateOrderState(ctx, o, expected)
		if err == nil {
			s.metrics.ObserveTransition(string(trigger), "ok")
			s.logger.Info("order transition",
				zap.String("orderID", o.ID),
				zap.String("trigger", string(trigger)),
				zap.String("state", string(o.State)),
			)
			s.publish(eventFor(trigger), o)
			return o, nil
		}

		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, fmt.Errorf("update order: %w", err)
		}
		if attempt >= maxUpdateAttempts {
			s.metrics.ObserveTransition(string(trigger), "conflict")
			return nil, fmt.Errorf("%w: %w", ErrConflict, err)
		}
		s.logger.Debug("order version conflict, retrying",
			zap.String("orderID", id), zap.Int("attempt", attempt))
	}
}

func eventFor(trigger model.Trigger) notify.EventType {
	switch trigger {
	case model.TriggerPay:
		return notify.EventOrderPaid
	case model.TriggerShip:
		return notify.EventOrderShipped
	case model.TriggerDeliver:
		return notify.EventOrderDelivered
	default:
		return notify.EventOrderCancelled
	}
}

func (s *Service) publish(t notify.EventType, o *model.Order) {
	if s.events == nil {
		return
	}
	s.events.Publish(notify.NewEvent(t, *o, s.now()))
}

func (s *Service) loadOrder(ctx context.Context, id string) (*model.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, id)
	}
	o, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, fmt.Errorf("load order: %w", err)
	}
	return o, nil
}

// GetOrder возвращает заказ владельцу или администратору.
func (s *Service) GetOrder(ctx context.Context, caller Caller, id string) (*model.Order, error) {
	o, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ownerOrAdmin(caller)(o); err != nil {
		return nil, err
	}
	return o, nil
}

// ListOwnerOrders возвращает страницу заказов вызывающего пользователя.
func (s *Service) ListOwnerOrders(ctx context.Context, caller Caller, page, limit int) (*OrderPage, error) {
	page, limit = normalizePage(page, limit)
	orders, total, err := s.repo.ListOrdersByOwner(ctx, caller.UserID, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return newOrderPage(orders, total, page, limit), nil
}

// ListOrders возвращает страницу заказов по фильтру. Только для администратора.
func (s *Service) ListOrders(ctx context.Context, caller Caller, f model.OrderFilter, page int) (*OrderPage, error) {
	if !caller.Admin {
		return nil, ErrForbidden
	}
	if f.Status != nil && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *f.Status)
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return nil, fmt.Errorf("%w: empty date range", ErrValidation)
	}

	page, f.Limit = normalizePage(page, f.Limit)
	f.Offset = (page - 1) * f.Limit

	orders, total, err := s.repo.ListOrders(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return newOrderPage(orders, total, page, f.Limit), nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

func newOrderPage(orders []model.Order, total int64, page, limit int) *OrderPage {
	if orders == nil {
		orders = []model.Order{}
	}
	return &OrderPage{
		Orders: orders,
		Total:  total,
		Page:   page,
		Pages:  int((total + int64(limit) - 1) / int64(limit)),
	}
}

// TrackOrder ищет заказ по номеру отслеживания, а если такого нет - по
// идентификатору заказа, и строит для него ленту отслеживания.
func (s *Service) TrackOrder(ctx context.Context, trackingID string) (*TrackedOrder, error) {
	trackingID = strings.TrimSpace(trackingID)
	if trackingID == "" {
		return nil, fmt.Errorf("%w: tracking id is required", ErrValidation)
	}

	o, err := s.repo.GetOrderByTrackingNumber(ctx, trackingID)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrOrderNotFound):
		o, err = s.loadOrder(ctx, trackingID)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("find order by tracking: %w", err)
	}

	return &TrackedOrder{
		OrderID:   o.ID,
		State:     o.State,
		Status:    o.Status,
		CreatedAt: o.CreatedAt,
		Tracking:  o.Shipment.Tracking,
		Timeline:  s.timeline.Build(o, s.now().UTC()),
	}, nil
}
