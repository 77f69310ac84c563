package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Motasaith/mern-ecommerce-sub000/internal/metrics"
	"github.com/Motasaith/mern-ecommerce-sub000/internal/model"
)

// NotificationService отправляет письма покупателю.
type NotificationService interface {
	SendOrderConfirmation(ctx context.Context, user model.User, order model.Order) error
	SendOrderShipped(ctx context.Context, user model.User, order model.Order, tracking *model.TrackingInfo) error
	SendOrderCancelled(ctx context.Context, user model.User, order model.Order) error
}

// EventPublisher публикует события во внешний брокер.
type EventPublisher interface {
	PublishEvent(ctx context.Context, e Event) error
}

// UserReader возвращает получателя уведомления.
type UserReader interface {
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

// Dispatcher принимает события через ограниченную очередь и доставляет их в фоне.
// Переполнение очереди или ошибки доставки только логируются.
type Dispatcher struct {
	queue     chan Event
	users     UserReader
	notifier  NotificationService
	publisher EventPublisher
	logger    *zap.Logger
	metrics   *metrics.Metrics
	timeout   time.Duration
}

// Option настраивает Dispatcher.
type Option func(*Dispatcher)

// WithPublisher добавляет публикацию событий в брокер.
func WithPublisher(p EventPublisher) Option {
	return func(d *Dispatcher) { d.publisher = p }
}

// WithMetrics подключает метрики доставки.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithTimeout задаёт ограничение времени на доставку одного события.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = timeout }
}

// NewDispatcher создаёт диспетчер с очередью указанного размера.
func NewDispatcher(queueSize int, users UserReader, notifier NotificationService, logger *zap.Logger, opts ...Option) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	d := &Dispatcher{
		queue:    make(chan Event, queueSize),
		users:    users,
		notifier: notifier,
		logger:   logger,
		timeout:  10 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Publish ставит событие в очередь без блокировки вызывающего.
func (d *Dispatcher) Publish(e Event) {
	select {
	case d.queue <- e:
	default:
		d.metrics.IncDropped()
		d.logger.Warn("notification queue is full, event dropped",
			zap.String("event", string(e.Type)),
			zap.String("orderID", e.OrderID),
		)
	}
}

// Run обрабатывает очередь до отмены контекста, после чего дообрабатывает
// уже принятые события.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return
		case e := <-d.queue:
			d.handle(context.Background(), e)
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case e := <-d.queue:
			d.handle(context.Background(), e)
		default:
			return
		}
	}
}

func (d *Dispatcher) handle(parent context.Context, e Event) {
	ctx, cancel := context.WithTimeout(parent, d.timeout)
	defer cancel()

	if d.publisher != nil {
		if err := d.publisher.PublishEvent(ctx, e); err != nil {
			d.metrics.ObserveNotification(string(e.Type)+".publish", "error")
			d.logger.Error("publish order event error", zap.Error(err),
				zap.String("event", string(e.Type)), zap.String("orderID", e.OrderID))
		}
	}

	if err := d.notify(ctx, e); err != nil {
		d.metrics.ObserveNotification(string(e.Type), "error")
		d.logger.Error("send notification error", zap.Error(err),
			zap.String("event", string(e.Type)), zap.String("orderID", e.OrderID))
		return
	}
	d.metrics.ObserveNotification(string(e.Type), "ok")
}

func (d *Dispatcher) notify(ctx context.Context, e Event) error {
	if d.notifier == nil {
		return nil
	}

	switch e.Type {
	case EventOrderCreated, EventOrderShipped, EventOrderCancelled:
	default:
		return nil
	}

	user, err := d.users.GetUserByID(ctx, e.OwnerID)
	if err != nil {
		return fmt.Errorf("load recipient: %w", err)
	}

	switch e.Type {
	case EventOrderCreated:
		return d.notifier.SendOrderConfirmation(ctx, *user, e.Order)
	case EventOrderShipped:
		return d.notifier.SendOrderShipped(ctx, *user, e.Order, e.Order.Shipment.Tracking)
	default:
		return d.notifier.SendOrderCancelled(ctx, *user, e.Order)
	}
}
