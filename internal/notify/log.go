package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/Motasaith/mern-ecommerce-sub000/internal/model"
)

// LogNotifier пишет уведомления в лог. Используется, когда почтовый сервис не настроен.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier создаёт уведомитель, пишущий в лог.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendOrderConfirmation(_ context.Context, user model.User, order model.Order) error {
	n.logger.Info("order confirmation", zap.String("to", user.Email), zap.String("orderID", order.ID))
	return nil
}

func (n *LogNotifier) SendOrderShipped(_ context.Context, user model.User, order model.Order, tracking *model.TrackingInfo) error {
	fields := []zap.Field{zap.String("to", user.Email), zap.String("orderID", order.ID)}
	if tracking != nil {
		fields = append(fields, zap.String("tracking", tracking.Number), zap.String("carrier", tracking.Carrier))
	}
	n.logger.Info("order shipped", fields...)
	return nil
}

func (n *LogNotifier) SendOrderCancelled(_ context.Context, user model.User, order model.Order) error {
	n.logger.Info("order cancelled", zap.String("to", user.Email), zap.String("orderID", order.ID))
	return nil
}
