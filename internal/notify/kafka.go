package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// publishBatchTimeout ограничивает ожидание пачки: диспетчер пишет по одному
// событию, и без него каждая запись ждала бы секундный таймаут kafka-go.
const publishBatchTimeout = 10 * time.Millisecond

// KafkaPublisher публикует события заказов в топик Kafka, ключ сообщения - идентификатор заказа.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// ParseBrokers разбирает список брокеров, перечисленных через запятую.
func ParseBrokers(csv string) []string {
	brokers := []string{}
	for _, b := range strings.Split(csv, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// NewKafkaPublisher создаёт издателя событий для указанных брокеров и топика.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchSize:    1,
			BatchTimeout: publishBatchTimeout,
		},
	}
}

// PublishEvent сериализует событие в JSON и отправляет его в топик.
func (p *KafkaPublisher) PublishEvent(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := kafka.Message{Key: []byte(e.OrderID), Value: data, Time: time.Now().UTC()}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// Close закрывает соединения с брокером.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
