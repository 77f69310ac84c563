// Package config содержит логику чтения конфигурации витрины.
package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации витрины.
type Config struct {
	RunAddress         string   `env:"RUN_ADDRESS"`
	DatabaseURI        string   `env:"DATABASE_URI"`
	MailServiceAddress string   `env:"MAIL_SERVICE_ADDRESS"`
	KafkaBrokers       string   `env:"KAFKA_BROKERS"`
	KafkaTopic         string   `env:"KAFKA_TOPIC"`
	AuthSecret         string   `env:"AUTH_SECRET"`
	AdminLogins        []string `env:"ADMIN_LOGINS" envSeparator:","`

	RecentWindow      time.Duration `env:"RECENT_WINDOW"`
	DailyWindow       int           `env:"DAILY_WINDOW"`
	AnalyticsTimezone string        `env:"ANALYTICS_TIMEZONE"`
	QueryTimeout      time.Duration `env:"QUERY_TIMEOUT"`

	ShippingLeadTime time.Duration `env:"SHIPPING_LEAD_TIME"`
	DeliveryLeadTime time.Duration `env:"DELIVERY_LEAD_TIME"`

	NotifyQueueSize int `env:"NOTIFY_QUEUE_SIZE"`

	location *time.Location
}

// Location возвращает часовой пояс для дневной статистики.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	var admins string
	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.MailServiceAddress, "m", "", "mail service address")
	flag.StringVar(&cfg.KafkaBrokers, "k", "", "comma separated Kafka brokers")
	flag.StringVar(&cfg.KafkaTopic, "kafka-topic", "order-events", "Kafka topic for order events")
	flag.StringVar(&cfg.AuthSecret, "secret", "", "auth cookie signing secret")
	flag.StringVar(&admins, "admins", "", "comma separated administrator logins")
	flag.DurationVar(&cfg.RecentWindow, "recent-window", 30*24*time.Hour, "analytics comparison window")
	flag.IntVar(&cfg.DailyWindow, "daily-window", 7, "days in the daily sales series")
	flag.StringVar(&cfg.AnalyticsTimezone, "tz", "UTC", "time zone for daily sales buckets")
	flag.DurationVar(&cfg.QueryTimeout, "query-timeout", 5*time.Second, "dashboard query deadline")
	flag.DurationVar(&cfg.ShippingLeadTime, "shipping-lead", 48*time.Hour, "expected time from payment to shipping")
	flag.DurationVar(&cfg.DeliveryLeadTime, "delivery-lead", 120*time.Hour, "expected time from shipping to delivery")
	flag.IntVar(&cfg.NotifyQueueSize, "notify-queue", 256, "notification queue size")

	flag.Parse()

	cfg.AdminLogins = splitList(admins)

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.RecentWindow <= 0 {
		errs = append(errs, fmt.Errorf("recent window must be positive, got %s", c.RecentWindow))
	}
	if c.DailyWindow <= 0 {
		errs = append(errs, fmt.Errorf("daily window must be positive, got %d", c.DailyWindow))
	}
	if c.QueryTimeout <= 0 {
		errs = append(errs, fmt.Errorf("query timeout must be positive, got %s", c.QueryTimeout))
	}
	if c.ShippingLeadTime < 0 || c.DeliveryLeadTime < 0 {
		errs = append(errs, errors.New("lead times cannot be negative"))
	}

	loc, err := time.LoadLocation(c.AnalyticsTimezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("analytics timezone: %w", err))
	}
	c.location = loc

	return errors.Join(errs...)
}

func splitList(s string) []string {
	var res []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			res = append(res, part)
		}
	}
	return res
}
