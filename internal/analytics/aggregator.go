package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Motasaith/mern-ecommerce-sub000/internal/model"
)

// Store описывает чтение данных, необходимых для расчёта показателей.
type Store interface {
	OrderTotals(ctx context.Context) (int64, decimal.Decimal, error)
	CountUsers(ctx context.Context) (int64, error)
	CountUsersCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
	ListOrdersCreatedBetween(ctx context.Context, from, to time.Time) ([]model.Order, error)
	ListRecentOrders(ctx context.Context, limit int) ([]model.Order, error)
}

// Config задаёт окна и ограничения расчёта.
type Config struct {
	RecentWindow  time.Duration
	DailyDays     int
	Location      *time.Location
	TopLimit      int
	ActivityLimit int
	QueryTimeout  time.Duration
}

// DefaultConfig возвращает окна по умолчанию: 30 дней для сравнения периодов и 7 дней для графика.
func DefaultConfig() Config {
	return Config{
		RecentWindow:  30 * day,
		DailyDays:     7,
		Location:      time.UTC,
		TopLimit:      5,
		ActivityLimit: 10,
		QueryTimeout:  5 * time.Second,
	}
}

// Dashboard - полный набор показателей панели администратора.
type Dashboard struct {
	Totals
	TotalUsers      int64                `json:"totalUsers"`
	RecentOrders    int64                `json:"recentOrders"`
	PreviousOrders  int64                `json:"previousOrders"`
	RecentRevenue   decimal.Decimal      `json:"recentRevenue"`
	PreviousRevenue decimal.Decimal      `json:"previousRevenue"`
	RecentUsers     int64                `json:"recentUsers"`
	PreviousUsers   int64                `json:"previousUsers"`
	OrderGrowth     float64              `json:"orderGrowth"`
	RevenueGrowth   float64              `json:"revenueGrowth"`
	UserGrowth      float64              `json:"userGrowth"`
	DailySales      []DailyBucket        `json:"dailySales"`
	TopProducts     []ProductStat        `json:"topProducts"`
	RecentActivity  []model.OrderSummary `json:"recentActivity"`
	GeneratedAt     time.Time            `json:"generatedAt"`
}

// Aggregator рассчитывает показатели панели по данным хранилища. Только чтение.
type Aggregator struct {
	store  Store
	cfg    Config
	now    func() time.Time
	logger *zap.Logger
}

// Option настраивает Aggregator.
type Option func(*Aggregator)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator создаёт агрегатор.
func NewAggregator(store Store, cfg Config, logger *zap.Logger, opts ...Option) *Aggregator {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	a := &Aggregator{store: store, cfg: cfg, now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Dashboard загружает данные параллельно в пределах QueryTimeout и возвращает
// все показатели сразу либо одну ошибку.
func (a *Aggregator) Dashboard(ctx context.Context) (*Dashboard, error) {
	if a.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.QueryTimeout)
		defer cancel()
	}

	now := a.now()
	recentStart := now.Add(-a.cfg.RecentWindow)
	previousStart := recentStart.Add(-a.cfg.RecentWindow)

	loadFrom := previousStart
	if dailyStart := DailyWindowStart(now, a.cfg.DailyDays, a.cfg.Location); dailyStart.Before(loadFrom) {
		loadFrom = dailyStart
	}

	var (
		totalOrders   int64
		paidRevenue   decimal.Decimal
		totalUsers    int64
		recentUsers   int64
		previousUsers int64
		windowOrders  []model.Order
		latest        []model.Order
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		totalOrders, paidRevenue, err = a.store.OrderTotals(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		totalUsers, err = a.store.CountUsers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		recentUsers, err = a.store.CountUsersCreatedBetween(gctx, recentStart, now)
		return err
	})
	g.Go(func() error {
		var err error
		previousUsers, err = a.store.CountUsersCreatedBetween(gctx, previousStart, recentStart)
		return err
	})
	g.Go(func() error {
		var err error
		windowOrders, err = a.store.ListOrdersCreatedBetween(gctx, loadFrom, now)
		return err
	})
	g.Go(func() error {
		var err error
		latest, err = a.store.ListRecentOrders(gctx, a.cfg.ActivityLimit)
		return err
	})

	if err := g.Wait(); err != nil {
		a.logger.Error("dashboard load error", zap.Error(err))
		return nil, fmt.Errorf("load dashboard data: %w", err)
	}

	recent, previous := SplitWindows(windowOrders, now, a.cfg.RecentWindow)

	var recentOrders []model.Order
	for i := range windowOrders {
		if !windowOrders[i].CreatedAt.Before(recentStart) {
			recentOrders = append(recentOrders, windowOrders[i])
		}
	}

	d := &Dashboard{
		Totals:          ComputeTotals(totalOrders, paidRevenue),
		TotalUsers:      totalUsers,
		RecentOrders:    recent.Orders,
		PreviousOrders:  previous.Orders,
		RecentRevenue:   recent.Revenue,
		PreviousRevenue: previous.Revenue,
		RecentUsers:     recentUsers,
		PreviousUsers:   previousUsers,
		OrderGrowth:     CountGrowth(recent.Orders, previous.Orders),
		RevenueGrowth:   Growth(recent.Revenue, previous.Revenue),
		UserGrowth:      CountGrowth(recentUsers, previousUsers),
		DailySales:      DailySeries(windowOrders, now, a.cfg.DailyDays, a.cfg.Location),
		TopProducts:     TopProducts(recentOrders, a.cfg.TopLimit),
		RecentActivity:  RecentActivity(latest, a.cfg.ActivityLimit),
		GeneratedAt:     now,
	}

	return d, nil
}
