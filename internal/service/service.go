// Package service реализует бизнес-логику витрины: жизненный цикл заказа,
// отслеживание, учётные записи и доступ к аналитике.
package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Motasaith/mern-ecommerce-sub000/internal/analytics"
	"github.com/Motasaith/mern-ecommerce-sub000/internal/metrics"
	"github.com/Motasaith/mern-ecommerce-sub000/internal/model"
	"github.com/Motasaith/mern-ecommerce-sub000/internal/notify"
	"github.com/Motasaith/mern-ecommerce-sub000/internal/repository"
	"github.com/Motasaith/mern-ecommerce-sub000/internal/tracking"
)

// Ошибки, которые сервис возвращает вызывающему. Исходная причина
// сохраняется в цепочке и доступна через errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	// ErrInvalidCredentials возвращается при неверной паре логин/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	CreateUser(ctx context.Context, u model.User) (int64, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
	CreateOrder(ctx context.Context, o *model.Order) error
	GetOrderByID(ctx context.Context, id string) (*model.Order, error)
	GetOrderByTrackingNumber(ctx context.Context, number string) (*model.Order, error)
	ListOrdersByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]model.Order, int64, error)
	ListOrders(ctx context.Context, f model.OrderFilter) ([]model.Order, int64, error)
	UpdateOrderState(ctx context.Context, o *model.Order, expectedVersion int64) error
}

// CatalogReader возвращает текущее название товара.
type CatalogReader interface {
	ProductName(ctx context.Context, productRef string) (string, error)
}

// EventPublisher принимает доменные события. Publish не должен блокировать.
type EventPublisher interface {
	Publish(e notify.Event)
}

// DashboardProvider рассчитывает показатели панели администратора.
type DashboardProvider interface {
	Dashboard(ctx context.Context) (*analytics.Dashboard, error)
}

// Caller - аутентифицированный инициатор операции.
type Caller struct {
	UserID int64
	Admin  bool
}

// Service содержит бизнес-логику витрины.
type Service struct {
	repo      Repository
	catalog   CatalogReader
	events    EventPublisher
	dashboard DashboardProvider
	timeline  *tracking.Builder
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
	admins    map[string]struct{}
}

// Option настраивает Service.
type Option func(*Service)

// WithCatalog подключает каталог для подстановки названий товаров.
func WithCatalog(c CatalogReader) Option {
	return func(s *Service) { s.catalog = c }
}

// WithEvents подключает публикацию доменных событий.
func WithEvents(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

// WithDashboard подключает расчёт аналитики.
func WithDashboard(d DashboardProvider) Option {
	return func(s *Service) { s.dashboard = d }
}

// WithTimeline задаёт построитель ленты отслеживания.
func WithTimeline(b *tracking.Builder) Option {
	return func(s *Service) { s.timeline = b }
}

// WithMetrics подключает метрики переходов.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithAdmins задаёт логины, получающие права администратора.
func WithAdmins(logins []string) Option {
	return func(s *Service) {
		for _, l := range logins {
			if l = strings.TrimSpace(l); l != "" {
				s.admins[l] = struct{}{}
			}
		}
	}
}

// NewService создаёт сервис с указанным репозиторием.
func NewService(repo Repository, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		logger:   logger,
		now:      time.Now,
		timeline: tracking.NewBuilder(tracking.DefaultConfig()),
		admins:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterUser регистрирует нового пользователя.
func (s *Service) RegisterUser(ctx context.Context, login, password, email string) (*model.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, fmt.Errorf("%w: login and password are required", ErrValidation)
	}

	_, admin := s.admins[login]
	u := model.User{
		Login:        login,
		Email:        strings.TrimSpace(email),
		PasswordHash: hashPassword(login, password),
		Admin:        admin,
		CreatedAt:    s.now().UTC(),
	}

	id, err := s.repo.CreateUser(ctx, u)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, fmt.Errorf("%w: %w", ErrConflict, err)
		}
		return nil, err
	}
	u.ID = id

	s.logger.Info("user registered", zap.Int64("userID", id), zap.Bool("admin", admin))
	return &u, nil
}

// AuthenticateUser проверяет логин и пароль пользователя.
func (s *Service) AuthenticateUser(ctx context.Context, login, password string) (*model.User, error) {
	u, err := s.repo.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	hashed := hashPassword(login, password)
	if subtle.ConstantTimeCompare(hashed, u.PasswordHash) != 1 {
		return nil, ErrInvalidCredentials
	}

	if _, ok := s.admins[u.Login]; ok {
		u.Admin = true
	}
	return u, nil
}

func hashPassword(login, password string) []byte {
	sum := sha256.Sum256([]byte(login + ":" + password))
	return sum[:]
}

// Dashboard возвращает показатели панели администратора.
func (s *Service) Dashboard(ctx context.Context, caller Caller) (*analytics.Dashboard, error) {
	if !caller.Admin {
		return nil, ErrForbidden
	}
	if s.dashboard == nil {
		return nil, errors.New("analytics is not configured")
	}
	return s.dashboard.Dashboard(ctx)
}
