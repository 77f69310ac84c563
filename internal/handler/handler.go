// Package handler содержит HTTP-обработчики API витрины.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Motasaith/mern-ecommerce-sub000/internal/analytics"
	"github.com/Motasaith/mern-ecommerce-sub000/internal/middleware"
	"github.com/Motasaith/mern-ecommerce-sub000/internal/model"
	"github.com/Motasaith/mern-ecommerce-sub000/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, login, password, email string) (*model.User, error)
	AuthenticateUser(ctx context.Context, login, password string) (*model.User, error)
	CreateOrder(ctx context.Context, caller service.Caller, in service.CreateOrderInput) (*model.Order, error)
	GetOrder(ctx context.Context, caller service.Caller, id string) (*model.Order, error)
	ListOwnerOrders(ctx context.Context, caller service.Caller, page, limit int) (*service.OrderPage, error)
	ListOrders(ctx context.Context, caller service.Caller, f model.OrderFilter, page int) (*service.OrderPage, error)
	MarkPaid(ctx context.Context, caller service.Caller, id string, result model.PaymentResult) (*model.Order, error)
	MarkShipped(ctx context.Context, caller service.Caller, id string, in service.ShipInput) (*model.Order, error)
	MarkDelivered(ctx context.Context, caller service.Caller, id string) (*model.Order, error)
	CancelOrder(ctx context.Context, caller service.Caller, id, reason string) (*model.Order, error)
	TrackOrder(ctx context.Context, trackingID string) (*service.TrackedOrder, error)
	Dashboard(ctx context.Context, caller service.Caller) (*analytics.Dashboard, error)
}

// Pinger проверяет доступность хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler реализует HTTP-обработчики API витрины.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	metrics        http.Handler
	db             Pinger
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, opts ...Option) *Handler {
	h := &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Option настраивает Handler.
type Option func(*Handler)

// WithMetricsHandler подключает выдачу метрик на /metrics.
func WithMetricsHandler(m http.Handler) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithPinger подключает проверку БД для /healthz.
func WithPinger(p Pinger) Option {
	return func(h *Handler) { h.db = p }
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}

type userResponse struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Email string `json:"email,omitempty"`
	Admin bool   `json:"admin"`
}

func newUserResponse(u *model.User) userResponse {
	return userResponse{ID: u.ID, Login: u.Login, Email: u.Email, Admin: u.Admin}
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if req.Login == "" || req.Password == "" {
		h.writeError(w, http.StatusBadRequest, "login and password are required")
		return
	}

	u, err := h.service.RegisterUser(r.Context(), req.Login, req.Password, req.Email)
	if err != nil {
		h.handleServiceError(w, r, err, "register user error")
		return
	}

	h.authMiddleware.SetAuthCookie(w, middleware.Principal{UserID: u.ID, Admin: u.Admin})
	h.writeJSON(w, http.StatusOK, newUserResponse(u))
}

// Login выполняет аутентификацию пользователя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if req.Login == "" || req.Password == "" {
		h.writeError(w, http.StatusBadRequest, "login and password are required")
		return
	}

	u, err := h.service.AuthenticateUser(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.writeError(w, http.StatusUnauthorized, "invalid login or password")
			return
		}
		h.handleServiceError(w, r, err, "login user error")
		return
	}

	h.authMiddleware.SetAuthCookie(w, middleware.Principal{UserID: u.ID, Admin: u.Admin})
	h.writeJSON(w, http.StatusOK, newUserResponse(u))
}

// CreateOrder оформляет заказ текущего пользователя.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	o, err := h.service.CreateOrder(r.Context(), caller, req.toInput())
	if err != nil {
		h.handleServiceError(w, r, err, "create order error")
		return
	}

	h.writeJSON(w, http.StatusCreated, o)
}

// GetMyOrders возвращает страницу заказов текущего пользователя.
func (h *Handler) GetMyOrders(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	page, limit := pageParams(r)
	res, err := h.service.ListOwnerOrders(r.Context(), caller, page, limit)
	if err != nil {
		h.handleServiceError(w, r, err, "list orders error")
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

// GetOrder возвращает заказ владельцу или администратору.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	o, err := h.service.GetOrder(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err, "get order error")
		return
	}

	h.writeJSON(w, http.StatusOK, o)
}

type payRequest struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	UpdateTime   string `json:"update_time"`
	EmailAddress string `json:"email_address"`
}

// PayOrder фиксирует оплату заказа.
func (h *Handler) PayOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req payRequest
	if err := decodeOptional(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	o, err := h.service.MarkPaid(r.Context(), caller, chi.URLParam(r, "id"), model.PaymentResult{
		ID:           req.ID,
		Status:       req.Status,
		UpdateTime:   req.UpdateTime,
		EmailAddress: req.EmailAddress,
	})
	if err != nil {
		h.handleServiceError(w, r, err, "pay order error")
		return
	}

	h.writeJSON(w, http.StatusOK, o)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// CancelOrder отменяет заказ.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req cancelRequest
	if err := decodeOptional(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	o, err := h.service.CancelOrder(r.Context(), caller, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		h.handleServiceError(w, r, err, "cancel order error")
		return
	}

	h.writeJSON(w, http.StatusOK, o)
}

// TrackOrder возвращает статус заказа и ленту отслеживания по номеру отправления или заказа.
func (h *Handler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.TrackOrder(r.Context(), chi.URLParam(r, "trackingID"))
	if err != nil {
		h.handleServiceError(w, r, err, "track order error")
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

// ListOrders возвращает заказы по фильтру для администратора.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	f, err := parseFilter(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, limit := pageParams(r)
	f.Limit = limit

	res, err := h.service.ListOrders(r.Context(), caller, f, page)
	if err != nil {
		h.handleServiceError(w, r, err, "list admin orders error")
		return
	}

	h.writeJSON(w, http.StatusOK, res)
}

type shipRequest struct {
	TrackingNumber string `json:"trackingNumber"`
	Carrier        string `json:"carrier"`
	TrackingURL    string `json:"trackingUrl"`
}

// ShipOrder отмечает заказ отгруженным.
func (h *Handler) ShipOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req shipRequest
	if err := decodeOptional(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	o, err := h.service.MarkShipped(r.Context(), caller, chi.URLParam(r, "id"), service.ShipInput{
		TrackingNumber: req.TrackingNumber,
		Carrier:        req.Carrier,
		TrackingURL:    req.TrackingURL,
	})
	if err != nil {
		h.handleServiceError(w, r, err, "ship order error")
		return
	}

	h.writeJSON(w, http.StatusOK, o)
}

// DeliverOrder отмечает заказ доставленным.
func (h *Handler) DeliverOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	o, err := h.service.MarkDelivered(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err, "deliver order error")
		return
	}

	h.writeJSON(w, http.StatusOK, o)
}

// Dashboard возвращает показатели панели администратора.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	d, err := h.service.Dashboard(r.Context(), caller)
	if err != nil {
		h.handleServiceError(w, r, err, "dashboard error")
		return
	}

	h.writeJSON(w, http.StatusOK, d)
}

// Health проверяет доступность БД.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			h.writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func callerFromRequest(r *http.Request) (service.Caller, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return service.Caller{}, false
	}
	return service.Caller{UserID: p.UserID, Admin: p.Admin}, true
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return page, limit
}

// decodeOptional разбирает JSON-тело, допуская пустой запрос.
func decodeOptional(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(v)
}

// handleServiceError отображает ошибки сервиса на коды ответа.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrForbidden):
		h.writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrConflict):
		h.writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error(msg, zap.Error(err), zap.String("path", r.URL.Path))
		h.writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}
