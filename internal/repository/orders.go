package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/Motasaith/mern-ecommerce-sub000/internal/model"
)

const orderColumns = `id::text, user_id, line_items, shipping_address, payment_method,
	items_price, tax_price, shipping_price, total_price,
	paid, paid_at, payment_result,
	shipped, shipped_at, tracking_number, tracking_carrier, tracking_url,
	delivered, delivered_at,
	cancelled, cancelled_at, cancel_reason,
	state, status, version, created_at`

// lineItemRecord - форма позиции заказа в JSONB, цена хранится в копейках.
type lineItemRecord struct {
	ProductRef string `json:"product_ref"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	UnitPrice  int64  `json:"unit_price"`
}

type rowScanner interface {
	Scan(dest ...any) error
}

// parseOrderID приводит идентификатор к uuid, чтобы сравнение шло по первичному ключу.
func parseOrderID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	return parsed, nil
}

func toCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func fromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}

func encodeLineItems(items []model.LineItem) ([]byte, error) {
	records := make([]lineItemRecord, 0, len(items))
	for _, it := range items {
		records = append(records, lineItemRecord{
			ProductRef: it.ProductRef,
			Name:       it.Name,
			Quantity:   it.Quantity,
			UnitPrice:  toCents(it.UnitPrice),
		})
	}
	return json.Marshal(records)
}

func decodeLineItems(data []byte) ([]model.LineItem, error) {
	var records []lineItemRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	items := make([]model.LineItem, 0, len(records))
	for _, rec := range records {
		items = append(items, model.LineItem{
			ProductRef: rec.ProductRef,
			Name:       rec.Name,
			Quantity:   rec.Quantity,
			UnitPrice:  fromCents(rec.UnitPrice),
		})
	}
	return items, nil
}

func scanOrder(row rowScanner) (*model.Order, error) {
	var (
		o              model.Order
		lineItems      []byte
		address        []byte
		paymentMethod  string
		itemsPrice     int64
		taxPrice       int64
		shippingPrice  int64
		totalPrice     int64
		paymentResult  []byte
		trackingNumber *string
		carrier        *string
		trackingURL    *string
		cancelReason   *string
		state          string
		status         string
	)

	err := row.Scan(
		&o.ID, &o.OwnerID, &lineItems, &address, &paymentMethod,
		&itemsPrice, &taxPrice, &shippingPrice, &totalPrice,
		&o.Payment.Paid, &o.Payment.PaidAt, &paymentResult,
		&o.Shipment.Shipped, &o.Shipment.ShippedAt, &trackingNumber, &carrier, &trackingURL,
		&o.Delivery.Delivered, &o.Delivery.DeliveredAt,
		&o.Cancellation.Cancelled, &o.Cancellation.CancelledAt, &cancelReason,
		&state, &status, &o.Version, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if o.LineItems, err = decodeLineItems(lineItems); err != nil {
		return nil, fmt.Errorf("decode line items: %w", err)
	}
	if err := json.Unmarshal(address, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("decode shipping address: %w", err)
	}
	if paymentResult != nil {
		var res model.PaymentResult
		if err := json.Unmarshal(paymentResult, &res); err != nil {
			return nil, fmt.Errorf("decode payment result: %w", err)
		}
		o.Payment.Result = &res
	}
	if trackingNumber != nil {
		o.Shipment.Tracking = &model.TrackingInfo{Number: *trackingNumber}
		if carrier != nil {
			o.Shipment.Tracking.Carrier = *carrier
		}
		if trackingURL != nil {
			o.Shipment.Tracking.URL = *trackingURL
		}
	}
	if cancelReason != nil {
		o.Cancellation.Reason = *cancelReason
	}

	o.PaymentMethod = model.PaymentMethod(paymentMethod)
	o.ItemsPrice = fromCents(itemsPrice)
	o.TaxPrice = fromCents(taxPrice)
	o.ShippingPrice = fromCents(shippingPrice)
	o.TotalPrice = fromCents(totalPrice)
	o.State = model.State(state)
	o.Status = model.OrderStatus(status)

	return &o, nil
}

func collectOrders(rows pgx.Rows) ([]model.Order, error) {
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

// CreateOrder сохраняет новый заказ.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o *model.Order) error {
	lineItems, err := encodeLineItems(o.LineItems)
	if err != nil {
		return fmt.Errorf("encode line items: %w", err)
	}
	address, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("encode shipping address: %w", err)
	}
	id, err := uuid.Parse(o.ID)
	if err != nil {
		return fmt.Errorf("order id: %w", err)
	}

	return r.withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO orders (id, user_id, line_items, shipping_address, payment_method,
				items_price, tax_price, shipping_price, total_price, state, status, version, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			id, o.OwnerID, lineItems, address, string(o.PaymentMethod),
			toCents(o.ItemsPrice), toCents(o.TaxPrice), toCents(o.ShippingPrice), toCents(o.TotalPrice),
			string(o.State), string(o.Status), o.Version, o.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		return nil
	})
}

// GetOrderByID возвращает заказ по идентификатору.
func (r *PostgresRepository) GetOrderByID(ctx context.Context, id string) (*model.Order, error) {
	orderID, err := parseOrderID(id)
	if err != nil {
		return nil, err
	}

	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// GetOrderByTrackingNumber возвращает заказ по номеру отслеживания отправления.
func (r *PostgresRepository) GetOrderByTrackingNumber(ctx context.Context, number string) (*model.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE tracking_number = $1 ORDER BY created_at DESC LIMIT 1`,
		number,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: tracking %s", ErrOrderNotFound, number)
		}
		return nil, fmt.Errorf("get order by tracking: %w", err)
	}
	return o, nil
}

// ListOrdersByOwner возвращает страницу заказов пользователя и их общее количество.
func (r *PostgresRepository) ListOrdersByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]model.Order, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = $1`, ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+`
		 FROM orders
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		ownerID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("select orders: %w", err)
	}

	orders, err := collectOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListOrders возвращает страницу заказов по фильтру и общее количество подходящих заказов.
func (r *PostgresRepository) ListOrders(ctx context.Context, f model.OrderFilter) ([]model.Order, int64, error) {
	var (
		conds []string
		args  []any
	)
	if f.Status != nil {
		args = append(args, string(*f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		conds = append(conds, fmt.Sprintf("created_at < $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	args = append(args, f.Limit, f.Offset)
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
			orderColumns, where, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("select orders: %w", err)
	}

	orders, err := collectOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateOrderState сохраняет изменяемые поля заказа, только если версия в БД
// совпадает с expectedVersion. При успехе версия заказа увеличивается.
// Обрыв соединения не повторяется: обновление могло примениться, и повтор
// вернул бы ложный конфликт версий.
func (r *PostgresRepository) UpdateOrderState(ctx context.Context, o *model.Order, expectedVersion int64) error {
	orderID, err := parseOrderID(o.ID)
	if err != nil {
		return err
	}

	var paymentResult []byte
	if o.Payment.Result != nil {
		data, err := json.Marshal(o.Payment.Result)
		if err != nil {
			return fmt.Errorf("encode payment result: %w", err)
		}
		paymentResult = data
	}

	var trackingNumber, carrier, trackingURL *string
	if t := o.Shipment.Tracking; t != nil {
		trackingNumber, carrier, trackingURL = &t.Number, &t.Carrier, &t.URL
	}

	var cancelReason *string
	if o.Cancellation.Cancelled {
		cancelReason = &o.Cancellation.Reason
	}

	return r.retryOn(ctx, isRolledBack, func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE orders SET
				paid = $3, paid_at = $4, payment_result = $5,
				shipped = $6, shipped_at = $7, tracking_number = $8, tracking_carrier = $9, tracking_url = $10,
				delivered = $11, delivered_at = $12,
				cancelled = $13, cancelled_at = $14, cancel_reason = $15,
				state = $16, status = $17, version = version + 1
			 WHERE id = $1 AND version = $2`,
			orderID, expectedVersion,
			o.Payment.Paid, o.Payment.PaidAt, paymentResult,
			o.Shipment.Shipped, o.Shipment.ShippedAt, trackingNumber, carrier, trackingURL,
			o.Delivery.Delivered, o.Delivery.DeliveredAt,
			o.Cancellation.Cancelled, o.Cancellation.CancelledAt, cancelReason,
			string(o.State), string(o.Status),
		)
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", ErrVersionConflict, o.ID)
		}
		o.Version = expectedVersion + 1
		return nil
	})
}

// OrderTotals возвращает общее число заказов и выручку по оплаченным заказам.
func (r *PostgresRepository) OrderTotals(ctx context.Context) (int64, decimal.Decimal, error) {
	var (
		count   int64
		revenue int64
	)
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(total_price) FILTER (WHERE paid), 0) FROM orders`,
	).Scan(&count, &revenue)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("order totals: %w", err)
	}
	return count, fromCents(revenue), nil
}

// ListOrdersCreatedBetween возвращает заказы, созданные в полуинтервале [from, to), по возрастанию времени.
func (r *PostgresRepository) ListOrdersCreatedBetween(ctx context.Context, from, to time.Time) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+`
		 FROM orders
		 WHERE created_at >= $1 AND created_at < $2
		 ORDER BY created_at, id`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders in window: %w", err)
	}
	return collectOrders(rows)
}

// ListRecentOrders возвращает последние заказы, начиная с самых новых.
func (r *PostgresRepository) ListRecentOrders(ctx context.Context, limit int) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select recent orders: %w", err)
	}
	return collectOrders(rows)
}
