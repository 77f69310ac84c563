package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Motasaith/mern-ecommerce-sub000/internal/model"
	"github.com/Motasaith/mern-ecommerce-sub000/internal/service"
)

// lineItemRequest принимает количество как в поле quantity, так и в qty.
type lineItemRequest struct {
	ProductRef string
	Name       string
	Quantity   int
	UnitPrice  decimal.Decimal
}

func (li *lineItemRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Product   string          `json:"product"`
		ProductID string          `json:"productId"`
		Name      string          `json:"name"`
		Quantity  *int            `json:"quantity"`
		Qty       *int            `json:"qty"`
		Price     decimal.Decimal `json:"price"`
		UnitPrice decimal.Decimal `json:"unitPrice"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	li.ProductRef = raw.ProductID
	if li.ProductRef == "" {
		li.ProductRef = raw.Product
	}
	li.Name = raw.Name

	switch {
	case raw.Quantity != nil:
		li.Quantity = *raw.Quantity
	case raw.Qty != nil:
		li.Quantity = *raw.Qty
	}

	li.UnitPrice = raw.UnitPrice
	if li.UnitPrice.IsZero() {
		li.UnitPrice = raw.Price
	}
	return nil
}

type createOrderRequest struct {
	OrderItems      []lineItemRequest   `json:"orderItems"`
	ShippingAddress model.Address       `json:"shippingAddress"`
	PaymentMethod   model.PaymentMethod `json:"paymentMethod"`
	ItemsPrice      decimal.Decimal     `json:"itemsPrice"`
	TaxPrice        decimal.Decimal     `json:"taxPrice"`
	ShippingPrice   decimal.Decimal     `json:"shippingPrice"`
	TotalPrice      decimal.Decimal     `json:"totalPrice"`
}

func (req createOrderRequest) toInput() service.CreateOrderInput {
	items := make([]model.LineItem, 0, len(req.OrderItems))
	for _, li := range req.OrderItems {
		items = append(items, model.LineItem{
			ProductRef: li.ProductRef,
			Name:       li.Name,
			Quantity:   li.Quantity,
			UnitPrice:  li.UnitPrice,
		})
	}
	return service.CreateOrderInput{
		LineItems:       items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		ItemsPrice:      req.ItemsPrice,
		TaxPrice:        req.TaxPrice,
		ShippingPrice:   req.ShippingPrice,
		TotalPrice:      req.TotalPrice,
	}
}

// parseFilter читает фильтр заказов из параметров запроса. Даты принимаются
// в формате RFC 3339 или 2006-01-02, интервал полуоткрытый: [from, to).
func parseFilter(r *http.Request) (model.OrderFilter, error) {
	q := r.URL.Query()
	var f model.OrderFilter

	if s := q.Get("status"); s != "" {
		status := model.OrderStatus(s)
		f.Status = &status
	}

	for _, p := range []struct {
		name string
		dst  **time.Time
	}{
		{"from", &f.From},
		{"to", &f.To},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		t, err := parseTime(raw)
		if err != nil {
			return f, fmt.Errorf("invalid %s: %q", p.name, raw)
		}
		*p.dst = &t
	}

	return f, nil
}

func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}
