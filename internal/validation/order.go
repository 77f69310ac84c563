// Package validation содержит функции валидации входных данных заказа.
package validation

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Motasaith/mern-ecommerce-sub000/internal/model"
)

// ErrEmptyLineItems возвращается для заказа без позиций.
var ErrEmptyLineItems = errors.New("order must have at least one line item")

// LineItems проверяет позиции заказа. Названия могут быть пустыми: их подставляет каталог.
func LineItems(items []model.LineItem) error {
	if len(items) == 0 {
		return ErrEmptyLineItems
	}
	for i, item := range items {
		if strings.TrimSpace(item.ProductRef) == "" {
			return fmt.Errorf("item %d: product reference is required", i+1)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("item %d: quantity must be positive, got %d", i+1, item.Quantity)
		}
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("item %d: unit price cannot be negative", i+1)
		}
		if !wholeCents(item.UnitPrice) {
			return fmt.Errorf("item %d: unit price %s has more than two decimal places", i+1, item.UnitPrice)
		}
	}
	return nil
}

// wholeCents сообщает, что сумма выражается целым числом копеек и сохранится без округления.
func wholeCents(v decimal.Decimal) bool {
	return v.Equal(v.Round(2))
}

// Address проверяет обязательные поля адреса доставки.
func Address(a model.Address) error {
	required := []struct {
		name  string
		value string
	}{
		{"fullName", a.FullName},
		{"street", a.Street},
		{"city", a.City},
		{"postalCode", a.PostalCode},
		{"country", a.Country},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("shipping address: %s is required", f.name)
		}
	}
	return nil
}

// Prices проверяет разбивку стоимости: суммы неотрицательны,
// itemsPrice равен сумме позиций, totalPrice равен itemsPrice + taxPrice + shippingPrice.
func Prices(items []model.LineItem, itemsPrice, taxPrice, shippingPrice, totalPrice decimal.Decimal) error {
	for name, v := range map[string]decimal.Decimal{
		"itemsPrice":    itemsPrice,
		"taxPrice":      taxPrice,
		"shippingPrice": shippingPrice,
		"totalPrice":    totalPrice,
	} {
		if v.IsNegative() {
			return fmt.Errorf("%s cannot be negative", name)
		}
		if !wholeCents(v) {
			return fmt.Errorf("%s %s has more than two decimal places", name, v)
		}
	}

	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Subtotal())
	}
	if !sum.Equal(itemsPrice) {
		return fmt.Errorf("itemsPrice %s does not match line items sum %s", itemsPrice, sum)
	}

	expected := itemsPrice.Add(taxPrice).Add(shippingPrice)
	if !expected.Equal(totalPrice) {
		return fmt.Errorf("totalPrice %s does not match breakdown %s", totalPrice, expected)
	}
	return nil
}

// TrackingURL проверяет, что ссылка отслеживания - абсолютный http(s) адрес.
func TrackingURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("tracking url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("tracking url must be an absolute http(s) url")
	}
	return nil
}
