package validation

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Motasaith/mern-ecommerce-sub000/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestLineItems(t *testing.T) {
	tests := []struct {
		name  string
		items []model.LineItem
		valid bool
	}{
		{
			name:  "valid",
			items: []model.LineItem{{ProductRef: "p1", Quantity: 2, UnitPrice: dec("10")}},
			valid: true,
		},
		{
			name:  "empty",
			items: nil,
			valid: false,
		},
		{
			name:  "zero quantity",
			items: []model.LineItem{{ProductRef: "p1", Quantity: 0, UnitPrice: dec("10")}},
			valid: false,
		},
		{
			name:  "negative price",
			items: []model.LineItem{{ProductRef: "p1", Quantity: 1, UnitPrice: dec("-1")}},
			valid: false,
		},
		{
			name:  "sub-cent price",
			items: []model.LineItem{{ProductRef: "p1", Quantity: 3, UnitPrice: dec("0.333")}},
			valid: false,
		},
		{
			name:  "trailing zeros",
			items: []model.LineItem{{ProductRef: "p1", Quantity: 1, UnitPrice: dec("1.500")}},
			valid: true,
		},
		{
			name:  "missing product",
			items: []model.LineItem{{Quantity: 1, UnitPrice: dec("1")}},
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := LineItems(tt.items)
			if (err == nil) != tt.valid {
				t.Fatalf("LineItems() error = %v, want valid %v", err, tt.valid)
			}
		})
	}
}

func TestLineItems_EmptySentinel(t *testing.T) {
	if err := LineItems(nil); !errors.Is(err, ErrEmptyLineItems) {
		t.Fatalf("expected ErrEmptyLineItems, got %v", err)
	}
}

func TestAddress(t *testing.T) {
	ok := model.Address{FullName: "A", Street: "S", City: "C", PostalCode: "1", Country: "X"}
	if err := Address(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	missing := ok
	missing.City = "  "
	if err := Address(missing); err == nil {
		t.Fatalf("expected error for blank city")
	}
}

func TestPrices(t *testing.T) {
	items := []model.LineItem{
		{ProductRef: "a", Quantity: 2, UnitPrice: dec("10")},
		{ProductRef: "b", Quantity: 1, UnitPrice: dec("5")},
	}

	if err := Prices(items, dec("25"), dec("2"), dec("3"), dec("30")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Prices(items, dec("25"), dec("2"), dec("3"), dec("31")); err == nil {
		t.Fatalf("expected total mismatch error")
	}
	if err := Prices(items, dec("24"), dec("2"), dec("4"), dec("30")); err == nil {
		t.Fatalf("expected items mismatch error")
	}
	if err := Prices(items, dec("25"), dec("-2"), dec("7"), dec("30")); err == nil {
		t.Fatalf("expected negative tax error")
	}
}

func TestPrices_SubCentAmounts(t *testing.T) {
	items := []model.LineItem{{ProductRef: "a", Quantity: 3, UnitPrice: dec("0.333")}}
	if err := Prices(items, dec("0.999"), dec("0"), dec("0"), dec("0.999")); err == nil {
		t.Fatalf("expected error for amounts below one cent")
	}

	items = []model.LineItem{{ProductRef: "a", Quantity: 1, UnitPrice: dec("1")}}
	if err := Prices(items, dec("1"), dec("0.005"), dec("0"), dec("1.005")); err == nil {
		t.Fatalf("expected error for sub-cent tax")
	}
	if err := Prices(items, dec("1.00"), dec("0.10"), dec("0"), dec("1.10")); err != nil {
		t.Fatalf("unexpected error for whole cents: %v", err)
	}
}

func TestTrackingURL(t *testing.T) {
	tests := []struct {
		raw   string
		valid bool
	}{
		{"", true},
		{"https://carrier.example/track?n=1", true},
		{"ftp://carrier.example", false},
		{"/relative", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			err := TrackingURL(tt.raw)
			if (err == nil) != tt.valid {
				t.Fatalf("TrackingURL(%q) error = %v, want valid %v", tt.raw, err, tt.valid)
			}
		})
	}
}
