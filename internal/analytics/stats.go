// Package analytics вычисляет показатели панели администратора по заказам:
// итоги, рост относительно предыдущего периода, продажи по дням и популярные товары.
package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Motasaith/mern-ecommerce-sub000/internal/model"
)

const day = 24 * time.Hour

var hundred = decimal.NewFromInt(100)

// Totals - итоговые показатели по всем заказам.
type Totals struct {
	TotalOrders   int64           `json:"totalOrders"`
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
	AvgOrderValue decimal.Decimal `json:"avgOrderValue"`
}

// WindowStats - показатели за одно окно.
type WindowStats struct {
	Orders  int64           `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

// DailyBucket - продажи за один календарный день.
type DailyBucket struct {
	Date       string          `json:"date"`
	Revenue    decimal.Decimal `json:"revenue"`
	OrderCount int             `json:"orderCount"`
}

// ProductStat - продажи одного товара.
type ProductStat struct {
	ProductRef    string          `json:"productRef"`
	Name          string          `json:"name"`
	TotalQuantity int             `json:"totalQuantity"`
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
}

// ComputeTotals рассчитывает средний чек; для нуля заказов он равен нулю.
func ComputeTotals(totalOrders int64, paidRevenue decimal.Decimal) Totals {
	t := Totals{
		TotalOrders:   totalOrders,
		TotalRevenue:  paidRevenue,
		AvgOrderValue: decimal.Zero,
	}
	if totalOrders > 0 {
		t.AvgOrderValue = paidRevenue.Div(decimal.NewFromInt(totalOrders)).Round(2)
	}
	return t
}

// Growth возвращает изменение в процентах между текущим и предыдущим окном:
// (recent - previous) / previous * 100, округлённое до двух знаков для отображения
// (1/3 даёт 33.33). Если предыдущее значение нулевое, рост равен 100 при
// ненулевом текущем и 0 иначе.
func Growth(recent, previous decimal.Decimal) float64 {
	if !previous.IsPositive() {
		if recent.IsPositive() {
			return 100
		}
		return 0
	}
	return recent.Sub(previous).Div(previous).Mul(hundred).Round(2).InexactFloat64()
}

// CountGrowth - Growth для счётчиков.
func CountGrowth(recent, previous int64) float64 {
	return Growth(decimal.NewFromInt(recent), decimal.NewFromInt(previous))
}

// SplitWindows считает заказы и выручку по оплаченным заказам для текущего окна
// [now-window, now) и предыдущего [now-2*window, now-window).
func SplitWindows(orders []model.Order, now time.Time, window time.Duration) (recent, previous WindowStats) {
	recentStart := now.Add(-window)
	previousStart := recentStart.Add(-window)
	recent.Revenue, previous.Revenue = decimal.Zero, decimal.Zero

	for i := range orders {
		o := &orders[i]
		var w *WindowStats
		switch {
		case !o.CreatedAt.Before(recentStart) && o.CreatedAt.Before(now):
			w = &recent
		case !o.CreatedAt.Before(previousStart) && o.CreatedAt.Before(recentStart):
			w = &previous
		default:
			continue
		}
		w.Orders++
		if o.Payment.Paid {
			w.Revenue = w.Revenue.Add(o.TotalPrice)
		}
	}
	return recent, previous
}

// DailyWindowStart возвращает начало первого дня окна из days календарных дней, заканчивающегося сегодня.
func DailyWindowStart(now time.Time, days int, loc *time.Location) time.Time {
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return today.AddDate(0, 0, -(days - 1))
}

// DailySeries группирует оплаченные заказы по дню создания в часовом поясе loc.
// Возвращает ровно days корзин по возрастанию даты, дни без продаж заполняются нулями.
func DailySeries(orders []model.Order, now time.Time, days int, loc *time.Location) []DailyBucket {
	if days <= 0 {
		return []DailyBucket{}
	}
	start := DailyWindowStart(now, days, loc)

	buckets := make([]DailyBucket, days)
	index := make(map[string]int, days)
	for i := range buckets {
		date := start.AddDate(0, 0, i).Format(time.DateOnly)
		buckets[i] = DailyBucket{Date: date, Revenue: decimal.Zero}
		index[date] = i
	}

	for i := range orders {
		o := &orders[i]
		if !o.Payment.Paid {
			continue
		}
		idx, ok := index[o.CreatedAt.In(loc).Format(time.DateOnly)]
		if !ok {
			continue
		}
		buckets[idx].Revenue = buckets[idx].Revenue.Add(o.TotalPrice)
		buckets[idx].OrderCount++
	}
	return buckets
}

// TopProducts суммирует позиции всех переданных заказов независимо от оплаты и
// возвращает не более limit товаров по убыванию количества; при равенстве - по ProductRef.
func TopProducts(orders []model.Order, limit int) []ProductStat {
	stats := make(map[string]*ProductStat)
	for i := range orders {
		for _, item := range orders[i].LineItems {
			s, ok := stats[item.ProductRef]
			if !ok {
				s = &ProductStat{ProductRef: item.ProductRef, Name: item.Name, TotalRevenue: decimal.Zero}
				stats[item.ProductRef] = s
			}
			s.TotalQuantity += item.Quantity
			s.TotalRevenue = s.TotalRevenue.Add(item.Subtotal())
		}
	}

	res := make([]ProductStat, 0, len(stats))
	for _, s := range stats {
		res = append(res, *s)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].TotalQuantity != res[j].TotalQuantity {
			return res[i].TotalQuantity > res[j].TotalQuantity
		}
		return res[i].ProductRef < res[j].ProductRef
	})

	if limit >= 0 && len(res) > limit {
		res = res[:limit]
	}
	return res
}

// RecentActivity возвращает не более limit последних заказов с отображаемым статусом.
func RecentActivity(orders []model.Order, limit int) []model.OrderSummary {
	sorted := make([]model.Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	if limit >= 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	res := make([]model.OrderSummary, 0, len(sorted))
	for i := range sorted {
		o := &sorted[i]
		res = append(res, model.OrderSummary{
			ID:         o.ID,
			OwnerID:    o.OwnerID,
			TotalPrice: o.TotalPrice,
			Status:     o.DisplayStatus(),
			CreatedAt:  o.CreatedAt,
		})
	}
	return res
}
