// Package aggregating deriva as métricas de negócio a partir dos snapshots de pedidos e produtos.
// Todas as funções são puras: sem estado oculto, sem I/O e sem efeitos colaterais.
package aggregating

import (
	"cmp"
	"iter"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vfg2006/pos-sync-engine/internal/domain"
)

const (
	// DefaultDayWindow é o tamanho padrão da janela de receita diária
	DefaultDayWindow = 7
	// MaxDayWindow é o teto da janela quando nenhum outro é configurado
	MaxDayWindow = 366
)

// ProductCatalog resolve produtos pelo ID. É satisfeito por *snapshot.Snapshot[domain.Product].
type ProductCatalog interface {
	Get(id string) (domain.Product, bool)
}

// DayWindow parametriza RevenueByDay
type DayWindow struct {
	Days     int
	Max      int // zero usa MaxDayWindow
	Now      time.Time
	Location *time.Location
}

// OrderTotal soma quantidade x preço atual de cada item.
// Itens cujo produto não existe mais contribuem com zero.
func OrderTotal(order domain.Order, products ProductCatalog) decimal.Decimal {
	total := decimal.Zero
	for _, item := range order.Items {
		product, ok := products.Get(item.ProductID)
		if !ok {
			continue
		}
		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// RevenueTotal soma os pedidos concluídos
func RevenueTotal(orders iter.Seq[domain.Order], products ProductCatalog) (decimal.Decimal, error) {
	total := decimal.Zero
	for order := range orders {
		if err := checkStatus(order); err != nil {
			return decimal.Zero, err
		}
		if order.Status != domain.OrderStatusCompleted {
			continue
		}
		total = total.Add(OrderTotal(order, products))
	}
	return total, nil
}

// StatusHistogram conta cada pedido exatamente uma vez; as quatro chaves estão sempre presentes
func StatusHistogram(orders iter.Seq[domain.Order]) (map[domain.OrderStatus]int, error) {
	histogram := make(map[domain.OrderStatus]int, 4)
	for _, status := range domain.OrderStatuses() {
		histogram[status] = 0
	}

	for order := range orders {
		if err := checkStatus(order); err != nil {
			return nil, err
		}
		histogram[order.Status]++
	}
	return histogram, nil
}

// RevenueByDay agrupa a receita concluída por data civil no fuso de referência,
// numa janela de N dias terminando em "agora". Dias sem vendas aparecem com zero.
func RevenueByDay(orders iter.Seq[domain.Order], products ProductCatalog, window DayWindow) ([]domain.DayRevenue, error) {
	limit := window.Max
	if limit <= 0 {
		limit = MaxDayWindow
	}
	if window.Days <= 0 || window.Days > limit {
		return nil, ErrInvalidWindow
	}
	loc := window.Location
	if loc == nil {
		loc = time.UTC
	}

	now := window.Now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	buckets := make([]domain.DayRevenue, window.Days)
	index := make(map[string]int, window.Days)
	for i := 0; i < window.Days; i++ {
		day := today.AddDate(0, 0, i-(window.Days-1)).Format(time.DateOnly)
		buckets[i] = domain.DayRevenue{Date: day, Revenue: decimal.Zero}
		index[day] = i
	}

	for order := range orders {
		if err := checkStatus(order); err != nil {
			return nil, err
		}
		if order.Status != domain.OrderStatusCompleted || order.CreatedAt.IsZero() {
			continue
		}
		day := order.CreatedAt.In(loc).Format(time.DateOnly)
		i, ok := index[day]
		if !ok {
			continue
		}
		buckets[i].Revenue = buckets[i].Revenue.Add(OrderTotal(order, products))
	}

	return buckets, nil
}

// RevenueByProduct agrupa receita e unidades concluídas por produto, em ordem decrescente de receita.
// Itens de produtos removidos não formam grupo.
func RevenueByProduct(orders iter.Seq[domain.Order], products ProductCatalog) ([]domain.GroupRevenue, error) {
	return groupRevenue(orders, products, func(p domain.Product) (string, string) {
		return p.ID, p.Name
	})
}

// RevenueByCategory agrupa por categoria; produtos sem categoria vão para "uncategorized"
func RevenueByCategory(orders iter.Seq[domain.Order], products ProductCatalog) ([]domain.GroupRevenue, error) {
	return groupRevenue(orders, products, func(p domain.Product) (string, string) {
		category := p.CategoryOrDefault()
		return category, category
	})
}

func groupRevenue(
	orders iter.Seq[domain.Order],
	products ProductCatalog,
	keyOf func(domain.Product) (key string, label string),
) ([]domain.GroupRevenue, error) {
	groups := map[string]*domain.GroupRevenue{}

	for order := range orders {
		if err := checkStatus(order); err != nil {
			return nil, err
		}
		if order.Status != domain.OrderStatusCompleted {
			continue
		}
		for _, item := range order.Items {
			product, ok := products.Get(item.ProductID)
			if !ok {
				continue
			}
			key, label := keyOf(product)
			g, ok := groups[key]
			if !ok {
				g = &domain.GroupRevenue{Key: key, Label: label, Revenue: decimal.Zero}
				groups[key] = g
			}
			g.Revenue = g.Revenue.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
			g.Units += item.Quantity
		}
	}

	out := make([]domain.GroupRevenue, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	slices.SortFunc(out, func(a, b domain.GroupRevenue) int {
		if c := b.Revenue.Cmp(a.Revenue); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return out, nil
}

// RevenueInRange soma a receita concluída de pedidos criados entre from e to (inclusive, por data)
func RevenueInRange(orders iter.Seq[domain.Order], products ProductCatalog, from, to time.Time) (decimal.Decimal, error) {
	if to.Before(from) {
		return decimal.Zero, ErrInvalidRange
	}
	end := to.AddDate(0, 0, 1)

	total := decimal.Zero
	for order := range orders {
		if err := checkStatus(order); err != nil {
			return decimal.Zero, err
		}
		if order.Status != domain.OrderStatusCompleted {
			continue
		}
		if order.CreatedAt.Before(from) || !order.CreatedAt.Before(end) {
			continue
		}
		total = total.Add(OrderTotal(order, products))
	}
	return total, nil
}
