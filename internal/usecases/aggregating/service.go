package aggregating

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/vfg2006/pos-sync-engine/internal/domain"
	"github.com/vfg2006/pos-sync-engine/internal/snapshot"
)

type Kind string

const (
	KindRevenueTotal      Kind = "revenue-total"
	KindStatusHistogram   Kind = "status-histogram"
	KindRevenueByDay      Kind = "revenue-by-day"
	KindRevenueByCategory Kind = "revenue-by-category"
	KindRevenueByProduct  Kind = "revenue-by-product"
	KindRevenueInRange    Kind = "revenue-in-range"
	KindSummary           Kind = "summary"
)

// Params são os parâmetros opcionais de Aggregate
type Params struct {
	Days int       // janela de RevenueByDay; zero usa o padrão configurado
	From time.Time // início de RevenueInRange
	To   time.Time // fim de RevenueInRange (inclusive)
}

// Aggregator calcula agregados sobre o estado atual do Store
type Aggregator interface {
	Aggregate(kind Kind, params Params) (any, error)
	RevenueTotal() (decimal.Decimal, error)
	StatusHistogram() (map[domain.OrderStatus]int, error)
	RevenueByDay(days int) ([]domain.DayRevenue, error)
	RevenueByCategory() ([]domain.GroupRevenue, error)
	RevenueByProduct() ([]domain.GroupRevenue, error)
	RevenueInRange(from, to time.Time) (decimal.Decimal, error)
	Summary() (*domain.DashboardSummary, error)
	Location() *time.Location
}

type Service struct {
	store        *snapshot.Store
	dayWindow    int
	maxDayWindow int
	location     *time.Location
	now          func() time.Time
}

func NewService(store *snapshot.Store, dayWindow int, location *time.Location) *Service {
	if dayWindow <= 0 {
		dayWindow = DefaultDayWindow
	}
	if location == nil {
		location = time.UTC
	}
	return &Service{
		store:        store,
		dayWindow:    dayWindow,
		maxDayWindow: max(MaxDayWindow, dayWindow),
		location:     location,
		now:          time.Now,
	}
}

// WithMaxDayWindow limita o parâmetro days de RevenueByDay; valores não positivos mantêm o teto atual
func (s *Service) WithMaxDayWindow(limit int) *Service {
	if limit > 0 {
		s.maxDayWindow = max(limit, s.dayWindow)
	}
	return s
}

// WithClock troca o relógio usado pela janela diária
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Location() *time.Location { return s.location }

// pair lê um par instantâneo e consistente (pedidos, produtos)
func (s *Service) pair() (*snapshot.Snapshot[domain.Order], *snapshot.Snapshot[domain.Product]) {
	return s.store.Orders.Snapshot(), s.store.Products.Snapshot()
}

func (s *Service) RevenueTotal() (decimal.Decimal, error) {
	orders, products := s.pair()
	return RevenueTotal(orders.Values(), products)
}

func (s *Service) StatusHistogram() (map[domain.OrderStatus]int, error) {
	orders, _ := s.pair()
	return StatusHistogram(orders.Values())
}

func (s *Service) RevenueByDay(days int) ([]domain.DayRevenue, error) {
	if days == 0 {
		days = s.dayWindow
	}
	orders, products := s.pair()
	return RevenueByDay(orders.Values(), products, DayWindow{
		Days:     days,
		Max:      s.maxDayWindow,
		Now:      s.now(),
		Location: s.location,
	})
}

func (s *Service) RevenueByCategory() ([]domain.GroupRevenue, error) {
	orders, products := s.pair()
	return RevenueByCategory(orders.Values(), products)
}

func (s *Service) RevenueByProduct() ([]domain.GroupRevenue, error) {
	orders, products := s.pair()
	return RevenueByProduct(orders.Values(), products)
}

func (s *Service) RevenueInRange(from, to time.Time) (decimal.Decimal, error) {
	orders, products := s.pair()
	return RevenueInRange(orders.Values(), products, from, to)
}

// Summary reúne os contadores do dashboard
func (s *Service) Summary() (*domain.DashboardSummary, error) {
	orders, products := s.pair()

	histogram, err := StatusHistogram(orders.Values())
	if err != nil {
		return nil, err
	}

	revenue, err := RevenueTotal(orders.Values(), products)
	if err != nil {
		return nil, err
	}

	return &domain.DashboardSummary{
		Products:        products.Len(),
		Tables:          s.store.Tables.Snapshot().Len(),
		Orders:          orders.Len(),
		CompletedOrders: histogram[domain.OrderStatusCompleted],
		Revenue:         revenue,
		GeneratedAt:     s.now(),
	}, nil
}

func (s *Service) Aggregate(kind Kind, params Params) (any, error) {
	switch kind {
	case KindRevenueTotal:
		return s.RevenueTotal()
	case KindStatusHistogram:
		return s.StatusHistogram()
	case KindRevenueByDay:
		return s.RevenueByDay(params.Days)
	case KindRevenueByCategory:
		return s.RevenueByCategory()
	case KindRevenueByProduct:
		return s.RevenueByProduct()
	case KindRevenueInRange:
		return s.RevenueInRange(params.From, params.To)
	case KindSummary:
		return s.Summary()
	}
	return nil, ErrUnknownKind
}
