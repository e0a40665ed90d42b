package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyRevenueReport é o fechamento diário persistido pelo agendador de relatórios
type DailyRevenueReport struct {
	ID              int                 `json:"id"`
	Date            time.Time           `json:"date"`
	Revenue         decimal.Decimal     `json:"revenue"`
	CompletedOrders int                 `json:"completed_orders"`
	StatusHistogram map[OrderStatus]int `json:"status_histogram"`
	ByProduct       []GroupRevenue      `json:"by_product"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}
