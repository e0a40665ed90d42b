package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DayRevenue é um balde da janela diária de receita
type DayRevenue struct {
	Date    string          `json:"date"` // Formato yyyy-mm-dd no fuso de referência
	Revenue decimal.Decimal `json:"revenue"`
}

// GroupRevenue é o total de receita e unidades de um produto ou categoria
type GroupRevenue struct {
	Key     string          `json:"key"`
	Label   string          `json:"label"`
	Revenue decimal.Decimal `json:"revenue"`
	Units   int             `json:"units"`
}

type DashboardSummary struct {
	Products        int             `json:"products"`
	Tables          int             `json:"tables"`
	Orders          int             `json:"orders"`
	CompletedOrders int             `json:"completed_orders"`
	Revenue         decimal.Decimal `json:"revenue"`
	GeneratedAt     time.Time       `json:"generated_at"`
}
