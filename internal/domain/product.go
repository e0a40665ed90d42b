package domain

import "github.com/shopspring/decimal"

// Uncategorized agrupa produtos sem categoria nos relatórios
const Uncategorized = "uncategorized"

type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category,omitempty"`
}

// CategoryOrDefault retorna a categoria do produto ou o grupo "uncategorized"
func (p Product) CategoryOrDefault() string {
	if p.Category == "" {
		return Uncategorized
	}
	return p.Category
}
