package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// OrderStatuses retorna os quatro status conhecidos na ordem de exibição.
// Nenhuma máquina de estados é imposta: qualquer status pode ser definido a partir de qualquer outro.
func OrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPending,
		OrderStatusInProgress,
		OrderStatusCompleted,
		OrderStatusCancelled,
	}
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusInProgress, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderItem referencia um produto pelo ID. O preço não é copiado para o item:
// ele é resolvido contra o snapshot atual de produtos no momento da agregação.
type OrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type Order struct {
	ID        string      `json:"id"`
	TableID   string      `json:"tableId"`
	Items     []OrderItem `json:"items"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}
