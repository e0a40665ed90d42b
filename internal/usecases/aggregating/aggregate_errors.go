package aggregating

import (
	"errors"
	"fmt"

	"github.com/vfg2006/pos-sync-engine/internal/domain"
)

var (
	// ErrUnknownStatus indica um pedido com status fora dos quatro conhecidos.
	// A agregação falha em vez de descartar o pedido.
	ErrUnknownStatus = errors.New("status de pedido desconhecido")
	ErrInvalidWindow = errors.New("janela de dias inválida")
	ErrInvalidRange  = errors.New("intervalo de datas inválido")
	ErrUnknownKind   = errors.New("tipo de agregado desconhecido")
)

// UnknownStatusError identifica o pedido que violou o modelo de dados
type UnknownStatusError struct {
	OrderID string
	Status  domain.OrderStatus
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("%s: pedido %s com status %q", ErrUnknownStatus.Error(), e.OrderID, e.Status)
}

func (e *UnknownStatusError) Unwrap() error {
	return ErrUnknownStatus
}

func checkStatus(order domain.Order) error {
	if !order.Status.Valid() {
		return &UnknownStatusError{OrderID: order.ID, Status: order.Status}
	}
	return nil
}
