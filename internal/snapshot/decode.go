package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/vfg2006/pos-sync-engine/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrEmptyDocument   = errors.New("documento vazio")
	ErrNegativePrice   = errors.New("preço negativo")
	ErrInvalidQuantity = errors.New("quantidade deve ser positiva")
	ErrInvalidTime     = errors.New("timestamp inválido")
)

// Decoder converte o documento de um delta no registro tipado.
// O ID do documento sempre vem do delta, não do corpo.
type Decoder[T any] func(id string, document []byte) (T, error)

func DecodeTable(id string, document []byte) (domain.Table, error) {
	var table domain.Table
	if len(document) == 0 {
		return table, ErrEmptyDocument
	}
	if err := json.Unmarshal(document, &table); err != nil {
		return table, fmt.Errorf("erro ao decodificar mesa %s: %w", id, err)
	}
	table.ID = id
	return table, nil
}

func DecodeProduct(id string, document []byte) (domain.Product, error) {
	var product domain.Product
	if len(document) == 0 {
		return product, ErrEmptyDocument
	}
	if err := json.Unmarshal(document, &product); err != nil {
		return product, fmt.Errorf("erro ao decodificar produto %s: %w", id, err)
	}
	if product.Price.IsNegative() {
		return product, fmt.Errorf("produto %s: %w", id, ErrNegativePrice)
	}
	product.ID = id
	return product, nil
}

// orderDocument aceita createdAt como texto RFC3339, epoch em milissegundos
// ou objeto {seconds, nanoseconds} do armazenamento remoto
type orderDocument struct {
	TableID   string              `json:"tableId"`
	Items     []domain.OrderItem  `json:"items"`
	Status    domain.OrderStatus  `json:"status"`
	CreatedAt jsoniter.RawMessage `json:"createdAt"`
}

func DecodeOrder(id string, document []byte) (domain.Order, error) {
	var doc orderDocument
	if len(document) == 0 {
		return domain.Order{}, ErrEmptyDocument
	}
	if err := json.Unmarshal(document, &doc); err != nil {
		return domain.Order{}, fmt.Errorf("erro ao decodificar pedido %s: %w", id, err)
	}

	for _, item := range doc.Items {
		if item.Quantity <= 0 {
			return domain.Order{}, fmt.Errorf("pedido %s, produto %s: %w", id, item.ProductID, ErrInvalidQuantity)
		}
	}

	createdAt, err := parseTimestamp(doc.CreatedAt)
	if err != nil {
		return domain.Order{}, fmt.Errorf("pedido %s: %w", id, err)
	}

	// O status não é validado aqui: um status desconhecido deve falhar na agregação
	return domain.Order{
		ID:        id,
		TableID:   doc.TableID,
		Items:     doc.Items,
		Status:    doc.Status,
		CreatedAt: createdAt,
	}, nil
}

func parseTimestamp(raw jsoniter.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidTime, err)
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidTime, err)
		}
		return t, nil
	case '{':
		var ts struct {
			Seconds     int64 `json:"seconds"`
			Nanoseconds int64 `json:"nanoseconds"`
		}
		if err := json.Unmarshal(raw, &ts); err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidTime, err)
		}
		return time.Unix(ts.Seconds, ts.Nanoseconds).UTC(), nil
	default:
		ms, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidTime, err)
		}
		return time.UnixMilli(ms).UTC(), nil
	}
}

// DecodeRecords decodifica a lista de registros persistida pelo cache offline
func DecodeRecords[T any](payload []byte) ([]T, error) {
	var records []T
	if len(payload) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, err
	}
	return records, nil
}
