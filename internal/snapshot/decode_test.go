package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/pos-sync-engine/internal/domain"
)

func TestDecodeOrder_FormatosDeTimestamp(t *testing.T) {
	expected := time.Date(2026, 10, 18, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		createdAt string
		expected  time.Time
		wantErr   bool
	}{
		{name: "Texto RFC3339", createdAt: `"2026-10-18T15:30:00Z"`, expected: expected},
		{name: "Objeto seconds/nanoseconds", createdAt: `{"seconds":1792337400,"nanoseconds":0}`, expected: expected},
		{name: "Epoch em milissegundos", createdAt: `1792337400000`, expected: expected},
		{name: "Ausente", createdAt: `null`, expected: time.Time{}},
		{name: "Texto inválido", createdAt: `"ontem"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := []byte(`{"tableId":"T1","items":[],"status":"completed","createdAt":` + tt.createdAt + `}`)
			order, err := DecodeOrder("O1", doc)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTime)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(order.CreatedAt), "esperado %s, obtido %s", tt.expected, order.CreatedAt)
			assert.Equal(t, "O1", order.ID)
		})
	}
}

func TestDecodeOrder_StatusDesconhecidoNaoEhRejeitado(t *testing.T) {
	order, err := DecodeOrder("O1", []byte(`{"tableId":"T1","items":[{"productId":"P1","quantity":2}],"status":"refunded"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatus("refunded"), order.Status)
	assert.False(t, order.Status.Valid())
}

func TestDecodeOrder_QuantidadeInvalida(t *testing.T) {
	_, err := DecodeOrder("O1", []byte(`{"items":[{"productId":"P1","quantity":0}],"status":"pending"}`))
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestDecodeProduct(t *testing.T) {
	product, err := DecodeProduct("P1", []byte(`{"id":"outro","name":"Ramen","price":"12.50","category":"Sopas"}`))
	require.NoError(t, err)
	assert.Equal(t, "P1", product.ID, "o ID vem do delta")
	assert.Equal(t, "12.5", product.Price.String())
	assert.Equal(t, "Sopas", product.CategoryOrDefault())

	product, err = DecodeProduct("P2", []byte(`{"name":"Agua","price":2}`))
	require.NoError(t, err)
	assert.Equal(t, domain.Uncategorized, product.CategoryOrDefault())

	_, err = DecodeProduct("P3", nil)
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestDecodeTable(t *testing.T) {
	table, err := DecodeTable("T1", []byte(`{"number":4,"status":"occupied"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.Table{ID: "T1", Number: 4, Status: domain.TableStatusOccupied}, table)
}

func TestDecodeRecords(t *testing.T) {
	records, err := DecodeRecords[domain.Table]([]byte(`[{"id":"T1","number":1,"status":"available"}]`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "T1", records[0].ID)

	records, err = DecodeRecords[domain.Table](nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}
