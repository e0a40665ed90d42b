package amqpfeed

import (
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/pos-sync-engine/internal/domain"
)

func TestDecodeBatch(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		body     string
		validate func(t *testing.T, batch domain.Batch)
		err      error
	}{
		{
			name: "Lote incremental",
			body: `{"collection":"orders","deltas":[{"type":"added","id":"O1","data":{"status":"pending"}},{"type":"removed","id":"O2"}]}`,
			validate: func(t *testing.T, batch domain.Batch) {
				assert.False(t, batch.Full)
				require.Len(t, batch.Deltas, 2)
				assert.Equal(t, domain.DeltaAdded, batch.Deltas[0].Kind)
				assert.JSONEq(t, `{"status":"pending"}`, string(batch.Deltas[0].Document))
				assert.Equal(t, domain.DeltaRemoved, batch.Deltas[1].Kind)
				assert.Empty(t, batch.Deltas[1].Document)
				assert.Equal(t, now, batch.ReceivedAt)
			},
		},
		{
			name: "Lote completo vazio é válido",
			body: `{"collection":"orders","full":true,"deltas":[]}`,
			validate: func(t *testing.T, batch domain.Batch) {
				assert.True(t, batch.Full)
				assert.Empty(t, batch.Deltas)
			},
		},
		{
			name: "Lote incremental vazio",
			body: `{"collection":"orders","deltas":[]}`,
			err:  ErrEmptyBatch,
		},
		{
			name: "Outra coleção",
			body: `{"collection":"products","full":true,"deltas":[]}`,
			err:  ErrWrongCollection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch, err := decodeBatch(domain.CollectionOrders, []byte(tt.body), now)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			tt.validate(t, batch)
		})
	}

	_, err := decodeBatch(domain.CollectionOrders, []byte(`{`), now)
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
		code  string
	}{
		{name: "Credenciais inválidas", err: amqp.ErrCredentials, fatal: true, code: "unauthenticated"},
		{name: "Sem acesso ao vhost", err: amqp.ErrVhost, fatal: true, code: "permission-denied"},
		{name: "Acesso recusado na fila", err: &amqp.Error{Code: amqp.AccessRefused, Reason: "ACCESS_REFUSED"}, fatal: true, code: "permission-denied"},
		{name: "Conexão forçada a fechar", err: &amqp.Error{Code: amqp.ConnectionForced, Reason: "shutdown"}, code: "amqp-320"},
		{name: "Erro de rede", err: errors.New("dial tcp: connection refused"), code: "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subErr := classify(tt.err)
			assert.Equal(t, tt.fatal, subErr.Fatal())
			assert.Equal(t, tt.code, subErr.Code)
			assert.ErrorIs(t, subErr, tt.err)
		})
	}
}

func TestSyncRoutingKey(t *testing.T) {
	assert.Equal(t, "sync.products", SyncRoutingKey(domain.CollectionProducts))
}

func TestEncodeBatch_VoltaPeloDecode(t *testing.T) {
	body, err := EncodeBatch(domain.CollectionProducts, true, []domain.Delta{
		{Kind: domain.DeltaAdded, ID: "P1", Document: []byte(`{"name":"Taco","price":"10"}`)},
	})
	require.NoError(t, err)

	batch, err := decodeBatch(domain.CollectionProducts, body, time.Now())
	require.NoError(t, err)
	assert.True(t, batch.Full)
	require.Len(t, batch.Deltas, 1)
	assert.Equal(t, "P1", batch.Deltas[0].ID)
	assert.JSONEq(t, `{"name":"Taco","price":"10"}`, string(batch.Deltas[0].Document))

	empty, err := EncodeBatch(domain.CollectionOrders, true, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"collection":"orders","full":true,"deltas":[]}`, string(empty))

	_, err = EncodeBatch("customers", true, nil)
	assert.Error(t, err)
}
