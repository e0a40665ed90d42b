package memfeed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/pos-sync-engine/infrastructure/changefeed"
	"github.com/vfg2006/pos-sync-engine/internal/domain"
)

func next(t *testing.T, feed changefeed.Feed) changefeed.Event {
	t.Helper()
	ev, ok := <-feed.Events()
	require.True(t, ok, "canal de eventos fechado")
	return ev
}

func TestHub_LoteCompletoAoAssinar(t *testing.T) {
	hub := NewHub()
	hub.Publish(domain.CollectionProducts,
		domain.Delta{Kind: domain.DeltaAdded, ID: "P2", Document: []byte(`{"price":2}`)},
		domain.Delta{Kind: domain.DeltaAdded, ID: "P1", Document: []byte(`{"price":1}`)},
		domain.Delta{Kind: domain.DeltaRemoved, ID: "P2"},
	)

	feed, err := hub.Subscribe(context.Background(), domain.CollectionProducts)
	require.NoError(t, err)
	defer feed.Unsubscribe()

	ev := next(t, feed)
	require.NotNil(t, ev.Batch)
	assert.True(t, ev.Batch.Full)
	require.Len(t, ev.Batch.Deltas, 1)
	assert.Equal(t, "P1", ev.Batch.Deltas[0].ID)
}

func TestHub_ColecaoVaziaEntregaLoteVazio(t *testing.T) {
	hub := NewHub()

	feed, err := hub.Subscribe(context.Background(), domain.CollectionOrders)
	require.NoError(t, err)
	defer feed.Unsubscribe()

	ev := next(t, feed)
	require.NotNil(t, ev.Batch)
	assert.True(t, ev.Batch.Full)
	assert.Empty(t, ev.Batch.Deltas)
}

func TestHub_PublishSomenteParaAColecao(t *testing.T) {
	hub := NewHub()
	ctx := context.Background()

	orders, err := hub.Subscribe(ctx, domain.CollectionOrders)
	require.NoError(t, err)
	products, err := hub.Subscribe(ctx, domain.CollectionProducts)
	require.NoError(t, err)
	next(t, orders)
	next(t, products)

	assert.Equal(t, 1, hub.Subscribers(domain.CollectionOrders))
	assert.Equal(t, 1, hub.Subscribers(domain.CollectionProducts))

	products.Unsubscribe()
	assert.Equal(t, 0, hub.Subscribers(domain.CollectionProducts))

	hub.Publish(domain.CollectionOrders, domain.Delta{Kind: domain.DeltaAdded, ID: "O1", Document: []byte(`{}`)})

	ev := next(t, orders)
	require.NotNil(t, ev.Batch)
	assert.False(t, ev.Batch.Full)
	assert.Equal(t, "O1", ev.Batch.Deltas[0].ID)
	orders.Unsubscribe()
}

func TestHub_FalhaFatal(t *testing.T) {
	hub := NewHub()
	ctx := context.Background()

	feed, err := hub.Subscribe(ctx, domain.CollectionTables)
	require.NoError(t, err)
	next(t, feed)

	hub.Fail(domain.CollectionTables, domain.NewFatalError("permission-denied", errors.New("sem permissão")))

	ev := next(t, feed)
	require.NotNil(t, ev.Err)
	assert.True(t, ev.Err.Fatal())
	_, open := <-feed.Events()
	assert.False(t, open)
	assert.Equal(t, 0, hub.Subscribers(domain.CollectionTables))

	// Novas assinaturas falham até o acesso ser liberado
	again, err := hub.Subscribe(ctx, domain.CollectionTables)
	require.NoError(t, err)
	ev = next(t, again)
	require.NotNil(t, ev.Err)
	assert.True(t, ev.Err.Fatal())

	hub.Allow(domain.CollectionTables)
	ok, err := hub.Subscribe(ctx, domain.CollectionTables)
	require.NoError(t, err)
	ev = next(t, ok)
	assert.NotNil(t, ev.Batch)
	ok.Unsubscribe()
}

func TestHub_ContextoCancelado(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHub().Subscribe(ctx, domain.CollectionOrders)
	assert.ErrorIs(t, err, context.Canceled)
}
