package snapshot

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/pos-sync-engine/internal/diagnostics"
	"github.com/vfg2006/pos-sync-engine/internal/domain"
	"github.com/vfg2006/pos-sync-engine/internal/identity"
)

type fakePersister struct {
	views []View
}

func (f *fakePersister) Enqueue(view View) { f.views = append(f.views, view) }

func productID(p domain.Product) string { return p.ID }

func orderID(o domain.Order) string { return o.ID }

func newProductReconciler(t *testing.T) (*Reconciler[domain.Product], *diagnostics.Recorder, *fakePersister) {
	t.Helper()
	recorder := diagnostics.NewRecorder(50)
	persister := &fakePersister{}
	emitter := diagnostics.NewEmitter(recorder, identity.Static("admin@satori.mx"))
	r := NewReconciler(NewCollection[domain.Product](domain.CollectionProducts), DecodeProduct, productID, emitter, persister)
	return r, recorder, persister
}

func productDelta(kind domain.DeltaKind, id string, price string) domain.Delta {
	if kind == domain.DeltaRemoved {
		return domain.Delta{Kind: kind, ID: id}
	}
	return domain.Delta{
		Kind:     kind,
		ID:       id,
		Document: []byte(fmt.Sprintf(`{"name":"Produto %s","price":%s}`, id, price)),
	}
}

func TestReconciler_IdempotenteSobReentrega(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ids := []string{"P1", "P2", "P3", "P4", "P5"}
	kinds := []domain.DeltaKind{domain.DeltaAdded, domain.DeltaModified, domain.DeltaRemoved}

	for round := 0; round < 50; round++ {
		r, _, _ := newProductReconciler(t)
		last := map[string]domain.Delta{}

		var batches []domain.Batch
		for b := 0; b < 1+rng.Intn(6); b++ {
			batch := domain.Batch{Collection: domain.CollectionProducts}
			for d := 0; d < 1+rng.Intn(5); d++ {
				delta := productDelta(kinds[rng.Intn(len(kinds))], ids[rng.Intn(len(ids))], fmt.Sprintf("%d", rng.Intn(100)))
				batch.Deltas = append(batch.Deltas, delta)
				last[delta.ID] = delta
			}
			batches = append(batches, batch)
		}

		for _, batch := range batches {
			r.Apply(batch)
			// O transporte pode reentregar o mesmo lote
			if rng.Intn(2) == 0 {
				r.Apply(batch)
			}
		}

		expected := map[string]string{}
		for id, delta := range last {
			if delta.Kind != domain.DeltaRemoved {
				p, err := DecodeProduct(id, delta.Document)
				require.NoError(t, err)
				expected[id] = p.Price.String()
			}
		}

		got := map[string]string{}
		for id, p := range r.Collection().Snapshot().All() {
			got[id] = p.Price.String()
		}
		assert.Equal(t, expected, got, "rodada %d", round)
	}
}

func TestReconciler_ProntoAposPrimeiroLoteVazio(t *testing.T) {
	r, recorder, persister := newProductReconciler(t)

	assert.Equal(t, StatusLoading, r.Collection().Snapshot().Status())

	snap := r.Apply(domain.Batch{Collection: domain.CollectionProducts})

	assert.True(t, snap.Ready())
	assert.Equal(t, StatusEmpty, snap.Status())
	assert.Len(t, persister.views, 1)

	// Leituras repetidas não geram novos eventos
	for i := 0; i < 3; i++ {
		_ = r.Collection().Snapshot().Status()
		_ = r.Collection().Ready()
	}

	require.Equal(t, 1, recorder.Count(diagnostics.KindEmptyAfterReady))
	event := recorder.Events()[0]
	assert.Equal(t, domain.CollectionProducts, event.Collection)
	assert.Equal(t, "admin@satori.mx", event.Principal)
}

func TestReconciler_FalhaRecuperavelPreservaDados(t *testing.T) {
	r, recorder, _ := newProductReconciler(t)
	r.Apply(domain.Batch{Deltas: []domain.Delta{productDelta(domain.DeltaAdded, "P1", "10")}})

	disconnect := domain.NewRecoverableError("unavailable", errors.New("conexão perdida"))
	r.Fail(disconnect)
	snap := r.Fail(disconnect)

	assert.True(t, snap.Ready())
	assert.Equal(t, StatusStale, snap.Status())
	assert.Equal(t, 1, snap.Len())
	assert.Equal(t, disconnect, snap.LastError())
	assert.Equal(t, 1, recorder.Count(diagnostics.KindSubscriptionError), "um diagnóstico por desconexão")

	snap = r.Apply(domain.Batch{Deltas: []domain.Delta{productDelta(domain.DeltaModified, "P1", "12")}})
	assert.Nil(t, snap.LastError())
	assert.Equal(t, StatusReady, snap.Status())

	r.Fail(disconnect)
	assert.Equal(t, 2, recorder.Count(diagnostics.KindSubscriptionError), "nova desconexão gera novo diagnóstico")
}

func TestReconciler_FalhaFatalCongelaColecao(t *testing.T) {
	r, recorder, _ := newProductReconciler(t)
	r.Apply(domain.Batch{Deltas: []domain.Delta{productDelta(domain.DeltaAdded, "P1", "10")}})

	fatal := domain.NewFatalError("permission-denied", errors.New("sem permissão"))
	snap := r.Fail(fatal)
	assert.Equal(t, StatusFailed, snap.Status())

	snap = r.Apply(domain.Batch{Deltas: []domain.Delta{productDelta(domain.DeltaRemoved, "P1", "")}})
	assert.Equal(t, 1, snap.Len(), "coleção congelada não recebe novos lotes")
	assert.Equal(t, StatusFailed, snap.Status())
	assert.Equal(t, 1, recorder.Count(diagnostics.KindSubscriptionFatal))
	assert.Equal(t, 0, recorder.Count(diagnostics.KindSubscriptionError))
}

func TestReconciler_SeedELoteCompleto(t *testing.T) {
	r, _, _ := newProductReconciler(t)

	seeded := r.Seed([]domain.Product{
		{ID: "P1", Name: "Ramen", Price: decimal.NewFromInt(10)},
		{ID: "P9", Name: "Removido offline", Price: decimal.NewFromInt(5)},
	})
	require.True(t, seeded)

	snap := r.Collection().Snapshot()
	assert.False(t, snap.Ready())
	assert.Equal(t, StatusLoading, snap.Status())
	assert.Equal(t, 2, snap.Len())

	snap = r.Apply(domain.Batch{
		Full:   true,
		Deltas: []domain.Delta{productDelta(domain.DeltaAdded, "P1", "11")},
	})

	assert.True(t, snap.Ready())
	assert.Equal(t, 1, snap.Len())
	_, ok := snap.Get("P9")
	assert.False(t, ok, "registro ausente do lote completo é removido")

	assert.False(t, r.Seed([]domain.Product{{ID: "P2"}}), "seed após o primeiro lote é ignorado")
}

func TestReconciler_FalhaDeDecodificacaoIgnoraDelta(t *testing.T) {
	r, recorder, _ := newProductReconciler(t)

	snap := r.Apply(domain.Batch{Deltas: []domain.Delta{
		productDelta(domain.DeltaAdded, "P1", "10"),
		{Kind: domain.DeltaAdded, ID: "P2", Document: []byte(`{"name":"x","price":-3}`)},
		{Kind: domain.DeltaAdded, ID: "P3", Document: []byte(`{quebrado`)},
		{Kind: "renamed", ID: "P4"},
	}})

	assert.Equal(t, 1, snap.Len())
	assert.Equal(t, 3, recorder.Count(diagnostics.KindDecodeFailure))
}

func TestReconciler_GanchoDeNovosRegistros(t *testing.T) {
	recorder := diagnostics.NewRecorder(10)
	r := NewReconciler(
		NewCollection[domain.Order](domain.CollectionOrders),
		DecodeOrder,
		orderID,
		diagnostics.NewEmitter(recorder, nil),
		nil,
	)

	var notified []string
	r.OnAdded(func(o domain.Order) { notified = append(notified, o.ID) })

	doc := []byte(`{"tableId":"T1","items":[{"productId":"P1","quantity":1}],"status":"pending","createdAt":"2026-10-18T12:00:00Z"}`)

	r.Apply(domain.Batch{Full: true, Deltas: []domain.Delta{{Kind: domain.DeltaAdded, ID: "O1", Document: doc}}})
	r.Apply(domain.Batch{Deltas: []domain.Delta{{Kind: domain.DeltaAdded, ID: "O2", Document: doc}}})
	r.Apply(domain.Batch{Deltas: []domain.Delta{{Kind: domain.DeltaAdded, ID: "O2", Document: doc}}})
	r.Apply(domain.Batch{Deltas: []domain.Delta{{Kind: domain.DeltaModified, ID: "O3", Document: doc}}})

	assert.Equal(t, []string{"O2"}, notified)
}

func TestSnapshot_ValuesNaoEhVisaoViva(t *testing.T) {
	r, _, _ := newProductReconciler(t)
	r.Apply(domain.Batch{Deltas: []domain.Delta{productDelta(domain.DeltaAdded, "P1", "10")}})

	values := r.Collection().Values()
	r.Apply(domain.Batch{Deltas: []domain.Delta{productDelta(domain.DeltaAdded, "P2", "20")}})

	count := func() int {
		n := 0
		for range values {
			n++
		}
		return n
	}

	assert.Equal(t, 1, count())
	assert.Equal(t, 1, count(), "sequência pode ser percorrida de novo")
	assert.Equal(t, 2, r.Collection().Snapshot().Len())
}

func TestSnapshot_VersaoEView(t *testing.T) {
	store := NewStore()
	v, ok := store.View(domain.CollectionOrders)
	require.True(t, ok)
	assert.Equal(t, uint64(0), v.Version())

	_, ok = store.View("usuarios")
	assert.False(t, ok)

	r := NewReconciler(store.Orders, DecodeOrder, orderID, nil, nil)
	r.Apply(domain.Batch{})

	v, _ = store.View(domain.CollectionOrders)
	assert.Equal(t, uint64(1), v.Version())
	assert.WithinDuration(t, time.Now(), v.UpdatedAt(), time.Minute)

	typed, ok := As[domain.Order](v)
	require.True(t, ok)
	assert.True(t, typed.Ready())
}
