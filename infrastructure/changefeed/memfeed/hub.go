// Package memfeed é um transporte de mudanças em processo. Simula o armazenamento remoto:
// guarda os documentos de cada coleção, entrega o estado completo ao assinar e propaga lotes incrementais.
package memfeed

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/pos-sync-engine/infrastructure/changefeed"
	"github.com/vfg2006/pos-sync-engine/internal/domain"
)

type Hub struct {
	// publishMu serializa entregas para manter a ordem de chegada por assinante
	publishMu sync.Mutex

	mu        sync.Mutex
	documents map[domain.Collection]map[string][]byte
	subs      map[domain.Collection]map[string]*changefeed.Stream
	denied    map[domain.Collection]*domain.SubscriptionError
	buffer    int
}

var _ changefeed.Subscriber = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{
		documents: map[domain.Collection]map[string][]byte{},
		subs:      map[domain.Collection]map[string]*changefeed.Stream{},
		denied:    map[domain.Collection]*domain.SubscriptionError{},
		buffer:    changefeed.DefaultBuffer,
	}
}

// Subscribe abre uma assinatura e entrega imediatamente um lote completo com os documentos atuais (possivelmente vazio)
func (h *Hub) Subscribe(ctx context.Context, collection domain.Collection) (changefeed.Feed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.publishMu.Lock()
	defer h.publishMu.Unlock()

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	stream := changefeed.NewStream(collection, h.buffer, func() { h.remove(collection, id) })

	h.mu.Lock()
	if denied, ok := h.denied[collection]; ok {
		h.mu.Unlock()
		stream.Fail(denied)
		return stream, nil
	}
	if h.subs[collection] == nil {
		h.subs[collection] = map[string]*changefeed.Stream{}
	}
	h.subs[collection][id] = stream
	initial := h.fullBatch(collection)
	h.mu.Unlock()

	stream.SendBatch(initial)

	logrus.WithFields(logrus.Fields{
		"collection": collection,
		"subscriber": id,
		"documents":  len(initial.Deltas),
	}).Debug("Assinatura em memória aberta")

	return stream, nil
}

// Publish aplica os deltas ao estado do hub e entrega um lote incremental a todos os assinantes da coleção
func (h *Hub) Publish(collection domain.Collection, deltas ...domain.Delta) {
	h.publishMu.Lock()
	defer h.publishMu.Unlock()

	h.mu.Lock()
	docs := h.documents[collection]
	if docs == nil {
		docs = map[string][]byte{}
		h.documents[collection] = docs
	}
	for _, d := range deltas {
		switch d.Kind {
		case domain.DeltaAdded, domain.DeltaModified:
			docs[d.ID] = slices.Clone(d.Document)
		case domain.DeltaRemoved:
			delete(docs, d.ID)
		}
	}
	streams := h.streams(collection)
	h.mu.Unlock()

	batch := domain.Batch{
		Collection: collection,
		Deltas:     slices.Clone(deltas),
		ReceivedAt: time.Now(),
	}
	for _, s := range streams {
		s.SendBatch(batch)
	}
}

// Redeliver reenvia um lote sem alterar o estado, simulando a entrega "pelo menos uma vez"
func (h *Hub) Redeliver(collection domain.Collection, deltas ...domain.Delta) {
	h.publishMu.Lock()
	defer h.publishMu.Unlock()

	h.mu.Lock()
	streams := h.streams(collection)
	h.mu.Unlock()

	batch := domain.Batch{Collection: collection, Deltas: slices.Clone(deltas), ReceivedAt: time.Now()}
	for _, s := range streams {
		s.SendBatch(batch)
	}
}

// Resync entrega o estado completo atual, como após uma reconexão do transporte
func (h *Hub) Resync(collection domain.Collection) {
	h.publishMu.Lock()
	defer h.publishMu.Unlock()

	h.mu.Lock()
	streams := h.streams(collection)
	batch := h.fullBatch(collection)
	h.mu.Unlock()

	for _, s := range streams {
		s.SendBatch(batch)
	}
}

// Fail entrega um erro a todos os assinantes. Um erro fatal encerra as assinaturas
// e faz com que novas assinaturas da coleção falhem até Allow.
func (h *Hub) Fail(collection domain.Collection, err *domain.SubscriptionError) {
	h.publishMu.Lock()
	defer h.publishMu.Unlock()

	h.mu.Lock()
	if err.Fatal() {
		h.denied[collection] = err
	}
	streams := h.streams(collection)
	h.mu.Unlock()

	for _, s := range streams {
		s.Fail(err)
	}
}

// Allow remove a negação de acesso registrada por um erro fatal
func (h *Hub) Allow(collection domain.Collection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.denied, collection)
}

// Subscribers retorna o número de assinaturas ativas da coleção
func (h *Hub) Subscribers(collection domain.Collection) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[collection])
}

func (h *Hub) remove(collection domain.Collection, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[collection], id)
}

// chamado com h.mu travado
func (h *Hub) streams(collection domain.Collection) []*changefeed.Stream {
	return slices.Collect(maps.Values(h.subs[collection]))
}

// chamado com h.mu travado
func (h *Hub) fullBatch(collection domain.Collection) domain.Batch {
	docs := h.documents[collection]
	batch := domain.Batch{
		Collection: collection,
		Full:       true,
		Deltas:     make([]domain.Delta, 0, len(docs)),
		ReceivedAt: time.Now(),
	}
	for _, id := range slices.Sorted(maps.Keys(docs)) {
		batch.Deltas = append(batch.Deltas, domain.Delta{
			Kind:     domain.DeltaAdded,
			ID:       id,
			Document: slices.Clone(docs[id]),
		})
	}
	return batch
}
