// Package broker multiplexa o Store para vários consumidores mantendo no máximo
// uma assinatura remota por coleção, controlada por contagem de referências.
package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/pos-sync-engine/infrastructure/changefeed"
	"github.com/vfg2006/pos-sync-engine/internal/domain"
	"github.com/vfg2006/pos-sync-engine/internal/snapshot"
)

var (
	ErrClosed            = errors.New("broker encerrado")
	ErrUnknownCollection = errors.New("coleção desconhecida")
	ErrNotRegistered     = errors.New("nenhum interesse registrado para a coleção")
)

// Listener recebe o snapshot atual de uma coleção
type Listener func(view snapshot.View)

// WritePath abre e fecha o caminho de escrita do cache offline por coleção.
// Acquire e Release são contados por referência: o Release de uma assinatura encerrada
// não pode fechar o caminho aberto pela assinatura seguinte.
type WritePath interface {
	Acquire(collection domain.Collection)
	Release(collection domain.Collection)
}

type Broker struct {
	subscriber changefeed.Subscriber
	writePath  WritePath
	sources    map[domain.Collection]Source

	mu      sync.Mutex
	entries map[domain.Collection]*entry
	closed  bool

	listenersMu sync.RWMutex
	listeners   map[domain.Collection]map[string]Listener
}

type entry struct {
	collection domain.Collection
	refs       int
	feed       changefeed.Feed
	done       chan struct{}

	// applyMu garante que nenhum lote é aplicado depois de stop retornar
	applyMu sync.Mutex
	stopped bool
}

func New(subscriber changefeed.Subscriber, writePath WritePath, sources ...Source) *Broker {
	b := &Broker{
		subscriber: subscriber,
		writePath:  writePath,
		sources:    make(map[domain.Collection]Source, len(sources)),
		entries:    map[domain.Collection]*entry{},
		listeners:  map[domain.Collection]map[string]Listener{},
	}
	for _, s := range sources {
		b.sources[s.Collection()] = s
	}
	return b
}

// RegisterInterest incrementa o interesse na coleção e abre a assinatura no primeiro registro
func (b *Broker) RegisterInterest(ctx context.Context, collection domain.Collection) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	src, ok := b.sources[collection]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}

	if e, ok := b.entries[collection]; ok {
		e.refs++
		return nil
	}

	if b.writePath != nil {
		b.writePath.Acquire(collection)
	}

	feed, err := b.subscriber.Subscribe(ctx, collection)
	if err != nil {
		if b.writePath != nil {
			b.writePath.Release(collection)
		}
		return fmt.Errorf("erro ao assinar %s: %w", collection, err)
	}

	e := &entry{
		collection: collection,
		refs:       1,
		feed:       feed,
		done:       make(chan struct{}),
	}
	b.entries[collection] = e
	go b.pump(e, src)

	logrus.WithField("collection", collection).Info("Assinatura de coleção aberta")
	return nil
}

// ReleaseInterest decrementa o interesse; no zero a assinatura é encerrada e
// nenhum lote adicional é reconciliado para a coleção.
func (b *Broker) ReleaseInterest(collection domain.Collection) error {
	b.mu.Lock()
	e, ok := b.entries[collection]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotRegistered, collection)
	}
	e.refs--
	if e.refs > 0 {
		b.mu.Unlock()
		return nil
	}
	delete(b.entries, collection)
	b.mu.Unlock()

	b.stop(e)
	logrus.WithField("collection", collection).Info("Assinatura de coleção encerrada")
	return nil
}

// Interest retorna a contagem de referências atual da coleção
func (b *Broker) Interest(collection domain.Collection) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.entries[collection]; ok {
		return e.refs
	}
	return 0
}

// OnSnapshotChange registra um listener. Ele recebe o snapshot atual de forma síncrona
// e depois é notificado a cada aplicação do reconciliador. cancel é idempotente.
func (b *Broker) OnSnapshotChange(collection domain.Collection, listener Listener) (cancel func(), err error) {
	src, ok := b.sources[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	b.listenersMu.Lock()
	if b.listeners[collection] == nil {
		b.listeners[collection] = map[string]Listener{}
	}
	b.listeners[collection][id] = listener
	b.listenersMu.Unlock()

	b.call(collection, listener, src.View())

	var once sync.Once
	return func() {
		once.Do(func() {
			b.listenersMu.Lock()
			delete(b.listeners[collection], id)
			b.listenersMu.Unlock()
		})
	}, nil
}

// Close encerra todas as assinaturas e espera as goroutines de reconciliação
func (b *Broker) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	entries := make([]*entry, 0, len(b.entries))
	for c, e := range b.entries {
		entries = append(entries, e)
		delete(b.entries, c)
	}
	b.mu.Unlock()

	for _, e := range entries {
		b.stop(e)
		<-e.done
	}
}

func (b *Broker) stop(e *entry) {
	e.applyMu.Lock()
	e.stopped = true
	e.applyMu.Unlock()

	e.feed.Unsubscribe()
	if b.writePath != nil {
		b.writePath.Release(e.collection)
	}
}

// pump aplica os eventos de uma coleção na ordem de chegada, um de cada vez
func (b *Broker) pump(e *entry, src Source) {
	defer close(e.done)

	for ev := range e.feed.Events() {
		e.applyMu.Lock()
		if e.stopped {
			e.applyMu.Unlock()
			return
		}

		var view snapshot.View
		switch {
		case ev.Batch != nil:
			view = src.Apply(*ev.Batch)
		case ev.Err != nil:
			view = src.Fail(ev.Err)
		}
		e.applyMu.Unlock()

		if view != nil {
			b.notify(e.collection, view)
		}
	}
}

func (b *Broker) notify(collection domain.Collection, view snapshot.View) {
	b.listenersMu.RLock()
	listeners := make([]Listener, 0, len(b.listeners[collection]))
	for _, l := range b.listeners[collection] {
		listeners = append(listeners, l)
	}
	b.listenersMu.RUnlock()

	for _, l := range listeners {
		b.call(collection, l, view)
	}
}

func (b *Broker) call(collection domain.Collection, listener Listener, view snapshot.View) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"collection": collection,
				"panic":      r,
			}).Error("Panic em listener de snapshot ignorado")
		}
	}()
	listener(view)
}
