// Package changefeed define a assinatura de mudanças de uma coleção remota como um fluxo de eventos cancelável.
package changefeed

import (
	"context"
	"sync"

	"github.com/vfg2006/pos-sync-engine/internal/domain"
)

// DefaultBuffer é a capacidade padrão do canal de eventos de uma assinatura
const DefaultBuffer = 64

// Event carrega exatamente um entre Batch e Err
type Event struct {
	Batch *domain.Batch
	Err   *domain.SubscriptionError
}

// Feed é uma assinatura ativa. O canal de eventos é fechado após Unsubscribe ou após um erro fatal.
type Feed interface {
	Events() <-chan Event
	// Unsubscribe pode ser chamado várias vezes, inclusive depois de um erro
	Unsubscribe()
}

// Subscriber abre assinaturas de mudanças por coleção
type Subscriber interface {
	Subscribe(ctx context.Context, collection domain.Collection) (Feed, error)
}

// Stream é a implementação de Feed compartilhada pelos transportes.
// O produtor chama Send/Fail; o consumidor lê Events e chama Unsubscribe.
type Stream struct {
	collection domain.Collection
	events     chan Event
	done       chan struct{}

	mu     sync.RWMutex
	closed bool

	stopOnce sync.Once
	onStop   func()
}

func NewStream(collection domain.Collection, buffer int, onStop func()) *Stream {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Stream{
		collection: collection,
		events:     make(chan Event, buffer),
		done:       make(chan struct{}),
		onStop:     onStop,
	}
}

func (s *Stream) Collection() domain.Collection { return s.collection }

func (s *Stream) Events() <-chan Event { return s.events }

// Done é fechado quando a assinatura termina
func (s *Stream) Done() <-chan struct{} { return s.done }

// Send entrega um evento na ordem de chegada. Retorna false se a assinatura já terminou.
func (s *Stream) Send(ev Event) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}

	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

// SendBatch entrega um lote de deltas
func (s *Stream) SendBatch(batch domain.Batch) bool {
	return s.Send(Event{Batch: &batch})
}

// Fail entrega um erro classificado. Um erro fatal encerra a assinatura depois de entregue.
func (s *Stream) Fail(err *domain.SubscriptionError) bool {
	if err == nil {
		return false
	}
	ok := s.Send(Event{Err: err})
	if err.Fatal() {
		s.Unsubscribe()
	}
	return ok
}

func (s *Stream) Unsubscribe() {
	s.stopOnce.Do(func() {
		close(s.done)

		s.mu.Lock()
		s.closed = true
		close(s.events)
		s.mu.Unlock()

		if s.onStop != nil {
			s.onStop()
		}
	})
}
