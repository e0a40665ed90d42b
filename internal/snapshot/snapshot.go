// Package snapshot mantém a projeção em memória de cada coleção e o reconciliador que a atualiza.
// O Reconciler é o único escritor; todos os demais componentes apenas leem.
package snapshot

import (
	"iter"
	"maps"
	"slices"
	"time"

	"github.com/vfg2006/pos-sync-engine/internal/domain"
)

// Status resume o estado de uma coleção para os consumidores
type Status string

const (
	// StatusLoading indica que o primeiro lote ainda não chegou (pode haver dados semeados do cache)
	StatusLoading Status = "loading"
	// StatusReady indica uma coleção pronta e com registros
	StatusReady Status = "ready"
	// StatusEmpty indica uma coleção pronta e legitimamente vazia
	StatusEmpty Status = "empty"
	// StatusStale indica dados antigos servidos durante uma falha recuperável de conectividade
	StatusStale Status = "stale"
	// StatusFailed indica assinatura encerrada por erro fatal; os dados estão congelados
	StatusFailed Status = "failed"
)

// View é a visão não tipada de um snapshot, usada pelo broker e pela API de debug
type View interface {
	Collection() domain.Collection
	Ready() bool
	LastError() *domain.SubscriptionError
	Version() uint64
	UpdatedAt() time.Time
	Len() int
	Status() Status
	Elements() any
}

// Snapshot é um retrato imutável de uma coleção.
// O mapa interno nunca é alterado depois de publicado.
type Snapshot[T any] struct {
	collection domain.Collection
	records    map[string]T
	ready      bool
	lastError  *domain.SubscriptionError
	version    uint64
	updatedAt  time.Time
}

func newSnapshot[T any](collection domain.Collection) *Snapshot[T] {
	return &Snapshot[T]{
		collection: collection,
		records:    map[string]T{},
	}
}

func (s *Snapshot[T]) Collection() domain.Collection { return s.collection }

func (s *Snapshot[T]) Get(id string) (T, bool) {
	v, ok := s.records[id]
	return v, ok
}

// Values retorna uma sequência finita e reiniciável sobre os registros deste snapshot
func (s *Snapshot[T]) Values() iter.Seq[T] {
	records := s.records
	return func(yield func(T) bool) {
		for _, v := range records {
			if !yield(v) {
				return
			}
		}
	}
}

// All retorna pares (id, registro) deste snapshot
func (s *Snapshot[T]) All() iter.Seq2[string, T] {
	return maps.All(s.records)
}

// List retorna os registros ordenados por ID
func (s *Snapshot[T]) List() []T {
	ids := slices.Sorted(maps.Keys(s.records))
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.records[id])
	}
	return out
}

func (s *Snapshot[T]) Elements() any { return s.List() }

func (s *Snapshot[T]) Len() int { return len(s.records) }

func (s *Snapshot[T]) Ready() bool { return s.ready }

func (s *Snapshot[T]) LastError() *domain.SubscriptionError { return s.lastError }

func (s *Snapshot[T]) Version() uint64 { return s.version }

func (s *Snapshot[T]) UpdatedAt() time.Time { return s.updatedAt }

func (s *Snapshot[T]) Status() Status {
	switch {
	case s.lastError != nil && s.lastError.Fatal():
		return StatusFailed
	case s.lastError != nil:
		return StatusStale
	case !s.ready:
		return StatusLoading
	case len(s.records) == 0:
		return StatusEmpty
	default:
		return StatusReady
	}
}

func (s *Snapshot[T]) frozen() bool {
	return s.lastError != nil && s.lastError.Fatal()
}

// next cria o sucessor deste snapshot. Com copyRecords o mapa é clonado para receber mutações.
func (s *Snapshot[T]) next(copyRecords bool) *Snapshot[T] {
	n := *s
	if copyRecords {
		n.records = maps.Clone(s.records)
		if n.records == nil {
			n.records = map[string]T{}
		}
	}
	n.version = s.version + 1
	n.updatedAt = time.Now()
	return &n
}

// As converte uma View para o snapshot tipado
func As[T any](v View) (*Snapshot[T], bool) {
	s, ok := v.(*Snapshot[T])
	return s, ok
}
