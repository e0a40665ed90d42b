package snapshot

import (
	"iter"
	"sync/atomic"

	"github.com/vfg2006/pos-sync-engine/internal/domain"
)

// Collection guarda o snapshot atual de uma coleção. Leituras nunca bloqueiam.
type Collection[T any] struct {
	name    domain.Collection
	current atomic.Pointer[Snapshot[T]]
}

func NewCollection[T any](name domain.Collection) *Collection[T] {
	c := &Collection[T]{name: name}
	c.current.Store(newSnapshot[T](name))
	return c
}

func (c *Collection[T]) Name() domain.Collection { return c.name }

// Snapshot retorna o retrato atual; ele permanece válido mesmo após novas aplicações
func (c *Collection[T]) Snapshot() *Snapshot[T] { return c.current.Load() }

func (c *Collection[T]) View() View { return c.current.Load() }

func (c *Collection[T]) Get(id string) (T, bool) { return c.Snapshot().Get(id) }

func (c *Collection[T]) Values() iter.Seq[T] { return c.Snapshot().Values() }

func (c *Collection[T]) Ready() bool { return c.Snapshot().Ready() }

func (c *Collection[T]) LastError() *domain.SubscriptionError { return c.Snapshot().LastError() }

func (c *Collection[T]) publish(s *Snapshot[T]) { c.current.Store(s) }

// Store é a fonte única de verdade lida por todos os consumidores
type Store struct {
	Tables   *Collection[domain.Table]
	Products *Collection[domain.Product]
	Orders   *Collection[domain.Order]
}

func NewStore() *Store {
	return &Store{
		Tables:   NewCollection[domain.Table](domain.CollectionTables),
		Products: NewCollection[domain.Product](domain.CollectionProducts),
		Orders:   NewCollection[domain.Order](domain.CollectionOrders),
	}
}

// View retorna o snapshot atual de uma coleção pelo nome
func (s *Store) View(collection domain.Collection) (View, bool) {
	switch collection {
	case domain.CollectionTables:
		return s.Tables.View(), true
	case domain.CollectionProducts:
		return s.Products.View(), true
	case domain.CollectionOrders:
		return s.Orders.View(), true
	}
	return nil, false
}
