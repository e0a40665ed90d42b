package broker

import (
	"github.com/vfg2006/pos-sync-engine/internal/domain"
	"github.com/vfg2006/pos-sync-engine/internal/snapshot"
)

// Source é a visão não tipada de um reconciliador usada pelo broker
type Source interface {
	Collection() domain.Collection
	Apply(batch domain.Batch) snapshot.View
	Fail(err *domain.SubscriptionError) snapshot.View
	View() snapshot.View
}

type reconcilerSource[T any] struct {
	r *snapshot.Reconciler[T]
}

// SourceOf adapta um reconciliador tipado
func SourceOf[T any](r *snapshot.Reconciler[T]) Source {
	return reconcilerSource[T]{r: r}
}

func (s reconcilerSource[T]) Collection() domain.Collection { return s.r.Collection().Name() }

func (s reconcilerSource[T]) Apply(batch domain.Batch) snapshot.View { return s.r.Apply(batch) }

func (s reconcilerSource[T]) Fail(err *domain.SubscriptionError) snapshot.View { return s.r.Fail(err) }

func (s reconcilerSource[T]) View() snapshot.View { return s.r.Collection().View() }
