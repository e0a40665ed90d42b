package durability

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/pos-sync-engine/internal/snapshot"
)

// Seed carrega a cópia persistida de uma coleção no reconciliador, com ready = false
func Seed[T any](ctx context.Context, p *Persister, r *snapshot.Reconciler[T]) bool {
	collection := r.Collection().Name()

	cached := p.Load(ctx, collection)
	if cached == nil {
		return false
	}

	records, err := snapshot.DecodeRecords[T](cached.Payload)
	if err != nil {
		// Cache ilegível é tratado como ausente
		logrus.WithError(err).WithField("collection", collection).Warn("Cache offline ilegível; ignorando")
		return false
	}

	return r.Seed(records)
}
