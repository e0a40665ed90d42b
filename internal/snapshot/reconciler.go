package snapshot

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/pos-sync-engine/internal/diagnostics"
	"github.com/vfg2006/pos-sync-engine/internal/domain"
)

// Persister recebe cada snapshot aplicado com sucesso. Enqueue não pode bloquear.
type Persister interface {
	Enqueue(view View)
}

// Reconciler aplica lotes de deltas a uma coleção, na ordem de chegada e um de cada vez
type Reconciler[T any] struct {
	collection *Collection[T]
	decode     Decoder[T]
	idOf       func(T) string
	emitter    *diagnostics.Emitter
	persister  Persister
	onAdded    []func(T)

	mu           sync.Mutex
	disconnected bool
}

func NewReconciler[T any](
	collection *Collection[T],
	decode Decoder[T],
	idOf func(T) string,
	emitter *diagnostics.Emitter,
	persister Persister,
) *Reconciler[T] {
	return &Reconciler[T]{
		collection: collection,
		decode:     decode,
		idOf:       idOf,
		emitter:    emitter,
		persister:  persister,
	}
}

func (r *Reconciler[T]) Collection() *Collection[T] { return r.collection }

// OnAdded registra um gancho chamado para registros novos de lotes incrementais.
// Registros do lote completo inicial e reentregas não disparam o gancho.
func (r *Reconciler[T]) OnAdded(hook func(T)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onAdded = append(r.onAdded, hook)
}

// Seed carrega registros do cache offline com ready = false.
// Só tem efeito antes do primeiro lote.
func (r *Reconciler[T]) Seed(records []T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.collection.Snapshot()
	if cur.ready || cur.Len() > 0 {
		return false
	}

	next := cur.next(true)
	for _, rec := range records {
		next.records[r.idOf(rec)] = rec
	}
	r.collection.publish(next)

	logrus.WithFields(logrus.Fields{
		"collection": r.collection.Name(),
		"records":    len(next.records),
	}).Info("Coleção semeada a partir do cache offline")

	return true
}

// Apply aplica um lote e retorna o snapshot resultante
func (r *Reconciler[T]) Apply(batch domain.Batch) *Snapshot[T] {
	r.mu.Lock()

	cur := r.collection.Snapshot()
	if cur.frozen() {
		r.mu.Unlock()
		logrus.WithField("collection", r.collection.Name()).Warn("Lote ignorado: coleção congelada por erro fatal")
		return cur
	}

	next := cur.next(true)
	if batch.Full {
		// Lote completo: registros ausentes foram removidos enquanto não havia assinatura
		next.records = make(map[string]T, len(batch.Deltas))
	}

	var added []T
	var decodeFailures []string
	for _, delta := range batch.Deltas {
		switch delta.Kind {
		case domain.DeltaAdded, domain.DeltaModified:
			rec, err := r.decode(delta.ID, delta.Document)
			if err != nil {
				decodeFailures = append(decodeFailures, err.Error())
				continue
			}
			if _, existed := next.records[delta.ID]; !existed && delta.Kind == domain.DeltaAdded && !batch.Full {
				added = append(added, rec)
			}
			next.records[delta.ID] = rec
		case domain.DeltaRemoved:
			delete(next.records, delta.ID)
		default:
			decodeFailures = append(decodeFailures, fmt.Sprintf("tipo de delta desconhecido %q para %s", delta.Kind, delta.ID))
		}
	}

	next.ready = true
	next.lastError = nil
	r.collection.publish(next)
	r.disconnected = false
	hooks := r.onAdded

	r.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"collection": r.collection.Name(),
		"deltas":     len(batch.Deltas),
		"full":       batch.Full,
		"records":    next.Len(),
		"version":    next.version,
	}).Debug("Lote reconciliado")

	for _, msg := range decodeFailures {
		r.emitter.Emit(diagnostics.KindDecodeFailure, r.collection.Name(), msg)
	}

	if r.persister != nil {
		r.persister.Enqueue(next)
	}

	if next.Len() == 0 {
		r.emitter.Emit(
			diagnostics.KindEmptyAfterReady,
			r.collection.Name(),
			fmt.Sprintf("coleção %s vazia após carga", r.collection.Name()),
		)
	}

	for _, rec := range added {
		for _, hook := range hooks {
			hook(rec)
		}
	}

	return next
}

// Fail registra um erro de transporte. Os dados existentes são preservados e ready não é limpo.
func (r *Reconciler[T]) Fail(subErr *domain.SubscriptionError) *Snapshot[T] {
	if subErr == nil {
		return r.collection.Snapshot()
	}

	r.mu.Lock()

	cur := r.collection.Snapshot()
	if cur.frozen() {
		r.mu.Unlock()
		return cur
	}

	next := cur.next(false)
	next.lastError = subErr
	r.collection.publish(next)

	emitRecoverable := false
	if !subErr.Fatal() && !r.disconnected {
		r.disconnected = true
		emitRecoverable = true
	}

	r.mu.Unlock()

	fields := logrus.Fields{
		"collection": r.collection.Name(),
		"class":      subErr.Class,
		"code":       subErr.Code,
	}

	switch {
	case subErr.Fatal():
		logrus.WithFields(fields).Error("Assinatura encerrada por erro fatal; snapshot congelado")
		r.emitter.Emit(diagnostics.KindSubscriptionFatal, r.collection.Name(), subErr.Error())
	case emitRecoverable:
		logrus.WithFields(fields).Warn("Conectividade perdida; servindo snapshot antigo")
		r.emitter.Emit(diagnostics.KindSubscriptionError, r.collection.Name(), subErr.Error())
	}

	return next
}
