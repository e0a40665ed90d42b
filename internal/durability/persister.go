// Package durability mantém o cache offline: uma cópia persistida de cada coleção
// que sobrevive a reinícios e semeia o Store antes da primeira assinatura.
package durability

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/pos-sync-engine/infrastructure/database/sqldb"
	"github.com/vfg2006/pos-sync-engine/infrastructure/repository"
	"github.com/vfg2006/pos-sync-engine/internal/diagnostics"
	"github.com/vfg2006/pos-sync-engine/internal/domain"
	"github.com/vfg2006/pos-sync-engine/internal/snapshot"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const DefaultWriteTimeout = 5 * time.Second

// Persister grava snapshots em segundo plano, uma goroutine por coleção.
// Gravações pendentes são coalescidas: só o snapshot mais recente é gravado.
type Persister struct {
	repo         repository.SnapshotCacheRepository
	emitter      *diagnostics.Emitter
	writeTimeout time.Duration

	mu      sync.Mutex
	writers map[domain.Collection]*writer
	wg      sync.WaitGroup

	disabled    atomic.Bool
	failureOnce sync.Once
}

type writer struct {
	collection domain.Collection
	refs       int
	pending    chan snapshot.View
	stop       chan struct{}
}

var _ snapshot.Persister = (*Persister)(nil)

// NewPersister cria o cache offline. Com repo nil o motor opera só em memória.
func NewPersister(repo repository.SnapshotCacheRepository, emitter *diagnostics.Emitter) *Persister {
	p := &Persister{
		repo:         repo,
		emitter:      emitter,
		writeTimeout: DefaultWriteTimeout,
		writers:      map[domain.Collection]*writer{},
	}
	if repo == nil {
		p.disabled.Store(true)
	}
	return p
}

// Enabled indica se o cache ainda está gravando (falso após a primeira falha da sessão)
func (p *Persister) Enabled() bool {
	return !p.disabled.Load()
}

// Load lê a cópia persistida de uma coleção. Falhas desativam o cache e retornam nil.
func (p *Persister) Load(ctx context.Context, collection domain.Collection) *domain.CachedSnapshot {
	if p.disabled.Load() {
		return nil
	}

	cached, err := p.repo.Load(ctx, collection)
	if err != nil {
		p.fail(collection, err)
		return nil
	}
	return cached
}

// Acquire abre o caminho de escrita de uma coleção ou soma uma referência ao já aberto.
// Cada Acquire deve ser pareado com um Release.
func (p *Persister) Acquire(collection domain.Collection) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if w, ok := p.writers[collection]; ok {
		w.refs++
		return
	}

	w := &writer{
		collection: collection,
		refs:       1,
		pending:    make(chan snapshot.View, 1),
		stop:       make(chan struct{}),
	}
	p.writers[collection] = w

	p.wg.Add(1)
	go p.loop(w)
}

// Release devolve uma referência; na última o caminho de escrita é fechado e o
// snapshot pendente ainda é gravado
func (p *Persister) Release(collection domain.Collection) {
	p.mu.Lock()
	w, ok := p.writers[collection]
	if !ok {
		p.mu.Unlock()
		return
	}
	w.refs--
	if w.refs > 0 {
		p.mu.Unlock()
		return
	}
	delete(p.writers, collection)
	p.mu.Unlock()

	close(w.stop)
}

// Enqueue agenda a gravação sem bloquear; snapshots de coleções sem caminho de escrita são ignorados
func (p *Persister) Enqueue(view snapshot.View) {
	if p.disabled.Load() {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	w, ok := p.writers[view.Collection()]
	if !ok {
		return
	}

	for {
		select {
		case w.pending <- view:
			return
		default:
		}
		// Descarta o pendente mais antigo
		select {
		case <-w.pending:
		default:
		}
	}
}

// Close fecha todos os caminhos de escrita, independente das referências, e espera as gravações em andamento
func (p *Persister) Close() {
	p.mu.Lock()
	writers := make([]*writer, 0, len(p.writers))
	for c, w := range p.writers {
		writers = append(writers, w)
		delete(p.writers, c)
	}
	p.mu.Unlock()

	for _, w := range writers {
		close(w.stop)
	}
	p.wg.Wait()
}

func (p *Persister) loop(w *writer) {
	defer p.wg.Done()

	for {
		select {
		case view := <-w.pending:
			p.write(view)
		case <-w.stop:
			select {
			case view := <-w.pending:
				p.write(view)
			default:
			}
			return
		}
	}
}

func (p *Persister) write(view snapshot.View) {
	if p.disabled.Load() {
		return
	}

	payload, err := json.Marshal(view.Elements())
	if err != nil {
		p.fail(view.Collection(), err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.writeTimeout)
	defer cancel()

	err = p.repo.Save(ctx, &domain.CachedSnapshot{
		Collection: view.Collection(),
		Payload:    payload,
		Records:    view.Len(),
		Version:    view.Version(),
		UpdatedAt:  view.UpdatedAt(),
	})
	if err != nil {
		p.fail(view.Collection(), err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"collection": view.Collection(),
		"records":    view.Len(),
		"version":    view.Version(),
	}).Debug("Snapshot persistido no cache offline")
}

// fail desativa o cache e emite um único diagnóstico por sessão
func (p *Persister) fail(collection domain.Collection, err error) {
	p.disabled.Store(true)
	p.failureOnce.Do(func() {
		logrus.WithFields(sqldb.ErrorFields(err)).
			WithField("collection", collection).
			WithError(err).
			Error("Falha no cache offline; seguindo apenas em memória")

		p.emitter.Emit(
			diagnostics.KindPersistenceFailure,
			collection,
			fmt.Sprintf("cache offline desativado: %v", err),
		)
	})
}
