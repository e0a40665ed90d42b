// Package engine monta o motor de sincronização e agregação: uma instância explícita,
// com inicialização e encerramento definidos, sem estado global.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/pos-sync-engine/infrastructure/changefeed"
	"github.com/vfg2006/pos-sync-engine/infrastructure/repository"
	"github.com/vfg2006/pos-sync-engine/internal/broker"
	"github.com/vfg2006/pos-sync-engine/internal/diagnostics"
	"github.com/vfg2006/pos-sync-engine/internal/domain"
	"github.com/vfg2006/pos-sync-engine/internal/durability"
	"github.com/vfg2006/pos-sync-engine/internal/identity"
	"github.com/vfg2006/pos-sync-engine/internal/snapshot"
	"github.com/vfg2006/pos-sync-engine/internal/usecases/aggregating"
)

// Deps são as dependências injetadas no motor
type Deps struct {
	Subscriber changefeed.Subscriber
	// Cache nil desativa o cache offline
	Cache    repository.SnapshotCacheRepository
	Sink     diagnostics.Sink
	Identity identity.Provider

	DayWindow int
	// MaxDayWindow limita o parâmetro days dos consumidores; zero usa o teto padrão
	MaxDayWindow int
	Location     *time.Location
	// Clock substitui time.Now na janela diária
	Clock func() time.Time

	// Collections com interesse registrado pelo próprio motor em Start; vazio = todas
	Collections []domain.Collection
}

type Engine struct {
	store      *snapshot.Store
	emitter    *diagnostics.Emitter
	persister  *durability.Persister
	broker     *broker.Broker
	aggregator *aggregating.Service

	tables   *snapshot.Reconciler[domain.Table]
	products *snapshot.Reconciler[domain.Product]
	orders   *snapshot.Reconciler[domain.Order]

	collections []domain.Collection

	mu      sync.Mutex
	started bool
	closed  bool
}

func New(deps Deps) *Engine {
	store := snapshot.NewStore()
	emitter := diagnostics.NewEmitter(deps.Sink, deps.Identity)
	persister := durability.NewPersister(deps.Cache, emitter)

	tables := snapshot.NewReconciler(store.Tables, snapshot.DecodeTable, func(t domain.Table) string { return t.ID }, emitter, persister)
	products := snapshot.NewReconciler(store.Products, snapshot.DecodeProduct, func(p domain.Product) string { return p.ID }, emitter, persister)
	orders := snapshot.NewReconciler(store.Orders, snapshot.DecodeOrder, func(o domain.Order) string { return o.ID }, emitter, persister)

	collections := deps.Collections
	if len(collections) == 0 {
		collections = domain.Collections()
	}

	aggregator := aggregating.NewService(store, deps.DayWindow, deps.Location)
	aggregator.WithMaxDayWindow(deps.MaxDayWindow)
	if deps.Clock != nil {
		aggregator.WithClock(deps.Clock)
	}

	return &Engine{
		store:      store,
		emitter:    emitter,
		persister:  persister,
		aggregator: aggregator,
		broker: broker.New(deps.Subscriber, persister,
			broker.SourceOf(tables),
			broker.SourceOf(products),
			broker.SourceOf(orders),
		),
		tables:      tables,
		products:    products,
		orders:      orders,
		collections: collections,
	}
}

// Start semeia o Store a partir do cache offline e só então abre as assinaturas
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return nil
	}

	seeded := map[domain.Collection]bool{
		domain.CollectionTables:   durability.Seed(ctx, e.persister, e.tables),
		domain.CollectionProducts: durability.Seed(ctx, e.persister, e.products),
		domain.CollectionOrders:   durability.Seed(ctx, e.persister, e.orders),
	}

	for i, collection := range e.collections {
		if err := e.broker.RegisterInterest(ctx, collection); err != nil {
			for _, registered := range e.collections[:i] {
				_ = e.broker.ReleaseInterest(registered)
			}
			return err
		}
	}

	e.started = true
	logrus.WithFields(logrus.Fields{
		"collections": e.collections,
		"cache":       e.persister.Enabled(),
		"seeded":      seeded,
	}).Info("Motor de sincronização iniciado")

	return nil
}

// Close encerra as assinaturas e espera as gravações pendentes do cache
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	e.broker.Close()
	e.persister.Close()
	logrus.Info("Motor de sincronização encerrado")
}

func (e *Engine) Store() *snapshot.Store { return e.store }

func (e *Engine) Broker() *broker.Broker { return e.broker }

func (e *Engine) Aggregator() aggregating.Aggregator { return e.aggregator }

func (e *Engine) Persister() *durability.Persister { return e.persister }

// OnNewOrder registra um gancho para pedidos novos recebidos em lotes incrementais
func (e *Engine) OnNewOrder(hook func(domain.Order)) {
	e.orders.OnAdded(hook)
}

func (e *Engine) RegisterInterest(ctx context.Context, collection domain.Collection) error {
	return e.broker.RegisterInterest(ctx, collection)
}

func (e *Engine) ReleaseInterest(collection domain.Collection) error {
	return e.broker.ReleaseInterest(collection)
}

func (e *Engine) OnSnapshotChange(collection domain.Collection, listener broker.Listener) (func(), error) {
	return e.broker.OnSnapshotChange(collection, listener)
}

// Aggregate calcula um agregado sobre um par instantâneo e consistente (pedidos, produtos)
func (e *Engine) Aggregate(kind aggregating.Kind, params aggregating.Params) (any, error) {
	return e.aggregator.Aggregate(kind, params)
}

// View retorna o snapshot atual de uma coleção
func (e *Engine) View(collection domain.Collection) (snapshot.View, bool) {
	return e.store.View(collection)
}
