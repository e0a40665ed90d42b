// Package diagnostics define o coletor de eventos de monitoramento do motor de sincronização
package diagnostics

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/pos-sync-engine/internal/domain"
	"github.com/vfg2006/pos-sync-engine/internal/identity"
)

//go:generate mockgen -source=diagnostics.go -destination=mocks/sink.go -package=mocks

type Kind string

const (
	// KindEmptyAfterReady indica uma coleção pronta porém vazia (sinal de monitoramento, não erro)
	KindEmptyAfterReady Kind = "empty-after-ready"
	// KindPersistenceFailure indica que o cache offline falhou e o motor segue só em memória
	KindPersistenceFailure Kind = "persistence-failure"
	// KindSubscriptionError indica uma queda de conectividade recuperável
	KindSubscriptionError Kind = "subscription-error"
	// KindSubscriptionFatal indica que a assinatura foi encerrada por falha de autorização
	KindSubscriptionFatal Kind = "subscription-fatal"
	// KindDecodeFailure indica um documento que não pôde ser decodificado e foi ignorado
	KindDecodeFailure Kind = "decode-failure"
)

// Event é o evento estruturado aceito pelo Sink
type Event struct {
	ID         string            `json:"id"`
	Kind       Kind              `json:"kind"`
	Collection domain.Collection `json:"collection,omitempty"`
	Principal  string            `json:"principal"`
	Message    string            `json:"message"`
	At         time.Time         `json:"at"`
}

// Sink recebe eventos de diagnóstico
type Sink interface {
	Emit(event Event) error
}

// Emitter entrega eventos ao Sink anotando o principal atual.
// Falhas (erros ou panics) do Sink nunca são propagadas ao chamador.
type Emitter struct {
	sink     Sink
	identity identity.Provider
}

func NewEmitter(sink Sink, provider identity.Provider) *Emitter {
	if provider == nil {
		provider = identity.Static("")
	}
	return &Emitter{sink: sink, identity: provider}
}

func (e *Emitter) Emit(kind Kind, collection domain.Collection, message string) {
	if e == nil || e.sink == nil {
		return
	}

	event := Event{
		ID:         uuid.New().String(),
		Kind:       kind,
		Collection: collection,
		Principal:  e.identity.Principal(),
		Message:    message,
		At:         time.Now(),
	}

	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"kind":       kind,
				"collection": collection,
				"panic":      r,
			}).Error("Panic no coletor de diagnósticos ignorado")
		}
	}()

	if err := e.sink.Emit(event); err != nil {
		logrus.WithFields(logrus.Fields{
			"kind":       kind,
			"collection": collection,
		}).WithError(err).Warn("Falha ao entregar evento de diagnóstico")
	}
}
