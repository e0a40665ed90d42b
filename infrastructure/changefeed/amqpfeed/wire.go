package amqpfeed

import (
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/vfg2006/pos-sync-engine/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrWrongCollection = errors.New("lote de outra coleção")
	ErrEmptyBatch      = errors.New("lote incremental sem deltas")
)

// message é o formato das mensagens publicadas pela ponte do armazenamento remoto
type message struct {
	Collection domain.Collection `json:"collection"`
	Full       bool              `json:"full"`
	Deltas     []domain.Delta    `json:"deltas"`
}

// syncRequest pede à ponte o estado completo da coleção na fila de resposta
type syncRequest struct {
	Collection domain.Collection `json:"collection"`
	ReplyTo    string            `json:"reply_to"`
	RequestID  string            `json:"request_id"`
}

func decodeBatch(collection domain.Collection, body []byte, receivedAt time.Time) (domain.Batch, error) {
	var msg message
	if err := json.Unmarshal(body, &msg); err != nil {
		return domain.Batch{}, fmt.Errorf("erro ao decodificar lote: %w", err)
	}
	if msg.Collection != collection {
		return domain.Batch{}, fmt.Errorf("%w: esperado %s, recebido %s", ErrWrongCollection, collection, msg.Collection)
	}
	if !msg.Full && len(msg.Deltas) == 0 {
		return domain.Batch{}, ErrEmptyBatch
	}
	return domain.Batch{
		Collection: collection,
		Deltas:     msg.Deltas,
		Full:       msg.Full,
		ReceivedAt: receivedAt,
	}, nil
}

// classify decide a classificação do erro na fronteira do transporte.
// Recusa de acesso (inclui credenciais inválidas) é fatal; o resto é perda de conectividade.
func classify(err error) *domain.SubscriptionError {
	var amqpErr *amqp.Error
	if !errors.As(err, &amqpErr) {
		return domain.NewRecoverableError("unavailable", err)
	}

	switch {
	case amqpErr == amqp.ErrCredentials || amqpErr == amqp.ErrSASL:
		return domain.NewFatalError("unauthenticated", err)
	case amqpErr.Code == amqp.AccessRefused || amqpErr.Code == amqp.NotAllowed:
		return domain.NewFatalError("permission-denied", err)
	}
	return domain.NewRecoverableError(fmt.Sprintf("amqp-%d", amqpErr.Code), err)
}

// EncodeBatch serializa um lote no formato da ponte; usado pelo script de carga
func EncodeBatch(collection domain.Collection, full bool, deltas []domain.Delta) ([]byte, error) {
	if !collection.Valid() {
		return nil, fmt.Errorf("coleção desconhecida: %s", collection)
	}
	if deltas == nil {
		deltas = []domain.Delta{}
	}
	return json.Marshal(message{Collection: collection, Full: full, Deltas: deltas})
}
