// Package amqpfeed implementa a assinatura de mudanças sobre uma exchange topic do RabbitMQ.
// Cada assinatura usa uma fila exclusiva ligada à routing key da coleção e pede o estado
// completo à ponte do armazenamento remoto a cada conexão.
package amqpfeed

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/pos-sync-engine/infrastructure/changefeed"
	"github.com/vfg2006/pos-sync-engine/infrastructure/messaging"
	"github.com/vfg2006/pos-sync-engine/internal/domain"
	"github.com/vfg2006/pos-sync-engine/pkg/utils"
)

const DefaultReconnectDelay = 5 * time.Second

type Config struct {
	Messaging      messaging.Config
	Exchange       string
	ReconnectDelay time.Duration
}

type Subscriber struct {
	cfg  Config
	dial func(messaging.Config) (*messaging.Client, error)
}

var _ changefeed.Subscriber = (*Subscriber)(nil)

func NewSubscriber(cfg Config) *Subscriber {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	return &Subscriber{cfg: cfg, dial: messaging.Dial}
}

// Subscribe retorna imediatamente; a conexão é estabelecida em segundo plano e
// falhas de conectividade chegam como erros recuperáveis no canal de eventos.
func (s *Subscriber) Subscribe(ctx context.Context, collection domain.Collection) (changefeed.Feed, error) {
	if !collection.Valid() {
		return nil, fmt.Errorf("coleção desconhecida: %s", collection)
	}

	tag, err := utils.GenerateID()
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	stream := changefeed.NewStream(collection, changefeed.DefaultBuffer, cancel)

	go s.run(runCtx, stream, fmt.Sprintf("pos-sync-%s-%s", collection, tag))

	return stream, nil
}

func (s *Subscriber) run(ctx context.Context, stream *changefeed.Stream, tag string) {
	defer stream.Unsubscribe()

	logger := logrus.WithFields(logrus.Fields{
		"collection": stream.Collection(),
		"consumer":   tag,
		"exchange":   s.cfg.Exchange,
	})

	for attempt := 1; ; attempt++ {
		err := s.session(ctx, stream, tag)
		if ctx.Err() != nil {
			logger.Debug("Assinatura encerrada")
			return
		}

		subErr := classify(err)
		if subErr.Fatal() {
			logger.WithError(err).Error("Acesso recusado pelo broker; assinatura encerrada")
			stream.Fail(subErr)
			return
		}

		logger.WithError(err).WithField("attempt", attempt).Warn("Conexão perdida; reconectando")
		if !stream.Fail(subErr) {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.ReconnectDelay):
		}
	}
}

// session mantém uma conexão até ela cair ou o contexto ser cancelado
func (s *Subscriber) session(ctx context.Context, stream *changefeed.Stream, tag string) error {
	collection := stream.Collection()

	client, err := s.dial(s.cfg.Messaging)
	if err != nil {
		return err
	}
	defer client.Close()

	connClosed := client.NotifyClose()

	ch, err := client.OpenChannel()
	if err != nil {
		return err
	}
	defer ch.Close()
	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))

	if err := ch.ExchangeDeclare(s.cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return err
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return err
	}
	if err := ch.QueueBind(q.Name, string(collection), s.cfg.Exchange, false, nil); err != nil {
		return err
	}

	deliveries, err := ch.Consume(q.Name, tag, true, true, false, false, nil)
	if err != nil {
		return err
	}

	if err := s.requestSync(ctx, client, collection, q.Name, tag); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"collection": collection,
		"queue":      q.Name,
	}).Info("Assinatura de mudanças conectada")

	for {
		select {
		case <-ctx.Done():
			return nil
		case amqpErr := <-connClosed:
			if amqpErr == nil {
				return messaging.ErrConnectionClosed
			}
			return amqpErr
		case amqpErr := <-chClosed:
			if amqpErr == nil {
				return messaging.ErrConnectionClosed
			}
			return amqpErr
		case d, ok := <-deliveries:
			if !ok {
				return messaging.ErrConnectionClosed
			}
			batch, err := decodeBatch(collection, d.Body, time.Now())
			if err != nil {
				logrus.WithError(err).WithField("collection", collection).Warn("Mensagem de mudanças descartada")
				continue
			}
			if !stream.SendBatch(batch) {
				return nil
			}
		}
	}
}

func (s *Subscriber) requestSync(ctx context.Context, client *messaging.Client, collection domain.Collection, replyTo, requestID string) error {
	body, err := json.Marshal(syncRequest{
		Collection: collection,
		ReplyTo:    replyTo,
		RequestID:  requestID,
	})
	if err != nil {
		return err
	}

	return client.Publish(ctx, messaging.Message{
		Exchange: s.cfg.Exchange,
		Key:      SyncRoutingKey(collection),
		Body:     body,
		ReplyTo:  replyTo,
	})
}

// SyncRoutingKey é a routing key dos pedidos de estado completo de uma coleção
func SyncRoutingKey(collection domain.Collection) string {
	return "sync." + string(collection)
}
