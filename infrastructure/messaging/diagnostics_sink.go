package messaging

import (
	"context"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/pos-sync-engine/internal/diagnostics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrSinkQueueFull = errors.New("fila de diagnósticos cheia")

const diagnosticsPublishTimeout = 5 * time.Second

type keyPublisher interface {
	Publish(ctx context.Context, key string, body []byte) error
}

// DiagnosticsSink espelha os eventos de diagnóstico numa exchange do RabbitMQ.
// Emit nunca bloqueia: os eventos são publicados por um worker.
type DiagnosticsSink struct {
	publisher keyPublisher
	queue     chan diagnostics.Event
	stop      chan struct{}
	once      sync.Once
	wg        sync.WaitGroup
}

var _ diagnostics.Sink = (*DiagnosticsSink)(nil)

func NewDiagnosticsSink(publisher keyPublisher, size int) *DiagnosticsSink {
	if size <= 0 {
		size = 256
	}
	s := &DiagnosticsSink{
		publisher: publisher,
		queue:     make(chan diagnostics.Event, size),
		stop:      make(chan struct{}),
	}
	s.wg.Add(1)
	go s.loop()
	return s
}

// RoutingKey é a chave de roteamento de um evento: diagnostics.<kind>
func RoutingKey(event diagnostics.Event) string {
	return "diagnostics." + string(event.Kind)
}

func (s *DiagnosticsSink) Emit(event diagnostics.Event) error {
	select {
	case <-s.stop:
		return ErrConnectionClosed
	default:
	}

	select {
	case s.queue <- event:
		return nil
	default:
		return ErrSinkQueueFull
	}
}

// Close publica os eventos já enfileirados e encerra o worker
func (s *DiagnosticsSink) Close() {
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
}

func (s *DiagnosticsSink) loop() {
	defer s.wg.Done()
	for {
		select {
		case event := <-s.queue:
			s.publish(event)
		case <-s.stop:
			for {
				select {
				case event := <-s.queue:
					s.publish(event)
				default:
					return
				}
			}
		}
	}
}

func (s *DiagnosticsSink) publish(event diagnostics.Event) {
	body, err := json.Marshal(event)
	if err != nil {
		logrus.WithError(err).Error("Erro ao serializar evento de diagnóstico")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), diagnosticsPublishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, RoutingKey(event), body); err != nil {
		logrus.WithFields(logrus.Fields{
			"kind":       event.Kind,
			"collection": event.Collection,
		}).WithError(err).Warn("Erro ao publicar evento de diagnóstico")
	}
}
