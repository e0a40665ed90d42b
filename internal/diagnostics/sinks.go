package diagnostics

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogSink escreve os eventos no logrus
type LogSink struct{}

func (LogSink) Emit(event Event) error {
	entry := logrus.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"kind":       event.Kind,
		"collection": event.Collection,
		"principal":  event.Principal,
	})

	switch event.Kind {
	case KindSubscriptionFatal, KindPersistenceFailure:
		entry.Error(event.Message)
	case KindSubscriptionError, KindDecodeFailure:
		entry.Warn(event.Message)
	default:
		entry.Info(event.Message)
	}
	return nil
}

// Multi repassa o evento a todos os sinks e junta os erros
type Multi []Sink

func (m Multi) Emit(event Event) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Emit(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder mantém os últimos eventos em memória para a tela de debug
type Recorder struct {
	mu     sync.Mutex
	events []Event
	limit  int
}

func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = 100
	}
	return &Recorder{limit: limit}
}

func (r *Recorder) Emit(event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
	if len(r.events) > r.limit {
		r.events = r.events[len(r.events)-r.limit:]
	}
	return nil
}

// Events retorna uma cópia dos eventos registrados, do mais antigo ao mais recente
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count retorna quantos eventos de um tipo foram registrados
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
