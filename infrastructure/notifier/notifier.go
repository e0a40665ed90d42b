// Package notifier publica notificações de novos pedidos no tópico consumido pelos dispositivos da equipe.
package notifier

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/pos-sync-engine/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	DefaultTopic   = "orders"
	queueSize      = 128
	publishTimeout = 10 * time.Second
	title          = "Nueva orden recibida"
)

// Publisher entrega a mensagem serializada ao transporte
type Publisher interface {
	Publish(ctx context.Context, key string, body []byte) error
}

// TableLookup resolve o número da mesa para o corpo da notificação
type TableLookup interface {
	Get(id string) (domain.Table, bool)
}

type Notification struct {
	Title   string             `json:"title"`
	Body    string             `json:"body"`
	OrderID string             `json:"order_id"`
	TableID string             `json:"table_id"`
	Status  domain.OrderStatus `json:"status"`
	SentAt  time.Time          `json:"sent_at"`
}

// OrderNotifier enfileira notificações sem bloquear a reconciliação e as publica em segundo plano
type OrderNotifier struct {
	publisher Publisher
	topic     string
	tables    TableLookup

	queue chan Notification
	wg    sync.WaitGroup
	once  sync.Once
	stop  chan struct{}
}

func NewOrderNotifier(publisher Publisher, topic string, tables TableLookup) *OrderNotifier {
	if topic == "" {
		topic = DefaultTopic
	}
	return &OrderNotifier{
		publisher: publisher,
		topic:     topic,
		tables:    tables,
		queue:     make(chan Notification, queueSize),
		stop:      make(chan struct{}),
	}
}

// Build monta a notificação de um pedido novo
func (n *OrderNotifier) Build(order domain.Order) Notification {
	label := order.TableID
	if n.tables != nil {
		if table, ok := n.tables.Get(order.TableID); ok {
			label = strconv.Itoa(table.Number)
		}
	}

	status := order.Status
	if status == "" {
		status = domain.OrderStatusPending
	}

	return Notification{
		Title:   title,
		Body:    fmt.Sprintf("Mesa #%s - %d productos", label, len(order.Items)),
		OrderID: order.ID,
		TableID: order.TableID,
		Status:  status,
		SentAt:  time.Now(),
	}
}

// NotifyNewOrder é o gancho chamado pelo reconciliador para pedidos novos
func (n *OrderNotifier) NotifyNewOrder(order domain.Order) {
	notification := n.Build(order)

	select {
	case n.queue <- notification:
	default:
		logrus.WithField("order_id", order.ID).Warn("Fila de notificações cheia; notificação descartada")
	}
}

// Start inicia o worker de publicação
func (n *OrderNotifier) Start(ctx context.Context) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-n.stop:
				return
			case notification := <-n.queue:
				n.publish(ctx, notification)
			}
		}
	}()
}

func (n *OrderNotifier) Close() {
	n.once.Do(func() { close(n.stop) })
	n.wg.Wait()
}

func (n *OrderNotifier) publish(ctx context.Context, notification Notification) {
	body, err := json.Marshal(notification)
	if err != nil {
		logrus.WithError(err).Error("Erro ao serializar notificação")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	logger := logrus.WithFields(logrus.Fields{
		"order_id": notification.OrderID,
		"topic":    n.topic,
	})

	if err := n.publisher.Publish(ctx, n.topic, body); err != nil {
		logger.WithError(err).Error("Erro enviando notificação de novo pedido")
		return
	}
	logger.Info("Notificação de novo pedido enviada")
}
