package messaging

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Publisher mantém uma conexão de publicação e reconecta sob demanda quando ela cai
type Publisher struct {
	cfg      Config
	exchange string
	dial     func(Config) (*Client, error)

	mu     sync.Mutex
	client *Client
}

func NewPublisher(cfg Config, exchange string) *Publisher {
	return &Publisher{cfg: cfg, exchange: exchange, dial: Dial}
}

func (p *Publisher) Exchange() string { return p.exchange }

// Publish publica body na exchange do publisher com a routing key informada
func (p *Publisher) Publish(ctx context.Context, key string, body []byte) error {
	client, err := p.connection()
	if err != nil {
		return err
	}

	err = client.Publish(ctx, Message{Exchange: p.exchange, Key: key, Body: body, Persistent: true})
	if err != nil && client.Ping() != nil {
		// Conexão perdida: descarta para reconectar na próxima publicação
		p.reset(client)
	}
	return err
}

func (p *Publisher) connection() (*Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil && p.client.Ping() == nil {
		return p.client, nil
	}

	client, err := p.dial(p.cfg)
	if err != nil {
		return nil, errors.Wrap(err, "erro ao conectar ao rabbitmq")
	}
	if err := client.DeclareTopic(p.exchange); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "erro ao declarar exchange %s", p.exchange)
	}

	logrus.WithFields(logrus.Fields{
		"host":     p.cfg.Host,
		"exchange": p.exchange,
	}).Info("Publisher conectado ao rabbitmq")

	p.client = client
	return client, nil
}

func (p *Publisher) reset(client *Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == client {
		p.client.Close()
		p.client = nil
	}
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		p.client.Close()
		p.client = nil
	}
}
