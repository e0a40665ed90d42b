// Package messaging encapsula a conexão com o RabbitMQ usada pelo feed de mudanças,
// pelas notificações de novos pedidos e pela publicação de diagnósticos.
package messaging

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

var ErrConnectionClosed = errors.New("conexão com o rabbitmq fechada")

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	VHost    string // padrão "/"
	UseTLS   bool
}

// URL monta a URL amqp:// ou amqps:// da configuração
func (c Config) URL() string {
	scheme := "amqp"
	if c.UseTLS {
		scheme = "amqps"
	}
	vhost := c.VHost
	if vhost == "" {
		vhost = "/"
	}
	return fmt.Sprintf("%s://%s@%s:%d/%s",
		scheme, url.UserPassword(c.User, c.Password).String(), c.Host, c.Port, url.PathEscape(vhost))
}

type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel

	acks <-chan amqp.Confirmation // publisher confirms
	mu   sync.Mutex               // serializa Publish por causa dos confirms
}

func Dial(cfg Config) (*Client, error) {
	var (
		conn *amqp.Connection
		err  error
	)
	if cfg.UseTLS {
		conn, err = amqp.DialTLS(cfg.URL(), &tls.Config{MinVersion: tls.VersionTLS12})
	} else {
		conn, err = amqp.Dial(cfg.URL())
	}
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, errors.Wrap(err, "erro ao habilitar publisher confirms")
	}
	acks := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	return &Client{conn: conn, ch: ch, acks: acks}, nil
}

func (c *Client) Channel() *amqp.Channel { return c.ch }

// OpenChannel abre um canal separado para consumo; não misturar com o canal de publicação
func (c *Client) OpenChannel() (*amqp.Channel, error) {
	if c.conn == nil || c.conn.IsClosed() {
		return nil, ErrConnectionClosed
	}
	return c.conn.Channel()
}

// NotifyClose avisa quando a conexão cai. Recebe nil em um fechamento normal.
func (c *Client) NotifyClose() <-chan *amqp.Error {
	return c.conn.NotifyClose(make(chan *amqp.Error, 1))
}

func (c *Client) Ping() error {
	if c.conn == nil || c.conn.IsClosed() {
		return ErrConnectionClosed
	}
	return nil
}

func (c *Client) Close() {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// DeclareTopic declara uma exchange do tipo topic durável
func (c *Client) DeclareTopic(exchange string) error {
	return c.ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil)
}

type Message struct {
	Exchange   string
	Key        string
	Body       []byte
	Headers    amqp.Table
	ReplyTo    string
	Persistent bool
}

// Publish publica a mensagem e espera o ack/nack do broker
func (c *Client) Publish(ctx context.Context, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	mode := amqp.Transient
	if msg.Persistent {
		mode = amqp.Persistent
	}

	if err := c.ch.PublishWithContext(
		ctx,
		msg.Exchange,
		msg.Key,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: mode,
			ContentType:  "application/json",
			Timestamp:    time.Now(),
			Headers:      msg.Headers,
			ReplyTo:      msg.ReplyTo,
			Body:         msg.Body,
		},
	); err != nil {
		return err
	}

	select {
	case conf, ok := <-c.acks:
		if !ok {
			return ErrConnectionClosed
		}
		if conf.Ack {
			return nil
		}
		return errors.New("publish NACK do broker")
	case <-ctx.Done():
		return ctx.Err()
	}
}
