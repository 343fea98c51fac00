package realtime

import (
	"context"
	"fmt"
	"strings"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AMQPPublisher publishes to a topic exchange. Slashes in the topic become
// dots in the routing key, so consumers can bind on "agents.*.tasks.#".
type AMQPPublisher struct {
	url      string
	exchange string
	log      *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher connects to the broker and declares the exchange
func NewAMQPPublisher(url, exchange string, log *zap.Logger) (*AMQPPublisher, error) {
	p := &AMQPPublisher{url: url, exchange: exchange, log: log}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *AMQPPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(p.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare exchange %s: %w", p.exchange, err)
	}

	p.conn, p.ch = conn, ch
	return nil
}

// RoutingKey maps a topic to an AMQP routing key
func RoutingKey(topic string) string {
	return strings.ReplaceAll(topic, "/", ".")
}

// Publish implements Publisher. A closed connection is re-dialed once per call.
func (p *AMQPPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() || p.ch == nil || p.ch.IsClosed() {
		p.log.Warn("RabbitMQ connection lost, reconnecting", zap.String("exchange", p.exchange))
		if err := p.connect(); err != nil {
			return err
		}
	}

	err := p.ch.PublishWithContext(ctx,
		p.exchange,        // Exchange
		RoutingKey(topic), // Routing key
		false,             // Mandatory
		false,             // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Transient,
			Body:         payload,
		})
	if err != nil {
		return fmt.Errorf("amqp publish error: %w", err)
	}
	return nil
}

// Close closes the channel and the connection
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
