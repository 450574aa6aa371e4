// Package publish sends computed reports to an AMQP exchange.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/dre-dev/dre/internal/dre"
	"github.com/dre-dev/dre/internal/log"
)

// MessageType identifies report messages.
const MessageType = "dre.report.computed"

// Message is the body of a published report.
type Message struct {
	Type      string      `json:"type"`
	CreatedAt time.Time   `json:"created_at"`
	Report    *dre.Report `json:"report"`
}

// Channel is the subset of *amqp091.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher publishes reports to a durable direct exchange.
type Publisher struct {
	ch         Channel
	conn       io.Closer
	exchange   string
	routingKey string
	logger     *log.Logger
	now        func() time.Time
}

// Dial connects to the broker at url and declares the exchange.
func Dial(url, exchange, routingKey string, logger *log.Logger) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p, err := New(ch, exchange, routingKey, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// New declares the exchange on ch and returns a Publisher over it.
func New(ch Channel, exchange, routingKey string, logger *log.Logger) (*Publisher, error) {
	if logger == nil {
		logger = log.Nop()
	}
	err := ch.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{
		ch:         ch,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logger.WithComponent(log.ComponentPublish),
		now:        time.Now,
	}, nil
}

// PublishReport publishes r as a persistent JSON message.
func (p *Publisher) PublishReport(ctx context.Context, r *dre.Report) error {
	msg := Message{Type: MessageType, CreatedAt: p.now().UTC(), Report: r}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.ch.PublishWithContext(
		ctx,
		p.exchange,   // exchange
		p.routingKey, // routing key
		false,        // mandatory
		false,        // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    msg.CreatedAt,
			Type:         MessageType,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish report: %w", err)
	}

	p.logger.InfoContext(ctx, "report published",
		log.FieldCompanyID, r.CompanyID,
		log.FieldPeriod, r.Period.Key(),
		"exchange", p.exchange,
		"routing_key", p.routingKey)
	return nil
}

// Close closes the channel and, when dialed, the connection.
func (p *Publisher) Close() error {
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
