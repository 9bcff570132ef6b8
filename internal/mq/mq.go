package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/comanda-pos/api/internal/service"
	amqp "github.com/rabbitmq/amqp091-go"
)

// OrdersExchange is the topic exchange order events are published to.
const OrdersExchange = "orders_topic"

// Client holds one AMQP connection and channel.
type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel

	// amqp channels are not safe for concurrent publishing.
	mu sync.Mutex
}

// Dial connects to url and opens a channel.
func Dial(url string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	return &Client{conn: conn, ch: ch}, nil
}

// Close closes the channel and the connection.
func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// DeclareAll declares the durable orders exchange.
func (c *Client) DeclareAll() error {
	if c == nil || c.ch == nil {
		return fmt.Errorf("nil channel")
	}
	if err := c.ch.ExchangeDeclare(OrdersExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", OrdersExchange, err)
	}
	return nil
}

// PublishPersistent publishes a persistent JSON message.
func (c *Client) PublishPersistent(ctx context.Context, exchange, key string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ch.PublishWithContext(ctx, exchange, key, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		ContentType:  "application/json",
		Body:         body,
	})
}

// publisher is satisfied by *Client.
type publisher interface {
	PublishPersistent(ctx context.Context, exchange, key string, body []byte) error
}

// message is the body of an order event.
type message struct {
	Type  string              `json:"type"`
	Order service.OrderDetail `json:"order"`
}

// EventPublisher sends ledger events to the orders exchange, routed by
// event type.
type EventPublisher struct {
	pub     publisher
	billing *service.BillingView
}

// NewEventPublisher creates an EventPublisher.
func NewEventPublisher(pub publisher, billing *service.BillingView) *EventPublisher {
	return &EventPublisher{pub: pub, billing: billing}
}

// Publish implements service.EventPublisher.
func (p *EventPublisher) Publish(ctx context.Context, evt service.OrderEvent) error {
	detail, err := p.billing.Detail(evt.Order)
	if err != nil {
		return fmt.Errorf("describe order %d: %w", evt.Order.ID, err)
	}
	body, err := json.Marshal(message{Type: evt.Type, Order: detail})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", evt.Type, err)
	}
	if err := p.pub.PublishPersistent(ctx, OrdersExchange, evt.Type, body); err != nil {
		return fmt.Errorf("publish %s: %w", evt.Type, err)
	}
	return nil
}
