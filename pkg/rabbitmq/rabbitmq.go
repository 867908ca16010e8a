package rabbitmq

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Topology of the property event stream.
const (
	PropertyExchange   = "property"
	PropertyQueue      = "property_events"
	PropertyBindingKey = "property.*"

	PropertyCreated = "property.created"
	PropertyUpdated = "property.updated"
	PropertyDeleted = "property.deleted"
)

// PropertyEvent is the body of every message on the property exchange. The
// event name doubles as the routing key.
type PropertyEvent struct {
	Event      string    `json:"event"`
	PropertyID uint      `json:"property_id"`
	OwnerID    uint      `json:"owner_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	// amqp channels are not safe for concurrent publishing.
	mu     sync.Mutex
	logger *zap.Logger
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// NewClient connects to RabbitMQ, opens a channel and declares the property
// exchange and queue.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logger.Info("RabbitMQ client connected", zap.String("exchange", PropertyExchange), zap.String("queue", PropertyQueue))

	return &Client{
		conn:    conn,
		channel: ch,
		logger:  logger,
	}, nil
}

func declareTopology(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(
		PropertyExchange, // name
		"topic",          // kind
		true,             // durable
		false,            // auto-deleted
		false,            // internal
		false,            // no-wait
		nil,              // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", PropertyExchange, err)
	}

	_, err = ch.QueueDeclare(
		PropertyQueue, // name
		true,          // durable
		false,         // delete when unused
		false,         // exclusive
		false,         // no-wait
		nil,           // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", PropertyQueue, err)
	}

	if err := ch.QueueBind(PropertyQueue, PropertyBindingKey, PropertyExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", PropertyQueue, err)
	}
	return nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred during RabbitMQ client close: %v", errs)
	}
	return nil
}

// IsConnected reports whether the underlying connection is still open.
func (c *Client) IsConnected() bool {
	return c.conn != nil && !c.conn.IsClosed()
}

// Publish sends a persistent JSON message to exchange with routingKey.
func (c *Client) Publish(exchange, routingKey string, body []byte) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.channel.Publish(
		exchange,   // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// PublishPropertyEvent publishes event on the property exchange using the
// event name as routing key.
func (c *Client) PublishPropertyEvent(event PropertyEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal property event: %w", err)
	}
	if err := c.Publish(PropertyExchange, event.Event, body); err != nil {
		return err
	}
	c.logger.Debug("property event published", zap.String("event", event.Event), zap.Uint("property_id", event.PropertyID))
	return nil
}

// ConsumePropertyEvents delivers decoded events from the property queue to
// handler on a background goroutine. Messages are acked when handler
// succeeds, requeued once when it fails and dropped when they cannot be
// decoded or fail again after redelivery.
func (c *Client) ConsumePropertyEvents(handler func(PropertyEvent) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(
		PropertyQueue, // queue
		"",            // consumer tag
		false,         // auto-ack
		false,         // exclusive
		false,         // no-local
		false,         // no-wait
		nil,           // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for msg := range msgs {
			c.handleDelivery(msg, handler)
		}
	}()
	return nil
}

func (c *Client) handleDelivery(msg amqp.Delivery, handler func(PropertyEvent) error) {
	var event PropertyEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.logger.Warn("dropping undecodable property event", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(err))
		if err := msg.Nack(false, false); err != nil {
			c.logger.Error("failed to nack message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(err))
		}
		return
	}

	if err := handler(event); err != nil {
		requeue := !msg.Redelivered
		c.logger.Warn("property event handler failed",
			zap.String("event", event.Event),
			zap.Uint("property_id", event.PropertyID),
			zap.Bool("requeue", requeue),
			zap.Error(err))
		if err := msg.Nack(false, requeue); err != nil {
			c.logger.Error("failed to nack message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(err))
		}
		return
	}

	if err := msg.Ack(false); err != nil {
		c.logger.Error("failed to ack message", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(err))
	}
}
