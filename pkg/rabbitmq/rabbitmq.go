package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/streadway/amqp"
)

// DefaultQueue is the queue product events are published to.
const DefaultQueue = "product_events"

// EventProductCreated is the event type sent after a product is persisted.
const EventProductCreated = "product.created"

// ProductEvent is the JSON body of a product event message.
type ProductEvent struct {
	EventType   string    `json:"eventType"`
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	ProductType string    `json:"productType"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL    string
	Queue  string
	Logger *slog.Logger
}

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	logger  *slog.Logger

	// amqp.Channel is not safe for concurrent publishes.
	mu sync.Mutex
}

// NewClient connects to RabbitMQ, opens a channel and declares the event queue.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Queue == "" {
		cfg.Queue = DefaultQueue
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := declareQueue(ch, cfg.Queue); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	cfg.Logger.Info("RabbitMQ client connected", slog.String("queue", cfg.Queue))

	return &Client{
		conn:    conn,
		channel: ch,
		queue:   cfg.Queue,
		logger:  cfg.Logger,
	}, nil
}

func declareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("failed to declare %s: %w", name, err)
	}
	return q, nil
}

// Close closes the RabbitMQ channel and connection.
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
	return errors.Join(errs...)
}

// PublishProductEvent sends event to the product event queue as a persistent message.
func (c *Client) PublishProductEvent(ctx context.Context, event ProductEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.channel == nil {
		return errors.New("RabbitMQ channel is not available")
	}

	msg, err := newPublishing(event)
	if err != nil {
		return err
	}

	c.mu.Lock()
	err = c.channel.Publish(
		"",      // default exchange
		c.queue, // routing key: the queue name
		false,   // mandatory
		false,   // immediate
		msg,
	)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.logger.DebugContext(ctx, "Published product event",
		slog.String("event_type", event.EventType),
		slog.Int64("product_id", event.ID),
		slog.String("message_id", msg.MessageId),
	)
	return nil
}

func newPublishing(event ProductEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal product event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		Type:         event.EventType,
		MessageId:    uuid.NewString(),
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Body:         body,
	}, nil
}

// ConsumeProductEvents delivers every product event to handler until ctx is done.
// Messages are acked when handler returns nil. A failed message is requeued once;
// a redelivered failure or an undecodable body is dropped.
func (c *Client) ConsumeProductEvents(ctx context.Context, handler func(context.Context, ProductEvent) error) error {
	if c.channel == nil {
		return errors.New("RabbitMQ channel is not available for consumption")
	}

	consumerTag := "catalog-" + uuid.NewString()
	msgs, err := c.channel.Consume(
		c.queue,
		consumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Waiting for product events", slog.String("queue", c.queue))

	go func() {
		<-ctx.Done()
		if err := c.channel.Cancel(consumerTag, false); err != nil {
			c.logger.Warn("Failed to cancel consumer", slog.String("error", err.Error()))
		}
	}()

	go func() {
		for msg := range msgs {
			c.handleDelivery(ctx, msg, handler)
		}
	}()

	return nil
}

func (c *Client) handleDelivery(ctx context.Context, msg amqp.Delivery, handler func(context.Context, ProductEvent) error) {
	var event ProductEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.logger.Error("Dropping undecodable product event",
			slog.Uint64("delivery_tag", msg.DeliveryTag),
			slog.String("error", err.Error()),
		)
		if err := msg.Nack(false, false); err != nil {
			c.logger.Error("Error nacking message", slog.String("error", err.Error()))
		}
		return
	}

	if err := handler(ctx, event); err != nil {
		requeue := !msg.Redelivered
		c.logger.Error("Error processing product event",
			slog.Uint64("delivery_tag", msg.DeliveryTag),
			slog.Bool("requeue", requeue),
			slog.String("error", err.Error()),
		)
		if err := msg.Nack(false, requeue); err != nil {
			c.logger.Error("Error nacking message", slog.String("error", err.Error()))
		}
		return
	}

	if err := msg.Ack(false); err != nil {
		c.logger.Error("Error acking message", slog.String("error", err.Error()))
	}
}
