package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/boddenberg/financio-bfa-go/internal/domain"
	"github.com/boddenberg/financio-bfa-go/internal/infra/resilience"
)

// Bridge relays change events through a RabbitMQ topic exchange so every
// running instance sees every write. Each instance consumes from its own
// exclusive queue bound to all routing keys. Messages carry the
// publishing instance's id and are not redelivered to their origin, whose
// hub already got them locally.
type Bridge struct {
	url      string
	exchange string
	queue    string
	origin   string
	logger   *zap.Logger

	mu      sync.RWMutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

// NewBridge dials the broker and declares the exchange and this instance's
// queue. queuePrefix gets a random suffix.
func NewBridge(url, exchange, queuePrefix string, logger *zap.Logger) (*Bridge, error) {
	origin := uuid.NewString()
	b := &Bridge{
		url:      url,
		exchange: exchange,
		queue:    queuePrefix + "." + origin,
		origin:   origin,
		logger:   logger,
	}
	if err := b.connect(); err != nil {
		return nil, err
	}
	return b, nil
}

// connect dials the broker and swaps in a fresh connection and channel.
func (b *Bridge) connect() error {
	conn, err := amqp091.Dial(b.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := setup(channel, b.exchange, b.queue); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	b.mu.Lock()
	oldConn, oldChannel := b.conn, b.channel
	b.conn, b.channel = conn, channel
	b.mu.Unlock()

	if oldChannel != nil {
		oldChannel.Close()
	}
	if oldConn != nil {
		oldConn.Close()
	}
	return nil
}

func (b *Bridge) current() *amqp091.Channel {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.channel
}

func setup(channel *amqp091.Channel, exchange, queue string) error {
	err := channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = channel.QueueDeclare(
		queue, // name
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := channel.QueueBind(queue, "#", exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// RoutingKey is "<collection>.<action>", e.g. "transactions.create".
func RoutingKey(ev domain.ChangeEvent) string {
	collection := ev.Collection()
	if collection == "" {
		collection = "unknown"
	}
	for _, action := range []string{domain.ActionCreate, domain.ActionUpdate, domain.ActionDelete} {
		if ev.HasAction(action) {
			return collection + "." + action
		}
	}
	return collection + ".other"
}

// Publish implements port.EventPublisher.
func (b *Bridge) Publish(ctx context.Context, ev domain.ChangeEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = b.current().PublishWithContext(ctx,
		b.exchange,     // exchange
		RoutingKey(ev), // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			AppId:       b.origin,
			Timestamp:   time.Now(),
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Run forwards broker deliveries into hub until ctx ends or the broker
// closes the channel.
func (b *Bridge) Run(ctx context.Context, hub *Hub) error {
	msgs, err := b.current().Consume(
		b.queue, // queue
		"",      // consumer
		false,   // auto-ack
		true,    // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	b.logger.Info("realtime: consuming change events", zap.String("queue", b.queue))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}

			if delivery.AppId == b.origin {
				_ = delivery.Ack(false)
				continue
			}

			var ev domain.ChangeEvent
			if err := json.Unmarshal(delivery.Body, &ev); err != nil {
				b.logger.Error("realtime: bad event payload", zap.Error(err))
				_ = delivery.Nack(false, false)
				continue
			}
			_ = hub.Publish(ctx, ev)
			_ = delivery.Ack(false)
		}
	}
}

// RunForever keeps Run going, redialing the broker with backoff whenever
// the channel drops, until ctx ends.
func (b *Bridge) RunForever(ctx context.Context, hub *Hub, cfg resilience.Config) error {
	return Supervise(ctx, cfg, b.logger,
		func(ctx context.Context) error { return b.Run(ctx, hub) },
		func(context.Context) error { return b.connect() },
	)
}

// Supervise runs run until ctx ends. Whenever run returns early it waits
// cfg.InitialBackoff and calls reconnect under RetryWithBackoff before
// running again.
func Supervise(ctx context.Context, cfg resilience.Config, logger *zap.Logger, run, reconnect func(ctx context.Context) error) error {
	for {
		err := run(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("realtime: consumer stopped, reconnecting", zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.InitialBackoff):
		}

		if err := resilience.RetryWithBackoff(ctx, cfg, func() error { return reconnect(ctx) }); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error("realtime: reconnect failed", zap.Error(err))
			continue
		}
		logger.Info("realtime: reconnected to broker")
	}
}

// Close shuts the channel and connection.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.channel != nil {
		b.channel.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
