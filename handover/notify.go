package handover

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// =============================================================================
// 📣 Handover Notifications
// =============================================================================

// Notification is the event published when conversation ownership changes.
// Operator consoles subscribe to these to surface takeover queues.
type Notification struct {
	ConversationID string    `json:"conversation_id"`
	AccountID      string    `json:"account_id,omitempty"`
	Owner          Owner     `json:"owner"`
	Operator       string    `json:"operator,omitempty"`
	Reason         string    `json:"reason"`
	Actor          string    `json:"actor"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// RoutingKey returns the topic key for this notification, e.g.
// "handover.human".
func (n Notification) RoutingKey() string {
	return "handover." + string(n.Owner)
}

// Notifier publishes handover notifications. Publishing is best effort from
// the engine's point of view: a failed publish never rolls back the
// ownership change it describes.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
	Close() error
}

// -----------------------------------------------------------------------------
// AMQP implementation
// -----------------------------------------------------------------------------

// AMQPConfig holds broker settings for the notifier.
type AMQPConfig struct {
	URL           string
	Exchange      string
	RetryAttempts int
	RetryDelay    time.Duration
}

// AMQPNotifier publishes notifications to a RabbitMQ topic exchange with
// publisher confirms and persistent delivery.
type AMQPNotifier struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	confirms chan amqp.Confirmation
	config   AMQPConfig
	logger   *zap.Logger
	mu       sync.Mutex
	closed   bool
}

// DialWithRetry connects to the broker, retrying with exponential backoff.
func DialWithRetry(url string, attempts int, delay time.Duration, logger *zap.Logger) (*amqp.Connection, error) {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		conn, err := amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		lastErr = err

		backoff := delay * time.Duration(1<<uint(i))
		logger.Warn("broker connection failed, retrying",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", attempts),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		time.Sleep(backoff)
	}

	return nil, fmt.Errorf("failed to connect to broker after %d attempts: %w", attempts, lastErr)
}

// NewAMQPNotifier connects to the broker and declares the topic exchange.
func NewAMQPNotifier(config AMQPConfig, logger *zap.Logger) (*AMQPNotifier, error) {
	log := logger.With(zap.String("component", "notifier"))

	conn, err := DialWithRetry(config.URL, config.RetryAttempts, config.RetryDelay, log)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(
		config.Exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	if err := channel.Confirm(false); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}
	confirms := channel.NotifyPublish(make(chan amqp.Confirmation, 1))

	log.Info("notifier connected",
		zap.String("exchange", config.Exchange),
	)

	return &AMQPNotifier{
		conn:     conn,
		channel:  channel,
		confirms: confirms,
		config:   config,
		logger:   log,
	}, nil
}

// Notify publishes n and waits for the broker confirm.
func (p *AMQPNotifier) Notify(ctx context.Context, n Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("notifier is closed")
	}

	if n.OccurredAt.IsZero() {
		n.OccurredAt = time.Now().UTC()
	}

	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		p.config.Exchange,
		n.RoutingKey(),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     uuid.NewString(),
			CorrelationId: n.ConversationID,
			Timestamp:     n.OccurredAt,
			Body:          body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	select {
	case confirm := <-p.confirms:
		if !confirm.Ack {
			return fmt.Errorf("broker rejected notification for conversation %s", n.ConversationID)
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	p.logger.Debug("notification published",
		zap.String("conversation_id", n.ConversationID),
		zap.String("routing_key", n.RoutingKey()),
	)
	return nil
}

// Close shuts the notifier down.
func (p *AMQPNotifier) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------
// No-op implementation
// -----------------------------------------------------------------------------

// NopNotifier drops every notification. Used when no broker is configured.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Notification) error { return nil }
func (NopNotifier) Close() error                               { return nil }
