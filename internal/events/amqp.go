package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/briefdesk/brief-service/internal/config"
)

// Envelope is the broker message body.
type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

// Meta describes an envelope.
type Meta struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Time          time.Time `json:"time"`
	Producer      *string   `json:"producer,omitempty"`
	CorrelationID *string   `json:"correlation_id,omitempty"`
}

// Broker publishes envelopes under a routing key.
type Broker interface {
	Publish(ctx context.Context, key string, env Envelope) error
	Close() error
}

type amqpBroker struct {
	conn     *amqp.Connection
	exchange string
	producer string
	logger   *zap.Logger
}

// NewAMQPBroker dials RabbitMQ and declares a durable topic exchange.
func NewAMQPBroker(url, exchange, producer string, logger *zap.Logger) (Broker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}
	return &amqpBroker{conn: conn, exchange: exchange, producer: producer, logger: logger}, nil
}

func (b *amqpBroker) Publish(ctx context.Context, key string, env Envelope) error {
	ch, err := b.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	msgID := env.Meta.ID
	if msgID == "" {
		msgID = uuid.NewString()
	}
	cid := msgID
	if env.Meta.CorrelationID != nil {
		cid = *env.Meta.CorrelationID
	}

	err = ch.PublishWithContext(ctx, b.exchange, key, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     msgID,
		CorrelationId: cid,
		Type:          env.Meta.Type,
		Timestamp:     env.Meta.Time,
		AppId:         b.producer,
		Body:          body,
	})
	if err == nil {
		b.logger.Debug("event published", zap.String("key", key), zap.String("exchange", b.exchange))
	}
	return err
}

func (b *amqpBroker) Close() error {
	return b.conn.Close()
}

type fallbackBroker struct {
	logger *zap.Logger
}

// NewFallbackBroker drops envelopes, for deployments without a broker.
func NewFallbackBroker(logger *zap.Logger) Broker {
	return &fallbackBroker{logger: logger}
}

func (f *fallbackBroker) Publish(ctx context.Context, key string, env Envelope) error {
	f.logger.Debug("no broker configured, event kept in process", zap.String("key", key))
	return nil
}

func (f *fallbackBroker) Close() error { return nil }

// NewBroker connects to AMQP_URL when set. An unreachable broker degrades to
// the fallback so the service still starts.
func NewBroker(cfg config.EventsConfig, logger *zap.Logger) Broker {
	if cfg.AMQPURL == "" {
		return NewFallbackBroker(logger)
	}
	broker, err := NewAMQPBroker(cfg.AMQPURL, cfg.Exchange, cfg.Producer, logger)
	if err != nil {
		logger.Warn("event broker unavailable, publishing in process only", zap.Error(err))
		return NewFallbackBroker(logger)
	}
	logger.Info("event broker connected", zap.String("exchange", cfg.Exchange))
	return broker
}

type brokerDispatcher struct {
	Dispatcher
	broker   Broker
	producer string
}

// NewBrokerDispatcher delivers events to local subscribers and then forwards
// them to the broker with the event type as routing key.
func NewBrokerDispatcher(local Dispatcher, broker Broker, producer string) Dispatcher {
	return &brokerDispatcher{Dispatcher: local, broker: broker, producer: producer}
}

func (d *brokerDispatcher) Publish(ctx context.Context, event Event) error {
	localErr := d.Dispatcher.Publish(ctx, event)
	return errors.Join(localErr, d.broker.Publish(ctx, string(event.Type), ToEnvelope(event, d.producer)))
}

// ToEnvelope wraps an event for the broker.
func ToEnvelope(event Event, producer string) Envelope {
	meta := Meta{ID: event.ID, Type: string(event.Type), Time: event.Timestamp}
	if producer != "" {
		meta.Producer = &producer
	}
	if event.CorrelationID != "" {
		cid := event.CorrelationID
		meta.CorrelationID = &cid
	}
	return Envelope{
		Meta: meta,
		Data: map[string]any{
			"conversation_id": event.ConversationID,
			"payload":         event.Payload,
		},
	}
}
