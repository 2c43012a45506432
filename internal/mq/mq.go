package mq

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/samajportal/apiserver/config"
)

// ContentTypeJSON is the content type attribute set on JSON envelopes.
const ContentTypeJSON = "application/json"

// AttrContentType names the attribute carrying the payload content type.
const AttrContentType = "content-type"

// ErrDisabled is returned by Open when no broker is configured.
var ErrDisabled = errors.New("message queue disabled")

// Message is a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Returning an error requeues it.
type Handler func(ctx context.Context, msg Message) error

// Backend is implemented by each supported broker.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// MQ wraps a backend and logs broker failures.
type MQ struct {
	backend Backend
	logger  *zap.Logger
}

// New wraps backend. A nil logger is replaced by a no-op logger.
func New(backend Backend, logger *zap.Logger) *MQ {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MQ{backend: backend, logger: logger}
}

// Open connects to the broker selected by cfg.Backend.
func Open(ctx context.Context, cfg config.MQConfig, logger *zap.Logger) (*MQ, error) {
	var (
		backend Backend
		err     error
	)
	switch cfg.Backend {
	case config.MQBackendNone, "":
		return nil, ErrDisabled
	case config.MQBackendRabbitMQ:
		backend, err = NewRabbitMQClient(cfg.RabbitMQ)
	case config.MQBackendPubSub:
		backend, err = NewPubSubClient(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unsupported mq backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Backend, err)
	}
	return New(backend, logger), nil
}

// Publish sends data to channel.
func (m *MQ) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	id, err := m.backend.Publish(ctx, channel, data, attrs)
	if err != nil {
		m.logger.Warn("mq publish failed", zap.String("channel", channel), zap.Error(err))
		return "", err
	}
	return id, nil
}

// Subscribe consumes channel until ctx is cancelled or the broker fails.
func (m *MQ) Subscribe(ctx context.Context, channel string, handler Handler) error {
	m.logger.Info("mq subscribe", zap.String("channel", channel))
	return m.backend.Subscribe(ctx, channel, func(ctx context.Context, msg Message) error {
		if err := handler(ctx, msg); err != nil {
			m.logger.Warn("mq handler failed, requeueing",
				zap.String("channel", channel),
				zap.String("message_id", msg.ID),
				zap.Error(err))
			return err
		}
		return nil
	})
}

// Close closes the underlying backend.
func (m *MQ) Close() error {
	return m.backend.Close()
}
