package mq

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samajportal/apiserver/config"
)

type recordingBackend struct {
	published [][]byte
	publishFn func() error
	delivered []Message
}

func (b *recordingBackend) Publish(_ context.Context, _ string, data []byte, _ map[string]string) (string, error) {
	if b.publishFn != nil {
		if err := b.publishFn(); err != nil {
			return "", err
		}
	}
	b.published = append(b.published, data)
	return "id-1", nil
}

func (b *recordingBackend) Subscribe(ctx context.Context, _ string, handler Handler) error {
	for _, m := range b.delivered {
		if err := handler(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (b *recordingBackend) Close() error { return nil }

func TestOpenDisabled(t *testing.T) {
	_, err := Open(context.Background(), config.MQConfig{Backend: config.MQBackendNone}, nil)
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = Open(context.Background(), config.MQConfig{Backend: "kafka"}, nil)
	assert.Error(t, err)
}

func TestMQPublishPassesThrough(t *testing.T) {
	b := &recordingBackend{}
	m := New(b, nil)

	id, err := m.Publish(context.Background(), "ch", []byte("x"), nil)
	require.NoError(t, err)
	assert.Equal(t, "id-1", id)
	assert.Len(t, b.published, 1)

	b.publishFn = func() error { return errors.New("broker down") }
	_, err = m.Publish(context.Background(), "ch", []byte("y"), nil)
	assert.Error(t, err)
}

func TestMQSubscribePropagatesHandlerError(t *testing.T) {
	b := &recordingBackend{delivered: []Message{{ID: "1"}, {ID: "2"}}}
	m := New(b, nil)

	var seen []string
	err := m.Subscribe(context.Background(), "ch", func(_ context.Context, msg Message) error {
		seen = append(seen, msg.ID)
		if msg.ID == "2" {
			return errors.New("bad")
		}
		return nil
	})
	assert.Error(t, err)
	assert.Equal(t, []string{"1", "2"}, seen)
}

func TestSubscriptionName(t *testing.T) {
	assert.Equal(t, "member-notifications-sub", SubscriptionName("member-notifications", "-sub"))
	assert.Equal(t, "plain", SubscriptionName("plain", ""))
}
