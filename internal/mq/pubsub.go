package mq

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"github.com/samajportal/apiserver/config"
)

// PubSubClient maps channels to Pub/Sub topics with one subscription
// per topic, named by appending the configured suffix.
type PubSubClient struct {
	client             *pubsub.Client
	subscriptionSuffix string
}

// NewPubSubClient constructs a Pub/Sub client from config.
func NewPubSubClient(ctx context.Context, cfg config.PubSubConfig) (*PubSubClient, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("pubsub project id is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, err
	}

	return &PubSubClient{client: client, subscriptionSuffix: cfg.SubscriptionSuffix}, nil
}

// Publish sends a message to the named topic.
func (p *PubSubClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("pubsub channel is required")
	}

	topic, err := p.ensureTopic(ctx, channel)
	if err != nil {
		return "", err
	}

	merged := map[string]string{AttrContentType: ContentTypeJSON}
	for k, v := range attrs {
		merged[k] = v
	}
	return topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: merged}).Get(ctx)
}

// Subscribe consumes messages from the named channel.
func (p *PubSubClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("pubsub channel is required")
	}

	topic, err := p.ensureTopic(ctx, channel)
	if err != nil {
		return err
	}
	sub, err := p.ensureSubscription(ctx, SubscriptionName(channel, p.subscriptionSuffix), topic)
	if err != nil {
		return err
	}

	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		message := Message{ID: msg.ID, Data: msg.Data, Attributes: msg.Attributes}
		if err := handler(ctx, message); err != nil {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Close closes the underlying Pub/Sub client.
func (p *PubSubClient) Close() error {
	return p.client.Close()
}

func (p *PubSubClient) ensureTopic(ctx context.Context, name string) (*pubsub.Topic, error) {
	topic := p.client.Topic(name)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return p.client.CreateTopic(ctx, name)
	}
	return topic, nil
}

func (p *PubSubClient) ensureSubscription(ctx context.Context, name string, topic *pubsub.Topic) (*pubsub.Subscription, error) {
	sub := p.client.Subscription(name)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return p.client.CreateSubscription(ctx, name, pubsub.SubscriptionConfig{Topic: topic})
	}
	return sub, nil
}

// SubscriptionName derives the subscription for channel.
func SubscriptionName(channel, suffix string) string {
	return channel + suffix
}
