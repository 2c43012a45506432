// Package notify delivers in-app notifications to members.
//
// Dispatch is best-effort. A Dispatcher never returns an error to its
// caller; failures are logged and counted so the action that triggered
// the notification is never held back by it.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/samajportal/apiserver/internal/metrics"
	"github.com/samajportal/apiserver/internal/mq"
)

const dispatchTimeout = 5 * time.Second

// Results recorded on samaj_notifications_total.
const (
	ResultPublished = "published"
	ResultStored    = "stored"
	ResultFailed    = "failed"
	ResultDropped   = "dropped"
)

// Dispatcher sends notifications to one member or to everyone.
type Dispatcher interface {
	Notify(ctx context.Context, memberID int, title, body string)
	Broadcast(ctx context.Context, title, body string)
}

// Store persists notification rows.
type Store interface {
	Insert(ctx context.Context, memberID int, title, body string) error
	InsertBroadcast(ctx context.Context, title, body string) (int64, error)
}

// Publisher is the send side of the message queue.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// Subscriber is the receive side of the message queue.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handler mq.Handler) error
}

// Envelope is the wire form of a queued notification.
type Envelope struct {
	MemberID  int       `json:"member_id,omitempty"`
	Broadcast bool      `json:"broadcast,omitempty"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	SentAt    time.Time `json:"sent_at"`
}

// Validate reports envelopes the worker cannot deliver.
func (e Envelope) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return errors.New("title is required")
	}
	if e.Broadcast == (e.MemberID > 0) {
		return errors.New("exactly one of member_id and broadcast must be set")
	}
	return nil
}

// detach keeps a notification alive after the triggering request ends.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
}

// MQDispatcher publishes envelopes on a queue channel for Worker to store.
type MQDispatcher struct {
	pub     Publisher
	channel string
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewMQDispatcher constructs a dispatcher that publishes to channel.
func NewMQDispatcher(pub Publisher, channel string, logger *zap.Logger, m *metrics.Metrics) *MQDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MQDispatcher{pub: pub, channel: channel, logger: logger, metrics: m}
}

// Notify publishes a notification for one member. Failures are logged.
func (d *MQDispatcher) Notify(ctx context.Context, memberID int, title, body string) {
	d.publish(ctx, Envelope{MemberID: memberID, Title: title, Body: body, SentAt: time.Now().UTC()})
}

// Broadcast publishes a notification for every member.
func (d *MQDispatcher) Broadcast(ctx context.Context, title, body string) {
	d.publish(ctx, Envelope{Broadcast: true, Title: title, Body: body, SentAt: time.Now().UTC()})
}

func (d *MQDispatcher) publish(ctx context.Context, env Envelope) {
	log := d.logger.With(zap.Int("member_id", env.MemberID), zap.Bool("broadcast", env.Broadcast))

	data, err := json.Marshal(env)
	if err != nil {
		d.metrics.ObserveNotification(ResultFailed)
		log.Error("encode notification", zap.Error(err))
		return
	}

	ctx, cancel := detach(ctx)
	defer cancel()

	id, err := d.pub.Publish(ctx, d.channel, data, map[string]string{mq.AttrContentType: mq.ContentTypeJSON})
	if err != nil {
		d.metrics.ObserveNotification(ResultFailed)
		log.Warn("publish notification", zap.String("channel", d.channel), zap.Error(err))
		return
	}
	d.metrics.ObserveNotification(ResultPublished)
	log.Debug("notification published", zap.String("message_id", id))
}

// StoreDispatcher writes notifications straight to the database. It is
// used when no broker is configured.
type StoreDispatcher struct {
	store   Store
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewStoreDispatcher constructs a dispatcher that writes rows directly.
func NewStoreDispatcher(store Store, logger *zap.Logger, m *metrics.Metrics) *StoreDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreDispatcher{store: store, logger: logger, metrics: m}
}

// Notify stores a notification for one member. Failures are logged.
func (d *StoreDispatcher) Notify(ctx context.Context, memberID int, title, body string) {
	ctx, cancel := detach(ctx)
	defer cancel()

	if err := d.store.Insert(ctx, memberID, title, body); err != nil {
		d.metrics.ObserveNotification(ResultFailed)
		d.logger.Warn("store notification", zap.Int("member_id", memberID), zap.Error(err))
		return
	}
	d.metrics.ObserveNotification(ResultStored)
}

// Broadcast stores one notification row per member.
func (d *StoreDispatcher) Broadcast(ctx context.Context, title, body string) {
	ctx, cancel := detach(ctx)
	defer cancel()

	n, err := d.store.InsertBroadcast(ctx, title, body)
	if err != nil {
		d.metrics.ObserveNotification(ResultFailed)
		d.logger.Warn("store broadcast", zap.Error(err))
		return
	}
	d.metrics.ObserveNotification(ResultStored)
	d.logger.Info("broadcast stored", zap.Int64("recipients", n))
}
