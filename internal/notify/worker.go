package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/samajportal/apiserver/internal/metrics"
	"github.com/samajportal/apiserver/internal/mq"
)

// Worker consumes queued envelopes and stores them.
type Worker struct {
	sub     Subscriber
	channel string
	store   Store
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewWorker constructs a Worker consuming channel into store.
func NewWorker(sub Subscriber, channel string, store Store, logger *zap.Logger, m *metrics.Metrics) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{sub: sub, channel: channel, store: store, logger: logger, metrics: m}
}

// Run blocks until ctx is cancelled or the subscription fails.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("notification worker started", zap.String("channel", w.channel))
	err := w.sub.Subscribe(ctx, w.channel, w.Handle)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Handle stores one envelope. Undecodable or invalid envelopes are
// acknowledged and dropped; store failures are returned for redelivery.
func (w *Worker) Handle(ctx context.Context, msg mq.Message) error {
	var env Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		w.drop(msg, err)
		return nil
	}
	if err := env.Validate(); err != nil {
		w.drop(msg, err)
		return nil
	}

	if env.Broadcast {
		n, err := w.store.InsertBroadcast(ctx, env.Title, env.Body)
		if err != nil {
			return fmt.Errorf("store broadcast: %w", err)
		}
		w.logger.Info("broadcast stored", zap.String("message_id", msg.ID), zap.Int64("recipients", n))
	} else if err := w.store.Insert(ctx, env.MemberID, env.Title, env.Body); err != nil {
		return fmt.Errorf("store notification for member %d: %w", env.MemberID, err)
	}
	w.metrics.ObserveNotification(ResultStored)
	return nil
}

func (w *Worker) drop(msg mq.Message, err error) {
	w.metrics.ObserveNotification(ResultDropped)
	w.logger.Warn("dropping malformed notification", zap.String("message_id", msg.ID), zap.Error(err))
}
