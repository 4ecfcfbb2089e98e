// Package events consumes the domain events published by the API.
package events

import (
	"context"

	log "github.com/sirupsen/logrus"

	"attendboard/internal/metrics"
	"attendboard/internal/queue"
)

// CacheRefresher reloads the live banner cache.
type CacheRefresher interface {
	RefreshCache(ctx context.Context) error
}

// Consumer dispatches queue messages.
type Consumer struct {
	banners CacheRefresher
}

// NewConsumer creates a consumer that refreshes banners on banner.changed.
func NewConsumer(banners CacheRefresher) *Consumer {
	return &Consumer{banners: banners}
}

// Run consumes q until ctx is done.
func (c *Consumer) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	for msg := range messages {
		c.Handle(ctx, msg)
	}
	return nil
}

// Handle processes a single message. Failures are logged, never retried.
func (c *Consumer) Handle(ctx context.Context, msg queue.Message) {
	metrics.QueueEvents.WithLabelValues(msg.Type).Inc()

	switch msg.Type {
	case queue.TypeBannerChanged:
		var evt queue.BannerEvent
		if err := msg.Decode(&evt); err != nil {
			log.WithError(err).Warn("malformed banner event")
			return
		}
		if err := c.banners.RefreshCache(ctx); err != nil {
			log.WithError(err).WithField("banner_id", evt.BannerID).Warn("banner cache refresh failed")
			return
		}
		log.WithFields(log.Fields{"banner_id": evt.BannerID, "action": evt.Action}).Debug("banner cache refreshed")

	case queue.TypeClockIn, queue.TypeClockOut:
		var evt queue.AttendanceEvent
		if err := msg.Decode(&evt); err != nil {
			log.WithError(err).Warn("malformed attendance event")
			return
		}
		log.WithFields(log.Fields{"type": msg.Type, "user_id": evt.UserID, "record_id": evt.RecordID}).Info("attendance event")

	default:
		log.WithField("type", msg.Type).Debug("ignoring unknown event")
	}
}
