package publisher

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fjod/butchershop/internal/events"
	r "github.com/fjod/butchershop/internal/orders/repository"
)

const batchSize = 100

// OutboxPoller forwards order changes written to the outbox table to the event publisher.
// Rows are marked processed only after a successful publish, so delivery is at least once.
type OutboxPoller struct {
	eventTick time.Duration
	repo      r.OutboxRepository
	publisher events.Publisher
	log       *zap.Logger
}

func NewOutboxPoller(repo r.OutboxRepository, publisher events.Publisher, eventTick time.Duration, log *zap.Logger) *OutboxPoller {
	if eventTick <= 0 {
		eventTick = time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OutboxPoller{
		eventTick: eventTick,
		repo:      repo,
		publisher: publisher,
		log:       log,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	defer eventTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) int {
	pending, err := p.repo.GetUnprocessedEvents(ctx, batchSize)
	if err != nil {
		p.log.Warn("failed to fetch outbox events", zap.Error(err))
		return 0
	}

	published := 0
	for _, row := range pending {
		ev := events.Event{
			Type:        events.Type(row.EventType),
			AggregateID: row.AggregateId,
			Payload:     row.Payload,
			OccurredAt:  row.CreatedAt,
		}
		if err := p.publisher.Publish(ctx, ev); err != nil {
			p.log.Warn("failed to publish outbox event", zap.Int64("event_id", row.ID), zap.Error(err))
			continue
		}

		if err := p.repo.MarkEventAsProcessed(ctx, row.ID); err != nil {
			p.log.Warn("failed to mark outbox event as processed", zap.Int64("event_id", row.ID), zap.Error(err))
			continue
		}
		published++
	}
	return published
}
