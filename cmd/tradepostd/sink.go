package main

import (
	"context"
	"log/slog"
	"time"

	"tradepost/native/trade"
	"tradepost/observability"
	"tradepost/storage"
)

const auditTimeout = 5 * time.Second

// engineSink fans engine events out to the log, the metrics registry and the
// audit log. Notify is fire-and-forget: failures are logged, never surfaced.
type engineSink struct {
	logger  *slog.Logger
	store   *storage.Store
	metrics *observability.TradeMetrics
}

func newEngineSink(logger *slog.Logger, store *storage.Store) *engineSink {
	return &engineSink{logger: logger, store: store, metrics: observability.Trade()}
}

func (s *engineSink) Notify(evt trade.Event) {
	attrs := []any{"event", evt.Type}
	if evt.Offer != nil {
		attrs = append(attrs, "offer", evt.Offer.ID, "creator", evt.Offer.Creator)
	}
	if evt.Level == trade.LevelWarning {
		s.logger.Warn(evt.Message, attrs...)
	} else {
		s.logger.Info(evt.Message, attrs...)
	}

	switch evt.Type {
	case trade.EventTypeOfferCreated:
		s.metrics.OffersCreated.Inc()
	case trade.EventTypeOfferCompleted:
		s.metrics.OffersCompleted.Inc()
		if evt.Offer != nil {
			s.metrics.FeesCollected.Add(float64(evt.Offer.Fee))
		}
	case trade.EventTypeOfferCancelled:
		s.metrics.OffersCancelled.Inc()
	case trade.EventTypeOfferExpired:
		s.metrics.OffersExpired.Inc()
	case trade.EventTypeIntegrityViolation:
		s.metrics.IntegrityViolations.Inc()
	}

	if evt.Offer == nil || !evt.Offer.Status.Terminal() || evt.Type == trade.EventTypeIntegrityViolation {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
	defer cancel()
	if err := s.store.AppendAudit(ctx, evt.Offer); err != nil {
		s.logger.Error("append audit entry", "offer", evt.Offer.ID, "err", err)
	}
}
