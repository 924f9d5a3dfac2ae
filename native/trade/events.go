package trade

// Event types emitted by the engine as offers move through their lifecycle.
const (
	EventTypeOfferCreated       = "trade.offer.created"
	EventTypeOfferCompleted     = "trade.offer.completed"
	EventTypeOfferCancelled     = "trade.offer.cancelled"
	EventTypeOfferExpired       = "trade.offer.expired"
	EventTypeIntegrityViolation = "trade.offer.integrity_violation"
)

// Event levels for sinks that distinguish routine notifications from
// anomalies.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
)

// Event is the fire-and-forget notification payload handed to the sink. The
// offer is a clone; sinks may retain it.
type Event struct {
	Type    string
	Level   string
	Offer   *Offer
	Message string
}

// NotificationSink receives engine lifecycle events. The engine ignores the
// sink's behaviour entirely; a slow or failing sink must not block trading.
type NotificationSink interface {
	Notify(evt Event)
}

// NoopSink discards all events. It is the engine's default sink.
type NoopSink struct{}

// Notify implements NotificationSink.
func (NoopSink) Notify(Event) {}

func newOfferEvent(eventType, level string, offer *Offer, message string) Event {
	return Event{Type: eventType, Level: level, Offer: offer.Clone(), Message: message}
}
