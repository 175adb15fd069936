package notification

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// Publisher is the transport the notifier writes envelopes to.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Notifier publishes workflow notifications without blocking the
// operation that produced them. Publish failures are logged and
// dropped; the ledger mutation has already committed and must not be
// affected by a broker outage.
type Notifier struct {
	publisher Publisher
	timeout   time.Duration
}

func NewNotifier(publisher Publisher) *Notifier {
	return &Notifier{publisher: publisher, timeout: 5 * time.Second}
}

// Emit publishes the payload wrapped in an envelope, keyed by the
// subject id so events for one entity stay ordered per partition. A nil
// publisher makes Emit a no-op.
func (n *Notifier) Emit(eventType EventType, key, actor string, payload any) {
	if n == nil || n.publisher == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[Notifier] Failed to marshal %s payload: %v", eventType, err)
		return
	}
	env := Envelope{
		Type:       eventType,
		OccurredAt: time.Now(),
		Actor:      actor,
		Data:       data,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if err := n.publisher.Publish(ctx, key, env); err != nil {
			log.Printf("[Notifier] Failed to publish %s for %s: %v", eventType, key, err)
		}
	}()
}
