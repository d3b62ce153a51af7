// Package events announces product changes to a message broker.
package events

import (
	"context"
	"time"

	"inventory/internal/models"

	"go.uber.org/zap"
)

// Type names a product change.
type Type string

const (
	ProductCreated Type = "product.created"
	ProductUpdated Type = "product.updated"
	ProductDeleted Type = "product.deleted"

	publishTimeout = 5 * time.Second
)

// Event is the message body written to the broker.
type Event struct {
	Type       Type            `json:"type"`
	ProductID  string          `json:"product_id"`
	Product    *models.Product `json:"product,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Sink is a broker adapter. Both pkg/rabbitmq.Client and pkg/kafka.Producer
// satisfy it.
type Sink interface {
	Publish(ctx context.Context, key string, v any) error
}

// Notifier publishes product events. A nil *Notifier drops everything.
type Notifier struct {
	sink Sink
	log  *zap.Logger
	now  func() time.Time
}

// NewNotifier returns a Notifier writing to sink, or nil when sink is nil.
func NewNotifier(sink Sink, log *zap.Logger) *Notifier {
	if sink == nil {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{sink: sink, log: log, now: time.Now}
}

// Notify publishes an event for the product. Broker failures are logged and
// never reach the caller: the mutation has already been committed.
func (n *Notifier) Notify(ctx context.Context, typ Type, productID string, product *models.Product) {
	if n == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	event := Event{
		Type:       typ,
		ProductID:  productID,
		Product:    product,
		OccurredAt: n.now().UTC(),
	}
	if err := n.sink.Publish(ctx, productID, event); err != nil {
		n.log.Warn("product event not published",
			zap.String("type", string(typ)),
			zap.String("product_id", productID),
			zap.Error(err),
		)
	}
}
