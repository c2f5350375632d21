// Package projector consumes lifecycle events: it drops stale cached views
// and keeps the recent-activity feed.
package projector

import (
	"context"
	"fmt"
	"strings"
	"time"

	kafkax "github.com/ariefcatur/assettrack/internal/kafka"
	"github.com/ariefcatur/assettrack/internal/obs"
	"github.com/ariefcatur/assettrack/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
)

// Sink is implemented by redisx.Cache.
type Sink interface {
	ClaimEvent(ctx context.Context, consumer, eventID string) (bool, error)
	ReleaseEvent(ctx context.Context, consumer, eventID string) error
	InvalidateViews(ctx context.Context) error
	PushActivity(ctx context.Context, entry any) error
}

// Activity is one entry of the feed served by GET /activity.
type Activity struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	OrderID    string    `json:"order_id,omitempty"`
	Summary    string    `json:"summary"`
	Producer   string    `json:"producer"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Service struct {
	Sink        Sink
	ServiceName string
}

// Handle is installed as the consumer handler.
func (s *Service) Handle(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		// poison message: log and commit
		obs.Logger.Error("event_decode_failed", "topic", m.Topic, "offset", m.Offset, "error", err)
		return nil
	}
	return s.Apply(ctx, env)
}

// Apply projects one envelope, at most once per event id.
func (s *Service) Apply(ctx context.Context, env orders.Envelope) error {
	claimed, err := s.Sink.ClaimEvent(ctx, s.ServiceName, env.EventID)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	entry, derr := describe(env)
	if derr != nil {
		obs.Logger.Warn("event_payload_invalid", "event_id", env.EventID, "event_type", env.EventType, "error", derr)
		entry.Summary = env.EventType
	}
	if err = s.Sink.InvalidateViews(ctx); err == nil {
		err = s.Sink.PushActivity(ctx, entry)
	}
	if err != nil {
		if rerr := s.Sink.ReleaseEvent(ctx, s.ServiceName, env.EventID); rerr != nil {
			obs.Logger.Warn("event_release_failed", "event_id", env.EventID, "error", rerr)
		}
		return err
	}
	obs.Logger.Info("event_projected", "event_id", env.EventID, "event_type", env.EventType, "order_id", entry.OrderID, "trace_id", env.TraceID)
	return nil
}

func describe(env orders.Envelope) (Activity, error) {
	a := Activity{
		EventID:    env.EventID,
		EventType:  env.EventType,
		OrderID:    env.CorrelationID,
		Producer:   env.Producer,
		OccurredAt: env.OccurredAt,
	}
	switch env.EventType {
	case orders.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
		if err != nil {
			return a, err
		}
		a.OrderID = p.OrderID
		a.Summary = fmt.Sprintf("order %s placed: %d units on %d lines", p.OrderID, p.Units, len(p.RowIDs))
	case orders.EventItemsConfirmed:
		p, err := kafkax.UnwrapPayload[orders.ItemsConfirmedPayload](env.Payload)
		if err != nil {
			return a, err
		}
		a.OrderID = p.OrderID
		a.Summary = fmt.Sprintf("%d units confirmed on order %s", len(p.ItemIDs), p.OrderID)
		if len(p.Serials) > 0 {
			a.Summary += " (" + strings.Join(p.Serials, ", ") + ")"
		}
	case orders.EventItemDeployed:
		p, err := kafkax.UnwrapPayload[orders.ItemDeployedPayload](env.Payload)
		if err != nil {
			return a, err
		}
		a.OrderID = p.OrderID
		a.Summary = fmt.Sprintf("%s deployed to %s by %s", unitName(p.SerialNumber, p.ConfirmedItemID), p.DeploymentLocation, p.DeployedBy)
	case orders.EventItemUndeployed:
		p, err := kafkax.UnwrapPayload[orders.ItemUndeployedPayload](env.Payload)
		if err != nil {
			return a, err
		}
		a.OrderID = p.OrderID
		a.Summary = fmt.Sprintf("%s returned to stock", unitName(p.SerialNumber, p.ConfirmedItemID))
	case orders.EventProductChanged:
		p, err := kafkax.UnwrapPayload[orders.ProductChangedPayload](env.Payload)
		if err != nil {
			return a, err
		}
		a.Summary = fmt.Sprintf("product %d %s", p.ProductID, p.Action)
	default:
		a.Summary = env.EventType
	}
	return a, nil
}

func unitName(serial string, confirmedItemID int64) string {
	if serial != "" {
		return serial
	}
	return fmt.Sprintf("unit #%d", confirmedItemID)
}
