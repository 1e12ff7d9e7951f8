package payment

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"tourbooking/internal/domain"
)

// HandleEvent runs the webhook state machine. Succeeded payments go through
// Reconcile, which re-reads the payment from the provider instead of trusting
// the pushed status. Everything else is only recorded.
func (r *Reconciler) HandleEvent(ctx context.Context, ev WebhookEvent) {
	meta := metadata(ev.Metadata)
	log := r.log.WithFields(logrus.Fields{
		"payment_id":        ev.ID,
		"status":            ev.Status,
		"booking_reference": meta.reference(),
		"source":            domain.SourceWebhook,
	})

	if ev.ID == "" {
		log.Warn("webhook event without payment id ignored")
		return
	}

	switch {
	case ev.Status.Succeeded():
		res := r.Reconcile(ctx, ReconcileInput{
			PaymentID:        ev.ID,
			BookingReference: meta.reference(),
			Metadata:         ev.Metadata,
			Source:           domain.SourceWebhook,
		})
		entry := log.WithFields(logrus.Fields{"success": res.Success, "linked": res.BookingLinked, "already_paid": res.AlreadyPaid})
		if res.Success {
			entry.Info(res.Message)
		} else {
			entry.Error(res.Message)
		}
	case ev.Status.Terminal():
		log.Info("payment did not complete")
		r.recordEvent(ctx, ev, OutcomeIgnored)
	default:
		log.Warn("unhandled webhook status")
		r.recordEvent(ctx, ev, OutcomeUnknownStatus)
	}
}

func (r *Reconciler) recordEvent(ctx context.Context, ev WebhookEvent, outcome string) {
	if r.events == nil {
		return
	}
	pe := &domain.PaymentEvent{
		PaymentID:        ev.ID,
		BookingReference: metadata(ev.Metadata).reference(),
		Status:           string(ev.Status),
		Source:           domain.SourceWebhook,
		Amount:           ev.Amount.Value,
		Outcome:          outcome,
	}
	if raw, err := json.Marshal(ev); err == nil {
		pe.Payload = datatypes.JSON(raw)
	}
	if err := r.events.Record(ctx, pe); err != nil {
		r.log.WithError(err).WithField("payment_id", ev.ID).Warn("recording webhook event failed")
	}
}
