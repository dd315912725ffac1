package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/metinatakli/cinema-ticketing/internal/domain"
)

const PurchaseFinalizedQueue = "purchase.finalized"

type PurchaseFinalizedEvent struct {
	MessageID        string    `json:"messageId"`
	PurchaseID       int       `json:"purchaseId"`
	BuyerID          int       `json:"buyerId"`
	ShowingID        int       `json:"showingId"`
	Hall             *int      `json:"hall,omitempty"`
	Seats            []string  `json:"seats"`
	TotalAmountCents int64     `json:"totalAmountCents"`
	PaymentSessionID string    `json:"paymentSessionId,omitempty"`
	FinalizedAt      time.Time `json:"finalizedAt"`
}

func NewPurchaseFinalizedEvent(p *domain.Purchase) PurchaseFinalizedEvent {
	seats := make([]string, len(p.Seats))
	for i, s := range p.Seats {
		seats[i] = s.SeatText
	}

	ev := PurchaseFinalizedEvent{
		MessageID:        uuid.NewString(),
		PurchaseID:       p.ID,
		BuyerID:          p.BuyerID,
		ShowingID:        p.ShowingID,
		Hall:             p.Hall,
		Seats:            seats,
		TotalAmountCents: p.TotalPrice.Shift(2).Round(0).IntPart(),
		FinalizedAt:      p.PurchaseDate.UTC(),
	}

	if p.PaymentSessionID != nil {
		ev.PaymentSessionID = *p.PaymentSessionID
	}

	return ev
}

type Publisher interface {
	PublishPurchaseFinalized(ctx context.Context, event PurchaseFinalizedEvent) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishPurchaseFinalized(context.Context, PurchaseFinalizedEvent) error {
	return nil
}

func (NopPublisher) Close() error {
	return nil
}
