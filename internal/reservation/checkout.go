package reservation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/metinatakli/cinema-ticketing/internal/domain"
)

type CheckoutRequest struct {
	ShowingID  int
	Hall       *int
	Buyer      domain.Buyer
	Seats      []domain.SeatSelection
	SuccessURL string
	CancelURL  string
}

// Checkout opens payment sessions for seat selections.
type Checkout struct {
	payments   domain.PaymentProvider
	sold       *SoldSeatIndex
	logger     *slog.Logger
	successURL string
	cancelURL  string
}

// NewCheckout creates a Checkout whose sessions redirect to successURL and cancelURL unless a
// request carries its own.
func NewCheckout(payments domain.PaymentProvider, sold *SoldSeatIndex, logger *slog.Logger, successURL, cancelURL string) *Checkout {
	return &Checkout{
		payments:   payments,
		sold:       sold,
		logger:     logger,
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

func (c *Checkout) CreatePaymentSession(ctx context.Context, req CheckoutRequest) (*domain.CheckoutSession, error) {
	if len(req.Seats) == 0 {
		return nil, domain.ErrEmptySelection
	}

	for _, sel := range req.Seats {
		if !sel.Coordinate.Valid() {
			return nil, fmt.Errorf("%w: row %d col %d", domain.ErrUnresolvableSeat, sel.Coordinate.Row, sel.Coordinate.Col)
		}
	}

	sold, err := c.sold.SoldSeats(ctx, req.ShowingID)
	if err != nil {
		return nil, err
	}

	lineItems := make([]domain.CheckoutLineItem, 0, len(req.Seats))
	for _, sel := range req.Seats {
		if sold.Has(sel.Coordinate) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSeatAlreadySold, sel.SeatText())
		}

		lineItems = append(lineItems, domain.CheckoutLineItem{
			Name:       "Bilet " + sel.SeatText(),
			UnitAmount: priceCents(sel.Price),
		})
	}

	metadata := make(map[string]string)
	SessionMetadata{ShowingID: req.ShowingID, Hall: req.Hall, BuyerID: req.Buyer.ID}.Apply(metadata)

	if err := AttachSelections(metadata, req.Seats); err != nil {
		return nil, err
	}

	params := domain.CheckoutSessionParams{
		LineItems:     lineItems,
		CustomerEmail: req.Buyer.Email,
		SuccessURL:    firstNonEmpty(req.SuccessURL, c.successURL),
		CancelURL:     firstNonEmpty(req.CancelURL, c.cancelURL),
		Metadata:      metadata,
	}

	session, err := c.payments.CreateCheckoutSession(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	c.logger.InfoContext(ctx, "checkout session created",
		"payment_session_id", session.ID,
		"showing_id", req.ShowingID,
		"buyer_id", req.Buyer.ID,
		"seats", len(req.Seats),
	)

	return session, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
