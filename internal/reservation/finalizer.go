package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/metinatakli/cinema-ticketing/internal/clock"
	"github.com/metinatakli/cinema-ticketing/internal/domain"
)

// MaxCodeAttempts bounds how many redemption codes are tried for one purchase.
const MaxCodeAttempts = 5

type FinalizeState string

const (
	StateAwaitingConfirmation FinalizeState = "awaiting_confirmation"
	StateFinalizing           FinalizeState = "finalizing"
	StateFinalized            FinalizeState = "finalized"
	StateRejected             FinalizeState = "rejected"
)

type FinalizeResult struct {
	Purchase *domain.Purchase
	// Created is false when the purchase already existed for the payment session.
	Created bool
}

// Finalizer turns a paid payment session into a persisted purchase exactly once.
type Finalizer struct {
	purchases domain.PurchaseRepository
	payments  domain.PaymentProvider
	sold      *SoldSeatIndex
	arbiter   *Arbiter
	clock     clock.Clock
	logger    *slog.Logger

	generateCode func() (string, error)
	maxAttempts  int
}

type FinalizerOption func(*Finalizer)

// WithCodeGenerator replaces the redemption code source.
func WithCodeGenerator(fn func() (string, error)) FinalizerOption {
	return func(f *Finalizer) {
		f.generateCode = fn
	}
}

func NewFinalizer(
	purchases domain.PurchaseRepository,
	payments domain.PaymentProvider,
	sold *SoldSeatIndex,
	arbiter *Arbiter,
	clk clock.Clock,
	logger *slog.Logger,
	opts ...FinalizerOption) *Finalizer {

	f := &Finalizer{
		purchases:    purchases,
		payments:     payments,
		sold:         sold,
		arbiter:      arbiter,
		clock:        clk,
		logger:       logger,
		generateCode: domain.GenerateRedemptionCode,
		maxAttempts:  MaxCodeAttempts,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// ConfirmPurchase finalizes the purchase paid through the given payment session. Repeated calls
// for the same session return the purchase created by the first one.
func (f *Finalizer) ConfirmPurchase(ctx context.Context, sessionID string) (FinalizeResult, error) {
	logger := f.logger.With("payment_session_id", sessionID)
	logger.DebugContext(ctx, "purchase confirmation requested", "state", StateAwaitingConfirmation)

	if sessionID == "" {
		return FinalizeResult{}, domain.ErrPaymentSessionNotFound
	}

	existing, err := f.purchases.GetByPaymentSessionID(ctx, sessionID)
	switch {
	case err == nil:
		logger.InfoContext(ctx, "purchase already finalized", "state", StateFinalized, "purchase_id", existing.ID)
		return FinalizeResult{Purchase: existing}, nil
	case !errors.Is(err, domain.ErrRecordNotFound):
		return FinalizeResult{}, fmt.Errorf("failed to look up purchase: %w", err)
	}

	session, err := f.payments.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return FinalizeResult{}, err
	}

	if session.PaymentStatus != domain.PaymentStatusPaid {
		return f.reject(ctx, logger, domain.ErrPaymentNotConfirmed)
	}

	meta, selections, err := readSession(session)
	if err != nil {
		return f.reject(ctx, logger, err)
	}

	logger = logger.With("showing_id", meta.ShowingID, "buyer_id", meta.BuyerID)
	logger.InfoContext(ctx, "finalizing purchase", "state", StateFinalizing, "seats", len(selections))

	snapshot, err := f.sold.Snapshot(ctx, meta.ShowingID)
	if err != nil {
		return FinalizeResult{}, err
	}

	for _, sel := range selections {
		if !snapshot.Conflicts(sel) {
			continue
		}

		// the seat may have been sold by a concurrent confirmation of this very session
		if existing, ok := f.finalizedMeanwhile(ctx, sessionID); ok {
			return FinalizeResult{Purchase: existing}, nil
		}

		return f.reject(ctx, logger, fmt.Errorf("%w: %s", domain.ErrPostPaymentConflict, sel.SeatText()))
	}

	purchase := domain.NewPurchase(meta.BuyerID, meta.ShowingID, meta.Hall, sessionID, selections)
	purchase.PurchaseDate = f.clock.Now()

	result, err := f.persist(ctx, &purchase)
	if err != nil {
		return f.reject(ctx, logger, err)
	}

	if !result.Created {
		logger.InfoContext(ctx, "purchase finalized concurrently", "state", StateFinalized, "purchase_id", result.Purchase.ID)
		return result, nil
	}

	coords := make([]domain.SeatCoordinate, len(selections))
	for i, sel := range selections {
		coords[i] = sel.Coordinate
	}
	f.arbiter.ReleaseSeats(meta.ShowingID, coords)

	logger.InfoContext(ctx, "purchase finalized",
		"state", StateFinalized,
		"purchase_id", purchase.ID,
		"total_price", purchase.TotalPrice.StringFixed(2),
	)

	return result, nil
}

// persist stores the purchase under a fresh redemption code. A code collision at insert time
// costs an attempt like one found by the lookup.
func (f *Finalizer) persist(ctx context.Context, purchase *domain.Purchase) (FinalizeResult, error) {
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		code, err := f.generateCode()
		if err != nil {
			return FinalizeResult{}, err
		}

		exists, err := f.purchases.RedemptionCodeExists(ctx, code)
		if err != nil {
			return FinalizeResult{}, err
		}
		if exists {
			continue
		}

		purchase.RedemptionCode = code

		err = f.purchases.Create(ctx, purchase)
		switch {
		case err == nil:
			return FinalizeResult{Purchase: purchase, Created: true}, nil
		case errors.Is(err, domain.ErrDuplicateRedemptionCode):
			continue
		case errors.Is(err, domain.ErrDuplicatePaymentSession):
			existing, err := f.purchases.GetByPaymentSessionID(ctx, *purchase.PaymentSessionID)
			if err != nil {
				return FinalizeResult{}, fmt.Errorf("failed to re-read concurrently created purchase: %w", err)
			}
			return FinalizeResult{Purchase: existing}, nil
		case errors.Is(err, domain.ErrSeatAlreadySold):
			if existing, ok := f.finalizedMeanwhile(ctx, *purchase.PaymentSessionID); ok {
				return FinalizeResult{Purchase: existing}, nil
			}
			return FinalizeResult{}, fmt.Errorf("%w: %w", domain.ErrPostPaymentConflict, err)
		default:
			return FinalizeResult{}, err
		}
	}

	return FinalizeResult{}, domain.ErrCodeGenerationExhausted
}

func (f *Finalizer) finalizedMeanwhile(ctx context.Context, sessionID string) (*domain.Purchase, bool) {
	existing, err := f.purchases.GetByPaymentSessionID(ctx, sessionID)
	if err != nil {
		return nil, false
	}

	return existing, true
}

func (f *Finalizer) reject(ctx context.Context, logger *slog.Logger, err error) (FinalizeResult, error) {
	logger.WarnContext(ctx, "purchase rejected", "state", StateRejected, "reason", err.Error())
	return FinalizeResult{}, err
}

func readSession(session *domain.CheckoutSession) (SessionMetadata, []domain.SeatSelection, error) {
	meta, err := ParseSessionMetadata(session.Metadata)
	if err != nil {
		return SessionMetadata{}, nil, err
	}

	selections := ExtractSelections(session.Metadata)
	if len(selections) == 0 {
		return SessionMetadata{}, nil, fmt.Errorf("%w: no seats", domain.ErrMissingSessionMetadata)
	}

	seen := make(domain.SeatSet, len(selections))
	for _, sel := range selections {
		if seen.Has(sel.Coordinate) {
			return SessionMetadata{}, nil, fmt.Errorf("%w: seat %s listed twice",
				domain.ErrMissingSessionMetadata, sel.SeatText())
		}
		seen.Add(sel.Coordinate)
	}

	return meta, selections, nil
}
