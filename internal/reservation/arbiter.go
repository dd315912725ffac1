package reservation

import (
	"context"
	"log/slog"
	"time"

	"github.com/metinatakli/cinema-ticketing/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Arbiter decides whether a seat may be held by combining persisted sales with live holds.
// Sales always win over holds.
type Arbiter struct {
	sold     *SoldSeatIndex
	holds    *HoldStore
	logger   *slog.Logger
	requests metric.Int64Counter
}

func NewArbiter(sold *SoldSeatIndex, holds *HoldStore, logger *slog.Logger) *Arbiter {
	requests, _ := otel.Meter(instrumentationName).Int64Counter(
		"reservation.holds.requests",
		metric.WithDescription("Seat hold requests by outcome"),
	)

	return &Arbiter{
		sold:     sold,
		holds:    holds,
		logger:   logger,
		requests: requests,
	}
}

// BlockSeat tries to hold coord for the showing. A store error is returned as is and no hold
// is placed.
func (a *Arbiter) BlockSeat(ctx context.Context, showingID int, coord domain.SeatCoordinate) (domain.HoldOutcome, error) {
	sold, err := a.sold.SoldSeats(ctx, showingID)
	if err != nil {
		return domain.HoldOutcome{}, err
	}

	var outcome domain.HoldOutcome

	if sold.Has(coord) {
		outcome = domain.HoldRejected(domain.RejectionAlreadySold, time.Time{})
	} else if granted, until := a.holds.TryHold(showingID, coord); granted {
		outcome = domain.HoldGranted(until)
	} else {
		outcome = domain.HoldRejected(domain.RejectionAlreadyBlocked, until)
	}

	a.record(ctx, showingID, coord, outcome)

	return outcome, nil
}

// BlockedSeats returns every seat of the showing that is held or sold, ordered by row and
// column.
func (a *Arbiter) BlockedSeats(ctx context.Context, showingID int) ([]domain.SeatCoordinate, error) {
	sold, err := a.sold.SoldSeats(ctx, showingID)
	if err != nil {
		return nil, err
	}

	for coord := range a.holds.ActiveHolds(showingID) {
		sold.Add(coord)
	}

	return sold.Sorted(), nil
}

func (a *Arbiter) ReleaseSeat(showingID int, coord domain.SeatCoordinate) bool {
	return a.holds.Release(showingID, coord)
}

func (a *Arbiter) ReleaseSeats(showingID int, coords []domain.SeatCoordinate) int {
	return a.holds.ReleaseMany(showingID, coords)
}

func (a *Arbiter) record(ctx context.Context, showingID int, coord domain.SeatCoordinate, outcome domain.HoldOutcome) {
	result := "granted"
	if !outcome.Granted {
		result = string(outcome.Reason)
	}

	a.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", result)))

	a.logger.DebugContext(ctx, "seat hold requested",
		"showing_id", showingID,
		"seat", coord.Label(),
		"outcome", result,
	)
}
