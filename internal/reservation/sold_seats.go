package reservation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/metinatakli/cinema-ticketing/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/metinatakli/cinema-ticketing/internal/reservation"

type SoldSeatReader interface {
	GetSoldSeatsByShowing(ctx context.Context, showingID int) ([]domain.SoldSeatRow, error)
}

// SoldSeatIndex derives the seats already sold for a showing from persisted purchases. It is
// authoritative over the hold store.
type SoldSeatIndex struct {
	reader     SoldSeatReader
	logger     *slog.Logger
	unresolved metric.Int64Counter
}

func NewSoldSeatIndex(reader SoldSeatReader, logger *slog.Logger) *SoldSeatIndex {
	// The global meter provider is a no-op until telemetry is initialised, so errors here
	// only mean a missing instrument.
	unresolved, _ := otel.Meter(instrumentationName).Int64Counter(
		"reservation.sold_seats.unresolved",
		metric.WithDescription("Persisted sold seats whose coordinate could not be resolved"),
	)

	return &SoldSeatIndex{
		reader:     reader,
		logger:     logger,
		unresolved: unresolved,
	}
}

// SoldSeatSnapshot is the set of sold seats of one showing at one point in time, indexed by
// every seat form persisted rows have used.
type SoldSeatSnapshot struct {
	Coordinates domain.SeatSet
	labelPairs  map[string]struct{}
	seatTexts   map[string]struct{}
}

func (i *SoldSeatIndex) SoldSeats(ctx context.Context, showingID int) (domain.SeatSet, error) {
	snapshot, err := i.Snapshot(ctx, showingID)
	if err != nil {
		return nil, err
	}

	return snapshot.Coordinates, nil
}

// Snapshot reads the sold seats of the showing. Rows that resolve to no coordinate are
// skipped and counted, but their label and text forms still take part in conflict checks.
func (i *SoldSeatIndex) Snapshot(ctx context.Context, showingID int) (*SoldSeatSnapshot, error) {
	rows, err := i.reader.GetSoldSeatsByShowing(ctx, showingID)
	if err != nil {
		return nil, fmt.Errorf("failed to read sold seats of showing %d: %w", showingID, err)
	}

	snapshot := &SoldSeatSnapshot{
		Coordinates: make(domain.SeatSet, len(rows)),
		labelPairs:  make(map[string]struct{}),
		seatTexts:   make(map[string]struct{}),
	}

	skipped := 0

	for _, row := range rows {
		if row.RowLabel != "" && row.SeatNumber != nil {
			snapshot.labelPairs[labelPairKey(row.RowLabel, *row.SeatNumber)] = struct{}{}
		}
		if row.SeatText != "" {
			snapshot.seatTexts[normalizeSeatText(row.SeatText)] = struct{}{}
		}

		coord, ok := domain.ResolveSeat(row.Address())
		if !ok {
			skipped++
			continue
		}

		snapshot.Coordinates.Add(coord)
		snapshot.labelPairs[labelPairKey(coord.RowLabel(), coord.SeatNumber())] = struct{}{}
		snapshot.seatTexts[normalizeSeatText(coord.Label())] = struct{}{}
	}

	if skipped > 0 {
		i.logger.WarnContext(ctx, "skipped sold seats with unresolvable identity",
			"showing_id", showingID,
			"count", skipped,
		)
		i.unresolved.Add(ctx, int64(skipped), metric.WithAttributes(attribute.Int("showing_id", showingID)))
	}

	return snapshot, nil
}

// Conflicts reports whether sel matches a sold seat by coordinate, by row label and seat
// number, or by composite seat text.
func (s *SoldSeatSnapshot) Conflicts(sel domain.SeatSelection) bool {
	if s.Coordinates.Has(sel.Coordinate) {
		return true
	}

	if _, ok := s.labelPairs[labelPairKey(sel.RowLabel(), sel.SeatNumber())]; ok {
		return true
	}

	_, ok := s.seatTexts[normalizeSeatText(sel.SeatText())]
	return ok
}

func labelPairKey(rowLabel string, seatNumber int) string {
	return fmt.Sprintf("%s|%d", strings.ToUpper(strings.TrimSpace(rowLabel)), seatNumber)
}

func normalizeSeatText(text string) string {
	return strings.ToUpper(strings.ReplaceAll(text, " ", ""))
}
