package reservation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/metinatakli/cinema-ticketing/internal/domain"
	"github.com/shopspring/decimal"
)

// Payment session metadata keys.
const (
	MetadataShowingID = "showing_id"
	MetadataHall      = "hall"
	MetadataBuyerID   = "buyer_id"
	MetadataSeats     = "seats"

	metadataChunkPrefix = MetadataSeats + "_"
)

const (
	// maxSingleFieldLength is the longest encoding stored under a single metadata key.
	maxSingleFieldLength = 450
	selectionChunkLength = 400

	// Stripe accepts at most 50 metadata keys; three of them are used for the showing, hall
	// and buyer.
	maxMetadataKeys    = 50
	maxSelectionChunks = maxMetadataKeys - 3
)

var hundred = decimal.NewFromInt(100)

// EncodeSelections renders selections as "<row>,<col>,<fareCode>,<priceCents>" tokens joined
// by ";".
func EncodeSelections(selections []domain.SeatSelection) string {
	var b strings.Builder

	for i, sel := range selections {
		if i > 0 {
			b.WriteByte(';')
		}

		fmt.Fprintf(&b, "%d,%d,%c,%d",
			sel.Coordinate.Row,
			sel.Coordinate.Col,
			domain.FareCode(string(sel.Fare)),
			priceCents(sel.Price),
		)
	}

	return b.String()
}

// DecodeSelections is the inverse of EncodeSelections. Malformed tokens and coordinates out of
// range are skipped.
func DecodeSelections(encoded string) []domain.SeatSelection {
	var selections []domain.SeatSelection

	for _, token := range strings.Split(encoded, ";") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		sel, ok := decodeToken(token)
		if !ok {
			continue
		}

		selections = append(selections, sel)
	}

	return selections
}

func decodeToken(token string) (domain.SeatSelection, bool) {
	parts := strings.Split(token, ",")
	if len(parts) != 4 {
		return domain.SeatSelection{}, false
	}

	row, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return domain.SeatSelection{}, false
	}

	col, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return domain.SeatSelection{}, false
	}

	coord := domain.SeatCoordinate{Row: row, Col: col}
	if !coord.Valid() {
		return domain.SeatSelection{}, false
	}

	code := strings.TrimSpace(parts[2])
	if len(code) != 1 {
		return domain.SeatSelection{}, false
	}

	cents, err := strconv.ParseInt(strings.TrimSpace(parts[3]), 10, 64)
	if err != nil {
		return domain.SeatSelection{}, false
	}

	return domain.SeatSelection{
		Coordinate: coord,
		Fare:       domain.FareFromCode(code[0]),
		Price:      decimal.New(cents, -2),
	}, true
}

// priceCents converts a price to minor units, rounding half away from zero.
func priceCents(price decimal.Decimal) int64 {
	return price.Mul(hundred).Round(0).IntPart()
}

// AttachSelections stores the encoded selections in metadata, split into numbered chunks when
// the encoding is too long for a single field.
func AttachSelections(metadata map[string]string, selections []domain.SeatSelection) error {
	encoded := EncodeSelections(selections)

	if len(encoded) <= maxSingleFieldLength {
		metadata[MetadataSeats] = encoded
		return nil
	}

	chunks := (len(encoded) + selectionChunkLength - 1) / selectionChunkLength
	if chunks > maxSelectionChunks {
		return fmt.Errorf("%w: %d chunks needed, at most %d allowed",
			domain.ErrSelectionTooLarge, chunks, maxSelectionChunks)
	}

	for i := 0; i < chunks; i++ {
		end := min((i+1)*selectionChunkLength, len(encoded))
		metadata[metadataChunkPrefix+strconv.Itoa(i+1)] = encoded[i*selectionChunkLength : end]
	}

	return nil
}

// ExtractSelections reads the selections attached by AttachSelections. The single field wins
// when present; otherwise numbered chunks are joined in numeric order.
func ExtractSelections(metadata map[string]string) []domain.SeatSelection {
	if encoded := metadata[MetadataSeats]; encoded != "" {
		return DecodeSelections(encoded)
	}

	type chunk struct {
		index int
		value string
	}

	var chunks []chunk
	for key, value := range metadata {
		suffix, ok := strings.CutPrefix(key, metadataChunkPrefix)
		if !ok {
			continue
		}

		index, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}

		chunks = append(chunks, chunk{index: index, value: value})
	}

	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].index < chunks[j].index
	})

	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.value)
	}

	return DecodeSelections(b.String())
}

// ParseHall normalises a hall value such as "3", "Sala 3" or "sala-3" to its number.
func ParseHall(value string) (int, bool) {
	value = strings.TrimSpace(value)

	if len(value) >= 4 && strings.EqualFold(value[:4], "sala") {
		value = strings.TrimSpace(value[4:])
		value = strings.TrimSpace(strings.TrimLeft(value, "-"))
	}

	hall, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}

	return hall, true
}

// SessionMetadata is the purchase context carried by a payment session besides the seats.
type SessionMetadata struct {
	ShowingID int
	Hall      *int
	BuyerID   int
}

func (m SessionMetadata) Apply(metadata map[string]string) {
	metadata[MetadataShowingID] = strconv.Itoa(m.ShowingID)
	metadata[MetadataBuyerID] = strconv.Itoa(m.BuyerID)

	if m.Hall != nil {
		metadata[MetadataHall] = strconv.Itoa(*m.Hall)
	} else {
		metadata[MetadataHall] = ""
	}
}

// ParseSessionMetadata reads the showing, hall and buyer back. A missing or non-numeric showing
// or buyer id is reported as ErrMissingSessionMetadata; an unreadable hall is left nil.
func ParseSessionMetadata(metadata map[string]string) (SessionMetadata, error) {
	var m SessionMetadata

	showingID, err := strconv.Atoi(strings.TrimSpace(metadata[MetadataShowingID]))
	if err != nil {
		return m, fmt.Errorf("%w: showing id", domain.ErrMissingSessionMetadata)
	}

	buyerID, err := strconv.Atoi(strings.TrimSpace(metadata[MetadataBuyerID]))
	if err != nil || buyerID <= 0 {
		return m, fmt.Errorf("%w: buyer id", domain.ErrMissingSessionMetadata)
	}

	m.ShowingID = showingID
	m.BuyerID = buyerID

	if hall, ok := ParseHall(metadata[MetadataHall]); ok {
		m.Hall = &hall
	}

	return m, nil
}
