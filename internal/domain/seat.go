package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// maxRowLabelLength bounds label decoding so the base-26 value always fits in an int.
const maxRowLabelLength = 6

const (
	// MaxSeatNumber is the highest seat number, and so the highest row, a coordinate may carry.
	MaxSeatNumber = 9999
	MaxSeatIndex  = MaxSeatNumber - 1
)

// SeatCoordinate is the canonical identity of a seat within a showing.
type SeatCoordinate struct {
	Row int
	Col int
}

func (c SeatCoordinate) RowLabel() string {
	return LabelFromRowIndex(c.Row)
}

// SeatNumber is the one-based seat number, or 0 when the column is out of range.
func (c SeatCoordinate) SeatNumber() int {
	if !inRange(c.Col) {
		return 0
	}

	return c.Col + 1
}

// Label returns the composite "<rowLabel>-<seatNumber>" form, e.g. "B-3" for (1, 2).
func (c SeatCoordinate) Label() string {
	return fmt.Sprintf("%s-%d", c.RowLabel(), c.SeatNumber())
}

func (c SeatCoordinate) Valid() bool {
	return inRange(c.Row) && inRange(c.Col)
}

func inRange(index int) bool {
	return index >= 0 && index <= MaxSeatIndex
}

type SeatSet map[SeatCoordinate]struct{}

func NewSeatSet(coords ...SeatCoordinate) SeatSet {
	set := make(SeatSet, len(coords))
	for _, c := range coords {
		set.Add(c)
	}

	return set
}

func (s SeatSet) Add(c SeatCoordinate) {
	s[c] = struct{}{}
}

func (s SeatSet) Has(c SeatCoordinate) bool {
	_, ok := s[c]
	return ok
}

// Sorted returns the coordinates ordered by row, then column.
func (s SeatSet) Sorted() []SeatCoordinate {
	coords := make([]SeatCoordinate, 0, len(s))
	for c := range s {
		coords = append(coords, c)
	}

	sort.Slice(coords, func(i, j int) bool {
		if coords[i].Row != coords[j].Row {
			return coords[i].Row < coords[j].Row
		}
		return coords[i].Col < coords[j].Col
	})

	return coords
}

// SeatAddress carries every surface form a seat may be identified by. Any subset may be set.
type SeatAddress struct {
	RowIndex   *int
	ColIndex   *int
	RowLabel   string
	SeatNumber *int
	SeatText   string
}

// RowIndexFromLabel converts an alphabetic row label ("A", "Z", "AA", ...) to a zero-based
// row index. It reports false when the label contains anything other than letters.
func RowIndexFromLabel(label string) (int, bool) {
	label = strings.ToUpper(strings.TrimSpace(label))
	if label == "" || len(label) > maxRowLabelLength {
		return 0, false
	}

	value := 0
	for i := 0; i < len(label); i++ {
		ch := label[i]
		if ch < 'A' || ch > 'Z' {
			return 0, false
		}
		value = value*26 + int(ch-'A') + 1
	}

	return max(value-1, 0), true
}

// LabelFromRowIndex is the inverse of RowIndexFromLabel: 0 -> "A", 25 -> "Z", 26 -> "AA".
func LabelFromRowIndex(row int) string {
	if row < 0 {
		return ""
	}

	var buf []byte
	for n := row + 1; n > 0; n = (n - 1) / 26 {
		buf = append(buf, byte('A'+(n-1)%26))
	}

	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}

	return string(buf)
}

// ResolveSeat reconciles the surface forms of addr into a coordinate. Explicit indices win over
// label and seat number, which win over the composite seat text; a value taken from a
// higher-priority source is never replaced. Coordinates beyond MaxSeatIndex do not resolve.
func ResolveSeat(addr SeatAddress) (SeatCoordinate, bool) {
	row, col := -1, -1

	if addr.RowIndex != nil && *addr.RowIndex >= 0 {
		row = *addr.RowIndex
	}
	if addr.ColIndex != nil && *addr.ColIndex >= 0 {
		col = *addr.ColIndex
	}

	if row < 0 && addr.RowLabel != "" {
		if r, ok := RowIndexFromLabel(addr.RowLabel); ok {
			row = r
		}
	}
	if col < 0 && addr.SeatNumber != nil && *addr.SeatNumber >= 1 {
		col = *addr.SeatNumber - 1
	}

	if (row < 0 || col < 0) && addr.SeatText != "" {
		label, number, found := strings.Cut(addr.SeatText, "-")
		if found {
			if row < 0 {
				if r, ok := RowIndexFromLabel(label); ok {
					row = r
				}
			}
			if col < 0 {
				if n, err := strconv.Atoi(strings.TrimSpace(number)); err == nil && n >= 1 {
					col = n - 1
				}
			}
		}
	}

	coord := SeatCoordinate{Row: row, Col: col}
	if !coord.Valid() {
		return SeatCoordinate{}, false
	}

	return coord, true
}
