package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SeatSelection is one seat a buyer pays for: where it is, its fare class and its price.
type SeatSelection struct {
	Coordinate SeatCoordinate
	Fare       FareClass
	Price      decimal.Decimal
}

func (s SeatSelection) RowLabel() string {
	return s.Coordinate.RowLabel()
}

func (s SeatSelection) SeatNumber() int {
	return s.Coordinate.SeatNumber()
}

func (s SeatSelection) SeatText() string {
	return s.Coordinate.Label()
}

type Purchase struct {
	ID               int
	BuyerID          int
	ShowingID        int
	Hall             *int
	PurchaseDate     time.Time
	TotalPrice       decimal.Decimal
	RedemptionCode   string
	PaymentSessionID *string
	Seats            []SoldSeat
}

// SoldSeat is a purchase line item. New rows always carry every seat form.
type SoldSeat struct {
	Coordinate SeatCoordinate
	RowLabel   string
	SeatNumber int
	SeatText   string
	Price      decimal.Decimal
	Fare       FareClass
}

func NewSoldSeat(sel SeatSelection) SoldSeat {
	return SoldSeat{
		Coordinate: sel.Coordinate,
		RowLabel:   sel.RowLabel(),
		SeatNumber: sel.SeatNumber(),
		SeatText:   sel.SeatText(),
		Price:      sel.Price,
		Fare:       sel.Fare,
	}
}

// SoldSeatRow is a persisted line item as read back from storage. Historical rows may carry
// only some of the seat forms.
type SoldSeatRow struct {
	RowIndex   *int
	ColIndex   *int
	RowLabel   string
	SeatNumber *int
	SeatText   string
}

func (r SoldSeatRow) Address() SeatAddress {
	return SeatAddress{
		RowIndex:   r.RowIndex,
		ColIndex:   r.ColIndex,
		RowLabel:   r.RowLabel,
		SeatNumber: r.SeatNumber,
		SeatText:   r.SeatText,
	}
}

// NewPurchase builds an unsaved purchase whose total is the sum of its seat prices.
func NewPurchase(buyerID, showingID int, hall *int, sessionID string, selections []SeatSelection) Purchase {
	seats := make([]SoldSeat, len(selections))
	total := decimal.Zero

	for i, sel := range selections {
		seats[i] = NewSoldSeat(sel)
		total = total.Add(sel.Price)
	}

	purchase := Purchase{
		BuyerID:    buyerID,
		ShowingID:  showingID,
		Hall:       hall,
		TotalPrice: total,
		Seats:      seats,
	}

	if sessionID != "" {
		purchase.PaymentSessionID = &sessionID
	}

	return purchase
}

type PurchaseRepository interface {
	Create(ctx context.Context, purchase *Purchase) error
	GetByPaymentSessionID(ctx context.Context, sessionID string) (*Purchase, error)
	RedemptionCodeExists(ctx context.Context, code string) (bool, error)
	GetSoldSeatsByShowing(ctx context.Context, showingID int) ([]SoldSeatRow, error)
}
