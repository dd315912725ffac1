package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPurchase(t *testing.T) {
	hall := 3
	selections := []SeatSelection{
		{Coordinate: SeatCoordinate{Row: 1, Col: 2}, Fare: FareNormal, Price: decimal.RequireFromString("25.50")},
		{Coordinate: SeatCoordinate{Row: 1, Col: 3}, Fare: FareReduced, Price: decimal.RequireFromString("18.99")},
	}

	p := NewPurchase(7, 42, &hall, "cs_test_1", selections)

	assert.Equal(t, 7, p.BuyerID)
	assert.Equal(t, 42, p.ShowingID)
	assert.Equal(t, "44.49", p.TotalPrice.StringFixed(2))
	require.NotNil(t, p.PaymentSessionID)
	assert.Equal(t, "cs_test_1", *p.PaymentSessionID)

	require.Len(t, p.Seats, 2)
	assert.Equal(t, "B", p.Seats[0].RowLabel)
	assert.Equal(t, 3, p.Seats[0].SeatNumber)
	assert.Equal(t, "B-3", p.Seats[0].SeatText)
	assert.Equal(t, FareReduced, p.Seats[1].Fare)
}

func TestNewPurchaseWithoutSession(t *testing.T) {
	p := NewPurchase(1, 1, nil, "", nil)

	assert.Nil(t, p.PaymentSessionID)
	assert.True(t, p.TotalPrice.IsZero())
}

func TestGenerateRedemptionCode(t *testing.T) {
	seen := make(map[string]bool)

	for range 100 {
		code, err := GenerateRedemptionCode()
		require.NoError(t, err)
		require.Len(t, code, 16)
		require.NotContains(t, code, "+")
		require.NotContains(t, code, "/")
		require.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}
