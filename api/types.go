// Package api holds the JSON request and response bodies of the HTTP interface.
package api

import (
	"time"

	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Message   string    `json:"message"`
	RequestId string    `json:"requestId"`
	Timestamp time.Time `json:"timestamp"`
}

type ValidationError struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

type ValidationErrorResponse struct {
	Message          string            `json:"message"`
	RequestId        string            `json:"requestId"`
	Timestamp        time.Time         `json:"timestamp"`
	ValidationErrors []ValidationError `json:"validationErrors"`
}

type SystemInfo struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

type HealthcheckResponse struct {
	Status     string     `json:"status"`
	SystemInfo SystemInfo `json:"systemInfo"`
}

// SeatRequest identifies a seat by any of its forms: zero-based row and col, row label and
// seat number, or composite seat text such as "B-3".
type SeatRequest struct {
	Row        *int   `json:"row,omitempty" validate:"omitempty,min=0,max=9998"`
	Col        *int   `json:"col,omitempty" validate:"omitempty,min=0,max=9998"`
	RowLabel   string `json:"rowLabel,omitempty" validate:"omitempty,row_label"`
	SeatNumber *int   `json:"seatNumber,omitempty" validate:"omitempty,min=1,max=9999"`
	Seat       string `json:"seat,omitempty" validate:"omitempty,max=16"`
}

type HoldSeatRequest struct {
	SeatRequest
}

type SeatPosition struct {
	Row        int    `json:"row"`
	Col        int    `json:"col"`
	RowLabel   string `json:"rowLabel"`
	SeatNumber int    `json:"seatNumber"`
	Seat       string `json:"seat"`
}

type HoldResponse struct {
	Granted   bool         `json:"granted"`
	Reason    string       `json:"reason,omitempty"`
	Seat      SeatPosition `json:"seat"`
	HeldUntil *time.Time   `json:"heldUntil,omitempty"`
}

type ReleaseSeatRequest struct {
	SeatRequest
}

type ReleaseSeatResponse struct {
	Released bool `json:"released"`
}

type ReleaseSeatsRequest struct {
	Seats []SeatRequest `json:"seats" validate:"required,min=1,max=100,dive"`
}

type ReleaseSeatsResponse struct {
	Released int `json:"released"`
}

type UnavailableSeatsResponse struct {
	ShowingId int            `json:"showingId"`
	Seats     []SeatPosition `json:"seats"`
}

type CheckoutSeat struct {
	SeatRequest
	// Fare is a free-form fare name, e.g. "normal", "student" or "Bilet ulgowy".
	Fare  string          `json:"fare,omitempty" validate:"max=64"`
	Price decimal.Decimal `json:"price" validate:"min=0"`
}

type CheckoutSessionRequest struct {
	ShowingId  int            `json:"showingId" validate:"required,min=1"`
	Hall       string         `json:"hall,omitempty" validate:"max=32"`
	Seats      []CheckoutSeat `json:"seats" validate:"required,min=1,max=100,dive"`
	SuccessUrl string         `json:"successUrl,omitempty" validate:"omitempty,url"`
	CancelUrl  string         `json:"cancelUrl,omitempty" validate:"omitempty,url"`
}

type CheckoutSessionResponse struct {
	SessionId   string `json:"sessionId"`
	RedirectUrl string `json:"redirectUrl"`
}

type ConfirmPurchaseRequest struct {
	SessionId string `json:"sessionId" validate:"required,max=255"`
}

type PurchasedSeat struct {
	SeatPosition
	Fare  string          `json:"fare"`
	Price decimal.Decimal `json:"price"`
}

type PurchaseResponse struct {
	Id               int             `json:"id"`
	BuyerId          int             `json:"buyerId"`
	ShowingId        int             `json:"showingId"`
	Hall             *int            `json:"hall"`
	PurchaseDate     time.Time       `json:"purchaseDate"`
	TotalPrice       decimal.Decimal `json:"totalPrice"`
	RedemptionCode   string          `json:"redemptionCode"`
	PaymentSessionId *string         `json:"paymentSessionId"`
	Seats            []PurchasedSeat `json:"seats"`
	QrCodeDataUrl    *string         `json:"qrCodeDataUrl"`
	Created          bool            `json:"created"`
}

type WebhookResponse struct {
	Received bool `json:"received"`
}
