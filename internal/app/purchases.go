package app

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/metinatakli/cinema-ticketing/api"
	"github.com/metinatakli/cinema-ticketing/internal/domain"
	"github.com/metinatakli/cinema-ticketing/internal/events"
	"github.com/metinatakli/cinema-ticketing/internal/mailer"
	"github.com/metinatakli/cinema-ticketing/internal/reservation"
	"github.com/skip2/go-qrcode"
)

const (
	qrCodeSize          = 256
	notificationTimeout = 10 * time.Second
)

// ConfirmPurchaseHandler finalizes the purchase of a paid payment session. The session id is
// the only credential: it is unguessable and only ever handed to the paying buyer.
func (app *Application) ConfirmPurchaseHandler(w http.ResponseWriter, r *http.Request) {
	var req api.ConfirmPurchaseRequest
	if !app.decodeAndValidate(w, r, &req) {
		return
	}

	result, err := app.confirmPurchase(r, req.SessionId)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}

	err = app.writeJSON(w, status, app.toPurchaseResponse(r, result), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// confirmPurchase runs the finalizer and, for a newly created purchase, notifies the buyer and
// downstream consumers in the background.
func (app *Application) confirmPurchase(r *http.Request, sessionID string) (reservation.FinalizeResult, error) {
	result, err := app.finalizer.ConfirmPurchase(r.Context(), sessionID)
	if err != nil {
		return result, err
	}

	if result.Created {
		purchase := *result.Purchase
		app.background(func() {
			app.notifyPurchase(purchase)
		})
	}

	return result, nil
}

// notifyPurchase is best effort: failures are logged and never affect the purchase.
func (app *Application) notifyPurchase(purchase domain.Purchase) {
	ctx, cancel := context.WithTimeout(context.Background(), notificationTimeout)
	defer cancel()

	logger := app.logger.With("purchase_id", purchase.ID)

	err := app.publisher.PublishPurchaseFinalized(ctx, events.NewPurchaseFinalizedEvent(&purchase))
	if err != nil {
		logger.Error("failed to publish purchase event", "error", err)
	}

	buyer, err := app.userRepo.GetById(ctx, purchase.BuyerID)
	if err != nil {
		logger.Error("failed to load buyer for confirmation email", "buyer_id", purchase.BuyerID, "error", err)
		return
	}

	seats := make([]string, len(purchase.Seats))
	for i, seat := range purchase.Seats {
		seats[i] = seat.SeatText
	}

	data := map[string]any{
		"purchaseID":     purchase.ID,
		"firstName":      buyer.FirstName,
		"redemptionCode": purchase.RedemptionCode,
		"seats":          seats,
		"totalPrice":     purchase.TotalPrice.StringFixed(2),
	}

	err = app.mailer.Send(buyer.Email, mailer.PurchaseConfirmationTemplate, data)
	if err != nil {
		logger.Error("failed to send purchase confirmation email", "error", err)
	}
}

func (app *Application) toPurchaseResponse(r *http.Request, result reservation.FinalizeResult) api.PurchaseResponse {
	p := result.Purchase

	resp := api.PurchaseResponse{
		Id:               p.ID,
		BuyerId:          p.BuyerID,
		ShowingId:        p.ShowingID,
		Hall:             p.Hall,
		PurchaseDate:     p.PurchaseDate,
		TotalPrice:       p.TotalPrice,
		RedemptionCode:   p.RedemptionCode,
		PaymentSessionId: p.PaymentSessionID,
		Seats:            make([]api.PurchasedSeat, len(p.Seats)),
		Created:          result.Created,
	}

	for i, seat := range p.Seats {
		resp.Seats[i] = api.PurchasedSeat{
			SeatPosition: toSeatPosition(seat.Coordinate),
			Fare:         string(seat.Fare),
			Price:        seat.Price,
		}
	}

	dataURL, err := qrCodeDataURL(p.RedemptionCode)
	if err != nil {
		app.contextGetLogger(r).Warn("failed to render redemption QR code", "purchase_id", p.ID, "error", err)
	} else {
		resp.QrCodeDataUrl = &dataURL
	}

	return resp
}

func qrCodeDataURL(content string) (string, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, qrCodeSize)
	if err != nil {
		return "", err
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
