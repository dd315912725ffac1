package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/metinatakli/cinema-ticketing/api"
	"github.com/metinatakli/cinema-ticketing/internal/domain"
	"github.com/metinatakli/cinema-ticketing/internal/reservation"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const maxWebhookBodyBytes = 65536

func (app *Application) CreateCheckoutSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req api.CheckoutSessionRequest
	if !app.decodeAndValidate(w, r, &req) {
		return
	}

	selections := make([]domain.SeatSelection, 0, len(req.Seats))
	seen := make(domain.SeatSet, len(req.Seats))

	for _, seat := range req.Seats {
		coord, err := resolveSeatRequest(seat.SeatRequest)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}

		if seen.Has(coord) {
			app.badRequestResponse(w, r, fmt.Errorf("seat %s is selected more than once", coord.Label()))
			return
		}
		seen.Add(coord)

		selections = append(selections, domain.SeatSelection{
			Coordinate: coord,
			Fare:       domain.ParseFareClass(seat.Fare),
			Price:      seat.Price,
		})
	}

	userId := app.contextGetUserId(r)
	buyer, err := app.userRepo.GetById(r.Context(), userId)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	checkoutReq := reservation.CheckoutRequest{
		ShowingID:  req.ShowingId,
		Buyer:      *buyer,
		Seats:      selections,
		SuccessURL: req.SuccessUrl,
		CancelURL:  req.CancelUrl,
	}

	if hall, ok := reservation.ParseHall(req.Hall); ok {
		checkoutReq.Hall = &hall
	}

	session, err := app.checkout.CreatePaymentSession(r.Context(), checkoutReq)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	resp := api.CheckoutSessionResponse{
		SessionId:   session.ID,
		RedirectUrl: session.URL,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// StripeWebhookHandler finalizes purchases for completed checkout sessions. Events that can
// never succeed are acknowledged so the provider stops redelivering them; other failures
// answer 500 to get a retry.
func (app *Application) StripeWebhookHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		app.badRequestResponse(w, r, errors.New("unable to read webhook body"))
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		r.Header.Get("Stripe-Signature"),
		app.config.Stripe.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		logger.Warn("rejected webhook with invalid signature", "error", err)
		app.badRequestResponse(w, r, errors.New("invalid webhook signature"))
		return
	}

	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		logger.Debug("ignoring webhook event", "event_id", event.ID, "type", event.Type)
		err = app.writeJSON(w, http.StatusOK, api.WebhookResponse{Received: true}, nil)
		if err != nil {
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("malformed checkout session payload: %w", err))
		return
	}

	_, err = app.confirmPurchase(r, cs.ID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrPaymentNotConfirmed),
		errors.Is(err, domain.ErrMissingSessionMetadata),
		errors.Is(err, domain.ErrPostPaymentConflict),
		errors.Is(err, domain.ErrPaymentSessionNotFound):
		logger.Warn("webhook purchase not finalized", "event_id", event.ID, "payment_session_id", cs.ID, "error", err)
	default:
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, api.WebhookResponse{Received: true}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
