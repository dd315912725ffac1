package app

import (
	"net/http"

	"github.com/metinatakli/cinema-ticketing/api"
	"github.com/metinatakli/cinema-ticketing/internal/domain"
)

// RequestHoldHandler places a temporary hold on a single seat. A refused hold is not an error:
// the response reports why the seat could not be held.
func (app *Application) RequestHoldHandler(w http.ResponseWriter, r *http.Request) {
	showingID, err := app.readShowingID(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var req api.HoldSeatRequest
	if !app.decodeAndValidate(w, r, &req) {
		return
	}

	coord, err := resolveSeatRequest(req.SeatRequest)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	outcome, err := app.arbiter.BlockSeat(r.Context(), showingID, coord)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := api.HoldResponse{
		Granted: outcome.Granted,
		Reason:  string(outcome.Reason),
		Seat:    toSeatPosition(coord),
	}

	if !outcome.Until.IsZero() {
		until := outcome.Until.UTC()
		resp.HeldUntil = &until
	}

	status := http.StatusOK
	if !outcome.Granted {
		status = http.StatusConflict
	}

	err = app.writeJSON(w, status, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) ReleaseHoldHandler(w http.ResponseWriter, r *http.Request) {
	showingID, err := app.readShowingID(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var req api.ReleaseSeatRequest
	if !app.decodeAndValidate(w, r, &req) {
		return
	}

	coord, err := resolveSeatRequest(req.SeatRequest)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	resp := api.ReleaseSeatResponse{
		Released: app.arbiter.ReleaseSeat(showingID, coord),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// ReleaseHoldsHandler releases several holds at once. Seats that cannot be resolved are
// skipped rather than failing the whole batch.
func (app *Application) ReleaseHoldsHandler(w http.ResponseWriter, r *http.Request) {
	showingID, err := app.readShowingID(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var req api.ReleaseSeatsRequest
	if !app.decodeAndValidate(w, r, &req) {
		return
	}

	logger := app.contextGetLogger(r)

	coords := make([]domain.SeatCoordinate, 0, len(req.Seats))
	for _, seat := range req.Seats {
		coord, err := resolveSeatRequest(seat)
		if err != nil {
			logger.Debug("skipping unresolvable seat in release", "showing_id", showingID, "seat", seat.Seat)
			continue
		}
		coords = append(coords, coord)
	}

	resp := api.ReleaseSeatsResponse{
		Released: app.arbiter.ReleaseSeats(showingID, coords),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
