package app

import (
	"net/http"

	"github.com/metinatakli/cinema-ticketing/api"
)

// ListUnavailableSeatsHandler lists the seats of a showing that are sold or currently held.
func (app *Application) ListUnavailableSeatsHandler(w http.ResponseWriter, r *http.Request) {
	showingID, err := app.readShowingID(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	coords, err := app.arbiter.BlockedSeats(r.Context(), showingID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := api.UnavailableSeatsResponse{
		ShowingId: showingID,
		Seats:     make([]api.SeatPosition, len(coords)),
	}

	for i, coord := range coords {
		resp.Seats[i] = toSeatPosition(coord)
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
