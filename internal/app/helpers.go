package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/metinatakli/cinema-ticketing/api"
	"github.com/metinatakli/cinema-ticketing/internal/domain"
)

const maxRequestBodyBytes = 1_048_576

func (app *Application) writeJSON(w http.ResponseWriter, status int, data any, headers http.Header) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}

	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)

	return nil
}

func (app *Application) readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytesError.Limit)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

// decodeAndValidate reads the JSON body into dst and validates it, writing the error response
// itself. It reports whether the handler may continue.
func (app *Application) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := app.readJSON(w, r, dst); err != nil {
		app.badRequestResponse(w, r, err)
		return false
	}

	if err := app.validator.Struct(dst); err != nil {
		app.failedValidationResponse(w, r, err)
		return false
	}

	return true
}

func (app *Application) readShowingID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "showingId"))
	if err != nil || id < 1 {
		return 0, errors.New("showing ID must be a positive integer")
	}

	return id, nil
}

func (app *Application) contextGetLogger(r *http.Request) *slog.Logger {
	if logger, ok := r.Context().Value(loggerContextKey).(*slog.Logger); ok {
		return logger
	}

	return app.logger
}

// background runs fn on its own goroutine, tracked so shutdown waits for it.
func (app *Application) background(fn func()) {
	app.wg.Add(1)

	go func() {
		defer app.wg.Done()

		defer func() {
			if err := recover(); err != nil {
				app.logger.Error(fmt.Sprintf("%v", err))
			}
		}()

		fn()
	}()
}

func resolveSeatRequest(req api.SeatRequest) (domain.SeatCoordinate, error) {
	coord, ok := domain.ResolveSeat(domain.SeatAddress{
		RowIndex:   req.Row,
		ColIndex:   req.Col,
		RowLabel:   req.RowLabel,
		SeatNumber: req.SeatNumber,
		SeatText:   req.Seat,
	})
	if !ok {
		return domain.SeatCoordinate{}, domain.ErrUnresolvableSeat
	}

	return coord, nil
}

func toSeatPosition(coord domain.SeatCoordinate) api.SeatPosition {
	return api.SeatPosition{
		Row:        coord.Row,
		Col:        coord.Col,
		RowLabel:   coord.RowLabel(),
		SeatNumber: coord.SeatNumber(),
		Seat:       coord.Label(),
	}
}
