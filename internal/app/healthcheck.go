package app

import (
	"context"
	"net/http"
	"time"

	"github.com/metinatakli/cinema-ticketing/api"
)

func (app *Application) GetHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "UP"
	code := http.StatusOK

	if app.db != nil {
		if err := app.db.Ping(ctx); err != nil {
			app.contextGetLogger(r).Warn("database ping failed", "error", err)
			status, code = "DOWN", http.StatusServiceUnavailable
		}
	}

	if app.redis != nil {
		if err := app.redis.Ping(ctx).Err(); err != nil {
			app.contextGetLogger(r).Warn("redis ping failed", "error", err)
			status, code = "DOWN", http.StatusServiceUnavailable
		}
	}

	resp := api.HealthcheckResponse{
		Status: status,
		SystemInfo: api.SystemInfo{
			Version:     version,
			Environment: app.config.Env,
		},
	}

	err := app.writeJSON(w, code, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
