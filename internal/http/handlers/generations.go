package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/MaksimIschenko/giga-gen-project/internal/history"
)

// ListGenerations returns the most recent generation log entries. The
// endpoint is only live when the service was started with a database.
func (a *App) ListGenerations(w http.ResponseWriter, r *http.Request) {
	if a.History == nil || !a.History.Enabled() {
		a.error(w, http.StatusServiceUnavailable, "history_disabled", "generation history requires a database")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "limit must be an integer")
			return
		}
		limit = n
	}

	entries, err := a.History.Recent(r.Context(), limit)
	if err != nil {
		if errors.Is(err, history.ErrDisabled) {
			a.error(w, http.StatusServiceUnavailable, "history_disabled", "generation history requires a database")
			return
		}
		a.Logger.Error().Err(err).Msg("generations: query failed")
		a.error(w, http.StatusInternalServerError, "internal_error", "could not list generations")
		return
	}
	a.json(w, http.StatusOK, map[string][]history.Entry{"generations": entries})
}
