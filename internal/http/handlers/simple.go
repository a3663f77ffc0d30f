package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/MaksimIschenko/giga-gen-project/internal/generate"
	"github.com/MaksimIschenko/giga-gen-project/internal/middleware"
)

// SimpleGenerate runs the synchronous text-to-image pipeline and returns the
// public URL of the stored file.
func (a *App) SimpleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generate.SimpleImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Locale = middleware.LocaleFrom(r.Context())

	res, err := a.Generator.GenerateSimpleImage(r.Context(), req)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, res)
}
