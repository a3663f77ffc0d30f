package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/MaksimIschenko/giga-gen-project/internal/generate"
	"github.com/MaksimIschenko/giga-gen-project/internal/middleware"
)

// Model3DGenerate produces a 3D asset and returns the public URL of the
// stored model file.
func (a *App) Model3DGenerate(w http.ResponseWriter, r *http.Request) {
	var req generate.Model3DRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Locale = middleware.LocaleFrom(r.Context())

	res, err := a.Generator.Generate3DModel(r.Context(), req)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, res)
}
