package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/MaksimIschenko/giga-gen-project/internal/domain"
	"github.com/MaksimIschenko/giga-gen-project/internal/generate"
	"github.com/MaksimIschenko/giga-gen-project/pkg/archive"
)

// KandinskyGenerate runs the asynchronous batch pipeline. The response is a
// JSON list of public URLs, or a zip of the stored files when the request
// asks for an archive.
func (a *App) KandinskyGenerate(w http.ResponseWriter, r *http.Request) {
	var req generate.ComplexImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	res, err := a.Generator.GenerateComplexImage(r.Context(), req)
	if err != nil {
		a.fail(w, err)
		return
	}
	if !req.Archive {
		a.json(w, http.StatusOK, res)
		return
	}
	a.archive(w, req.FileBasename, res.Files)
}

// archive streams the batch as a single zip. Entries keep the stored
// basenames so the archive matches the URLs the JSON variant would return.
func (a *App) archive(w http.ResponseWriter, basename string, files []domain.StoredFile) {
	entries := make([]archive.File, 0, len(files))
	for _, f := range files {
		entries = append(entries, archive.File{Name: f.Basename(), Path: f.Path})
	}
	blob, err := archive.Build(entries)
	if err != nil {
		a.Logger.Error().Err(err).Msg("kandinsky: archive build failed")
		a.error(w, http.StatusInternalServerError, "internal_error", "could not build archive")
		return
	}

	name := domain.SanitizeName(basename)
	if name == "" {
		name = "kandinsky"
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".zip"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob)
}
