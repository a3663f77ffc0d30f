package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MaksimIschenko/giga-gen-project/internal/domain"
	"github.com/MaksimIschenko/giga-gen-project/internal/generate"
	"github.com/MaksimIschenko/giga-gen-project/internal/history"
	"github.com/MaksimIschenko/giga-gen-project/internal/infra"
)

// Generator is the orchestration facade consumed by the handlers.
type Generator interface {
	GenerateSimpleImage(ctx context.Context, req generate.SimpleImageRequest) (generate.ImageResult, error)
	GenerateComplexImage(ctx context.Context, req generate.ComplexImageRequest) (generate.BatchResult, error)
	Generate3DModel(ctx context.Context, req generate.Model3DRequest) (generate.ModelResult, error)
}

// HistoryReader lists past generations.
type HistoryReader interface {
	Enabled() bool
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

type App struct {
	Config    *infra.Config
	Logger    *infra.Logger
	Generator Generator
	History   HistoryReader
}

func NewApp(cfg *infra.Config, logger *infra.Logger, generator Generator, hist HistoryReader) *App {
	return &App{Config: cfg, Logger: logger, Generator: generator, History: hist}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorBody{Code: code, Message: message})
}

// fail maps a pipeline error onto the wire: status and code from the error
// kind, the offending field when the request was at fault.
func (a *App) fail(w http.ResponseWriter, err error) {
	body := errorBody{Code: domain.WireCode(err), Message: domain.UserMessage(err)}
	var de *domain.Error
	if errors.As(err, &de) {
		body.Field = de.Field
	}
	a.json(w, domain.HTTPStatus(err), body)
}
