package handlers

import (
	"context"
	"io"

	"github.com/MaksimIschenko/giga-gen-project/internal/generate"
	"github.com/MaksimIschenko/giga-gen-project/internal/history"
	"github.com/MaksimIschenko/giga-gen-project/internal/infra"

	"github.com/rs/zerolog"
)

type stubGenerator struct {
	simpleReq  generate.SimpleImageRequest
	simpleRes  generate.ImageResult
	simpleErr  error
	simpleN    int
	complexReq generate.ComplexImageRequest
	complexRes generate.BatchResult
	complexErr error
	modelReq   generate.Model3DRequest
	modelRes   generate.ModelResult
	modelErr   error
}

func (s *stubGenerator) GenerateSimpleImage(_ context.Context, req generate.SimpleImageRequest) (generate.ImageResult, error) {
	s.simpleReq = req
	s.simpleN++
	return s.simpleRes, s.simpleErr
}

func (s *stubGenerator) GenerateComplexImage(_ context.Context, req generate.ComplexImageRequest) (generate.BatchResult, error) {
	s.complexReq = req
	return s.complexRes, s.complexErr
}

func (s *stubGenerator) Generate3DModel(_ context.Context, req generate.Model3DRequest) (generate.ModelResult, error) {
	s.modelReq = req
	return s.modelRes, s.modelErr
}

type stubHistoryReader struct {
	enabled bool
	entries []history.Entry
	err     error
	limit   int
}

func (s *stubHistoryReader) Enabled() bool { return s.enabled }

func (s *stubHistoryReader) Recent(_ context.Context, limit int) ([]history.Entry, error) {
	s.limit = limit
	return s.entries, s.err
}

func newTestApp(gen Generator, hist HistoryReader) *App {
	logger := zerolog.New(io.Discard)
	cfg := &infra.Config{PublicBaseURL: "http://localhost:8080/files"}
	return NewApp(cfg, &logger, gen, hist)
}
