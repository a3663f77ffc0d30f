package generate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/MaksimIschenko/giga-gen-project/internal/domain"
	"github.com/MaksimIschenko/giga-gen-project/internal/history"
	"github.com/MaksimIschenko/giga-gen-project/internal/infra"
	"github.com/MaksimIschenko/giga-gen-project/internal/providers/fusionbrain"
	"github.com/MaksimIschenko/giga-gen-project/internal/providers/gigachat"
	"github.com/MaksimIschenko/giga-gen-project/internal/providers/meshy"
)

// FastClient is the synchronous generation path.
type FastClient interface {
	Generate(ctx context.Context, req gigachat.Request) (*domain.Artifact, error)
}

// AsyncClient is the submit-poll-fetch generation path.
type AsyncClient interface {
	GenerateImages(ctx context.Context, req fusionbrain.SubmitRequest, policy fusionbrain.PollPolicy) ([]domain.Artifact, error)
}

// MeshClient is the dedicated text-to-3d pipeline.
type MeshClient interface {
	GenerateModel(ctx context.Context, req meshy.Request) (*domain.Artifact, error)
}

// ArtifactStore persists finished artifacts.
type ArtifactStore interface {
	Persist(ctx context.Context, artifact domain.Artifact, category domain.ArtifactCategory) (domain.StoredFile, error)
}

// HistoryRecorder appends generation attempts to the audit log.
type HistoryRecorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// Options wires the facade. Config and Store are required; a missing
// provider client disables its operations at call time so a binary can run
// with only the providers it has credentials for.
type Options struct {
	Config  *infra.Config
	Fast    FastClient
	Async   AsyncClient
	Mesh    MeshClient
	Store   ArtifactStore
	History HistoryRecorder
	Logger  *infra.Logger
}

// Service orchestrates one generation end to end: normalize and validate
// the request, run the provider protocol, persist every artifact, record
// the attempt. Providers never see unvalidated input.
type Service struct {
	cfg     *infra.Config
	fast    FastClient
	async   AsyncClient
	mesh    MeshClient
	store   ArtifactStore
	history HistoryRecorder
	logger  *infra.Logger
}

// ImageResult is the response of one synchronous image generation.
type ImageResult struct {
	ImageURL string `json:"image_url"`
}

// BatchResult is the response of one asynchronous batch generation. URLs
// and files keep the provider's handle order.
type BatchResult struct {
	ImageURLs []string            `json:"image_urls"`
	Files     []domain.StoredFile `json:"-"`
}

// ModelResult is the response of one 3d model generation.
type ModelResult struct {
	ModelURL string `json:"model_url"`
}

// NewService validates the wiring and returns the facade.
func NewService(opts Options) (*Service, error) {
	if opts.Config == nil {
		return nil, errors.New("generate: config is required")
	}
	if opts.Store == nil {
		return nil, errors.New("generate: artifact store is required")
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Service{
		cfg:     opts.Config,
		fast:    opts.Fast,
		async:   opts.Async,
		mesh:    opts.Mesh,
		store:   opts.Store,
		history: opts.History,
		logger:  logger,
	}, nil
}

// GenerateSimpleImage runs the synchronous path: one provider call, one
// stored file.
func (s *Service) GenerateSimpleImage(ctx context.Context, req SimpleImageRequest) (ImageResult, error) {
	started := time.Now()
	req.Normalize()
	if err := req.Validate(); err != nil {
		s.record(ctx, history.KindSimple, "gigachat", req.Prompt, nil, started, err)
		return ImageResult{}, err
	}
	if s.fast == nil {
		return ImageResult{}, fmt.Errorf("generate: synchronous image provider is not configured")
	}

	artifact, err := s.fast.Generate(ctx, gigachat.Request{
		Prompt:  req.Prompt,
		Mode:    req.Mode,
		Style:   req.Style,
		Fewshot: req.FewshotEnabled(),
		Locale:  req.Locale,
	})
	if err != nil {
		s.record(ctx, history.KindSimple, "gigachat", req.Prompt, nil, started, err)
		return ImageResult{}, err
	}

	artifact.SuggestedName = req.FilenamePrefix
	if artifact.Extension == "" {
		artifact.Extension = req.Extension
	}
	stored, err := s.store.Persist(ctx, *artifact, domain.CategoryImage)
	if err != nil {
		s.record(ctx, history.KindSimple, "gigachat", req.Prompt, nil, started, err)
		return ImageResult{}, err
	}

	s.logger.Info().
		Str("mode", req.Mode).
		Str("file", stored.Basename()).
		Dur("took", time.Since(started)).
		Msg("generate: simple image ready")
	s.record(ctx, history.KindSimple, "gigachat", req.Prompt, []string{stored.PublicURL}, started, nil)
	return ImageResult{ImageURL: stored.PublicURL}, nil
}

// GenerateComplexImage runs the asynchronous path: submit, poll to a
// terminal state, fetch and persist every image. Files persisted before a
// mid-batch failure stay on disk; the request still fails as a whole.
func (s *Service) GenerateComplexImage(ctx context.Context, req ComplexImageRequest) (BatchResult, error) {
	started := time.Now()
	req.Normalize()
	if err := req.Validate(); err != nil {
		s.record(ctx, history.KindKandinsky, "fusionbrain", req.Prompt, nil, started, err)
		return BatchResult{}, err
	}
	if s.async == nil {
		return BatchResult{}, fmt.Errorf("generate: asynchronous image provider is not configured")
	}

	policy := fusionbrain.PollPolicy{
		Interval:    s.cfg.PollInterval,
		MaxInterval: s.cfg.PollMaxInterval,
		Budget:      s.cfg.PollBudget,
	}
	artifacts, err := s.async.GenerateImages(ctx, fusionbrain.SubmitRequest{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Style:          req.Style,
		Images:         req.Images,
		Width:          req.Width,
		Height:         req.Height,
	}, policy)
	if err != nil {
		s.record(ctx, history.KindKandinsky, "fusionbrain", req.Prompt, nil, started, err)
		return BatchResult{}, err
	}

	result := BatchResult{
		ImageURLs: make([]string, 0, len(artifacts)),
		Files:     make([]domain.StoredFile, 0, len(artifacts)),
	}
	for _, artifact := range artifacts {
		artifact.SuggestedName = req.FileBasename
		if artifact.Extension == "" {
			artifact.Extension = req.Extension
		}
		stored, err := s.store.Persist(ctx, artifact, domain.CategoryImage)
		if err != nil {
			s.record(ctx, history.KindKandinsky, "fusionbrain", req.Prompt, result.ImageURLs, started, err)
			return BatchResult{}, err
		}
		result.ImageURLs = append(result.ImageURLs, stored.PublicURL)
		result.Files = append(result.Files, stored)
	}

	s.logger.Info().
		Int("images", len(result.Files)).
		Dur("took", time.Since(started)).
		Msg("generate: batch ready")
	s.record(ctx, history.KindKandinsky, "fusionbrain", req.Prompt, result.ImageURLs, started, nil)
	return result, nil
}

// Generate3DModel renders a model through the configured provider and
// persists it under the models root.
func (s *Service) Generate3DModel(ctx context.Context, req Model3DRequest) (ModelResult, error) {
	started := time.Now()
	provider := s.modelProvider()
	req.Normalize()
	if err := req.Validate(); err != nil {
		s.record(ctx, history.KindModel3D, provider, req.Prompt, nil, started, err)
		return ModelResult{}, err
	}

	var artifact *domain.Artifact
	var err error
	switch provider {
	case "meshy":
		if s.mesh == nil {
			return ModelResult{}, fmt.Errorf("generate: meshy client is not configured")
		}
		artifact, err = s.mesh.GenerateModel(ctx, meshy.Request{
			Prompt:          req.Prompt,
			Mode:            req.Mode,
			ArtStyle:        req.ArtStyle,
			Topology:        req.Topology,
			TargetPolycount: req.TargetPolycount,
			AIModel:         req.AIModel,
			TexturePrompt:   req.TexturePrompt,
			Extension:       req.Extension,
		})
	default:
		if s.fast == nil {
			return ModelResult{}, fmt.Errorf("generate: 3d provider is not configured")
		}
		artifact, err = s.fast.Generate(ctx, gigachat.Request{
			Prompt:  req.Prompt,
			Mode:    req.Mode,
			Style:   req.Style,
			Fewshot: req.FewshotEnabled(),
			Locale:  req.Locale,
		})
	}
	if err != nil {
		s.record(ctx, history.KindModel3D, provider, req.Prompt, nil, started, err)
		return ModelResult{}, err
	}

	artifact.SuggestedName = req.FilenamePrefix
	if artifact.Extension == "" {
		artifact.Extension = req.Extension
	}
	stored, err := s.store.Persist(ctx, *artifact, domain.CategoryModel)
	if err != nil {
		s.record(ctx, history.KindModel3D, provider, req.Prompt, nil, started, err)
		return ModelResult{}, err
	}

	s.logger.Info().
		Str("provider", provider).
		Str("file", stored.Basename()).
		Dur("took", time.Since(started)).
		Msg("generate: model ready")
	s.record(ctx, history.KindModel3D, provider, req.Prompt, []string{stored.PublicURL}, started, nil)
	return ModelResult{ModelURL: stored.PublicURL}, nil
}

func (s *Service) modelProvider() string {
	if strings.EqualFold(s.cfg.Model3DProvider, "meshy") {
		return "meshy"
	}
	return "gigachat"
}

// record appends the attempt to history. History is advisory: failures are
// logged, never surfaced, and a canceled request context does not block
// the write.
func (s *Service) record(ctx context.Context, kind, provider, prompt string, urls []string, started time.Time, failure error) {
	if s.history == nil {
		return
	}
	entry := history.Entry{
		Kind:       kind,
		Provider:   provider,
		Prompt:     prompt,
		Status:     history.StatusOK,
		FileURLs:   urls,
		DurationMS: time.Since(started).Milliseconds(),
	}
	if failure != nil {
		entry.Status = history.StatusError
		entry.Detail = domain.WireCode(failure) + ": " + domain.UserMessage(failure)
	}
	if err := s.history.Record(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn().Err(err).Msg("generate: history record failed")
	}
}
