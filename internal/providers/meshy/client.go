package meshy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/MaksimIschenko/giga-gen-project/internal/domain"
	"github.com/MaksimIschenko/giga-gen-project/internal/infra"
	"github.com/MaksimIschenko/giga-gen-project/internal/providers/auth"
)

// Retry policy for task creation and status calls. 429 and 5xx responses
// back off exponentially from retryBase up to retryCap.
const (
	retryAttempts = 5
	retryBase     = 500 * time.Millisecond
	retryCap      = 4 * time.Second
)

// Options configures the Meshy text-to-3d client.
type Options struct {
	BaseURL        string
	Auth           auth.Authenticator
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
	PollInterval   time.Duration
	PreviewBudget  time.Duration
	RefineBudget   time.Duration
}

// Client renders 3d models through Meshy's two-phase pipeline: a preview
// task produces raw geometry, a refine task textures it. Both phases are
// polled to completion under their own budgets.
type Client struct {
	baseURL       string
	auth          auth.Authenticator
	httpClient    *http.Client
	logger        *infra.Logger
	callTimeout   time.Duration
	pollInterval  time.Duration
	previewBudget time.Duration
	refineBudget  time.Duration
}

// Request describes one text-to-3d generation.
type Request struct {
	Prompt          string
	Mode            string
	ArtStyle        string
	Topology        string
	TargetPolycount int
	AIModel         string
	TexturePrompt   string
	Extension       string
}

type previewRequest struct {
	Mode            string `json:"mode"`
	Prompt          string `json:"prompt"`
	ArtStyle        string `json:"art_style"`
	AIModel         string `json:"ai_model"`
	Topology        string `json:"topology"`
	TargetPolycount int    `json:"target_polycount"`
	ShouldRemesh    bool   `json:"should_remesh"`
	SymmetryMode    string `json:"symmetry_mode"`
	IsATPose        bool   `json:"is_a_t_pose"`
}

type refineRequest struct {
	Mode          string `json:"mode"`
	PreviewTaskID string `json:"preview_task_id"`
	EnablePBR     bool   `json:"enable_pbr"`
	TexturePrompt string `json:"texture_prompt,omitempty"`
}

type taskCreated struct {
	Result string `json:"result"`
}

type taskError struct {
	Message string `json:"message"`
}

type taskStatus struct {
	ID        string            `json:"id"`
	Status    string            `json:"status"`
	Progress  int               `json:"progress"`
	TaskError *taskError        `json:"task_error"`
	ModelURLs map[string]string `json:"model_urls"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Geometry defaults per generation mode.
var modeDefaults = map[string]previewRequest{
	"lowpoly":   {ArtStyle: "realistic", Topology: "triangle", TargetPolycount: 10000},
	"realistic": {ArtStyle: "realistic", Topology: "quad", TargetPolycount: 30000},
}

var modelMIME = map[string]string{
	"fbx":  "application/octet-stream",
	"glb":  "model/gltf-binary",
	"obj":  "model/obj",
	"usdz": "model/vnd.usdz+zip",
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	if opts.Auth == nil {
		return nil, errors.New("meshy: authenticator is required")
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.meshy.ai"
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2500 * time.Millisecond
	}
	previewBudget := opts.PreviewBudget
	if previewBudget <= 0 {
		previewBudget = 10 * time.Minute
	}
	refineBudget := opts.RefineBudget
	if refineBudget <= 0 {
		refineBudget = 20 * time.Minute
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		baseURL:       baseURL,
		auth:          opts.Auth,
		httpClient:    httpClient,
		logger:        logger,
		callTimeout:   timeout,
		pollInterval:  pollInterval,
		previewBudget: previewBudget,
		refineBudget:  refineBudget,
	}, nil
}

// GenerateModel runs the full preview, refine, download protocol and returns
// the finished model. The artifact's Extension reflects the format actually
// downloaded, which may differ from the requested one when Meshy does not
// publish that format for the task.
func (c *Client) GenerateModel(ctx context.Context, req Request) (*domain.Artifact, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, domain.Validation("prompt", "prompt must not be empty")
	}
	preview := c.buildPreview(req, prompt)

	previewID, err := c.createTask(ctx, preview)
	if err != nil {
		return nil, err
	}
	c.logger.Info().Str("task_id", previewID).Str("mode", preview.Mode).Msg("meshy: preview task created")
	previewTask, err := c.awaitTask(ctx, previewID, c.previewBudget)
	if err != nil {
		return nil, err
	}

	refine := refineRequest{
		Mode:          "refine",
		PreviewTaskID: previewTask.ID,
		EnablePBR:     preview.ArtStyle != "sculpture",
		TexturePrompt: strings.TrimSpace(req.TexturePrompt),
	}
	refineID, err := c.createTask(ctx, refine)
	if err != nil {
		return nil, err
	}
	c.logger.Info().Str("task_id", refineID).Msg("meshy: refine task created")
	refined, err := c.awaitTask(ctx, refineID, c.refineBudget)
	if err != nil {
		return nil, err
	}

	downloadURL, format, err := pickModelURL(refined.ModelURLs, req.Extension)
	if err != nil {
		return nil, err
	}
	data, err := c.download(ctx, downloadURL)
	if err != nil {
		return nil, err
	}
	c.logger.Info().
		Str("task_id", refined.ID).
		Str("format", format).
		Int("bytes", len(data)).
		Msg("meshy: model downloaded")

	mimeType := modelMIME[format]
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return &domain.Artifact{Data: data, MIME: mimeType, Extension: "." + format}, nil
}

func (c *Client) buildPreview(req Request, prompt string) previewRequest {
	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	defaults, ok := modeDefaults[mode]
	if !ok {
		defaults = modeDefaults["lowpoly"]
	}
	preview := previewRequest{
		Mode:            "preview",
		Prompt:          prompt,
		ArtStyle:        strings.TrimSpace(req.ArtStyle),
		AIModel:         strings.TrimSpace(req.AIModel),
		Topology:        strings.TrimSpace(req.Topology),
		TargetPolycount: req.TargetPolycount,
		ShouldRemesh:    true,
		SymmetryMode:    "auto",
		IsATPose:        false,
	}
	if preview.ArtStyle == "" {
		preview.ArtStyle = defaults.ArtStyle
	}
	if preview.Topology == "" {
		preview.Topology = defaults.Topology
	}
	if preview.TargetPolycount <= 0 {
		preview.TargetPolycount = defaults.TargetPolycount
	}
	if preview.AIModel == "" {
		preview.AIModel = "meshy-5"
	}
	return preview
}

// createTask posts one task payload and returns the created task id.
func (c *Client) createTask(ctx context.Context, payload any) (string, error) {
	var created taskCreated
	if err := c.invoke(ctx, http.MethodPost, "/openapi/v2/text-to-3d", payload, &created); err != nil {
		return "", err
	}
	if created.Result == "" {
		return "", domain.Upstream(0, "meshy: task response without id")
	}
	return created.Result, nil
}

// awaitTask polls a task to a terminal status under the given budget.
func (c *Client) awaitTask(ctx context.Context, taskID string, budget time.Duration) (*taskStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, domain.Timeout(fmt.Sprintf("meshy: task %s exceeded the %s budget", taskID, budget), ctx.Err())
		case <-timer.C:
		}

		var task taskStatus
		if err := c.invoke(ctx, http.MethodGet, "/openapi/v2/text-to-3d/"+url.PathEscape(taskID), nil, &task); err != nil {
			if ctx.Err() != nil {
				return nil, domain.Timeout(fmt.Sprintf("meshy: task %s exceeded the %s budget", taskID, budget), ctx.Err())
			}
			return nil, err
		}
		c.logger.Debug().Str("task_id", taskID).Str("status", task.Status).Int("progress", task.Progress).Msg("meshy: poll")

		switch task.Status {
		case "SUCCEEDED":
			return &task, nil
		case "FAILED", "CANCELED", "EXPIRED":
			msg := "task " + strings.ToLower(task.Status)
			if task.TaskError != nil && strings.TrimSpace(task.TaskError.Message) != "" {
				msg = strings.TrimSpace(task.TaskError.Message)
			}
			return nil, domain.Upstream(0, "meshy: "+msg)
		}
		timer.Reset(c.pollInterval)
	}
}

// pickModelURL selects the download URL, preferring the requested format and
// falling back through the stable format order.
func pickModelURL(urls map[string]string, ext string) (string, string, error) {
	desired := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	order := []string{desired, "fbx", "glb", "obj", "usdz"}
	for _, format := range order {
		if format == "" {
			continue
		}
		if u := urls[format]; u != "" {
			return u, format, nil
		}
	}
	return "", "", domain.Upstream(0, "meshy: task finished without downloadable model")
}

func (c *Client) download(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("meshy: build download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.FromTransport("meshy: download model", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, domain.Upstream(resp.StatusCode, fmt.Sprintf("meshy: download status %d", resp.StatusCode))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.Transport("meshy: read model", err)
	}
	return data, nil
}

// invoke performs one authenticated JSON round trip, retrying 429 and 5xx
// responses with capped exponential backoff.
func (c *Client) invoke(ctx context.Context, method, path string, payload any, out any) error {
	var encoded []byte
	if payload != nil {
		var err error
		encoded, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("meshy: encode request: %w", err)
		}
	}

	backoff := retryBase
	var lastErr error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return domain.FromTransport("meshy: "+method+" "+path, ctx.Err())
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, retryCap)
		}

		retriable, err := c.doOnce(ctx, method, path, encoded, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retriable {
			return err
		}
		c.logger.Warn().Int("attempt", attempt).Err(err).Msg("meshy: retrying request")
	}
	return lastErr
}

// doOnce reports whether the failure is retriable alongside the error.
func (c *Client) doOnce(ctx context.Context, method, path string, encoded []byte, out any) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	cred, err := c.auth.Authenticate(ctx)
	if err != nil {
		return false, fmt.Errorf("meshy: authenticate: %w", err)
	}

	var body io.Reader
	if encoded != nil {
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return false, fmt.Errorf("meshy: build request: %w", err)
	}
	if encoded != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	cred.Apply(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, domain.FromTransport("meshy: "+method+" "+path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, domain.Transport("meshy: read response", err)
	}
	if resp.StatusCode >= 300 {
		msg := fmt.Sprintf("meshy: status %d", resp.StatusCode)
		var detail errorResponse
		if err := json.Unmarshal(raw, &detail); err == nil && strings.TrimSpace(detail.Message) != "" {
			msg = "meshy: " + strings.TrimSpace(detail.Message)
		}
		retriable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return retriable, domain.Upstream(resp.StatusCode, msg)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, domain.Upstream(resp.StatusCode, "meshy: malformed response body")
	}
	return false, nil
}
