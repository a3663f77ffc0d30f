package fusionbrain

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
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/MaksimIschenko/giga-gen-project/internal/domain"
	"github.com/MaksimIschenko/giga-gen-project/internal/infra"
	"github.com/MaksimIschenko/giga-gen-project/internal/providers/auth"
)

// Options configures the FusionBrain client.
type Options struct {
	BaseURL        string
	Auth           auth.Authenticator
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client drives the FusionBrain text-to-image pipeline: submit a job, poll
// its status, fetch each result handle. Every HTTP call runs under its own
// per-call deadline; the total job lifetime is bounded separately by the
// poll policy.
type Client struct {
	baseURL     string
	auth        auth.Authenticator
	httpClient  *http.Client
	logger      *infra.Logger
	callTimeout time.Duration

	mu         sync.Mutex
	pipelineID string
}

// SubmitRequest describes one text-to-image batch.
type SubmitRequest struct {
	Prompt         string
	NegativePrompt string
	Style          string
	Images         int
	Width          int
	Height         int
}

// JobStatus is one status poll result.
type JobStatus struct {
	State       domain.JobState
	Handles     []string
	Description string
}

type pipelineInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

type runRequest struct {
	PipelineID string    `json:"pipeline_id"`
	Params     runParams `json:"params"`
}

type runParams struct {
	Type           string         `json:"type"`
	NumImages      int            `json:"num_images"`
	Width          int            `json:"width"`
	Height         int            `json:"height"`
	Style          string         `json:"style,omitempty"`
	NegativePrompt string         `json:"negative_prompt,omitempty"`
	GenerateParams generateParams `json:"generate_params"`
}

type generateParams struct {
	Query string `json:"query"`
}

type runResponse struct {
	UUID   string `json:"uuid"`
	Status string `json:"status"`
}

type statusResponse struct {
	UUID             string `json:"uuid"`
	Status           string `json:"status"`
	ErrorDescription string `json:"error_description"`
	Result           struct {
		Files []string `json:"files"`
	} `json:"result"`
}

type errorResponse struct {
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	if opts.Auth == nil {
		return nil, errors.New("fusionbrain: authenticator is required")
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
		baseURL = "https://api-key.fusionbrain.ai"
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
		baseURL:     baseURL,
		auth:        opts.Auth,
		httpClient:  httpClient,
		logger:      logger,
		callTimeout: timeout,
	}, nil
}

// ResolvePipeline returns the TEXT2IMAGE pipeline id, fetching it on first
// use and caching it for the client's lifetime.
func (c *Client) ResolvePipeline(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pipelineID != "" {
		return c.pipelineID, nil
	}

	var pipelines []pipelineInfo
	if err := c.invoke(ctx, http.MethodGet, "/key/api/v1/pipelines?type=TEXT2IMAGE", nil, &pipelines); err != nil {
		return "", err
	}
	if len(pipelines) == 0 {
		return "", domain.Upstream(0, "fusionbrain: no TEXT2IMAGE pipeline available")
	}
	c.pipelineID = pipelines[0].ID
	c.logger.Debug().Str("pipeline_id", c.pipelineID).Msg("fusionbrain: resolved pipeline")
	return c.pipelineID, nil
}

// Submit starts one generation job. Failure here is terminal and no job is
// created.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*domain.Job, error) {
	pipelineID, err := c.ResolvePipeline(ctx)
	if err != nil {
		return nil, err
	}

	payload := runRequest{
		PipelineID: pipelineID,
		Params: runParams{
			Type:           "GENERATE",
			NumImages:      req.Images,
			Width:          req.Width,
			Height:         req.Height,
			Style:          strings.TrimSpace(req.Style),
			NegativePrompt: strings.TrimSpace(req.NegativePrompt),
			GenerateParams: generateParams{Query: strings.TrimSpace(req.Prompt)},
		},
	}
	var decoded runResponse
	if err := c.invoke(ctx, http.MethodPost, "/key/api/v1/pipeline/run", payload, &decoded); err != nil {
		return nil, err
	}
	if decoded.UUID == "" {
		return nil, domain.Upstream(0, "fusionbrain: run response without job id")
	}

	job := &domain.Job{ID: decoded.UUID, State: domain.JobSubmitted, SubmittedAt: time.Now()}
	c.logger.Info().Str("job_id", job.ID).Int("images", req.Images).Msg("fusionbrain: job submitted")
	return job, nil
}

// Status queries the job state once and maps the provider's wire status
// onto the job lifecycle.
func (c *Client) Status(ctx context.Context, jobID string) (*JobStatus, error) {
	var decoded statusResponse
	if err := c.invoke(ctx, http.MethodGet, "/key/api/v1/pipeline/status/"+url.PathEscape(jobID), nil, &decoded); err != nil {
		return nil, err
	}
	status := &JobStatus{
		State:       mapWireStatus(decoded.Status),
		Handles:     decoded.Result.Files,
		Description: strings.TrimSpace(decoded.ErrorDescription),
	}
	c.logger.Debug().Str("job_id", jobID).Str("state", string(status.State)).Msg("fusionbrain: poll")
	return status, nil
}

// Fetch downloads the binary payload behind one result handle.
func (c *Client) Fetch(ctx context.Context, handle string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	cred, err := c.auth.Authenticate(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("fusionbrain: authenticate: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/key/api/v1/pipeline/result/"+url.PathEscape(handle), nil)
	if err != nil {
		return nil, "", fmt.Errorf("fusionbrain: build fetch request: %w", err)
	}
	cred.Apply(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", domain.FromTransport("fusionbrain: fetch result", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", domain.Upstream(resp.StatusCode, fmt.Sprintf("fusionbrain: fetch status %d", resp.StatusCode))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", domain.Transport("fusionbrain: read result", err)
	}
	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return data, mimeType, nil
}

// invoke performs one authenticated JSON round trip under the per-call
// deadline.
func (c *Client) invoke(ctx context.Context, method, path string, payload any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	cred, err := c.auth.Authenticate(ctx)
	if err != nil {
		return fmt.Errorf("fusionbrain: authenticate: %w", err)
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("fusionbrain: encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("fusionbrain: build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	cred.Apply(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.FromTransport("fusionbrain: "+method+" "+path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Transport("fusionbrain: read response", err)
	}
	if resp.StatusCode >= 300 {
		var detail errorResponse
		if err := json.Unmarshal(raw, &detail); err == nil {
			if msg := firstNonEmpty(detail.Message, detail.ErrorDescription); msg != "" {
				return domain.Upstream(resp.StatusCode, "fusionbrain: "+msg)
			}
		}
		return domain.Upstream(resp.StatusCode, fmt.Sprintf("fusionbrain: status %d", resp.StatusCode))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return domain.Upstream(resp.StatusCode, "fusionbrain: malformed response body")
	}
	return nil
}

func mapWireStatus(s string) domain.JobState {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INITIAL", "PENDING":
		return domain.JobPending
	case "PROCESSING":
		return domain.JobProcessing
	case "DONE":
		return domain.JobDone
	case "FAIL", "FAILED":
		return domain.JobFailed
	default:
		return domain.JobPending
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
