package gigachat

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/MaksimIschenko/giga-gen-project/internal/domain"
	"github.com/MaksimIschenko/giga-gen-project/internal/infra"
	"github.com/MaksimIschenko/giga-gen-project/internal/providers/auth"
)

// Options configures the GigaChat client.
type Options struct {
	BaseURL        string
	Model          string
	Auth           auth.Authenticator
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
	InsecureTLS    bool
}

// Client performs chat-completion calls against the GigaChat API and decodes
// the inline attachment of the response into an artifact. One call per
// generation, no automatic retries.
type Client struct {
	baseURL     string
	model       string
	auth        auth.Authenticator
	httpClient  *http.Client
	logger      *infra.Logger
	callTimeout time.Duration
}

// Request captures the inputs for one generation call.
type Request struct {
	Prompt  string
	Mode    string
	Style   string
	Fewshot bool
	Locale  string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model        string        `json:"model"`
	FunctionCall string        `json:"function_call"`
	Messages     []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content     string `json:"content"`
			Attachments []struct {
				FileID string `json:"file_id"`
				MIME   string `json:"mime_type"`
				Data   string `json:"data"`
			} `json:"attachments"`
		} `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	if opts.Auth == nil {
		return nil, errors.New("gigachat: authenticator is required")
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
		if opts.InsecureTLS {
			httpClient.Transport = &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			}
		}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://gigachat.devices.sberbank.ru/api/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "GigaChat-2-Max"
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
		model:       model,
		auth:        opts.Auth,
		httpClient:  httpClient,
		logger:      logger,
		callTimeout: timeout,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Generate invokes the chat-completions API once and decodes the first
// inline attachment into an artifact. The call runs under a fixed per-call
// deadline; overruns surface as timeouts and provider failure statuses as
// upstream errors.
func (c *Client) Generate(ctx context.Context, req Request) (*domain.Artifact, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, domain.Validation("prompt", "prompt is required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	cred, err := c.auth.Authenticate(ctx)
	if err != nil {
		return nil, fmt.Errorf("gigachat: authenticate: %w", err)
	}

	payload := chatRequest{
		Model:        c.model,
		FunctionCall: "auto",
		Messages:     buildMessages(req),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("gigachat: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gigachat: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	cred.Apply(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.FromTransport("gigachat: chat request", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.Transport("gigachat: read response", err)
	}
	if resp.StatusCode >= 300 {
		var detail errorResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Message != "" {
			return nil, domain.Upstream(resp.StatusCode, "gigachat: "+detail.Message)
		}
		return nil, domain.Upstream(resp.StatusCode, fmt.Sprintf("gigachat: status %d", resp.StatusCode))
	}

	var decoded chatResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, domain.Upstream(resp.StatusCode, "gigachat: malformed response body")
	}
	attachment := firstAttachment(decoded)
	if attachment == nil {
		return nil, domain.Upstream(resp.StatusCode, "gigachat: model returned no attachment")
	}
	data, err := base64.StdEncoding.DecodeString(attachment.Data)
	if err != nil {
		return nil, domain.Upstream(resp.StatusCode, "gigachat: attachment payload is not valid base64")
	}

	c.logger.Debug().
		Str("model", c.model).
		Str("file_id", attachment.FileID).
		Int("bytes", len(data)).
		Msg("gigachat: generated artifact")
	return &domain.Artifact{Data: data, MIME: attachment.MIME}, nil
}

type inlineAttachment struct {
	FileID string
	MIME   string
	Data   string
}

func firstAttachment(resp chatResponse) *inlineAttachment {
	for _, choice := range resp.Choices {
		for _, att := range choice.Message.Attachments {
			if strings.TrimSpace(att.Data) == "" {
				continue
			}
			return &inlineAttachment{FileID: att.FileID, MIME: att.MIME, Data: att.Data}
		}
	}
	return nil
}
