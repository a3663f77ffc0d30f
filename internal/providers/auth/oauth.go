package auth

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MaksimIschenko/giga-gen-project/internal/domain"
	"github.com/MaksimIschenko/giga-gen-project/internal/infra"
)

// ErrMissingAuthKey indicates that the OAuth authenticator was configured
// without credentials.
var ErrMissingAuthKey = errors.New("auth: authorization key is required")

// A fresh token is requested this long before the cached one expires.
const refreshSkew = 30 * time.Second

// OAuthOptions configures the token-exchanging authenticator.
type OAuthOptions struct {
	TokenURL       string
	AuthKey        string
	Scope          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
	InsecureTLS    bool
}

// OAuth exchanges a static authorization key for a short-lived access token
// and caches it until expiry. The cache is shared read-mostly across
// concurrent requests; refreshes run under a mutex so only one token call is
// in flight at a time.
type OAuth struct {
	tokenURL   string
	authKey    string
	scope      string
	httpClient *http.Client
	logger     *infra.Logger

	mu   sync.Mutex
	cred Credential
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
}

// NewOAuth constructs an authenticator with sane defaults.
func NewOAuth(opts OAuthOptions) (*OAuth, error) {
	authKey := strings.TrimSpace(opts.AuthKey)
	if authKey == "" {
		return nil, ErrMissingAuthKey
	}
	tokenURL := strings.TrimSpace(opts.TokenURL)
	if tokenURL == "" {
		return nil, errors.New("auth: token url is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
		if opts.InsecureTLS {
			httpClient.Transport = &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			}
		}
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &OAuth{
		tokenURL:   tokenURL,
		authKey:    authKey,
		scope:      strings.TrimSpace(opts.Scope),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Authenticate returns the cached credential, refreshing it when it is
// within the skew window of its expiry.
func (o *OAuth) Authenticate(ctx context.Context) (Credential, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := time.Now()
	if o.cred.Headers != nil && now.Add(refreshSkew).Before(o.cred.ExpiresAt) {
		return o.cred, nil
	}

	cred, err := o.requestToken(ctx)
	if err != nil {
		return Credential{}, err
	}
	o.cred = cred
	return cred, nil
}

func (o *OAuth) requestToken(ctx context.Context) (Credential, error) {
	form := url.Values{}
	if o.scope != "" {
		form.Set("scope", o.scope)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Credential{}, fmt.Errorf("auth: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Basic "+o.authKey)
	req.Header.Set("RqUID", uuid.NewString())

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return Credential{}, domain.FromTransport("auth: token request", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Credential{}, domain.Transport("auth: read token response", err)
	}
	if resp.StatusCode >= 300 {
		return Credential{}, domain.Upstream(resp.StatusCode, fmt.Sprintf("auth: token status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}

	var decoded tokenResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Credential{}, domain.Upstream(resp.StatusCode, "auth: malformed token response")
	}
	if decoded.AccessToken == "" {
		return Credential{}, domain.Upstream(resp.StatusCode, "auth: empty access token")
	}

	expiresAt := time.UnixMilli(decoded.ExpiresAt)
	o.logger.Debug().Time("expires_at", expiresAt).Msg("auth: access token refreshed")
	return Credential{
		Headers:   map[string]string{"Authorization": "Bearer " + decoded.AccessToken},
		ExpiresAt: expiresAt,
	}, nil
}

var _ Authenticator = (*OAuth)(nil)
