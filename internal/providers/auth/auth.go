package auth

import (
	"context"
	"net/http"
	"time"
)

// Credential is an opaque set of ready-to-apply request headers plus an
// optional expiry. It is shared read-only by provider clients and refreshed
// in place by its Authenticator; it is never persisted.
type Credential struct {
	Headers   map[string]string
	ExpiresAt time.Time
}

// Apply sets the credential headers on req.
func (c Credential) Apply(req *http.Request) {
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}
}

// Authenticator obtains provider credentials, refreshing them when expired.
// Implementations must be safe for concurrent use.
type Authenticator interface {
	Authenticate(ctx context.Context) (Credential, error)
}
