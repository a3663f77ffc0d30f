package auth

import (
	"context"
	"errors"
	"strings"
)

// KeyPair authenticates with a static key/secret header pair. It never
// expires and requires no network round trip.
type KeyPair struct {
	key    string
	secret string
}

// NewKeyPair validates the pair and returns an authenticator for it.
func NewKeyPair(key, secret string) (*KeyPair, error) {
	key = strings.TrimSpace(key)
	secret = strings.TrimSpace(secret)
	if key == "" || secret == "" {
		return nil, errors.New("auth: api key and secret are required")
	}
	return &KeyPair{key: key, secret: secret}, nil
}

func (k *KeyPair) Authenticate(ctx context.Context) (Credential, error) {
	return Credential{Headers: map[string]string{
		"X-Key":    "Key " + k.key,
		"X-Secret": "Secret " + k.secret,
	}}, nil
}

// StaticToken authenticates with a fixed bearer token.
type StaticToken struct {
	token string
}

// NewStaticToken validates the token and returns an authenticator for it.
func NewStaticToken(token string) (*StaticToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("auth: api token is required")
	}
	return &StaticToken{token: token}, nil
}

func (t *StaticToken) Authenticate(ctx context.Context) (Credential, error) {
	return Credential{Headers: map[string]string{"Authorization": "Bearer " + t.token}}, nil
}

var (
	_ Authenticator = (*KeyPair)(nil)
	_ Authenticator = (*StaticToken)(nil)
)
