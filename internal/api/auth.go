package api

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/joseph-ayodele/payment-orchestrator/internal/entity"
)

// TokenSource hands out bearer tokens for backend calls.
type TokenSource interface {
	Token(ctx context.Context) (*entity.Token, error)
}

// StaticToken always returns the same access token.
type StaticToken string

func (s StaticToken) Token(context.Context) (*entity.Token, error) {
	return &entity.Token{AccessToken: string(s), TokenType: "bearer"}, nil
}

const tokenExpirySkew = 30 * time.Second

// ClientCredentials fetches tokens with the OAuth client-credentials grant
// and caches them until shortly before they expire.
type ClientCredentials struct {
	authURL      string
	clientID     string
	clientSecret string
	hc           *http.Client
	logger       *slog.Logger
	now          func() time.Time

	mu      sync.Mutex
	current *entity.Token
}

// NewClientCredentials builds a token source against authURL.
func NewClientCredentials(authURL, clientID, clientSecret string, hc *http.Client, logger *slog.Logger) *ClientCredentials {
	if logger == nil {
		logger = slog.Default()
	}
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &ClientCredentials{
		authURL:      strings.TrimRight(authURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		hc:           hc,
		logger:       logger,
		now:          time.Now,
	}
}

// Token returns the cached token or fetches a new one. Concurrent callers
// share a single fetch.
func (s *ClientCredentials) Token(ctx context.Context) (*entity.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.Valid(s.now(), tokenExpirySkew) {
		return s.current, nil
	}
	tok, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if !tok.Equal(s.current) {
		s.logger.Info("api.auth.token_refreshed", "expires_in", tok.ExpiresIn, "scope", tok.Scope)
	}
	s.current = tok
	return tok, nil
}

// Invalidate drops the cached token so the next call fetches a fresh one.
func (s *ClientCredentials) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

func (s *ClientCredentials) fetch(ctx context.Context) (*entity.Token, error) {
	const op = "token"
	q := url.Values{"grant_type": {"client_credentials"}}
	c := &Client{hc: s.hc, logger: s.logger}
	resp, err := c.send(ctx, request{
		op:     op,
		method: http.MethodPost,
		url:    s.authURL + "/oauth/token?" + q.Encode(),
		accept: "application/json",
		headers: map[string]string{
			"Authorization": "Basic " + basicAuth(s.clientID, s.clientSecret),
		},
		noAuth: true,
	})
	if err != nil {
		return nil, err
	}
	var tok entity.Token
	if err := c.decode(op, tokenSchema, resp.Body, &tok); err != nil {
		return nil, err
	}
	if tok.ExpiresIn > 0 {
		tok.ExpiresAt = s.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	}
	return &tok, nil
}

func basicAuth(user, pass string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
}

var _ TokenSource = (*ClientCredentials)(nil)
