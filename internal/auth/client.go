// Package auth obtains access tokens from the commerce backend.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/lojaops/gerencial-vendas/internal/fetcher"
	"github.com/lojaops/gerencial-vendas/internal/resilience"
)

// ErrNoToken is returned when the backend answers 200 without an access token.
var ErrNoToken = eris.New("auth: response carried no access token")

// Token is the credential pair returned by the backend.
type Token struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Client authenticates against the backend.
type Client interface {
	// Login exchanges the configured credentials for a token.
	Login(ctx context.Context) (*Token, error)
}

// Option configures the auth client.
type Option func(*httpClient)

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *httpClient) {
		if log != nil {
			c.log = log
		}
	}
}

type httpClient struct {
	poster   fetcher.Poster
	baseURL  string
	username string
	password string
	retry    resilience.RetryConfig
	log      *zap.Logger
}

// NewClient creates an auth client posting to {baseURL}/auth through poster.
func NewClient(poster fetcher.Poster, baseURL, username, password string, opts ...Option) Client {
	c := &httpClient{
		poster:   poster,
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		retry:    resilience.DefaultRetryConfig(),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(zap.String("component", "auth"))
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.RetryLogger(c.log, "login")
	}
	return c
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c *httpClient) Login(ctx context.Context) (*Token, error) {
	c.log.Info("authenticating", zap.String("user", c.username))

	tok, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*Token, error) {
		return c.login(ctx)
	})
	if err != nil {
		c.log.Error("authentication failed", zap.Error(err))
		return nil, eris.Wrap(err, "auth: login")
	}

	c.log.Info("authenticated")
	return tok, nil
}

func (c *httpClient) login(ctx context.Context) (*Token, error) {
	resp, err := c.poster.PostJSON(ctx, c.baseURL+"/auth", nil, loginRequest{
		Username: c.username,
		Password: c.password,
	})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resilience.StatusError("auth", resp.StatusCode, resp.Body)
	}

	var tok Token
	if err := json.Unmarshal(resp.Body, &tok); err != nil {
		return nil, eris.Wrap(err, "auth: unmarshal response")
	}
	if tok.AccessToken == "" {
		return nil, ErrNoToken
	}
	return &tok, nil
}
