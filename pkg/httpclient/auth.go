package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
)

// BearerTokens is the access/refresh pair used for bearer authentication.
type BearerTokens struct {
	AccessToken  string
	RefreshToken string
}

// TokenLoader supplies the initial token pair. It is called once, on the first
// authenticated request.
type TokenLoader func(ctx context.Context) (BearerTokens, error)

// TokenRefresher exchanges a rejected token pair for a new one.
type TokenRefresher func(ctx context.Context, old BearerTokens) (BearerTokens, error)

// StaticTokens returns a loader that always yields t.
func StaticTokens(t BearerTokens) TokenLoader {
	return func(context.Context) (BearerTokens, error) { return t, nil }
}

// RefreshNotImplemented is the default refresh hook. It always fails.
func RefreshNotImplemented(context.Context, BearerTokens) (BearerTokens, error) {
	return BearerTokens{}, ErrRefreshNotImplemented
}

// SendUnlessLogin attaches credentials to every request except those whose
// final path segment is "login".
func SendUnlessLogin(rawURL string) bool {
	return lastPathSegment(rawURL) != "login"
}

func lastPathSegment(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	segments := strings.Split(p, "/")
	return segments[len(segments)-1]
}

type bearerAuth struct {
	load       TokenLoader
	refresh    TokenRefresher
	shouldSend func(rawURL string) bool
	log        Logger

	mu     sync.Mutex
	tokens *BearerTokens
}

func newBearerAuth(opts Options, log Logger) *bearerAuth {
	a := &bearerAuth{
		load:       opts.LoadTokens,
		refresh:    opts.RefreshTokens,
		shouldSend: opts.SendWithoutRequest,
		log:        log,
	}
	if a.load == nil {
		a.load = StaticTokens(opts.Tokens)
	}
	if a.refresh == nil {
		a.refresh = RefreshNotImplemented
	}
	if a.shouldSend == nil {
		a.shouldSend = SendUnlessLogin
	}
	return a
}

func (a *bearerAuth) current(ctx context.Context) (BearerTokens, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.tokens != nil {
		return *a.tokens, nil
	}
	t, err := a.load(ctx)
	if err != nil {
		return BearerTokens{}, err
	}
	a.tokens = &t
	return t, nil
}

// beforeRequest attaches the access token to requests selected by shouldSend.
func (a *bearerAuth) beforeRequest(_ *resty.Client, req *resty.Request) error {
	if !a.shouldSend(req.URL) {
		return nil
	}
	tokens, err := a.current(req.Context())
	if err != nil {
		return fmt.Errorf("load bearer tokens: %w", err)
	}
	if tokens.AccessToken != "" {
		req.SetAuthToken(tokens.AccessToken)
	}
	return nil
}

// afterResponse runs the refresh hook when an authenticated request is rejected.
func (a *bearerAuth) afterResponse(_ *resty.Client, resp *resty.Response) error {
	if resp.StatusCode() != http.StatusUnauthorized || resp.Request == nil || resp.Request.Token == "" {
		return nil
	}
	_, err := a.Refresh(resp.Request.Context())
	return err
}

// Refresh invokes the refresh hook and stores the new pair for later requests.
func (a *bearerAuth) Refresh(ctx context.Context) (BearerTokens, error) {
	old, err := a.current(ctx)
	if err != nil {
		return BearerTokens{}, fmt.Errorf("load bearer tokens: %w", err)
	}

	fresh, err := a.refresh(ctx, old)
	if err != nil {
		if errors.Is(err, ErrRefreshNotImplemented) {
			a.log.ErrorObj("bearer token refresh invoked but not implemented", "auth_error", err.Error())
			return BearerTokens{}, &FetchError{Kind: KindUnimplemented, Op: "refresh bearer tokens", Err: err}
		}
		return BearerTokens{}, fmt.Errorf("refresh bearer tokens: %w", err)
	}

	a.mu.Lock()
	a.tokens = &fresh
	a.mu.Unlock()
	return fresh, nil
}
