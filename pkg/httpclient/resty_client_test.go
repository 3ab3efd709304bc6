package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// recordingServer captures the headers of every request it receives.
type recordingServer struct {
	mu      sync.Mutex
	headers map[string]http.Header
}

func (s *recordingServer) handler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		if s.headers == nil {
			s.headers = make(map[string]http.Header)
		}
		s.headers[r.URL.Path] = r.Header.Clone()
		s.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func (s *recordingServer) header(path string) http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headers[path]
}

func newTestClient(baseURL string, opts Options) *RestyClient {
	opts.BaseURL = baseURL
	if opts.Tokens == (BearerTokens{}) {
		opts.Tokens = BearerTokens{AccessToken: "123"}
	}
	return NewRestyClient(opts)
}

func TestClientAttachesBearerExceptLogin(t *testing.T) {
	rec := &recordingServer{}
	srv := httptest.NewServer(rec.handler(http.StatusOK, `{}`))
	defer srv.Close()

	client := newTestClient(srv.URL, Options{})

	for _, path := range []string{"/users", "/auth/login", "/login-history"} {
		if _, err := client.Get(context.Background(), path, nil); err != nil {
			t.Fatalf("Get %s: %v", path, err)
		}
	}

	if got := rec.header("/users").Get("Authorization"); got != "Bearer 123" {
		t.Fatalf("expected bearer token on /users, got %q", got)
	}
	if got := rec.header("/auth/login").Get("Authorization"); got != "" {
		t.Fatalf("expected no Authorization on login, got %q", got)
	}
	if got := rec.header("/login-history").Get("Authorization"); got != "Bearer 123" {
		t.Fatalf("expected bearer token on /login-history, got %q", got)
	}
}

func TestClientCustomSendPredicate(t *testing.T) {
	rec := &recordingServer{}
	srv := httptest.NewServer(rec.handler(http.StatusOK, `{}`))
	defer srv.Close()

	client := newTestClient(srv.URL, Options{
		SendWithoutRequest: func(rawURL string) bool {
			return !strings.Contains(rawURL, "/public/")
		},
	})

	for _, path := range []string{"/public/status", "/login"} {
		if _, err := client.Get(context.Background(), path, nil); err != nil {
			t.Fatalf("Get %s: %v", path, err)
		}
	}

	if got := rec.header("/public/status").Get("Authorization"); got != "" {
		t.Fatalf("expected no Authorization on public path, got %q", got)
	}
	if got := rec.header("/login").Get("Authorization"); got != "Bearer 123" {
		t.Fatalf("expected custom predicate to replace the login exemption, got %q", got)
	}
}

func TestClientDefaultsContentTypeUnlessSet(t *testing.T) {
	rec := &recordingServer{}
	srv := httptest.NewServer(rec.handler(http.StatusOK, `{}`))
	defer srv.Close()

	client := newTestClient(srv.URL, Options{})

	if _, err := client.Get(context.Background(), "/users", nil); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := client.Get(context.Background(), "/custom", map[string]string{"Content-Type": "text/plain"}); err != nil {
		t.Fatalf("Get: %v", err)
	}

	if got := rec.header("/users").Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected default content type, got %q", got)
	}
	if got := rec.header("/custom").Get("Content-Type"); got != "text/plain" {
		t.Fatalf("expected caller content type preserved, got %q", got)
	}
}

func TestClientAbsoluteURLOverridesBase(t *testing.T) {
	rec := &recordingServer{}
	srv := httptest.NewServer(rec.handler(http.StatusOK, `{}`))
	defer srv.Close()

	client := newTestClient("http://127.0.0.1:1", Options{})
	if _, err := client.Get(context.Background(), srv.URL+"/users", nil); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.header("/users") == nil {
		t.Fatalf("request did not reach the absolute URL")
	}
}

func TestGetJSONStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html><head><title>502 Bad Gateway</title></head><body>upstream</body></html>`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, Options{})
	var out map[string]any
	err := client.GetJSON(context.Background(), "/users", &out)
	if !IsKind(err, KindStatus) {
		t.Fatalf("expected status error, got %v", err)
	}
	if StatusCode(err) != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", StatusCode(err))
	}
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Body != "502 Bad Gateway" {
		t.Fatalf("expected html title as body snippet, got %#v", fe)
	}
}

func TestGetJSONDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id": "not-a-number"}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, Options{})
	var out struct {
		ID int64 `json:"id"`
	}
	err := client.GetJSON(context.Background(), "/users/1", &out)
	if !IsKind(err, KindDecode) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestGetTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	client := newTestClient(base, Options{})
	_, err := client.Get(context.Background(), "/users", nil)
	if !IsKind(err, KindTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestGetHonoursCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(srv.URL, Options{})
	_, err := client.Get(ctx, "/users", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestUnauthorizedTriggersUnimplementedRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, Options{})
	var out map[string]any
	err := client.GetJSON(context.Background(), "/users", &out)
	if !errors.Is(err, ErrRefreshNotImplemented) {
		t.Fatalf("expected ErrRefreshNotImplemented, got %v", err)
	}
	if !IsKind(err, KindUnimplemented) {
		t.Fatalf("expected unimplemented kind, got %s", KindOf(err))
	}
}

func TestUnauthorizedLoginIsPlainStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, Options{})
	var out map[string]any
	err := client.GetJSON(context.Background(), "/login", &out)
	if !IsKind(err, KindStatus) || StatusCode(err) != http.StatusUnauthorized {
		t.Fatalf("expected 401 status error, got %v", err)
	}
}

func TestCustomRefreshStoresNewTokens(t *testing.T) {
	rec := &recordingServer{}
	srv := httptest.NewServer(rec.handler(http.StatusOK, `{}`))
	defer srv.Close()

	client := newTestClient(srv.URL, Options{
		RefreshTokens: func(_ context.Context, old BearerTokens) (BearerTokens, error) {
			return BearerTokens{AccessToken: old.AccessToken + "-new"}, nil
		},
	})

	tokens, err := client.RefreshTokens(context.Background())
	if err != nil {
		t.Fatalf("RefreshTokens: %v", err)
	}
	if tokens.AccessToken != "123-new" {
		t.Fatalf("unexpected refreshed token %q", tokens.AccessToken)
	}
	if _, err := client.Get(context.Background(), "/users", nil); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got := rec.header("/users").Get("Authorization"); got != "Bearer 123-new" {
		t.Fatalf("expected refreshed token on request, got %q", got)
	}
}

func TestTokenLoaderCalledOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var mu sync.Mutex
	calls := 0
	client := newTestClient(srv.URL, Options{
		LoadTokens: func(context.Context) (BearerTokens, error) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			return BearerTokens{AccessToken: "abc"}, nil
		},
	})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.Get(context.Background(), "/users", nil); err != nil {
				t.Errorf("Get: %v", err)
			}
		}()
	}
	wg.Wait()

	if calls != 1 {
		t.Fatalf("expected loader to run once, ran %d times", calls)
	}
}

type captureLogger struct {
	mu      sync.Mutex
	entries []string
	fields  []any
}

func (c *captureLogger) record(msg string, obj any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, msg)
	c.fields = append(c.fields, obj)
}

func (c *captureLogger) InfoObj(msg, _ string, obj interface{})  { c.record(msg, obj) }
func (c *captureLogger) DebugObj(msg, _ string, obj interface{}) { c.record(msg, obj) }
func (c *captureLogger) WarnObj(msg, _ string, obj interface{})  { c.record(msg, obj) }
func (c *captureLogger) ErrorObj(msg, _ string, obj interface{}) { c.record(msg, obj) }

func TestExchangeLoggingRedactsAuthorization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	log := &captureLogger{}
	client := newTestClient(srv.URL, Options{LogLevel: LogAll, Logger: log})
	if _, err := client.Get(context.Background(), "/users", nil); err != nil {
		t.Fatalf("Get: %v", err)
	}

	if len(log.entries) != 2 || log.entries[0] != "http request" || log.entries[1] != "http response" {
		t.Fatalf("unexpected log entries %v", log.entries)
	}
	req := log.fields[0].(map[string]any)
	headers := req["headers"].(map[string]string)
	if headers["Authorization"] != "Bearer ***" {
		t.Fatalf("expected redacted authorization, got %q", headers["Authorization"])
	}
	resp := log.fields[1].(map[string]any)
	if resp["status"] != http.StatusOK || resp["body"] != "[]" {
		t.Fatalf("unexpected response fields %#v", resp)
	}
}

func TestExchangeLoggingNone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	log := &captureLogger{}
	client := newTestClient(srv.URL, Options{LogLevel: LogNone, Logger: log})
	if _, err := client.Get(context.Background(), "/users", nil); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(log.entries) != 0 {
		t.Fatalf("expected no log entries, got %v", log.entries)
	}
}

func TestParseLogLevel(t *testing.T) {
	if lvl, err := ParseLogLevel(""); err != nil || lvl != DefaultLogLevel {
		t.Fatalf("expected default level, got %v %v", lvl, err)
	}
	if lvl, err := ParseLogLevel("BODY"); err != nil || lvl != LogBody {
		t.Fatalf("expected body level, got %v %v", lvl, err)
	}
	if _, err := ParseLogLevel("verbose"); err == nil || !strings.Contains(err.Error(), "verbose") {
		t.Fatalf("expected error naming the bad level, got %v", err)
	}
}
