package httpclient

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	HeaderContentType = "Content-Type"
	ContentTypeJSON   = "application/json"
)

// Options configures a RestyClient. The zero value talks to no base URL,
// without a timeout, with an empty static token.
type Options struct {
	BaseURL string
	// Timeout of zero disables the client-side timeout; cancellation then
	// comes only from the request context.
	Timeout time.Duration

	Tokens        BearerTokens
	LoadTokens    TokenLoader    // overrides Tokens when set
	RefreshTokens TokenRefresher // defaults to RefreshNotImplemented
	// SendWithoutRequest decides per request URL whether credentials are
	// attached up front. Defaults to SendUnlessLogin.
	SendWithoutRequest func(rawURL string) bool

	LogLevel LogLevel
	Logger   Logger
	Codec    *JSONCodec
}

// RestyClient adapts resty.Client to the httpclient.Client interface.
type RestyClient struct {
	client *resty.Client
	codec  *JSONCodec
	auth   *bearerAuth
	log    Logger
}

var _ Client = (*RestyClient)(nil)

// NewRestyClient creates a fully configured API client. It performs no I/O.
func NewRestyClient(opts Options) *RestyClient {
	log := ensureLogger(opts.Logger)
	codec := opts.Codec
	if codec == nil {
		codec = NewJSONCodec(DefaultCodecOptions())
	}

	c := newRestyBaseClient(opts.Timeout, codec)
	if opts.BaseURL != "" {
		c.SetBaseURL(opts.BaseURL)
	}
	// Client-level headers only apply when the request has not set its own.
	c.SetHeader(HeaderContentType, ContentTypeJSON)
	c.SetAuthScheme("Bearer")
	c.SetLogger(restyLogger{log: log})

	auth := newBearerAuth(opts, log)
	exchanges := exchangeLogger{level: opts.LogLevel, log: log}

	c.OnBeforeRequest(auth.beforeRequest)
	c.SetPreRequestHook(exchanges.request)
	c.OnAfterResponse(exchanges.response)
	c.OnAfterResponse(auth.afterResponse)
	c.OnError(exchanges.failure)

	return &RestyClient{client: c, codec: codec, auth: auth, log: log}
}

// NewRestyHTTPClient exposes a resty.Client using the given codec for callers
// needing custom verbs. A nil codec uses DefaultCodecOptions.
func NewRestyHTTPClient(timeout time.Duration, codec *JSONCodec) *resty.Client {
	if codec == nil {
		codec = NewJSONCodec(DefaultCodecOptions())
	}
	return newRestyBaseClient(timeout, codec)
}

// newRestyBaseClient creates a new resty.Client with the specified timeout and codec.
func newRestyBaseClient(timeout time.Duration, codec *JSONCodec) *resty.Client {
	c := resty.New()
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	c.SetRetryCount(0)
	c.SetJSONMarshaler(codec.Marshal)
	c.SetJSONUnmarshaler(codec.Unmarshal)
	return c
}

// RefreshTokens runs the configured refresh hook directly.
func (r *RestyClient) RefreshTokens(ctx context.Context) (BearerTokens, error) {
	return r.auth.Refresh(ctx)
}

// Get performs an HTTP GET request with the specified context, URL, and headers.
// Non-2xx statuses are not errors here; see GetJSON.
func (r *RestyClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	req := r.client.R().SetContext(ctx)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	resp, err := req.Get(url)
	if err != nil {
		return nil, asFetchError(http.MethodGet+" "+url, err)
	}
	return &restyResponseAdapter{resp: resp}, nil
}

// GetJSON performs a GET and decodes a 2xx body into out.
func (r *RestyClient) GetJSON(ctx context.Context, url string, out any) error {
	op := http.MethodGet + " " + url

	resp, err := r.Get(ctx, url, nil)
	if err != nil {
		return err
	}
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return &FetchError{
			Kind:       KindStatus,
			Op:         op,
			StatusCode: code,
			Body:       responseSnippet(resp.Header(), resp.Body()),
		}
	}
	if err := r.codec.Unmarshal(resp.Body(), out); err != nil {
		return NewDecodeError(op, err)
	}
	return nil
}

// restyResponseAdapter adapts resty.Response to the httpclient.Response interface.
type restyResponseAdapter struct {
	resp *resty.Response
}

func (r *restyResponseAdapter) Body() []byte        { return r.resp.Body() }
func (r *restyResponseAdapter) StatusCode() int     { return r.resp.StatusCode() }
func (r *restyResponseAdapter) Header() http.Header { return r.resp.Header() }
