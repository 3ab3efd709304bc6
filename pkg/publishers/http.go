package publishers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/samvad-hq/userlist/pkg/httpclient"
)

const (
	headerEventSource = "X-Event-Source"
	headerUsersCount  = "X-Users-Count"

	maxErrorBodyBytes = 512
)

// httpPublisher delivers the user list to a webhook as a compact JSON body.
// The source and list size travel as headers too, so receivers can route
// without decoding the payload.
type httpPublisher struct {
	id      string
	typ     string
	method  string
	url     string
	headers map[string]string
	client  *resty.Client
	log     Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}

	return &httpPublisher{
		id:      cfg.ID,
		typ:     TypeHTTP,
		method:  cfg.HTTP.Method,
		url:     cfg.HTTP.URL,
		headers: cfg.HTTP.Headers,
		client:  httpclient.NewRestyHTTPClient(time.Duration(cfg.HTTP.TimeoutSeconds)*time.Second, messageCodec),
		log:     ensureLogger(log),
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return h.typ }

// Publish sends the event. A non-2xx answer is reported as an httpclient
// status error carrying the start of the response body.
func (h *httpPublisher) Publish(ctx context.Context, evt Event) error {
	body, attrs, err := eventPayload(evt)
	if err != nil {
		return err
	}
	op := h.method + " " + h.url

	req := h.client.R().
		SetContext(ctx).
		SetHeaders(h.headers).
		SetHeader(httpclient.HeaderContentType, httpclient.ContentTypeJSON).
		SetHeader(headerEventSource, attrs["source"]).
		SetHeader(headerUsersCount, attrs["users_count"]).
		SetBody(body)

	resp, err := req.Execute(h.method, h.url)
	if err != nil {
		return &httpclient.FetchError{Kind: httpclient.KindTransport, Op: op, Err: err}
	}
	if resp.IsError() {
		return &httpclient.FetchError{
			Kind:       httpclient.KindStatus,
			Op:         op,
			StatusCode: resp.StatusCode(),
			Body:       errorBody(resp.Body()),
		}
	}
	h.log.DebugObj("http publisher delivered event", "publisher_http_delivery", map[string]any{
		"publisher_id": h.id,
		"status":       resp.StatusCode(),
		"users_count":  len(evt.Users),
	})
	return nil
}

func errorBody(body []byte) string {
	if len(body) > maxErrorBodyBytes {
		body = body[:maxErrorBodyBytes]
	}
	return strings.TrimSpace(string(body))
}
