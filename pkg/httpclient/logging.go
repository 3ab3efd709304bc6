package httpclient

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

// LogLevel selects how much of each exchange is logged.
type LogLevel int

const (
	LogNone LogLevel = iota
	LogInfo
	LogHeaders
	LogBody
	LogAll
)

// DefaultLogLevel matches the verbosity used when nothing is configured.
const DefaultLogLevel = LogHeaders

const maxLoggedBodyBytes = 4096

// ParseLogLevel maps a config value to a LogLevel.
func ParseLogLevel(name string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none", "off":
		return LogNone, nil
	case "info":
		return LogInfo, nil
	case "", "headers":
		return LogHeaders, nil
	case "body":
		return LogBody, nil
	case "all":
		return LogAll, nil
	default:
		return LogNone, fmt.Errorf("unknown http log level %q", name)
	}
}

func (l LogLevel) String() string {
	switch l {
	case LogNone:
		return "none"
	case LogInfo:
		return "info"
	case LogHeaders:
		return "headers"
	case LogBody:
		return "body"
	case LogAll:
		return "all"
	default:
		return fmt.Sprintf("LogLevel(%d)", int(l))
	}
}

func (l LogLevel) headers() bool { return l == LogHeaders || l == LogAll }
func (l LogLevel) body() bool    { return l == LogBody || l == LogAll }

type exchangeLogger struct {
	level LogLevel
	log   Logger
}

// request is installed as the pre-request hook so it sees the final URL and
// the merged headers, including Authorization.
func (e exchangeLogger) request(_ *resty.Client, req *http.Request) error {
	if e.level == LogNone {
		return nil
	}
	fields := map[string]any{
		"method": req.Method,
		"url":    req.URL.String(),
	}
	if e.level.headers() {
		fields["headers"] = redactHeaders(req.Header)
	}
	if e.level.body() && req.GetBody != nil {
		if rc, err := req.GetBody(); err == nil {
			raw, _ := io.ReadAll(io.LimitReader(rc, maxLoggedBodyBytes))
			rc.Close()
			fields["body"] = string(raw)
		}
	}
	e.log.InfoObj("http request", "http_request", fields)
	return nil
}

func (e exchangeLogger) response(_ *resty.Client, resp *resty.Response) error {
	if e.level == LogNone {
		return nil
	}
	fields := map[string]any{
		"status":     resp.StatusCode(),
		"elapsed_ms": resp.Time().Milliseconds(),
	}
	if resp.Request != nil {
		fields["method"] = resp.Request.Method
		if resp.Request.RawRequest != nil {
			fields["url"] = resp.Request.RawRequest.URL.String()
		}
	}
	if e.level.headers() {
		fields["headers"] = redactHeaders(resp.Header())
	}
	if e.level.body() {
		body := resp.Body()
		if len(body) > maxLoggedBodyBytes {
			body = body[:maxLoggedBodyBytes]
		}
		fields["body"] = string(body)
	}
	e.log.InfoObj("http response", "http_response", fields)
	return nil
}

func (e exchangeLogger) failure(req *resty.Request, err error) {
	if e.level == LogNone || req == nil {
		return
	}
	e.log.WarnObj("http request failed", "http_failure", map[string]any{
		"method": req.Method,
		"url":    req.URL,
		"error":  err.Error(),
	})
}

func redactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		val := strings.Join(v, ", ")
		if strings.EqualFold(k, "Authorization") {
			if scheme, _, ok := strings.Cut(val, " "); ok {
				val = scheme + " ***"
			} else {
				val = "***"
			}
		}
		out[k] = val
	}
	return out
}

// restyLogger routes resty's own diagnostics into Logger.
type restyLogger struct {
	log Logger
}

func (r restyLogger) Errorf(format string, v ...interface{}) {
	r.log.ErrorObj("resty", "message", fmt.Sprintf(format, v...))
}

func (r restyLogger) Warnf(format string, v ...interface{}) {
	r.log.WarnObj("resty", "message", fmt.Sprintf(format, v...))
}

func (r restyLogger) Debugf(format string, v ...interface{}) {
	r.log.DebugObj("resty", "message", fmt.Sprintf(format, v...))
}
