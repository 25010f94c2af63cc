package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/text/encoding/htmlindex"

	"torrentstream/streamresolver/internal/metrics"
)

const (
	defaultTimeout   = 12 * time.Second
	defaultUserAgent = "stream-resolver/1.0"
	maxBodyBytes     = 4 * 1024 * 1024
)

var ErrStatus = errors.New("unexpected upstream status")

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream HTTP %d for %s", e.Code, e.URL)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}

type Config struct {
	Client    *http.Client
	Timeout   time.Duration
	Retry     RetryConfig
	UserAgent string
	Logger    *slog.Logger
}

// Fetcher performs GET requests where every attempt is bounded by its own
// timeout and failed attempts are retried with exponential backoff.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	retry     RetryConfig
	userAgent string
	logger    *slog.Logger
}

type Request struct {
	// Upstream labels metrics and logs, e.g. "search" or "metadata".
	Upstream string
	URL      string
	Accept   string
	Header   http.Header
}

type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Text returns the body as UTF-8, decoding it with the charset announced by
// the response when the payload is not valid UTF-8 already.
func (r Response) Text() string {
	return decodeText(r.Body, r.ContentType)
}

// NewHTTPClient returns a traced client for outbound calls.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

func New(cfg Config) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := cfg.Client
	if client == nil {
		client = NewHTTPClient(timeout)
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client:    client,
		timeout:   timeout,
		retry:     cfg.Retry,
		userAgent: userAgent,
		logger:    logger,
	}
}

// Get fetches req.URL with the retry policy. Only a 2xx response is a success.
func (f *Fetcher) Get(ctx context.Context, req Request) (Response, error) {
	var resp Response
	attempt := 0
	err := RetryWithBackoff(ctx, f.retry, func(ctx context.Context) error {
		attempt++
		var err error
		resp, err = f.getOnce(ctx, req)
		if err != nil {
			f.logger.Debug("upstream attempt failed",
				slog.String("upstream", req.Upstream),
				slog.String("url", req.URL),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
		}
		return err
	})
	if err != nil {
		return Response{}, err
	}
	return resp, nil
}

func (f *Fetcher) getOnce(ctx context.Context, req Request) (Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	startedAt := time.Now()
	resp, err := f.do(attemptCtx, req)
	metrics.UpstreamRequestDuration.WithLabelValues(upstreamLabel(req)).Observe(time.Since(startedAt).Seconds())
	metrics.UpstreamRequestsTotal.WithLabelValues(upstreamLabel(req), statusLabel(resp, err)).Inc()
	return resp, err
}

func (f *Fetcher) do(ctx context.Context, req Request) (Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return Response{}, err
	}
	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}
	httpReq.Header.Set("User-Agent", f.userAgent)
	if req.Accept != "" {
		httpReq.Header.Set("Accept", req.Accept)
	}

	httpResp, err := f.client.Do(httpReq)
	if err != nil {
		return Response{}, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(httpResp.Body, 2048))
		return Response{StatusCode: httpResp.StatusCode}, &StatusError{URL: req.URL, Code: httpResp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return Response{}, err
	}
	return Response{
		URL:         req.URL,
		StatusCode:  httpResp.StatusCode,
		ContentType: httpResp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func upstreamLabel(req Request) string {
	if req.Upstream == "" {
		return "unknown"
	}
	return req.Upstream
}

func statusLabel(resp Response, err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrStatus):
		return "http_" + strconv.Itoa(resp.StatusCode)
	default:
		return "error"
	}
}

func decodeText(body []byte, contentType string) string {
	if utf8.Valid(body) {
		return string(body)
	}
	name := "windows-1252"
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		if charset := strings.TrimSpace(params["charset"]); charset != "" {
			name = charset
		}
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return string(body)
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}
