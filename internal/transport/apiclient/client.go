// Package apiclient is the single HTTP client to the upstream REST API. It
// attaches the session bearer token, unwraps the {success,data,message}
// envelope, retries transient failures and ends the session on 401.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"kycportal/internal/platform/metrics"
	dErrors "kycportal/pkg/domain-errors"
	"kycportal/pkg/platform/circuit"
	"kycportal/pkg/platform/middleware/requestid"
	"kycportal/pkg/requestcontext"
)

// ErrSessionExpired is returned when the upstream rejects the bearer token.
// The session has already been cleared when a caller sees it.
var ErrSessionExpired = dErrors.New(dErrors.CodeUnauthorized, "session expired")

const tracerName = "kycportal/apiclient"

// Session supplies the bearer token and is ended on 401.
type Session interface {
	Token() string
	Logout(ctx context.Context) error
}

type Client struct {
	base       *url.URL
	http       *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
	breaker    *circuit.Breaker
	tracer     trace.Tracer
	maxRetries uint64
	initial    time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithRetry overrides the retry budget and the first backoff interval.
// Each further interval doubles.
func WithRetry(maxRetries uint64, initial time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.initial = initial
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

// New builds a client for baseURL (for example "http://localhost:8080/api").
func New(baseURL string, timeout time.Duration, logger *slog.Logger, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid upstream base URL %q", baseURL)
	}
	c := &Client{
		base:       base,
		http:       &http.Client{Timeout: timeout},
		logger:     logger,
		breaker:    circuit.New("upstream"),
		tracer:     otel.Tracer(tracerName),
		maxRetries: 2,
		initial:    300 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Request describes one upstream call. Query values are appended to Path.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// Do sends req with sess's token and decodes the envelope data into out.
// sess may be nil for anonymous calls such as login; a 401 on an anonymous
// call is a plain unauthorized error and touches no session.
func (c *Client) Do(ctx context.Context, sess Session, req Request, out any) error {
	var payload []byte
	if req.Body != nil {
		var err error
		payload, err = json.Marshal(req.Body)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "encode request body")
		}
	}

	ctx, span := c.tracer.Start(ctx, "apiclient "+req.Method+" "+req.Path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.Path),
		),
	)
	defer span.End()

	token := ""
	if sess != nil {
		token = sess.Token()
	}

	retries := c.maxRetries
	if c.breaker.IsOpen() {
		retries = 0
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(c.schedule(), retries), ctx)

	attempt := 0
	var body []byte
	op := func() error {
		attempt++
		var err error
		body, err = c.send(ctx, req, payload, token)
		if err == nil {
			return nil
		}
		if retryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		c.metrics.IncrementUpstreamRetries()
		c.logger.WarnContext(ctx, "retrying upstream call",
			"method", req.Method,
			"path", req.Path,
			"attempt", attempt,
			"wait", wait,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}

	err := backoff.RetryNotify(op, policy, notify)
	span.SetAttributes(attribute.Int("apiclient.attempts", attempt))
	c.recordOutcome(ctx, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return c.finish(ctx, sess, token, err)
	}

	if out == nil {
		return nil
	}
	data := gjson.GetBytes(body, "data")
	if !data.Exists() || data.Type == gjson.Null {
		return dErrors.New(dErrors.CodeNotFound, "empty response data")
	}
	if err := json.Unmarshal([]byte(data.Raw), out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "decode upstream response")
	}
	return nil
}

func (c *Client) schedule() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initial
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = c.initial << 4
	b.MaxElapsedTime = 0
	return b
}

// statusError is an upstream response outside 2xx.
type statusError struct {
	status  int
	message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.status, e.message)
}

func (c *Client) send(ctx context.Context, req Request, payload []byte, token string) ([]byte, error) {
	u := *c.base
	u.Path = c.base.Path + req.Path
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), reader)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "build upstream request")
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	if reqID := requestcontext.RequestID(ctx); reqID != "" {
		httpReq.Header.Set(requestid.Header, reqID)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.ObserveUpstream(req.Method, "error", time.Since(start))
		return nil, err
	}
	defer resp.Body.Close()
	c.metrics.ObserveUpstream(req.Method, strconv.Itoa(resp.StatusCode), time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := gjson.GetBytes(body, "message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &statusError{status: resp.StatusCode, message: msg}
	}
	if success := gjson.GetBytes(body, "success"); success.Exists() && !success.Bool() {
		msg := gjson.GetBytes(body, "message").String()
		return nil, &statusError{status: http.StatusBadRequest, message: msg}
	}
	return body, nil
}

// retryable covers network failures and 5xx. Context cancellation never
// retries.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.status >= 500
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// recordOutcome feeds the breaker. Only network failures and 5xx count
// against the upstream; any other response proves it is alive.
func (c *Client) recordOutcome(ctx context.Context, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	if err != nil && retryable(err) {
		if _, change := c.breaker.RecordFailure(); change.Opened {
			c.logger.WarnContext(ctx, "upstream circuit opened, retries suspended")
		}
		return
	}
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "upstream circuit closed")
	}
}

// finish maps a transport failure to a coded error. A 401 on an
// authenticated call ends the session first.
func (c *Client) finish(ctx context.Context, sess Session, token string, err error) error {
	if errors.Is(err, context.Canceled) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "request cancelled")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "upstream timed out")
	}

	var se *statusError
	if !errors.As(err, &se) {
		var de *dErrors.Error
		if errors.As(err, &de) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "upstream unreachable")
	}

	switch {
	case se.status == http.StatusUnauthorized && sess != nil && token != "":
		c.metrics.IncrementSessionsExpired()
		if logoutErr := sess.Logout(ctx); logoutErr != nil {
			c.logger.ErrorContext(ctx, "failed to clear expired session", "error", logoutErr)
		}
		c.logger.InfoContext(ctx, "upstream rejected token, session cleared",
			"request_id", requestcontext.RequestID(ctx))
		return ErrSessionExpired
	case se.status == http.StatusUnauthorized:
		return dErrors.New(dErrors.CodeUnauthorized, se.message)
	case se.status == http.StatusForbidden:
		return dErrors.New(dErrors.CodeForbidden, se.message)
	case se.status == http.StatusNotFound:
		return dErrors.New(dErrors.CodeNotFound, se.message)
	case se.status == http.StatusConflict:
		return dErrors.New(dErrors.CodeConflict, se.message)
	case se.status == http.StatusUnprocessableEntity:
		return dErrors.New(dErrors.CodeValidation, se.message)
	case se.status == http.StatusTooManyRequests:
		return dErrors.New(dErrors.CodeRateLimited, se.message)
	case se.status >= 500:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, se.message)
	default:
		return dErrors.New(dErrors.CodeBadRequest, se.message)
	}
}
