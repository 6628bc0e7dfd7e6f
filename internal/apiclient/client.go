package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"time"

	"github.com/geocoder89/givehub/internal/actorctx"
	"github.com/geocoder89/givehub/internal/flash"
	"github.com/geocoder89/givehub/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	MsgSessionExpired = "Session expired. Please login again."
	MsgGeneric        = "An error occurred"
	MsgNetwork        = "Network error. Please check your connection."

	maxBodyBytes = 4 << 20
)

// SessionHooks connects the client to whatever holds the visitor's session.
type SessionHooks interface {
	// Credential returns the bearer credential for the session on ctx, or "".
	Credential(ctx context.Context) string
	// Expire drops the session on ctx after the backend rejected its credential.
	Expire(ctx context.Context)
}

type Notifier interface {
	Notify(ctx context.Context, n flash.Notice)
}

// Client is the backend REST client. All error-to-notice translation happens
// here so page handlers only deal with the success path.
type Client struct {
	baseURL    string
	hooks      SessionHooks
	notifier   Notifier
	httpClient *http.Client
	prom       *observability.Prom
	log        *slog.Logger
	tracer     trace.Tracer
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithProm(p *observability.Prom) Option {
	return func(c *Client) { c.prom = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func New(baseURL string, hooks SessionHooks, notifier Notifier, opts ...Option) *Client {
	c := &Client{
		baseURL:  baseURL,
		hooks:    hooks,
		notifier: notifier,
		// no explicit timeout: callers bound requests through ctx
		httpClient: &http.Client{},
		log:        slog.Default(),
		tracer:     otel.Tracer("github.com/geocoder89/givehub/internal/apiclient"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Do issues an authenticated request and decodes the JSON response into out.
func (c *Client) Do(ctx context.Context, method, path string, body any, out any) error {
	return c.doRequest(ctx, method, path, body, out, false)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.doRequest(ctx, http.MethodGet, path, nil, out, false)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	return c.doRequest(ctx, http.MethodPost, path, body, out, false)
}

// public requests never carry the credential and a 401 from them is an
// ordinary failure (wrong password), not an expired session.
func (c *Client) postPublic(ctx context.Context, path string, body any, out any) error {
	return c.doRequest(ctx, http.MethodPost, path, body, out, true)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, out any, public bool) (err error) {
	ctx, span := c.tracer.Start(ctx, "backend "+method, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
	)

	start := time.Now()
	status := "network_error"
	defer func() {
		if c.prom != nil {
			c.prom.BackendRequestsTotal.WithLabelValues(method, status).Inc()
			c.prom.BackendRequestDuration.WithLabelValues(method, status).Observe(time.Since(start).Seconds())
		}
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			var apiErr *Error
			if errors.As(err, &apiErr) {
				apiErr.quiet = isQuiet(ctx)
			}
		}
	}()

	var reqBody io.Reader
	if body != nil {
		data, mErr := json.Marshal(body)
		if mErr != nil {
			return fmt.Errorf("marshal body: %w", mErr)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	credential := ""
	if !public && c.hooks != nil {
		credential = c.hooks.Credential(ctx)
	}
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	if rid := actorctx.RequestIDFrom(ctx); rid != "" {
		req.Header.Set("X-Request-Id", rid)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.WarnContext(ctx, "backend unreachable", "method", method, "path", path, "err", err)
		c.notify(ctx, flash.Error(MsgNetwork))
		return &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	status = strconv.Itoa(resp.StatusCode)
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.notify(ctx, flash.Error(MsgNetwork))
		return &Error{Kind: KindNetwork, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	c.log.DebugContext(ctx, "backend call", "method", method, "path", path, "status", resp.StatusCode,
		"latency_ms", time.Since(start).Milliseconds())

	if resp.StatusCode >= 400 {
		return c.fail(ctx, resp.StatusCode, respBody, public)
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}

	if err := decode(respBody, out); err != nil {
		c.notify(ctx, flash.Error(MsgGeneric))
		return &Error{Kind: KindBackend, StatusCode: resp.StatusCode, Message: "malformed response", Err: err}
	}
	return nil
}

func (c *Client) fail(ctx context.Context, code int, body []byte, public bool) error {
	msg := errorMessage(body)

	if code == http.StatusUnauthorized && !public {
		if c.hooks != nil {
			c.hooks.Expire(ctx)
		}
		c.notify(ctx, flash.Error(MsgSessionExpired))
		return &Error{Kind: KindAuth, StatusCode: code, Message: msg}
	}

	if msg != "" {
		c.notify(ctx, flash.Error(msg))
	} else {
		c.notify(ctx, flash.Error(MsgGeneric))
	}

	return &Error{Kind: KindBackend, StatusCode: code, Message: msg}
}

func (c *Client) notify(ctx context.Context, n flash.Notice) {
	if c.notifier != nil && !isQuiet(ctx) {
		c.notifier.Notify(ctx, n)
	}
}

type quietKey struct{}

// Quiet marks ctx so failed calls queue no notice; the caller owns the
// message. Session expiry on a 401 still happens.
func Quiet(ctx context.Context) context.Context {
	return context.WithValue(ctx, quietKey{}, true)
}

func isQuiet(ctx context.Context) bool {
	v, _ := ctx.Value(quietKey{}).(bool)
	return v
}

// errorMessage pulls a human message from {"message": ".."} or {"error": ".."}.
func errorMessage(body []byte) string {
	var apiErr struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &apiErr) != nil {
		return ""
	}
	if apiErr.Message != "" {
		return apiErr.Message
	}

	var s string
	if json.Unmarshal(apiErr.Error, &s) == nil && s != "" {
		return s
	}

	var nested struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(apiErr.Error, &nested) == nil {
		return nested.Message
	}
	return ""
}

var errNotPointer = errors.New("decode target must be a non-nil pointer")

// decode normalizes the backend's two response shapes: the bare payload and
// the {"data": payload} envelope. List endpoints use both interchangeably.
func decode(body []byte, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errNotPointer
	}

	trimmed := bytes.TrimSpace(body)

	if rv.Elem().Kind() == reflect.Slice {
		return decodeList(trimmed, out)
	}

	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		if json.Unmarshal(trimmed, &env) == nil && len(env.Data) > 0 && env.Data[0] == '{' {
			return json.Unmarshal(env.Data, out)
		}
	}

	return json.Unmarshal(trimmed, out)
}

func decodeList(body []byte, out any) error {
	if len(body) == 0 {
		return nil
	}

	if body[0] == '[' {
		return json.Unmarshal(body, out)
	}

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return err
	}

	if len(env.Data) == 0 || string(env.Data) == "null" {
		// an envelope without data is an empty list
		return nil
	}
	return json.Unmarshal(env.Data, out)
}
