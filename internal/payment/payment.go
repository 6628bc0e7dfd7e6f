package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const StatusSucceeded = "succeeded"

var ErrMalformedSecret = errors.New("client secret does not name a payment intent")

// ConfirmRequest carries what the hosted card widget produced in the browser.
// PaymentMethod is either a payment method id (pm_...) or a card token
// (tok_...); raw card data never reaches this server.
type ConfirmRequest struct {
	ClientSecret  string
	PaymentMethod string
	BillingName   string
	BillingEmail  string
}

type Result struct {
	Status        string
	TransactionID string
}

func (r Result) Succeeded() bool { return r.Status == StatusSucceeded }

type Confirmer interface {
	Confirm(ctx context.Context, req ConfirmRequest) (Result, error)
}

// ProcessorError is a decline or rejection reported by the processor. Its
// Message is safe to show to the donor.
type ProcessorError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ProcessorError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("processor %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("processor %d: %s", e.StatusCode, e.Message)
}

// StripeConfirmer performs the client-side confirmation call with the
// publishable key, the same request the browser SDK would make.
type StripeConfirmer struct {
	baseURL        string
	publishableKey string
	httpClient     *http.Client
	tracer         trace.Tracer
}

func NewStripeConfirmer(baseURL, publishableKey string, hc *http.Client) *StripeConfirmer {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &StripeConfirmer{
		baseURL:        strings.TrimRight(baseURL, "/"),
		publishableKey: publishableKey,
		httpClient:     hc,
		tracer:         otel.Tracer("github.com/geocoder89/givehub/internal/payment"),
	}
}

// IntentID extracts "pi_123" from "pi_123_secret_abc".
func IntentID(clientSecret string) (string, error) {
	id, _, ok := strings.Cut(clientSecret, "_secret_")
	if !ok || !strings.HasPrefix(id, "pi_") {
		return "", ErrMalformedSecret
	}
	return id, nil
}

type intentResponse struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	LastPaymentError *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

type errorResponse struct {
	Error struct {
		Code        string `json:"code"`
		DeclineCode string `json:"decline_code"`
		Message     string `json:"message"`
	} `json:"error"`
}

func (s *StripeConfirmer) Confirm(ctx context.Context, req ConfirmRequest) (res Result, err error) {
	ctx, span := s.tracer.Start(ctx, "payment.confirm", trace.WithSpanKind(trace.SpanKindClient))
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	id, err := IntentID(req.ClientSecret)
	if err != nil {
		return Result{}, err
	}
	span.SetAttributes(attribute.String("payment.intent_id", id))

	form := url.Values{}
	form.Set("client_secret", req.ClientSecret)
	if strings.HasPrefix(req.PaymentMethod, "pm_") {
		form.Set("payment_method", req.PaymentMethod)
	} else {
		form.Set("payment_method_data[type]", "card")
		form.Set("payment_method_data[card][token]", req.PaymentMethod)
		form.Set("payment_method_data[billing_details][name]", req.BillingName)
		form.Set("payment_method_data[billing_details][email]", req.BillingEmail)
	}
	if req.BillingEmail != "" {
		form.Set("receipt_email", req.BillingEmail)
	}

	endpoint := s.baseURL + "/v1/payment_intents/" + url.PathEscape(id) + "/confirm"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "Bearer "+s.publishableKey)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("confirm payment: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("read confirmation: %w", err)
	}

	if resp.StatusCode >= 400 {
		var e errorResponse
		_ = json.Unmarshal(body, &e)
		msg := e.Error.Message
		if msg == "" {
			msg = "Your payment could not be processed."
		}
		code := e.Error.DeclineCode
		if code == "" {
			code = e.Error.Code
		}
		return Result{}, &ProcessorError{StatusCode: resp.StatusCode, Code: code, Message: msg}
	}

	var pi intentResponse
	if err := json.Unmarshal(body, &pi); err != nil {
		return Result{}, fmt.Errorf("decode confirmation: %w", err)
	}

	res = Result{Status: pi.Status, TransactionID: pi.ID}
	span.SetAttributes(attribute.String("payment.status", pi.Status))

	// a failed attempt may still come back 200 with last_payment_error set
	if !res.Succeeded() && pi.LastPaymentError != nil && pi.LastPaymentError.Message != "" {
		return res, &ProcessorError{StatusCode: resp.StatusCode, Code: pi.LastPaymentError.Code, Message: pi.LastPaymentError.Message}
	}

	return res, nil
}
