package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"campusdash/internal/api"
	"campusdash/internal/logger"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const defaultStripeBaseURL = "https://api.stripe.com"

// Platform picks how a payment method is attached to the intent.
type Platform string

const (
	PlatformNative Platform = "native"
	PlatformWeb    Platform = "web"
)

type StripeOptions struct {
	PublishableKey string
	BaseURL        string
	Platform       Platform
	Timeout        time.Duration
	Transport      http.RoundTripper
}

type stripeConfirmer struct {
	publishableKey string
	baseURL        string
	platform       Platform
	httpClient     *http.Client
}

// ----------------- Constructor -----------------

func NewStripeConfirmer(opts StripeOptions) Confirmer {
	if opts.PublishableKey == "" {
		logger.L().Warn("Stripe publishable key is empty")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultStripeBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Platform == "" {
		opts.Platform = PlatformNative
	}
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	return &stripeConfirmer{
		publishableKey: opts.PublishableKey,
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		platform:       opts.Platform,
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: logger.RequestIDTransport(logger.LoggingTransport(otelhttp.NewTransport(base))),
		},
	}
}

func (s *stripeConfirmer) Name() string {
	return "stripe-" + string(s.platform)
}

type stripeIntent struct {
	ID     string `json:"id"`
	Status string `json:"status"`

	LastPaymentError *stripeError `json:"last_payment_error,omitempty"`
}

type stripeError struct {
	Type        string `json:"type"`
	Code        string `json:"code"`
	DeclineCode string `json:"decline_code"`
	Message     string `json:"message"`
}

// ----------------- Confirm -----------------

func (s *stripeConfirmer) Confirm(ctx context.Context, clientSecret string, method Method) (*Result, error) {
	const op = "payment.Confirm"

	intentID := intentIDFromSecret(clientSecret)
	if intentID == "" {
		return nil, api.NewError(op, api.KindValidationFailed, ErrMissingClientSecret)
	}

	form, err := s.formFor(clientSecret, method)
	if err != nil {
		return nil, api.NewError(op, api.KindValidationFailed, err)
	}

	log := logger.FromCtx(ctx).With(
		zap.String("payment_intent", intentID),
		zap.String("confirmer", s.Name()),
		zap.Stringer("method", method),
	)

	endpoint := fmt.Sprintf("%s/v1/payment_intents/%s/confirm", s.baseURL, url.PathEscape(intentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		log.Error("Failed creating request", zap.Error(err))
		return nil, api.NewError(op, api.KindValidationFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.publishableKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	log.Info("Sending payment confirmation to Stripe")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Error("Stripe request failed", zap.Error(err))
		return nil, api.NewError(op, api.KindNetworkUnreachable, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("Failed to read response body", zap.Error(err))
		return nil, api.NewError(op, api.KindNetworkUnreachable, fmt.Errorf("failed to read stripe response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("Stripe returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", bodyBytes),
		)
		return nil, stripeFailure(op, resp.StatusCode, bodyBytes)
	}

	var intent stripeIntent
	if err := json.Unmarshal(bodyBytes, &intent); err != nil {
		log.Error("Failed decoding Stripe response", zap.Error(err))
		return nil, api.NewError(op, api.KindServerError, err)
	}

	switch intent.Status {
	case "succeeded", "processing", "requires_capture":
		log.Info("Payment confirmed", zap.String("status", intent.Status))
		return &Result{PaymentIntentID: intent.ID, Status: intent.Status}, nil
	case "requires_action":
		return nil, declined(op, http.StatusOK, DeclineAuthRequired, "")
	default:
		code, msg := DeclineGeneric, ""
		if intent.LastPaymentError != nil {
			code, msg = intent.LastPaymentError.DeclineCode, intent.LastPaymentError.Message
		}
		log.Warn("Payment not completed", zap.String("status", intent.Status), zap.String("decline_code", code))
		return nil, declined(op, http.StatusOK, code, msg)
	}
}

func (s *stripeConfirmer) formFor(clientSecret string, method Method) (url.Values, error) {
	form := url.Values{}
	form.Set("client_secret", clientSecret)

	switch s.platform {
	case PlatformWeb:
		if method.PaymentMethodID == "" {
			if method.Card != nil {
				return nil, ErrMethodNotSupported
			}
			return nil, ErrMissingMethod
		}
		form.Set("payment_method", method.PaymentMethodID)
	default:
		switch {
		case method.Card != nil:
			form.Set("payment_method_data[type]", "card")
			form.Set("payment_method_data[card][number]", method.Card.Number)
			form.Set("payment_method_data[card][exp_month]", strconv.Itoa(method.Card.ExpMonth))
			form.Set("payment_method_data[card][exp_year]", strconv.Itoa(method.Card.ExpYear))
			form.Set("payment_method_data[card][cvc]", method.Card.CVC)
		case method.PaymentMethodID != "":
			form.Set("payment_method", method.PaymentMethodID)
		default:
			return nil, ErrMissingMethod
		}
	}
	return form, nil
}

// stripeFailure maps a Stripe error body onto the shared error taxonomy.
// Card errors are declines regardless of status code.
func stripeFailure(op string, status int, body []byte) error {
	var payload struct {
		Error stripeError `json:"error"`
	}
	_ = json.Unmarshal(body, &payload)

	if payload.Error.Type == "card_error" || status == http.StatusPaymentRequired {
		code := payload.Error.DeclineCode
		if code == "" {
			code = payload.Error.Code
		}
		return declined(op, status, code, payload.Error.Message)
	}

	kind := api.KindServerError
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = api.KindForbidden
	case status >= 400 && status < 500:
		kind = api.KindValidationFailed
	}
	return &api.Error{Op: op, Kind: kind, Status: status, Message: payload.Error.Message}
}

func declined(op string, status int, code, message string) error {
	if message == "" {
		message = DeclineMessage(code)
	}
	return &api.Error{
		Op:      op,
		Kind:    api.KindPaymentDeclined,
		Status:  status,
		Message: message,
		Err:     fmt.Errorf("declined: %s", code),
	}
}
