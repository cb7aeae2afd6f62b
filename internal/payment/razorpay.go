// Package payment opens payment orders with the Razorpay gateway.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"liftcart/internal/config"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// ErrNotConfigured is returned when the gateway has no credentials.
var ErrNotConfigured = errors.New("payment gateway is not configured")

// OrderRequest describes a gateway order to open for a checkout.
type OrderRequest struct {
	AmountMinor int64  // amount in the currency's minor unit (paise)
	Currency    string
	Receipt     string // our order number
	Notes       map[string]string
}

// Gateway opens payment orders.
type Gateway interface {
	// CreateOrder opens a gateway order and returns its identifier.
	CreateOrder(ctx context.Context, req OrderRequest) (string, error)
}

type razorpayOrderBody struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type razorpayOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type razorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// razorpayGateway calls the Razorpay Orders API.
type razorpayGateway struct {
	client    *http.Client
	baseURL   string
	keyID     string
	keySecret string
	breaker   *gobreaker.CircuitBreaker[string]
	logger    zerolog.Logger
}

// NewRazorpayGateway creates a gateway client from configuration.
func NewRazorpayGateway(cfg config.PaymentConfig, logger zerolog.Logger) Gateway {
	logger = logger.With().Str("component", "razorpay").Logger()

	return &razorpayGateway{
		client:    &http.Client{Timeout: 15 * time.Second},
		baseURL:   strings.TrimRight(cfg.APIURL, "/"),
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		breaker: gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
			Name:        "razorpay",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			// Rejected requests are the caller's fault and must not trip the breaker
			IsSuccessful: func(err error) bool {
				var re *RejectedError
				return err == nil || errors.As(err, &re)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("razorpay circuit breaker state changed")
			},
		}),
		logger: logger,
	}
}

// RejectedError is a 4xx response from the gateway.
type RejectedError struct {
	Status      int
	Code        string
	Description string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("razorpay rejected order (%d %s): %s", e.Status, e.Code, e.Description)
}

func (g *razorpayGateway) CreateOrder(ctx context.Context, req OrderRequest) (string, error) {
	if g.keyID == "" || g.keySecret == "" {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(razorpayOrderBody{
		Amount:   req.AmountMinor,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode razorpay order: %w", err)
	}

	id, err := g.breaker.Execute(func() (string, error) {
		return g.post(ctx, body)
	})
	if err != nil {
		g.logger.Error().Err(err).Str("receipt", req.Receipt).Msg("failed to create razorpay order")
		return "", fmt.Errorf("failed to create razorpay order: %w", err)
	}

	g.logger.Info().Str("receipt", req.Receipt).Str("razorpay_order_id", id).Msg("razorpay order created")
	return id, nil
}

func (g *razorpayGateway) post(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("failed to read razorpay response: %w", err)
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		var re razorpayError
		_ = json.Unmarshal(data, &re)
		return "", &RejectedError{Status: resp.StatusCode, Code: re.Error.Code, Description: re.Error.Description}
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("razorpay returned %d", resp.StatusCode)
	}

	var out razorpayOrderResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("failed to decode razorpay response: %w", err)
	}
	if out.ID == "" {
		return "", errors.New("razorpay response has no order id")
	}

	return out.ID, nil
}
