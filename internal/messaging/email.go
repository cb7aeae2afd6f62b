package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"liftcart/internal/config"
	"liftcart/internal/model"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// emailRequest is the body accepted by the transactional email API.
type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

// httpEmailSender posts emails to a JSON email API behind a circuit breaker.
type httpEmailSender struct {
	client  *http.Client
	url     string
	apiKey  string
	from    string
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  zerolog.Logger
}

// NewEmailSender creates an email sender for the configured API. With no
// API URL configured, emails are logged instead of sent.
func NewEmailSender(cfg config.EmailConfig, logger zerolog.Logger) EmailSender {
	logger = logger.With().Str("component", "email").Logger()

	if cfg.APIURL == "" {
		logger.Warn().Msg("EMAIL_API_URL not set, confirmation emails will only be logged")
		return &logEmailSender{logger: logger}
	}

	return &httpEmailSender{
		client:  &http.Client{Timeout: 10 * time.Second},
		url:     cfg.APIURL,
		apiKey:  cfg.APIKey,
		from:    cfg.From,
		breaker: newBreaker[struct{}]("email-api", 30*time.Second, logger),
		logger:  logger,
	}
}

func (s *httpEmailSender) SendOrderConfirmation(ctx context.Context, msg model.OrderConfirmation) error {
	if msg.Email == "" {
		return fmt.Errorf("confirmation for order %s has no recipient", msg.OrderNumber)
	}

	body, err := json.Marshal(emailRequest{
		From:    s.from,
		To:      []string{msg.Email},
		Subject: fmt.Sprintf("Order Confirmation - %s", msg.OrderNumber),
		Text:    RenderOrderConfirmation(msg),
	})
	if err != nil {
		return fmt.Errorf("failed to encode email: %w", err)
	}

	_, err = s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, s.post(ctx, body)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("order_number", msg.OrderNumber).Msg("failed to send order confirmation")
		return fmt.Errorf("failed to send order confirmation: %w", err)
	}

	s.logger.Info().Str("order_number", msg.OrderNumber).Msg("order confirmation sent")
	return nil
}

func (s *httpEmailSender) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("email API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}

// logEmailSender logs emails instead of sending them.
type logEmailSender struct {
	logger zerolog.Logger
}

func (s *logEmailSender) SendOrderConfirmation(_ context.Context, msg model.OrderConfirmation) error {
	s.logger.Info().
		Str("to", msg.Email).
		Str("order_number", msg.OrderNumber).
		Str("total", msg.Total.StringFixed(2)).
		Msg("order confirmation (not sent)")
	return nil
}

// RenderOrderConfirmation renders the plain-text confirmation body.
func RenderOrderConfirmation(msg model.OrderConfirmation) string {
	var b strings.Builder

	name := msg.CustomerName
	if name == "" {
		name = "Customer"
	}
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	fmt.Fprintf(&b, "Thank you for your order. Your order number is %s.\n\n", msg.OrderNumber)

	for _, item := range msg.Items {
		title := item.Name
		if item.Variant != "" {
			title += " (" + item.Variant + ")"
		}
		fmt.Fprintf(&b, "  %d x %s @ %s %s = %s %s\n",
			item.Quantity, title,
			msg.Currency, item.UnitPrice.StringFixed(2),
			msg.Currency, item.Total.StringFixed(2))
	}

	fmt.Fprintf(&b, "\nTotal: %s %s\n\n", msg.Currency, msg.Total.StringFixed(2))

	a := msg.ShippingAddress
	b.WriteString("Shipping to:\n")
	fmt.Fprintf(&b, "  %s\n  %s\n", a.Name, a.Line1)
	if a.Line2 != "" {
		fmt.Fprintf(&b, "  %s\n", a.Line2)
	}
	fmt.Fprintf(&b, "  %s, %s %s\n  %s\n", a.City, a.State, a.PostalCode, a.Country)

	return b.String()
}
