// Package payment talks to the hosted payment form.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Johnm75/Tienda/internal/checkout"
	"github.com/Johnm75/Tienda/internal/domain"
	"github.com/Johnm75/Tienda/pkg/circuitbreaker"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	StatusApproved = "APPROVED"
	StatusDeclined = "DECLINED"
)

var ErrUnknownToken = errors.New("payment token not recognised")

// Confirmation is the JSON body of GET /api/v1/payments/{token}.
type Confirmation struct {
	RequestID string          `json:"request_id"`
	Status    string          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	PaymentID string          `json:"payment_id"`
	Reason    string          `json:"reason,omitempty"`
}

type Client struct {
	baseURL   *url.URL
	returnURL string
	http      *http.Client
	breaker   *circuitbreaker.Breaker[*Confirmation]
}

// NewClient returns a client for the payment surface at baseURL. returnURL is
// where the form sends the user back with request_id and token.
func NewClient(baseURL, returnURL string, timeout time.Duration, breaker circuitbreaker.Config, log *zap.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid payment base url %q", baseURL)
	}
	if _, err := url.ParseRequestURI(returnURL); err != nil {
		return nil, fmt.Errorf("invalid payment return url %q: %w", returnURL, err)
	}

	ignore := breaker.Ignore
	breaker.Ignore = func(err error) bool {
		return errors.Is(err, ErrUnknownToken) || (ignore != nil && ignore(err))
	}

	return &Client{
		baseURL:   base,
		returnURL: returnURL,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: circuitbreaker.New[*Confirmation]("payment-surface", breaker, log),
	}, nil
}

// RedirectURL builds the hosted form URL for a pending request.
func (c *Client) RedirectURL(req *domain.PaymentRequest) (string, error) {
	if req == nil || req.ID == "" {
		return "", errors.New("payment request has no id")
	}
	u := c.baseURL.JoinPath("pay")
	q := url.Values{}
	q.Set("request_id", req.ID)
	q.Set("recipient", req.Recipient)
	q.Set("amount", req.Amount.StringFixed(2))
	q.Set("currency", req.Currency)
	q.Set("return_url", c.returnURL)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Verify asks the payment surface what the token stands for.
func (c *Client) Verify(ctx context.Context, requestID, token string) (*checkout.Confirmation, error) {
	conf, err := c.breaker.Execute(func() (*Confirmation, error) {
		return c.fetch(ctx, token)
	})
	if err != nil {
		return nil, err
	}

	if conf.RequestID != requestID {
		return nil, fmt.Errorf("%w: token belongs to another request", ErrUnknownToken)
	}

	return &checkout.Confirmation{
		RequestID: conf.RequestID,
		Approved:  conf.Status == StatusApproved,
		Amount:    conf.Amount,
		Currency:  conf.Currency,
		PaymentID: conf.PaymentID,
	}, nil
}

func (c *Client) fetch(ctx context.Context, token string) (*Confirmation, error) {
	u := c.baseURL.JoinPath("api", "v1", "payments", token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build verify request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach payment surface: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrUnknownToken
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("payment surface returned %d", resp.StatusCode)
	}

	var conf Confirmation
	if err := json.NewDecoder(resp.Body).Decode(&conf); err != nil {
		return nil, fmt.Errorf("failed to decode payment confirmation: %w", err)
	}
	return &conf, nil
}
