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
)

const (
	// DefaultMercadoPagoAPIBase is the production API root.
	DefaultMercadoPagoAPIBase = "https://api.mercadopago.com"

	mercadoPagoTimeout  = 10 * time.Second
	mercadoPagoMaxBody  = 1 << 20
	mercadoPagoErrorCap = 512
)

// ErrMercadoPagoStatus wraps a non-200 response from the payments API.
var ErrMercadoPagoStatus = errors.New("payment: mercadopago api error")

// MercadoPagoClient fetches authoritative payment details.
type MercadoPagoClient struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// NewMercadoPagoClient returns a client. An empty baseURL uses the production API
// and a nil httpClient uses one with a 10s timeout.
func NewMercadoPagoClient(baseURL, accessToken string, httpClient *http.Client) *MercadoPagoClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultMercadoPagoAPIBase
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: mercadoPagoTimeout}
	}
	return &MercadoPagoClient{baseURL: baseURL, accessToken: strings.TrimSpace(accessToken), httpClient: httpClient}
}

// FetchPayment calls GET /v1/payments/{id}.
func (c *MercadoPagoClient) FetchPayment(ctx context.Context, paymentID string) (MercadoPagoPayment, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return MercadoPagoPayment{}, ErrPaymentIDMissing
	}
	endpoint := c.baseURL + "/v1/payments/" + url.PathEscape(paymentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return MercadoPagoPayment{}, fmt.Errorf("payment: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return MercadoPagoPayment{}, fmt.Errorf("payment: fetch payment %s: %w", paymentID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, mercadoPagoMaxBody))
	if err != nil {
		return MercadoPagoPayment{}, fmt.Errorf("payment: read payment %s: %w", paymentID, err)
	}
	if resp.StatusCode != http.StatusOK {
		snippet := string(body)
		if len(snippet) > mercadoPagoErrorCap {
			snippet = snippet[:mercadoPagoErrorCap]
		}
		return MercadoPagoPayment{}, fmt.Errorf("%w: status %d: %s", ErrMercadoPagoStatus, resp.StatusCode, strings.TrimSpace(snippet))
	}

	var p MercadoPagoPayment
	if err := json.Unmarshal(body, &p); err != nil {
		return MercadoPagoPayment{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if p.ID.String() == "" {
		p.ID = flexID(paymentID)
	}
	return p, nil
}
