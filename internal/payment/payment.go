// Package payment normalises payment provider notifications into purchase events.
package payment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Provider names as used in webhook routes and event logs.
const (
	ProviderKiwify      = "kiwify"
	ProviderMercadoPago = "mercadopago"
)

// Payment platform tags stored on purchases.
const (
	PlatformKiwify      = "kiwify"
	PlatformMercadoPago = "mercado_pago"
)

// External id prefixes, one per provider.
const (
	kiwifyPrefix      = "kiwify_"
	mercadoPagoPrefix = "mp_"
)

var (
	// ErrOrderIDMissing means a Kiwify confirmation carried neither order_id nor order_ref.
	ErrOrderIDMissing = errors.New("payment: order id not found")
	// ErrPaymentIDMissing means a MercadoPago payment notification carried no payment id.
	ErrPaymentIDMissing = errors.New("payment: payment id not found")
	// ErrInvalidPayload means the body is not the JSON object the provider documents.
	ErrInvalidPayload = errors.New("payment: invalid payload")
)

// Notification is one normalised provider event. The concrete types are
// PaymentConfirmed, PaymentReversed and Ignored.
type Notification interface {
	notification()
}

// PaymentConfirmed grants spins for a paid order.
type PaymentConfirmed struct {
	ExternalID string
	OrderID    string
	Email      string
	Name       *string
	Amount     decimal.NullDecimal
	Platform   string
}

// PaymentReversed revokes the spins of a refunded or charged back order.
type PaymentReversed struct {
	ExternalID string
	OrderID    string
	Status     string // refunded or chargeback
	Platform   string
}

// Ignored is an event that needs no storage change.
type Ignored struct {
	Reason string
}

func (PaymentConfirmed) notification() {}
func (PaymentReversed) notification()  {}
func (Ignored) notification()          {}

// flexID accepts identifiers sent either as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

func (f flexID) String() string { return string(f) }

func decodeObject(body []byte, dst any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("%w: empty body", ErrInvalidPayload)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
