package payment

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"strings"

	"github.com/shopspring/decimal"
)

// KiwifyEvent is the subset of a Kiwify order webhook the wheel uses.
type KiwifyEvent struct {
	OrderID     flexID              `json:"order_id"`
	OrderRef    flexID              `json:"order_ref"`
	OrderStatus string              `json:"order_status"`
	ProductID   string              `json:"product_id"`
	Customer    *kiwifyCustomer     `json:"Customer"`
	Total       decimal.NullDecimal `json:"total"`
}

type kiwifyCustomer struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// DecodeKiwify parses a Kiwify webhook body.
func DecodeKiwify(body []byte) (KiwifyEvent, error) {
	var ev KiwifyEvent
	if err := decodeObject(body, &ev); err != nil {
		return KiwifyEvent{}, err
	}
	return ev, nil
}

// Order returns order_id, falling back to order_ref.
func (e KiwifyEvent) Order() string {
	if id := e.OrderID.String(); id != "" {
		return id
	}
	return e.OrderRef.String()
}

// Status returns the lower-cased order status.
func (e KiwifyEvent) Status() string {
	return strings.ToLower(strings.TrimSpace(e.OrderStatus))
}

// Normalize maps the event onto a Notification.
// paid and approved confirm; refunded and chargeback reverse; anything else is ignored.
func (e KiwifyEvent) Normalize() (Notification, error) {
	orderID := e.Order()
	switch e.Status() {
	case "paid", "approved":
		if orderID == "" {
			return nil, ErrOrderIDMissing
		}
		confirmed := PaymentConfirmed{
			ExternalID: kiwifyPrefix + orderID,
			OrderID:    orderID,
			Email:      "customer_" + orderID + "@kiwify.com",
			Amount:     e.Total,
			Platform:   PlatformKiwify,
		}
		if e.Customer != nil {
			if email := strings.TrimSpace(e.Customer.Email); email != "" {
				confirmed.Email = email
			}
			confirmed.Name = optionalString(e.Customer.FullName)
		}
		return confirmed, nil
	case "refunded", "chargeback":
		if orderID == "" {
			return Ignored{Reason: "reversal without order id"}, nil
		}
		return PaymentReversed{
			ExternalID: kiwifyPrefix + orderID,
			OrderID:    orderID,
			Status:     e.Status(),
			Platform:   PlatformKiwify,
		}, nil
	default:
		return Ignored{Reason: "order status " + e.Status()}, nil
	}
}

// ParseKiwify decodes and normalises a Kiwify webhook body.
func ParseKiwify(body []byte) (Notification, error) {
	ev, err := DecodeKiwify(body)
	if err != nil {
		return nil, err
	}
	return ev.Normalize()
}

// VerifyKiwifySignature checks the hex HMAC-SHA1 of body keyed by secret.
// An empty secret disables verification.
func VerifyKiwifySignature(secret string, body []byte, signature string) bool {
	if secret == "" {
		return true
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(got) == 0 {
		return false
	}
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// SignKiwify returns the signature Kiwify would send for body.
func SignKiwify(secret string, body []byte) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
