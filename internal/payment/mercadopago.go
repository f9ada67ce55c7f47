package payment

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MercadoPagoPayment is the payment object MercadoPago embeds in notifications
// and returns from GET /v1/payments/{id}.
type MercadoPagoPayment struct {
	ID                flexID              `json:"id"`
	Status            string              `json:"status"`
	ExternalReference string              `json:"external_reference"`
	Payer             *MercadoPagoPayer   `json:"payer"`
	TransactionAmount decimal.NullDecimal `json:"transaction_amount"`
}

// MercadoPagoPayer identifies the buyer.
type MercadoPagoPayer struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// MercadoPagoEvent is a decoded notification.
type MercadoPagoEvent struct {
	Type   string
	Action string
	// PaymentID is data.id, falling back to the top-level id.
	PaymentID string
	// Payment is data when present, otherwise the body itself.
	Payment MercadoPagoPayment
}

type mercadoPagoEnvelope struct {
	Type   string              `json:"type"`
	Action string              `json:"action"`
	Data   *MercadoPagoPayment `json:"data"`
	MercadoPagoPayment
}

// DecodeMercadoPago parses a MercadoPago webhook body.
func DecodeMercadoPago(body []byte) (MercadoPagoEvent, error) {
	var env mercadoPagoEnvelope
	if err := decodeObject(body, &env); err != nil {
		return MercadoPagoEvent{}, err
	}
	ev := MercadoPagoEvent{
		Type:    strings.TrimSpace(env.Type),
		Action:  strings.TrimSpace(env.Action),
		Payment: env.MercadoPagoPayment,
	}
	if env.Data != nil {
		ev.Payment = *env.Data
		ev.PaymentID = env.Data.ID.String()
	}
	if ev.PaymentID == "" {
		ev.PaymentID = env.ID.String()
	}
	return ev, nil
}

// IsPayment reports whether the notification concerns a payment.
func (e MercadoPagoEvent) IsPayment() bool {
	return e.Type == "payment" || e.Action == "payment.created" || e.Action == "payment.updated"
}

// EventType names the notification for event logs.
func (e MercadoPagoEvent) EventType() string {
	if e.Action != "" {
		return e.Action
	}
	return e.Type
}

// Normalize maps the notification onto a Notification using the embedded payment.
func (e MercadoPagoEvent) Normalize() (Notification, error) {
	if !e.IsPayment() {
		return Ignored{Reason: "not a payment notification"}, nil
	}
	if e.PaymentID == "" {
		return nil, ErrPaymentIDMissing
	}
	return NormalizeMercadoPagoPayment(e.PaymentID, e.Payment), nil
}

// NormalizeMercadoPagoPayment maps a payment onto a Notification.
// approved confirms; refunded and charged_back reverse; anything else is ignored.
func NormalizeMercadoPagoPayment(paymentID string, p MercadoPagoPayment) Notification {
	paymentID = strings.TrimSpace(paymentID)
	switch strings.ToLower(strings.TrimSpace(p.Status)) {
	case "approved":
		confirmed := PaymentConfirmed{
			ExternalID: mercadoPagoPrefix + paymentID,
			OrderID:    paymentID,
			Email:      "customer_" + paymentID + "@mercadopago.com",
			Amount:     p.TransactionAmount,
			Platform:   PlatformMercadoPago,
		}
		if p.Payer != nil {
			if email := strings.TrimSpace(p.Payer.Email); email != "" {
				confirmed.Email = email
			}
			if first := strings.TrimSpace(p.Payer.FirstName); first != "" {
				confirmed.Name = optionalString(first + " " + strings.TrimSpace(p.Payer.LastName))
			}
		}
		return confirmed
	case "refunded":
		return PaymentReversed{ExternalID: mercadoPagoPrefix + paymentID, OrderID: paymentID, Status: "refunded", Platform: PlatformMercadoPago}
	case "charged_back":
		return PaymentReversed{ExternalID: mercadoPagoPrefix + paymentID, OrderID: paymentID, Status: "chargeback", Platform: PlatformMercadoPago}
	default:
		return Ignored{Reason: "payment status " + p.Status}
	}
}

// ParseMercadoPago decodes and normalises a MercadoPago webhook body.
func ParseMercadoPago(body []byte) (Notification, error) {
	ev, err := DecodeMercadoPago(body)
	if err != nil {
		return nil, err
	}
	return ev.Normalize()
}
