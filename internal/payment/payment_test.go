package payment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseKiwifyConfirmed(t *testing.T) {
	body := []byte(`{"order_id":"abc123","order_status":"paid","Customer":{"email":"ana@example.com","full_name":"Ana Souza"},"total":97.5}`)
	n, err := ParseKiwify(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got, ok := n.(PaymentConfirmed)
	if !ok {
		t.Fatalf("expected PaymentConfirmed, got %T", n)
	}
	if got.ExternalID != "kiwify_abc123" || got.Platform != PlatformKiwify || got.Email != "ana@example.com" {
		t.Fatalf("unexpected confirmation: %+v", got)
	}
	if got.Name == nil || *got.Name != "Ana Souza" {
		t.Fatalf("expected name, got %v", got.Name)
	}
	if !got.Amount.Valid || got.Amount.Decimal.String() != "97.5" {
		t.Fatalf("unexpected amount %+v", got.Amount)
	}
}

func TestParseKiwifyDefaults(t *testing.T) {
	n, err := ParseKiwify([]byte(`{"order_ref":"R9","order_status":"APPROVED"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got := n.(PaymentConfirmed)
	if got.ExternalID != "kiwify_R9" || got.Email != "customer_R9@kiwify.com" || got.Name != nil || got.Amount.Valid {
		t.Fatalf("unexpected defaults: %+v", got)
	}
}

func TestParseKiwifyCases(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    any
		wantErr error
	}{
		{name: "missing order id", body: `{"order_status":"paid"}`, wantErr: ErrOrderIDMissing},
		{name: "refund", body: `{"order_id":"1","order_status":"refunded"}`, want: PaymentReversed{ExternalID: "kiwify_1", OrderID: "1", Status: "refunded", Platform: PlatformKiwify}},
		{name: "chargeback", body: `{"order_id":2,"order_status":"chargeback"}`, want: PaymentReversed{ExternalID: "kiwify_2", OrderID: "2", Status: "chargeback", Platform: PlatformKiwify}},
		{name: "refund without id", body: `{"order_status":"refunded"}`, want: Ignored{Reason: "reversal without order id"}},
		{name: "waiting payment", body: `{"order_id":"3","order_status":"waiting_payment"}`, want: Ignored{Reason: "order status waiting_payment"}},
		{name: "not json", body: `nope`, wantErr: ErrInvalidPayload},
		{name: "empty", body: ``, wantErr: ErrInvalidPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKiwify([]byte(tt.body))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v want %+v", got, tt.want)
			}
		})
	}
}

func TestVerifyKiwifySignature(t *testing.T) {
	body := []byte(`{"order_id":"1"}`)
	sig := SignKiwify("s3cret", body)
	if len(sig) != 40 {
		t.Fatalf("expected 40 hex chars, got %d", len(sig))
	}
	if !VerifyKiwifySignature("s3cret", body, sig) {
		t.Fatalf("valid signature rejected")
	}
	if VerifyKiwifySignature("s3cret", body, SignKiwify("other", body)) {
		t.Fatalf("signature with wrong key accepted")
	}
	if VerifyKiwifySignature("s3cret", body, "") || VerifyKiwifySignature("s3cret", body, "zz") {
		t.Fatalf("malformed signature accepted")
	}
	if !VerifyKiwifySignature("", body, "") {
		t.Fatalf("empty secret must disable verification")
	}
}

func TestParseMercadoPagoApproved(t *testing.T) {
	body := []byte(`{"type":"payment","data":{"id":987654321012,"status":"approved","payer":{"email":"joao@example.com","first_name":"João","last_name":""},"transaction_amount":49.9}}`)
	n, err := ParseMercadoPago(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got := n.(PaymentConfirmed)
	if got.ExternalID != "mp_987654321012" || got.Platform != PlatformMercadoPago || got.Email != "joao@example.com" {
		t.Fatalf("unexpected confirmation: %+v", got)
	}
	if got.Name == nil || *got.Name != "João" {
		t.Fatalf("expected trimmed first name, got %v", got.Name)
	}
	if got.Amount.Decimal.String() != "49.9" {
		t.Fatalf("unexpected amount %s", got.Amount.Decimal)
	}
}

func TestParseMercadoPagoCases(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    any
		wantErr error
	}{
		{name: "top level payment", body: `{"action":"payment.updated","id":"55","status":"approved"}`, want: PaymentConfirmed{ExternalID: "mp_55", OrderID: "55", Email: "customer_55@mercadopago.com", Platform: PlatformMercadoPago}},
		{name: "missing id", body: `{"type":"payment","data":{}}`, wantErr: ErrPaymentIDMissing},
		{name: "not a payment", body: `{"type":"merchant_order","id":1}`, want: Ignored{Reason: "not a payment notification"}},
		{name: "pending", body: `{"type":"payment","data":{"id":"7","status":"pending"}}`, want: Ignored{Reason: "payment status pending"}},
		{name: "id only", body: `{"type":"payment","data":{"id":"7"}}`, want: Ignored{Reason: "payment status "}},
		{name: "refunded", body: `{"type":"payment","data":{"id":"8","status":"refunded"}}`, want: PaymentReversed{ExternalID: "mp_8", OrderID: "8", Status: "refunded", Platform: PlatformMercadoPago}},
		{name: "charged back", body: `{"type":"payment","data":{"id":"9","status":"charged_back"}}`, want: PaymentReversed{ExternalID: "mp_9", OrderID: "9", Status: "chargeback", Platform: PlatformMercadoPago}},
		{name: "invalid id type", body: `{"type":"payment","data":{"id":{"x":1}}}`, wantErr: ErrInvalidPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMercadoPago([]byte(tt.body))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v want %+v", got, tt.want)
			}
		})
	}
}

func TestMercadoPagoClientFetchPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer mp-token" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"invalid token"}`))
			return
		}
		switch r.URL.Path {
		case "/v1/payments/123":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":123,"status":"approved","payer":{"email":"x@example.com"},"transaction_amount":10}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"not found"}`))
		}
	}))
	defer srv.Close()

	client := NewMercadoPagoClient(srv.URL+"/", "mp-token", srv.Client())
	p, err := client.FetchPayment(context.Background(), "123")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if p.ID.String() != "123" || p.Status != "approved" || p.Payer == nil || p.Payer.Email != "x@example.com" {
		t.Fatalf("unexpected payment %+v", p)
	}
	n := NormalizeMercadoPagoPayment("123", p).(PaymentConfirmed)
	if n.ExternalID != "mp_123" || n.Amount.Decimal.String() != "10" {
		t.Fatalf("unexpected normalised payment %+v", n)
	}

	if _, err := client.FetchPayment(context.Background(), "404"); !errors.Is(err, ErrMercadoPagoStatus) {
		t.Fatalf("expected ErrMercadoPagoStatus, got %v", err)
	}
	bad := NewMercadoPagoClient(srv.URL, "wrong", srv.Client())
	if _, err := bad.FetchPayment(context.Background(), "123"); !errors.Is(err, ErrMercadoPagoStatus) {
		t.Fatalf("expected ErrMercadoPagoStatus for bad token, got %v", err)
	}
	if _, err := client.FetchPayment(context.Background(), " "); !errors.Is(err, ErrPaymentIDMissing) {
		t.Fatalf("expected ErrPaymentIDMissing, got %v", err)
	}
}
