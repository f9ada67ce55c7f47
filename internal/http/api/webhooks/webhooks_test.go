package webhooks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dbutil "github.com/caiqy/prizewheel/internal/db"
	"github.com/caiqy/prizewheel/internal/models"
	"github.com/caiqy/prizewheel/internal/payment"
	"github.com/caiqy/prizewheel/internal/store"
	"github.com/caiqy/prizewheel/internal/webhook"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupWebhookRouter(t *testing.T, kiwifySecret string, mp *payment.MercadoPagoClient) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:webhooks_http_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := dbutil.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}

	svc := webhook.NewService(store.NewGormStore(conn), webhook.Options{SpinAllowance: 5, PublicBaseURL: "https://promo.example.com"})
	r := gin.New()
	RegisterWebhookRoutes(r, NewHandler(svc, kiwifySecret, mp), nil)
	return r, conn
}

func postJSON(r *gin.Engine, path, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestKiwifyWebhookCreatesOnce(t *testing.T) {
	r, conn := setupWebhookRouter(t, "", nil)
	body := `{"order_id":"K1","order_status":"paid","Customer":{"email":"ana@example.com","full_name":"Ana"}}`

	rec := postJSON(r, "/webhooks/kiwify", body, http.Header{"Origin": []string{"https://shop.example.com"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	got := decodeBody(t, rec)
	if got["success"] != true || got["message"] != webhook.MessageCreated {
		t.Fatalf("unexpected body %v", got)
	}
	redirect, _ := got["redirect_url"].(string)
	if !strings.HasPrefix(redirect, "https://shop.example.com/?token=") || len(redirect) != len("https://shop.example.com/?token=")+64 {
		t.Fatalf("unexpected redirect url %q", redirect)
	}

	rec = postJSON(r, "/webhooks/kiwify", body, nil)
	got = decodeBody(t, rec)
	if rec.Code != http.StatusOK || got["message"] != webhook.MessageExists {
		t.Fatalf("expected existing purchase, got %d %v", rec.Code, got)
	}
	if _, ok := got["redirect_url"]; ok {
		t.Fatalf("duplicate delivery must not return a redirect url")
	}

	var purchases []models.Purchase
	conn.Find(&purchases)
	if len(purchases) != 1 || purchases[0].SpinsRemaining != 5 || purchases[0].ExternalID != "kiwify_K1" {
		t.Fatalf("unexpected purchases %+v", purchases)
	}
}

func TestKiwifyWebhookErrors(t *testing.T) {
	r, _ := setupWebhookRouter(t, "", nil)

	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{name: "missing order id", body: `{"order_status":"approved"}`, status: http.StatusBadRequest, message: "Order ID not found"},
		{name: "not json", body: `{`, status: http.StatusBadRequest, message: "invalid json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(r, "/webhooks/kiwify", tt.body, nil)
			if rec.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, rec.Code)
			}
			if got := decodeBody(t, rec); got["error"] != tt.message {
				t.Fatalf("expected error %q, got %v", tt.message, got)
			}
		})
	}

	rec := postJSON(r, "/webhooks/kiwify", `{"order_id":"X","order_status":"waiting_payment"}`, nil)
	if got := decodeBody(t, rec); rec.Code != http.StatusOK || got["message"] != webhook.MessageProcessed {
		t.Fatalf("expected processed, got %d %v", rec.Code, got)
	}
}

func TestKiwifyWebhookRefundZeroesSpins(t *testing.T) {
	r, conn := setupWebhookRouter(t, "", nil)
	postJSON(r, "/webhooks/kiwify", `{"order_id":"K2","order_status":"paid"}`, nil)

	rec := postJSON(r, "/webhooks/kiwify", `{"order_id":"K2","order_status":"refunded"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var purchase models.Purchase
	conn.First(&purchase, "external_id = ?", "kiwify_K2")
	if purchase.Status != models.PurchaseStatusRefunded || purchase.SpinsRemaining != 0 {
		t.Fatalf("purchase not revoked: %+v", purchase)
	}
}

func TestKiwifyWebhookSignature(t *testing.T) {
	r, conn := setupWebhookRouter(t, "kiwify-secret", nil)
	body := `{"order_id":"S1","order_status":"paid"}`

	rec := postJSON(r, "/webhooks/kiwify", body, nil)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "invalid signature") {
		t.Fatalf("expected status 400 invalid signature, got %d %s", rec.Code, rec.Body.String())
	}

	sig := payment.SignKiwify("kiwify-secret", []byte(body))
	rec = postJSON(r, "/webhooks/kiwify?signature="+sig, body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var rejected int64
	conn.Model(&models.WebhookEvent{}).Where("outcome = ?", webhook.OutcomeRejected).Count(&rejected)
	if rejected != 1 {
		t.Fatalf("expected rejected event logged, got %d", rejected)
	}
}

func TestMercadoPagoWebhook(t *testing.T) {
	r, conn := setupWebhookRouter(t, "", nil)

	rec := postJSON(r, "/webhooks/mercadopago", `{"type":"payment","data":{"id":321,"status":"approved","payer":{"first_name":"Rui","last_name":"Lima"}}}`, nil)
	got := decodeBody(t, rec)
	if rec.Code != http.StatusOK || got["message"] != webhook.MessageCreated {
		t.Fatalf("unexpected response %d %v", rec.Code, got)
	}
	if redirect, _ := got["redirect_url"].(string); !strings.HasPrefix(redirect, "https://promo.example.com/?token=") {
		t.Fatalf("expected public base url redirect, got %q", redirect)
	}
	var purchase models.Purchase
	conn.First(&purchase, "external_id = ?", "mp_321")
	if purchase.UserEmail != "customer_321@mercadopago.com" || purchase.UserName == nil || *purchase.UserName != "Rui Lima" {
		t.Fatalf("unexpected purchase %+v", purchase)
	}

	rec = postJSON(r, "/webhooks/mercadopago", `{"type":"payment","data":{}}`, nil)
	if got := decodeBody(t, rec); rec.Code != http.StatusBadRequest || got["error"] != "Payment ID not found" {
		t.Fatalf("expected missing payment id, got %d %v", rec.Code, got)
	}

	rec = postJSON(r, "/webhooks/mercadopago", `{"type":"plan","id":"1"}`, nil)
	if got := decodeBody(t, rec); rec.Code != http.StatusOK || got["message"] != webhook.MessageProcessed {
		t.Fatalf("expected processed, got %d %v", rec.Code, got)
	}
}

func TestMercadoPagoWebhookFetchesPayment(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/v1/payments/77" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"id":77,"status":"approved","payer":{"email":"real@example.com"},"transaction_amount":29.9}`))
	}))
	defer api.Close()

	r, conn := setupWebhookRouter(t, "", payment.NewMercadoPagoClient(api.URL, "tok", api.Client()))

	rec := postJSON(r, "/webhooks/mercadopago", `{"action":"payment.created","data":{"id":"77"}}`, nil)
	if got := decodeBody(t, rec); rec.Code != http.StatusOK || got["message"] != webhook.MessageCreated {
		t.Fatalf("unexpected response %d %v", rec.Code, got)
	}
	var purchase models.Purchase
	conn.First(&purchase, "external_id = ?", "mp_77")
	if purchase.UserEmail != "real@example.com" {
		t.Fatalf("expected fetched payer email, got %q", purchase.UserEmail)
	}

	rec = postJSON(r, "/webhooks/mercadopago", `{"action":"payment.created","data":{"id":"78"}}`, nil)
	if got := decodeBody(t, rec); rec.Code != http.StatusInternalServerError || got["error"] != "Internal server error" {
		t.Fatalf("expected fetch failure, got %d %v", rec.Code, got)
	}
}

func TestWebhookPreflight(t *testing.T) {
	r, _ := setupWebhookRouter(t, "", nil)
	for _, path := range []string{"/webhooks/kiwify", "/webhooks/mercadopago"} {
		req := httptest.NewRequest(http.MethodOptions, path, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("%s: expected status 204, got %d", path, rec.Code)
		}
		if !strings.Contains(rec.Header().Get("Access-Control-Allow-Headers"), "x-kiwify-signature") {
			t.Fatalf("%s: missing allow headers", path)
		}
	}
}
