package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	dbutil "github.com/caiqy/prizewheel/internal/db"
	"github.com/caiqy/prizewheel/internal/models"
	"github.com/caiqy/prizewheel/internal/payment"
	"github.com/caiqy/prizewheel/internal/settings"
	"github.com/caiqy/prizewheel/internal/store"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupWebhookTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:webhook_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := dbutil.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return conn
}

func newTestService(conn *gorm.DB) *Service {
	n := 0
	return NewService(store.NewGormStore(conn), Options{
		SpinAllowance: 5,
		PublicBaseURL: "https://promo.example.com/",
		NewToken: func() (string, error) {
			n++
			return fmt.Sprintf("%064d", n), nil
		},
	})
}

func TestHandleConfirmedIsIdempotent(t *testing.T) {
	conn := setupWebhookTestDB(t)
	svc := newTestService(conn)
	ctx := context.Background()
	body := []byte(`{"order_id":"A1","order_status":"paid","Customer":{"email":"ana@example.com"},"total":19.9}`)
	n, err := payment.ParseKiwify(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	in := Inbound{Provider: payment.ProviderKiwify, EventType: "paid", ProviderEventID: "A1", Payload: body}

	first, err := svc.Handle(ctx, in, n)
	if err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if first.Message != MessageCreated || first.Outcome != OutcomeCreated {
		t.Fatalf("unexpected first result %+v", first)
	}
	if first.RedirectURL != "https://promo.example.com/?token="+fmt.Sprintf("%064d", 1) {
		t.Fatalf("unexpected redirect url %q", first.RedirectURL)
	}

	var purchase models.Purchase
	if errFind := conn.First(&purchase, "external_id = ?", "kiwify_A1").Error; errFind != nil {
		t.Fatalf("load purchase: %v", errFind)
	}
	if purchase.SpinsRemaining != 5 || purchase.SpinsGranted != 5 || purchase.Status != models.PurchaseStatusConfirmed {
		t.Fatalf("unexpected purchase %+v", purchase)
	}
	if purchase.Amount.Decimal.String() != "19.9" || purchase.PaymentPlatform != payment.PlatformKiwify {
		t.Fatalf("unexpected amount/platform %s/%s", purchase.Amount.Decimal, purchase.PaymentPlatform)
	}

	// Use a spin, then redeliver: spins must not reset.
	conn.Model(&models.Purchase{}).Where("id = ?", purchase.ID).Update("spins_remaining", 4)
	in.Origin = "https://shop.example.com"
	second, err := svc.Handle(ctx, in, n)
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if second.Message != MessageExists || second.RedirectURL != "" {
		t.Fatalf("unexpected second result %+v", second)
	}
	var count int64
	conn.Model(&models.Purchase{}).Where("external_id = ?", "kiwify_A1").Count(&count)
	if count != 1 {
		t.Fatalf("expected one purchase, got %d", count)
	}
	conn.First(&purchase, purchase.ID)
	if purchase.SpinsRemaining != 4 {
		t.Fatalf("redelivery reset spins to %d", purchase.SpinsRemaining)
	}

	var events []models.WebhookEvent
	conn.Order("id ASC").Find(&events)
	if len(events) != 2 || events[0].Outcome != OutcomeCreated || events[1].Outcome != OutcomeDuplicate {
		t.Fatalf("unexpected event log %+v", events)
	}
	if events[0].ExternalID != "kiwify_A1" || !strings.Contains(string(events[0].Payload), "A1") {
		t.Fatalf("event missing details: %+v", events[0])
	}
}

func TestHandleConfirmedUsesOrigin(t *testing.T) {
	conn := setupWebhookTestDB(t)
	svc := newTestService(conn)
	res, err := svc.Handle(context.Background(), Inbound{Provider: payment.ProviderMercadoPago, Origin: "https://shop.example.com/"},
		payment.PaymentConfirmed{ExternalID: "mp_1", OrderID: "1", Email: "x@example.com", Platform: payment.PlatformMercadoPago})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !strings.HasPrefix(res.RedirectURL, "https://shop.example.com/?token=") {
		t.Fatalf("expected origin based redirect, got %q", res.RedirectURL)
	}
}

func TestHandleReversedKeepsHistory(t *testing.T) {
	conn := setupWebhookTestDB(t)
	svc := newTestService(conn)
	ctx := context.Background()

	if _, err := svc.Handle(ctx, Inbound{Provider: payment.ProviderKiwify}, payment.PaymentConfirmed{ExternalID: "kiwify_R1", OrderID: "R1", Email: "r@example.com", Platform: payment.PlatformKiwify}); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	var purchase models.Purchase
	conn.First(&purchase, "external_id = ?", "kiwify_R1")
	repo := store.NewGormStore(conn)
	if _, err := repo.RecordSpin(ctx, purchase.AccessToken, store.SpinOutcome{PrizeName: "Voucher", IsWinning: true}); err != nil {
		t.Fatalf("spin: %v", err)
	}

	res, err := svc.Handle(ctx, Inbound{Provider: payment.ProviderKiwify}, payment.PaymentReversed{ExternalID: "kiwify_R1", OrderID: "R1", Status: models.PurchaseStatusChargeback, Platform: payment.PlatformKiwify})
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if res.Message != MessageProcessed || res.Outcome != OutcomeRevoked {
		t.Fatalf("unexpected result %+v", res)
	}
	conn.First(&purchase, purchase.ID)
	if purchase.Status != models.PurchaseStatusChargeback || purchase.SpinsRemaining != 0 {
		t.Fatalf("purchase not revoked: %+v", purchase)
	}
	var spins int64
	conn.Model(&models.Spin{}).Where("purchase_id = ?", purchase.ID).Count(&spins)
	if spins != 1 {
		t.Fatalf("spin history changed: %d rows", spins)
	}

	unknown, err := svc.Handle(ctx, Inbound{Provider: payment.ProviderKiwify}, payment.PaymentReversed{ExternalID: "kiwify_nope", Status: "refunded"})
	if err != nil || unknown.Outcome != OutcomeUnmatched || unknown.Message != MessageProcessed {
		t.Fatalf("unexpected unmatched result %+v err=%v", unknown, err)
	}
}

func TestHandleIgnoredAndRejected(t *testing.T) {
	conn := setupWebhookTestDB(t)
	svc := newTestService(conn)
	ctx := context.Background()

	res, err := svc.Handle(ctx, Inbound{Provider: payment.ProviderKiwify, EventType: "waiting_payment"}, payment.Ignored{Reason: "order status waiting_payment"})
	if err != nil || res.Message != MessageProcessed {
		t.Fatalf("unexpected ignored result %+v err=%v", res, err)
	}
	svc.Reject(ctx, Inbound{Provider: payment.ProviderKiwify, Payload: []byte("not json")}, payment.ErrInvalidPayload)

	var events []models.WebhookEvent
	conn.Order("id ASC").Find(&events)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[1].Outcome != OutcomeRejected || events[1].ProcessingError == nil {
		t.Fatalf("unexpected rejected event %+v", events[1])
	}
	var payload string
	if errDecode := json.Unmarshal(events[1].Payload, &payload); errDecode != nil || payload != "not json" {
		t.Fatalf("invalid payload not stored as string: %s", events[1].Payload)
	}
}

type failingStore struct {
	store.PurchaseStore
	createErr error
	findErr   error
}

func (f failingStore) FindPurchaseByExternalID(context.Context, string) (*models.Purchase, error) {
	return nil, f.findErr
}

func (f failingStore) CreatePurchase(context.Context, *models.Purchase) error { return f.createErr }

func (f failingStore) RecordWebhookEvent(context.Context, *models.WebhookEvent) error {
	return errors.New("event log down")
}

func TestHandleConfirmedErrors(t *testing.T) {
	ctx := context.Background()
	ev := payment.PaymentConfirmed{ExternalID: "mp_2", Email: "e@example.com", Platform: payment.PlatformMercadoPago}

	svc := NewService(failingStore{createErr: errors.New("disk full")}, Options{})
	if _, err := svc.Handle(ctx, Inbound{}, ev); !errors.Is(err, ErrCreateFailed) {
		t.Fatalf("expected ErrCreateFailed, got %v", err)
	}

	svc = NewService(failingStore{createErr: store.ErrDuplicateOrder}, Options{})
	res, err := svc.Handle(ctx, Inbound{}, ev)
	if err != nil || res.Message != MessageExists {
		t.Fatalf("duplicate insert should report existing purchase, got %+v err=%v", res, err)
	}

	svc = NewService(failingStore{findErr: errors.New("timeout")}, Options{})
	if _, err := svc.Handle(ctx, Inbound{}, ev); !errors.Is(err, ErrInternal) {
		t.Fatalf("expected ErrInternal, got %v", err)
	}
}

func TestRetentionCleanerDeletesOldEvents(t *testing.T) {
	conn := setupWebhookTestDB(t)
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := []models.WebhookEvent{
		{Provider: "kiwify", Outcome: OutcomeCreated, ProcessedAt: now, CreatedAt: now.AddDate(0, 0, -40)},
		{Provider: "kiwify", Outcome: OutcomeCreated, ProcessedAt: now, CreatedAt: now.AddDate(0, 0, -31)},
		{Provider: "kiwify", Outcome: OutcomeCreated, ProcessedAt: now, CreatedAt: now.AddDate(0, 0, -2)},
	}
	if errCreate := conn.Create(&rows).Error; errCreate != nil {
		t.Fatalf("seed events: %v", errCreate)
	}

	settings.StoreDBConfig(now, map[string]json.RawMessage{})
	t.Cleanup(func() { settings.StoreDBConfig(time.Time{}, map[string]json.RawMessage{}) })

	c := NewRetentionCleaner(conn)
	c.now = func() time.Time { return now }
	c.batchSize = 1
	if deleted := c.cleanupOnce(context.Background()); deleted != 2 {
		t.Fatalf("expected 2 deleted rows, got %d", deleted)
	}
	var left int64
	conn.Model(&models.WebhookEvent{}).Count(&left)
	if left != 1 {
		t.Fatalf("expected 1 remaining event, got %d", left)
	}

	settings.StoreDBConfig(now, map[string]json.RawMessage{settings.WebhookEventsRetentionDaysKey: json.RawMessage(`0`)})
	if deleted := c.cleanupOnce(context.Background()); deleted != 0 {
		t.Fatalf("retention 0 must disable cleanup, deleted %d", deleted)
	}
}
