package store

import (
	"context"
	"errors"

	"github.com/caiqy/prizewheel/internal/models"
)

// Data service errors.
var (
	// ErrTokenInvalid means no purchase matches the access token.
	ErrTokenInvalid = errors.New("store: access token invalid")
	// ErrNoSpinsLeft means the purchase has no remaining spins or is no longer confirmed.
	ErrNoSpinsLeft = errors.New("store: no spins left")
	// ErrDuplicateOrder means a purchase with the same external id already exists.
	ErrDuplicateOrder = errors.New("store: duplicate order")
	// ErrPurchaseNotFound means no purchase matches the external id or primary key.
	ErrPurchaseNotFound = errors.New("store: purchase not found")
)

// PurchaseInfo is a purchase together with its spin history, newest first.
type PurchaseInfo struct {
	Purchase models.Purchase
	Spins    []models.Spin
}

// SpinOutcome is the result of one wheel spin to be persisted.
type SpinOutcome struct {
	// Key identifies the wheel animation. A key already stored is not recorded again.
	Key       string
	PrizeID   *uint64
	PrizeName string
	IsWinning bool
}

// Repository is the read/record surface the wheel session needs.
type Repository interface {
	FetchActivePrizes(ctx context.Context) ([]models.Prize, error)
	FetchPurchaseByToken(ctx context.Context, token string) (PurchaseInfo, error)
	// RecordSpin atomically decrements the remaining count and stores the spin.
	// It returns the count confirmed after the decrement. Repeating a keyed outcome
	// changes nothing and returns the current count.
	RecordSpin(ctx context.Context, token string, outcome SpinOutcome) (int, error)
}

// PurchaseStore is the write surface payment webhooks need.
type PurchaseStore interface {
	FindPurchaseByExternalID(ctx context.Context, externalID string) (*models.Purchase, error)
	CreatePurchase(ctx context.Context, purchase *models.Purchase) error
	// RevokePurchase sets the status and zeroes remaining spins. It reports whether a row matched.
	RevokePurchase(ctx context.Context, externalID, status string) (bool, error)
	RecordWebhookEvent(ctx context.Context, event *models.WebhookEvent) error
}
