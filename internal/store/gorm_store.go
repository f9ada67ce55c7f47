package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	dbutil "github.com/caiqy/prizewheel/internal/db"
	"github.com/caiqy/prizewheel/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// historyLimit caps the spin history returned with a purchase.
const historyLimit = 50

// errSpinRecorded rolls back a RecordSpin whose key is already stored.
var errSpinRecorded = errors.New("store: spin already recorded")

// GormStore implements Repository and PurchaseStore on a GORM connection.
type GormStore struct {
	db *gorm.DB
}

var (
	_ Repository    = (*GormStore)(nil)
	_ PurchaseStore = (*GormStore)(nil)
)

// NewGormStore constructs a GormStore.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// FetchActivePrizes returns active prizes in display order.
func (s *GormStore) FetchActivePrizes(ctx context.Context) ([]models.Prize, error) {
	var rows []models.Prize
	if errFind := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("display_order ASC").
		Order("id ASC").
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("store: fetch prizes: %w", errFind)
	}
	return rows, nil
}

// FetchPurchaseByToken resolves an access token to its purchase and spin history.
func (s *GormStore) FetchPurchaseByToken(ctx context.Context, token string) (PurchaseInfo, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return PurchaseInfo{}, ErrTokenInvalid
	}

	var info PurchaseInfo
	if errFind := s.db.WithContext(ctx).Where("access_token = ?", token).First(&info.Purchase).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return PurchaseInfo{}, ErrTokenInvalid
		}
		return PurchaseInfo{}, fmt.Errorf("store: fetch purchase: %w", errFind)
	}
	if errSpins := s.db.WithContext(ctx).
		Where("purchase_id = ?", info.Purchase.ID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(historyLimit).
		Find(&info.Spins).Error; errSpins != nil {
		return PurchaseInfo{}, fmt.Errorf("store: fetch spins: %w", errSpins)
	}
	return info, nil
}

// RecordSpin decrements the remaining count by one and inserts the spin in one transaction.
// The conditional update keeps the count from going below zero under concurrent spins.
func (s *GormStore) RecordSpin(ctx context.Context, token string, outcome SpinOutcome) (int, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, ErrTokenInvalid
	}
	name := strings.TrimSpace(outcome.PrizeName)
	if name == "" {
		return 0, fmt.Errorf("store: record spin: empty prize name")
	}

	key := strings.TrimSpace(outcome.Key)

	remaining := 0
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var purchase models.Purchase
		if errFind := tx.Select("id").Where("access_token = ?", token).First(&purchase).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrTokenInvalid
			}
			return errFind
		}
		if key != "" {
			var seen int64
			if errCount := tx.Model(&models.Spin{}).Where("spin_key = ?", key).Count(&seen).Error; errCount != nil {
				return errCount
			}
			if seen > 0 {
				return errSpinRecorded
			}
		}

		res := tx.Model(&models.Purchase{}).
			Where("id = ? AND status = ? AND spins_remaining > 0", purchase.ID, models.PurchaseStatusConfirmed).
			Updates(map[string]any{
				"spins_remaining": gorm.Expr("spins_remaining - 1"),
				"updated_at":      time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNoSpinsLeft
		}

		spin := models.Spin{
			PurchaseID: purchase.ID,
			PrizeID:    outcome.PrizeID,
			PrizeName:  name,
			IsWinning:  outcome.IsWinning,
			CreatedAt:  time.Now().UTC(),
		}
		if key != "" {
			spin.SpinKey = &key
		}
		if errCreate := tx.Create(&spin).Error; errCreate != nil {
			if key != "" && dbutil.IsUniqueViolation(errCreate) {
				return errSpinRecorded
			}
			return errCreate
		}

		var after models.Purchase
		if errReload := tx.Select("spins_remaining").First(&after, purchase.ID).Error; errReload != nil {
			return errReload
		}
		remaining = after.SpinsRemaining
		return nil
	})
	if errors.Is(errTx, errSpinRecorded) {
		// A concurrent caller stored this key first; its decrement is the only one.
		var current models.Purchase
		if errFind := s.db.WithContext(ctx).Select("spins_remaining").Where("access_token = ?", token).First(&current).Error; errFind != nil {
			return 0, fmt.Errorf("store: record spin: %w", errFind)
		}
		return current.SpinsRemaining, nil
	}
	if errTx != nil {
		if errors.Is(errTx, ErrTokenInvalid) || errors.Is(errTx, ErrNoSpinsLeft) {
			return 0, errTx
		}
		return 0, fmt.Errorf("store: record spin: %w", errTx)
	}
	return remaining, nil
}

// FindPurchaseByExternalID returns the purchase for an external id, or nil when none exists.
func (s *GormStore) FindPurchaseByExternalID(ctx context.Context, externalID string) (*models.Purchase, error) {
	var row models.Purchase
	errFind := s.db.WithContext(ctx).Where("external_id = ?", externalID).Take(&row).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: find purchase: %w", errFind)
	}
	return &row, nil
}

// CreatePurchase inserts a purchase. A unique violation on external id yields ErrDuplicateOrder.
func (s *GormStore) CreatePurchase(ctx context.Context, purchase *models.Purchase) error {
	if purchase == nil {
		return fmt.Errorf("store: nil purchase")
	}
	if errCreate := s.db.WithContext(ctx).Create(purchase).Error; errCreate != nil {
		if dbutil.IsUniqueViolation(errCreate) {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("store: create purchase: %w", errCreate)
	}
	return nil
}

// RevokePurchase marks a purchase refunded or charged back and removes its remaining spins.
// Spin history is kept.
func (s *GormStore) RevokePurchase(ctx context.Context, externalID, status string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Purchase{}).
		Where("external_id = ?", externalID).
		Updates(map[string]any{
			"status":          status,
			"spins_remaining": 0,
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("store: revoke purchase: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// RevokePurchaseByID is the admin variant of RevokePurchase.
func (s *GormStore) RevokePurchaseByID(ctx context.Context, id uint64, status string) (*models.Purchase, error) {
	var row models.Purchase
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errFind := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, id).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrPurchaseNotFound
			}
			return errFind
		}
		row.Status = status
		row.SpinsRemaining = 0
		row.UpdatedAt = time.Now().UTC()
		return tx.Model(&row).Select("status", "spins_remaining", "updated_at").Updates(&row).Error
	})
	if errTx != nil {
		if errors.Is(errTx, ErrPurchaseNotFound) {
			return nil, errTx
		}
		return nil, fmt.Errorf("store: revoke purchase: %w", errTx)
	}
	return &row, nil
}

// RecordWebhookEvent appends a webhook audit row.
func (s *GormStore) RecordWebhookEvent(ctx context.Context, event *models.WebhookEvent) error {
	if event == nil {
		return nil
	}
	if event.ProcessedAt.IsZero() {
		event.ProcessedAt = time.Now().UTC()
	}
	if errCreate := s.db.WithContext(ctx).Create(event).Error; errCreate != nil {
		return fmt.Errorf("store: record webhook event: %w", errCreate)
	}
	return nil
}
