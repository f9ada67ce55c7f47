// Package webhook turns normalised payment notifications into purchase records.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caiqy/prizewheel/internal/models"
	"github.com/caiqy/prizewheel/internal/payment"
	"github.com/caiqy/prizewheel/internal/security"
	"github.com/caiqy/prizewheel/internal/store"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// Response messages.
const (
	MessageCreated   = "Purchase created"
	MessageExists    = "Purchase already exists"
	MessageProcessed = "Webhook processed"
)

// Event outcomes recorded in the webhook log.
const (
	OutcomeCreated   = "created"
	OutcomeDuplicate = "duplicate"
	OutcomeRevoked   = "revoked"
	OutcomeUnmatched = "unmatched"
	OutcomeIgnored   = "ignored"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

var (
	// ErrCreateFailed means the purchase insert failed for a reason other than a duplicate.
	ErrCreateFailed = errors.New("webhook: failed to create purchase")
	// ErrInternal means a lookup or update failed.
	ErrInternal = errors.New("webhook: internal error")
)

// Options configures a Service.
type Options struct {
	SpinAllowance int
	PublicBaseURL string
	NewToken      func() (string, error)
	Now           func() time.Time
}

// Inbound describes the raw request a notification came from.
type Inbound struct {
	Provider        string
	EventType       string
	ProviderEventID string
	Payload         []byte
	Origin          string
}

// Result is what the webhook endpoint reports back.
type Result struct {
	Message     string
	RedirectURL string
	Outcome     string
	ExternalID  string
}

// Service applies notifications idempotently, keyed by the purchase external id.
type Service struct {
	store store.PurchaseStore
	opts  Options
}

// NewService constructs a Service.
func NewService(purchases store.PurchaseStore, opts Options) *Service {
	if opts.SpinAllowance <= 0 {
		opts.SpinAllowance = 5
	}
	if opts.NewToken == nil {
		opts.NewToken = security.GenerateAccessToken
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	opts.PublicBaseURL = strings.TrimRight(strings.TrimSpace(opts.PublicBaseURL), "/")
	return &Service{store: purchases, opts: opts}
}

// Handle applies n and records the inbound event.
func (s *Service) Handle(ctx context.Context, in Inbound, n payment.Notification) (Result, error) {
	var (
		res Result
		err error
	)
	switch ev := n.(type) {
	case payment.PaymentConfirmed:
		res, err = s.confirm(ctx, in, ev)
	case payment.PaymentReversed:
		res, err = s.reverse(ctx, ev)
	case payment.Ignored:
		res = Result{Message: MessageProcessed, Outcome: OutcomeIgnored}
	default:
		err = fmt.Errorf("%w: unsupported notification %T", ErrInternal, n)
	}
	if err != nil {
		res.Outcome = OutcomeFailed
	}
	s.record(ctx, in, res, err)
	return res, err
}

// Reject records an inbound event that could not be parsed.
func (s *Service) Reject(ctx context.Context, in Inbound, cause error) {
	s.record(ctx, in, Result{Outcome: OutcomeRejected}, cause)
}

func (s *Service) confirm(ctx context.Context, in Inbound, ev payment.PaymentConfirmed) (Result, error) {
	res := Result{ExternalID: ev.ExternalID}
	existing, errFind := s.store.FindPurchaseByExternalID(ctx, ev.ExternalID)
	if errFind != nil {
		return res, fmt.Errorf("%w: find purchase: %v", ErrInternal, errFind)
	}
	if existing != nil {
		res.Message, res.Outcome = MessageExists, OutcomeDuplicate
		return res, nil
	}

	token, errToken := s.opts.NewToken()
	if errToken != nil {
		return res, fmt.Errorf("%w: %v", ErrCreateFailed, errToken)
	}
	purchase := &models.Purchase{
		UserEmail:       ev.Email,
		UserName:        ev.Name,
		ExternalID:      ev.ExternalID,
		PaymentPlatform: ev.Platform,
		Amount:          ev.Amount,
		Status:          models.PurchaseStatusConfirmed,
		SpinsGranted:    s.opts.SpinAllowance,
		SpinsRemaining:  s.opts.SpinAllowance,
		AccessToken:     token,
	}
	if errCreate := s.store.CreatePurchase(ctx, purchase); errCreate != nil {
		if errors.Is(errCreate, store.ErrDuplicateOrder) {
			// Lost the race against a concurrent delivery of the same order.
			res.Message, res.Outcome = MessageExists, OutcomeDuplicate
			return res, nil
		}
		return res, fmt.Errorf("%w: %v", ErrCreateFailed, errCreate)
	}

	log.WithFields(log.Fields{
		"external_id": ev.ExternalID,
		"platform":    ev.Platform,
		"purchase_id": purchase.ID,
	}).Info("webhook: purchase created")
	res.Message, res.Outcome = MessageCreated, OutcomeCreated
	res.RedirectURL = s.redirectURL(in.Origin, token)
	return res, nil
}

func (s *Service) reverse(ctx context.Context, ev payment.PaymentReversed) (Result, error) {
	res := Result{ExternalID: ev.ExternalID, Message: MessageProcessed}
	matched, errRevoke := s.store.RevokePurchase(ctx, ev.ExternalID, ev.Status)
	if errRevoke != nil {
		return res, fmt.Errorf("%w: revoke purchase: %v", ErrInternal, errRevoke)
	}
	if !matched {
		res.Outcome = OutcomeUnmatched
		return res, nil
	}
	log.WithFields(log.Fields{"external_id": ev.ExternalID, "status": ev.Status}).Info("webhook: purchase revoked")
	res.Outcome = OutcomeRevoked
	return res, nil
}

func (s *Service) redirectURL(origin, token string) string {
	base := strings.TrimRight(strings.TrimSpace(origin), "/")
	if base == "" {
		base = s.opts.PublicBaseURL
	}
	return base + "/?token=" + token
}

func (s *Service) record(ctx context.Context, in Inbound, res Result, cause error) {
	event := &models.WebhookEvent{
		Provider:        in.Provider,
		ProviderEventID: in.ProviderEventID,
		EventType:       in.EventType,
		ExternalID:      res.ExternalID,
		Payload:         payloadJSON(in.Payload),
		Outcome:         res.Outcome,
		ProcessedAt:     s.opts.Now(),
	}
	if cause != nil {
		msg := cause.Error()
		event.ProcessingError = &msg
	}
	if errRecord := s.store.RecordWebhookEvent(ctx, event); errRecord != nil {
		log.WithError(errRecord).WithField("provider", in.Provider).Warn("webhook: record event failed")
	}
}

// payloadJSON keeps invalid bodies as a JSON string so the column stays valid JSON.
func payloadJSON(body []byte) datatypes.JSON {
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		return datatypes.JSON(body)
	}
	quoted, errMarshal := json.Marshal(string(body))
	if errMarshal != nil {
		return nil
	}
	return datatypes.JSON(quoted)
}
