package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/caiqy/prizewheel/internal/models"
	"github.com/caiqy/prizewheel/internal/store"
	"github.com/caiqy/prizewheel/internal/wheel"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	finishClaimPrefix  = "finish:"
	// finishClaimTTL outlives any snapshot that could still hold the pending spin.
	finishClaimTTL     = 24 * time.Hour
	finishPollInterval = 25 * time.Millisecond
	finishWait         = 3 * time.Second
)

// Options configures a Controller. Zero values pick production defaults.
type Options struct {
	SpinDuration time.Duration    // Time between Spin and the earliest Finish.
	Enabled      func() bool      // Global switch; nil means always enabled.
	Source       wheel.Source     // Randomness for selection and planning.
	Now          func() time.Time // Clock.
	NewID        func() string    // Session id generator.
}

// Controller drives wheel sessions: load, spin, reveal and persist.
type Controller struct {
	repo     store.Repository
	sessions SnapshotStore
	opts     Options
	locks    keyedMutex
}

// NewController constructs a Controller.
func NewController(repo store.Repository, sessions SnapshotStore, opts Options) *Controller {
	if opts.Enabled == nil {
		opts.Enabled = func() bool { return true }
	}
	if opts.Source == nil {
		opts.Source = globalSource{}
	} else {
		opts.Source = &lockedSource{src: opts.Source}
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Controller{repo: repo, sessions: sessions, opts: opts, locks: keyedMutex{locks: map[string]*refMutex{}}}
}

// Open creates a session for an access token and loads prizes and purchase state.
// The session is stored even when loading fails so the page can show the error state.
func (c *Controller) Open(ctx context.Context, token string) (*Session, error) {
	now := c.opts.Now()
	sess := &Session{
		ID:        c.opts.NewID(),
		Token:     strings.TrimSpace(token),
		State:     StateLoading,
		CreatedAt: now,
		UpdatedAt: now,
	}
	errLoad := c.load(ctx, sess)
	if errSave := c.save(ctx, sess); errSave != nil {
		return nil, errSave
	}
	return sess, errLoad
}

func (c *Controller) load(ctx context.Context, sess *Session) error {
	if sess.Token == "" {
		return sess.fail(ErrTokenMissing, "access token not provided")
	}

	prizes, errPrizes := c.repo.FetchActivePrizes(ctx)
	if errPrizes != nil {
		log.WithError(errPrizes).Warn("wheel session: fetch prizes failed")
		return sess.fail(ErrServiceUnavailable, "failed to load data, please try again")
	}
	info, errPurchase := c.repo.FetchPurchaseByToken(ctx, sess.Token)
	if errPurchase != nil {
		if errors.Is(errPurchase, store.ErrTokenInvalid) {
			return sess.fail(ErrTokenInvalid, "invalid or expired token")
		}
		log.WithError(errPurchase).Warn("wheel session: fetch purchase failed")
		return sess.fail(ErrServiceUnavailable, "failed to load data, please try again")
	}
	if len(prizes) == 0 {
		return sess.fail(ErrNoPrizes, "no prizes available")
	}

	sess.Prizes = EntriesFromPrizes(prizes)
	if !anySelectable(sess.Prizes) {
		sess.Prizes = nil
		return sess.fail(ErrNoPrizes, "no prizes available")
	}
	sess.Segments = wheel.Layout(sess.Prizes)
	sess.SpinsRemaining = info.Purchase.SpinsRemaining
	sess.SpinsGranted = info.Purchase.SpinsGranted
	if info.Purchase.UserName != nil {
		sess.CustomerName = *info.Purchase.UserName
	}
	sess.History = make([]HistoryItem, 0, len(info.Spins))
	for _, sp := range info.Spins {
		sess.History = append(sess.History, HistoryItem{PrizeName: sp.PrizeName, IsWinning: sp.IsWinning, CreatedAt: sp.CreatedAt})
	}
	if sess.SpinsRemaining > 0 {
		sess.State = StateReady
	} else {
		sess.State = StateExhausted
	}
	return nil
}

// Get returns the current snapshot of a session.
func (c *Controller) Get(ctx context.Context, id string) (*Session, error) {
	return c.sessions.Load(ctx, id)
}

// Spin selects a prize and plans the rotation. Nothing is persisted until Finish.
// All guards run on the cached snapshot, so a rejected spin never reaches the data service.
func (c *Controller) Spin(ctx context.Context, id string) (*Session, error) {
	unlock := c.locks.Lock(id)
	defer unlock()

	sess, err := c.sessions.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch sess.State {
	case StateReady:
	case StateSpinning:
		return sess, ErrAlreadySpinning
	case StateExhausted:
		return sess, ErrNoSpinsLeft
	default:
		return sess, ErrNotReady
	}
	if !c.opts.Enabled() {
		return sess, ErrWheelDisabled
	}
	if sess.SpinsRemaining <= 0 {
		sess.State = StateExhausted
		return sess, c.saveOr(ctx, sess, ErrNoSpinsLeft)
	}

	index, errPick := wheel.Pick(sess.Prizes, c.opts.Source, false)
	if errPick != nil {
		return sess, fmt.Errorf("session: select prize: %w", errPick)
	}
	w := wheel.NewWheel(sess.Rotation)
	rotation, errPlan := w.Spin(index, len(sess.Prizes), c.opts.Source)
	if errPlan != nil {
		return sess, fmt.Errorf("session: plan rotation: %w", errPlan)
	}

	now := c.opts.Now()
	sess.Rotation = rotation
	sess.Pending = &Pending{
		ID:        c.opts.NewID(),
		Index:     index,
		PrizeID:   sess.Prizes[index].ID,
		Rotation:  rotation,
		StartedAt: now,
		RevealAt:  now.Add(c.opts.SpinDuration),
	}
	sess.State = StateSpinning
	sess.Error = ""
	return sess, c.saveOr(ctx, sess, nil)
}

// Finish reveals the pending prize and records the spin with the data service.
// The remaining count only changes to the value the service confirms.
func (c *Controller) Finish(ctx context.Context, id string) (*Session, error) {
	unlock := c.locks.Lock(id)
	defer unlock()

	sess, err := c.sessions.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.State != StateSpinning || sess.Pending == nil {
		return sess, ErrNotSpinning
	}
	now := c.opts.Now()
	if now.Before(sess.Pending.RevealAt) {
		return sess, ErrSpinInProgress
	}
	if sess.Pending.Index < 0 || sess.Pending.Index >= len(sess.Prizes) {
		sess.State = StateReady
		sess.Pending = nil
		return sess, c.saveOr(ctx, sess, fmt.Errorf("session: pending index out of range: %w", wheel.ErrInvalidInput))
	}

	// The local lock only covers this process; instances sharing the snapshot race on the claim.
	key := pendingKey(sess)
	claimed, errClaim := c.sessions.Claim(ctx, finishClaimPrefix+key, finishClaimTTL)
	if errClaim != nil {
		return sess, fmt.Errorf("%w: claim spin: %v", ErrServiceUnavailable, errClaim)
	}
	if !claimed {
		return c.awaitFinished(ctx, id)
	}

	prize := sess.Prizes[sess.Pending.Index]
	prizeID := prize.ID
	remaining, errRecord := c.repo.RecordSpin(ctx, sess.Token, store.SpinOutcome{
		Key:       key,
		PrizeID:   &prizeID,
		PrizeName: prize.Name,
		IsWinning: !prize.IsLosing,
	})
	sess.Pending = nil
	switch {
	case errRecord == nil:
		sess.SpinsRemaining = remaining
		sess.LastResult = &Result{
			PrizeID:     prize.ID,
			PrizeName:   prize.Name,
			Description: prize.Description,
			IsWinning:   !prize.IsLosing,
			SpunAt:      now,
		}
		sess.prependHistory(HistoryItem{PrizeName: prize.Name, IsWinning: !prize.IsLosing, CreatedAt: now})
		sess.State = StateResultShown
		sess.Error = ""
		return sess, c.saveOr(ctx, sess, nil)
	case errors.Is(errRecord, store.ErrNoSpinsLeft):
		// The service is authoritative: another device may have used the last spin.
		sess.SpinsRemaining = 0
		sess.State = StateExhausted
		sess.Error = "no spins left"
		return sess, c.saveOr(ctx, sess, ErrNoSpinsLeft)
	case errors.Is(errRecord, store.ErrTokenInvalid):
		return sess, c.saveOr(ctx, sess, sess.fail(ErrTokenInvalid, "invalid or expired token"))
	default:
		log.WithError(errRecord).WithField("session_id", sess.ID).Warn("wheel session: record spin failed")
		sess.State = StateReady
		sess.Error = "failed to record spin, please try again"
		return sess, c.saveOr(ctx, sess, fmt.Errorf("%w: %v", ErrServiceUnavailable, errRecord))
	}
}

// awaitFinished waits for the instance holding the claim to store its outcome.
func (c *Controller) awaitFinished(ctx context.Context, id string) (*Session, error) {
	ticker := time.NewTicker(finishPollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(finishWait)
	defer deadline.Stop()
	for {
		timedOut := false
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			timedOut = true
		case <-ticker.C:
		}
		sess, err := c.sessions.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		switch sess.State {
		case StateSpinning:
			if timedOut {
				return sess, ErrSpinInProgress
			}
		case StateResultShown:
			return sess, nil
		case StateExhausted:
			return sess, ErrNoSpinsLeft
		case StateError:
			return sess, ErrTokenInvalid
		default:
			return sess, ErrServiceUnavailable
		}
	}
}

// pendingKey identifies the pending spin across instances.
func pendingKey(sess *Session) string {
	if sess.Pending.ID != "" {
		return sess.Pending.ID
	}
	return sess.ID + "@" + sess.Pending.StartedAt.Format(time.RFC3339Nano)
}

// Dismiss closes the result modal.
func (c *Controller) Dismiss(ctx context.Context, id string) (*Session, error) {
	unlock := c.locks.Lock(id)
	defer unlock()

	sess, err := c.sessions.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch sess.State {
	case StateResultShown:
	case StateReady, StateExhausted:
		return sess, nil
	case StateSpinning:
		return sess, ErrAlreadySpinning
	default:
		return sess, ErrNotReady
	}
	if sess.SpinsRemaining > 0 {
		sess.State = StateReady
	} else {
		sess.State = StateExhausted
	}
	return sess, c.saveOr(ctx, sess, nil)
}

func (c *Controller) save(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = c.opts.Now()
	if errSave := c.sessions.Save(ctx, sess); errSave != nil {
		return fmt.Errorf("%w: save session: %v", ErrServiceUnavailable, errSave)
	}
	return nil
}

// saveOr persists sess and returns the save error if any, otherwise result.
func (c *Controller) saveOr(ctx context.Context, sess *Session, result error) error {
	if errSave := c.save(ctx, sess); errSave != nil {
		return errSave
	}
	return result
}

// anySelectable reports whether at least one entry can win a draw.
func anySelectable(entries []wheel.Entry) bool {
	for _, e := range entries {
		if e.EffectiveWeight() > 0 {
			return true
		}
	}
	return false
}

// EntriesFromPrizes converts catalog rows into wheel entries, keeping their order.
func EntriesFromPrizes(prizes []models.Prize) []wheel.Entry {
	out := make([]wheel.Entry, 0, len(prizes))
	for _, p := range prizes {
		out = append(out, wheel.Entry{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Color:       p.Color,
			IsLosing:    p.IsLosing,
			Weight:      p.ProbabilityWeight,
		})
	}
	return out
}

// globalSource draws from the concurrency-safe top-level math/rand/v2 functions.
type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }
func (globalSource) IntN(n int) int   { return rand.IntN(n) }

// lockedSource serialises access to a caller-supplied source.
type lockedSource struct {
	mu  sync.Mutex
	src wheel.Source
}

func (l *lockedSource) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}

func (l *lockedSource) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.IntN(n)
}

// keyedMutex hands out one mutex per session id and frees it when unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
