package session

import (
	"errors"
	"time"

	"github.com/caiqy/prizewheel/internal/wheel"
)

// State is a step of the wheel session state machine.
type State string

// Session states.
const (
	StateLoading     State = "loading"
	StateError       State = "error"
	StateReady       State = "ready"
	StateSpinning    State = "spinning"
	StateResultShown State = "result_shown"
	StateExhausted   State = "exhausted"
)

// Session errors.
var (
	ErrTokenMissing       = errors.New("session: access token missing")
	ErrTokenInvalid       = errors.New("session: access token invalid or expired")
	ErrServiceUnavailable = errors.New("session: data service unavailable")
	ErrNoPrizes           = errors.New("session: no active prizes")
	ErrSessionNotFound    = errors.New("session: not found")
	ErrAlreadySpinning    = errors.New("session: already spinning")
	ErrWheelDisabled      = errors.New("session: wheel disabled")
	ErrNoSpinsLeft        = errors.New("session: no spins left")
	ErrNotSpinning        = errors.New("session: no spin in progress")
	ErrSpinInProgress     = errors.New("session: spin animation still running")
	ErrNotReady           = errors.New("session: not ready to spin")
)

// historySize bounds the spin history kept in a snapshot.
const historySize = 50

// Pending is the spin selected but not yet revealed.
type Pending struct {
	ID        string    `json:"id"`
	Index     int       `json:"index"`
	PrizeID   uint64    `json:"prize_id"`
	Rotation  float64   `json:"rotation"`
	StartedAt time.Time `json:"started_at"`
	RevealAt  time.Time `json:"reveal_at"`
}

// Result is the last revealed prize.
type Result struct {
	PrizeID     uint64    `json:"prize_id"`
	PrizeName   string    `json:"prize_name"`
	Description *string   `json:"description,omitempty"`
	IsWinning   bool      `json:"is_winning"`
	SpunAt      time.Time `json:"spun_at"`
}

// HistoryItem is one past spin of the purchase.
type HistoryItem struct {
	PrizeName string    `json:"prize_name"`
	IsWinning bool      `json:"is_winning"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is the snapshot of one wheel page session.
type Session struct {
	ID             string          `json:"id"`
	Token          string          `json:"token"`
	State          State           `json:"state"`
	Error          string          `json:"error,omitempty"`
	CustomerName   string          `json:"customer_name,omitempty"`
	Prizes         []wheel.Entry   `json:"prizes"`
	Segments       []wheel.Segment `json:"segments"`
	SpinsRemaining int             `json:"spins_remaining"`
	SpinsGranted   int             `json:"spins_granted"`
	Rotation       float64         `json:"rotation"`
	Pending        *Pending        `json:"pending,omitempty"`
	LastResult     *Result         `json:"last_result,omitempty"`
	History        []HistoryItem   `json:"history"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// CanSpin reports whether a spin would be accepted right now, ignoring the global switch.
func (s *Session) CanSpin() bool {
	return s != nil && s.State == StateReady && s.SpinsRemaining > 0
}

func (s *Session) fail(err error, message string) error {
	s.State = StateError
	s.Error = message
	s.Pending = nil
	return err
}

func (s *Session) prependHistory(item HistoryItem) {
	s.History = append([]HistoryItem{item}, s.History...)
	if len(s.History) > historySize {
		s.History = s.History[:historySize]
	}
}
