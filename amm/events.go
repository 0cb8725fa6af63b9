package amm

import (
	"context"
	"sync"
	"time"

	solanago "github.com/gagliardetto/solana-go"

	"github.com/krazyTry/cpamm-go/amm/math"
	"github.com/krazyTry/cpamm-go/u128"
)

type EventKind string

const (
	EventInitialize EventKind = "initialize"
	EventDeposit    EventKind = "deposit"
	EventWithdraw   EventKind = "withdraw"
	EventSwap       EventKind = "swap"
	EventLock       EventKind = "lock"
	EventUnlock     EventKind = "unlock"
)

// Event records one committed pool mutation.
type Event struct {
	Seq       uint64    `json:"seq"`
	Kind      EventKind `json:"kind"`
	Pool      string    `json:"pool"`
	User      string    `json:"user"`
	Timestamp time.Time `json:"timestamp"`

	AmountXIn  uint64 `json:"amount_x_in"`
	AmountYIn  uint64 `json:"amount_y_in"`
	AmountXOut uint64 `json:"amount_x_out"`
	AmountYOut uint64 `json:"amount_y_out"`
	Fee        uint64 `json:"fee"`
	LpMinted   uint64 `json:"lp_minted"`
	LpBurned   uint64 `json:"lp_burned"`

	ReserveXBefore uint64 `json:"reserve_x_before"`
	ReserveYBefore uint64 `json:"reserve_y_before"`
	SupplyBefore   uint64 `json:"supply_before"`
	ReserveXAfter  uint64 `json:"reserve_x_after"`
	ReserveYAfter  uint64 `json:"reserve_y_after"`
	SupplyAfter    uint64 `json:"supply_after"`

	// u128 values rendered in base 10
	InvariantBefore string `json:"invariant_before"`
	InvariantAfter  string `json:"invariant_after"`

	Locked bool `json:"locked"`
}

// EventSink receives committed events in sequence order.
type EventSink interface {
	PutEvents(ctx context.Context, events []Event) error
}

func newEvent(kind EventKind, pool, user solanago.PublicKey, before, after Snapshot) *Event {
	return &Event{
		Kind:            kind,
		Pool:            pool.String(),
		User:            user.String(),
		ReserveXBefore:  before.ReserveX,
		ReserveYBefore:  before.ReserveY,
		SupplyBefore:    before.Supply,
		ReserveXAfter:   after.ReserveX,
		ReserveYAfter:   after.ReserveY,
		SupplyAfter:     after.Supply,
		InvariantBefore: u128.Decimal(math.Invariant(before.ReserveX, before.ReserveY)),
		InvariantAfter:  u128.Decimal(math.Invariant(after.ReserveX, after.ReserveY)),
	}
}

// MemorySink keeps events in memory.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func (s *MemorySink) PutEvents(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

// Events returns a copy of everything received so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}
