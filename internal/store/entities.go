package store

import (
	"StakeLedger/internal/money"
	"time"
)

// SystemStatus is the lifecycle state of a backing system.
type SystemStatus string

const (
	SystemActive SystemStatus = "active"
	SystemPaused SystemStatus = "paused"
	SystemClosed SystemStatus = "closed"
)

// TransactionStatus is the review state of a ledger transaction.
type TransactionStatus string

const (
	TransactionPending  TransactionStatus = "pending"
	TransactionApproved TransactionStatus = "approved"
	TransactionRejected TransactionStatus = "rejected"
)

// SettlementStatus is the state of an accounting period.
type SettlementStatus string

const (
	SettlementPending   SettlementStatus = "pending"
	SettlementCompleted SettlementStatus = "completed"
)

// ActivityType classifies feed entries.
type ActivityType string

const (
	ActivityDeposit     ActivityType = "deposit"
	ActivityPlayerAdded ActivityType = "player_added"
	ActivitySettlement  ActivityType = "settlement"
	ActivityWithdrawal  ActivityType = "withdrawal"
)

// System is a staking/backing operation owned by an admin. TotalBalance and
// PlayersCount are denormalized: only transaction-add and player-add mutate
// them.
type System struct {
	ID                string
	Name              string
	Type              string
	StakingPercentage int64 // 0–100
	CreatedAt         time.Time
	AdminID           string
	TotalBalance      money.Amount
	PlayersCount      int
	Status            SystemStatus
}

// Player is a backed player. Balance, Makeup and BankReserve are latest
// snapshots; Profit is cumulative until a settlement zeroes it. Every numeric
// field is mutated exclusively by the ledger and settlement engines.
type Player struct {
	ID          string
	Name        string
	Email       string
	SystemID    string
	Balance     money.Amount
	Makeup      money.Amount
	Profit      money.Amount
	BankReserve money.Amount
}

// Transaction is a dated ledger entry recording caller-derived snapshot
// values. PlayerWithdrawal is the cumulative running withdrawal total carried
// from the player's prior transaction; only settlement finalize increases it.
// A transaction with IsLocked set belongs to a completed settlement and must
// not be mutated outside the unlock path.
type Transaction struct {
	ID               string
	PlayerID         string
	SystemID         string
	Date             time.Time
	Balance          money.Amount
	Reload           money.Amount // deposit amount, >= 0
	Withdrawal       money.Amount // >= 0
	Result           money.Amount // net system-level effect
	PreviousMakeup   money.Amount
	CurrentMakeup    money.Amount
	Profit           money.Amount
	PlayerWithdrawal money.Amount
	BankReserve      money.Amount
	Status           TransactionStatus
	SettlementID     string // set once locked, empty otherwise
	IsLocked         bool
	Seq              int64 // store insertion sequence, breaks same-date ties
}

// SettlementPlayer is a per-player rollup snapshot taken at finalize time.
type SettlementPlayer struct {
	PlayerID string
	Profit   money.Amount
	Makeup   money.Amount
	Balance  money.Amount
}

// Settlement is an accounting period over [StartDate, EndDate] inclusive.
// At most one settlement per system has status pending at a time.
type Settlement struct {
	ID           string
	SystemID     string
	StartDate    time.Time
	EndDate      time.Time
	TotalProfit  money.Amount
	TotalMakeup  money.Amount
	TotalBalance money.Amount
	Players      []SettlementPlayer
	Status       SettlementStatus
	CreatedAt    time.Time
}

// Activity is a display-only feed entry. No invariant reads it.
type Activity struct {
	ID         string
	Type       ActivityType
	PlayerID   string
	PlayerName string
	Amount     money.Amount
	SystemID   string
	Period     string
	Date       time.Time
}

// InRange reports whether d falls within [start, end], both ends inclusive.
func InRange(d, start, end time.Time) bool {
	return !d.Before(start) && !d.After(end)
}
