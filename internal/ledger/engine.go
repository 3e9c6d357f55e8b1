// Package ledger computes the effect of adding and removing dated
// transactions on player and system aggregates. The engine records
// caller-derived snapshot values; it does not recompute financial math from
// reload/withdrawal.
package ledger

import (
	"StakeLedger/internal/activity"
	"StakeLedger/internal/money"
	"StakeLedger/internal/store"
	"time"
)

type Engine struct {
	store *store.Store
	rec   *activity.Recorder
}

func NewEngine(st *store.Store, rec *activity.Recorder) *Engine {
	return &Engine{store: st, rec: rec}
}

// SystemInput describes a new backing system.
type SystemInput struct {
	Name              string
	Type              string
	StakingPercentage int64
	AdminID           string
	CreatedAt         time.Time
}

// PlayerInput describes a new backed player.
type PlayerInput struct {
	Name     string
	Email    string
	SystemID string
	Date     time.Time
}

// TransactionInput carries the caller-computed snapshot values for a new
// transaction. PlayerWithdrawal is intentionally absent: it is carried
// forward from the player's prior transaction by the engine.
type TransactionInput struct {
	PlayerID       string
	SystemID       string
	Date           time.Time
	Balance        money.Amount
	Reload         money.Amount
	Withdrawal     money.Amount
	Result         money.Amount
	PreviousMakeup money.Amount
	CurrentMakeup  money.Amount
	Profit         money.Amount
	BankReserve    money.Amount
}

// Period is an inclusive settlement date range.
type Period struct {
	Start time.Time
	End   time.Time
}

// CreateSystem registers a new system with zeroed aggregates.
func (e *Engine) CreateSystem(in SystemInput) (*store.System, error) {
	sys := &store.System{
		ID:                e.store.NewID(),
		Name:              in.Name,
		Type:              in.Type,
		StakingPercentage: in.StakingPercentage,
		CreatedAt:         in.CreatedAt,
		AdminID:           in.AdminID,
		Status:            store.SystemActive,
	}
	e.store.PutSystem(sys)
	return sys, nil
}

// AddPlayer creates a player with all numeric fields zeroed, increments the
// owning system's player count and records a player_added feed entry.
func (e *Engine) AddPlayer(in PlayerInput) (*store.Player, error) {
	sys, ok := e.store.System(in.SystemID)
	if !ok {
		return nil, &store.ReferentialError{Entity: "system", ID: in.SystemID}
	}

	p := &store.Player{
		ID:       e.store.NewID(),
		Name:     in.Name,
		Email:    in.Email,
		SystemID: in.SystemID,
	}
	e.store.PutPlayer(p)
	sys.PlayersCount++
	e.rec.RecordPlayerAdded(p, in.Date)
	return p, nil
}

// AddTransaction validates references, carries the playerWithdrawal running
// total forward from the player's prior transaction, inserts the transaction
// with status pending and applies the snapshot values to the player and the
// result to the system total. All reads happen before the first mutation, so
// a rejection leaves no partial state.
func (e *Engine) AddTransaction(in TransactionInput) (*store.Transaction, error) {
	p, ok := e.store.Player(in.PlayerID)
	if !ok {
		return nil, &store.ReferentialError{Entity: "player", ID: in.PlayerID}
	}
	sys, ok := e.store.System(in.SystemID)
	if !ok {
		return nil, &store.ReferentialError{Entity: "system", ID: in.SystemID}
	}

	carried := money.Amount(0)
	if prior := e.latestTransaction(in.PlayerID); prior != nil {
		carried = prior.PlayerWithdrawal
	}

	tx := &store.Transaction{
		ID:               e.store.NewID(),
		PlayerID:         in.PlayerID,
		SystemID:         in.SystemID,
		Date:             in.Date,
		Balance:          in.Balance,
		Reload:           in.Reload,
		Withdrawal:       in.Withdrawal,
		Result:           in.Result,
		PreviousMakeup:   in.PreviousMakeup,
		CurrentMakeup:    in.CurrentMakeup,
		Profit:           in.Profit,
		PlayerWithdrawal: carried,
		BankReserve:      in.BankReserve,
		Status:           store.TransactionPending,
		Seq:              e.store.NextSeq(),
	}
	e.store.PutTransaction(tx)

	p.Balance = in.Balance
	p.Makeup = in.CurrentMakeup
	p.Profit += in.Profit
	p.BankReserve = in.BankReserve
	sys.TotalBalance += in.Result

	if in.Reload > 0 {
		e.rec.RecordDeposit(p, in.Reload, in.Date)
	}
	if in.Withdrawal > 0 {
		e.rec.RecordWithdrawal(p, in.Withdrawal, in.Date)
	}

	return tx, nil
}

// DeleteTransaction removes an unlocked transaction and reverses its deltas
// on the player and system. Settlement-protected transactions are immutable.
//
// Known limitation: later transactions of the same player keep their
// playerWithdrawal values, so deleting a non-last transaction leaves their
// running totals stale.
func (e *Engine) DeleteTransaction(id string) error {
	tx, ok := e.store.Transaction(id)
	if !ok {
		return store.NewNotFound("transaction", id)
	}
	if tx.IsLocked {
		return store.ErrTransactionLocked
	}

	p, ok := e.store.Player(tx.PlayerID)
	if !ok {
		return store.NewNotFound("player", tx.PlayerID)
	}
	sys, ok := e.store.System(tx.SystemID)
	if !ok {
		return store.NewNotFound("system", tx.SystemID)
	}

	// Snapshot deltas are measured against the transaction immediately before
	// this one in the player's date order (zero state if none).
	pred := e.predecessor(tx)
	predBalance, predReserve := money.Amount(0), money.Amount(0)
	if pred != nil {
		predBalance = pred.Balance
		predReserve = pred.BankReserve
	}

	e.store.RemoveTransaction(id)

	p.Balance -= tx.Balance - predBalance
	p.Makeup -= tx.CurrentMakeup - tx.PreviousMakeup
	p.Profit -= tx.Profit
	p.BankReserve -= tx.BankReserve - predReserve
	sys.TotalBalance -= tx.Result

	return nil
}

// IsTransactionLocked reports whether date falls inside any completed
// settlement period of the system, range boundaries inclusive. Callers use it
// to refuse new entries in a closed period.
func (e *Engine) IsTransactionLocked(systemID string, date time.Time) bool {
	for _, st := range e.store.SettlementsBySystem(systemID) {
		if st.Status == store.SettlementCompleted && store.InRange(date, st.StartDate, st.EndDate) {
			return true
		}
	}
	return false
}

// ActiveSettlementPeriod returns the date range of the system's pending
// settlement, if one exists. Several can be pending at once (disjoint
// ranges, or a wide unlock reverting more than one); the earliest-starting
// one is reported.
func (e *Engine) ActiveSettlementPeriod(systemID string) (Period, bool) {
	var active Period
	found := false
	for _, st := range e.store.SettlementsBySystem(systemID) {
		if st.Status != store.SettlementPending {
			continue
		}
		if !found || st.StartDate.Before(active.Start) {
			active = Period{Start: st.StartDate, End: st.EndDate}
			found = true
		}
	}
	return active, found
}

// latestTransaction returns the player's most recent transaction by
// (date, insertion seq), or nil.
func (e *Engine) latestTransaction(playerID string) *store.Transaction {
	txs := e.store.TransactionsByPlayer(playerID)
	if len(txs) == 0 {
		return nil
	}
	store.SortTransactions(txs)
	return txs[len(txs)-1]
}

// predecessor returns the transaction immediately before tx in the player's
// date order, or nil if tx is the player's first.
func (e *Engine) predecessor(tx *store.Transaction) *store.Transaction {
	txs := e.store.TransactionsByPlayer(tx.PlayerID)
	store.SortTransactions(txs)
	var prev *store.Transaction
	for _, t := range txs {
		if t.ID == tx.ID {
			return prev
		}
		prev = t
	}
	return nil
}
