// Package settlement computes per-player rollups for a date range, locks the
// covered transactions and reconciles player aggregates when a period is
// finalized or reversed.
package settlement

import (
	"StakeLedger/internal/activity"
	"StakeLedger/internal/money"
	"StakeLedger/internal/store"
	"sort"
	"time"
)

type Engine struct {
	store *store.Store
	rec   *activity.Recorder
}

func NewEngine(st *store.Store, rec *activity.Recorder) *Engine {
	return &Engine{store: st, rec: rec}
}

// Input describes a new settlement period. Totals may be caller-supplied at
// creation; finalize recomputes them from the covered transactions.
type Input struct {
	SystemID     string
	StartDate    time.Time
	EndDate      time.Time
	TotalProfit  money.Amount
	TotalMakeup  money.Amount
	TotalBalance money.Amount
	CreatedAt    time.Time
}

// Create opens a pending settlement for a system. The range must satisfy
// startDate <= endDate and must not overlap any other pending settlement of
// the same system (a system has at most one active period).
func (e *Engine) Create(in Input) (*store.Settlement, error) {
	if _, ok := e.store.System(in.SystemID); !ok {
		return nil, &store.ReferentialError{Entity: "system", ID: in.SystemID}
	}
	if in.StartDate.After(in.EndDate) {
		return nil, store.ErrInvalidRange
	}
	for _, other := range e.store.SettlementsBySystem(in.SystemID) {
		if other.Status == store.SettlementPending && rangesOverlap(in.StartDate, in.EndDate, other.StartDate, other.EndDate) {
			return nil, store.ErrInvalidRange
		}
	}

	st := &store.Settlement{
		ID:           e.store.NewID(),
		SystemID:     in.SystemID,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		TotalProfit:  in.TotalProfit,
		TotalMakeup:  in.TotalMakeup,
		TotalBalance: in.TotalBalance,
		Status:       store.SettlementPending,
		CreatedAt:    in.CreatedAt,
	}
	e.store.PutSettlement(st)
	e.rec.RecordSettlement(in.SystemID, in.StartDate, in.EndDate, in.CreatedAt)
	return st, nil
}

// playerRollup is the per-player result of walking a settlement period in
// ascending date order.
type playerRollup struct {
	playerID    string
	totalProfit money.Amount
	makeup      money.Amount // last transaction's currentMakeup
	bankReserve money.Amount // last transaction's bankReserve
	last        *store.Transaction
	txs         []*store.Transaction
}

// Finalize locks every transaction of the settlement's system inside
// [startDate, endDate], rolls up profit/makeup/bankReserve per player and
// credits positive profit to the playerWithdrawal running total of each
// player's last transaction in the period.
//
// Finalizing an already-completed settlement is a no-op: player deltas are
// never applied twice. A settlement covering zero transactions still
// transitions to completed.
func (e *Engine) Finalize(settlementID string, now time.Time) error {
	st, ok := e.store.Settlement(settlementID)
	if !ok {
		return store.NewNotFound("settlement", settlementID)
	}
	if st.Status == store.SettlementCompleted {
		return nil
	}

	// Select in-range transactions regardless of current lock state and
	// group them by player.
	groups := make(map[string]*playerRollup)
	for _, tx := range e.store.TransactionsBySystem(st.SystemID) {
		if !store.InRange(tx.Date, st.StartDate, st.EndDate) {
			continue
		}
		g, ok := groups[tx.PlayerID]
		if !ok {
			g = &playerRollup{playerID: tx.PlayerID}
			groups[tx.PlayerID] = g
		}
		g.txs = append(g.txs, tx)
	}

	// Resolve every rollup before the first mutation so a missing player
	// aborts with no partial state.
	players := make(map[string]*store.Player, len(groups))
	for playerID, g := range groups {
		p, ok := e.store.Player(playerID)
		if !ok {
			return store.NewNotFound("player", playerID)
		}
		players[playerID] = p

		store.SortTransactions(g.txs)
		g.last = g.txs[len(g.txs)-1]
		for _, tx := range g.txs {
			g.totalProfit += tx.Profit
		}
		g.makeup = g.last.CurrentMakeup
		g.bankReserve = g.last.BankReserve
	}

	// Deterministic application order: sort participants before applying.
	ordered := make([]*playerRollup, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].playerID < ordered[j].playerID })

	var totalProfit, totalMakeup, totalBalance money.Amount
	snapshots := make([]store.SettlementPlayer, 0, len(ordered))

	for _, g := range ordered {
		for _, tx := range g.txs {
			tx.SettlementID = st.ID
			tx.IsLocked = true
		}
		// Positive profit is treated as a withdrawal credit on the last
		// transaction only; a losing period carries no credit.
		g.last.PlayerWithdrawal += money.Max(g.totalProfit, 0)

		p := players[g.playerID]
		if g.totalProfit > 0 {
			p.Profit = 0
		}
		p.Makeup = g.makeup
		p.BankReserve = g.bankReserve

		snapshots = append(snapshots, store.SettlementPlayer{
			PlayerID: g.playerID,
			Profit:   g.totalProfit,
			Makeup:   g.makeup,
			Balance:  p.Balance,
		})
		totalProfit += g.totalProfit
		totalMakeup += g.makeup
		totalBalance += p.Balance
	}

	st.Players = snapshots
	st.TotalProfit = totalProfit
	st.TotalMakeup = totalMakeup
	st.TotalBalance = totalBalance
	st.Status = store.SettlementCompleted

	e.rec.RecordSettlement(st.SystemID, st.StartDate, st.EndDate, now)
	return nil
}

// Unlock clears the lock and settlementId of every transaction of the system
// whose date lies within [startDate, endDate], and reverts to pending every
// settlement of the system whose range is fully contained in the unlock
// range. Player aggregates are not recomputed: unlock is a structural
// reversal, not a financial rollback.
func (e *Engine) Unlock(systemID string, startDate, endDate time.Time) error {
	if _, ok := e.store.System(systemID); !ok {
		return store.NewNotFound("system", systemID)
	}

	for _, tx := range e.store.TransactionsBySystem(systemID) {
		if store.InRange(tx.Date, startDate, endDate) {
			tx.IsLocked = false
			tx.SettlementID = ""
		}
	}

	for _, st := range e.store.SettlementsBySystem(systemID) {
		if !st.StartDate.Before(startDate) && !st.EndDate.After(endDate) {
			st.Status = store.SettlementPending
		}
	}

	return nil
}

// rangesOverlap reports whether two inclusive date ranges intersect.
func rangesOverlap(s1, e1, s2, e2 time.Time) bool {
	return !e1.Before(s2) && !s1.After(e2)
}
