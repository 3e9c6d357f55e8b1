// Package core is the single-writer facade over the entity store and the
// ledger/settlement engines. Every mutating operation executes as one atomic
// unit behind an exclusive lock; read-only queries run concurrently under a
// shared lock and always observe a fully-applied state.
package core

import (
	"StakeLedger/internal/activity"
	"StakeLedger/internal/ledger"
	"StakeLedger/internal/observability"
	"StakeLedger/internal/settlement"
	"StakeLedger/internal/store"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Core owns the store and engines and is the only public mutation surface.
type Core struct {
	mu     sync.RWMutex
	store  *store.Store
	rec    *activity.Recorder
	ledger *ledger.Engine
	settle *settlement.Engine

	log     zerolog.Logger
	metrics *observability.Metrics

	// persistChan receives a full state copy after every successful mutation
	// (blocking send: the core stalls rather than lose a write). publishChan
	// receives new activity entries (non-blocking send, drop on full).
	persistChan chan<- *SnapshotState
	publishChan chan<- *store.Activity
}

// Options configures a Core. Metrics and both channels are optional.
type Options struct {
	Logger      zerolog.Logger
	Metrics     *observability.Metrics
	PersistChan chan<- *SnapshotState
	PublishChan chan<- *store.Activity
}

func New(opts Options) *Core {
	st := store.New()
	rec := activity.NewRecorder(st)
	return &Core{
		store:       st,
		rec:         rec,
		ledger:      ledger.NewEngine(st, rec),
		settle:      settlement.NewEngine(st, rec),
		log:         opts.Logger,
		metrics:     opts.Metrics,
		persistChan: opts.PersistChan,
		publishChan: opts.PublishChan,
	}
}

// --- Mutations ---

// CreateSystem registers a new backing system and returns its id.
func (c *Core) CreateSystem(in ledger.SystemInput) (string, error) {
	var id string
	err := c.mutate("create_system", func() error {
		sys, err := c.ledger.CreateSystem(in)
		if err != nil {
			return err
		}
		id = sys.ID
		c.log.Info().Str("system_id", sys.ID).Str("name", sys.Name).Msg("system created")
		return nil
	})
	return id, err
}

// AddPlayer creates a player under a system and returns its id.
func (c *Core) AddPlayer(in ledger.PlayerInput) (string, error) {
	var id string
	err := c.mutate("add_player", func() error {
		p, err := c.ledger.AddPlayer(in)
		if err != nil {
			return err
		}
		id = p.ID
		c.log.Info().Str("player_id", p.ID).Str("system_id", p.SystemID).Msg("player added")
		return nil
	})
	return id, err
}

// AddTransaction records a transaction and returns its id.
func (c *Core) AddTransaction(in ledger.TransactionInput) (string, error) {
	var id string
	err := c.mutate("add_transaction", func() error {
		tx, err := c.ledger.AddTransaction(in)
		if err != nil {
			return err
		}
		id = tx.ID
		c.log.Debug().
			Str("transaction_id", tx.ID).
			Str("player_id", tx.PlayerID).
			Str("result", tx.Result.String()).
			Msg("transaction added")
		return nil
	})
	return id, err
}

// DeleteTransaction removes an unlocked transaction, reversing its deltas.
func (c *Core) DeleteTransaction(id string) error {
	return c.mutate("delete_transaction", func() error {
		if err := c.ledger.DeleteTransaction(id); err != nil {
			return err
		}
		c.log.Debug().Str("transaction_id", id).Msg("transaction deleted")
		return nil
	})
}

// CreateSettlement opens a pending settlement period and returns its id.
func (c *Core) CreateSettlement(in settlement.Input) (string, error) {
	var id string
	err := c.mutate("create_settlement", func() error {
		st, err := c.settle.Create(in)
		if err != nil {
			return err
		}
		id = st.ID
		if c.metrics != nil {
			c.metrics.SettlementsCreated.Inc()
		}
		c.log.Info().
			Str("settlement_id", st.ID).
			Str("system_id", st.SystemID).
			Str("period", activity.PeriodLabel(st.StartDate, st.EndDate)).
			Msg("settlement created")
		return nil
	})
	return id, err
}

// FinalizeSettlement locks the period's transactions and applies per-player
// rollups. now stamps the settlement feed entry.
func (c *Core) FinalizeSettlement(id string, now time.Time) error {
	return c.mutate("finalize_settlement", func() error {
		if err := c.settle.Finalize(id, now); err != nil {
			return err
		}
		if c.metrics != nil {
			c.metrics.SettlementsFinalized.Inc()
		}
		c.log.Info().Str("settlement_id", id).Msg("settlement finalized")
		return nil
	})
}

// UnlockSettlementPeriod clears locks inside the range and reverts fully
// contained settlements to pending.
func (c *Core) UnlockSettlementPeriod(systemID string, startDate, endDate time.Time) error {
	return c.mutate("unlock_period", func() error {
		if err := c.settle.Unlock(systemID, startDate, endDate); err != nil {
			return err
		}
		if c.metrics != nil {
			c.metrics.SettlementsUnlocked.Inc()
		}
		c.log.Info().
			Str("system_id", systemID).
			Str("period", activity.PeriodLabel(startDate, endDate)).
			Msg("settlement period unlocked")
		return nil
	})
}

// mutate runs fn under the exclusive lock, records metrics, and on success
// emits a state snapshot (blocking) and the new feed entries (non-blocking).
// Emission happens while the lock is held so snapshots reach the persistence
// worker in mutation order.
func (c *Core) mutate(op string, fn func() error) error {
	start := time.Now()

	c.mu.Lock()
	_, _, _, _, feedBefore := c.store.Counts()

	err := fn()

	var snap *SnapshotState
	var entries []*store.Activity
	if err == nil {
		snap = c.snapshotLocked()
		feed := c.store.Feed()
		_, _, _, _, feedAfter := c.store.Counts()
		// New entries are prepended, so they occupy the front of the feed.
		entries = feed[:feedAfter-feedBefore]
		c.updateGaugesLocked()
	}
	if err == nil && c.persistChan != nil {
		c.persistChan <- snap
	}
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.OpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		if err != nil {
			c.metrics.OpsRejected.WithLabelValues(op, rejectionReason(err)).Inc()
		} else {
			c.metrics.OpsApplied.WithLabelValues(op).Inc()
		}
	}
	if err != nil {
		c.log.Warn().Err(err).Str("op", op).Msg("operation rejected")
		return err
	}

	// entries is newest-first (prepend order); publish oldest-first so
	// subscribers see the recording order.
	for i := len(entries) - 1; i >= 0; i-- {
		c.publishEntry(entries[i])
	}
	return nil
}

func (c *Core) publishEntry(entry *store.Activity) {
	if c.publishChan == nil {
		return
	}
	cp := *entry
	select {
	case c.publishChan <- &cp:
		if c.metrics != nil {
			c.metrics.PublishSent.Inc()
		}
	default:
		// Feed consumers can re-read the query API if they fall behind.
		if c.metrics != nil {
			c.metrics.PublishDrops.Inc()
		}
	}
}

func (c *Core) updateGaugesLocked() {
	if c.metrics == nil {
		return
	}
	systems, players, transactions, settlements, feed := c.store.Counts()
	c.metrics.StoreEntities.WithLabelValues("systems").Set(float64(systems))
	c.metrics.StoreEntities.WithLabelValues("players").Set(float64(players))
	c.metrics.StoreEntities.WithLabelValues("transactions").Set(float64(transactions))
	c.metrics.StoreEntities.WithLabelValues("settlements").Set(float64(settlements))
	c.metrics.StoreEntities.WithLabelValues("activity").Set(float64(feed))

	locked := 0
	for _, tx := range c.store.Transactions() {
		if tx.IsLocked {
			locked++
		}
	}
	c.metrics.TransactionsLocked.Set(float64(locked))
}

func rejectionReason(err error) string {
	var nf *store.NotFoundError
	var ref *store.ReferentialError
	switch {
	case errors.As(err, &nf):
		return "not_found"
	case errors.As(err, &ref):
		return "referential_violation"
	case errors.Is(err, store.ErrTransactionLocked):
		return "locked"
	case errors.Is(err, store.ErrInvalidRange):
		return "invalid_range"
	default:
		return "internal"
	}
}

// --- Reads ---

// System returns a copy of the system, if present.
func (c *Core) System(id string) (store.System, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sys, ok := c.store.System(id)
	if !ok {
		return store.System{}, false
	}
	return *sys, true
}

// Player returns a copy of the player, if present.
func (c *Core) Player(id string) (store.Player, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.store.Player(id)
	if !ok {
		return store.Player{}, false
	}
	return *p, true
}

// Transaction returns a copy of the transaction, if present.
func (c *Core) Transaction(id string) (store.Transaction, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tx, ok := c.store.Transaction(id)
	if !ok {
		return store.Transaction{}, false
	}
	return *tx, true
}

// Settlement returns a copy of the settlement, if present.
func (c *Core) Settlement(id string) (store.Settlement, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.store.Settlement(id)
	if !ok {
		return store.Settlement{}, false
	}
	return cloneSettlement(st), true
}

// PlayersForSystem returns copies of a system's players.
func (c *Core) PlayersForSystem(systemID string) []store.Player {
	c.mu.RLock()
	defer c.mu.RUnlock()
	players := c.store.PlayersBySystem(systemID)
	out := make([]store.Player, 0, len(players))
	for _, p := range players {
		out = append(out, *p)
	}
	return out
}

// TransactionsForPlayer returns copies of a player's transactions in
// ascending date order.
func (c *Core) TransactionsForPlayer(playerID string) []store.Transaction {
	c.mu.RLock()
	defer c.mu.RUnlock()
	txs := c.store.TransactionsByPlayer(playerID)
	store.SortTransactions(txs)
	out := make([]store.Transaction, 0, len(txs))
	for _, tx := range txs {
		out = append(out, *tx)
	}
	return out
}

// TransactionsForSystem returns copies of a system's transactions in
// ascending date order.
func (c *Core) TransactionsForSystem(systemID string) []store.Transaction {
	c.mu.RLock()
	defer c.mu.RUnlock()
	txs := c.store.TransactionsBySystem(systemID)
	store.SortTransactions(txs)
	out := make([]store.Transaction, 0, len(txs))
	for _, tx := range txs {
		out = append(out, *tx)
	}
	return out
}

// SettlementsForSystem returns copies of a system's settlements, newest
// creation first.
func (c *Core) SettlementsForSystem(systemID string) []store.Settlement {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sts := c.store.SettlementsBySystem(systemID)
	out := make([]store.Settlement, 0, len(sts))
	for _, st := range sts {
		out = append(out, cloneSettlement(st))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// ActivityFeed returns the feed sorted descending by date.
func (c *Core) ActivityFeed() []store.Activity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	feed := c.rec.Feed()
	out := make([]store.Activity, 0, len(feed))
	for _, a := range feed {
		out = append(out, *a)
	}
	return out
}

// SeqWatermark returns the highest assigned insertion sequence, used as a
// freshness marker on query responses.
func (c *Core) SeqWatermark() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store.SeqWatermark()
}

// IsTransactionLocked reports whether date is covered by a completed
// settlement of the system.
func (c *Core) IsTransactionLocked(systemID string, date time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ledger.IsTransactionLocked(systemID, date)
}

// ActiveSettlementPeriod returns the system's pending settlement range.
func (c *Core) ActiveSettlementPeriod(systemID string) (ledger.Period, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ledger.ActiveSettlementPeriod(systemID)
}
