package store

import (
	"sort"

	"github.com/google/uuid"
)

// Store holds the four entity collections and the activity feed. Pure
// containment: lookup by id and by foreign key, no business logic. Callers
// are responsible for ordering query results; the engines serialize access.
type Store struct {
	systems      map[string]*System
	players      map[string]*Player
	transactions map[string]*Transaction
	settlements  map[string]*Settlement
	feed         []*Activity
	nextSeq      int64
}

func New() *Store {
	return &Store{
		systems:      make(map[string]*System),
		players:      make(map[string]*Player),
		transactions: make(map[string]*Transaction),
		settlements:  make(map[string]*Settlement),
	}
}

// NewID generates an opaque, collision-free identifier.
func (s *Store) NewID() string {
	return uuid.New().String()
}

// NextSeq returns the next insertion sequence. Sequences are assigned to
// transactions at insert time and break same-date ties deterministically.
func (s *Store) NextSeq() int64 {
	s.nextSeq++
	return s.nextSeq
}

// SeqWatermark returns the highest assigned insertion sequence.
func (s *Store) SeqWatermark() int64 {
	return s.nextSeq
}

// SetSeqWatermark restores the insertion sequence counter from a snapshot.
func (s *Store) SetSeqWatermark(seq int64) {
	s.nextSeq = seq
}

// --- Systems ---

func (s *Store) PutSystem(sys *System) {
	s.systems[sys.ID] = sys
}

func (s *Store) System(id string) (*System, bool) {
	sys, ok := s.systems[id]
	return sys, ok
}

func (s *Store) Systems() []*System {
	out := make([]*System, 0, len(s.systems))
	for _, sys := range s.systems {
		out = append(out, sys)
	}
	return out
}

// --- Players ---

func (s *Store) PutPlayer(p *Player) {
	s.players[p.ID] = p
}

func (s *Store) Player(id string) (*Player, bool) {
	p, ok := s.players[id]
	return p, ok
}

func (s *Store) Players() []*Player {
	out := make([]*Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p)
	}
	return out
}

func (s *Store) PlayersBySystem(systemID string) []*Player {
	var out []*Player
	for _, p := range s.players {
		if p.SystemID == systemID {
			out = append(out, p)
		}
	}
	return out
}

// --- Transactions ---

func (s *Store) PutTransaction(tx *Transaction) {
	s.transactions[tx.ID] = tx
}

func (s *Store) Transaction(id string) (*Transaction, bool) {
	tx, ok := s.transactions[id]
	return tx, ok
}

func (s *Store) RemoveTransaction(id string) {
	delete(s.transactions, id)
}

func (s *Store) Transactions() []*Transaction {
	out := make([]*Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		out = append(out, tx)
	}
	return out
}

func (s *Store) TransactionsByPlayer(playerID string) []*Transaction {
	var out []*Transaction
	for _, tx := range s.transactions {
		if tx.PlayerID == playerID {
			out = append(out, tx)
		}
	}
	return out
}

func (s *Store) TransactionsBySystem(systemID string) []*Transaction {
	var out []*Transaction
	for _, tx := range s.transactions {
		if tx.SystemID == systemID {
			out = append(out, tx)
		}
	}
	return out
}

// --- Settlements ---

func (s *Store) PutSettlement(st *Settlement) {
	s.settlements[st.ID] = st
}

func (s *Store) Settlement(id string) (*Settlement, bool) {
	st, ok := s.settlements[id]
	return st, ok
}

func (s *Store) Settlements() []*Settlement {
	out := make([]*Settlement, 0, len(s.settlements))
	for _, st := range s.settlements {
		out = append(out, st)
	}
	return out
}

func (s *Store) SettlementsBySystem(systemID string) []*Settlement {
	var out []*Settlement
	for _, st := range s.settlements {
		if st.SystemID == systemID {
			out = append(out, st)
		}
	}
	return out
}

// --- Activity feed ---

// PrependActivity adds an entry to the front of the feed (most-recent-first
// write path). Read paths sort by date regardless of insertion order.
func (s *Store) PrependActivity(a *Activity) {
	s.feed = append([]*Activity{a}, s.feed...)
}

// Feed returns the raw feed slice in insertion order (front = most recent
// append). Callers wanting chronological order use the activity recorder.
func (s *Store) Feed() []*Activity {
	out := make([]*Activity, len(s.feed))
	copy(out, s.feed)
	return out
}

// ReplaceFeed swaps the whole feed, used by snapshot restore.
func (s *Store) ReplaceFeed(feed []*Activity) {
	s.feed = feed
}

// SortTransactions orders transactions ascending by date; same-date ties are
// broken by insertion sequence, so the later-inserted transaction sorts last.
// This is the total order used for playerWithdrawal and makeup carry-forward.
func SortTransactions(txs []*Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Seq < txs[j].Seq
		}
		return txs[i].Date.Before(txs[j].Date)
	})
}

// Counts returns collection sizes, used for logging and metrics.
func (s *Store) Counts() (systems, players, transactions, settlements, feed int) {
	return len(s.systems), len(s.players), len(s.transactions), len(s.settlements), len(s.feed)
}
