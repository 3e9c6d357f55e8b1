package core

import (
	"StakeLedger/internal/store"
)

// SnapshotState is the full serializable in-memory state. Every entity is a
// copy: the persistence worker reads snapshots concurrently with later
// mutations.
type SnapshotState struct {
	Systems      []*store.System
	Players      []*store.Player
	Transactions []*store.Transaction
	Settlements  []*store.Settlement
	Feed         []*store.Activity
	SeqWatermark int64
}

// CreateSnapshotState captures the current state under the shared lock.
func (c *Core) CreateSnapshotState() *SnapshotState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Core) snapshotLocked() *SnapshotState {
	snap := &SnapshotState{SeqWatermark: c.store.SeqWatermark()}

	for _, sys := range c.store.Systems() {
		cp := *sys
		snap.Systems = append(snap.Systems, &cp)
	}
	for _, p := range c.store.Players() {
		cp := *p
		snap.Players = append(snap.Players, &cp)
	}
	for _, tx := range c.store.Transactions() {
		cp := *tx
		snap.Transactions = append(snap.Transactions, &cp)
	}
	for _, st := range c.store.Settlements() {
		cp := cloneSettlement(st)
		snap.Settlements = append(snap.Settlements, &cp)
	}
	for _, a := range c.store.Feed() {
		cp := *a
		snap.Feed = append(snap.Feed, &cp)
	}
	return snap
}

// RestoreFromSnapshot loads a snapshot into the store. Called once at
// startup, before any concurrent access.
func (c *Core) RestoreFromSnapshot(snap *SnapshotState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, sys := range snap.Systems {
		cp := *sys
		c.store.PutSystem(&cp)
	}
	for _, p := range snap.Players {
		cp := *p
		c.store.PutPlayer(&cp)
	}
	maxSeq := snap.SeqWatermark
	for _, tx := range snap.Transactions {
		cp := *tx
		c.store.PutTransaction(&cp)
		if cp.Seq > maxSeq {
			maxSeq = cp.Seq
		}
	}
	for _, st := range snap.Settlements {
		cp := cloneSettlement(st)
		c.store.PutSettlement(&cp)
	}
	feed := make([]*store.Activity, 0, len(snap.Feed))
	for _, a := range snap.Feed {
		cp := *a
		feed = append(feed, &cp)
	}
	c.store.ReplaceFeed(feed)
	c.store.SetSeqWatermark(maxSeq)
	c.updateGaugesLocked()
}

func cloneSettlement(st *store.Settlement) store.Settlement {
	cp := *st
	if st.Players != nil {
		cp.Players = append([]store.SettlementPlayer(nil), st.Players...)
	}
	return cp
}
