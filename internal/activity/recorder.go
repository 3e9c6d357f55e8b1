// Package activity appends human-readable feed entries for ledger and
// settlement operations. Display-only: no invariant depends on the feed.
package activity

import (
	"StakeLedger/internal/money"
	"StakeLedger/internal/store"
	"fmt"
	"sort"
	"time"
)

type Recorder struct {
	store *store.Store
}

func NewRecorder(st *store.Store) *Recorder {
	return &Recorder{store: st}
}

// RecordDeposit appends a deposit entry for a transaction with reload > 0.
func (r *Recorder) RecordDeposit(p *store.Player, amount money.Amount, date time.Time) *store.Activity {
	return r.record(&store.Activity{
		Type:       store.ActivityDeposit,
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Amount:     amount,
		SystemID:   p.SystemID,
		Date:       date,
	})
}

// RecordWithdrawal appends a withdrawal entry for a transaction with
// withdrawal > 0.
func (r *Recorder) RecordWithdrawal(p *store.Player, amount money.Amount, date time.Time) *store.Activity {
	return r.record(&store.Activity{
		Type:       store.ActivityWithdrawal,
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Amount:     amount,
		SystemID:   p.SystemID,
		Date:       date,
	})
}

// RecordPlayerAdded appends a player_added entry.
func (r *Recorder) RecordPlayerAdded(p *store.Player, date time.Time) *store.Activity {
	return r.record(&store.Activity{
		Type:       store.ActivityPlayerAdded,
		PlayerID:   p.ID,
		PlayerName: p.Name,
		SystemID:   p.SystemID,
		Date:       date,
	})
}

// RecordSettlement appends a settlement entry with a human-readable period
// label. Emitted from both settlement creation and finalize.
func (r *Recorder) RecordSettlement(systemID string, start, end, date time.Time) *store.Activity {
	return r.record(&store.Activity{
		Type:     store.ActivitySettlement,
		SystemID: systemID,
		Period:   PeriodLabel(start, end),
		Date:     date,
	})
}

func (r *Recorder) record(a *store.Activity) *store.Activity {
	a.ID = r.store.NewID()
	r.store.PrependActivity(a)
	return a
}

// Feed returns the activity feed sorted descending by date. Appends may
// arrive out of chronological order; the read path re-sorts every time.
func (r *Recorder) Feed() []*store.Activity {
	feed := r.store.Feed()
	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].Date.After(feed[j].Date)
	})
	return feed
}

// PeriodLabel formats an inclusive settlement range for display.
func PeriodLabel(start, end time.Time) string {
	return fmt.Sprintf("%s to %s", start.Format("2006-01-02"), end.Format("2006-01-02"))
}
