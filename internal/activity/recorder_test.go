package activity

import (
	"StakeLedger/internal/money"
	"StakeLedger/internal/store"
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestFeedSortedDescendingByDate(t *testing.T) {
	st := store.New()
	rec := NewRecorder(st)
	p := &store.Player{ID: "p1", Name: "Alice", SystemID: "sys-1"}

	// Recorded out of chronological order on purpose.
	rec.RecordDeposit(p, money.FromUnits(100), day("2026-02-10"))
	rec.RecordWithdrawal(p, money.FromUnits(40), day("2026-02-20"))
	rec.RecordPlayerAdded(p, day("2026-02-01"))

	feed := rec.Feed()
	if len(feed) != 3 {
		t.Fatalf("feed length = %d, want 3", len(feed))
	}
	wantOrder := []store.ActivityType{store.ActivityWithdrawal, store.ActivityDeposit, store.ActivityPlayerAdded}
	for i, typ := range wantOrder {
		if feed[i].Type != typ {
			t.Errorf("feed[%d].Type = %q, want %q", i, feed[i].Type, typ)
		}
	}
}

func TestRecordDepositFields(t *testing.T) {
	st := store.New()
	rec := NewRecorder(st)
	p := &store.Player{ID: "p1", Name: "Alice", SystemID: "sys-1"}

	a := rec.RecordDeposit(p, money.FromUnits(250), day("2026-02-10"))

	if a.ID == "" {
		t.Error("activity id not assigned")
	}
	if a.PlayerID != "p1" || a.PlayerName != "Alice" || a.SystemID != "sys-1" {
		t.Errorf("player linkage = %q/%q/%q", a.PlayerID, a.PlayerName, a.SystemID)
	}
	if a.Amount != money.FromUnits(250) {
		t.Errorf("amount = %v, want 250.00", a.Amount)
	}
}

func TestRecordSettlementPeriodLabel(t *testing.T) {
	st := store.New()
	rec := NewRecorder(st)

	a := rec.RecordSettlement("sys-1", day("2026-01-01"), day("2026-01-07"), day("2026-01-08"))

	if a.Period != "2026-01-01 to 2026-01-07" {
		t.Errorf("period label = %q", a.Period)
	}
	if a.Type != store.ActivitySettlement {
		t.Errorf("type = %q, want settlement", a.Type)
	}
}
