package persistence

import (
	"StakeLedger/internal/core"
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

func TestEncodeDecodeRoundTrip(t *testing.T) {
	state := &core.SnapshotState{
		Systems: []*store.System{{
			ID:                "sys-1",
			Name:              "Main Stable",
			Type:              "mtt",
			StakingPercentage: 50,
			CreatedAt:         day("2026-01-01"),
			AdminID:           "admin-1",
			TotalBalance:      money.FromUnits(1500),
			PlayersCount:      2,
			Status:            store.SystemActive,
		}},
		Players: []*store.Player{{
			ID:          "pl-1",
			Name:        "Alice",
			Email:       "alice@example.com",
			SystemID:    "sys-1",
			Balance:     money.FromUnits(1200),
			Makeup:      money.FromUnits(300),
			Profit:      money.FromUnits(-50),
			BankReserve: money.FromUnits(100),
		}},
		Transactions: []*store.Transaction{{
			ID:             "tx-1",
			PlayerID:       "pl-1",
			SystemID:       "sys-1",
			Date:           day("2026-01-05"),
			Balance:        money.FromUnits(1200),
			Result:         money.FromUnits(-50),
			PreviousMakeup: money.FromUnits(250),
			CurrentMakeup:  money.FromUnits(300),
			Profit:         money.FromUnits(-50),
			Status:         store.TransactionPending,
			IsLocked:       true,
			SettlementID:   "st-1",
			Seq:            7,
		}},
		Settlements: []*store.Settlement{{
			ID:          "st-1",
			SystemID:    "sys-1",
			StartDate:   day("2026-01-01"),
			EndDate:     day("2026-01-07"),
			TotalProfit: money.FromUnits(-50),
			Players: []store.SettlementPlayer{{
				PlayerID: "pl-1",
				Profit:   money.FromUnits(-50),
				Makeup:   money.FromUnits(300),
				Balance:  money.FromUnits(1200),
			}},
			Status:    store.SettlementCompleted,
			CreatedAt: day("2026-01-08"),
		}},
		Feed: []*store.Activity{{
			ID:       "act-1",
			Type:     store.ActivitySettlement,
			SystemID: "sys-1",
			Period:   "2026-01-01 to 2026-01-07",
			Date:     day("2026-01-08"),
		}},
		SeqWatermark: 7,
	}

	raw, err := Encode(state, day("2026-02-01"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if got.SeqWatermark != 7 {
		t.Errorf("SeqWatermark = %d, want 7", got.SeqWatermark)
	}
	if len(got.Systems) != 1 || len(got.Players) != 1 || len(got.Transactions) != 1 || len(got.Settlements) != 1 || len(got.Feed) != 1 {
		t.Fatalf("collection sizes = %d/%d/%d/%d/%d, want 1 each",
			len(got.Systems), len(got.Players), len(got.Transactions), len(got.Settlements), len(got.Feed))
	}

	sys := got.Systems[0]
	if sys.TotalBalance != money.FromUnits(1500) || sys.Status != store.SystemActive {
		t.Errorf("system round-trip: balance=%v status=%q", sys.TotalBalance, sys.Status)
	}
	if !sys.CreatedAt.Equal(day("2026-01-01")) {
		t.Errorf("system CreatedAt = %v, want 2026-01-01", sys.CreatedAt)
	}

	tx := got.Transactions[0]
	if !tx.Date.Equal(day("2026-01-05")) {
		t.Errorf("transaction date = %v, want 2026-01-05", tx.Date)
	}
	if !tx.IsLocked || tx.SettlementID != "st-1" || tx.Seq != 7 {
		t.Errorf("transaction lock state lost: locked=%v settlement=%q seq=%d", tx.IsLocked, tx.SettlementID, tx.Seq)
	}
	if tx.CurrentMakeup != money.FromUnits(300) {
		t.Errorf("transaction makeup = %v, want 300.00", tx.CurrentMakeup)
	}

	st := got.Settlements[0]
	if st.Status != store.SettlementCompleted || len(st.Players) != 1 {
		t.Errorf("settlement round-trip: status=%q players=%d", st.Status, len(st.Players))
	}
	if st.Players[0].Profit != money.FromUnits(-50) {
		t.Errorf("settlement player profit = %v, want -50.00", st.Players[0].Profit)
	}

	if got.Feed[0].Type != store.ActivitySettlement || got.Feed[0].Period != "2026-01-01 to 2026-01-07" {
		t.Errorf("activity round-trip: type=%q period=%q", got.Feed[0].Type, got.Feed[0].Period)
	}
}

func TestDecodeMissingCollections(t *testing.T) {
	raw := []byte(`{"schema_version":1,"seq_watermark":3,"systems":null}`)

	state, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(state.Systems) != 0 || len(state.Players) != 0 || len(state.Transactions) != 0 {
		t.Errorf("null/missing collections should decode empty, got %d/%d/%d",
			len(state.Systems), len(state.Players), len(state.Transactions))
	}
	if state.SeqWatermark != 3 {
		t.Errorf("SeqWatermark = %d, want 3", state.SeqWatermark)
	}
}

func TestDecodeBareDates(t *testing.T) {
	raw := []byte(`{
		"schema_version": 1,
		"transactions": [{
			"id": "tx-1", "player_id": "pl-1", "system_id": "sys-1",
			"date": "2026-03-15", "status": "pending", "seq": 1
		}]
	}`)

	state, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !state.Transactions[0].Date.Equal(day("2026-03-15")) {
		t.Errorf("date = %v, want 2026-03-15", state.Transactions[0].Date)
	}
}

func TestDecodeRejectsNewerSchema(t *testing.T) {
	raw := []byte(`{"schema_version":99}`)
	if _, err := Decode(raw); err == nil {
		t.Fatal("expected error for schema version newer than supported")
	}
}

func TestDecodeRejectsInvalidDate(t *testing.T) {
	raw := []byte(`{
		"schema_version": 1,
		"systems": [{"id": "sys-1", "created_at": "not-a-date"}]
	}`)
	if _, err := Decode(raw); err == nil {
		t.Fatal("expected error for malformed date")
	}
}
