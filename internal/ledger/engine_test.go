package ledger

import (
	"StakeLedger/internal/activity"
	"StakeLedger/internal/money"
	"StakeLedger/internal/store"
	"errors"
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

type fixture struct {
	store  *store.Store
	engine *Engine
	system *store.System
	player *store.Player
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.New()
	e := NewEngine(st, activity.NewRecorder(st))

	sys, err := e.CreateSystem(SystemInput{
		Name: "Main Stable", Type: "cash", StakingPercentage: 50,
		AdminID: "admin-1", CreatedAt: day("2026-01-01"),
	})
	if err != nil {
		t.Fatalf("CreateSystem: %v", err)
	}
	p, err := e.AddPlayer(PlayerInput{
		Name: "Alice", Email: "alice@example.com",
		SystemID: sys.ID, Date: day("2026-01-01"),
	})
	if err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	return &fixture{store: st, engine: e, system: sys, player: p}
}

func TestCreateSystemDefaults(t *testing.T) {
	f := newFixture(t)

	if f.system.Status != store.SystemActive {
		t.Errorf("status = %q, want active", f.system.Status)
	}
	if f.system.TotalBalance != 0 {
		t.Errorf("total balance = %v, want 0", f.system.TotalBalance)
	}
	if f.system.PlayersCount != 1 {
		t.Errorf("players count = %d, want 1 after one AddPlayer", f.system.PlayersCount)
	}
}

func TestAddPlayerUnknownSystem(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.AddPlayer(PlayerInput{Name: "Bob", SystemID: "missing", Date: day("2026-01-02")})

	var ref *store.ReferentialError
	if !errors.As(err, &ref) {
		t.Fatalf("err = %v, want ReferentialError", err)
	}
	if f.system.PlayersCount != 1 {
		t.Errorf("players count changed on rejected add: %d", f.system.PlayersCount)
	}
}

func TestAddPlayerRecordsFeedEntry(t *testing.T) {
	f := newFixture(t)
	feed := f.store.Feed()
	if len(feed) != 1 || feed[0].Type != store.ActivityPlayerAdded {
		t.Fatalf("feed = %v, want one player_added entry", feed)
	}
	if feed[0].PlayerID != f.player.ID {
		t.Errorf("feed entry player = %q, want %q", feed[0].PlayerID, f.player.ID)
	}
}

func TestAddTransactionAppliesSnapshots(t *testing.T) {
	f := newFixture(t)

	tx, err := f.engine.AddTransaction(TransactionInput{
		PlayerID: f.player.ID, SystemID: f.system.ID, Date: day("2026-01-05"),
		Balance:        money.FromUnits(1200),
		Reload:         money.FromUnits(200),
		Result:         money.FromUnits(150),
		PreviousMakeup: money.FromUnits(1000),
		CurrentMakeup:  money.FromUnits(800),
		Profit:         money.FromUnits(200),
		BankReserve:    money.FromUnits(50),
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	if tx.Status != store.TransactionPending {
		t.Errorf("status = %q, want pending", tx.Status)
	}
	if tx.PlayerWithdrawal != 0 {
		t.Errorf("first transaction carried %v, want 0", tx.PlayerWithdrawal)
	}
	if f.player.Balance != money.FromUnits(1200) {
		t.Errorf("player balance = %v, want 1200.00", f.player.Balance)
	}
	if f.player.Makeup != money.FromUnits(800) {
		t.Errorf("player makeup = %v, want currentMakeup 800.00", f.player.Makeup)
	}
	if f.player.Profit != money.FromUnits(200) {
		t.Errorf("player profit = %v, want 200.00", f.player.Profit)
	}
	if f.player.BankReserve != money.FromUnits(50) {
		t.Errorf("player bank reserve = %v, want 50.00", f.player.BankReserve)
	}
	if f.system.TotalBalance != money.FromUnits(150) {
		t.Errorf("system total = %v, want result 150.00", f.system.TotalBalance)
	}
}

func TestAddTransactionCarriesPlayerWithdrawal(t *testing.T) {
	f := newFixture(t)

	first, err := f.engine.AddTransaction(TransactionInput{
		PlayerID: f.player.ID, SystemID: f.system.ID, Date: day("2026-01-05"),
		Balance: money.FromUnits(1000),
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	// Simulate a finalized period having credited the running total.
	first.PlayerWithdrawal = money.FromUnits(300)

	second, err := f.engine.AddTransaction(TransactionInput{
		PlayerID: f.player.ID, SystemID: f.system.ID, Date: day("2026-01-09"),
		Balance: money.FromUnits(1100),
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if second.PlayerWithdrawal != money.FromUnits(300) {
		t.Errorf("carried total = %v, want 300.00", second.PlayerWithdrawal)
	}
}

func TestAddTransactionCarriesFromSameDateLaterInsert(t *testing.T) {
	f := newFixture(t)
	d := day("2026-01-05")

	a, _ := f.engine.AddTransaction(TransactionInput{
		PlayerID: f.player.ID, SystemID: f.system.ID, Date: d,
	})
	b, _ := f.engine.AddTransaction(TransactionInput{
		PlayerID: f.player.ID, SystemID: f.system.ID, Date: d,
	})
	a.PlayerWithdrawal = money.FromUnits(10)
	b.PlayerWithdrawal = money.FromUnits(20)

	// Same date: the later-inserted transaction is the latest, so its total
	// is the one carried forward.
	third, err := f.engine.AddTransaction(TransactionInput{
		PlayerID: f.player.ID, SystemID: f.system.ID, Date: d,
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if third.PlayerWithdrawal != money.FromUnits(20) {
		t.Errorf("carried total = %v, want 20.00 from later insert", third.PlayerWithdrawal)
	}
}

func TestAddTransactionUnknownReferences(t *testing.T) {
	f := newFixture(t)

	var ref *store.ReferentialError
	_, err := f.engine.AddTransaction(TransactionInput{PlayerID: "missing", SystemID: f.system.ID, Date: day("2026-01-05")})
	if !errors.As(err, &ref) {
		t.Errorf("unknown player err = %v, want ReferentialError", err)
	}
	_, err = f.engine.AddTransaction(TransactionInput{PlayerID: f.player.ID, SystemID: "missing", Date: day("2026-01-05")})
	if !errors.As(err, &ref) {
		t.Errorf("unknown system err = %v, want ReferentialError", err)
	}
	if f.system.TotalBalance != 0 {
		t.Errorf("rejected adds mutated system total: %v", f.system.TotalBalance)
	}
}

func TestDeleteTransactionReversesAdd(t *testing.T) {
	f := newFixture(t)

	before := *f.player
	beforeTotal := f.system.TotalBalance

	tx, err := f.engine.AddTransaction(TransactionInput{
		PlayerID: f.player.ID, SystemID: f.system.ID, Date: day("2026-01-05"),
		Balance:        money.FromUnits(900),
		Result:         money.FromUnits(-100),
		PreviousMakeup: money.FromUnits(0),
		CurrentMakeup:  money.FromUnits(100),
		Profit:         money.FromUnits(-100),
		BankReserve:    money.FromUnits(25),
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	if err := f.engine.DeleteTransaction(tx.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}

	if f.player.Balance != before.Balance || f.player.Makeup != before.Makeup ||
		f.player.Profit != before.Profit || f.player.BankReserve != before.BankReserve {
		t.Errorf("player state not restored: %+v, want %+v", *f.player, before)
	}
	if f.system.TotalBalance != beforeTotal {
		t.Errorf("system total = %v, want %v", f.system.TotalBalance, beforeTotal)
	}
	if _, ok := f.store.Transaction(tx.ID); ok {
		t.Error("transaction still present after delete")
	}
}

func TestDeleteTransactionLocked(t *testing.T) {
	f := newFixture(t)

	tx, _ := f.engine.AddTransaction(TransactionInput{
		PlayerID: f.player.ID, SystemID: f.system.ID, Date: day("2026-01-05"),
	})
	tx.IsLocked = true

	if err := f.engine.DeleteTransaction(tx.ID); !errors.Is(err, store.ErrTransactionLocked) {
		t.Errorf("err = %v, want ErrTransactionLocked", err)
	}
	if _, ok := f.store.Transaction(tx.ID); !ok {
		t.Error("locked transaction was removed")
	}
}

func TestDeleteTransactionNotFound(t *testing.T) {
	f := newFixture(t)
	err := f.engine.DeleteTransaction("missing")
	if !store.IsNotFound(err) {
		t.Errorf("err = %v, want not-found", err)
	}
}

func TestIsTransactionLockedBoundaries(t *testing.T) {
	f := newFixture(t)
	f.store.PutSettlement(&store.Settlement{
		ID: "st-1", SystemID: f.system.ID,
		StartDate: day("2026-01-01"), EndDate: day("2026-01-07"),
		Status: store.SettlementCompleted,
	})

	cases := []struct {
		date string
		want bool
	}{
		{"2025-12-31", false},
		{"2026-01-01", true},
		{"2026-01-07", true},
		{"2026-01-08", false},
	}
	for _, c := range cases {
		if got := f.engine.IsTransactionLocked(f.system.ID, day(c.date)); got != c.want {
			t.Errorf("IsTransactionLocked(%s) = %v, want %v", c.date, got, c.want)
		}
	}
}

func TestIsTransactionLockedIgnoresPending(t *testing.T) {
	f := newFixture(t)
	f.store.PutSettlement(&store.Settlement{
		ID: "st-1", SystemID: f.system.ID,
		StartDate: day("2026-01-01"), EndDate: day("2026-01-07"),
		Status: store.SettlementPending,
	})
	if f.engine.IsTransactionLocked(f.system.ID, day("2026-01-03")) {
		t.Error("pending settlement must not lock transactions")
	}
}

func TestActiveSettlementPeriod(t *testing.T) {
	f := newFixture(t)

	if _, ok := f.engine.ActiveSettlementPeriod(f.system.ID); ok {
		t.Fatal("no settlement yet, expected none")
	}

	f.store.PutSettlement(&store.Settlement{
		ID: "st-1", SystemID: f.system.ID,
		StartDate: day("2026-01-01"), EndDate: day("2026-01-07"),
		Status: store.SettlementPending,
	})

	period, ok := f.engine.ActiveSettlementPeriod(f.system.ID)
	if !ok {
		t.Fatal("expected a pending period")
	}
	if !period.Start.Equal(day("2026-01-01")) || !period.End.Equal(day("2026-01-07")) {
		t.Errorf("period = %v..%v", period.Start, period.End)
	}
}

func TestActiveSettlementPeriodEarliestOfSeveralPending(t *testing.T) {
	f := newFixture(t)

	f.store.PutSettlement(&store.Settlement{
		ID: "st-feb", SystemID: f.system.ID,
		StartDate: day("2026-02-01"), EndDate: day("2026-02-07"),
		Status: store.SettlementPending,
	})
	f.store.PutSettlement(&store.Settlement{
		ID: "st-jan", SystemID: f.system.ID,
		StartDate: day("2026-01-01"), EndDate: day("2026-01-07"),
		Status: store.SettlementPending,
	})
	f.store.PutSettlement(&store.Settlement{
		ID: "st-done", SystemID: f.system.ID,
		StartDate: day("2025-12-01"), EndDate: day("2025-12-07"),
		Status: store.SettlementCompleted,
	})

	period, ok := f.engine.ActiveSettlementPeriod(f.system.ID)
	if !ok {
		t.Fatal("expected a pending period")
	}
	if !period.Start.Equal(day("2026-01-01")) || !period.End.Equal(day("2026-01-07")) {
		t.Errorf("period = %v..%v, want the earliest-starting pending range", period.Start, period.End)
	}
}
