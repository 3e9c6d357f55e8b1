package settlement

import (
	"StakeLedger/internal/activity"
	"StakeLedger/internal/ledger"
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
	ledger *ledger.Engine
	settle *Engine
	system *store.System
	player *store.Player
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.New()
	rec := activity.NewRecorder(st)
	le := ledger.NewEngine(st, rec)
	se := NewEngine(st, rec)

	sys, err := le.CreateSystem(ledger.SystemInput{
		Name: "Main Stable", AdminID: "admin-1", CreatedAt: day("2026-01-01"),
	})
	if err != nil {
		t.Fatalf("CreateSystem: %v", err)
	}
	p, err := le.AddPlayer(ledger.PlayerInput{
		Name: "Alice", SystemID: sys.ID, Date: day("2026-01-01"),
	})
	if err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	return &fixture{store: st, ledger: le, settle: se, system: sys, player: p}
}

func (f *fixture) addTx(t *testing.T, date string, in ledger.TransactionInput) *store.Transaction {
	t.Helper()
	in.PlayerID = f.player.ID
	in.SystemID = f.system.ID
	in.Date = day(date)
	tx, err := f.ledger.AddTransaction(in)
	if err != nil {
		t.Fatalf("AddTransaction(%s): %v", date, err)
	}
	return tx
}

func (f *fixture) createSettlement(t *testing.T, start, end string) *store.Settlement {
	t.Helper()
	st, err := f.settle.Create(Input{
		SystemID: f.system.ID, StartDate: day(start), EndDate: day(end),
		CreatedAt: day(end),
	})
	if err != nil {
		t.Fatalf("Create(%s..%s): %v", start, end, err)
	}
	return st
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)

	var ref *store.ReferentialError
	_, err := f.settle.Create(Input{SystemID: "missing", StartDate: day("2026-01-01"), EndDate: day("2026-01-07")})
	if !errors.As(err, &ref) {
		t.Errorf("unknown system err = %v, want ReferentialError", err)
	}

	_, err = f.settle.Create(Input{SystemID: f.system.ID, StartDate: day("2026-01-07"), EndDate: day("2026-01-01")})
	if !errors.Is(err, store.ErrInvalidRange) {
		t.Errorf("inverted range err = %v, want ErrInvalidRange", err)
	}
}

func TestCreateRejectsOverlappingPending(t *testing.T) {
	f := newFixture(t)
	f.createSettlement(t, "2026-01-01", "2026-01-07")

	_, err := f.settle.Create(Input{
		SystemID: f.system.ID, StartDate: day("2026-01-05"), EndDate: day("2026-01-12"),
	})
	if !errors.Is(err, store.ErrInvalidRange) {
		t.Errorf("overlapping pending err = %v, want ErrInvalidRange", err)
	}

	// A disjoint range is fine.
	if _, err := f.settle.Create(Input{
		SystemID: f.system.ID, StartDate: day("2026-01-08"), EndDate: day("2026-01-14"),
	}); err != nil {
		t.Errorf("disjoint range rejected: %v", err)
	}
}

func TestCreateAllowsOverlapWithCompleted(t *testing.T) {
	f := newFixture(t)
	st := f.createSettlement(t, "2026-01-01", "2026-01-07")
	if err := f.settle.Finalize(st.ID, day("2026-01-08")); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if _, err := f.settle.Create(Input{
		SystemID: f.system.ID, StartDate: day("2026-01-05"), EndDate: day("2026-01-12"),
	}); err != nil {
		t.Errorf("overlap with completed settlement rejected: %v", err)
	}
}

func TestFinalizeWinningPeriod(t *testing.T) {
	f := newFixture(t)

	f.addTx(t, "2026-01-02", ledger.TransactionInput{
		Balance:        money.FromUnits(1100),
		Result:         money.FromUnits(100),
		PreviousMakeup: money.FromUnits(1000),
		CurrentMakeup:  money.FromUnits(900),
		Profit:         money.FromUnits(100),
		BankReserve:    money.FromUnits(40),
	})
	last := f.addTx(t, "2026-01-05", ledger.TransactionInput{
		Balance:        money.FromUnits(1200),
		Result:         money.FromUnits(100),
		PreviousMakeup: money.FromUnits(900),
		CurrentMakeup:  money.FromUnits(800),
		Profit:         money.FromUnits(100),
		BankReserve:    money.FromUnits(60),
	})
	outside := f.addTx(t, "2026-01-20", ledger.TransactionInput{
		Balance: money.FromUnits(1200),
	})

	st := f.createSettlement(t, "2026-01-01", "2026-01-07")
	if err := f.settle.Finalize(st.ID, day("2026-01-08")); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	// Positive period profit becomes a withdrawal credit on the last in-range
	// transaction only.
	if last.PlayerWithdrawal != money.FromUnits(200) {
		t.Errorf("last.PlayerWithdrawal = %v, want 200.00", last.PlayerWithdrawal)
	}
	if !last.IsLocked || last.SettlementID != st.ID {
		t.Errorf("last tx not locked to settlement: locked=%v id=%q", last.IsLocked, last.SettlementID)
	}
	if outside.IsLocked {
		t.Error("out-of-range transaction was locked")
	}

	if f.player.Profit != 0 {
		t.Errorf("player profit = %v, want 0 after winning settlement", f.player.Profit)
	}
	if f.player.Makeup != money.FromUnits(800) {
		t.Errorf("player makeup = %v, want last currentMakeup 800.00", f.player.Makeup)
	}
	if f.player.BankReserve != money.FromUnits(60) {
		t.Errorf("player bank reserve = %v, want 60.00", f.player.BankReserve)
	}

	if st.Status != store.SettlementCompleted {
		t.Errorf("status = %q, want completed", st.Status)
	}
	if st.TotalProfit != money.FromUnits(200) {
		t.Errorf("total profit = %v, want 200.00", st.TotalProfit)
	}
	if len(st.Players) != 1 || st.Players[0].Profit != money.FromUnits(200) {
		t.Errorf("player snapshots = %+v", st.Players)
	}
}

func TestFinalizeLosingPeriod(t *testing.T) {
	f := newFixture(t)

	last := f.addTx(t, "2026-01-03", ledger.TransactionInput{
		Balance:        money.FromUnits(850),
		Result:         money.FromUnits(-150),
		PreviousMakeup: money.FromUnits(500),
		CurrentMakeup:  money.FromUnits(650),
		Profit:         money.FromUnits(-150),
	})

	st := f.createSettlement(t, "2026-01-01", "2026-01-07")
	if err := f.settle.Finalize(st.ID, day("2026-01-08")); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	// A losing period carries no withdrawal credit and does not zero profit.
	if last.PlayerWithdrawal != 0 {
		t.Errorf("PlayerWithdrawal = %v, want 0", last.PlayerWithdrawal)
	}
	if f.player.Profit != money.FromUnits(-150) {
		t.Errorf("player profit = %v, want -150.00 preserved", f.player.Profit)
	}
	if st.TotalProfit != money.FromUnits(-150) {
		t.Errorf("total profit = %v, want -150.00", st.TotalProfit)
	}
	if !last.IsLocked {
		t.Error("losing-period transaction not locked")
	}
}

func TestFinalizeSameDateTieBreak(t *testing.T) {
	f := newFixture(t)

	first := f.addTx(t, "2026-01-04", ledger.TransactionInput{
		CurrentMakeup: money.FromUnits(700),
		Profit:        money.FromUnits(50),
	})
	second := f.addTx(t, "2026-01-04", ledger.TransactionInput{
		CurrentMakeup: money.FromUnits(600),
		Profit:        money.FromUnits(50),
	})

	st := f.createSettlement(t, "2026-01-01", "2026-01-07")
	if err := f.settle.Finalize(st.ID, day("2026-01-08")); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	// Same date: the later-inserted transaction is the period's last, so it
	// takes the credit and supplies the final makeup.
	if first.PlayerWithdrawal != 0 {
		t.Errorf("earlier insert credited: %v", first.PlayerWithdrawal)
	}
	if second.PlayerWithdrawal != money.FromUnits(100) {
		t.Errorf("later insert PlayerWithdrawal = %v, want 100.00", second.PlayerWithdrawal)
	}
	if f.player.Makeup != money.FromUnits(600) {
		t.Errorf("player makeup = %v, want 600.00 from later insert", f.player.Makeup)
	}
}

func TestFinalizeTwiceIsNoOp(t *testing.T) {
	f := newFixture(t)

	last := f.addTx(t, "2026-01-03", ledger.TransactionInput{
		Profit: money.FromUnits(100),
	})
	st := f.createSettlement(t, "2026-01-01", "2026-01-07")

	if err := f.settle.Finalize(st.ID, day("2026-01-08")); err != nil {
		t.Fatalf("first Finalize: %v", err)
	}
	if err := f.settle.Finalize(st.ID, day("2026-01-09")); err != nil {
		t.Fatalf("second Finalize: %v", err)
	}

	if last.PlayerWithdrawal != money.FromUnits(100) {
		t.Errorf("PlayerWithdrawal = %v, want 100.00 applied exactly once", last.PlayerWithdrawal)
	}
}

func TestFinalizeEmptyPeriod(t *testing.T) {
	f := newFixture(t)
	st := f.createSettlement(t, "2026-01-01", "2026-01-07")

	if err := f.settle.Finalize(st.ID, day("2026-01-08")); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if st.Status != store.SettlementCompleted {
		t.Errorf("status = %q, want completed even with zero transactions", st.Status)
	}
	if len(st.Players) != 0 || st.TotalProfit != 0 {
		t.Errorf("empty period produced rollups: %+v", st)
	}
}

func TestFinalizeNotFound(t *testing.T) {
	f := newFixture(t)
	if err := f.settle.Finalize("missing", day("2026-01-08")); !store.IsNotFound(err) {
		t.Errorf("err = %v, want not-found", err)
	}
}

func TestUnlockClearsLocksAndRevertsContained(t *testing.T) {
	f := newFixture(t)

	tx := f.addTx(t, "2026-01-03", ledger.TransactionInput{
		Profit: money.FromUnits(100),
	})
	st := f.createSettlement(t, "2026-01-01", "2026-01-07")
	if err := f.settle.Finalize(st.ID, day("2026-01-08")); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if err := f.settle.Unlock(f.system.ID, day("2026-01-01"), day("2026-01-07")); err != nil {
		t.Fatalf("Unlock: %v", err)
	}

	if tx.IsLocked || tx.SettlementID != "" {
		t.Errorf("transaction still bound: locked=%v settlement=%q", tx.IsLocked, tx.SettlementID)
	}
	if st.Status != store.SettlementPending {
		t.Errorf("settlement status = %q, want pending", st.Status)
	}
}

func TestUnlockLeavesPartiallyCoveredSettlement(t *testing.T) {
	f := newFixture(t)

	st := f.createSettlement(t, "2026-01-01", "2026-01-14")
	if err := f.settle.Finalize(st.ID, day("2026-01-15")); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	// Unlock range covers only half the settlement period.
	if err := f.settle.Unlock(f.system.ID, day("2026-01-01"), day("2026-01-07")); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if st.Status != store.SettlementCompleted {
		t.Errorf("partially covered settlement reverted: %q", st.Status)
	}
}

func TestUnlockUnknownSystem(t *testing.T) {
	f := newFixture(t)
	err := f.settle.Unlock("missing", day("2026-01-01"), day("2026-01-07"))
	if !store.IsNotFound(err) {
		t.Errorf("err = %v, want not-found", err)
	}
}
