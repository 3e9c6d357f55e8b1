// Package persistence serializes the ledger state to a versioned snapshot
// and stores it in a durable blob store. The core treats this package as an
// external collaborator: collections go out as one opaque JSON document and
// come back through a single explicit normalization pass.
package persistence

import (
	"StakeLedger/internal/core"
	"StakeLedger/internal/money"
	"StakeLedger/internal/store"
	"encoding/json"
	"fmt"
	"time"
)

// SchemaVersion identifies the snapshot layout for future migration.
const SchemaVersion = 1

// SnapshotData is the serialized form of the full ledger state. Dates are
// ISO-8601 strings; amounts are raw fixed-point int64.
type SnapshotData struct {
	SchemaVersion int               `json:"schema_version"`
	Systems       []SystemSnap      `json:"systems"`
	Players       []PlayerSnap      `json:"players"`
	Transactions  []TransactionSnap `json:"transactions"`
	Settlements   []SettlementSnap  `json:"settlements"`
	Activity      []ActivitySnap    `json:"activity"`
	SeqWatermark  int64             `json:"seq_watermark"`
	CreatedAt     time.Time         `json:"created_at"`
}

type SystemSnap struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Type              string `json:"type"`
	StakingPercentage int64  `json:"staking_percentage"`
	CreatedAt         string `json:"created_at"`
	AdminID           string `json:"admin_id"`
	TotalBalance      int64  `json:"total_balance"`
	PlayersCount      int    `json:"players_count"`
	Status            string `json:"status"`
}

type PlayerSnap struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	SystemID    string `json:"system_id"`
	Balance     int64  `json:"balance"`
	Makeup      int64  `json:"makeup"`
	Profit      int64  `json:"profit"`
	BankReserve int64  `json:"bank_reserve"`
}

type TransactionSnap struct {
	ID               string `json:"id"`
	PlayerID         string `json:"player_id"`
	SystemID         string `json:"system_id"`
	Date             string `json:"date"`
	Balance          int64  `json:"balance"`
	Reload           int64  `json:"reload"`
	Withdrawal       int64  `json:"withdrawal"`
	Result           int64  `json:"result"`
	PreviousMakeup   int64  `json:"previous_makeup"`
	CurrentMakeup    int64  `json:"current_makeup"`
	Profit           int64  `json:"profit"`
	PlayerWithdrawal int64  `json:"player_withdrawal"`
	BankReserve      int64  `json:"bank_reserve"`
	Status           string `json:"status"`
	SettlementID     string `json:"settlement_id,omitempty"`
	IsLocked         bool   `json:"is_locked,omitempty"`
	Seq              int64  `json:"seq"`
}

type SettlementPlayerSnap struct {
	PlayerID string `json:"player_id"`
	Profit   int64  `json:"profit"`
	Makeup   int64  `json:"makeup"`
	Balance  int64  `json:"balance"`
}

type SettlementSnap struct {
	ID           string                 `json:"id"`
	SystemID     string                 `json:"system_id"`
	StartDate    string                 `json:"start_date"`
	EndDate      string                 `json:"end_date"`
	TotalProfit  int64                  `json:"total_profit"`
	TotalMakeup  int64                  `json:"total_makeup"`
	TotalBalance int64                  `json:"total_balance"`
	Players      []SettlementPlayerSnap `json:"players"`
	Status       string                 `json:"status"`
	CreatedAt    string                 `json:"created_at"`
}

type ActivitySnap struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	PlayerID   string `json:"player_id,omitempty"`
	PlayerName string `json:"player_name,omitempty"`
	Amount     int64  `json:"amount,omitempty"`
	SystemID   string `json:"system_id,omitempty"`
	Period     string `json:"period,omitempty"`
	Date       string `json:"date"`
}

// Encode serializes a state snapshot to versioned JSON.
func Encode(state *core.SnapshotState, createdAt time.Time) ([]byte, error) {
	data := &SnapshotData{
		SchemaVersion: SchemaVersion,
		SeqWatermark:  state.SeqWatermark,
		CreatedAt:     createdAt,
	}

	for _, sys := range state.Systems {
		data.Systems = append(data.Systems, SystemSnap{
			ID:                sys.ID,
			Name:              sys.Name,
			Type:              sys.Type,
			StakingPercentage: sys.StakingPercentage,
			CreatedAt:         formatDate(sys.CreatedAt),
			AdminID:           sys.AdminID,
			TotalBalance:      int64(sys.TotalBalance),
			PlayersCount:      sys.PlayersCount,
			Status:            string(sys.Status),
		})
	}
	for _, p := range state.Players {
		data.Players = append(data.Players, PlayerSnap{
			ID:          p.ID,
			Name:        p.Name,
			Email:       p.Email,
			SystemID:    p.SystemID,
			Balance:     int64(p.Balance),
			Makeup:      int64(p.Makeup),
			Profit:      int64(p.Profit),
			BankReserve: int64(p.BankReserve),
		})
	}
	for _, tx := range state.Transactions {
		data.Transactions = append(data.Transactions, TransactionSnap{
			ID:               tx.ID,
			PlayerID:         tx.PlayerID,
			SystemID:         tx.SystemID,
			Date:             formatDate(tx.Date),
			Balance:          int64(tx.Balance),
			Reload:           int64(tx.Reload),
			Withdrawal:       int64(tx.Withdrawal),
			Result:           int64(tx.Result),
			PreviousMakeup:   int64(tx.PreviousMakeup),
			CurrentMakeup:    int64(tx.CurrentMakeup),
			Profit:           int64(tx.Profit),
			PlayerWithdrawal: int64(tx.PlayerWithdrawal),
			BankReserve:      int64(tx.BankReserve),
			Status:           string(tx.Status),
			SettlementID:     tx.SettlementID,
			IsLocked:         tx.IsLocked,
			Seq:              tx.Seq,
		})
	}
	for _, st := range state.Settlements {
		snap := SettlementSnap{
			ID:           st.ID,
			SystemID:     st.SystemID,
			StartDate:    formatDate(st.StartDate),
			EndDate:      formatDate(st.EndDate),
			TotalProfit:  int64(st.TotalProfit),
			TotalMakeup:  int64(st.TotalMakeup),
			TotalBalance: int64(st.TotalBalance),
			Status:       string(st.Status),
			CreatedAt:    formatDate(st.CreatedAt),
		}
		for _, sp := range st.Players {
			snap.Players = append(snap.Players, SettlementPlayerSnap{
				PlayerID: sp.PlayerID,
				Profit:   int64(sp.Profit),
				Makeup:   int64(sp.Makeup),
				Balance:  int64(sp.Balance),
			})
		}
		data.Settlements = append(data.Settlements, snap)
	}
	for _, a := range state.Feed {
		data.Activity = append(data.Activity, ActivitySnap{
			ID:         a.ID,
			Type:       string(a.Type),
			PlayerID:   a.PlayerID,
			PlayerName: a.PlayerName,
			Amount:     int64(a.Amount),
			SystemID:   a.SystemID,
			Period:     a.Period,
			Date:       formatDate(a.Date),
		})
	}

	return json.Marshal(data)
}

// Decode parses versioned snapshot JSON back into a typed state. This is the
// single normalization pass: every date string becomes a time.Time here, and
// a missing or null collection becomes an empty one. Downstream code never
// sees an untyped date.
func Decode(raw []byte) (*core.SnapshotState, error) {
	var data SnapshotData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if data.SchemaVersion > SchemaVersion {
		return nil, fmt.Errorf("snapshot schema version %d is newer than supported %d", data.SchemaVersion, SchemaVersion)
	}

	state := &core.SnapshotState{SeqWatermark: data.SeqWatermark}

	for _, s := range data.Systems {
		createdAt, err := parseDate(s.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("system %s: %w", s.ID, err)
		}
		state.Systems = append(state.Systems, &store.System{
			ID:                s.ID,
			Name:              s.Name,
			Type:              s.Type,
			StakingPercentage: s.StakingPercentage,
			CreatedAt:         createdAt,
			AdminID:           s.AdminID,
			TotalBalance:      money.Amount(s.TotalBalance),
			PlayersCount:      s.PlayersCount,
			Status:            store.SystemStatus(s.Status),
		})
	}
	for _, p := range data.Players {
		state.Players = append(state.Players, &store.Player{
			ID:          p.ID,
			Name:        p.Name,
			Email:       p.Email,
			SystemID:    p.SystemID,
			Balance:     money.Amount(p.Balance),
			Makeup:      money.Amount(p.Makeup),
			Profit:      money.Amount(p.Profit),
			BankReserve: money.Amount(p.BankReserve),
		})
	}
	for _, t := range data.Transactions {
		date, err := parseDate(t.Date)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", t.ID, err)
		}
		state.Transactions = append(state.Transactions, &store.Transaction{
			ID:               t.ID,
			PlayerID:         t.PlayerID,
			SystemID:         t.SystemID,
			Date:             date,
			Balance:          money.Amount(t.Balance),
			Reload:           money.Amount(t.Reload),
			Withdrawal:       money.Amount(t.Withdrawal),
			Result:           money.Amount(t.Result),
			PreviousMakeup:   money.Amount(t.PreviousMakeup),
			CurrentMakeup:    money.Amount(t.CurrentMakeup),
			Profit:           money.Amount(t.Profit),
			PlayerWithdrawal: money.Amount(t.PlayerWithdrawal),
			BankReserve:      money.Amount(t.BankReserve),
			Status:           store.TransactionStatus(t.Status),
			SettlementID:     t.SettlementID,
			IsLocked:         t.IsLocked,
			Seq:              t.Seq,
		})
	}
	for _, s := range data.Settlements {
		startDate, err := parseDate(s.StartDate)
		if err != nil {
			return nil, fmt.Errorf("settlement %s: %w", s.ID, err)
		}
		endDate, err := parseDate(s.EndDate)
		if err != nil {
			return nil, fmt.Errorf("settlement %s: %w", s.ID, err)
		}
		createdAt, err := parseDate(s.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("settlement %s: %w", s.ID, err)
		}
		st := &store.Settlement{
			ID:           s.ID,
			SystemID:     s.SystemID,
			StartDate:    startDate,
			EndDate:      endDate,
			TotalProfit:  money.Amount(s.TotalProfit),
			TotalMakeup:  money.Amount(s.TotalMakeup),
			TotalBalance: money.Amount(s.TotalBalance),
			Status:       store.SettlementStatus(s.Status),
			CreatedAt:    createdAt,
		}
		for _, sp := range s.Players {
			st.Players = append(st.Players, store.SettlementPlayer{
				PlayerID: sp.PlayerID,
				Profit:   money.Amount(sp.Profit),
				Makeup:   money.Amount(sp.Makeup),
				Balance:  money.Amount(sp.Balance),
			})
		}
		state.Settlements = append(state.Settlements, st)
	}
	for _, a := range data.Activity {
		date, err := parseDate(a.Date)
		if err != nil {
			return nil, fmt.Errorf("activity %s: %w", a.ID, err)
		}
		state.Feed = append(state.Feed, &store.Activity{
			ID:         a.ID,
			Type:       store.ActivityType(a.Type),
			PlayerID:   a.PlayerID,
			PlayerName: a.PlayerName,
			Amount:     money.Amount(a.Amount),
			SystemID:   a.SystemID,
			Period:     a.Period,
			Date:       date,
		})
	}

	return state, nil
}

func formatDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseDate accepts RFC 3339 timestamps as well as bare dates ("2006-01-02")
// for snapshots produced by earlier tooling.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
