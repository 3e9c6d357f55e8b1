// Package ingestion is the NATS command surface. Commands arrive as JSON,
// are validated and normalized here, deduplicated by command id, and applied
// to the core one at a time. Resulting activity entries go back out on NATS
// for downstream consumers.
package ingestion

import (
	"StakeLedger/internal/ledger"
	"StakeLedger/internal/money"
	"StakeLedger/internal/settlement"
	"encoding/json"
	"fmt"
	"time"
)

// Command kinds accepted on the command subjects.
const (
	KindCreateSystem       = "create_system"
	KindAddPlayer          = "add_player"
	KindAddTransaction     = "add_transaction"
	KindDeleteTransaction  = "delete_transaction"
	KindCreateSettlement   = "create_settlement"
	KindFinalizeSettlement = "finalize_settlement"
	KindUnlockPeriod       = "unlock_period"
)

// envelope is the outer wire shape. Amounts inside payloads are decimal
// strings; dates are ISO-8601 (bare date or RFC 3339).
type envelope struct {
	Command   string          `json:"command"`
	CommandID string          `json:"command_id"`
	Payload   json.RawMessage `json:"payload"`
}

// UnlockPeriod names a date range to release.
type UnlockPeriod struct {
	SystemID  string
	StartDate time.Time
	EndDate   time.Time
}

// Command is one validated, fully typed command. Exactly one of the payload
// fields is set, selected by Kind.
type Command struct {
	Kind      string
	CommandID string

	CreateSystem         *ledger.SystemInput
	AddPlayer            *ledger.PlayerInput
	AddTransaction       *ledger.TransactionInput
	DeleteTransactionID  string
	CreateSettlement     *settlement.Input
	FinalizeSettlementID string
	FinalizeAt           time.Time
	Unlock               *UnlockPeriod
}

// Parse validates one wire message and returns the typed command. All
// parse failures are terminal: a malformed command can never succeed on
// redelivery.
func Parse(data []byte) (*Command, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal command: %w", err)
	}
	if env.CommandID == "" {
		return nil, fmt.Errorf("command %q: missing command_id", env.Command)
	}

	cmd := &Command{Kind: env.Command, CommandID: env.CommandID}
	var err error
	switch env.Command {
	case KindCreateSystem:
		err = cmd.parseCreateSystem(env.Payload)
	case KindAddPlayer:
		err = cmd.parseAddPlayer(env.Payload)
	case KindAddTransaction:
		err = cmd.parseAddTransaction(env.Payload)
	case KindDeleteTransaction:
		err = cmd.parseDeleteTransaction(env.Payload)
	case KindCreateSettlement:
		err = cmd.parseCreateSettlement(env.Payload)
	case KindFinalizeSettlement:
		err = cmd.parseFinalizeSettlement(env.Payload)
	case KindUnlockPeriod:
		err = cmd.parseUnlockPeriod(env.Payload)
	default:
		return nil, fmt.Errorf("unknown command %q", env.Command)
	}
	if err != nil {
		return nil, fmt.Errorf("command %q: %w", env.Command, err)
	}
	return cmd, nil
}

func (c *Command) parseCreateSystem(raw json.RawMessage) error {
	var p struct {
		Name              string `json:"name"`
		Type              string `json:"type"`
		StakingPercentage int64  `json:"staking_percentage"`
		AdminID           string `json:"admin_id"`
		CreatedAt         string `json:"created_at"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	if p.Name == "" {
		return fmt.Errorf("missing name")
	}
	if p.StakingPercentage < 0 || p.StakingPercentage > 100 {
		return fmt.Errorf("staking_percentage %d out of range 0-100", p.StakingPercentage)
	}
	createdAt, err := parseDate(p.CreatedAt)
	if err != nil {
		return fmt.Errorf("created_at: %w", err)
	}
	c.CreateSystem = &ledger.SystemInput{
		Name:              p.Name,
		Type:              p.Type,
		StakingPercentage: p.StakingPercentage,
		AdminID:           p.AdminID,
		CreatedAt:         createdAt,
	}
	return nil
}

func (c *Command) parseAddPlayer(raw json.RawMessage) error {
	var p struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		SystemID string `json:"system_id"`
		Date     string `json:"date"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	if p.Name == "" || p.SystemID == "" {
		return fmt.Errorf("missing name or system_id")
	}
	date, err := parseDate(p.Date)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}
	c.AddPlayer = &ledger.PlayerInput{
		Name: p.Name, Email: p.Email, SystemID: p.SystemID, Date: date,
	}
	return nil
}

func (c *Command) parseAddTransaction(raw json.RawMessage) error {
	var p struct {
		PlayerID       string `json:"player_id"`
		SystemID       string `json:"system_id"`
		Date           string `json:"date"`
		Balance        string `json:"balance"`
		Reload         string `json:"reload"`
		Withdrawal     string `json:"withdrawal"`
		Result         string `json:"result"`
		PreviousMakeup string `json:"previous_makeup"`
		CurrentMakeup  string `json:"current_makeup"`
		Profit         string `json:"profit"`
		BankReserve    string `json:"bank_reserve"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	if p.PlayerID == "" || p.SystemID == "" {
		return fmt.Errorf("missing player_id or system_id")
	}
	date, err := parseDate(p.Date)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	in := &ledger.TransactionInput{PlayerID: p.PlayerID, SystemID: p.SystemID, Date: date}
	for _, f := range []struct {
		name string
		raw  string
		dst  *money.Amount
	}{
		{"balance", p.Balance, &in.Balance},
		{"reload", p.Reload, &in.Reload},
		{"withdrawal", p.Withdrawal, &in.Withdrawal},
		{"result", p.Result, &in.Result},
		{"previous_makeup", p.PreviousMakeup, &in.PreviousMakeup},
		{"current_makeup", p.CurrentMakeup, &in.CurrentMakeup},
		{"profit", p.Profit, &in.Profit},
		{"bank_reserve", p.BankReserve, &in.BankReserve},
	} {
		if f.raw == "" {
			continue
		}
		v, err := money.Parse(f.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = v
	}
	if in.Reload < 0 || in.Withdrawal < 0 {
		return fmt.Errorf("reload and withdrawal must be non-negative")
	}
	c.AddTransaction = in
	return nil
}

func (c *Command) parseDeleteTransaction(raw json.RawMessage) error {
	var p struct {
		TransactionID string `json:"transaction_id"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	if p.TransactionID == "" {
		return fmt.Errorf("missing transaction_id")
	}
	c.DeleteTransactionID = p.TransactionID
	return nil
}

func (c *Command) parseCreateSettlement(raw json.RawMessage) error {
	var p struct {
		SystemID  string `json:"system_id"`
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
		CreatedAt string `json:"created_at"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	if p.SystemID == "" {
		return fmt.Errorf("missing system_id")
	}
	start, err := parseDate(p.StartDate)
	if err != nil {
		return fmt.Errorf("start_date: %w", err)
	}
	end, err := parseDate(p.EndDate)
	if err != nil {
		return fmt.Errorf("end_date: %w", err)
	}
	createdAt := time.Now().UTC()
	if p.CreatedAt != "" {
		if createdAt, err = parseDate(p.CreatedAt); err != nil {
			return fmt.Errorf("created_at: %w", err)
		}
	}
	c.CreateSettlement = &settlement.Input{
		SystemID: p.SystemID, StartDate: start, EndDate: end, CreatedAt: createdAt,
	}
	return nil
}

func (c *Command) parseFinalizeSettlement(raw json.RawMessage) error {
	var p struct {
		SettlementID string `json:"settlement_id"`
		FinalizedAt  string `json:"finalized_at"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	if p.SettlementID == "" {
		return fmt.Errorf("missing settlement_id")
	}
	c.FinalizeSettlementID = p.SettlementID
	c.FinalizeAt = time.Now().UTC()
	if p.FinalizedAt != "" {
		t, err := parseDate(p.FinalizedAt)
		if err != nil {
			return fmt.Errorf("finalized_at: %w", err)
		}
		c.FinalizeAt = t
	}
	return nil
}

func (c *Command) parseUnlockPeriod(raw json.RawMessage) error {
	var p struct {
		SystemID  string `json:"system_id"`
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	if p.SystemID == "" {
		return fmt.Errorf("missing system_id")
	}
	start, err := parseDate(p.StartDate)
	if err != nil {
		return fmt.Errorf("start_date: %w", err)
	}
	end, err := parseDate(p.EndDate)
	if err != nil {
		return fmt.Errorf("end_date: %w", err)
	}
	c.Unlock = &UnlockPeriod{SystemID: p.SystemID, StartDate: start, EndDate: end}
	return nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
