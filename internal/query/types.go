package query

// Response types for the read-only query surface. Amounts are formatted as
// decimal strings; dates as ISO-8601. Every response carries AsOfSequence for
// freshness semantics.

type SystemSummary struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Type              string        `json:"type"`
	StakingPercentage int64         `json:"staking_percentage"`
	AdminID           string        `json:"admin_id"`
	TotalBalance      string        `json:"total_balance"`
	PlayersCount      int           `json:"players_count"`
	Status            string        `json:"status"`
	CreatedAt         string        `json:"created_at"`
	ActivePeriod      *ActivePeriod `json:"active_period,omitempty"`
	AsOfSequence      int64         `json:"as_of_sequence"`
}

// ActivePeriod is the system's pending settlement range, when one exists.
type ActivePeriod struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type PlayerSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	SystemID     string `json:"system_id"`
	Balance      string `json:"balance"`
	Makeup       string `json:"makeup"`
	Profit       string `json:"profit"`
	BankReserve  string `json:"bank_reserve"`
	AsOfSequence int64  `json:"as_of_sequence"`
}

type TransactionView struct {
	ID               string `json:"id"`
	PlayerID         string `json:"player_id"`
	SystemID         string `json:"system_id"`
	Date             string `json:"date"`
	Balance          string `json:"balance"`
	Reload           string `json:"reload"`
	Withdrawal       string `json:"withdrawal"`
	Result           string `json:"result"`
	PreviousMakeup   string `json:"previous_makeup"`
	CurrentMakeup    string `json:"current_makeup"`
	Profit           string `json:"profit"`
	PlayerWithdrawal string `json:"player_withdrawal"`
	BankReserve      string `json:"bank_reserve"`
	Status           string `json:"status"`
	SettlementID     string `json:"settlement_id,omitempty"`
	IsLocked         bool   `json:"is_locked"`
}

type TransactionsResponse struct {
	Transactions []TransactionView `json:"transactions"`
	AsOfSequence int64             `json:"as_of_sequence"`
}

type SettlementPlayerView struct {
	PlayerID string `json:"player_id"`
	Profit   string `json:"profit"`
	Makeup   string `json:"makeup"`
	Balance  string `json:"balance"`
}

type SettlementView struct {
	ID           string                 `json:"id"`
	SystemID     string                 `json:"system_id"`
	StartDate    string                 `json:"start_date"`
	EndDate      string                 `json:"end_date"`
	TotalProfit  string                 `json:"total_profit"`
	TotalMakeup  string                 `json:"total_makeup"`
	TotalBalance string                 `json:"total_balance"`
	Players      []SettlementPlayerView `json:"players"`
	Status       string                 `json:"status"`
	CreatedAt    string                 `json:"created_at"`
}

type SettlementsResponse struct {
	Settlements  []SettlementView `json:"settlements"`
	AsOfSequence int64            `json:"as_of_sequence"`
}

type ActivityView struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	PlayerID   string `json:"player_id,omitempty"`
	PlayerName string `json:"player_name,omitempty"`
	Amount     string `json:"amount,omitempty"`
	SystemID   string `json:"system_id,omitempty"`
	Period     string `json:"period,omitempty"`
	Date       string `json:"date"`
}

type FeedPage struct {
	Entries      []ActivityView `json:"entries"`
	NextOffset   int            `json:"next_offset,omitempty"`
	AsOfSequence int64          `json:"as_of_sequence"`
}
