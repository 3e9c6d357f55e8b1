// Package query is the read-only view over the core. It formats fixed-point
// amounts as decimal strings and dates as ISO-8601, and stamps every response
// with the core's sequence watermark.
package query

import (
	"StakeLedger/internal/core"
	"StakeLedger/internal/store"
	"time"
)

const dateLayout = "2006-01-02"

type Service struct {
	core *core.Core
}

func NewService(c *core.Core) *Service {
	return &Service{core: c}
}

// GetSystem returns the system summary, if present.
func (s *Service) GetSystem(id string) (*SystemSummary, error) {
	sys, ok := s.core.System(id)
	if !ok {
		return nil, store.NewNotFound("system", id)
	}
	out := &SystemSummary{
		ID:                sys.ID,
		Name:              sys.Name,
		Type:              sys.Type,
		StakingPercentage: sys.StakingPercentage,
		AdminID:           sys.AdminID,
		TotalBalance:      sys.TotalBalance.String(),
		PlayersCount:      sys.PlayersCount,
		Status:            string(sys.Status),
		CreatedAt:         sys.CreatedAt.Format(dateLayout),
		AsOfSequence:      s.core.SeqWatermark(),
	}
	if period, ok := s.core.ActiveSettlementPeriod(id); ok {
		out.ActivePeriod = &ActivePeriod{
			StartDate: period.Start.Format(dateLayout),
			EndDate:   period.End.Format(dateLayout),
		}
	}
	return out, nil
}

// GetPlayer returns the player summary, if present.
func (s *Service) GetPlayer(id string) (*PlayerSummary, error) {
	p, ok := s.core.Player(id)
	if !ok {
		return nil, store.NewNotFound("player", id)
	}
	out := playerSummary(p)
	out.AsOfSequence = s.core.SeqWatermark()
	return &out, nil
}

// ListPlayers returns all players of a system.
func (s *Service) ListPlayers(systemID string) ([]PlayerSummary, error) {
	if _, ok := s.core.System(systemID); !ok {
		return nil, store.NewNotFound("system", systemID)
	}
	watermark := s.core.SeqWatermark()
	players := s.core.PlayersForSystem(systemID)
	out := make([]PlayerSummary, 0, len(players))
	for _, p := range players {
		ps := playerSummary(p)
		ps.AsOfSequence = watermark
		out = append(out, ps)
	}
	return out, nil
}

// PlayerTransactions returns a player's transactions in ascending date order.
func (s *Service) PlayerTransactions(playerID string) (*TransactionsResponse, error) {
	if _, ok := s.core.Player(playerID); !ok {
		return nil, store.NewNotFound("player", playerID)
	}
	resp := &TransactionsResponse{AsOfSequence: s.core.SeqWatermark()}
	for _, tx := range s.core.TransactionsForPlayer(playerID) {
		resp.Transactions = append(resp.Transactions, transactionView(tx))
	}
	return resp, nil
}

// SystemTransactions returns a system's transactions in ascending date order.
func (s *Service) SystemTransactions(systemID string) (*TransactionsResponse, error) {
	if _, ok := s.core.System(systemID); !ok {
		return nil, store.NewNotFound("system", systemID)
	}
	resp := &TransactionsResponse{AsOfSequence: s.core.SeqWatermark()}
	for _, tx := range s.core.TransactionsForSystem(systemID) {
		resp.Transactions = append(resp.Transactions, transactionView(tx))
	}
	return resp, nil
}

// SystemSettlements returns a system's settlements, newest first.
func (s *Service) SystemSettlements(systemID string) (*SettlementsResponse, error) {
	if _, ok := s.core.System(systemID); !ok {
		return nil, store.NewNotFound("system", systemID)
	}
	resp := &SettlementsResponse{AsOfSequence: s.core.SeqWatermark()}
	for _, st := range s.core.SettlementsForSystem(systemID) {
		resp.Settlements = append(resp.Settlements, settlementView(st))
	}
	return resp, nil
}

// Feed returns one page of the activity feed, date-descending. offset is the
// index of the first entry; a zero NextOffset means the feed is exhausted.
func (s *Service) Feed(offset, limit int) *FeedPage {
	feed := s.core.ActivityFeed()
	page := &FeedPage{AsOfSequence: s.core.SeqWatermark()}

	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 50
	}
	if offset >= len(feed) {
		return page
	}

	end := offset + limit
	if end > len(feed) {
		end = len(feed)
	}
	for _, a := range feed[offset:end] {
		page.Entries = append(page.Entries, ActivityView{
			ID:         a.ID,
			Type:       string(a.Type),
			PlayerID:   a.PlayerID,
			PlayerName: a.PlayerName,
			Amount:     amountOrEmpty(a),
			SystemID:   a.SystemID,
			Period:     a.Period,
			Date:       a.Date.Format(time.RFC3339),
		})
	}
	if end < len(feed) {
		page.NextOffset = end
	}
	return page
}

func playerSummary(p store.Player) PlayerSummary {
	return PlayerSummary{
		ID:          p.ID,
		Name:        p.Name,
		Email:       p.Email,
		SystemID:    p.SystemID,
		Balance:     p.Balance.String(),
		Makeup:      p.Makeup.String(),
		Profit:      p.Profit.String(),
		BankReserve: p.BankReserve.String(),
	}
}

func transactionView(tx store.Transaction) TransactionView {
	return TransactionView{
		ID:               tx.ID,
		PlayerID:         tx.PlayerID,
		SystemID:         tx.SystemID,
		Date:             tx.Date.Format(dateLayout),
		Balance:          tx.Balance.String(),
		Reload:           tx.Reload.String(),
		Withdrawal:       tx.Withdrawal.String(),
		Result:           tx.Result.String(),
		PreviousMakeup:   tx.PreviousMakeup.String(),
		CurrentMakeup:    tx.CurrentMakeup.String(),
		Profit:           tx.Profit.String(),
		PlayerWithdrawal: tx.PlayerWithdrawal.String(),
		BankReserve:      tx.BankReserve.String(),
		Status:           string(tx.Status),
		SettlementID:     tx.SettlementID,
		IsLocked:         tx.IsLocked,
	}
}

func settlementView(st store.Settlement) SettlementView {
	out := SettlementView{
		ID:           st.ID,
		SystemID:     st.SystemID,
		StartDate:    st.StartDate.Format(dateLayout),
		EndDate:      st.EndDate.Format(dateLayout),
		TotalProfit:  st.TotalProfit.String(),
		TotalMakeup:  st.TotalMakeup.String(),
		TotalBalance: st.TotalBalance.String(),
		Status:       string(st.Status),
		CreatedAt:    st.CreatedAt.Format(dateLayout),
	}
	for _, sp := range st.Players {
		out.Players = append(out.Players, SettlementPlayerView{
			PlayerID: sp.PlayerID,
			Profit:   sp.Profit.String(),
			Makeup:   sp.Makeup.String(),
			Balance:  sp.Balance.String(),
		})
	}
	return out
}

// amountOrEmpty leaves the amount blank for entry types that carry none
// (player_added, settlement).
func amountOrEmpty(a store.Activity) string {
	switch a.Type {
	case store.ActivityDeposit, store.ActivityWithdrawal:
		return a.Amount.String()
	default:
		return ""
	}
}
