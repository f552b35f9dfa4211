package ledger

import (
	"sort"

	"duo/internal/core"
)

// Session is one live-selling event: the stock bought for it and what it sold.
type Session struct {
	LiveID     string
	Date       core.Date
	Investment core.Money // positive
	SaleAmount core.Money
	NetProfit  core.Money
	// Paired is false for a session built from a single unmatched row.
	Paired bool
}

// PairIntoSessions groups rows into lives. Rows carrying a LiveID are grouped
// by it. The remaining purchase and sale rows are paired with their neighbour
// in date order when the two have opposite signs. Refunds never belong to a
// live.
func PairIntoSessions(l Ledger) []Session {
	byLive := map[string]*Session{}
	var sessions []*Session
	var loose []core.Transaction

	for _, i := range l.chronological() {
		tx := l.txs[i]
		if tx.IsRefund() || tx.Amount.Cents == 0 {
			continue
		}
		if tx.LiveID == "" {
			loose = append(loose, tx)
			continue
		}
		s, ok := byLive[tx.LiveID]
		if !ok {
			s = &Session{LiveID: tx.LiveID, Date: tx.Date}
			byLive[tx.LiveID] = s
			sessions = append(sessions, s)
		}
		s.add(tx)
	}
	for _, s := range sessions {
		s.Paired = s.Investment.Cents > 0 && s.SaleAmount.Cents > 0
	}

	for i := 0; i < len(loose); i++ {
		s := &Session{Date: loose[i].Date}
		s.add(loose[i])
		if i+1 < len(loose) && oppositeSigns(loose[i], loose[i+1]) {
			s.add(loose[i+1])
			s.Paired = true
			i++
		}
		sessions = append(sessions, s)
	}

	sort.SliceStable(sessions, func(a, b int) bool {
		return sessions[a].Date.Before(sessions[b].Date.Time)
	})
	out := make([]Session, len(sessions))
	for i, s := range sessions {
		out[i] = *s
	}
	return out
}

func (s *Session) add(tx core.Transaction) {
	if tx.Amount.Cents > 0 {
		s.SaleAmount.Cents += tx.Amount.Cents
	} else {
		s.Investment.Cents -= tx.Amount.Cents
	}
	s.NetProfit = core.Money{Cents: s.SaleAmount.Cents - s.Investment.Cents}
}

func oppositeSigns(a, b core.Transaction) bool {
	return (a.Amount.Cents > 0) != (b.Amount.Cents > 0)
}
