package price

import (
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

// DefaultWindowDays is the acceptance window used when none is configured.
const DefaultWindowDays = 30

// Windows holds the maximum distance in days between a historical target
// date and the observation a tier may return for it.
type Windows struct {
	History int // transaction_history, both kinds
	Fund    int // provider tiers, mutual funds
	Equity  int // provider tiers, equities
}

// DefaultWindows is 30 days everywhere.
func DefaultWindows() Windows {
	return Windows{History: DefaultWindowDays, Fund: DefaultWindowDays, Equity: DefaultWindowDays}
}

// WindowsFromConfig reads the windows from config, keeping the default for
// any non-positive value.
func WindowsFromConfig(c common.PricingConfig) Windows {
	w := DefaultWindows()
	if c.HistoryWindowDays > 0 {
		w.History = c.HistoryWindowDays
	}
	if c.FundWindowDays > 0 {
		w.Fund = c.FundWindowDays
	}
	if c.EquityWindowDays > 0 {
		w.Equity = c.EquityWindowDays
	}
	return w
}

// For returns the window for a (tier, kind) pair.
func (w Windows) For(source models.PriceSource, kind models.InstrumentKind) int {
	if source == models.SourceTransactionHistory {
		return w.History
	}
	if kind == models.KindMutualFund {
		return w.Fund
	}
	return w.Equity
}

// Accept reports whether an observation distanceDays away is usable.
// Synthetic prices have no date to compare and are always accepted.
func (w Windows) Accept(source models.PriceSource, kind models.InstrumentKind, distanceDays int) bool {
	if source == models.SourceSyntheticDefault {
		return true
	}
	return distanceDays >= 0 && distanceDays <= w.For(source, kind)
}
