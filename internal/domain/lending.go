package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountBalance is the raw main-account balance as reported by the exchange.
type AccountBalance struct {
	Total     decimal.Decimal
	Available decimal.Decimal
}

// UnsettledLoan is one outstanding principal slice from a previously filled
// lend order, not yet fully repaid by the borrower.
type UnsettledLoan struct {
	Size            decimal.Decimal
	Repaid          decimal.Decimal
	AccruedInterest decimal.Decimal
	DailyRate       decimal.Decimal // fractional rate as published by the exchange
}

// Remaining is the principal still lent out on this slice.
func (l UnsettledLoan) Remaining() decimal.Decimal {
	return l.Size.Sub(l.Repaid)
}

// UnsettledLoanPage is one page of the exchange's unsettled lend list.
type UnsettledLoanPage struct {
	Items      []UnsettledLoan
	TotalPages int
	TotalCount int
}

// LendOrder is one of the account's own active lend offers as returned by the
// exchange, with the rate still in the exchange's fractional form.
type LendOrder struct {
	OrderID    string
	DailyRate  decimal.Decimal // fractional
	Size       decimal.Decimal
	FilledSize decimal.Decimal
}

// OpenOffer is the normalized view of an own active lend offer. DailyRate is
// a percentage truncated to 3 fractional digits.
type OpenOffer struct {
	OrderID    string
	DailyRate  decimal.Decimal
	Size       decimal.Decimal
	FilledSize decimal.Decimal
}

// PendingSize is the unfilled part of the offer.
func (o OpenOffer) PendingSize() decimal.Decimal {
	return o.Size.Sub(o.FilledSize)
}

// MarketLine is a raw public lending order-book row. The book is published
// sorted ascending by rate, one row per distinct rate.
type MarketLine struct {
	DailyRate decimal.Decimal // fractional
	Size      decimal.Decimal
}

// OfferLadderEntry is a dominant price level in the filtered ladder. Size is
// the net cumulative volume at and below the level: the account's own pending
// size is subtracted when it sits at exactly this rate, so the size may go
// negative.
type OfferLadderEntry struct {
	Rate decimal.Decimal // percent, 3dp
	Size decimal.Decimal
}

// MarketSnapshot is the outcome of one scan of the public lending book.
type MarketSnapshot struct {
	LowestRate    decimal.Decimal // percent, 3dp, first published line
	BigPlayerRate decimal.Decimal // percent, 3dp
	Ladder        []OfferLadderEntry
}

// BalanceSnapshot merges the free balance with the outstanding loan principal
// and accrued interest. All rates are percentages. Computed fresh each cycle,
// never persisted.
type BalanceSnapshot struct {
	Total                     decimal.Decimal
	Available                 decimal.Decimal
	UnrealizedAccruedInterest decimal.Decimal
	AverageDailyRate          decimal.Decimal
	EffectiveDailyRateOnTotal decimal.Decimal
}

// Action is the cycle's order-management outcome.
type Action string

const (
	ActionNone         Action = "NONE"
	ActionKeep         Action = "KEEP"
	ActionCreate       Action = "CREATE"
	ActionCancelCreate Action = "CANCEL_CREATE"
)

// StrategyDecision is the cycle's final output before dispatch to the
// exchange. Size and Term are set only when an order is (or would be) placed.
type StrategyDecision struct {
	TargetRate decimal.Decimal `json:"target_rate"`
	Action     Action          `json:"action"`
	Size       decimal.Decimal `json:"size"`
	Term       int             `json:"term"`
}

// LendingStatus is the per-cycle account observation persisted for reporting.
// It records what the account looked like, not what the strategy decided.
type LendingStatus struct {
	ID                        int64           `json:"id"`
	Account                   string          `json:"account"`
	Currency                  string          `json:"currency"`
	TotalBalance              decimal.Decimal `json:"total_balance"`
	AvailableBalance          decimal.Decimal `json:"available_balance"`
	UtilizationPct            decimal.Decimal `json:"utilization_pct"`
	AverageDailyRate          decimal.Decimal `json:"average_daily_rate"`
	EffectiveDailyRate        decimal.Decimal `json:"effective_daily_rate"`
	UnrealizedAccruedInterest decimal.Decimal `json:"unrealized_accrued_interest"`
	CreatedAt                 time.Time       `json:"created_at"`
}
