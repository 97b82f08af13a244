package usecase

import (
	"github.com/paepae/kucoin-lendingbot/internal/domain"
	"github.com/shopspring/decimal"
)

// undercutTick is the price step used to undercut a competing offer.
var undercutTick = decimal.RequireFromString("0.001")

// noMarketRate is returned when the ladder is empty: 2% daily, a rate no
// borrower takes, so nothing acceptable gets created downstream.
var noMarketRate = decimal.NewFromInt(2)

// RateStrategy computes the single daily rate the account should offer next.
type RateStrategy struct {
	HappyRate                    decimal.Decimal
	HappyCumulativeSizeThreshold decimal.Decimal
}

// OptimalRate walks the ladder in rate-ascending order and returns the first
// matching decision. myRate is the account's lowest active offer rate, nil
// when no offer is open. Ties prefer leaving the own rate unchanged over
// undercutting, to avoid repricing churn. Pure and idempotent.
func (s RateStrategy) OptimalRate(snapshot domain.MarketSnapshot, myRate *decimal.Decimal, minRate decimal.Decimal) decimal.Decimal {
	bigPlayerRate := snapshot.BigPlayerRate
	happySize := decimal.Zero

	for _, entry := range snapshot.Ladder {
		if entry.Rate.LessThan(minRate) {
			continue
		}

		// Floor and dominant level coincide: undercutting is pointless.
		if entry.Rate.Equal(bigPlayerRate) && entry.Rate.Equal(minRate) {
			return entry.Rate
		}

		if entry.Rate.GreaterThanOrEqual(bigPlayerRate) {
			if myRate != nil && entry.Rate.Equal(*myRate) {
				return entry.Rate
			}
			return bigPlayerRate.Sub(undercutTick)
		}

		if entry.Rate.GreaterThanOrEqual(s.HappyRate) {
			happySize = happySize.Add(entry.Size)
			if happySize.GreaterThan(s.HappyCumulativeSizeThreshold) {
				if myRate != nil && entry.Rate.Equal(*myRate) {
					return entry.Rate
				}
				return entry.Rate.Sub(undercutTick)
			}
		}
	}

	if n := len(snapshot.Ladder); n > 0 {
		last := snapshot.Ladder[n-1].Rate
		if last.LessThan(minRate) {
			return minRate
		}
		return last
	}

	return noMarketRate
}
