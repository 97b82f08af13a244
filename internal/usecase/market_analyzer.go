package usecase

import (
	"errors"

	"github.com/paepae/kucoin-lendingbot/internal/domain"
	"github.com/shopspring/decimal"
)

// ErrNoBigPlayer means the public lending book has no volume at or above the
// minimum acceptable rate. No default rate is invented in that case.
var ErrNoBigPlayer = errors.New("no lending offers at or above the minimum rate")

var hundred = decimal.NewFromInt(100)

// MarketAnalyzer walks the rate-ascending public lending book and produces
// the filtered offer ladder plus the detected big-player rate.
type MarketAnalyzer struct {
	BigPlayerSizeThreshold decimal.Decimal
}

// Analyze performs a single forward pass over the book. A line whose rate is
// strictly above every rate seen so far opens a new ladder entry; lines at or
// below the current dominant rate merge into the current entry. The account's
// own pending size is netted out of the entry that sits at its exact rate.
// The scan stops early once the current entry's cumulative size exceeds the
// big-player threshold; later lines are simply never ladder material.
func (a MarketAnalyzer) Analyze(lines []domain.MarketLine, myOffers []domain.OpenOffer, minRate decimal.Decimal) (domain.MarketSnapshot, error) {
	if len(lines) == 0 {
		return domain.MarketSnapshot{}, ErrNoBigPlayer
	}

	offersByRate := make(map[string]domain.OpenOffer, len(myOffers))
	for _, o := range myOffers {
		offersByRate[domain.RateKey(o.DailyRate)] = o
	}

	lowestRate := lines[0].DailyRate.Mul(hundred)
	bigPlayerRate := decimal.Zero
	var ladder []domain.OfferLadderEntry

	for _, line := range lines {
		lineRate := line.DailyRate.Mul(hundred)
		if lineRate.LessThan(minRate) {
			continue
		}
		lineRate = domain.Truncate(lineRate, 3)

		if lineRate.GreaterThan(bigPlayerRate) {
			entry := domain.OfferLadderEntry{Rate: lineRate, Size: line.Size}
			if my, ok := offersByRate[domain.RateKey(lineRate)]; ok {
				// May go negative: our own volume already covers the level.
				entry.Size = entry.Size.Sub(my.PendingSize())
			}
			ladder = append(ladder, entry)
			bigPlayerRate = lineRate
		} else if len(ladder) > 0 {
			last := &ladder[len(ladder)-1]
			last.Size = last.Size.Add(line.Size)
		}

		if len(ladder) > 0 && ladder[len(ladder)-1].Size.GreaterThan(a.BigPlayerSizeThreshold) {
			break
		}
	}

	if bigPlayerRate.IsZero() {
		return domain.MarketSnapshot{}, ErrNoBigPlayer
	}

	return domain.MarketSnapshot{
		LowestRate:    domain.Truncate(lowestRate, 3),
		BigPlayerRate: domain.Truncate(bigPlayerRate, 3),
		Ladder:        ladder,
	}, nil
}
