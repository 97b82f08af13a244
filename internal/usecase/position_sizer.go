package usecase

import (
	"github.com/paepae/kucoin-lendingbot/internal/domain"
	"github.com/shopspring/decimal"
)

// PositionSizer bounds the size to lend between ratios of total balance,
// floored by the exchange minimum. Ratio consistency (max >= min) is enforced
// at config load, not here.
type PositionSizer struct {
	MinRatio        decimal.Decimal
	MaxRatio        decimal.Decimal
	ExchangeMinimum decimal.Decimal
	Precision       int32 // lending size decimal places
}

// Sizing is the computed bounds plus the resulting size. Size is zero when
// the truncated available balance cannot meet the minimum.
type Sizing struct {
	Size      decimal.Decimal
	Minimum   decimal.Decimal
	Maximum   decimal.Decimal
	Available decimal.Decimal
}

func (p PositionSizer) Compute(total, available decimal.Decimal) Sizing {
	minimum := total.Mul(p.MinRatio)
	if minimum.LessThan(p.ExchangeMinimum) {
		minimum = p.ExchangeMinimum
	}
	maximum := total.Mul(p.MaxRatio)
	if maximum.LessThan(p.ExchangeMinimum) {
		maximum = p.ExchangeMinimum
	}

	s := Sizing{
		Minimum:   domain.Truncate(minimum, p.Precision),
		Maximum:   domain.Truncate(maximum, p.Precision),
		Available: domain.Truncate(available, p.Precision),
	}

	if s.Available.LessThan(s.Minimum) {
		s.Size = decimal.Zero
		return s
	}
	s.Size = s.Available
	if s.Size.GreaterThan(s.Maximum) {
		s.Size = s.Maximum
	}
	return s
}
