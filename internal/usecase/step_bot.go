package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/paepae/kucoin-lendingbot/internal/config"
	"github.com/paepae/kucoin-lendingbot/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	daysPerYear = decimal.NewFromInt(365)
	hoursPerDay = decimal.NewFromInt(24)
	utilTier40  = decimal.NewFromInt(40)
	utilTier60  = decimal.NewFromInt(60)
	utilTier80  = decimal.NewFromInt(80)
)

// settlementWait is the single fixed delay applied when freshly canceled
// funds have not shown up in the available balance yet. Not a retry loop.
const settlementWait = time.Second

// StepBot runs one lending decision cycle for a single account: aggregate
// balance, inspect open offers, scan the market, compute the optimal rate and
// cancel/keep/create accordingly.
type StepBot struct {
	cfg      config.AccountConfig
	exchange domain.Exchange
	logger   *zap.Logger

	settleDelay time.Duration
	transcript  []string
}

// CycleResult carries the cycle's transcript, the observed account status and
// the decision that was (or would have been) dispatched.
type CycleResult struct {
	Transcript []string
	Status     *domain.LendingStatus
	Decision   domain.StrategyDecision
}

func NewStepBot(cfg config.AccountConfig, exchange domain.Exchange, logger *zap.Logger) *StepBot {
	return &StepBot{
		cfg:         cfg,
		exchange:    exchange,
		logger:      logger,
		settleDelay: settlementWait,
	}
}

// logf records a transcript line and mirrors it to the structured logger.
func (b *StepBot) logf(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	b.transcript = append(b.transcript, line)
	b.logger.Info(line, zap.String("account", b.cfg.Name))
}

// Execute runs one decision cycle. When shouldExecute is false the cycle is a
// dry run: everything is computed and logged but no orders are placed or
// canceled. The returned result is valid even when err is non-nil (partial
// transcript).
func (b *StepBot) Execute(ctx context.Context, shouldExecute bool) (*CycleResult, error) {
	result := &CycleResult{Decision: domain.StrategyDecision{Action: domain.ActionNone}}
	defer func() { result.Transcript = b.transcript }()

	balance, err := b.accountBalance(ctx)
	if err != nil {
		return result, fmt.Errorf("account balance: %w", err)
	}

	if balance.Total.Sign() <= 0 {
		b.logf("TotalBalance=[0]")
		return result, nil
	}

	offers, err := b.activeOpenOffers(ctx)
	if err != nil {
		return result, fmt.Errorf("active open orders: %w", err)
	}

	pendingBalance := decimal.Zero
	for _, offer := range offers {
		pendingBalance = pendingBalance.Add(offer.PendingSize())
		b.logf("Active open order: DailyInterestRate=[%s%%] Size=[%s] PendingSize=[%s]",
			offer.DailyRate, offer.Size, offer.PendingSize())
	}

	balanceLent := balance.Total.Sub(balance.Available).Sub(pendingBalance)
	utilization := domain.Truncate(balanceLent.Div(balance.Total).Mul(hundred), 2)
	b.logf("TotalBalance=[%s] AvailableBalance=[%s] PendingBalance=[%s] UtilizationRate=[%s%%] UnrealizedAccruedInterest=[%s]",
		balance.Total, balance.Available, pendingBalance, utilization, balance.UnrealizedAccruedInterest)

	effectiveYearly := balance.EffectiveDailyRateOnTotal.Mul(daysPerYear)
	expectedDaily := balance.EffectiveDailyRateOnTotal.Mul(balance.Total).Div(hundred)
	expectedHourly := expectedDaily.Div(hoursPerDay)
	b.logf("AverageDailyInterestRate=[%s%%]", domain.FormatTruncated(balance.AverageDailyRate, 3))
	b.logf("EffectiveDailyInterestRateOnTotalBalance=[%s%%] EffectiveYearlyInterestRateOnTotalBalance=[%s%%]",
		domain.FormatTruncated(balance.EffectiveDailyRateOnTotal, 3), domain.FormatTruncated(effectiveYearly, 3))
	b.logf("Expected HourlyInterest=[%s] DailyInterest=[%s]",
		domain.FormatTruncated(expectedHourly, b.cfg.EarningReportPrecision),
		domain.FormatTruncated(expectedDaily, b.cfg.EarningReportPrecision))

	result.Status = &domain.LendingStatus{
		Account:                   b.cfg.Name,
		Currency:                  b.cfg.Currency,
		TotalBalance:              balance.Total,
		AvailableBalance:          balance.Available,
		UtilizationPct:            utilization,
		AverageDailyRate:          balance.AverageDailyRate,
		EffectiveDailyRate:        balance.EffectiveDailyRateOnTotal,
		UnrealizedAccruedInterest: balance.UnrealizedAccruedInterest,
		CreatedAt:                 time.Now(),
	}

	minRate := b.minimumDailyRate(utilization)

	lines, err := b.exchange.GetLendingMarket(ctx, b.cfg.Currency)
	if err != nil {
		return result, fmt.Errorf("lending market: %w", err)
	}

	analyzer := MarketAnalyzer{BigPlayerSizeThreshold: b.cfg.Strategy.BigPlayerSizeThreshold.Decimal}
	snapshot, err := analyzer.Analyze(lines, offers, minRate)
	if err != nil {
		return result, err
	}

	strategy := RateStrategy{
		HappyRate:                    b.cfg.Strategy.HappyDailyRate.Decimal,
		HappyCumulativeSizeThreshold: b.cfg.Strategy.HappyCumulativeSizeThreshold.Decimal,
	}
	var myLowestRate *decimal.Decimal
	if len(offers) > 0 {
		r := offers[0].DailyRate
		myLowestRate = &r
	}
	optimalRate := strategy.OptimalRate(snapshot, myLowestRate, minRate)
	b.logf("LowestRate=[%s%%] BigPlayerRate=[%s%%] MyOptimalRate=[%s%%]",
		snapshot.LowestRate, snapshot.BigPlayerRate, optimalRate)

	result.Decision.TargetRate = optimalRate

	if !shouldExecute {
		return result, nil
	}

	availableBalance := balance.Available
	canceledSize := decimal.Zero

	if len(offers) > 1 {
		b.logf("Keep my open orders")
		result.Decision.Action = domain.ActionKeep
		return result, nil
	}

	if len(offers) == 1 {
		offer := offers[0]
		if offer.DailyRate.GreaterThan(optimalRate) {
			if err := b.exchange.CancelLendOffer(ctx, offer.OrderID); err != nil {
				// Fail closed: never risk double exposure by creating a
				// replacement for an order that may still be live.
				b.logf("Failed to cancel lend order: Error:[%v]", err)
				return result, nil
			}
			canceledSize = offer.PendingSize()
			availableBalance = availableBalance.Add(canceledSize)
			b.logf("Canceled open order: DailyInterestRate=[%s%%] CanceledSize=[%s] NewAvailableBalance=[%s]",
				offer.DailyRate, canceledSize, availableBalance)
			result.Decision.Action = domain.ActionCancelCreate
		} else {
			effectiveDaily := b.effectiveDailyRate(offer.DailyRate)
			b.logf("Keep my open order: DailyInterestRate=[%s%%] EffectiveDailyInterestRate=[%s%%] EffectiveYearlyInterestRate=[%s%%]",
				offer.DailyRate,
				domain.FormatTruncated(effectiveDaily, 3),
				domain.FormatTruncated(effectiveDaily.Mul(daysPerYear), 3))
			result.Decision.Action = domain.ActionKeep
			return result, nil
		}
	}

	sizer := PositionSizer{
		MinRatio:        b.cfg.Strategy.MinLendingSizeRatio.Decimal,
		MaxRatio:        b.cfg.Strategy.MaxLendingSizeRatio.Decimal,
		ExchangeMinimum: b.cfg.MinimumLendingSize.Decimal,
		Precision:       b.cfg.LendingPrecision,
	}
	sizing := sizer.Compute(balance.Total, availableBalance)
	b.logf("MinimumSize=[%s] MaximumSize=[%s] AvailableBalance=[%s]",
		sizing.Minimum, sizing.Maximum, sizing.Available)

	if sizing.Size.IsZero() {
		b.logf("Not enough available balance")
		result.Decision.Action = domain.ActionNone
		return result, nil
	}

	if availableBalance.Sub(canceledSize).LessThan(sizing.Size) {
		// Canceled funds may not have settled on the exchange yet.
		b.wait(ctx)
	}

	term := b.term(optimalRate)
	if result.Decision.Action != domain.ActionCancelCreate {
		result.Decision.Action = domain.ActionCreate
	}
	result.Decision.Size = sizing.Size
	result.Decision.Term = term

	b.createLendOffer(ctx, optimalRate, sizing.Size, term)
	return result, nil
}

// accountBalance merges the free balance with all unsettled loans, draining
// the paginated list before computing anything.
func (b *StepBot) accountBalance(ctx context.Context) (domain.BalanceSnapshot, error) {
	raw, err := b.exchange.GetAccountBalance(ctx, b.cfg.Currency)
	if err != nil {
		return domain.BalanceSnapshot{}, err
	}

	loans, err := b.allUnsettledLoans(ctx)
	if err != nil {
		return domain.BalanceSnapshot{}, err
	}

	total := raw.Total
	available := raw.Available
	accruedInterest := decimal.Zero
	weightedRate := decimal.Zero
	unsettledSize := decimal.Zero

	for _, loan := range loans {
		remaining := loan.Remaining()
		total = total.Add(remaining)
		accruedInterest = accruedInterest.Add(loan.AccruedInterest)
		weightedRate = weightedRate.Add(remaining.Mul(loan.DailyRate))
		unsettledSize = unsettledSize.Add(remaining)
	}

	feeFactor := hundred.Sub(b.cfg.LendingFeeRate.Decimal)
	snapshot := domain.BalanceSnapshot{
		UnrealizedAccruedInterest: accruedInterest.Mul(feeFactor).Div(hundred),
	}

	reserved := b.cfg.ReservedBalance.Decimal
	if reserved.Sign() > 0 {
		reservedPct := hundred
		if total.Sign() > 0 {
			reservedPct = domain.Truncate(reserved.Div(total).Mul(hundred), 2)
			if reservedPct.GreaterThan(hundred) {
				reservedPct = hundred
			}
		}
		b.logf("ReservedBalance=[%s] ReservedPercentage=[%s%%]", reserved, reservedPct)
		total = total.Sub(reserved)
		available = available.Sub(reserved)
	}

	snapshot.Total = total
	snapshot.Available = available

	if !weightedRate.IsZero() && unsettledSize.Sign() > 0 {
		snapshot.AverageDailyRate = weightedRate.Div(unsettledSize).Mul(hundred)
	}
	if !weightedRate.IsZero() && total.Sign() > 0 {
		snapshot.EffectiveDailyRateOnTotal = weightedRate.Div(total).Mul(feeFactor)
	}

	return snapshot, nil
}

// allUnsettledLoans concatenates every page of the unsettled lend list. An
// empty first page means no unsettled loans, not an error.
func (b *StepBot) allUnsettledLoans(ctx context.Context) ([]domain.UnsettledLoan, error) {
	var loans []domain.UnsettledLoan
	for page := 1; ; page++ {
		resp, err := b.exchange.GetUnsettledLoans(ctx, b.cfg.Currency, page)
		if err != nil {
			return nil, err
		}
		if resp.TotalCount == 0 {
			break
		}
		loans = append(loans, resp.Items...)
		if resp.TotalPages <= page {
			break
		}
	}
	return loans, nil
}

// activeOpenOffers normalizes the account's own active lend orders: the rate
// becomes a percentage truncated to 3dp. Exchange response order is kept and
// offers sharing a rate are never merged.
func (b *StepBot) activeOpenOffers(ctx context.Context) ([]domain.OpenOffer, error) {
	orders, err := b.exchange.GetActiveOffers(ctx, b.cfg.Currency)
	if err != nil {
		return nil, err
	}

	offers := make([]domain.OpenOffer, 0, len(orders))
	for _, order := range orders {
		offers = append(offers, domain.OpenOffer{
			OrderID:    order.OrderID,
			DailyRate:  domain.Truncate(order.DailyRate.Mul(hundred), 3),
			Size:       order.Size,
			FilledSize: order.FilledSize,
		})
	}
	return offers, nil
}

// minimumDailyRate maps the balance utilization to its rate floor. The floor
// rises with utilization so scarce capital is not committed cheaply.
func (b *StepBot) minimumDailyRate(utilization decimal.Decimal) decimal.Decimal {
	s := b.cfg.Strategy
	switch {
	case utilization.GreaterThanOrEqual(utilTier80):
		return s.Min80pDailyRate.Decimal
	case utilization.GreaterThanOrEqual(utilTier60):
		return s.Min60pDailyRate.Decimal
	case utilization.GreaterThanOrEqual(utilTier40):
		return s.Min40pDailyRate.Decimal
	default:
		return s.MinDailyRate.Decimal
	}
}

func (b *StepBot) term(optimalRate decimal.Decimal) int {
	switch {
	case optimalRate.GreaterThanOrEqual(b.cfg.Strategy.Term28DailyRate.Decimal):
		return 28
	case optimalRate.GreaterThanOrEqual(b.cfg.Strategy.Term14DailyRate.Decimal):
		return 14
	default:
		return 7
	}
}

func (b *StepBot) effectiveDailyRate(dailyRate decimal.Decimal) decimal.Decimal {
	return dailyRate.Mul(hundred.Sub(b.cfg.LendingFeeRate.Decimal)).Div(hundred)
}

// createLendOffer is best-effort: a failure is logged with the attempted
// parameters and the cycle moves on; the next scheduled cycle reattempts.
func (b *StepBot) createLendOffer(ctx context.Context, dailyRate, size decimal.Decimal, term int) {
	if err := b.exchange.CreateLendOffer(ctx, b.cfg.Currency, dailyRate, size, term); err != nil {
		b.logf("Failed to create lend order: DailyInterestRate=[%s%%] Size=[%s] Term=[%d] Error:[%v]",
			dailyRate, size, term, err)
		return
	}
	effectiveDaily := b.effectiveDailyRate(dailyRate)
	b.logf("Created lend order: DailyInterestRate=[%s%%] Size=[%s] Term=[%d] EffectiveDailyInterestRate=[%s%%] EffectiveYearlyInterestRate=[%s%%]",
		dailyRate, size, term,
		domain.FormatTruncated(effectiveDaily, 3),
		domain.FormatTruncated(effectiveDaily.Mul(daysPerYear), 3))
}

func (b *StepBot) wait(ctx context.Context) {
	select {
	case <-time.After(b.settleDelay):
	case <-ctx.Done():
	}
}
