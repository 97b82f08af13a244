package usecase

import (
	"context"
	"math/rand"

	"github.com/paepae/kucoin-lendingbot/internal/config"
	"github.com/paepae/kucoin-lendingbot/internal/domain"
	"go.uber.org/zap"
)

// ExchangeFactory builds an exchange client for one account's credentials.
type ExchangeFactory func(cfg config.AccountConfig) domain.Exchange

// AccountReport is one account's slice of the invocation response.
type AccountReport struct {
	Log      []string                 `json:"log"`
	Decision *domain.StrategyDecision `json:"decision,omitempty"`
	Error    string                   `json:"error,omitempty"`
}

// Runner executes the lending cycle for every active account, sequentially,
// in randomized order. Accounts share no mutable state; one account's
// unrecoverable error never aborts its siblings.
type Runner struct {
	accounts []config.AccountConfig
	factory  ExchangeFactory
	statuses domain.StatusRepository
	logger   *zap.Logger
	onCycle  []func(account string, transcript []string)
}

func NewRunner(accounts []config.AccountConfig, factory ExchangeFactory, statuses domain.StatusRepository, logger *zap.Logger) *Runner {
	return &Runner{
		accounts: accounts,
		factory:  factory,
		statuses: statuses,
		logger:   logger,
	}
}

// OnCycle registers a callback invoked with each finished cycle's transcript.
func (r *Runner) OnCycle(fn func(account string, transcript []string)) {
	r.onCycle = append(r.onCycle, fn)
}

// Execute runs one cycle per active account. When shouldExecute is false all
// cycles are dry runs.
func (r *Runner) Execute(ctx context.Context, shouldExecute bool) map[string]AccountReport {
	shuffled := make([]config.AccountConfig, len(r.accounts))
	copy(shuffled, r.accounts)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	reports := make(map[string]AccountReport)
	for _, acct := range shuffled {
		if !acct.Active {
			continue
		}

		bot := NewStepBot(acct, r.factory(acct), r.logger)
		result, err := bot.Execute(ctx, shouldExecute)

		report := AccountReport{Log: result.Transcript}
		if err != nil {
			r.logger.Error("Lending cycle failed",
				zap.String("account", acct.Name), zap.Error(err))
			report.Error = err.Error()
		} else if shouldExecute {
			decision := result.Decision
			report.Decision = &decision
		}

		if result.Status != nil && r.statuses != nil {
			if err := r.statuses.SaveStatus(ctx, result.Status); err != nil {
				r.logger.Error("Failed to save lending status",
					zap.String("account", acct.Name), zap.Error(err))
			}
		}

		for _, fn := range r.onCycle {
			fn(acct.Name, result.Transcript)
		}

		reports[acct.Name] = report
	}
	return reports
}
