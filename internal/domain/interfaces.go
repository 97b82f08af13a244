package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Exchange defines the margin-lending operations the bot needs from the
// exchange. All reads are idempotent; create/cancel are single best-effort
// attempts with no retry.
type Exchange interface {
	GetAccountBalance(ctx context.Context, currency string) (AccountBalance, error)
	GetUnsettledLoans(ctx context.Context, currency string, page int) (UnsettledLoanPage, error)
	GetActiveOffers(ctx context.Context, currency string) ([]LendOrder, error)
	GetLendingMarket(ctx context.Context, currency string) ([]MarketLine, error)

	// CreateLendOffer takes the daily rate as a percentage; the adapter is
	// responsible for the exchange's wire format.
	CreateLendOffer(ctx context.Context, currency string, dailyRate decimal.Decimal, size decimal.Decimal, term int) error
	CancelLendOffer(ctx context.Context, orderID string) error
}

// StatusRepository defines storage for lending status snapshots.
type StatusRepository interface {
	SaveStatus(ctx context.Context, status *LendingStatus) error
	ListStatus(ctx context.Context, account string, limit int) ([]*LendingStatus, error)
}
