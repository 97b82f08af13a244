package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/paepae/kucoin-lendingbot/internal/config"
	"github.com/paepae/kucoin-lendingbot/internal/domain"
	"github.com/paepae/kucoin-lendingbot/internal/usecase"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type stubExchange struct {
	created int
}

func (s *stubExchange) GetAccountBalance(ctx context.Context, currency string) (domain.AccountBalance, error) {
	return domain.AccountBalance{
		Total:     decimal.RequireFromString("1000"),
		Available: decimal.RequireFromString("1000"),
	}, nil
}

func (s *stubExchange) GetUnsettledLoans(ctx context.Context, currency string, page int) (domain.UnsettledLoanPage, error) {
	return domain.UnsettledLoanPage{}, nil
}

func (s *stubExchange) GetActiveOffers(ctx context.Context, currency string) ([]domain.LendOrder, error) {
	return nil, nil
}

func (s *stubExchange) GetLendingMarket(ctx context.Context, currency string) ([]domain.MarketLine, error) {
	return []domain.MarketLine{
		{DailyRate: decimal.RequireFromString("0.0003"), Size: decimal.RequireFromString("800")},
	}, nil
}

func (s *stubExchange) CreateLendOffer(ctx context.Context, currency string, dailyRate, size decimal.Decimal, term int) error {
	s.created++
	return nil
}

func (s *stubExchange) CancelLendOffer(ctx context.Context, orderID string) error {
	return nil
}

type stubStatusRepo struct{}

func (stubStatusRepo) SaveStatus(ctx context.Context, status *domain.LendingStatus) error {
	return nil
}

func (stubStatusRepo) ListStatus(ctx context.Context, account string, limit int) ([]*domain.LendingStatus, error) {
	return []*domain.LendingStatus{{Account: account, Currency: "USDT"}}, nil
}

func cdec(s string) config.Decimal {
	return config.Decimal{Decimal: decimal.RequireFromString(s)}
}

func newTestServer(ex *stubExchange) *Server {
	acct := config.AccountConfig{
		Name:               "test",
		Active:             true,
		Currency:           "USDT",
		LendingPrecision:   2,
		MinimumLendingSize: cdec("10"),
		LendingFeeRate:     cdec("15"),
		ReservedBalance:    cdec("0"),
		Strategy: config.StepStrategyConfig{
			MinLendingSizeRatio:          cdec("0.05"),
			MaxLendingSizeRatio:          cdec("0.5"),
			MinDailyRate:                 cdec("0.02"),
			Min40pDailyRate:              cdec("0.025"),
			Min60pDailyRate:              cdec("0.03"),
			Min80pDailyRate:              cdec("0.04"),
			BigPlayerSizeThreshold:       cdec("1000"),
			HappyDailyRate:               cdec("0.05"),
			HappyCumulativeSizeThreshold: cdec("100000"),
			Term14DailyRate:              cdec("0.08"),
			Term28DailyRate:              cdec("0.1"),
		},
	}
	factory := func(cfg config.AccountConfig) domain.Exchange { return ex }
	runner := usecase.NewRunner([]config.AccountConfig{acct}, factory, nil, zap.NewNop())
	return NewServer(0, runner, stubStatusRepo{}, zap.NewNop())
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(&stubExchange{})

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("GET / = %d %q, want 200 OK", rec.Code, rec.Body.String())
	}
}

func TestHandleRunDryRunRespondsOK(t *testing.T) {
	ex := &stubExchange{}
	s := newTestServer(ex)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/run", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("POST /run = %d %q, want 200 OK", rec.Code, rec.Body.String())
	}
	if ex.created != 0 {
		t.Errorf("dry run placed %d orders", ex.created)
	}
}

func TestHandleRunExecutePlacesOrders(t *testing.T) {
	ex := &stubExchange{}
	s := newTestServer(ex)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/run?execute=1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("POST /run?execute=1 = %d", rec.Code)
	}
	if ex.created != 1 {
		t.Errorf("placed %d orders, want 1", ex.created)
	}
}

func TestHandleRunStatusReport(t *testing.T) {
	s := newTestServer(&stubExchange{})

	body := strings.NewReader(`{"get_lending_status": 1}`)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/run", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("POST /run = %d", rec.Code)
	}

	var response struct {
		Timestamp string                           `json:"timestamp"`
		Accounts  map[string]usecase.AccountReport `json:"accounts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("response not JSON: %v", err)
	}
	report, ok := response.Accounts["test"]
	if !ok {
		t.Fatalf("response missing test account: %s", rec.Body.String())
	}
	if len(report.Log) == 0 {
		t.Errorf("account report has empty log")
	}
}

func TestHandleStatusHistoryRequiresAccount(t *testing.T) {
	s := newTestServer(&stubExchange{})

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("GET /api/status = %d, want 400", rec.Code)
	}
}

func TestHandleStatusHistory(t *testing.T) {
	s := newTestServer(&stubExchange{})

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status?account=test&limit=5", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/status = %d", rec.Code)
	}
	var statuses []domain.LendingStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &statuses); err != nil {
		t.Fatalf("response not JSON: %v", err)
	}
	if len(statuses) != 1 || statuses[0].Account != "test" {
		t.Errorf("statuses = %+v", statuses)
	}
}
