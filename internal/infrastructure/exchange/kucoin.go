package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/paepae/kucoin-lendingbot/internal/domain"
	"github.com/shopspring/decimal"
)

const DefaultBaseURL = "https://api.kucoin.com"

// KucoinAdapter implements domain.Exchange against the KuCoin margin lending
// REST API (v2 request signing).
type KucoinAdapter struct {
	apiKey     string
	apiSecret  string
	passphrase string
	baseURL    string
	client     *http.Client
}

func NewKucoinAdapter(apiKey, apiSecret, passphrase, baseURL string) *KucoinAdapter {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &KucoinAdapter{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		passphrase: passphrase,
		baseURL:    baseURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (k *KucoinAdapter) sign(payload string) string {
	h := hmac.New(sha256.New, []byte(k.apiSecret))
	h.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

type apiResponse struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// call sends a signed request and decodes the data envelope into out.
func (k *KucoinAdapter) call(ctx context.Context, method, path string, payload, out interface{}) error {
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return err
		}
	}

	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)

	req, err := http.NewRequestWithContext(ctx, method, k.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("KC-API-KEY", k.apiKey)
	req.Header.Set("KC-API-SIGN", k.sign(timestamp+method+path+string(body)))
	req.Header.Set("KC-API-TIMESTAMP", timestamp)
	req.Header.Set("KC-API-PASSPHRASE", k.sign(k.passphrase))
	req.Header.Set("KC-API-KEY-VERSION", "2")
	req.Header.Set("Content-Type", "application/json")

	resp, err := k.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("kucoin http %d: %s", resp.StatusCode, string(respBody))
	}

	var envelope apiResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return err
	}
	if envelope.Code != "200000" {
		return fmt.Errorf("kucoin api error %s: %s", envelope.Code, envelope.Msg)
	}
	if out != nil {
		return json.Unmarshal(envelope.Data, out)
	}
	return nil
}

func (k *KucoinAdapter) GetAccountBalance(ctx context.Context, currency string) (domain.AccountBalance, error) {
	var accounts []struct {
		Balance   string `json:"balance"`
		Available string `json:"available"`
	}
	path := "/api/v1/accounts?currency=" + currency + "&type=main"
	if err := k.call(ctx, "GET", path, nil, &accounts); err != nil {
		return domain.AccountBalance{}, err
	}
	if len(accounts) == 0 {
		return domain.AccountBalance{}, fmt.Errorf("no main account for currency %s", currency)
	}

	total, _ := decimal.NewFromString(accounts[0].Balance)
	available, _ := decimal.NewFromString(accounts[0].Available)
	return domain.AccountBalance{Total: total, Available: available}, nil
}

func (k *KucoinAdapter) GetUnsettledLoans(ctx context.Context, currency string, page int) (domain.UnsettledLoanPage, error) {
	var data struct {
		TotalPage int `json:"totalPage"`
		TotalNum  int `json:"totalNum"`
		Items     []struct {
			Size            string `json:"size"`
			Repaid          string `json:"repaid"`
			AccruedInterest string `json:"accruedInterest"`
			DailyIntRate    string `json:"dailyIntRate"`
		} `json:"items"`
	}
	path := fmt.Sprintf("/api/v1/margin/lend/trade/unsettled?currency=%s&currentPage=%d&pageSize=50", currency, page)
	if err := k.call(ctx, "GET", path, nil, &data); err != nil {
		return domain.UnsettledLoanPage{}, err
	}

	result := domain.UnsettledLoanPage{
		TotalPages: data.TotalPage,
		TotalCount: data.TotalNum,
	}
	for _, item := range data.Items {
		size, _ := decimal.NewFromString(item.Size)
		repaid, _ := decimal.NewFromString(item.Repaid)
		accrued, _ := decimal.NewFromString(item.AccruedInterest)
		rate, _ := decimal.NewFromString(item.DailyIntRate)
		result.Items = append(result.Items, domain.UnsettledLoan{
			Size:            size,
			Repaid:          repaid,
			AccruedInterest: accrued,
			DailyRate:       rate,
		})
	}
	return result, nil
}

func (k *KucoinAdapter) GetActiveOffers(ctx context.Context, currency string) ([]domain.LendOrder, error) {
	var data struct {
		TotalNum int `json:"totalNum"`
		Items    []struct {
			OrderID      string `json:"orderId"`
			DailyIntRate string `json:"dailyIntRate"`
			Size         string `json:"size"`
			FilledSize   string `json:"filledSize"`
		} `json:"items"`
	}
	path := "/api/v1/margin/lend/active?currency=" + currency
	if err := k.call(ctx, "GET", path, nil, &data); err != nil {
		return nil, err
	}
	if data.TotalNum == 0 {
		return nil, nil
	}

	var orders []domain.LendOrder
	for _, item := range data.Items {
		rate, _ := decimal.NewFromString(item.DailyIntRate)
		size, _ := decimal.NewFromString(item.Size)
		filled, _ := decimal.NewFromString(item.FilledSize)
		orders = append(orders, domain.LendOrder{
			OrderID:    item.OrderID,
			DailyRate:  rate,
			Size:       size,
			FilledSize: filled,
		})
	}
	return orders, nil
}

func (k *KucoinAdapter) GetLendingMarket(ctx context.Context, currency string) ([]domain.MarketLine, error) {
	var data []struct {
		DailyIntRate string `json:"dailyIntRate"`
		Size         string `json:"size"`
	}
	path := "/api/v1/margin/market?currency=" + currency
	if err := k.call(ctx, "GET", path, nil, &data); err != nil {
		return nil, err
	}

	var lines []domain.MarketLine
	for _, item := range data {
		rate, _ := decimal.NewFromString(item.DailyIntRate)
		size, _ := decimal.NewFromString(item.Size)
		lines = append(lines, domain.MarketLine{DailyRate: rate, Size: size})
	}
	return lines, nil
}

func (k *KucoinAdapter) CreateLendOffer(ctx context.Context, currency string, dailyRate, size decimal.Decimal, term int) error {
	// The API takes the fractional daily rate, truncated to 5dp.
	payload := map[string]interface{}{
		"currency":     currency,
		"size":         size.String(),
		"dailyIntRate": dailyRate.Div(decimal.NewFromInt(100)).Truncate(5).String(),
		"term":         term,
	}
	return k.call(ctx, "POST", "/api/v1/margin/lend", payload, nil)
}

func (k *KucoinAdapter) CancelLendOffer(ctx context.Context, orderID string) error {
	return k.call(ctx, "DELETE", "/api/v1/margin/lend/"+orderID, nil, nil)
}
