package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// CryptoPay 加密货币支付网关（Crypto Pay API）
// 所有调用均受 client 超时约束，不会无限阻塞
type CryptoPay struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewCryptoPay(baseURL, token string, timeout time.Duration) *CryptoPay {
	if baseURL == "" {
		baseURL = "https://pay.crypt.bot/api"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CryptoPay{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

type apiEnvelope struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code int    `json:"code"`
		Name string `json:"name"`
	} `json:"error"`
}

func (c *CryptoPay) call(ctx context.Context, method string, params interface{}, out interface{}) error {
	var body bytes.Buffer
	if params != nil {
		if err := json.NewEncoder(&body).Encode(params); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Crypto-Pay-API-Token", c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if !env.OK {
		if env.Error != nil {
			return fmt.Errorf("gateway %s failed: %d %s", method, env.Error.Code, env.Error.Name)
		}
		return fmt.Errorf("gateway %s failed: status %d", method, resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

// Transfer 向用户转账，spend_id 为网关侧幂等键
func (c *CryptoPay) Transfer(ctx context.Context, userID int64, amount float64, currency, spendID string) (*TransferResult, error) {
	params := map[string]interface{}{
		"user_id":  userID,
		"asset":    currency,
		"amount":   strconv.FormatFloat(amount, 'f', 2, 64),
		"spend_id": spendID,
	}
	var result struct {
		TransferID int64  `json:"transfer_id"`
		Status     string `json:"status"`
	}
	if err := c.call(ctx, "transfer", params, &result); err != nil {
		return nil, err
	}
	return &TransferResult{
		TransferID: strconv.FormatInt(result.TransferID, 10),
		Completed:  result.Status == "completed",
	}, nil
}

// GetBalance 网关侧指定币种余额
func (c *CryptoPay) GetBalance(ctx context.Context, currency string) (float64, error) {
	var result []struct {
		CurrencyCode string `json:"currency_code"`
		Available    string `json:"available"`
	}
	if err := c.call(ctx, "getBalance", nil, &result); err != nil {
		return 0, err
	}
	for _, b := range result {
		if b.CurrencyCode == currency {
			return strconv.ParseFloat(b.Available, 64)
		}
	}
	return 0, fmt.Errorf("currency %s not found in gateway balance", currency)
}

// GetExchangeRate 查询两币种间汇率
func (c *CryptoPay) GetExchangeRate(ctx context.Context, source, target string) (float64, error) {
	var result []struct {
		Source  string `json:"source"`
		Target  string `json:"target"`
		Rate    string `json:"rate"`
		IsValid bool   `json:"is_valid"`
	}
	if err := c.call(ctx, "getExchangeRates", nil, &result); err != nil {
		return 0, err
	}
	for _, r := range result {
		if r.Source == source && r.Target == target && r.IsValid {
			return strconv.ParseFloat(r.Rate, 64)
		}
	}
	return 0, fmt.Errorf("exchange rate %s/%s not available", source, target)
}
