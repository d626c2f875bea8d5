package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTransferSendsIdempotencyKey(t *testing.T) {
	var gotToken, gotSpendID, gotAmount string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transfer" {
			t.Errorf("path = %s, want /transfer", r.URL.Path)
		}
		gotToken = r.Header.Get("Crypto-Pay-API-Token")
		var params map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&params)
		gotSpendID, _ = params["spend_id"].(string)
		gotAmount, _ = params["amount"].(string)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"ok": true,
			"result": map[string]interface{}{
				"transfer_id": 12345,
				"status":      "completed",
			},
		})
	}))
	defer srv.Close()

	gw := NewCryptoPay(srv.URL, "secret-token", time.Second)
	res, err := gw.Transfer(context.Background(), 7, 3.5, "USDT", "sp-1")
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if res.TransferID != "12345" || !res.Completed {
		t.Fatalf("unexpected result: %+v", res)
	}
	if gotToken != "secret-token" {
		t.Fatalf("token = %s", gotToken)
	}
	if gotSpendID != "sp-1" {
		t.Fatalf("spend_id = %s", gotSpendID)
	}
	if gotAmount != "3.50" {
		t.Fatalf("amount = %s, want 3.50", gotAmount)
	}
}

func TestTransferGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"ok":    false,
			"error": map[string]interface{}{"code": 400, "name": "NOT_ENOUGH_COINS"},
		})
	}))
	defer srv.Close()

	gw := NewCryptoPay(srv.URL, "t", time.Second)
	if _, err := gw.Transfer(context.Background(), 7, 3.5, "USDT", "sp-2"); err == nil {
		t.Fatal("expected gateway error")
	}
}

func TestGetBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/getBalance" {
			t.Errorf("path = %s, want /getBalance", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"ok": true,
			"result": []map[string]string{
				{"currency_code": "TON", "available": "1.25"},
				{"currency_code": "USDT", "available": "42.50"},
			},
		})
	}))
	defer srv.Close()

	gw := NewCryptoPay(srv.URL, "t", time.Second)
	bal, err := gw.GetBalance(context.Background(), "USDT")
	if err != nil || bal != 42.50 {
		t.Fatalf("balance = %v, %v; want 42.50", bal, err)
	}
	if _, err := gw.GetBalance(context.Background(), "BTC"); err == nil {
		t.Fatal("missing currency must error")
	}
}

func TestTransferTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "result": map[string]interface{}{}})
	}))
	defer srv.Close()

	gw := NewCryptoPay(srv.URL, "t", 20*time.Millisecond)
	if _, err := gw.Transfer(context.Background(), 1, 1, "USDT", "sp-3"); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestGetExchangeRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/getExchangeRates" {
			t.Errorf("path = %s, want /getExchangeRates", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"ok": true,
			"result": []map[string]interface{}{
				{"source": "TON", "target": "USD", "rate": "5.12", "is_valid": true},
				{"source": "USDT", "target": "USD", "rate": "0.00", "is_valid": false},
			},
		})
	}))
	defer srv.Close()

	gw := NewCryptoPay(srv.URL, "t", time.Second)
	rate, err := gw.GetExchangeRate(context.Background(), "TON", "USD")
	if err != nil || rate != 5.12 {
		t.Fatalf("rate = %v, %v; want 5.12", rate, err)
	}
	if _, err := gw.GetExchangeRate(context.Background(), "USDT", "USD"); err == nil {
		t.Fatal("invalid rate must error")
	}
}
