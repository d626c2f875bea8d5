package helper

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	beegocontext "github.com/beego/beego/v2/server/web/context"

	chelper "casino-server/common/helper"
)

// IsJSONContentType 判断是否为 JSON 请求
func IsJSONContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.Contains(ct, "json")
}

// 默认输入保护参数
const (
	defaultJSONMaxBytes int64         = 1 << 20 // 1MB
	defaultParseTimeout time.Duration = 1 * time.Second
)

type deadlineReader struct {
	r        io.Reader
	deadline time.Time
}

func (dr *deadlineReader) Read(p []byte) (int, error) {
	if time.Now().After(dr.deadline) {
		return 0, fmt.Errorf("read timeout")
	}
	return dr.r.Read(p)
}

// jsonBodyReader 在 JSON 分支下为请求体增加大小限制与解析超时保护
func jsonBodyReader(ctx *beegocontext.Context) io.Reader {
	lr := io.LimitReader(ctx.Request.Body, defaultJSONMaxBytes)
	return &deadlineReader{r: lr, deadline: time.Now().Add(defaultParseTimeout)}
}

// GetTraceID 统一提取 trace_id：优先从中间件注入的数据取，其次从常见请求头降级
func GetTraceID(ctx *beegocontext.Context) string {
	if v := ctx.Input.GetData("trace_id"); v != nil {
		return fmt.Sprint(v)
	}
	if h := strings.TrimSpace(ctx.Input.Header("X-Trace-ID")); h != "" {
		return h
	}
	if h := strings.TrimSpace(ctx.Input.Header("Trace-Id")); h != "" {
		return h
	}
	return ""
}

// parseByContentType 按 Content-Type 选择解析函数，减少重复 if/else 分支
func parseByContentType[T any](ctx *beegocontext.Context,
	jsonParser func(io.Reader) (T, bool, string),
	formParser func(*beegocontext.Context) (T, bool, string),
) (T, bool, string) {
	ct := ctx.Input.Header("Content-Type")
	if IsJSONContentType(ct) {
		return jsonParser(jsonBodyReader(ctx))
	}
	return formParser(ctx)
}

// -------- Wager helpers --------

// WagerParsed 为解析后的下注入参（与控制器/服务层解耦）
type WagerParsed struct {
	UserID         int64  `json:"user_id"`
	GameType       string `json:"game_type"`
	Stake          string `json:"stake"`
	Chosen         string `json:"chosen"`
	IdempotencyKey string `json:"idempotency_key"`
}

func ParseWagerFromJSON(r io.Reader) (WagerParsed, bool, string) {
	var out WagerParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return WagerParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

func ParseWagerFromForm(ctx *beegocontext.Context) (WagerParsed, bool, string) {
	var out WagerParsed
	uidStr := strings.TrimSpace(ctx.Input.Query("user_id"))
	if uidStr != "" {
		u64, err := strconv.ParseInt(uidStr, 10, 64)
		if err != nil {
			return WagerParsed{}, false, "user_id must be integer"
		}
		out.UserID = u64
	}
	out.GameType = strings.TrimSpace(ctx.Input.Query("game_type"))
	out.Stake = strings.TrimSpace(ctx.Input.Query("stake"))
	out.Chosen = strings.TrimSpace(ctx.Input.Query("chosen"))
	out.IdempotencyKey = strings.TrimSpace(ctx.Input.Query("idempotency_key"))
	return out, true, ""
}

// ValidateWager 对通用字段做二次校验（适用于 JSON 与 FORM）
func ValidateWager(in *WagerParsed) (bool, string) {
	if strings.TrimSpace(in.GameType) == "" || strings.TrimSpace(in.Stake) == "" {
		return false, "missing required fields: game_type/stake"
	}
	// 额外长度保护，避免异常超长输入
	if len(in.GameType) > 32 || len(in.Chosen) > 64 || len(in.Stake) > 32 || len(in.IdempotencyKey) > 64 {
		return false, "invalid request"
	}
	if !chelper.IsMoneyFormat(in.Stake) {
		return false, "stake must be numeric with up to 2 decimals"
	}
	return true, ""
}

// ParseAndValidateWager 按 Content-Type 自动解析并做统一校验
func ParseAndValidateWager(ctx *beegocontext.Context) (WagerParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseWagerFromJSON, ParseWagerFromForm)
	if !ok {
		return WagerParsed{}, false, msg
	}
	if ok, msg := ValidateWager(&out); !ok {
		return WagerParsed{}, false, msg
	}
	return out, true, ""
}

// -------- Promo helpers --------

type PromoActivateParsed struct {
	UserID int64  `json:"user_id"`
	Code   string `json:"code"`
}

func ParsePromoActivateFromJSON(r io.Reader) (PromoActivateParsed, bool, string) {
	var out PromoActivateParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return PromoActivateParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

func ParsePromoActivateFromForm(ctx *beegocontext.Context) (PromoActivateParsed, bool, string) {
	var out PromoActivateParsed
	if uidStr := strings.TrimSpace(ctx.Input.Query("user_id")); uidStr != "" {
		if u64, err := strconv.ParseInt(uidStr, 10, 64); err == nil {
			out.UserID = u64
		}
	}
	out.Code = strings.TrimSpace(ctx.Input.Query("code"))
	return out, true, ""
}

func ValidatePromoActivate(in *PromoActivateParsed) (bool, string) {
	if strings.TrimSpace(in.Code) == "" {
		return false, "code required"
	}
	if len(in.Code) > 64 {
		return false, "invalid request"
	}
	return true, ""
}

func ParseAndValidatePromoActivate(ctx *beegocontext.Context) (PromoActivateParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParsePromoActivateFromJSON, ParsePromoActivateFromForm)
	if !ok {
		return PromoActivateParsed{}, false, msg
	}
	if ok, msg := ValidatePromoActivate(&out); !ok {
		return PromoActivateParsed{}, false, msg
	}
	return out, true, ""
}

// -------- Payout helpers --------

type PayoutEnqueueParsed struct {
	UserID   int64  `json:"user_id"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func ParsePayoutFromJSON(r io.Reader) (PayoutEnqueueParsed, bool, string) {
	var out PayoutEnqueueParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return PayoutEnqueueParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

func ParsePayoutFromForm(ctx *beegocontext.Context) (PayoutEnqueueParsed, bool, string) {
	var out PayoutEnqueueParsed
	if uidStr := strings.TrimSpace(ctx.Input.Query("user_id")); uidStr != "" {
		if u64, err := strconv.ParseInt(uidStr, 10, 64); err == nil {
			out.UserID = u64
		}
	}
	out.Amount = strings.TrimSpace(ctx.Input.Query("amount"))
	out.Currency = strings.TrimSpace(ctx.Input.Query("currency"))
	return out, true, ""
}

func ValidatePayout(in *PayoutEnqueueParsed) (bool, string) {
	if strings.TrimSpace(in.Amount) == "" {
		return false, "amount required"
	}
	if len(in.Amount) > 32 || len(in.Currency) > 16 {
		return false, "invalid request"
	}
	if !chelper.IsMoneyFormat(in.Amount) {
		return false, "amount must be numeric with up to 2 decimals"
	}
	return true, ""
}

func ParseAndValidatePayout(ctx *beegocontext.Context) (PayoutEnqueueParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParsePayoutFromJSON, ParsePayoutFromForm)
	if !ok {
		return PayoutEnqueueParsed{}, false, msg
	}
	if ok, msg := ValidatePayout(&out); !ok {
		return PayoutEnqueueParsed{}, false, msg
	}
	return out, true, ""
}

// -------- Ledger helpers --------

type LedgerChangeParsed struct {
	UserID    int64  `json:"user_id"`
	Amount    string `json:"amount"`
	Kind      string `json:"kind"`
	Reference string `json:"reference"`
}

func ParseLedgerChangeFromJSON(r io.Reader) (LedgerChangeParsed, bool, string) {
	var out LedgerChangeParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return LedgerChangeParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

func ParseLedgerChangeFromForm(ctx *beegocontext.Context) (LedgerChangeParsed, bool, string) {
	var out LedgerChangeParsed
	if uidStr := strings.TrimSpace(ctx.Input.Query("user_id")); uidStr != "" {
		if u64, err := strconv.ParseInt(uidStr, 10, 64); err == nil {
			out.UserID = u64
		}
	}
	out.Amount = strings.TrimSpace(ctx.Input.Query("amount"))
	out.Kind = strings.TrimSpace(ctx.Input.Query("kind"))
	out.Reference = strings.TrimSpace(ctx.Input.Query("reference"))
	return out, true, ""
}

func ValidateLedgerChange(in *LedgerChangeParsed) (bool, string) {
	if in.UserID <= 0 {
		return false, "user_id required"
	}
	if strings.TrimSpace(in.Amount) == "" || !chelper.IsMoneyFormat(in.Amount) {
		return false, "amount must be numeric with up to 2 decimals"
	}
	if len(in.Reference) > 64 {
		return false, "invalid request"
	}
	return true, ""
}

func ParseAndValidateLedgerChange(ctx *beegocontext.Context) (LedgerChangeParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseLedgerChangeFromJSON, ParseLedgerChangeFromForm)
	if !ok {
		return LedgerChangeParsed{}, false, msg
	}
	if ok, msg := ValidateLedgerChange(&out); !ok {
		return LedgerChangeParsed{}, false, msg
	}
	return out, true, ""
}
