package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"casino-server/common/constant"
	"casino-server/common/helper"
	"casino-server/common/keylock"
	"casino-server/common/logger"
	"casino-server/internal/metrics"
	"casino-server/internal/model"
	"casino-server/internal/store"
)

// CreatePromoInput 新建兑换码输入
type CreatePromoInput struct {
	Code         string
	Amount       float64 // fixed: 固定金额；percentage: 百分比数值（10 表示 10%）
	BonusType    string
	MaxUses      int   // 0 = 不限次数
	ExpiresAt    int64 // 毫秒时间戳，0 = 永不过期
	Restrictions *model.PromoRestrictions
	CreatedBy    string
}

// ActivateOutput 激活结果
type ActivateOutput struct {
	Code         string
	Amount       float64 // 实际入账金额
	BalanceAfter float64
}

type PromoService interface {
	Create(ctx context.Context, in CreatePromoInput) (*model.PromoCode, error)
	Activate(ctx context.Context, userID int64, code, traceID string) (*ActivateOutput, error)
	Get(ctx context.Context, code string) (*model.PromoCode, error)
	List(ctx context.Context, activeOnly bool, limit, offset uint) ([]model.PromoCode, error)
	Deactivate(ctx context.Context, code string) error
	Stats(ctx context.Context) (*model.PromoStats, error)
}

type promoService struct {
	st     *store.Store
	ledger LedgerService
	locks  *keylock.KeyLock
}

func NewPromoService(st *store.Store, ledger LedgerService) PromoService {
	return &promoService{st: st, ledger: ledger, locks: keylock.New(32)}
}

// Create 新建兑换码，code 统一大写，重复返回 ErrDuplicateCode
func (s *promoService) Create(ctx context.Context, in CreatePromoInput) (*model.PromoCode, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if code == "" || in.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	bonusType := in.BonusType
	if bonusType == "" {
		bonusType = model.BonusFixed
	}
	if bonusType != model.BonusFixed && bonusType != model.BonusPercentage {
		return nil, ErrInvalidAmount
	}

	restrictions := ""
	if in.Restrictions != nil {
		bs, err := json.Marshal(in.Restrictions)
		if err != nil {
			return nil, err
		}
		restrictions = string(bs)
	}

	p := &model.PromoCode{
		Code:         code,
		Amount:       helper.Round2(in.Amount),
		BonusType:    bonusType,
		MaxUses:      in.MaxUses,
		ExpiresAt:    in.ExpiresAt,
		Active:       constant.StatusNormal,
		Restrictions: restrictions,
		CreatedBy:    in.CreatedBy,
		CreatedAt:    store.NowMs(),
	}
	if err := s.st.CreatePromo(ctx, p); err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "兑换码已创建",
		zap.String("code", code), zap.Float64("amount", p.Amount),
		zap.String("bonus_type", bonusType), zap.Int("max_uses", in.MaxUses))
	return p, nil
}

// Activate 激活兑换码
// 固定检查顺序，第一个未通过的即为最终拒绝原因：
// 1.存在 2.启用 3.未过期 4.有剩余名额 5.本人未领过 6.限制条件满足
// 名额占用与重复领取由条件更新 + 唯一索引兜底，码级锁内检查与占用不分离
func (s *promoService) Activate(ctx context.Context, userID int64, code, traceID string) (*ActivateOutput, error) {
	start := time.Now()
	result := "fail"
	defer func() { metrics.RecordPromoActivate(result, start) }()

	code = strings.ToUpper(strings.TrimSpace(code))

	var out *ActivateOutput
	err := s.locks.WithLock(keylock.CodeKey(code), func() error {
		p, err := s.st.GetPromo(ctx, code)
		if err != nil {
			return err // ErrPromoNotFound
		}
		if p.Active != constant.StatusNormal {
			return ErrPromoInactive
		}
		if p.Expired(time.Now()) {
			return ErrPromoExpired
		}
		if p.Exhausted() {
			return ErrPromoExhausted
		}
		activated, err := s.st.HasActivated(ctx, code, userID)
		if err != nil {
			return err
		}
		if activated {
			return ErrPromoActivated
		}
		if err := s.checkRestrictions(ctx, userID, p); err != nil {
			return err
		}

		amount, err := s.creditAmount(ctx, userID, p)
		if err != nil {
			return err
		}

		// 激活记录、名额占用与奖励入账同一事务；入账失败（含用户被禁用）
		// 整体回滚，名额不被白白烧掉。用户锁与其它记账路径共用
		var rec *model.Transaction
		if err := s.ledger.WithUserLock(userID, func() error {
			var e error
			rec, e = s.st.ActivatePromo(ctx, code, userID, amount, traceID)
			return e
		}); err != nil {
			return err
		}

		out = &ActivateOutput{Code: code, Amount: amount, BalanceAfter: rec.BalanceAfter}
		return nil
	})
	if err != nil {
		result = promoResultLabel(err)
		return nil, err
	}

	result = "success"
	logger.InfoCtx(ctx, "兑换码激活成功",
		zap.String("code", code), zap.Int64("user_id", userID), zap.Float64("amount", out.Amount))

	// 领域事件异步投递，失败不影响主流程
	payload, _ := json.Marshal(map[string]interface{}{
		"code": code, "user_id": userID, "amount": out.Amount,
	})
	evt := &model.OutboxEvent{
		EventType: model.EventPromoActivated,
		BizID:     code,
		Payload:   string(payload),
		TraceID:   traceID,
	}
	if err := s.st.CreateOutboxEvent(ctx, evt); err != nil {
		logger.WarnCtx(ctx, "激活事件落库失败", zap.String("code", code), zap.Error(err))
	}

	return out, nil
}

// checkRestrictions 校验限制条件：历史充值总额与累计注单数
func (s *promoService) checkRestrictions(ctx context.Context, userID int64, p *model.PromoCode) error {
	r, err := p.ParseRestrictions()
	if err != nil {
		logger.WarnCtx(ctx, "限制条件解析失败", zap.String("code", p.Code), zap.Error(err))
		return ErrPromoRestricted
	}
	if r.MinDeposit > 0 {
		deposits, err := s.st.SumDeltaByKind(ctx, userID, constant.KindDeposit)
		if err != nil {
			return err
		}
		if deposits < r.MinDeposit {
			return ErrPromoRestricted
		}
	}
	if r.MinBets > 0 {
		bets, err := s.st.CountWagers(ctx, userID)
		if err != nil {
			return err
		}
		if bets < r.MinBets {
			return ErrPromoRestricted
		}
	}
	return nil
}

// creditAmount 计算实际入账金额：固定金额或历史充值总额的百分比
func (s *promoService) creditAmount(ctx context.Context, userID int64, p *model.PromoCode) (float64, error) {
	if p.BonusType == model.BonusFixed {
		return helper.Round2(p.Amount), nil
	}
	deposits, err := s.st.SumDeltaByKind(ctx, userID, constant.KindDeposit)
	if err != nil {
		return 0, err
	}
	amount := helper.Round2(deposits * p.Amount / 100)
	if amount <= 0 {
		// 没有充值记录时百分比奖励无从计算，按限制条件未满足处理
		return 0, ErrPromoRestricted
	}
	return amount, nil
}

func (s *promoService) Get(ctx context.Context, code string) (*model.PromoCode, error) {
	return s.st.GetPromo(ctx, strings.ToUpper(strings.TrimSpace(code)))
}

func (s *promoService) List(ctx context.Context, activeOnly bool, limit, offset uint) ([]model.PromoCode, error) {
	if limit == 0 || limit > 200 {
		limit = 50
	}
	return s.st.ListPromos(ctx, activeOnly, limit, offset)
}

func (s *promoService) Deactivate(ctx context.Context, code string) error {
	return s.st.DeactivatePromo(ctx, strings.ToUpper(strings.TrimSpace(code)))
}

func (s *promoService) Stats(ctx context.Context) (*model.PromoStats, error) {
	return s.st.PromoStats(ctx)
}

// promoResultLabel 拒绝原因到指标标签
func promoResultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case err == store.ErrPromoNotFound:
		return "not_found"
	case err == ErrPromoInactive:
		return "inactive"
	case err == ErrPromoExpired:
		return "expired"
	case err == store.ErrPromoExhausted:
		return "exhausted"
	case err == store.ErrPromoActivated:
		return "activated"
	case err == ErrPromoRestricted:
		return "restricted"
	}
	return "fail"
}
