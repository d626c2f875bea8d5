package service

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"casino-server/common/constant"
	"casino-server/common/helper"
	"casino-server/common/logger"
	"casino-server/internal/game"
	infrds "casino-server/internal/infra/redis"
	"casino-server/internal/metrics"
	"casino-server/internal/model"
	"casino-server/internal/store"
)

// WagerInput 下注输入，金额为字符串（两位小数）
type WagerInput struct {
	UserID         int64
	GameType       string
	Stake          string
	Chosen         string
	IdempotencyKey string
	TraceID        string
}

type WagerOutput struct {
	BillNo       string  `json:"bill_no"`
	Win          bool    `json:"win"`
	Actual       string  `json:"actual"`
	Multiplier   float64 `json:"multiplier"`
	Payout       float64 `json:"payout"`
	BalanceAfter float64 `json:"balance_after"`
}

type WagerService interface {
	PlaceWager(ctx context.Context, in WagerInput) (*WagerOutput, error)
	History(ctx context.Context, userID int64, limit, offset uint) ([]model.Wager, error)
}

type wagerService struct {
	st     *store.Store
	ledger LedgerService
	coeff  CoeffService
}

func NewWagerService(st *store.Store, ledger LedgerService, coeff CoeffService) WagerService {
	return &wagerService{st: st, ledger: ledger, coeff: coeff}
}

var ErrDuplicateInFlight = errors.New("duplicate request in flight")

const (
	// Redis 进行中锁 TTL：吸收瞬时重复请求
	idemLockTTL = 45 * time.Second
	// 结果缓存 TTL：覆盖大多数短时重试窗口
	idemResultTTL = 1 * time.Minute
)

// PlaceWager 下注主流程：
// 校验 -> 幂等检查 -> 扣注金 -> 抽样判定 -> 中奖派彩 -> 注单落库
// 扣款之后任一步失败且注单未落库成功，全额退款补偿，绝不吞注金
func (s *wagerService) PlaceWager(ctx context.Context, in WagerInput) (*WagerOutput, error) {
	start := time.Now()
	result := "fail"
	defer func() { metrics.RecordWager(result, in.GameType, start) }()

	// ---------- 金额与玩法校验 ----------
	stake, err := helper.ParseMoney(in.Stake)
	if err != nil || stake <= 0 {
		return nil, ErrInvalidAmount
	}
	if stake < s.coeff.Get(model.MinBet) {
		return nil, ErrStakeBelowMin
	}
	if stake > s.coeff.Get(model.MaxBet) {
		return nil, ErrStakeAboveMax
	}
	if !game.IsValidType(in.GameType) {
		return nil, ErrInvalidChoice
	}
	if err := game.ValidateChoice(in.GameType, in.Chosen); err != nil {
		return nil, ErrInvalidChoice
	}

	// ---------- Redis 快路径：结果缓存 + 进行中锁 ----------
	if r := infrds.Client(); r != nil && in.IdempotencyKey != "" {
		if bs, _ := r.Get(ctx, infrds.IdemResultKey(in.IdempotencyKey)).Bytes(); len(bs) > 0 {
			var out WagerOutput
			if json.Unmarshal(bs, &out) == nil {
				logger.InfoCtx(ctx, "幂等缓存命中",
					zap.String("idem_key", in.IdempotencyKey), zap.String("bill_no", out.BillNo))
				result = "success"
				return &out, nil
			}
		}

		lockValue := uuid.New().String()
		lockKey := infrds.IdemLockKey(in.IdempotencyKey)
		ok, _ := r.SetNX(ctx, lockKey, lockValue, idemLockTTL).Result()
		if !ok {
			if bs, _ := r.Get(ctx, infrds.IdemResultKey(in.IdempotencyKey)).Bytes(); len(bs) > 0 {
				var out WagerOutput
				if json.Unmarshal(bs, &out) == nil {
					result = "success"
					return &out, nil
				}
			}
			return nil, ErrDuplicateInFlight
		}
		// Lua 脚本原子释放锁（仅当锁值匹配时删除）
		defer func() {
			script := `
				if redis.call("get", KEYS[1]) == ARGV[1] then
					return redis.call("del", KEYS[1])
				else
					return 0
				end
			`
			if _, err := r.Eval(ctx, script, []string{lockKey}, lockValue).Result(); err != nil {
				logger.WarnCtx(ctx, "释放幂等锁失败",
					zap.String("idem_key", in.IdempotencyKey), zap.Error(err))
			}
		}()
	}

	// ---------- MySQL 幂等兜底：已占用的键直接返回首次结果 ----------
	if in.IdempotencyKey != "" {
		if k, err := s.st.GetIdemKey(ctx, in.IdempotencyKey); err == nil && k != nil {
			return s.replayFromBillNo(ctx, k.RefID, &result)
		}
	}

	billNo := generateBillNo(in.UserID)

	// ---------- 扣注金（原子判断余额，无需单独预检查） ----------
	debRec, err := s.ledger.Debit(ctx, LedgerInput{
		UserID:    in.UserID,
		Amount:    stake,
		Kind:      constant.KindBet,
		Reference: billNo,
		TraceID:   in.TraceID,
	})
	if err != nil {
		return nil, err
	}

	// ---------- 抽样判定 ----------
	res, err := game.Resolve(in.GameType, in.Chosen)
	if err != nil {
		s.refund(ctx, in.UserID, stake, billNo, in.TraceID)
		return nil, err
	}

	multiplier := s.multiplierFor(in.GameType, in.Chosen, res)
	payout := 0.0
	if res.Win {
		payout = helper.Round2(stake * multiplier)
	}

	// ---------- 中奖派彩 ----------
	var balanceAfter float64
	if res.Win {
		rec, err := s.ledger.Credit(ctx, LedgerInput{
			UserID:    in.UserID,
			Amount:    payout,
			Kind:      constant.KindWin,
			Reference: billNo,
			TraceID:   in.TraceID,
		})
		if err != nil {
			s.refund(ctx, in.UserID, stake, billNo, in.TraceID)
			return nil, err
		}
		balanceAfter = rec.BalanceAfter
	} else {
		// 未中奖的结算净效果就是扣款本身，直接取扣款流水的余额快照
		balanceAfter = debRec.BalanceAfter
	}

	// ---------- 注单 + 幂等键 + 领域事件落库 ----------
	w := &model.Wager{
		BillNo:     billNo,
		UserID:     in.UserID,
		GameType:   in.GameType,
		Stake:      stake,
		Chosen:     in.Chosen,
		Actual:     res.Actual,
		Multiplier: multiplier,
		Payout:     payout,
		TraceID:    in.TraceID,
		CreatedAt:  store.NowMs(),
	}
	if res.Win {
		w.Win = 1
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"bill_no": billNo, "user_id": in.UserID, "game_type": in.GameType,
		"stake": stake, "win": res.Win, "payout": payout,
	})
	evt := &model.OutboxEvent{
		EventType: model.EventWagerSettled,
		BizID:     billNo,
		Payload:   string(payload),
		TraceID:   in.TraceID,
		CreatedAt: w.CreatedAt,
	}

	if err := s.st.InsertWagerWithEvent(ctx, w, evt, in.IdempotencyKey); err != nil {
		if errors.Is(err, store.ErrIdemConflict) {
			// 并发重复请求已先行完成：回退本次账变，返回首次结果
			if res.Win {
				s.compensate(ctx, in.UserID, payout, billNo, in.TraceID)
			}
			s.refund(ctx, in.UserID, stake, billNo, in.TraceID)
			if k, e := s.st.GetIdemKey(ctx, in.IdempotencyKey); e == nil && k != nil {
				return s.replayFromBillNo(ctx, k.RefID, &result)
			}
			return nil, ErrDuplicateInFlight
		}
		// 注单落库失败：派彩已入账的按缺陷告警，注金退款补偿
		if res.Win {
			logger.ErrorCtx(ctx, "注单落库失败且派彩已入账，需人工核对",
				zap.String("bill_no", billNo), zap.Int64("user_id", in.UserID),
				zap.Float64("payout", payout), zap.Error(err))
		}
		s.refund(ctx, in.UserID, stake, billNo, in.TraceID)
		return nil, err
	}

	out := &WagerOutput{
		BillNo:       billNo,
		Win:          res.Win,
		Actual:       res.Actual,
		Multiplier:   multiplier,
		Payout:       payout,
		BalanceAfter: balanceAfter,
	}

	// 结果写入 Redis 缓存供重复请求命中
	if r := infrds.Client(); r != nil && in.IdempotencyKey != "" {
		if bs, err := json.Marshal(out); err == nil {
			_ = r.Set(ctx, infrds.IdemResultKey(in.IdempotencyKey), bs, idemResultTTL).Err()
		}
	}

	result = "success"
	metrics.RecordWagerAmounts(in.GameType, stake, payout)
	logger.InfoCtx(ctx, "注单结算完成",
		zap.String("bill_no", billNo), zap.Int64("user_id", in.UserID),
		zap.String("game_type", in.GameType), zap.Float64("stake", stake),
		zap.Bool("win", res.Win), zap.Float64("payout", payout))
	return out, nil
}

func (s *wagerService) History(ctx context.Context, userID int64, limit, offset uint) ([]model.Wager, error) {
	if limit == 0 || limit > 200 {
		limit = 50
	}
	return s.st.ListWagers(ctx, userID, limit, offset)
}

// refund 扣款后的失败补偿：全额退回注金
func (s *wagerService) refund(ctx context.Context, userID int64, stake float64, billNo, traceID string) {
	if _, err := s.ledger.Credit(ctx, LedgerInput{
		UserID:    userID,
		Amount:    stake,
		Kind:      constant.KindRefund,
		Reference: billNo,
		TraceID:   traceID,
	}); err != nil {
		// 退款也失败：必须告警，绝不静默吞注金
		logger.ErrorCtx(ctx, "退款补偿失败，需人工介入",
			zap.String("bill_no", billNo), zap.Int64("user_id", userID),
			zap.Float64("stake", stake), zap.Error(err))
	}
}

// compensate 回收已误入账的派彩
func (s *wagerService) compensate(ctx context.Context, userID int64, payout float64, billNo, traceID string) {
	if _, err := s.ledger.Debit(ctx, LedgerInput{
		UserID:    userID,
		Amount:    payout,
		Kind:      constant.KindAdmin,
		Reference: billNo + ":reversal",
		TraceID:   traceID,
	}); err != nil {
		logger.ErrorCtx(ctx, "派彩回收失败，需人工介入",
			zap.String("bill_no", billNo), zap.Int64("user_id", userID),
			zap.Float64("payout", payout), zap.Error(err))
	}
}

// replayFromBillNo 幂等重放：按首次注单号还原返回结果
func (s *wagerService) replayFromBillNo(ctx context.Context, billNo string, result *string) (*WagerOutput, error) {
	w, err := s.st.GetWagerByBillNo(ctx, billNo)
	if err != nil {
		return nil, err
	}
	bal, _ := s.ledger.GetBalance(ctx, w.UserID)
	*result = "success"
	return &WagerOutput{
		BillNo:       w.BillNo,
		Win:          w.Win == 1,
		Actual:       w.Actual,
		Multiplier:   w.Multiplier,
		Payout:       w.Payout,
		BalanceAfter: bal,
	}, nil
}

// multiplierFor 按玩法与选项取赔率；老虎机按中奖档位区分
func (s *wagerService) multiplierFor(gameType, chosen string, res game.Result) float64 {
	switch gameType {
	case game.TypeMoreLess:
		return s.coeff.Get(model.KefMoreLess)
	case game.TypeNumber:
		return s.coeff.Get(model.KefNumber)
	case game.TypeEvenOdd:
		return s.coeff.Get(model.KefEvenOdd)
	case game.TypeRoulette:
		if chosen == game.ChoiceGreen {
			return s.coeff.Get(model.KefRouletteGreen)
		}
		return s.coeff.Get(model.KefRouletteColor)
	case game.TypeSport:
		if chosen == game.ChoiceMiss {
			return s.coeff.Get(model.KefSportMiss)
		}
		return s.coeff.Get(model.KefSportGoal)
	case game.TypeKnb:
		return s.coeff.Get(model.KefKnb)
	case game.TypeSlots:
		switch res.SlotTier {
		case game.SlotThree:
			return s.coeff.Get(model.KefSlotsThree)
		case game.SlotTwo:
			return s.coeff.Get(model.KefSlotsTwo)
		}
		return 0
	}
	return 0
}

// generateBillNo 生成可读注单号：W + 时间 + 用户ID + 随机后缀
func generateBillNo(userID int64) string {
	var b [4]byte
	_, _ = crand.Read(b[:])
	return fmt.Sprintf("W%s%d%s", time.Now().Format("20060102150405"), userID, hex.EncodeToString(b[:]))
}
