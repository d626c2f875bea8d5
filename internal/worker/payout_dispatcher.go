package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"casino-server/common/constant"
	"casino-server/common/helper"
	"casino-server/common/logger"
	"casino-server/internal/gateway"
	"casino-server/internal/metrics"
	"casino-server/internal/model"
	"casino-server/internal/state"
	"casino-server/internal/store"
)

// PayoutOptions 派发器参数
type PayoutOptions struct {
	MaxAttempts     int           // 重试上限，超过进入 dead
	BackoffBase     time.Duration // 指数退避基数
	BackoffCap      time.Duration // 退避上限
	PollInterval    time.Duration // 轮询间隔
	BatchSize       int
	DispatchTimeout time.Duration // 单次网关调用超时
	DeferDelay      time.Duration // 同用户已有在途请求时的暂缓时长
}

func (o *PayoutOptions) fillDefaults() {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 8
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 5 * time.Second
	}
	if o.BackoffCap <= 0 {
		o.BackoffCap = 10 * time.Minute
	}
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.DispatchTimeout <= 0 {
		o.DispatchTimeout = 10 * time.Second
	}
	if o.DeferDelay <= 0 {
		o.DeferDelay = 2 * time.Second
	}
}

// PayoutDispatcher 提现派发器：单 worker 轮询到期请求，逐条调网关
// 同一用户同一时刻至多一条在途；失败指数退避重排队，重试耗尽进入 dead
type PayoutDispatcher struct {
	st  *store.Store
	gw  gateway.PaymentGateway
	opt PayoutOptions

	mu       sync.Mutex
	inflight map[int64]bool // 在途用户集合
}

func NewPayoutDispatcher(st *store.Store, gw gateway.PaymentGateway, opt PayoutOptions) *PayoutDispatcher {
	opt.fillDefaults()
	return &PayoutDispatcher{
		st:       st,
		gw:       gw,
		opt:      opt,
		inflight: make(map[int64]bool),
	}
}

// Start 启动派发循环，通过 ctx 优雅退出
// 启动时先恢复上次进程退出时卡在 inflight 的请求
func (d *PayoutDispatcher) Start(ctx context.Context, wg *sync.WaitGroup) {
	if n, err := d.st.RequeueStuckInflight(ctx); err != nil {
		logger.Error("payout: 恢复 inflight 请求失败", zap.Error(err))
	} else if n > 0 {
		logger.Info("payout: 已恢复上次未完成的在途请求", zap.Int64("count", n))
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(d.opt.PollInterval)
		defer ticker.Stop()

		depthTick := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.drainOnce(ctx)

				// 每 10 个周期上报一次队列深度
				depthTick++
				if depthTick >= 10 {
					depthTick = 0
					d.reportDepth(ctx)
				}
			}
		}
	}()
}

// drainOnce 取一批到期请求逐条派发
func (d *PayoutDispatcher) drainOnce(ctx context.Context) {
	c, cancel := context.WithTimeout(ctx, 2*time.Second)
	due, err := d.st.DuePayouts(c, store.NowMs(), d.opt.BatchSize)
	cancel()
	if err != nil {
		logger.Warn("payout: 查询到期请求失败", zap.Error(err))
		return
	}

	for i := range due {
		if ctx.Err() != nil {
			return
		}
		d.dispatch(ctx, &due[i])
	}
}

// dispatch 处理单条请求：抢占 -> 网关转账 -> 状态落库
func (d *PayoutDispatcher) dispatch(ctx context.Context, p *model.PayoutRequest) {
	start := time.Now()

	// 同一用户已有在途请求时暂缓，不阻塞整个队列
	d.mu.Lock()
	if d.inflight[p.UserID] {
		d.mu.Unlock()
		next := store.NowMs() + d.opt.DeferDelay.Milliseconds()
		if err := d.st.DeferPayout(ctx, p.ID, next); err != nil {
			logger.Warn("payout: 暂缓失败", zap.Int64("payout_id", p.ID), zap.Error(err))
		}
		metrics.RecordPayoutDispatch("deferred", start)
		return
	}
	d.inflight[p.UserID] = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		delete(d.inflight, p.UserID)
		d.mu.Unlock()
	}()

	if _, err := state.NextState(p.Status, state.EvtDispatch); err != nil {
		logger.Warn("payout: 非法状态跳过", zap.Int64("payout_id", p.ID),
			zap.String("status", constant.PayoutStatusStr(p.Status)))
		return
	}

	// 条件更新抢占，并发下只有一个成功
	ok, err := d.st.MarkPayoutInflight(ctx, p.ID)
	if err != nil || !ok {
		if err != nil {
			logger.Warn("payout: 抢占失败", zap.Int64("payout_id", p.ID), zap.Error(err))
		}
		return
	}
	attempts := p.Attempts + 1

	gwCtx, cancel := context.WithTimeout(ctx, d.opt.DispatchTimeout)
	res, err := d.gw.Transfer(gwCtx, p.UserID, p.Amount, p.Currency, p.SpendID)
	cancel()

	if err != nil {
		d.onFailure(ctx, p, attempts, err, start)
		return
	}

	if err := d.st.MarkPayoutCompleted(ctx, p.ID, res.TransferID); err != nil {
		logger.Error("payout: 完成状态落库失败",
			zap.Int64("payout_id", p.ID), zap.String("transfer_id", res.TransferID), zap.Error(err))
		return
	}
	metrics.RecordPayoutDispatch("success", start)
	logger.Info("payout: 转账成功",
		zap.Int64("payout_id", p.ID), zap.Int64("user_id", p.UserID),
		zap.Float64("amount", p.Amount), zap.String("transfer_id", res.TransferID),
		zap.Int("attempts", attempts))

	d.emitFinished(ctx, p, constant.PayoutCompleted, res.TransferID)
}

// onFailure 失败处理：指数退避重排队，重试耗尽进入 dead
func (d *PayoutDispatcher) onFailure(ctx context.Context, p *model.PayoutRequest, attempts int, gwErr error, start time.Time) {
	backoff := d.opt.BackoffBase
	for i := 1; i < attempts && backoff < d.opt.BackoffCap; i++ {
		backoff *= 2
	}
	if backoff > d.opt.BackoffCap {
		backoff = d.opt.BackoffCap
	}
	next := store.NowMs() + helper.Jitter(backoff, 0.1).Milliseconds()

	if err := d.st.MarkPayoutFailed(ctx, p.ID, truncate(gwErr.Error(), 255), next, d.opt.MaxAttempts); err != nil {
		logger.Error("payout: 失败状态落库失败", zap.Int64("payout_id", p.ID), zap.Error(err))
		return
	}

	if attempts >= d.opt.MaxAttempts {
		metrics.RecordPayoutDispatch("dead", start)
		logger.Error("payout: 重试耗尽进入 dead，需人工介入",
			zap.Int64("payout_id", p.ID), zap.Int64("user_id", p.UserID),
			zap.Float64("amount", p.Amount), zap.Int("attempts", attempts),
			zap.String("last_error", gwErr.Error()))
		d.emitFinished(ctx, p, constant.PayoutDead, "")
		return
	}

	metrics.RecordPayoutDispatch("fail", start)
	logger.Warn("payout: 转账失败，已重排队",
		zap.Int64("payout_id", p.ID), zap.Int64("user_id", p.UserID),
		zap.Int("attempts", attempts), zap.Duration("backoff", backoff),
		zap.Error(gwErr))
}

// emitFinished 终态领域事件落 outbox
func (d *PayoutDispatcher) emitFinished(ctx context.Context, p *model.PayoutRequest, status int8, transferID string) {
	payload, _ := json.Marshal(map[string]interface{}{
		"payout_id":   p.ID,
		"user_id":     p.UserID,
		"amount":      p.Amount,
		"status":      constant.PayoutStatusStr(status),
		"transfer_id": transferID,
	})
	evt := &model.OutboxEvent{
		EventType: model.EventPayoutFinished,
		BizID:     p.SpendID,
		Payload:   string(payload),
		TraceID:   p.TraceID,
	}
	if err := d.st.CreateOutboxEvent(ctx, evt); err != nil {
		logger.Warn("payout: 终态事件落库失败", zap.Int64("payout_id", p.ID), zap.Error(err))
	}
}

func (d *PayoutDispatcher) reportDepth(ctx context.Context) {
	byStatus, err := d.st.CountPayoutsByStatus(ctx)
	if err != nil {
		return
	}
	for st, n := range byStatus {
		metrics.SetPayoutQueueDepth(constant.PayoutStatusStr(st), n)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
