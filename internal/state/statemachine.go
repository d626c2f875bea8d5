package state

import (
	"fmt"

	"casino-server/common/constant"
)

// Event 提现派发事件
const (
	EvtDispatch  = "dispatch"  // worker 取出开始派发
	EvtSucceed   = "succeed"   // 网关转账成功
	EvtFail      = "fail"      // 网关转账失败
	EvtRequeue   = "requeue"   // 失败后退避重排队
	EvtExhausted = "exhausted" // 重试次数耗尽
)

// NextState 根据当前状态与事件计算下一个状态，非法转换报错
// pending -> inflight -> completed
//                     -> failed -> requeued -> inflight -> ...
//                               -> dead（重试耗尽）
func NextState(cur int8, evt string) (int8, error) {
	switch cur {
	case constant.PayoutPending:
		if evt == EvtDispatch {
			return constant.PayoutInflight, nil
		}
	case constant.PayoutInflight:
		switch evt {
		case EvtSucceed:
			return constant.PayoutCompleted, nil
		case EvtFail:
			return constant.PayoutFailed, nil
		}
	case constant.PayoutFailed:
		switch evt {
		case EvtRequeue:
			return constant.PayoutRequeued, nil
		case EvtExhausted:
			return constant.PayoutDead, nil
		}
	case constant.PayoutRequeued:
		if evt == EvtDispatch {
			return constant.PayoutInflight, nil
		}
	}
	return cur, fmt.Errorf("invalid transition: %s --%s--> ?", constant.PayoutStatusStr(cur), evt)
}

// IsTerminal 终态判断：完成或死信后不再参与调度
func IsTerminal(s int8) bool {
	return s == constant.PayoutCompleted || s == constant.PayoutDead
}
