package redis

// Redis Key 定义与构造器
// 统一管理业务使用的 Redis Key，避免散落的魔法字符串。

const (
	// PrefixWagerIdemResult：投注幂等"结果缓存"Key 的前缀。
	// 缓存某个 idempotency key 对应的第一次成功结果（JSON），重复请求直接返回。
	PrefixWagerIdemResult = "wager:idem:result:"
	// PrefixWagerIdemLock：投注幂等"进行中锁"Key 的前缀。
	// SETNX + TTL 标记 idempotency key 正在处理，吸收瞬时重复请求。
	PrefixWagerIdemLock = "wager:idem:lock:"
)

// IdemResultKey：构造幂等"结果缓存"的完整 Key。
// 形如：wager:idem:result:{idempotency_key}
func IdemResultKey(k string) string { return PrefixWagerIdemResult + k }

// IdemLockKey：构造幂等"进行中锁"的完整 Key。
// 形如：wager:idem:lock:{idempotency_key}
func IdemLockKey(k string) string { return PrefixWagerIdemLock + k }
