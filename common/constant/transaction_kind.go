package constant

// 账变类型（transactions.kind）
// 数值码与字符串双写，冗余 kind_str 便于查询
const (
	KindBet      = 1 // 下注扣款
	KindWin      = 2 // 中奖派彩
	KindRefund   = 3 // 退款（结算失败补偿）
	KindPromo    = 4 // 促销码奖励
	KindDeposit  = 5 // 充值
	KindWithdraw = 6 // 提现
	KindAdmin    = 7 // 后台调整
)

// 账变类型描述映射
var transactionKindStr = map[int]string{
	KindBet:      "bet",
	KindWin:      "win",
	KindRefund:   "refund",
	KindPromo:    "promo",
	KindDeposit:  "deposit",
	KindWithdraw: "withdraw",
	KindAdmin:    "admin",
}

var transactionKindCode = func() map[string]int {
	m := make(map[string]int, len(transactionKindStr))
	for c, s := range transactionKindStr {
		m[s] = c
	}
	return m
}()

// TransactionKindStr 获取账变类型字符串（未知类型返回空串）
func TransactionKindStr(kind int) string { return transactionKindStr[kind] }

// TransactionKindCode 由字符串取数值码（未知返回 0）
func TransactionKindCode(s string) int { return transactionKindCode[s] }

// IsValidTransactionKind 验证账变类型是否有效
func IsValidTransactionKind(kind int) bool {
	_, ok := transactionKindStr[kind]
	return ok
}

// 常用账变类型分组
var (
	// 收入类型
	IncomeKinds = []int{KindWin, KindRefund, KindPromo, KindDeposit}

	// 支出类型
	ExpenseKinds = []int{KindBet, KindWithdraw}
)

// IsIncomeKind 判断是否为收入类型
func IsIncomeKind(kind int) bool {
	for _, t := range IncomeKinds {
		if t == kind {
			return true
		}
	}
	return false
}

// IsExpenseKind 判断是否为支出类型
func IsExpenseKind(kind int) bool {
	for _, t := range ExpenseKinds {
		if t == kind {
			return true
		}
	}
	return false
}
