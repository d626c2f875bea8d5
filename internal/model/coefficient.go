package model

// CoeffKey 赔率/限额配置键，存储键名固定，拒绝未知键写入
type CoeffKey string

const (
	KefMoreLess      CoeffKey = "kef_more_less"      // 大小盘赔率
	KefNumber        CoeffKey = "kef_number"         // 猜点数赔率
	KefEvenOdd       CoeffKey = "kef_even_odd"       // 单双赔率
	KefRouletteColor CoeffKey = "kef_roulette_color" // 轮盘红黑赔率
	KefRouletteGreen CoeffKey = "kef_roulette_green" // 轮盘绿 0 赔率
	KefSportGoal     CoeffKey = "kef_sport_goal"
	KefSportMiss     CoeffKey = "kef_sport_miss"
	KefSlotsThree    CoeffKey = "kef_slots_three" // 老虎机三连
	KefSlotsTwo      CoeffKey = "kef_slots_two"   // 老虎机两连
	KefKnb           CoeffKey = "kef_knb"         // 石头剪刀布
	MinBet           CoeffKey = "min_bet"
	MaxBet           CoeffKey = "max_bet"
	MinWithdraw      CoeffKey = "min_withdraw"
)

// DefaultCoefficients 初始值，首次建表时写入
var DefaultCoefficients = map[CoeffKey]float64{
	KefMoreLess:      2.0,
	KefNumber:        6.0,
	KefEvenOdd:       2.0,
	KefRouletteColor: 2.0,
	KefRouletteGreen: 14.0,
	KefSportGoal:     2.5,
	KefSportMiss:     2.5,
	KefSlotsThree:    20.0,
	KefSlotsTwo:      10.0,
	KefKnb:           3.0,
	MinBet:           0.1,
	MaxBet:           30.0,
	MinWithdraw:      1.0,
}

// IsValidCoeffKey 仅允许上表中的键
func IsValidCoeffKey(k CoeffKey) bool {
	_, ok := DefaultCoefficients[k]
	return ok
}

// Coefficient 对应 coefficients 表
type Coefficient struct {
	Key       string  `db:"coeff_key"`
	Value     float64 `db:"coeff_value"`
	UpdatedBy string  `db:"updated_by"`
	UpdatedAt int64   `db:"updated_at"`
}
