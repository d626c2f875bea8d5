// Package game 玩法判定，纯函数无副作用
// 同一套判定逻辑也供展示层生成模拟开奖，不碰账本
package game

import (
	"fmt"
	"strconv"
	"strings"

	"casino-server/common/helper"
)

// 玩法类型
const (
	TypeMoreLess = "more_less" // 大小（骰子 1-6）
	TypeNumber   = "number"    // 猜点数
	TypeEvenOdd  = "even_odd"  // 单双
	TypeRoulette = "roulette"  // 轮盘 0-36
	TypeSport    = "sport"     // 进球/不进 50/50
	TypeKnb      = "knb"       // 石头剪刀布
	TypeSlots    = "slots"     // 老虎机
)

// 可选项
const (
	ChoiceMore     = "more"
	ChoiceLess     = "less"
	ChoiceEven     = "even"
	ChoiceOdd      = "odd"
	ChoiceRed      = "red"
	ChoiceBlack    = "black"
	ChoiceGreen    = "green"
	ChoiceGoal     = "goal"
	ChoiceMiss     = "miss"
	ChoiceRock     = "rock"
	ChoicePaper    = "paper"
	ChoiceScissors = "scissors"
	ChoiceSpin     = "spin" // 老虎机无需选项
)

// 轮盘红黑分布，固定互斥，0 为绿
var rouletteRed = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 12: true,
	14: true, 16: true, 18: true, 19: true, 21: true, 23: true,
	25: true, 27: true, 30: true, 32: true, 34: true, 36: true,
}

var rouletteBlack = map[int]bool{
	2: true, 4: true, 6: true, 8: true, 10: true, 11: true,
	13: true, 15: true, 17: true, 20: true, 22: true, 24: true,
	26: true, 28: true, 29: true, 31: true, 33: true, 35: true,
}

// 老虎机符号
var slotSymbols = []string{"🍒", "🍋", "🍊", "🍉", "🔔", "⭐", "7️⃣"}

// SlotTier 老虎机中奖档位
type SlotTier int

const (
	SlotLose  SlotTier = 0
	SlotTwo   SlotTier = 2 // 两连
	SlotThree SlotTier = 3 // 三连（头奖）
)

// Result 单次判定结果
// Actual 为实际抽样的可读描述（点数/颜色/符号组合）
type Result struct {
	Win      bool
	Actual   string
	SlotTier SlotTier // 仅 slots 有效
}

// IsValidType 判定玩法类型合法性
func IsValidType(gameType string) bool {
	switch gameType {
	case TypeMoreLess, TypeNumber, TypeEvenOdd, TypeRoulette, TypeSport, TypeKnb, TypeSlots:
		return true
	}
	return false
}

// ValidateChoice 校验选项与玩法是否匹配
func ValidateChoice(gameType, chosen string) error {
	switch gameType {
	case TypeMoreLess:
		if chosen == ChoiceMore || chosen == ChoiceLess {
			return nil
		}
	case TypeNumber:
		if n, err := strconv.Atoi(chosen); err == nil && n >= 1 && n <= 6 {
			return nil
		}
	case TypeEvenOdd:
		if chosen == ChoiceEven || chosen == ChoiceOdd {
			return nil
		}
	case TypeRoulette:
		if chosen == ChoiceRed || chosen == ChoiceBlack || chosen == ChoiceGreen {
			return nil
		}
	case TypeSport:
		if chosen == ChoiceGoal || chosen == ChoiceMiss {
			return nil
		}
	case TypeKnb:
		if chosen == ChoiceRock || chosen == ChoicePaper || chosen == ChoiceScissors {
			return nil
		}
	case TypeSlots:
		// 老虎机不需要选项
		return nil
	default:
		return fmt.Errorf("unknown game type: %s", gameType)
	}
	return fmt.Errorf("invalid choice %q for game %s", chosen, gameType)
}

// Resolve 按玩法规则抽样并判定输赢，每注单次均匀抽样
func Resolve(gameType, chosen string) (Result, error) {
	switch gameType {
	case TypeMoreLess:
		draw := helper.GenerateRandNum(1, 7)
		win := (chosen == ChoiceLess && draw <= 3) || (chosen == ChoiceMore && draw >= 4)
		return Result{Win: win, Actual: strconv.Itoa(draw)}, nil

	case TypeNumber:
		draw := helper.GenerateRandNum(1, 7)
		n, _ := strconv.Atoi(chosen)
		return Result{Win: n == draw, Actual: strconv.Itoa(draw)}, nil

	case TypeEvenOdd:
		draw := helper.GenerateRandNum(1, 7)
		win := (chosen == ChoiceEven && draw%2 == 0) || (chosen == ChoiceOdd && draw%2 == 1)
		return Result{Win: win, Actual: strconv.Itoa(draw)}, nil

	case TypeRoulette:
		draw := helper.GenerateRandNum(0, 37)
		color := RouletteColor(draw)
		return Result{Win: color == chosen, Actual: fmt.Sprintf("%d:%s", draw, color)}, nil

	case TypeSport:
		draw := helper.GenerateRandNum(0, 2)
		actual := ChoiceMiss
		if draw == 1 {
			actual = ChoiceGoal
		}
		return Result{Win: actual == chosen, Actual: actual}, nil

	case TypeKnb:
		moves := []string{ChoiceRock, ChoicePaper, ChoiceScissors}
		bot := moves[helper.GenerateRandNum(0, 3)]
		return Result{Win: knbBeats(chosen, bot), Actual: bot}, nil

	case TypeSlots:
		reels := [3]string{
			slotSymbols[helper.GenerateRandNum(0, len(slotSymbols))],
			slotSymbols[helper.GenerateRandNum(0, len(slotSymbols))],
			slotSymbols[helper.GenerateRandNum(0, len(slotSymbols))],
		}
		tier := slotTier(reels)
		return Result{
			Win:      tier != SlotLose,
			Actual:   strings.Join(reels[:], ""),
			SlotTier: tier,
		}, nil
	}
	return Result{}, fmt.Errorf("unknown game type: %s", gameType)
}

// RouletteColor 轮盘数字到颜色的固定映射
func RouletteColor(n int) string {
	switch {
	case rouletteRed[n]:
		return ChoiceRed
	case rouletteBlack[n]:
		return ChoiceBlack
	default:
		return ChoiceGreen
	}
}

// knbBeats 石头>剪刀>布>石头
func knbBeats(player, bot string) bool {
	switch player {
	case ChoiceRock:
		return bot == ChoiceScissors
	case ChoicePaper:
		return bot == ChoiceRock
	case ChoiceScissors:
		return bot == ChoicePaper
	}
	return false
}

func slotTier(reels [3]string) SlotTier {
	if reels[0] == reels[1] && reels[1] == reels[2] {
		return SlotThree
	}
	if reels[0] == reels[1] || reels[1] == reels[2] || reels[0] == reels[2] {
		return SlotTwo
	}
	return SlotLose
}
