package helper

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// 金额格式校验：非负，最多两位小数（预编译正则）
var moneyRe = regexp.MustCompile(`^(?:0|[1-9]\d*)(?:\.\d{1,2})?$`)

// IsMoneyFormat 判断金额格式
func IsMoneyFormat(s string) bool {
	return moneyRe.MatchString(strings.TrimSpace(s))
}

// ParseMoney 解析金额字符串，保留两位小数
// 格式非法或为负时返回错误
func ParseMoney(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if !IsMoneyFormat(s) {
		return 0, errors.New("invalid money format")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.Round(2).InexactFloat64(), nil
}

// Round2 金额统一两位小数，经 decimal 定点运算避免二进制浮点误差
func Round2(f float64) float64 {
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}

// FormatMoney 两位小数的字符串表示（对外展示统一格式）
func FormatMoney(f float64) string {
	return decimal.NewFromFloat(f).StringFixed(2)
}
