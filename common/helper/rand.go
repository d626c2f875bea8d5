package helper

import (
	"time"

	"golang.org/x/exp/rand"
)

// 仅播种一次；每次取数前重新播种会让相邻抽样来自强相关的种子
func init() {
	rand.Seed(uint64(time.Now().UnixNano()))
}

// GenerateRandNum 生成 [min, max) 区间的随机整数
func GenerateRandNum(min, max int) int {
	return min + rand.Intn(max-min)
}

// Jitter 在 base 上附加至多 frac 比例的随机抖动，用于重试退避打散
func Jitter(base time.Duration, frac float64) time.Duration {
	if base <= 0 || frac <= 0 {
		return base
	}
	span := int(float64(base) * frac)
	if span <= 0 {
		return base
	}
	return base + time.Duration(GenerateRandNum(0, span))
}
