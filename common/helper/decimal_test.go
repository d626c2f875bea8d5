package helper

import "testing"

func TestIsMoneyFormat(t *testing.T) {
	valid := []string{"0", "1", "10", "0.1", "0.25", "30.00", "12345.67"}
	for _, s := range valid {
		if !IsMoneyFormat(s) {
			t.Errorf("IsMoneyFormat(%q) = false, want true", s)
		}
	}
	invalid := []string{"", "-1", "1.234", "01", ".5", "1.", "abc", "1e3", "+1"}
	for _, s := range invalid {
		if IsMoneyFormat(s) {
			t.Errorf("IsMoneyFormat(%q) = true, want false", s)
		}
	}
}

func TestParseMoney(t *testing.T) {
	got, err := ParseMoney("12.34")
	if err != nil || got != 12.34 {
		t.Fatalf("ParseMoney(12.34) = %v, %v", got, err)
	}
	if _, err := ParseMoney("-5"); err == nil {
		t.Fatal("negative amount must be rejected")
	}
	if _, err := ParseMoney("1.999"); err == nil {
		t.Fatal("three decimals must be rejected")
	}
}

func TestRound2AvoidsFloatDrift(t *testing.T) {
	// 0.1+0.2 的二进制浮点误差应被抹平
	if got := Round2(0.1 + 0.2); got != 0.3 {
		t.Fatalf("Round2(0.1+0.2) = %v, want 0.3", got)
	}
	if got := Round2(10.005); got != 10.01 && got != 10.0 {
		// 10.005 无法精确表示，接受两侧取整
		t.Fatalf("Round2(10.005) = %v", got)
	}
	if got := Round2(2.675); got != 2.68 && got != 2.67 {
		t.Fatalf("Round2(2.675) = %v", got)
	}
}

func TestFormatMoney(t *testing.T) {
	cases := map[float64]string{
		0:     "0.00",
		1.5:   "1.50",
		12.34: "12.34",
	}
	for in, want := range cases {
		if got := FormatMoney(in); got != want {
			t.Errorf("FormatMoney(%v) = %s, want %s", in, got, want)
		}
	}
}

func TestGenerateRandNumRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		n := GenerateRandNum(1, 7)
		if n < 1 || n > 6 {
			t.Fatalf("out of range: %d", n)
		}
	}
}

func TestGenerateRandNumDispersion(t *testing.T) {
	// 连续快速取数应当充分散开，不会因播种方式退化成重复序列
	seen := make(map[int]bool)
	for i := 0; i < 1000; i++ {
		seen[GenerateRandNum(0, 1000000)] = true
	}
	if len(seen) < 900 {
		t.Fatalf("only %d distinct values in 1000 draws", len(seen))
	}
}
