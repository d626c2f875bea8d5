package game

import (
	"strconv"
	"strings"
	"testing"
)

func TestValidateChoice(t *testing.T) {
	cases := []struct {
		gameType string
		chosen   string
		ok       bool
	}{
		{TypeMoreLess, ChoiceMore, true},
		{TypeMoreLess, ChoiceLess, true},
		{TypeMoreLess, "middle", false},
		{TypeNumber, "1", true},
		{TypeNumber, "6", true},
		{TypeNumber, "0", false},
		{TypeNumber, "7", false},
		{TypeNumber, "abc", false},
		{TypeEvenOdd, ChoiceEven, true},
		{TypeEvenOdd, ChoiceOdd, true},
		{TypeRoulette, ChoiceRed, true},
		{TypeRoulette, ChoiceGreen, true},
		{TypeRoulette, "blue", false},
		{TypeSport, ChoiceGoal, true},
		{TypeSport, ChoiceMiss, true},
		{TypeKnb, ChoiceRock, true},
		{TypeKnb, ChoiceScissors, true},
		{TypeKnb, "lizard", false},
		{TypeSlots, "", true},
		{"poker", "flush", false},
	}
	for _, c := range cases {
		err := ValidateChoice(c.gameType, c.chosen)
		if c.ok && err != nil {
			t.Errorf("ValidateChoice(%s,%s): unexpected error %v", c.gameType, c.chosen, err)
		}
		if !c.ok && err == nil {
			t.Errorf("ValidateChoice(%s,%s): expected error", c.gameType, c.chosen)
		}
	}
}

func TestRouletteColorPartition(t *testing.T) {
	if RouletteColor(0) != ChoiceGreen {
		t.Fatalf("0 must be green, got %s", RouletteColor(0))
	}
	red, black := 0, 0
	for n := 1; n <= 36; n++ {
		switch RouletteColor(n) {
		case ChoiceRed:
			red++
		case ChoiceBlack:
			black++
		default:
			t.Fatalf("number %d has no color", n)
		}
	}
	if red != 18 || black != 18 {
		t.Fatalf("expected 18 red / 18 black, got %d/%d", red, black)
	}
}

func TestResolveMoreLess(t *testing.T) {
	for i := 0; i < 500; i++ {
		res, err := Resolve(TypeMoreLess, ChoiceMore)
		if err != nil {
			t.Fatalf("resolve error: %v", err)
		}
		draw, err := strconv.Atoi(res.Actual)
		if err != nil || draw < 1 || draw > 6 {
			t.Fatalf("draw out of range: %s", res.Actual)
		}
		if res.Win != (draw >= 4) {
			t.Fatalf("win flag inconsistent: draw=%d win=%v", draw, res.Win)
		}
	}
}

func TestResolveNumber(t *testing.T) {
	for i := 0; i < 500; i++ {
		res, err := Resolve(TypeNumber, "3")
		if err != nil {
			t.Fatalf("resolve error: %v", err)
		}
		if res.Win != (res.Actual == "3") {
			t.Fatalf("win flag inconsistent: actual=%s win=%v", res.Actual, res.Win)
		}
	}
}

func TestResolveRoulette(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 2000; i++ {
		res, err := Resolve(TypeRoulette, ChoiceRed)
		if err != nil {
			t.Fatalf("resolve error: %v", err)
		}
		parts := strings.SplitN(res.Actual, ":", 2)
		if len(parts) != 2 {
			t.Fatalf("bad actual format: %s", res.Actual)
		}
		n, err := strconv.Atoi(parts[0])
		if err != nil || n < 0 || n > 36 {
			t.Fatalf("draw out of range: %s", res.Actual)
		}
		if RouletteColor(n) != parts[1] {
			t.Fatalf("color mismatch: %s", res.Actual)
		}
		if res.Win != (parts[1] == ChoiceRed) {
			t.Fatalf("win flag inconsistent: %s win=%v", res.Actual, res.Win)
		}
		seen[parts[1]] = true
	}
	// 2000 次抽样三种颜色都应出现
	for _, c := range []string{ChoiceRed, ChoiceBlack, ChoiceGreen} {
		if !seen[c] {
			t.Errorf("color %s never drawn in 2000 spins", c)
		}
	}
}

func TestKnbBeats(t *testing.T) {
	wins := map[string]string{
		ChoiceRock:     ChoiceScissors,
		ChoiceScissors: ChoicePaper,
		ChoicePaper:    ChoiceRock,
	}
	moves := []string{ChoiceRock, ChoicePaper, ChoiceScissors}
	for player, beats := range wins {
		for _, bot := range moves {
			got := knbBeats(player, bot)
			want := bot == beats
			if got != want {
				t.Errorf("knbBeats(%s,%s)=%v want %v", player, bot, got, want)
			}
		}
	}
}

func TestSlotTier(t *testing.T) {
	cases := []struct {
		reels [3]string
		tier  SlotTier
	}{
		{[3]string{"🍒", "🍒", "🍒"}, SlotThree},
		{[3]string{"🍒", "🍒", "🍋"}, SlotTwo},
		{[3]string{"🍒", "🍋", "🍒"}, SlotTwo},
		{[3]string{"🍋", "🍒", "🍒"}, SlotTwo},
		{[3]string{"🍒", "🍋", "🍊"}, SlotLose},
	}
	for _, c := range cases {
		if got := slotTier(c.reels); got != c.tier {
			t.Errorf("slotTier(%v)=%v want %v", c.reels, got, c.tier)
		}
	}
}

func TestResolveSlots(t *testing.T) {
	for i := 0; i < 300; i++ {
		res, err := Resolve(TypeSlots, ChoiceSpin)
		if err != nil {
			t.Fatalf("resolve error: %v", err)
		}
		if res.Win != (res.SlotTier != SlotLose) {
			t.Fatalf("win flag inconsistent: tier=%v win=%v", res.SlotTier, res.Win)
		}
	}
}

func TestResolveUnknownType(t *testing.T) {
	if _, err := Resolve("poker", "flush"); err == nil {
		t.Fatal("expected error for unknown game type")
	}
}
