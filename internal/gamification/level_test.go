package gamification

import (
	"testing"
	"time"

	"github.com/cyclelog/platform/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestCalculateLevel(t *testing.T) {
	tests := []struct {
		totalXP  int
		level    int
		nextXP   int
		progress float64
	}{
		{0, 1, 100, 0},
		{50, 1, 100, 50},
		{99, 1, 100, 99},
		{100, 2, 400, 0},
		{399, 2, 400, 299.0 / 300.0 * 100},
		{400, 3, 900, 0},
		{500, 3, 900, 20},
		{10000, 11, 12100, 0},
	}
	for _, tt := range tests {
		info := CalculateLevel(tt.totalXP)
		assert.Equal(t, tt.level, info.Level, "xp=%d", tt.totalXP)
		assert.Equal(t, tt.nextXP, info.NextLevelXP, "xp=%d", tt.totalXP)
		assert.Equal(t, tt.totalXP, info.CurrentXP, "xp=%d", tt.totalXP)
		assert.InDelta(t, tt.progress, info.Progress, 0.0001, "xp=%d", tt.totalXP)
	}
}

func TestCalculateLevel_NegativeIsZero(t *testing.T) {
	info := CalculateLevel(-50)
	assert.Equal(t, 1, info.Level)
	assert.Equal(t, 100, info.NextLevelXP)
	assert.Equal(t, 0, info.CurrentXP)
}

func TestCalculateLevel_NonDecreasing(t *testing.T) {
	prev := 0
	for xp := 0; xp <= 250_000; xp += 37 {
		level := CalculateLevel(xp).Level
		assert.GreaterOrEqual(t, level, prev, "xp=%d", xp)
		prev = level
	}
}

func TestCalculateStreak(t *testing.T) {
	now := at("2026-10-16", 15)
	deletedAt := at("2026-10-14", 9)
	deleted := profitCycle("2026-10-13", 9, 1)
	deleted.DeletedAt = &deletedAt

	tests := []struct {
		name   string
		cycles []domain.Cycle
		want   int
	}{
		{"empty", nil, 0},
		{"today only", []domain.Cycle{profitCycle("2026-10-16", 9, 1)}, 1},
		{"ending yesterday", []domain.Cycle{profitCycle("2026-10-15", 9, 1), profitCycle("2026-10-14", 9, -1)}, 2},
		{"stale", []domain.Cycle{profitCycle("2026-10-14", 9, 1)}, 0},
		{"gap breaks run", []domain.Cycle{
			profitCycle("2026-10-16", 9, 1),
			profitCycle("2026-10-15", 9, 1),
			profitCycle("2026-10-15", 10, 1),
			profitCycle("2026-10-13", 9, 1),
		}, 2},
		{"deleted cycles do not count", []domain.Cycle{
			profitCycle("2026-10-15", 9, 1),
			profitCycle("2026-10-14", 9, 1),
			deleted,
		}, 2},
		{"bad dates ignored", []domain.Cycle{{Date: "not-a-date"}, profitCycle("2026-10-16", 9, 1)}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateStreak(tt.cycles, now, time.UTC))
		})
	}
}
