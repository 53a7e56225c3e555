package gamification

import "math"

// xpPerLevelUnit scales the quadratic level curve: level L starts at
// 100*(L-1)^2 total XP.
const xpPerLevelUnit = 100

// LevelInfo is the level derived from a total experience figure.
type LevelInfo struct {
	Level       int     `json:"level"`
	CurrentXP   int     `json:"current_xp"`
	NextLevelXP int     `json:"next_level_xp"`
	Progress    float64 `json:"progress"` // 0-100 within the current level
}

// CalculateLevel converts total experience into a level:
// level = floor(sqrt(totalXP/100)) + 1, next level at 100*level^2.
// Negative totals count as zero.
func CalculateLevel(totalXP int) LevelInfo {
	if totalXP < 0 {
		totalXP = 0
	}
	level := int(math.Floor(math.Sqrt(float64(totalXP)/xpPerLevelUnit))) + 1
	// Guard against float rounding right at a level boundary.
	for levelFloor(level+1) <= totalXP {
		level++
	}
	for level > 1 && levelFloor(level) > totalXP {
		level--
	}

	base := levelFloor(level)
	next := levelFloor(level + 1)
	progress := float64(totalXP-base) / float64(next-base) * 100
	progress = math.Min(100, math.Max(0, progress))

	return LevelInfo{
		Level:       level,
		CurrentXP:   totalXP,
		NextLevelXP: next,
		Progress:    progress,
	}
}

// levelFloor is the total XP at which level starts.
func levelFloor(level int) int {
	return xpPerLevelUnit * (level - 1) * (level - 1)
}
