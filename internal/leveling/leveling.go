// Package leveling maps accumulated experience points to levels.
//
// Levels are awarded every XPPerLevel points starting at level 1, so
// LevelFromXP and LevelProgress always agree on where a level begins.
package leveling

// XPPerLevel is the XP needed to advance one level
const XPPerLevel = 1000

// Progress describes how far a user is into their current level
type Progress struct {
	CurrentLevelXP int     `json:"current_level_xp"`
	RequiredXP     int     `json:"required_xp"`
	Percent        float64 `json:"percent"`
}

// Change is the outcome of applying an XP delta to a total
type Change struct {
	PreviousXP    int  `json:"previous_xp"`
	TotalXP       int  `json:"total_xp"`
	PreviousLevel int  `json:"previous_level"`
	Level         int  `json:"level"`
	LeveledUp     bool `json:"leveled_up"`
}

// LevelFromXP returns the level for a total XP amount.
// Negative totals are treated as zero.
func LevelFromXP(totalXP int) int {
	if totalXP < 0 {
		totalXP = 0
	}
	return totalXP/XPPerLevel + 1
}

// LevelProgress returns the progress inside currentLevel.
// A currentLevel below 1 is replaced by the level derived from totalXP.
func LevelProgress(totalXP, currentLevel int) Progress {
	if totalXP < 0 {
		totalXP = 0
	}
	if currentLevel < 1 {
		currentLevel = LevelFromXP(totalXP)
	}

	earned := totalXP - (currentLevel-1)*XPPerLevel
	earned = max(0, min(earned, XPPerLevel-1))

	percent := float64(earned) * 100 / float64(XPPerLevel)
	return Progress{
		CurrentLevelXP: earned,
		RequiredXP:     XPPerLevel,
		Percent:        min(percent, 100),
	}
}

// Apply adds delta to totalXP, flooring the result at zero, and reports
// the level before and after. LeveledUp is set once regardless of how
// many levels were gained.
func Apply(totalXP, delta int) Change {
	if totalXP < 0 {
		totalXP = 0
	}
	next := max(0, totalXP+delta)

	c := Change{
		PreviousXP:    totalXP,
		TotalXP:       next,
		PreviousLevel: LevelFromXP(totalXP),
		Level:         LevelFromXP(next),
	}
	c.LeveledUp = c.Level > c.PreviousLevel
	return c
}
