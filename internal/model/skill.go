package model

// Skill level bounds. Levels are clamped into this range on every write,
// never stored out of range.
const (
	SkillLevelMin = 0
	SkillLevelMax = 100
)

// Skill is a tracked proficiency. Subject is unique per user and acts as
// a natural key alongside the id.
type Skill struct {
	ID      string `json:"id,omitempty" db:"id"`
	Subject string `json:"subject" db:"subject"`
	Level   int    `json:"level" db:"level"`
}

// ClampLevel snaps a proficiency level into [SkillLevelMin, SkillLevelMax].
func ClampLevel(level int) int {
	if level < SkillLevelMin {
		return SkillLevelMin
	}
	if level > SkillLevelMax {
		return SkillLevelMax
	}
	return level
}
