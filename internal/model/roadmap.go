package model

import "time"

// Roadmap is a generated, persisted learning plan for a single skill.
type Roadmap struct {
	ID         string    `json:"id,omitempty" db:"id"`
	SkillTitle string    `json:"skill_title" db:"skill_title"`
	Content    string    `json:"roadmap_content" db:"roadmap_content"`
	CreatedAt  time.Time `json:"created_at,omitzero" db:"created_at"`
}

// Learning resource kinds.
const (
	ResourceArticle  = "article"
	ResourceVideo    = "video"
	ResourceExercise = "exercise"
)

// LearningResource is a recommended external learning material.
type LearningResource struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Title  string `json:"title"`
	Source string `json:"source"`
	URL    string `json:"url"`
}
