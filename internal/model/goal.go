package model

import "time"

// Task is a single actionable step owned by exactly one goal.
// Tasks are never shared across goals; deleting the goal deletes its tasks.
type Task struct {
	ID          string `json:"id" db:"id"`
	GoalID      string `json:"goal_id,omitempty" db:"goal_id"`
	Description string `json:"description" db:"description"`
	Completed   bool   `json:"completed" db:"completed"`
}

// Goal is a user-defined objective with an ordered list of owned tasks.
type Goal struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Completed bool      `json:"completed" db:"completed"`
	Tasks     []Task    `json:"tasks,omitempty" db:"-"`
	CreatedAt time.Time `json:"created_at,omitzero" db:"created_at"`
}
