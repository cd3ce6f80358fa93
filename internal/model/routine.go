package model

import "time"

// DateLayout is the calendar-date format used for routine reset markers
// and planner event dates.
const DateLayout = "2006-01-02"

// Routine is a recurring daily habit. The completed flag resets to false
// when LastCompletedDate differs from today; the reset is evaluated at
// load time, not by a background timer.
type Routine struct {
	ID                string `json:"id" db:"id"`
	Title             string `json:"title" db:"title"`
	Category          string `json:"category" db:"category"`
	Completed         bool   `json:"completed" db:"completed"`
	LastCompletedDate string `json:"last_completed_date,omitempty" db:"last_completed_date"`
}

// Today returns the current calendar date in DateLayout form.
func Today() string {
	return time.Now().Format(DateLayout)
}
