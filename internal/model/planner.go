package model

// Planner event categories.
const (
	EventCategoryWork     = "work"
	EventCategorySkill    = "skill"
	EventCategoryPersonal = "personal"
)

// ValidEventCategory reports whether c is one of the known planner
// event categories.
func ValidEventCategory(c string) bool {
	switch c {
	case EventCategoryWork, EventCategorySkill, EventCategoryPersonal:
		return true
	default:
		return false
	}
}

// PlannerEvent is a scheduled calendar entry. Date uses DateLayout and
// Time is free text that sorts lexicographically (24h "HH:MM" recommended).
// The in-memory event collection stays sorted by (date, time) after every
// insert.
type PlannerEvent struct {
	ID       string `json:"id" db:"id"`
	Date     string `json:"date" db:"date"`
	Time     string `json:"time" db:"time"`
	Title    string `json:"title" db:"title"`
	Category string `json:"category" db:"category"`
}

// EventBefore is the planner ordering: date ascending, then time ascending.
func EventBefore(a, b PlannerEvent) bool {
	if a.Date != b.Date {
		return a.Date < b.Date
	}
	return a.Time < b.Time
}
