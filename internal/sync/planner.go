package sync

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/evolvedge/evolvedge/internal/model"
	"github.com/evolvedge/evolvedge/internal/remote"
)

const plannerTable = "planner_events"

// fallbackEvents builds the demo schedule installed when the planner
// table is not provisioned. Events land on today's date so the demo
// calendar is never empty.
func fallbackEvents() []model.PlannerEvent {
	today := model.Today()
	return []model.PlannerEvent{
		{ID: "mock-p-1", Date: today, Time: "09:00", Title: "Team Standup", Category: model.EventCategoryWork},
		{ID: "mock-p-2", Date: today, Time: "10:00", Title: "Learn React Hooks", Category: model.EventCategorySkill},
		{ID: "mock-p-3", Date: today, Time: "14:00", Title: "Project Meeting", Category: model.EventCategoryWork},
	}
}

// Planner is the synchronized calendar collection, always sorted by
// (date, time).
type Planner struct {
	*Store[model.PlannerEvent]

	logger *zap.Logger
}

// NewPlanner creates the planner store for one user.
func NewPlanner(client remote.Client, logger *zap.Logger, owner string) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{
		Store: NewStore(client, logger, Config[model.PlannerEvent]{
			Table:      plannerTable,
			TempPrefix: "p",
			Owner:      owner,
			ID:         func(e *model.PlannerEvent) string { return e.ID },
			SetID:      func(e *model.PlannerEvent, id string) { e.ID = id },
			Less:       model.EventBefore,
			LoadOrder:  remote.Order{Column: "date"},
			Fallback:   fallbackEvents(),
		}),
		logger: logger.Named("planner"),
	}
}

// AddEvent schedules an event at its sorted position. The category must
// be one of the known planner categories.
func (p *Planner) AddEvent(ctx context.Context, event model.PlannerEvent) (*model.PlannerEvent, error) {
	if !model.ValidEventCategory(event.Category) {
		return nil, fmt.Errorf("unknown planner category %q", event.Category)
	}
	return p.Create(ctx, event)
}

// DeleteEvent removes an event from the calendar.
func (p *Planner) DeleteEvent(ctx context.Context, id string) error {
	return p.Delete(ctx, id)
}

// EventsOn returns the events scheduled for one calendar date, in time
// order.
func (p *Planner) EventsOn(date string) []model.PlannerEvent {
	var out []model.PlannerEvent
	for _, event := range p.Records() {
		if event.Date == date {
			out = append(out, event)
		}
	}
	return out
}
