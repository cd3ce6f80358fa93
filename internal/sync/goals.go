package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/evolvedge/evolvedge/internal/model"
	"github.com/evolvedge/evolvedge/internal/remote"
)

const (
	goalsTable = "goals"
	tasksTable = "tasks"
)

// fallbackGoals is the demo dataset installed when the goals table is
// not provisioned.
var fallbackGoals = []model.Goal{
	{ID: "mock-g-1", Title: "Run a 5k marathon", Tasks: []model.Task{
		{ID: "mock-gt-1", Description: "Run 1k", Completed: true},
		{ID: "mock-gt-2", Description: "Run 3k"},
	}},
	{ID: "mock-g-2", Title: "Learn to cook a new dish", Completed: true},
}

// Goals is the synchronized goal collection. Newest goals come first;
// each goal owns its tasks exclusively.
type Goals struct {
	*Store[model.Goal]

	client remote.Client
	owner  string
	logger *zap.Logger
}

// NewGoals creates the goal store for one user.
func NewGoals(client remote.Client, logger *zap.Logger, owner string) *Goals {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Goals{
		Store: NewStore(client, logger, Config[model.Goal]{
			Table:      goalsTable,
			TempPrefix: "g",
			Owner:      owner,
			ID:         func(g *model.Goal) string { return g.ID },
			SetID:      func(g *model.Goal, id string) { g.ID = id },
			Prepend:    true,
			LoadOrder:  remote.Order{Column: "created_at", Desc: true},
			Fallback:   fallbackGoals,
		}),
		client: client,
		owner:  owner,
		logger: logger.Named("goals"),
	}
}

// Load fetches the goal collection, then rehydrates each goal's tasks
// from the tasks table. Tasks live only in their own table, so the task
// lists embedded in goal documents are discarded in favor of the fetched
// rows. A missing tasks table leaves the goals as loaded.
func (g *Goals) Load(ctx context.Context) error {
	if err := g.Store.Load(ctx); err != nil {
		return err
	}
	if g.State() == StateFallback {
		// The demo goals carry their own tasks.
		return nil
	}

	rows, err := g.client.Select(ctx, tasksTable,
		remote.Filter{"user_id": g.owner},
		remote.Order{Column: "created_at"},
	)
	if err != nil {
		if remote.IsNotProvisioned(err) {
			g.logger.Warn("backend tasks table missing, goals loaded without tasks",
				zap.Error(err))
			return nil
		}
		g.logger.Error("loading tasks", zap.Error(err))
		return err
	}

	byGoal := make(map[string][]model.Task, len(rows))
	for _, row := range rows {
		var task model.Task
		if err := json.Unmarshal(row, &task); err != nil {
			g.logger.Error("decoding task", zap.Error(err))
			continue
		}
		byGoal[task.GoalID] = append(byGoal[task.GoalID], task)
	}

	return g.Apply(ctx, func(goals []model.Goal) []model.Goal {
		for i := range goals {
			goals[i].Tasks = byGoal[goals[i].ID]
		}
		return goals
	}, nil)
}

// AddGoal creates a goal with an empty task list at the front of the
// collection. It returns nil when the backend rejects the insert.
func (g *Goals) AddGoal(ctx context.Context, title string) (*model.Goal, error) {
	return g.Create(ctx, model.Goal{Title: title})
}

// DeleteGoal removes a goal and, through backend cascade, its tasks.
func (g *Goals) DeleteGoal(ctx context.Context, id string) error {
	return g.Delete(ctx, id)
}

// ToggleGoal sets a goal's completed flag.
func (g *Goals) ToggleGoal(ctx context.Context, id string, completed bool) error {
	return g.Update(ctx, id,
		func(goal *model.Goal) { goal.Completed = completed },
		map[string]any{"completed": completed},
	)
}

// AddTask appends a task to a goal, mirrored into the tasks table. The
// provisional task follows the same confirm-in-place contract as any
// other record.
func (g *Goals) AddTask(ctx context.Context, goalID, description string) (*model.Task, error) {
	if _, ok := g.Find(func(goal model.Goal) bool { return goal.ID == goalID }); !ok {
		return nil, ErrNotFound
	}

	tempID := model.TempIDPrefix + "gt-" + newSuffix()
	task := model.Task{ID: tempID, GoalID: goalID, Description: description}

	appendTask := func(goals []model.Goal) []model.Goal {
		for i := range goals {
			if goals[i].ID == goalID {
				goals[i].Tasks = append(goals[i].Tasks, task)
			}
		}
		return goals
	}

	// A goal that only exists locally keeps its tasks local too.
	if model.IsTempID(goalID) {
		if err := g.Apply(ctx, appendTask, nil); err != nil {
			return nil, err
		}
		return &task, nil
	}

	var confirmed model.Task
	err := g.Apply(ctx, appendTask, func(ctx context.Context) error {
		row, err := g.client.Insert(ctx, tasksTable, map[string]any{
			"goal_id":     goalID,
			"description": description,
			"completed":   false,
			"user_id":     g.owner,
		})
		if err != nil {
			return err
		}
		if err := json.Unmarshal(row, &confirmed); err != nil {
			return fmt.Errorf("decoding confirmed task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if confirmed.ID == "" {
		// Missing tasks table; the provisional task stays.
		return &task, nil
	}

	swap := func(goals []model.Goal) []model.Goal {
		for i := range goals {
			for j := range goals[i].Tasks {
				if goals[i].Tasks[j].ID == tempID {
					goals[i].Tasks[j] = confirmed
				}
			}
		}
		return goals
	}
	if err := g.Apply(ctx, swap, nil); err != nil {
		return nil, err
	}
	return &confirmed, nil
}

// ToggleTask sets a task's completed flag inside its owning goal. The
// completed value is fixed before both the local and the backend write.
func (g *Goals) ToggleTask(ctx context.Context, taskID string, completed bool) error {
	mutate := func(goals []model.Goal) []model.Goal {
		for i := range goals {
			for j := range goals[i].Tasks {
				if goals[i].Tasks[j].ID == taskID {
					goals[i].Tasks[j].Completed = completed
				}
			}
		}
		return goals
	}

	if model.IsTempID(taskID) {
		return g.Apply(ctx, mutate, nil)
	}

	return g.Apply(ctx, mutate, func(ctx context.Context) error {
		return g.client.Update(ctx, tasksTable,
			map[string]any{"completed": completed},
			remote.Filter{"id": taskID, "user_id": g.owner},
		)
	})
}
