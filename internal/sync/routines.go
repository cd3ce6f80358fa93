package sync

import (
	"context"

	"go.uber.org/zap"

	"github.com/evolvedge/evolvedge/internal/model"
	"github.com/evolvedge/evolvedge/internal/remote"
)

const (
	routinesTable = "routines"
	resetRoutine  = "reset_daily_routines"
)

// fallbackRoutines is the demo dataset installed when the routines table
// is not provisioned.
var fallbackRoutines = []model.Routine{
	{ID: "mock-r-1", Title: "Morning Meditation", Category: "Mindfulness"},
	{ID: "mock-r-2", Title: "Read for 20 Minutes", Category: "Learning & Growth", Completed: true},
	{ID: "mock-r-3", Title: "Plan Your Day", Category: "Productivity"},
}

// Routines is the synchronized daily-routine collection. Completion flags
// reset once per calendar day, evaluated at load time only.
type Routines struct {
	*Store[model.Routine]

	client remote.Client
	owner  string
	logger *zap.Logger

	// today is overridable in tests.
	today func() string
}

// NewRoutines creates the routine store for one user.
func NewRoutines(client remote.Client, logger *zap.Logger, owner string) *Routines {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Routines{
		Store: NewStore(client, logger, Config[model.Routine]{
			Table:      routinesTable,
			TempPrefix: "r",
			Owner:      owner,
			ID:         func(r *model.Routine) string { return r.ID },
			SetID:      func(r *model.Routine, id string) { r.ID = id },
			Fallback:   fallbackRoutines,
		}),
		client: client,
		owner:  owner,
		logger: logger.Named("routines"),
		today:  model.Today,
	}
}

// Load first asks the backend to reset stale completion flags, then loads
// the collection, then applies the same reset locally for any routine the
// backend missed (or when running against an unprovisioned backend). A
// missing reset procedure is tolerated; the local pass covers it.
func (r *Routines) Load(ctx context.Context) error {
	today := r.today()

	err := r.client.RPC(ctx, resetRoutine, map[string]any{
		"p_user_id": r.owner,
		"p_today":   today,
	})
	if err != nil && !remote.IsNotProvisioned(err) {
		r.logger.Warn("daily reset procedure failed, proceeding",
			zap.Error(err))
	}

	if err := r.Store.Load(ctx); err != nil {
		return err
	}

	return r.Apply(ctx, func(routines []model.Routine) []model.Routine {
		for i := range routines {
			if routines[i].Completed && routines[i].LastCompletedDate != today {
				routines[i].Completed = false
			}
		}
		return routines
	}, nil)
}

// InitializeRoutines adds a batch of routines, skipping titles the user
// already has, with one backend write for the whole batch.
func (r *Routines) InitializeRoutines(ctx context.Context, routines []model.Routine) ([]model.Routine, error) {
	existing := map[string]bool{}
	for _, rec := range r.Records() {
		existing[rec.Title] = true
	}

	drafts := make([]model.Routine, 0, len(routines))
	for _, routine := range routines {
		if routine.Title == "" || existing[routine.Title] {
			continue
		}
		existing[routine.Title] = true
		routine.Completed = false
		routine.LastCompletedDate = ""
		drafts = append(drafts, routine)
	}
	if len(drafts) == 0 {
		return nil, nil
	}

	return r.CreateBatch(ctx, drafts)
}

// ToggleRoutine flips a routine's completion flag, recording today as the
// last completed date so tomorrow's load resets it.
func (r *Routines) ToggleRoutine(ctx context.Context, id string) error {
	routine, ok := r.Find(func(rt model.Routine) bool { return rt.ID == id })
	if !ok {
		return ErrNotFound
	}

	completed := !routine.Completed
	today := r.today()

	return r.Update(ctx, id,
		func(rt *model.Routine) {
			rt.Completed = completed
			rt.LastCompletedDate = today
		},
		map[string]any{
			"completed":           completed,
			"last_completed_date": today,
		},
	)
}
