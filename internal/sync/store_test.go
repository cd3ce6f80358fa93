package sync

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evolvedge/evolvedge/internal/model"
	"github.com/evolvedge/evolvedge/tests/testutil"
)

const testOwner = "user-1"

func TestCreateConfirmsInPlace(t *testing.T) {
	client := testutil.NewFakeClient()
	goals := NewGoals(client, nil, testOwner)
	require.NoError(t, goals.Load(context.Background()))

	first, err := goals.AddGoal(context.Background(), "Learn Go")
	require.NoError(t, err)
	second, err := goals.AddGoal(context.Background(), "Run a 10k")
	require.NoError(t, err)

	// Confirmed ids come from the backend, not the provisional ones.
	assert.False(t, model.IsTempID(first.ID))
	assert.False(t, model.IsTempID(second.ID))

	// Newest first, confirmed in place, no duplicates.
	recs := goals.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "Run a 10k", recs[0].Title)
	assert.Equal(t, "Learn Go", recs[1].Title)
	assert.Equal(t, 2, client.CallCount("Insert", "goals"))
}

func TestCreateRollsBackOnFailure(t *testing.T) {
	client := testutil.NewFakeClient()
	goals := NewGoals(client, nil, testOwner)
	require.NoError(t, goals.Load(context.Background()))

	_, err := goals.AddGoal(context.Background(), "Keeper")
	require.NoError(t, err)
	before := goals.Records()

	client.FailWith("Insert", "goals", testutil.FatalErr("goals"))
	created, err := goals.AddGoal(context.Background(), "Doomed")
	assert.Error(t, err)
	assert.Nil(t, created)

	// The optimistic insert is gone and the prior state is intact.
	assert.Equal(t, before, goals.Records())
}

func TestCreateKeepsRecordWhenTableMissing(t *testing.T) {
	client := testutil.NewFakeClient()
	goals := NewGoals(client, nil, testOwner)
	require.NoError(t, goals.Load(context.Background()))

	client.FailWith("Insert", "goals", testutil.NotProvisionedErr("goals"))
	created, err := goals.AddGoal(context.Background(), "Local only")
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.True(t, model.IsTempID(created.ID))
	assert.True(t, strings.HasPrefix(created.ID, model.TempIDPrefix+"g-"))
	require.Equal(t, 1, goals.Len())

	// Exactly the one failed write, nothing more.
	assert.Equal(t, 1, client.CallCount("Insert", "goals"))
}

func TestLoadFallsBackToDemoData(t *testing.T) {
	client := testutil.NewFakeClient()
	client.FailWith("Select", "goals", testutil.NotProvisionedErr("goals"))

	goals := NewGoals(client, nil, testOwner)
	require.NoError(t, goals.Load(context.Background()))

	assert.Equal(t, StateFallback, goals.State())
	recs := goals.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "Run a 5k marathon", recs[0].Title)
	require.Len(t, recs[0].Tasks, 2)
}

func TestSkillsLoadEmptyWhenTableMissing(t *testing.T) {
	client := testutil.NewFakeClient()
	client.FailWith("Select", "skills", testutil.NotProvisionedErr("skills"))

	skills := NewSkills(client, nil, testOwner)
	require.NoError(t, skills.Load(context.Background()))

	assert.Equal(t, StateFallback, skills.State())
	assert.Equal(t, 0, skills.Len())
}

func TestUpdateRollsBackOnFailure(t *testing.T) {
	client := testutil.NewFakeClient()
	goals := NewGoals(client, nil, testOwner)
	require.NoError(t, goals.Load(context.Background()))

	goal, err := goals.AddGoal(context.Background(), "Read 12 books")
	require.NoError(t, err)
	_, err = goals.AddTask(context.Background(), goal.ID, "Read book one")
	require.NoError(t, err)
	before := goals.Records()

	client.FailWith("Update", "goals", testutil.FatalErr("goals"))
	err = goals.ToggleGoal(context.Background(), goal.ID, true)
	assert.Error(t, err)

	// Deep equality including the nested task list.
	assert.Equal(t, before, goals.Records())
}

func TestUpdateUnknownIDReturnsNotFound(t *testing.T) {
	client := testutil.NewFakeClient()
	goals := NewGoals(client, nil, testOwner)
	require.NoError(t, goals.Load(context.Background()))

	err := goals.ToggleGoal(context.Background(), "missing", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTempRecordsNeverWriteRemote(t *testing.T) {
	client := testutil.NewFakeClient()
	skills := NewSkills(client, nil, testOwner)
	require.NoError(t, skills.Load(context.Background()))

	client.FailWith("Insert", "skills", testutil.NotProvisionedErr("skills"))
	created, err := skills.AddSkill(context.Background(), "Python")
	require.NoError(t, err)
	require.True(t, model.IsTempID(created.ID))

	level, err := skills.UpdateSkill(context.Background(), "Python", 40)
	require.NoError(t, err)
	assert.Equal(t, 40, level)

	// The local-only record stays local on later mutations.
	assert.Equal(t, 0, client.CallCount("Update", "skills"))
	stored, ok := skills.Find(func(sk model.Skill) bool { return sk.Subject == "Python" })
	require.True(t, ok)
	assert.Equal(t, 40, stored.Level)
}

func TestUpdateSkillClampsLevel(t *testing.T) {
	client := testutil.NewFakeClient()
	skills := NewSkills(client, nil, testOwner)
	require.NoError(t, skills.Load(context.Background()))

	_, err := skills.AddSkill(context.Background(), "Go")
	require.NoError(t, err)

	level, err := skills.UpdateSkill(context.Background(), "Go", 150)
	require.NoError(t, err)
	assert.Equal(t, 100, level)

	level, err = skills.UpdateSkill(context.Background(), "Go", -10)
	require.NoError(t, err)
	assert.Equal(t, 0, level)

	stored, ok := skills.Find(func(sk model.Skill) bool { return sk.Subject == "Go" })
	require.True(t, ok)
	assert.Equal(t, 0, stored.Level)
}

func TestAddSkillIgnoresDuplicateSubject(t *testing.T) {
	client := testutil.NewFakeClient()
	skills := NewSkills(client, nil, testOwner)
	require.NoError(t, skills.Load(context.Background()))

	first, err := skills.AddSkill(context.Background(), "Rust")
	require.NoError(t, err)
	second, err := skills.AddSkill(context.Background(), "Rust")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, skills.Len())
	assert.Equal(t, 1, client.CallCount("Insert", "skills"))
}

func TestInitializeSkillsBatchKeptOnMissingTable(t *testing.T) {
	client := testutil.NewFakeClient()
	skills := NewSkills(client, nil, testOwner)
	require.NoError(t, skills.Load(context.Background()))

	client.FailWith("InsertMany", "skills", testutil.NotProvisionedErr("skills"))
	created, err := skills.InitializeSkills(context.Background(), []model.Skill{
		{Subject: "Python", Level: 120},
		{Subject: "SQL", Level: 30},
		{Subject: "Python", Level: 10},
	})
	require.NoError(t, err)

	// Duplicates dropped, levels clamped, whole batch kept locally after
	// the single failed write.
	require.Len(t, created, 2)
	assert.Equal(t, 100, created[0].Level)
	assert.Equal(t, 2, skills.Len())
	assert.Equal(t, 1, client.CallCount("InsertMany", "skills"))
	assert.Equal(t, 0, client.CallCount("Insert", "skills"))
}

func TestPlannerKeepsEventsSorted(t *testing.T) {
	client := testutil.NewFakeClient()
	planner := NewPlanner(client, nil, testOwner)
	require.NoError(t, planner.Load(context.Background()))

	add := func(date, at, title string) {
		_, err := planner.AddEvent(context.Background(), model.PlannerEvent{
			Title:    title,
			Date:     date,
			Time:     at,
			Category: model.EventCategoryWork,
		})
		require.NoError(t, err)
	}

	add("2026-09-02", "14:00", "Later meeting")
	add("2026-09-01", "09:00", "Early standup")
	add("2026-09-02", "08:00", "Morning review")

	recs := planner.Records()
	require.Len(t, recs, 3)
	assert.Equal(t, "Early standup", recs[0].Title)
	assert.Equal(t, "Morning review", recs[1].Title)
	assert.Equal(t, "Later meeting", recs[2].Title)
}

func TestAddEventRejectsUnknownCategory(t *testing.T) {
	client := testutil.NewFakeClient()
	planner := NewPlanner(client, nil, testOwner)
	require.NoError(t, planner.Load(context.Background()))

	_, err := planner.AddEvent(context.Background(), model.PlannerEvent{
		Title:    "Bad",
		Date:     "2026-09-01",
		Time:     "10:00",
		Category: "hobby",
	})
	assert.Error(t, err)
	assert.Equal(t, 0, planner.Len())
	assert.Equal(t, 0, client.CallCount("Insert", "planner_events"))
}

func TestRoutineDailyReset(t *testing.T) {
	client := testutil.NewFakeClient()
	client.SeedRows("routines",
		map[string]any{"id": "r1", "user_id": testOwner, "title": "Meditate", "category": "Mindfulness", "completed": true, "last_completed_date": "2026-08-29"},
		map[string]any{"id": "r2", "user_id": testOwner, "title": "Journal", "category": "Mindfulness", "completed": true, "last_completed_date": "2026-08-30"},
	)

	routines := NewRoutines(client, nil, testOwner)
	routines.today = func() string { return "2026-08-30" }
	require.NoError(t, routines.Load(context.Background()))

	byTitle := map[string]model.Routine{}
	for _, rec := range routines.Records() {
		byTitle[rec.Title] = rec
	}
	// Completed yesterday resets, completed today stays.
	assert.False(t, byTitle["Meditate"].Completed)
	assert.True(t, byTitle["Journal"].Completed)
}

func TestToggleRoutineRecordsToday(t *testing.T) {
	client := testutil.NewFakeClient()
	routines := NewRoutines(client, nil, testOwner)
	routines.today = func() string { return "2026-08-30" }
	require.NoError(t, routines.Load(context.Background()))

	created, err := routines.InitializeRoutines(context.Background(), []model.Routine{
		{Title: "Stretch", Category: "Health"},
	})
	require.NoError(t, err)
	require.Len(t, created, 1)

	require.NoError(t, routines.ToggleRoutine(context.Background(), created[0].ID))

	rec, ok := routines.Find(func(rt model.Routine) bool { return rt.Title == "Stretch" })
	require.True(t, ok)
	assert.True(t, rec.Completed)
	assert.Equal(t, "2026-08-30", rec.LastCompletedDate)
}

func TestToggleTaskUpdatesNestedTask(t *testing.T) {
	client := testutil.NewFakeClient()
	goals := NewGoals(client, nil, testOwner)
	require.NoError(t, goals.Load(context.Background()))

	goal, err := goals.AddGoal(context.Background(), "Ship the project")
	require.NoError(t, err)
	task, err := goals.AddTask(context.Background(), goal.ID, "Write the readme")
	require.NoError(t, err)
	require.False(t, model.IsTempID(task.ID))

	require.NoError(t, goals.ToggleTask(context.Background(), task.ID, true))

	stored, ok := goals.Find(func(g model.Goal) bool { return g.ID == goal.ID })
	require.True(t, ok)
	require.Len(t, stored.Tasks, 1)
	assert.True(t, stored.Tasks[0].Completed)
	assert.Equal(t, 1, client.CallCount("Update", "tasks"))
}

func TestInitializeRoutinesDeduplicatesTitles(t *testing.T) {
	client := testutil.NewFakeClient()
	routines := NewRoutines(client, nil, testOwner)
	require.NoError(t, routines.Load(context.Background()))

	created, err := routines.InitializeRoutines(context.Background(), []model.Routine{
		{Title: "Meditate", Category: "Mindfulness"},
	})
	require.NoError(t, err)
	require.Len(t, created, 1)

	// A second batch with an existing title only adds the new one.
	created, err = routines.InitializeRoutines(context.Background(), []model.Routine{
		{Title: "Meditate", Category: "Mindfulness"},
		{Title: "Journal", Category: "Reflection"},
		{Title: ""},
	})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "Journal", created[0].Title)
	assert.Equal(t, 2, routines.Len())
}

func TestDeleteConversationRollsBack(t *testing.T) {
	client := testutil.NewFakeClient()
	chat := NewChat(client, nil, testOwner)
	require.NoError(t, chat.Load(context.Background()))

	conv, err := chat.NewConversation(context.Background())
	require.NoError(t, err)
	before := chat.Records()

	client.FailWith("Delete", "chat_conversations", testutil.FatalErr("chat_conversations"))
	err = chat.DeleteConversation(context.Background(), conv.ID)
	assert.Error(t, err)
	assert.Equal(t, before, chat.Records())

	client.FailWith("Delete", "chat_conversations", nil)
	require.NoError(t, chat.DeleteConversation(context.Background(), conv.ID))
	assert.Equal(t, 0, chat.Len())
}

func TestGoalsReloadRehydratesTasks(t *testing.T) {
	client := testutil.NewTestClient(t)
	goals := NewGoals(client, nil, testOwner)
	require.NoError(t, goals.Load(context.Background()))

	goal, err := goals.AddGoal(context.Background(), "Give a conference talk")
	require.NoError(t, err)
	_, err = goals.AddTask(context.Background(), goal.ID, "Submit an abstract")
	require.NoError(t, err)
	_, err = goals.AddTask(context.Background(), goal.ID, "Draft the slides")
	require.NoError(t, err)

	// A fresh store over the same database sees the persisted tasks.
	reloaded := NewGoals(client, nil, testOwner)
	require.NoError(t, reloaded.Load(context.Background()))

	got, ok := reloaded.Find(func(g model.Goal) bool { return g.ID == goal.ID })
	require.True(t, ok)
	require.Len(t, got.Tasks, 2)

	descriptions := []string{got.Tasks[0].Description, got.Tasks[1].Description}
	assert.ElementsMatch(t, []string{"Submit an abstract", "Draft the slides"}, descriptions)
	for _, task := range got.Tasks {
		assert.Equal(t, goal.ID, task.GoalID)
	}
}

func TestGoalsLoadToleratesMissingTasksTable(t *testing.T) {
	client := testutil.NewFakeClient()
	client.SeedRows("goals", map[string]any{
		"id": "g-1", "title": "Read more", "user_id": testOwner,
	})
	client.FailWith("Select", "tasks", testutil.NotProvisionedErr("tasks"))

	goals := NewGoals(client, nil, testOwner)
	require.NoError(t, goals.Load(context.Background()))

	got, ok := goals.Find(func(g model.Goal) bool { return g.ID == "g-1" })
	require.True(t, ok)
	assert.Empty(t, got.Tasks)
}

func TestGoalsFallbackKeepsDemoTasks(t *testing.T) {
	client := testutil.NewFakeClient()
	client.FailWith("Select", "goals", testutil.NotProvisionedErr("goals"))
	client.FailWith("Select", "tasks", testutil.NotProvisionedErr("tasks"))

	goals := NewGoals(client, nil, testOwner)
	require.NoError(t, goals.Load(context.Background()))
	require.Equal(t, StateFallback, goals.State())

	got, ok := goals.Find(func(g model.Goal) bool { return len(g.Tasks) > 0 })
	require.True(t, ok)
	assert.NotEmpty(t, got.Tasks)
}
