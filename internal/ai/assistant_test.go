package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/evolvedge/evolvedge/internal/model"
	syncstore "github.com/evolvedge/evolvedge/internal/sync"
	"github.com/evolvedge/evolvedge/tests/testutil"
)

// fakeSession replays a scripted sequence of model responses and records
// everything sent to it.
type fakeSession struct {
	script []*GenerateResponse
	sent   [][]Part
}

func (f *fakeSession) Send(ctx context.Context, parts ...Part) (*GenerateResponse, error) {
	f.sent = append(f.sent, parts)
	if len(f.script) == 0 {
		return textResponse("out of script"), nil
	}
	next := f.script[0]
	f.script = f.script[1:]
	return next, nil
}

func textResponse(text string) *GenerateResponse {
	return &GenerateResponse{Candidates: []Candidate{
		{Content: Content{Role: "model", Parts: []Part{{Text: text}}}},
	}}
}

func callResponse(name string, args map[string]any) *GenerateResponse {
	return &GenerateResponse{Candidates: []Candidate{
		{Content: Content{Role: "model", Parts: []Part{
			{FunctionCall: &FunctionCall{Name: name, Args: args}},
		}}},
	}}
}

// functionResult extracts the result fed back to the model in a send.
func functionResult(t *testing.T, parts []Part) (string, map[string]any) {
	t.Helper()
	require.Len(t, parts, 1)
	require.NotNil(t, parts[0].FunctionResponse)
	return parts[0].FunctionResponse.Name, parts[0].FunctionResponse.Response
}

func newTestStores(t *testing.T) (*syncstore.Session, *testutil.FakeClient) {
	t.Helper()
	client := testutil.NewFakeClient()
	stores := syncstore.NewSession(client, zap.NewNop(), "user-1")
	require.NoError(t, stores.Open(context.Background()))
	return stores, client
}

func newTestExecutor(session ModelSession, stores *syncstore.Session) *Executor {
	advisor := NewAdvisor(nil, zap.NewNop())
	actions := NewActions(stores, advisor, zap.NewNop())
	return NewExecutor(session, actions, zap.NewNop())
}

func TestExecutorClampsSkillLevel(t *testing.T) {
	stores, _ := newTestStores(t)
	_, err := stores.Skills.AddSkill(context.Background(), "Go")
	require.NoError(t, err)

	session := &fakeSession{script: []*GenerateResponse{
		callResponse("update_skill_level", map[string]any{"skillName": "Go", "newLevel": float64(150)}),
		textResponse("Your Go skill is maxed out."),
	}}

	reply, err := newTestExecutor(session, stores).Run(context.Background(), "set Go to 150")
	require.NoError(t, err)
	assert.Equal(t, "Your Go skill is maxed out.", reply)

	// The stored level and the reported result both carry the clamp.
	skill, ok := stores.Skills.Find(func(s model.Skill) bool { return s.Subject == "Go" })
	require.True(t, ok)
	assert.Equal(t, 100, skill.Level)

	_, result := functionResult(t, session.sent[1])
	assert.Equal(t, true, result["success"])
	assert.Contains(t, result["message"], "100%")
}

func TestExecutorRunsSequentialCalls(t *testing.T) {
	stores, _ := newTestStores(t)

	session := &fakeSession{script: []*GenerateResponse{
		callResponse("add_new_skill", map[string]any{"skillName": "Python"}),
		callResponse("add_new_goal", map[string]any{"goalTitle": "Build a web app"}),
		textResponse("Added the skill and the goal."),
	}}

	reply, err := newTestExecutor(session, stores).Run(context.Background(), "set me up")
	require.NoError(t, err)
	assert.Equal(t, "Added the skill and the goal.", reply)

	// Results go back in execution order.
	name, result := functionResult(t, session.sent[1])
	assert.Equal(t, "add_new_skill", name)
	assert.Equal(t, true, result["success"])
	name, result = functionResult(t, session.sent[2])
	assert.Equal(t, "add_new_goal", name)
	assert.Equal(t, true, result["success"])

	assert.Equal(t, 1, stores.Skills.Len())
	assert.Equal(t, 1, stores.Goals.Len())
}

func TestExecutorReportsUnknownFunction(t *testing.T) {
	stores, _ := newTestStores(t)

	session := &fakeSession{script: []*GenerateResponse{
		callResponse("launch_rocket", map[string]any{"target": "moon"}),
		textResponse("I cannot do that."),
	}}

	reply, err := newTestExecutor(session, stores).Run(context.Background(), "launch")
	require.NoError(t, err)
	assert.Equal(t, "I cannot do that.", reply)

	_, result := functionResult(t, session.sent[1])
	assert.Equal(t, false, result["success"])
	assert.Equal(t, "Function not recognized or failed.", result["message"])
}

func TestExecutorReportsMissingArguments(t *testing.T) {
	stores, _ := newTestStores(t)

	session := &fakeSession{script: []*GenerateResponse{
		callResponse("add_new_goal", map[string]any{}),
		textResponse("Something went wrong."),
	}}

	_, err := newTestExecutor(session, stores).Run(context.Background(), "add a goal")
	require.NoError(t, err)

	_, result := functionResult(t, session.sent[1])
	assert.Equal(t, false, result["success"])
	assert.Equal(t, 0, stores.Goals.Len())
}

func TestExecutorStopsAtIterationCap(t *testing.T) {
	stores, _ := newTestStores(t)

	// The model never stops asking for actions.
	script := make([]*GenerateResponse, 0, maxToolIterations+1)
	for i := 0; i <= maxToolIterations; i++ {
		script = append(script, callResponse("add_new_goal", map[string]any{"goalTitle": "again"}))
	}
	session := &fakeSession{script: script}

	_, err := newTestExecutor(session, stores).Run(context.Background(), "loop forever")
	assert.ErrorIs(t, err, ErrTooManyActions)

	// Initial message plus one result per executed action.
	assert.Len(t, session.sent, maxToolIterations+1)
}

func TestExecutorCreatesPlannerEvent(t *testing.T) {
	stores, _ := newTestStores(t)

	session := &fakeSession{script: []*GenerateResponse{
		callResponse("create_plan", map[string]any{
			"title":    "Learn React Hooks",
			"date":     "2026-09-01",
			"time":     "10:00",
			"category": "skill",
		}),
		textResponse("Scheduled."),
	}}

	_, err := newTestExecutor(session, stores).Run(context.Background(), "plan it")
	require.NoError(t, err)

	_, result := functionResult(t, session.sent[1])
	assert.Equal(t, true, result["success"])
	assert.Contains(t, result["message"], "Learn React Hooks")
	require.Equal(t, 1, stores.Planner.Len())
}

func TestExecutorRejectsInvalidPlanCategory(t *testing.T) {
	stores, _ := newTestStores(t)

	session := &fakeSession{script: []*GenerateResponse{
		callResponse("create_plan", map[string]any{
			"title":    "Nap",
			"date":     "2026-09-01",
			"time":     "15:00",
			"category": "leisure",
		}),
		textResponse("That category does not exist."),
	}}

	_, err := newTestExecutor(session, stores).Run(context.Background(), "plan a nap")
	require.NoError(t, err)

	_, result := functionResult(t, session.sent[1])
	assert.Equal(t, false, result["success"])
	assert.Equal(t, 0, stores.Planner.Len())
}

func TestAssistantWithoutClientRepliesOffline(t *testing.T) {
	stores, _ := newTestStores(t)
	advisor := NewAdvisor(nil, zap.NewNop())
	assistant := NewAssistant(nil, stores, advisor, zap.NewNop())
	assistant.StartConversation()

	assert.False(t, assistant.Available())
	reply := assistant.Send(context.Background(), "mock-conv-1", true, "hello")
	assert.True(t, reply.Error)
	assert.Equal(t, offlineMessage, reply.Text)
}
