package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveTitle(t *testing.T) {
	assert.Equal(t, "Plan my week", DeriveTitle("Plan my week"))

	exactly30 := "123456789012345678901234567890"
	assert.Equal(t, exactly30, DeriveTitle(exactly30))

	long := "How do I become a better public speaker this year?"
	assert.Equal(t, "How do I become a better publi...", DeriveTitle(long))

	// Truncation counts runes, not bytes.
	wide := "こんにちは、今日は何をするべきでしょうか。長い質問ですね、切り詰めてください"
	got := DeriveTitle(wide)
	assert.Equal(t, 33, len([]rune(got)))
	assert.Equal(t, "...", got[len(got)-3:])
}

func TestClampLevel(t *testing.T) {
	assert.Equal(t, 0, ClampLevel(-10))
	assert.Equal(t, 0, ClampLevel(0))
	assert.Equal(t, 55, ClampLevel(55))
	assert.Equal(t, 100, ClampLevel(100))
	assert.Equal(t, 100, ClampLevel(150))
}

func TestEventBefore(t *testing.T) {
	earlier := PlannerEvent{Date: "2026-09-01", Time: "09:00"}
	later := PlannerEvent{Date: "2026-09-01", Time: "14:00"}
	nextDay := PlannerEvent{Date: "2026-09-02", Time: "08:00"}

	assert.True(t, EventBefore(earlier, later))
	assert.False(t, EventBefore(later, earlier))
	assert.True(t, EventBefore(later, nextDay), "date wins over time")
	assert.False(t, EventBefore(earlier, earlier))
}

func TestValidEventCategory(t *testing.T) {
	for _, c := range []string{EventCategoryWork, EventCategorySkill, EventCategoryPersonal} {
		assert.True(t, ValidEventCategory(c))
	}
	assert.False(t, ValidEventCategory("hobby"))
	assert.False(t, ValidEventCategory(""))
	assert.False(t, ValidEventCategory("Work"))
}

func TestIsTempID(t *testing.T) {
	assert.True(t, IsTempID(TempIDPrefix+"g-123"))
	assert.False(t, IsTempID("11111111-2222-3333-4444-555555555555"))
	assert.False(t, IsTempID(""))
}

func TestUnsetTimestampsStayOutOfDocuments(t *testing.T) {
	raw, err := json.Marshal(Goal{ID: "g-1", Title: "Read more"})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "created_at")

	raw, err = json.Marshal(Roadmap{SkillTitle: "Go", Content: "Step 1"})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "created_at")

	// A stamped record keeps its timestamp.
	stamped := Goal{ID: "g-2", CreatedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)}
	raw, err = json.Marshal(stamped)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"created_at":"2026-08-30T12:00:00Z"`)
}
