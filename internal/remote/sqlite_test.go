package remote

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testutil cannot be used here without an import cycle, so the sqlite
// fixture is duplicated locally.
func newTestDB(t *testing.T) *SQLiteClient {
	t.Helper()
	c, err := NewSQLiteClient(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func insertGoal(t *testing.T, c *SQLiteClient, id, userID, title string, completed bool) map[string]any {
	t.Helper()
	doc, err := c.Insert(context.Background(), "goals", map[string]any{
		"id":        id,
		"user_id":   userID,
		"title":     title,
		"completed": completed,
	})
	require.NoError(t, err)

	var row map[string]any
	require.NoError(t, json.Unmarshal(doc, &row))
	return row
}

func TestInsertAssignsIDForTempRows(t *testing.T) {
	c := newTestDB(t)

	row := insertGoal(t, c, "mock-g-abc", "user-1", "Learn Go", false)
	id, _ := row["id"].(string)
	assert.NotEmpty(t, id)
	assert.False(t, strings.HasPrefix(id, "mock-"))

	kept := insertGoal(t, c, "11111111-2222-3333-4444-555555555555", "user-1", "Ship it", false)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", kept["id"])
}

func TestSelectFiltersByOwnerAndOrders(t *testing.T) {
	c := newTestDB(t)
	ctx := context.Background()

	for _, row := range []map[string]any{
		{"user_id": "user-1", "title": "Morning run", "date": "2026-09-02"},
		{"user_id": "user-1", "title": "Standup", "date": "2026-09-01"},
		{"user_id": "user-2", "title": "Other user", "date": "2026-09-01"},
	} {
		_, err := c.Insert(ctx, "planner_events", row)
		require.NoError(t, err)
	}

	docs, err := c.Select(ctx, "planner_events", Filter{"user_id": "user-1"}, Order{Column: "date"})
	require.NoError(t, err)
	require.Len(t, docs, 2)

	var first, second map[string]any
	require.NoError(t, json.Unmarshal(docs[0], &first))
	require.NoError(t, json.Unmarshal(docs[1], &second))
	assert.Equal(t, "Standup", first["title"])
	assert.Equal(t, "Morning run", second["title"])
}

func TestUpdateMergesPatchIntoDocument(t *testing.T) {
	c := newTestDB(t)
	ctx := context.Background()

	row := insertGoal(t, c, "", "user-1", "Read a book", false)
	id := row["id"].(string)

	err := c.Update(ctx, "goals", map[string]any{
		"completed": true,
		"id":        "hijack",
		"user_id":   "someone-else",
	}, Filter{"id": id})
	require.NoError(t, err)

	docs, err := c.Select(ctx, "goals", Filter{"id": id}, Order{})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	var updated map[string]any
	require.NoError(t, json.Unmarshal(docs[0], &updated))
	assert.Equal(t, true, updated["completed"])
	assert.Equal(t, "Read a book", updated["title"])
	// Identity columns are not patchable.
	assert.Equal(t, id, updated["id"])
	assert.Equal(t, "user-1", updated["user_id"])
}

func TestDeleteRemovesMatchingRows(t *testing.T) {
	c := newTestDB(t)
	ctx := context.Background()

	insertGoal(t, c, "", "user-1", "Keep", false)
	doomed := insertGoal(t, c, "", "user-1", "Drop", false)

	require.NoError(t, c.Delete(ctx, "goals", Filter{"id": doomed["id"]}))

	docs, err := c.Select(ctx, "goals", Filter{"user_id": "user-1"}, Order{})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	var rest map[string]any
	require.NoError(t, json.Unmarshal(docs[0], &rest))
	assert.Equal(t, "Keep", rest["title"])
}

func TestUnknownTableIsRejected(t *testing.T) {
	c := newTestDB(t)

	_, err := c.Select(context.Background(), "users; DROP TABLE goals", nil, Order{})
	require.Error(t, err)

	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, KindFatal, re.Kind)
}

func TestMissingTableClassifiesAsNotProvisioned(t *testing.T) {
	c := newTestDB(t)

	_, err := c.db.Exec("DROP TABLE roadmaps")
	require.NoError(t, err)

	_, selectErr := c.Select(context.Background(), "roadmaps", nil, Order{})
	assert.True(t, IsNotProvisioned(selectErr))

	_, insertErr := c.Insert(context.Background(), "roadmaps", map[string]any{"skill": "Go"})
	assert.True(t, IsNotProvisioned(insertErr))
}

func TestRPCResetsStaleRoutines(t *testing.T) {
	c := newTestDB(t)
	ctx := context.Background()

	seed := []map[string]any{
		{"user_id": "user-1", "title": "Meditate", "completed": true, "last_completed_date": "2026-08-29"},
		{"user_id": "user-1", "title": "Journal", "completed": true, "last_completed_date": "2026-08-30"},
		{"user_id": "user-2", "title": "Untouched", "completed": true, "last_completed_date": "2026-08-29"},
	}
	for _, row := range seed {
		_, err := c.Insert(ctx, "routines", row)
		require.NoError(t, err)
	}

	require.NoError(t, c.RPC(ctx, "reset_daily_routines", map[string]any{
		"p_user_id": "user-1",
		"p_today":   "2026-08-30",
	}))

	completedByTitle := func(userID string) map[string]bool {
		docs, err := c.Select(ctx, "routines", Filter{"user_id": userID}, Order{})
		require.NoError(t, err)
		out := make(map[string]bool, len(docs))
		for _, doc := range docs {
			var row map[string]any
			require.NoError(t, json.Unmarshal(doc, &row))
			out[row["title"].(string)], _ = row["completed"].(bool)
		}
		return out
	}

	user1 := completedByTitle("user-1")
	assert.False(t, user1["Meditate"], "stale routine should reset")
	assert.True(t, user1["Journal"], "routine completed today stays done")
	assert.True(t, completedByTitle("user-2")["Untouched"], "other owners untouched")
}

func TestRPCUnknownFunctionIsNotProvisioned(t *testing.T) {
	c := newTestDB(t)
	err := c.RPC(context.Background(), "grant_wishes", nil)
	assert.True(t, IsNotProvisioned(err))
}
