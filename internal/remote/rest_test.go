package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRESTServer(t *testing.T, handler http.HandlerFunc) *RESTClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewRESTClient(server.URL, "service-key")
}

func TestRESTSelectRendersFilterAndOrder(t *testing.T) {
	var gotPath, gotQuery, gotAuth, gotKey string
	c := newRESTServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("apikey")
		w.Write([]byte(`[{"id":"g-1","title":"Learn Go"}]`))
	})

	docs, err := c.Select(context.Background(), "goals",
		Filter{"user_id": "user-1", "completed": false},
		Order{Column: "created_at", Desc: true},
	)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Equal(t, "/rest/v1/goals", gotPath)
	assert.Equal(t, "completed=eq.false&order=created_at.desc&user_id=eq.user-1", gotQuery)
	assert.Equal(t, "Bearer service-key", gotAuth)
	assert.Equal(t, "service-key", gotKey)
}

func TestRESTInsertManyWantsRepresentation(t *testing.T) {
	c := newRESTServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))

		var rows []map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rows))
		for i := range rows {
			rows[i]["id"] = "srv-1"
		}
		json.NewEncoder(w).Encode(rows)
	})

	doc, err := c.Insert(context.Background(), "skills", map[string]any{"subject": "Go", "level": 10})
	require.NoError(t, err)

	var stored map[string]any
	require.NoError(t, json.Unmarshal(doc, &stored))
	assert.Equal(t, "srv-1", stored["id"])
	assert.Equal(t, "Go", stored["subject"])
}

func TestRESTInsertManyRepresentationMismatch(t *testing.T) {
	c := newRESTServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := c.InsertMany(context.Background(), "skills", []any{
		map[string]any{"subject": "Go"},
	})
	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, KindFatal, re.Kind)
	assert.Equal(t, "skills", re.Table)
}

func TestRESTMissingTableIsNotProvisioned(t *testing.T) {
	cases := map[string]string{
		"by code":    `{"code":"PGRST205","message":"relation missing from schema cache"}`,
		"by message": `{"message":"Could not find the table 'public.roadmaps' in the schema cache"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			c := newRESTServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(body))
			})
			_, err := c.Select(context.Background(), "roadmaps", nil, Order{})
			assert.True(t, IsNotProvisioned(err))

			var re *Error
			require.ErrorAs(t, err, &re)
			assert.Equal(t, "roadmaps", re.Table)
		})
	}
}

func TestRESTServerErrorsAreTransient(t *testing.T) {
	for _, status := range []int{http.StatusInternalServerError, http.StatusBadGateway, http.StatusTooManyRequests} {
		c := newRESTServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		err := c.Update(context.Background(), "goals", map[string]any{"completed": true}, Filter{"id": "g-1"})

		var re *Error
		require.ErrorAs(t, err, &re)
		assert.Equal(t, KindTransient, re.Kind, "status %d", status)
	}
}

func TestRESTBadRequestIsFatal(t *testing.T) {
	c := newRESTServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"invalid input syntax"}`))
	})
	err := c.Delete(context.Background(), "goals", Filter{"id": "g-1"})

	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, KindFatal, re.Kind)
	assert.Contains(t, re.Message, "invalid input syntax")
}

func TestRESTRPCPostsArguments(t *testing.T) {
	var gotPath string
	var gotArgs map[string]any
	c := newRESTServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotArgs))
		w.WriteHeader(http.StatusNoContent)
	})

	err := c.RPC(context.Background(), "reset_daily_routines", map[string]any{
		"p_user_id": "user-1",
		"p_today":   "2026-08-30",
	})
	require.NoError(t, err)
	assert.Equal(t, "/rest/v1/rpc/reset_daily_routines", gotPath)
	assert.Equal(t, "user-1", gotArgs["p_user_id"])
}
