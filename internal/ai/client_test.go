package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServerClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient("test-key", "", 0)
	require.NoError(t, err)
	client.baseURL = server.URL
	return client
}

func TestGenerateTextSendsPromptAndAPIKey(t *testing.T) {
	var got generateRequest
	var gotKey, gotPath string

	client := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-goog-api-key")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		resp := GenerateResponse{Candidates: []Candidate{
			{Content: Content{Role: "model", Parts: []Part{{Text: "  Keep going.\n"}}}},
		}}
		json.NewEncoder(w).Encode(resp)
	})

	text, err := client.GenerateText(context.Background(), "Be brief.", "Motivate me.", nil)
	require.NoError(t, err)
	assert.Equal(t, "Keep going.", text)

	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "/models/gemini-2.5-flash:generateContent", gotPath)
	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "Be brief.", got.SystemInstruction.Parts[0].Text)
	require.Len(t, got.Contents, 1)
	assert.Equal(t, "Motivate me.", got.Contents[0].Parts[0].Text)
	require.NotNil(t, got.GenerationConfig)
	assert.Equal(t, 1024, got.GenerationConfig.MaxOutputTokens)
}

func TestGenerateContentSurfacesAPIError(t *testing.T) {
	client := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"message":"Quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
	})

	_, err := client.GenerateContent(context.Background(), generateRequest{
		Contents: []Content{{Role: "user", Parts: []Part{{Text: "hi"}}}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RESOURCE_EXHAUSTED")
	assert.Contains(t, err.Error(), "Quota exceeded")
}

func TestChatSessionCarriesHistory(t *testing.T) {
	var requests []generateRequest
	client := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)
		resp := GenerateResponse{Candidates: []Candidate{
			{Content: Content{Role: "model", Parts: []Part{{Text: "ok"}}}},
		}}
		json.NewEncoder(w).Encode(resp)
	})

	session := client.NewChat("Act as a coach.", assistantTools())

	_, err := session.Send(context.Background(), Part{Text: "first"})
	require.NoError(t, err)
	_, err = session.Send(context.Background(), Part{Text: "second"})
	require.NoError(t, err)

	require.Len(t, requests, 2)
	// Second request replays the first exchange before the new turn.
	require.Len(t, requests[1].Contents, 3)
	assert.Equal(t, "first", requests[1].Contents[0].Parts[0].Text)
	assert.Equal(t, "ok", requests[1].Contents[1].Parts[0].Text)
	assert.Equal(t, "second", requests[1].Contents[2].Parts[0].Text)
	require.Len(t, requests[1].Tools, 1)
	assert.Len(t, requests[1].Tools[0].FunctionDeclarations, 6)
}

func TestChatSessionDropsFailedTurn(t *testing.T) {
	var calls int
	client := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":{"code":500,"message":"boom","status":"INTERNAL"}}`))
			return
		}
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Contents, 1)
		json.NewEncoder(w).Encode(GenerateResponse{Candidates: []Candidate{
			{Content: Content{Role: "model", Parts: []Part{{Text: "ok"}}}},
		}})
	})

	session := client.NewChat("", nil)
	_, err := session.Send(context.Background(), Part{Text: "hello"})
	require.Error(t, err)
	_, err = session.Send(context.Background(), Part{Text: "retry"})
	require.NoError(t, err)
}

func TestResponseAccessors(t *testing.T) {
	var empty *GenerateResponse
	assert.Equal(t, "", empty.Text())
	assert.Nil(t, empty.FunctionCall())

	resp := &GenerateResponse{Candidates: []Candidate{
		{Content: Content{Parts: []Part{
			{Text: "before "},
			{FunctionCall: &FunctionCall{Name: "add_new_goal"}},
			{Text: "after"},
		}}},
	}}
	assert.Equal(t, "before after", resp.Text())
	require.NotNil(t, resp.FunctionCall())
	assert.Equal(t, "add_new_goal", resp.FunctionCall().Name)
}
