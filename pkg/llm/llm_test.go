package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sead/sqlassist/pkg/config"
)

type recordedRequest struct {
	Path string
	Body map[string]interface{}
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, r recordedRequest)) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		handler(w, recordedRequest{Path: r.URL.Path, Body: body})
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		OpenAIAPIKey:           "sk-test",
		LLMBaseURL:             srv.URL + "/",
		LLMChatModel:           "gpt-4",
		LLMEmbeddingModel:      "text-embedding-ada-002",
		LLMEmbeddingDimensions: 1536,
	}
	return New(cfg, option.WithMaxRetries(0))
}

func TestSubmit(t *testing.T) {
	var got recordedRequest
	c := newTestClient(t, func(w http.ResponseWriter, r recordedRequest) {
		got = r
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "SELECT 1"}}]
		}`))
	})

	out, err := c.Submit(context.Background(), []Message{
		{Role: RoleSystem, Content: "You are a PostgreSQL expert."},
		{Role: RoleUser, Content: "How many sites?"},
		{Role: RoleAssistant, Content: "SELECT count(tbl_sites.site_id) FROM tbl_sites"},
		{Role: RoleUser, Content: "And datasets?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", out)

	assert.True(t, strings.HasSuffix(got.Path, "/chat/completions"), got.Path)
	assert.Equal(t, "gpt-4", got.Body["model"])
	msgs, ok := got.Body["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, msgs, 4)
	roles := make([]string, len(msgs))
	for i, m := range msgs {
		roles[i] = m.(map[string]interface{})["role"].(string)
	}
	assert.Equal(t, []string{"system", "user", "assistant", "user"}, roles)
}

func TestSubmitNoChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ recordedRequest) {
		_, _ = w.Write([]byte(`{"id": "chatcmpl-2", "object": "chat.completion", "created": 1, "model": "gpt-4", "choices": []}`))
	})
	_, err := c.Submit(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
}

func TestSubmitEmptyPrompt(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ recordedRequest) {
		t.Error("no request expected")
	})
	_, err := c.Submit(context.Background(), nil)
	require.Error(t, err)
}

func TestGenerateEmbeddings(t *testing.T) {
	var got recordedRequest
	c := newTestClient(t, func(w http.ResponseWriter, r recordedRequest) {
		got = r
		_, _ = w.Write([]byte(`{
			"object": "list",
			"model": "text-embedding-ada-002",
			"data": [{"object": "embedding", "index": 0, "embedding": [0.25, -0.5, 1]}],
			"usage": {"prompt_tokens": 3, "total_tokens": 3}
		}`))
	})

	emb, err := c.GenerateEmbeddings(context.Background(), "tbl_sites")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, -0.5, 1}, emb)
	assert.True(t, strings.HasSuffix(got.Path, "/embeddings"), got.Path)
	assert.Equal(t, "tbl_sites", got.Body["input"])
	_, hasDimensions := got.Body["dimensions"]
	assert.False(t, hasDimensions)
}
