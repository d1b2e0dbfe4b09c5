package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeProvider(t *testing.T) {
	cases := map[string]Provider{
		"OpenAI":      ProviderOpenAI,
		"OpenIA":      ProviderOpenAI,
		" anthropic ": ProviderAnthropic,
		"Mistral":     ProviderMistral,
	}
	for raw, want := range cases {
		got, ok := NormalizeProvider(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	_, ok := NormalizeProvider("gemini")
	assert.False(t, ok)
}

func TestResolveModel(t *testing.T) {
	assert.Equal(t, "gpt-4o-mini", ResolveModel(ProviderOpenAI, ""))
	assert.Equal(t, "mistral-small-latest", ResolveModel(ProviderMistral, "ECO"))
	assert.Equal(t, "claude-opus-4-20250514", ResolveModel(ProviderAnthropic, "performant"))
	assert.Equal(t, "gpt-4.1", ResolveModel(ProviderOpenAI, " gpt-4.1 "))
}

type chatBody struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func TestClientOpenAICompatible(t *testing.T) {
	var captured chatBody
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  - Tabac\n"}}]}`))
	}))
	defer srv.Close()

	for _, p := range []Provider{ProviderOpenAI, ProviderMistral} {
		t.Run(string(p), func(t *testing.T) {
			c, err := NewClient(p, "sk-test", time.Second, WithBaseURL(srv.URL+"/v1/"))
			require.NoError(t, err)

			text, err := c.Complete(context.Background(), "mistral-small-latest", "system", "user")
			require.NoError(t, err)
			assert.Equal(t, "- Tabac", text)
			assert.Equal(t, "/v1/chat/completions", path)
			assert.Equal(t, "mistral-small-latest", captured.Model)
			require.Len(t, captured.Messages, 2)
			assert.Equal(t, "system", captured.Messages[0].Role)
			assert.Equal(t, "system", captured.Messages[0].Content)
			assert.Equal(t, "user", captured.Messages[1].Role)
			assert.Equal(t, "user", captured.Messages[1].Content)
		})
	}
}

func TestClientAnthropic(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.Equal(t, "sk-ant", r.Header.Get("X-Api-Key"))
		assert.NotEmpty(t, r.Header.Get("Anthropic-Version"))

		var req struct {
			MaxTokens int `json:"max_tokens"`
			System    []struct {
				Text string `json:"text"`
			} `json:"system"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if assert.Len(t, req.System, 1) {
			assert.Equal(t, "system", req.System[0].Text)
		}
		assert.Equal(t, anthropicMaxTokens, req.MaxTokens)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"m1","type":"message","role":"assistant","content":[{"type":"text","text":"Points"}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(ProviderAnthropic, "sk-ant", time.Second, WithBaseURL(srv.URL))
	require.NoError(t, err)

	text, err := c.Complete(context.Background(), "claude-sonnet-4-5-20250929", "system", "user")
	require.NoError(t, err)
	assert.Equal(t, "Points", text)
	assert.Equal(t, "/v1/messages", path)
}

func TestClientErrors(t *testing.T) {
	t.Run("non 2xx status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
		}))
		defer srv.Close()

		c, _ := NewClient(ProviderOpenAI, "x", time.Second, WithBaseURL(srv.URL))
		_, err := c.Complete(context.Background(), "m", "s", "u")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("blank completion", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"   "}}]}`))
		}))
		defer srv.Close()

		c, _ := NewClient(ProviderMistral, "x", time.Second, WithBaseURL(srv.URL))
		_, err := c.Complete(context.Background(), "m", "s", "u")
		assert.True(t, errors.Is(err, ErrEmptyResponse))
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewClient("gemini", "x", time.Second)
		assert.Error(t, err)
	})
}
