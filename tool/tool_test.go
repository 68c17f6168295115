package tool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Resolve(t *testing.T) {
	r := Builtins()

	tools, err := r.Resolve([]string{"calculate", "web_search"})
	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Equal(t, "calculate", tools[0].Name())
	assert.Equal(t, "web_search", tools[1].Name())

	_, err = r.Resolve([]string{"calculate", "time_travel"})
	assert.EqualError(t, err, `unknown tool "time_travel"`)
}

func TestRegistry_Names(t *testing.T) {
	names := Builtins().Names()
	assert.Equal(t, []string{"accept_output", "calculate", "reject_output", "web_search"}, names)
}

func TestAcceptOutput(t *testing.T) {
	out, err := NewAcceptOutput().Call(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "__ACCEPTED__", out)
}

func TestRejectOutput(t *testing.T) {
	tl := NewRejectOutput()

	out, err := tl.Call(context.Background(), map[string]any{"reason": "missing citations"})
	require.NoError(t, err)
	assert.Equal(t, "__REJECTED__: missing citations", out)

	_, err = tl.Call(context.Background(), map[string]any{})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "invalid_arguments", toolErr.Code)
}

func TestCalculate(t *testing.T) {
	tl := NewCalculate()

	tests := []struct {
		expression string
		want       string
	}{
		{"2 + 3 * 4", "14"},
		{"(2 + 3) * 4", "20"},
		{"10 / 4", "2.5"},
		{"-3 + 5", "2"},
		{"2 ^ 10", "1024"},
		{"2 ^ 3 ^ 2", "512"}, // right associative
		{"10 % 3", "1"},
		{"1.5 * 2", "3"},
	}
	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			out, err := tl.Call(context.Background(), map[string]any{"expression": tt.expression})
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestCalculate_BadExpressionIsModelVisible(t *testing.T) {
	tl := NewCalculate()

	out, err := tl.Call(context.Background(), map[string]any{"expression": "2 +"})
	require.NoError(t, err)
	assert.Contains(t, out, "Error evaluating '2 +'")

	out, err = tl.Call(context.Background(), map[string]any{"expression": "1 / 0"})
	require.NoError(t, err)
	assert.Contains(t, out, "division by zero")

	out, err = tl.Call(context.Background(), map[string]any{"expression": "two plus two"})
	require.NoError(t, err)
	assert.Contains(t, out, "Error evaluating")
}

func TestWebSearch_FormatsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[
			{"title":"Go","url":"https://go.dev","content":"The Go programming language."},
			{"title":"","url":"https://example.com","content":"An example."}
		]}`))
	}))
	defer srv.Close()

	tl := NewWebSearch(func(o *WebSearchOptions) {
		o.APIKey = "test-key"
		o.Endpoint = srv.URL
	})

	out, err := tl.Call(context.Background(), map[string]any{"query": "golang"})
	require.NoError(t, err)
	text, ok := out.(string)
	require.True(t, ok)
	assert.Contains(t, text, "Search results for: golang")
	assert.Contains(t, text, "1. Go")
	assert.Contains(t, text, "URL: https://go.dev")
	assert.Contains(t, text, "2. Untitled")
}

func TestWebSearch_FailuresAreModelVisible(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "")

	out, err := NewWebSearch().Call(context.Background(), map[string]any{"query": "anything"})
	require.NoError(t, err)
	assert.Equal(t, "Error: TAVILY_API_KEY environment variable is not set.", out)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	tl := NewWebSearch(func(o *WebSearchOptions) {
		o.APIKey = "test-key"
		o.Endpoint = srv.URL
	})
	out, err = tl.Call(context.Background(), map[string]any{"query": "anything"})
	require.NoError(t, err)
	assert.Contains(t, out, "Search failed")
}

func TestWebSearch_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	tl := NewWebSearch(func(o *WebSearchOptions) {
		o.APIKey = "test-key"
		o.Endpoint = srv.URL
	})
	out, err := tl.Call(context.Background(), map[string]any{"query": "obscure"})
	require.NoError(t, err)
	assert.Equal(t, "No results found for: obscure", out)
}
