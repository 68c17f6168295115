package server

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabriq-ai/engine"
	"github.com/fabriq-ai/engine/config"
	"github.com/fabriq-ai/engine/core"
	"github.com/fabriq-ai/engine/model"
)

const serverYAML = `
systems:
  - id: helpdesk
    topology: single
    agents:
      - type: coder
        prompt: "Answer technical questions."
endpoints:
  - slug: ask
    system_id: helpdesk
    prompt: "Question: {question}"
    contract:
      - name: question
        type: string
      - name: priority
        type: number
`

func newTestServer(t *testing.T, yaml string, invoker core.Invoker) (*Server, string) {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(yaml), 0o644))

	cfg, err := config.Load(configPath)
	require.NoError(t, err)
	e, err := engine.New(cfg, invoker)
	require.NoError(t, err)
	t.Cleanup(e.Close)

	return New(e, configPath), configPath
}

func postJSON(t *testing.T, handler http.Handler, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeSSE(t *testing.T, body string) []core.Event {
	t.Helper()
	var events []core.Event
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev core.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		events = append(events, ev)
	}
	return events
}

func TestRun_StreamsSSE(t *testing.T) {
	invoker := model.NewMockInvoker()
	invoker.AddResponse("coder_0", "reboot it")
	srv, _ := newTestServer(t, serverYAML, invoker)

	rec := postJSON(t, srv.Handler(), "/run/ask",
		`{"data":{"question":"wifi down","priority":2}}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := decodeSSE(t, rec.Body.String())
	require.Len(t, events, 3)
	assert.Equal(t, core.EventStatus, events[0].Type)
	assert.Equal(t, core.EventToken, events[1].Type)
	assert.Equal(t, "reboot it", events[1].Content)
	assert.Equal(t, core.EventDone, events[2].Type)

	// The rendered prompt reached the agent.
	calls := invoker.CallsFor("coder_0")
	require.Len(t, calls, 1)
	assert.Equal(t, "Question: wifi down", calls[0].Input)
}

func TestRun_UnknownSlug(t *testing.T) {
	srv, _ := newTestServer(t, serverYAML, model.NewMockInvoker())

	rec := postJSON(t, srv.Handler(), "/run/nope", `{"data":{}}`, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Endpoint 'nope' not found")
}

func TestRun_ContractViolations(t *testing.T) {
	srv, _ := newTestServer(t, serverYAML, model.NewMockInvoker())
	handler := srv.Handler()

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing field",
			body: `{"data":{"priority":2}}`,
			want: "Missing required field 'question'",
		},
		{
			name: "wrong type",
			body: `{"data":{"question":42,"priority":2}}`,
			want: "Field 'question' must be of type string, got number",
		},
		{
			name: "boolean is not a number",
			body: `{"data":{"question":"q","priority":true}}`,
			want: "Field 'priority' must be a number, got boolean",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, handler, "/run/ask", tt.body, nil)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestAuth(t *testing.T) {
	yaml := serverYAML + "api_key: secret\n"
	invoker := model.NewMockInvoker()
	invoker.AddResponse("coder_0", "ok")
	srv, _ := newTestServer(t, yaml, invoker)
	handler := srv.Handler()

	rec := postJSON(t, handler, "/run/ask", `{"data":{"question":"q","priority":1}}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(t, handler, "/run/ask", `{"data":{"question":"q","priority":1}}`,
		map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(t, handler, "/run/ask", `{"data":{"question":"q","priority":1}}`,
		map[string]string{"X-API-Key": "secret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays open.
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	healthRec := httptest.NewRecorder()
	handler.ServeHTTP(healthRec, req)
	assert.Equal(t, http.StatusOK, healthRec.Code)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, serverYAML, model.NewMockInvoker())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var h engine.Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Equal(t, engine.Health{Status: "healthy", Systems: 1, Endpoints: 1}, h)
}

func TestConfig(t *testing.T) {
	srv, _ := newTestServer(t, serverYAML, model.NewMockInvoker())

	req := httptest.NewRequest(http.MethodGet, "/config", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var cfg config.Config
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	require.Len(t, cfg.Endpoints, 1)
	assert.Equal(t, "ask", cfg.Endpoints[0].Slug)
}

func TestReload(t *testing.T) {
	srv, configPath := newTestServer(t, serverYAML, model.NewMockInvoker())
	handler := srv.Handler()

	updated := serverYAML + `
  - slug: ask2
    system_id: helpdesk
    prompt: "{q}"
`
	require.NoError(t, os.WriteFile(configPath, []byte(updated), 0o644))

	rec := postJSON(t, handler, "/reload", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "reloaded", res["status"])
	assert.Equal(t, float64(2), res["endpoints"])
}

func TestReload_FailureKeepsServing(t *testing.T) {
	invoker := model.NewMockInvoker()
	invoker.AddResponse("coder_0", "still here")
	srv, configPath := newTestServer(t, serverYAML, invoker)
	handler := srv.Handler()

	require.NoError(t, os.WriteFile(configPath, []byte("topology: [broken"), 0o644))

	rec := postJSON(t, handler, "/reload", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Reload failed")

	// Prior config keeps serving runs.
	rec = postJSON(t, handler, "/run/ask", `{"data":{"question":"q","priority":1}}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS_Preflight(t *testing.T) {
	srv, _ := newTestServer(t, serverYAML, model.NewMockInvoker())

	req := httptest.NewRequest(http.MethodOptions, "/run/ask", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	// Default policy allows any origin; a wildcard must never be paired with
	// the credentials header.
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_ConcreteOriginEchoedWithCredentials(t *testing.T) {
	yaml := serverYAML + `allowed_origins: ["https://app.example.com"]` + "\n"
	srv, _ := newTestServer(t, yaml, model.NewMockInvoker())
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodOptions, "/run/ask", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	// Unlisted origins get no CORS headers at all.
	req = httptest.NewRequest(http.MethodOptions, "/run/ask", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestValidateContract_EmptyContractAcceptsAnything(t *testing.T) {
	assert.NoError(t, ValidateContract(nil, map[string]any{"extra": "ignored"}))
	assert.NoError(t, ValidateContract(nil, nil))
}

func TestRenderPrompt(t *testing.T) {
	out := RenderPrompt("Analyze: {topic} (depth {depth})", map[string]any{
		"topic": "Go schedulers",
		"depth": float64(3),
	})
	assert.Equal(t, "Analyze: Go schedulers (depth 3)", out)
}

func TestRenderPrompt_MissingKeyAppendsData(t *testing.T) {
	out := RenderPrompt("Analyze: {topic}", map[string]any{"other": "value"})

	assert.True(t, strings.HasPrefix(out, "Analyze: {topic}\n\nData:\n"))
	assert.Contains(t, out, `"other": "value"`)
}
