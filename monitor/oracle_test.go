package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ollamaStub serves a fixed generate-endpoint reply wrapping content in the
// {"response": ...} envelope.
func ollamaStub(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req["model"])
		assert.Equal(t, false, req["stream"])
		json.NewEncoder(w).Encode(map[string]string{"response": content})
	}))
}

func TestAnalyzeAnomaly_ParsesWellFormedReply(t *testing.T) {
	// GIVEN a model that answers clean JSON
	srv := ollamaStub(t, `{"root_cause":"blade imbalance","action_plan":["slow down","inspect","replace blade"],"suggested_action":"Reduce speed"}`)
	defer srv.Close()
	o := NewHTTPOracle(srv.URL, "test-model")

	// WHEN an anomaly is analyzed
	got, err := o.AnalyzeAnomaly(context.Background(), Anomaly{MachineID: "L1-CUT-01", Message: "vibration critical: 13.0 > 12.0"})

	// THEN the analysis comes through intact
	require.NoError(t, err)
	assert.Equal(t, "blade imbalance", got.RootCause)
	assert.Equal(t, "Reduce speed", got.SuggestedAction)
	assert.Len(t, got.ActionPlan, 3)
}

func TestAnalyzeAnomaly_StripsMarkdownFences(t *testing.T) {
	// GIVEN a model that wraps its JSON in a code fence
	srv := ollamaStub(t, "```json\n{\"root_cause\":\"worn belt\",\"suggested_action\":\"stop\"}\n```")
	defer srv.Close()
	o := NewHTTPOracle(srv.URL, "test-model")

	got, err := o.AnalyzeAnomaly(context.Background(), Anomaly{})
	require.NoError(t, err)
	assert.Equal(t, "worn belt", got.RootCause)
}

func TestAnalyzeAnomaly_GarbageDegradesToFallback(t *testing.T) {
	// GIVEN a model that rambles instead of returning JSON
	srv := ollamaStub(t, "Sure! Here is my analysis of the anomaly...")
	defer srv.Close()
	o := NewHTTPOracle(srv.URL, "test-model")

	// WHEN the analysis fails to parse
	got, err := o.AnalyzeAnomaly(context.Background(), Anomaly{})

	// THEN the caller gets the safe fallback plus the error
	assert.Error(t, err)
	assert.Equal(t, Analysis{RootCause: "Unknown", SuggestedAction: "Check Manual"}, got)
}

func TestAnalyzeAnomaly_EmptySuggestionDefaultsToManual(t *testing.T) {
	srv := ollamaStub(t, `{"root_cause":"unclear"}`)
	defer srv.Close()
	o := NewHTTPOracle(srv.URL, "test-model")

	got, err := o.AnalyzeAnomaly(context.Background(), Anomaly{})
	require.NoError(t, err)
	assert.Equal(t, "Check Manual", got.SuggestedAction)
}

func TestAnalyzeAnomaly_HTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	o := NewHTTPOracle(srv.URL, "test-model")

	_, err := o.AnalyzeAnomaly(context.Background(), Anomaly{})
	assert.ErrorContains(t, err, "oracle status 503")
}

func TestEvaluateAutonomy_DegradesToNoAction(t *testing.T) {
	// GIVEN an unreachable oracle
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // reachable URL, refused connection
	o := NewHTTPOracle(srv.URL, "test-model")

	// WHEN the autonomy cycle asks for a decision
	got, err := o.EvaluateAutonomy(context.Background(), AutonomyContext{})

	// THEN the safe default is "do nothing"
	assert.Error(t, err)
	assert.False(t, got.ActionNeeded)
	assert.Empty(t, got.Actions)
}

func TestEvaluateAutonomy_ParsesActions(t *testing.T) {
	srv := ollamaStub(t, `{"action_needed":true,"message":"high demand","actions":[{"command":"adjust_speed:500","machine_id":"L1-CUT-01","reason":"orders piling up"}]}`)
	defer srv.Close()
	o := NewHTTPOracle(srv.URL, "test-model")

	got, err := o.EvaluateAutonomy(context.Background(), AutonomyContext{PendingOrders: 7})
	require.NoError(t, err)
	assert.True(t, got.ActionNeeded)
	require.Len(t, got.Actions, 1)
	assert.Equal(t, "adjust_speed:500", got.Actions[0].Command)
}

func TestChat_DegradesToBusyReply(t *testing.T) {
	// GIVEN a model returning garbage
	srv := ollamaStub(t, "I am not JSON today")
	defer srv.Close()
	o := NewHTTPOracle(srv.URL, "test-model")

	got, err := o.Chat(context.Background(), "speed up line 1", AutonomyContext{})
	assert.Error(t, err)
	assert.Equal(t, "Assistant unavailable", got.Response)
	assert.Empty(t, got.Actions)
}

func TestChat_ParsesReplyWithActions(t *testing.T) {
	srv := ollamaStub(t, `{"response":"Speeding up line 1.","actions":[{"type":"SET_SPEED","machine_id":"L1-CUT-01","value":3000}]}`)
	defer srv.Close()
	o := NewHTTPOracle(srv.URL, "test-model")

	got, err := o.Chat(context.Background(), "speed up line 1", AutonomyContext{})
	require.NoError(t, err)
	assert.Equal(t, "Speeding up line 1.", got.Response)
	require.Len(t, got.Actions, 1)
	assert.Equal(t, 3000.0, got.Actions[0].Value)
}
