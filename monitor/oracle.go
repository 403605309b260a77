package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Analysis is the oracle's verdict on one anomaly.
type Analysis struct {
	RootCause       string   `json:"root_cause"`
	ActionPlan      []string `json:"action_plan"`
	SuggestedAction string   `json:"suggested_action"`
}

// AutonomyAction is one command the oracle wants issued during an autonomy
// cycle.
type AutonomyAction struct {
	Command   string `json:"command"`
	MachineID string `json:"machine_id"`
	Reason    string `json:"reason"`
}

// AutonomyDecision is the oracle's reply to a periodic autonomy check.
type AutonomyDecision struct {
	ActionNeeded bool             `json:"action_needed"`
	Message      string           `json:"message"`
	Actions      []AutonomyAction `json:"actions"`
}

// ChatAction is a machine action embedded in a chat reply.
type ChatAction struct {
	Type      string  `json:"type"`
	MachineID string  `json:"machine_id"`
	Value     float64 `json:"value"`
}

// ChatReply is the oracle's reply to a free-form operator message.
type ChatReply struct {
	Response string       `json:"response"`
	Actions  []ChatAction `json:"actions"`
}

// AutonomyContext is the aggregated factory summary fed to the oracle every
// autonomy cycle.
type AutonomyContext struct {
	PendingOrders int              `json:"pending_orders"`
	Machines      []MachineSummary `json:"machines"`
	Cash          float64          `json:"cash"`
}

// MachineSummary is the compact per-machine view inside an AutonomyContext.
type MachineSummary struct {
	ID         string  `json:"id"`
	Status     string  `json:"status"`
	Temp       float64 `json:"temp"`
	Speed      float64 `json:"speed"`
	Efficiency float64 `json:"efficiency"`
	Wear       float64 `json:"wear"`
}

// Oracle is the external AI text service. It is untrusted: implementations
// must degrade to safe zero values instead of propagating garbage, and
// callers treat every error as "no suggestion".
type Oracle interface {
	AnalyzeAnomaly(ctx context.Context, a Anomaly) (Analysis, error)
	EvaluateAutonomy(ctx context.Context, actx AutonomyContext) (AutonomyDecision, error)
	Chat(ctx context.Context, message string, actx AutonomyContext) (ChatReply, error)
}

// HTTPOracle talks to an Ollama-style text generation endpoint: POST a JSON
// prompt, read back {"response": "<text>"} where the text should itself be
// JSON but frequently is not.
type HTTPOracle struct {
	URL    string // full generate endpoint, e.g. http://localhost:11434/api/generate
	Model  string
	Client *http.Client
}

// NewHTTPOracle builds an oracle client with a conservative timeout.
func NewHTTPOracle(url, model string) *HTTPOracle {
	return &HTTPOracle{
		URL:    url,
		Model:  model,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

// AnalyzeAnomaly asks for a root cause and a suggested action for one
// anomaly. On any transport or parse failure it returns a generic fallback
// and the error.
func (o *HTTPOracle) AnalyzeAnomaly(ctx context.Context, a Anomaly) (Analysis, error) {
	payload, _ := json.Marshal(a)
	prompt := fmt.Sprintf(`Analyze this factory anomaly and suggest actions.
Anomaly: %s

Provide a concise response in valid JSON format with the following keys:
- root_cause: a short explanation of the cause.
- action_plan: a list of 3 short steps.
- suggested_action: a single short action command (e.g. "Reset Machine").

Response (JSON only):`, payload)

	fallback := Analysis{RootCause: "Unknown", SuggestedAction: "Check Manual"}
	var out Analysis
	if err := o.generate(ctx, prompt, &out); err != nil {
		return fallback, err
	}
	if out.SuggestedAction == "" {
		out.SuggestedAction = "Check Manual"
	}
	return out, nil
}

// EvaluateAutonomy asks whether the facility needs intervention. Failures
// degrade to "no action needed".
func (o *HTTPOracle) EvaluateAutonomy(ctx context.Context, actx AutonomyContext) (AutonomyDecision, error) {
	payload, _ := json.MarshalIndent(actx, "", "  ")
	prompt := fmt.Sprintf(`CURRENT CONTEXT:
%s

TASK:
You are an intelligent factory manager. Optimize the factory.

SCENARIOS:
- High demand (>5 orders) -> speed up.
- Low demand (<2 orders) -> slow down.
- Overheat (>95C) -> slow down / stop.

RESPONSE FORMAT (valid JSON only):
{
  "action_needed": true,
  "message": "reasoning",
  "actions": [
    {"command": "adjust_speed:500", "machine_id": "L1-CUT-01", "reason": "High orders"}
  ]
}`, payload)

	var out AutonomyDecision
	if err := o.generate(ctx, prompt, &out); err != nil {
		return AutonomyDecision{ActionNeeded: false}, err
	}
	return out, nil
}

// Chat relays a free-form operator message with factory context. Failures
// degrade to a generic busy reply with no actions.
func (o *HTTPOracle) Chat(ctx context.Context, message string, actx AutonomyContext) (ChatReply, error) {
	payload, _ := json.MarshalIndent(actx, "", "  ")
	prompt := fmt.Sprintf(`CURRENT CONTEXT:
%s

USER INPUT: %s

SYSTEM INSTRUCTIONS:
1. You are a factory AI. Control machines via JSON 'actions'.
2. 'response' must be natural language.
3. Return ONLY VALID JSON.

FORMAT:
{
  "response": "your reply",
  "actions": [
    {"type": "SET_SPEED", "machine_id": "L1-CUT-01", "value": 3000}
  ]
}`, payload, message)

	var out ChatReply
	if err := o.generate(ctx, prompt, &out); err != nil {
		return ChatReply{Response: "Assistant unavailable"}, err
	}
	if out.Response == "" {
		out.Response = "Processing..."
	}
	return out, nil
}

// generate performs one round trip and decodes the model's (hopefully JSON)
// reply into target.
func (o *HTTPOracle) generate(ctx context.Context, prompt string, target any) error {
	reqBody, _ := json.Marshal(map[string]any{
		"model":  o.Model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.URL, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("oracle request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(req)
	if err != nil {
		return fmt.Errorf("oracle call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("oracle status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("oracle read: %w", err)
	}
	var envelope struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("oracle envelope: %w", err)
	}
	content := stripFences(envelope.Response)
	if err := json.Unmarshal([]byte(content), target); err != nil {
		logrus.Debugf("oracle returned non-JSON content: %.120s", content)
		return fmt.Errorf("oracle content: %w", err)
	}
	return nil
}

// stripFences removes markdown code fences models like to wrap JSON in.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
