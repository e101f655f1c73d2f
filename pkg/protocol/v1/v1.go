// Package v1 adapts OpenAI-style chat-completion requests into
// normalized intents.
package v1

import (
	"encoding/json"
	"time"

	"github.com/meshgate/core/pkg/protocol"
	"github.com/meshgate/core/pkg/types"
)

type toolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []toolCall `json:"tool_calls,omitempty"`
}

type envelope struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Tools       []any     `json:"tools,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

type parsed struct {
	env envelope
}

// Adapter implements protocol.Adapter for the OpenAI chat-completion
// wire shape.
type Adapter struct{}

// New returns a v1 protocol.Adapter.
func New() *Adapter { return &Adapter{} }

func (a *Adapter) Tag() types.ProtocolTag { return types.ProtocolV1 }

func (a *Adapter) Parse(raw []byte) (protocol.ParseResult, bool, *protocol.ParseError) {
	start := time.Now()

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return protocol.ParseResult{}, false, nil
	}
	if env.Model == "" || len(env.Messages) == 0 {
		return protocol.ParseResult{}, false, nil
	}

	return protocol.ParseResult{
		Protocol:  types.ProtocolV1,
		StartedAt: start,
		RawBytes:  len(raw),
		Parsed:    parsed{env: env},
	}, true, nil
}

func (a *Adapter) Normalize(pr protocol.ParseResult) (protocol.NormalizeResult, *protocol.NormalizeError) {
	parseStart := pr.StartedAt
	normStart := time.Now()

	p, ok := pr.Parsed.(parsed)
	if !ok {
		return protocol.NormalizeResult{}, &protocol.NormalizeError{Protocol: types.ProtocolV1, Code: "bad_parsed_value", Msg: "internal: unexpected parsed type"}
	}

	last := p.env.Messages[len(p.env.Messages)-1]

	var (
		category     types.IntentCategory
		confidence   float64
		action       string
		target       string
		parameters   = map[string]any{}
		alternatives []types.Alternative
	)

	if last.Role == "assistant" && len(last.ToolCalls) > 0 {
		category = types.CategoryToolCall
		confidence = 0.95
		tc := last.ToolCalls[0]
		action = tc.Function.Name
		var args map[string]any
		if tc.Function.Arguments != "" {
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		}
		if args != nil {
			parameters = args
		}
		target = tc.ID
	} else {
		category = types.CategoryConversation
		confidence = 0.75
		action = "chat"
		parameters["content"] = last.Content
		if len(p.env.Tools) > 0 {
			alternatives = append(alternatives, types.Alternative{Action: "tool_call", Confidence: 0.3, Reason: "tools were offered but none were invoked"})
		}
		if p.env.Temperature != nil && *p.env.Temperature < 0.3 {
			alternatives = append(alternatives, types.Alternative{Action: "deterministic_completion", Confidence: 0.2, Reason: "low temperature suggests a near-deterministic completion"})
		}
	}

	var history []types.HistoryMessage
	for _, m := range p.env.Messages {
		history = append(history, types.HistoryMessage{Role: m.Role, Content: m.Content})
	}

	intent := types.Intent{
		ID:           types.NewID(),
		Category:     category,
		Action:       action,
		Target:       target,
		Parameters:   parameters,
		Confidence:   confidence,
		Alternatives: alternatives,
	}

	now := time.Now()
	return protocol.NormalizeResult{
		Intent: intent,
		Context: types.RequestContext{
			ConversationHistory: history,
		},
		Metadata:          types.RequestMetadata{AuditLevel: "standard"},
		ParseDuration:     normStart.Sub(parseStart),
		NormalizeDuration: now.Sub(normStart),
	}, nil
}

var _ protocol.Adapter = (*Adapter)(nil)
