// Package v2 adapts Anthropic-style messages requests into normalized
// intents.
package v2

import (
	"encoding/json"
	"time"

	"github.com/meshgate/core/pkg/protocol"
	"github.com/meshgate/core/pkg/types"
)

type contentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	Name  string          `json:"name,omitempty"`
	ID    string          `json:"id,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type message struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type envelope struct {
	Model     string    `json:"model"`
	Messages  []message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Tools     []any     `json:"tools,omitempty"`
}

type parsed struct {
	env    envelope
	blocks []contentBlock
}

// Adapter implements protocol.Adapter for the Anthropic messages wire
// shape.
type Adapter struct{}

// New returns a v2 protocol.Adapter.
func New() *Adapter { return &Adapter{} }

func (a *Adapter) Tag() types.ProtocolTag { return types.ProtocolV2 }

func (a *Adapter) Parse(raw []byte) (protocol.ParseResult, bool, *protocol.ParseError) {
	start := time.Now()

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return protocol.ParseResult{}, false, nil
	}
	if env.Model == "" || len(env.Messages) == 0 || env.MaxTokens == 0 {
		return protocol.ParseResult{}, false, nil
	}

	last := env.Messages[len(env.Messages)-1]
	var blocks []contentBlock
	if len(last.Content) > 0 {
		var asBlocks []contentBlock
		if err := json.Unmarshal(last.Content, &asBlocks); err == nil {
			blocks = asBlocks
		} else {
			var asText string
			if err := json.Unmarshal(last.Content, &asText); err == nil {
				blocks = []contentBlock{{Type: "text", Text: asText}}
			}
		}
	}

	return protocol.ParseResult{
		Protocol:  types.ProtocolV2,
		StartedAt: start,
		RawBytes:  len(raw),
		Parsed:    parsed{env: env, blocks: blocks},
	}, true, nil
}

func (a *Adapter) Normalize(pr protocol.ParseResult) (protocol.NormalizeResult, *protocol.NormalizeError) {
	parseStart := pr.StartedAt
	normStart := time.Now()

	p, ok := pr.Parsed.(parsed)
	if !ok {
		return protocol.NormalizeResult{}, &protocol.NormalizeError{Protocol: types.ProtocolV2, Code: "bad_parsed_value", Msg: "internal: unexpected parsed type"}
	}

	var (
		category     types.IntentCategory
		confidence   float64
		action       string
		target       string
		parameters   = map[string]any{}
		alternatives []types.Alternative
	)

	var toolUse *contentBlock
	var text string
	for i, b := range p.blocks {
		if b.Type == "tool_use" && toolUse == nil {
			toolUse = &p.blocks[i]
		}
		if b.Type == "text" {
			text += b.Text
		}
	}

	if toolUse != nil {
		category = types.CategoryToolCall
		confidence = 0.95
		action = toolUse.Name
		target = toolUse.ID
		var args map[string]any
		if len(toolUse.Input) > 0 {
			_ = json.Unmarshal(toolUse.Input, &args)
		}
		if args != nil {
			parameters = args
		}
	} else {
		category = types.CategoryConversation
		confidence = 0.75
		action = "chat"
		parameters["content"] = text
		if len(p.env.Tools) > 0 {
			alternatives = append(alternatives, types.Alternative{Action: "tool_call", Confidence: 0.3, Reason: "tools were offered but none were invoked"})
		}
		if p.env.System != "" {
			alternatives = append(alternatives, types.Alternative{Action: "system_directed_task", Confidence: 0.2, Reason: "a system prompt was present"})
		}
	}

	var history []types.HistoryMessage
	for _, m := range p.env.Messages {
		history = append(history, types.HistoryMessage{Role: m.Role, Content: string(m.Content)})
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
