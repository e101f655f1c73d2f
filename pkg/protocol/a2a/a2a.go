// Package a2a adapts the gateway's simplified A2A envelope into
// normalized intents. The envelope (id/sender/recipient/task/message)
// is not the full a2aproject A2A wire format; message content is
// represented internally with the real a2a-go types once parsed.
package a2a

import (
	"encoding/json"
	"time"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/meshgate/core/pkg/protocol"
	"github.com/meshgate/core/pkg/types"
)

type taskEnvelope struct {
	ID     string         `json:"id"`
	Type   string         `json:"type,omitempty"`
	Name   string         `json:"name,omitempty"`
	Params map[string]any `json:"params,omitempty"`
}

type messageEnvelope struct {
	Type string `json:"type"`
	Role string `json:"role"`
	Text string `json:"text"`
}

type envelope struct {
	ID        string           `json:"id"`
	Sender    string           `json:"sender"`
	Recipient string           `json:"recipient"`
	Task      *taskEnvelope    `json:"task,omitempty"`
	Message   *messageEnvelope `json:"message,omitempty"`
}

type parsed struct {
	env     envelope
	message *a2a.Message
}

// Adapter implements protocol.Adapter for the gateway's A2A envelope.
type Adapter struct{}

// New returns an A2A protocol.Adapter.
func New() *Adapter { return &Adapter{} }

func (a *Adapter) Tag() types.ProtocolTag { return types.ProtocolA2A }

func (a *Adapter) Parse(raw []byte) (protocol.ParseResult, bool, *protocol.ParseError) {
	start := time.Now()

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return protocol.ParseResult{}, false, nil
	}
	if env.ID == "" || env.Sender == "" || env.Recipient == "" {
		return protocol.ParseResult{}, false, nil
	}

	p := parsed{env: env}
	if env.Message != nil {
		role := a2a.MessageRoleUser
		if env.Message.Role == "agent" || env.Message.Role == "assistant" {
			role = a2a.MessageRoleAgent
		}
		p.message = &a2a.Message{
			Role:  role,
			Parts: []a2a.Part{a2a.TextPart{Text: env.Message.Text}},
		}
	}

	return protocol.ParseResult{
		Protocol:  types.ProtocolA2A,
		StartedAt: start,
		RawBytes:  len(raw),
		Parsed:    p,
	}, true, nil
}

func (a *Adapter) Normalize(pr protocol.ParseResult) (protocol.NormalizeResult, *protocol.NormalizeError) {
	parseStart := pr.StartedAt
	normStart := time.Now()

	p, ok := pr.Parsed.(parsed)
	if !ok {
		return protocol.NormalizeResult{}, &protocol.NormalizeError{Protocol: types.ProtocolA2A, Code: "bad_parsed_value", Msg: "internal: unexpected parsed type"}
	}

	var (
		category     types.IntentCategory
		confidence   float64
		action       string
		target       string
		parameters   = map[string]any{}
		alternatives []types.Alternative
		history      []types.HistoryMessage
	)

	switch {
	case p.env.Task != nil:
		category = types.CategoryActionExecution
		confidence = 0.95
		action = p.env.Task.Name
		target = p.env.Task.ID
		parameters = p.env.Task.Params
	case p.env.Message != nil:
		if p.env.Message.Type == "request" {
			category = types.CategoryInformationRequest
			confidence = 0.90
		} else {
			category = types.CategoryConversation
			confidence = 0.70
		}
		action = "message"
		if p.message != nil {
			if tp, ok := p.message.Parts[0].(a2a.TextPart); ok {
				history = append(history, types.HistoryMessage{Role: string(p.message.Role), Content: tp.Text})
				parameters["text"] = tp.Text
			}
		}
	default:
		category = types.CategoryConversation
		confidence = 0.70
		alternatives = []types.Alternative{{Action: "a2a_discovery", Confidence: 0.3, Reason: "no task or message present"}}
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
			UserID:              p.env.Sender,
			ConversationHistory: history,
		},
		Metadata:          types.RequestMetadata{AuditLevel: "standard"},
		ParseDuration:     normStart.Sub(parseStart),
		NormalizeDuration: now.Sub(normStart),
	}, nil
}

var _ protocol.Adapter = (*Adapter)(nil)
