// Package acp adapts Agent Communication Protocol requests into
// normalized intents. ACP payloads carry a header (message_type,
// sender) and a free-form body decoded with mapstructure.
package acp

import (
	"encoding/json"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/meshgate/core/pkg/protocol"
	"github.com/meshgate/core/pkg/types"
)

type header struct {
	MessageType string `json:"message_type"`
	Sender      string `json:"sender"`
	Target      string `json:"target,omitempty"`
}

type envelope struct {
	Header header         `json:"header"`
	Body   map[string]any `json:"body,omitempty"`
}

type parsed struct {
	env  envelope
	body map[string]any
}

// Adapter implements protocol.Adapter for ACP.
type Adapter struct{}

// New returns an ACP protocol.Adapter.
func New() *Adapter { return &Adapter{} }

func (a *Adapter) Tag() types.ProtocolTag { return types.ProtocolACP }

func (a *Adapter) Parse(raw []byte) (protocol.ParseResult, bool, *protocol.ParseError) {
	start := time.Now()

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return protocol.ParseResult{}, false, nil
	}
	if env.Header.MessageType == "" || env.Header.Sender == "" {
		return protocol.ParseResult{}, false, nil
	}

	var body map[string]any
	if env.Body != nil {
		if err := mapstructure.Decode(env.Body, &body); err != nil {
			return protocol.ParseResult{}, true, &protocol.ParseError{
				Protocol: types.ProtocolACP,
				Code:     "bad_body",
				Msg:      err.Error(),
			}
		}
	}

	return protocol.ParseResult{
		Protocol:  types.ProtocolACP,
		StartedAt: start,
		RawBytes:  len(raw),
		Parsed:    parsed{env: env, body: body},
	}, true, nil
}

func (a *Adapter) Normalize(pr protocol.ParseResult) (protocol.NormalizeResult, *protocol.NormalizeError) {
	parseStart := pr.StartedAt
	normStart := time.Now()

	p, ok := pr.Parsed.(parsed)
	if !ok {
		return protocol.NormalizeResult{}, &protocol.NormalizeError{Protocol: types.ProtocolACP, Code: "bad_parsed_value", Msg: "internal: unexpected parsed type"}
	}

	var (
		category     types.IntentCategory
		confidence   float64
		alternatives []types.Alternative
	)

	switch p.env.Header.MessageType {
	case "command":
		category = types.CategoryActionExecution
		confidence = 0.92
	case "query":
		category = types.CategoryInformationRequest
		confidence = 0.88
	default:
		category = types.CategoryConversation
		confidence = 0.70
		alternatives = []types.Alternative{{Action: "acp_discovery", Confidence: 0.25, Reason: "unrecognized message_type"}}
	}

	body := p.body
	if body == nil {
		body = map[string]any{}
	}

	intent := types.Intent{
		ID:           types.NewID(),
		Category:     category,
		Action:       p.env.Header.MessageType,
		Target:       p.env.Header.Target,
		Parameters:   body,
		Confidence:   confidence,
		Alternatives: alternatives,
	}

	now := time.Now()
	return protocol.NormalizeResult{
		Intent: intent,
		Context: types.RequestContext{
			UserID: p.env.Header.Sender,
		},
		Metadata:          types.RequestMetadata{AuditLevel: "standard"},
		ParseDuration:     normStart.Sub(parseStart),
		NormalizeDuration: now.Sub(normStart),
	}, nil
}

var _ protocol.Adapter = (*Adapter)(nil)
