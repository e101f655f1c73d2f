// Package ucp adapts Universal Context Protocol requests into
// normalized intents. UCP payloads carry a context_id, an operation
// name, and a free-form parameters map decoded with mapstructure since
// the shape varies per operation.
package ucp

import (
	"encoding/json"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/meshgate/core/pkg/protocol"
	"github.com/meshgate/core/pkg/types"
)

type envelope struct {
	ContextID  string         `json:"context_id"`
	Operation  string         `json:"operation"`
	Target     string         `json:"target,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type parsed struct {
	env        envelope
	parameters map[string]any
}

// operationCategory maps a UCP operation name to its intent category.
var operationCategory = map[string]types.IntentCategory{
	"read":   types.CategoryDataRetrieval,
	"write":  types.CategoryActionExecution,
	"update": types.CategoryActionExecution,
	"delete": types.CategoryActionExecution,
	"query":  types.CategoryInformationRequest,
	"search": types.CategoryInformationRequest,
	"analyze": types.CategoryAnalysis,
	"generate": types.CategoryCodeGeneration,
}

// Adapter implements protocol.Adapter for UCP.
type Adapter struct{}

// New returns a UCP protocol.Adapter.
func New() *Adapter { return &Adapter{} }

func (a *Adapter) Tag() types.ProtocolTag { return types.ProtocolUCP }

func (a *Adapter) Parse(raw []byte) (protocol.ParseResult, bool, *protocol.ParseError) {
	start := time.Now()

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return protocol.ParseResult{}, false, nil
	}
	if env.ContextID == "" || env.Operation == "" {
		return protocol.ParseResult{}, false, nil
	}

	var params map[string]any
	if env.Parameters != nil {
		if err := mapstructure.Decode(env.Parameters, &params); err != nil {
			return protocol.ParseResult{}, true, &protocol.ParseError{
				Protocol: types.ProtocolUCP,
				Code:     "bad_parameters",
				Msg:      err.Error(),
			}
		}
	}

	return protocol.ParseResult{
		Protocol:  types.ProtocolUCP,
		StartedAt: start,
		RawBytes:  len(raw),
		Parsed:    parsed{env: env, parameters: params},
	}, true, nil
}

func (a *Adapter) Normalize(pr protocol.ParseResult) (protocol.NormalizeResult, *protocol.NormalizeError) {
	parseStart := pr.StartedAt
	normStart := time.Now()

	p, ok := pr.Parsed.(parsed)
	if !ok {
		return protocol.NormalizeResult{}, &protocol.NormalizeError{Protocol: types.ProtocolUCP, Code: "bad_parsed_value", Msg: "internal: unexpected parsed type"}
	}

	category, known := operationCategory[p.env.Operation]
	confidence := 0.9
	var alternatives []types.Alternative
	if !known {
		category = types.CategoryConversation
		confidence = 0.70
		alternatives = []types.Alternative{{Action: "ucp_discovery", Confidence: 0.25, Reason: "unrecognized operation"}}
	}

	parameters := p.parameters
	if parameters == nil {
		parameters = map[string]any{}
	}

	intent := types.Intent{
		ID:           types.NewID(),
		Category:     category,
		Action:       p.env.Operation,
		Target:       p.env.Target,
		Parameters:   parameters,
		Confidence:   confidence,
		Alternatives: alternatives,
	}

	now := time.Now()
	return protocol.NormalizeResult{
		Intent: intent,
		Context: types.RequestContext{
			SessionID: p.env.ContextID,
		},
		Metadata:          types.RequestMetadata{AuditLevel: "standard"},
		ParseDuration:     normStart.Sub(parseStart),
		NormalizeDuration: now.Sub(normStart),
	}, nil
}

var _ protocol.Adapter = (*Adapter)(nil)
