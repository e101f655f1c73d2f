// Package mcp adapts JSON-RPC 2.0 MCP requests into normalized intents.
package mcp

import (
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/meshgate/core/pkg/protocol"
	"github.com/meshgate/core/pkg/types"
)

// envelope is the JSON-RPC 2.0 request shape MCP uses for every call.
type envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type parsed struct {
	env        envelope
	callParams *mcp.CallToolRequest
}

// Adapter implements protocol.Adapter for MCP.
type Adapter struct{}

// New returns an MCP protocol.Adapter.
func New() *Adapter { return &Adapter{} }

func (a *Adapter) Tag() types.ProtocolTag { return types.ProtocolMCP }

func (a *Adapter) Parse(raw []byte) (protocol.ParseResult, bool, *protocol.ParseError) {
	start := time.Now()

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return protocol.ParseResult{}, false, nil
	}
	if env.JSONRPC != "2.0" {
		return protocol.ParseResult{}, false, nil
	}
	if env.Method == "" {
		return protocol.ParseResult{}, false, &protocol.ParseError{Protocol: types.ProtocolMCP, Code: "MISSING_METHOD", Msg: "jsonrpc 2.0 envelope is missing a method"}
	}

	p := parsed{env: env}
	if env.Method == "tools/call" && len(env.Params) > 0 {
		var req mcp.CallToolRequest
		if err := json.Unmarshal(env.Params, &req.Params); err == nil {
			p.callParams = &req
		}
	}

	return protocol.ParseResult{
		Protocol:  types.ProtocolMCP,
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
		return protocol.NormalizeResult{}, &protocol.NormalizeError{Protocol: types.ProtocolMCP, Code: "bad_parsed_value", Msg: "internal: unexpected parsed type"}
	}

	var (
		category     types.IntentCategory
		confidence   float64
		action       = p.env.Method
		target       string
		parameters   = map[string]any{}
		alternatives []types.Alternative
	)

	switch p.env.Method {
	case "tools/call":
		category = types.CategoryToolCall
		confidence = 1.0
		target = "tool"
		if p.callParams != nil {
			action = p.callParams.Params.Name
			if args, ok := p.callParams.Params.Arguments.(map[string]any); ok {
				parameters = args
			}
		}
	case "resources/read":
		category = types.CategoryDataRetrieval
		confidence = 0.95
	case "prompts/get":
		category = types.CategoryInformationRequest
		confidence = 0.90
	default:
		category = types.CategoryConversation
		confidence = 0.70
		alternatives = []types.Alternative{{Action: "help", Confidence: 0.2, Reason: "unrecognized method, offered as a fallback"}}
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
		Intent:            intent,
		Context:           types.RequestContext{},
		Metadata:          types.RequestMetadata{AuditLevel: "standard"},
		ParseDuration:     normStart.Sub(parseStart),
		NormalizeDuration: now.Sub(normStart),
	}, nil
}

var _ protocol.Adapter = (*Adapter)(nil)
