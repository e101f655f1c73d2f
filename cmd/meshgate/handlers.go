package main

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meshgate/core/pkg/audit"
	"github.com/meshgate/core/pkg/credential"
	"github.com/meshgate/core/pkg/observability"
	"github.com/meshgate/core/pkg/protocol"
	"github.com/meshgate/core/pkg/registry"
	"github.com/meshgate/core/pkg/router"
	"github.com/meshgate/core/pkg/sandbox"
	"github.com/meshgate/core/pkg/types"
)

// gateway holds every wired component the HTTP surface drives requests
// through: Convert -> Route -> Execute, with an AuditEntry appended at
// each transition per the data-flow requirement that every transition
// is recorded.
type gateway struct {
	dispatcher *protocol.Dispatcher
	router     *router.Router
	pool       *sandbox.Pool
	stream     *audit.Stream
	creds      *credential.FileStore
	catalog    *registry.BaseRegistry[types.ToolDefinition]
	metrics    *observability.Metrics
	clock      types.Clock
}

type requestResponse struct {
	RequestID string                 `json:"requestId"`
	Decision  *types.RoutingDecision `json:"decision,omitempty"`
	Result    *types.ExecutionResult `json:"result,omitempty"`
}

func (g *gateway) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]any{"status": "ok"}
	if g.creds != nil {
		health := g.creds.Health(r.Context())
		body["credentials"] = health
		if !health.Healthy {
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, body)
}

// handleRequest is the gateway's primary entry point: it accepts a raw
// protocol payload under a path-pinned protocol tag, normalizes it,
// routes it to a tool, and executes the tool in the sandbox pool.
func (g *gateway) handleRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tag := types.ProtocolTag(chi.URLParam(r, "protocol"))
	traceID := r.Header.Get("X-Trace-Id")
	if traceID == "" {
		traceID = types.NewID()
	}

	raw, err := readBody(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err)
		return
	}

	g.recordAudit(ctx, traceID, "", types.EventRequestReceived, types.SeverityInfo, "gateway", "request_received", string(tag), nil)

	req, err := g.dispatcher.Convert(ctx, raw, tag, traceID)
	if err != nil {
		g.recordAudit(ctx, traceID, "", types.EventRoutingFailed, types.SeverityWarning, "gateway", "normalize_failed", string(tag), map[string]any{"error": err.Error()})
		jsonError(w, http.StatusBadRequest, err)
		return
	}

	g.recordAudit(ctx, traceID, req.ID, types.EventIntentClassified, types.SeverityInfo, "gateway", "intent_classified", string(req.Intent.Category), map[string]any{"action": req.Intent.Action, "target": req.Intent.Target})

	decision, err := g.router.Route(ctx, req, g.catalog)
	if err != nil {
		g.recordAudit(ctx, traceID, req.ID, types.EventRoutingFailed, types.SeverityWarning, "gateway", "routing_failed", req.Intent.Target, map[string]any{"error": err.Error()})
		jsonError(w, http.StatusUnprocessableEntity, err)
		return
	}
	g.recordAudit(ctx, traceID, req.ID, types.EventToolSelected, types.SeverityInfo, "gateway", "tool_selected", decision.SelectedTool.Name, map[string]any{"confidence": decision.Confidence})

	if decision.RequiresApproval {
		g.recordAudit(ctx, traceID, req.ID, types.EventHumanApprovalRequested, types.SeverityWarning, "gateway", "human_approval_requested", decision.SelectedTool.Name, map[string]any{"reason": decision.ApprovalReason})
		writeJSON(w, http.StatusAccepted, requestResponse{RequestID: req.ID, Decision: decision})
		return
	}

	if err := g.resolveCredentials(ctx, traceID, req.ID, decision.SelectedTool); err != nil {
		jsonError(w, http.StatusFailedDependency, err)
		return
	}

	result, err := g.pool.Execute(ctx, decision.SelectedTool, req.Intent.Parameters, 0)
	if err != nil {
		g.recordAudit(ctx, traceID, req.ID, types.EventToolFailed, types.SeverityError, "gateway", "tool_execution_error", decision.SelectedTool.Name, map[string]any{"error": err.Error()})
		jsonError(w, http.StatusBadGateway, err)
		return
	}

	if result.Success {
		g.recordAudit(ctx, traceID, req.ID, types.EventToolExecuted, types.SeverityInfo, "gateway", "tool_executed", decision.SelectedTool.Name, map[string]any{"execMs": result.Metrics.ExecMs})
	} else {
		details := map[string]any{"execMs": result.Metrics.ExecMs}
		if result.Err != nil {
			details["code"] = result.Err.Code
			details["message"] = result.Err.Message
		}
		g.recordAudit(ctx, traceID, req.ID, types.EventToolFailed, types.SeverityError, "gateway", "tool_failed", decision.SelectedTool.Name, details)
	}

	writeJSON(w, http.StatusOK, requestResponse{RequestID: req.ID, Decision: decision, Result: result})
}

// resolveCredentials resolves every credential a selected tool
// requires, recording a credential_resolved entry for each. Any
// failure aborts the request before the sandbox pool is touched.
func (g *gateway) resolveCredentials(ctx context.Context, traceID, requestID string, tool types.ToolDefinition) error {
	if len(tool.RequiredCredentials) == 0 {
		return nil
	}
	if g.creds == nil {
		return credential.ErrMissing
	}
	for _, id := range tool.RequiredCredentials {
		if _, err := g.creds.Resolve(ctx, id); err != nil {
			return err
		}
		g.recordAudit(ctx, traceID, requestID, types.EventCredentialResolved, types.SeverityInfo, "gateway", "credential_resolved", id, nil)
	}
	return nil
}

// handleAuditQuery exposes the in-memory audit retention window over
// the stream's filterable Query.
func (g *gateway) handleAuditQuery(w http.ResponseWriter, r *http.Request) {
	filter := audit.Filter{
		Actor:   r.URL.Query().Get("actor"),
		TraceID: r.URL.Query().Get("traceId"),
	}
	entries := g.stream.Query(filter)
	writeJSON(w, http.StatusOK, entries)
}

func (g *gateway) recordAudit(ctx context.Context, traceID, requestID string, eventType types.AuditEventType, severity types.Severity, actor, action, target string, details map[string]any) {
	g.stream.Write(ctx, types.AuditEntry{
		ID:        types.NewID(),
		Timestamp: g.clock.Now(),
		TraceID:   traceID,
		RequestID: requestID,
		EventType: eventType,
		Severity:  severity,
		Actor:     actor,
		Action:    action,
		Target:    target,
		Details:   details,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
