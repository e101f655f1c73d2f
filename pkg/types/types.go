// Package types defines the shared value types that flow between every
// component of the gateway: protocol tags, normalized requests and
// intents, tool definitions, routing decisions, sandboxes, execution
// results, and audit entries.
package types

import (
	"time"

	"github.com/invopop/jsonschema"
)

// ProtocolTag identifies one of the six supported wire formats.
type ProtocolTag string

const (
	ProtocolMCP ProtocolTag = "mcp"
	ProtocolA2A ProtocolTag = "a2a"
	ProtocolUCP ProtocolTag = "ucp"
	ProtocolACP ProtocolTag = "acp"
	ProtocolV1  ProtocolTag = "v1"
	ProtocolV2  ProtocolTag = "v2"
)

// Protocols lists every supported tag in a fixed, stable order. Adapters
// are registered and probed in this order by the dispatcher.
var Protocols = []ProtocolTag{ProtocolMCP, ProtocolA2A, ProtocolUCP, ProtocolACP, ProtocolV1, ProtocolV2}

// IntentCategory is the closed set of intent classifications an adapter
// can produce during normalization.
type IntentCategory string

const (
	CategoryToolCall           IntentCategory = "tool_call"
	CategoryInformationRequest IntentCategory = "information_request"
	CategoryActionExecution    IntentCategory = "action_execution"
	CategoryDataRetrieval      IntentCategory = "data_retrieval"
	CategoryCodeGeneration     IntentCategory = "code_generation"
	CategoryAnalysis           IntentCategory = "analysis"
	CategoryConversation       IntentCategory = "conversation"
	CategoryEscalation         IntentCategory = "escalation"
)

// Alternative is a lower-confidence classification considered but not
// chosen during normalization. Alternatives are data, not control flow.
type Alternative struct {
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Embedding is a fixed-dimension, L2-normalized vector tagged with the
// model identifier that produced it.
type Embedding struct {
	Vector []float32 `json:"vector"`
	Model  string    `json:"model"`
}

// Intent is the category+action+target tuple plus parameters produced
// by normalization. Parameters is preserved as opaque dynamic data
// because adapters handle arbitrary payloads.
type Intent struct {
	ID           string         `json:"id"`
	Category     IntentCategory `json:"category"`
	Action       string         `json:"action"`
	Target       string         `json:"target"`
	Parameters   map[string]any `json:"parameters"`
	Confidence   float64        `json:"confidence"`
	Alternatives []Alternative  `json:"alternatives,omitempty"`
	Embedding    *Embedding     `json:"embedding,omitempty"`
}

// RequestContext carries conversational and environmental context for a
// normalized request.
type RequestContext struct {
	SessionID           string           `json:"sessionId"`
	UserID              string           `json:"userId"`
	ConversationHistory []HistoryMessage `json:"conversationHistory,omitempty"`
	AvailableTools      []string         `json:"availableTools,omitempty"`
	Constraints         map[string]any   `json:"constraints,omitempty"`
	Preferences         map[string]any   `json:"preferences,omitempty"`
}

// HistoryMessage is one turn of conversational history attached to a
// request's context, role-tagged the way every chat-style protocol in
// this spec represents a turn.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RequestMetadata carries the priority, budget, and audit-control
// knobs for a request.
type RequestMetadata struct {
	Priority              int           `json:"priority"`
	MaxLatency            time.Duration `json:"maxLatency"`
	MaxBudget             float64       `json:"maxBudget"`
	HumanApprovalRequired bool          `json:"humanApprovalRequired"`
	AuditLevel            string        `json:"auditLevel"`
	TraceID               string        `json:"traceId"`
}

// NormalizedRequest is the internal post-adapter value shared by every
// downstream component. It is never mutated after construction.
type NormalizedRequest struct {
	ID         string          `json:"id"`
	CreatedAt  time.Time       `json:"createdAt"`
	Source     ProtocolTag     `json:"source"`
	RawPayload []byte          `json:"-"`
	Intent     Intent          `json:"intent"`
	Context    RequestContext  `json:"context"`
	Metadata   RequestMetadata `json:"metadata"`
}

// ToolDefinition is a catalog entry. Catalog entries are immutable for
// the lifetime of a routing call.
type ToolDefinition struct {
	ID                  string             `json:"id"`
	Name                string             `json:"name"`
	Description         string             `json:"description"`
	SourceProtocol      ProtocolTag        `json:"sourceProtocol"`
	ParameterSchema     *jsonschema.Schema `json:"parameterSchema,omitempty"`
	ReturnSchema        *jsonschema.Schema `json:"returnSchema,omitempty"`
	CostEstimate        *float64           `json:"costEstimate,omitempty"`
	LatencyEstimateMs    *float64          `json:"latencyEstimateMs,omitempty"`
	RequiredCredentials []string           `json:"requiredCredentials,omitempty"`
}

// RoutingDecision is the result of the intent router's selection.
type RoutingDecision struct {
	RequestID        string           `json:"requestId"`
	SelectedTool     ToolDefinition   `json:"selectedTool"`
	Confidence       float64          `json:"confidence"`
	Reasoning        string           `json:"reasoning"`
	Fallbacks        []ToolDefinition `json:"fallbacks,omitempty"`
	EstimatedLatency time.Duration    `json:"estimatedLatency"`
	EstimatedCost    float64          `json:"estimatedCost"`
	RequiresApproval bool             `json:"requiresApproval"`
	ApprovalReason   string           `json:"approvalReason,omitempty"`
}

// SandboxState is the lifecycle state of a Sandbox.
type SandboxState string

const (
	SandboxCreating   SandboxState = "creating"
	SandboxReady      SandboxState = "ready"
	SandboxRunning    SandboxState = "running"
	SandboxDestroyed  SandboxState = "destroyed"
)

// NetworkPolicy constrains a sandbox's outbound network access.
type NetworkPolicy string

const (
	NetworkNone       NetworkPolicy = "none"
	NetworkRestricted NetworkPolicy = "restricted"
	NetworkOpen       NetworkPolicy = "open"
)

// SandboxConfig describes the resources and policy a Sandbox is created
// with.
type SandboxConfig struct {
	Image         string            `json:"image"`
	CPU           float64           `json:"cpu"`
	MemoryMiB     int               `json:"memoryMiB"`
	DiskGiB       int               `json:"diskGiB"`
	Network       NetworkPolicy     `json:"network"`
	AllowedTools  []string          `json:"allowedTools"`
	TimeoutMs     int               `json:"timeoutMs"`
	Env           map[string]string `json:"env,omitempty"`
}

// ExecutionMetrics records the timing and resource usage of one tool
// execution.
type ExecutionMetrics struct {
	ColdStartMs  float64 `json:"coldStartMs"`
	ExecMs       float64 `json:"execMs"`
	TotalMs      float64 `json:"totalMs"`
	MemoryPeakMB float64 `json:"memoryPeakMB"`
	CPUPercent   float64 `json:"cpuPercent"`
}

// ExecutionError carries a stable code and message for a failed
// execution, with optional captured process output.
type ExecutionError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Stdout  string `json:"stdout,omitempty"`
	Stderr  string `json:"stderr,omitempty"`
	ExitCode *int  `json:"exitCode,omitempty"`
}

func (e *ExecutionError) Error() string {
	return e.Code + ": " + e.Message
}

// ExecutionResult is the outcome of a sandboxed tool invocation.
type ExecutionResult struct {
	Success bool              `json:"success"`
	Output  any               `json:"output,omitempty"`
	Err     *ExecutionError   `json:"error,omitempty"`
	Metrics ExecutionMetrics  `json:"metrics"`
}

// AuditEventType is the closed set of event kinds an AuditEntry can
// represent.
type AuditEventType string

const (
	EventRequestReceived        AuditEventType = "request_received"
	EventIntentClassified       AuditEventType = "intent_classified"
	EventToolSelected           AuditEventType = "tool_selected"
	EventRoutingFailed          AuditEventType = "routing_failed"
	EventHumanApprovalRequested AuditEventType = "human_approval_requested"
	EventToolExecuted           AuditEventType = "tool_executed"
	EventToolFailed             AuditEventType = "tool_failed"
	EventSandboxCreated         AuditEventType = "sandbox_created"
	EventSandboxDestroyed       AuditEventType = "sandbox_destroyed"
	EventSecurityAlert          AuditEventType = "security_alert"
	EventCredentialResolved     AuditEventType = "credential_resolved"
)

// Severity is the closed set of audit entry severities.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// ReviewDecision is the closed set of human review outcomes.
type ReviewDecision string

const (
	ReviewApproved ReviewDecision = "approved"
	ReviewRejected ReviewDecision = "rejected"
	ReviewModified ReviewDecision = "modified"
)

// HumanReview records a reviewer's decision on an audit entry. An entry
// is append-only; HumanReview is set at most once.
type HumanReview struct {
	ReviewerID    string         `json:"reviewerId"`
	Decision      ReviewDecision `json:"decision"`
	Timestamp     time.Time      `json:"timestamp"`
	Comments      string         `json:"comments,omitempty"`
	Modifications map[string]any `json:"modifications,omitempty"`
}

// AuditEntry is an append-only record of one consequential event in the
// pipeline.
type AuditEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	TraceID   string         `json:"traceId"`
	RequestID string         `json:"requestId"`
	EventType AuditEventType `json:"eventType"`
	Severity  Severity       `json:"severity"`
	Actor     string         `json:"actor"`
	Action    string         `json:"action"`
	Target    string         `json:"target"`
	Details   map[string]any `json:"details,omitempty"`
	Before    map[string]any `json:"before,omitempty"`
	After     map[string]any `json:"after,omitempty"`
	Review    *HumanReview   `json:"review,omitempty"`
}
