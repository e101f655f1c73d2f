// Package audit turns raw pipeline events into compact, human-reviewable
// views and buffers them for multi-subscriber fan-out and filtered query.
package audit

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/meshgate/core/pkg/observability"
	"github.com/meshgate/core/pkg/types"
)

// View is the human-optimized projection of an AuditEntry, targeting
// comprehensionTargetSec (5s) to read.
type View struct {
	Title    string
	Summary  Summary
	Details  Details
	Actions  []Action
	Metadata Metadata
}

// Summary is the one-line digest of an audit entry.
type Summary struct {
	What   string
	Who    string
	When   string
	Impact string
	Status string
}

// Details carries the before/after diff and cross-reference context.
type Details struct {
	Before        map[string]any
	After         map[string]any
	Changes       []Change
	Context       Context
	RelatedEntries []string
}

// Change is one field-level difference between before and after.
type Change struct {
	Field string
	Kind  string // "added" | "removed" | "modified"
}

// Context is the cross-reference block inside Details.
type Context struct {
	TraceID       string
	RequestID     string
	EventType     types.AuditEventType
	Severity      types.Severity
	Timestamp     time.Time
	Actor         string
	RelatedEvents int
	HasHumanReview bool
}

// Action is one reviewer-facing affordance on a View.
type Action string

const (
	ActionViewDetails Action = "View Details"
	ActionApprove     Action = "Approve"
	ActionReject      Action = "Reject"
	ActionModify      Action = "Modify"
)

// Metadata carries the comprehension-telemetry fields of a View.
type Metadata struct {
	CreatedAt              time.Time
	ComprehensionTargetSec int
	EstimatedReadTimeSec   int
	Complexity             string
}

const comprehensionTargetSec = 5

var eventTitles = map[types.AuditEventType]string{
	types.EventRequestReceived:        "Request Received",
	types.EventIntentClassified:       "Intent Classified",
	types.EventToolSelected:           "Tool Selected",
	types.EventRoutingFailed:          "Routing Failed",
	types.EventHumanApprovalRequested: "Approval Required",
	types.EventToolExecuted:           "Tool Executed",
	types.EventToolFailed:             "Tool Execution Failed",
	types.EventSandboxCreated:         "Sandbox Created",
	types.EventSandboxDestroyed:       "Sandbox Destroyed",
	types.EventSecurityAlert:          "Security Alert",
	types.EventCredentialResolved:     "Credential Resolved",
}

// BuildView projects entry (plus any related entries sharing its trace
// id) into a View. Passing ≥1 related entries with entry itself (2+
// total sharing a trace id) produces a batch view instead.
func BuildView(entry types.AuditEntry, related ...types.AuditEntry) View {
	if len(related) > 0 {
		return buildBatchView(entry, related)
	}

	changes := detectChanges(entry.Before, entry.After)
	details := Details{
		Before:  entry.Before,
		After:   entry.After,
		Changes: changes,
		Context: Context{
			TraceID:        entry.TraceID,
			RequestID:      entry.RequestID,
			EventType:      entry.EventType,
			Severity:       entry.Severity,
			Timestamp:      entry.Timestamp,
			Actor:          entry.Actor,
			RelatedEvents:  0,
			HasHumanReview: entry.Review != nil,
		},
	}

	detailSize := estimateDetailSize(entry)

	return View{
		Title: title(entry),
		Summary: Summary{
			What:   what(entry),
			Who:    entry.Actor,
			When:   relativeTime(entry.Timestamp),
			Impact: impact(entry),
			Status: status(entry),
		},
		Details: details,
		Actions: actions(entry),
		Metadata: Metadata{
			CreatedAt:              entry.Timestamp,
			ComprehensionTargetSec: comprehensionTargetSec,
			EstimatedReadTimeSec:   estimatedReadTimeSec(entry, detailSize),
			Complexity:             complexity(entry, detailSize),
		},
	}
}

// RecordComprehension reports a built view's estimated read time on the
// meshgate_audit_estimated_read_seconds histogram, giving an operator an
// aggregate signal for review burden across the low-read-time audit
// views this package builds.
func RecordComprehension(metrics *observability.Metrics, view View) {
	metrics.RecordAuditComprehension(float64(view.Metadata.EstimatedReadTimeSec))
}

func title(entry types.AuditEntry) string {
	switch entry.EventType {
	case types.EventToolExecuted:
		if entry.Target != "" {
			return "Tool Executed: " + entry.Target
		}
		return eventTitles[entry.EventType]
	case types.EventHumanApprovalRequested:
		return "Approval Required"
	case types.EventSecurityAlert:
		return "Security Alert"
	}
	if t, ok := eventTitles[entry.EventType]; ok {
		return t
	}
	return string(entry.EventType)
}

func what(entry types.AuditEntry) string {
	if entry.Action != "" {
		return entry.Action
	}
	return title(entry) + " for " + entry.Target
}

// impact applies the first-match impact table.
func impact(entry types.AuditEntry) string {
	switch {
	case entry.EventType == types.EventSecurityAlert:
		return "critical"
	case entry.EventType == types.EventToolFailed && entry.Severity == types.SeverityError:
		return "high"
	case entry.EventType == types.EventHumanApprovalRequested:
		return "high"
	case entry.Severity == types.SeverityError:
		return "high"
	case entry.EventType == types.EventToolExecuted:
		return "medium"
	case entry.EventType == types.EventIntentClassified:
		return "medium"
	default:
		return "low"
	}
}

func status(entry types.AuditEntry) string {
	if entry.EventType != types.EventHumanApprovalRequested {
		return "recorded"
	}
	if entry.Review == nil {
		return "pending"
	}
	switch entry.Review.Decision {
	case types.ReviewApproved:
		return "approved"
	case types.ReviewRejected:
		return "rejected"
	case types.ReviewModified:
		return "modified"
	}
	return "pending"
}

func actions(entry types.AuditEntry) []Action {
	acts := []Action{ActionViewDetails}
	if entry.EventType == types.EventHumanApprovalRequested && entry.Review == nil {
		acts = append(acts, ActionApprove, ActionReject, ActionModify)
	}
	return acts
}

// relativeTime formats t relative to now per spec.md §4.5: "just now"
// within 60s, "Nm ago" within an hour, "Nh ago" within a day, else a
// plain date.
func relativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < 60*time.Second:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Format("2006-01-02")
	}
}

// detectChanges compares before and after maps: keys only in after are
// added, keys only in before are removed, keys in both whose canonical
// JSON differs are modified.
func detectChanges(before, after map[string]any) []Change {
	var changes []Change
	for k := range after {
		if _, ok := before[k]; !ok {
			changes = append(changes, Change{Field: k, Kind: "added"})
		}
	}
	for k := range before {
		if _, ok := after[k]; !ok {
			changes = append(changes, Change{Field: k, Kind: "removed"})
		}
	}
	for k, bv := range before {
		av, ok := after[k]
		if !ok {
			continue
		}
		if canonicalScalar(bv) != canonicalScalar(av) {
			changes = append(changes, Change{Field: k, Kind: "modified"})
		}
	}
	return changes
}

// canonicalScalar wraps a single value the same way types.Canonicalize
// normalizes a whole map, so two differently-typed-but-equal numbers
// compare equal and nested structures compare structurally.
func canonicalScalar(v any) string {
	return types.Canonicalize(map[string]any{"_": v})
}

func estimateDetailSize(entry types.AuditEntry) int {
	size := len(types.Canonicalize(entry.Details))
	size += len(types.Canonicalize(entry.Before))
	size += len(types.Canonicalize(entry.After))
	return size
}

func wordCount(entry types.AuditEntry) int {
	text := entry.Action + " " + entry.Target + " " + what(entry)
	return len(strings.FieldsFunc(text, func(r rune) bool { return unicode.IsSpace(r) }))
}

// estimatedReadTimeSec implements ceil(wordCount/3.3 + detailSize/100*0.5).
func estimatedReadTimeSec(entry types.AuditEntry, detailSize int) int {
	seconds := float64(wordCount(entry))/3.3 + float64(detailSize)/100*0.5
	return int(math.Ceil(seconds))
}

func complexity(entry types.AuditEntry, detailSize int) string {
	switch {
	case entry.EventType == types.EventRequestReceived:
		return "simple"
	case entry.EventType == types.EventSecurityAlert:
		return "complex"
	case detailSize > 5000:
		return "complex"
	case detailSize > 1000:
		return "moderate"
	default:
		return "simple"
	}
}

// buildBatchView projects ≥2 entries sharing a trace id into a single
// summarized view.
func buildBatchView(first types.AuditEntry, rest []types.AuditEntry) View {
	all := append([]types.AuditEntry{first}, rest...)

	worstImpact := "low"
	impactRank := map[string]int{"low": 0, "medium": 1, "high": 2, "critical": 3}
	anyPending, anyRejected := false, false
	var ids []string

	for _, e := range all {
		if impactRank[impact(e)] > impactRank[worstImpact] {
			worstImpact = impact(e)
		}
		if e.EventType == types.EventHumanApprovalRequested && e.Review == nil {
			anyPending = true
		}
		if e.Review != nil && e.Review.Decision == types.ReviewRejected {
			anyRejected = true
		}
		ids = append(ids, e.ID)
	}

	batchStatus := "approved"
	switch {
	case anyPending:
		batchStatus = "pending"
	case anyRejected:
		batchStatus = "rejected"
	}

	readSec := len(all) * 2
	if readSec > 30 {
		readSec = 30
	}

	return View{
		Title: fmt.Sprintf("Batch: %d events", len(all)),
		Summary: Summary{
			What:   fmt.Sprintf("%d related events on trace %s", len(all), first.TraceID),
			Who:    first.Actor,
			When:   relativeTime(first.Timestamp),
			Impact: worstImpact,
			Status: batchStatus,
		},
		Details: Details{
			Context: Context{
				TraceID:       first.TraceID,
				RequestID:     first.RequestID,
				EventType:     first.EventType,
				Severity:      first.Severity,
				Timestamp:     first.Timestamp,
				Actor:         first.Actor,
				RelatedEvents: len(all) - 1,
			},
			RelatedEntries: ids,
		},
		Actions: []Action{ActionViewDetails},
		Metadata: Metadata{
			CreatedAt:              first.Timestamp,
			ComprehensionTargetSec: comprehensionTargetSec,
			EstimatedReadTimeSec:   readSec,
			Complexity:             "moderate",
		},
	}
}
