package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshgate/core/pkg/types"
)

func TestBuildViewApprovalRequestedWithinAMinute(t *testing.T) {
	entry := types.AuditEntry{
		ID:        "entry-1",
		Timestamp: time.Now().Add(-30 * time.Second),
		TraceID:   "trace-1",
		RequestID: "req-1",
		EventType: types.EventHumanApprovalRequested,
		Severity:  types.SeverityWarning,
		Actor:     "alice",
	}

	view := BuildView(entry)

	assert.Equal(t, "Approval Required", view.Title)
	assert.Equal(t, "high", view.Summary.Impact)
	assert.Equal(t, "just now", view.Summary.When)
	assert.Contains(t, view.Actions, ActionApprove)
	assert.Contains(t, view.Actions, ActionReject)
	assert.Contains(t, view.Actions, ActionModify)
	assert.Contains(t, view.Actions, ActionViewDetails)
	assert.Equal(t, comprehensionTargetSec, view.Metadata.ComprehensionTargetSec)
}

func TestBuildViewSecurityAlertIsCriticalAndComplex(t *testing.T) {
	entry := types.AuditEntry{
		ID:        "entry-2",
		Timestamp: time.Now(),
		EventType: types.EventSecurityAlert,
		Severity:  types.SeverityCritical,
	}

	view := BuildView(entry)

	assert.Equal(t, "critical", view.Summary.Impact)
	assert.Equal(t, "complex", view.Metadata.Complexity)
}

func TestBuildViewRequestReceivedIsSimple(t *testing.T) {
	entry := types.AuditEntry{
		ID:        "entry-3",
		Timestamp: time.Now(),
		EventType: types.EventRequestReceived,
		Severity:  types.SeverityInfo,
	}

	view := BuildView(entry)

	assert.Equal(t, "simple", view.Metadata.Complexity)
	assert.NotContains(t, view.Actions, ActionApprove)
}

func TestBuildViewDetectsAddedRemovedModified(t *testing.T) {
	entry := types.AuditEntry{
		ID:        "entry-4",
		Timestamp: time.Now(),
		EventType: types.EventToolExecuted,
		Severity:  types.SeverityInfo,
		Before:    map[string]any{"status": "pending", "owner": "bob"},
		After:     map[string]any{"status": "done", "region": "us"},
	}

	view := BuildView(entry)

	kinds := map[string]string{}
	for _, c := range view.Details.Changes {
		kinds[c.Field] = c.Kind
	}
	assert.Equal(t, "modified", kinds["status"])
	assert.Equal(t, "removed", kinds["owner"])
	assert.Equal(t, "added", kinds["region"])
}

func TestBuildViewToolFailedWithErrorSeverityIsHighImpact(t *testing.T) {
	entry := types.AuditEntry{
		ID:        "entry-5",
		Timestamp: time.Now(),
		EventType: types.EventToolFailed,
		Severity:  types.SeverityError,
	}

	view := BuildView(entry)
	assert.Equal(t, "high", view.Summary.Impact)
}

func TestBuildBatchViewSummarizesSharedTraceEntries(t *testing.T) {
	base := types.AuditEntry{TraceID: "trace-batch", Timestamp: time.Now(), EventType: types.EventToolExecuted, Severity: types.SeverityInfo}
	first := base
	first.ID = "b1"
	second := base
	second.ID = "b2"
	second.EventType = types.EventHumanApprovalRequested

	view := BuildView(first, second)

	require.Equal(t, "Batch: 2 events", view.Title)
	assert.Equal(t, "high", view.Summary.Impact)
	assert.Equal(t, "pending", view.Summary.Status)
	assert.Equal(t, 4, view.Metadata.EstimatedReadTimeSec)
	assert.ElementsMatch(t, []string{"b1", "b2"}, view.Details.RelatedEntries)
}

func TestBuildBatchViewCapsReadTimeAtThirtySeconds(t *testing.T) {
	var rest []types.AuditEntry
	base := types.AuditEntry{TraceID: "trace-big", Timestamp: time.Now(), EventType: types.EventToolExecuted, Severity: types.SeverityInfo}
	for i := 0; i < 20; i++ {
		e := base
		e.ID = "entry"
		rest = append(rest, e)
	}

	view := BuildView(base, rest...)
	assert.Equal(t, 30, view.Metadata.EstimatedReadTimeSec)
}
