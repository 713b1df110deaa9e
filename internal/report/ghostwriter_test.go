package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusflow/signals/internal/llm"
	"github.com/nexusflow/signals/internal/model"
)

type stubCompleter struct {
	content string
	err     error
	calls   int
}

func (s *stubCompleter) Complete(_ context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &llm.CompletionResponse{Content: s.content}, nil
}

var fixedNow = time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC)

func newTestGhostwriter(completer llm.Completer) *Ghostwriter {
	g := NewGhostwriter(completer, "model")
	g.now = func() time.Time { return fixedNow }
	return g
}

func TestAssembleGroupsIntoMasterSignal(t *testing.T) {
	completer := &stubCompleter{err: llm.ErrNotConfigured}
	g := newTestGhostwriter(completer)

	findings := []model.Finding{
		{ID: "SIG-001", Type: "Anomaly", Value: "-40%", ImpactUSD: -1_750_000, Segment: "APAC Enterprise", Description: "enterprise drop"},
		{ID: "SIG-002", Type: "Anomaly", Value: "-25%", ImpactUSD: -1_200_000, Segment: "APAC SMB", Description: "smb drop"},
	}

	entries := g.Assemble(context.Background(), findings, nil, nil)

	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, "SIG-APAC-202504010930-01", entry.SignalID)
	assert.Equal(t, model.SeverityCritical, entry.Severity)
	assert.Contains(t, entry.Title, "Cross-Segment Contraction")
	assert.Equal(t, "$-2950k", entry.Impact)
	assert.Contains(t, entry.Prose, "APAC Enterprise, APAC SMB")
	assert.Equal(t, "Aggregated Revenue Leak across 2 segments in APAC.", entry.Summary)
	assert.Equal(t, entry.Severity, entry.Status)
	// No synthesis call for master signals.
	assert.Equal(t, 0, completer.calls)
}

func TestAssembleSeparateRegionsStaySeparate(t *testing.T) {
	g := newTestGhostwriter(&stubCompleter{err: llm.ErrNotConfigured})

	findings := []model.Finding{
		{ID: "SIG-001", Type: "Anomaly", Value: "-40%", ImpactUSD: -900_000, Segment: "APAC Enterprise", Description: "apac drop"},
		{ID: "SIG-002", Type: "Anomaly", Value: "-25%", ImpactUSD: -500_000, Segment: "EMEA Enterprise", Description: "emea drop"},
	}

	entries := g.Assemble(context.Background(), findings, nil, nil)
	require.Len(t, entries, 2)
	assert.Contains(t, entries[0].Title, "Critical Revenue Leak")
	assert.Equal(t, "-40%", entries[0].Impact)
}

func TestAssembleFirstSingleGetsSynthesizedProse(t *testing.T) {
	completer := &stubCompleter{content: "A detailed investment memo."}
	g := newTestGhostwriter(completer)

	findings := []model.Finding{
		{ID: "SIG-001", Type: "Anomaly", Value: "-40%", ImpactUSD: -900_000, Segment: "APAC Enterprise", Description: "apac drop"},
		{ID: "SIG-002", Type: "Anomaly", Value: "-25%", ImpactUSD: -500_000, Segment: "EMEA Enterprise", Description: "emea drop"},
	}

	entries := g.Assemble(context.Background(), findings, nil, nil)
	require.Len(t, entries, 2)

	assert.Equal(t, "A detailed investment memo.", entries[0].Prose)
	assert.Equal(t, "A Revenue Leak has been detected in EMEA Enterprise.", entries[1].Prose)
	assert.Equal(t, 1, completer.calls)
}

func TestAssembleMemoFallbackProse(t *testing.T) {
	g := newTestGhostwriter(&stubCompleter{err: llm.ErrNotConfigured})

	findings := []model.Finding{
		{ID: "SIG-001", Type: "Anomaly", Metric: "Revenue", Value: "-40%", ImpactUSD: -900_000, Segment: "APAC Enterprise", Description: "apac drop"},
	}

	entries := g.Assemble(context.Background(), findings, nil, nil)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Prose, "**Revenue Leak**")
	assert.Contains(t, entries[0].Prose, "**APAC Enterprise**")
}

func TestAssembleAttachesInsightAndRecommendation(t *testing.T) {
	g := newTestGhostwriter(&stubCompleter{content: "memo"})

	findings := []model.Finding{
		{ID: "SIG-001", Type: "Anomaly", Value: "-40%", ImpactUSD: -900_000, Segment: "APAC Enterprise", Description: "apac drop"},
	}
	insights := []model.ContextInsight{{
		SignalID: "SIG-001",
		Source:   "Slack #revenue-alerts",
		Content:  "Fallout from the Zenith acquisition integration",
		EmployeeAttribution: &model.EmployeeAttribution{
			Name:       "Dana Whitfield",
			Department: "Sales Ops",
		},
	}}
	recommendations := []model.Recommendation{{
		ProjectTitle:      "Checkout Platform Rebuild",
		ROIMetric:         "3.1x",
		ImpactUSD:         2_450_000,
		FeasibilityScore:  8,
		NetStrategicValue: 1_650_000,
	}}

	entries := g.Assemble(context.Background(), findings, insights, recommendations)
	require.Len(t, entries, 1)
	entry := entries[0]

	assert.Contains(t, entry.Title, "Post-Acquisition Impact")
	assert.Equal(t, "Slack #revenue-alerts", entry.ContextSource)
	require.NotNil(t, entry.Recommendation)
	assert.Equal(t, "Checkout Platform Rebuild", entry.Recommendation.ProjectTitle)
	assert.Equal(t, "3.1x", entry.Recommendation.ROIMetric)
	require.NotNil(t, entry.EmployeeAttribution)
	assert.Equal(t, "Dana Whitfield", entry.EmployeeAttribution.Name)
}

func TestAssembleDefaults(t *testing.T) {
	g := newTestGhostwriter(&stubCompleter{content: "memo"})

	findings := []model.Finding{
		{ID: "SIG-001", Type: "Growth Opportunity", Value: "+20%", ImpactUSD: 500_000, Segment: "EMEA SMB", Description: "uptick"},
	}

	entries := g.Assemble(context.Background(), findings, nil, nil)
	require.Len(t, entries, 1)
	entry := entries[0]

	assert.Equal(t, model.SeverityMedium, entry.Severity)
	assert.Contains(t, entry.Title, "Strategic Growth Opportunity")
	assert.Equal(t, "Internal Data Analysis", entry.ContextSource)
	assert.Nil(t, entry.Recommendation)
	assert.Nil(t, entry.EmployeeAttribution)
	assert.Equal(t, "2025-04-01", entry.Date)
}

func TestAssembleEmpty(t *testing.T) {
	g := newTestGhostwriter(&stubCompleter{content: "memo"})
	assert.Nil(t, g.Assemble(context.Background(), nil, nil, nil))
}

func TestFormatImpact(t *testing.T) {
	assert.Equal(t, "$2.95M", formatImpact(2_950_000))
	assert.Equal(t, "$750k", formatImpact(750_000))
}
