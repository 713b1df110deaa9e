package investigate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusflow/signals/internal/llm"
	"github.com/nexusflow/signals/internal/model"
)

type scriptedCompleter struct {
	responses []string
	errs      []error
	calls     int
}

func (s *scriptedCompleter) Complete(_ context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
	i := s.calls
	s.calls++
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	if s.errs != nil && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return &llm.CompletionResponse{Content: s.responses[i]}, nil
}

const corpus = `#revenue-alerts 2025-03-12
Priya Raman from Sales Ops flagged that APAC enterprise renewals collapsed after the Zenith acquisition migration.
She proposed an automated renewal outreach workflow and validated it with the Q1 pilot numbers.
Unrelated chatter about the office move follows here.
`

func writeCorpus(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "internal_context_dump.txt")
	require.NoError(t, os.WriteFile(path, []byte(corpus), 0o644))
	return path
}

func finding() model.Finding {
	return model.Finding{ID: "SIG-001", Type: "Revenue Leak", Value: "-40%", Segment: "APAC Enterprise", Description: "renewal drop"}
}

func TestInvestigateParsesInsight(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{`{
		"source": "Slack #revenue-alerts",
		"content": "APAC enterprise renewals collapsed after the Zenith acquisition migration",
		"date": "2025-03-12",
		"relevance_score": 0.95,
		"employee_attribution": {
			"name": "Priya Raman",
			"department": "Sales Ops",
			"proposal_summary": "Automated renewal outreach workflow"
		}
	}`}}

	v := NewInvestigator(completer, "model")
	insights := v.Investigate(context.Background(), []model.Finding{finding()}, writeCorpus(t))

	require.Len(t, insights, 1)
	insight := insights[0]
	assert.Equal(t, "SIG-001", insight.SignalID)
	assert.Equal(t, "Slack #revenue-alerts", insight.Source)
	assert.Equal(t, 0.95, insight.RelevanceScore)
	require.NotNil(t, insight.EmployeeAttribution)
	assert.Equal(t, "Priya Raman", insight.EmployeeAttribution.Name)
	// The excerpt is a verbatim corpus sentence overlapping the summary.
	assert.Contains(t, insight.EvidenceExcerpt, "Zenith acquisition")
}

func TestInvestigateNullMeansNoContext(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{"null"}}

	v := NewInvestigator(completer, "model")
	insights := v.Investigate(context.Background(), []model.Finding{finding()}, writeCorpus(t))
	assert.Empty(t, insights)
}

func TestInvestigateSkipsFailuresInIsolation(t *testing.T) {
	completer := &scriptedCompleter{
		responses: []string{"", "not json at all", `{"source": "Email", "content": "relevant context here", "relevance_score": 2.5}`},
		errs:      []error{errors.New("timeout"), nil, nil},
	}

	findings := []model.Finding{
		{ID: "SIG-001", Segment: "APAC Enterprise"},
		{ID: "SIG-002", Segment: "EMEA SMB"},
		{ID: "SIG-003", Segment: "AMER Mid-Market"},
	}

	v := NewInvestigator(completer, "model")
	insights := v.Investigate(context.Background(), findings, writeCorpus(t))

	require.Len(t, insights, 1)
	assert.Equal(t, "SIG-003", insights[0].SignalID)
	// Scores are clamped into [0, 1].
	assert.Equal(t, 1.0, insights[0].RelevanceScore)
}

func TestInvestigateMissingCorpus(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{"{}"}}

	v := NewInvestigator(completer, "model")
	insights := v.Investigate(context.Background(), []model.Finding{finding()}, filepath.Join(t.TempDir(), "missing.txt"))

	assert.Nil(t, insights)
	assert.Equal(t, 0, completer.calls)
}

func TestInvestigateEmptyContentSkipped(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{`{"source": "Email", "content": ""}`}}

	v := NewInvestigator(completer, "model")
	insights := v.Investigate(context.Background(), []model.Finding{finding()}, writeCorpus(t))
	assert.Empty(t, insights)
}

type promptRecorder struct {
	prompts []string
}

func (p *promptRecorder) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.prompts = append(p.prompts, req.UserPrompt)
	return &llm.CompletionResponse{Content: "null"}, nil
}

func TestInvestigateWindowKeepsRunesIntact(t *testing.T) {
	// A two-byte rune straddling the 15k window boundary must not be split.
	big := strings.Repeat("a", corpusWindowBytes-1) + "é" + strings.Repeat("b", 500)
	path := filepath.Join(t.TempDir(), "internal_context_dump.txt")
	require.NoError(t, os.WriteFile(path, []byte(big), 0o644))

	recorder := &promptRecorder{}
	v := NewInvestigator(recorder, "model")
	v.Investigate(context.Background(), []model.Finding{finding()}, path)

	require.Len(t, recorder.prompts, 1)
	assert.True(t, utf8.ValidString(recorder.prompts[0]))
	assert.NotContains(t, recorder.prompts[0], "b")
}

func TestBestExcerpt(t *testing.T) {
	excerpt := bestExcerpt(corpus, "APAC enterprise renewals collapsed after the Zenith acquisition")
	assert.Contains(t, excerpt, "renewals collapsed")

	assert.Empty(t, bestExcerpt(corpus, "totally unrelated words qqq zzz"))
	assert.Empty(t, bestExcerpt(corpus, ""))
}
