package recommend

import (
	"context"
	"encoding/json"
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
	websearch "github.com/nexusflow/signals/internal/search/web"
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

func writeBacklog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transformation_backlog.json")
	backlog := `[
		{"id": "TRANS-001", "title": "Checkout Platform Rebuild", "impact_usd": 2450000, "tech_spec": "Event-driven checkout service"},
		{"id": "TRANS-002", "title": "Pricing Engine", "impact_usd": 600000, "description": "Dynamic pricing rules"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(backlog), 0o644))
	return path
}

func leak(id, segment string) model.Finding {
	return model.Finding{ID: id, Type: "Revenue Leak", Value: "-30%", Segment: segment, Description: "revenue drop"}
}

func TestRecommendMatchesProject(t *testing.T) {
	completer := &scriptedCompleter{
		responses: []string{`{"project_id": "TRANS-001", "complexity_points": 40}`},
	}
	strategist := NewStrategist(completer, "model", nil, 3, 60)

	recs := strategist.Recommend(context.Background(), []model.Finding{leak("SIG-001", "APAC Enterprise")}, nil, writeBacklog(t))

	require.Len(t, recs, 1)
	assert.Equal(t, "Checkout Platform Rebuild", recs[0].ProjectTitle)
	assert.Equal(t, float64(800_000), recs[0].CostUSD)
	assert.Equal(t, "3.1x", recs[0].ROIMetric)
	assert.Equal(t, float64(1_650_000), recs[0].NetStrategicValue)
	assert.Equal(t, 8, recs[0].FeasibilityScore)
	assert.Equal(t, "Event-driven checkout service", recs[0].TechnicalSpec)
	assert.Equal(t, "No market data (search unavailable).", recs[0].MarketContext)
}

func TestRecommendSkipsUnknownProject(t *testing.T) {
	completer := &scriptedCompleter{
		responses: []string{`{"project_id": "TRANS-999", "complexity_points": 10}`},
	}
	strategist := NewStrategist(completer, "model", nil, 3, 60)

	recs := strategist.Recommend(context.Background(), []model.Finding{leak("SIG-001", "APAC Enterprise")}, nil, writeBacklog(t))
	assert.Empty(t, recs)
}

func TestRecommendSkipsFailedMatches(t *testing.T) {
	completer := &scriptedCompleter{
		responses: []string{"", `{"project_id": "TRANS-002", "complexity_points": 5}`},
		errs:      []error{errors.New("rate limited"), nil},
	}
	strategist := NewStrategist(completer, "model", nil, 3, 60)

	findings := []model.Finding{leak("SIG-001", "APAC Enterprise"), leak("SIG-002", "EMEA SMB")}
	recs := strategist.Recommend(context.Background(), findings, nil, writeBacklog(t))

	require.Len(t, recs, 1)
	assert.Equal(t, "Pricing Engine", recs[0].ProjectTitle)
}

func TestRecommendDefaultComplexity(t *testing.T) {
	completer := &scriptedCompleter{
		responses: []string{`{"project_id": "TRANS-002"}`},
	}
	strategist := NewStrategist(completer, "model", nil, 3, 60)

	recs := strategist.Recommend(context.Background(), []model.Finding{leak("SIG-001", "EMEA SMB")}, nil, writeBacklog(t))

	require.Len(t, recs, 1)
	assert.Equal(t, float64(100_000), recs[0].CostUSD)
}

func TestRecommendOrdersByNetValue(t *testing.T) {
	completer := &scriptedCompleter{
		responses: []string{
			`{"project_id": "TRANS-002", "complexity_points": 5}`,
			`{"project_id": "TRANS-001", "complexity_points": 40}`,
		},
	}
	strategist := NewStrategist(completer, "model", nil, 3, 60)

	findings := []model.Finding{leak("SIG-001", "EMEA SMB"), leak("SIG-002", "APAC Enterprise")}
	recs := strategist.Recommend(context.Background(), findings, nil, writeBacklog(t))

	require.Len(t, recs, 2)
	assert.Equal(t, "Checkout Platform Rebuild", recs[0].ProjectTitle)
	assert.Greater(t, recs[0].NetStrategicValue, recs[1].NetStrategicValue)
}

func TestRecommendMissingBacklog(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{"{}"}}
	strategist := NewStrategist(completer, "model", nil, 3, 60)

	recs := strategist.Recommend(context.Background(), []model.Finding{leak("SIG-001", "APAC Enterprise")}, nil,
		filepath.Join(t.TempDir(), "missing.json"))
	assert.Nil(t, recs)
	assert.Equal(t, 0, completer.calls)
}

func TestRecommendNoFindings(t *testing.T) {
	strategist := NewStrategist(&scriptedCompleter{responses: []string{"{}"}}, "model", nil, 3, 60)
	assert.Nil(t, strategist.Recommend(context.Background(), nil, nil, writeBacklog(t)))
}

type staticSearcher struct {
	results []websearch.SearchResult
}

func (s *staticSearcher) Search(_ context.Context, _ string, _ int) ([]websearch.SearchResult, error) {
	return s.results, nil
}

func TestMarketContextKeepsRunesIntact(t *testing.T) {
	// Three-byte runes do not align with the 200-byte per-result cap.
	searcher := &staticSearcher{results: []websearch.SearchResult{
		{Content: strings.Repeat("€", 100)},
	}}
	strategist := NewStrategist(&scriptedCompleter{responses: []string{"{}"}}, "model", searcher, 3, 60)

	got := strategist.marketContext(context.Background(), leak("SIG-001", "APAC Enterprise"), &model.CatalogEntry{Title: "Pricing Engine"})
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), marketContextLimit)
	assert.Contains(t, got, "€")
}

func TestCatalogPromptLimit(t *testing.T) {
	entries := make([]model.CatalogEntry, 0, 20)
	for i := 0; i < 20; i++ {
		entries = append(entries, model.CatalogEntry{ID: "TRANS-X", Title: "t"})
	}

	out := catalogPromptJSON(entries)
	var decoded []model.CatalogEntry
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Len(t, decoded, catalogPromptLimit)
}
