package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/nexusflow/signals/internal/llm"
	"github.com/nexusflow/signals/internal/metrics"
	"github.com/nexusflow/signals/internal/model"
	websearch "github.com/nexusflow/signals/internal/search/web"
	"github.com/nexusflow/signals/pkg/logger"
	"github.com/nexusflow/signals/pkg/utils"
)

const (
	marketContextLimit = 1500
	feasibilityDefault = 8
)

// Searcher is the optional market research capability. Nil or failing
// search degrades to a placeholder string.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]websearch.SearchResult, error)
}

// Strategist matches findings against the transformation backlog and
// attaches a deterministic financial justification to each match.
type Strategist struct {
	llm        llm.Completer
	model      string
	search     Searcher
	maxResults int
	cache      *gocache.Cache
}

func NewStrategist(completer llm.Completer, model string, search Searcher, maxResults, cacheTTLSec int) *Strategist {
	ttl := time.Duration(cacheTTLSec) * time.Second
	if ttl == 0 {
		ttl = time.Hour
	}
	if maxResults == 0 {
		maxResults = 3
	}
	return &Strategist{
		llm:        completer,
		model:      model,
		search:     search,
		maxResults: maxResults,
		cache:      gocache.New(ttl, 2*ttl),
	}
}

func (s *Strategist) Recommend(ctx context.Context, findings []model.Finding, insights []model.ContextInsight, backlogPath string) []model.Recommendation {
	if len(findings) == 0 {
		return nil
	}

	catalog, err := LoadCatalog(backlogPath)
	if err != nil {
		logger.Warn("backlog unavailable, skipping recommendations", zap.Error(err))
		return nil
	}
	catalogJSON := catalogPromptJSON(catalog)

	var recommendations []model.Recommendation
	for _, finding := range findings {
		insight := insightFor(insights, finding.ID)

		match, ok := s.matchProject(ctx, finding, insight, catalogJSON)
		if !ok {
			continue
		}

		entry := findEntry(catalog, match.ProjectID)
		if entry == nil {
			logger.Warn("matched project not in backlog, skipping finding",
				zap.String("signal_id", finding.ID), zap.String("project_id", match.ProjectID))
			continue
		}

		fin := ComputeFinancials(entry.ImpactUSD, match.ComplexityPoints)

		recommendations = append(recommendations, model.Recommendation{
			ProjectTitle:      entry.Title,
			ImpactUSD:         fin.ImpactUSD,
			CostUSD:           fin.CostUSD,
			FeasibilityScore:  feasibilityDefault,
			MarketContext:     s.marketContext(ctx, finding, entry),
			TechnicalSpec:     techSpec(entry),
			ROIMetric:         fin.ROIMetric,
			NetStrategicValue: fin.NetStrategicValue,
		})
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].NetStrategicValue > recommendations[j].NetStrategicValue
	})

	logger.Info("recommendations generated", zap.Int("count", len(recommendations)))
	return recommendations
}

type projectMatch struct {
	ProjectID        string `json:"project_id"`
	ComplexityPoints int    `json:"complexity_points"`
}

func (s *Strategist) matchProject(ctx context.Context, finding model.Finding, insight *model.ContextInsight, catalogJSON string) (projectMatch, bool) {
	contextLine := ""
	if insight != nil {
		contextLine = "Context: " + insight.Content
	}

	resp, err := s.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: strategistSystemPrompt,
		UserPrompt: fmt.Sprintf(`Signal detected: %s (%s impact in %s segment).
%s

Available transformation projects:
%s

Task: select the BEST project from the backlog that directly solves this signal.

Return ONLY valid JSON with this exact format:
{"project_id": "TRANS-XXX", "complexity_points": <number>}`,
			finding.Description, finding.Value, finding.Segment, contextLine, catalogJSON),
		Model: s.model,
	})
	if err != nil {
		logger.Warn("project matching failed", zap.String("signal_id", finding.ID), zap.Error(err))
		return projectMatch{}, false
	}

	fragment, ok := utils.FirstJSONObject(resp.Content)
	if !ok {
		logger.Warn("no JSON object in matcher response", zap.String("signal_id", finding.ID))
		return projectMatch{}, false
	}

	var match projectMatch
	if err := json.Unmarshal([]byte(fragment), &match); err != nil || match.ProjectID == "" {
		logger.Warn("matcher response unparsable", zap.String("signal_id", finding.ID), zap.Error(err))
		return projectMatch{}, false
	}
	if match.ComplexityPoints <= 0 {
		match.ComplexityPoints = 5
	}

	return match, true
}

const strategistSystemPrompt = `You are a senior strategic transformation architect.
Align operational problems with the most high-leverage transformation initiatives from the backlog.
Favor platform solutions over point solutions when the problem is systemic.
Verify that the solution directly addresses the root cause described in the context.`

func (s *Strategist) marketContext(ctx context.Context, finding model.Finding, entry *model.CatalogEntry) string {
	const placeholder = "No market data (search unavailable)."
	if s.search == nil {
		return placeholder
	}

	query := fmt.Sprintf("industry trends solution for %s and %s", finding.Description, entry.Title)

	if cached, ok := s.cache.Get(query); ok {
		metrics.CacheHits.WithLabelValues("market_research").Inc()
		return cached.(string)
	}
	metrics.CacheMisses.WithLabelValues("market_research").Inc()

	metrics.WebSearchTriggered.Inc()
	results, err := s.search.Search(ctx, query, s.maxResults)
	if err != nil || len(results) == 0 {
		if err != nil {
			logger.Warn("market research failed", zap.Error(err))
		}
		return placeholder
	}

	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, utils.Truncate(r.Content, 200))
	}

	context := utils.Truncate(strings.Join(parts, "\n"), marketContextLimit)

	s.cache.Set(query, context, gocache.DefaultExpiration)
	return context
}

func techSpec(entry *model.CatalogEntry) string {
	if entry.TechSpec != "" {
		return entry.TechSpec
	}
	return entry.Description
}

func insightFor(insights []model.ContextInsight, signalID string) *model.ContextInsight {
	for i := range insights {
		if insights[i].SignalID == signalID {
			return &insights[i]
		}
	}
	return nil
}
