package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nexusflow/signals/internal/llm"
	"github.com/nexusflow/signals/internal/model"
	"github.com/nexusflow/signals/pkg/logger"
)

// Ghostwriter assembles the final report: findings are classified, grouped
// by region+classification, aggregated into master signals where a group
// has several members, and rendered as report entries. Only the very first
// non-grouped finding receives synthesized prose; everything else gets a
// templated one-liner. Assembly never fails outright.
type Ghostwriter struct {
	llm   llm.Completer
	model string
	now   func() time.Time
}

func NewGhostwriter(completer llm.Completer, model string) *Ghostwriter {
	return &Ghostwriter{llm: completer, model: model, now: time.Now}
}

type groupMember struct {
	finding        model.Finding
	index          int
	classification string
	region         string
}

func (g *Ghostwriter) Assemble(ctx context.Context, findings []model.Finding, insights []model.ContextInsight, recommendations []model.Recommendation) []model.ReportEntry {
	if len(findings) == 0 {
		return nil
	}

	// Group in first-seen order so entry ordering stays deterministic.
	groups := make(map[string][]groupMember)
	var order []string

	for i, f := range findings {
		member := groupMember{
			finding:        f,
			index:          i,
			classification: Classify(f),
			region:         Region(f.Segment),
		}
		key := member.region + "_" + member.classification
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], member)
	}

	now := g.now()
	var entries []model.ReportEntry

	for _, key := range order {
		group := groups[key]
		primary := group[0]

		var rec *model.Recommendation
		if primary.index < len(recommendations) {
			rec = &recommendations[primary.index]
		}
		insight := insightFor(insights, primary.finding.ID)

		entry := model.ReportEntry{
			SignalID:      signalID(primary.region, now, primary.index),
			Date:          now.Format("2006-01-02"),
			ContextSource: contextSource(insight),
		}

		if len(group) > 1 {
			g.assembleMaster(&entry, group, insight)
		} else {
			g.assembleSingle(ctx, &entry, primary, insight, rec)
		}

		entry.Status = entry.Severity
		entry.Recommendation = reportRecommendation(rec)
		entry.EmployeeAttribution = attribution(insight)

		entries = append(entries, entry)
	}

	logger.Info("report assembled", zap.Int("entries", len(entries)), zap.Int("findings", len(findings)))
	return entries
}

func (g *Ghostwriter) assembleMaster(entry *model.ReportEntry, group []groupMember, insight *model.ContextInsight) {
	primary := group[0]
	classification := primary.classification
	region := primary.region

	totalImpact := 0.0
	segments := make([]string, 0, len(group))
	for _, m := range group {
		totalImpact += m.finding.ImpactUSD
		segments = append(segments, m.finding.Segment)
	}
	impactDisplay := formatImpact(totalImpact)
	segmentsStr := strings.Join(segments, ", ")

	if classification == model.ClassRevenueLeak {
		entry.Severity = model.SeverityCritical
		entry.Title = fmt.Sprintf("Cross-Segment Contraction: %s Impact in %s%s",
			impactDisplay, region, eventContext(insight))
		entry.Prose = fmt.Sprintf(
			"A cascading %s of %s has been identified across %d segments (%s) in %s. "+
				"This appears to be a systemic issue linked to recent structural changes.",
			classification, impactDisplay, len(group), segmentsStr, region)
	} else {
		entry.Severity = model.SeverityMedium
		entry.Title = fmt.Sprintf("Regional %s: %s Impact in %s%s",
			classification, impactDisplay, region, eventContext(insight))
		entry.Prose = fmt.Sprintf("Multiple %ss detected across %s, totaling %s impact.",
			classification, segmentsStr, impactDisplay)
	}

	entry.Summary = fmt.Sprintf("Aggregated %s across %d segments in %s.", classification, len(group), region)
	entry.Impact = impactDisplay
}

func (g *Ghostwriter) assembleSingle(ctx context.Context, entry *model.ReportEntry, primary groupMember, insight *model.ContextInsight, rec *model.Recommendation) {
	classification := primary.classification
	finding := primary.finding

	if classification == model.ClassRevenueLeak {
		entry.Severity = model.SeverityCritical
		entry.Title = fmt.Sprintf("Critical %s: %s%s", classification, finding.Description, eventContext(insight))
	} else {
		entry.Severity = model.SeverityMedium
		entry.Title = fmt.Sprintf("Strategic %s: %s%s", classification, finding.Description, eventContext(insight))
	}

	entry.Summary = fmt.Sprintf("%s detected in %s.", classification, finding.Segment)
	entry.Impact = finding.Value

	if primary.index == 0 {
		entry.Prose = g.memo(ctx, finding, insight, rec)
	} else {
		entry.Prose = fmt.Sprintf("A %s has been detected in %s.", classification, finding.Segment)
	}
}

func signalID(region string, now time.Time, index int) string {
	return fmt.Sprintf("SIG-%s-%s-%02d", strings.ToUpper(region), now.Format("200601021504"), index+1)
}

func formatImpact(usd float64) string {
	if usd >= 1_000_000 {
		return fmt.Sprintf("$%.2fM", usd/1_000_000)
	}
	return fmt.Sprintf("$%.0fk", usd/1_000)
}

// eventContext decorates titles when the insight points at a known kind of
// business event.
func eventContext(insight *model.ContextInsight) string {
	if insight == nil {
		return ""
	}
	content := strings.ToLower(insight.Content)
	switch {
	case strings.Contains(content, "acquisition") || strings.Contains(content, "zenith"):
		return " - Post-Acquisition Impact"
	case strings.Contains(content, "q4") || strings.Contains(content, "quarter"):
		return " - Quarterly Trend Shift"
	default:
		return ""
	}
}

func contextSource(insight *model.ContextInsight) string {
	if insight == nil || insight.Source == "" {
		return "Internal Data Analysis"
	}
	return insight.Source
}

func reportRecommendation(rec *model.Recommendation) *model.ReportRecommendation {
	if rec == nil {
		return nil
	}
	return &model.ReportRecommendation{
		ProjectTitle:     rec.ProjectTitle,
		ROIMetric:        rec.ROIMetric,
		ImpactUSD:        rec.ImpactUSD,
		MarketContext:    rec.MarketContext,
		FeasibilityScore: rec.FeasibilityScore,
		TechnicalSpec:    rec.TechnicalSpec,
	}
}

func attribution(insight *model.ContextInsight) *model.EmployeeAttribution {
	if insight == nil || insight.EmployeeAttribution == nil || insight.EmployeeAttribution.Name == "" {
		return nil
	}
	return insight.EmployeeAttribution
}

func insightFor(insights []model.ContextInsight, signalID string) *model.ContextInsight {
	for i := range insights {
		if insights[i].SignalID == signalID {
			return &insights[i]
		}
	}
	return nil
}
