package report

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nexusflow/signals/internal/llm"
	"github.com/nexusflow/signals/internal/model"
	"github.com/nexusflow/signals/pkg/logger"
)

// memo synthesizes the transformation investment memo for the lead finding.
// Any synthesis failure degrades to the templated fallback.
func (g *Ghostwriter) memo(ctx context.Context, finding model.Finding, insight *model.ContextInsight, rec *model.Recommendation) string {
	resp, err := g.llm.Complete(ctx, llm.CompletionRequest{
		UserPrompt: buildMemoPrompt(finding, insight, rec),
		Model:      g.model,
	})
	if err != nil {
		logger.Warn("memo synthesis failed, using fallback prose", zap.Error(err))
		return fallbackProse(finding)
	}

	prose := strings.TrimSpace(resp.Content)
	if prose == "" {
		return fallbackProse(finding)
	}
	return prose
}

func buildMemoPrompt(finding model.Finding, insight *model.ContextInsight, rec *model.Recommendation) string {
	contextLine := "No context found."
	attributionLine := "No employee attribution found."
	if insight != nil {
		if insight.Content != "" {
			contextLine = insight.Content
		}
		if attr := insight.EmployeeAttribution; attr != nil && attr.Name != "" {
			attributionLine = fmt.Sprintf("Name: %s\nDepartment: %s\nProposal: %s\nValidation: %s",
				attr.Name, attr.Department, attr.ProposalSummary, attr.Validation)
		}
	}

	project := "Investigation Pending"
	market := "N/A"
	roi := "N/A"
	impact := 0.0
	feasibility := "N/A"
	if rec != nil {
		project = rec.ProjectTitle
		market = rec.MarketContext
		roi = rec.ROIMetric
		impact = rec.ImpactUSD
		feasibility = fmt.Sprintf("%d/10", rec.FeasibilityScore)
	}

	return fmt.Sprintf(`You are a senior strategic advisor to the CEO.
Write a "Transformation Investment Memo" - a decision-ready brief that recognizes employee contributions.

SIGNAL DETECTED:
%s

INTERNAL CONTEXT:
%s

EMPLOYEE CONTRIBUTION:
%s

STRATEGIC RESPONSE:
Product: %s
Market Context: %s
ROI: %s ($%.0f impact)
Feasibility: %s

Write 2-3 paragraphs: the problem (business impact and root cause), the solution crediting the
employee by name in bold when one exists, and the business case ending with a clear
recommendation (Approve/Investigate Further/Archive). Professional consulting tone, bold key
entities, no bullet points.`,
		finding.Description, contextLine, attributionLine, project, market, roi, impact, feasibility)
}

func fallbackProse(finding model.Finding) string {
	return fmt.Sprintf(
		"A critical **%s** has been identified in the **%s** segment (%s, %s). "+
			"The change correlates with recent internal events captured in the context logs. "+
			"Immediate intervention is recommended to contain the impact.",
		Classify(finding), finding.Segment, finding.Metric, finding.Value)
}
