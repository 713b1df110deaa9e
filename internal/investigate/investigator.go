package investigate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/nexusflow/signals/internal/llm"
	"github.com/nexusflow/signals/internal/model"
	"github.com/nexusflow/signals/pkg/logger"
	"github.com/nexusflow/signals/pkg/utils"
)

const corpusWindowBytes = 15_000

// Investigator searches the internal context dump (Slack, email, wiki dumps)
// for causal explanations and employee attributions behind each finding.
// One failed lookup never aborts the rest.
type Investigator struct {
	llm   llm.Completer
	model string
}

func NewInvestigator(completer llm.Completer, model string) *Investigator {
	return &Investigator{llm: completer, model: model}
}

func (v *Investigator) Investigate(ctx context.Context, findings []model.Finding, corpusPath string) []model.ContextInsight {
	if len(findings) == 0 {
		return nil
	}

	corpus, err := os.ReadFile(corpusPath)
	if err != nil {
		logger.Warn("context corpus unavailable, skipping investigation",
			zap.String("path", corpusPath), zap.Error(err))
		return nil
	}

	window := utils.Truncate(string(corpus), corpusWindowBytes)

	var insights []model.ContextInsight
	for _, finding := range findings {
		insight, ok := v.investigateOne(ctx, finding, window)
		if !ok {
			continue
		}
		insights = append(insights, insight)
	}

	logger.Info("investigation complete", zap.Int("insights", len(insights)))
	return insights
}

func (v *Investigator) investigateOne(ctx context.Context, finding model.Finding, window string) (model.ContextInsight, bool) {
	resp, err := v.llm.Complete(ctx, llm.CompletionRequest{
		UserPrompt: buildInvestigationPrompt(finding, window),
		Model:      v.model,
	})
	if err != nil {
		logger.Warn("investigation call failed", zap.String("signal_id", finding.ID), zap.Error(err))
		return model.ContextInsight{}, false
	}

	content := strings.TrimSpace(stripFences(resp.Content))

	// A literal null is the capability saying "no relevant context", which
	// is a valid outcome, not an error.
	if strings.EqualFold(content, "null") || content == "" {
		return model.ContextInsight{}, false
	}

	fragment, ok := utils.FirstJSONObject(content)
	if !ok {
		logger.Warn("investigation response was not a JSON object", zap.String("signal_id", finding.ID))
		return model.ContextInsight{}, false
	}

	var payload struct {
		Source              string                     `json:"source"`
		Content             string                     `json:"content"`
		Date                string                     `json:"date"`
		RelevanceScore      float64                    `json:"relevance_score"`
		EmployeeAttribution *model.EmployeeAttribution `json:"employee_attribution"`
	}
	if err := json.Unmarshal([]byte(fragment), &payload); err != nil {
		logger.Warn("investigation response unparsable", zap.String("signal_id", finding.ID), zap.Error(err))
		return model.ContextInsight{}, false
	}
	if payload.Content == "" {
		return model.ContextInsight{}, false
	}

	insight := model.ContextInsight{
		SignalID:            finding.ID,
		Source:              payload.Source,
		Content:             payload.Content,
		Date:                payload.Date,
		RelevanceScore:      clamp01(payload.RelevanceScore),
		EmployeeAttribution: payload.EmployeeAttribution,
	}
	insight.EvidenceExcerpt = bestExcerpt(window, payload.Content)

	return insight, true
}

func buildInvestigationPrompt(finding model.Finding, window string) string {
	return fmt.Sprintf(`You are an investigator with a special focus on employee attribution.

The analyst has detected this anomaly:
Type: %s
Description: %s
Segment: %s
Metric Value: %s

Search the following internal logs for:
1. Specific events, meeting notes or emails that explain WHY this is happening.
2. Employee-submitted ideas or proposals that address this problem.
3. The employee's name, department (if mentioned) and their proposed solution.

Internal logs:
"""
%s
"""

If you find a relevant explanation, return ONLY a JSON object with this schema:
{
  "source": "e.g. Slack #product-roadmap or Email from CEO",
  "content": "One sentence summary of the finding.",
  "date": "YYYY-MM-DD (if found)",
  "relevance_score": 0.95,
  "employee_attribution": {
    "name": "Employee Name (if found in logs)",
    "department": "Department or role (if mentioned)",
    "proposal_summary": "Brief summary of their proposed solution",
    "validation": "Any validation they provided",
    "submission_channel": "Where they submitted it",
    "submission_date": "YYYY-MM-DD"
  }
}

Set "employee_attribution" to null when no employee is identifiable.
Return the literal null when no relevant context exists at all.`,
		finding.Type, finding.Description, finding.Segment, finding.Value, window)
}

func stripFences(s string) string {
	for _, fence := range []string{"```json", "```"} {
		s = strings.ReplaceAll(s, fence, "")
	}
	return s
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
