package detect

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/nexusflow/signals/internal/dataset"
	"github.com/nexusflow/signals/internal/llm"
	"github.com/nexusflow/signals/internal/model"
	"github.com/nexusflow/signals/internal/sandbox"
	"github.com/nexusflow/signals/pkg/logger"
)

type Config struct {
	MaxAttempts  int
	TopFindings  int
	EvidenceRows int
	Model        string

	// OnAttempt, when set, observes every generation attempt. status is
	// "accepted", "accepted_empty" or "failed".
	OnAttempt func(attempt int, status, errMsg string)
}

// Detector turns a tabular dataset into findings through a bounded
// generate -> execute -> validate -> repair loop. Every failure mode fails
// open to an empty list; an exhausted loop and a quiet dataset are
// indistinguishable by design, except through evidence extraction markers.
type Detector struct {
	llm  llm.Completer
	exec sandbox.Executor
	cfg  Config
}

func NewDetector(completer llm.Completer, exec sandbox.Executor, cfg Config) *Detector {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.TopFindings == 0 {
		cfg.TopFindings = 10
	}
	if cfg.EvidenceRows == 0 {
		cfg.EvidenceRows = 10
	}
	return &Detector{llm: completer, exec: exec, cfg: cfg}
}

// Detect runs the full loop against the dataset at csvPath.
func (d *Detector) Detect(ctx context.Context, csvPath string) []model.Finding {
	table, err := dataset.Load(csvPath)
	if err != nil {
		logger.Warn("sales dataset unavailable, skipping detection",
			zap.String("path", csvPath), zap.Error(err))
		return nil
	}

	inspection := table.Inspect()

	var lastErr string
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		logger.Info("detection attempt", zap.Int("attempt", attempt), zap.Int("max", d.cfg.MaxAttempts))

		findings, state := d.attempt(ctx, csvPath, inspection, lastErr)
		switch state {
		case attemptAccepted:
			d.observe(attempt, "accepted", "")
			return d.finalize(table, findings)
		case attemptAcceptedEmpty:
			d.observe(attempt, "accepted_empty", "")
			logger.Info("analysis ran clean and found no anomalies")
			return nil
		default:
			lastErr = state.err
			d.observe(attempt, "failed", lastErr)
			logger.Warn("detection attempt failed", zap.Int("attempt", attempt), zap.String("error", lastErr))
		}
	}

	logger.Warn("detection attempts exhausted, returning no findings")
	return nil
}

func (d *Detector) observe(attempt int, status, errMsg string) {
	if d.cfg.OnAttempt != nil {
		d.cfg.OnAttempt(attempt, status, errMsg)
	}
}

type attemptState struct {
	kind int
	err  string
}

var (
	attemptAccepted      = attemptState{kind: 1}
	attemptAcceptedEmpty = attemptState{kind: 2}
)

func attemptFailed(err string) attemptState { return attemptState{err: err} }

func (d *Detector) attempt(ctx context.Context, csvPath, inspection, lastErr string) ([]rawFinding, attemptState) {
	resp, err := d.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: analystSystemPrompt,
		UserPrompt:   buildAnalysisPrompt(csvPath, inspection, lastErr),
		Model:        d.cfg.Model,
	})
	if err != nil {
		return nil, attemptFailed(fmt.Sprintf("code generation failed: %v", err))
	}

	code := stripCodeFences(resp.Content)

	stdout, err := d.exec.Run(ctx, code)
	if err != nil {
		return nil, attemptFailed(fmt.Sprintf("execution failed: %v", err))
	}

	fragment, ok := FirstJSONArray(stdout)
	if !ok {
		return nil, attemptFailed(fmt.Sprintf("output contained no JSON array: %s", truncateOutput(stdout, 300)))
	}

	findings, err := DecodeFindings(fragment)
	if err != nil {
		return nil, attemptFailed(err.Error())
	}
	if len(findings) == 0 {
		return nil, attemptAcceptedEmpty
	}
	return findings, attemptAccepted
}

// finalize grounds missing evidence, then keeps the top N findings by
// absolute dollar impact.
func (d *Detector) finalize(table *dataset.Table, raw []rawFinding) []model.Finding {
	findings := make([]model.Finding, 0, len(raw))

	for i, rf := range raw {
		f := model.Finding{
			ID:          rf.ID,
			Type:        rf.Type,
			Metric:      rf.Metric,
			Value:       rf.Value,
			ImpactUSD:   rf.ImpactUSD,
			Segment:     rf.Segment,
			Description: rf.Description,
			Severity:    rf.Severity,
		}
		if f.ID == "" {
			f.ID = fmt.Sprintf("SIG-%03d", i+1)
		}

		if len(rf.Evidence.Rows) == 0 {
			f.Evidence = GroundEvidence(table, f.Segment, d.cfg.EvidenceRows)
		} else {
			f.Evidence = model.EvidenceRecord{
				Rows:             sanitizeRows(rf.Evidence.Rows),
				Summary:          rf.Evidence.Summary,
				ExtractionMethod: rf.Evidence.ExtractionMethod,
			}
			if f.Evidence.ExtractionMethod == "" {
				f.Evidence.ExtractionMethod = model.ExtractionLLM
			}
		}

		findings = append(findings, f)
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return math.Abs(findings[i].ImpactUSD) > math.Abs(findings[j].ImpactUSD)
	})
	if len(findings) > d.cfg.TopFindings {
		findings = findings[:d.cfg.TopFindings]
	}

	logger.Info("detection accepted findings", zap.Int("count", len(findings)))
	return findings
}

// sanitizeRows re-coerces generated evidence cells so only JSON-safe
// primitives survive.
func sanitizeRows(rows []map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		clean := make(map[string]any, len(row))
		for k, v := range row {
			switch t := v.(type) {
			case string:
				clean[k] = dataset.CoerceCell(t)
			case float64, bool, nil:
				clean[k] = t
			default:
				clean[k] = fmt.Sprintf("%v", t)
			}
		}
		out = append(out, clean)
	}
	return out
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	for _, fence := range []string{"```go", "```json", "```"} {
		s = strings.ReplaceAll(s, fence, "")
	}
	return strings.TrimSpace(s)
}

func truncateOutput(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
