package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nexusflow/signals/internal/detect"
	"github.com/nexusflow/signals/internal/investigate"
	"github.com/nexusflow/signals/internal/llm"
	"github.com/nexusflow/signals/internal/metrics"
	"github.com/nexusflow/signals/internal/recommend"
	"github.com/nexusflow/signals/internal/report"
	"github.com/nexusflow/signals/internal/sandbox"
	"github.com/nexusflow/signals/internal/storage/models"
	"github.com/nexusflow/signals/internal/storage/sqlite"
	"github.com/nexusflow/signals/internal/store"
	"github.com/nexusflow/signals/pkg/logger"
	"github.com/nexusflow/signals/pkg/utils"
)

// ErrRunInProgress is returned when an audit is requested while another
// run holds the pipeline.
var ErrRunInProgress = errors.New("an audit run is already in progress")

// Orchestrator drives the full detect -> investigate -> recommend ->
// assemble -> persist sequence. Individual stages fail open; the run as a
// whole only fails when persistence does.
type Orchestrator struct {
	llm          llm.Completer
	exec         sandbox.Executor
	investigator *investigate.Investigator
	strategist   *recommend.Strategist
	ghostwriter  *report.Ghostwriter
	signals      *store.Store
	ledger       *sqlite.Client
	broadcaster  *Broadcaster
	detectCfg    detect.Config

	mu      sync.Mutex
	running bool
}

type Deps struct {
	LLM          llm.Completer
	Executor     sandbox.Executor
	Investigator *investigate.Investigator
	Strategist   *recommend.Strategist
	Ghostwriter  *report.Ghostwriter
	Signals      *store.Store
	Ledger       *sqlite.Client
	Broadcaster  *Broadcaster
	DetectConfig detect.Config
}

func NewOrchestrator(deps Deps) *Orchestrator {
	broadcaster := deps.Broadcaster
	if broadcaster == nil {
		broadcaster = NewBroadcaster()
	}
	return &Orchestrator{
		llm:          deps.LLM,
		exec:         deps.Executor,
		investigator: deps.Investigator,
		strategist:   deps.Strategist,
		ghostwriter:  deps.Ghostwriter,
		signals:      deps.Signals,
		ledger:       deps.Ledger,
		broadcaster:  broadcaster,
		detectCfg:    deps.DetectConfig,
	}
}

func (o *Orchestrator) Broadcaster() *Broadcaster {
	return o.broadcaster
}

// Run executes one audit over the uploaded artifacts. sink receives the
// same progress events that live subscribers get; it may be nil.
func (o *Orchestrator) Run(ctx context.Context, input RunInput, sink func(Event)) (*RunState, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, ErrRunInProgress
	}
	o.running = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	state := &RunState{
		RunID:     uuid.New().String(),
		Status:    StatusRunning,
		Input:     input,
		StartedAt: time.Now(),
	}

	emit := func(stage, status, message string) {
		event := Event{
			RunID:   state.RunID,
			Stage:   stage,
			Status:  status,
			Message: message,
			Time:    time.Now().UTC().Format(time.RFC3339),
		}
		o.broadcaster.Publish(event)
		if sink != nil {
			sink(event)
		}
	}

	o.recordRunStart(state)
	logger.Info("audit run started",
		zap.String("run_id", state.RunID),
		zap.String("sales", input.SalesPath))

	// Detection.
	emit(StageDetect, "started", "Analyzing sales data")
	detectStart := time.Now()
	detector := detect.NewDetector(o.llm, o.exec, o.detectorConfig(state, emit))
	state.Findings = detector.Detect(ctx, input.SalesPath)
	o.finishStage(state, StageDetect, detectStart, fmt.Sprintf("%d findings", len(state.Findings)))
	metrics.FindingsDetected.Observe(float64(len(state.Findings)))
	for _, f := range state.Findings {
		metrics.EvidenceExtraction.WithLabelValues(f.Evidence.ExtractionMethod).Inc()
	}
	emit(StageDetect, "completed", fmt.Sprintf("%d findings detected", len(state.Findings)))

	// Evidence grounding happens inside detection; downstream stages only
	// run when something was found.
	if len(state.Findings) > 0 {
		emit(StageInvestigate, "started", "Searching internal context")
		stageStart := time.Now()
		state.Insights = o.investigator.Investigate(ctx, state.Findings, input.ContextPath)
		o.finishStage(state, StageInvestigate, stageStart, fmt.Sprintf("%d insights", len(state.Insights)))
		emit(StageInvestigate, "completed", fmt.Sprintf("%d insights matched", len(state.Insights)))

		emit(StageRecommend, "started", "Matching transformation backlog")
		stageStart = time.Now()
		state.Recommendations = o.strategist.Recommend(ctx, state.Findings, state.Insights, input.BacklogPath)
		o.finishStage(state, StageRecommend, stageStart, fmt.Sprintf("%d recommendations", len(state.Recommendations)))
		emit(StageRecommend, "completed", fmt.Sprintf("%d recommendations generated", len(state.Recommendations)))
	}

	emit(StageAssemble, "started", "Assembling report")
	stageStart := time.Now()
	state.Entries = o.ghostwriter.Assemble(ctx, state.Findings, state.Insights, state.Recommendations)
	o.finishStage(state, StageAssemble, stageStart, fmt.Sprintf("%d entries", len(state.Entries)))
	emit(StageAssemble, "completed", fmt.Sprintf("%d report entries", len(state.Entries)))

	emit(StagePersist, "started", "Updating signal store")
	stageStart = time.Now()
	stats, err := o.signals.Add(state.Entries)
	o.finishStage(state, StagePersist, stageStart, fmt.Sprintf("added=%d updated=%d", stats.Added, stats.Updated))
	if err != nil {
		state.Status = StatusFailed
		state.Error = err.Error()
		state.FinishedAt = time.Now()
		emit(StagePersist, "failed", err.Error())
		o.recordRunFinish(state, stats)
		metrics.RunsTotal.WithLabelValues(StatusFailed).Inc()
		metrics.PipelineDuration.WithLabelValues(StatusFailed).Observe(state.FinishedAt.Sub(state.StartedAt).Seconds())
		return state, err
	}
	state.StoreStats = stats
	metrics.SignalsStored.Set(float64(stats.Total))
	emit(StagePersist, "completed", fmt.Sprintf("%d signals stored", stats.Total))

	state.Status = StatusCompleted
	state.FinishedAt = time.Now()
	o.recordRunFinish(state, stats)

	elapsed := state.FinishedAt.Sub(state.StartedAt)
	metrics.RunsTotal.WithLabelValues(StatusCompleted).Inc()
	metrics.PipelineDuration.WithLabelValues(StatusCompleted).Observe(elapsed.Seconds())

	logger.Info("audit run completed",
		zap.String("run_id", state.RunID),
		zap.Int("findings", len(state.Findings)),
		zap.Int("entries", len(state.Entries)),
		zap.Duration("elapsed", elapsed))
	return state, nil
}

func (o *Orchestrator) detectorConfig(state *RunState, emit func(stage, status, message string)) detect.Config {
	cfg := o.detectCfg
	cfg.OnAttempt = func(attempt int, status, errMsg string) {
		metrics.DetectionAttempts.Observe(float64(attempt))
		emit(StageDetect, "attempt", fmt.Sprintf("attempt %d: %s", attempt, status))
		if o.ledger == nil {
			return
		}
		err := o.ledger.InsertAttempt(&models.DetectionAttempt{
			RunID:     state.RunID,
			Attempt:   attempt,
			Status:    status,
			Error:     errMsg,
			CreatedAt: time.Now(),
		})
		if err != nil {
			logger.Warn("failed to record detection attempt", zap.Error(err))
		}
	}
	return cfg
}

func (o *Orchestrator) finishStage(state *RunState, stage string, start time.Time, detail string) {
	elapsed := time.Since(start)
	metrics.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())

	if o.ledger == nil {
		return
	}
	err := o.ledger.InsertStage(&models.RunStage{
		RunID:     state.RunID,
		Stage:     stage,
		Status:    "completed",
		Detail:    detail,
		LatencyMS: int(elapsed.Milliseconds()),
		CreatedAt: time.Now(),
	})
	if err != nil {
		logger.Warn("failed to record run stage", zap.String("stage", stage), zap.Error(err))
	}
}

func (o *Orchestrator) recordRunStart(state *RunState) {
	if o.ledger == nil {
		return
	}
	err := o.ledger.InsertRun(&models.Run{
		ID:              state.RunID,
		Status:          StatusRunning,
		SalesFile:       state.Input.SalesPath,
		SalesChecksum:   fileChecksum(state.Input.SalesPath),
		ContextChecksum: fileChecksum(state.Input.ContextPath),
		BacklogChecksum: fileChecksum(state.Input.BacklogPath),
		StartedAt:       state.StartedAt,
	})
	if err != nil {
		logger.Warn("failed to record run start", zap.Error(err))
	}
}

func (o *Orchestrator) recordRunFinish(state *RunState, stats store.Stats) {
	if o.ledger == nil {
		return
	}
	finished := state.FinishedAt
	err := o.ledger.FinishRun(&models.Run{
		ID:             state.RunID,
		Status:         state.Status,
		FindingsCount:  len(state.Findings),
		SignalsAdded:   stats.Added,
		SignalsUpdated: stats.Updated,
		Error:          state.Error,
		LatencyMS:      int(finished.Sub(state.StartedAt).Milliseconds()),
		FinishedAt:     &finished,
	})
	if err != nil {
		logger.Warn("failed to record run finish", zap.Error(err))
	}
}

func fileChecksum(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return utils.HashString(string(data))
}
