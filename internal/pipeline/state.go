package pipeline

import (
	"time"

	"github.com/nexusflow/signals/internal/model"
	"github.com/nexusflow/signals/internal/store"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"

	StageDetect      = "detect"
	StageInvestigate = "investigate"
	StageRecommend   = "recommend"
	StageAssemble    = "assemble"
	StagePersist     = "persist"
)

// Event is one progress notification emitted while a run advances. Events
// are streamed to audit clients as NDJSON lines and WebSocket frames.
type Event struct {
	RunID   string `json:"run_id"`
	Stage   string `json:"stage"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Time    string `json:"time"`
}

// RunInput names the three uploaded artifacts a run consumes.
type RunInput struct {
	SalesPath   string
	ContextPath string
	BacklogPath string
}

// RunState carries everything a run produced. Stages only append to it;
// a stage that fails open leaves its slice empty and the run continues.
type RunState struct {
	RunID           string                  `json:"run_id"`
	Status          string                  `json:"status"`
	Input           RunInput                `json:"-"`
	Findings        []model.Finding         `json:"findings"`
	Insights        []model.ContextInsight  `json:"insights"`
	Recommendations []model.Recommendation  `json:"recommendations"`
	Entries         []model.ReportEntry     `json:"signals"`
	StoreStats      store.Stats             `json:"store_stats"`
	Error           string                  `json:"error,omitempty"`
	StartedAt       time.Time               `json:"started_at"`
	FinishedAt      time.Time               `json:"finished_at"`
}
