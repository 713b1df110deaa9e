package model

// Extraction methods recorded on an EvidenceRecord. The pipeline never hides
// how evidence was obtained: an exhausted detection loop and a genuinely
// quiet dataset both surface through these markers.
const (
	ExtractionLLM           = "llm_generated"
	ExtractionFallback      = "fallback"
	ExtractionFallbackEmpty = "fallback_empty"
	ExtractionFailed        = "failed"
)

// EvidenceRecord holds the dataset rows substantiating a finding. Rows are
// JSON-safe: cells are strings, float64 or nil, dates rendered as YYYY-MM-DD.
type EvidenceRecord struct {
	Rows             []map[string]any `json:"rows"`
	Summary          string           `json:"summary,omitempty"`
	ExtractionMethod string           `json:"extraction_method"`
}

// Finding is a single detected anomaly. Every finding that survives the
// detection loop carries non-empty evidence rows or an explicit empty-marker.
type Finding struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Metric      string         `json:"metric"`
	Value       string         `json:"value"`
	ImpactUSD   float64        `json:"impact_usd"`
	Segment     string         `json:"segment"`
	Description string         `json:"description"`
	Severity    string         `json:"severity"`
	Evidence    EvidenceRecord `json:"evidence"`
}
