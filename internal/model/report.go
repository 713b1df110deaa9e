package model

// Severity and classification values assigned during narrative assembly.
const (
	ClassRevenueLeak           = "Revenue Leak"
	ClassGrowthOpportunity     = "Growth Opportunity"
	ClassOperationalBottleneck = "Operational Bottleneck"

	SeverityCritical = "critical"
	SeverityMedium   = "medium"
)

// ReportRecommendation is the recommendation slice surfaced on a report
// entry. Nil when no backlog project was matched.
type ReportRecommendation struct {
	ProjectTitle     string  `json:"project_title"`
	ROIMetric        string  `json:"roi_metric"`
	ImpactUSD        float64 `json:"impact_usd"`
	MarketContext    string  `json:"market_context"`
	FeasibilityScore int     `json:"feasibility_score"`
	TechnicalSpec    string  `json:"technical_spec"`
}

// ReportEntry is one assembled output unit. It represents either a single
// finding or a master signal aggregating several findings that share a
// region+classification key.
type ReportEntry struct {
	SignalID            string                `json:"signal_id"`
	Title               string                `json:"title"`
	Summary             string                `json:"summary"`
	Prose               string                `json:"prose"`
	Severity            string                `json:"severity"`
	Date                string                `json:"date"`
	Status              string                `json:"status"`
	Impact              string                `json:"impact"`
	ContextSource       string                `json:"context_source"`
	Recommendation      *ReportRecommendation `json:"recommendation,omitempty"`
	EmployeeAttribution *EmployeeAttribution  `json:"employee_attribution,omitempty"`
}

// StoredSignal is a ReportEntry with its persistence lifecycle timestamps.
type StoredSignal struct {
	ReportEntry
	FirstDetected string `json:"first_detected"`
	LastUpdated   string `json:"last_updated"`
}
