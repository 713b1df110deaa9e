package model

// CatalogEntry is one remediation project from the transformation backlog.
type CatalogEntry struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Dept        string  `json:"dept,omitempty"`
	ImpactUSD   float64 `json:"impact_usd"`
	TechSpec    string  `json:"tech_spec,omitempty"`
	Description string  `json:"description,omitempty"`
}

// Recommendation is a backlog project matched to a finding, with the
// deterministic financial justification attached. Lists of recommendations
// are ordered by NetStrategicValue descending.
type Recommendation struct {
	ProjectTitle      string  `json:"project_title"`
	ImpactUSD         float64 `json:"impact_usd"`
	CostUSD           float64 `json:"cost_usd"`
	FeasibilityScore  int     `json:"feasibility_score"`
	MarketContext     string  `json:"market_context"`
	TechnicalSpec     string  `json:"technical_spec"`
	ROIMetric         string  `json:"roi_metric"`
	NetStrategicValue float64 `json:"net_strategic_value"`
}
