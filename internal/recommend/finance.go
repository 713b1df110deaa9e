package recommend

import "fmt"

// CostPerComplexityPoint converts backlog complexity points into an
// implementation cost estimate.
const CostPerComplexityPoint = 20_000

// Financials is the deterministic part of a recommendation. Nothing here
// depends on synthesized output beyond the already-validated inputs.
type Financials struct {
	CostUSD           float64
	ImpactUSD         float64
	ROIMultiple       float64
	NetStrategicValue float64
	ROIMetric         string
}

func ComputeFinancials(impactUSD float64, complexityPoints int) Financials {
	cost := float64(complexityPoints) * CostPerComplexityPoint

	roi := 0.0
	if cost > 0 {
		roi = impactUSD / cost
	}

	roiMetric := "N/A"
	if roi > 0 {
		roiMetric = fmt.Sprintf("%.1fx", roi)
	}

	return Financials{
		CostUSD:           cost,
		ImpactUSD:         impactUSD,
		ROIMultiple:       roi,
		NetStrategicValue: impactUSD - cost,
		ROIMetric:         roiMetric,
	}
}
