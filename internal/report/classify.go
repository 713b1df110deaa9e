package report

import (
	"strings"

	"github.com/nexusflow/signals/internal/model"
)

// Classify derives the report classification for a finding. Sign comes from
// the value string; legal/compliance wording in the segment marks an
// operational bottleneck; everything else negative is a revenue leak.
func Classify(f model.Finding) string {
	negative := strings.Contains(f.Value, "-")
	segment := strings.ToLower(f.Segment)

	switch {
	case !negative && strings.Contains(strings.ToLower(f.Type), "growth"):
		return model.ClassGrowthOpportunity
	case negative && (strings.Contains(segment, "legal") || strings.Contains(segment, "compliance")):
		return model.ClassOperationalBottleneck
	case negative:
		return model.ClassRevenueLeak
	default:
		return f.Type
	}
}

// Region is the first whitespace token of the segment ("APAC Enterprise"
// belongs to APAC).
func Region(segment string) string {
	fields := strings.Fields(segment)
	if len(fields) == 0 {
		return "UNKNOWN"
	}
	return fields[0]
}

// GroupKey joins region and classification; findings sharing a key merge
// into one master signal.
func GroupKey(f model.Finding) string {
	return Region(f.Segment) + "_" + Classify(f)
}
