package detect

import (
	"encoding/json"
	"fmt"

	"github.com/nexusflow/signals/pkg/utils"
)

// FirstJSONArray scans captured stdout for the first complete array fragment.
func FirstJSONArray(s string) (string, bool) {
	return utils.FirstJSONArray(s)
}

// DecodeFindings parses the accepted array fragment into findings. The
// generator's output is loosely typed, so fields are pulled out of generic
// maps with tolerant conversions (numbers or strings for value and impact).
func DecodeFindings(fragment string) ([]rawFinding, error) {
	var items []map[string]any
	if err := json.Unmarshal([]byte(fragment), &items); err != nil {
		return nil, fmt.Errorf("decode findings array: %w", err)
	}

	findings := make([]rawFinding, 0, len(items))
	for _, item := range items {
		findings = append(findings, rawFinding{
			ID:          asString(item["id"]),
			Type:        asString(item["type"]),
			Metric:      asString(item["metric"]),
			Value:       asString(item["value"]),
			ImpactUSD:   asFloat(item["impact_usd"]),
			Segment:     asString(item["segment"]),
			Description: asString(item["description"]),
			Severity:    asString(item["severity"]),
			Evidence:    decodeEvidence(item["evidence"]),
		})
	}
	return findings, nil
}

type rawFinding struct {
	ID          string
	Type        string
	Metric      string
	Value       string
	ImpactUSD   float64
	Segment     string
	Description string
	Severity    string
	Evidence    rawEvidence
}

type rawEvidence struct {
	Rows             []map[string]any
	Summary          string
	ExtractionMethod string
}

func decodeEvidence(v any) rawEvidence {
	m, ok := v.(map[string]any)
	if !ok {
		return rawEvidence{}
	}
	ev := rawEvidence{
		Summary:          asString(m["summary"]),
		ExtractionMethod: asString(m["extraction_method"]),
	}
	rows, ok := m["rows"].([]any)
	if !ok {
		return ev
	}
	for _, r := range rows {
		if rm, ok := r.(map[string]any); ok {
			ev.Rows = append(ev.Rows, rm)
		}
	}
	return ev
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return trimFloat(t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		var f float64
		if _, err := fmt.Sscanf(t, "%f", &f); err == nil {
			return f
		}
	}
	return 0
}

func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
