package detect

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nexusflow/signals/internal/dataset"
	"github.com/nexusflow/signals/internal/model"
	"github.com/nexusflow/signals/pkg/logger"
	"go.uber.org/zap"
)

// GroundEvidence deterministically extracts supporting rows for a finding
// whose generated evidence was missing or malformed. It never propagates a
// failure: any internal error yields an explicit failed record.
func GroundEvidence(t *dataset.Table, segment string, maxRows int) (rec model.EvidenceRecord) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("evidence grounding panicked", zap.Any("panic", r), zap.String("segment", segment))
			rec = model.EvidenceRecord{Rows: []map[string]any{}, ExtractionMethod: model.ExtractionFailed}
		}
	}()

	if t == nil || maxRows <= 0 {
		return model.EvidenceRecord{Rows: []map[string]any{}, ExtractionMethod: model.ExtractionFailed}
	}

	var matched [][]string
	for _, row := range t.Rows {
		if t.SegmentValue(row) == segment {
			matched = append(matched, row)
		}
	}

	if len(matched) == 0 {
		needle := strings.ToLower(segment)
		for _, row := range t.Rows {
			hay := strings.ToLower(t.SegmentValue(row))
			if hay == "" {
				continue
			}
			if strings.Contains(hay, needle) || strings.Contains(needle, hay) {
				matched = append(matched, row)
			}
		}
	}

	if len(matched) == 0 {
		return model.EvidenceRecord{
			Rows:             []map[string]any{},
			Summary:          fmt.Sprintf("No matching data found for %s", segment),
			ExtractionMethod: model.ExtractionFallbackEmpty,
		}
	}

	if dateCol := t.DateColumn(); dateCol >= 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			return rowDate(matched[i], dateCol).After(rowDate(matched[j], dateCol))
		})
	}

	if len(matched) > maxRows {
		matched = matched[:maxRows]
	}

	rows := make([]map[string]any, 0, len(matched))
	for _, row := range matched {
		rows = append(rows, t.CoerceRow(row))
	}

	return model.EvidenceRecord{
		Rows:             rows,
		Summary:          fmt.Sprintf("Top %d rows from %s (auto-extracted)", len(rows), segment),
		ExtractionMethod: model.ExtractionFallback,
	}
}

func rowDate(row []string, col int) time.Time {
	if col < 0 || col >= len(row) {
		return time.Time{}
	}
	if v, ok := dataset.CoerceCell(row[col]).(string); ok {
		if d, err := time.Parse("2006-01-02", v); err == nil {
			return d
		}
	}
	return time.Time{}
}
