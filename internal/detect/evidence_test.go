package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusflow/signals/internal/dataset"
	"github.com/nexusflow/signals/internal/model"
)

func evidenceTable() *dataset.Table {
	return &dataset.Table{
		Columns: []string{"Date", "Region", "Class", "Revenue"},
		Rows: [][]string{
			{"2025-01-15", "APAC", "Enterprise", "120000"},
			{"2025-03-15", "APAC", "Enterprise", "40000"},
			{"2025-02-15", "APAC", "SMB", "45000"},
			{"2025-02-15", "EMEA", "Enterprise", "200000"},
		},
	}
}

func TestGroundEvidenceExactMatch(t *testing.T) {
	rec := GroundEvidence(evidenceTable(), "APAC Enterprise", 10)

	assert.Equal(t, model.ExtractionFallback, rec.ExtractionMethod)
	require.Len(t, rec.Rows, 2)
	assert.Equal(t, "Top 2 rows from APAC Enterprise (auto-extracted)", rec.Summary)
	// Newest row first, cells coerced.
	assert.Equal(t, "2025-03-15", rec.Rows[0]["Date"])
	assert.Equal(t, float64(40000), rec.Rows[0]["Revenue"])
}

func TestGroundEvidenceSubstringMatch(t *testing.T) {
	rec := GroundEvidence(evidenceTable(), "apac", 10)

	assert.Equal(t, model.ExtractionFallback, rec.ExtractionMethod)
	assert.Len(t, rec.Rows, 3)
}

func TestGroundEvidenceBroaderSegment(t *testing.T) {
	// The finding names a broader segment than any row label spells out.
	rec := GroundEvidence(evidenceTable(), "EMEA Enterprise Accounts", 10)

	assert.Equal(t, model.ExtractionFallback, rec.ExtractionMethod)
	assert.Len(t, rec.Rows, 1)
}

func TestGroundEvidenceNoMatch(t *testing.T) {
	rec := GroundEvidence(evidenceTable(), "LATAM Enterprise", 10)

	assert.Equal(t, model.ExtractionFallbackEmpty, rec.ExtractionMethod)
	assert.Empty(t, rec.Rows)
	assert.Equal(t, "No matching data found for LATAM Enterprise", rec.Summary)
}

func TestGroundEvidenceRowCap(t *testing.T) {
	rec := GroundEvidence(evidenceTable(), "APAC Enterprise", 1)

	require.Len(t, rec.Rows, 1)
	assert.Equal(t, "2025-03-15", rec.Rows[0]["Date"])
}

func TestGroundEvidenceNilTable(t *testing.T) {
	rec := GroundEvidence(nil, "APAC", 10)

	assert.Equal(t, model.ExtractionFailed, rec.ExtractionMethod)
	assert.NotNil(t, rec.Rows)
	assert.Empty(t, rec.Rows)
}
