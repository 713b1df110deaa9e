package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Table is an in-memory tabular dataset loaded from CSV. Cells stay as raw
// strings until coerced for evidence output.
type Table struct {
	Columns []string
	Rows    [][]string
}

func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset is empty: %s", path)
	}

	return &Table{
		Columns: records[0],
		Rows:    records[1:],
	}, nil
}

func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

func (t *Table) cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// InferTypes classifies each column as "number", "date" or "string" by
// sampling up to 20 rows.
func (t *Table) InferTypes() []string {
	types := make([]string, len(t.Columns))
	for i := range t.Columns {
		numeric, dates, total := 0, 0, 0
		for r := 0; r < len(t.Rows) && r < 20; r++ {
			v := strings.TrimSpace(t.cell(t.Rows[r], i))
			if v == "" {
				continue
			}
			total++
			if _, err := strconv.ParseFloat(v, 64); err == nil {
				numeric++
			} else if _, ok := parseDate(v); ok {
				dates++
			}
		}
		switch {
		case total > 0 && numeric == total:
			types[i] = "number"
		case total > 0 && dates == total:
			types[i] = "date"
		default:
			types[i] = "string"
		}
	}
	return types
}

// Inspect renders the schema summary handed to the analysis generator:
// column names, inferred types, head and tail rows.
func (t *Table) Inspect() string {
	var b strings.Builder

	b.WriteString("Columns: " + strings.Join(t.Columns, ", ") + "\n")

	types := t.InferTypes()
	b.WriteString("Types: ")
	for i, c := range t.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c + "=" + types[i])
	}
	b.WriteString("\n")

	writeRows := func(label string, rows [][]string) {
		b.WriteString(label + ":\n")
		for _, row := range rows {
			b.WriteString("  " + strings.Join(row, " | ") + "\n")
		}
	}

	head := t.Rows
	if len(head) > 5 {
		head = head[:5]
	}
	writeRows("Head", head)

	if len(t.Rows) > 5 {
		tail := t.Rows[len(t.Rows)-5:]
		writeRows("Tail", tail)
	}

	b.WriteString(fmt.Sprintf("Total rows: %d\n", len(t.Rows)))
	return b.String()
}

// SegmentValue builds the segment label for a row. A dedicated segment
// column wins; otherwise region and class columns are joined the way the
// sales dataset spells segments ("APAC Enterprise").
func (t *Table) SegmentValue(row []string) string {
	if i := t.ColumnIndex("Segment"); i >= 0 {
		return strings.TrimSpace(t.cell(row, i))
	}

	region := t.firstColumnOf("Region", "Geo", "Territory")
	class := t.firstColumnOf("Class", "Tier", "Product_Tier")

	switch {
	case region >= 0 && class >= 0:
		return strings.TrimSpace(t.cell(row, region) + " " + t.cell(row, class))
	case region >= 0:
		return strings.TrimSpace(t.cell(row, region))
	default:
		// First non-numeric column as a last resort.
		types := t.InferTypes()
		for i, typ := range types {
			if typ == "string" {
				return strings.TrimSpace(t.cell(row, i))
			}
		}
		return ""
	}
}

// DateColumn returns the index of the recency column, or -1.
func (t *Table) DateColumn() int {
	if i := t.ColumnIndex("Date"); i >= 0 {
		return i
	}
	types := t.InferTypes()
	for i, typ := range types {
		if typ == "date" {
			return i
		}
	}
	for i, c := range t.Columns {
		if strings.Contains(strings.ToLower(c), "date") {
			return i
		}
	}
	return -1
}

func (t *Table) firstColumnOf(names ...string) int {
	for _, n := range names {
		if i := t.ColumnIndex(n); i >= 0 {
			return i
		}
	}
	return -1
}

// CoerceRow converts a raw row into a JSON-safe map: numbers become float64,
// date-like values become YYYY-MM-DD strings, blanks become nil.
func (t *Table) CoerceRow(row []string) map[string]any {
	out := make(map[string]any, len(t.Columns))
	for i, col := range t.Columns {
		out[col] = CoerceCell(t.cell(row, i))
	}
	return out
}

func CoerceCell(v string) any {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	if d, ok := parseDate(v); ok {
		return d.Format("2006-01-02")
	}
	return v
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"01/02/2006",
	"01/02/06",
	"2006/01/02",
}

func parseDate(v string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, v); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
