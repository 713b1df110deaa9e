package recommend

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nexusflow/signals/internal/model"
)

// catalogPromptLimit caps how many backlog entries are shown to the matcher.
const catalogPromptLimit = 15

func LoadCatalog(path string) ([]model.CatalogEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read backlog: %w", err)
	}

	var entries []model.CatalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse backlog: %w", err)
	}
	return entries, nil
}

func findEntry(entries []model.CatalogEntry, id string) *model.CatalogEntry {
	for i := range entries {
		if entries[i].ID == id {
			return &entries[i]
		}
	}
	return nil
}

func catalogPromptJSON(entries []model.CatalogEntry) string {
	if len(entries) > catalogPromptLimit {
		entries = entries[:catalogPromptLimit]
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}
