package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nexusflow/signals/internal/model"
	"github.com/nexusflow/signals/pkg/logger"
)

// Store persists signals as a single JSON document on disk. Writes are
// full-document rewrites guarded by an in-process mutex; the store is not
// safe for multi-process use.
type Store struct {
	mu   sync.Mutex
	path string
}

type document struct {
	LastUpdated  string               `json:"last_updated"`
	TotalSignals int                  `json:"total_signals"`
	Signals      []model.StoredSignal `json:"signals"`
}

// Stats summarizes one Add call.
type Stats struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Total   int `json:"total"`
}

func New(path string) *Store {
	return &Store{path: path}
}

// Add upserts entries by signal id. New ids get first_detected stamped now;
// existing ids keep their original first_detected and have everything else
// replaced.
func (s *Store) Add(entries []model.ReportEntry) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return Stats{}, err
	}

	byID := make(map[string]int, len(doc.Signals))
	for i, sig := range doc.Signals {
		byID[sig.SignalID] = i
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	var stats Stats

	for _, entry := range entries {
		if entry.SignalID == "" {
			continue
		}
		if i, ok := byID[entry.SignalID]; ok {
			first := doc.Signals[i].FirstDetected
			doc.Signals[i] = model.StoredSignal{
				ReportEntry:   entry,
				FirstDetected: first,
				LastUpdated:   now,
			}
			stats.Updated++
		} else {
			byID[entry.SignalID] = len(doc.Signals)
			doc.Signals = append(doc.Signals, model.StoredSignal{
				ReportEntry:   entry,
				FirstDetected: now,
				LastUpdated:   now,
			})
			stats.Added++
		}
	}

	sort.SliceStable(doc.Signals, func(i, j int) bool {
		return doc.Signals[i].LastUpdated > doc.Signals[j].LastUpdated
	})

	doc.LastUpdated = now
	doc.TotalSignals = len(doc.Signals)
	stats.Total = doc.TotalSignals

	if err := s.save(doc); err != nil {
		return Stats{}, err
	}

	logger.Info("signal store updated",
		zap.Int("added", stats.Added),
		zap.Int("updated", stats.Updated),
		zap.Int("total", stats.Total))
	return stats, nil
}

func (s *Store) GetAll() ([]model.StoredSignal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Signals, nil
}

func (s *Store) GetByID(id string) (*model.StoredSignal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range doc.Signals {
		if doc.Signals[i].SignalID == id {
			return &doc.Signals[i], nil
		}
	}
	return nil, nil
}

// Clear resets the store to an empty document.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(&document{
		LastUpdated: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// load returns the current document. A missing or corrupt file yields an
// empty document rather than an error so one bad write never wedges the
// pipeline.
func (s *Store) load() (*document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &document{}, nil
		}
		return nil, fmt.Errorf("failed to read signal store: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		logger.Warn("signal store corrupt, starting fresh", zap.String("path", s.path), zap.Error(err))
		return &document{}, nil
	}
	return &doc, nil
}

func (s *Store) save(doc *document) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode signal store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write signal store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace signal store: %w", err)
	}
	return nil
}
