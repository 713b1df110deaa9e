package models

import "time"

type Run struct {
	ID              string
	Status          string
	SalesFile       string
	SalesChecksum   string
	ContextChecksum string
	BacklogChecksum string
	FindingsCount   int
	SignalsAdded    int
	SignalsUpdated  int
	Error           string
	LatencyMS       int
	StartedAt       time.Time
	FinishedAt      *time.Time
}

type RunStage struct {
	ID        int
	RunID     string
	Stage     string
	Status    string
	Detail    string
	LatencyMS int
	CreatedAt time.Time
}

type DetectionAttempt struct {
	ID        int
	RunID     string
	Attempt   int
	Status    string
	Error     string
	CreatedAt time.Time
}
