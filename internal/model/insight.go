package model

// EmployeeAttribution credits the employee who flagged a problem or proposed
// a fix in the internal context dump.
type EmployeeAttribution struct {
	Name              string `json:"name"`
	Department        string `json:"department,omitempty"`
	ProposalSummary   string `json:"proposal_summary,omitempty"`
	Validation        string `json:"validation,omitempty"`
	SubmissionChannel string `json:"submission_channel,omitempty"`
	SubmissionDate    string `json:"submission_date,omitempty"`
}

// ContextInsight links a finding to causal context discovered in the
// free-text corpus. At most one insight exists per finding.
type ContextInsight struct {
	SignalID            string               `json:"signal_id"`
	Source              string               `json:"source"`
	Content             string               `json:"content"`
	Date                string               `json:"date,omitempty"`
	RelevanceScore      float64              `json:"relevance_score"`
	EvidenceExcerpt     string               `json:"evidence_excerpt,omitempty"`
	EmployeeAttribution *EmployeeAttribution `json:"employee_attribution,omitempty"`
}
