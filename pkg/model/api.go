package model

import "time"

// Response is the standard API response envelope.
type Response struct {
	Status     string      `json:"status"`
	RequestID  string      `json:"request_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Data       any         `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Error      *APIError   `json:"error"`
}

// Pagination holds pagination metadata for list endpoints.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// ListOptions configures list queries with pagination and filtering.
type ListOptions struct {
	Limit     int
	Offset    int
	Algorithm string // Optional algorithm filter
}

// DefaultListOptions returns sensible defaults.
func DefaultListOptions() ListOptions {
	return ListOptions{Limit: 20, Offset: 0}
}

// Clamp enforces limits (max 100, min 1).
func (o *ListOptions) Clamp() {
	if o.Limit <= 0 {
		o.Limit = 20
	}
	if o.Limit > 100 {
		o.Limit = 100
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
}

// AnalyzeRequest is the body of POST /api/v1/analyze. Algorithm is an
// algorithm name, a family name, or a policy ("fp", "edf") that selects the
// family for the platform size. Interface is required by resource analyses.
type AnalyzeRequest struct {
	Tasks      TaskSet                `json:"tasks"`
	Processors int                    `json:"processors"`
	Algorithm  string                 `json:"algorithm"`
	Test       string                 `json:"test,omitempty"`
	Activation Activation             `json:"activation,omitempty"`
	Interface  *PeriodicResourceModel `json:"interface,omitempty"`
}

// DesignRequest is the body of POST /api/v1/design.
type DesignRequest struct {
	Tasks      TaskSet `json:"tasks"`
	Processors int     `json:"processors"`
	Algorithm  string  `json:"algorithm"`
	PeriodMin  Time    `json:"period_min,omitempty"`
	PeriodMax  Time    `json:"period_max,omitempty"`
	Verify     bool    `json:"verify,omitempty"`
}

// Record is a cached analysis or design result.
type Record struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"` // "analysis" or "design"
	Algorithm  string          `json:"algorithm"`
	Processors int             `json:"processors"`
	TaskCount  int             `json:"task_count"`
	Digest     string          `json:"digest"`
	Analysis   *AnalysisResult `json:"analysis,omitempty"`
	Design     *DesignResult   `json:"design,omitempty"`
	Elapsed    time.Duration   `json:"elapsed_ns"`
	CreatedAt  time.Time       `json:"created_at"`
}
