package models

// Issue severities. Errors flag broken invariants; warnings flag quality
// concerns. Neither fails the request.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Issue is one validator finding.
type Issue struct {
	Severity string `json:"severity"`
	Category string `json:"category"`
	Message  string `json:"message"`
}

// ValidationSummary aggregates issue counts per severity.
type ValidationSummary struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
}

// Validation is the post-generation quality report returned to the client
// alongside the itinerary.
type Validation struct {
	Valid   bool              `json:"valid"`
	Issues  []Issue           `json:"issues"`
	Summary ValidationSummary `json:"summary"`
}

// NewValidation builds a report from issues, counting severities. Valid is
// true when no error-severity issue is present.
func NewValidation(issues []Issue) Validation {
	v := Validation{Issues: issues}
	if v.Issues == nil {
		v.Issues = []Issue{}
	}
	for _, issue := range v.Issues {
		switch issue.Severity {
		case SeverityError:
			v.Summary.Errors++
		case SeverityWarning:
			v.Summary.Warnings++
		}
	}
	v.Valid = v.Summary.Errors == 0
	return v
}
