package dto

// IssueTypeCountResponse is one row of the per-type breakdown.
type IssueTypeCountResponse struct {
	IssueType string `json:"issue_type"`
	Count     int    `json:"count"`
}

// SummaryResponse is the aggregate report.
type SummaryResponse struct {
	Total              int                      `json:"total"`
	Completed          int                      `json:"completed"`
	AverageRepairHours *float64                 `json:"average_repair_hours,omitempty"`
	ByIssueType        []IssueTypeCountResponse `json:"by_issue_type"`
}

// OverdueResponse lists missed-deadline tickets.
type OverdueResponse struct {
	Tickets []TicketSummary `json:"tickets"`
}
