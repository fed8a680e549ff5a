package model

// RiskLevel grades an entity by its recorded history
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Indicators summarise the history timeline of an entity
type Indicators struct {
	TotalEvents   int       `json:"total_events"`
	DaysSinceLast *int      `json:"days_since_last"`
	Risk          RiskLevel `json:"risk"`
}

// Explanation is the structured account of one accepted match
type Explanation struct {
	Entity     string         `json:"entity"`
	Type       EntityKind     `json:"type"`
	Match      MatchType      `json:"match_type"`
	Confidence float64        `json:"confidence"`
	Current    any            `json:"current"`
	History    []HistoryEntry `json:"history"`
	Indicators Indicators     `json:"indicators"`
}
